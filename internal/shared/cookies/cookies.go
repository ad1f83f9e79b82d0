package cookies

import (
	"net/http"
	"net/url"
	"starfront-server/internal/shared/config"
	"time"
)

const AuthTokenName = "auth_token"

// Policy holds the attributes every auth cookie is written with.
type Policy struct {
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

func NewPolicy(auth config.AuthConfig, frontend config.FrontendConfig) Policy {
	return Policy{
		Domain:   extractDomain(frontend.URL),
		Secure:   auth.CookieSecure,
		SameSite: parseSameSite(auth.CookieSameSite),
	}
}

// AuthToken returns the token carried by the auth cookie, or "".
func AuthToken(r *http.Request) string {
	cookie, err := r.Cookie(AuthTokenName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (p Policy) SetAuthCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	cookie := p.createAuthCookie()
	cookie.Value = token
	cookie.MaxAge = int(ttl.Seconds())

	http.SetCookie(w, cookie)
}

func (p Policy) ClearAuthCookie(w http.ResponseWriter) {
	cookie := p.createAuthCookie()
	cookie.Value = ""
	cookie.MaxAge = -1

	http.SetCookie(w, cookie)
}

func (p Policy) createAuthCookie() *http.Cookie {
	return &http.Cookie{
		Name:     AuthTokenName,
		Path:     "/",
		Domain:   p.Domain,
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: p.SameSite,
	}
}

func extractDomain(frontendURL string) string {
	parsedURL, err := url.Parse(frontendURL)
	if err != nil || parsedURL.Host == "" {
		return ""
	}

	host := parsedURL.Hostname()
	if host == "localhost" || host == "127.0.0.1" {
		return ""
	}

	return host
}

func parseSameSite(sameSiteStr string) http.SameSite {
	switch sameSiteStr {
	case "strict":
		return http.SameSiteStrictMode
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
