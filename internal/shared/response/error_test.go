package response

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"starfront-server/internal/shared/errors"
)

func TestErrorMapsTypeAndHidesInternalDetail(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cases := []struct {
		err     error
		code    int
		message string
	}{
		{errors.Validation("cooldown active"), http.StatusBadRequest, "cooldown active"},
		{errors.NotFound("combat not found"), http.StatusNotFound, "combat not found"},
		{errors.Forbidden("not your colony"), http.StatusForbidden, "not your colony"},
		{errors.WrapInternal("save failed", stderrors.New("pq: deadlock detected")), http.StatusInternalServerError, "internal server error"},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
		Error(rec, req, logger, tc.err)

		if rec.Code != tc.code {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.code, rec.Code)
		}
		var body ErrorResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.Message != tc.message {
			t.Fatalf("expected message %q, got %q", tc.message, body.Message)
		}
		if strings.Contains(rec.Body.String(), "pq:") {
			t.Fatalf("internal detail leaked: %s", rec.Body.String())
		}
	}
}
