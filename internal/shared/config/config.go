package config

import (
	"fmt"
	"starfront-server/internal/shared/utils"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Store     StoreConfig
	Auth      AuthConfig
	Frontend  FrontendConfig
	Logging   LoggingConfig
	RateLimit RateLimitConfig
	World     WorldConfig
	Session   SessionConfig
	Catalog   CatalogConfig
}

type RedisConfig struct {
	URL       string
	Host      string
	Port      string
	Password  string
	DB        int
	KeyPrefix string
}

type ServerConfig struct {
	Port         string
	URL          string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// StoreConfig selects the persistence backend and the async saver behavior.
type StoreConfig struct {
	Backend      string
	SaveRetries  int
	RetryBackoff time.Duration
	QueueSize    int
}

type AuthConfig struct {
	JWTSecret      string
	CookieSecure   bool
	CookieSameSite string
}

type FrontendConfig struct {
	URL       string
	CORSDebug bool
}

type LoggingConfig struct {
	Level      string
	Format     string
	JSONFormat bool
}

type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	BurstSize         int
	ControlsPerSecond float64
	ControlBurst      int
	TrustProxy        bool
}

type WorldConfig struct {
	Radius            int
	Seed              int64
	MoveCooldown      time.Duration
	TickInterval      time.Duration
	DecayInterval     time.Duration
	InvasionThreshold float64
	SecondaryAnchorQ  int
	SecondaryAnchorR  int
	StartingShipClass string
}

type SessionConfig struct {
	CombatTick     time.Duration
	MiningTick     time.Duration
	BroadcastEvery int
}

type CatalogConfig struct {
	Path string
}

var GlobalConfig *Config

func Init() error {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using system environment variables")
	}

	config, err := load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := config.validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	GlobalConfig = config
	return nil
}

func load() (*Config, error) {
	world, err := loadWorldConfig()
	if err != nil {
		return nil, err
	}

	config := &Config{
		Server:    loadServerConfig(),
		Database:  loadDatabaseConfig(),
		Redis:     loadRedisConfig(),
		Store:     loadStoreConfig(),
		Auth:      loadAuthConfig(),
		Frontend:  loadFrontendConfig(),
		Logging:   loadLoggingConfig(),
		RateLimit: loadRateLimitConfig(),
		World:     world,
		Session:   loadSessionConfig(),
		Catalog:   CatalogConfig{Path: utils.GetEnv("CATALOG_PATH", "")},
	}

	return config, nil
}

func loadRedisConfig() RedisConfig {
	db, _ := strconv.Atoi(utils.GetEnv("REDIS_DB", "0"))

	return RedisConfig{
		URL:       utils.GetEnv("REDIS_URL", ""),
		Host:      utils.GetEnv("REDIS_HOST", "localhost"),
		Port:      utils.GetEnv("REDIS_PORT", "6379"),
		Password:  utils.GetEnv("REDIS_PASSWORD", ""),
		DB:        db,
		KeyPrefix: utils.GetEnv("REDIS_KEY_PREFIX", "starfront"),
	}
}

func loadServerConfig() ServerConfig {
	readTimeout, _ := strconv.Atoi(utils.GetEnv("SERVER_READ_TIMEOUT_SECONDS", "15"))
	writeTimeout, _ := strconv.Atoi(utils.GetEnv("SERVER_WRITE_TIMEOUT_SECONDS", "15"))
	idleTimeout, _ := strconv.Atoi(utils.GetEnv("SERVER_IDLE_TIMEOUT_SECONDS", "60"))

	return ServerConfig{
		Port:         utils.GetEnv("SERVER_PORT", "8080"),
		URL:          utils.GetEnv("SERVER_URL", "http://localhost:8080"),
		Environment:  utils.GetEnv("ENVIRONMENT", "development"),
		ReadTimeout:  time.Duration(readTimeout) * time.Second,
		WriteTimeout: time.Duration(writeTimeout) * time.Second,
		IdleTimeout:  time.Duration(idleTimeout) * time.Second,
	}
}

func loadDatabaseConfig() DatabaseConfig {
	maxOpenConns, _ := strconv.Atoi(utils.GetEnv("DB_MAX_OPEN_CONNS", "25"))
	maxIdleConns, _ := strconv.Atoi(utils.GetEnv("DB_MAX_IDLE_CONNS", "5"))
	connMaxLifetime, _ := strconv.Atoi(utils.GetEnv("DB_CONN_MAX_LIFETIME_MINUTES", "5"))

	return DatabaseConfig{
		Driver:          utils.GetEnv("DB_DRIVER", "postgres"),
		Host:            utils.GetEnv("DB_HOST", "localhost"),
		Port:            utils.GetEnv("DB_PORT", "5432"),
		User:            utils.GetEnv("DB_USER", "postgres"),
		Password:        utils.GetEnv("DB_PASSWORD", "postgres"),
		Name:            utils.GetEnv("DB_NAME", "starfront"),
		SSLMode:         utils.GetEnv("DB_SSLMODE", "disable"),
		Path:            utils.GetEnv("DB_PATH", "./data/starfront.db"),
		MaxOpenConns:    maxOpenConns,
		MaxIdleConns:    maxIdleConns,
		ConnMaxLifetime: time.Duration(connMaxLifetime) * time.Minute,
	}
}

func loadStoreConfig() StoreConfig {
	retries, _ := strconv.Atoi(utils.GetEnv("STORE_SAVE_RETRIES", "3"))
	backoffMs, _ := strconv.Atoi(utils.GetEnv("STORE_RETRY_BACKOFF_MS", "250"))
	queueSize, _ := strconv.Atoi(utils.GetEnv("STORE_QUEUE_SIZE", "256"))

	return StoreConfig{
		Backend:      strings.ToLower(utils.GetEnv("STORE_BACKEND", "postgres")),
		SaveRetries:  retries,
		RetryBackoff: time.Duration(backoffMs) * time.Millisecond,
		QueueSize:    queueSize,
	}
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		JWTSecret:      utils.GetEnv("JWT_SECRET", ""),
		CookieSecure:   utils.GetEnv("COOKIE_SECURE", "false") == "true",
		CookieSameSite: strings.ToLower(utils.GetEnv("COOKIE_SAME_SITE", "lax")),
	}
}

func loadFrontendConfig() FrontendConfig {
	corsDebug := utils.GetEnv("CORS_DEBUG", "") == "true"

	return FrontendConfig{
		URL:       utils.GetEnv("FRONTEND_URL", "http://localhost:3000"),
		CORSDebug: corsDebug,
	}
}

func loadLoggingConfig() LoggingConfig {
	environment := utils.GetEnv("ENVIRONMENT", "development")
	jsonFormat := environment == "production"

	return LoggingConfig{
		Level:      utils.GetEnv("LOG_LEVEL", "debug"),
		Format:     utils.GetEnv("LOG_FORMAT", "text"),
		JSONFormat: jsonFormat,
	}
}

func loadRateLimitConfig() RateLimitConfig {
	enabled := utils.GetEnv("RATE_LIMIT_ENABLED", "true") == "true"
	requestsPerSecond, _ := strconv.ParseFloat(utils.GetEnv("RATE_LIMIT_REQUESTS_PER_SECOND", "10"), 64)
	burstSize, _ := strconv.Atoi(utils.GetEnv("RATE_LIMIT_BURST_SIZE", "20"))
	controlsPerSecond, _ := strconv.ParseFloat(utils.GetEnv("RATE_LIMIT_CONTROLS_PER_SECOND", "120"), 64)
	controlBurst, _ := strconv.Atoi(utils.GetEnv("RATE_LIMIT_CONTROL_BURST", "60"))

	return RateLimitConfig{
		Enabled:           enabled,
		RequestsPerSecond: requestsPerSecond,
		BurstSize:         burstSize,
		ControlsPerSecond: controlsPerSecond,
		ControlBurst:      controlBurst,
		TrustProxy:        utils.GetEnv("RATE_LIMIT_TRUST_PROXY", "false") == "true",
	}
}

func loadWorldConfig() (WorldConfig, error) {
	radius, _ := strconv.Atoi(utils.GetEnv("WORLD_RADIUS", "30"))
	seed, _ := strconv.ParseInt(utils.GetEnv("WORLD_SEED", "1337"), 10, 64)
	moveCooldownMs, _ := strconv.Atoi(utils.GetEnv("WORLD_MOVE_COOLDOWN_MS", "3000"))
	tickMs, _ := strconv.Atoi(utils.GetEnv("WORLD_TICK_MS", "100"))
	decayMinutes, _ := strconv.Atoi(utils.GetEnv("WORLD_DECAY_INTERVAL_MINUTES", "5"))
	anchorQ, _ := strconv.Atoi(utils.GetEnv("WORLD_SECONDARY_ANCHOR_Q", "7"))
	anchorR, _ := strconv.Atoi(utils.GetEnv("WORLD_SECONDARY_ANCHOR_R", "-3"))

	threshold, err := strconv.ParseFloat(utils.GetEnv("WORLD_INVASION_THRESHOLD", "0.1"), 64)
	if err != nil {
		return WorldConfig{}, fmt.Errorf("WORLD_INVASION_THRESHOLD must be a number: %w", err)
	}

	return WorldConfig{
		Radius:            radius,
		Seed:              seed,
		MoveCooldown:      time.Duration(moveCooldownMs) * time.Millisecond,
		TickInterval:      time.Duration(tickMs) * time.Millisecond,
		DecayInterval:     time.Duration(decayMinutes) * time.Minute,
		InvasionThreshold: threshold,
		SecondaryAnchorQ:  anchorQ,
		SecondaryAnchorR:  anchorR,
		StartingShipClass: utils.GetEnv("WORLD_STARTING_SHIP_CLASS", "scout"),
	}, nil
}

func loadSessionConfig() SessionConfig {
	combatTickMs, _ := strconv.Atoi(utils.GetEnv("SESSION_COMBAT_TICK_MS", "16"))
	miningTickMs, _ := strconv.Atoi(utils.GetEnv("SESSION_MINING_TICK_MS", "50"))
	broadcastEvery, _ := strconv.Atoi(utils.GetEnv("SESSION_BROADCAST_EVERY", "3"))

	return SessionConfig{
		CombatTick:     time.Duration(combatTickMs) * time.Millisecond,
		MiningTick:     time.Duration(miningTickMs) * time.Millisecond,
		BroadcastEvery: broadcastEvery,
	}
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	switch c.Store.Backend {
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("DB_NAME is required")
		}
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("DB_PATH is required for the sqlite store")
		}
	case "redis", "memory":
	default:
		return fmt.Errorf("STORE_BACKEND %q is not supported", c.Store.Backend)
	}

	if c.World.Radius <= 0 {
		return fmt.Errorf("WORLD_RADIUS must be positive")
	}

	if c.World.TickInterval <= 0 || c.Session.CombatTick <= 0 || c.Session.MiningTick <= 0 {
		return fmt.Errorf("tick intervals must be positive")
	}

	return nil
}

func (d DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.Name,
		d.SSLMode,
	)
}
