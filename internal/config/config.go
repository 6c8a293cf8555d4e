package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Store    string
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Server   ServerConfig
	Realtime RealtimeConfig
	Log      LogConfig
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string //nolint:gosec // G117: DB connection config
	DBName   string
	SSLMode  string
	MaxConns int
}

// RedisConfig holds Redis connection settings. An empty Addr runs a single
// instance with in-process fan-out and presence.
type RedisConfig struct {
	Addr        string
	Password    string //nolint:gosec // G117: Redis connection config
	DB          int
	PresenceTTL time.Duration
}

// Enabled reports whether a Redis server is configured.
func (c RedisConfig) Enabled() bool { return c.Addr != "" }

// JWTConfig holds the secret shared with the service that issues tokens.
type JWTConfig struct {
	Secret string //nolint:gosec // G117: JWT signing secret config
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	RateLimit       float64
	RateBurst       int
}

// RealtimeConfig holds WebSocket and mutation pipeline settings.
type RealtimeConfig struct {
	SendBuffer           int
	CommandRate          float64
	CommandBurst         int
	WriteTimeout         time.Duration
	MutationTimeout      time.Duration
	AllowCrossBoardMoves bool
}

// LogConfig selects the zerolog level and output format.
type LogConfig struct {
	Level  string
	Format string
}

// LoadDotEnv loads variables from path into the environment without
// overriding ones already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config.LoadDotEnv: %w", err)
	}
	return nil
}

// Load reads configuration from environment variables.
// Defaults are safe for local development only. In production,
// sensitive values (JWT secret, DB password) must be set explicitly.
func Load() (*Config, error) {
	var errs []error
	intVar := func(key string, fallback int) int {
		n, err := getEnvInt(key, fallback)
		errs = append(errs, err)
		return n
	}
	floatVar := func(key string, fallback float64) float64 {
		f, err := getEnvFloat(key, fallback)
		errs = append(errs, err)
		return f
	}
	boolVar := func(key string, fallback bool) bool {
		b, err := getEnvBool(key, fallback)
		errs = append(errs, err)
		return b
	}
	durationVar := func(key string, fallback time.Duration) time.Duration {
		d, err := getEnvDuration(key, fallback)
		errs = append(errs, err)
		return d
	}

	cfg := &Config{
		Store: getEnv("KANBANA_STORE", StorePostgres),
		Database: DatabaseConfig{
			Host:     getEnv("KANBANA_DB_HOST", "localhost"),
			Port:     intVar("KANBANA_DB_PORT", 5432),
			User:     getEnv("KANBANA_DB_USER", "kanbana"),
			Password: getEnv("KANBANA_DB_PASSWORD", ""),
			DBName:   getEnv("KANBANA_DB_NAME", "kanbana_dev"),
			SSLMode:  getEnv("KANBANA_DB_SSLMODE", "disable"),
			MaxConns: intVar("KANBANA_DB_MAX_CONNS", 25),
		},
		Redis: RedisConfig{
			Addr:        getEnv("KANBANA_REDIS_ADDR", ""),
			Password:    getEnv("KANBANA_REDIS_PASSWORD", ""),
			DB:          intVar("KANBANA_REDIS_DB", 0),
			PresenceTTL: durationVar("KANBANA_REDIS_PRESENCE_TTL", 12*time.Hour),
		},
		JWT: JWTConfig{
			Secret: getEnv("KANBANA_JWT_SECRET", ""),
		},
		Server: ServerConfig{
			Addr:            getEnv("KANBANA_SERVER_ADDR", ":8080"),
			ReadTimeout:     durationVar("KANBANA_SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    durationVar("KANBANA_SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: durationVar("KANBANA_SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
			CORSOrigins:     getEnvList("KANBANA_CORS_ORIGINS", []string{"http://localhost:5173"}),
			RateLimit:       floatVar("KANBANA_API_RATE_LIMIT", 20),
			RateBurst:       intVar("KANBANA_API_RATE_BURST", 40),
		},
		Realtime: RealtimeConfig{
			SendBuffer:           intVar("KANBANA_WS_SEND_BUFFER", 64),
			CommandRate:          floatVar("KANBANA_WS_COMMAND_RATE", 20),
			CommandBurst:         intVar("KANBANA_WS_COMMAND_BURST", 40),
			WriteTimeout:         durationVar("KANBANA_WS_WRITE_TIMEOUT", 10*time.Second),
			MutationTimeout:      durationVar("KANBANA_MUTATION_TIMEOUT", 10*time.Second),
			AllowCrossBoardMoves: boolVar("KANBANA_ALLOW_CROSS_BOARD_MOVES", false),
		},
		Log: LogConfig{
			Level:  getEnv("KANBANA_LOG_LEVEL", "info"),
			Format: getEnv("KANBANA_LOG_FORMAT", "json"),
		},
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	// JWT secret is required (no insecure default).
	if c.JWT.Secret == "" {
		return errors.New("KANBANA_JWT_SECRET is required")
	}
	if len(c.JWT.Secret) < 32 {
		return errors.New("KANBANA_JWT_SECRET must be at least 32 characters")
	}

	switch c.Store {
	case StorePostgres:
		if c.Database.SSLMode == "disable" {
			log.Warn().Msg("KANBANA_DB_SSLMODE=disable is insecure for production; set to 'require' or 'verify-full'")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("KANBANA_STORE must be %q or %q, got %q", StorePostgres, StoreMemory, c.Store)
	}

	// Bounds checks.
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("KANBANA_DB_PORT must be 1-65535, got %d", c.Database.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("KANBANA_DB_MAX_CONNS must be >= 1, got %d", c.Database.MaxConns)
	}
	if c.Redis.PresenceTTL <= 0 {
		return fmt.Errorf("KANBANA_REDIS_PRESENCE_TTL must be positive, got %s", c.Redis.PresenceTTL)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("KANBANA_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("KANBANA_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("KANBANA_SERVER_SHUTDOWN_TIMEOUT must be positive, got %s", c.Server.ShutdownTimeout)
	}
	if c.Server.RateLimit <= 0 || c.Server.RateBurst < 1 {
		return fmt.Errorf("KANBANA_API_RATE_LIMIT and KANBANA_API_RATE_BURST must be positive, got %g/%d", c.Server.RateLimit, c.Server.RateBurst)
	}
	if c.Realtime.SendBuffer < 1 {
		return fmt.Errorf("KANBANA_WS_SEND_BUFFER must be >= 1, got %d", c.Realtime.SendBuffer)
	}
	if c.Realtime.CommandRate <= 0 || c.Realtime.CommandBurst < 1 {
		return fmt.Errorf("KANBANA_WS_COMMAND_RATE and KANBANA_WS_COMMAND_BURST must be positive, got %g/%d", c.Realtime.CommandRate, c.Realtime.CommandBurst)
	}
	if c.Realtime.WriteTimeout <= 0 {
		return fmt.Errorf("KANBANA_WS_WRITE_TIMEOUT must be positive, got %s", c.Realtime.WriteTimeout)
	}
	if c.Realtime.MutationTimeout <= 0 {
		return fmt.Errorf("KANBANA_MUTATION_TIMEOUT must be positive, got %s", c.Realtime.MutationTimeout)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("KANBANA_LOG_FORMAT must be json or text, got %q", c.Log.Format)
	}

	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// URL returns the connection string in postgres:// form, which the
// migration driver requires.
func (c *DatabaseConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as float: %w", key, v, err)
	}
	return f, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parsing %s=%q as bool: %w", key, v, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
