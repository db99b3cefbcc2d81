package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Insecure defaults shipped for local development. Validate refuses them
// unless LABBOOK_ENV=development.
const (
	DefaultSessionSecret = "your-secret-key-here"
	DefaultAdminPassword = "admin123"
)

type Config struct {
	Addr            string        `yaml:"addr"`
	SessionSecret   string        `yaml:"session_secret"`
	APITimeout      time.Duration `yaml:"timeout"`
	DatabasePath    string        `yaml:"database_path"`
	StaticDir       string        `yaml:"static_dir"`
	SessionDuration time.Duration `yaml:"session_duration"`
	CookieSecure    bool          `yaml:"cookie_secure"`
	Timezone        string        `yaml:"timezone"`
	Admin           AdminConfig   `yaml:"admin"`
	Sessions        SessionConfig `yaml:"sessions"`
	CORS            CORSConfig    `yaml:"cors"`

	location *time.Location
}

// AdminConfig is the account seeded at startup when missing.
type AdminConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type SessionConfig struct {
	Backend string      `yaml:"backend"`
	Redis   RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

const (
	SessionBackendSQLite = "sqlite"
	SessionBackendRedis  = "redis"
)

// LoadConfig builds the configuration from defaults, an optional .env file,
// environment variables and, when path is non-empty, a YAML file.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	redisDB, err := strconv.Atoi(getEnv("LABBOOK_REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("LABBOOK_REDIS_DB: %w", err)
	}

	cfg := &Config{
		Addr:            getEnv("LABBOOK_ADDR", ":5000"),
		SessionSecret:   getEnv("LABBOOK_SESSION_SECRET", DefaultSessionSecret),
		APITimeout:      15 * time.Second,
		DatabasePath:    getEnv("LABBOOK_DATABASE_PATH", "bookings.db"),
		StaticDir:       getEnv("LABBOOK_STATIC_DIR", "static"),
		SessionDuration: 12 * time.Hour,
		CookieSecure:    getEnv("LABBOOK_COOKIE_SECURE", "true") != "false",
		Timezone:        getEnv("LABBOOK_TIMEZONE", "UTC"),
		Admin: AdminConfig{
			Username: getEnv("LABBOOK_ADMIN_USERNAME", "admin"),
			Password: getEnv("LABBOOK_ADMIN_PASSWORD", DefaultAdminPassword),
		},
		Sessions: SessionConfig{
			Backend: getEnv("LABBOOK_SESSION_BACKEND", SessionBackendSQLite),
			Redis: RedisConfig{
				Address:  getEnv("LABBOOK_REDIS_ADDR", ""),
				Password: getEnv("LABBOOK_REDIS_PASSWORD", ""),
				DB:       redisDB,
				PoolSize: 10,
			},
		},
		CORS: CORSConfig{AllowedOrigins: []string{"*"}},
	}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Validate checks the configuration and resolves derived values. Outside
// development it refuses the shipped default secret and admin password.
func (c *Config) Validate() error {
	dev := os.Getenv("LABBOOK_ENV") == "development"

	if c.SessionSecret == "" {
		return errors.New("session_secret is required")
	}
	if c.SessionSecret == DefaultSessionSecret && !dev {
		return errors.New("insecure default session_secret; set LABBOOK_SESSION_SECRET or LABBOOK_ENV=development")
	}
	if c.Admin.Username == "" || c.Admin.Password == "" {
		return errors.New("admin.username and admin.password are required")
	}
	if c.Admin.Password == DefaultAdminPassword && !dev {
		return errors.New("insecure default admin password; set LABBOOK_ADMIN_PASSWORD or LABBOOK_ENV=development")
	}
	if c.DatabasePath == "" {
		return errors.New("database_path is required")
	}
	if c.SessionDuration <= 0 {
		return fmt.Errorf("session_duration must be positive, got %v", c.SessionDuration)
	}
	if c.APITimeout <= 0 {
		c.APITimeout = 15 * time.Second
	}

	switch strings.ToLower(c.Sessions.Backend) {
	case "", SessionBackendSQLite:
		c.Sessions.Backend = SessionBackendSQLite
	case SessionBackendRedis:
		c.Sessions.Backend = SessionBackendRedis
		if c.Sessions.Redis.Address == "" {
			return errors.New("sessions.redis.address is required for the redis session backend")
		}
		if c.Sessions.Redis.PoolSize <= 0 {
			c.Sessions.Redis.PoolSize = 10
		}
	default:
		return fmt.Errorf("unknown session backend %q", c.Sessions.Backend)
	}

	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	c.location = loc

	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}

	return nil
}

// Location is the zone used for calendar-day statistics. It falls back to
// UTC when Validate has not resolved one.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}
