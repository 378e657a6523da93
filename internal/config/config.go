// Package config assembles runtime settings from defaults, an optional
// .env file, and EXAMPREP_* environment variables. Command-line flags are
// applied on top by the cmd package.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/abhisek/examprep/internal/events"
	"github.com/abhisek/examprep/internal/llm"
	"github.com/abhisek/examprep/internal/scoring"
	"github.com/abhisek/examprep/internal/store"
)

// Config holds all runtime settings.
type Config struct {
	// DB is the document store DSN: a SQLite path, memory://, or a
	// mongodb:// URI.
	DB string

	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
	HTTP     HTTPConfig
	Scheme   scoring.Scheme

	// Local identity for terminal sessions.
	StudentID   string
	StudentName string

	LogLevel slog.Level

	LLM llm.Config
}

// RedisConfig locates the name cache. An empty Addr disables it.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RabbitMQConfig locates the event broker. An empty URI disables events.
type RabbitMQConfig struct {
	URI      string
	Exchange string
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr        string
	JWTSecret   string
	CORSOrigins []string
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		RabbitMQ: RabbitMQConfig{Exchange: events.DefaultExchange},
		HTTP: HTTPConfig{
			Addr:        ":8080",
			CORSOrigins: []string{"*"},
		},
		Scheme:   scoring.DefaultScheme(),
		LogLevel: slog.LevelInfo,
		LLM:      llm.DefaultConfig(),
	}
}

// Load reads envFile (".env" when empty) if it exists, then the
// environment. A missing default .env is not an error; a missing explicit
// one is.
func Load(envFile string) (Config, error) {
	explicit := envFile != ""
	if !explicit {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}
	return FromEnv()
}

// FromEnv overrides Default with EXAMPREP_* variables.
func FromEnv() (Config, error) {
	cfg := Default()
	var errs []error

	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *float64) {
		if v := os.Getenv(key); v != "" {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %q is not a number", key, v))
				return
			}
			*dst = f
		}
	}

	str("EXAMPREP_DB", &cfg.DB)
	if cfg.DB == "" {
		p, err := store.DefaultDBPath()
		if err != nil {
			errs = append(errs, err)
		}
		cfg.DB = p
	}
	str("EXAMPREP_REDIS_ADDR", &cfg.Redis.Addr)
	str("EXAMPREP_REDIS_PASSWORD", &cfg.Redis.Password)
	if v := os.Getenv("EXAMPREP_REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("EXAMPREP_REDIS_DB: %q is not an integer", v))
		}
		cfg.Redis.DB = n
	}
	str("EXAMPREP_RABBITMQ_URI", &cfg.RabbitMQ.URI)
	str("EXAMPREP_RABBITMQ_EXCHANGE", &cfg.RabbitMQ.Exchange)
	str("EXAMPREP_HTTP_ADDR", &cfg.HTTP.Addr)
	str("EXAMPREP_JWT_SECRET", &cfg.HTTP.JWTSecret)
	if v := os.Getenv("EXAMPREP_CORS_ORIGINS"); v != "" {
		cfg.HTTP.CORSOrigins = splitList(v)
	}
	num("EXAMPREP_MARKS_CORRECT", &cfg.Scheme.MarksPerCorrect)
	num("EXAMPREP_MARKS_INCORRECT", &cfg.Scheme.NegativeMarksPerIncorrect)
	str("EXAMPREP_STUDENT_ID", &cfg.StudentID)
	str("EXAMPREP_STUDENT_NAME", &cfg.StudentName)
	if v := os.Getenv("EXAMPREP_LOG_LEVEL"); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			errs = append(errs, fmt.Errorf("EXAMPREP_LOG_LEVEL: %w", err))
		}
	}
	cfg.LLM = llm.ConfigFromEnv()

	if err := errors.Join(errs...); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Validate checks settings that have no safe fallback.
func (c Config) Validate() error {
	if c.DB == "" {
		return fmt.Errorf("no document store configured; set EXAMPREP_DB or --db")
	}
	if err := c.Scheme.Validate(); err != nil {
		return fmt.Errorf("marking scheme: %w", err)
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("EXAMPREP_REDIS_DB must not be negative")
	}
	return nil
}

// ValidateServer checks the settings only the API server needs.
func (c Config) ValidateServer() error {
	if c.HTTP.JWTSecret == "" {
		return fmt.Errorf("EXAMPREP_JWT_SECRET is required to serve the API")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
