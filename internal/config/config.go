// Package config reads server settings from the environment.
//
// A .env file in the working directory is loaded first when present. Values
// already set in the real environment win over the file, so a deployment
// can override anything without editing it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/sakif/nutriswap/internal/matcher"
	"github.com/sakif/nutriswap/internal/swap"
)

// Config holds every setting the server needs.
type Config struct {
	Port   int
	DBPath string

	LogLevel  slog.Level
	LogFormat string // "text" or "json"

	JWTSecret string
	TokenTTL  time.Duration

	// GitHub sign-in is disabled when GitHubClientID is empty.
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string

	MatchMaxTokens   int
	SwapExtremeLimit int
	SwapMaxResults   int
}

// Default returns the settings used when nothing is configured. JWTSecret
// has no default.
func Default() Config {
	return Config{
		Port:             8080,
		DBPath:           "data/nutriswap.db",
		LogLevel:         slog.LevelInfo,
		LogFormat:        "text",
		TokenTTL:         24 * time.Hour,
		MatchMaxTokens:   matcher.DefaultConfig().MaxTokens,
		SwapExtremeLimit: swap.DefaultExtremeLimit,
		SwapMaxResults:   swap.DefaultMaxResults,
	}
}

// Load reads envFile (if it exists) into the environment and builds a
// Config from it. An empty envFile means ".env".
func Load(envFile string) (Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: loading %s: %w", envFile, err)
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from lookup, typically os.LookupEnv.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	var errs []error
	intVar := func(key string, dst *int) {
		s := get(key)
		if s == "" {
			return
		}
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			errs = append(errs, fmt.Errorf("%s must be a positive integer, got %q", key, s))
			return
		}
		*dst = n
	}

	intVar("PORT", &cfg.Port)
	intVar("MATCH_MAX_TOKENS", &cfg.MatchMaxTokens)
	intVar("SWAP_EXTREME_LIMIT", &cfg.SwapExtremeLimit)
	intVar("SWAP_MAX_RESULTS", &cfg.SwapMaxResults)

	if s := get("DB_PATH"); s != "" {
		cfg.DBPath = s
	}

	if s := get("LOG_LEVEL"); s != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(s)); err != nil {
			errs = append(errs, fmt.Errorf("LOG_LEVEL must be debug, info, warn or error, got %q", s))
		}
	}
	if s := get("LOG_FORMAT"); s != "" {
		switch f := strings.ToLower(s); f {
		case "text", "json":
			cfg.LogFormat = f
		default:
			errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", s))
		}
	}

	cfg.JWTSecret = get("JWT_SECRET")
	if cfg.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if s := get("TOKEN_TTL"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("TOKEN_TTL must be a positive duration such as 24h, got %q", s))
		} else {
			cfg.TokenTTL = d
		}
	}

	cfg.GitHubClientID = get("GITHUB_CLIENT_ID")
	cfg.GitHubClientSecret = get("GITHUB_CLIENT_SECRET")
	cfg.GitHubCallbackURL = get("GITHUB_CALLBACK_URL")
	if cfg.GitHubCallbackURL == "" {
		cfg.GitHubCallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port)
	}
	if cfg.GitHubClientID != "" && cfg.GitHubClientSecret == "" {
		errs = append(errs, errors.New("GITHUB_CLIENT_SECRET is required when GITHUB_CLIENT_ID is set"))
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Logger builds the process logger from LogLevel and LogFormat.
func (c Config) Logger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
