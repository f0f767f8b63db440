// Copyright 2026 The Adscope Authors
// Licensed under the EUPL-1.2

package config

import (
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

var configFile = altsrc.StringSourcer("config.toml")

type Config struct { //nolint:govet // fieldalignment not critical for config structs
	Server    ServerConfig
	Log       LogConfig
	Database  DatabaseConfig
	Session   SessionConfig
	Admin     AdminConfig
	RateLimit RateLimitConfig
	Redis     RedisConfig
}

type ServerConfig struct {
	Host        string
	Port        int
	Environment string // development, production
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

type DatabaseConfig struct { //nolint:govet // fieldalignment not critical for config structs
	SQLitePath     string
	PrimaryEnabled bool
	PrimaryDSN     string
	PrimaryTimeout int // per-call timeout in seconds
}

type SessionConfig struct { //nolint:govet // fieldalignment not critical
	CookieName  string
	MaxAge      int    // seconds
	TokenSecret string // keys the at-rest token digest
}

type AdminConfig struct {
	Email  string // privilege-elevated account
	Secret string // shared secret for setup tooling outside development
}

type RateLimitConfig struct {
	LoginLimit   int
	LoginWindow  int // seconds
	SignupLimit  int
	SignupWindow int // seconds
	ForgotLimit  int
	ForgotWindow int // seconds
}

type RedisConfig struct {
	Addr string // empty selects the in-process limiter
}

func NewFromCLI(cmd *cli.Command) *Config {
	return &Config{
		Server: ServerConfig{
			Host:        cmd.String("host"),
			Port:        int(cmd.Int("port")),
			Environment: cmd.String("environment"),
		},
		Log: LogConfig{
			Level:  cmd.String("log-level"),
			Format: cmd.String("log-format"),
		},
		Database: DatabaseConfig{
			SQLitePath:     cmd.String("sqlite-path"),
			PrimaryEnabled: cmd.Bool("primary-enabled"),
			PrimaryDSN:     cmd.String("primary-dsn"),
			PrimaryTimeout: int(cmd.Int("primary-timeout")),
		},
		Session: SessionConfig{
			CookieName:  cmd.String("session-cookie-name"),
			MaxAge:      int(cmd.Int("session-max-age")),
			TokenSecret: cmd.String("session-token-secret"),
		},
		Admin: AdminConfig{
			Email:  cmd.String("admin-email"),
			Secret: cmd.String("admin-secret"),
		},
		RateLimit: RateLimitConfig{
			LoginLimit:   int(cmd.Int("ratelimit-login-limit")),
			LoginWindow:  int(cmd.Int("ratelimit-login-window")),
			SignupLimit:  int(cmd.Int("ratelimit-signup-limit")),
			SignupWindow: int(cmd.Int("ratelimit-signup-window")),
			ForgotLimit:  int(cmd.Int("ratelimit-forgot-limit")),
			ForgotWindow: int(cmd.Int("ratelimit-forgot-window")),
		},
		Redis: RedisConfig{
			Addr: cmd.String("redis-addr"),
		},
	}
}

// IsDevelopment reports whether the service runs in development mode.
// Development relaxes cookie security and the admin endpoint gate.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment != "production"
}

// SessionMaxAge returns the configured session lifetime.
func (c *Config) SessionMaxAge() time.Duration {
	return time.Duration(c.Session.MaxAge) * time.Second
}

// PrimaryTimeout returns the per-call primary store timeout.
func (c *Config) PrimaryTimeout() time.Duration {
	return time.Duration(c.Database.PrimaryTimeout) * time.Second
}

func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "Host to bind to",
			Sources: cli.NewValueSourceChain(cli.EnvVar("HOST"), toml.TOML("server.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   8080,
			Usage:   "Port to listen on",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PORT"), toml.TOML("server.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "environment",
			Value:   "development",
			Usage:   "Runtime environment (development, production)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("ENVIRONMENT"), toml.TOML("server.environment", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_LEVEL"), toml.TOML("log.level", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   "text",
			Usage:   "Log format (text, json)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_FORMAT"), toml.TOML("log.format", configFile)),
		},
		&cli.StringFlag{
			Name:    "sqlite-path",
			Value:   "./data/auth.db",
			Usage:   "Path to the embedded fallback database",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SQLITE_PATH"), toml.TOML("database.sqlite_path", configFile)),
		},
		&cli.BoolFlag{
			Name:    "primary-enabled",
			Usage:   "Enable the hosted primary database",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PRIMARY_ENABLED"), toml.TOML("database.primary_enabled", configFile)),
		},
		&cli.StringFlag{
			Name:    "primary-dsn",
			Usage:   "Postgres DSN for the primary database",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PRIMARY_DSN"), toml.TOML("database.primary_dsn", configFile)),
		},
		&cli.IntFlag{
			Name:    "primary-timeout",
			Value:   3,
			Usage:   "Per-call primary database timeout in seconds",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PRIMARY_TIMEOUT"), toml.TOML("database.primary_timeout", configFile)),
		},
		&cli.StringFlag{
			Name:    "session-cookie-name",
			Value:   "_session",
			Usage:   "Session cookie name",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SESSION_COOKIE_NAME"), toml.TOML("session.cookie_name", configFile)),
		},
		&cli.IntFlag{
			Name:    "session-max-age",
			Value:   604800, // 7 days in seconds
			Usage:   "Session max age in seconds",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SESSION_MAX_AGE"), toml.TOML("session.max_age", configFile)),
		},
		&cli.StringFlag{
			Name:    "session-token-secret",
			Usage:   "Secret keying the at-rest session token digest",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SESSION_TOKEN_SECRET"), toml.TOML("session.token_secret", configFile)),
		},
		&cli.StringFlag{
			Name:    "admin-email",
			Usage:   "Email of the privilege-elevated administrator account",
			Sources: cli.NewValueSourceChain(cli.EnvVar("ADMIN_EMAIL"), toml.TOML("admin.email", configFile)),
		},
		&cli.StringFlag{
			Name:    "admin-secret",
			Usage:   "Shared secret gating the admin endpoints outside development",
			Sources: cli.NewValueSourceChain(cli.EnvVar("ADMIN_SECRET"), toml.TOML("admin.secret", configFile)),
		},
		&cli.IntFlag{
			Name:    "ratelimit-login-limit",
			Value:   10,
			Usage:   "Login attempts allowed per window",
			Sources: cli.NewValueSourceChain(cli.EnvVar("RATELIMIT_LOGIN_LIMIT"), toml.TOML("ratelimit.login_limit", configFile)),
		},
		&cli.IntFlag{
			Name:    "ratelimit-login-window",
			Value:   60,
			Usage:   "Login rate-limit window in seconds",
			Sources: cli.NewValueSourceChain(cli.EnvVar("RATELIMIT_LOGIN_WINDOW"), toml.TOML("ratelimit.login_window", configFile)),
		},
		&cli.IntFlag{
			Name:    "ratelimit-signup-limit",
			Value:   5,
			Usage:   "Signup attempts allowed per window",
			Sources: cli.NewValueSourceChain(cli.EnvVar("RATELIMIT_SIGNUP_LIMIT"), toml.TOML("ratelimit.signup_limit", configFile)),
		},
		&cli.IntFlag{
			Name:    "ratelimit-signup-window",
			Value:   300,
			Usage:   "Signup rate-limit window in seconds",
			Sources: cli.NewValueSourceChain(cli.EnvVar("RATELIMIT_SIGNUP_WINDOW"), toml.TOML("ratelimit.signup_window", configFile)),
		},
		&cli.IntFlag{
			Name:    "ratelimit-forgot-limit",
			Value:   5,
			Usage:   "Password-reset requests allowed per window",
			Sources: cli.NewValueSourceChain(cli.EnvVar("RATELIMIT_FORGOT_LIMIT"), toml.TOML("ratelimit.forgot_limit", configFile)),
		},
		&cli.IntFlag{
			Name:    "ratelimit-forgot-window",
			Value:   900,
			Usage:   "Password-reset rate-limit window in seconds",
			Sources: cli.NewValueSourceChain(cli.EnvVar("RATELIMIT_FORGOT_WINDOW"), toml.TOML("ratelimit.forgot_window", configFile)),
		},
		&cli.StringFlag{
			Name:    "redis-addr",
			Usage:   "Redis address for the shared rate limiter (empty for in-process)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("REDIS_ADDR"), toml.TOML("redis.addr", configFile)),
		},
	}
}
