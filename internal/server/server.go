// Copyright 2026 The Adscope Authors
// Licensed under the EUPL-1.2

// Package server assembles the service: configuration, stores, limiter,
// flows and the HTTP surface.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"

	"github.com/adscope/authcore/internal/config"
	"github.com/adscope/authcore/internal/database"
	"github.com/adscope/authcore/internal/handlers"
	"github.com/adscope/authcore/internal/ratelimit"
	"github.com/adscope/authcore/internal/repository"
	"github.com/adscope/authcore/internal/services/auth"
	"github.com/adscope/authcore/internal/services/session"
)

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"environment", cfg.Server.Environment,
		"primary_enabled", cfg.Database.PrimaryEnabled,
	)

	if cfg.Session.TokenSecret == "" && !cfg.IsDevelopment() {
		slog.Warn("no session token secret configured; at-rest token digests use the built-in key")
	}

	// Fallback store: always available.
	fallbackDB, err := database.OpenSQLite(cfg.Database.SQLitePath)
	if err != nil {
		return fmt.Errorf("failed to open fallback database: %w", err)
	}
	defer func() {
		if closeErr := fallbackDB.Close(); closeErr != nil {
			slog.Error("failed to close fallback database", "error", closeErr)
		}
	}()
	fallback := repository.NewSQLite(fallbackDB)

	// Primary store: optional; a failed connect degrades to fallback-only.
	var primary repository.Store
	if cfg.Database.PrimaryEnabled {
		primaryDB, err := database.OpenPostgres(ctx, cfg.Database.PrimaryDSN)
		if err != nil {
			slog.Error("primary database unavailable, continuing on fallback", "error", err)
		} else {
			defer func() {
				if closeErr := primaryDB.Close(); closeErr != nil {
					slog.Error("failed to close primary database", "error", closeErr)
				}
			}()
			primary = repository.NewPostgres(primaryDB, cfg.PrimaryTimeout())
		}
	}

	// Rate limiter: in-process unless a shared Redis is configured.
	var limiter ratelimit.Limiter
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		defer func() {
			if closeErr := client.Close(); closeErr != nil {
				slog.Error("failed to close redis client", "error", closeErr)
			}
		}()
		limiter = ratelimit.NewRedis(client)
		slog.Info("using shared rate limiter", "addr", cfg.Redis.Addr)
	} else {
		memory := ratelimit.NewMemory()
		defer memory.Close()
		limiter = memory
	}

	service := auth.NewService(primary, fallback, limiter, auth.Config{
		AdminEmail:    cfg.Admin.Email,
		AdminSecret:   cfg.Admin.Secret,
		SessionMaxAge: cfg.SessionMaxAge(),
		TokenSecret:   cfg.Session.TokenSecret,
		Development:   cfg.IsDevelopment(),
		LoginLimit:    cfg.RateLimit.LoginLimit,
		LoginWindow:   time.Duration(cfg.RateLimit.LoginWindow) * time.Second,
		SignupLimit:   cfg.RateLimit.SignupLimit,
		SignupWindow:  time.Duration(cfg.RateLimit.SignupWindow) * time.Second,
		ForgotLimit:   cfg.RateLimit.ForgotLimit,
		ForgotWindow:  time.Duration(cfg.RateLimit.ForgotWindow) * time.Second,
	})

	issuer := session.New(cfg.Session.CookieName, cfg.SessionMaxAge(), !cfg.IsDevelopment())

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	setupMiddleware(e)
	setupRoutes(e, service, issuer, primary, fallback)

	return startWithGracefulShutdown(ctx, e, cfg)
}

func setupRoutes(e *echo.Echo, service *auth.Service, issuer *session.Issuer, primary, fallback repository.Store) {
	authHandler := handlers.NewAuth(service, issuer)
	adminHandler := handlers.NewAdmin(service)
	healthHandler := handlers.NewHealth(primary, fallback)

	e.GET("/health", healthHandler.Check)

	a := e.Group("/auth")
	a.POST("/login", authHandler.Login)
	a.POST("/signup", authHandler.Signup)
	a.POST("/logout", authHandler.Logout)
	a.GET("/me", authHandler.Me)
	a.POST("/forgot", authHandler.Forgot)
	a.POST("/reset", authHandler.Reset)

	e.GET("/admin/admin-exists", adminHandler.AdminExists)
}

func startWithGracefulShutdown(ctx context.Context, e *echo.Echo, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

	go func() {
		slog.Info("server running", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
