// Copyright 2026 The Adscope Authors
// Licensed under the EUPL-1.2

// Package handlers maps the credential flows onto the HTTP surface.
package handlers

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/adscope/authcore/internal/models"
	"github.com/adscope/authcore/internal/repository"
	"github.com/adscope/authcore/internal/services/auth"
)

// errorResponse is the uniform error body. Codes are stable; messages are
// for humans.
type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

type userResponse struct {
	OK   bool               `json:"ok"`
	User *models.PublicUser `json:"user"`
}

func userBody(u *models.User) userResponse {
	if u == nil {
		return userResponse{OK: false, User: nil}
	}
	pub := u.Public()
	return userResponse{OK: true, User: &pub}
}

// writeFlowError maps service errors to their status codes. Anything
// unrecognized is a server error; details stay in the logs.
func writeFlowError(c echo.Context, err error) error {
	var rate *auth.RateLimitedError
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid_input"})
	case errors.Is(err, auth.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, errorResponse{Error: "invalid_credentials"})
	case errors.Is(err, auth.ErrDuplicateEmail):
		return c.JSON(http.StatusConflict, errorResponse{Error: "duplicate_email"})
	case errors.As(err, &rate):
		c.Response().Header().Set("Retry-After", retryAfterSeconds(rate.RetryAfter))
		return c.JSON(http.StatusTooManyRequests, errorResponse{Error: "rate_limited"})
	default:
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "server_error"})
	}
}

func retryAfterSeconds(d time.Duration) string {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// Health reports backend reachability for probes.
type Health struct {
	primary  repository.Store // nil when disabled
	fallback repository.Store
}

// NewHealth creates the health handler.
func NewHealth(primary, fallback repository.Store) *Health {
	return &Health{primary: primary, fallback: fallback}
}

// Check is GET /health.
func (h *Health) Check(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	body := map[string]any{"status": "ok"}

	if err := h.fallback.Ping(ctx); err != nil {
		body["status"] = "degraded"
		body["fallback"] = "unreachable"
	} else {
		body["fallback"] = "ok"
	}

	if h.primary != nil {
		if err := h.primary.Ping(ctx); err != nil {
			body["primary"] = "unreachable"
		} else {
			body["primary"] = "ok"
		}
	}

	return c.JSON(http.StatusOK, body)
}
