// Copyright 2026 The Adscope Authors
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/adscope/authcore/internal/services/auth"
	"github.com/adscope/authcore/internal/services/session"
)

// Auth contains the handlers for the credential endpoints.
type Auth struct {
	service *auth.Service
	issuer  *session.Issuer
}

// NewAuth creates the auth handlers.
func NewAuth(service *auth.Service, issuer *session.Issuer) *Auth {
	return &Auth{service: service, issuer: issuer}
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupRequest is the body of POST /auth/signup.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ForgotRequest is the body of POST /auth/forgot.
type ForgotRequest struct {
	Email string `json:"email"`
}

// ResetRequest is the body of POST /auth/reset.
type ResetRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (h *Auth) setSessionCookies(c echo.Context, sess *auth.Session) {
	c.SetCookie(h.issuer.Cookie(sess.Token))
	if sess.IsAdmin {
		c.SetCookie(h.issuer.AdminCookie())
	}
}

// Login is POST /auth/login.
func (h *Auth) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid_input"})
	}

	sess, err := h.service.Login(c.Request().Context(), c.RealIP(), req.Email, req.Password)
	if err != nil {
		return writeFlowError(c, err)
	}

	h.setSessionCookies(c, sess)
	return c.JSON(http.StatusOK, userBody(sess.User))
}

// Signup is POST /auth/signup.
func (h *Auth) Signup(c echo.Context) error {
	var req SignupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid_input"})
	}

	sess, err := h.service.Signup(c.Request().Context(), c.RealIP(), req.Name, req.Email, req.Password)
	if err != nil {
		return writeFlowError(c, err)
	}

	h.setSessionCookies(c, sess)
	return c.JSON(http.StatusCreated, userBody(sess.User))
}

// Logout is POST /auth/logout.
func (h *Auth) Logout(c echo.Context) error {
	if cookie, err := c.Cookie(h.issuer.Name()); err == nil && cookie.Value != "" {
		if err := h.service.Logout(c.Request().Context(), cookie.Value); err != nil {
			return writeFlowError(c, err)
		}
	}

	c.SetCookie(h.issuer.Expired())
	c.SetCookie(h.issuer.ExpiredAdmin())
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

// Me is GET /auth/me. "Not logged in" is a 200 with a null user, never an
// error status.
func (h *Auth) Me(c echo.Context) error {
	token := ""
	if cookie, err := c.Cookie(h.issuer.Name()); err == nil {
		token = cookie.Value
	}

	user, err := h.service.CurrentUser(c.Request().Context(), token)
	if err != nil {
		return writeFlowError(c, err)
	}

	return c.JSON(http.StatusOK, userBody(user))
}

// Forgot is POST /auth/forgot. The response never discloses whether the
// email is registered.
func (h *Auth) Forgot(c echo.Context) error {
	var req ForgotRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid_input"})
	}

	// The token goes to the delivery tier, never into this response.
	if _, err := h.service.ForgotPassword(c.Request().Context(), c.RealIP(), req.Email); err != nil {
		return writeFlowError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

// Reset is POST /auth/reset.
func (h *Auth) Reset(c echo.Context) error {
	var req ResetRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid_input"})
	}

	if err := h.service.ResetPassword(c.Request().Context(), req.Token, req.Password); err != nil {
		return writeFlowError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}
