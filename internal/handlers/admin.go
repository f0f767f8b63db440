// Copyright 2026 The Adscope Authors
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/adscope/authcore/internal/services/auth"
)

// SetupSecretHeader carries the shared secret for the setup tooling.
const SetupSecretHeader = "X-Setup-Secret"

// Admin contains the setup tooling endpoints.
type Admin struct {
	service *auth.Service
}

// NewAdmin creates the admin handlers.
func NewAdmin(service *auth.Service) *Admin {
	return &Admin{service: service}
}

type adminExistsResponse struct {
	OK         bool   `json:"ok"`
	Configured bool   `json:"configured"`
	Exists     bool   `json:"exists"`
	Backend    string `json:"backend,omitempty"`
}

// AdminExists is GET /admin/admin-exists. Outside development the request
// must carry the shared setup secret.
func (h *Admin) AdminExists(c echo.Context) error {
	if !h.service.CheckAdminSecret(c.Request().Header.Get(SetupSecretHeader)) {
		return c.JSON(http.StatusForbidden, errorResponse{Error: "forbidden"})
	}

	status, err := h.service.AdminExists(c.Request().Context())
	if err != nil {
		return writeFlowError(c, err)
	}

	return c.JSON(http.StatusOK, adminExistsResponse{
		OK:         true,
		Configured: status.Configured,
		Exists:     status.Exists,
		Backend:    status.Backend,
	})
}
