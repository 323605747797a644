package handler

import (
	"context"
	"net/http"

	"github.com/EMe-U/plotsure/internal/adapter/http/response"
	"github.com/EMe-U/plotsure/internal/auth"
	"github.com/EMe-U/plotsure/internal/platform/logger"
	"github.com/EMe-U/plotsure/internal/user/usecase"
)

type TwoFactorService interface {
	Setup(ctx context.Context, actor *auth.Identity) (*usecase.TwoFactorSetup, error)
	Verify(ctx context.Context, actor *auth.Identity, code string) error
	Disable(ctx context.Context, actor *auth.Identity, code string) error
	Status(ctx context.Context, actor *auth.Identity) (*usecase.TwoFactorStatus, error)
}

type verifyTOTPRequest struct {
	Token string `json:"token" validate:"required,len=6,numeric"`
}

// disable also takes a backup code
type disableTOTPRequest struct {
	Token string `json:"token" validate:"required,min=6,max=16"`
}

type TwoFactorHandler struct {
	twoFactor TwoFactorService
	logger    *logger.Logger
}

func NewTwoFactorHandler(twoFactor TwoFactorService, log *logger.Logger) *TwoFactorHandler {
	return &TwoFactorHandler{twoFactor: twoFactor, logger: log.Named("TwoFactorHandler")}
}

func (h *TwoFactorHandler) Setup(w http.ResponseWriter, r *http.Request) {
	setup, err := h.twoFactor.Setup(r.Context(), auth.IdentityFromContext(r.Context()))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, "Scan the QR code and verify a code to enable two-factor authentication", setup)
}

func (h *TwoFactorHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyTOTPRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.twoFactor.Verify(r.Context(), auth.IdentityFromContext(r.Context()), req.Token); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, "Two-factor authentication verified", map[string]bool{"enabled": true})
}

func (h *TwoFactorHandler) Disable(w http.ResponseWriter, r *http.Request) {
	var req disableTOTPRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.twoFactor.Disable(r.Context(), auth.IdentityFromContext(r.Context()), req.Token); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, "Two-factor authentication disabled", map[string]bool{"enabled": false})
}

func (h *TwoFactorHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.twoFactor.Status(r.Context(), auth.IdentityFromContext(r.Context()))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, "", status)
}
