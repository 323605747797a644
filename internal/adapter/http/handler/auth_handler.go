package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/EMe-U/plotsure/internal/adapter/http/response"
	"github.com/EMe-U/plotsure/internal/auth"
	"github.com/EMe-U/plotsure/internal/platform/logger"
	"github.com/EMe-U/plotsure/internal/user/domain"
	"github.com/EMe-U/plotsure/internal/user/usecase"
	"github.com/go-chi/chi/v5"
)

// UserService is the account usecase behind /api/auth.
type UserService interface {
	Register(ctx context.Context, in usecase.RegisterInput) (*usecase.AuthResult, error)
	Login(ctx context.Context, in usecase.LoginInput) (*usecase.AuthResult, error)
	Logout(ctx context.Context, actor *auth.Identity, tokenExpiry time.Time) error
	GetProfile(ctx context.Context, userID string) (*domain.User, error)
	UpdateProfile(ctx context.Context, actor *auth.Identity, in usecase.UpdateProfileInput) (*domain.User, error)
	ChangePassword(ctx context.Context, actor *auth.Identity, current, next, confirm string) error
	ListUsers(ctx context.Context, actor *auth.Identity, filter domain.UserFilter) ([]*domain.User, int64, error)
	SetUserActive(ctx context.Context, actor *auth.Identity, userID string, active bool) (*domain.User, error)
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Phone    string `json:"phone" validate:"omitempty,phone"`
	Role     string `json:"role" validate:"omitempty,oneof=admin broker user"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	TOTPCode string `json:"totp_code"`
}

type updateProfileRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=2,max=100"`
	Phone *string `json:"phone" validate:"omitempty,phone"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

type AuthHandler struct {
	users  UserService
	logger *logger.Logger
}

func NewAuthHandler(users UserService, log *logger.Logger) *AuthHandler {
	return &AuthHandler{users: users, logger: log.Named("AuthHandler")}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.users.Register(r.Context(), usecase.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		Role:     domain.Role(req.Role),
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusCreated, "User registered successfully", res)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.users.Login(r.Context(), usecase.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		TOTPCode: strings.TrimSpace(req.TOTPCode),
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, "Login successful", res)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	actor := auth.IdentityFromContext(r.Context())
	if err := h.users.Logout(r.Context(), actor, actor.ExpiresAt); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, "Logged out successfully", nil)
}

func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	actor := auth.IdentityFromContext(r.Context())
	user, err := h.users.GetProfile(r.Context(), actor.UserID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, "", map[string]interface{}{"user": user})
}

func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := h.users.UpdateProfile(r.Context(), auth.IdentityFromContext(r.Context()), usecase.UpdateProfileInput{
		Name:  req.Name,
		Phone: req.Phone,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, "Profile updated successfully", map[string]interface{}{"user": user})
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	err := h.users.ChangePassword(r.Context(), auth.IdentityFromContext(r.Context()),
		req.CurrentPassword, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, "Password changed successfully", nil)
}

// ListUsers serves the admin user table.
func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	filter := domain.UserFilter{
		Role:     domain.Role(q.str("role")),
		IsActive: q.bool("active"),
		Search:   q.str("search"),
		Page:     q.page(),
		Limit:    q.positiveInt("limit", 10),
	}
	if !q.ok(w) {
		return
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}

	users, total, err := h.users.ListUsers(r.Context(), auth.IdentityFromContext(r.Context()), filter)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, "", map[string]interface{}{
		"users":      users,
		"pagination": response.NewPagination(filter.Page, filter.Limit, total),
	})
}

func (h *AuthHandler) ActivateUser(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *AuthHandler) DeactivateUser(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *AuthHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	user, err := h.users.SetUserActive(r.Context(), auth.IdentityFromContext(r.Context()), chi.URLParam(r, "id"), active)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	msg := "User deactivated successfully"
	if active {
		msg = "User activated successfully"
	}
	response.JSON(w, http.StatusOK, msg, map[string]interface{}{"user": user})
}
