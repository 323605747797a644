package handler

import (
	"context"
	"net/http"

	"github.com/EMe-U/plotsure/internal/adapter/http/response"
	"github.com/EMe-U/plotsure/internal/auth"
	"github.com/EMe-U/plotsure/internal/inquiry/domain"
	"github.com/EMe-U/plotsure/internal/platform/logger"
	"github.com/go-chi/chi/v5"
)

type ContactService interface {
	Submit(ctx context.Context, actor *auth.Identity, contact *domain.Contact) (*domain.Contact, error)
	List(ctx context.Context, actor *auth.Identity, filter domain.ContactFilter) ([]*domain.Contact, int64, error)
	Stats(ctx context.Context, actor *auth.Identity) (*domain.ContactStats, error)
	UpdateStatus(ctx context.Context, actor *auth.Identity, id string, status domain.ContactStatus) (*domain.Contact, error)
}

type contactRequest struct {
	Name    string `json:"name" validate:"required,min=2,max=100"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"omitempty,phone"`
	Subject string `json:"subject"`
	Message string `json:"message" validate:"required,min=10,max=2000"`
}

type contactStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type ContactHandler struct {
	contacts ContactService
	logger   *logger.Logger
}

func NewContactHandler(contacts ContactService, log *logger.Logger) *ContactHandler {
	return &ContactHandler{contacts: contacts, logger: log.Named("ContactHandler")}
}

func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	contact, err := h.contacts.Submit(r.Context(), auth.IdentityFromContext(r.Context()), &domain.Contact{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Subject: domain.Subject(req.Subject),
		Message: req.Message,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusCreated, "Thank you for contacting us. We will get back to you soon.", map[string]interface{}{"contact": contact})
}

func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	filter := domain.ContactFilter{
		Status:  domain.ContactStatus(q.str("status")),
		Subject: domain.Subject(q.str("subject")),
		Search:  q.str("search"),
		Page:    q.page(),
		Limit:   q.positiveInt("limit", domain.DefaultPageLimit),
	}
	if !q.ok(w) {
		return
	}

	contacts, total, err := h.contacts.List(r.Context(), auth.IdentityFromContext(r.Context()), filter)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if contacts == nil {
		contacts = []*domain.Contact{}
	}
	filter.Normalize()
	response.JSON(w, http.StatusOK, "", map[string]interface{}{
		"contacts":   contacts,
		"pagination": response.NewPagination(filter.Page, filter.Limit, total),
	})
}

func (h *ContactHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.contacts.Stats(r.Context(), auth.IdentityFromContext(r.Context()))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, "", map[string]interface{}{"stats": stats})
}

func (h *ContactHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req contactStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	contact, err := h.contacts.UpdateStatus(r.Context(), auth.IdentityFromContext(r.Context()),
		chi.URLParam(r, "id"), domain.ContactStatus(req.Status))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, "Contact status updated successfully", map[string]interface{}{"contact": contact})
}
