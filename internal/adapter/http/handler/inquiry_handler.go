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

type InquiryService interface {
	Create(ctx context.Context, actor *auth.Identity, inquiry *domain.Inquiry) (*domain.Inquiry, error)
	List(ctx context.Context, actor *auth.Identity, filter domain.Filter) ([]*domain.Inquiry, int64, error)
	Stats(ctx context.Context, actor *auth.Identity) (*domain.Stats, error)
	Get(ctx context.Context, actor *auth.Identity, id string) (*domain.Inquiry, error)
	UpdateStatus(ctx context.Context, actor *auth.Identity, id string, status domain.Status, notes *string) (*domain.Inquiry, error)
	Convert(ctx context.Context, actor *auth.Identity, id string, value *float64) (*domain.Inquiry, error)
	Assign(ctx context.Context, actor *auth.Identity, id, userID string) (*domain.Inquiry, error)
	Delete(ctx context.Context, actor *auth.Identity, id string) error
}

type createInquiryRequest struct {
	ListingID     string `json:"listing_id"`
	InquirerName  string `json:"inquirer_name" validate:"required,min=2,max=100"`
	InquirerEmail string `json:"inquirer_email" validate:"required,email"`
	InquirerPhone string `json:"inquirer_phone" validate:"omitempty,phone"`
	InquiryType   string `json:"inquiry_type"`
	Priority      string `json:"priority" validate:"omitempty,oneof=low medium high"`
	Message       string `json:"message" validate:"required,min=10,max=2000"`
}

type inquiryStatusRequest struct {
	Status string  `json:"status" validate:"required"`
	Notes  *string `json:"notes" validate:"omitempty,max=2000"`
}

type convertInquiryRequest struct {
	ConversionValue *float64 `json:"conversion_value" validate:"omitempty,gte=0"`
}

type assignInquiryRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

type InquiryHandler struct {
	inquiries InquiryService
	logger    *logger.Logger
}

func NewInquiryHandler(inquiries InquiryService, log *logger.Logger) *InquiryHandler {
	return &InquiryHandler{inquiries: inquiries, logger: log.Named("InquiryHandler")}
}

func (h *InquiryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createInquiryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	inquiry, err := h.inquiries.Create(r.Context(), auth.IdentityFromContext(r.Context()), &domain.Inquiry{
		ListingID:     req.ListingID,
		InquirerName:  req.InquirerName,
		InquirerEmail: req.InquirerEmail,
		InquirerPhone: req.InquirerPhone,
		InquiryType:   domain.Type(req.InquiryType),
		Priority:      domain.Priority(req.Priority),
		Message:       req.Message,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusCreated, "Inquiry submitted successfully", map[string]interface{}{"inquiry": inquiry})
}

func (h *InquiryHandler) List(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	filter := domain.Filter{
		Status:      domain.Status(q.str("status")),
		Priority:    domain.Priority(q.str("priority")),
		ListingID:   q.str("listing_id"),
		InquiryType: domain.Type(q.str("inquiry_type")),
		Search:      q.str("search"),
		Page:        q.page(),
		Limit:       q.positiveInt("limit", domain.DefaultPageLimit),
	}
	if !q.ok(w) {
		return
	}

	inquiries, total, err := h.inquiries.List(r.Context(), auth.IdentityFromContext(r.Context()), filter)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if inquiries == nil {
		inquiries = []*domain.Inquiry{}
	}
	filter.Normalize()
	response.JSON(w, http.StatusOK, "", map[string]interface{}{
		"inquiries":  inquiries,
		"pagination": response.NewPagination(filter.Page, filter.Limit, total),
	})
}

func (h *InquiryHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.inquiries.Stats(r.Context(), auth.IdentityFromContext(r.Context()))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, "", map[string]interface{}{"stats": stats})
}

func (h *InquiryHandler) Get(w http.ResponseWriter, r *http.Request) {
	inquiry, err := h.inquiries.Get(r.Context(), auth.IdentityFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, "", map[string]interface{}{"inquiry": inquiry})
}

func (h *InquiryHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req inquiryStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	inquiry, err := h.inquiries.UpdateStatus(r.Context(), auth.IdentityFromContext(r.Context()),
		chi.URLParam(r, "id"), domain.Status(req.Status), req.Notes)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, "Inquiry status updated successfully", map[string]interface{}{"inquiry": inquiry})
}

func (h *InquiryHandler) Convert(w http.ResponseWriter, r *http.Request) {
	var req convertInquiryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	inquiry, err := h.inquiries.Convert(r.Context(), auth.IdentityFromContext(r.Context()), chi.URLParam(r, "id"), req.ConversionValue)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, "Inquiry marked as converted", map[string]interface{}{"inquiry": inquiry})
}

func (h *InquiryHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req assignInquiryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	inquiry, err := h.inquiries.Assign(r.Context(), auth.IdentityFromContext(r.Context()), chi.URLParam(r, "id"), req.UserID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, "Inquiry assigned successfully", map[string]interface{}{"inquiry": inquiry})
}

func (h *InquiryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.inquiries.Delete(r.Context(), auth.IdentityFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, "Inquiry deleted successfully", nil)
}
