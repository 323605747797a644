// Package response writes the JSON envelopes shared by handlers and middleware.
package response

import (
	"encoding/json"
	"net/http"
)

const (
	CodeInvalidPayload       = "invalid_payload"
	CodeValidation           = "validation_error"
	CodeUnauthorized         = "unauthorized"
	CodeTokenExpired         = "token_expired"
	CodeInvalidCredentials   = "invalid_credentials"
	CodeTwoFactorRequired    = "two_factor_required"
	CodeInvalidTOTP          = "invalid_totp"
	CodeAccountInactive      = "account_inactive"
	CodeForbidden            = "forbidden"
	CodeNotFound             = "not_found"
	CodeConflict             = "conflict"
	CodePayloadTooLarge      = "payload_too_large"
	CodeUnsupportedMediaType = "unsupported_media_type"
	CodeRateLimitExceeded    = "rate_limit_exceeded"
	CodeServiceUnavailable   = "service_unavailable"
	CodeInternal             = "internal_server_error"
)

type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type ErrorBody struct {
	Success bool              `json:"success"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
	Data    interface{}       `json:"data,omitempty"`
}

// Pagination is the page metadata of list responses.
type Pagination struct {
	CurrentPage  int   `json:"current_page"`
	TotalPages   int   `json:"total_pages"`
	TotalItems   int64 `json:"total_items"`
	ItemsPerPage int   `json:"items_per_page"`
	HasNextPage  bool  `json:"has_next_page"`
	HasPrevPage  bool  `json:"has_prev_page"`
}

func NewPagination(page, limit int, total int64) Pagination {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{
		CurrentPage:  page,
		TotalPages:   pages,
		TotalItems:   total,
		ItemsPerPage: limit,
		HasNextPage:  page < pages,
		HasPrevPage:  page > 1,
	}
}

// JSON writes a success envelope.
func JSON(w http.ResponseWriter, status int, message string, data interface{}) {
	write(w, status, Envelope{Success: true, Message: message, Data: data})
}

// Error writes an error envelope. fields may be nil.
func Error(w http.ResponseWriter, status int, code, message string, fields map[string]string) {
	write(w, status, ErrorBody{Code: code, Message: message, Errors: fields})
}

// ErrorWithData writes an error envelope that also carries data for the client.
func ErrorWithData(w http.ResponseWriter, status int, code, message string, data interface{}) {
	write(w, status, ErrorBody{Code: code, Message: message, Data: data})
}

func write(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
