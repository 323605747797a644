// Package handler exposes the usecases over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	activitydomain "github.com/EMe-U/plotsure/internal/activity/domain"
	"github.com/EMe-U/plotsure/internal/adapter/http/response"
	inquirydomain "github.com/EMe-U/plotsure/internal/inquiry/domain"
	listingdomain "github.com/EMe-U/plotsure/internal/listing/domain"
	"github.com/EMe-U/plotsure/internal/platform/logger"
	"github.com/EMe-U/plotsure/internal/upload"
	userdomain "github.com/EMe-U/plotsure/internal/user/domain"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var phonePattern = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	return v
}

// fieldErrors turns validator failures into the per-field map of the error body.
func fieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = describe(fe)
	}
	return fields
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "phone":
		return "must be a valid phone number"
	case "min":
		if fe.Kind() == reflect.String {
			return "must be at least " + fe.Param() + " characters"
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return "must be at most " + fe.Param() + " characters"
		}
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "eqfield":
		return "must match " + fe.Param()
	case "len":
		return "must be exactly " + fe.Param() + " characters"
	case "numeric":
		return "must contain digits only"
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	}
	return "is invalid"
}

// fieldErrorer is implemented by the domain validation errors.
type fieldErrorer interface {
	FieldErrors() map[string]string
}

// decodeJSON reads the body into dst and runs struct validation. It writes
// the error response itself and reports whether the handler may continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			response.Error(w, http.StatusRequestEntityTooLarge, response.CodePayloadTooLarge, "Request body too large", nil)
		case errors.Is(err, io.EOF):
			response.Error(w, http.StatusBadRequest, response.CodeInvalidPayload, "Request body is empty", nil)
		default:
			response.Error(w, http.StatusBadRequest, response.CodeInvalidPayload, "Invalid request body", nil)
		}
		return false
	}
	return validateStruct(w, dst)
}

func validateStruct(w http.ResponseWriter, dst interface{}) bool {
	if err := validate.Struct(dst); err != nil {
		response.Error(w, http.StatusBadRequest, response.CodeValidation, "Validation failed", fieldErrors(err))
		return false
	}
	return true
}

// respondError maps usecase errors to status codes. Unknown errors are
// logged and hidden behind a generic 500.
func respondError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	var fe fieldErrorer
	var uploadErr *upload.Error

	switch {
	case errors.As(err, &fe):
		response.Error(w, http.StatusBadRequest, response.CodeValidation, "Validation failed", fe.FieldErrors())
	case errors.Is(err, userdomain.ErrTwoFactorRequired):
		response.ErrorWithData(w, http.StatusUnauthorized, response.CodeTwoFactorRequired,
			"Two-factor authentication code required", map[string]bool{"requires_2fa": true})
	case errors.Is(err, userdomain.ErrInvalidTOTP):
		response.Error(w, http.StatusUnauthorized, response.CodeInvalidTOTP, "Invalid two-factor code", nil)
	case errors.Is(err, userdomain.ErrInvalidCredentials):
		response.Error(w, http.StatusUnauthorized, response.CodeInvalidCredentials, "Invalid credentials", nil)
	case errors.Is(err, userdomain.ErrInactive):
		response.Error(w, http.StatusForbidden, response.CodeAccountInactive, "Account is deactivated", nil)
	case errors.Is(err, userdomain.ErrDuplicateEmail):
		response.Error(w, http.StatusConflict, response.CodeConflict, "User already exists with this email", nil)
	case errors.Is(err, userdomain.ErrTwoFactorNotSetUp):
		response.Error(w, http.StatusBadRequest, response.CodeValidation, "Two-factor authentication is not set up", nil)
	case errors.As(err, &uploadErr):
		respondUploadError(w, uploadErr)
	case errors.Is(err, userdomain.ErrForbidden),
		errors.Is(err, listingdomain.ErrForbidden),
		errors.Is(err, inquirydomain.ErrForbidden),
		errors.Is(err, activitydomain.ErrForbidden):
		response.Error(w, http.StatusForbidden, response.CodeForbidden, "Insufficient permissions", nil)
	case errors.Is(err, userdomain.ErrNotFound):
		response.Error(w, http.StatusNotFound, response.CodeNotFound, "User not found", nil)
	case errors.Is(err, listingdomain.ErrListingNotFound),
		errors.Is(err, inquirydomain.ErrListingNotFound):
		response.Error(w, http.StatusNotFound, response.CodeNotFound, "Listing not found", nil)
	case errors.Is(err, inquirydomain.ErrInquiryNotFound):
		response.Error(w, http.StatusNotFound, response.CodeNotFound, "Inquiry not found", nil)
	case errors.Is(err, inquirydomain.ErrContactNotFound):
		response.Error(w, http.StatusNotFound, response.CodeNotFound, "Contact message not found", nil)
	case errors.Is(err, upload.ErrObjectNotFound):
		response.Error(w, http.StatusNotFound, response.CodeNotFound, "File not found", nil)
	case errors.Is(err, userdomain.ErrInvalidInput),
		errors.Is(err, listingdomain.ErrInvalidInput),
		errors.Is(err, inquirydomain.ErrInvalidInput),
		errors.Is(err, activitydomain.ErrInvalidInput):
		response.Error(w, http.StatusBadRequest, response.CodeValidation, inputMessage(err), nil)
	default:
		log.Error("Unhandled error",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		response.Error(w, http.StatusInternalServerError, response.CodeInternal, "Internal server error", nil)
	}
}

func respondUploadError(w http.ResponseWriter, err *upload.Error) {
	msg := err.Error()
	switch {
	case errors.Is(err, upload.ErrFileTooLarge):
		response.Error(w, http.StatusRequestEntityTooLarge, response.CodePayloadTooLarge, msg, nil)
	case errors.Is(err, upload.ErrUnsupportedType):
		response.Error(w, http.StatusUnsupportedMediaType, response.CodeUnsupportedMediaType, msg, nil)
	default:
		response.Error(w, http.StatusBadRequest, response.CodeValidation, msg, nil)
	}
}

// inputMessage strips the sentinel prefix from "invalid input: detail".
func inputMessage(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, ": "); i >= 0 && strings.HasPrefix(msg, "invalid input") {
		return msg[i+2:]
	}
	return msg
}

// query reads typed query parameters and collects parse failures per field.
type query struct {
	values map[string][]string
	errs   map[string]string
}

func newQuery(r *http.Request) *query {
	return &query{values: r.URL.Query(), errs: map[string]string{}}
}

func (q *query) str(name string) string {
	if v, ok := q.values[name]; ok && len(v) > 0 {
		return strings.TrimSpace(v[0])
	}
	return ""
}

func (q *query) int(name string, fallback int) int {
	s := q.str(name)
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		q.errs[name] = "must be an integer"
		return fallback
	}
	return n
}

// maxPage bounds page so the storage skip (page-1)*limit cannot overflow.
const maxPage = 100000

// page reads the page number, 1 when absent.
func (q *query) page() int {
	n := q.page()
	if n > maxPage {
		q.errs["page"] = "must be at most " + strconv.Itoa(maxPage)
		return 1
	}
	return n
}

// positiveInt rejects values below 1.
func (q *query) positiveInt(name string, fallback int) int {
	n := q.int(name, fallback)
	if n < 1 {
		q.errs[name] = "must be at least 1"
		return fallback
	}
	return n
}

func (q *query) float(name string) *float64 {
	s := q.str(name)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		q.errs[name] = "must be a number"
		return nil
	}
	return &f
}

func (q *query) bool(name string) *bool {
	s := q.str(name)
	if s == "" {
		return nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		q.errs[name] = "must be true or false"
		return nil
	}
	return &b
}

// date accepts YYYY-MM-DD or RFC 3339. With endOfDay a bare date covers the whole day.
func (q *query) date(name string, endOfDay bool) *time.Time {
	s := q.str(name)
	if s == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		q.errs[name] = "must be YYYY-MM-DD or RFC 3339"
		return nil
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t
}

// ok writes a validation error when any parameter failed to parse.
func (q *query) ok(w http.ResponseWriter) bool {
	if len(q.errs) == 0 {
		return true
	}
	response.Error(w, http.StatusBadRequest, response.CodeValidation, "Invalid query parameters", q.errs)
	return false
}
