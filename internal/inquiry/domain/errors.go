package domain

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrInquiryNotFound = errors.New("inquiry not found")
	ErrContactNotFound = errors.New("contact message not found")
	ErrListingNotFound = errors.New("listing not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrForbidden       = errors.New("not allowed to access this inquiry")
)

// ValidationError lists per-field problems. It matches ErrInvalidInput with errors.Is.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

func (e *ValidationError) FieldErrors() map[string]string { return e.Fields }
