package domain

import "errors"

var (
	ErrNotFound           = errors.New("user not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInactive           = errors.New("account is deactivated")
	ErrForbidden          = errors.New("not allowed to perform this action")
	ErrTwoFactorRequired  = errors.New("two-factor code required")
	ErrInvalidTOTP        = errors.New("invalid two-factor code")
	ErrTwoFactorNotSetUp  = errors.New("two-factor authentication is not set up")
)
