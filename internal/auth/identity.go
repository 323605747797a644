// Package auth carries the authenticated caller and request metadata through a context.
package auth

import (
	"context"
	"time"

	userdomain "github.com/EMe-U/plotsure/internal/user/domain"
)

// Identity is the authenticated caller as read from a verified token.
type Identity struct {
	UserID    string
	Name      string
	Email     string
	Role      userdomain.Role
	TokenID   string
	ExpiresAt time.Time // expiry of the presented token
}

// IsAdmin reports whether the caller has the admin role.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == userdomain.RoleAdmin
}

// RequestMeta is the client information recorded in activity logs.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

type contextKey string

const (
	identityKey    = contextKey("identity")
	requestMetaKey = contextKey("request_meta")
)

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the caller, or nil for anonymous requests.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey).(*Identity)
	return id
}

// WithRequestMeta returns a copy of ctx carrying meta.
func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey, meta)
}

// RequestMetaFromContext returns the stored metadata or a zero value.
func RequestMetaFromContext(ctx context.Context) RequestMeta {
	meta, _ := ctx.Value(requestMetaKey).(RequestMeta)
	return meta
}
