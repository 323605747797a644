package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/EMe-U/plotsure/internal/adapter/http/response"
	"github.com/EMe-U/plotsure/internal/auth"
	"github.com/EMe-U/plotsure/internal/auth/token"
	"github.com/EMe-U/plotsure/internal/platform/logger"
	userdomain "github.com/EMe-U/plotsure/internal/user/domain"
	"go.uber.org/zap"
)

// TokenParser verifies access tokens.
type TokenParser interface {
	Parse(tokenString string) (*token.Claims, error)
}

// RevocationChecker reports logged-out tokens and deactivated accounts.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	IsSuspended(ctx context.Context, userID string) (bool, error)
}

type Authenticator struct {
	parser  TokenParser
	revoked RevocationChecker
	logger  *logger.Logger
}

func NewAuthenticator(parser TokenParser, revoked RevocationChecker, log *logger.Logger) *Authenticator {
	return &Authenticator{parser: parser, revoked: revoked, logger: log.Named("AuthMiddleware")}
}

// Required rejects requests without a valid bearer token.
func (a *Authenticator) Required(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr := bearerToken(r)
		if tokenStr == "" {
			response.Error(w, http.StatusUnauthorized, response.CodeUnauthorized, "Access token required", nil)
			return
		}
		id, ok := a.authenticate(w, r, tokenStr)
		if !ok {
			return
		}
		next.ServeHTTP(w, withIdentity(r, id))
	})
}

// Optional lets anonymous requests through. A token that is present must be valid.
func (a *Authenticator) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr := bearerToken(r)
		if tokenStr == "" {
			next.ServeHTTP(w, r)
			return
		}
		id, ok := a.authenticate(w, r, tokenStr)
		if !ok {
			return
		}
		next.ServeHTTP(w, withIdentity(r, id))
	})
}

func (a *Authenticator) authenticate(w http.ResponseWriter, r *http.Request, tokenStr string) (*auth.Identity, bool) {
	claims, err := a.parser.Parse(tokenStr)
	if err != nil {
		if errors.Is(err, token.ErrExpiredToken) {
			response.Error(w, http.StatusUnauthorized, response.CodeTokenExpired, "Token expired", nil)
			return nil, false
		}
		a.logger.Debug("Rejected invalid token", zap.String("path", r.URL.Path), zap.Error(err))
		response.Error(w, http.StatusUnauthorized, response.CodeUnauthorized, "Invalid token", nil)
		return nil, false
	}

	if a.revoked != nil && claims.ID != "" {
		revoked, err := a.revoked.IsRevoked(r.Context(), claims.ID)
		if err != nil {
			a.logger.Warn("Token revocation check failed, accepting token", zap.String("user_id", claims.UserID), zap.Error(err))
		} else if revoked {
			response.Error(w, http.StatusUnauthorized, response.CodeUnauthorized, "Token has been revoked", nil)
			return nil, false
		}
	}
	if a.revoked != nil {
		suspended, err := a.revoked.IsSuspended(r.Context(), claims.UserID)
		if err != nil {
			a.logger.Warn("Account state check failed, accepting token", zap.String("user_id", claims.UserID), zap.Error(err))
		} else if suspended {
			response.Error(w, http.StatusForbidden, response.CodeAccountInactive, "Account is deactivated", nil)
			return nil, false
		}
	}
	return claims.Identity(), true
}

// identityHolder lets the access logger see who was authenticated further
// down the chain.
type identityHolder struct {
	id *auth.Identity
}

type holderKey struct{}

var identityHolderKey = holderKey{}

func withIdentity(r *http.Request, id *auth.Identity) *http.Request {
	if h, ok := r.Context().Value(identityHolderKey).(*identityHolder); ok {
		h.id = id
	}
	return r.WithContext(auth.WithIdentity(r.Context(), id))
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// RequireRole lets through authenticated callers holding one of roles.
func RequireRole(roles ...userdomain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := auth.IdentityFromContext(r.Context())
			if id == nil {
				response.Error(w, http.StatusUnauthorized, response.CodeUnauthorized, "Access token required", nil)
				return
			}
			for _, role := range roles {
				if id.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			response.Error(w, http.StatusForbidden, response.CodeForbidden, "Insufficient permissions", nil)
		})
	}
}
