package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/EMe-U/plotsure/internal/platform/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	revokedTokenPrefix  = "revoked-token:"
	suspendedUserPrefix = "suspended-user:"
)

// TokenDenylist remembers logged-out token ids until they expire, and
// deactivated accounts for as long as a token issued before the
// deactivation can still be valid.
type TokenDenylist struct {
	client     *redis.Client
	suspendFor time.Duration
	logger     *logger.Logger
	now        func() time.Time
}

func NewTokenDenylist(client *redis.Client, tokenTTL time.Duration, log *logger.Logger) *TokenDenylist {
	return &TokenDenylist{client: client, suspendFor: tokenTTL, logger: log.Named("TokenDenylist"), now: time.Now}
}

func (d *TokenDenylist) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	if tokenID == "" {
		return errors.New("token id is required")
	}
	ttl := until.Sub(d.now())
	if ttl <= 0 {
		return nil
	}
	if err := d.client.Set(ctx, revokedTokenPrefix+tokenID, 1, ttl).Err(); err != nil {
		return fmt.Errorf("redis set revoked token: %w", err)
	}
	d.logger.Debug("Token revoked", zap.String("jti", tokenID), zap.Duration("ttl", ttl))
	return nil
}

func (d *TokenDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := d.client.Exists(ctx, revokedTokenPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists revoked token: %w", err)
	}
	return n > 0, nil
}

func (d *TokenDenylist) SuspendUser(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.New("user id is required")
	}
	if err := d.client.Set(ctx, suspendedUserPrefix+userID, 1, d.suspendFor).Err(); err != nil {
		return fmt.Errorf("redis set suspended user: %w", err)
	}
	d.logger.Debug("User tokens suspended", zap.String("user_id", userID), zap.Duration("ttl", d.suspendFor))
	return nil
}

func (d *TokenDenylist) RestoreUser(ctx context.Context, userID string) error {
	if err := d.client.Del(ctx, suspendedUserPrefix+userID).Err(); err != nil {
		return fmt.Errorf("redis del suspended user: %w", err)
	}
	return nil
}

func (d *TokenDenylist) IsSuspended(ctx context.Context, userID string) (bool, error) {
	n, err := d.client.Exists(ctx, suspendedUserPrefix+userID).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists suspended user: %w", err)
	}
	return n > 0, nil
}
