package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	activitydomain "github.com/EMe-U/plotsure/internal/activity/domain"
	"github.com/EMe-U/plotsure/internal/auth"
	"github.com/EMe-U/plotsure/internal/platform/logger"
	"github.com/EMe-U/plotsure/internal/platform/metrics"
	"github.com/EMe-U/plotsure/internal/user/domain"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	Generate(user *domain.User) (string, time.Time, error)
}

// TokenRevoker deny-lists a token id until its expiry. SuspendUser
// invalidates every token already issued to a user until RestoreUser.
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	SuspendUser(ctx context.Context, userID string) error
	RestoreUser(ctx context.Context, userID string) error
}

// EventPublisher publishes domain events.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
}

// ActivityRecorder stores activity log entries. Failures are handled by the recorder.
type ActivityRecorder interface {
	Record(ctx context.Context, entry activitydomain.Entry)
}

// WelcomeMailer sends the greeting mail after registration.
type WelcomeMailer interface {
	SendWelcomeEmail(toEmail, name string) error
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
	Role     domain.Role
}

type LoginInput struct {
	Email    string
	Password string
	TOTPCode string
}

type UpdateProfileInput struct {
	Name  *string
	Phone *string
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *domain.User `json:"user"`
}

// DefaultAccount is an account created at start-up when missing.
type DefaultAccount struct {
	Name     string
	Email    string
	Password string
	Role     domain.Role
}

// DefaultAccounts are the seed users of a fresh installation.
var DefaultAccounts = []DefaultAccount{
	{Name: "System Administrator", Email: "admin@plotsure.com", Password: "admin123", Role: domain.RoleAdmin},
	{Name: "Default Broker", Email: "broker@plotsure.com", Password: "password123", Role: domain.RoleBroker},
}

type UserUsecase struct {
	repo      domain.UserRepository
	tokens    TokenIssuer
	revoker   TokenRevoker
	publisher EventPublisher
	activity  ActivityRecorder
	mailer    WelcomeMailer
	metrics   *metrics.MetricsManager
	logger    *logger.Logger
	hashCost  int
	now       func() time.Time
}

func NewUserUsecase(
	repo domain.UserRepository,
	tokens TokenIssuer,
	revoker TokenRevoker,
	publisher EventPublisher,
	activity ActivityRecorder,
	mailer WelcomeMailer,
	mm *metrics.MetricsManager,
	log *logger.Logger,
) *UserUsecase {
	return &UserUsecase{
		repo:      repo,
		tokens:    tokens,
		revoker:   revoker,
		publisher: publisher,
		activity:  activity,
		mailer:    mailer,
		metrics:   mm,
		logger:    log.Named("UserUsecase"),
		hashCost:  bcrypt.DefaultCost,
		now:       time.Now,
	}
}

func (uc *UserUsecase) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = domain.NormalizeEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)

	if n := utf8.RuneCountInString(in.Name); n < 2 || n > 100 {
		return nil, fmt.Errorf("%w: name must be between 2 and 100 characters", domain.ErrInvalidInput)
	}
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		return nil, fmt.Errorf("%w: a valid email is required", domain.ErrInvalidInput)
	}
	if len(in.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, minPasswordLength)
	}

	role := in.Role
	if role == "" {
		role = domain.RoleBroker
	}
	if !role.IsValid() {
		return nil, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, role)
	}
	if role == domain.RoleAdmin && !auth.IdentityFromContext(ctx).IsAdmin() {
		uc.logger.Warn("Self-registration as admin rejected", zap.String("email", in.Email))
		return nil, fmt.Errorf("%w: only an admin can create admin accounts", domain.ErrForbidden)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), uc.hashCost)
	if err != nil {
		uc.logger.Error("Failed to hash password", zap.Error(err))
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := uc.now().UTC()
	user := &domain.User{
		Name:         in.Name,
		Email:        in.Email,
		Phone:        in.Phone,
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.repo.Create(ctx, user); err != nil {
		if !errors.Is(err, domain.ErrDuplicateEmail) {
			uc.logger.Error("Failed to create user", zap.String("email", in.Email), zap.Error(err))
		}
		return nil, err
	}
	uc.logger.Info("User registered", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))

	token, expiresAt, err := uc.tokens.Generate(user)
	if err != nil {
		uc.logger.Error("Failed to issue token after registration", zap.String("user_id", user.ID), zap.Error(err))
		return nil, err
	}

	event := domain.UserRegisteredEvent{UserID: user.ID, Email: user.Email, Role: user.Role, RegisteredAt: now}
	if err := uc.publisher.Publish(ctx, domain.SubjectUserRegistered, event); err != nil {
		uc.logger.Warn("Failed to publish user registered event", zap.String("user_id", user.ID), zap.Error(err))
	}
	if uc.mailer != nil {
		if err := uc.mailer.SendWelcomeEmail(user.Email, user.Name); err != nil {
			uc.logger.Warn("Failed to send welcome email", zap.String("user_id", user.ID), zap.Error(err))
		}
	}
	uc.activity.Record(ctx, activitydomain.Entry{
		Actor:    identityOf(user),
		Action:   activitydomain.ActionRegister,
		Entity:   activitydomain.EntityUser,
		EntityID: user.ID,
		Details:  map[string]interface{}{"role": string(user.Role)},
	})

	return &AuthResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func (uc *UserUsecase) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	email := domain.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", domain.ErrInvalidInput)
	}

	user, err := uc.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			uc.loginFailed(ctx, nil, email, "unknown_email")
			return nil, domain.ErrInvalidCredentials
		}
		uc.logger.Error("Failed to load user for login", zap.String("email", email), zap.Error(err))
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		uc.loginFailed(ctx, user, email, "wrong_password")
		return nil, domain.ErrInvalidCredentials
	}
	if !user.IsActive {
		uc.loginFailed(ctx, user, email, "inactive")
		return nil, domain.ErrInactive
	}

	if user.TwoFactorEnabled {
		if strings.TrimSpace(in.TOTPCode) == "" {
			uc.observeLogin("two_factor_required")
			return nil, domain.ErrTwoFactorRequired
		}
		ok, err := verifySecondFactor(ctx, uc.repo, user, in.TOTPCode, uc.now())
		if err != nil {
			uc.logger.Error("Failed to verify second factor", zap.String("user_id", user.ID), zap.Error(err))
			return nil, err
		}
		if !ok {
			uc.loginFailed(ctx, user, email, "invalid_totp")
			return nil, domain.ErrInvalidTOTP
		}
	}

	now := uc.now().UTC()
	if err := uc.repo.TouchLastLogin(ctx, user.ID, now); err != nil {
		uc.logger.Warn("Failed to update last login", zap.String("user_id", user.ID), zap.Error(err))
	} else {
		user.LastLogin = &now
	}

	token, expiresAt, err := uc.tokens.Generate(user)
	if err != nil {
		uc.logger.Error("Failed to issue token", zap.String("user_id", user.ID), zap.Error(err))
		return nil, err
	}

	uc.observeLogin("success")
	uc.activity.Record(ctx, activitydomain.Entry{
		Actor:    identityOf(user),
		Action:   activitydomain.ActionLogin,
		Entity:   activitydomain.EntityUser,
		EntityID: user.ID,
	})
	uc.logger.Info("User logged in", zap.String("user_id", user.ID))
	return &AuthResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func (uc *UserUsecase) loginFailed(ctx context.Context, user *domain.User, email, reason string) {
	uc.observeLogin(reason)
	uc.logger.Info("Login rejected", zap.String("email", email), zap.String("reason", reason))

	entry := activitydomain.Entry{
		Action:  activitydomain.ActionLoginFailed,
		Entity:  activitydomain.EntityUser,
		Details: map[string]interface{}{"email": email, "reason": reason},
	}
	if user != nil {
		entry.Actor = identityOf(user)
		entry.EntityID = user.ID
	}
	uc.activity.Record(ctx, entry)
}

func (uc *UserUsecase) observeLogin(outcome string) {
	if uc.metrics != nil {
		uc.metrics.LoginsTotal.WithLabelValues(outcome).Inc()
	}
}

// Logout deny-lists the caller's current token until it expires.
func (uc *UserUsecase) Logout(ctx context.Context, actor *auth.Identity, tokenExpiry time.Time) error {
	if actor == nil || actor.TokenID == "" {
		return fmt.Errorf("%w: no active session", domain.ErrInvalidInput)
	}
	if err := uc.revoker.Revoke(ctx, actor.TokenID, tokenExpiry); err != nil {
		uc.logger.Error("Failed to revoke token", zap.String("user_id", actor.UserID), zap.Error(err))
		return err
	}
	uc.activity.Record(ctx, activitydomain.Entry{
		Actor:    actor,
		Action:   activitydomain.ActionLogout,
		Entity:   activitydomain.EntityUser,
		EntityID: actor.UserID,
	})
	return nil
}

func (uc *UserUsecase) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := uc.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrInactive
	}
	return user, nil
}

func (uc *UserUsecase) UpdateProfile(ctx context.Context, actor *auth.Identity, in UpdateProfileInput) (*domain.User, error) {
	user, err := uc.GetProfile(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	changed := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if n := utf8.RuneCountInString(name); n < 2 || n > 100 {
			return nil, fmt.Errorf("%w: name must be between 2 and 100 characters", domain.ErrInvalidInput)
		}
		user.Name = name
		changed["name"] = name
	}
	if in.Phone != nil {
		user.Phone = strings.TrimSpace(*in.Phone)
		changed["phone"] = user.Phone
	}
	if len(changed) == 0 {
		return user, nil
	}

	user.UpdatedAt = uc.now().UTC()
	if err := uc.repo.Update(ctx, user); err != nil {
		uc.logger.Error("Failed to update profile", zap.String("user_id", user.ID), zap.Error(err))
		return nil, err
	}
	uc.activity.Record(ctx, activitydomain.Entry{
		Actor:    actor,
		Action:   activitydomain.ActionUpdateProfile,
		Entity:   activitydomain.EntityUser,
		EntityID: user.ID,
		Details:  changed,
	})
	return user, nil
}

func (uc *UserUsecase) ChangePassword(ctx context.Context, actor *auth.Identity, current, next, confirm string) error {
	if len(next) < minPasswordLength {
		return fmt.Errorf("%w: new password must be at least %d characters", domain.ErrInvalidInput, minPasswordLength)
	}
	if next != confirm {
		return fmt.Errorf("%w: password confirmation does not match", domain.ErrInvalidInput)
	}

	user, err := uc.GetProfile(ctx, actor.UserID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return domain.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), uc.hashCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := uc.repo.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		uc.logger.Error("Failed to update password", zap.String("user_id", user.ID), zap.Error(err))
		return err
	}
	uc.activity.Record(ctx, activitydomain.Entry{
		Actor:    actor,
		Action:   activitydomain.ActionChangePassword,
		Entity:   activitydomain.EntityUser,
		EntityID: user.ID,
	})
	return nil
}

// ListUsers is admin only.
func (uc *UserUsecase) ListUsers(ctx context.Context, actor *auth.Identity, filter domain.UserFilter) ([]*domain.User, int64, error) {
	if !actor.IsAdmin() {
		return nil, 0, domain.ErrForbidden
	}
	if filter.Role != "" && !filter.Role.IsValid() {
		return nil, 0, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, filter.Role)
	}
	return uc.repo.List(ctx, filter)
}

// SetUserActive activates or deactivates an account. Admins cannot deactivate themselves.
func (uc *UserUsecase) SetUserActive(ctx context.Context, actor *auth.Identity, userID string, active bool) (*domain.User, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	if !active && actor.UserID == userID {
		return nil, fmt.Errorf("%w: you cannot deactivate your own account", domain.ErrInvalidInput)
	}

	user, err := uc.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !active {
		if err := uc.revoker.SuspendUser(ctx, userID); err != nil {
			uc.logger.Error("Failed to suspend user tokens", zap.String("user_id", userID), zap.Error(err))
			return nil, err
		}
	}
	if err := uc.repo.SetActive(ctx, userID, active); err != nil {
		uc.logger.Error("Failed to change account state", zap.String("user_id", userID), zap.Bool("active", active), zap.Error(err))
		return nil, err
	}
	if active {
		if err := uc.revoker.RestoreUser(ctx, userID); err != nil {
			uc.logger.Error("Failed to restore user tokens", zap.String("user_id", userID), zap.Error(err))
			return nil, err
		}
	}
	user.IsActive = active

	action := activitydomain.ActionDeactivateUser
	if active {
		action = activitydomain.ActionActivateUser
	}
	uc.activity.Record(ctx, activitydomain.Entry{
		Actor:    actor,
		Action:   action,
		Entity:   activitydomain.EntityUser,
		EntityID: userID,
		Details:  map[string]interface{}{"email": user.Email},
	})
	uc.logger.Info("Account state changed", zap.String("user_id", userID), zap.Bool("active", active), zap.String("by", actor.UserID))
	return user, nil
}

// RoleCounts summarizes accounts for the admin dashboard.
func (uc *UserUsecase) RoleCounts(ctx context.Context) (*domain.RoleCounts, error) {
	return uc.repo.CountByRole(ctx)
}

// EnsureDefaultUsers creates the seed accounts that do not exist yet.
func (uc *UserUsecase) EnsureDefaultUsers(ctx context.Context, accounts []DefaultAccount) error {
	for _, acc := range accounts {
		_, err := uc.repo.GetByEmail(ctx, domain.NormalizeEmail(acc.Email))
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("look up seed user %s: %w", acc.Email, err)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(acc.Password), uc.hashCost)
		if err != nil {
			return fmt.Errorf("hash seed password: %w", err)
		}
		now := uc.now().UTC()
		user := &domain.User{
			Name:         acc.Name,
			Email:        domain.NormalizeEmail(acc.Email),
			PasswordHash: string(hash),
			Role:         acc.Role,
			IsActive:     true,
			IsVerified:   true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := uc.repo.Create(ctx, user); err != nil && !errors.Is(err, domain.ErrDuplicateEmail) {
			return fmt.Errorf("create seed user %s: %w", acc.Email, err)
		}
		uc.logger.Info("Seed user created", zap.String("email", user.Email), zap.String("role", string(user.Role)))
	}
	return nil
}

func identityOf(u *domain.User) *auth.Identity {
	return &auth.Identity{UserID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}
