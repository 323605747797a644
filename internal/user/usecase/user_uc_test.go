package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	activitydomain "github.com/EMe-U/plotsure/internal/activity/domain"
	"github.com/EMe-U/plotsure/internal/auth"
	"github.com/EMe-U/plotsure/internal/platform/logger"
	"github.com/EMe-U/plotsure/internal/platform/metrics"
	"github.com/EMe-U/plotsure/internal/user/domain"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type userFixture struct {
	repo      *MockUserRepository
	tokens    *MockTokenIssuer
	revoker   *MockTokenRevoker
	publisher *MockEventPublisher
	activity  *MockActivityRecorder
	mailer    *MockWelcomeMailer
	uc        *UserUsecase
}

func newUserFixture() *userFixture {
	f := &userFixture{
		repo:      new(MockUserRepository),
		tokens:    new(MockTokenIssuer),
		revoker:   new(MockTokenRevoker),
		publisher: new(MockEventPublisher),
		activity:  new(MockActivityRecorder),
		mailer:    new(MockWelcomeMailer),
	}
	f.uc = NewUserUsecase(f.repo, f.tokens, f.revoker, f.publisher, f.activity, f.mailer, metrics.NewMetricsManager("plotsure_test"), logger.NewNop())
	f.uc.hashCost = bcrypt.MinCost
	return f
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestUserUsecase_Register(t *testing.T) {
	ctx := context.Background()
	expires := time.Now().Add(time.Hour)

	t.Run("Success", func(t *testing.T) {
		f := newUserFixture()
		f.repo.On("Create", ctx, mock.AnythingOfType("*domain.User")).Run(func(args mock.Arguments) {
			args.Get(1).(*domain.User).ID = "u1"
		}).Return(nil).Once()
		f.tokens.On("Generate", mock.AnythingOfType("*domain.User")).Return("tok", expires, nil).Once()
		f.publisher.On("Publish", ctx, domain.SubjectUserRegistered, mock.Anything).Return(nil).Once()
		f.mailer.On("SendWelcomeEmail", "jane@example.com", "Jane Broker").Return(nil).Once()
		f.activity.On("Record", ctx, actionIs(activitydomain.ActionRegister)).Once()

		res, err := f.uc.Register(ctx, RegisterInput{Name: " Jane Broker ", Email: "Jane@Example.com", Password: "secret1"})
		require.NoError(t, err)

		assert.Equal(t, "tok", res.Token)
		assert.Equal(t, "jane@example.com", res.User.Email)
		assert.Equal(t, domain.RoleBroker, res.User.Role)
		assert.True(t, res.User.IsActive)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(res.User.PasswordHash), []byte("secret1")))
		f.repo.AssertExpectations(t)
		f.publisher.AssertExpectations(t)
		f.mailer.AssertExpectations(t)
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		f := newUserFixture()
		f.repo.On("Create", ctx, mock.Anything).Return(domain.ErrDuplicateEmail).Once()

		_, err := f.uc.Register(ctx, RegisterInput{Name: "Jane", Email: "jane@example.com", Password: "secret1"})
		assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
		f.tokens.AssertNotCalled(t, "Generate", mock.Anything)
	})

	t.Run("ShortPassword", func(t *testing.T) {
		f := newUserFixture()
		_, err := f.uc.Register(ctx, RegisterInput{Name: "Jane", Email: "jane@example.com", Password: "123"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("SelfRegisterAsAdminForbidden", func(t *testing.T) {
		f := newUserFixture()
		_, err := f.uc.Register(ctx, RegisterInput{Name: "Eve", Email: "eve@example.com", Password: "secret1", Role: domain.RoleAdmin})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("PublishFailureDoesNotFailRegistration", func(t *testing.T) {
		f := newUserFixture()
		f.repo.On("Create", ctx, mock.Anything).Return(nil).Once()
		f.tokens.On("Generate", mock.Anything).Return("tok", expires, nil).Once()
		f.publisher.On("Publish", ctx, domain.SubjectUserRegistered, mock.Anything).Return(assert.AnError).Once()
		f.mailer.On("SendWelcomeEmail", mock.Anything, mock.Anything).Return(assert.AnError).Once()
		f.activity.On("Record", ctx, mock.Anything).Once()

		res, err := f.uc.Register(ctx, RegisterInput{Name: "Jane", Email: "jane@example.com", Password: "secret1"})
		require.NoError(t, err)
		assert.Equal(t, "tok", res.Token)
	})
}

func TestUserUsecase_Login(t *testing.T) {
	ctx := context.Background()
	expires := time.Now().Add(time.Hour)

	activeUser := func(t *testing.T) *domain.User {
		return &domain.User{ID: "u1", Name: "Admin", Email: "admin@plotsure.com", Role: domain.RoleAdmin, IsActive: true, PasswordHash: hashed(t, "admin123")}
	}

	t.Run("CorrectCredentialsReturnToken", func(t *testing.T) {
		f := newUserFixture()
		f.repo.On("GetByEmail", ctx, "admin@plotsure.com").Return(activeUser(t), nil).Once()
		f.repo.On("TouchLastLogin", ctx, "u1", mock.AnythingOfType("time.Time")).Return(nil).Once()
		f.tokens.On("Generate", mock.AnythingOfType("*domain.User")).Return("tok", expires, nil).Once()
		f.activity.On("Record", ctx, actionIs(activitydomain.ActionLogin)).Once()

		res, err := f.uc.Login(ctx, LoginInput{Email: "ADMIN@plotsure.com", Password: "admin123"})
		require.NoError(t, err)
		assert.Equal(t, "tok", res.Token)
		assert.NotNil(t, res.User.LastLogin)
		f.activity.AssertExpectations(t)
	})

	t.Run("WrongPasswordRejected", func(t *testing.T) {
		f := newUserFixture()
		f.repo.On("GetByEmail", ctx, "admin@plotsure.com").Return(activeUser(t), nil).Once()
		f.activity.On("Record", ctx, actionIs(activitydomain.ActionLoginFailed)).Once()

		_, err := f.uc.Login(ctx, LoginInput{Email: "admin@plotsure.com", Password: "nope"})
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
		f.tokens.AssertNotCalled(t, "Generate", mock.Anything)
	})

	t.Run("UnknownEmailRejected", func(t *testing.T) {
		f := newUserFixture()
		f.repo.On("GetByEmail", ctx, "ghost@plotsure.com").Return(nil, domain.ErrNotFound).Once()
		f.activity.On("Record", ctx, actionIs(activitydomain.ActionLoginFailed)).Once()

		_, err := f.uc.Login(ctx, LoginInput{Email: "ghost@plotsure.com", Password: "whatever"})
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	t.Run("InactiveAccount", func(t *testing.T) {
		f := newUserFixture()
		u := activeUser(t)
		u.IsActive = false
		f.repo.On("GetByEmail", ctx, "admin@plotsure.com").Return(u, nil).Once()
		f.activity.On("Record", ctx, actionIs(activitydomain.ActionLoginFailed)).Once()

		_, err := f.uc.Login(ctx, LoginInput{Email: "admin@plotsure.com", Password: "admin123"})
		assert.ErrorIs(t, err, domain.ErrInactive)
	})

	t.Run("TwoFactorCodeRequired", func(t *testing.T) {
		f := newUserFixture()
		u := activeUser(t)
		key, err := totp.Generate(totp.GenerateOpts{Issuer: "PlotSure Connect", AccountName: u.Email})
		require.NoError(t, err)
		u.TwoFactorEnabled = true
		u.TwoFactorSecret = key.Secret()
		f.repo.On("GetByEmail", ctx, "admin@plotsure.com").Return(u, nil).Once()

		_, err = f.uc.Login(ctx, LoginInput{Email: "admin@plotsure.com", Password: "admin123"})
		assert.ErrorIs(t, err, domain.ErrTwoFactorRequired)
	})

	t.Run("TwoFactorWithValidCode", func(t *testing.T) {
		f := newUserFixture()
		u := activeUser(t)
		key, err := totp.Generate(totp.GenerateOpts{Issuer: "PlotSure Connect", AccountName: u.Email})
		require.NoError(t, err)
		u.TwoFactorEnabled = true
		u.TwoFactorSecret = key.Secret()
		code, err := totp.GenerateCode(key.Secret(), time.Now())
		require.NoError(t, err)

		f.repo.On("GetByEmail", ctx, "admin@plotsure.com").Return(u, nil).Once()
		f.repo.On("TouchLastLogin", ctx, "u1", mock.Anything).Return(nil).Once()
		f.tokens.On("Generate", mock.Anything).Return("tok", expires, nil).Once()
		f.activity.On("Record", ctx, actionIs(activitydomain.ActionLogin)).Once()

		res, err := f.uc.Login(ctx, LoginInput{Email: "admin@plotsure.com", Password: "admin123", TOTPCode: code})
		require.NoError(t, err)
		assert.Equal(t, "tok", res.Token)
	})

	t.Run("BackupCodeIsConsumed", func(t *testing.T) {
		f := newUserFixture()
		u := activeUser(t)
		key, err := totp.Generate(totp.GenerateOpts{Issuer: "PlotSure Connect", AccountName: u.Email})
		require.NoError(t, err)
		backupHash := hashed(t, "ABCD1234")
		u.TwoFactorEnabled = true
		u.TwoFactorSecret = key.Secret()
		u.BackupCodes = []string{hashed(t, "FFFF0000"), backupHash}

		f.repo.On("GetByEmail", ctx, "admin@plotsure.com").Return(u, nil).Twice()
		f.repo.On("ConsumeBackupCode", ctx, "u1", backupHash).Return(true, nil).Once()
		f.repo.On("TouchLastLogin", ctx, "u1", mock.Anything).Return(nil).Once()
		f.tokens.On("Generate", mock.Anything).Return("tok", expires, nil).Once()
		f.activity.On("Record", ctx, actionIs(activitydomain.ActionLogin)).Once()

		_, err = f.uc.Login(ctx, LoginInput{Email: "admin@plotsure.com", Password: "admin123", TOTPCode: "abcd1234"})
		require.NoError(t, err)

		// second use: the repository reports the hash is already gone
		f.repo.On("ConsumeBackupCode", ctx, "u1", backupHash).Return(false, nil).Once()
		f.activity.On("Record", ctx, actionIs(activitydomain.ActionLoginFailed)).Once()

		_, err = f.uc.Login(ctx, LoginInput{Email: "admin@plotsure.com", Password: "admin123", TOTPCode: "ABCD1234"})
		assert.ErrorIs(t, err, domain.ErrInvalidTOTP)
		f.repo.AssertExpectations(t)
	})
}

func TestUserUsecase_ChangePassword(t *testing.T) {
	ctx := context.Background()
	actor := &auth.Identity{UserID: "u1", Role: domain.RoleBroker}

	t.Run("ConfirmationMismatch", func(t *testing.T) {
		f := newUserFixture()
		err := f.uc.ChangePassword(ctx, actor, "old-pass", "new-pass", "other-pass")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("WrongCurrentPassword", func(t *testing.T) {
		f := newUserFixture()
		f.repo.On("GetByID", ctx, "u1").Return(&domain.User{ID: "u1", IsActive: true, PasswordHash: hashed(t, "old-pass")}, nil).Once()

		err := f.uc.ChangePassword(ctx, actor, "bad-pass", "new-pass", "new-pass")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	t.Run("Success", func(t *testing.T) {
		f := newUserFixture()
		f.repo.On("GetByID", ctx, "u1").Return(&domain.User{ID: "u1", IsActive: true, PasswordHash: hashed(t, "old-pass")}, nil).Once()
		f.repo.On("UpdatePassword", ctx, "u1", mock.MatchedBy(func(h string) bool {
			return bcrypt.CompareHashAndPassword([]byte(h), []byte("new-pass")) == nil
		})).Return(nil).Once()
		f.activity.On("Record", ctx, actionIs(activitydomain.ActionChangePassword)).Once()

		require.NoError(t, f.uc.ChangePassword(ctx, actor, "old-pass", "new-pass", "new-pass"))
		f.repo.AssertExpectations(t)
	})
}

func TestUserUsecase_SetUserActive(t *testing.T) {
	ctx := context.Background()
	admin := &auth.Identity{UserID: "admin1", Role: domain.RoleAdmin}

	t.Run("BrokerForbidden", func(t *testing.T) {
		f := newUserFixture()
		_, err := f.uc.SetUserActive(ctx, &auth.Identity{UserID: "b1", Role: domain.RoleBroker}, "u2", false)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("CannotDeactivateSelf", func(t *testing.T) {
		f := newUserFixture()
		_, err := f.uc.SetUserActive(ctx, admin, "admin1", false)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("Deactivate", func(t *testing.T) {
		f := newUserFixture()
		f.repo.On("GetByID", ctx, "u2").Return(&domain.User{ID: "u2", Email: "b@x.com", IsActive: true}, nil).Once()
		f.revoker.On("SuspendUser", ctx, "u2").Return(nil).Once()
		f.repo.On("SetActive", ctx, "u2", false).Return(nil).Once()
		f.activity.On("Record", ctx, actionIs(activitydomain.ActionDeactivateUser)).Once()

		u, err := f.uc.SetUserActive(ctx, admin, "u2", false)
		require.NoError(t, err)
		assert.False(t, u.IsActive)
		f.repo.AssertExpectations(t)
		f.revoker.AssertExpectations(t)
	})

	t.Run("DeactivateKeepsAccountWhenTokensCannotBeSuspended", func(t *testing.T) {
		f := newUserFixture()
		f.repo.On("GetByID", ctx, "u2").Return(&domain.User{ID: "u2", Email: "b@x.com", IsActive: true}, nil).Once()
		f.revoker.On("SuspendUser", ctx, "u2").Return(errors.New("redis down")).Once()

		_, err := f.uc.SetUserActive(ctx, admin, "u2", false)
		require.Error(t, err)
		f.repo.AssertNotCalled(t, "SetActive", mock.Anything, mock.Anything, mock.Anything)
		f.activity.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	})

	t.Run("ActivateRestoresTokens", func(t *testing.T) {
		f := newUserFixture()
		f.repo.On("GetByID", ctx, "u2").Return(&domain.User{ID: "u2", Email: "b@x.com"}, nil).Once()
		f.repo.On("SetActive", ctx, "u2", true).Return(nil).Once()
		f.revoker.On("RestoreUser", ctx, "u2").Return(nil).Once()
		f.activity.On("Record", ctx, actionIs(activitydomain.ActionActivateUser)).Once()

		u, err := f.uc.SetUserActive(ctx, admin, "u2", true)
		require.NoError(t, err)
		assert.True(t, u.IsActive)
		f.revoker.AssertExpectations(t)
	})
}

func TestUserUsecase_Logout(t *testing.T) {
	ctx := context.Background()
	f := newUserFixture()
	actor := &auth.Identity{UserID: "u1", TokenID: "jti-1"}
	until := time.Now().Add(time.Hour)

	f.revoker.On("Revoke", ctx, "jti-1", until).Return(nil).Once()
	f.activity.On("Record", ctx, actionIs(activitydomain.ActionLogout)).Once()

	require.NoError(t, f.uc.Logout(ctx, actor, until))
	f.revoker.AssertExpectations(t)
}

func TestUserUsecase_EnsureDefaultUsers(t *testing.T) {
	ctx := context.Background()
	f := newUserFixture()

	f.repo.On("GetByEmail", ctx, "admin@plotsure.com").Return(&domain.User{ID: "existing"}, nil).Once()
	f.repo.On("GetByEmail", ctx, "broker@plotsure.com").Return(nil, domain.ErrNotFound).Once()
	f.repo.On("Create", ctx, mock.MatchedBy(func(u *domain.User) bool {
		return u.Email == "broker@plotsure.com" && u.Role == domain.RoleBroker && u.IsActive
	})).Return(nil).Once()

	require.NoError(t, f.uc.EnsureDefaultUsers(ctx, DefaultAccounts))
	f.repo.AssertExpectations(t)
}
