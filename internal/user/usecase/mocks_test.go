package usecase

import (
	"context"
	"time"

	activitydomain "github.com/EMe-U/plotsure/internal/activity/domain"
	"github.com/EMe-U/plotsure/internal/user/domain"
	"github.com/stretchr/testify/mock"
)

type MockUserRepository struct{ mock.Mock }

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}
func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *MockUserRepository) Update(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}
func (m *MockUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}
func (m *MockUserRepository) SetActive(ctx context.Context, id string, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}
func (m *MockUserRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}
func (m *MockUserRepository) SetTwoFactor(ctx context.Context, id string, enabled bool, secret string, backupCodes []string) error {
	args := m.Called(ctx, id, enabled, secret, backupCodes)
	return args.Error(0)
}
func (m *MockUserRepository) ConsumeBackupCode(ctx context.Context, id, codeHash string) (bool, error) {
	args := m.Called(ctx, id, codeHash)
	return args.Bool(0), args.Error(1)
}
func (m *MockUserRepository) List(ctx context.Context, filter domain.UserFilter) ([]*domain.User, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*domain.User), args.Get(1).(int64), args.Error(2)
}
func (m *MockUserRepository) CountByRole(ctx context.Context) (*domain.RoleCounts, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RoleCounts), args.Error(1)
}

type MockTokenIssuer struct{ mock.Mock }

func (m *MockTokenIssuer) Generate(user *domain.User) (string, time.Time, error) {
	args := m.Called(user)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

type MockTokenRevoker struct{ mock.Mock }

func (m *MockTokenRevoker) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	args := m.Called(ctx, tokenID, until)
	return args.Error(0)
}

func (m *MockTokenRevoker) SuspendUser(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockTokenRevoker) RestoreUser(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type MockEventPublisher struct{ mock.Mock }

func (m *MockEventPublisher) Publish(ctx context.Context, subject string, data interface{}) error {
	args := m.Called(ctx, subject, data)
	return args.Error(0)
}

type MockActivityRecorder struct{ mock.Mock }

func (m *MockActivityRecorder) Record(ctx context.Context, entry activitydomain.Entry) {
	m.Called(ctx, entry)
}

type MockWelcomeMailer struct{ mock.Mock }

func (m *MockWelcomeMailer) SendWelcomeEmail(toEmail, name string) error {
	args := m.Called(toEmail, name)
	return args.Error(0)
}

// actionIs matches an activity entry by action.
func actionIs(action activitydomain.Action) interface{} {
	return mock.MatchedBy(func(e activitydomain.Entry) bool { return e.Action == action })
}
