package usecase

import (
	"context"
	"time"

	"github.com/EMe-U/plotsure/internal/activity/domain"
	inquirydomain "github.com/EMe-U/plotsure/internal/inquiry/domain"
	listingdomain "github.com/EMe-U/plotsure/internal/listing/domain"
	userdomain "github.com/EMe-U/plotsure/internal/user/domain"
	"github.com/stretchr/testify/mock"
)

type MockRepository struct{ mock.Mock }

func (m *MockRepository) Create(ctx context.Context, log *domain.Log) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}
func (m *MockRepository) Find(ctx context.Context, filter domain.Filter) ([]*domain.Log, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*domain.Log), args.Get(1).(int64), args.Error(2)
}
func (m *MockRepository) FindAll(ctx context.Context, filter domain.Filter) ([]*domain.Log, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Log), args.Error(1)
}
func (m *MockRepository) Count(ctx context.Context, since *time.Time) (int64, error) {
	args := m.Called(ctx, since)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockRepository) CountByAction(ctx context.Context, userID string, since time.Time) ([]domain.ActionCount, error) {
	args := m.Called(ctx, userID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ActionCount), args.Error(1)
}
func (m *MockRepository) CountByDay(ctx context.Context, since time.Time) ([]domain.DayCount, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DayCount), args.Error(1)
}
func (m *MockRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

type MockUserCounter struct{ mock.Mock }

func (m *MockUserCounter) RoleCounts(ctx context.Context) (*userdomain.RoleCounts, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*userdomain.RoleCounts), args.Error(1)
}

type MockListingCounter struct{ mock.Mock }

func (m *MockListingCounter) SystemStats(ctx context.Context) (*listingdomain.Stats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*listingdomain.Stats), args.Error(1)
}

type MockInquiryCounter struct{ mock.Mock }

func (m *MockInquiryCounter) SystemStats(ctx context.Context) (*inquirydomain.Stats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inquirydomain.Stats), args.Error(1)
}

type MockContactCounter struct{ mock.Mock }

func (m *MockContactCounter) SystemStats(ctx context.Context) (*inquirydomain.ContactStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inquirydomain.ContactStats), args.Error(1)
}
