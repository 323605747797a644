package usecase

import (
	"context"

	activitydomain "github.com/EMe-U/plotsure/internal/activity/domain"
	"github.com/EMe-U/plotsure/internal/listing/domain"
	"github.com/EMe-U/plotsure/internal/upload"
	"github.com/stretchr/testify/mock"
)

type MockListingRepository struct{ mock.Mock }

func (m *MockListingRepository) Create(ctx context.Context, listing *domain.Listing) error {
	args := m.Called(ctx, listing)
	return args.Error(0)
}
func (m *MockListingRepository) GetByID(ctx context.Context, id string) (*domain.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Listing), args.Error(1)
}
func (m *MockListingRepository) Update(ctx context.Context, listing *domain.Listing) error {
	args := m.Called(ctx, listing)
	return args.Error(0)
}
func (m *MockListingRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockListingRepository) Find(ctx context.Context, filter domain.Filter) ([]*domain.Listing, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*domain.Listing), args.Get(1).(int64), args.Error(2)
}
func (m *MockListingRepository) IncrementViews(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockListingRepository) AppendMedia(ctx context.Context, id string, media map[domain.MediaKind][]domain.Media) error {
	args := m.Called(ctx, id, media)
	return args.Error(0)
}
func (m *MockListingRepository) Stats(ctx context.Context, brokerID string) (*domain.Stats, error) {
	args := m.Called(ctx, brokerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Stats), args.Error(1)
}

type MockListingCache struct{ mock.Mock }

func (m *MockListingCache) GetListing(ctx context.Context, id string) (*domain.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Listing), args.Error(1)
}
func (m *MockListingCache) SetListing(ctx context.Context, listing *domain.Listing) error {
	args := m.Called(ctx, listing)
	return args.Error(0)
}
func (m *MockListingCache) DeleteListing(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockListingCache) GetStats(ctx context.Context, scope string) (*domain.Stats, error) {
	args := m.Called(ctx, scope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Stats), args.Error(1)
}
func (m *MockListingCache) SetStats(ctx context.Context, scope string, stats *domain.Stats) error {
	args := m.Called(ctx, scope, stats)
	return args.Error(0)
}
func (m *MockListingCache) InvalidateStats(ctx context.Context) error {
	args := m.Called(ctx)
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

type MockFileStore struct{ mock.Mock }

func (m *MockFileStore) Store(ctx context.Context, files []upload.File) ([]upload.StoredFile, error) {
	args := m.Called(ctx, files)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]upload.StoredFile), args.Error(1)
}
func (m *MockFileStore) Remove(ctx context.Context, keys []string) {
	m.Called(ctx, keys)
}

func actionIs(action activitydomain.Action) interface{} {
	return mock.MatchedBy(func(e activitydomain.Entry) bool { return e.Action == action })
}
