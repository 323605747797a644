package usecase

import (
	"context"

	activitydomain "github.com/EMe-U/plotsure/internal/activity/domain"
	"github.com/EMe-U/plotsure/internal/inquiry/domain"
	listingdomain "github.com/EMe-U/plotsure/internal/listing/domain"
	userdomain "github.com/EMe-U/plotsure/internal/user/domain"
	"github.com/stretchr/testify/mock"
)

type MockInquiryRepository struct{ mock.Mock }

func (m *MockInquiryRepository) Create(ctx context.Context, inquiry *domain.Inquiry) error {
	args := m.Called(ctx, inquiry)
	return args.Error(0)
}
func (m *MockInquiryRepository) GetByID(ctx context.Context, id string) (*domain.Inquiry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Inquiry), args.Error(1)
}
func (m *MockInquiryRepository) Update(ctx context.Context, inquiry *domain.Inquiry) error {
	args := m.Called(ctx, inquiry)
	return args.Error(0)
}
func (m *MockInquiryRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockInquiryRepository) Find(ctx context.Context, filter domain.Filter) ([]*domain.Inquiry, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*domain.Inquiry), args.Get(1).(int64), args.Error(2)
}
func (m *MockInquiryRepository) CountByStatus(ctx context.Context, visibleTo string) (map[domain.Status]int64, error) {
	args := m.Called(ctx, visibleTo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[domain.Status]int64), args.Error(1)
}

type MockContactRepository struct{ mock.Mock }

func (m *MockContactRepository) Create(ctx context.Context, contact *domain.Contact) error {
	args := m.Called(ctx, contact)
	return args.Error(0)
}
func (m *MockContactRepository) GetByID(ctx context.Context, id string) (*domain.Contact, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Contact), args.Error(1)
}
func (m *MockContactRepository) UpdateStatus(ctx context.Context, id string, status domain.ContactStatus) (*domain.Contact, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Contact), args.Error(1)
}
func (m *MockContactRepository) Find(ctx context.Context, filter domain.ContactFilter) ([]*domain.Contact, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*domain.Contact), args.Get(1).(int64), args.Error(2)
}
func (m *MockContactRepository) CountByStatus(ctx context.Context) (map[domain.ContactStatus]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[domain.ContactStatus]int64), args.Error(1)
}

type MockListingReader struct{ mock.Mock }

func (m *MockListingReader) GetByID(ctx context.Context, id string) (*listingdomain.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*listingdomain.Listing), args.Error(1)
}

type MockUserReader struct{ mock.Mock }

func (m *MockUserReader) GetByID(ctx context.Context, id string) (*userdomain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*userdomain.User), args.Error(1)
}

type MockNotifier struct{ mock.Mock }

func (m *MockNotifier) SendInquiryNotification(toEmail string, inquiry *domain.Inquiry) error {
	args := m.Called(toEmail, inquiry)
	return args.Error(0)
}
func (m *MockNotifier) SendContactNotification(toEmail string, contact *domain.Contact) error {
	args := m.Called(toEmail, contact)
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

func actionIs(action activitydomain.Action) interface{} {
	return mock.MatchedBy(func(e activitydomain.Entry) bool { return e.Action == action })
}
