package router_test

import (
	"context"
	"io"
	"time"

	activitydomain "github.com/EMe-U/plotsure/internal/activity/domain"
	activityusecase "github.com/EMe-U/plotsure/internal/activity/usecase"
	"github.com/EMe-U/plotsure/internal/auth"
	inquirydomain "github.com/EMe-U/plotsure/internal/inquiry/domain"
	listingdomain "github.com/EMe-U/plotsure/internal/listing/domain"
	"github.com/EMe-U/plotsure/internal/upload"
	userdomain "github.com/EMe-U/plotsure/internal/user/domain"
	userusecase "github.com/EMe-U/plotsure/internal/user/usecase"
	"github.com/stretchr/testify/mock"
)

type MockUserService struct{ mock.Mock }

func (m *MockUserService) Register(ctx context.Context, in userusecase.RegisterInput) (*userusecase.AuthResult, error) {
	args := m.Called(ctx, in)
	res, _ := args.Get(0).(*userusecase.AuthResult)
	return res, args.Error(1)
}

func (m *MockUserService) Login(ctx context.Context, in userusecase.LoginInput) (*userusecase.AuthResult, error) {
	args := m.Called(ctx, in)
	res, _ := args.Get(0).(*userusecase.AuthResult)
	return res, args.Error(1)
}

func (m *MockUserService) Logout(ctx context.Context, actor *auth.Identity, tokenExpiry time.Time) error {
	return m.Called(ctx, actor, tokenExpiry).Error(0)
}

func (m *MockUserService) GetProfile(ctx context.Context, userID string) (*userdomain.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(*userdomain.User)
	return u, args.Error(1)
}

func (m *MockUserService) UpdateProfile(ctx context.Context, actor *auth.Identity, in userusecase.UpdateProfileInput) (*userdomain.User, error) {
	args := m.Called(ctx, actor, in)
	u, _ := args.Get(0).(*userdomain.User)
	return u, args.Error(1)
}

func (m *MockUserService) ChangePassword(ctx context.Context, actor *auth.Identity, current, next, confirm string) error {
	return m.Called(ctx, actor, current, next, confirm).Error(0)
}

func (m *MockUserService) ListUsers(ctx context.Context, actor *auth.Identity, filter userdomain.UserFilter) ([]*userdomain.User, int64, error) {
	args := m.Called(ctx, actor, filter)
	users, _ := args.Get(0).([]*userdomain.User)
	return users, args.Get(1).(int64), args.Error(2)
}

func (m *MockUserService) SetUserActive(ctx context.Context, actor *auth.Identity, userID string, active bool) (*userdomain.User, error) {
	args := m.Called(ctx, actor, userID, active)
	u, _ := args.Get(0).(*userdomain.User)
	return u, args.Error(1)
}

type MockTwoFactorService struct{ mock.Mock }

func (m *MockTwoFactorService) Setup(ctx context.Context, actor *auth.Identity) (*userusecase.TwoFactorSetup, error) {
	args := m.Called(ctx, actor)
	s, _ := args.Get(0).(*userusecase.TwoFactorSetup)
	return s, args.Error(1)
}

func (m *MockTwoFactorService) Verify(ctx context.Context, actor *auth.Identity, code string) error {
	return m.Called(ctx, actor, code).Error(0)
}

func (m *MockTwoFactorService) Disable(ctx context.Context, actor *auth.Identity, code string) error {
	return m.Called(ctx, actor, code).Error(0)
}

func (m *MockTwoFactorService) Status(ctx context.Context, actor *auth.Identity) (*userusecase.TwoFactorStatus, error) {
	args := m.Called(ctx, actor)
	s, _ := args.Get(0).(*userusecase.TwoFactorStatus)
	return s, args.Error(1)
}

type MockListingService struct{ mock.Mock }

func (m *MockListingService) Create(ctx context.Context, actor *auth.Identity, listing *listingdomain.Listing, files []upload.File) (*listingdomain.Listing, error) {
	args := m.Called(ctx, actor, listing, files)
	l, _ := args.Get(0).(*listingdomain.Listing)
	return l, args.Error(1)
}

func (m *MockListingService) Get(ctx context.Context, actor *auth.Identity, id string) (*listingdomain.Listing, error) {
	args := m.Called(ctx, actor, id)
	l, _ := args.Get(0).(*listingdomain.Listing)
	return l, args.Error(1)
}

func (m *MockListingService) List(ctx context.Context, actor *auth.Identity, filter listingdomain.Filter) ([]*listingdomain.Listing, int64, error) {
	args := m.Called(ctx, actor, filter)
	ls, _ := args.Get(0).([]*listingdomain.Listing)
	return ls, args.Get(1).(int64), args.Error(2)
}

func (m *MockListingService) ListMine(ctx context.Context, actor *auth.Identity, filter listingdomain.Filter) ([]*listingdomain.Listing, int64, error) {
	args := m.Called(ctx, actor, filter)
	ls, _ := args.Get(0).([]*listingdomain.Listing)
	return ls, args.Get(1).(int64), args.Error(2)
}

func (m *MockListingService) Update(ctx context.Context, actor *auth.Identity, id string, patch listingdomain.ListingPatch) (*listingdomain.Listing, error) {
	args := m.Called(ctx, actor, id, patch)
	l, _ := args.Get(0).(*listingdomain.Listing)
	return l, args.Error(1)
}

func (m *MockListingService) Delete(ctx context.Context, actor *auth.Identity, id string) error {
	return m.Called(ctx, actor, id).Error(0)
}

func (m *MockListingService) AddMedia(ctx context.Context, actor *auth.Identity, id string, files []upload.File) (*listingdomain.Listing, error) {
	args := m.Called(ctx, actor, id, files)
	l, _ := args.Get(0).(*listingdomain.Listing)
	return l, args.Error(1)
}

func (m *MockListingService) SetFeatured(ctx context.Context, actor *auth.Identity, id string, featured bool) (*listingdomain.Listing, error) {
	args := m.Called(ctx, actor, id, featured)
	l, _ := args.Get(0).(*listingdomain.Listing)
	return l, args.Error(1)
}

func (m *MockListingService) Verify(ctx context.Context, actor *auth.Identity, id string, verified bool, notes string) (*listingdomain.Listing, error) {
	args := m.Called(ctx, actor, id, verified, notes)
	l, _ := args.Get(0).(*listingdomain.Listing)
	return l, args.Error(1)
}

func (m *MockListingService) Stats(ctx context.Context, actor *auth.Identity) (*listingdomain.Stats, error) {
	args := m.Called(ctx, actor)
	s, _ := args.Get(0).(*listingdomain.Stats)
	return s, args.Error(1)
}

type MockInquiryService struct{ mock.Mock }

func (m *MockInquiryService) Create(ctx context.Context, actor *auth.Identity, inquiry *inquirydomain.Inquiry) (*inquirydomain.Inquiry, error) {
	args := m.Called(ctx, actor, inquiry)
	i, _ := args.Get(0).(*inquirydomain.Inquiry)
	return i, args.Error(1)
}

func (m *MockInquiryService) List(ctx context.Context, actor *auth.Identity, filter inquirydomain.Filter) ([]*inquirydomain.Inquiry, int64, error) {
	args := m.Called(ctx, actor, filter)
	is, _ := args.Get(0).([]*inquirydomain.Inquiry)
	return is, args.Get(1).(int64), args.Error(2)
}

func (m *MockInquiryService) Stats(ctx context.Context, actor *auth.Identity) (*inquirydomain.Stats, error) {
	args := m.Called(ctx, actor)
	s, _ := args.Get(0).(*inquirydomain.Stats)
	return s, args.Error(1)
}

func (m *MockInquiryService) Get(ctx context.Context, actor *auth.Identity, id string) (*inquirydomain.Inquiry, error) {
	args := m.Called(ctx, actor, id)
	i, _ := args.Get(0).(*inquirydomain.Inquiry)
	return i, args.Error(1)
}

func (m *MockInquiryService) UpdateStatus(ctx context.Context, actor *auth.Identity, id string, status inquirydomain.Status, notes *string) (*inquirydomain.Inquiry, error) {
	args := m.Called(ctx, actor, id, status, notes)
	i, _ := args.Get(0).(*inquirydomain.Inquiry)
	return i, args.Error(1)
}

func (m *MockInquiryService) Convert(ctx context.Context, actor *auth.Identity, id string, value *float64) (*inquirydomain.Inquiry, error) {
	args := m.Called(ctx, actor, id, value)
	i, _ := args.Get(0).(*inquirydomain.Inquiry)
	return i, args.Error(1)
}

func (m *MockInquiryService) Assign(ctx context.Context, actor *auth.Identity, id, userID string) (*inquirydomain.Inquiry, error) {
	args := m.Called(ctx, actor, id, userID)
	i, _ := args.Get(0).(*inquirydomain.Inquiry)
	return i, args.Error(1)
}

func (m *MockInquiryService) Delete(ctx context.Context, actor *auth.Identity, id string) error {
	return m.Called(ctx, actor, id).Error(0)
}

type MockContactService struct{ mock.Mock }

func (m *MockContactService) Submit(ctx context.Context, actor *auth.Identity, contact *inquirydomain.Contact) (*inquirydomain.Contact, error) {
	args := m.Called(ctx, actor, contact)
	c, _ := args.Get(0).(*inquirydomain.Contact)
	return c, args.Error(1)
}

func (m *MockContactService) List(ctx context.Context, actor *auth.Identity, filter inquirydomain.ContactFilter) ([]*inquirydomain.Contact, int64, error) {
	args := m.Called(ctx, actor, filter)
	cs, _ := args.Get(0).([]*inquirydomain.Contact)
	return cs, args.Get(1).(int64), args.Error(2)
}

func (m *MockContactService) Stats(ctx context.Context, actor *auth.Identity) (*inquirydomain.ContactStats, error) {
	args := m.Called(ctx, actor)
	s, _ := args.Get(0).(*inquirydomain.ContactStats)
	return s, args.Error(1)
}

func (m *MockContactService) UpdateStatus(ctx context.Context, actor *auth.Identity, id string, status inquirydomain.ContactStatus) (*inquirydomain.Contact, error) {
	args := m.Called(ctx, actor, id, status)
	c, _ := args.Get(0).(*inquirydomain.Contact)
	return c, args.Error(1)
}

type MockReportService struct{ mock.Mock }

func (m *MockReportService) Logs(ctx context.Context, actor *auth.Identity, filter activitydomain.Filter) ([]*activitydomain.Log, int64, error) {
	args := m.Called(ctx, actor, filter)
	logs, _ := args.Get(0).([]*activitydomain.Log)
	return logs, args.Get(1).(int64), args.Error(2)
}

func (m *MockReportService) ExportCSV(ctx context.Context, actor *auth.Identity, filter activitydomain.Filter, w io.Writer) (int, error) {
	args := m.Called(ctx, actor, filter, w)
	return args.Int(0), args.Error(1)
}

func (m *MockReportService) SystemStats(ctx context.Context, actor *auth.Identity) (*activityusecase.SystemStats, error) {
	args := m.Called(ctx, actor)
	s, _ := args.Get(0).(*activityusecase.SystemStats)
	return s, args.Error(1)
}

func (m *MockReportService) UserActivity(ctx context.Context, actor *auth.Identity, userID string, days int) (*activityusecase.UserActivity, error) {
	args := m.Called(ctx, actor, userID, days)
	a, _ := args.Get(0).(*activityusecase.UserActivity)
	return a, args.Error(1)
}

func (m *MockReportService) Trends(ctx context.Context, actor *auth.Identity, days int) (*activityusecase.Trends, error) {
	args := m.Called(ctx, actor, days)
	t, _ := args.Get(0).(*activityusecase.Trends)
	return t, args.Error(1)
}

type MockFileOpener struct{ mock.Mock }

func (m *MockFileOpener) Open(ctx context.Context, key string) (*upload.Object, error) {
	args := m.Called(ctx, key)
	o, _ := args.Get(0).(*upload.Object)
	return o, args.Error(1)
}
