package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	activitydomain "github.com/EMe-U/plotsure/internal/activity/domain"
	"github.com/EMe-U/plotsure/internal/auth"
	"github.com/EMe-U/plotsure/internal/listing/domain"
	"github.com/EMe-U/plotsure/internal/platform/logger"
	"github.com/EMe-U/plotsure/internal/platform/metrics"
	"github.com/EMe-U/plotsure/internal/upload"
	userdomain "github.com/EMe-U/plotsure/internal/user/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	broker      = &auth.Identity{UserID: "broker-1", Name: "Broker One", Role: userdomain.RoleBroker}
	otherBroker = &auth.Identity{UserID: "broker-2", Name: "Broker Two", Role: userdomain.RoleBroker}
	admin       = &auth.Identity{UserID: "admin-1", Name: "Admin", Role: userdomain.RoleAdmin}
	plainUser   = &auth.Identity{UserID: "user-1", Name: "Buyer", Role: userdomain.RoleUser}
)

type listingFixture struct {
	repo      *MockListingRepository
	cache     *MockListingCache
	publisher *MockEventPublisher
	activity  *MockActivityRecorder
	files     *MockFileStore
	uc        *ListingUsecase
}

func newListingFixture() *listingFixture {
	f := &listingFixture{
		repo:      new(MockListingRepository),
		cache:     new(MockListingCache),
		publisher: new(MockEventPublisher),
		activity:  new(MockActivityRecorder),
		files:     new(MockFileStore),
	}
	f.uc = NewListingUsecase(f.repo, f.cache, f.publisher, f.activity, f.files, metrics.NewMetricsManager("plotsure_test"), logger.NewNop())
	f.uc.now = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }
	return f
}

func newListing() *domain.Listing {
	return &domain.Listing{
		Title:             "Residential plot in Nyamata",
		Description:       "Flat residential plot close to the main road with water and power.",
		Sector:            "Nyamata",
		Cell:              "Nyamata",
		Village:           "Nyamata",
		PriceAmount:       25000000,
		LandSizeValue:     500,
		LandType:          domain.LandResidential,
		LandownerName:     "Jean Bosco",
		LandownerPhone:    "+250788123456",
		LandownerIDNumber: "1198780012345678",
	}
}

func storedListing(id, brokerID string) *domain.Listing {
	l := newListing()
	l.ApplyDefaults()
	l.ID = id
	l.BrokerID = brokerID
	return l
}

func TestListingUsecase_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newListingFixture()
		files := []upload.File{{Kind: upload.KindImages, FileName: "front.png"}}
		stored := []upload.StoredFile{{Kind: upload.KindImages, Key: "images/front_1_abcd1234.png", URL: "http://minio/plotsure/images/front_1_abcd1234.png"}}

		f.files.On("Store", ctx, files).Return(stored, nil).Once()
		f.repo.On("Create", ctx, mock.AnythingOfType("*domain.Listing")).Run(func(args mock.Arguments) {
			args.Get(1).(*domain.Listing).ID = "l1"
		}).Return(nil).Once()
		f.cache.On("InvalidateStats", ctx).Return(nil).Once()
		f.publisher.On("Publish", ctx, domain.SubjectListingCreated, mock.AnythingOfType("domain.ListingEvent")).Return(nil).Once()
		f.activity.On("Record", ctx, actionIs(activitydomain.ActionCreateListing)).Once()

		input := newListing()
		input.Verified = true
		input.Featured = true
		input.Views = 99

		got, err := f.uc.Create(ctx, broker, input, files)
		require.NoError(t, err)

		assert.Equal(t, "l1", got.ID)
		assert.Equal(t, broker.UserID, got.BrokerID)
		assert.Equal(t, domain.DefaultDistrict, got.District)
		assert.Equal(t, domain.StatusAvailable, got.Status)
		assert.False(t, got.Verified)
		assert.False(t, got.Featured)
		assert.Zero(t, got.Views)
		require.Len(t, got.Images, 1)
		assert.Equal(t, stored[0].Key, got.Images[0].Key)
		f.repo.AssertExpectations(t)
		f.publisher.AssertExpectations(t)
		f.activity.AssertExpectations(t)
	})

	t.Run("ValidationError", func(t *testing.T) {
		f := newListingFixture()
		input := newListing()
		input.Title = "x"
		input.LandownerIDNumber = ""

		_, err := f.uc.Create(ctx, broker, input, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))

		var verr *domain.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Contains(t, verr.Fields, "title")
		assert.Contains(t, verr.Fields, "landowner_id_number")
		f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		f.files.AssertNotCalled(t, "Store", mock.Anything, mock.Anything)
	})

	t.Run("ForbiddenForPlainUser", func(t *testing.T) {
		f := newListingFixture()
		_, err := f.uc.Create(ctx, plainUser, newListing(), nil)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("RemovesFilesWhenSaveFails", func(t *testing.T) {
		f := newListingFixture()
		files := []upload.File{{Kind: upload.KindDocuments, FileName: "title.pdf"}}
		stored := []upload.StoredFile{{Kind: upload.KindDocuments, Key: "documents/title_1_abcd1234.pdf"}}

		f.files.On("Store", ctx, files).Return(stored, nil).Once()
		f.repo.On("Create", ctx, mock.Anything).Return(errors.New("db down")).Once()
		f.files.On("Remove", ctx, []string{stored[0].Key}).Once()

		_, err := f.uc.Create(ctx, broker, newListing(), files)
		require.Error(t, err)
		f.files.AssertExpectations(t)
		f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("PublishFailureDoesNotFailRequest", func(t *testing.T) {
		f := newListingFixture()
		f.repo.On("Create", ctx, mock.Anything).Return(nil).Once()
		f.cache.On("InvalidateStats", ctx).Return(nil).Once()
		f.publisher.On("Publish", ctx, domain.SubjectListingCreated, mock.Anything).Return(errors.New("nats down")).Once()
		f.activity.On("Record", ctx, mock.Anything).Once()

		_, err := f.uc.Create(ctx, admin, newListing(), nil)
		assert.NoError(t, err)
	})
}

func TestListingUsecase_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("FromRepositoryCountsView", func(t *testing.T) {
		f := newListingFixture()
		l := storedListing("l1", broker.UserID)
		l.Views = 4

		f.cache.On("GetListing", ctx, "l1").Return(nil, nil).Once()
		f.repo.On("GetByID", ctx, "l1").Return(l, nil).Once()
		f.repo.On("IncrementViews", ctx, "l1").Return(nil).Once()
		f.cache.On("SetListing", ctx, l).Return(nil).Once()
		f.activity.On("Record", ctx, actionIs(activitydomain.ActionViewListing)).Once()

		got, err := f.uc.Get(ctx, nil, "l1")
		require.NoError(t, err)
		assert.Equal(t, int64(5), got.Views)
		f.cache.AssertExpectations(t)
	})

	t.Run("FromCache", func(t *testing.T) {
		f := newListingFixture()
		l := storedListing("l1", broker.UserID)

		f.cache.On("GetListing", ctx, "l1").Return(l, nil).Once()
		f.repo.On("IncrementViews", ctx, "l1").Return(nil).Once()
		f.cache.On("SetListing", ctx, l).Return(nil).Once()
		f.activity.On("Record", ctx, mock.Anything).Once()

		_, err := f.uc.Get(ctx, nil, "l1")
		require.NoError(t, err)
		f.repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("CacheErrorFallsBackToRepository", func(t *testing.T) {
		f := newListingFixture()
		l := storedListing("l1", broker.UserID)

		f.cache.On("GetListing", ctx, "l1").Return(nil, errors.New("redis down")).Once()
		f.repo.On("GetByID", ctx, "l1").Return(l, nil).Once()
		f.repo.On("IncrementViews", ctx, "l1").Return(nil).Once()
		f.cache.On("SetListing", ctx, l).Return(errors.New("redis down")).Once()
		f.activity.On("Record", ctx, mock.Anything).Once()

		got, err := f.uc.Get(ctx, nil, "l1")
		require.NoError(t, err)
		assert.Equal(t, "l1", got.ID)
	})

	t.Run("NotFound", func(t *testing.T) {
		f := newListingFixture()
		f.cache.On("GetListing", ctx, "missing").Return(nil, nil).Once()
		f.repo.On("GetByID", ctx, "missing").Return(nil, domain.ErrListingNotFound).Once()

		_, err := f.uc.Get(ctx, nil, "missing")
		assert.ErrorIs(t, err, domain.ErrListingNotFound)
	})
}

func TestListingUsecase_List(t *testing.T) {
	ctx := context.Background()

	t.Run("AnonymousSeesOnlyOpenListings", func(t *testing.T) {
		f := newListingFixture()
		f.repo.On("Find", ctx, mock.MatchedBy(func(fl domain.Filter) bool {
			return len(fl.Statuses) == 2 &&
				fl.Statuses[0] == domain.StatusAvailable &&
				fl.Statuses[1] == domain.StatusReserved &&
				fl.Page == 1 && fl.Limit == domain.DefaultPageLimit
		})).Return([]*domain.Listing{storedListing("l1", "b")}, int64(1), nil).Once()

		items, total, err := f.uc.List(ctx, nil, domain.Filter{})
		require.NoError(t, err)
		assert.Len(t, items, 1)
		assert.Equal(t, int64(1), total)
		f.activity.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	})

	t.Run("ExplicitStatusIsKept", func(t *testing.T) {
		f := newListingFixture()
		f.repo.On("Find", ctx, mock.MatchedBy(func(fl domain.Filter) bool {
			return len(fl.Statuses) == 1 && fl.Statuses[0] == domain.StatusSold
		})).Return([]*domain.Listing{}, int64(0), nil).Once()

		_, _, err := f.uc.List(ctx, nil, domain.Filter{Statuses: []domain.ListingStatus{domain.StatusSold}})
		require.NoError(t, err)
		f.repo.AssertExpectations(t)
	})

	t.Run("SearchIsLogged", func(t *testing.T) {
		f := newListingFixture()
		f.repo.On("Find", ctx, mock.Anything).Return([]*domain.Listing{}, int64(0), nil).Once()
		f.activity.On("Record", ctx, actionIs(activitydomain.ActionSearchListings)).Once()

		_, _, err := f.uc.List(ctx, broker, domain.Filter{Search: "nyamata"})
		require.NoError(t, err)
		f.activity.AssertExpectations(t)
	})

	t.Run("InvalidFilter", func(t *testing.T) {
		f := newListingFixture()
		neg := -1.0
		_, _, err := f.uc.List(ctx, nil, domain.Filter{MaxSize: &neg})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestListingUsecase_ListMine(t *testing.T) {
	ctx := context.Background()
	f := newListingFixture()
	f.repo.On("Find", ctx, mock.MatchedBy(func(fl domain.Filter) bool { return fl.BrokerID == broker.UserID })).
		Return([]*domain.Listing{}, int64(0), nil).Once()

	_, _, err := f.uc.ListMine(ctx, broker, domain.Filter{BrokerID: "someone-else"})
	require.NoError(t, err)
	f.repo.AssertExpectations(t)
}

func TestListingUsecase_Update(t *testing.T) {
	ctx := context.Background()
	sold := domain.StatusSold
	price := 30000000.0

	t.Run("OwnerUpdatesStatus", func(t *testing.T) {
		f := newListingFixture()
		f.repo.On("GetByID", ctx, "l1").Return(storedListing("l1", broker.UserID), nil).Once()
		f.repo.On("Update", ctx, mock.MatchedBy(func(l *domain.Listing) bool {
			return l.Status == domain.StatusSold && l.PriceAmount == price
		})).Return(nil).Once()
		f.cache.On("DeleteListing", ctx, "l1").Return(nil).Once()
		f.cache.On("InvalidateStats", ctx).Return(nil).Once()
		f.publisher.On("Publish", ctx, domain.SubjectListingUpdated, mock.Anything).Return(nil).Once()
		f.activity.On("Record", ctx, mock.MatchedBy(func(e activitydomain.Entry) bool {
			changed, _ := e.Details["changed"].([]string)
			return e.Action == activitydomain.ActionUpdateListing && len(changed) == 2
		})).Once()

		got, err := f.uc.Update(ctx, broker, "l1", domain.ListingPatch{Status: &sold, PriceAmount: &price})
		require.NoError(t, err)
		assert.Equal(t, domain.StatusSold, got.Status)
		f.repo.AssertExpectations(t)
		f.cache.AssertExpectations(t)
		f.activity.AssertExpectations(t)
	})

	t.Run("OtherBrokerForbidden", func(t *testing.T) {
		f := newListingFixture()
		f.repo.On("GetByID", ctx, "l1").Return(storedListing("l1", broker.UserID), nil).Once()

		_, err := f.uc.Update(ctx, otherBroker, "l1", domain.ListingPatch{Status: &sold})
		assert.ErrorIs(t, err, domain.ErrForbidden)
		f.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("AdminMayUpdateAnyListing", func(t *testing.T) {
		f := newListingFixture()
		f.repo.On("GetByID", ctx, "l1").Return(storedListing("l1", broker.UserID), nil).Once()
		f.repo.On("Update", ctx, mock.Anything).Return(nil).Once()
		f.cache.On("DeleteListing", ctx, "l1").Return(nil).Once()
		f.cache.On("InvalidateStats", ctx).Return(nil).Once()
		f.publisher.On("Publish", ctx, domain.SubjectListingUpdated, mock.Anything).Return(nil).Once()
		f.activity.On("Record", ctx, mock.Anything).Once()

		_, err := f.uc.Update(ctx, admin, "l1", domain.ListingPatch{Status: &sold})
		assert.NoError(t, err)
	})

	t.Run("InvalidPatchRejected", func(t *testing.T) {
		f := newListingFixture()
		bad := domain.ListingStatus("pending")
		f.repo.On("GetByID", ctx, "l1").Return(storedListing("l1", broker.UserID), nil).Once()

		_, err := f.uc.Update(ctx, broker, "l1", domain.ListingPatch{Status: &bad})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		f.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("NoChangesSkipsWrite", func(t *testing.T) {
		f := newListingFixture()
		f.repo.On("GetByID", ctx, "l1").Return(storedListing("l1", broker.UserID), nil).Once()

		_, err := f.uc.Update(ctx, broker, "l1", domain.ListingPatch{})
		assert.NoError(t, err)
		f.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}

func TestListingUsecase_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("RemovesListingAndFiles", func(t *testing.T) {
		f := newListingFixture()
		l := storedListing("l1", broker.UserID)
		l.Images = []domain.Media{{Key: "images/a.png"}}
		l.Documents = []domain.Media{{Key: "documents/b.pdf"}}

		f.repo.On("GetByID", ctx, "l1").Return(l, nil).Once()
		f.repo.On("Delete", ctx, "l1").Return(nil).Once()
		f.files.On("Remove", ctx, []string{"images/a.png", "documents/b.pdf"}).Once()
		f.cache.On("DeleteListing", ctx, "l1").Return(nil).Once()
		f.cache.On("InvalidateStats", ctx).Return(nil).Once()
		f.publisher.On("Publish", ctx, domain.SubjectListingDeleted, mock.Anything).Return(nil).Once()
		f.activity.On("Record", ctx, actionIs(activitydomain.ActionDeleteListing)).Once()

		require.NoError(t, f.uc.Delete(ctx, broker, "l1"))
		f.files.AssertExpectations(t)

		// subsequent reads miss
		f.cache.On("GetListing", ctx, "l1").Return(nil, nil).Once()
		f.repo.On("GetByID", ctx, "l1").Return(nil, domain.ErrListingNotFound).Once()
		_, err := f.uc.Get(ctx, nil, "l1")
		assert.ErrorIs(t, err, domain.ErrListingNotFound)
	})

	t.Run("OtherBrokerForbidden", func(t *testing.T) {
		f := newListingFixture()
		f.repo.On("GetByID", ctx, "l1").Return(storedListing("l1", broker.UserID), nil).Once()

		err := f.uc.Delete(ctx, otherBroker, "l1")
		assert.ErrorIs(t, err, domain.ErrForbidden)
		f.repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}

func TestListingUsecase_AddMedia(t *testing.T) {
	ctx := context.Background()
	f := newListingFixture()
	files := []upload.File{{Kind: upload.KindVideos, FileName: "walk.mp4"}}
	stored := []upload.StoredFile{{Kind: upload.KindVideos, Key: "videos/walk_1_abcd1234.mp4"}}

	f.repo.On("GetByID", ctx, "l1").Return(storedListing("l1", broker.UserID), nil).Once()
	f.files.On("Store", ctx, files).Return(stored, nil).Once()
	f.repo.On("AppendMedia", ctx, "l1", mock.MatchedBy(func(m map[domain.MediaKind][]domain.Media) bool {
		return len(m) == 1 && len(m[domain.MediaVideos]) == 1 && m[domain.MediaVideos][0].Key == stored[0].Key
	})).Return(nil).Once()
	f.cache.On("DeleteListing", ctx, "l1").Return(nil).Once()
	f.cache.On("InvalidateStats", ctx).Return(nil).Once()
	f.activity.On("Record", ctx, actionIs(activitydomain.ActionUploadFiles)).Once()

	got, err := f.uc.AddMedia(ctx, broker, "l1", files)
	require.NoError(t, err)
	assert.Len(t, got.Videos, 1)
	f.repo.AssertExpectations(t)
}

func TestListingUsecase_AddMediaAttachFailure(t *testing.T) {
	ctx := context.Background()
	f := newListingFixture()
	files := []upload.File{
		{Kind: upload.KindImages, FileName: "a.png"},
		{Kind: upload.KindDocuments, FileName: "b.pdf"},
	}
	stored := []upload.StoredFile{
		{Kind: upload.KindImages, Key: "images/a.png"},
		{Kind: upload.KindDocuments, Key: "documents/b.pdf"},
	}

	f.repo.On("GetByID", ctx, "l1").Return(storedListing("l1", broker.UserID), nil).Once()
	f.files.On("Store", ctx, files).Return(stored, nil).Once()
	f.repo.On("AppendMedia", ctx, "l1", mock.MatchedBy(func(m map[domain.MediaKind][]domain.Media) bool {
		return len(m[domain.MediaImages]) == 1 && len(m[domain.MediaDocuments]) == 1
	})).Return(errors.New("mongo down")).Once()
	f.files.On("Remove", ctx, []string{"images/a.png", "documents/b.pdf"}).Once()

	_, err := f.uc.AddMedia(ctx, broker, "l1", files)
	require.Error(t, err)
	f.repo.AssertNumberOfCalls(t, "AppendMedia", 1)
	f.files.AssertExpectations(t)
	f.activity.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
}

func TestListingUsecase_AdminOnly(t *testing.T) {
	ctx := context.Background()

	t.Run("SetFeaturedRequiresAdmin", func(t *testing.T) {
		f := newListingFixture()
		_, err := f.uc.SetFeatured(ctx, broker, "l1", true)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("VerifyStampsAdmin", func(t *testing.T) {
		f := newListingFixture()
		f.repo.On("GetByID", ctx, "l1").Return(storedListing("l1", broker.UserID), nil).Once()
		f.repo.On("Update", ctx, mock.Anything).Return(nil).Once()
		f.cache.On("DeleteListing", ctx, "l1").Return(nil).Once()
		f.cache.On("InvalidateStats", ctx).Return(nil).Once()
		f.publisher.On("Publish", ctx, domain.SubjectListingUpdated, mock.Anything).Return(nil).Once()
		f.activity.On("Record", ctx, actionIs(activitydomain.ActionVerifyListing)).Once()

		got, err := f.uc.Verify(ctx, admin, "l1", true, " title deed checked ")
		require.NoError(t, err)
		assert.True(t, got.Verified)
		assert.Equal(t, admin.UserID, got.VerifiedBy)
		assert.Equal(t, "title deed checked", got.VerificationNotes)
		require.NotNil(t, got.VerifiedAt)
	})
}

func TestListingUsecase_Stats(t *testing.T) {
	ctx := context.Background()

	t.Run("BrokerScopeCached", func(t *testing.T) {
		f := newListingFixture()
		stats := &domain.Stats{Total: 3, Available: 2, Sold: 1}
		f.cache.On("GetStats", ctx, broker.UserID).Return(nil, nil).Once()
		f.repo.On("Stats", ctx, broker.UserID).Return(stats, nil).Once()
		f.cache.On("SetStats", ctx, broker.UserID, stats).Return(nil).Once()

		got, err := f.uc.Stats(ctx, broker)
		require.NoError(t, err)
		assert.Equal(t, int64(3), got.Total)
		f.cache.AssertExpectations(t)
	})

	t.Run("AdminCacheHit", func(t *testing.T) {
		f := newListingFixture()
		f.cache.On("GetStats", ctx, statsScopeAll).Return(&domain.Stats{Total: 9}, nil).Once()

		got, err := f.uc.Stats(ctx, admin)
		require.NoError(t, err)
		assert.Equal(t, int64(9), got.Total)
		f.repo.AssertNotCalled(t, "Stats", mock.Anything, mock.Anything)
	})
}
