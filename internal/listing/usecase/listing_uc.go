package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	activitydomain "github.com/EMe-U/plotsure/internal/activity/domain"
	"github.com/EMe-U/plotsure/internal/auth"
	"github.com/EMe-U/plotsure/internal/listing/domain"
	"github.com/EMe-U/plotsure/internal/platform/logger"
	"github.com/EMe-U/plotsure/internal/platform/metrics"
	"github.com/EMe-U/plotsure/internal/upload"
	"go.uber.org/zap"
)

const statsScopeAll = "all"

// EventPublisher publishes domain events.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
}

// ActivityRecorder stores activity log entries.
type ActivityRecorder interface {
	Record(ctx context.Context, entry activitydomain.Entry)
}

// FileStore validates and stores uploaded files.
type FileStore interface {
	Store(ctx context.Context, files []upload.File) ([]upload.StoredFile, error)
	Remove(ctx context.Context, keys []string)
}

type ListingUsecase struct {
	repo      domain.ListingRepository
	cache     domain.ListingCache
	publisher EventPublisher
	activity  ActivityRecorder
	files     FileStore
	metrics   *metrics.MetricsManager
	logger    *logger.Logger
	now       func() time.Time
}

func NewListingUsecase(
	repo domain.ListingRepository,
	cache domain.ListingCache,
	publisher EventPublisher,
	activity ActivityRecorder,
	files FileStore,
	mm *metrics.MetricsManager,
	log *logger.Logger,
) *ListingUsecase {
	return &ListingUsecase{
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		activity:  activity,
		files:     files,
		metrics:   mm,
		logger:    log.Named("ListingUsecase"),
		now:       time.Now,
	}
}

// Create validates and persists a new listing owned by the caller. Files are
// stored first and removed again if the listing cannot be saved.
func (uc *ListingUsecase) Create(ctx context.Context, actor *auth.Identity, listing *domain.Listing, files []upload.File) (*domain.Listing, error) {
	if actor == nil || !actor.Role.IsStaff() {
		return nil, domain.ErrForbidden
	}

	listing.ID = ""
	listing.BrokerID = actor.UserID
	listing.Verified = false
	listing.VerifiedAt = nil
	listing.VerifiedBy = ""
	listing.Featured = false
	listing.Views = 0
	listing.Images, listing.Documents, listing.Videos = nil, nil, nil
	listing.ApplyDefaults()
	trimListing(listing)

	if err := listing.Validate(); err != nil {
		uc.logger.Info("Listing rejected by validation", zap.String("broker_id", actor.UserID), zap.Error(err))
		return nil, err
	}

	stored, err := uc.storeFiles(ctx, files)
	if err != nil {
		return nil, err
	}
	attachMedia(listing, stored)

	now := uc.now().UTC()
	listing.CreatedAt = now
	listing.UpdatedAt = now
	if err := uc.repo.Create(ctx, listing); err != nil {
		uc.logger.Error("Failed to create listing", zap.String("broker_id", actor.UserID), zap.Error(err))
		uc.files.Remove(ctx, keysOf(stored))
		return nil, err
	}
	uc.logger.Info("Listing created", zap.String("listing_id", listing.ID), zap.String("broker_id", actor.UserID), zap.Int("files", len(stored)))

	if uc.metrics != nil {
		uc.metrics.ListingsCreatedTotal.Inc()
	}
	uc.invalidateStats(ctx)
	uc.publish(ctx, domain.SubjectListingCreated, domain.NewListingEvent(listing, actor.UserID))
	uc.activity.Record(ctx, activitydomain.Entry{
		Actor:    actor,
		Action:   activitydomain.ActionCreateListing,
		Entity:   activitydomain.EntityListing,
		EntityID: listing.ID,
		Details:  map[string]interface{}{"title": listing.Title, "files": len(stored)},
	})
	return listing, nil
}

// Get returns a listing and counts the view.
func (uc *ListingUsecase) Get(ctx context.Context, actor *auth.Identity, id string) (*domain.Listing, error) {
	listing, err := uc.cache.GetListing(ctx, id)
	if err != nil {
		uc.logger.Warn("Listing cache read failed", zap.String("listing_id", id), zap.Error(err))
		listing = nil
	}
	if listing == nil {
		listing, err = uc.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
	}

	if err := uc.repo.IncrementViews(ctx, id); err != nil {
		if errors.Is(err, domain.ErrListingNotFound) {
			// deleted since it was cached
			_ = uc.cache.DeleteListing(ctx, id)
			return nil, err
		}
		uc.logger.Warn("Failed to increment listing views", zap.String("listing_id", id), zap.Error(err))
	} else {
		listing.Views++
	}

	if err := uc.cache.SetListing(ctx, listing); err != nil {
		uc.logger.Warn("Listing cache write failed", zap.String("listing_id", id), zap.Error(err))
	}
	uc.activity.Record(ctx, activitydomain.Entry{
		Actor:    actor,
		Action:   activitydomain.ActionViewListing,
		Entity:   activitydomain.EntityListing,
		EntityID: id,
	})
	return listing, nil
}

// List returns one page of listings. Anonymous callers only see listings
// that are still on the market unless they ask for a status explicitly.
func (uc *ListingUsecase) List(ctx context.Context, actor *auth.Identity, filter domain.Filter) ([]*domain.Listing, int64, error) {
	if err := filter.Validate(); err != nil {
		return nil, 0, err
	}
	filter.Normalize()
	if actor == nil && len(filter.Statuses) == 0 {
		filter.Statuses = []domain.ListingStatus{domain.StatusAvailable, domain.StatusReserved}
	}

	listings, total, err := uc.repo.Find(ctx, filter)
	if err != nil {
		uc.logger.Error("Failed to query listings", zap.Error(err))
		return nil, 0, err
	}

	if filter.Search != "" {
		uc.activity.Record(ctx, activitydomain.Entry{
			Actor:  actor,
			Action: activitydomain.ActionSearchListings,
			Entity: activitydomain.EntityListing,
			Details: map[string]interface{}{
				"search":    filter.Search,
				"land_type": string(filter.LandType),
				"sector":    filter.Sector,
				"results":   total,
			},
		})
	}
	return listings, total, nil
}

// ListMine returns the caller's own listings.
func (uc *ListingUsecase) ListMine(ctx context.Context, actor *auth.Identity, filter domain.Filter) ([]*domain.Listing, int64, error) {
	if actor == nil || !actor.Role.IsStaff() {
		return nil, 0, domain.ErrForbidden
	}
	filter.BrokerID = actor.UserID
	if err := filter.Validate(); err != nil {
		return nil, 0, err
	}
	filter.Normalize()
	return uc.repo.Find(ctx, filter)
}

// Update applies a partial update. Brokers may only edit their own listings.
func (uc *ListingUsecase) Update(ctx context.Context, actor *auth.Identity, id string, patch domain.ListingPatch) (*domain.Listing, error) {
	listing, err := uc.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	changed := patch.Apply(listing)
	if len(changed) == 0 {
		return listing, nil
	}
	trimListing(listing)
	if err := listing.Validate(); err != nil {
		return nil, err
	}

	listing.UpdatedAt = uc.now().UTC()
	if err := uc.repo.Update(ctx, listing); err != nil {
		uc.logger.Error("Failed to update listing", zap.String("listing_id", id), zap.Error(err))
		return nil, err
	}
	uc.forget(ctx, id)
	uc.publish(ctx, domain.SubjectListingUpdated, domain.NewListingEvent(listing, actor.UserID))
	uc.activity.Record(ctx, activitydomain.Entry{
		Actor:    actor,
		Action:   activitydomain.ActionUpdateListing,
		Entity:   activitydomain.EntityListing,
		EntityID: id,
		Details:  map[string]interface{}{"changed": changed},
	})
	uc.logger.Info("Listing updated", zap.String("listing_id", id), zap.Strings("changed", changed))
	return listing, nil
}

// Delete removes a listing and its stored files.
func (uc *ListingUsecase) Delete(ctx context.Context, actor *auth.Identity, id string) error {
	listing, err := uc.loadOwned(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := uc.repo.Delete(ctx, id); err != nil {
		uc.logger.Error("Failed to delete listing", zap.String("listing_id", id), zap.Error(err))
		return err
	}

	keys := make([]string, 0)
	for _, m := range listing.AllMedia() {
		keys = append(keys, m.Key)
	}
	uc.files.Remove(ctx, keys)
	uc.forget(ctx, id)

	if uc.metrics != nil {
		uc.metrics.ListingsDeletedTotal.Inc()
	}
	uc.publish(ctx, domain.SubjectListingDeleted, domain.NewListingEvent(listing, actor.UserID))
	uc.activity.Record(ctx, activitydomain.Entry{
		Actor:    actor,
		Action:   activitydomain.ActionDeleteListing,
		Entity:   activitydomain.EntityListing,
		EntityID: id,
		Details:  map[string]interface{}{"title": listing.Title},
	})
	uc.logger.Info("Listing deleted", zap.String("listing_id", id), zap.String("by", actor.UserID))
	return nil
}

// AddMedia uploads more files to an existing listing.
func (uc *ListingUsecase) AddMedia(ctx context.Context, actor *auth.Identity, id string, files []upload.File) (*domain.Listing, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files provided", domain.ErrInvalidInput)
	}
	listing, err := uc.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	stored, err := uc.storeFiles(ctx, files)
	if err != nil {
		return nil, err
	}

	byKind := map[domain.MediaKind][]domain.Media{}
	for _, f := range stored {
		kind := domain.MediaKind(f.Kind)
		byKind[kind] = append(byKind[kind], toMedia(f))
	}
	if err := uc.repo.AppendMedia(ctx, id, byKind); err != nil {
		uc.logger.Error("Failed to attach media", zap.String("listing_id", id), zap.Error(err))
		uc.files.Remove(ctx, keysOf(stored))
		return nil, err
	}
	attachMedia(listing, stored)
	uc.forget(ctx, id)

	uc.activity.Record(ctx, activitydomain.Entry{
		Actor:    actor,
		Action:   activitydomain.ActionUploadFiles,
		Entity:   activitydomain.EntityListing,
		EntityID: id,
		Details:  map[string]interface{}{"files": len(stored)},
	})
	return listing, nil
}

// SetFeatured is admin only.
func (uc *ListingUsecase) SetFeatured(ctx context.Context, actor *auth.Identity, id string, featured bool) (*domain.Listing, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	listing, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	listing.Featured = featured
	listing.UpdatedAt = uc.now().UTC()
	if err := uc.repo.Update(ctx, listing); err != nil {
		return nil, err
	}
	uc.forget(ctx, id)
	uc.activity.Record(ctx, activitydomain.Entry{
		Actor:    actor,
		Action:   activitydomain.ActionToggleFeatured,
		Entity:   activitydomain.EntityListing,
		EntityID: id,
		Details:  map[string]interface{}{"featured": featured},
	})
	return listing, nil
}

// Verify marks a listing as checked by an admin, or clears the mark.
func (uc *ListingUsecase) Verify(ctx context.Context, actor *auth.Identity, id string, verified bool, notes string) (*domain.Listing, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	listing, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := uc.now().UTC()
	listing.Verified = verified
	listing.VerificationNotes = strings.TrimSpace(notes)
	if verified {
		listing.VerifiedAt = &now
		listing.VerifiedBy = actor.UserID
	} else {
		listing.VerifiedAt = nil
		listing.VerifiedBy = ""
	}
	listing.UpdatedAt = now
	if err := uc.repo.Update(ctx, listing); err != nil {
		return nil, err
	}
	uc.forget(ctx, id)
	uc.publish(ctx, domain.SubjectListingUpdated, domain.NewListingEvent(listing, actor.UserID))
	uc.activity.Record(ctx, activitydomain.Entry{
		Actor:    actor,
		Action:   activitydomain.ActionVerifyListing,
		Entity:   activitydomain.EntityListing,
		EntityID: id,
		Details:  map[string]interface{}{"verified": verified, "notes": listing.VerificationNotes},
	})
	return listing, nil
}

// Stats returns counts for the caller: brokers see their own listings, admins all.
func (uc *ListingUsecase) Stats(ctx context.Context, actor *auth.Identity) (*domain.Stats, error) {
	if actor == nil || !actor.Role.IsStaff() {
		return nil, domain.ErrForbidden
	}
	brokerID, scope := "", statsScopeAll
	if !actor.IsAdmin() {
		brokerID, scope = actor.UserID, actor.UserID
	}

	if cached, err := uc.cache.GetStats(ctx, scope); err != nil {
		uc.logger.Warn("Stats cache read failed", zap.String("scope", scope), zap.Error(err))
	} else if cached != nil {
		return cached, nil
	}

	stats, err := uc.repo.Stats(ctx, brokerID)
	if err != nil {
		uc.logger.Error("Failed to compute listing stats", zap.String("scope", scope), zap.Error(err))
		return nil, err
	}
	if err := uc.cache.SetStats(ctx, scope, stats); err != nil {
		uc.logger.Warn("Stats cache write failed", zap.String("scope", scope), zap.Error(err))
	}
	return stats, nil
}

// SystemStats returns counts over all listings without a role check. Used by reports.
func (uc *ListingUsecase) SystemStats(ctx context.Context) (*domain.Stats, error) {
	return uc.repo.Stats(ctx, "")
}

func (uc *ListingUsecase) loadOwned(ctx context.Context, actor *auth.Identity, id string) (*domain.Listing, error) {
	if actor == nil || !actor.Role.IsStaff() {
		return nil, domain.ErrForbidden
	}
	listing, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && listing.BrokerID != actor.UserID {
		uc.logger.Warn("Listing modification forbidden",
			zap.String("listing_id", id),
			zap.String("owner_id", listing.BrokerID),
			zap.String("actor_id", actor.UserID),
		)
		return nil, domain.ErrForbidden
	}
	return listing, nil
}

func (uc *ListingUsecase) storeFiles(ctx context.Context, files []upload.File) ([]upload.StoredFile, error) {
	if len(files) == 0 {
		return nil, nil
	}
	return uc.files.Store(ctx, files)
}

func (uc *ListingUsecase) forget(ctx context.Context, id string) {
	if err := uc.cache.DeleteListing(ctx, id); err != nil {
		uc.logger.Warn("Failed to evict listing from cache", zap.String("listing_id", id), zap.Error(err))
	}
	uc.invalidateStats(ctx)
}

func (uc *ListingUsecase) invalidateStats(ctx context.Context) {
	if err := uc.cache.InvalidateStats(ctx); err != nil {
		uc.logger.Warn("Failed to invalidate stats cache", zap.Error(err))
	}
}

func (uc *ListingUsecase) publish(ctx context.Context, subject string, event domain.ListingEvent) {
	if err := uc.publisher.Publish(ctx, subject, event); err != nil {
		uc.logger.Warn("Failed to publish listing event", zap.String("subject", subject), zap.String("listing_id", event.ListingID), zap.Error(err))
	}
}

func trimListing(l *domain.Listing) {
	for _, s := range []*string{&l.Title, &l.Description, &l.District, &l.Sector, &l.Cell, &l.Village, &l.PlotNumber,
		&l.LandownerName, &l.LandownerPhone, &l.LandownerIDNumber, &l.LandownerEmail} {
		*s = strings.TrimSpace(*s)
	}
}

func toMedia(f upload.StoredFile) domain.Media {
	return domain.Media{
		URL:         f.URL,
		Key:         f.Key,
		FileName:    f.FileName,
		ContentType: f.ContentType,
		Size:        f.Size,
		UploadedAt:  f.UploadedAt,
	}
}

func attachMedia(l *domain.Listing, stored []upload.StoredFile) {
	for _, f := range stored {
		switch f.Kind {
		case upload.KindImages:
			l.Images = append(l.Images, toMedia(f))
		case upload.KindDocuments:
			l.Documents = append(l.Documents, toMedia(f))
		case upload.KindVideos:
			l.Videos = append(l.Videos, toMedia(f))
		}
	}
}

func keysOf(stored []upload.StoredFile) []string {
	keys := make([]string, 0, len(stored))
	for _, f := range stored {
		keys = append(keys, f.Key)
	}
	return keys
}
