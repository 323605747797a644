package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	activitydomain "github.com/EMe-U/plotsure/internal/activity/domain"
	"github.com/EMe-U/plotsure/internal/auth"
	"github.com/EMe-U/plotsure/internal/inquiry/domain"
	listingdomain "github.com/EMe-U/plotsure/internal/listing/domain"
	"github.com/EMe-U/plotsure/internal/platform/logger"
	"github.com/EMe-U/plotsure/internal/platform/metrics"
	userdomain "github.com/EMe-U/plotsure/internal/user/domain"
	"go.uber.org/zap"
)

type EventPublisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
}

type ActivityRecorder interface {
	Record(ctx context.Context, entry activitydomain.Entry)
}

// ListingReader resolves the listing an inquiry refers to.
type ListingReader interface {
	GetByID(ctx context.Context, id string) (*listingdomain.Listing, error)
}

// UserReader resolves brokers for notifications and assignment.
type UserReader interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
}

// Notifier sends notification mails to staff.
type Notifier interface {
	SendInquiryNotification(toEmail string, inquiry *domain.Inquiry) error
	SendContactNotification(toEmail string, contact *domain.Contact) error
}

type InquiryUsecase struct {
	repo        domain.InquiryRepository
	listings    ListingReader
	users       UserReader
	publisher   EventPublisher
	activity    ActivityRecorder
	notifier    Notifier
	notifyEmail string
	metrics     *metrics.MetricsManager
	logger      *logger.Logger
	now         func() time.Time
}

func NewInquiryUsecase(
	repo domain.InquiryRepository,
	listings ListingReader,
	users UserReader,
	publisher EventPublisher,
	activity ActivityRecorder,
	notifier Notifier,
	notifyEmail string,
	mm *metrics.MetricsManager,
	log *logger.Logger,
) *InquiryUsecase {
	return &InquiryUsecase{
		repo:        repo,
		listings:    listings,
		users:       users,
		publisher:   publisher,
		activity:    activity,
		notifier:    notifier,
		notifyEmail: notifyEmail,
		metrics:     mm,
		logger:      log.Named("InquiryUsecase"),
		now:         time.Now,
	}
}

// Create stores a public inquiry and notifies the listing's broker.
func (uc *InquiryUsecase) Create(ctx context.Context, actor *auth.Identity, inquiry *domain.Inquiry) (*domain.Inquiry, error) {
	inquiry.ID = ""
	inquiry.Status = ""
	inquiry.AssignedTo = ""
	inquiry.Notes = ""
	inquiry.ConversionValue = nil
	inquiry.RespondedAt, inquiry.ConvertedAt = nil, nil
	inquiry.ApplyDefaults()
	if err := inquiry.Validate(); err != nil {
		return nil, err
	}

	if inquiry.ListingID != "" {
		listing, err := uc.listings.GetByID(ctx, inquiry.ListingID)
		if err != nil {
			if errors.Is(err, listingdomain.ErrListingNotFound) {
				return nil, fmt.Errorf("%w: %s", domain.ErrListingNotFound, inquiry.ListingID)
			}
			return nil, err
		}
		inquiry.ListingTitle = listing.Title
		inquiry.BrokerID = listing.BrokerID
	}

	now := uc.now().UTC()
	inquiry.CreatedAt = now
	inquiry.UpdatedAt = now
	if err := uc.repo.Create(ctx, inquiry); err != nil {
		uc.logger.Error("Failed to create inquiry", zap.String("listing_id", inquiry.ListingID), zap.Error(err))
		return nil, err
	}
	uc.logger.Info("Inquiry created",
		zap.String("inquiry_id", inquiry.ID),
		zap.String("listing_id", inquiry.ListingID),
		zap.String("type", string(inquiry.InquiryType)),
	)

	if uc.metrics != nil {
		uc.metrics.InquiriesCreatedTotal.Inc()
	}
	uc.publish(ctx, domain.SubjectInquiryCreated, domain.InquiryEvent{
		InquiryID:   inquiry.ID,
		ListingID:   inquiry.ListingID,
		BrokerID:    inquiry.BrokerID,
		InquiryType: inquiry.InquiryType,
		Status:      inquiry.Status,
	})
	uc.notify(ctx, inquiry)
	uc.activity.Record(ctx, activitydomain.Entry{
		Actor:    actor,
		Action:   activitydomain.ActionCreateInquiry,
		Entity:   activitydomain.EntityInquiry,
		EntityID: inquiry.ID,
		Details: map[string]interface{}{
			"listing_id":   inquiry.ListingID,
			"inquiry_type": string(inquiry.InquiryType),
			"email":        inquiry.InquirerEmail,
		},
	})
	return inquiry, nil
}

// notify mails the listing's broker, or the shared inbox when there is none.
func (uc *InquiryUsecase) notify(ctx context.Context, inquiry *domain.Inquiry) {
	if uc.notifier == nil {
		return
	}
	to := uc.notifyEmail
	if inquiry.BrokerID != "" {
		broker, err := uc.users.GetByID(ctx, inquiry.BrokerID)
		if err != nil {
			uc.logger.Warn("Could not load broker for inquiry notification", zap.String("broker_id", inquiry.BrokerID), zap.Error(err))
		} else if broker.IsActive && broker.Email != "" {
			to = broker.Email
		}
	}
	if to == "" {
		return
	}
	if err := uc.notifier.SendInquiryNotification(to, inquiry); err != nil {
		uc.logger.Warn("Failed to send inquiry notification", zap.String("inquiry_id", inquiry.ID), zap.String("to", to), zap.Error(err))
	}
}

// List returns one page of inquiries the caller may see.
func (uc *InquiryUsecase) List(ctx context.Context, actor *auth.Identity, filter domain.Filter) ([]*domain.Inquiry, int64, error) {
	if err := requireStaff(actor); err != nil {
		return nil, 0, err
	}
	if err := validateFilter(filter); err != nil {
		return nil, 0, err
	}
	filter.VisibleTo = ""
	if !actor.IsAdmin() {
		filter.VisibleTo = actor.UserID
	}
	filter.Normalize()
	return uc.repo.Find(ctx, filter)
}

func (uc *InquiryUsecase) Stats(ctx context.Context, actor *auth.Identity) (*domain.Stats, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	visibleTo := ""
	if !actor.IsAdmin() {
		visibleTo = actor.UserID
	}
	counts, err := uc.repo.CountByStatus(ctx, visibleTo)
	if err != nil {
		return nil, err
	}
	return domain.NewStats(counts), nil
}

// SystemStats counts all inquiries. Used by reports.
func (uc *InquiryUsecase) SystemStats(ctx context.Context) (*domain.Stats, error) {
	counts, err := uc.repo.CountByStatus(ctx, "")
	if err != nil {
		return nil, err
	}
	return domain.NewStats(counts), nil
}

func (uc *InquiryUsecase) Get(ctx context.Context, actor *auth.Identity, id string) (*domain.Inquiry, error) {
	return uc.loadVisible(ctx, actor, id)
}

// UpdateStatus moves an inquiry to status. Moving to responded or converted
// stamps the matching timestamp the first time.
func (uc *InquiryUsecase) UpdateStatus(ctx context.Context, actor *auth.Identity, id string, status domain.Status, notes *string) (*domain.Inquiry, error) {
	if !status.IsValid() {
		return nil, &domain.ValidationError{Fields: map[string]string{"status": "must be new, contacted, responded, converted or closed"}}
	}
	inquiry, err := uc.loadVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	old := inquiry.Status
	now := uc.now().UTC()
	inquiry.Status = status
	if notes != nil {
		inquiry.Notes = strings.TrimSpace(*notes)
	}
	stampStatus(inquiry, now)
	inquiry.UpdatedAt = now

	if err := uc.repo.Update(ctx, inquiry); err != nil {
		uc.logger.Error("Failed to update inquiry status", zap.String("inquiry_id", id), zap.Error(err))
		return nil, err
	}
	uc.statusChanged(ctx, actor, inquiry, old, activitydomain.ActionUpdateInquiry, nil)
	return inquiry, nil
}

// Convert marks an inquiry as a closed sale.
func (uc *InquiryUsecase) Convert(ctx context.Context, actor *auth.Identity, id string, value *float64) (*domain.Inquiry, error) {
	if value != nil && *value < 0 {
		return nil, &domain.ValidationError{Fields: map[string]string{"conversion_value": "must be a positive number"}}
	}
	inquiry, err := uc.loadVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	old := inquiry.Status
	now := uc.now().UTC()
	inquiry.Status = domain.StatusConverted
	if value != nil {
		v := *value
		inquiry.ConversionValue = &v
	}
	stampStatus(inquiry, now)
	inquiry.UpdatedAt = now

	if err := uc.repo.Update(ctx, inquiry); err != nil {
		return nil, err
	}
	details := map[string]interface{}{}
	if value != nil {
		details["conversion_value"] = *value
	}
	uc.statusChanged(ctx, actor, inquiry, old, activitydomain.ActionConvertInquiry, details)
	return inquiry, nil
}

// Assign hands an inquiry to an active broker or admin. Admin only.
func (uc *InquiryUsecase) Assign(ctx context.Context, actor *auth.Identity, id, userID string) (*domain.Inquiry, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, &domain.ValidationError{Fields: map[string]string{"user_id": "is required"}}
	}
	assignee, err := uc.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, userdomain.ErrNotFound) {
			return nil, &domain.ValidationError{Fields: map[string]string{"user_id": "user not found"}}
		}
		return nil, err
	}
	if !assignee.IsActive || !assignee.Role.IsStaff() {
		return nil, &domain.ValidationError{Fields: map[string]string{"user_id": "must be an active broker or admin"}}
	}

	inquiry, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	inquiry.AssignedTo = assignee.ID
	inquiry.UpdatedAt = uc.now().UTC()
	if err := uc.repo.Update(ctx, inquiry); err != nil {
		return nil, err
	}
	uc.logger.Info("Inquiry assigned", zap.String("inquiry_id", id), zap.String("assigned_to", assignee.ID))
	uc.activity.Record(ctx, activitydomain.Entry{
		Actor:    actor,
		Action:   activitydomain.ActionAssignInquiry,
		Entity:   activitydomain.EntityInquiry,
		EntityID: id,
		Details:  map[string]interface{}{"assigned_to": assignee.ID, "assignee_name": assignee.Name},
	})
	return inquiry, nil
}

// Delete is admin only.
func (uc *InquiryUsecase) Delete(ctx context.Context, actor *auth.Identity, id string) error {
	if !actor.IsAdmin() {
		return domain.ErrForbidden
	}
	if err := uc.repo.Delete(ctx, id); err != nil {
		return err
	}
	uc.logger.Info("Inquiry deleted", zap.String("inquiry_id", id), zap.String("by", actor.UserID))
	uc.activity.Record(ctx, activitydomain.Entry{
		Actor:    actor,
		Action:   activitydomain.ActionDeleteInquiry,
		Entity:   activitydomain.EntityInquiry,
		EntityID: id,
	})
	return nil
}

func (uc *InquiryUsecase) loadVisible(ctx context.Context, actor *auth.Identity, id string) (*domain.Inquiry, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	inquiry, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && inquiry.BrokerID != actor.UserID && inquiry.AssignedTo != actor.UserID {
		return nil, domain.ErrForbidden
	}
	return inquiry, nil
}

func (uc *InquiryUsecase) statusChanged(ctx context.Context, actor *auth.Identity, inquiry *domain.Inquiry, old domain.Status, action activitydomain.Action, details map[string]interface{}) {
	if details == nil {
		details = map[string]interface{}{}
	}
	details["old_status"] = string(old)
	details["new_status"] = string(inquiry.Status)

	if old != inquiry.Status {
		uc.publish(ctx, domain.SubjectInquiryStatusChanged, domain.InquiryEvent{
			InquiryID:   inquiry.ID,
			ListingID:   inquiry.ListingID,
			BrokerID:    inquiry.BrokerID,
			InquiryType: inquiry.InquiryType,
			Status:      inquiry.Status,
			OldStatus:   old,
			ActorID:     actor.UserID,
		})
	}
	uc.activity.Record(ctx, activitydomain.Entry{
		Actor:    actor,
		Action:   action,
		Entity:   activitydomain.EntityInquiry,
		EntityID: inquiry.ID,
		Details:  details,
	})
	uc.logger.Info("Inquiry status changed", zap.String("inquiry_id", inquiry.ID), zap.String("from", string(old)), zap.String("to", string(inquiry.Status)))
}

func (uc *InquiryUsecase) publish(ctx context.Context, subject string, event interface{}) {
	if err := uc.publisher.Publish(ctx, subject, event); err != nil {
		uc.logger.Warn("Failed to publish inquiry event", zap.String("subject", subject), zap.Error(err))
	}
}

func stampStatus(inquiry *domain.Inquiry, now time.Time) {
	switch inquiry.Status {
	case domain.StatusResponded:
		if inquiry.RespondedAt == nil {
			inquiry.RespondedAt = &now
		}
	case domain.StatusConverted:
		if inquiry.ConvertedAt == nil {
			inquiry.ConvertedAt = &now
		}
	}
}

func requireStaff(actor *auth.Identity) error {
	if actor == nil || !actor.Role.IsStaff() {
		return domain.ErrForbidden
	}
	return nil
}

func validateFilter(f domain.Filter) error {
	fields := map[string]string{}
	if f.Status != "" && !f.Status.IsValid() {
		fields["status"] = "unknown status"
	}
	if f.Priority != "" && !f.Priority.IsValid() {
		fields["priority"] = "unknown priority"
	}
	if f.InquiryType != "" && !f.InquiryType.IsValid() {
		fields["inquiry_type"] = "unknown inquiry type"
	}
	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}
