package usecase

import (
	"context"
	"time"

	activitydomain "github.com/EMe-U/plotsure/internal/activity/domain"
	"github.com/EMe-U/plotsure/internal/auth"
	"github.com/EMe-U/plotsure/internal/inquiry/domain"
	"github.com/EMe-U/plotsure/internal/platform/logger"
	"github.com/EMe-U/plotsure/internal/platform/metrics"
	"go.uber.org/zap"
)

type ContactUsecase struct {
	repo        domain.ContactRepository
	publisher   EventPublisher
	activity    ActivityRecorder
	notifier    Notifier
	notifyEmail string
	metrics     *metrics.MetricsManager
	logger      *logger.Logger
	now         func() time.Time
}

func NewContactUsecase(
	repo domain.ContactRepository,
	publisher EventPublisher,
	activity ActivityRecorder,
	notifier Notifier,
	notifyEmail string,
	mm *metrics.MetricsManager,
	log *logger.Logger,
) *ContactUsecase {
	return &ContactUsecase{
		repo:        repo,
		publisher:   publisher,
		activity:    activity,
		notifier:    notifier,
		notifyEmail: notifyEmail,
		metrics:     mm,
		logger:      log.Named("ContactUsecase"),
		now:         time.Now,
	}
}

// Submit stores a contact form message and notifies the shared inbox.
func (uc *ContactUsecase) Submit(ctx context.Context, actor *auth.Identity, contact *domain.Contact) (*domain.Contact, error) {
	contact.ID = ""
	contact.Status = ""
	contact.ApplyDefaults()
	if err := contact.Validate(); err != nil {
		return nil, err
	}

	now := uc.now().UTC()
	contact.CreatedAt = now
	contact.UpdatedAt = now
	if err := uc.repo.Create(ctx, contact); err != nil {
		uc.logger.Error("Failed to store contact message", zap.Error(err))
		return nil, err
	}
	uc.logger.Info("Contact message received", zap.String("contact_id", contact.ID), zap.String("subject", string(contact.Subject)))

	if uc.metrics != nil {
		uc.metrics.ContactsCreatedTotal.Inc()
	}
	if uc.notifier != nil && uc.notifyEmail != "" {
		if err := uc.notifier.SendContactNotification(uc.notifyEmail, contact); err != nil {
			uc.logger.Warn("Failed to send contact notification", zap.String("contact_id", contact.ID), zap.Error(err))
		}
	}
	if err := uc.publisher.Publish(ctx, domain.SubjectContactCreated, domain.ContactEvent{
		ContactID: contact.ID,
		Subject:   contact.Subject,
		Email:     contact.Email,
	}); err != nil {
		uc.logger.Warn("Failed to publish contact event", zap.String("contact_id", contact.ID), zap.Error(err))
	}
	uc.activity.Record(ctx, activitydomain.Entry{
		Actor:    actor,
		Action:   activitydomain.ActionSubmitContact,
		Entity:   activitydomain.EntityContact,
		EntityID: contact.ID,
		Details:  map[string]interface{}{"subject": string(contact.Subject), "email": contact.Email},
	})
	return contact, nil
}

func (uc *ContactUsecase) List(ctx context.Context, actor *auth.Identity, filter domain.ContactFilter) ([]*domain.Contact, int64, error) {
	if err := requireStaff(actor); err != nil {
		return nil, 0, err
	}
	fields := map[string]string{}
	if filter.Status != "" && !filter.Status.IsValid() {
		fields["status"] = "unknown status"
	}
	if filter.Subject != "" && !filter.Subject.IsValid() {
		fields["subject"] = "unknown subject"
	}
	if len(fields) > 0 {
		return nil, 0, &domain.ValidationError{Fields: fields}
	}
	filter.Normalize()
	return uc.repo.Find(ctx, filter)
}

func (uc *ContactUsecase) Stats(ctx context.Context, actor *auth.Identity) (*domain.ContactStats, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	return uc.SystemStats(ctx)
}

// SystemStats counts contact messages without a role check. Used by reports.
func (uc *ContactUsecase) SystemStats(ctx context.Context) (*domain.ContactStats, error) {
	counts, err := uc.repo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	return domain.NewContactStats(counts), nil
}

func (uc *ContactUsecase) UpdateStatus(ctx context.Context, actor *auth.Identity, id string, status domain.ContactStatus) (*domain.Contact, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if !status.IsValid() {
		return nil, &domain.ValidationError{Fields: map[string]string{"status": "must be new, in_progress, resolved or closed"}}
	}
	contact, err := uc.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	uc.activity.Record(ctx, activitydomain.Entry{
		Actor:    actor,
		Action:   activitydomain.ActionUpdateContact,
		Entity:   activitydomain.EntityContact,
		EntityID: id,
		Details:  map[string]interface{}{"status": string(status)},
	})
	return contact, nil
}
