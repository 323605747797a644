package usecase

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/EMe-U/plotsure/internal/activity/domain"
	"github.com/EMe-U/plotsure/internal/auth"
	inquirydomain "github.com/EMe-U/plotsure/internal/inquiry/domain"
	listingdomain "github.com/EMe-U/plotsure/internal/listing/domain"
	"github.com/EMe-U/plotsure/internal/platform/logger"
	userdomain "github.com/EMe-U/plotsure/internal/user/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultReportDays = 30
	MaxReportDays     = 365
	recentLimit       = 10
)

// CSVHeader is the first row of an activity log export.
var CSVHeader = []string{"Date", "Action", "Entity", "EntityID", "User", "Email", "Role", "IPAddress", "Details", "UserAgent"}

type UserCounter interface {
	RoleCounts(ctx context.Context) (*userdomain.RoleCounts, error)
}

type ListingCounter interface {
	SystemStats(ctx context.Context) (*listingdomain.Stats, error)
}

type InquiryCounter interface {
	SystemStats(ctx context.Context) (*inquirydomain.Stats, error)
}

type ContactCounter interface {
	SystemStats(ctx context.Context) (*inquirydomain.ContactStats, error)
}

type ActivitySummary struct {
	TotalLogs int64 `json:"total_logs"`
	Last24h   int64 `json:"last_24h"`
}

// SystemStats is the admin dashboard overview.
type SystemStats struct {
	Users     *userdomain.RoleCounts      `json:"users"`
	Listings  *listingdomain.Stats        `json:"listings"`
	Inquiries *inquirydomain.Stats        `json:"inquiries"`
	Contacts  *inquirydomain.ContactStats `json:"contacts"`
	Activity  ActivitySummary             `json:"activity"`
}

type UserActivity struct {
	UserID  string               `json:"user_id"`
	Days    int                  `json:"days"`
	Total   int64                `json:"total"`
	Summary []domain.ActionCount `json:"action_summary"`
	Recent  []*domain.Log        `json:"recent"`
}

type Trends struct {
	Days    int                  `json:"days"`
	Daily   map[string]int64     `json:"daily"`
	Actions []domain.ActionCount `json:"action_distribution"`
}

type ReportUsecase struct {
	repo      domain.Repository
	recorder  *Recorder
	users     UserCounter
	listings  ListingCounter
	inquiries InquiryCounter
	contacts  ContactCounter
	logger    *logger.Logger
	now       func() time.Time
}

func NewReportUsecase(
	repo domain.Repository,
	recorder *Recorder,
	users UserCounter,
	listings ListingCounter,
	inquiries InquiryCounter,
	contacts ContactCounter,
	log *logger.Logger,
) *ReportUsecase {
	return &ReportUsecase{
		repo:      repo,
		recorder:  recorder,
		users:     users,
		listings:  listings,
		inquiries: inquiries,
		contacts:  contacts,
		logger:    log.Named("ReportUsecase"),
		now:       time.Now,
	}
}

// Logs returns one page of activity logs, newest first.
func (uc *ReportUsecase) Logs(ctx context.Context, actor *auth.Identity, filter domain.Filter) ([]*domain.Log, int64, error) {
	if !actor.IsAdmin() {
		return nil, 0, domain.ErrForbidden
	}
	if err := validateRange(filter); err != nil {
		return nil, 0, err
	}
	filter.Normalize()
	return uc.repo.Find(ctx, filter)
}

// ExportCSV writes every log matching filter as CSV and records the export.
func (uc *ReportUsecase) ExportCSV(ctx context.Context, actor *auth.Identity, filter domain.Filter, w io.Writer) (int, error) {
	if !actor.IsAdmin() {
		return 0, domain.ErrForbidden
	}
	if err := validateRange(filter); err != nil {
		return 0, err
	}
	logs, err := uc.repo.FindAll(ctx, filter)
	if err != nil {
		uc.logger.Error("Failed to load activity logs for export", zap.Error(err))
		return 0, err
	}
	if err := WriteCSV(w, logs); err != nil {
		return 0, err
	}

	uc.recorder.Record(ctx, domain.Entry{
		Actor:   actor,
		Action:  domain.ActionExportActivityLogs,
		Entity:  domain.EntitySystem,
		Details: map[string]interface{}{"rows": len(logs)},
	})
	uc.logger.Info("Activity logs exported", zap.Int("rows", len(logs)), zap.String("by", actor.UserID))
	return len(logs), nil
}

// ExportFileName is the attachment name for an export made at now.
func ExportFileName(now time.Time) string {
	return fmt.Sprintf("activity-logs-%s.csv", now.UTC().Format("2006-01-02"))
}

// WriteCSV renders logs with CSVHeader as the first row.
func WriteCSV(w io.Writer, logs []*domain.Log) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, l := range logs {
		details := ""
		if len(l.Details) > 0 {
			raw, err := json.Marshal(l.Details)
			if err != nil {
				return fmt.Errorf("encode details of %s: %w", l.ID, err)
			}
			details = string(raw)
		}
		if err := cw.Write([]string{
			l.CreatedAt.UTC().Format(time.RFC3339),
			string(l.Action),
			string(l.Entity),
			l.EntityID,
			l.UserName,
			l.UserEmail,
			l.UserRole,
			l.IPAddress,
			details,
			l.UserAgent,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SystemStats collects the counters of every module concurrently.
func (uc *ReportUsecase) SystemStats(ctx context.Context, actor *auth.Identity) (*SystemStats, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}

	var stats SystemStats
	since := uc.now().UTC().Add(-24 * time.Hour)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats.Users, err = uc.users.RoleCounts(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.Listings, err = uc.listings.SystemStats(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.Inquiries, err = uc.inquiries.SystemStats(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.Contacts, err = uc.contacts.SystemStats(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.Activity.TotalLogs, err = uc.repo.Count(gctx, nil)
		return err
	})
	g.Go(func() (err error) {
		stats.Activity.Last24h, err = uc.repo.Count(gctx, &since)
		return err
	})
	if err := g.Wait(); err != nil {
		uc.logger.Error("Failed to collect system stats", zap.Error(err))
		return nil, err
	}
	return &stats, nil
}

// UserActivity summarizes what one user did in the last days.
func (uc *ReportUsecase) UserActivity(ctx context.Context, actor *auth.Identity, userID string, days int) (*UserActivity, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	days, err := normalizeDays(days)
	if err != nil {
		return nil, err
	}
	since := uc.now().UTC().AddDate(0, 0, -days)

	summary, err := uc.repo.CountByAction(ctx, userID, since)
	if err != nil {
		return nil, err
	}
	recent, _, err := uc.repo.Find(ctx, domain.Filter{UserID: userID, StartDate: &since, Page: 1, Limit: recentLimit})
	if err != nil {
		return nil, err
	}

	out := &UserActivity{UserID: userID, Days: days, Summary: summary, Recent: recent}
	for _, c := range summary {
		out.Total += c.Count
	}
	return out, nil
}

// Trends returns daily log counts and the action distribution of the last days.
func (uc *ReportUsecase) Trends(ctx context.Context, actor *auth.Identity, days int) (*Trends, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	days, err := normalizeDays(days)
	if err != nil {
		return nil, err
	}
	since := uc.now().UTC().AddDate(0, 0, -days)

	perDay, err := uc.repo.CountByDay(ctx, since)
	if err != nil {
		return nil, err
	}
	actions, err := uc.repo.CountByAction(ctx, "", since)
	if err != nil {
		return nil, err
	}

	daily := make(map[string]int64, len(perDay))
	for _, d := range perDay {
		daily[d.Date] = d.Count
	}
	return &Trends{Days: days, Daily: daily, Actions: actions}, nil
}

// Prune deletes logs older than retentionDays. It runs from the scheduler.
func (uc *ReportUsecase) Prune(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays < 1 {
		return 0, fmt.Errorf("%w: retention must be at least one day", domain.ErrInvalidInput)
	}
	cutoff := uc.now().UTC().AddDate(0, 0, -retentionDays)
	n, err := uc.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		uc.logger.Error("Failed to prune activity logs", zap.Time("cutoff", cutoff), zap.Error(err))
		return 0, err
	}
	uc.logger.Info("Activity logs pruned", zap.Int64("deleted", n), zap.Time("cutoff", cutoff))
	return n, nil
}

func normalizeDays(days int) (int, error) {
	if days == 0 {
		return DefaultReportDays, nil
	}
	if days < 1 || days > MaxReportDays {
		return 0, fmt.Errorf("%w: days must be between 1 and %d", domain.ErrInvalidInput, MaxReportDays)
	}
	return days, nil
}

func validateRange(f domain.Filter) error {
	if f.StartDate != nil && f.EndDate != nil && f.EndDate.Before(*f.StartDate) {
		return fmt.Errorf("%w: end_date is before start_date", domain.ErrInvalidInput)
	}
	return nil
}
