package handler

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/EMe-U/plotsure/internal/activity/domain"
	"github.com/EMe-U/plotsure/internal/activity/usecase"
	"github.com/EMe-U/plotsure/internal/adapter/http/response"
	"github.com/EMe-U/plotsure/internal/auth"
	"github.com/EMe-U/plotsure/internal/platform/logger"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ReportService interface {
	Logs(ctx context.Context, actor *auth.Identity, filter domain.Filter) ([]*domain.Log, int64, error)
	ExportCSV(ctx context.Context, actor *auth.Identity, filter domain.Filter, w io.Writer) (int, error)
	SystemStats(ctx context.Context, actor *auth.Identity) (*usecase.SystemStats, error)
	UserActivity(ctx context.Context, actor *auth.Identity, userID string, days int) (*usecase.UserActivity, error)
	Trends(ctx context.Context, actor *auth.Identity, days int) (*usecase.Trends, error)
}

// logPagination is the page metadata of activity log queries.
type logPagination struct {
	CurrentPage int   `json:"current_page"`
	TotalPages  int   `json:"total_pages"`
	TotalLogs   int64 `json:"total_logs"`
	HasNextPage bool  `json:"has_next_page"`
	HasPrevPage bool  `json:"has_prev_page"`
}

type ReportHandler struct {
	reports ReportService
	logger  *logger.Logger
	now     func() time.Time
}

func NewReportHandler(reports ReportService, log *logger.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, logger: log.Named("ReportHandler"), now: time.Now}
}

func (h *ReportHandler) ActivityLogs(w http.ResponseWriter, r *http.Request) {
	filter, ok := activityFilter(w, r)
	if !ok {
		return
	}
	logs, total, err := h.reports.Logs(r.Context(), auth.IdentityFromContext(r.Context()), filter)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if logs == nil {
		logs = []*domain.Log{}
	}
	filter.Normalize()
	p := response.NewPagination(filter.Page, filter.Limit, total)
	response.JSON(w, http.StatusOK, "", map[string]interface{}{
		"logs": logs,
		"pagination": logPagination{
			CurrentPage: p.CurrentPage,
			TotalPages:  p.TotalPages,
			TotalLogs:   total,
			HasNextPage: p.HasNextPage,
			HasPrevPage: p.HasPrevPage,
		},
	})
}

// AdminActivityLogs serves JSON or, with format=csv, the export.
func (h *ReportHandler) AdminActivityLogs(w http.ResponseWriter, r *http.Request) {
	switch strings.ToLower(r.URL.Query().Get("format")) {
	case "", "json":
		h.ActivityLogs(w, r)
	case "csv":
		h.ExportActivityLogs(w, r)
	default:
		response.Error(w, http.StatusBadRequest, response.CodeValidation, "Invalid query parameters",
			map[string]string{"format": "must be json or csv"})
	}
}

func (h *ReportHandler) ExportActivityLogs(w http.ResponseWriter, r *http.Request) {
	filter, ok := activityFilter(w, r)
	if !ok {
		return
	}
	out := &csvResponse{w: w, fileName: usecase.ExportFileName(h.now())}
	rows, err := h.reports.ExportCSV(r.Context(), auth.IdentityFromContext(r.Context()), filter, out)
	if err != nil {
		if !out.started {
			respondError(w, r, h.logger, err)
			return
		}
		h.logger.Error("Activity log export aborted mid-stream", zap.Error(err))
		return
	}
	h.logger.Debug("Activity log export sent", zap.Int("rows", rows))
}

// csvResponse sends the attachment headers on the first write, so a
// failure before any row still gets a JSON error.
type csvResponse struct {
	w        http.ResponseWriter
	fileName string
	started  bool
}

func (c *csvResponse) Write(p []byte) (int, error) {
	if !c.started {
		c.started = true
		h := c.w.Header()
		h.Set("Content-Type", "text/csv; charset=utf-8")
		h.Set("Content-Disposition", "attachment; filename="+c.fileName)
		c.w.WriteHeader(http.StatusOK)
	}
	return c.w.Write(p)
}

func (h *ReportHandler) SystemStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.reports.SystemStats(r.Context(), auth.IdentityFromContext(r.Context()))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, "", stats)
}

func (h *ReportHandler) UserActivity(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	days := q.positiveInt("days", usecase.DefaultReportDays)
	if !q.ok(w) {
		return
	}
	activity, err := h.reports.UserActivity(r.Context(), auth.IdentityFromContext(r.Context()), chi.URLParam(r, "user_id"), days)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, "", activity)
}

func (h *ReportHandler) Trends(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	days := q.positiveInt("days", usecase.DefaultReportDays)
	if !q.ok(w) {
		return
	}
	trends, err := h.reports.Trends(r.Context(), auth.IdentityFromContext(r.Context()), days)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, "", trends)
}

func activityFilter(w http.ResponseWriter, r *http.Request) (domain.Filter, bool) {
	q := newQuery(r)
	f := domain.Filter{
		Action:    domain.Action(q.str("action")),
		Entity:    domain.Entity(q.str("entity")),
		UserID:    q.str("user_id"),
		StartDate: q.date("start_date", false),
		EndDate:   q.date("end_date", true),
		Search:    q.str("search"),
		Page:      q.page(),
		Limit:     q.positiveInt("limit", domain.DefaultPageLimit),
	}
	return f, q.ok(w)
}
