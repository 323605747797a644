package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/EMe-U/plotsure/internal/adapter/http/response"
	"github.com/EMe-U/plotsure/internal/platform/logger"
	"go.uber.org/zap"
)

const healthCheckTimeout = 3 * time.Second

// Checker pings one dependency.
type Checker func(ctx context.Context) error

type HealthHandler struct {
	service string
	started time.Time
	checks  map[string]Checker
	logger  *logger.Logger
	now     func() time.Time
}

func NewHealthHandler(service string, checks map[string]Checker, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		service: service,
		started: time.Now(),
		checks:  checks,
		logger:  log.Named("HealthHandler"),
		now:     time.Now,
	}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	response.JSON(w, http.StatusOK, "PlotSure API is running", map[string]interface{}{
		"status":    "ok",
		"service":   h.service,
		"timestamp": now.UTC().Format(time.RFC3339),
		"uptime":    now.Sub(h.started).Seconds(),
	})
}

// Dependencies pings every registered dependency and answers 503 if any fails.
func (h *HealthHandler) Dependencies(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string]string, len(names))
	healthy := true
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			healthy = false
			results[name] = "unavailable"
			h.logger.Warn("Dependency check failed", zap.String("dependency", name), zap.Error(err))
			continue
		}
		results[name] = "ok"
	}

	data := map[string]interface{}{
		"status":    "ok",
		"checks":    results,
		"timestamp": h.now().UTC().Format(time.RFC3339),
	}
	if !healthy {
		data["status"] = "unavailable"
		response.ErrorWithData(w, http.StatusServiceUnavailable, response.CodeServiceUnavailable, "Database connection failed", data)
		return
	}
	response.JSON(w, http.StatusOK, "Database connection is healthy", data)
}
