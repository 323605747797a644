package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/EMe-U/plotsure/internal/activity/domain"
	"github.com/EMe-U/plotsure/internal/auth"
	"github.com/EMe-U/plotsure/internal/platform/logger"
	"go.uber.org/zap"
)

const (
	recordTimeout    = 5 * time.Second
	defaultQueueSize = 1024
)

// Recorder writes activity log entries from a background worker. Record
// never blocks the request: entries are queued, a full queue drops the
// entry with a warning, and a failed write is logged.
type Recorder struct {
	repo   domain.Repository
	logger *logger.Logger
	now    func() time.Time

	queue  chan *domain.Log
	done   chan struct{}
	mu     sync.RWMutex
	closed bool
}

func NewRecorder(repo domain.Repository, log *logger.Logger) *Recorder {
	return newRecorder(repo, log, defaultQueueSize)
}

func newRecorder(repo domain.Repository, log *logger.Logger, queueSize int) *Recorder {
	r := &Recorder{
		repo:   repo,
		logger: log.Named("ActivityRecorder"),
		now:    time.Now,
		queue:  make(chan *domain.Log, queueSize),
		done:   make(chan struct{}),
	}
	go r.run()
	return r
}

// Record snapshots the actor and the request metadata carried by ctx and
// queues the entry. The write does not depend on ctx staying alive.
func (r *Recorder) Record(ctx context.Context, entry domain.Entry) {
	meta := auth.RequestMetaFromContext(ctx)
	log := &domain.Log{
		Action:    entry.Action,
		Entity:    entry.Entity,
		EntityID:  entry.EntityID,
		Details:   entry.Details,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		CreatedAt: r.now().UTC(),
	}
	actor := entry.Actor
	if actor == nil {
		actor = auth.IdentityFromContext(ctx)
	}
	if actor != nil {
		log.UserID = actor.UserID
		log.UserName = actor.Name
		log.UserEmail = actor.Email
		log.UserRole = string(actor.Role)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.logger.Warn("Recorder closed, activity dropped", zap.String("action", string(entry.Action)))
		return
	}
	select {
	case r.queue <- log:
	default:
		r.logger.Warn("Activity queue full, entry dropped",
			zap.String("action", string(entry.Action)),
			zap.String("entity_id", entry.EntityID),
		)
	}
}

func (r *Recorder) run() {
	defer close(r.done)
	for log := range r.queue {
		r.write(log)
	}
}

func (r *Recorder) write(log *domain.Log) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := r.repo.Create(ctx, log); err != nil {
		r.logger.Warn("Failed to record activity",
			zap.String("action", string(log.Action)),
			zap.String("entity_id", log.EntityID),
			zap.Error(err),
		)
	}
}

// Close stops accepting entries and waits until the queued ones are
// written or ctx ends. It is safe to call more than once.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		r.logger.Warn("Activity queue not drained before shutdown", zap.Int("pending", len(r.queue)))
		return ctx.Err()
	}
}
