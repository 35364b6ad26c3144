package workers

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/skillarena/backend/database"
	"github.com/skillarena/backend/errs"
	"github.com/skillarena/backend/metrics"
	"github.com/skillarena/backend/models"
	"github.com/skillarena/backend/services"
)

// EventQueue is the outbox the worker drains; *database.OutboxRepo implements it.
type EventQueue interface {
	Process(ctx context.Context, limit int, handle func([]models.ContestEvent) []database.Result) (int, error)
	Pending(ctx context.Context) (int64, error)
}

type ContestLookup interface {
	GetContest(ctx context.Context, id uuid.UUID) (models.Contest, error)
}

type UserLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (models.User, error)
}

// Indexer keeps the contest search index in sync; *services.ContestSearch implements it.
type Indexer interface {
	Index(ctx context.Context, c models.Contest) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

type Notifier interface {
	SendEmail(ctx context.Context, subject, body string, recipients []string) error
}

// OutboxWorker turns committed contest events into search updates, cache
// invalidations and emails. Every sink is optional.
type OutboxWorker struct {
	queue    EventQueue
	contests ContestLookup
	users    UserLookup
	indexer  Indexer
	cache    CacheInvalidator
	notifier Notifier
	interval time.Duration
	batch    int
}

type Option func(*OutboxWorker)

func WithIndexer(i Indexer) Option {
	return func(w *OutboxWorker) { w.indexer = i }
}

func WithCache(c CacheInvalidator) Option {
	return func(w *OutboxWorker) { w.cache = c }
}

func WithNotifier(n Notifier) Option {
	return func(w *OutboxWorker) { w.notifier = n }
}

func WithInterval(d time.Duration) Option {
	return func(w *OutboxWorker) {
		if d > 0 {
			w.interval = d
		}
	}
}

func WithBatchSize(n int) Option {
	return func(w *OutboxWorker) {
		if n > 0 {
			w.batch = n
		}
	}
}

func NewOutboxWorker(queue EventQueue, contests ContestLookup, users UserLookup, opts ...Option) *OutboxWorker {
	w := &OutboxWorker{
		queue:    queue,
		contests: contests,
		users:    users,
		interval: 2 * time.Second,
		batch:    100,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run polls the outbox until ctx is cancelled.
func (w *OutboxWorker) Run(ctx context.Context) error {
	log.Info().Dur("interval", w.interval).Int("batch", w.batch).Msg("Outbox worker started")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Outbox worker stopped")
			return nil
		case <-ticker.C:
			if err := w.Drain(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("Outbox worker pass failed")
			}
		}
	}
}

// Drain processes batches until the outbox holds no more claimable events.
// A batch with a failure ends the pass, so retries wait for the next tick.
func (w *OutboxWorker) Drain(ctx context.Context) error {
	for {
		failed := false
		claimed, err := w.queue.Process(ctx, w.batch, func(events []models.ContestEvent) []database.Result {
			results := w.handleBatch(ctx, events)
			for _, res := range results {
				if res.Err != nil {
					failed = true
				}
			}
			return results
		})
		if err != nil {
			return err
		}
		if failed || claimed < w.batch {
			break
		}
	}
	if pending, err := w.queue.Pending(ctx); err == nil {
		metrics.PendingEvents.Set(float64(pending))
	}
	return nil
}

func (w *OutboxWorker) handleBatch(ctx context.Context, events []models.ContestEvent) []database.Result {
	results := make([]database.Result, 0, len(events))
	for _, ev := range events {
		err := w.handle(ctx, ev)
		if err != nil {
			metrics.FailedEvents.WithLabelValues(string(ev.Kind)).Inc()
			log.Warn().Err(err).Int64("eventId", ev.ID).Str("kind", string(ev.Kind)).
				Int("attempt", ev.Attempts+1).Msg("Failed to handle contest event")
		} else {
			metrics.ProcessedEvents.WithLabelValues(string(ev.Kind)).Inc()
		}
		results = append(results, database.Result{EventID: ev.ID, Err: err})
	}
	return results
}

type eventPayload struct {
	Name       string    `json:"name"`
	CreatorID  uuid.UUID `json:"creatorId"`
	PrizeMoney string    `json:"prizeMoney"`
}

func (w *OutboxWorker) handle(ctx context.Context, ev models.ContestEvent) error {
	var payload eventPayload
	if len(ev.Payload) > 0 {
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return errs.NewMalformedPayloadError(string(ev.Kind), err)
		}
	}

	switch ev.Kind {
	case models.EventContestCreated, models.EventContestUpdated:
		return w.reindex(ctx, ev.ContestID)

	case models.EventContestDeleted:
		if w.indexer != nil {
			if err := w.indexer.Delete(ctx, ev.ContestID); err != nil {
				return err
			}
		}
		return w.invalidateLeaderboard(ctx)

	case models.EventParticipantRegistered:
		return w.invalidateLeaderboard(ctx)

	case models.EventContestApproved, models.EventContestRejected:
		if err := w.reindex(ctx, ev.ContestID); err != nil {
			return err
		}
		return w.notifyCreator(ctx, payload, ev.Kind == models.EventContestApproved)

	case models.EventWinnerDeclared:
		if err := w.reindex(ctx, ev.ContestID); err != nil {
			return err
		}
		if err := w.invalidateLeaderboard(ctx); err != nil {
			return err
		}
		return w.notifyWinner(ctx, ev, payload)
	}
	// submission.recorded changes nothing the index or the leaderboard hold
	return nil
}

// invalidateLeaderboard drops the cached leaderboard. Wins, contests joined
// and win rate all move with registrations, winners and deletions.
func (w *OutboxWorker) invalidateLeaderboard(ctx context.Context) error {
	if w.cache == nil {
		return nil
	}
	return w.cache.Invalidate(ctx)
}

func (w *OutboxWorker) reindex(ctx context.Context, id uuid.UUID) error {
	if w.indexer == nil {
		return nil
	}
	c, err := w.contests.GetContest(ctx, id)
	if errors.Is(err, errs.ErrNotFound) {
		return w.indexer.Delete(ctx, id)
	}
	if err != nil {
		return err
	}
	return w.indexer.Index(ctx, c)
}

func (w *OutboxWorker) notifyCreator(ctx context.Context, p eventPayload, approved bool) error {
	if w.notifier == nil || p.CreatorID == uuid.Nil {
		return nil
	}
	creator, err := w.users.FindByID(ctx, p.CreatorID)
	if errors.Is(err, errs.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	subject, body := services.ReviewEmail(creator.Name, p.Name, approved)
	return w.notifier.SendEmail(ctx, subject, body, []string{creator.Email})
}

func (w *OutboxWorker) notifyWinner(ctx context.Context, ev models.ContestEvent, p eventPayload) error {
	if w.notifier == nil || ev.SubjectID == nil {
		return nil
	}
	winner, err := w.users.FindByID(ctx, *ev.SubjectID)
	if errors.Is(err, errs.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	subject, body := services.WinnerEmail(winner.Name, p.Name, p.PrizeMoney)
	return w.notifier.SendEmail(ctx, subject, body, []string{winner.Email})
}
