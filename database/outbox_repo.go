package database

import (
	"context"

	"github.com/skillarena/backend/errs"
	"github.com/skillarena/backend/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MaxEventAttempts is how often a failing event is retried before it is
// parked as processed with its last error kept.
const MaxEventAttempts = 5

type OutboxRepo struct {
	db *gorm.DB
}

func NewOutboxRepo(db *gorm.DB) *OutboxRepo {
	return &OutboxRepo{db}
}

// Result is the outcome of handling one claimed event.
type Result struct {
	EventID int64
	Err     error
}

// Process claims up to limit unprocessed events in id order, hands them to
// handle and records the outcome, all in one transaction. On PostgreSQL the
// claim skips rows another worker holds.
func (r *OutboxRepo) Process(ctx context.Context, limit int, handle func([]models.ContestEvent) []Result) (int, error) {
	claimed := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Where("processed = ?", false).Order("id ASC").Limit(limit)
		if tx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate, Options: clause.LockingOptionsSkipLocked})
		}

		var events []models.ContestEvent
		if err := q.Find(&events).Error; err != nil {
			return errs.NewDatabaseError("claim", "contest events", err)
		}
		claimed = len(events)
		if claimed == 0 {
			return nil
		}

		byID := make(map[int64]models.ContestEvent, len(events))
		for _, ev := range events {
			byID[ev.ID] = ev
		}
		for _, res := range handle(events) {
			ev, ok := byID[res.EventID]
			if !ok {
				continue
			}
			changes := map[string]any{"processed": true, "last_error": ""}
			if res.Err != nil {
				attempts := ev.Attempts + 1
				changes = map[string]any{
					"attempts":   attempts,
					"last_error": res.Err.Error(),
					"processed":  attempts >= MaxEventAttempts,
				}
			}
			if err := tx.Model(&models.ContestEvent{}).Where("id = ?", ev.ID).Updates(changes).Error; err != nil {
				return errs.NewDatabaseError("update", "contest event", err)
			}
		}
		return nil
	})
	return claimed, err
}

// Pending counts events still waiting for the worker.
func (r *OutboxRepo) Pending(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.ContestEvent{}).Where("processed = ?", false).Count(&n).Error; err != nil {
		return 0, errs.NewDatabaseError("count", "contest events", err)
	}
	return n, nil
}
