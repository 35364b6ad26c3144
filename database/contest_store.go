package database

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/skillarena/backend/errs"
	"github.com/skillarena/backend/lifecycle"
	"github.com/skillarena/backend/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/plugin/dbresolver"
)

// ContestStore is the gorm implementation of lifecycle.Store. Every contest
// write is conditional on the version the caller read.
type ContestStore struct {
	db *gorm.DB
}

var _ lifecycle.Store = (*ContestStore)(nil)

func NewContestStore(db *gorm.DB) *ContestStore {
	return &ContestStore{db}
}

// GetContest reads from the primary so a following Commit sees the same version.
func (s *ContestStore) GetContest(ctx context.Context, id uuid.UUID) (models.Contest, error) {
	var c models.Contest
	err := s.db.WithContext(ctx).Clauses(dbresolver.Write).First(&c, "id = ?", id).Error
	if err != nil {
		return models.Contest{}, errs.NewDatabaseError("find", "contest", err)
	}
	return c, nil
}

func (s *ContestStore) ListContests(ctx context.Context, q lifecycle.ContestQuery) ([]models.Contest, error) {
	tx := s.db.WithContext(ctx).Model(&models.Contest{})
	if q.Type != "" {
		tx = tx.Where("type = ?", q.Type)
	}
	if len(q.Statuses) > 0 {
		tx = tx.Where("status IN ?", q.Statuses)
	}
	if q.CreatorID != uuid.Nil {
		tx = tx.Where("creator_id = ?", q.CreatorID)
	}
	if q.IDs != nil {
		if len(q.IDs) == 0 {
			return []models.Contest{}, nil
		}
		tx = tx.Where("id IN ?", q.IDs)
	}
	if search := strings.TrimSpace(q.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		tx = tx.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}

	var contests []models.Contest
	if err := tx.Order("created_at DESC").Find(&contests).Error; err != nil {
		return nil, errs.NewDatabaseError("list", "contests", err)
	}
	return contests, nil
}

func (s *ContestStore) CreateContest(ctx context.Context, c models.Contest, events []models.ContestEvent) (models.Contest, error) {
	c.Version = 1
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&c).Error; err != nil {
			return errs.NewDatabaseError("create", "contest", err)
		}
		return insertEvents(tx, events)
	})
	if err != nil {
		return models.Contest{}, err
	}
	return c, nil
}

// Commit applies m in one transaction. The contest row is written only when
// its stored version still equals m.Contest.Version.
func (s *ContestStore) Commit(ctx context.Context, m lifecycle.Mutation) (models.Contest, error) {
	var saved models.Contest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		id, version := m.Contest.ID, m.Contest.Version

		if m.Delete {
			res := tx.Where("id = ? AND version = ?", id, version).Delete(&models.Contest{})
			if res.Error != nil {
				return errs.NewDatabaseError("delete", "contest", res.Error)
			}
			if res.RowsAffected == 0 {
				return lostRace(tx, id)
			}
			if err := tx.Where("contest_id = ?", id).Delete(&models.Submission{}).Error; err != nil {
				return errs.NewDatabaseError("delete", "submissions", err)
			}
			saved = m.Contest
			return insertEvents(tx, m.Events)
		}

		next := m.Contest
		next.Version = version + 1
		next.UpdatedAt = time.Now().UTC()
		res := tx.Model(&models.Contest{}).
			Where("id = ? AND version = ?", id, version).
			Updates(map[string]any{
				"name":             next.Name,
				"description":      next.Description,
				"task_instruction": next.TaskInstruction,
				"image":            next.Image,
				"type":             next.Type,
				"price":            next.Price,
				"prize_money":      next.PrizeMoney,
				"deadline":         next.Deadline,
				"status":           next.Status,
				"participants":     next.Participants,
				"winner_id":        next.WinnerID,
				"version":          next.Version,
				"updated_at":       next.UpdatedAt,
			})
		if res.Error != nil {
			return errs.NewDatabaseError("update", "contest", res.Error)
		}
		if res.RowsAffected == 0 {
			return lostRace(tx, id)
		}

		if m.Payment != nil {
			if err := upsertPayment(tx, m.Payment); err != nil {
				return err
			}
		}
		if m.Submission != nil {
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "contest_id"}, {Name: "user_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"task_link", "submitted_at"}),
			}).Omit("User").Create(m.Submission).Error
			if err != nil {
				return errs.NewDatabaseError("save", "submission", err)
			}
		}
		if err := insertEvents(tx, m.Events); err != nil {
			return err
		}
		saved = next
		return nil
	})
	if err != nil {
		return models.Contest{}, err
	}
	return saved, nil
}

// lostRace tells a deleted contest apart from a concurrent write.
func lostRace(tx *gorm.DB, id uuid.UUID) error {
	var n int64
	if err := tx.Model(&models.Contest{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return errs.NewDatabaseError("find", "contest", err)
	}
	if n == 0 {
		return errs.NewNotFound("contest")
	}
	return errs.NewConcurrencyConflictError("contest", 1)
}

func insertEvents(tx *gorm.DB, events []models.ContestEvent) error {
	if len(events) == 0 {
		return nil
	}
	if err := tx.Create(&events).Error; err != nil {
		return errs.NewDatabaseError("record", "contest events", err)
	}
	return nil
}

func (s *ContestStore) FindPaidPayment(ctx context.Context, contestID, userID uuid.UUID) (models.Payment, bool, error) {
	var p models.Payment
	err := s.db.WithContext(ctx).Clauses(dbresolver.Write).
		Where("contest_id = ? AND user_id = ? AND status = ?", contestID, userID, models.PaymentPaid).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Payment{}, false, nil
	}
	if err != nil {
		return models.Payment{}, false, errs.NewDatabaseError("find", "payment", err)
	}
	return p, true, nil
}

func (s *ContestStore) SavePayment(ctx context.Context, p models.Payment) (models.Payment, error) {
	var saved models.Payment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := upsertPayment(tx, &p); err != nil {
			return err
		}
		if err := tx.Where("reference = ?", p.Reference).First(&saved).Error; err != nil {
			return errs.NewDatabaseError("find", "payment", err)
		}
		return nil
	})
	if err != nil {
		return models.Payment{}, err
	}
	return saved, nil
}

// upsertPayment keys payments by provider reference. A paid payment never
// goes back to pending.
func upsertPayment(tx *gorm.DB, p *models.Payment) error {
	var existing models.Payment
	err := tx.Where("reference = ?", p.Reference).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := tx.Create(p).Error; err != nil {
			return errs.NewDatabaseError("create", "payment", err)
		}
		return nil
	case err != nil:
		return errs.NewDatabaseError("find", "payment", err)
	}

	if existing.Status == models.PaymentPaid {
		p.Status = models.PaymentPaid
	}
	err = tx.Model(&existing).Updates(map[string]any{
		"status":     p.Status,
		"amount":     p.Amount,
		"currency":   p.Currency,
		"updated_at": time.Now().UTC(),
	}).Error
	if err != nil {
		return errs.NewDatabaseError("update", "payment", err)
	}
	p.ID = existing.ID
	return nil
}
