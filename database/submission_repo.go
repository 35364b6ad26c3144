package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/skillarena/backend/errs"
	"github.com/skillarena/backend/models"
	"gorm.io/gorm"
)

// SubmissionRepo is read-only; submissions are written through ContestStore.Commit.
type SubmissionRepo struct {
	db *gorm.DB
}

func NewSubmissionRepo(db *gorm.DB) *SubmissionRepo {
	return &SubmissionRepo{db}
}

// FindByContest returns a contest's submissions with the submitting user.
func (r *SubmissionRepo) FindByContest(ctx context.Context, contestID uuid.UUID) ([]models.Submission, error) {
	var subs []models.Submission
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("contest_id = ?", contestID).
		Order("submitted_at DESC").
		Find(&subs).Error
	if err != nil {
		return nil, errs.NewDatabaseError("list", "submissions", err)
	}
	return subs, nil
}

func (r *SubmissionRepo) FindByUser(ctx context.Context, userID uuid.UUID) ([]models.Submission, error) {
	var subs []models.Submission
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("submitted_at DESC").
		Find(&subs).Error
	if err != nil {
		return nil, errs.NewDatabaseError("list", "submissions", err)
	}
	return subs, nil
}
