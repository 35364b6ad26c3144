package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/skillarena/backend/errs"
	"github.com/skillarena/backend/models"
	"gorm.io/gorm"
)

type PaymentRepo struct {
	db *gorm.DB
}

func NewPaymentRepo(db *gorm.DB) *PaymentRepo {
	return &PaymentRepo{db}
}

func (r *PaymentRepo) FindByUser(ctx context.Context, userID uuid.UUID) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&payments).Error
	if err != nil {
		return nil, errs.NewDatabaseError("list", "payments", err)
	}
	return payments, nil
}
