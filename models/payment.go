package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

// Payment mirrors the state of an entry-fee charge held by the payment provider.
type Payment struct {
	ID        uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey;not null"`
	ContestID uuid.UUID       `json:"contestId" gorm:"type:uuid;not null;index:idx_payment_contest_user"`
	UserID    uuid.UUID       `json:"userId" gorm:"type:uuid;not null;index:idx_payment_contest_user"`
	Reference string          `json:"reference" gorm:"type:text;not null;uniqueIndex:idx_payment_reference"`
	Amount    decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null"`
	Currency  string          `json:"currency" gorm:"type:text;not null"`
	Status    PaymentStatus   `json:"status" gorm:"type:text;not null"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
