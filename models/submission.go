package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Submission is a participant's link to completed work. There is at most one
// per (contest, user); a resubmission overwrites the previous link.
type Submission struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;not null"`
	ContestID   uuid.UUID `json:"contestId" gorm:"type:uuid;not null;uniqueIndex:idx_submission_contest_user"`
	UserID      uuid.UUID `json:"userId" gorm:"type:uuid;not null;uniqueIndex:idx_submission_contest_user;index:idx_submission_user"`
	TaskLink    string    `json:"taskLink" gorm:"type:text;not null"`
	SubmittedAt time.Time `json:"submittedAt" gorm:"not null"`

	User *User `json:"user,omitempty" gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
}

func (s *Submission) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
