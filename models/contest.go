package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ContestStatus is the stored lifecycle state of a contest.
type ContestStatus string

const (
	StatusPending        ContestStatus = "pending"
	StatusApproved       ContestStatus = "approved"
	StatusRejected       ContestStatus = "rejected"
	StatusWinnerDeclared ContestStatus = "winnerDeclared"
)

// ParseContestStatus maps a wire value to a status. Older clients send
// "completed" or "ended" for a declared winner; both collapse to StatusWinnerDeclared.
func ParseContestStatus(s string) (ContestStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return StatusPending, true
	case "approved":
		return StatusApproved, true
	case "rejected":
		return StatusRejected, true
	case "winnerdeclared", "winner_declared", "completed", "ended":
		return StatusWinnerDeclared, true
	}
	return "", false
}

// Terminal reports whether no further transition may leave s.
func (s ContestStatus) Terminal() bool {
	return s == StatusRejected || s == StatusWinnerDeclared
}

type ContestType string

const (
	TypeWebDevelopment ContestType = "Web Development"
	TypeGraphicDesign  ContestType = "Graphic Design"
	TypeContentWriting ContestType = "Content Writing"
	TypeVideoEditing   ContestType = "Video Editing"
	TypePhotography    ContestType = "Photography"
	TypeOther          ContestType = "Other"
)

var contestTypes = []ContestType{
	TypeWebDevelopment,
	TypeGraphicDesign,
	TypeContentWriting,
	TypeVideoEditing,
	TypePhotography,
	TypeOther,
}

// ContestTypes returns every known contest category in display order.
func ContestTypes() []ContestType {
	out := make([]ContestType, len(contestTypes))
	copy(out, contestTypes)
	return out
}

// ParseContestType accepts both the display label ("Web Development") and the
// compact form ("WebDevelopment"), case-insensitively.
func ParseContestType(s string) (ContestType, bool) {
	key := normalizeTypeKey(s)
	if key == "" {
		return "", false
	}
	for _, t := range contestTypes {
		if normalizeTypeKey(string(t)) == key {
			return t, true
		}
	}
	return "", false
}

func normalizeTypeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "_", "")
	return strings.ReplaceAll(s, "-", "")
}

// Contest is a competition with an entry fee, a prize and a deadline.
type Contest struct {
	ID              uuid.UUID                      `json:"id" gorm:"type:uuid;primaryKey;not null"`
	Name            string                         `json:"name" gorm:"type:text;not null"`
	Description     string                         `json:"description" gorm:"type:text;not null"`
	TaskInstruction string                         `json:"taskInstruction" gorm:"type:text;not null"`
	Image           string                         `json:"image" gorm:"type:text;not null"`
	Type            ContestType                    `json:"type" gorm:"type:text;not null;index:idx_contest_type"`
	Price           decimal.Decimal                `json:"price" gorm:"type:numeric(12,2);not null"`
	PrizeMoney      decimal.Decimal                `json:"prizeMoney" gorm:"type:numeric(12,2);not null"`
	Deadline        time.Time                      `json:"deadline" gorm:"not null;index:idx_contest_deadline"`
	CreatorID       uuid.UUID                      `json:"creatorId" gorm:"type:uuid;not null;index:idx_contest_creator"`
	CreatorName     string                         `json:"creatorName" gorm:"type:text"`
	Status          ContestStatus                  `json:"status" gorm:"type:text;not null;index:idx_contest_status"`
	Participants    datatypes.JSONSlice[uuid.UUID] `json:"participants"`
	WinnerID        *uuid.UUID                     `json:"winnerId,omitempty" gorm:"type:uuid"`
	Version         int64                          `json:"version" gorm:"not null;default:1"`
	CreatedAt       time.Time                      `json:"createdAt"`
	UpdatedAt       time.Time                      `json:"updatedAt"`

	// Read model, derived from canonical server time when the contest is served.
	Ended            bool `json:"ended" gorm:"-"`
	ParticipantCount int  `json:"participantCount" gorm:"-"`
}

func (c *Contest) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Participants == nil {
		c.Participants = datatypes.JSONSlice[uuid.UUID]{}
	}
	return nil
}

// HasParticipant reports whether userID already joined the contest.
func (c Contest) HasParticipant(userID uuid.UUID) bool {
	for _, id := range c.Participants {
		if id == userID {
			return true
		}
	}
	return false
}

// HasWinner reports whether a winner has been declared.
func (c Contest) HasWinner() bool {
	return c.WinnerID != nil && *c.WinnerID != uuid.Nil
}

// Clone returns a copy that shares no mutable state with c.
func (c Contest) Clone() Contest {
	out := c
	if c.Participants != nil {
		out.Participants = make(datatypes.JSONSlice[uuid.UUID], len(c.Participants))
		copy(out.Participants, c.Participants)
	}
	if c.WinnerID != nil {
		winner := *c.WinnerID
		out.WinnerID = &winner
	}
	return out
}
