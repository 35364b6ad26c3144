package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type EventKind string

const (
	EventContestCreated        EventKind = "contest.created"
	EventContestUpdated        EventKind = "contest.updated"
	EventContestApproved       EventKind = "contest.approved"
	EventContestRejected       EventKind = "contest.rejected"
	EventContestDeleted        EventKind = "contest.deleted"
	EventParticipantRegistered EventKind = "participant.registered"
	EventSubmissionRecorded    EventKind = "submission.recorded"
	EventWinnerDeclared        EventKind = "winner.declared"
)

// ContestEvent is an outbox row written in the same transaction as the
// contest change it describes.
type ContestEvent struct {
	ID        int64          `json:"id" gorm:"primaryKey;autoIncrement"`
	Kind      EventKind      `json:"kind" gorm:"type:text;not null;index:idx_event_kind"`
	ContestID uuid.UUID      `json:"contestId" gorm:"type:uuid;not null"`
	ActorID   *uuid.UUID     `json:"actorId,omitempty" gorm:"type:uuid"`
	SubjectID *uuid.UUID     `json:"subjectId,omitempty" gorm:"type:uuid"` // participant or winner
	Payload   datatypes.JSON `json:"payload,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	Processed bool           `json:"processed" gorm:"not null;default:false;index:idx_event_processed"`
	Attempts  int            `json:"attempts" gorm:"not null;default:0"`
	LastError string         `json:"lastError,omitempty" gorm:"type:text"`
}
