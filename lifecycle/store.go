package lifecycle

import (
	"context"

	"github.com/google/uuid"
	"github.com/skillarena/backend/models"
)

// Store persists contests with per-record optimistic concurrency.
//
// Commit must apply the whole Mutation atomically, and only if the stored
// contest version still equals Mutation.Contest.Version. On success the stored
// version is incremented; on a version mismatch Commit returns an error
// wrapping errs.ErrConcurrencyConflict and writes nothing.
type Store interface {
	GetContest(ctx context.Context, id uuid.UUID) (models.Contest, error)
	ListContests(ctx context.Context, q ContestQuery) ([]models.Contest, error)
	CreateContest(ctx context.Context, c models.Contest, events []models.ContestEvent) (models.Contest, error)
	Commit(ctx context.Context, m Mutation) (models.Contest, error)

	FindPaidPayment(ctx context.Context, contestID, userID uuid.UUID) (models.Payment, bool, error)
	SavePayment(ctx context.Context, p models.Payment) (models.Payment, error)
}

// Mutation is one conditional write of a contest plus its side records.
type Mutation struct {
	Contest    models.Contest
	Delete     bool
	Payment    *models.Payment    // upserted by Reference
	Submission *models.Submission // upserted by (ContestID, UserID)
	Events     []models.ContestEvent
}

// ContestQuery narrows what a Store returns. Zero values match everything.
type ContestQuery struct {
	Type      models.ContestType
	Statuses  []models.ContestStatus
	CreatorID uuid.UUID
	Search    string
	IDs       []uuid.UUID
}
