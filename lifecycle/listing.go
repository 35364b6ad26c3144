package lifecycle

import (
	"context"
	"iter"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/skillarena/backend/errs"
	"github.com/skillarena/backend/models"
)

// ListFilter narrows a role-scoped listing. Zero values match everything.
type ListFilter struct {
	Type   models.ContestType
	Status models.ContestStatus
	Search string
	// IDs restricts the listing to these contests, typically the hits of a
	// full-text search. A non-nil empty slice matches nothing.
	IDs []uuid.UUID
}

// visible reports whether actor may see c at time now.
func visible(actor Actor, c models.Contest, now time.Time) bool {
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleCreator:
		return isOwner(actor, c)
	}
	if c.HasParticipant(actor.ID) {
		return true
	}
	return c.Status == models.StatusApproved && now.Before(c.Deadline)
}

// readable is wider than visible: a single contest can always be opened by
// its owner, its participants, an admin, or anyone once it is public.
func readable(actor Actor, c models.Contest) bool {
	if actor.Role == models.RoleAdmin || isOwner(actor, c) || c.HasParticipant(actor.ID) {
		return true
	}
	return c.Status == models.StatusApproved || c.Status == models.StatusWinnerDeclared
}

// GetContest returns one contest. Contests the actor may not read are
// reported as not found.
func (m *Manager) GetContest(ctx context.Context, id uuid.UUID, actor Actor) (models.Contest, error) {
	c, err := m.store.GetContest(ctx, id)
	if err != nil {
		return models.Contest{}, err
	}
	if !readable(actor, c) {
		return models.Contest{}, errs.NewNotFound("contest")
	}
	return m.view(c), nil
}

// CanReviewSubmissions reports whether actor may read every submission of c.
func CanReviewSubmissions(actor Actor, c models.Contest) bool {
	return actor.Role == models.RoleAdmin || isOwner(actor, c)
}

func (m *Manager) query(filter ListFilter) ContestQuery {
	q := ContestQuery{
		Type:   filter.Type,
		Search: strings.TrimSpace(filter.Search),
		IDs:    filter.IDs,
	}
	if filter.Status != "" {
		q.Statuses = []models.ContestStatus{filter.Status}
	}
	return q
}

// ListForRole returns the contests actor may browse. The store is read once
// per call; the returned sequence replays that snapshot every time it is
// ranged over and judges deadlines against the clock at call time.
func (m *Manager) ListForRole(ctx context.Context, actor Actor, filter ListFilter) (iter.Seq[models.Contest], error) {
	if filter.IDs != nil && len(filter.IDs) == 0 {
		return func(func(models.Contest) bool) {}, nil
	}
	q := m.query(filter)
	if actor.Role == models.RoleCreator {
		q.CreatorID = actor.ID
	}
	contests, err := m.store.ListContests(ctx, q)
	if err != nil {
		return nil, err
	}
	now := m.Now()

	return func(yield func(models.Contest) bool) {
		for _, c := range contests {
			if !visible(actor, c, now) {
				continue
			}
			if !yield(m.viewAt(c, now)) {
				return
			}
		}
	}, nil
}

func (m *Manager) viewAt(c models.Contest, now time.Time) models.Contest {
	out := m.view(c)
	out.Ended = !now.Before(c.Deadline)
	return out
}

// ParticipatedContests lists every contest userID has joined, in any status.
func (m *Manager) ParticipatedContests(ctx context.Context, userID uuid.UUID) ([]models.Contest, error) {
	all, err := m.store.ListContests(ctx, ContestQuery{})
	if err != nil {
		return nil, err
	}
	var out []models.Contest
	for _, c := range all {
		if c.HasParticipant(userID) {
			out = append(out, m.view(c))
		}
	}
	return out, nil
}

// WonContests lists the contests userID has won.
func (m *Manager) WonContests(ctx context.Context, userID uuid.UUID) ([]models.Contest, error) {
	all, err := m.store.ListContests(ctx, ContestQuery{Statuses: []models.ContestStatus{models.StatusWinnerDeclared}})
	if err != nil {
		return nil, err
	}
	var out []models.Contest
	for _, c := range all {
		if c.HasWinner() && *c.WinnerID == userID {
			out = append(out, m.view(c))
		}
	}
	return out, nil
}

// Popular returns up to limit open contests, most participants first.
func (m *Manager) Popular(ctx context.Context, limit int) ([]models.Contest, error) {
	all, err := m.store.ListContests(ctx, ContestQuery{Statuses: []models.ContestStatus{models.StatusApproved}})
	if err != nil {
		return nil, err
	}
	now := m.Now()
	open := make([]models.Contest, 0, len(all))
	for _, c := range all {
		if now.Before(c.Deadline) {
			open = append(open, m.viewAt(c, now))
		}
	}
	slices.SortStableFunc(open, func(a, b models.Contest) int {
		if d := b.ParticipantCount - a.ParticipantCount; d != 0 {
			return d
		}
		return a.Deadline.Compare(b.Deadline)
	})
	if limit > 0 && len(open) > limit {
		open = open[:limit]
	}
	return open, nil
}

// Snapshot returns every contest with its read model, for aggregate reports.
func (m *Manager) Snapshot(ctx context.Context) ([]models.Contest, error) {
	all, err := m.store.ListContests(ctx, ContestQuery{})
	if err != nil {
		return nil, err
	}
	out := make([]models.Contest, len(all))
	for i, c := range all {
		out[i] = m.view(c)
	}
	return out, nil
}
