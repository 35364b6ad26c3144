package lifecycle

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/skillarena/backend/errs"
	"github.com/skillarena/backend/models"
)

// MemoryStore is a Store held in process memory. The mutex only guards the
// maps for the duration of one read or one conditional write; contention
// between operations is still resolved by the version check.
type MemoryStore struct {
	mu          sync.RWMutex
	contests    map[uuid.UUID]models.Contest
	payments    map[string]models.Payment
	submissions map[uuid.UUID]models.Submission
	events      []models.ContestEvent
	nextEventID int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		contests:    make(map[uuid.UUID]models.Contest),
		payments:    make(map[string]models.Payment),
		submissions: make(map[uuid.UUID]models.Submission),
	}
}

func (s *MemoryStore) GetContest(_ context.Context, id uuid.UUID) (models.Contest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contests[id]
	if !ok {
		return models.Contest{}, errs.NewNotFound("contest")
	}
	return c.Clone(), nil
}

func (s *MemoryStore) ListContests(_ context.Context, q ContestQuery) ([]models.Contest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(q.Search)
	out := make([]models.Contest, 0, len(s.contests))
	for _, c := range s.contests {
		if q.Type != "" && c.Type != q.Type {
			continue
		}
		if len(q.Statuses) > 0 && !slices.Contains(q.Statuses, c.Status) {
			continue
		}
		if q.CreatorID != uuid.Nil && c.CreatorID != q.CreatorID {
			continue
		}
		if q.IDs != nil && !slices.Contains(q.IDs, c.ID) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(c.Name), search) &&
			!strings.Contains(strings.ToLower(c.Description), search) {
			continue
		}
		out = append(out, c.Clone())
	}
	slices.SortFunc(out, func(a, b models.Contest) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) CreateContest(_ context.Context, c models.Contest, events []models.ContestEvent) (models.Contest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.contests[c.ID]; exists {
		return models.Contest{}, errs.NewAlreadyExists("contest")
	}
	now := time.Now().UTC()
	c.Version = 1
	c.CreatedAt = now
	c.UpdatedAt = now
	s.contests[c.ID] = c.Clone()
	s.appendEvents(events)
	return c, nil
}

func (s *MemoryStore) Commit(_ context.Context, m Mutation) (models.Contest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.contests[m.Contest.ID]
	if !ok {
		return models.Contest{}, errs.NewNotFound("contest")
	}
	if stored.Version != m.Contest.Version {
		return models.Contest{}, errs.NewConcurrencyConflictError("contest", 1)
	}

	if m.Delete {
		delete(s.contests, m.Contest.ID)
		for id, sub := range s.submissions {
			if sub.ContestID == m.Contest.ID {
				delete(s.submissions, id)
			}
		}
		s.appendEvents(m.Events)
		return m.Contest, nil
	}

	next := m.Contest.Clone()
	next.Version = stored.Version + 1
	next.CreatedAt = stored.CreatedAt
	next.UpdatedAt = time.Now().UTC()
	s.contests[next.ID] = next

	if m.Payment != nil {
		s.putPayment(*m.Payment)
	}
	if m.Submission != nil {
		s.submissions[m.Submission.ID] = *m.Submission
	}
	s.appendEvents(m.Events)
	return next.Clone(), nil
}

func (s *MemoryStore) FindPaidPayment(_ context.Context, contestID, userID uuid.UUID) (models.Payment, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.payments {
		if p.ContestID == contestID && p.UserID == userID && p.Status == models.PaymentPaid {
			return p, true, nil
		}
	}
	return models.Payment{}, false, nil
}

func (s *MemoryStore) SavePayment(_ context.Context, p models.Payment) (models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putPayment(p), nil
}

func (s *MemoryStore) putPayment(p models.Payment) models.Payment {
	now := time.Now().UTC()
	if existing, ok := s.payments[p.Reference]; ok {
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
		if existing.Status == models.PaymentPaid {
			p.Status = models.PaymentPaid
		}
	} else {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	s.payments[p.Reference] = p
	return p
}

func (s *MemoryStore) appendEvents(events []models.ContestEvent) {
	for _, ev := range events {
		s.nextEventID++
		ev.ID = s.nextEventID
		s.events = append(s.events, ev)
	}
}

// Submissions returns the recorded submissions of a contest.
func (s *MemoryStore) Submissions(contestID uuid.UUID) []models.Submission {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Submission
	for _, sub := range s.submissions {
		if sub.ContestID == contestID {
			out = append(out, sub)
		}
	}
	return out
}

// Events returns every event written so far, oldest first.
func (s *MemoryStore) Events() []models.ContestEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.events)
}

// Payments returns the recorded payments of a user.
func (s *MemoryStore) Payments(userID uuid.UUID) []models.Payment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Payment
	for _, p := range s.payments {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out
}
