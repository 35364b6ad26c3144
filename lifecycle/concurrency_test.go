package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/skillarena/backend/errs"
	"github.com/skillarena/backend/models"
)

func TestConcurrentRegistrationsBothLand(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for round := 0; round < 20; round++ {
		c := f.approvedContest(t, "10")
		users := []uuid.UUID{uuid.New(), uuid.New()}
		for _, u := range users {
			f.markPaid(t, c.ID, u, "10")
		}

		var wg sync.WaitGroup
		errCh := make(chan error, len(users))
		for _, u := range users {
			wg.Add(1)
			go func(u uuid.UUID) {
				defer wg.Done()
				_, err := f.manager.RegisterParticipant(ctx, c.ID, u)
				errCh <- err
			}(u)
		}
		wg.Wait()
		close(errCh)
		for err := range errCh {
			if err != nil {
				t.Fatalf("round %d: register: %v", round, err)
			}
		}

		stored, _ := f.store.GetContest(ctx, c.ID)
		if len(stored.Participants) != 2 {
			t.Fatalf("round %d: expected 2 participants, got %v", round, stored.Participants)
		}
		for _, u := range users {
			if !stored.HasParticipant(u) {
				t.Fatalf("round %d: missing participant %s", round, u)
			}
		}
	}
}

func TestConcurrentWinnerDeclarationsPickOne(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for round := 0; round < 20; round++ {
		c := f.approvedContest(t, "10")
		f.pay(t, c.ID, f.user.ID)
		f.pay(t, c.ID, f.other.ID)
		candidates := []uuid.UUID{f.user.ID, f.other.ID}

		var wg sync.WaitGroup
		results := make([]error, len(candidates))
		for i, w := range candidates {
			wg.Add(1)
			go func(i int, w uuid.UUID) {
				defer wg.Done()
				_, results[i] = f.manager.DeclareWinner(ctx, c.ID, w, f.admin)
			}(i, w)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range results {
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, errs.ErrWinnerAlreadySet), errors.Is(err, errs.ErrConcurrencyConflict):
			default:
				t.Fatalf("round %d: unexpected error %v", round, err)
			}
		}
		if succeeded != 1 {
			t.Fatalf("round %d: expected exactly one winner declaration, got %d", round, succeeded)
		}

		stored, _ := f.store.GetContest(ctx, c.ID)
		if stored.Status != models.StatusWinnerDeclared || !stored.HasWinner() {
			t.Fatalf("round %d: expected a declared winner, got %+v", round, stored)
		}
	}
}

// conflictingStore loses every version race.
type conflictingStore struct {
	*MemoryStore
	commits int
}

func (s *conflictingStore) Commit(context.Context, Mutation) (models.Contest, error) {
	s.commits++
	return models.Contest{}, errs.NewConcurrencyConflictError("contest", 1)
}

func TestRetriesAreBounded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.createContest(t, "10")

	store := &conflictingStore{MemoryStore: f.store}
	var observed []int
	m := NewManager(store,
		WithClock(f.clock.Now),
		WithMaxAttempts(3),
		WithRetryObserver(func(op string, attempt int) {
			if op != "setStatus" {
				t.Errorf("expected op setStatus, got %s", op)
			}
			observed = append(observed, attempt)
		}),
	)

	_, err := m.SetStatus(ctx, c.ID, models.StatusApproved, f.admin)
	assertKind(t, err, errs.ErrConcurrencyConflict)
	if store.commits != 3 {
		t.Fatalf("expected 3 commit attempts, got %d", store.commits)
	}
	if len(observed) != 3 {
		t.Fatalf("expected 3 retry notifications, got %v", observed)
	}
}
