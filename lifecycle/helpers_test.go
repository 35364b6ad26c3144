package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/skillarena/backend/errs"
	"github.com/skillarena/backend/models"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeProvider struct {
	mu       sync.Mutex
	intents  map[string]Intent
	released []string
	seq      int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{intents: make(map[string]Intent)}
}

func (p *fakeProvider) CreateIntent(_ context.Context, contestID, userID uuid.UUID, amount decimal.Decimal, currency string) (Intent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	in := Intent{
		Reference:    fmt.Sprintf("pi_%d", p.seq),
		ClientSecret: fmt.Sprintf("pi_%d_secret", p.seq),
		Amount:       amount,
		Currency:     currency,
		ContestID:    contestID,
		UserID:       userID,
		State:        IntentPending,
	}
	p.intents[in.Reference] = in
	return in, nil
}

// authorize simulates the client completing card confirmation.
func (p *fakeProvider) authorize(ref string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	in := p.intents[ref]
	in.State = IntentAuthorized
	p.intents[ref] = in
}

func (p *fakeProvider) Lookup(_ context.Context, ref string) (Intent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	in, ok := p.intents[ref]
	if !ok {
		return Intent{}, errs.NewNotFound("payment intent")
	}
	return in, nil
}

func (p *fakeProvider) Capture(_ context.Context, ref string) (Intent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	in := p.intents[ref]
	in.State = IntentCaptured
	p.intents[ref] = in
	return in, nil
}

func (p *fakeProvider) Release(_ context.Context, ref string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	in := p.intents[ref]
	in.State = IntentFailed
	p.intents[ref] = in
	p.released = append(p.released, ref)
	return nil
}

type fixture struct {
	store    *MemoryStore
	clock    *fakeClock
	payments *fakeProvider
	manager  *Manager

	admin   Actor
	creator Actor
	user    Actor
	other   Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    NewMemoryStore(),
		clock:    newFakeClock(),
		payments: newFakeProvider(),
		admin:    Actor{ID: uuid.New(), Role: models.RoleAdmin, Name: "Ada"},
		creator:  Actor{ID: uuid.New(), Role: models.RoleCreator, Name: "Cleo"},
		user:     Actor{ID: uuid.New(), Role: models.RoleUser, Name: "Uma"},
		other:    Actor{ID: uuid.New(), Role: models.RoleUser, Name: "Otto"},
	}
	f.manager = NewManager(f.store,
		WithClock(f.clock.Now),
		WithPaymentProvider(f.payments),
	)
	return f
}

func (f *fixture) draft(price string) ContestDraft {
	return ContestDraft{
		Name:            "Landing page",
		Description:     "Build a landing page",
		TaskInstruction: "Deploy it and share the link",
		Image:           "https://img.example.com/landing.png",
		Type:            "Web Development",
		Price:           price,
		PrizeMoney:      "100",
		Deadline:        f.clock.Now().Add(time.Hour).Format(time.RFC3339),
	}
}

func (f *fixture) createContest(t *testing.T, price string) models.Contest {
	t.Helper()
	c, err := f.manager.CreateContest(context.Background(), f.draft(price), f.creator)
	if err != nil {
		t.Fatalf("create contest: %v", err)
	}
	return c
}

func (f *fixture) approvedContest(t *testing.T, price string) models.Contest {
	t.Helper()
	c := f.createContest(t, price)
	c, err := f.manager.SetStatus(context.Background(), c.ID, models.StatusApproved, f.admin)
	if err != nil {
		t.Fatalf("approve contest: %v", err)
	}
	return c
}

// pay records a paid entry fee for userID through the full payment flow.
func (f *fixture) pay(t *testing.T, contestID, userID uuid.UUID) models.Contest {
	t.Helper()
	ctx := context.Background()
	intent, err := f.manager.CreatePaymentIntent(ctx, contestID, Actor{ID: userID, Role: models.RoleUser})
	if err != nil {
		t.Fatalf("create payment intent: %v", err)
	}
	if intent.Contest != nil {
		return *intent.Contest
	}
	f.payments.authorize(intent.Reference)
	c, err := f.manager.ConfirmPayment(ctx, contestID, userID, intent.Reference)
	if err != nil {
		t.Fatalf("confirm payment: %v", err)
	}
	return c
}

// markPaid stores a paid payment without registering the user.
func (f *fixture) markPaid(t *testing.T, contestID, userID uuid.UUID, amount string) {
	t.Helper()
	_, err := f.store.SavePayment(context.Background(), models.Payment{
		ContestID: contestID,
		UserID:    userID,
		Reference: "manual_" + userID.String(),
		Amount:    decimal.RequireFromString(amount),
		Currency:  "usd",
		Status:    models.PaymentPaid,
	})
	if err != nil {
		t.Fatalf("save payment: %v", err)
	}
}

func assertKind(t *testing.T, err, kind error) {
	t.Helper()
	if !errors.Is(err, kind) {
		t.Fatalf("expected %v, got %v", kind, err)
	}
}
