package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/skillarena/backend/errs"
	"github.com/skillarena/backend/models"
	"gorm.io/datatypes"
)

// DefaultMaxAttempts bounds the read-validate-write loop of a single operation.
const DefaultMaxAttempts = 5

// Actor is the verified identity behind a call.
type Actor struct {
	ID   uuid.UUID
	Role models.Role
	Name string
}

// Manager is the single authority for contest state transitions. Every
// mutation is a compare-and-swap against the stored contest version.
type Manager struct {
	store       Store
	payments    PaymentProvider
	now         func() time.Time
	maxAttempts int
	onRetry     func(op string, attempt int)
	currency    string
}

type Option func(*Manager)

// WithClock replaces the canonical server clock.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

func WithMaxAttempts(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxAttempts = n
		}
	}
}

// WithRetryObserver is called every time a write loses a version race.
func WithRetryObserver(fn func(op string, attempt int)) Option {
	return func(m *Manager) {
		m.onRetry = fn
	}
}

func WithPaymentProvider(p PaymentProvider) Option {
	return func(m *Manager) {
		m.payments = p
	}
}

func WithCurrency(currency string) Option {
	return func(m *Manager) {
		if currency != "" {
			m.currency = currency
		}
	}
}

func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		store:       store,
		now:         time.Now,
		maxAttempts: DefaultMaxAttempts,
		currency:    "usd",
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Now returns the canonical server time every deadline is compared against.
func (m *Manager) Now() time.Time {
	return m.now().UTC()
}

// planFunc inspects the current contest and returns the write to attempt.
// A nil mutation with a nil error means nothing needs to change.
type planFunc func(current models.Contest) (*Mutation, error)

// update runs the optimistic read-validate-write cycle for one contest.
// Precondition errors that are idempotent no-ops come back together with the
// current contest; every other error comes back with a zero contest.
func (m *Manager) update(ctx context.Context, op string, id uuid.UUID, plan planFunc) (models.Contest, error) {
	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		current, err := m.store.GetContest(ctx, id)
		if err != nil {
			return models.Contest{}, err
		}

		mut, err := plan(current.Clone())
		if err != nil {
			if errs.IsIdempotentNoop(err) {
				return m.view(current), err
			}
			return models.Contest{}, err
		}
		if mut == nil {
			return m.view(current), nil
		}

		mut.Contest.Version = current.Version
		saved, err := m.store.Commit(ctx, *mut)
		if err == nil {
			return m.view(saved), nil
		}
		if !errors.Is(err, errs.ErrConcurrencyConflict) {
			return models.Contest{}, err
		}
		if m.onRetry != nil {
			m.onRetry(op, attempt)
		}
	}
	return models.Contest{}, errs.NewConcurrencyConflictError("contest", m.maxAttempts)
}

// view decorates c with the fields derived from server time.
func (m *Manager) view(c models.Contest) models.Contest {
	out := c.Clone()
	if out.Participants == nil {
		out.Participants = datatypes.JSONSlice[uuid.UUID]{}
	}
	out.Ended = !m.Now().Before(out.Deadline)
	out.ParticipantCount = len(out.Participants)
	return out
}

func (m *Manager) ended(c models.Contest) bool {
	return !m.Now().Before(c.Deadline)
}

func (m *Manager) event(kind models.EventKind, c models.Contest, actor *uuid.UUID, subject *uuid.UUID, payload any) models.ContestEvent {
	ev := models.ContestEvent{
		Kind:      kind,
		ContestID: c.ID,
		ActorID:   actor,
		SubjectID: subject,
		CreatedAt: m.Now(),
	}
	if payload != nil {
		if raw, err := json.Marshal(payload); err == nil {
			ev.Payload = datatypes.JSON(raw)
		}
	}
	return ev
}

type contestSummary struct {
	Name      string               `json:"name"`
	Status    models.ContestStatus `json:"status"`
	CreatorID uuid.UUID            `json:"creatorId"`
}

func summarize(c models.Contest) contestSummary {
	return contestSummary{Name: c.Name, Status: c.Status, CreatorID: c.CreatorID}
}

// CreateContest validates draft and stores a new pending contest owned by actor.
func (m *Manager) CreateContest(ctx context.Context, draft ContestDraft, actor Actor) (models.Contest, error) {
	if err := authorize(EventCreate, actor, models.Contest{}); err != nil {
		return models.Contest{}, err
	}
	fields, err := draft.parse(m.Now())
	if err != nil {
		return models.Contest{}, err
	}
	status, _ := Next(statusNone, EventCreate)

	c := models.Contest{
		ID:          uuid.New(),
		CreatorID:   actor.ID,
		CreatorName: actor.Name,
		Status:      status,
		Version:     1,
	}
	fields.apply(&c)
	c.Participants = datatypes.JSONSlice[uuid.UUID]{}

	actorID := actor.ID
	created, err := m.store.CreateContest(ctx, c, []models.ContestEvent{
		m.event(models.EventContestCreated, c, &actorID, nil, summarize(c)),
	})
	if err != nil {
		return models.Contest{}, err
	}
	return m.view(created), nil
}

// EditContest replaces the editable fields of a pending contest. Empty draft
// fields keep their current value.
func (m *Manager) EditContest(ctx context.Context, id uuid.UUID, draft ContestDraft, actor Actor) (models.Contest, error) {
	return m.update(ctx, "edit", id, func(c models.Contest) (*Mutation, error) {
		if err := authorize(EventEdit, actor, c); err != nil {
			return nil, err
		}
		if _, ok := Next(c.Status, EventEdit); !ok {
			return nil, errs.NewInvalidTransitionError(string(c.Status), string(EventEdit))
		}
		fields, err := draft.withDefaults(c).parse(m.Now())
		if err != nil {
			return nil, err
		}
		fields.apply(&c)
		actorID := actor.ID
		return &Mutation{
			Contest: c,
			Events:  []models.ContestEvent{m.event(models.EventContestUpdated, c, &actorID, nil, summarize(c))},
		}, nil
	})
}

// SetStatus moves a contest to target along the transition table. Declaring
// a winner needs a winner id and goes through DeclareWinner instead.
func (m *Manager) SetStatus(ctx context.Context, id uuid.UUID, target models.ContestStatus, actor Actor) (models.Contest, error) {
	event, known := statusEvents[target]
	return m.update(ctx, "setStatus", id, func(c models.Contest) (*Mutation, error) {
		if !known {
			return nil, errs.NewInvalidTransitionError(string(c.Status), string(target))
		}
		if err := authorize(event, actor, c); err != nil {
			return nil, err
		}
		if event == EventDeclareWinner {
			return nil, errs.NewInvalidTransitionError(string(c.Status), string(target))
		}
		to, ok := Next(c.Status, event)
		if !ok {
			return nil, errs.NewInvalidTransitionError(string(c.Status), string(target))
		}
		c.Status = to

		kind := models.EventContestApproved
		if to == models.StatusRejected {
			kind = models.EventContestRejected
		}
		actorID := actor.ID
		return &Mutation{
			Contest: c,
			Events:  []models.ContestEvent{m.event(kind, c, &actorID, nil, summarize(c))},
		}, nil
	})
}

// registrationOpen reports why userID cannot join c right now, or nil.
func (m *Manager) registrationOpen(c models.Contest, userID uuid.UUID) error {
	if err := authorize(EventRegister, Actor{ID: userID}, c); err != nil {
		return err
	}
	if c.HasParticipant(userID) {
		return errs.NewAlreadyRegisteredError()
	}
	if _, ok := Next(c.Status, EventRegister); !ok {
		return errs.NewContestEndedError("contest is " + string(c.Status) + " and not open for registration")
	}
	if m.ended(c) {
		return errs.NewContestEndedError("registration closed at the deadline")
	}
	return nil
}

func (m *Manager) registration(c models.Contest, userID uuid.UUID, payment *models.Payment) *Mutation {
	c.Participants = append(c.Participants, userID)
	subject := userID
	return &Mutation{
		Contest: c,
		Payment: payment,
		Events:  []models.ContestEvent{m.event(models.EventParticipantRegistered, c, &subject, &subject, nil)},
	}
}

// RegisterParticipant adds userID to the contest once a paid payment exists.
// Registering twice returns the unchanged contest with errs.ErrAlreadyRegistered.
func (m *Manager) RegisterParticipant(ctx context.Context, contestID, userID uuid.UUID) (models.Contest, error) {
	return m.update(ctx, "registerParticipant", contestID, func(c models.Contest) (*Mutation, error) {
		if err := m.registrationOpen(c, userID); err != nil {
			return nil, err
		}
		if _, paid, err := m.store.FindPaidPayment(ctx, contestID, userID); err != nil {
			return nil, err
		} else if !paid {
			return nil, errs.NewPaymentRequiredError()
		}
		return m.registration(c, userID, nil), nil
	})
}

// SubmitTask records the participant's task link, replacing any earlier one.
func (m *Manager) SubmitTask(ctx context.Context, contestID, userID uuid.UUID, taskLink string) (models.Submission, error) {
	if !isWebURL(taskLink) {
		return models.Submission{}, errs.NewValidationError("taskLink", "must be an http(s) URL")
	}

	var submission models.Submission
	_, err := m.update(ctx, "submitTask", contestID, func(c models.Contest) (*Mutation, error) {
		if !c.HasParticipant(userID) {
			return nil, errs.NewNotRegisteredError()
		}
		if _, ok := Next(c.Status, EventSubmit); !ok {
			return nil, errs.NewContestEndedError("contest is " + string(c.Status) + " and no longer accepts submissions")
		}
		if m.ended(c) {
			return nil, errs.NewContestEndedError("submissions closed at the deadline")
		}

		submission = models.Submission{
			ID:          submissionID(contestID, userID),
			ContestID:   contestID,
			UserID:      userID,
			TaskLink:    taskLink,
			SubmittedAt: m.Now(),
		}
		subject := userID
		return &Mutation{
			Contest:    c,
			Submission: &submission,
			Events: []models.ContestEvent{
				m.event(models.EventSubmissionRecorded, c, &subject, &subject, map[string]string{"taskLink": taskLink}),
			},
		}, nil
	})
	if err != nil {
		return models.Submission{}, err
	}
	return submission, nil
}

// submissionID is stable per (contest, user) so a resubmission overwrites.
func submissionID(contestID, userID uuid.UUID) uuid.UUID {
	return uuid.NewSHA1(contestID, userID[:])
}

// DeclareWinner sets the winner and closes the contest. Repeating the call
// with the same winner returns the contest unchanged.
func (m *Manager) DeclareWinner(ctx context.Context, contestID, winnerID uuid.UUID, actor Actor) (models.Contest, error) {
	return m.update(ctx, "declareWinner", contestID, func(c models.Contest) (*Mutation, error) {
		if err := authorize(EventDeclareWinner, actor, c); err != nil {
			return nil, err
		}
		if c.HasWinner() {
			if *c.WinnerID == winnerID {
				return nil, nil
			}
			return nil, errs.NewWinnerAlreadySetError()
		}
		to, ok := Next(c.Status, EventDeclareWinner)
		if !ok {
			return nil, errs.NewInvalidTransitionError(string(c.Status), string(EventDeclareWinner))
		}
		if !c.HasParticipant(winnerID) {
			return nil, errs.NewNotAParticipantError()
		}

		winner := winnerID
		c.WinnerID = &winner
		c.Status = to
		actorID := actor.ID
		return &Mutation{
			Contest: c,
			Events: []models.ContestEvent{
				m.event(models.EventWinnerDeclared, c, &actorID, &winner, map[string]string{
					"name":       c.Name,
					"prizeMoney": c.PrizeMoney.StringFixed(2),
				}),
			},
		}, nil
	})
}

// DeleteContest removes a contest. Owners may delete only while pending;
// admins may delete in any status.
func (m *Manager) DeleteContest(ctx context.Context, id uuid.UUID, actor Actor) error {
	_, err := m.update(ctx, "delete", id, func(c models.Contest) (*Mutation, error) {
		if err := authorize(EventDelete, actor, c); err != nil {
			return nil, err
		}
		if _, ok := Next(c.Status, EventDelete); !ok {
			return nil, errs.NewInvalidTransitionError(string(c.Status), string(EventDelete))
		}
		actorID := actor.ID
		return &Mutation{
			Contest: c,
			Delete:  true,
			Events:  []models.ContestEvent{m.event(models.EventContestDeleted, c, &actorID, nil, summarize(c))},
		}, nil
	})
	return err
}
