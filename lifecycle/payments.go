package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/skillarena/backend/errs"
	"github.com/skillarena/backend/models"
)

type IntentState string

const (
	IntentPending    IntentState = "pending"
	IntentAuthorized IntentState = "authorized" // funds held, not yet captured
	IntentCaptured   IntentState = "captured"
	IntentFailed     IntentState = "failed"
)

// Intent is the provider's view of one entry-fee charge.
type Intent struct {
	Reference    string
	ClientSecret string
	Amount       decimal.Decimal
	Currency     string
	ContestID    uuid.UUID
	UserID       uuid.UUID
	State        IntentState
}

// PaymentProvider holds an entry fee until the participant is registered.
// Funds are authorized by the client, captured once registration is certain,
// and released when it is not.
type PaymentProvider interface {
	CreateIntent(ctx context.Context, contestID, userID uuid.UUID, amount decimal.Decimal, currency string) (Intent, error)
	Lookup(ctx context.Context, reference string) (Intent, error)
	Capture(ctx context.Context, reference string) (Intent, error)
	Release(ctx context.Context, reference string) error
}

// freeReference marks the payment recorded for a zero-price contest.
func freeReference(contestID, userID uuid.UUID) string {
	return fmt.Sprintf("free_%s_%s", contestID, userID)
}

// PaymentIntent is what a client needs to complete a charge.
type PaymentIntent struct {
	Reference    string          `json:"paymentIntentId"`
	ClientSecret string          `json:"clientSecret"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	// Contest is set when no charge was needed and the user is already registered.
	Contest *models.Contest `json:"contest,omitempty"`
}

// CreatePaymentIntent opens a charge for the contest's entry fee. A contest
// with no entry fee registers the user immediately. A caller who is already
// registered gets errs.ErrAlreadyRegistered with the current contest set on
// the intent and no charge opened.
func (m *Manager) CreatePaymentIntent(ctx context.Context, contestID uuid.UUID, actor Actor) (PaymentIntent, error) {
	c, err := m.store.GetContest(ctx, contestID)
	if err != nil {
		return PaymentIntent{}, err
	}
	if err := m.registrationOpen(c, actor.ID); err != nil {
		if errs.IsIdempotentNoop(err) {
			current := m.view(c)
			return PaymentIntent{Amount: c.Price, Currency: m.currency, Contest: &current}, err
		}
		return PaymentIntent{}, err
	}

	if c.Price.IsZero() {
		joined, err := m.registerFree(ctx, contestID, actor.ID)
		if err != nil && !errs.IsIdempotentNoop(err) {
			return PaymentIntent{}, err
		}
		return PaymentIntent{Amount: decimal.Zero, Currency: m.currency, Contest: &joined}, err
	}

	if m.payments == nil {
		return PaymentIntent{}, errs.NewServiceUnavailableError("payments")
	}
	intent, err := m.payments.CreateIntent(ctx, contestID, actor.ID, c.Price, m.currency)
	if err != nil {
		return PaymentIntent{}, err
	}
	if _, err := m.store.SavePayment(ctx, models.Payment{
		ContestID: contestID,
		UserID:    actor.ID,
		Reference: intent.Reference,
		Amount:    intent.Amount,
		Currency:  intent.Currency,
		Status:    models.PaymentPending,
	}); err != nil {
		return PaymentIntent{}, err
	}

	return PaymentIntent{
		Reference:    intent.Reference,
		ClientSecret: intent.ClientSecret,
		Amount:       intent.Amount,
		Currency:     intent.Currency,
	}, nil
}

func (m *Manager) registerFree(ctx context.Context, contestID, userID uuid.UUID) (models.Contest, error) {
	return m.update(ctx, "registerParticipant", contestID, func(c models.Contest) (*Mutation, error) {
		if err := m.registrationOpen(c, userID); err != nil {
			return nil, err
		}
		if !c.Price.IsZero() {
			return nil, errs.NewPaymentRequiredError()
		}
		return m.registration(c, userID, &models.Payment{
			ContestID: contestID,
			UserID:    userID,
			Reference: freeReference(contestID, userID),
			Amount:    decimal.Zero,
			Currency:  m.currency,
			Status:    models.PaymentPaid,
		}), nil
	})
}

// ConfirmPayment verifies an authorized charge, captures it and registers
// the user in a single commit. Funds are released when the contest closed
// before the commit could land. Retrying a confirmation that already
// succeeded returns the contest with errs.ErrAlreadyRegistered.
func (m *Manager) ConfirmPayment(ctx context.Context, contestID, userID uuid.UUID, reference string) (models.Contest, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return models.Contest{}, errs.NewValidationError("paymentIntentId", "is required")
	}
	if m.payments == nil {
		return models.Contest{}, errs.NewServiceUnavailableError("payments")
	}

	c, err := m.store.GetContest(ctx, contestID)
	if err != nil {
		return models.Contest{}, err
	}
	intent, err := m.payments.Lookup(ctx, reference)
	if err != nil {
		return models.Contest{}, err
	}
	if intent.ContestID != contestID || intent.UserID != userID {
		return models.Contest{}, errs.NewValidationError("paymentIntentId", "does not belong to this contest and user")
	}
	if !intent.Amount.Equal(c.Price) {
		return models.Contest{}, errs.NewValidationError("paymentIntentId", "amount does not match the entry fee")
	}

	switch intent.State {
	case IntentAuthorized:
		if err := m.registrationOpen(c, userID); err != nil {
			if errors.Is(err, errs.ErrContestEnded) || errors.Is(err, errs.ErrAlreadyRegistered) {
				err = m.release(ctx, reference, err)
			}
			if errs.IsIdempotentNoop(err) {
				return m.view(c), err
			}
			return models.Contest{}, err
		}
		if intent, err = m.payments.Capture(ctx, reference); err != nil {
			return models.Contest{}, err
		}
	case IntentCaptured:
	default:
		return models.Contest{}, errs.NewPaymentRequiredError()
	}

	paid := models.Payment{
		ContestID: contestID,
		UserID:    userID,
		Reference: intent.Reference,
		Amount:    intent.Amount,
		Currency:  intent.Currency,
		Status:    models.PaymentPaid,
	}
	joined, err := m.update(ctx, "confirmPayment", contestID, func(c models.Contest) (*Mutation, error) {
		if err := m.registrationOpen(c, userID); err != nil {
			return nil, err
		}
		return m.registration(c, userID, &paid), nil
	})
	switch {
	case err == nil:
		return joined, nil
	case errors.Is(err, errs.ErrAlreadyRegistered):
		if _, saveErr := m.store.SavePayment(ctx, paid); saveErr != nil {
			return models.Contest{}, saveErr
		}
		return joined, err
	case errors.Is(err, errs.ErrContestEnded):
		err = m.release(ctx, reference, err)
	}
	return models.Contest{}, err
}

// release returns the held funds and reports cause. A failed release is
// attached to cause so the caller sees both.
func (m *Manager) release(ctx context.Context, reference string, cause error) error {
	relErr := m.payments.Release(ctx, reference)
	if relErr == nil {
		return cause
	}
	var apiErr *errs.ApiErr
	if errors.As(cause, &apiErr) && apiErr.Cause == nil {
		apiErr.Cause = fmt.Errorf("release payment %s: %w", reference, relErr)
		return apiErr
	}
	return errors.Join(cause, relErr)
}
