package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/skillarena/backend/errs"
	"github.com/skillarena/backend/lifecycle"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

const (
	metaContestID = "contest_id"
	metaUserID    = "user_id"
)

// StripePayments holds entry fees as manually captured payment intents, so
// funds are only taken once the participant is registered.
type StripePayments struct {
	api *client.API
}

var _ lifecycle.PaymentProvider = (*StripePayments)(nil)

// NewStripePayments returns nil when secretKey is empty. backends may be nil
// to talk to the live Stripe API.
func NewStripePayments(secretKey string, backends *stripe.Backends) *StripePayments {
	if secretKey == "" {
		return nil
	}
	return &StripePayments{api: client.New(secretKey, backends)}
}

func (s *StripePayments) CreateIntent(ctx context.Context, contestID, userID uuid.UUID, amount decimal.Decimal, currency string) (lifecycle.Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(toMinorUnits(amount)),
		Currency:      stripe.String(currency),
		CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata(metaContestID, contestID.String())
	params.AddMetadata(metaUserID, userID.String())

	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return lifecycle.Intent{}, errs.NewUpstreamError("stripe", err)
	}
	return intentFromStripe(pi), nil
}

func (s *StripePayments) Lookup(ctx context.Context, reference string) (lifecycle.Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := s.api.PaymentIntents.Get(reference, params)
	if err != nil {
		if stripeErr, ok := err.(*stripe.Error); ok && stripeErr.HTTPStatusCode == 404 {
			return lifecycle.Intent{}, errs.NewNotFound("payment intent")
		}
		return lifecycle.Intent{}, errs.NewUpstreamError("stripe", err)
	}
	return intentFromStripe(pi), nil
}

func (s *StripePayments) Capture(ctx context.Context, reference string) (lifecycle.Intent, error) {
	params := &stripe.PaymentIntentCaptureParams{}
	params.Context = ctx
	params.SetIdempotencyKey("capture-" + reference)
	pi, err := s.api.PaymentIntents.Capture(reference, params)
	if err != nil {
		return lifecycle.Intent{}, errs.NewUpstreamError("stripe", err)
	}
	return intentFromStripe(pi), nil
}

// Release cancels a held intent, or refunds one that was already captured.
func (s *StripePayments) Release(ctx context.Context, reference string) error {
	intent, err := s.Lookup(ctx, reference)
	if err != nil {
		return err
	}

	switch intent.State {
	case lifecycle.IntentCaptured:
		params := &stripe.RefundParams{PaymentIntent: stripe.String(reference)}
		params.Context = ctx
		params.SetIdempotencyKey("refund-" + reference)
		if _, err := s.api.Refunds.New(params); err != nil {
			return errs.NewUpstreamError("stripe", err)
		}
	case lifecycle.IntentFailed:
	default:
		params := &stripe.PaymentIntentCancelParams{}
		params.Context = ctx
		if _, err := s.api.PaymentIntents.Cancel(reference, params); err != nil {
			return errs.NewUpstreamError("stripe", err)
		}
	}
	return nil
}

func intentFromStripe(pi *stripe.PaymentIntent) lifecycle.Intent {
	in := lifecycle.Intent{
		Reference:    pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       fromMinorUnits(pi.Amount),
		Currency:     string(pi.Currency),
		State:        intentState(pi.Status),
	}
	if id, err := uuid.Parse(pi.Metadata[metaContestID]); err == nil {
		in.ContestID = id
	}
	if id, err := uuid.Parse(pi.Metadata[metaUserID]); err == nil {
		in.UserID = id
	}
	return in
}

func intentState(status stripe.PaymentIntentStatus) lifecycle.IntentState {
	switch status {
	case stripe.PaymentIntentStatusRequiresCapture:
		return lifecycle.IntentAuthorized
	case stripe.PaymentIntentStatusSucceeded:
		return lifecycle.IntentCaptured
	case stripe.PaymentIntentStatusCanceled:
		return lifecycle.IntentFailed
	}
	return lifecycle.IntentPending
}

// toMinorUnits converts a two-decimal amount to cents.
func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func fromMinorUnits(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
