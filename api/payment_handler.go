package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/skillarena/backend/errs"
	"github.com/skillarena/backend/lifecycle"
	"github.com/skillarena/backend/models"
)

type paymentFinder interface {
	FindByUser(ctx context.Context, userID uuid.UUID) ([]models.Payment, error)
}

type paymentHandler struct {
	responder Responder
	logger    zerolog.Logger
	manager   *lifecycle.Manager
	payments  paymentFinder
}

func newPaymentHandler(manager *lifecycle.Manager, payments paymentFinder) paymentHandler {
	logger := log.With().Str("handlerName", "paymentHandler").Logger()

	return paymentHandler{
		responder: NewResponder(logger),
		logger:    logger,
		manager:   manager,
		payments:  payments,
	}
}

// writeJoined answers a registration outcome. AlreadyRegistered is not a
// failure for the caller: it gets 200 and the contest it is already in.
func (h paymentHandler) writeJoined(w http.ResponseWriter, contest models.Contest, err error) {
	if err != nil && !errs.IsIdempotentNoop(err) {
		h.responder.WriteError(w, err)
		return
	}
	h.responder.WriteJSON(w, contest)
}

// createPaymentIntent opens an entry-fee charge, or registers the caller
// straight away when the contest is free
// @Summary Create payment intent
// @Tags Payments
// @Success 200 {object} lifecycle.PaymentIntent
// @Router /create-payment-intent [post]
func (h paymentHandler) createPaymentIntent() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ctxGetActor(r.Context())
		var req paymentIntentRequest
		if err := decodeJSON(w, r, &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		contestID, err := uuidField("contestId", req.ContestID)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		intent, err := h.manager.CreatePaymentIntent(r.Context(), contestID, actor)
		if err != nil && !errs.IsIdempotentNoop(err) {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, intent)
	}
}

// confirmPayment captures an authorized charge and registers the caller
// @Summary Confirm payment
// @Tags Payments
// @Failure 402 {object} ErrorResponse "Payment not completed"
// @Router /confirm-payment [post]
func (h paymentHandler) confirmPayment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ctxGetActor(r.Context())
		var req confirmPaymentRequest
		if err := decodeJSON(w, r, &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		contestID, err := uuidField("contestId", req.ContestID)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		contest, err := h.manager.ConfirmPayment(r.Context(), contestID, actor.ID, strings.TrimSpace(req.PaymentIntentID))
		h.writeJoined(w, contest, err)
	}
}

// registerParticipant joins the caller to a contest whose fee is already paid.
func (h paymentHandler) registerParticipant() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ctxGetActor(r.Context())
		contestID, err := uuidParam(r, "contestID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		contest, err := h.manager.RegisterParticipant(r.Context(), contestID, actor.ID)
		h.writeJoined(w, contest, err)
	}
}

func (h paymentHandler) userPayments() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ctxGetActor(r.Context())
		userID, err := uuidParam(r, "userID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if err := selfOrAdmin(actor, userID); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		payments, err := h.payments.FindByUser(r.Context(), userID)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, nonNil(payments))
	}
}
