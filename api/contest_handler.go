package api

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/skillarena/backend/errs"
	"github.com/skillarena/backend/lifecycle"
	"github.com/skillarena/backend/models"
)

const (
	popularLimit = 6
	searchLimit  = 200
)

// contestSearcher is the full-text index; *services.ContestSearch implements it.
type contestSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]uuid.UUID, error)
}

type contestHandler struct {
	responder Responder
	logger    zerolog.Logger
	manager   *lifecycle.Manager
	search    contestSearcher
}

func newContestHandler(manager *lifecycle.Manager, search contestSearcher) contestHandler {
	logger := log.With().Str("handlerName", "contestHandler").Logger()

	return contestHandler{
		responder: NewResponder(logger),
		logger:    logger,
		manager:   manager,
		search:    search,
	}
}

func (req contestRequest) draft() lifecycle.ContestDraft {
	return lifecycle.ContestDraft{
		Name:            req.Name,
		Description:     req.Description,
		TaskInstruction: req.TaskInstruction,
		Image:           req.Image,
		Type:            req.Type,
		Price:           moneyText(req.Price),
		PrizeMoney:      moneyText(req.PrizeMoney),
		Deadline:        req.Deadline,
	}
}

// moneyText leaves an absent amount empty so the draft reports it as
// required, or keeps the stored value on edit.
func moneyText(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}

// createContest stores a new pending contest owned by the caller
// @Summary Create contest
// @Tags Contests
// @Accept json
// @Produce json
// @Success 201 {object} models.Contest
// @Failure 400 {object} ErrorResponse "Validation error"
// @Failure 403 {object} ErrorResponse "Caller is not a creator"
// @Router /contests [post]
func (h contestHandler) createContest() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ctxGetActor(r.Context())

		var req contestRequest
		if err := decodeJSON(w, r, &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		contest, err := h.manager.CreateContest(r.Context(), req.draft(), actor)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSONStatus(w, http.StatusCreated, contest)
	}
}

// listContests returns the contests visible to the caller's role
// @Summary List contests
// @Tags Contests
// @Param type query string false "Contest type"
// @Param status query string false "Contest status"
// @Param search query string false "Free-text search"
// @Success 200 {array} models.Contest
// @Router /contests [get]
func (h contestHandler) listContests() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ctxGetActor(r.Context())
		query := r.URL.Query()

		var filter lifecycle.ListFilter
		if raw := strings.TrimSpace(query.Get("type")); raw != "" {
			t, ok := models.ParseContestType(raw)
			if !ok {
				h.responder.WriteError(w, errs.NewValidationError("type", "is not a known contest type"))
				return
			}
			filter.Type = t
		}
		if raw := strings.TrimSpace(query.Get("status")); raw != "" {
			s, ok := models.ParseContestStatus(raw)
			if !ok {
				h.responder.WriteError(w, errs.NewValidationError("status", "is not a known contest status"))
				return
			}
			filter.Status = s
		}
		if term := strings.TrimSpace(query.Get("search")); term != "" {
			filter.Search = term
			if h.search != nil {
				ids, err := h.search.Search(r.Context(), term, searchLimit)
				if err == nil {
					filter.Search = ""
					filter.IDs = ids
				} else {
					h.logger.Warn().Err(err).Msg("Contest search unavailable, falling back to database match")
				}
			}
		}

		seq, err := h.manager.ListForRole(r.Context(), actor, filter)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		contests := slices.Collect(seq)
		if filter.IDs != nil {
			contests = orderByIDs(contests, filter.IDs)
		}
		h.responder.WriteJSON(w, nonNil(contests))
	}
}

// orderByIDs sorts contests into the relevance order of ids.
func orderByIDs(contests []models.Contest, ids []uuid.UUID) []models.Contest {
	rank := make(map[uuid.UUID]int, len(ids))
	for i, id := range ids {
		rank[id] = i
	}
	slices.SortStableFunc(contests, func(a, b models.Contest) int {
		return rank[a.ID] - rank[b.ID]
	})
	return contests
}

func (h contestHandler) getContest() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ctxGetActor(r.Context())
		id, err := uuidParam(r, "contestID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		contest, err := h.manager.GetContest(r.Context(), id, actor)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, contest)
	}
}

// editContest updates a pending contest; omitted fields keep their value
// @Summary Edit contest
// @Tags Contests
// @Router /contests/{contestID} [put]
func (h contestHandler) editContest() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ctxGetActor(r.Context())
		id, err := uuidParam(r, "contestID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		var req contestRequest
		if err := decodeJSON(w, r, &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		contest, err := h.manager.EditContest(r.Context(), id, req.draft(), actor)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, contest)
	}
}

func (h contestHandler) deleteContest() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ctxGetActor(r.Context())
		id, err := uuidParam(r, "contestID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		if err := h.manager.DeleteContest(r.Context(), id, actor); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// setStatus approves or rejects a contest. Legacy clients declare a winner
// through this endpoint with status completed, ended or winnerDeclared.
// @Summary Change contest status
// @Tags Contests
// @Failure 409 {object} ErrorResponse "Invalid transition"
// @Router /contests/{contestID}/status [patch]
func (h contestHandler) setStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ctxGetActor(r.Context())
		id, err := uuidParam(r, "contestID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		var req statusRequest
		if err := decodeJSON(w, r, &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if strings.TrimSpace(req.Status) == "" {
			h.responder.WriteError(w, errs.NewMissingRequiredFieldError("status"))
			return
		}

		target, known := models.ParseContestStatus(req.Status)
		if known && target == models.StatusWinnerDeclared {
			winnerID, err := uuidField("winnerId", req.WinnerID)
			if err != nil {
				h.responder.WriteError(w, err)
				return
			}
			h.writeDeclared(w, r, id, winnerID, actor)
			return
		}
		if !known {
			// unknown targets are still routed through the manager so the
			// caller gets an InvalidTransition naming the current status
			target = models.ContestStatus(req.Status)
		}

		contest, err := h.manager.SetStatus(r.Context(), id, target, actor)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, contest)
	}
}

// declareWinner records the winner of a contest
// @Summary Declare winner
// @Tags Contests
// @Failure 409 {object} ErrorResponse "A different winner was already declared"
// @Failure 422 {object} ErrorResponse "Winner is not a participant"
// @Router /contests/{contestID}/winner [post]
func (h contestHandler) declareWinner() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ctxGetActor(r.Context())
		id, err := uuidParam(r, "contestID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		var req winnerRequest
		if err := decodeJSON(w, r, &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		winnerID, err := uuidField("winnerId", req.WinnerID)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.writeDeclared(w, r, id, winnerID, actor)
	}
}

func (h contestHandler) writeDeclared(w http.ResponseWriter, r *http.Request, id, winnerID uuid.UUID, actor lifecycle.Actor) {
	contest, err := h.manager.DeclareWinner(r.Context(), id, winnerID, actor)
	if err != nil {
		h.responder.WriteError(w, err)
		return
	}
	h.responder.WriteJSON(w, contest)
}

func (h contestHandler) popularContests() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contests, err := h.manager.Popular(r.Context(), popularLimit)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, nonNil(contests))
	}
}

func (h contestHandler) participatedContests() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ctxGetActor(r.Context())
		contests, err := h.manager.ParticipatedContests(r.Context(), actor.ID)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, nonNil(contests))
	}
}

func (h contestHandler) wonContests() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ctxGetActor(r.Context())
		contests, err := h.manager.WonContests(r.Context(), actor.ID)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, nonNil(contests))
	}
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

