package api

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/skillarena/backend/database"
	"github.com/skillarena/backend/lifecycle"
)

// leaderboardCache is *services.LeaderboardCache.
type leaderboardCache interface {
	Get(ctx context.Context) ([]lifecycle.LeaderboardEntry, bool, error)
	Set(ctx context.Context, entries []lifecycle.LeaderboardEntry) error
}

type standingsHandler struct {
	responder Responder
	logger    zerolog.Logger
	manager   *lifecycle.Manager
	users     *database.UserRepo
	cache     leaderboardCache
}

func newStandingsHandler(manager *lifecycle.Manager, users *database.UserRepo, cache leaderboardCache) standingsHandler {
	logger := log.With().Str("handlerName", "standingsHandler").Logger()

	return standingsHandler{
		responder: NewResponder(logger),
		logger:    logger,
		manager:   manager,
		users:     users,
		cache:     cache,
	}
}

func (h standingsHandler) leaderboard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if h.cache != nil {
			entries, ok, err := h.cache.Get(ctx)
			if err != nil {
				h.logger.Warn().Err(err).Msg("Leaderboard cache read failed")
			}
			if ok {
				h.responder.WriteJSON(w, nonNil(entries))
				return
			}
		}

		users, err := h.users.FindAll(ctx)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		contests, err := h.manager.Snapshot(ctx)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		entries := lifecycle.Leaderboard(users, contests)

		if h.cache != nil {
			if err := h.cache.Set(ctx, entries); err != nil {
				h.logger.Warn().Err(err).Msg("Leaderboard cache write failed")
			}
		}
		h.responder.WriteJSON(w, nonNil(entries))
	}
}

// statistics reports platform totals for admins
// @Summary Platform statistics
// @Tags Standings
// @Success 200 {object} lifecycle.Statistics
// @Router /statistics [get]
func (h standingsHandler) statistics() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := h.users.FindAll(r.Context())
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		contests, err := h.manager.Snapshot(r.Context())
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, lifecycle.ComputeStatistics(users, contests))
	}
}

func (h standingsHandler) winners() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := h.users.FindAll(r.Context())
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		contests, err := h.manager.Snapshot(r.Context())
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, nonNil(lifecycle.Winners(users, contests)))
	}
}
