package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/skillarena/backend/database"
	"github.com/skillarena/backend/errs"
)

type authHandler struct {
	responder Responder
	logger    zerolog.Logger
	users     *database.UserRepo
	tokens    tokenIssuer
}

func newAuthHandler(users *database.UserRepo, tokens tokenIssuer) authHandler {
	logger := log.With().Str("handlerName", "authHandler").Logger()

	return authHandler{
		responder: NewResponder(logger),
		logger:    logger,
		users:     users,
		tokens:    tokens,
	}
}

// issueToken exchanges a verified email for an access token. Only the
// trusted front-end server, holding X-Backend-Key, may call it.
// @Summary Issue access token
// @Tags Auth
// @Success 200 {object} tokenResponse
// @Failure 401 {object} ErrorResponse "Missing or wrong backend key"
// @Router /auth/jwt [post]
func (h authHandler) issueToken() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req tokenRequest
		if err := decodeJSON(w, r, &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if strings.TrimSpace(req.Email) == "" {
			h.responder.WriteError(w, errs.NewMissingRequiredFieldError("email"))
			return
		}

		user, err := h.users.FindByEmail(r.Context(), req.Email)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		token, expires, err := h.tokens.issue(user)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, tokenResponse{Token: token, ExpiresAt: expires.UTC().Format(time.RFC3339)})
	}
}
