package api

import (
	"net/http"
	"net/mail"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/skillarena/backend/database"
	"github.com/skillarena/backend/errs"
	"github.com/skillarena/backend/models"
)

type userHandler struct {
	responder Responder
	logger    zerolog.Logger
	users     *database.UserRepo
}

func newUserHandler(users *database.UserRepo) userHandler {
	logger := log.With().Str("handlerName", "userHandler").Logger()

	return userHandler{
		responder: NewResponder(logger),
		logger:    logger,
		users:     users,
	}
}

func validPhotoURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// registerUser creates the profile of a newly signed-up account with role user
// @Summary Register user
// @Tags Users
// @Success 201 {object} models.User
// @Failure 409 {object} ErrorResponse "Email already registered"
// @Router /users [post]
func (h userHandler) registerUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerUserRequest
		if err := decodeJSON(w, r, &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		name := strings.TrimSpace(req.Name)
		if name == "" {
			h.responder.WriteError(w, errs.NewValidationError("name", "is required"))
			return
		}
		addr, err := mail.ParseAddress(strings.TrimSpace(req.Email))
		if err != nil {
			h.responder.WriteError(w, errs.NewValidationError("email", "is not a valid address"))
			return
		}
		photo := strings.TrimSpace(req.PhotoURL)
		if photo == "" {
			photo = models.DefaultAvatarURL
		} else if !validPhotoURL(photo) {
			h.responder.WriteError(w, errs.NewValidationError("photoURL", "must be an http(s) URL"))
			return
		}

		user := models.User{Name: name, Email: addr.Address, PhotoURL: photo, Role: models.RoleUser}
		if err := h.users.Add(r.Context(), &user); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.logger.Info().Str("userId", user.ID.String()).Msg("User registered")
		h.responder.WriteJSONStatus(w, http.StatusCreated, user)
	}
}

func (h userHandler) me() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := ctxGetUser(r.Context())
		h.responder.WriteJSON(w, user)
	}
}

func (h userHandler) listUsers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := h.users.FindAll(r.Context())
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, nonNil(users))
	}
}

// updateProfile changes the caller's own name, photo, bio or address.
func (h userHandler) updateProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ctxGetActor(r.Context())
		userID, err := uuidParam(r, "userID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if actor.ID != userID {
			h.responder.WriteError(w, errs.NewForbiddenError("users can only edit their own profile"))
			return
		}

		var req profileRequest
		if err := decodeJSON(w, r, &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
			h.responder.WriteError(w, errs.NewValidationError("name", "must not be empty"))
			return
		}
		if req.PhotoURL != nil && !validPhotoURL(strings.TrimSpace(*req.PhotoURL)) {
			h.responder.WriteError(w, errs.NewValidationError("photoURL", "must be an http(s) URL"))
			return
		}

		user, err := h.users.UpdateProfile(r.Context(), userID, database.ProfileUpdate{
			Name:     req.Name,
			PhotoURL: req.PhotoURL,
			Bio:      req.Bio,
			Address:  req.Address,
		})
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, user)
	}
}

// setRole changes another user's platform role
// @Summary Set user role
// @Tags Users
// @Router /users/{userID}/role [patch]
func (h userHandler) setRole() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ctxGetActor(r.Context())
		userID, err := uuidParam(r, "userID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		var req roleRequest
		if err := decodeJSON(w, r, &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		role, ok := models.ParseRole(req.Role)
		if !ok {
			h.responder.WriteError(w, errs.NewValidationError("role", "must be user, creator or admin"))
			return
		}
		if userID == actor.ID {
			h.responder.WriteError(w, errs.NewForbiddenError("admins cannot change their own role"))
			return
		}

		user, err := h.users.SetRole(r.Context(), userID, role)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.logger.Info().Str("userId", userID.String()).Str("role", string(role)).Str("by", actor.ID.String()).Msg("Role changed")
		h.responder.WriteJSON(w, user)
	}
}

func (h userHandler) deleteUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ctxGetActor(r.Context())
		userID, err := uuidParam(r, "userID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if userID == actor.ID {
			h.responder.WriteError(w, errs.NewForbiddenError("admins cannot delete themselves"))
			return
		}

		if err := h.users.Delete(r.Context(), userID); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// bootstrapAdmin promotes the caller to admin when the platform has never had one.
func (h userHandler) bootstrapAdmin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ctxGetActor(r.Context())
		userID, err := uuidParam(r, "userID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if userID != actor.ID {
			h.responder.WriteError(w, errs.NewForbiddenError("users can only bootstrap themselves"))
			return
		}

		user, err := h.users.BootstrapAdmin(r.Context(), userID)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.logger.Warn().Str("userId", userID.String()).Msg("Admin bootstrapped")
		h.responder.WriteJSON(w, user)
	}
}
