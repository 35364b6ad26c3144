package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/skillarena/backend/errs"
	"github.com/skillarena/backend/services"
)

type imageUploader interface {
	Presign(ctx context.Context, ownerID uuid.UUID, folder, contentType string) (services.ImageUpload, error)
}

type uploadHandler struct {
	responder Responder
	logger    zerolog.Logger
	uploads   imageUploader
}

func newUploadHandler(uploads imageUploader) uploadHandler {
	logger := log.With().Str("handlerName", "uploadHandler").Logger()

	return uploadHandler{
		responder: NewResponder(logger),
		logger:    logger,
		uploads:   uploads,
	}
}

// presignImage returns a one-time upload URL for a contest or profile image
// @Summary Presign image upload
// @Tags Uploads
// @Success 200 {object} services.ImageUpload
// @Failure 503 {object} ErrorResponse "Image hosting not configured"
// @Router /uploads/images [post]
func (h uploadHandler) presignImage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.uploads == nil {
			h.responder.WriteError(w, errs.NewServiceUnavailableError("image hosting"))
			return
		}
		actor, _ := ctxGetActor(r.Context())

		var req uploadRequest
		if err := decodeJSON(w, r, &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		folder := req.Folder
		if folder == "" {
			folder = "contests"
		}

		upload, err := h.uploads.Presign(r.Context(), actor.ID, folder, req.ContentType)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, upload)
	}
}
