// Package avatar serves user avatars: Gravatar URLs by default, uploaded
// images stored in object storage once a user replaces it.
package avatar

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/hlog"

	"github.com/ayush/devconnector/backend/internal/auth"
	"github.com/ayush/devconnector/backend/internal/models"
	"github.com/ayush/devconnector/backend/internal/respond"
	"github.com/ayush/devconnector/backend/internal/store"
)

// MaxSize is the largest accepted upload.
const MaxSize = 2 << 20

// FileStore defines the interface for file storage.
type FileStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Download(ctx context.Context, key string) ([]byte, string, error)
	Remove(ctx context.Context, key string) error
}

// UserStore defines the user lookups and updates avatars need.
type UserStore interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	SetAvatar(ctx context.Context, id, url, key string) error
}

type Handler struct {
	files FileStore
	users UserStore
}

func NewHandler(files FileStore, users UserStore) *Handler {
	return &Handler{files: files, users: users}
}

// URL is where the uploaded avatar of userID is served.
func URL(userID string) string {
	return "/api/profile/avatar/" + userID
}

// Upload replaces the caller's avatar with the multipart file "avatar".
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFrom(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, MaxSize+64<<10)
	file, _, err := r.FormFile("avatar")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Errors(w, http.StatusRequestEntityTooLarge, "Avatar must be at most 2MB")
			return
		}
		respond.Errors(w, http.StatusBadRequest, "Avatar image is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxSize+1))
	if err != nil {
		respond.ServerError(w, r, err)
		return
	}
	if len(data) > MaxSize {
		respond.Errors(w, http.StatusRequestEntityTooLarge, "Avatar must be at most 2MB")
		return
	}
	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		respond.Errors(w, http.StatusBadRequest, "Avatar must be an image")
		return
	}

	ctx := r.Context()
	user, err := h.users.GetUserByID(ctx, id.UserID)
	if errors.Is(err, store.ErrNotFound) {
		respond.Message(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		respond.ServerError(w, r, err)
		return
	}

	key := id.UserID + "/" + uuid.NewString()
	if err := h.files.Upload(ctx, key, data, contentType); err != nil {
		respond.ServerError(w, r, err)
		return
	}
	if err := h.users.SetAvatar(ctx, id.UserID, URL(id.UserID), key); err != nil {
		if rmErr := h.files.Remove(ctx, key); rmErr != nil {
			hlog.FromRequest(r).Warn().Err(rmErr).Str("key", key).Msg("remove orphaned avatar")
		}
		respond.ServerError(w, r, err)
		return
	}
	if user.AvatarKey != "" {
		if err := h.files.Remove(ctx, user.AvatarKey); err != nil {
			hlog.FromRequest(r).Warn().Err(err).Str("key", user.AvatarKey).Msg("remove old avatar")
		}
	}

	respond.JSON(w, http.StatusOK, map[string]string{"avatar": URL(id.UserID)})
}

// Download streams the uploaded avatar of the user in the URL.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	user, err := h.users.GetUserByID(r.Context(), userID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && user.AvatarKey == "") {
		respond.Message(w, http.StatusNotFound, "Avatar not found")
		return
	}
	if err != nil {
		respond.ServerError(w, r, err)
		return
	}

	data, ct, err := h.files.Download(r.Context(), user.AvatarKey)
	if errors.Is(err, store.ErrNotFound) {
		respond.Message(w, http.StatusNotFound, "Avatar not found")
		return
	}
	if err != nil {
		respond.ServerError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.Write(data)
}
