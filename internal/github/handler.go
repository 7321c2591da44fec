package github

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/ayush/devconnector/backend/internal/respond"
)

// RepoLister is the lookup the handler needs.
type RepoLister interface {
	Repos(ctx context.Context, username string) (json.RawMessage, error)
}

type Handler struct {
	repos RepoLister
}

func NewHandler(repos RepoLister) *Handler {
	return &Handler{repos: repos}
}

// Repos answers GET /api/profile/github/{username}. Any upstream failure
// reads as a missing profile to the client.
func (h *Handler) Repos(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	body, err := h.repos.Repos(r.Context(), username)
	if err != nil {
		if !errors.Is(err, ErrNoProfile) {
			hlog.FromRequest(r).Warn().Err(err).Str("username", username).Msg("github lookup failed")
		}
		respond.Message(w, http.StatusNotFound, "No Github profile found")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
