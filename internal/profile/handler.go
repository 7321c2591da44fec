// Package profile serves developer profiles: the profile document itself
// plus its experience and education lists.
package profile

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ayush/devconnector/backend/internal/auth"
	"github.com/ayush/devconnector/backend/internal/models"
	"github.com/ayush/devconnector/backend/internal/respond"
	"github.com/ayush/devconnector/backend/internal/store"
	"github.com/ayush/devconnector/backend/internal/validate"
)

// ProfileStore defines the interface for profile persistence.
type ProfileStore interface {
	GetProfileByUser(ctx context.Context, userID string) (*models.Profile, error)
	ListProfiles(ctx context.Context) ([]models.Profile, error)
	UpsertProfile(ctx context.Context, p *models.Profile) (*models.Profile, error)
	DeleteProfileByUser(ctx context.Context, userID string) error
	AddExperience(ctx context.Context, userID string, exp models.Experience) (*models.Profile, error)
	RemoveExperience(ctx context.Context, userID, expID string) (*models.Profile, error)
	AddEducation(ctx context.Context, userID string, edu models.Education) (*models.Profile, error)
	RemoveEducation(ctx context.Context, userID, eduID string) (*models.Profile, error)
}

// UserStore defines the user lookups profiles are populated from.
type UserStore interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// PostStore is what account deletion needs from posts.
type PostStore interface {
	DeletePostsByUser(ctx context.Context, userID string) error
}

// FileRemover drops an uploaded avatar.
type FileRemover interface {
	Remove(ctx context.Context, key string) error
}

// Handler holds profile HTTP handlers.
type Handler struct {
	profiles ProfileStore
	users    UserStore
	posts    PostStore
	files    FileRemover
}

// NewHandler builds the handlers. files may be nil when avatar uploads are
// disabled.
func NewHandler(profiles ProfileStore, users UserStore, posts PostStore, files FileRemover) *Handler {
	return &Handler{profiles: profiles, users: users, posts: posts, files: files}
}

type meResponse struct {
	Profile models.ProfileView `json:"profile"`
}

// Me returns the caller's profile.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFrom(r.Context())

	p, err := h.profiles.GetProfileByUser(r.Context(), id.UserID)
	if errors.Is(err, store.ErrNotFound) {
		respond.Message(w, http.StatusBadRequest, "User Profile does not exist")
		return
	}
	if err != nil {
		respond.ServerError(w, r, err)
		return
	}

	views, err := h.populate(r.Context(), []models.Profile{*p})
	if err != nil {
		respond.ServerError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, meResponse{Profile: views[0]})
}

// Upsert creates or updates the caller's profile.
func (h *Handler) Upsert(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFrom(r.Context())

	var req models.ProfileRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.BadBody(w)
		return
	}
	if errs := validate.Struct(&req); errs != nil {
		respond.Validation(w, errs)
		return
	}

	owner, err := primitive.ObjectIDFromHex(id.UserID)
	if err != nil {
		respond.Message(w, http.StatusUnauthorized, "Invalid token, Access denied")
		return
	}

	p, err := h.profiles.UpsertProfile(r.Context(), &models.Profile{
		User:           owner,
		Company:        strings.TrimSpace(req.Company),
		Website:        strings.TrimSpace(req.Website),
		Location:       strings.TrimSpace(req.Location),
		Status:         strings.TrimSpace(req.Status),
		Skills:         splitSkills(req.Skills),
		Bio:            req.Bio,
		GitHubUsername: strings.TrimSpace(req.GitHubUsername),
		Social: models.Social{
			YouTube:   req.YouTube,
			Twitter:   req.Twitter,
			Facebook:  req.Facebook,
			LinkedIn:  req.LinkedIn,
			Instagram: req.Instagram,
		},
	})
	if err != nil {
		respond.ServerError(w, r, err)
		return
	}
	h.writeProfile(w, r, p)
}

// List returns every profile.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.profiles.ListProfiles(r.Context())
	if err != nil {
		respond.ServerError(w, r, err)
		return
	}
	views, err := h.populate(r.Context(), profiles)
	if err != nil {
		respond.ServerError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, views)
}

// ByUser returns the profile of the user in the URL.
func (h *Handler) ByUser(w http.ResponseWriter, r *http.Request) {
	p, err := h.profiles.GetProfileByUser(r.Context(), chi.URLParam(r, "user_id"))
	if errors.Is(err, store.ErrNotFound) {
		respond.Message(w, http.StatusNotFound, "Profile not found")
		return
	}
	if err != nil {
		respond.ServerError(w, r, err)
		return
	}
	h.writeProfile(w, r, p)
}

// Delete removes the caller's posts, profile, avatar and account.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFrom(r.Context())
	ctx := r.Context()

	user, err := h.users.GetUserByID(ctx, id.UserID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		respond.ServerError(w, r, err)
		return
	}

	if err := h.posts.DeletePostsByUser(ctx, id.UserID); err != nil {
		respond.ServerError(w, r, err)
		return
	}
	if err := h.profiles.DeleteProfileByUser(ctx, id.UserID); err != nil {
		respond.ServerError(w, r, err)
		return
	}
	if h.files != nil && user != nil && user.AvatarKey != "" {
		if err := h.files.Remove(ctx, user.AvatarKey); err != nil {
			hlog.FromRequest(r).Warn().Err(err).Str("key", user.AvatarKey).Msg("remove avatar")
		}
	}
	if err := h.users.DeleteUser(ctx, id.UserID); err != nil {
		respond.ServerError(w, r, err)
		return
	}

	respond.Message(w, http.StatusOK, "User deleted")
}

// AddExperience prepends an experience entry to the caller's profile.
func (h *Handler) AddExperience(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFrom(r.Context())

	var req models.ExperienceRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.BadBody(w)
		return
	}
	if errs := validate.Struct(&req); errs != nil {
		respond.Validation(w, errs)
		return
	}

	exp := models.Experience{
		ID:          primitive.NewObjectID(),
		Title:       req.Title,
		Company:     req.Company,
		Location:    req.Location,
		Current:     req.Current,
		Description: req.Description,
	}
	exp.From, _ = validate.ParseDate(req.From)
	exp.To = optionalDate(req.To)

	p, err := h.profiles.AddExperience(r.Context(), id.UserID, exp)
	h.writeEdit(w, r, p, err)
}

// RemoveExperience drops one experience entry by id.
func (h *Handler) RemoveExperience(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFrom(r.Context())
	p, err := h.profiles.RemoveExperience(r.Context(), id.UserID, chi.URLParam(r, "exp_id"))
	if errors.Is(err, store.ErrConflict) {
		respond.Message(w, http.StatusNotFound, "Experience does not exist")
		return
	}
	h.writeEdit(w, r, p, err)
}

// AddEducation prepends an education entry to the caller's profile.
func (h *Handler) AddEducation(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFrom(r.Context())

	var req models.EducationRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.BadBody(w)
		return
	}
	if errs := validate.Struct(&req); errs != nil {
		respond.Validation(w, errs)
		return
	}

	edu := models.Education{
		ID:           primitive.NewObjectID(),
		School:       req.School,
		Degree:       req.Degree,
		FieldOfStudy: req.FieldOfStudy,
		Current:      req.Current,
		Description:  req.Description,
	}
	edu.From, _ = validate.ParseDate(req.From)
	edu.To = optionalDate(req.To)

	p, err := h.profiles.AddEducation(r.Context(), id.UserID, edu)
	h.writeEdit(w, r, p, err)
}

// RemoveEducation drops one education entry by id.
func (h *Handler) RemoveEducation(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFrom(r.Context())
	p, err := h.profiles.RemoveEducation(r.Context(), id.UserID, chi.URLParam(r, "edu_id"))
	if errors.Is(err, store.ErrConflict) {
		respond.Message(w, http.StatusNotFound, "Education does not exist")
		return
	}
	h.writeEdit(w, r, p, err)
}

func (h *Handler) writeEdit(w http.ResponseWriter, r *http.Request, p *models.Profile, err error) {
	if errors.Is(err, store.ErrNotFound) {
		respond.Message(w, http.StatusBadRequest, "User Profile does not exist")
		return
	}
	if err != nil {
		respond.ServerError(w, r, err)
		return
	}
	h.writeProfile(w, r, p)
}

func (h *Handler) writeProfile(w http.ResponseWriter, r *http.Request, p *models.Profile) {
	views, err := h.populate(r.Context(), []models.Profile{*p})
	if err != nil {
		respond.ServerError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, views[0])
}

// populate attaches each owner's name and avatar with a single user lookup.
func (h *Handler) populate(ctx context.Context, profiles []models.Profile) ([]models.ProfileView, error) {
	ids := make([]primitive.ObjectID, 0, len(profiles))
	for _, p := range profiles {
		ids = append(ids, p.User)
	}
	users, err := h.users.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]models.ProfileView, 0, len(profiles))
	for i := range profiles {
		p := &profiles[i]
		summary := models.UserSummary{ID: p.User}
		if u, ok := users[p.User]; ok {
			summary = u.Summary()
		}
		views = append(views, models.ProfileView{Profile: p, User: summary})
	}
	return views, nil
}

func splitSkills(s string) []string {
	parts := strings.Split(s, ",")
	skills := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			skills = append(skills, p)
		}
	}
	return skills
}

func optionalDate(s string) *time.Time {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	t, err := validate.ParseDate(s)
	if err != nil {
		return nil
	}
	return &t
}
