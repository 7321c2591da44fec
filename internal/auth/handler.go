package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/hlog"

	"github.com/ayush/devconnector/backend/internal/gravatar"
	"github.com/ayush/devconnector/backend/internal/models"
	"github.com/ayush/devconnector/backend/internal/respond"
	"github.com/ayush/devconnector/backend/internal/store"
	"github.com/ayush/devconnector/backend/internal/validate"
)

// UserStore defines the user persistence the auth handlers need.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// AuditLog records authentication events. Failures are logged and never
// fail the request.
type AuditLog interface {
	Record(ctx context.Context, ev models.AuthEvent) error
}

type nopAudit struct{}

func (nopAudit) Record(context.Context, models.AuthEvent) error { return nil }

// Handler holds auth-related HTTP handlers.
type Handler struct {
	users  UserStore
	hasher *Hasher
	tokens *TokenManager
	audit  AuditLog
}

// NewHandler builds the handlers. audit may be nil.
func NewHandler(users UserStore, hasher *Hasher, tokens *TokenManager, audit AuditLog) *Handler {
	if audit == nil {
		audit = nopAudit{}
	}
	return &Handler{users: users, hasher: hasher, tokens: tokens, audit: audit}
}

const msgPasswordTooLong = "Password length needs to be of maximum 72 bytes"

type tokenResponse struct {
	Token string `json:"token"`
}

// Register creates a user and returns a token for it.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.BadBody(w)
		return
	}
	if errs := validate.Struct(&req); errs != nil {
		respond.Validation(w, errs)
		return
	}

	ctx := r.Context()
	email := normalizeEmail(req.Email)

	_, err := h.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		respond.Errors(w, http.StatusBadRequest, "User already exists")
		return
	case !errors.Is(err, store.ErrNotFound):
		respond.ServerError(w, r, err)
		return
	}

	hashed, err := h.hasher.Hash(ctx, req.Password)
	if errors.Is(err, ErrPasswordTooLong) {
		respond.Validation(w, []validate.FieldError{{
			Msg:      msgPasswordTooLong,
			Param:    "password",
			Location: "body",
		}})
		return
	}
	if err != nil {
		respond.ServerError(w, r, err)
		return
	}

	user := &models.User{
		Name:     strings.TrimSpace(req.Name),
		Email:    email,
		Password: hashed,
		Avatar:   gravatar.URL(email),
		Date:     time.Now().UTC(),
	}
	if err := h.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			respond.Errors(w, http.StatusBadRequest, "User already exists")
			return
		}
		respond.ServerError(w, r, err)
		return
	}

	h.respondWithToken(w, r, user, models.EventRegister)
}

// Login checks the credentials and returns a fresh token. Unknown email and
// wrong password get the same answer.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.BadBody(w)
		return
	}
	if errs := validate.Struct(&req); errs != nil {
		respond.Validation(w, errs)
		return
	}

	ctx := r.Context()
	email := normalizeEmail(req.Email)

	user, err := h.users.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		if err := h.hasher.VerifyUnknown(ctx, req.Password); err != nil {
			respond.ServerError(w, r, err)
			return
		}
		h.record(r, models.AuthEvent{Email: email, Kind: models.EventLoginFailed})
		respond.Errors(w, http.StatusBadRequest, "Invalid Credentials")
		return
	}
	if err != nil {
		respond.ServerError(w, r, err)
		return
	}

	ok, err := h.hasher.Verify(ctx, req.Password, user.Password)
	if err != nil {
		respond.ServerError(w, r, err)
		return
	}
	if !ok {
		h.record(r, models.AuthEvent{UserID: user.ID.Hex(), Email: email, Kind: models.EventLoginFailed})
		respond.Errors(w, http.StatusBadRequest, "Invalid Credentials")
		return
	}

	h.respondWithToken(w, r, user, models.EventLogin)
}

// Me returns the currently authenticated user.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFrom(r.Context())
	if !ok {
		respond.Message(w, http.StatusUnauthorized, "No token, Access denied")
		return
	}

	user, err := h.users.GetUserByID(r.Context(), id.UserID)
	if errors.Is(err, store.ErrNotFound) {
		respond.Message(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		respond.ServerError(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, user)
}

func (h *Handler) respondWithToken(w http.ResponseWriter, r *http.Request, user *models.User, kind models.AuthEventKind) {
	token, err := h.tokens.Issue(user.ID.Hex())
	if err != nil {
		respond.ServerError(w, r, err)
		return
	}
	h.record(r, models.AuthEvent{UserID: user.ID.Hex(), Email: user.Email, Kind: kind})
	respond.JSON(w, http.StatusOK, tokenResponse{Token: token})
}

func (h *Handler) record(r *http.Request, ev models.AuthEvent) {
	ev.RemoteAddr = r.RemoteAddr
	ev.CreatedAt = time.Now().UTC()
	if err := h.audit.Record(r.Context(), ev); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Str("kind", string(ev.Kind)).Msg("audit record failed")
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
