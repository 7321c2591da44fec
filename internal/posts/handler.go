// Package posts serves the post feed with its likes and comments.
package posts

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ayush/devconnector/backend/internal/auth"
	"github.com/ayush/devconnector/backend/internal/models"
	"github.com/ayush/devconnector/backend/internal/respond"
	"github.com/ayush/devconnector/backend/internal/store"
	"github.com/ayush/devconnector/backend/internal/validate"
)

const msgPostNotFound = "Post Not Found"

// PostStore defines the interface for post persistence. Like and comment
// changes are single atomic updates; ErrConflict means the precondition
// (not yet liked, liked, comment present) did not hold.
type PostStore interface {
	CreatePost(ctx context.Context, p *models.Post) error
	ListPosts(ctx context.Context) ([]models.Post, error)
	GetPostByID(ctx context.Context, id string) (*models.Post, error)
	DeletePost(ctx context.Context, id string) error
	AddLike(ctx context.Context, postID, userID string) ([]models.Like, error)
	RemoveLike(ctx context.Context, postID, userID string) ([]models.Like, error)
	AddComment(ctx context.Context, postID string, c models.Comment) ([]models.Comment, error)
	RemoveComment(ctx context.Context, postID, commentID string) ([]models.Comment, error)
}

// UserStore provides the author name and avatar copied onto posts.
type UserStore interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Handler holds post HTTP handlers.
type Handler struct {
	posts PostStore
	users UserStore
}

func NewHandler(posts PostStore, users UserStore) *Handler {
	return &Handler{posts: posts, users: users}
}

// Create publishes a post as the caller.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeText(w, r)
	if !ok {
		return
	}
	author, ok := h.author(w, r)
	if !ok {
		return
	}

	post := &models.Post{
		User:   author.ID,
		Text:   req.Text,
		Name:   author.Name,
		Avatar: author.Avatar,
		Date:   time.Now().UTC(),
	}
	if err := h.posts.CreatePost(r.Context(), post); err != nil {
		respond.ServerError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, post)
}

// List returns every post, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.ListPosts(r.Context())
	if err != nil {
		respond.ServerError(w, r, err)
		return
	}
	if posts == nil {
		posts = []models.Post{}
	}
	respond.JSON(w, http.StatusOK, posts)
}

// Get returns a single post.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	post, ok := h.post(w, r)
	if !ok {
		return
	}
	respond.JSON(w, http.StatusOK, post)
}

// Delete removes a post owned by the caller.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFrom(r.Context())
	post, ok := h.post(w, r)
	if !ok {
		return
	}
	if post.User.Hex() != id.UserID {
		respond.Message(w, http.StatusUnauthorized, "User Not Authorize")
		return
	}

	err := h.posts.DeletePost(r.Context(), post.ID.Hex())
	if errors.Is(err, store.ErrNotFound) {
		respond.Message(w, http.StatusNotFound, msgPostNotFound)
		return
	}
	if err != nil {
		respond.ServerError(w, r, err)
		return
	}
	respond.Message(w, http.StatusOK, "Post removed")
}

// Like adds the caller's like and returns the post's likes.
func (h *Handler) Like(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFrom(r.Context())
	likes, err := h.posts.AddLike(r.Context(), chi.URLParam(r, "id"), id.UserID)
	switch {
	case errors.Is(err, store.ErrConflict):
		respond.Message(w, http.StatusBadRequest, "Post already liked")
	case errors.Is(err, store.ErrNotFound):
		respond.Message(w, http.StatusNotFound, msgPostNotFound)
	case err != nil:
		respond.ServerError(w, r, err)
	default:
		respond.JSON(w, http.StatusOK, likes)
	}
}

// Unlike removes the caller's like and returns the post's likes.
func (h *Handler) Unlike(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFrom(r.Context())
	likes, err := h.posts.RemoveLike(r.Context(), chi.URLParam(r, "id"), id.UserID)
	switch {
	case errors.Is(err, store.ErrConflict):
		respond.Message(w, http.StatusBadRequest, "Post has not yet liked")
	case errors.Is(err, store.ErrNotFound):
		respond.Message(w, http.StatusNotFound, msgPostNotFound)
	case err != nil:
		respond.ServerError(w, r, err)
	default:
		respond.JSON(w, http.StatusOK, likes)
	}
}

// Comment prepends a comment by the caller and returns the post's comments.
func (h *Handler) Comment(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeText(w, r)
	if !ok {
		return
	}
	author, ok := h.author(w, r)
	if !ok {
		return
	}

	comments, err := h.posts.AddComment(r.Context(), chi.URLParam(r, "id"), models.Comment{
		ID:     primitive.NewObjectID(),
		User:   author.ID,
		Text:   req.Text,
		Name:   author.Name,
		Avatar: author.Avatar,
		Date:   time.Now().UTC(),
	})
	if errors.Is(err, store.ErrNotFound) {
		respond.Message(w, http.StatusNotFound, msgPostNotFound)
		return
	}
	if err != nil {
		respond.ServerError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, comments)
}

// Uncomment deletes one of the caller's comments.
func (h *Handler) Uncomment(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFrom(r.Context())
	post, ok := h.post(w, r)
	if !ok {
		return
	}

	commentID := chi.URLParam(r, "comment_id")
	var comment *models.Comment
	for i := range post.Comments {
		if post.Comments[i].ID.Hex() == commentID {
			comment = &post.Comments[i]
			break
		}
	}
	if comment == nil {
		respond.Message(w, http.StatusNotFound, "Comment does not exist")
		return
	}
	if comment.User.Hex() != id.UserID {
		respond.Message(w, http.StatusUnauthorized, "User not authorized")
		return
	}

	comments, err := h.posts.RemoveComment(r.Context(), post.ID.Hex(), commentID)
	switch {
	case errors.Is(err, store.ErrConflict):
		respond.Message(w, http.StatusNotFound, "Comment does not exist")
	case errors.Is(err, store.ErrNotFound):
		respond.Message(w, http.StatusNotFound, msgPostNotFound)
	case err != nil:
		respond.ServerError(w, r, err)
	default:
		respond.JSON(w, http.StatusOK, comments)
	}
}

// post loads the post named by the {id} URL param, answering 404 itself.
func (h *Handler) post(w http.ResponseWriter, r *http.Request) (*models.Post, bool) {
	post, err := h.posts.GetPostByID(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		respond.Message(w, http.StatusNotFound, msgPostNotFound)
		return nil, false
	}
	if err != nil {
		respond.ServerError(w, r, err)
		return nil, false
	}
	return post, true
}

func (h *Handler) author(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	id, _ := auth.IdentityFrom(r.Context())
	user, err := h.users.GetUserByID(r.Context(), id.UserID)
	if errors.Is(err, store.ErrNotFound) {
		respond.Message(w, http.StatusNotFound, "User not found")
		return nil, false
	}
	if err != nil {
		respond.ServerError(w, r, err)
		return nil, false
	}
	return user, true
}

func decodeText(w http.ResponseWriter, r *http.Request) (models.PostRequest, bool) {
	var req models.PostRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.BadBody(w)
		return req, false
	}
	req.Text = strings.TrimSpace(req.Text)
	if errs := validate.Struct(&req); errs != nil {
		respond.Validation(w, errs)
		return req, false
	}
	return req, true
}
