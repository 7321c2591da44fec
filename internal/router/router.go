// Package router composes the HTTP surface: middleware stack and route
// groups.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/ayush/devconnector/backend/internal/auth"
	"github.com/ayush/devconnector/backend/internal/avatar"
	"github.com/ayush/devconnector/backend/internal/github"
	"github.com/ayush/devconnector/backend/internal/middleware"
	"github.com/ayush/devconnector/backend/internal/posts"
	"github.com/ayush/devconnector/backend/internal/profile"
)

// Deps are the handlers and settings the router is built from. Avatar is
// optional.
type Deps struct {
	Logger      zerolog.Logger
	Gate        *middleware.Gate
	CORSOrigins []string

	Auth    *auth.Handler
	Profile *profile.Handler
	Posts   *posts.Handler
	GitHub  *github.Handler
	Avatar  *avatar.Handler
}

// New creates and configures the chi router.
func New(d Deps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(hlog.NewHandler(d.Logger))
	r.Use(hlog.RequestIDHandler("req_id", "X-Request-Id"))
	r.Use(hlog.RemoteAddrHandler("ip"))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", middleware.TokenHeader},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	requireAuth := middleware.RequireAuth(d.Gate)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("API running"))
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/users", d.Auth.Register)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/", d.Auth.Login)
			r.With(requireAuth).Get("/", d.Auth.Me)
		})

		r.Route("/profile", func(r chi.Router) {
			r.Get("/", d.Profile.List)
			r.Get("/user/{user_id}", d.Profile.ByUser)
			r.Get("/github/{username}", d.GitHub.Repos)
			if d.Avatar != nil {
				r.Get("/avatar/{user_id}", d.Avatar.Download)
			}

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/me", d.Profile.Me)
				r.Post("/", d.Profile.Upsert)
				r.Delete("/", d.Profile.Delete)
				r.Put("/experience", d.Profile.AddExperience)
				r.Delete("/experience/{exp_id}", d.Profile.RemoveExperience)
				r.Put("/education", d.Profile.AddEducation)
				r.Delete("/education/{edu_id}", d.Profile.RemoveEducation)
				if d.Avatar != nil {
					r.Put("/avatar", d.Avatar.Upload)
				}
			})
		})

		r.Route("/posts", func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/", d.Posts.Create)
			r.Get("/", d.Posts.List)
			r.Get("/{id}", d.Posts.Get)
			r.Delete("/{id}", d.Posts.Delete)
			r.Put("/like/{id}", d.Posts.Like)
			r.Put("/unlike/{id}", d.Posts.Unlike)
			r.Post("/comment/{id}", d.Posts.Comment)
			r.Delete("/comment/{id}/{comment_id}", d.Posts.Uncomment)
		})
	})

	return r
}
