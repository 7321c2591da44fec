package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/devconnector/backend/internal/auth"
	"github.com/ayush/devconnector/backend/internal/avatar"
	"github.com/ayush/devconnector/backend/internal/config"
	"github.com/ayush/devconnector/backend/internal/github"
	"github.com/ayush/devconnector/backend/internal/logger"
	"github.com/ayush/devconnector/backend/internal/middleware"
	"github.com/ayush/devconnector/backend/internal/posts"
	"github.com/ayush/devconnector/backend/internal/profile"
	"github.com/ayush/devconnector/backend/internal/router"
	"github.com/ayush/devconnector/backend/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logger.Init(cfg.LogLevel, cfg.LogPretty)
	ctx := context.Background()

	// ── MongoDB ──────────────────────────────────────────────
	connectCtx, connectCancel := context.WithTimeout(ctx, 10*time.Second)
	defer connectCancel()
	mongoClient, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connect")
	}
	if err := mongoClient.Ping(connectCtx, nil); err != nil {
		log.Fatal().Err(err).Msg("mongo ping")
	}
	defer mongoClient.Disconnect(ctx)

	mongoDB := mongoClient.Database(cfg.MongoDB)
	if err := store.EnsureIndexes(ctx, mongoDB); err != nil {
		log.Fatal().Err(err).Msg("mongo indexes")
	}
	users := store.NewUserStore(mongoDB)
	profiles := store.NewProfileStore(mongoDB)
	postStore := store.NewPostStore(mongoDB)
	log.Info().Str("db", cfg.MongoDB).Msg("mongo connected")

	// ── PostgreSQL (auth audit log, optional) ────────────────
	var audit auth.AuditLog
	if cfg.PostgresDSN != "" {
		pgPool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("postgres connect")
		}
		defer pgPool.Close()
		auditStore := store.NewAuditStore(pgPool)
		if err := auditStore.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("postgres migrate")
		}
		audit = auditStore
		log.Info().Msg("auth audit log enabled")
	}

	// ── Redis (GitHub cache, optional) ───────────────────────
	var ghCache github.Cache
	if cfg.RedisAddr != "" {
		redisCache, err := github.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.Fatal().Err(err).Msg("redis connect")
		}
		defer redisCache.Close()
		ghCache = redisCache
		log.Info().Str("addr", cfg.RedisAddr).Msg("github cache enabled")
	}

	// ── MinIO (avatars, optional) ────────────────────────────
	var (
		avatarHandler *avatar.Handler
		avatarFiles   profile.FileRemover
	)
	if cfg.MinioEndpoint != "" {
		avatars, err := store.NewAvatarStore(ctx, store.MinioOptions{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("minio connect")
		}
		avatarHandler = avatar.NewHandler(avatars, users)
		avatarFiles = avatars
		log.Info().Str("bucket", cfg.MinioBucket).Msg("avatar uploads enabled")
	}

	// ── Credentials ──────────────────────────────────────────
	hasher := auth.NewHasher(cfg.BcryptCost, cfg.HashConcurrency)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)

	// ── Router ───────────────────────────────────────────────
	handler := router.New(router.Deps{
		Logger:      log.Logger,
		Gate:        middleware.NewGate(tokens),
		CORSOrigins: cfg.CORSOrigins,
		Auth:        auth.NewHandler(users, hasher, tokens, audit),
		Profile:     profile.NewHandler(profiles, users, postStore, avatarFiles),
		Posts:       posts.NewHandler(postStore, users),
		GitHub:      github.NewHandler(github.NewClient(cfg.GitHubAPIURL, cfg.GitHubToken, ghCache, cfg.GitHubCacheTTL)),
		Avatar:      avatarHandler,
	})

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      time.Minute,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("server is running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}
