package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cifan-festival/submission-service/internal/cache"
	"github.com/cifan-festival/submission-service/internal/config"
	"github.com/cifan-festival/submission-service/internal/events"
	"github.com/cifan-festival/submission-service/internal/http/handlers/profiles"
	"github.com/cifan-festival/submission-service/internal/http/handlers/submissions"
	"github.com/cifan-festival/submission-service/internal/http/handlers/users"
	wsHandler "github.com/cifan-festival/submission-service/internal/http/handlers/ws"
	"github.com/cifan-festival/submission-service/internal/http/middleware"
	"github.com/cifan-festival/submission-service/internal/mail"
	"github.com/cifan-festival/submission-service/internal/services/blob"
	profileService "github.com/cifan-festival/submission-service/internal/services/profile"
	"github.com/cifan-festival/submission-service/internal/services/submission"
	mongoStore "github.com/cifan-festival/submission-service/internal/storage/mongo"
	"github.com/cifan-festival/submission-service/internal/websocket"
	"github.com/go-redis/redis/v8"
)

func main() {
	// load config
	cfg := config.MustLoad()

	// document store
	store, err := mongoStore.NewMongo(cfg)
	if err != nil {
		log.Fatal("Failed to initialize document store:", err)
	}

	// blob store
	blobs, err := blob.NewService(cfg)
	if err != nil {
		log.Fatal("Failed to initialize blob storage:", err)
	}
	slog.Info("Connected to blob storage", slog.String("bucket", cfg.MinIO.BucketName))

	// redis-backed cache and rate limits
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	cachedStore := cache.NewStore(store, redisClient)
	rateLimits := middleware.NewRateLimitConfig(redisClient)

	// realtime hub
	hub := websocket.NewHub()
	go hub.Run()
	publisher := events.NewPublisher(hub)

	// services
	pipeline := submission.NewService(blobs, cachedStore)
	profileSvc := profileService.NewService(cachedStore, blobs, blob.ProfilePhotoObjectKey)
	mailer := mail.NewMailer(cfg.SMTP)

	// handlers
	submissionHandlers := submissions.NewSubmissionHandlers(pipeline, cachedStore, publisher)
	profileHandlers := profiles.NewProfileHandlers(profileSvc, cachedStore)

	// route table: handler plus the guard list that gates it
	auth := middleware.AuthMiddleware(cfg.JWTSecret)
	verified := middleware.RequireVerifiedEmail()
	profileComplete := middleware.RequireCompleteProfile(cachedStore)

	router := http.NewServeMux()

	router.HandleFunc("POST /signup", users.SignUp(cachedStore, mailer, cfg.JWTSecret))
	router.HandleFunc("POST /login", users.Login(cachedStore, cfg.JWTSecret))
	router.HandleFunc("GET /verify-email", users.VerifyEmail(cachedStore, cfg.JWTSecret))

	router.Handle("GET /profile", auth(profileHandlers.GetMe()))
	router.Handle("PUT /profile", middleware.Chain(profileHandlers.PutMe(), auth, verified))
	router.Handle("POST /profile/photo", middleware.Chain(profileHandlers.UploadPhoto(),
		auth, verified, rateLimits.RateLimitMiddleware("upload-photo")))
	router.Handle("DELETE /profile/photo", middleware.Chain(profileHandlers.DeletePhoto(), auth, verified))

	router.Handle("POST /submissions", middleware.Chain(submissionHandlers.Submit(),
		auth, verified, profileComplete, rateLimits.RateLimitMiddleware("submit")))
	router.Handle("GET /submissions", middleware.Chain(submissionHandlers.List(), auth, verified, profileComplete))
	router.Handle("GET /submissions/{id}", middleware.Chain(submissionHandlers.Get(), auth, verified, profileComplete))

	router.HandleFunc("GET /ws", wsHandler.Connect(hub, cfg.JWTSecret))

	server := http.Server{
		Addr:    cfg.HTTPServer.Address,
		Handler: router,
	}

	log.Println("server started on", cfg.HTTPServer.Address)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %s", err)
		}
	}()

	<-done

	slog.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("failed to gracefully shutdown server", slog.String("error", err.Error()))
		return
	}

	if err := store.Close(ctx); err != nil {
		slog.Error("failed to close document store", slog.String("error", err.Error()))
	}

	slog.Info("Server stopped")
}
