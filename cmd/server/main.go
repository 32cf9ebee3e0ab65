package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/biplovgautam/bilearnhub/internal/app"
	"github.com/biplovgautam/bilearnhub/internal/auth"
	"github.com/biplovgautam/bilearnhub/internal/config"
	internalhttp "github.com/biplovgautam/bilearnhub/internal/http"
	"github.com/biplovgautam/bilearnhub/internal/operations"
	"github.com/biplovgautam/bilearnhub/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fsClient, err := firestore.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		logger.Fatal("firestore client failed", zap.Error(err))
	}
	defer fsClient.Close()
	st := store.NewFirestore(fsClient)

	var verifier auth.Verifier
	switch cfg.AuthMode {
	case "firebase":
		fbApp, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID})
		if err != nil {
			logger.Fatal("firebase app failed", zap.Error(err))
		}
		authClient, err := fbApp.Auth(ctx)
		if err != nil {
			logger.Fatal("firebase auth client failed", zap.Error(err))
		}
		verifier = auth.NewFirebaseVerifier(authClient)
	default:
		logger.Warn("using local HS256 token verification", zap.String("auth_mode", cfg.AuthMode))
		verifier = auth.NewHSVerifier(cfg.JWTSecret, cfg.JWTIssuer)
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			cancel()
			logger.Fatal("redis ping failed", zap.Error(err))
		}
		cancel()
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error("redis close error", zap.Error(err))
			}
		}()
	}

	ops := operations.NewService(st, logger)
	server := internalhttp.NewServer(cfg, ops, verifier, redisClient, logger)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("profiles http listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}
