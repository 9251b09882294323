package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/merit-ol/mppms/internal/config"
	delivery "github.com/merit-ol/mppms/internal/delivery/http"
	"github.com/merit-ol/mppms/internal/logging"
	"github.com/merit-ol/mppms/internal/middleware"
	"github.com/merit-ol/mppms/internal/repository"
	"github.com/merit-ol/mppms/internal/usecase"
	"github.com/merit-ol/mppms/pkg/objectstore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logging.New("info", "json", os.Stderr)
		boot.Fatal().Err(err).Msg("invalid configuration")
	}

	log := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	log.Info().Str("port", cfg.Server.Port).Str("backend", cfg.Database.Backend).Msg("MPPMS starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos, err := repository.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer repos.Close()

	store, err := openObjectStore(ctx, cfg.Storage, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open object storage")
	}

	// Initialize usecases
	authUsecase := usecase.NewAuthUsecase(repos.Users, repos.Tokens, &cfg.JWT, &cfg.Google, cfg.Catalog.OwnerEmail, log)
	paperUsecase := usecase.NewPaperUsecase(repos.Papers, repos.Notifications, repos.Stats, store,
		cfg.Catalog.PageSize, cfg.Catalog.MaxUploadBytes, log)
	adminUsecase := usecase.NewAdminUsecase(repos.Users, repos.Tokens, repos.Notifications, log)
	siteUsecase := usecase.NewSiteUsecase(repos.Configs, repos.Stats, repos.Papers, repos.Notifications,
		cfg.Cache.Size, cfg.Cache.TTL.Duration, log)

	var ready delivery.ReadinessChecker
	if repos.Ready != nil {
		ready = repos.Ready
	}
	handler := delivery.NewHandler(authUsecase, paperUsecase, adminUsecase, siteUsecase, ready, cfg.Catalog.MaxUploadBytes)
	authMiddleware := middleware.NewAuthMiddleware(authUsecase)

	router := delivery.NewRouter(handler, authMiddleware, log, delivery.RouterOptions{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Metrics:        cfg.Metrics.Enabled,
	})

	if mem, ok := store.(*objectstore.Memory); ok {
		router.Handle(memoryFilesPrefix+"/*", http.StripPrefix(memoryFilesPrefix, mem))
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	go purgeExpiredTokens(ctx, repos, log)

	<-ctx.Done()
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		return
	}

	log.Info().Msg("server stopped gracefully")
}

// memoryFilesPrefix is where the in-process object store is served.
const memoryFilesPrefix = "/files"

// openObjectStore uses S3 when a bucket is configured and falls back to the
// in-process store otherwise.
func openObjectStore(ctx context.Context, cfg config.StorageConfig, log zerolog.Logger) (objectstore.Store, error) {
	if cfg.Bucket == "" {
		log.Warn().Msg("S3_BUCKET not set; paper files are kept in memory")
		return objectstore.NewMemory(memoryFilesPrefix), nil
	}
	return objectstore.NewS3Store(ctx, objectstore.S3Options{
		Endpoint:      cfg.Endpoint,
		Region:        cfg.Region,
		Bucket:        cfg.Bucket,
		AccessKey:     cfg.AccessKey,
		SecretKey:     cfg.SecretKey,
		PublicBaseURL: cfg.PublicBaseURL,
		PathStyle:     cfg.PathStyle,
	})
}

// purgeExpiredTokens drops refresh tokens past their expiry once an hour.
func purgeExpiredTokens(ctx context.Context, repos *repository.Set, log zerolog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := repos.Tokens.DeleteExpired(ctx); err != nil {
				log.Warn().Err(err).Msg("purge expired refresh tokens")
			}
		}
	}
}
