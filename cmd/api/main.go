package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/jeremyviracochaf-eng/evaluacionf/internal/config"
	"github.com/jeremyviracochaf-eng/evaluacionf/internal/db"
	"github.com/jeremyviracochaf-eng/evaluacionf/internal/handler"
	"github.com/jeremyviracochaf-eng/evaluacionf/internal/logger"
	"github.com/jeremyviracochaf-eng/evaluacionf/internal/places"
	"github.com/jeremyviracochaf-eng/evaluacionf/internal/repository"
	"github.com/jeremyviracochaf-eng/evaluacionf/internal/service"
	"github.com/jeremyviracochaf-eng/evaluacionf/internal/storage"
	"github.com/jeremyviracochaf-eng/evaluacionf/internal/ticket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	lg, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Sync()

	if err := run(cfg, lg); err != nil {
		lg.Fatal("api stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, lg *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := db.Migrate(conn, cfg.MigrationsDir, lg); err != nil {
		return err
	}

	userRepo := repository.NewUserRepository(conn)
	attractionRepo := repository.NewAttractionRepository(conn)
	reservationRepo := repository.NewReservationRepository(conn)

	var tokens service.TokenStore = repository.NewTokenRepository(conn)
	if cfg.TokenStore == "redis" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return err
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		tokens = repository.NewRedisTokenStore(rdb, cfg.TokenTTL)
	}

	var (
		images    service.ImageStore
		uploadDir string
	)
	switch cfg.BlobDriver {
	case "gcs":
		gcs, err := storage.NewGCS(ctx, cfg.GCSBucket, cfg.GCSCredFile)
		if err != nil {
			return err
		}
		defer gcs.Close()
		images = gcs
	default:
		local := storage.NewLocal(cfg.UploadDir, cfg.PublicBaseURL)
		images, uploadDir = local, local.Dir()
	}

	var source service.PlacesSource
	if cfg.GooglePlacesKey != "" {
		source = places.NewGoogleClient(cfg.GooglePlacesKey)
	}

	authService := service.NewAuthService(userRepo, tokens, lg.Named("auth"))
	attractionService := service.NewAttractionService(attractionRepo, reservationRepo, images, lg.Named("attractions"))
	reservationService := service.NewReservationService(reservationRepo, attractionRepo, userRepo,
		ticket.NewGenerator(cfg.TicketSecret), lg.Named("reservations"))
	importService := service.NewImportService(attractionRepo, source, 0, lg.Named("import"))

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	h := handler.NewHandler(authService, attractionService, reservationService, importService, lg.Named("http"))
	router := h.Router(handler.Options{UploadDir: uploadDir})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Content-Disposition"},
	}).Handler(router)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           corsHandler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		lg.Info("listening", zap.String("addr", server.Addr), zap.String("token_store", cfg.TokenStore),
			zap.String("blob_driver", cfg.BlobDriver), zap.Bool("places_import", source != nil))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	lg.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
