package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"webcamupload/docs"
	"webcamupload/internal/auth"
	"webcamupload/internal/config"
	"webcamupload/internal/database"
	"webcamupload/internal/database/migration"
	handlers "webcamupload/internal/http/handler"
	"webcamupload/internal/http/middleware"
	"webcamupload/internal/logging"
	"webcamupload/internal/otel"
	"webcamupload/internal/payload"
	"webcamupload/internal/repository/postgres"
	"webcamupload/internal/service"
	"webcamupload/internal/storage"
)

// @title Webcam Upload API
// @version 1.0
// @BasePath /
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	loc := cfg.Location()
	logger := logging.New(loc)
	ctx := context.Background()

	shutdownTracing, err := otel.Init(ctx, logger)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	promMW, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		log.Fatalf("failed to register http metrics: %v", err)
	}
	metrics, err := service.NewMetrics(reg)
	if err != nil {
		log.Fatalf("failed to register upload metrics: %v", err)
	}

	images := storage.NewLocal(cfg.Upload.RootFolder, logger)
	if err := images.Check(ctx); err != nil {
		// Not fatal: uploads answer 500 until the directory is provisioned.
		logger.Warn("upload_dir_unavailable", logging.Fields{"dir": images.Dir(), "error": err})
	}

	opts := []service.Option{
		service.WithLogger(logger),
		service.WithMetrics(metrics),
		service.WithClock(func() time.Time { return time.Now().In(loc) }),
	}
	probes := []handlers.Probe{{Name: "storage", Check: images.Check}}

	var db *sql.DB
	if cfg.Database.Enabled() {
		db, err = database.Open(ctx, cfg.Database)
		if err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
		if err := migration.EnsureMigrated(ctx, db, logger, cfg.Database.Host); err != nil {
			log.Fatalf("failed to migrate database: %v", err)
		}
		opts = append(opts, service.WithCaptureLog(postgres.NewCapturePostgres(db)))
		probes = append(probes, handlers.Probe{Name: "database", Check: db.PingContext})
	}

	if cfg.MinIO.Enabled() {
		mirror, err := storage.NewMinIO(ctx, cfg.MinIO)
		if err != nil {
			log.Fatalf("failed to initialize object storage: %v", err)
		}
		opts = append(opts, service.WithMirror(mirror))
	}

	validator := payload.NewValidator(cfg.Upload.MaxUploadBytes)
	ingestSvc := service.NewIngestService(validator, images, opts...)
	authn := auth.NewAuthenticator(auth.Credentials{
		Username: cfg.Upload.APIUsername,
		Password: cfg.Upload.APIPassword,
	}, logger)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    cfg.Upload.MaxUploadBytes,
	})

	// Register global middleware
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.Logger(loc))
	app.Use(otelfiber.Middleware())
	app.Use(promMW.Handler())

	handlers.RegisterRoutes(app, authn, ingestSvc, probes...)
	handlers.RegisterMetrics(app, reg)
	handlers.RegisterImages(app, filepath.Join(cfg.Upload.RootFolder, storage.ImagesFolder))

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	addr := ":" + cfg.Port
	go func() {
		logger.Info("server_starting", logging.Fields{
			"addr":             addr,
			"upload_dir":       images.Dir(),
			"max_upload_bytes": cfg.Upload.MaxUploadBytes,
			"capture_log":      cfg.Database.Enabled(),
			"mirror":           cfg.MinIO.Enabled(),
		})
		if err := app.Listen(addr); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	operations := map[string]gfshutdown.Operation{
		"http-server": func(ctx context.Context) error {
			return app.ShutdownWithContext(ctx)
		},
		"tracer-provider": func(ctx context.Context) error {
			return shutdownTracing(ctx)
		},
	}
	if db != nil {
		operations["database"] = func(context.Context) error {
			if err := db.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
				return err
			}
			return nil
		}
	}

	wait := gfshutdown.GracefulShutdown(ctx, cfg.ShutdownTimeout(), operations)
	exitCode := <-wait
	logger.Info("server_stopped", logging.Fields{"exit_code": exitCode})
	os.Exit(exitCode)
}
