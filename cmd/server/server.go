package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	gormlogger "gorm.io/gorm/logger"

	"github.com/creedpetitt/ai-services-backend/internal/config"
	"github.com/creedpetitt/ai-services-backend/internal/domain/chat"
	"github.com/creedpetitt/ai-services-backend/internal/domain/conversation"
	"github.com/creedpetitt/ai-services-backend/internal/domain/quota"
	"github.com/creedpetitt/ai-services-backend/internal/domain/tokenusage"
	"github.com/creedpetitt/ai-services-backend/internal/domain/user"
	"github.com/creedpetitt/ai-services-backend/internal/infrastructure/auth"
	"github.com/creedpetitt/ai-services-backend/internal/infrastructure/crontab"
	"github.com/creedpetitt/ai-services-backend/internal/infrastructure/database"
	"github.com/creedpetitt/ai-services-backend/internal/infrastructure/database/repository/conversationrepo"
	"github.com/creedpetitt/ai-services-backend/internal/infrastructure/database/repository/providerrepo"
	"github.com/creedpetitt/ai-services-backend/internal/infrastructure/database/repository/userrepo"
	"github.com/creedpetitt/ai-services-backend/internal/infrastructure/database/transaction"
	"github.com/creedpetitt/ai-services-backend/internal/infrastructure/inference"
	"github.com/creedpetitt/ai-services-backend/internal/infrastructure/logger"
	"github.com/creedpetitt/ai-services-backend/internal/infrastructure/observability"
	"github.com/creedpetitt/ai-services-backend/internal/infrastructure/persistence"
	"github.com/creedpetitt/ai-services-backend/internal/infrastructure/storage"
	"github.com/creedpetitt/ai-services-backend/internal/interfaces/httpserver"
	"github.com/creedpetitt/ai-services-backend/internal/interfaces/httpserver/handlers/chathandler"
	"github.com/creedpetitt/ai-services-backend/internal/interfaces/httpserver/handlers/conversationhandler"
	"github.com/creedpetitt/ai-services-backend/internal/interfaces/httpserver/handlers/imagehandler"
	"github.com/creedpetitt/ai-services-backend/internal/interfaces/httpserver/handlers/modelhandler"
	"github.com/creedpetitt/ai-services-backend/internal/interfaces/httpserver/handlers/uploadhandler"
	"github.com/creedpetitt/ai-services-backend/internal/interfaces/httpserver/handlers/usagehandler"
	v1 "github.com/creedpetitt/ai-services-backend/internal/interfaces/httpserver/routes/v1"
	chatroute "github.com/creedpetitt/ai-services-backend/internal/interfaces/httpserver/routes/v1/chat"
	conversationroute "github.com/creedpetitt/ai-services-backend/internal/interfaces/httpserver/routes/v1/conversation"
	imageroute "github.com/creedpetitt/ai-services-backend/internal/interfaces/httpserver/routes/v1/image"
	modelroute "github.com/creedpetitt/ai-services-backend/internal/interfaces/httpserver/routes/v1/model"
	uploadroute "github.com/creedpetitt/ai-services-backend/internal/interfaces/httpserver/routes/v1/upload"
	usageroute "github.com/creedpetitt/ai-services-backend/internal/interfaces/httpserver/routes/v1/usage"
)

func main() {
	log := logger.GetLogger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	log, err = logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatal().Err(err).Msg("configure logger")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("initialize observability")
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := otelShutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("shutdown telemetry")
			}
		}()
	}

	db, err := database.Connect(database.Config{
		DatabaseURL:    cfg.DatabaseURL,
		ReadReplicaDSN: cfg.DBPostgresqlRead1DSN,
		MaxIdle:        10,
		MaxOpen:        25,
		MaxLifetime:    time.Hour,
		LogLevel:       gormLogLevel(cfg.LogLevel),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}

	if cfg.AutoMigrate {
		if err := database.AutoMigrate(db); err != nil {
			log.Fatal().Err(err).Msg("run migrations")
		}
	}

	// Repositories and domain services.
	userRepo := userrepo.NewUserGormRepository(db)
	providerRepo := providerrepo.NewProviderGormRepository(db)
	conversationRepo := conversationrepo.NewConversationGormRepository(transaction.NewDatabase(db))
	usageRepo := persistence.NewTokenUsageRepository(db)

	users := user.NewService(userRepo)
	conversations := conversation.NewService(conversationRepo)
	usage := tokenusage.NewService(usageRepo)
	ledger := quota.NewLedger(quota.Limits{
		UserMessages:  cfg.UserMessageLimit,
		UserImages:    cfg.UserImageLimit,
		GuestMessages: cfg.GuestMessageLimit,
		GuestImages:   cfg.GuestImageLimit,
	}, userRepo, log)

	// Model backends.
	entries := cfg.ProviderBootstrapEntries()
	registry, err := inference.NewBootstrap(providerRepo, log).BuildRegistry(ctx, entries)
	if err != nil {
		log.Fatal().Err(err).Msg("build model registry")
	}
	if registry.Len() == 0 {
		log.Fatal().Msg("no chat models configured")
	}

	imageService := inference.NewImageService(cfg, entries, log)
	if imageService == nil {
		log.Warn().Msg("no image-capable provider configured, image generation disabled")
	}

	controller := chat.NewController(ledger, registry, conversations, usage,
		chat.DefaultSystemPrompt, cfg.SessionTimeout, log)

	// Auth.
	jwksURL, err := cfg.ResolveJWKSURL(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("resolve jwks url")
	}
	validator, err := auth.NewOIDCValidator(ctx, jwksURL, cfg.Issuer, cfg.Audience,
		cfg.RefreshJWKSInterval, cfg.AuthClockSkew, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize token validator")
	}

	// Uploads.
	store, err := storage.NewLocalStore(cfg.UploadDir, cfg.UploadBaseURL, cfg.UploadMaxBytes, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize upload store")
	}

	// HTTP layer.
	v1Route := v1.NewV1Route(
		chatroute.NewChatRoute(chathandler.NewChatHandler(controller, log)),
		conversationroute.NewConversationRoute(conversationhandler.NewConversationHandler(conversations, log)),
		imageroute.NewImageRoute(imagehandler.NewImageHandler(imageService, ledger, conversations, log)),
		modelroute.NewModelRoute(modelhandler.NewModelHandler(registry)),
		uploadroute.NewUploadRoute(uploadhandler.NewUploadHandler(store, log), store.Dir(), cfg.UploadBaseURL),
		usageroute.NewUsageRoute(usagehandler.NewUsageHandler(ledger, usage, log)),
	)
	server := httpserver.NewHTTPServer(v1Route, validator, users, cfg, log)

	ctab := crontab.NewCrontab(inference.NewHealthChecker(entries, providerRepo, log))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error { return server.Run(egCtx) })
	eg.Go(func() error { return runMetricsServer(egCtx, cfg.MetricsPort, log) })
	eg.Go(func() error { return ctab.Run(egCtx) })

	if err := eg.Wait(); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("shutdown complete")
}

// runMetricsServer exposes Prometheus metrics on a dedicated port.
func runMetricsServer(ctx context.Context, port int, log zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Info().Int("port", port).Msg("metrics server listening")

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	}
}

// gormLogLevel maps the service log level onto gorm's logger levels.
func gormLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "debug", "trace":
		return gormlogger.Info
	case "warn":
		return gormlogger.Warn
	case "error", "fatal":
		return gormlogger.Error
	default:
		return gormlogger.Silent
	}
}
