package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"incasso-core/internal/clients"
	"incasso-core/internal/config"
	"incasso-core/internal/repository"
	"incasso-core/internal/service"
	"incasso-core/internal/transport/auth"
	"incasso-core/internal/transport/rest"
	"incasso-core/internal/transport/websocket"
	"incasso-core/pkg/database/postgres"
)

func main() {
	logger := newLogger()

	if err := godotenv.Load(); err != nil {
		logger.Info().Msg("no .env file found, using system env or defaults")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cfg := config.Load()

	db := mustInitPostgres(cfg.Postgres, logger)
	defer postgres.Close(db)

	redisClient := mustInitRedis(cfg.Redis, logger)
	defer redisClient.Close()

	var s3Client *clients.S3Client
	if cfg.S3.Enabled {
		var err error
		s3Client, err = clients.NewS3Client(ctx, clients.S3Config{
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			Bucket:          cfg.S3.Bucket,
			UseSSL:          cfg.S3.UseSSL,
			Region:          cfg.S3.Region,
			Prefix:          cfg.S3.Prefix,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("s3 init failed")
		}
	}

	storageClient, err := clients.NewLocalStorage(cfg.ExportDir, "/files", cfg.ExportBaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("storage init failed")
	}

	wsHub := websocket.NewHub(logger)
	go wsHub.Run(ctx)
	wsClient := clients.NewWebSocketClient(wsHub)

	collabTimeout := time.Duration(cfg.Collaborators.Timeout) * time.Second
	mailerClient := clients.NewMailerClient(cfg.Collaborators.MailerBaseURL, collabTimeout)
	inviteClient := clients.NewInviteClient(cfg.Collaborators.InviteBaseURL, collabTimeout)
	invoiceClient := clients.NewInvoiceClient(cfg.Collaborators.InvoiceBaseURL, collabTimeout)

	caseRepo := repository.NewCaseRepository(db)
	noticeRepo := repository.NewNoticeRepository(db)
	debtorRepo := repository.NewDebtorRepository(db)
	tenantRepo := repository.NewTenantRepository(db)
	judgmentRepo := repository.NewJudgmentRepository(db)
	tokenRepo := repository.NewPersonalAccessTokenRepository(db)

	paramsSvc := service.NewParamsService(tenantRepo, redisClient, logger)
	dispatcher := service.NewDispatcher(caseRepo, noticeRepo, debtorRepo, paramsSvc, mailerClient, inviteClient, logger)
	caseSvc := service.NewCaseService(caseRepo, noticeRepo, debtorRepo, paramsSvc, invoiceClient, dispatcher, logger)
	sweepSvc := service.NewSweepProcessor(caseRepo, noticeRepo, debtorRepo, paramsSvc, dispatcher, wsClient, logger)
	judgmentSvc := service.NewJudgmentService(judgmentRepo, caseRepo, tenantRepo, logger)
	exportSvc := service.NewExportService(caseRepo, redisClient, s3Client, storageClient, wsClient, logger)

	tokenMiddleware := auth.TokenMiddleware(tokenRepo)

	handler := rest.NewHandler(caseSvc, judgmentSvc, sweepSvc, exportSvc, exportSvc)
	router := handler.InitRouterWithAuth(tokenMiddleware)

	// Public root router; the authenticated API mounts underneath so /files
	// stays reachable without a token.
	root := chi.NewRouter()

	root.Get("/files/{file}", func(w http.ResponseWriter, r *http.Request) {
		file := chi.URLParam(r, "file")
		path := filepath.Join(storageClient.BaseDir, filepath.Base(file))
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				http.NotFound(w, r)
				return
			}
			http.Error(w, "failed to access file", http.StatusInternalServerError)
			return
		}

		// original filename without the random prefix
		orig := file
		if idx := strings.IndexByte(file, '_'); idx >= 0 {
			orig = file[idx+1:]
		}
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", orig))

		http.ServeFile(w, r, path)
	})

	router.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		userID, err := auth.GetUserID(r.Context())
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		logger.Info().Int64("user_id", userID).Msg("websocket connected")
		wsHub.HandleWebSocket(w, r, userID)
	})

	root.Mount("/", router)

	scheduler := startSweepScheduler(ctx, cfg.SweepCron, tenantRepo, sweepSvc, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		logger.Info().Str("port", cfg.Port).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			srvErr <- err
			return
		}
		srvErr <- nil
	}()

	// Locally stored export files expire like their redis status entries.
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := storageClient.CleanupOlderThan(30 * time.Minute); err != nil {
					logger.Warn().Err(err).Msg("storage cleanup failed")
				}
			}
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-srvErr:
		if err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	case sig := <-stop:
		logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("http server shutdown failed")
		}

		cronCtx := scheduler.Stop()
		<-cronCtx.Done()

		cancel()

		// db and redis close via the defers at the top of main.
		logger.Info().Msg("shutdown complete")
	}
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if l, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && l != zerolog.NoLevel {
		level = l
	}
	return zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
}

func mustInitPostgres(cfg config.PostgresConfig, logger zerolog.Logger) *sql.DB {
	db, err := postgres.NewPostgresConnection(postgres.ConnectionInfo{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.User,
		DBName:   cfg.DBName,
		SSLMode:  cfg.SSLMode,
		Password: cfg.Password,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres init failed")
	}
	return db
}

func mustInitRedis(cfg config.RedisConfig, logger zerolog.Logger) *clients.RedisClient {
	client, err := clients.NewRedisClient(clients.RedisConfig{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		MaxRetries:  cfg.MaxRetries,
		DialTimeout: time.Duration(cfg.DialTimeout) * time.Second,
		Timeout:     time.Duration(cfg.Timeout) * time.Second,
		Prefix:      cfg.Prefix,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("redis init failed")
	}
	return client
}

// startSweepScheduler runs the unattended escalation sweep for every tenant
// on the configured cron spec. SkipIfStillRunning keeps slow sweeps from
// stacking up.
func startSweepScheduler(
	ctx context.Context,
	spec string,
	tenants *repository.TenantRepository,
	sweep *service.SweepProcessor,
	logger zerolog.Logger,
) *cron.Cron {
	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DiscardLogger),
	))

	_, err := c.AddFunc(spec, func() {
		tenantIDs, err := tenants.ListTenantIDs(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("sweep schedule: listing tenants failed")
			return
		}

		for _, tenantID := range tenantIDs {
			if _, err := sweep.Run(ctx, tenantID, 0); err != nil {
				logger.Error().Err(err).Int64("tenant_id", tenantID).Msg("scheduled sweep failed")
			}
		}
	})
	if err != nil {
		logger.Fatal().Err(err).Str("spec", spec).Msg("invalid sweep cron spec")
	}

	c.Start()
	return c
}
