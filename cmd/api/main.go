package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/xavierca1/aqar-matcher/internal/entity"
	"github.com/xavierca1/aqar-matcher/internal/infra/database"
	"github.com/xavierca1/aqar-matcher/internal/infra/http/handlers"
	"github.com/xavierca1/aqar-matcher/internal/infra/http/middleware"
	"github.com/xavierca1/aqar-matcher/internal/infra/integration/listings"
	"github.com/xavierca1/aqar-matcher/internal/infra/integration/whatsapp"
	applog "github.com/xavierca1/aqar-matcher/internal/infra/logger"
	"github.com/xavierca1/aqar-matcher/internal/infra/mail"
	"github.com/xavierca1/aqar-matcher/internal/infra/queue"
	"github.com/xavierca1/aqar-matcher/internal/infra/worker"
	"github.com/xavierca1/aqar-matcher/internal/usecase"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := applog.New(cfg.LogLevel, cfg.PrettyLogs)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Armazenamento
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatalw("❌ falha ao abrir armazenamento", "driver", cfg.StoreDriver, "error", err)
	}

	// 2. Gateways e Adapters
	listingsClient := listings.NewClient(cfg.ListingsAPIURL, cfg.ListingsAPIKey, cfg.ListingsTimeout)
	whatsappClient := whatsapp.NewClient(cfg.WhatsAppAccessToken, cfg.WhatsAppPhoneID, cfg.WhatsAppBaseURL, logger)

	var alerts usecase.AlertSender
	mailSender := mail.NewEmailSender(cfg.MailHost, cfg.MailPort, cfg.MailUser, cfg.MailPass, cfg.MailFrom, mail.ParseRecipients(cfg.AlertEmail))
	if mailSender.Enabled() {
		alerts = mailSender
	} else {
		logger.Warn("⚠️ alertas por e-mail desativados (MAIL_HOST/ALERT_EMAIL)")
	}

	// 3. UseCases
	fanoutCfg := usecase.DefaultFanoutConfig()
	fanoutCfg.Delay = cfg.FanoutDelay
	fanoutCfg.MinResults = cfg.FanoutMinResults
	fanoutCfg.Variations = cfg.FanoutVariations
	fanoutCfg.MaxQueries = cfg.FanoutMaxQueries
	fanout := usecase.NewSearchFanout(listingsClient, fanoutCfg, logger)

	engine := usecase.NewMatchingEngine(store, usecase.MatchingConfig{
		Threshold: cfg.MatchThreshold,
		RateLimit: cfg.MatchRateLimit,
	}, logger)

	dispatcher := worker.NewDispatchScheduler(cfg.DispatchDelay, cfg.DispatchStaleAfter, logger)
	go dispatcher.Start(ctx)

	notifyUC := usecase.NewNotifyMatchesUseCase(engine, whatsappClient, dispatcher, logger)
	submitUC := usecase.NewSubmitRequirementsUseCase(store, logger)

	// 4. Fila (opcional)
	var publisher usecase.OfferPublisher
	var queueStatus handlers.QueueStatus
	if cfg.RabbitMQURL != "" {
		rabbitMQ, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
		if err != nil {
			logger.Errorw("❌ RabbitMQ indisponível, ofertas serão processadas direto", "error", err)
		} else {
			defer rabbitMQ.Close()
			publisher = queue.NewProducer(rabbitMQ.Ch, "WEBHOOK_OFFERS")
			queueStatus = rabbitMQ

			offerWorker := queue.NewWorker(rabbitMQ.Ch, func(ctx context.Context, offer entity.Offer) error {
				_, err := notifyUC.Execute(ctx, offer)
				return err
			}, logger)
			go func() {
				if err := offerWorker.Start(ctx, queue.QueueName); err != nil {
					logger.Errorw("❌ worker de ofertas parou", "error", err)
				}
			}()
		}
	}

	// 5. Workers
	cleanup := worker.NewIdleCleanupWorker(store, cfg.CleanupCron, cfg.CleanupIdle(), logger)
	go func() {
		if err := cleanup.Start(ctx); err != nil {
			logger.Errorw("❌ idle cleanup worker não iniciou", "error", err)
		}
	}()

	// 6. Handlers
	errs := handlers.ErrorMapper{Alerts: alerts, Logger: logger}
	offerHandler := handlers.NewOfferHandler(publisher, notifyUC, cfg.OffersWebhookToken, errs, logger)
	searchHandler := handlers.NewSearchHandler(fanout, errs, logger)
	clientHandler := handlers.NewClientHandler(store, engine, submitUC, errs, logger)
	healthHandler := handlers.NewHealthHandler(store, queueStatus)

	// 7. Router
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Webhook-Token"},
	}))

	r.Get("/health", healthHandler.Handle)
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/offers", offerHandler.Handle)
	r.Post("/search", searchHandler.Handle)
	clientHandler.Routes(r)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("🔥 Server aqar-matcher rodando na porta %s (store=%s)", cfg.Port, store.BackendName())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalw("❌ servidor HTTP caiu", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("⚠️ encerrando...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("erro ao encerrar servidor HTTP", "error", err)
	}
	if err := store.Close(shutdownCtx); err != nil {
		logger.Errorw("erro ao fechar armazenamento", "error", err)
	}
}

// openStore builds the ClientStore for the configured driver and loads it.
func openStore(ctx context.Context, cfg Config, logger *zap.SugaredLogger) (*database.ClientStore, error) {
	var backend database.Backend

	switch cfg.StoreDriver {
	case database.DriverPostgres, database.DriverSQLite:
		dsn := cfg.DatabaseURL
		if cfg.StoreDriver == database.DriverSQLite && dsn == "" {
			dsn = sqlitePath(cfg.StorePath)
		}
		db, err := database.NewDBConnection(cfg.StoreDriver, dsn)
		if err != nil {
			return nil, err
		}
		sqlBackend := database.NewSQLBackend(db, cfg.StoreDriver, logger)
		if err := sqlBackend.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
		backend = sqlBackend
	default:
		if err := os.MkdirAll(filepath.Dir(cfg.StorePath), 0o755); err != nil {
			return nil, err
		}
		backend = database.NewFileBackend(cfg.StorePath, logger)
	}

	store := database.NewClientStore(backend, logger)
	if err := store.Load(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func sqlitePath(storePath string) string {
	ext := filepath.Ext(storePath)
	return storePath[:len(storePath)-len(ext)] + ".db"
}
