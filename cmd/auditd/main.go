// Package main wires together the audit service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gpubsub "cloud.google.com/go/pubsub"
	gcsclient "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/convertfix/audit-service/internal/analyzer"
	"github.com/convertfix/audit-service/internal/api"
	"github.com/convertfix/audit-service/internal/audit"
	"github.com/convertfix/audit-service/internal/clock/system"
	"github.com/convertfix/audit-service/internal/config"
	"github.com/convertfix/audit-service/internal/dispatcher"
	"github.com/convertfix/audit-service/internal/hash/sha256"
	"github.com/convertfix/audit-service/internal/id/uuid"
	"github.com/convertfix/audit-service/internal/ledger"
	"github.com/convertfix/audit-service/internal/logging"
	"github.com/convertfix/audit-service/internal/mailer"
	"github.com/convertfix/audit-service/internal/metrics"
	memorypublisher "github.com/convertfix/audit-service/internal/publisher/memory"
	pubsubpublisher "github.com/convertfix/audit-service/internal/publisher/pubsub"
	queuememory "github.com/convertfix/audit-service/internal/queue/memory"
	"github.com/convertfix/audit-service/internal/queue/qstash"
	"github.com/convertfix/audit-service/internal/report"
	"github.com/convertfix/audit-service/internal/scraper"
	gcsstorage "github.com/convertfix/audit-service/internal/storage/gcs"
	localstorage "github.com/convertfix/audit-service/internal/storage/local"
	memorystorage "github.com/convertfix/audit-service/internal/storage/memory"
	"github.com/convertfix/audit-service/internal/webhook"
	"github.com/convertfix/audit-service/internal/worker"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Webhook.PaddleSecret == "" {
		logger.Warn("webhook.paddle_secret not set, checkout webhooks will be rejected",
			zap.String("header", webhook.SignatureHeader),
		)
	}

	clock := system.New()
	hasher := sha256.New()
	idGen := uuid.NewGenerator()

	pageScraper := scraper.New(scraper.Config{
		BaseURL: cfg.Reader.BaseURL,
		APIKey:  cfg.Reader.APIKey,
		Timeout: cfg.ReaderTimeout(),
	}, logger.Named("scraper"))

	chatClient := analyzer.NewClient(analyzer.ClientConfig{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Timeout: cfg.LLMTimeout(),
	})
	pageAnalyzer := analyzer.New(analyzer.Config{
		QuickModel:        cfg.LLM.QuickModel,
		ProfessionalModel: cfg.LLM.ProfessionalModel,
		Temperature:       cfg.LLM.Temperature,
		MaxTokens:         cfg.LLM.MaxTokens,
	}, chatClient, logger.Named("analyzer"))

	renderer := report.NewRenderer(report.RendererConfig{
		NavigationTimeout: cfg.NavTimeout(),
	}, logger.Named("report"))

	reportMailer := mailer.New(mailer.Config{
		APIKey: cfg.Email.APIKey,
		From:   cfg.Email.From,
	}, logger.Named("mailer"))

	completions, err := buildLedger(ctx, cfg)
	if err != nil {
		logger.Fatal("ledger init failed", zap.Error(err))
	}
	if closer, ok := completions.(interface{ Close() }); ok {
		defer closer.Close()
	}

	blobStore, err := buildArchive(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("archive init failed", zap.Error(err))
	}

	publisher, stopPublisher, err := buildPublisher(ctx, cfg)
	if err != nil {
		logger.Fatal("publisher init failed", zap.Error(err))
	}
	if stopPublisher != nil {
		defer stopPublisher()
	}

	jobWorker := worker.New(
		pageScraper,
		pageAnalyzer,
		renderer,
		reportMailer,
		completions,
		blobStore,
		publisher,
		hasher,
		clock,
		worker.Config{
			ArchivePrefix: cfg.Archive.Prefix,
			Topic:         cfg.PubSub.TopicName,
		},
		logger.Named("worker"),
	)

	var (
		queue    audit.Queue
		dispatch *dispatcher.Dispatcher
		memQueue *queuememory.Queue
	)
	switch cfg.Queue.Mode {
	case "qstash":
		queue = qstash.NewPublisher(qstash.Config{
			Token:           cfg.Queue.Token,
			BaseURL:         cfg.Queue.BaseURL,
			CallbackBaseURL: cfg.Queue.CallbackBaseURL,
			Retries:         cfg.Queue.Retries,
			DelaySeconds:    cfg.Queue.DelaySeconds,
		}, logger.Named("queue"))
	default:
		memQueue = queuememory.NewQueue(cfg.Queue.Depth)
		dispatch = dispatcher.New(memQueue, jobWorker, cfg.Worker.Concurrency, logger.Named("dispatcher"))
		queue = dispatch
	}

	verifier := qstash.NewVerifier(cfg.Queue.SigningKey, cfg.Queue.NextSigningKey)

	apiServer := api.NewServer(queue, jobWorker, idGen, clock, verifier, cfg, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	if dispatch != nil {
		go func() {
			logger.Info("dispatcher started", zap.Int("concurrency", cfg.Worker.Concurrency))
			dispatch.Run(ctx)
		}()
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	if memQueue != nil {
		memQueue.Close()
	}
}

func buildLedger(ctx context.Context, cfg config.Config) (audit.Ledger, error) {
	if cfg.Ledger.Driver == "postgres" {
		return ledger.NewPostgres(ctx, ledger.PostgresConfig{
			DSN:   cfg.Ledger.DSN,
			Table: cfg.Ledger.Table,
		})
	}
	return ledger.NewMemory(), nil
}

func buildArchive(ctx context.Context, cfg config.Config, logger *zap.Logger) (audit.BlobStore, error) {
	if !cfg.Archive.Enabled {
		return nil, nil
	}
	switch cfg.Archive.Backend {
	case "gcs":
		client, err := gcsclient.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client: %w", err)
		}
		return gcsstorage.New(client, gcsstorage.Config{Bucket: cfg.Archive.Bucket})
	case "memory":
		return memorystorage.NewBlobStore(), nil
	default:
		logger.Info("archiving reports locally", zap.String("dir", cfg.Archive.BaseDir))
		return localstorage.New(localstorage.Config{BaseDir: cfg.Archive.BaseDir})
	}
}

func buildPublisher(ctx context.Context, cfg config.Config) (audit.Publisher, func(), error) {
	if cfg.PubSub.TopicName == "" {
		return nil, nil, nil
	}
	// A topic without a project keeps completion events in process, which
	// matches the durability of the memory queue and ledger in dev mode.
	if cfg.PubSub.ProjectID == "" {
		return memorypublisher.New(), nil, nil
	}
	client, err := gpubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return nil, nil, fmt.Errorf("pubsub client: %w", err)
	}
	pub, err := pubsubpublisher.NewFromClient(client, cfg.PubSub.TopicName)
	if err != nil {
		return nil, nil, err
	}
	stop := func() {
		pub.Stop()
		if closeErr := client.Close(); closeErr != nil {
			zap.L().Warn("pubsub client close failed", zap.Error(closeErr))
		}
	}
	return pub, stop, nil
}
