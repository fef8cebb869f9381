// Package worker executes the audit pipeline for one job at a time.
package worker

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/convertfix/audit-service/internal/audit"
	"github.com/convertfix/audit-service/internal/logging"
	"github.com/convertfix/audit-service/internal/metrics"
)

// Config controls Worker behavior.
type Config struct {
	// ArchivePrefix is the blob path prefix for archived reports.
	ArchivePrefix string
	// Topic is the completion event topic. Empty disables publishing.
	Topic string
}

// Worker runs scrape, analyze, render and email for a single job. The
// ledger makes redelivered jobs idempotent: a completed job is never
// rerun, so the customer is never charged or emailed twice.
type Worker struct {
	scraper   audit.Scraper
	analyzer  audit.Analyzer
	renderer  audit.Renderer
	mailer    audit.Mailer
	ledger    audit.Ledger
	blobStore audit.BlobStore
	publisher audit.Publisher
	hasher    audit.Hasher
	clock     audit.Clock
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Worker. blobStore and publisher may be nil; archiving
// and event publishing are then skipped.
func New(
	scraper audit.Scraper,
	analyzer audit.Analyzer,
	renderer audit.Renderer,
	mailer audit.Mailer,
	ledger audit.Ledger,
	blobStore audit.BlobStore,
	publisher audit.Publisher,
	hasher audit.Hasher,
	clock audit.Clock,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		scraper:   scraper,
		analyzer:  analyzer,
		renderer:  renderer,
		mailer:    mailer,
		ledger:    ledger,
		blobStore: blobStore,
		publisher: publisher,
		hasher:    hasher,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
	}
}

// Handle runs the full pipeline for one job. It returns nil both on
// success and when the job was already completed. Completion is recorded
// only after the email send succeeds, so a crash between send and record
// can double-send on redelivery; that window is accepted.
func (w *Worker) Handle(ctx context.Context, job audit.Job) error {
	if job.ID == "" || job.URL == "" {
		return fmt.Errorf("job id and url are required")
	}
	tier := string(job.Tier)

	jobLog := logging.ForJob(w.logger, job.ID, job.URL, tier)

	done, err := w.ledger.Completed(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("check completion: %w", err)
	}
	if done {
		jobLog.Info("job already completed, skipping")
		metrics.ObserveJob("duplicate", tier)
		return nil
	}

	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	start := w.clock.Now()
	jobLog.Info("job started")

	page, err := w.scrape(ctx, job)
	if err != nil {
		metrics.ObserveJob("failed", tier)
		return err
	}

	result, stats, err := w.analyze(ctx, job, page)
	if err != nil {
		metrics.ObserveJob("failed", tier)
		return err
	}

	pdf, err := w.render(ctx, job, result)
	if err != nil {
		metrics.ObserveJob("failed", tier)
		return err
	}

	reportURI := w.archive(ctx, job, pdf)

	if err := w.email(ctx, job, pdf, stats); err != nil {
		metrics.ObserveJob("failed", tier)
		return err
	}

	rec := audit.CompletionRecord{
		JobID:       job.ID,
		URL:         job.URL,
		Email:       job.Email,
		Tier:        job.Tier,
		Score:       result.OverallScore,
		ReportURI:   reportURI,
		CompletedAt: w.clock.Now(),
	}
	if err := w.ledger.MarkCompleted(ctx, rec); err != nil {
		// The report is already delivered; a redelivery would email the
		// customer again, so this failure is worth surfacing loudly.
		jobLog.Error("mark completed failed", zap.Error(err))
		return fmt.Errorf("mark completed: %w", err)
	}

	w.publishCompletion(ctx, job, rec)

	metrics.ObserveJob("completed", tier)
	jobLog.Info("job completed",
		zap.Int("score", result.OverallScore),
		zap.Int("issues", len(result.Problems)),
		zap.Duration("elapsed", w.clock.Now().Sub(start)),
	)
	return nil
}

func (w *Worker) scrape(ctx context.Context, job audit.Job) (audit.ScrapedPage, error) {
	start := time.Now()
	page, err := w.scraper.Scrape(ctx, job.URL)
	metrics.ObserveStage(metrics.StageScrape, time.Since(start))
	if err != nil {
		w.logger.Error("scrape failed",
			zap.String("job_id", job.ID),
			zap.String("url", job.URL),
			zap.Error(err),
		)
		return audit.ScrapedPage{}, err
	}
	return page, nil
}

func (w *Worker) analyze(ctx context.Context, job audit.Job, page audit.ScrapedPage) (audit.Result, audit.Stats, error) {
	start := time.Now()
	result, stats, err := w.analyzer.Analyze(ctx, page, job.Tier, job.Locale)
	metrics.ObserveStage(metrics.StageAnalyze, time.Since(start))
	if err != nil {
		w.logger.Error("analysis failed",
			zap.String("job_id", job.ID),
			zap.Error(err),
		)
		return audit.Result{}, audit.Stats{}, err
	}
	metrics.ObserveLLMUsage(stats.Model, 0, 0, stats.TotalTokens)
	return result, stats, nil
}

func (w *Worker) render(ctx context.Context, job audit.Job, result audit.Result) ([]byte, error) {
	start := time.Now()
	pdf, err := w.renderer.Render(ctx, job.URL, result, job.Tier, job.Locale)
	metrics.ObserveStage(metrics.StageRender, time.Since(start))
	if err != nil {
		w.logger.Error("render failed",
			zap.String("job_id", job.ID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("render report: %w", err)
	}
	return pdf, nil
}

// archive stores the PDF and returns its URI. Archiving is best effort:
// the report still reaches the customer by email when the store is down.
func (w *Worker) archive(ctx context.Context, job audit.Job, pdf []byte) string {
	if w.blobStore == nil || w.hasher == nil {
		return ""
	}
	hash, err := w.hasher.Hash(pdf)
	if err != nil {
		w.logger.Warn("hash report failed", zap.String("job_id", job.ID), zap.Error(err))
		return ""
	}
	uri, err := w.blobStore.PutObject(
		ctx,
		w.buildArchivePath(job.ID, hash),
		"application/pdf",
		bytes.NewReader(pdf),
	)
	if err != nil {
		w.logger.Warn("archive report failed", zap.String("job_id", job.ID), zap.Error(err))
		return ""
	}
	return uri
}

func (w *Worker) buildArchivePath(jobID, hash string) string {
	prefix := strings.Trim(w.cfg.ArchivePrefix, "/")
	if prefix == "" {
		return fmt.Sprintf("%s/%s.pdf", jobID, hash)
	}
	return fmt.Sprintf("%s/%s/%s.pdf", prefix, jobID, hash)
}

func (w *Worker) email(ctx context.Context, job audit.Job, pdf []byte, stats audit.Stats) error {
	start := time.Now()
	err := w.mailer.Send(ctx, audit.Message{
		To:    job.Email,
		Tier:  job.Tier,
		PDF:   pdf,
		URL:   job.URL,
		Stats: &stats,
	})
	metrics.ObserveStage(metrics.StageEmail, time.Since(start))
	if err != nil {
		w.logger.Error("email failed",
			zap.String("job_id", job.ID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (w *Worker) publishCompletion(ctx context.Context, job audit.Job, rec audit.CompletionRecord) {
	if w.cfg.Topic == "" || w.publisher == nil {
		return
	}
	payload := map[string]any{
		"jobId":       job.ID,
		"url":         job.URL,
		"tier":        string(job.Tier),
		"score":       rec.Score,
		"reportUri":   rec.ReportURI,
		"completedAt": rec.CompletedAt.Format(time.RFC3339),
	}
	if _, err := w.publisher.Publish(ctx, w.cfg.Topic, payload); err != nil {
		w.logger.Warn("publish completion failed",
			zap.String("job_id", job.ID),
			zap.Error(err),
		)
	}
}
