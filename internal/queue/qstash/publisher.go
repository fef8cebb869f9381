// Package qstash publishes audit jobs to the external message queue and
// verifies the signatures on its worker callbacks. The queue owns
// retries, delay and redelivery; the service just publishes and trusts
// the callback signature.
package qstash

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/convertfix/audit-service/internal/audit"
)

// Config configures the publisher.
type Config struct {
	Token           string
	BaseURL         string
	CallbackBaseURL string
	Retries         int
	DelaySeconds    int
	HTTPClient      *http.Client
}

// Publisher implements audit.Queue against the QStash publish API.
type Publisher struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewPublisher builds a Publisher with production defaults.
func NewPublisher(cfg Config, logger *zap.Logger) *Publisher {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://qstash.upstash.io"
	}
	if cfg.Retries <= 0 {
		cfg.Retries = 3
	}
	if cfg.DelaySeconds <= 0 {
		cfg.DelaySeconds = 10
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{cfg: cfg, httpClient: httpClient, logger: logger}
}

// Enqueue publishes the job toward the worker callback endpoint. The
// delay gives the intake response time to return before the first
// delivery attempt.
func (p *Publisher) Enqueue(ctx context.Context, job audit.Job) error {
	if p.cfg.Token == "" {
		return fmt.Errorf("%w: missing queue.token configuration", audit.ErrQueue)
	}
	if p.cfg.CallbackBaseURL == "" {
		return fmt.Errorf("%w: missing queue.callback_base_url configuration", audit.ErrQueue)
	}

	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("%w: marshal job: %v", audit.ErrQueue, err)
	}

	callbackURL := strings.TrimSuffix(p.cfg.CallbackBaseURL, "/") + "/v1/queue/audit-worker"
	publishURL := strings.TrimSuffix(p.cfg.BaseURL, "/") + "/v2/publish/" + callbackURL

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, publishURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: create publish request: %v", audit.ErrQueue, err)
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.Token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Upstash-Retries", strconv.Itoa(p.cfg.Retries))
	req.Header.Set("Upstash-Delay", strconv.Itoa(p.cfg.DelaySeconds)+"s")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: publish: %v", audit.ErrQueue, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: publish status %d: %s", audit.ErrQueue, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	p.logger.Info("audit queued",
		zap.String("job_id", job.ID),
		zap.String("url", job.URL),
		zap.String("tier", string(job.Tier)),
		zap.String("callback", callbackURL),
	)
	return nil
}
