// Package api exposes the HTTP interface for the audit service.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/convertfix/audit-service/internal/audit"
	"github.com/convertfix/audit-service/internal/config"
	"github.com/convertfix/audit-service/internal/metrics"
	"github.com/convertfix/audit-service/internal/queue/qstash"
	"github.com/convertfix/audit-service/internal/webhook"
	"github.com/convertfix/audit-service/internal/worker"
)

// QueueSignatureHeader carries the callback signature from the external queue.
const QueueSignatureHeader = "Upstash-Signature"

const maxBodyBytes = 1 << 20

// Server wires HTTP handlers to the queue, the worker and the intake
// validators.
type Server struct {
	router   chi.Router
	queue    audit.Queue
	worker   *worker.Worker
	idGen    audit.IDGenerator
	clock    audit.Clock
	verifier *qstash.Verifier
	cfg      config.Config
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	queue audit.Queue,
	w *worker.Worker,
	idGen audit.IDGenerator,
	clock audit.Clock,
	verifier *qstash.Verifier,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		queue:    queue,
		worker:   w,
		idGen:    idGen,
		clock:    clock,
		verifier: verifier,
		cfg:      cfg,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/audits", s.submitAudit)
		r.Post("/webhooks/paddle", s.paddleWebhook)
		r.Post("/queue/audit-worker", s.queueCallback)
		r.Get("/currency", s.currency)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type auditRequest struct {
	URL    string `json:"url"`
	Email  string `json:"email"`
	Tier   string `json:"tier"`
	Locale string `json:"locale"`
}

func (s *Server) submitAudit(w http.ResponseWriter, r *http.Request) {
	var req auditRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON", nil)
		return
	}
	if err := audit.ValidateURL(req.URL); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err := audit.ValidateEmail(req.Email); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	tier := audit.Tier(req.Tier)
	if req.Tier == "" {
		tier = audit.TierProfessional
	}
	if !tier.Valid() {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown tier %q", req.Tier), nil)
		return
	}

	job, err := s.buildJob(req.URL, req.Email, tier, audit.Locale(req.Locale))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to create audit job", err)
		return
	}
	if err := s.enqueue(r.Context(), job); err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to queue audit job", err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"jobId":         job.ID,
		"estimatedTime": s.cfg.Server.EstimatedTime,
	})
}

func (s *Server) paddleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read body", nil)
		return
	}
	if err := webhook.VerifySignature(body, r.Header.Get(webhook.SignatureHeader), s.cfg.Webhook.PaddleSecret); err != nil {
		s.logger.Warn("paddle signature rejected", zap.Error(err))
		s.writeError(w, http.StatusUnauthorized, "invalid signature", nil)
		return
	}

	event, err := webhook.ParseEvent(body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if event.Type != webhook.EventTransactionCompleted {
		s.writeJSON(w, http.StatusOK, map[string]any{"received": true})
		return
	}

	// The payment already went through; a queue hiccup here must not make
	// the provider retry forever, so internal failures still answer 200.
	job, err := s.buildJob(event.URL, event.CustomerEmail, event.Tier, event.Locale)
	if err == nil {
		err = s.enqueue(r.Context(), job)
	}
	if err != nil {
		s.logger.Error("paddle checkout job failed",
			zap.String("url", event.URL),
			zap.Error(err),
		)
		s.writeJSON(w, http.StatusOK, map[string]any{"received": true, "error": err.Error()})
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"received": true})
}

func (s *Server) queueCallback(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeText(w, http.StatusBadRequest, "Failed: cannot read body")
		return
	}
	if s.verifier == nil {
		writeText(w, http.StatusUnauthorized, "Failed: queue signature verification is not configured")
		return
	}
	if err := s.verifier.Verify(body, r.Header.Get(QueueSignatureHeader)); err != nil {
		s.logger.Warn("queue callback signature rejected", zap.Error(err))
		writeText(w, http.StatusUnauthorized, "Failed: invalid signature")
		return
	}

	var job audit.Job
	if err := json.Unmarshal(body, &job); err != nil {
		writeText(w, http.StatusBadRequest, "Failed: malformed job payload")
		return
	}

	if err := s.worker.Handle(r.Context(), job); err != nil {
		writeText(w, http.StatusInternalServerError, "Failed: "+err.Error())
		return
	}
	writeText(w, http.StatusOK, "Success")
}

func (s *Server) currency(w http.ResponseWriter, r *http.Request) {
	country := r.Header.Get(s.cfg.Server.GeoHeader)
	currency := "USD"
	if country == "PL" {
		currency = "PLN"
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"currency": currency,
		"detected": country != "",
		"country":  country,
	})
}

func (s *Server) buildJob(url, email string, tier audit.Tier, locale audit.Locale) (audit.Job, error) {
	jobID, err := s.idGen.NewID()
	if err != nil {
		return audit.Job{}, fmt.Errorf("generate job id: %w", err)
	}
	return audit.Job{
		ID:        jobID,
		URL:       url,
		Email:     email,
		Tier:      tier,
		Locale:    locale.OrDefault(),
		CreatedAt: s.clock.Now(),
	}, nil
}

func (s *Server) enqueue(ctx context.Context, job audit.Job) error {
	queueCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.queue.Enqueue(queueCtx, job); err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}
	s.logger.Info("audit job queued",
		zap.String("job_id", job.ID),
		zap.String("url", job.URL),
		zap.String("tier", string(job.Tier)),
	)
	return nil
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("request_id", requestIDFromContext(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				s.writeError(w, http.StatusInternalServerError, "internal server error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

type requestIDKey struct{}

func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

// writeError answers {message} and, in development mode only, attaches
// the underlying error as details.
func (s *Server) writeError(w http.ResponseWriter, status int, msg string, cause error) {
	payload := map[string]any{"message": msg}
	if cause != nil && s.cfg.Logging.Development {
		payload["details"] = cause.Error()
	}
	if cause != nil {
		s.logger.Error(msg, zap.Error(cause))
	}
	s.writeJSON(w, status, payload)
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}
