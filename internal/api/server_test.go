package api

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/convertfix/audit-service/internal/audit"
	"github.com/convertfix/audit-service/internal/config"
	"github.com/convertfix/audit-service/internal/ledger"
	"github.com/convertfix/audit-service/internal/metrics"
	"github.com/convertfix/audit-service/internal/queue/qstash"
	"github.com/convertfix/audit-service/internal/webhook"
	"github.com/convertfix/audit-service/internal/worker"
)

func TestMain(m *testing.M) {
	metrics.Init()
	m.Run()
}

type fakeQueue struct {
	mu   sync.Mutex
	jobs []audit.Job
	err  error
}

func (f *fakeQueue) Enqueue(_ context.Context, job audit.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

func (f *fakeQueue) queued() []audit.Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]audit.Job(nil), f.jobs...)
}

type fakeIDGen struct {
	id  string
	err error
}

func (f *fakeIDGen) NewID() (string, error) { return f.id, f.err }

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }

type fakeScraper struct{ err error }

func (f *fakeScraper) Scrape(_ context.Context, url string) (audit.ScrapedPage, error) {
	if f.err != nil {
		return audit.ScrapedPage{}, f.err
	}
	return audit.ScrapedPage{URL: url, Title: "Example"}, nil
}

type fakeAnalyzer struct{}

func (fakeAnalyzer) Analyze(context.Context, audit.ScrapedPage, audit.Tier, audit.Locale) (audit.Result, audit.Stats, error) {
	return audit.Result{OverallScore: 58}, audit.Stats{Model: "gpt-4o-mini"}, nil
}

type fakeRenderer struct{}

func (fakeRenderer) Render(context.Context, string, audit.Result, audit.Tier, audit.Locale) ([]byte, error) {
	return []byte("%PDF-1.4 test"), nil
}

type fakeMailer struct{}

func (fakeMailer) Send(context.Context, audit.Message) error { return nil }

const (
	testSigningKey   = "sig_current_key"
	testPaddleSecret = "pdl_secret"
)

func newTestServer(t *testing.T, queue *fakeQueue, scrapeErr error) *Server {
	t.Helper()
	return newTestServerWithLogger(t, queue, scrapeErr, zap.NewNop())
}

func newTestServerWithLogger(t *testing.T, queue *fakeQueue, scrapeErr error, logger *zap.Logger) *Server {
	t.Helper()

	cfg := config.Config{
		Server: config.ServerConfig{
			GeoHeader:     "X-Geo-Country",
			EstimatedTime: "2-3 minutes",
		},
		Webhook: config.WebhookConfig{PaddleSecret: testPaddleSecret},
		Logging: config.LoggingConfig{Development: true},
	}

	w := worker.New(
		&fakeScraper{err: scrapeErr},
		fakeAnalyzer{},
		fakeRenderer{},
		fakeMailer{},
		ledger.NewMemory(),
		nil, nil, nil,
		&fakeClock{now: time.Unix(1700000000, 0).UTC()},
		worker.Config{},
		zap.NewNop(),
	)

	return NewServer(
		queue,
		w,
		&fakeIDGen{id: "0191d9c0-0000-7000-8000-000000000001"},
		&fakeClock{now: time.Unix(1700000000, 0).UTC()},
		qstash.NewVerifier(testSigningKey, ""),
		cfg,
		logger,
	)
}

func postJSON(t *testing.T, ts *httptest.Server, path string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+path, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer func() { require.NoError(t, resp.Body.Close()) }()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestSubmitAuditQueuesJob(t *testing.T) {
	t.Parallel()

	queue := &fakeQueue{}
	ts := httptest.NewServer(newTestServer(t, queue, nil).Handler())
	defer ts.Close()

	resp := postJSON(t, ts, "/v1/audits", map[string]string{
		"url":    "https://example.com",
		"email":  "founder@example.com",
		"tier":   "quick",
		"locale": "pl",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	require.Equal(t, true, body["success"])
	require.NotEmpty(t, body["jobId"])
	require.Equal(t, "2-3 minutes", body["estimatedTime"])

	jobs := queue.queued()
	require.Len(t, jobs, 1)
	require.Equal(t, audit.TierQuick, jobs[0].Tier)
	require.Equal(t, audit.LocalePL, jobs[0].Locale)
}

func TestSubmitAuditDefaultsTierAndLocale(t *testing.T) {
	t.Parallel()

	queue := &fakeQueue{}
	ts := httptest.NewServer(newTestServer(t, queue, nil).Handler())
	defer ts.Close()

	resp := postJSON(t, ts, "/v1/audits", map[string]string{
		"url":   "https://example.com",
		"email": "founder@example.com",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp)

	jobs := queue.queued()
	require.Len(t, jobs, 1)
	require.Equal(t, audit.TierProfessional, jobs[0].Tier)
	require.Equal(t, audit.LocaleEN, jobs[0].Locale)
}

func TestSubmitAuditRejectsBadInput(t *testing.T) {
	t.Parallel()

	queue := &fakeQueue{}
	ts := httptest.NewServer(newTestServer(t, queue, nil).Handler())
	defer ts.Close()

	cases := []map[string]string{
		{"url": "ftp://example.com", "email": "founder@example.com"},
		{"url": "https://example.com", "email": "not-an-email"},
		{"url": "", "email": "founder@example.com"},
		{"url": "https://example.com", "email": "founder@example.com", "tier": "premium"},
	}
	for _, payload := range cases {
		resp := postJSON(t, ts, "/v1/audits", payload)
		body := decodeBody(t, resp)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.NotEmpty(t, body["message"])
	}
	require.Empty(t, queue.queued())
}

func TestSubmitAuditQueueFailure(t *testing.T) {
	t.Parallel()

	queue := &fakeQueue{err: errors.New("queue offline")}
	ts := httptest.NewServer(newTestServer(t, queue, nil).Handler())
	defer ts.Close()

	resp := postJSON(t, ts, "/v1/audits", map[string]string{
		"url":   "https://example.com",
		"email": "founder@example.com",
	})
	body := decodeBody(t, resp)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.Equal(t, "failed to queue audit job", body["message"])
	// Development mode surfaces the cause.
	require.Contains(t, body["details"], "queue offline")
}

func paddleSign(t *testing.T, payload []byte, ts string) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(testPaddleSecret))
	mac.Write([]byte(ts + ":" + string(payload)))
	return fmt.Sprintf("ts=%s;h1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func paddleCompletedPayload(t *testing.T) []byte {
	t.Helper()
	payload := map[string]any{
		"event_type": webhook.EventTransactionCompleted,
		"data": map[string]any{
			"customer_email": "buyer@example.com",
			"custom": map[string]any{
				"landingPageUrl": "https://example.com",
				"tier":           "professional",
				"locale":         "pl",
			},
		},
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return raw
}

func TestPaddleWebhookCreatesJob(t *testing.T) {
	t.Parallel()

	queue := &fakeQueue{}
	ts := httptest.NewServer(newTestServer(t, queue, nil).Handler())
	defer ts.Close()

	payload := paddleCompletedPayload(t)
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/v1/webhooks/paddle", bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set(webhook.SignatureHeader, paddleSign(t, payload, "1700000000"))

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	body := decodeBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["received"])

	jobs := queue.queued()
	require.Len(t, jobs, 1)
	require.Equal(t, "buyer@example.com", jobs[0].Email)
	require.Equal(t, audit.LocalePL, jobs[0].Locale)
}

func TestPaddleWebhookRejectsBadSignature(t *testing.T) {
	t.Parallel()

	queue := &fakeQueue{}
	ts := httptest.NewServer(newTestServer(t, queue, nil).Handler())
	defer ts.Close()

	payload := paddleCompletedPayload(t)
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/v1/webhooks/paddle", bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set(webhook.SignatureHeader, "ts=1700000000;h1=deadbeef")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	decodeBody(t, resp)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Empty(t, queue.queued())
}

func TestPaddleWebhookIgnoresOtherEvents(t *testing.T) {
	t.Parallel()

	queue := &fakeQueue{}
	ts := httptest.NewServer(newTestServer(t, queue, nil).Handler())
	defer ts.Close()

	payload, err := json.Marshal(map[string]any{"event_type": "subscription.created"})
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/v1/webhooks/paddle", bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set(webhook.SignatureHeader, paddleSign(t, payload, "1700000000"))

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	body := decodeBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["received"])
	require.Empty(t, queue.queued())
}

func TestPaddleWebhookAnswers200OnQueueFailure(t *testing.T) {
	t.Parallel()

	queue := &fakeQueue{err: errors.New("queue offline")}
	ts := httptest.NewServer(newTestServer(t, queue, nil).Handler())
	defer ts.Close()

	payload := paddleCompletedPayload(t)
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/v1/webhooks/paddle", bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set(webhook.SignatureHeader, paddleSign(t, payload, "1700000000"))

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	body := decodeBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["received"])
	require.Contains(t, body["error"], "queue offline")
}

func queueCallbackRequest(t *testing.T, url string, job audit.Job, key string) *http.Request {
	t.Helper()
	body, err := json.Marshal(job)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, url+"/v1/queue/audit-worker", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set(QueueSignatureHeader, qstash.Sign(body, key))
	return req
}

func callbackJob() audit.Job {
	return audit.Job{
		ID:    "job-1",
		URL:   "https://example.com",
		Email: "founder@example.com",
		Tier:  audit.TierQuick,
	}
}

func TestQueueCallbackRunsJob(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(newTestServer(t, &fakeQueue{}, nil).Handler())
	defer ts.Close()

	resp, err := http.DefaultClient.Do(queueCallbackRequest(t, ts.URL, callbackJob(), testSigningKey))
	require.NoError(t, err)
	defer func() { require.NoError(t, resp.Body.Close()) }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Success", string(raw))
}

func TestQueueCallbackRejectsBadSignature(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(newTestServer(t, &fakeQueue{}, nil).Handler())
	defer ts.Close()

	resp, err := http.DefaultClient.Do(queueCallbackRequest(t, ts.URL, callbackJob(), "wrong_key"))
	require.NoError(t, err)
	defer func() { require.NoError(t, resp.Body.Close()) }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "Failed: invalid signature", string(raw))
}

func TestQueueCallbackReportsPipelineFailure(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(newTestServer(t, &fakeQueue{}, fmt.Errorf("%w: reader API error", audit.ErrScrape)).Handler())
	defer ts.Close()

	resp, err := http.DefaultClient.Do(queueCallbackRequest(t, ts.URL, callbackJob(), testSigningKey))
	require.NoError(t, err)
	defer func() { require.NoError(t, resp.Body.Close()) }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.Contains(t, string(raw), "Failed: ")
	require.Contains(t, string(raw), "reader API error")
}

func TestCurrencyEndpoint(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(newTestServer(t, &fakeQueue{}, nil).Handler())
	defer ts.Close()

	testCases := []struct {
		name     string
		country  string
		currency string
		detected bool
	}{
		{"poland", "PL", "PLN", true},
		{"germany", "DE", "USD", true},
		{"no header", "", "USD", false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, ts.URL+"/v1/currency", nil)
			require.NoError(t, err)
			if tc.country != "" {
				req.Header.Set("X-Geo-Country", tc.country)
			}
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			body := decodeBody(t, resp)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			require.Equal(t, tc.currency, body["currency"])
			require.Equal(t, tc.detected, body["detected"])
			require.Equal(t, tc.country, body["country"])
		})
	}
}

func TestRequestIDReachesHeaderAndLog(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	srv := newTestServerWithLogger(t, &fakeQueue{}, nil, zap.New(core))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	decodeBody(t, resp)

	headerID := resp.Header.Get("X-Request-ID")
	require.NotEmpty(t, headerID)

	entries := logs.FilterMessage("request completed").All()
	require.Len(t, entries, 1)
	require.Equal(t, headerID, entries[0].ContextMap()["request_id"])
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(newTestServer(t, &fakeQueue{}, nil).Handler())
	defer ts.Close()

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		decodeBody(t, resp)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
}
