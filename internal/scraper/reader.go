// Package scraper fetches rendered landing pages through a third-party
// reader API and parses the returned markdown into structured fields.
package scraper

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/convertfix/audit-service/internal/audit"
)

// Config controls the reader API client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Reader implements audit.Scraper against a markdown reader API. The
// reader service executes JavaScript server-side, so SPA-heavy landing
// pages come back as plain markdown text.
type Reader struct {
	cfg           Config
	baseCollector *colly.Collector
	logger        *zap.Logger
}

// New builds a Reader. A missing API key is not an error here; Scrape
// fails with a descriptive message at first use instead.
func New(cfg Config, logger *zap.Logger) *Reader {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://r.jina.ai"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	c.WithTransport(newHTTPTransport())

	return &Reader{
		cfg:           cfg,
		baseCollector: c,
		logger:        logger,
	}
}

// Scrape fetches the rendered content of rawURL and extracts title, meta
// description, headings and body text. All extraction heuristics are
// best-effort: a page without headings or meta description is a valid
// result, not an error.
func (r *Reader) Scrape(ctx context.Context, rawURL string) (audit.ScrapedPage, error) {
	if err := audit.ValidateURL(rawURL); err != nil {
		return audit.ScrapedPage{}, fmt.Errorf("%w: invalid URL %s: %v", audit.ErrScrape, rawURL, err)
	}
	if r.cfg.APIKey == "" {
		return audit.ScrapedPage{}, fmt.Errorf("%w: missing reader.api_key configuration", audit.ErrScrape)
	}

	readerURL := strings.TrimSuffix(r.cfg.BaseURL, "/") + "/" + rawURL

	fetchCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	start := time.Now()

	// Visit reports non-2xx responses as errors too, so the captured
	// status code is inspected before the visit error is wrapped.
	out, err := r.fetch(fetchCtx, readerURL)
	switch {
	case err != nil:
		return audit.ScrapedPage{}, err
	case out.statusCode == http.StatusNotFound:
		return audit.ScrapedPage{}, fmt.Errorf("%w: Page not found (404): %s", audit.ErrScrape, rawURL)
	case out.statusCode != 0 && (out.statusCode < 200 || out.statusCode >= 300):
		return audit.ScrapedPage{}, fmt.Errorf("%w: reader API error: %d for %s", audit.ErrScrape, out.statusCode, rawURL)
	case out.visitErr != nil:
		return audit.ScrapedPage{}, fmt.Errorf("%w: reader fetch: %v", audit.ErrScrape, out.visitErr)
	case out.fetchErr != nil:
		return audit.ScrapedPage{}, fmt.Errorf("%w: reader fetch: %v", audit.ErrScrape, out.fetchErr)
	}
	if len(strings.TrimSpace(string(out.body))) == 0 {
		return audit.ScrapedPage{}, fmt.Errorf("%w: empty content returned by reader API for %s", audit.ErrScrape, rawURL)
	}

	page := parseReaderContent(rawURL, string(out.body))
	r.logger.Debug("page scraped",
		zap.String("url", rawURL),
		zap.Int("content_chars", len(page.Content)),
		zap.Int("h1_count", len(page.Headings.H1)),
		zap.Duration("duration", time.Since(start)),
	)
	return page, nil
}

// fetchOutcome is the complete observation of one reader API request.
// Every field is written inside the visit goroutine and only read after
// that goroutine hands the struct over, so an abandoned visit after a
// timeout never races with the caller.
type fetchOutcome struct {
	statusCode int
	body       []byte
	fetchErr   error
	visitErr   error
}

func (r *Reader) fetch(ctx context.Context, url string) (fetchOutcome, error) {
	done := make(chan fetchOutcome, 1)
	go func() {
		var out fetchOutcome

		collector := r.baseCollector.Clone()
		collector.SetRequestTimeout(r.cfg.Timeout)
		collector.OnRequest(func(req *colly.Request) {
			req.Headers.Set("Accept", "text/plain")
			req.Headers.Set("Authorization", "Bearer "+r.cfg.APIKey)
			req.Headers.Set("X-Return-Format", "markdown")
		})
		collector.OnResponse(func(resp *colly.Response) {
			out.statusCode = resp.StatusCode
			out.body = append([]byte(nil), resp.Body...)
		})
		collector.OnError(func(resp *colly.Response, err error) {
			if resp != nil {
				out.statusCode = resp.StatusCode
			}
			out.fetchErr = err
		})

		out.visitErr = collector.Visit(url)
		done <- out
	}()

	select {
	case <-ctx.Done():
		return fetchOutcome{}, fmt.Errorf("%w: scraping timeout (>%s): %s", audit.ErrScrape, r.cfg.Timeout, url)
	case out := <-done:
		return out, nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
