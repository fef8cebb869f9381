package audit

import (
	"context"
	"io"
	"time"
)

// Scraper fetches a rendered landing page through the reader API.
type Scraper interface {
	Scrape(ctx context.Context, url string) (ScrapedPage, error)
}

// Analyzer turns a scraped page into a validated audit result.
type Analyzer interface {
	Analyze(ctx context.Context, page ScrapedPage, tier Tier, locale Locale) (Result, Stats, error)
}

// Renderer rasterizes an audit result into a PDF document.
type Renderer interface {
	Render(ctx context.Context, url string, result Result, tier Tier, locale Locale) ([]byte, error)
}

// Message is one outbound report email.
type Message struct {
	To    string
	Tier  Tier
	PDF   []byte
	URL   string
	Stats *Stats
}

// Mailer delivers the report to the customer.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Queue hands a job to the delivery mechanism. The external queue owns
// retries, ordering and redelivery; enqueue is fire-and-forget.
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
}

// Ledger records completed jobs so a redelivered job is not rerun.
type Ledger interface {
	Completed(ctx context.Context, jobID string) (bool, error)
	MarkCompleted(ctx context.Context, rec CompletionRecord) error
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Publisher pushes completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Hasher computes digests for archive paths.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces job IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
