package report

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/convertfix/audit-service/internal/audit"
)

// A4 paper in inches, with 20mm margins.
const (
	paperWidthIn  = 8.27
	paperHeightIn = 11.69
	marginIn      = 0.7874
)

// minPDFSize guards against truncated renders: a real report is never
// under a kilobyte.
const minPDFSize = 1024

// RendererConfig controls the headless browser.
type RendererConfig struct {
	NavigationTimeout time.Duration
}

// Renderer implements audit.Renderer with headless Chrome. Each call
// launches its own browser and tears it down afterwards; renders are
// rare enough that a warm instance is not worth the memory.
type Renderer struct {
	cfg    RendererConfig
	logger *zap.Logger
}

// NewRenderer builds a Renderer.
func NewRenderer(cfg RendererConfig, logger *zap.Logger) *Renderer {
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 45 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Renderer{cfg: cfg, logger: logger}
}

// Render builds the report HTML and prints it to an A4 PDF.
func (r *Renderer) Render(ctx context.Context, url string, result audit.Result, tier audit.Tier, locale audit.Locale) ([]byte, error) {
	html, err := BuildHTML(url, result, tier, locale, time.Now())
	if err != nil {
		return nil, err
	}

	start := time.Now()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("no-sandbox", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	taskCtx, cancel := context.WithTimeout(taskCtx, r.cfg.NavigationTimeout)
	defer cancel()

	var pdf []byte
	actions := []chromedp.Action{
		chromedp.Navigate("about:blank"),
		setDocumentContent(html),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var printErr error
			pdf, _, printErr = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(paperWidthIn).
				WithPaperHeight(paperHeightIn).
				WithMarginTop(marginIn).
				WithMarginBottom(marginIn).
				WithMarginLeft(marginIn).
				WithMarginRight(marginIn).
				Do(ctx)
			return printErr
		}),
	}
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return nil, fmt.Errorf("print to pdf: %w", err)
	}

	if len(pdf) < minPDFSize {
		return nil, fmt.Errorf("pdf output suspiciously small (%d bytes)", len(pdf))
	}

	r.logger.Info("pdf rendered",
		zap.String("url", url),
		zap.String("tier", string(tier)),
		zap.Int("bytes", len(pdf)),
		zap.Duration("duration", time.Since(start)),
	)
	return pdf, nil
}

// setDocumentContent injects the report HTML into the blank page once
// the frame tree is available.
func setDocumentContent(html string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		frameTree, err := page.GetFrameTree().Do(ctx)
		if err != nil {
			return fmt.Errorf("get frame tree: %w", err)
		}
		return page.SetDocumentContent(frameTree.Frame.ID, html).Do(ctx)
	})
}
