package audit

import "errors"

// Sentinel error categories for the pipeline. Components wrap these with
// fmt.Errorf("...: %w", ...) so callers can classify failures with
// errors.Is without depending on concrete component packages.
var (
	// ErrScrape covers malformed URLs, reader API failures, empty bodies
	// and scrape timeouts.
	ErrScrape = errors.New("scrape failed")

	// ErrAnalysis covers LLM call failures, empty responses and fatal
	// schema/quality validation of the model output.
	ErrAnalysis = errors.New("analysis failed")

	// ErrEmail covers missing mail credentials and provider rejections.
	ErrEmail = errors.New("email send failed")

	// ErrQueue covers missing queue credentials/callback configuration and
	// publish failures.
	ErrQueue = errors.New("queue publish failed")
)
