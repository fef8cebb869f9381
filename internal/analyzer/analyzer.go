package analyzer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/convertfix/audit-service/internal/audit"
)

// Config selects the model per tier and the sampling knobs shared by both.
type Config struct {
	QuickModel        string
	ProfessionalModel string
	Temperature       float64
	MaxTokens         int
}

// Analyzer implements audit.Analyzer on top of a ChatClient.
type Analyzer struct {
	cfg    Config
	client ChatClient
	logger *zap.Logger
}

// New builds an Analyzer with tier model defaults.
func New(cfg Config, client ChatClient, logger *zap.Logger) *Analyzer {
	if cfg.QuickModel == "" {
		cfg.QuickModel = "gpt-4o-mini"
	}
	if cfg.ProfessionalModel == "" {
		cfg.ProfessionalModel = "gpt-4o"
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{cfg: cfg, client: client, logger: logger}
}

// ModelForTier returns the model used at the given tier.
func (a *Analyzer) ModelForTier(tier audit.Tier) string {
	if tier == audit.TierProfessional {
		return a.cfg.ProfessionalModel
	}
	return a.cfg.QuickModel
}

// Analyze prompts the tier's model with the scraped page and returns the
// validated result plus run stats. Structural validation failures are
// analysis errors; quality warnings are logged and the result kept.
func (a *Analyzer) Analyze(ctx context.Context, page audit.ScrapedPage, tier audit.Tier, locale audit.Locale) (audit.Result, audit.Stats, error) {
	model := a.ModelForTier(tier)
	start := time.Now()

	a.logger.Info("starting analysis",
		zap.String("url", page.URL),
		zap.String("tier", string(tier)),
		zap.String("model", model),
	)

	resp, err := a.client.Complete(ctx, ChatRequest{
		Model:       model,
		System:      systemPrompt,
		User:        BuildUserPrompt(page, tier, locale),
		Temperature: a.cfg.Temperature,
		MaxTokens:   a.cfg.MaxTokens,
	})
	if err != nil {
		return audit.Result{}, audit.Stats{}, fmt.Errorf("%w: %s analysis failed: %v", audit.ErrAnalysis, tier, err)
	}

	result, warnings, err := ValidateResult(resp.Content, tier)
	if err != nil {
		return audit.Result{}, audit.Stats{}, fmt.Errorf("%w: %s analysis failed: %v", audit.ErrAnalysis, tier, err)
	}
	for _, warning := range warnings {
		a.logger.Warn("result quality", zap.String("url", page.URL), zap.String("detail", warning))
	}

	stats := audit.Stats{
		Model:       model,
		TotalTokens: resp.Usage.TotalTokens,
		Duration:    time.Since(start),
		IssueCount:  len(result.Problems),
		Score:       result.OverallScore,
	}
	a.logger.Info("analysis done",
		zap.String("url", page.URL),
		zap.Int("issues", stats.IssueCount),
		zap.Int("score", stats.Score),
		zap.Int("total_tokens", stats.TotalTokens),
		zap.Duration("duration", stats.Duration),
	)
	return result, stats, nil
}
