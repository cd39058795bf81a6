package validation

import (
	"context"
	"time"

	"github.com/garyjia/approval-engine/internal/catalog"
	"github.com/garyjia/approval-engine/internal/domain/entity"
	"github.com/garyjia/approval-engine/internal/port"
	"go.uber.org/zap"
)

// Risk score weights: failed checks weigh twice as heavy as warnings.
const (
	failedCheckWeight  = 10
	warningCheckWeight = 5
	maxRiskScore       = 100
)

// CheckResult is the outcome of one validation check.
type CheckResult struct {
	Name    string                 `json:"name"`
	Passed  bool                   `json:"passed"`
	Warning bool                   `json:"warning"`
	Message string                 `json:"message,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Result aggregates the fixed check battery. IsValid is the conjunction of
// all Passed flags; warnings never invalidate.
type Result struct {
	IsValid      bool          `json:"is_valid"`
	FailedChecks []CheckResult `json:"failed_checks,omitempty"`
	Warnings     []CheckResult `json:"warnings,omitempty"`
	RiskScore    int           `json:"risk_score"`
}

// Messages returns the failure messages, for surfacing to the caller.
func (r *Result) Messages() []string {
	msgs := make([]string, 0, len(r.FailedChecks))
	for _, check := range r.FailedChecks {
		msgs = append(msgs, check.Message)
	}
	return msgs
}

// Config holds the validation heuristics' thresholds.
type Config struct {
	DuplicateWindow    time.Duration
	ActivityWindow     time.Duration
	ActivityLimit      int
	AnonymousThreshold float64
}

func (c Config) withDefaults() Config {
	if c.DuplicateWindow <= 0 {
		c.DuplicateWindow = time.Hour
	}
	if c.ActivityWindow <= 0 {
		c.ActivityWindow = 7 * 24 * time.Hour
	}
	if c.ActivityLimit <= 0 {
		c.ActivityLimit = 5
	}
	if c.AnonymousThreshold <= 0 {
		c.AnonymousThreshold = 50000
	}
	return c
}

// Engine runs the fixed, ordered battery of checks against an incoming
// transaction and produces a risk assessment. It has no side effects.
type Engine struct {
	checks []Check
	logger *zap.Logger
}

// NewEngine creates a validation engine wired to the rule catalog and the
// submission history store.
func NewEngine(cat *catalog.Catalog, history port.HistoryRepository, cfg Config, logger *zap.Logger) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{
		checks: []Check{
			&duplicateCheck{history: history, window: cfg.DuplicateWindow},
			&unusualActivityCheck{
				history:       history,
				window:        cfg.ActivityWindow,
				limit:         cfg.ActivityLimit,
				anonThreshold: cfg.AnonymousThreshold,
			},
			&segregationCheck{},
			&documentationCheck{catalog: cat},
		},
		logger: logger,
	}
}

// Validate runs every check in order. Check failures and warnings are
// business outcomes; only a storage failure during a history lookup is
// returned as an error.
func (e *Engine) Validate(ctx context.Context, txn *entity.Transaction, actor *entity.Actor) (*Result, error) {
	result := &Result{IsValid: true}

	for _, check := range e.checks {
		cr, err := check.Run(ctx, txn, actor)
		if err != nil {
			return nil, err
		}
		if !cr.Passed {
			result.IsValid = false
			result.FailedChecks = append(result.FailedChecks, cr)
		} else if cr.Warning {
			result.Warnings = append(result.Warnings, cr)
		}
	}

	result.RiskScore = riskScore(len(result.FailedChecks), len(result.Warnings))

	if !result.IsValid || len(result.Warnings) > 0 {
		e.logger.Info("Validation completed with findings",
			zap.String("transaction_type", txn.Type),
			zap.String("transaction_id", txn.ID),
			zap.Bool("is_valid", result.IsValid),
			zap.Int("failed", len(result.FailedChecks)),
			zap.Int("warnings", len(result.Warnings)),
			zap.Int("risk_score", result.RiskScore))
	}
	return result, nil
}

// riskScore derives the 0-100 risk integer from the check counts.
func riskScore(failed, warnings int) int {
	score := failedCheckWeight*failed + warningCheckWeight*warnings
	if score > maxRiskScore {
		score = maxRiskScore
	}
	return score
}
