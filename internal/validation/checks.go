package validation

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/approval-engine/internal/catalog"
	"github.com/garyjia/approval-engine/internal/domain/entity"
	"github.com/garyjia/approval-engine/internal/port"
)

// Check is a single validation rule. Checks are pure functions over the
// transaction plus a bounded read of recent submission history; they never
// create or mutate anything.
type Check interface {
	Name() string
	Run(ctx context.Context, txn *entity.Transaction, actor *entity.Actor) (CheckResult, error)
}

// duplicateCheck flags a resubmission of the same submitter and type within a
// short window. Duplication is a soft warning, never a hard dedupe.
type duplicateCheck struct {
	history port.HistoryRepository
	window  time.Duration
}

func (c *duplicateCheck) Name() string { return "duplicate_detection" }

func (c *duplicateCheck) Run(ctx context.Context, txn *entity.Transaction, _ *entity.Actor) (CheckResult, error) {
	result := CheckResult{Name: c.Name(), Passed: true}
	if txn.SubmittedBy == "" {
		result.Message = "no submitter; duplicate detection skipped"
		return result, nil
	}

	since := time.Now().Add(-c.window)
	count, err := c.history.CountSince(ctx, txn.SubmittedBy, txn.Type, since)
	if err != nil {
		return result, fmt.Errorf("duplicate detection history lookup: %w", err)
	}
	if count > 0 {
		result.Warning = true
		result.Message = fmt.Sprintf("possible duplicate: %d submission(s) of %s by %s within %s",
			count, txn.Type, txn.SubmittedBy, c.window)
		result.Details = map[string]interface{}{"recent_count": count}
	}
	return result, nil
}

// unusualActivityCheck applies type-agnostic volume and anonymity heuristics:
// a burst of submissions by the same actor over the activity window, or an
// anonymous transaction above the high-value threshold.
type unusualActivityCheck struct {
	history       port.HistoryRepository
	window        time.Duration
	limit         int
	anonThreshold float64
}

func (c *unusualActivityCheck) Name() string { return "unusual_activity" }

func (c *unusualActivityCheck) Run(ctx context.Context, txn *entity.Transaction, _ *entity.Actor) (CheckResult, error) {
	result := CheckResult{Name: c.Name(), Passed: true}

	if txn.SubmittedBy != "" {
		since := time.Now().Add(-c.window)
		count, err := c.history.CountSince(ctx, txn.SubmittedBy, txn.Type, since)
		if err != nil {
			return result, fmt.Errorf("unusual activity history lookup: %w", err)
		}
		if count > c.limit {
			result.Warning = true
			result.Message = fmt.Sprintf("high submission volume: %d submissions of %s by %s within %s",
				count, txn.Type, txn.SubmittedBy, c.window)
			result.Details = map[string]interface{}{"recent_count": count, "limit": c.limit}
			return result, nil
		}
	}

	if txn.SubmittedBy == "" && txn.Amount != nil && *txn.Amount >= c.anonThreshold {
		result.Warning = true
		result.Message = fmt.Sprintf("anonymous transaction above high-value threshold (%.2f >= %.2f)",
			*txn.Amount, c.anonThreshold)
		result.Details = map[string]interface{}{"amount": *txn.Amount, "threshold": c.anonThreshold}
	}
	return result, nil
}

// segregationCheck structurally always passes; the real enforcement is the
// approval processor's authority check at decision time. Amending one's own
// record is surfaced as an informational message only.
type segregationCheck struct{}

func (c *segregationCheck) Name() string { return "segregation_of_duties" }

func (c *segregationCheck) Run(_ context.Context, txn *entity.Transaction, actor *entity.Actor) (CheckResult, error) {
	result := CheckResult{Name: c.Name(), Passed: true}
	if actor != nil && txn.SubmittedBy != "" && txn.SubmittedBy == actor.Username {
		result.Message = "submitter and acting user match; approval authority is enforced at decision time"
	}
	return result, nil
}

// documentationCheck fails transactions whose variant requires verification
// but carry no supporting evidence.
type documentationCheck struct {
	catalog *catalog.Catalog
}

func (c *documentationCheck) Name() string { return "documentation_completeness" }

func (c *documentationCheck) Run(_ context.Context, txn *entity.Transaction, _ *entity.Actor) (CheckResult, error) {
	result := CheckResult{Name: c.Name(), Passed: true}
	if !c.catalog.RequiresVerification(txn.Type, txn.Variant) {
		return result, nil
	}
	if len(txn.Attachments) == 0 && txn.Field("supporting_documents") == nil {
		result.Passed = false
		result.Message = fmt.Sprintf("variant %s of %s requires verification but no supporting evidence is attached",
			txn.Variant, txn.Type)
	}
	return result, nil
}
