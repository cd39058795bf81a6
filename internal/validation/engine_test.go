package validation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/garyjia/approval-engine/internal/catalog"
	"github.com/garyjia/approval-engine/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockHistoryRepo struct {
	countSinceFunc func(ctx context.Context, submitter, transactionType string, since time.Time) (int, error)
}

func (m *mockHistoryRepo) RecordSubmission(ctx context.Context, submitter, transactionType, variant string, at time.Time) error {
	return nil
}

func (m *mockHistoryRepo) CountSince(ctx context.Context, submitter, transactionType string, since time.Time) (int, error) {
	if m.countSinceFunc != nil {
		return m.countSinceFunc(ctx, submitter, transactionType, since)
	}
	return 0, nil
}

func floatPtr(v float64) *float64 { return &v }

func testCatalog() *catalog.Catalog {
	return &catalog.Catalog{
		Version:          "v1",
		DefaultApprovers: []string{"super_admin"},
		OverrideRole:     "super_admin",
		Rules: map[string]catalog.Rule{
			"alumni_requests": {
				Variants: map[string]catalog.VariantRule{
					"certificate_copy": {Approvers: []string{"admin"}},
					"transcript":       {Approvers: []string{"admin"}, RequiresVerification: true},
				},
			},
		},
	}
}

func newTestEngine(history *mockHistoryRepo) *Engine {
	return NewEngine(testCatalog(), history, Config{}, zap.NewNop())
}

func TestValidateCleanTransaction(t *testing.T) {
	engine := newTestEngine(&mockHistoryRepo{})

	txn := &entity.Transaction{
		ID:          "txn-1",
		Type:        "alumni_requests",
		Variant:     "certificate_copy",
		SubmittedBy: "alice",
	}
	result, err := engine.Validate(context.Background(), txn, &entity.Actor{Username: "alice", Role: "alumni"})

	require.NoError(t, err)
	assert.True(t, result.IsValid)
	assert.Empty(t, result.FailedChecks)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, 0, result.RiskScore)
}

func TestDuplicateSubmissionIsWarningNotFailure(t *testing.T) {
	history := &mockHistoryRepo{
		countSinceFunc: func(_ context.Context, _, _ string, _ time.Time) (int, error) {
			return 1, nil
		},
	}
	engine := newTestEngine(history)

	txn := &entity.Transaction{
		ID:          "txn-2",
		Type:        "alumni_requests",
		Variant:     "certificate_copy",
		SubmittedBy: "alice",
	}
	result, err := engine.Validate(context.Background(), txn, nil)

	require.NoError(t, err)
	assert.True(t, result.IsValid, "warnings never invalidate")
	require.NotEmpty(t, result.Warnings)
	assert.Equal(t, "duplicate_detection", result.Warnings[0].Name)
	assert.Equal(t, warningCheckWeight, result.RiskScore)
}

func TestHighVolumeSubmitterIsFlagged(t *testing.T) {
	history := &mockHistoryRepo{
		countSinceFunc: func(_ context.Context, _, _ string, since time.Time) (int, error) {
			if time.Since(since) > 24*time.Hour {
				return 9, nil // seven-day activity window
			}
			return 0, nil // one-hour duplicate window
		},
	}
	engine := newTestEngine(history)

	txn := &entity.Transaction{ID: "txn-3", Type: "donations", SubmittedBy: "bob"}
	result, err := engine.Validate(context.Background(), txn, nil)

	require.NoError(t, err)
	assert.True(t, result.IsValid)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "unusual_activity", result.Warnings[0].Name)
}

func TestAnonymousHighValueIsFlagged(t *testing.T) {
	engine := newTestEngine(&mockHistoryRepo{})

	txn := &entity.Transaction{ID: "txn-4", Type: "donations", Amount: floatPtr(75000)}
	result, err := engine.Validate(context.Background(), txn, nil)

	require.NoError(t, err)
	assert.True(t, result.IsValid)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "unusual_activity", result.Warnings[0].Name)
	assert.Contains(t, result.Warnings[0].Message, "anonymous")
}

func TestMissingVerificationDocumentsFailValidation(t *testing.T) {
	engine := newTestEngine(&mockHistoryRepo{})

	txn := &entity.Transaction{
		ID:          "txn-5",
		Type:        "alumni_requests",
		Variant:     "transcript",
		SubmittedBy: "carol",
	}
	result, err := engine.Validate(context.Background(), txn, nil)

	require.NoError(t, err)
	assert.False(t, result.IsValid)
	require.Len(t, result.FailedChecks, 1)
	assert.Equal(t, "documentation_completeness", result.FailedChecks[0].Name)
	assert.Equal(t, failedCheckWeight, result.RiskScore)
	assert.NotEmpty(t, result.Messages())
}

func TestAttachedEvidenceSatisfiesVerification(t *testing.T) {
	engine := newTestEngine(&mockHistoryRepo{})

	txn := &entity.Transaction{
		ID:          "txn-6",
		Type:        "alumni_requests",
		Variant:     "transcript",
		SubmittedBy: "carol",
		Attachments: []string{"transcript_request.pdf"},
	}
	result, err := engine.Validate(context.Background(), txn, nil)

	require.NoError(t, err)
	assert.True(t, result.IsValid)
}

func TestSegregationOfDutiesAlwaysPasses(t *testing.T) {
	engine := newTestEngine(&mockHistoryRepo{})

	txn := &entity.Transaction{ID: "txn-7", Type: "alumni_requests", SubmittedBy: "dave"}
	result, err := engine.Validate(context.Background(), txn, &entity.Actor{Username: "dave", Role: "admin"})

	require.NoError(t, err)
	assert.True(t, result.IsValid)
	assert.Empty(t, result.Warnings, "own-record amendment is informational only")
}

func TestHistoryLookupFailureIsHardError(t *testing.T) {
	history := &mockHistoryRepo{
		countSinceFunc: func(_ context.Context, _, _ string, _ time.Time) (int, error) {
			return 0, errors.New("database is locked")
		},
	}
	engine := newTestEngine(history)

	txn := &entity.Transaction{ID: "txn-8", Type: "donations", SubmittedBy: "erin"}
	_, err := engine.Validate(context.Background(), txn, nil)
	require.Error(t, err)
}

func TestRiskScoreBounds(t *testing.T) {
	tests := []struct {
		name     string
		failed   int
		warnings int
		want     int
	}{
		{"no findings", 0, 0, 0},
		{"one warning", 0, 1, 5},
		{"one failure", 1, 0, 10},
		{"mixed", 2, 3, 35},
		{"capped at 100", 12, 4, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := riskScore(tt.failed, tt.warnings)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got, 0)
			assert.LessOrEqual(t, got, 100)
		})
	}
}

func TestRiskScoreMonotonicInFindings(t *testing.T) {
	prev := -1
	for findings := 0; findings <= 15; findings++ {
		score := riskScore(findings, findings)
		assert.GreaterOrEqual(t, score, prev)
		prev = score
	}
}
