package engine

import (
	"context"
	"sync"
	"time"

	"github.com/garyjia/approval-engine/internal/catalog"
	"github.com/garyjia/approval-engine/internal/domain/entity"
	"github.com/garyjia/approval-engine/internal/validation"
	"go.uber.org/zap"
)

// In-memory port implementations. The queue is safe for concurrent use so
// the settlement idempotency tests can hammer it from multiple goroutines.

type memQueue struct {
	mu    sync.Mutex
	items map[string]*entity.WorkflowItem
	order []string
}

func newMemQueue() *memQueue {
	return &memQueue{items: make(map[string]*entity.WorkflowItem)}
}

func (q *memQueue) Enqueue(_ context.Context, item *entity.WorkflowItem) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items[item.ID] = item
	q.order = append(q.order, item.ID)
	return nil
}

func (q *memQueue) GetByID(_ context.Context, id string) (*entity.WorkflowItem, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items[id], nil
}

func (q *memQueue) Remove(_ context.Context, id string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.items[id]; !ok {
		return false, nil
	}
	delete(q.items, id)
	return true, nil
}

func (q *memQueue) ListPendingByRole(_ context.Context, role string) ([]*entity.WorkflowItem, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []*entity.WorkflowItem
	for _, id := range q.order {
		item, ok := q.items[id]
		if !ok {
			continue
		}
		if role == "" || item.CurrentApprover == role {
			out = append(out, item)
		}
	}
	return out, nil
}

func (q *memQueue) CountPending(_ context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items), nil
}

type memOutbox struct {
	mu      sync.Mutex
	entries []*entity.NotificationEntry
}

func (o *memOutbox) Push(_ context.Context, entry *entity.NotificationEntry) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries = append(o.entries, entry)
	return nil
}

func (o *memOutbox) UnreadFor(_ context.Context, recipient string) ([]*entity.NotificationEntry, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []*entity.NotificationEntry
	for _, entry := range o.entries {
		if entry.Recipient == recipient && !entry.Read {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (o *memOutbox) MarkRead(_ context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, entry := range o.entries {
		if entry.ID == id {
			entry.Read = true
		}
	}
	return nil
}

type memAudit struct {
	mu      sync.Mutex
	entries []*entity.AuditEntry
}

func (a *memAudit) Append(_ context.Context, entry *entity.AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	return nil
}

func (a *memAudit) ListFor(_ context.Context, transactionType, transactionID string) ([]*entity.AuditEntry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []*entity.AuditEntry
	for _, entry := range a.entries {
		if entry.TransactionType == transactionType && entry.TransactionID == transactionID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (a *memAudit) CountByAction(_ context.Context, action string) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	count := 0
	for _, entry := range a.entries {
		if entry.Action == action {
			count++
		}
	}
	return count, nil
}

type memRecords struct {
	mu      sync.Mutex
	records map[string]*entity.Transaction
}

func newMemRecords() *memRecords {
	return &memRecords{records: make(map[string]*entity.Transaction)}
}

func (r *memRecords) Upsert(_ context.Context, transactionType, id string, payload *entity.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[transactionType+"/"+id] = payload
	return nil
}

func (r *memRecords) Get(_ context.Context, transactionType, id string) (*entity.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records[transactionType+"/"+id], nil
}

type submission struct {
	submitter       string
	transactionType string
	at              time.Time
}

type memHistory struct {
	mu          sync.Mutex
	submissions []submission
}

func (h *memHistory) RecordSubmission(_ context.Context, submitter, transactionType, _ string, at time.Time) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.submissions = append(h.submissions, submission{submitter, transactionType, at})
	return nil
}

func (h *memHistory) CountSince(_ context.Context, submitter, transactionType string, since time.Time) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	count := 0
	for _, s := range h.submissions {
		if s.submitter == submitter && s.transactionType == transactionType && s.at.After(since) {
			count++
		}
	}
	return count, nil
}

type passthroughTxManager struct{}

func (passthroughTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// harness bundles the engine under test with its in-memory collaborators.
type harness struct {
	engine  *Engine
	queue   *memQueue
	outbox  *memOutbox
	audit   *memAudit
	records *memRecords
	history *memHistory
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
				AmountBands: []catalog.AmountBand{
					{Min: 0, Max: floatPtr(1000), AutoApprove: true},
					{Min: 1001, Max: floatPtr(5000), Approvers: []string{"admin"}},
				},
			},
			"donations": {
				AmountBands: []catalog.AmountBand{
					{Min: 0, Max: floatPtr(9999), Approvers: []string{"accountant"}, AutoApprove: false},
					{Min: 10000, Approvers: []string{"admin", "super_admin"}},
				},
			},
			"budget_amendments": {
				AmountBands: []catalog.AmountBand{
					{Min: 0, Max: floatPtr(100000), Approvers: []string{"admin"}, AutoApprove: true},
				},
			},
			"expenses": {
				AmountBands: []catalog.AmountBand{
					{Min: 0, Max: floatPtr(100)},
				},
			},
		},
	}
}

func newHarness() *harness {
	cat := testCatalog()
	logger := zap.NewNop()
	queue := newMemQueue()
	outbox := &memOutbox{}
	audit := &memAudit{}
	records := newMemRecords()
	history := &memHistory{}
	validator := validation.NewEngine(cat, history, validation.Config{}, logger)

	eng := New(cat, validator, queue, outbox, audit, records, history, passthroughTxManager{}, Config{}, logger)
	return &harness{
		engine:  eng,
		queue:   queue,
		outbox:  outbox,
		audit:   audit,
		records: records,
		history: history,
	}
}
