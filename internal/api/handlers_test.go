package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/approval-engine/internal/domain/entity"
	"github.com/garyjia/approval-engine/internal/engine"
)

type mockService struct {
	routeFunc       func(ctx context.Context, txn *entity.Transaction, actor *entity.Actor) (*engine.RouteResult, error)
	decideFunc      func(ctx context.Context, workflowID string, action engine.Action, approver *entity.Actor, comments string) (*engine.DecideResult, error)
	listPendingFunc func(ctx context.Context, role string) ([]*entity.WorkflowItem, error)
	statsFunc       func(ctx context.Context) (*engine.Stats, error)
	unreadFunc      func(ctx context.Context, recipient string) ([]*entity.NotificationEntry, error)
	markReadFunc    func(ctx context.Context, id string) error
	auditTrailFunc  func(ctx context.Context, transactionType, transactionID string) ([]*entity.AuditEntry, error)
}

func (m *mockService) Route(ctx context.Context, txn *entity.Transaction, actor *entity.Actor) (*engine.RouteResult, error) {
	return m.routeFunc(ctx, txn, actor)
}

func (m *mockService) Decide(ctx context.Context, workflowID string, action engine.Action, approver *entity.Actor, comments string) (*engine.DecideResult, error) {
	return m.decideFunc(ctx, workflowID, action, approver, comments)
}

func (m *mockService) ListPendingFor(ctx context.Context, role string) ([]*entity.WorkflowItem, error) {
	return m.listPendingFunc(ctx, role)
}

func (m *mockService) Stats(ctx context.Context) (*engine.Stats, error) {
	return m.statsFunc(ctx)
}

func (m *mockService) UnreadNotificationsFor(ctx context.Context, recipient string) ([]*entity.NotificationEntry, error) {
	return m.unreadFunc(ctx, recipient)
}

func (m *mockService) MarkNotificationRead(ctx context.Context, id string) error {
	return m.markReadFunc(ctx, id)
}

func (m *mockService) AuditTrailFor(ctx context.Context, transactionType, transactionID string) ([]*entity.AuditEntry, error) {
	return m.auditTrailFunc(ctx, transactionType, transactionID)
}

func newTestServer(service Service) *Server {
	return NewServer(ServerConfig{Host: "127.0.0.1", Port: 0}, service, zap.NewNop())
}

func doJSON(t *testing.T, server *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealthCheck(t *testing.T) {
	server := newTestServer(&mockService{})

	rec := doJSON(t, server, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
}

func TestRouteTransaction(t *testing.T) {
	var gotType string
	service := &mockService{
		routeFunc: func(ctx context.Context, txn *entity.Transaction, actor *entity.Actor) (*engine.RouteResult, error) {
			gotType = txn.Type
			return &engine.RouteResult{
				Outcome:    engine.OutcomeRouted,
				WorkflowID: "wf-1",
				RiskScore:  5,
			}, nil
		},
	}
	server := newTestServer(service)

	rec := doJSON(t, server, http.MethodPost, "/api/v1/transactions/route", RouteRequest{
		Transaction: entity.Transaction{ID: "don-1", Type: "donations", SubmittedBy: "alice"},
		Actor:       &entity.Actor{ID: "u1", Username: "alice", Role: "member"},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "donations", gotType)

	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "routed", data["outcome"])
	assert.Equal(t, "wf-1", data["workflow_id"])
}

func TestRouteTransaction_MissingType(t *testing.T) {
	server := newTestServer(&mockService{})

	rec := doJSON(t, server, http.MethodPost, "/api/v1/transactions/route", RouteRequest{
		Transaction: entity.Transaction{ID: "don-1"},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDecideWorkflow_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"not found", fmt.Errorf("wrap: %w", engine.ErrNotFound), http.StatusNotFound},
		{"permission denied", fmt.Errorf("wrap: %w", engine.ErrPermissionDenied), http.StatusForbidden},
		{"invalid action", fmt.Errorf("wrap: %w", engine.ErrInvalidAction), http.StatusBadRequest},
		{"internal", fmt.Errorf("database gone"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := &mockService{
				decideFunc: func(ctx context.Context, workflowID string, action engine.Action, approver *entity.Actor, comments string) (*engine.DecideResult, error) {
					return nil, tt.err
				},
			}
			server := newTestServer(service)

			rec := doJSON(t, server, http.MethodPost, "/api/v1/workflows/wf-1/decide", DecideRequest{
				Action:   "approve",
				Approver: entity.Actor{ID: "u2", Username: "bob", Role: "admin"},
			})

			assert.Equal(t, tt.wantStatus, rec.Code)
			resp := decodeResponse(t, rec)
			assert.False(t, resp.Success)
		})
	}
}

func TestDecideWorkflow_Success(t *testing.T) {
	service := &mockService{
		decideFunc: func(ctx context.Context, workflowID string, action engine.Action, approver *entity.Actor, comments string) (*engine.DecideResult, error) {
			assert.Equal(t, "wf-1", workflowID)
			assert.Equal(t, engine.ActionReject, action)
			assert.Equal(t, "bob", approver.Username)
			assert.Equal(t, "missing receipts", comments)
			return &engine.DecideResult{Success: true, Message: "workflow item wf-1 rejected"}, nil
		},
	}
	server := newTestServer(service)

	rec := doJSON(t, server, http.MethodPost, "/api/v1/workflows/wf-1/decide", DecideRequest{
		Action:   "reject",
		Approver: entity.Actor{ID: "u2", Username: "bob", Role: "admin"},
		Comments: "missing receipts",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
}

func TestListPending_EmptyIsArray(t *testing.T) {
	service := &mockService{
		listPendingFunc: func(ctx context.Context, role string) ([]*entity.WorkflowItem, error) {
			assert.Equal(t, "admin", role)
			return nil, nil
		},
	}
	server := newTestServer(service)

	rec := doJSON(t, server, http.MethodGet, "/api/v1/workflows/pending?role=admin", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"data":[]`)
}

func TestWorkflowStats(t *testing.T) {
	service := &mockService{
		statsFunc: func(ctx context.Context) (*engine.Stats, error) {
			return &engine.Stats{Pending: 1, Approved: 2, Rejected: 1, Total: 4}, nil
		},
	}
	server := newTestServer(service)

	rec := doJSON(t, server, http.MethodGet, "/api/v1/workflows/stats", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(4), data["total"])
}

func TestListNotifications_RequiresRecipient(t *testing.T) {
	server := newTestServer(&mockService{})

	rec := doJSON(t, server, http.MethodGet, "/api/v1/notifications", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListNotifications(t *testing.T) {
	service := &mockService{
		unreadFunc: func(ctx context.Context, recipient string) ([]*entity.NotificationEntry, error) {
			return []*entity.NotificationEntry{{
				ID:        "n-1",
				Recipient: recipient,
				Kind:      entity.NotificationApprovalRequest,
				Title:     "Approval needed",
				CreatedAt: time.Now(),
			}}, nil
		},
	}
	server := newTestServer(service)

	rec := doJSON(t, server, http.MethodGet, "/api/v1/notifications?recipient=admin", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"n-1"`)
}

func TestMarkNotificationRead(t *testing.T) {
	var gotID string
	service := &mockService{
		markReadFunc: func(ctx context.Context, id string) error {
			gotID = id
			return nil
		},
	}
	server := newTestServer(service)

	rec := doJSON(t, server, http.MethodPost, "/api/v1/notifications/n-1/read", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "n-1", gotID)
}

func TestAuditTrail(t *testing.T) {
	service := &mockService{
		auditTrailFunc: func(ctx context.Context, transactionType, transactionID string) ([]*entity.AuditEntry, error) {
			assert.Equal(t, "donations", transactionType)
			assert.Equal(t, "don-1", transactionID)
			return []*entity.AuditEntry{{
				ID:              1,
				TransactionType: transactionType,
				TransactionID:   transactionID,
				Action:          entity.AuditActionApproved,
				PerformedBy:     "bob",
				Timestamp:       time.Now(),
			}}, nil
		},
	}
	server := newTestServer(service)

	rec := doJSON(t, server, http.MethodGet, "/api/v1/audit/donations/don-1", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"approved"`)
}
