package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/garyjia/approval-engine/internal/domain/entity"
	"github.com/garyjia/approval-engine/internal/engine"
)

// Service is the engine surface the HTTP layer depends on.
type Service interface {
	Route(ctx context.Context, txn *entity.Transaction, actor *entity.Actor) (*engine.RouteResult, error)
	Decide(ctx context.Context, workflowID string, action engine.Action, approver *entity.Actor, comments string) (*engine.DecideResult, error)
	ListPendingFor(ctx context.Context, role string) ([]*entity.WorkflowItem, error)
	Stats(ctx context.Context) (*engine.Stats, error)
	UnreadNotificationsFor(ctx context.Context, recipient string) ([]*entity.NotificationEntry, error)
	MarkNotificationRead(ctx context.Context, id string) error
	AuditTrailFor(ctx context.Context, transactionType, transactionID string) ([]*entity.AuditEntry, error)
}

// Verify the engine satisfies the handler surface
var _ Service = (*engine.Engine)(nil)

// Handlers contains all HTTP request handlers
type Handlers struct {
	service Service
	logger  *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(service Service, logger *zap.Logger) *Handlers {
	return &Handlers{service: service, logger: logger}
}

// Response is the standard JSON envelope
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// RouteRequest is the body of POST /api/v1/transactions/route
type RouteRequest struct {
	Transaction entity.Transaction `json:"transaction" binding:"required"`
	Actor       *entity.Actor      `json:"actor"`
}

// DecideRequest is the body of POST /api/v1/workflows/:id/decide
type DecideRequest struct {
	Action   string       `json:"action" binding:"required"`
	Approver entity.Actor `json:"approver" binding:"required"`
	Comments string       `json:"comments"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// RouteTransaction handles POST /api/v1/transactions/route
func (h *Handlers) RouteTransaction(c *gin.Context) {
	var req RouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}
	if req.Transaction.Type == "" {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "transaction.type is required"})
		return
	}

	result, err := h.service.Route(c.Request.Context(), &req.Transaction, req.Actor)
	if err != nil {
		h.logger.Error("Failed to route transaction",
			zap.String("transaction_type", req.Transaction.Type),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to route transaction"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// DecideWorkflow handles POST /api/v1/workflows/:id/decide
func (h *Handlers) DecideWorkflow(c *gin.Context) {
	var req DecideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	workflowID := c.Param("id")
	result, err := h.service.Decide(c.Request.Context(), workflowID, engine.Action(req.Action), &req.Approver, req.Comments)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, engine.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, engine.ErrPermissionDenied):
			status = http.StatusForbidden
		case errors.Is(err, engine.ErrInvalidAction):
			status = http.StatusBadRequest
		default:
			h.logger.Error("Failed to decide workflow item",
				zap.String("workflow_id", workflowID),
				zap.Error(err))
		}
		c.JSON(status, Response{Success: false, Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// ListPending handles GET /api/v1/workflows/pending
func (h *Handlers) ListPending(c *gin.Context) {
	role := c.Query("role")

	items, err := h.service.ListPendingFor(c.Request.Context(), role)
	if err != nil {
		h.logger.Error("Failed to list pending workflow items",
			zap.String("role", role),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to list pending items"})
		return
	}
	if items == nil {
		items = []*entity.WorkflowItem{}
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: items})
}

// WorkflowStats handles GET /api/v1/workflows/stats
func (h *Handlers) WorkflowStats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to compute workflow stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to compute stats"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: stats})
}

// ListNotifications handles GET /api/v1/notifications
func (h *Handlers) ListNotifications(c *gin.Context) {
	recipient := c.Query("recipient")
	if recipient == "" {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "recipient is required"})
		return
	}

	entries, err := h.service.UnreadNotificationsFor(c.Request.Context(), recipient)
	if err != nil {
		h.logger.Error("Failed to list notifications",
			zap.String("recipient", recipient),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to list notifications"})
		return
	}
	if entries == nil {
		entries = []*entity.NotificationEntry{}
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: entries})
}

// MarkNotificationRead handles POST /api/v1/notifications/:id/read
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	id := c.Param("id")
	if err := h.service.MarkNotificationRead(c.Request.Context(), id); err != nil {
		h.logger.Error("Failed to mark notification read",
			zap.String("id", id),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to mark notification read"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// AuditTrail handles GET /api/v1/audit/:type/:id
func (h *Handlers) AuditTrail(c *gin.Context) {
	transactionType := c.Param("type")
	transactionID := c.Param("id")

	entries, err := h.service.AuditTrailFor(c.Request.Context(), transactionType, transactionID)
	if err != nil {
		h.logger.Error("Failed to list audit trail",
			zap.String("transaction_type", transactionType),
			zap.String("transaction_id", transactionID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to list audit trail"})
		return
	}
	if entries == nil {
		entries = []*entity.AuditEntry{}
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: entries})
}
