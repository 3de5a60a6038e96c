// Audit and workflow read endpoints.
//
// Dashboards poll these to show recent provider deliveries and the workflow
// triggers queued by them:
//   - GET /api/v1/webhooks/events    (recent audit rows, newest first)
//   - GET /api/v1/workflows/pending  (unconsumed triggers, oldest first)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/helplane/go-support-backend/internal/repo"
	"github.com/helplane/go-support-backend/internal/utils"
)

// Audit listing bounds.
const (
	defaultAuditLimit = 50
	maxAuditLimit     = 200
)

// AuditHandlers groups the read-only audit endpoints. They query the repo
// directly; there is no business logic to put behind a service.
type AuditHandlers struct {
	db *gorm.DB
}

// NewAuditHandlers constructs AuditHandlers over the given database handle.
func NewAuditHandlers(db *gorm.DB) *AuditHandlers {
	return &AuditHandlers{db: db}
}

// listLimit parses the optional "limit" query parameter, clamped to
// [1, maxAuditLimit].
func listLimit(c *gin.Context) int {
	n := utils.AtoiDefault(c.Query("limit"), defaultAuditLimit)
	if n < 1 {
		n = defaultAuditLimit
	}
	if n > maxAuditLimit {
		n = maxAuditLimit
	}
	return n
}

// WebhookEvents godoc
// @ID          listWebhookEvents
// @Summary     List recent webhook deliveries
// @Description Returns the newest audit rows for the current user's providers.
// @Tags        Audit
// @Produce     json
//
// @Param       X-User-ID  header  string  true   "Tenant user ID"  example(user123)
// @Param       limit      query   int     false  "Max rows (default 50, cap 200)"
//
// @Success     200  {array}   domain.WebhookEvent
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /webhooks/events [get]
func (h *AuditHandlers) WebhookEvents(c *gin.Context) {
	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "X-User-ID header required")
		return
	}
	rows, err := repo.ListWebhookEvents(c.Request.Context(), h.db, uid, listLimit(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not list webhook events")
		return
	}
	ok(c, http.StatusOK, rows)
}

// PendingWorkflows godoc
// @ID          listPendingWorkflows
// @Summary     List pending workflow triggers
// @Description Returns unconsumed workflow triggers for the current user, oldest first.
// @Tags        Audit
// @Produce     json
//
// @Param       X-User-ID  header  string  true   "Tenant user ID"  example(user123)
// @Param       limit      query   int     false  "Max rows (default 50, cap 200)"
//
// @Success     200  {array}   domain.WorkflowTrigger
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /workflows/pending [get]
func (h *AuditHandlers) PendingWorkflows(c *gin.Context) {
	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "X-User-ID header required")
		return
	}
	rows, err := repo.PendingWorkflowTriggers(c.Request.Context(), h.db, uid, listLimit(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not list workflow triggers")
		return
	}
	ok(c, http.StatusOK, rows)
}
