// Integration bridge HTTP handlers.
//
// This file exposes the query side of the bridge to the chat-response
// pipeline:
//   - POST /api/v1/context  (classify + fetch → AIIntegrationContext)
//   - POST /api/v1/prompt   (context + knowledge base → enhanced prompt pair)
//
// Handlers are transport-thin: they validate input, call application
// services, and translate results into HTTP responses.
package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/helplane/go-support-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// IntegrationService defines the query-bridge operations consumed by HTTP
// handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type IntegrationService interface {
	// AnalyzeAndFetchContext classifies the message and fetches the synced
	// rows its intent calls for, scoped to userID.
	AnalyzeAndFetchContext(ctx context.Context, message, userID, conversationID string) (*services.AIIntegrationContext, error)
}

// PromptEnhancer defines prompt construction over a fetched context.
type PromptEnhancer interface {
	// Enhance builds the (system, user) prompt pair for the LLM call.
	Enhance(message, knowledgeBase string, ictx *services.AIIntegrationContext, tone, businessType string) services.EnhancedPrompt
}

// BridgeHandlers groups the integration-bridge endpoints. It depends on
// abstract service interfaces to keep transport concerns separate from
// business logic.
type BridgeHandlers struct {
	integrationSvc IntegrationService
	enhancer       PromptEnhancer
}

// NewBridgeHandlers constructs a BridgeHandlers instance bound to the given
// services.
func NewBridgeHandlers(integrationSvc IntegrationService, enhancer PromptEnhancer) *BridgeHandlers {
	return &BridgeHandlers{integrationSvc: integrationSvc, enhancer: enhancer}
}

// userID extracts the authenticated user id from Gin context (set by upstream
// middleware). If absent, it falls back to "X-User-ID" header (tests use it).
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return ""
}

//
// DTOs
//

// ContextRequest is the JSON payload for the context endpoint.
type ContextRequest struct {
	// Message is the raw user message to analyze.
	Message string `json:"message" binding:"required" example:"What is the status of my order #1001?"`
	// ConversationID optionally links the request to a chat thread.
	ConversationID string `json:"conversation_id,omitempty"`
}

// PromptRequest is the JSON payload for the prompt endpoint.
type PromptRequest struct {
	Message string `json:"message" binding:"required" example:"What is the status of my order #1001?"`
	// KnowledgeBase is the tenant's static support text.
	KnowledgeBase  string `json:"knowledge_base,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	// Tone and BusinessType parameterize the assistant persona.
	Tone         string `json:"tone,omitempty" example:"friendly"`
	BusinessType string `json:"business_type,omitempty" example:"ecommerce"`
}

//
// Handlers
//

// Context godoc
// @ID          analyzeContext
// @Summary     Analyze a message and fetch integration context
// @Description Classifies intent, extracts entities, and fetches the relevant synced records for the current user.
// @Tags        Bridge
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Tenant user ID"  example(user123)
// @Param       body       body    handlers.ContextRequest  true  "Message to analyze"
//
// @Success     200  {object}  services.AIIntegrationContext
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /context [post]
func (h *BridgeHandlers) Context(c *gin.Context) {
	var req ContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "X-User-ID header required")
		return
	}

	ictx, err := h.integrationSvc.AnalyzeAndFetchContext(c.Request.Context(), req.Message, uid, req.ConversationID)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeContextFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ictx)
}

// Prompt godoc
// @ID          enhancePrompt
// @Summary     Build the enhanced prompt pair for a message
// @Description Runs context analysis and renders the final (system, user) prompt pair, falling back to knowledge-base-only prompts when no integration data exists.
// @Tags        Bridge
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Tenant user ID"  example(user123)
// @Param       body       body    handlers.PromptRequest  true  "Prompt inputs"
//
// @Success     200  {object}  services.EnhancedPrompt
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /prompt [post]
func (h *BridgeHandlers) Prompt(c *gin.Context) {
	var req PromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "X-User-ID header required")
		return
	}

	ictx, err := h.integrationSvc.AnalyzeAndFetchContext(c.Request.Context(), req.Message, uid, req.ConversationID)
	if err != nil {
		// A broken bridge must not break the conversation: degrade to the
		// knowledge-base-only prompt.
		ictx = nil
	}
	out := h.enhancer.Enhance(req.Message, req.KnowledgeBase, ictx, req.Tone, req.BusinessType)
	ok(c, http.StatusOK, out)
}
