// Webhook HTTP handlers.
//
// This file exposes the provider ingestion endpoints:
//   - POST /api/webhooks/shopify  (single JSON object, HMAC header)
//   - POST /api/webhooks/hubspot  (JSON batch, v3 signature + timestamp)
//
// Handlers are transport-thin: they verify signatures, validate payload
// shape, call the webhook service, and translate results into HTTP
// responses. Signature verification failures are authentication errors —
// the payload is audited as rejected and never reaches business logic.
package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/helplane/go-support-backend/internal/domain"
	"github.com/helplane/go-support-backend/internal/services"
	"github.com/helplane/go-support-backend/internal/webhooks"
)

// Provider signature headers.
const (
	headerShopifyHMAC      = "X-Shopify-Hmac-Sha256"
	headerShopifyTopic     = "X-Shopify-Topic"
	headerShopifyWebhookID = "X-Shopify-Webhook-Id"
	headerHubSpotSignature = "X-HubSpot-Signature-v3"
	headerHubSpotTimestamp = "X-HubSpot-Request-Timestamp"
)

// webhookEvents counts ingested provider events by provider and outcome.
var webhookEvents = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Total number of inbound webhook events by provider and status.",
	},
	[]string{"provider", "status"},
)

func init() {
	prometheus.MustRegister(webhookEvents)
}

// WebhookConfig carries the verification secrets and tenant routing defaults
// for the ingestion endpoints.
type WebhookConfig struct {
	// ShopifySecret signs Shopify deliveries (app webhook secret).
	ShopifySecret string
	// HubSpotSecret signs HubSpot deliveries (app client secret).
	HubSpotSecret string
	// PublicBaseURL is the externally visible base URL, prepended to the
	// request URI when computing the HubSpot v3 signature. When empty the
	// raw request URI is signed, which assumes no proxy rewriting.
	PublicBaseURL string
	// DefaultTenant is the tenant recorded for deliveries that do not carry
	// an explicit tenant_id query parameter (single-tenant deployments).
	DefaultTenant string
}

// WebhookHandlers groups the provider ingestion endpoints.
type WebhookHandlers struct {
	svc *services.WebhookService
	cfg WebhookConfig

	// now is the clock used for HubSpot timestamp validation; replaced in tests.
	now func() time.Time
}

// NewWebhookHandlers constructs WebhookHandlers bound to the given service
// and verification config.
func NewWebhookHandlers(svc *services.WebhookService, cfg WebhookConfig) *WebhookHandlers {
	return &WebhookHandlers{svc: svc, cfg: cfg, now: time.Now}
}

// WebhookResponse is the success envelope for ingestion endpoints.
type WebhookResponse struct {
	Success   bool                     `json:"success"`
	Processed int                      `json:"processed"`
	Results   []services.WebhookResult `json:"results"`
}

// tenantID resolves the tenant a delivery belongs to: explicit tenant_id
// query parameter first, then the configured default.
func (h *WebhookHandlers) tenantID(c *gin.Context) string {
	if t := strings.TrimSpace(c.Query("tenant_id")); t != "" {
		return t
	}
	return h.cfg.DefaultTenant
}

// Shopify godoc
// @ID          shopifyWebhook
// @Summary     Ingest a Shopify webhook event
// @Description Verifies the X-Shopify-Hmac-Sha256 header and upserts the event's order/product/customer.
// @Tags        Webhooks
// @Accept      json
// @Produce     json
//
// @Param       X-Shopify-Hmac-Sha256  header  string  true  "Base64 HMAC-SHA256 of the body"
// @Param       X-Shopify-Topic        header  string  true  "Event topic"  example(orders/create)
// @Param       X-Shopify-Webhook-Id   header  string  false "Delivery id (dedupe key)"
//
// @Success     200  {object}  handlers.WebhookResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Malformed payload"
// @Failure     401  {object}  handlers.ErrorResponse  "Signature mismatch"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /api/webhooks/shopify [post]
func (h *WebhookHandlers) Shopify(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable body")
		return
	}

	tenant := h.tenantID(c)
	topic := c.GetHeader(headerShopifyTopic)
	eventID := c.GetHeader(headerShopifyWebhookID)

	if !webhooks.VerifyShopifyHMAC(h.cfg.ShopifySecret, body, c.GetHeader(headerShopifyHMAC)) {
		webhookEvents.WithLabelValues(string(domain.ProviderShopify), domain.WebhookStatusRejected).Inc()
		h.svc.RecordRejected(c.Request.Context(), tenant, domain.ProviderShopify, eventID, topic, "signature verification failed")
		fail(c, http.StatusUnauthorized, ErrCodeInvalidSignature, "webhook signature verification failed")
		return
	}

	if !json.Valid(body) || len(body) == 0 {
		h.svc.RecordRejected(c.Request.Context(), tenant, domain.ProviderShopify, eventID, topic, "malformed payload")
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "payload must be a JSON object")
		return
	}

	res, err := h.svc.ProcessShopify(c.Request.Context(), tenant, topic, eventID, body)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeWebhookFailed, err.Error())
		return
	}
	webhookEvents.WithLabelValues(string(domain.ProviderShopify), res.Status).Inc()

	processed := 0
	if res.Status == domain.WebhookStatusProcessed {
		processed = 1
	}
	ok(c, http.StatusOK, WebhookResponse{
		Success:   true,
		Processed: processed,
		Results:   []services.WebhookResult{res},
	})
}

// HubSpot godoc
// @ID          hubspotWebhook
// @Summary     Ingest a HubSpot webhook batch
// @Description Verifies the v3 signature (method+uri+body+timestamp) and processes each subscription event, isolating per-event failures.
// @Tags        Webhooks
// @Accept      json
// @Produce     json
//
// @Param       X-HubSpot-Signature-v3       header  string  true  "Base64 HMAC-SHA256 signature"
// @Param       X-HubSpot-Request-Timestamp  header  string  true  "Epoch milliseconds"
//
// @Success     200  {object}  handlers.WebhookResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Malformed payload"
// @Failure     401  {object}  handlers.ErrorResponse  "Signature mismatch"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /api/webhooks/hubspot [post]
func (h *WebhookHandlers) HubSpot(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable body")
		return
	}

	tenant := h.tenantID(c)
	uri := h.cfg.PublicBaseURL + c.Request.URL.RequestURI()

	valid := webhooks.VerifyHubSpotV3(
		h.cfg.HubSpotSecret,
		c.Request.Method,
		uri,
		body,
		c.GetHeader(headerHubSpotSignature),
		c.GetHeader(headerHubSpotTimestamp),
		h.now(),
	)
	if !valid {
		webhookEvents.WithLabelValues(string(domain.ProviderHubSpot), domain.WebhookStatusRejected).Inc()
		h.svc.RecordRejected(c.Request.Context(), tenant, domain.ProviderHubSpot, "", "batch", "signature verification failed")
		fail(c, http.StatusUnauthorized, ErrCodeInvalidSignature, "webhook signature verification failed")
		return
	}

	var events []services.HubSpotEvent
	if err := json.Unmarshal(body, &events); err != nil || len(events) == 0 {
		h.svc.RecordRejected(c.Request.Context(), tenant, domain.ProviderHubSpot, "", "batch", "malformed payload")
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "payload must be a non-empty JSON array of events")
		return
	}

	results := h.svc.ProcessHubSpotBatch(c.Request.Context(), tenant, events)
	processed := 0
	for _, r := range results {
		webhookEvents.WithLabelValues(string(domain.ProviderHubSpot), r.Status).Inc()
		if r.Status == domain.WebhookStatusProcessed {
			processed++
		}
	}
	ok(c, http.StatusOK, WebhookResponse{
		Success:   true,
		Processed: processed,
		Results:   results,
	})
}
