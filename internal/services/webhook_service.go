// Package services – WebhookService
//
// This file implements ingestion of provider webhook events. Shopify delivers
// one JSON object per request with the topic in a header; HubSpot delivers a
// JSON array of subscription events. Both paths share the same bookkeeping:
//
//  1. Claim the event in the webhook_events audit log. The unique
//     (provider, event_id) index makes redeliveries land as "duplicate"
//     without re-running side effects.
//  2. Decode and upsert into the matching synced table.
//  3. On failure, flip the audit row to "failed" with the error text —
//     no inbound event is ever silently dropped.
//
// Batch semantics: one bad event in a HubSpot batch is isolated; the rest of
// the batch still processes. A "new order" workflow trigger is enqueued for
// Shopify orders/create so the automation board can react.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/helplane/go-support-backend/internal/domain"
	"github.com/helplane/go-support-backend/internal/repo"
)

// Workflow trigger types enqueued by webhook processing.
const (
	TriggerNewOrder     = "new_order"
	TriggerOrderUpdated = "order_updated"
	TriggerNewContact   = "new_contact"
)

// WebhookResult is the per-event outcome reported back in the HTTP response.
type WebhookResult struct {
	EventID string `json:"event_id"`
	Topic   string `json:"topic"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
}

// WebhookService processes verified provider events into synced rows,
// audit-log entries, and workflow triggers. Signature verification happens
// upstream in the HTTP layer; by the time an event reaches this service it
// is authenticated.
type WebhookService struct {
	DB *gorm.DB
}

// NewWebhookService constructs a WebhookService bound to db.
func NewWebhookService(db *gorm.DB) *WebhookService {
	return &WebhookService{DB: db}
}

// --- Shopify ---

// shopifyOrder is the subset of a Shopify order payload this service
// normalizes; the full payload is preserved in the data blob.
type shopifyOrder struct {
	ID                int64   `json:"id"`
	OrderNumber       int64   `json:"order_number"`
	FinancialStatus   string  `json:"financial_status"`
	FulfillmentStatus string  `json:"fulfillment_status"`
	TotalPrice        string  `json:"total_price"`
	Currency          string  `json:"currency"`
	Email             string  `json:"email"`
	Fulfillments      []struct {
		TrackingNumber string `json:"tracking_number"`
	} `json:"fulfillments"`
}

// shopifyProduct is the normalized subset of a Shopify product payload.
type shopifyProduct struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	BodyHTML string `json:"body_html"`
	Variants []struct {
		SKU               string `json:"sku"`
		Price             string `json:"price"`
		InventoryQuantity int    `json:"inventory_quantity"`
	} `json:"variants"`
}

// shopifyCustomer is the normalized subset of a Shopify customer payload.
type shopifyCustomer struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// ProcessShopify ingests one verified Shopify event. topic is the
// X-Shopify-Topic header value (e.g. "orders/create"); eventID is the
// provider delivery/event identifier used for deduplication.
//
// Decode and store failures are captured in the returned WebhookResult and
// the audit log; the error return is reserved for audit-write failures,
// which the handler maps to 500.
func (s *WebhookService) ProcessShopify(ctx context.Context, userID, topic, eventID string, payload []byte) (WebhookResult, error) {
	tr := otel.Tracer("services/WebhookService")
	ctx, span := tr.Start(ctx, "ProcessShopify",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("webhook.topic", topic),
			attribute.String("webhook.event_id", eventID),
		),
	)
	defer span.End()

	res := WebhookResult{EventID: eventID, Topic: topic}

	ev := &domain.WebhookEvent{
		UserID:   userID,
		Provider: domain.ProviderShopify,
		EventID:  eventID,
		Topic:    topic,
		Status:   domain.WebhookStatusProcessed,
		Payload:  datatypes.JSON(payload),
	}
	if err := repo.CreateWebhookEvent(ctx, s.DB, ev); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			res.Status = domain.WebhookStatusDuplicate
			return res, nil
		}
		return res, err
	}

	if err := s.applyShopify(ctx, userID, topic, payload); err != nil {
		res.Status = domain.WebhookStatusFailed
		res.Error = err.Error()
		log.Error().Err(err).
			Str("provider", string(domain.ProviderShopify)).
			Str("topic", topic).
			Str("event_id", eventID).
			Msg("webhook event failed")
		if uerr := repo.UpdateWebhookEventStatus(ctx, s.DB, ev.ID, domain.WebhookStatusFailed, err.Error()); uerr != nil {
			return res, uerr
		}
		return res, nil
	}

	res.Status = domain.WebhookStatusProcessed
	return res, nil
}

// applyShopify decodes the payload for a topic and performs the upsert plus
// any follow-on workflow trigger.
func (s *WebhookService) applyShopify(ctx context.Context, userID, topic string, payload []byte) error {
	switch topic {
	case "orders/create", "orders/updated", "orders/paid", "orders/fulfilled":
		var o shopifyOrder
		if err := json.Unmarshal(payload, &o); err != nil || o.ID == 0 {
			return ErrMalformedPayload
		}
		row := &domain.SyncedOrder{
			UserID:            userID,
			Provider:          domain.ProviderShopify,
			ExternalID:        strconv.FormatInt(o.ID, 10),
			OrderNumber:       strconv.FormatInt(o.OrderNumber, 10),
			Status:            o.FinancialStatus,
			FulfillmentStatus: o.FulfillmentStatus,
			TotalAmount:       parseAmount(o.TotalPrice),
			Currency:          o.Currency,
			CustomerEmail:     o.Email,
			Data:              datatypes.JSON(payload),
		}
		if len(o.Fulfillments) > 0 {
			row.TrackingNumber = o.Fulfillments[0].TrackingNumber
		}
		if err := repo.UpsertOrder(ctx, s.DB, row); err != nil {
			return err
		}
		trigger := TriggerOrderUpdated
		if topic == "orders/create" {
			trigger = TriggerNewOrder
		}
		return repo.CreateWorkflowTrigger(ctx, s.DB, &domain.WorkflowTrigger{
			UserID:      userID,
			TriggerType: trigger,
			SourceTable: domain.SyncedOrder{}.TableName(),
			SourceID:    row.ID,
			Payload:     datatypes.JSON(fmt.Sprintf(`{"order_number":%q}`, row.OrderNumber)),
		})

	case "products/create", "products/update":
		var p shopifyProduct
		if err := json.Unmarshal(payload, &p); err != nil || p.ID == 0 {
			return ErrMalformedPayload
		}
		row := &domain.SyncedProduct{
			UserID:      userID,
			Provider:    domain.ProviderShopify,
			ExternalID:  strconv.FormatInt(p.ID, 10),
			Title:       p.Title,
			Description: p.BodyHTML,
			Data:        datatypes.JSON(payload),
		}
		if len(p.Variants) > 0 {
			row.SKU = p.Variants[0].SKU
			row.Price = parseAmount(p.Variants[0].Price)
			for _, v := range p.Variants {
				row.InventoryQty += v.InventoryQuantity
			}
		}
		return repo.UpsertProduct(ctx, s.DB, row)

	case "customers/create", "customers/update":
		var c shopifyCustomer
		if err := json.Unmarshal(payload, &c); err != nil || c.ID == 0 {
			return ErrMalformedPayload
		}
		row := &domain.SyncedContact{
			UserID:     userID,
			Provider:   domain.ProviderShopify,
			ExternalID: strconv.FormatInt(c.ID, 10),
			Email:      c.Email,
			FirstName:  c.FirstName,
			LastName:   c.LastName,
			Phone:      c.Phone,
			Data:       datatypes.JSON(payload),
		}
		if err := repo.UpsertContact(ctx, s.DB, row); err != nil {
			return err
		}
		if topic == "customers/create" {
			return repo.CreateWorkflowTrigger(ctx, s.DB, &domain.WorkflowTrigger{
				UserID:      userID,
				TriggerType: TriggerNewContact,
				SourceTable: domain.SyncedContact{}.TableName(),
				SourceID:    row.ID,
			})
		}
		return nil

	default:
		return ErrUnknownTopic
	}
}

// --- HubSpot ---

// HubSpotEvent is one entry of a HubSpot webhook batch. Property-change
// events carry a single (name, value) pair; creation events only the object
// identity.
type HubSpotEvent struct {
	EventID          int64  `json:"eventId"`
	SubscriptionType string `json:"subscriptionType"`
	ObjectID         int64  `json:"objectId"`
	PropertyName     string `json:"propertyName,omitempty"`
	PropertyValue    string `json:"propertyValue,omitempty"`
	OccurredAt       int64  `json:"occurredAt"`
}

// ProcessHubSpotBatch ingests a verified HubSpot batch. Events are processed
// in order; a failing event is recorded and skipped, never aborting its
// siblings. The returned slice has one result per input event.
func (s *WebhookService) ProcessHubSpotBatch(ctx context.Context, userID string, events []HubSpotEvent) []WebhookResult {
	tr := otel.Tracer("services/WebhookService")
	ctx, span := tr.Start(ctx, "ProcessHubSpotBatch",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("webhook.batch_size", len(events)),
		),
	)
	defer span.End()

	results := make([]WebhookResult, 0, len(events))
	for _, ev := range events {
		results = append(results, s.processHubSpotEvent(ctx, userID, ev))
	}
	return results
}

func (s *WebhookService) processHubSpotEvent(ctx context.Context, userID string, ev HubSpotEvent) WebhookResult {
	eventID := strconv.FormatInt(ev.EventID, 10)
	res := WebhookResult{EventID: eventID, Topic: ev.SubscriptionType}

	raw, _ := json.Marshal(ev)
	audit := &domain.WebhookEvent{
		UserID:   userID,
		Provider: domain.ProviderHubSpot,
		EventID:  eventID,
		Topic:    ev.SubscriptionType,
		Status:   domain.WebhookStatusProcessed,
		Payload:  datatypes.JSON(raw),
	}
	if err := repo.CreateWebhookEvent(ctx, s.DB, audit); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			res.Status = domain.WebhookStatusDuplicate
			return res
		}
		res.Status = domain.WebhookStatusFailed
		res.Error = err.Error()
		return res
	}

	if err := s.applyHubSpot(ctx, userID, ev); err != nil {
		res.Status = domain.WebhookStatusFailed
		res.Error = err.Error()
		log.Error().Err(err).
			Str("provider", string(domain.ProviderHubSpot)).
			Str("topic", ev.SubscriptionType).
			Str("event_id", eventID).
			Msg("webhook event failed")
		if uerr := repo.UpdateWebhookEventStatus(ctx, s.DB, audit.ID, domain.WebhookStatusFailed, err.Error()); uerr != nil {
			log.Error().Err(uerr).Str("event_id", eventID).Msg("audit update failed")
		}
		return res
	}

	res.Status = domain.WebhookStatusProcessed
	return res
}

// applyHubSpot maps a subscription event onto the synced tables. Property
// changes only touch the column named by the event; unknown properties are
// kept in the data blob by the next full sync.
func (s *WebhookService) applyHubSpot(ctx context.Context, userID string, ev HubSpotEvent) error {
	if ev.ObjectID == 0 {
		return ErrMalformedPayload
	}
	externalID := strconv.FormatInt(ev.ObjectID, 10)

	switch ev.SubscriptionType {
	case "contact.creation", "contact.propertyChange":
		// Start from the existing row so a single property change does not
		// blank the other normalized columns.
		row, err := repo.GetContactByIdentity(ctx, s.DB, userID, domain.ProviderHubSpot, externalID)
		if errors.Is(err, repo.ErrNotFound) {
			row = &domain.SyncedContact{
				UserID:     userID,
				Provider:   domain.ProviderHubSpot,
				ExternalID: externalID,
			}
		} else if err != nil {
			return err
		}
		switch ev.PropertyName {
		case "email":
			row.Email = ev.PropertyValue
		case "firstname":
			row.FirstName = ev.PropertyValue
		case "lastname":
			row.LastName = ev.PropertyValue
		case "company":
			row.Company = ev.PropertyValue
		case "phone":
			row.Phone = ev.PropertyValue
		}
		if err := repo.UpsertContact(ctx, s.DB, row); err != nil {
			return err
		}
		if ev.SubscriptionType == "contact.creation" {
			return repo.CreateWorkflowTrigger(ctx, s.DB, &domain.WorkflowTrigger{
				UserID:      userID,
				TriggerType: TriggerNewContact,
				SourceTable: domain.SyncedContact{}.TableName(),
				SourceID:    row.ID,
			})
		}
		return nil

	case "deal.creation", "deal.propertyChange":
		row, err := repo.GetDealByIdentity(ctx, s.DB, userID, domain.ProviderHubSpot, externalID)
		if errors.Is(err, repo.ErrNotFound) {
			row = &domain.SyncedDeal{
				UserID:     userID,
				Provider:   domain.ProviderHubSpot,
				ExternalID: externalID,
			}
		} else if err != nil {
			return err
		}
		switch ev.PropertyName {
		case "dealname":
			row.Name = ev.PropertyValue
		case "dealstage":
			row.Stage = ev.PropertyValue
		case "amount":
			row.Amount = parseAmount(ev.PropertyValue)
		case "closedate":
			if ms, err := strconv.ParseInt(ev.PropertyValue, 10, 64); err == nil {
				t := time.UnixMilli(ms).UTC()
				row.CloseDate = &t
			}
		}
		return repo.UpsertDeal(ctx, s.DB, row)

	default:
		return ErrUnknownTopic
	}
}

// RecordRejected writes an audit row for an event that never reached
// processing (signature mismatch, malformed body). Duplicate rejections of
// the same delivery are ignored.
func (s *WebhookService) RecordRejected(ctx context.Context, userID string, provider domain.Provider, eventID, topic, reason string) {
	if eventID == "" {
		// Unsigned garbage often has no delivery id; a synthetic one keeps
		// the (provider, event_id) index from colliding.
		eventID = "rejected-" + uuid.NewString()
	}
	ev := &domain.WebhookEvent{
		UserID:   userID,
		Provider: provider,
		EventID:  eventID,
		Topic:    topic,
		Status:   domain.WebhookStatusRejected,
		Error:    reason,
	}
	if err := repo.CreateWebhookEvent(ctx, s.DB, ev); err != nil && !errors.Is(err, repo.ErrDuplicate) {
		log.Error().Err(err).
			Str("provider", string(provider)).
			Str("event_id", eventID).
			Msg("rejected-event audit write failed")
	}
}

// parseAmount converts a provider money string ("299.99") to a float,
// tolerating empty and malformed values as zero.
func parseAmount(s string) float64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
