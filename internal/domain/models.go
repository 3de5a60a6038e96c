// Package domain defines the persistence models for synced CRM/eCommerce
// records and webhook bookkeeping. These types are mapped with GORM and form
// the core data layer of the support-integration backend.
//
// Every synced table carries the same backbone: a `(user_id, provider,
// external_id)` identity, a `last_synced_at` timestamp, and a provider-specific
// JSON blob (`data`) that preserves fields the normalized columns do not model.
// The user_id column is the tenant boundary — every read in the repo layer is
// scoped by it.
package domain

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Provider identifies the external CRM/eCommerce system a record was synced from.
type Provider string

// Known providers. Salesforce records arrive via backfill jobs only; the
// webhook endpoints currently serve Shopify and HubSpot.
const (
	ProviderShopify    Provider = "shopify"
	ProviderHubSpot    Provider = "hubspot"
	ProviderSalesforce Provider = "salesforce"
)

// SyncedContact represents a CRM contact cached locally from a provider.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - UserID: tenant owner; indexed, part of the upsert identity.
//   - Provider / ExternalID: provider-side identity; unique per tenant.
//   - Email, FirstName, LastName, Company, Phone: normalized core fields.
//   - Data: opaque provider-specific extras (raw payload subset).
//   - LastSyncedAt: when the row last matched the provider's copy.
type SyncedContact struct {
	ID           string         `json:"id"            gorm:"type:char(36);primaryKey"`
	UserID       string         `json:"user_id"       gorm:"type:varchar(64);not null;index:idx_contacts_user;uniqueIndex:ux_contact_identity,priority:1"`
	Provider     Provider       `json:"provider"      gorm:"type:varchar(32);not null;uniqueIndex:ux_contact_identity,priority:2"`
	ExternalID   string         `json:"external_id"   gorm:"type:varchar(128);not null;uniqueIndex:ux_contact_identity,priority:3"`
	Email        string         `json:"email"         gorm:"type:varchar(255);index"`
	FirstName    string         `json:"first_name"    gorm:"type:varchar(128)"`
	LastName     string         `json:"last_name"     gorm:"type:varchar(128)"`
	Company      string         `json:"company"       gorm:"type:varchar(255)"`
	Phone        string         `json:"phone"         gorm:"type:varchar(64)"`
	Data         datatypes.JSON `json:"data,omitempty" gorm:"type:json"`
	LastSyncedAt time.Time      `json:"last_synced_at"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-"             gorm:"index"`
}

// TableName returns the database table name for SyncedContact.
func (SyncedContact) TableName() string { return "synced_contacts" }

// SyncedOrder represents an eCommerce order cached locally from a provider.
//
// Fields:
//   - OrderNumber: the customer-facing order number ("1001", not the internal id).
//   - Status / FulfillmentStatus: provider lifecycle states, stored verbatim.
//   - TotalAmount / Currency: order total in the provider's currency.
//   - CustomerEmail: used to join orders to contacts for account questions.
//   - TrackingNumber: carrier tracking code when fulfilled.
//   - Data: opaque extras (line items, addresses, discounts, ...).
type SyncedOrder struct {
	ID                string         `json:"id"             gorm:"type:char(36);primaryKey"`
	UserID            string         `json:"user_id"        gorm:"type:varchar(64);not null;index:idx_orders_user;uniqueIndex:ux_order_identity,priority:1"`
	Provider          Provider       `json:"provider"       gorm:"type:varchar(32);not null;uniqueIndex:ux_order_identity,priority:2"`
	ExternalID        string         `json:"external_id"    gorm:"type:varchar(128);not null;uniqueIndex:ux_order_identity,priority:3"`
	OrderNumber       string         `json:"order_number"   gorm:"type:varchar(64);index"`
	Status            string         `json:"status"         gorm:"type:varchar(64)"`
	FulfillmentStatus string         `json:"fulfillment_status" gorm:"type:varchar(64)"`
	TotalAmount       float64        `json:"total_amount"`
	Currency          string         `json:"currency"       gorm:"type:varchar(8)"`
	CustomerEmail     string         `json:"customer_email" gorm:"type:varchar(255);index"`
	TrackingNumber    string         `json:"tracking_number" gorm:"type:varchar(128)"`
	Data              datatypes.JSON `json:"data,omitempty" gorm:"type:json"`
	LastSyncedAt      time.Time      `json:"last_synced_at"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `json:"-"              gorm:"index"`
}

// TableName returns the database table name for SyncedOrder.
func (SyncedOrder) TableName() string { return "synced_orders" }

// SyncedProduct represents a catalog product cached locally from a provider.
type SyncedProduct struct {
	ID           string         `json:"id"           gorm:"type:char(36);primaryKey"`
	UserID       string         `json:"user_id"      gorm:"type:varchar(64);not null;index:idx_products_user;uniqueIndex:ux_product_identity,priority:1"`
	Provider     Provider       `json:"provider"     gorm:"type:varchar(32);not null;uniqueIndex:ux_product_identity,priority:2"`
	ExternalID   string         `json:"external_id"  gorm:"type:varchar(128);not null;uniqueIndex:ux_product_identity,priority:3"`
	Title        string         `json:"title"        gorm:"type:varchar(255);index"`
	SKU          string         `json:"sku"          gorm:"type:varchar(128);index"`
	Price        float64        `json:"price"`
	Currency     string         `json:"currency"     gorm:"type:varchar(8)"`
	InventoryQty int            `json:"inventory_qty"`
	Description  string         `json:"description"  gorm:"type:text"`
	Data         datatypes.JSON `json:"data,omitempty" gorm:"type:json"`
	LastSyncedAt time.Time      `json:"last_synced_at"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-"            gorm:"index"`
}

// TableName returns the database table name for SyncedProduct.
func (SyncedProduct) TableName() string { return "synced_products" }

// SyncedDeal represents a CRM deal (sales opportunity) cached locally.
type SyncedDeal struct {
	ID           string         `json:"id"           gorm:"type:char(36);primaryKey"`
	UserID       string         `json:"user_id"      gorm:"type:varchar(64);not null;index:idx_deals_user;uniqueIndex:ux_deal_identity,priority:1"`
	Provider     Provider       `json:"provider"     gorm:"type:varchar(32);not null;uniqueIndex:ux_deal_identity,priority:2"`
	ExternalID   string         `json:"external_id"  gorm:"type:varchar(128);not null;uniqueIndex:ux_deal_identity,priority:3"`
	Name         string         `json:"name"         gorm:"type:varchar(255);index"`
	Stage        string         `json:"stage"        gorm:"type:varchar(64)"`
	Amount       float64        `json:"amount"`
	Currency     string         `json:"currency"     gorm:"type:varchar(8)"`
	CloseDate    *time.Time     `json:"close_date,omitempty"`
	Data         datatypes.JSON `json:"data,omitempty" gorm:"type:json"`
	LastSyncedAt time.Time      `json:"last_synced_at"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-"            gorm:"index"`
}

// TableName returns the database table name for SyncedDeal.
func (SyncedDeal) TableName() string { return "synced_deals" }

// Webhook event processing statuses recorded in the audit log.
const (
	WebhookStatusProcessed = "processed"
	WebhookStatusFailed    = "failed"
	WebhookStatusDuplicate = "duplicate"
	WebhookStatusRejected  = "rejected"
)

// WebhookEvent is the audit-log row written for every inbound webhook event,
// success or failure. Duplicate deliveries of the same provider event are
// detected via the (provider, event_id) unique index and recorded with
// status "duplicate" instead of being reprocessed.
type WebhookEvent struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string         `json:"user_id"    gorm:"type:varchar(64);not null;index"`
	Provider  Provider       `json:"provider"   gorm:"type:varchar(32);not null;uniqueIndex:ux_webhook_event,priority:1"`
	EventID   string         `json:"event_id"   gorm:"type:varchar(128);not null;uniqueIndex:ux_webhook_event,priority:2"`
	Topic     string         `json:"topic"      gorm:"type:varchar(128);not null"`
	Status    string         `json:"status"     gorm:"type:varchar(32);not null;check:status IN ('processed','failed','duplicate','rejected')"`
	Error     string         `json:"error,omitempty" gorm:"type:text"`
	Payload   datatypes.JSON `json:"payload,omitempty" gorm:"type:json"`
	CreatedAt time.Time      `json:"created_at"`
}

// TableName returns the database table name for WebhookEvent.
func (WebhookEvent) TableName() string { return "webhook_events" }

// WorkflowTrigger is a queued trigger record produced by webhook processing
// (e.g. a "new order" trigger for the automation board). Rows are consumed by
// the workflow runner, which is a separate process.
type WorkflowTrigger struct {
	ID          string         `json:"id"           gorm:"type:char(36);primaryKey"`
	UserID      string         `json:"user_id"      gorm:"type:varchar(64);not null;index"`
	TriggerType string         `json:"trigger_type" gorm:"type:varchar(64);not null;index"`
	SourceTable string         `json:"source_table" gorm:"type:varchar(64);not null"`
	SourceID    string         `json:"source_id"    gorm:"type:char(36);not null"`
	Payload     datatypes.JSON `json:"payload,omitempty" gorm:"type:json"`
	ProcessedAt *time.Time     `json:"processed_at,omitempty" gorm:"index"`
	CreatedAt   time.Time      `json:"created_at"`
}

// TableName returns the database table name for WorkflowTrigger.
func (WorkflowTrigger) TableName() string { return "workflow_triggers" }
