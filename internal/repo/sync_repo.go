// Package repo implements the data persistence layer for synced records and
// webhook bookkeeping, backed by GORM. This file provides read and upsert
// helpers for the four synced tables.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Tenant isolation: every reader takes userID as a mandatory argument and
// applies it as a WHERE clause. No query in this file may cross a user
// boundary — two tenants can hold rows with the same provider external_id
// (or order number) and must never see each other's copies.
//
// Error semantics:
//   - Readers return an empty slice and nil error when nothing matches.
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated; callers decide how to degrade.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/helplane/go-support-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// OrderFilter narrows an order listing. Zero-value fields are ignored.
type OrderFilter struct {
	OrderNumber   string
	CustomerEmail string
}

// ListOrders returns up to limit orders owned by userID, newest first,
// optionally narrowed by order number or customer email.
func ListOrders(ctx context.Context, db *gorm.DB, userID string, f OrderFilter, limit int) ([]domain.SyncedOrder, error) {
	q := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at desc").
		Limit(limit)
	if f.OrderNumber != "" {
		q = q.Where("order_number = ?", f.OrderNumber)
	}
	if f.CustomerEmail != "" {
		q = q.Where("customer_email = ?", f.CustomerEmail)
	}
	var out []domain.SyncedOrder
	err := q.Find(&out).Error
	return out, err
}

// ProductFilter narrows a product listing. Zero-value fields are ignored.
// Title matching is a case-insensitive substring search because users rarely
// quote the exact catalog title.
type ProductFilter struct {
	Title string
	SKU   string
}

// ListProducts returns up to limit products owned by userID, newest first.
func ListProducts(ctx context.Context, db *gorm.DB, userID string, f ProductFilter, limit int) ([]domain.SyncedProduct, error) {
	q := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at desc").
		Limit(limit)
	if f.Title != "" {
		q = q.Where("title LIKE ?", "%"+f.Title+"%")
	}
	if f.SKU != "" {
		q = q.Where("sku = ?", f.SKU)
	}
	var out []domain.SyncedProduct
	err := q.Find(&out).Error
	return out, err
}

// ContactFilter narrows a contact listing. Zero-value fields are ignored.
type ContactFilter struct {
	Email string
	Name  string
}

// ListContacts returns up to limit contacts owned by userID, newest first.
// Name matching is a substring search across first name, last name, and
// company.
func ListContacts(ctx context.Context, db *gorm.DB, userID string, f ContactFilter, limit int) ([]domain.SyncedContact, error) {
	q := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at desc").
		Limit(limit)
	if f.Email != "" {
		q = q.Where("email = ?", f.Email)
	}
	if f.Name != "" {
		like := "%" + f.Name + "%"
		q = q.Where("first_name LIKE ? OR last_name LIKE ? OR company LIKE ?", like, like, like)
	}
	var out []domain.SyncedContact
	err := q.Find(&out).Error
	return out, err
}

// DealFilter narrows a deal listing. Zero-value fields are ignored.
type DealFilter struct {
	Name string
}

// ListDeals returns up to limit deals owned by userID, newest first.
func ListDeals(ctx context.Context, db *gorm.DB, userID string, f DealFilter, limit int) ([]domain.SyncedDeal, error) {
	q := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at desc").
		Limit(limit)
	if f.Name != "" {
		q = q.Where("name LIKE ?", "%"+f.Name+"%")
	}
	var out []domain.SyncedDeal
	err := q.Find(&out).Error
	return out, err
}

// GetContactByIdentity fetches a contact by its provider identity within a
// tenant, or ErrNotFound.
func GetContactByIdentity(ctx context.Context, db *gorm.DB, userID string, provider domain.Provider, externalID string) (*domain.SyncedContact, error) {
	var c domain.SyncedContact
	err := db.WithContext(ctx).
		Where("user_id = ? AND provider = ? AND external_id = ?", userID, provider, externalID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetDealByIdentity fetches a deal by its provider identity within a tenant,
// or ErrNotFound.
func GetDealByIdentity(ctx context.Context, db *gorm.DB, userID string, provider domain.Provider, externalID string) (*domain.SyncedDeal, error) {
	var d domain.SyncedDeal
	err := db.WithContext(ctx).
		Where("user_id = ? AND provider = ? AND external_id = ?", userID, provider, externalID).
		First(&d).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// identityConflict is the upsert target shared by all synced tables:
// one row per (user_id, provider, external_id).
var identityConflict = clause.OnConflict{
	Columns: []clause.Column{
		{Name: "user_id"}, {Name: "provider"}, {Name: "external_id"},
	},
	UpdateAll: true,
}

// UpsertOrder inserts or refreshes an order row keyed by its provider
// identity. Missing ID and timestamps are filled in.
func UpsertOrder(ctx context.Context, db *gorm.DB, o *domain.SyncedOrder) error {
	stampSync(&o.ID, &o.LastSyncedAt)
	return db.WithContext(ctx).Clauses(identityConflict).Create(o).Error
}

// UpsertProduct inserts or refreshes a product row keyed by its provider identity.
func UpsertProduct(ctx context.Context, db *gorm.DB, p *domain.SyncedProduct) error {
	stampSync(&p.ID, &p.LastSyncedAt)
	return db.WithContext(ctx).Clauses(identityConflict).Create(p).Error
}

// UpsertContact inserts or refreshes a contact row keyed by its provider identity.
func UpsertContact(ctx context.Context, db *gorm.DB, c *domain.SyncedContact) error {
	stampSync(&c.ID, &c.LastSyncedAt)
	return db.WithContext(ctx).Clauses(identityConflict).Create(c).Error
}

// UpsertDeal inserts or refreshes a deal row keyed by its provider identity.
func UpsertDeal(ctx context.Context, db *gorm.DB, d *domain.SyncedDeal) error {
	stampSync(&d.ID, &d.LastSyncedAt)
	return db.WithContext(ctx).Clauses(identityConflict).Create(d).Error
}

// stampSync fills a fresh UUID primary key and the sync timestamp when the
// caller left them zero.
func stampSync(id *string, syncedAt *time.Time) {
	if *id == "" {
		*id = uuid.NewString()
	}
	if syncedAt.IsZero() {
		*syncedAt = time.Now().UTC()
	}
}
