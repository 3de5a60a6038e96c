package repo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/helplane/go-support-backend/internal/domain"
)

func newSyncRepoDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("sync_repo_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// Ensure the file handle is released before TempDir cleanup (Windows needs this).
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func seedOrder(t *testing.T, db *gorm.DB, userID, externalID, number, email string) *domain.SyncedOrder {
	t.Helper()
	o := &domain.SyncedOrder{
		UserID:        userID,
		Provider:      domain.ProviderShopify,
		ExternalID:    externalID,
		OrderNumber:   number,
		Status:        "paid",
		CustomerEmail: email,
	}
	if err := UpsertOrder(context.Background(), db, o); err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return o
}

func TestUpsertOrder_InsertThenRefresh(t *testing.T) {
	db := newSyncRepoDB(t, &domain.SyncedOrder{})
	ctx := context.Background()

	o := seedOrder(t, db, "u1", "ext-1", "1001", "a@x.com")
	if o.ID == "" || o.LastSyncedAt.IsZero() {
		t.Fatalf("stamp not applied: %+v", o)
	}

	// Same identity, new status: must update in place, not insert.
	o2 := &domain.SyncedOrder{
		UserID:      "u1",
		Provider:    domain.ProviderShopify,
		ExternalID:  "ext-1",
		OrderNumber: "1001",
		Status:      "fulfilled",
	}
	if err := UpsertOrder(ctx, db, o2); err != nil {
		t.Fatalf("upsert refresh: %v", err)
	}

	rows, err := ListOrders(ctx, db, "u1", OrderFilter{}, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row after upsert, got %d", len(rows))
	}
	if rows[0].Status != "fulfilled" {
		t.Fatalf("status not refreshed: %q", rows[0].Status)
	}
}

func TestListOrders_Filters(t *testing.T) {
	db := newSyncRepoDB(t, &domain.SyncedOrder{})
	ctx := context.Background()

	seedOrder(t, db, "u1", "ext-1", "1001", "a@x.com")
	seedOrder(t, db, "u1", "ext-2", "1002", "b@x.com")
	seedOrder(t, db, "u1", "ext-3", "1003", "a@x.com")

	byNumber, err := ListOrders(ctx, db, "u1", OrderFilter{OrderNumber: "1002"}, 10)
	if err != nil || len(byNumber) != 1 || byNumber[0].OrderNumber != "1002" {
		t.Fatalf("order-number filter: %v %+v", err, byNumber)
	}

	byEmail, err := ListOrders(ctx, db, "u1", OrderFilter{CustomerEmail: "a@x.com"}, 10)
	if err != nil || len(byEmail) != 2 {
		t.Fatalf("email filter: %v got %d rows", err, len(byEmail))
	}

	limited, err := ListOrders(ctx, db, "u1", OrderFilter{}, 2)
	if err != nil || len(limited) != 2 {
		t.Fatalf("limit: %v got %d rows", err, len(limited))
	}

	none, err := ListOrders(ctx, db, "u1", OrderFilter{OrderNumber: "9999"}, 10)
	if err != nil || len(none) != 0 {
		t.Fatalf("no-match should be empty slice with nil error: %v %+v", err, none)
	}
}

// Two tenants may hold the same provider external ID (and order number).
// Readers must never return the other tenant's copy.
func TestTenantIsolation_CollidingExternalIDs(t *testing.T) {
	db := newSyncRepoDB(t, &domain.SyncedOrder{})
	ctx := context.Background()

	a := seedOrder(t, db, "userA", "ext-shared", "1001", "a@x.com")
	b := seedOrder(t, db, "userB", "ext-shared", "1001", "b@x.com")
	if a.ID == b.ID {
		t.Fatalf("tenants shared a row")
	}

	for _, tc := range []struct {
		user      string
		wantEmail string
	}{
		{"userA", "a@x.com"},
		{"userB", "b@x.com"},
	} {
		rows, err := ListOrders(ctx, db, tc.user, OrderFilter{OrderNumber: "1001"}, 10)
		if err != nil {
			t.Fatalf("list for %s: %v", tc.user, err)
		}
		if len(rows) != 1 || rows[0].CustomerEmail != tc.wantEmail {
			t.Fatalf("tenant %s saw wrong rows: %+v", tc.user, rows)
		}
	}

	// An unknown tenant sees nothing.
	rows, err := ListOrders(ctx, db, "userC", OrderFilter{}, 10)
	if err != nil || len(rows) != 0 {
		t.Fatalf("unknown tenant should see nothing: %v %+v", err, rows)
	}
}

func TestListProducts_TitleAndSKU(t *testing.T) {
	db := newSyncRepoDB(t, &domain.SyncedProduct{})
	ctx := context.Background()

	for i, p := range []*domain.SyncedProduct{
		{UserID: "u1", Provider: domain.ProviderShopify, ExternalID: "p1", Title: "Blue Hoodie", SKU: "HOOD-BLU"},
		{UserID: "u1", Provider: domain.ProviderShopify, ExternalID: "p2", Title: "Red Hoodie", SKU: "HOOD-RED"},
		{UserID: "u1", Provider: domain.ProviderShopify, ExternalID: "p3", Title: "Socks", SKU: "SOCK-01"},
	} {
		if err := UpsertProduct(ctx, db, p); err != nil {
			t.Fatalf("seed product %d: %v", i, err)
		}
	}

	hoodies, err := ListProducts(ctx, db, "u1", ProductFilter{Title: "Hoodie"}, 10)
	if err != nil || len(hoodies) != 2 {
		t.Fatalf("title substring filter: %v got %d", err, len(hoodies))
	}

	bySKU, err := ListProducts(ctx, db, "u1", ProductFilter{SKU: "SOCK-01"}, 10)
	if err != nil || len(bySKU) != 1 || bySKU[0].Title != "Socks" {
		t.Fatalf("sku filter: %v %+v", err, bySKU)
	}
}

func TestListContacts_NameAcrossColumns(t *testing.T) {
	db := newSyncRepoDB(t, &domain.SyncedContact{})
	ctx := context.Background()

	for _, c := range []*domain.SyncedContact{
		{UserID: "u1", Provider: domain.ProviderHubSpot, ExternalID: "c1", Email: "jane@acme.com", FirstName: "Jane", LastName: "Doe", Company: "Acme"},
		{UserID: "u1", Provider: domain.ProviderHubSpot, ExternalID: "c2", Email: "bob@other.com", FirstName: "Bob", LastName: "Janeway", Company: "Other"},
		{UserID: "u1", Provider: domain.ProviderHubSpot, ExternalID: "c3", Email: "x@acme.com", FirstName: "Ann", LastName: "Smith", Company: "Acme Holdings"},
	} {
		if err := UpsertContact(ctx, db, c); err != nil {
			t.Fatalf("seed contact: %v", err)
		}
	}

	// "Jane" matches first name of c1 and last name of c2.
	byName, err := ListContacts(ctx, db, "u1", ContactFilter{Name: "Jane"}, 10)
	if err != nil || len(byName) != 2 {
		t.Fatalf("name filter: %v got %d", err, len(byName))
	}

	// "Acme" matches company of c1 and c3.
	byCompany, err := ListContacts(ctx, db, "u1", ContactFilter{Name: "Acme"}, 10)
	if err != nil || len(byCompany) != 2 {
		t.Fatalf("company filter: %v got %d", err, len(byCompany))
	}

	byEmail, err := ListContacts(ctx, db, "u1", ContactFilter{Email: "jane@acme.com"}, 10)
	if err != nil || len(byEmail) != 1 || byEmail[0].FirstName != "Jane" {
		t.Fatalf("email filter: %v %+v", err, byEmail)
	}
}

func TestListDeals_And_GetByIdentity(t *testing.T) {
	db := newSyncRepoDB(t, &domain.SyncedDeal{})
	ctx := context.Background()

	d := &domain.SyncedDeal{
		UserID: "u1", Provider: domain.ProviderHubSpot, ExternalID: "d1",
		Name: "Acme Renewal", Stage: "negotiation", Amount: 5000,
	}
	if err := UpsertDeal(ctx, db, d); err != nil {
		t.Fatalf("seed deal: %v", err)
	}

	byName, err := ListDeals(ctx, db, "u1", DealFilter{Name: "Acme"}, 10)
	if err != nil || len(byName) != 1 || byName[0].Stage != "negotiation" {
		t.Fatalf("deal name filter: %v %+v", err, byName)
	}

	got, err := GetDealByIdentity(ctx, db, "u1", domain.ProviderHubSpot, "d1")
	if err != nil || got.Name != "Acme Renewal" {
		t.Fatalf("GetDealByIdentity: %v %+v", err, got)
	}

	// Identity lookups are tenant-scoped too.
	if _, err := GetDealByIdentity(ctx, db, "u2", domain.ProviderHubSpot, "d1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-tenant identity lookup should be ErrNotFound, got %v", err)
	}
}

func TestGetContactByIdentity(t *testing.T) {
	db := newSyncRepoDB(t, &domain.SyncedContact{})
	ctx := context.Background()

	c := &domain.SyncedContact{
		UserID: "u1", Provider: domain.ProviderHubSpot, ExternalID: "c9",
		Email: "kate@acme.com", FirstName: "Kate",
	}
	if err := UpsertContact(ctx, db, c); err != nil {
		t.Fatalf("seed: %v", err)
	}

	got, err := GetContactByIdentity(ctx, db, "u1", domain.ProviderHubSpot, "c9")
	if err != nil || got.Email != "kate@acme.com" {
		t.Fatalf("GetContactByIdentity: %v %+v", err, got)
	}
	if _, err := GetContactByIdentity(ctx, db, "u1", domain.ProviderHubSpot, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing contact should be ErrNotFound, got %v", err)
	}
}

func TestListOrders_Error_NoTable(t *testing.T) {
	db := newSyncRepoDB(t /* no migrations */)
	if _, err := ListOrders(context.Background(), db, "u1", OrderFilter{}, 10); err == nil {
		t.Fatalf("expected error listing without table")
	}
}
