package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/helplane/go-support-backend/internal/domain"
	"github.com/helplane/go-support-backend/internal/intent"
	"github.com/helplane/go-support-backend/internal/repo"
)

// fakeReader is a canned SyncReader that counts store round-trips and records
// the filters it was called with.
type fakeReader struct {
	mu sync.Mutex

	orders   []domain.SyncedOrder
	products []domain.SyncedProduct
	contacts []domain.SyncedContact
	deals    []domain.SyncedDeal

	ordersErr error

	orderCalls   int
	productCalls int
	contactCalls int
	dealCalls    int

	lastOrderFilter repo.OrderFilter
	lastLimit       int
}

func (f *fakeReader) ListOrders(_ context.Context, _ *gorm.DB, _ string, flt repo.OrderFilter, limit int) ([]domain.SyncedOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orderCalls++
	f.lastOrderFilter = flt
	f.lastLimit = limit
	if f.ordersErr != nil {
		return nil, f.ordersErr
	}
	return f.orders, nil
}

func (f *fakeReader) ListProducts(_ context.Context, _ *gorm.DB, _ string, _ repo.ProductFilter, _ int) ([]domain.SyncedProduct, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.productCalls++
	return f.products, nil
}

func (f *fakeReader) ListContacts(_ context.Context, _ *gorm.DB, _ string, _ repo.ContactFilter, _ int) ([]domain.SyncedContact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contactCalls++
	return f.contacts, nil
}

func (f *fakeReader) ListDeals(_ context.Context, _ *gorm.DB, _ string, _ repo.DealFilter, _ int) ([]domain.SyncedDeal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dealCalls++
	return f.deals, nil
}

func (f *fakeReader) counts() (o, p, c, d int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orderCalls, f.productCalls, f.contactCalls, f.dealCalls
}

func containsStr(s, sub string) bool { return strings.Contains(s, sub) }

func TestAnalyzeAndFetchContext_Validation(t *testing.T) {
	svc := NewIntegrationService(nil, &fakeReader{})
	ctx := context.Background()

	if _, err := svc.AnalyzeAndFetchContext(ctx, "   ", "u1", ""); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("blank message: %v", err)
	}
	if _, err := svc.AnalyzeAndFetchContext(ctx, "hello", "  ", ""); !errors.Is(err, ErrMissingUser) {
		t.Fatalf("blank user: %v", err)
	}
}

func TestAnalyzeAndFetchContext_OrderIntentRouting(t *testing.T) {
	fr := &fakeReader{
		orders: []domain.SyncedOrder{{
			Provider: domain.ProviderShopify, OrderNumber: "1001",
			Status: "fulfilled", TotalAmount: 299.99, Currency: "USD",
		}},
	}
	svc := NewIntegrationService(nil, fr)

	out, err := svc.AnalyzeAndFetchContext(context.Background(), "What is the status of my order #1001?", "u1", "c1")
	if err != nil {
		t.Fatalf("AnalyzeAndFetchContext: %v", err)
	}
	if out.QueryIntent == nil || out.QueryIntent.Type != intent.TypeOrderStatus {
		t.Fatalf("intent = %+v; want order_status", out.QueryIntent)
	}
	if !out.HasIntegrations || out.RelevantData == nil || len(out.RelevantData.Orders) != 1 {
		t.Fatalf("context unexpected: %+v", out)
	}
	if fr.lastOrderFilter.OrderNumber != "1001" {
		t.Fatalf("order filter = %+v; want OrderNumber 1001", fr.lastOrderFilter)
	}
	if len(out.AvailableProviders) != 1 || out.AvailableProviders[0] != domain.ProviderShopify {
		t.Fatalf("providers = %v", out.AvailableProviders)
	}
	if out.Summary == "" {
		t.Fatalf("expected a non-empty summary")
	}

	// No email in the message, so contacts were not queried.
	o, p, c, d := fr.counts()
	if o != 1 || p != 0 || c != 0 || d != 0 {
		t.Fatalf("call counts = %d/%d/%d/%d; want 1/0/0/0", o, p, c, d)
	}
}

func TestAnalyzeAndFetchContext_OrderIntentWithEmailAlsoFetchesContacts(t *testing.T) {
	fr := &fakeReader{
		orders:   []domain.SyncedOrder{{Provider: domain.ProviderShopify, OrderNumber: "1001"}},
		contacts: []domain.SyncedContact{{Provider: domain.ProviderHubSpot, Email: "jane@x.com"}},
	}
	svc := NewIntegrationService(nil, fr)

	out, err := svc.AnalyzeAndFetchContext(context.Background(), "status of my order for jane@x.com", "u1", "")
	if err != nil {
		t.Fatalf("AnalyzeAndFetchContext: %v", err)
	}
	o, _, c, _ := fr.counts()
	if o != 1 || c != 1 {
		t.Fatalf("call counts orders=%d contacts=%d; want 1/1", o, c)
	}
	// Providers are the distinct sorted union across buckets.
	if len(out.AvailableProviders) != 2 ||
		out.AvailableProviders[0] != domain.ProviderHubSpot ||
		out.AvailableProviders[1] != domain.ProviderShopify {
		t.Fatalf("providers = %v", out.AvailableProviders)
	}
}

func TestAnalyzeAndFetchContext_GeneralFallbackFetchesEverything(t *testing.T) {
	fr := &fakeReader{}
	svc := NewIntegrationService(nil, fr)

	out, err := svc.AnalyzeAndFetchContext(context.Background(), "hello there", "u1", "")
	if err != nil {
		t.Fatalf("AnalyzeAndFetchContext: %v", err)
	}
	o, p, c, d := fr.counts()
	if o != 1 || p != 1 || c != 1 || d != 1 {
		t.Fatalf("call counts = %d/%d/%d/%d; want 1/1/1/1", o, p, c, d)
	}
	// Everything came back empty: no integration context.
	if out.HasIntegrations || out.RelevantData != nil || out.Summary != "" {
		t.Fatalf("empty fetch should yield no integration context: %+v", out)
	}
}

func TestAnalyzeAndFetchContext_CacheAbsorbsRepeatFetches(t *testing.T) {
	fr := &fakeReader{
		orders: []domain.SyncedOrder{{Provider: domain.ProviderShopify, OrderNumber: "1001"}},
	}
	svc := NewIntegrationService(nil, fr)

	const msg = "What is the status of my order #1001?"
	for i := 0; i < 3; i++ {
		if _, err := svc.AnalyzeAndFetchContext(context.Background(), msg, "u1", ""); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if o, _, _, _ := fr.counts(); o != 1 {
		t.Fatalf("store hit %d times; want 1 (cache)", o)
	}

	// A different user must not share the entry.
	if _, err := svc.AnalyzeAndFetchContext(context.Background(), msg, "u2", ""); err != nil {
		t.Fatalf("other user: %v", err)
	}
	if o, _, _, _ := fr.counts(); o != 2 {
		t.Fatalf("store hit %d times; want 2 (per-user keys)", o)
	}

	// ClearCaches forces a refetch.
	svc.ClearCaches()
	if _, err := svc.AnalyzeAndFetchContext(context.Background(), msg, "u1", ""); err != nil {
		t.Fatalf("after clear: %v", err)
	}
	if o, _, _, _ := fr.counts(); o != 3 {
		t.Fatalf("store hit %d times after clear; want 3", o)
	}
}

func TestAnalyzeAndFetchContext_CacheExpires(t *testing.T) {
	fr := &fakeReader{
		orders: []domain.SyncedOrder{{Provider: domain.ProviderShopify, OrderNumber: "1001"}},
	}
	svc := NewIntegrationService(nil, fr)
	svc.CacheTTL = time.Nanosecond

	const msg = "order #1001?"
	ctx := context.Background()
	if _, err := svc.AnalyzeAndFetchContext(ctx, msg, "u1", ""); err != nil {
		t.Fatalf("first: %v", err)
	}
	time.Sleep(time.Millisecond)
	if _, err := svc.AnalyzeAndFetchContext(ctx, msg, "u1", ""); err != nil {
		t.Fatalf("second: %v", err)
	}
	if o, _, _, _ := fr.counts(); o != 2 {
		t.Fatalf("store hit %d times; want 2 after TTL expiry", o)
	}
}

// A failing sub-query degrades to an empty bucket; siblings still land.
func TestAnalyzeAndFetchContext_AllSettledPartialFailure(t *testing.T) {
	fr := &fakeReader{
		ordersErr: errors.New("store down"),
		contacts:  []domain.SyncedContact{{Provider: domain.ProviderHubSpot, Email: "jane@x.com", FirstName: "Jane"}},
	}
	svc := NewIntegrationService(nil, fr)

	out, err := svc.AnalyzeAndFetchContext(context.Background(), "status of my order for jane@x.com", "u1", "")
	if err != nil {
		t.Fatalf("fetch errors must not surface: %v", err)
	}
	if !out.HasIntegrations {
		t.Fatalf("partial data should still count as integration context")
	}
	if len(out.RelevantData.Orders) != 0 || len(out.RelevantData.Contacts) != 1 {
		t.Fatalf("partial buckets unexpected: %+v", out.RelevantData)
	}
}

func TestSummarize(t *testing.T) {
	qi := intent.QueryIntent{Type: intent.TypeOrderStatus}
	data := &RelevantData{
		Orders: []domain.SyncedOrder{
			{OrderNumber: "1001", Status: "fulfilled", TotalAmount: 299.99, Currency: "USD"},
			{OrderNumber: "1002", Status: "pending", TotalAmount: 10, Currency: "EUR"},
		},
		Deals: []domain.SyncedDeal{
			{Name: "Acme Renewal", Stage: "won", Amount: 5000, Currency: "USD"},
		},
	}

	got := Summarize(data, qi)
	for _, want := range []string{"[order_status]", "order #1001 fulfilled (299.99 USD)", "; ", `deal "Acme Renewal" in stage won`} {
		if !containsStr(got, want) {
			t.Fatalf("summary %q missing %q", got, want)
		}
	}

	if Summarize(&RelevantData{}, qi) != "" {
		t.Fatalf("empty data should summarize to empty string")
	}
}
