// Package services – IntegrationService
//
// This file implements IntegrationService, the query side of the integration
// bridge. Given a free-text support message it classifies intent, extracts
// entities, fans out the relevant tenant-scoped reads against the synced
// tables, and aggregates everything into an AIIntegrationContext for the
// prompt enhancer.
//
// Concurrency: the per-request sub-queries run in parallel and are joined
// with all-settled semantics — a failing slice is logged and degrades to an
// empty bucket, it never aborts the request. Partial data beats no data for
// a conversational assistant.
//
// Caching: each sub-query consults a process-local TTL cache keyed by
// (entity type, user, filter, limit). There is no invalidation on writes;
// staleness up to the TTL window is accepted for this read-mostly workload.
//
// Observability: public methods are OpenTelemetry-instrumented; spans carry
// user and intent attributes.
package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/helplane/go-support-backend/internal/cache"
	"github.com/helplane/go-support-backend/internal/domain"
	"github.com/helplane/go-support-backend/internal/intent"
	"github.com/helplane/go-support-backend/internal/repo"
)

// SyncReader is the repository contract required by IntegrationService.
// The default implementation proxies the repo free functions; tests swap in
// fakes to count store round-trips.
type SyncReader interface {
	ListOrders(ctx context.Context, db *gorm.DB, userID string, f repo.OrderFilter, limit int) ([]domain.SyncedOrder, error)
	ListProducts(ctx context.Context, db *gorm.DB, userID string, f repo.ProductFilter, limit int) ([]domain.SyncedProduct, error)
	ListContacts(ctx context.Context, db *gorm.DB, userID string, f repo.ContactFilter, limit int) ([]domain.SyncedContact, error)
	ListDeals(ctx context.Context, db *gorm.DB, userID string, f repo.DealFilter, limit int) ([]domain.SyncedDeal, error)
}

// GormSyncReader adapts the repository free functions to the SyncReader
// interface expected by IntegrationService.
type GormSyncReader struct{}

// ListOrders proxies repo.ListOrders.
func (GormSyncReader) ListOrders(ctx context.Context, db *gorm.DB, userID string, f repo.OrderFilter, limit int) ([]domain.SyncedOrder, error) {
	return repo.ListOrders(ctx, db, userID, f, limit)
}

// ListProducts proxies repo.ListProducts.
func (GormSyncReader) ListProducts(ctx context.Context, db *gorm.DB, userID string, f repo.ProductFilter, limit int) ([]domain.SyncedProduct, error) {
	return repo.ListProducts(ctx, db, userID, f, limit)
}

// ListContacts proxies repo.ListContacts.
func (GormSyncReader) ListContacts(ctx context.Context, db *gorm.DB, userID string, f repo.ContactFilter, limit int) ([]domain.SyncedContact, error) {
	return repo.ListContacts(ctx, db, userID, f, limit)
}

// ListDeals proxies repo.ListDeals.
func (GormSyncReader) ListDeals(ctx context.Context, db *gorm.DB, userID string, f repo.DealFilter, limit int) ([]domain.SyncedDeal, error) {
	return repo.ListDeals(ctx, db, userID, f, limit)
}

// RelevantData groups the per-entity-type buckets fetched for one request.
// Empty buckets are omitted from JSON so downstream code can test presence.
type RelevantData struct {
	Orders   []domain.SyncedOrder   `json:"orders,omitempty"`
	Products []domain.SyncedProduct `json:"products,omitempty"`
	Contacts []domain.SyncedContact `json:"contacts,omitempty"`
	Deals    []domain.SyncedDeal    `json:"deals,omitempty"`
}

// Empty reports whether every bucket is empty.
func (r *RelevantData) Empty() bool {
	return len(r.Orders) == 0 && len(r.Products) == 0 &&
		len(r.Contacts) == 0 && len(r.Deals) == 0
}

// AIIntegrationContext is the per-request aggregate handed to the prompt
// enhancer. It is built once, consumed once, and discarded — nothing in it
// outlives the request.
type AIIntegrationContext struct {
	HasIntegrations    bool                `json:"has_integrations"`
	AvailableProviders []domain.Provider   `json:"available_providers,omitempty"`
	RelevantData       *RelevantData       `json:"relevant_data,omitempty"`
	QueryIntent        *intent.QueryIntent `json:"query_intent,omitempty"`
	Summary            string              `json:"summary,omitempty"`
}

// IntegrationService coordinates intent analysis and cached, concurrent
// fetches over the synced tables.
type IntegrationService struct {
	DB     *gorm.DB
	Reader SyncReader

	// CacheTTL is how long a fetched slice stays fresh. Defaults to 5 minutes.
	CacheTTL time.Duration
	// DefaultLimit bounds targeted queries; GeneralLimit bounds the broad
	// general-fallback queries to keep prompts small.
	DefaultLimit int
	GeneralLimit int

	orders   cache.Store[[]domain.SyncedOrder]
	products cache.Store[[]domain.SyncedProduct]
	contacts cache.Store[[]domain.SyncedContact]
	deals    cache.Store[[]domain.SyncedDeal]
}

// NewIntegrationService constructs an IntegrationService with default TTL
// and page limits and fresh in-memory caches.
func NewIntegrationService(db *gorm.DB, reader SyncReader) *IntegrationService {
	return &IntegrationService{
		DB:           db,
		Reader:       reader,
		CacheTTL:     5 * time.Minute,
		DefaultLimit: 10,
		GeneralLimit: 3,
		orders:       cache.New[[]domain.SyncedOrder](),
		products:     cache.New[[]domain.SyncedProduct](),
		contacts:     cache.New[[]domain.SyncedContact](),
		deals:        cache.New[[]domain.SyncedDeal](),
	}
}

// ClearCaches drops every cached slice (logout, test teardown).
func (s *IntegrationService) ClearCaches() {
	s.orders.Clear()
	s.products.Clear()
	s.contacts.Clear()
	s.deals.Clear()
}

// AnalyzeAndFetchContext is the bridge entry point invoked before each LLM
// call: classify the message, fetch what the intent needs, summarize.
// It degrades, never fails, on fetch errors — only input validation errors
// are returned.
func (s *IntegrationService) AnalyzeAndFetchContext(ctx context.Context, message, userID, conversationID string) (*AIIntegrationContext, error) {
	tr := otel.Tracer("services/IntegrationService")
	ctx, span := tr.Start(ctx, "AnalyzeAndFetchContext",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("conversation.id", conversationID),
		),
	)
	defer span.End()

	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMessage
	}
	if strings.TrimSpace(userID) == "" {
		return nil, ErrMissingUser
	}

	qi := intent.Classify(message)
	span.SetAttributes(
		attribute.String("intent.type", string(qi.Type)),
		attribute.Float64("intent.confidence", qi.Confidence),
	)

	data := s.fetchRelevantData(ctx, qi, userID)

	out := &AIIntegrationContext{QueryIntent: &qi}
	if !data.Empty() {
		out.HasIntegrations = true
		out.AvailableProviders = distinctProviders(data)
		out.RelevantData = data
		out.Summary = Summarize(data, qi)
	}
	return out, nil
}

// fetchRelevantData fans out the sub-queries the intent calls for and joins
// them all-settled. Each failed slice is logged and left empty.
func (s *IntegrationService) fetchRelevantData(ctx context.Context, qi intent.QueryIntent, userID string) *RelevantData {
	limit := s.DefaultLimit
	if limit <= 0 {
		limit = 10
	}
	general := s.GeneralLimit
	if general <= 0 {
		general = 3
	}

	var (
		data RelevantData
		g    errgroup.Group
	)

	// settle wraps a sub-fetch so its error degrades to an empty bucket
	// instead of cancelling siblings.
	settle := func(bucket string, fn func() error) func() error {
		return func() error {
			if err := fn(); err != nil {
				log.Warn().Err(err).
					Str("bucket", bucket).
					Str("user_id", userID).
					Msg("integration sub-query failed; serving partial context")
			}
			return nil
		}
	}

	fetchOrders := func(f repo.OrderFilter, lim int) {
		g.Go(settle("orders", func() error {
			out, err := s.cachedOrders(ctx, userID, f, lim)
			if err != nil {
				return err
			}
			data.Orders = out
			return nil
		}))
	}
	fetchProducts := func(f repo.ProductFilter, lim int) {
		g.Go(settle("products", func() error {
			out, err := s.cachedProducts(ctx, userID, f, lim)
			if err != nil {
				return err
			}
			data.Products = out
			return nil
		}))
	}
	fetchContacts := func(f repo.ContactFilter, lim int) {
		g.Go(settle("contacts", func() error {
			out, err := s.cachedContacts(ctx, userID, f, lim)
			if err != nil {
				return err
			}
			data.Contacts = out
			return nil
		}))
	}
	fetchDeals := func(f repo.DealFilter, lim int) {
		g.Go(settle("deals", func() error {
			out, err := s.cachedDeals(ctx, userID, f, lim)
			if err != nil {
				return err
			}
			data.Deals = out
			return nil
		}))
	}

	e := qi.Entities
	switch qi.Type {
	case intent.TypeOrderStatus, intent.TypeOrderTracking, intent.TypeShippingInfo,
		intent.TypePaymentInfo, intent.TypeReturnRefund:
		fetchOrders(repo.OrderFilter{
			OrderNumber:   deref(e.OrderNumber),
			CustomerEmail: deref(e.Email),
		}, limit)
		if e.Email != nil {
			fetchContacts(repo.ContactFilter{Email: deref(e.Email)}, limit)
		}

	case intent.TypeProductInfo, intent.TypeProductAvailability, intent.TypePricingInfo:
		fetchProducts(repo.ProductFilter{
			Title: deref(e.ProductName),
			SKU:   deref(e.SKU),
		}, limit)

	case intent.TypeContactInfo, intent.TypeAccountInfo:
		fetchContacts(repo.ContactFilter{
			Email: deref(e.Email),
			Name:  deref(e.ContactName),
		}, limit)
		if e.Email != nil {
			fetchOrders(repo.OrderFilter{CustomerEmail: deref(e.Email)}, limit)
		}

	case intent.TypeDealInfo, intent.TypeDealStatus:
		fetchDeals(repo.DealFilter{Name: deref(e.DealName)}, limit)
		if e.Email != nil {
			fetchContacts(repo.ContactFilter{Email: deref(e.Email)}, limit)
		}

	default:
		// General fallback: a small slice of everything.
		fetchOrders(repo.OrderFilter{}, general)
		fetchProducts(repo.ProductFilter{}, general)
		fetchContacts(repo.ContactFilter{}, general)
		fetchDeals(repo.DealFilter{}, general)
	}

	// Sub-fetches never return errors (settle swallows them), so the join
	// only waits.
	_ = g.Wait()
	return &data
}

// --- cached per-type fetches ---
//
// Cache keys include every query dimension so two requests only share an
// entry when the store would return identical rows.

func cacheKey(kind, userID string, limit int, filterParts ...string) string {
	return fmt.Sprintf("%s|%s|%s|%d", kind, userID, strings.Join(filterParts, "|"), limit)
}

func (s *IntegrationService) cachedOrders(ctx context.Context, userID string, f repo.OrderFilter, limit int) ([]domain.SyncedOrder, error) {
	key := cacheKey("orders", userID, limit, f.OrderNumber, f.CustomerEmail)
	if hit, ok := s.orders.Get(key); ok {
		return hit, nil
	}
	out, err := s.Reader.ListOrders(ctx, s.DB, userID, f, limit)
	if err != nil {
		return nil, err
	}
	s.orders.Set(key, out, s.ttl())
	return out, nil
}

func (s *IntegrationService) cachedProducts(ctx context.Context, userID string, f repo.ProductFilter, limit int) ([]domain.SyncedProduct, error) {
	key := cacheKey("products", userID, limit, f.Title, f.SKU)
	if hit, ok := s.products.Get(key); ok {
		return hit, nil
	}
	out, err := s.Reader.ListProducts(ctx, s.DB, userID, f, limit)
	if err != nil {
		return nil, err
	}
	s.products.Set(key, out, s.ttl())
	return out, nil
}

func (s *IntegrationService) cachedContacts(ctx context.Context, userID string, f repo.ContactFilter, limit int) ([]domain.SyncedContact, error) {
	key := cacheKey("contacts", userID, limit, f.Email, f.Name)
	if hit, ok := s.contacts.Get(key); ok {
		return hit, nil
	}
	out, err := s.Reader.ListContacts(ctx, s.DB, userID, f, limit)
	if err != nil {
		return nil, err
	}
	s.contacts.Set(key, out, s.ttl())
	return out, nil
}

func (s *IntegrationService) cachedDeals(ctx context.Context, userID string, f repo.DealFilter, limit int) ([]domain.SyncedDeal, error) {
	key := cacheKey("deals", userID, limit, f.Name)
	if hit, ok := s.deals.Get(key); ok {
		return hit, nil
	}
	out, err := s.Reader.ListDeals(ctx, s.DB, userID, f, limit)
	if err != nil {
		return nil, err
	}
	s.deals.Set(key, out, s.ttl())
	return out, nil
}

func (s *IntegrationService) ttl() time.Duration {
	if s.CacheTTL > 0 {
		return s.CacheTTL
	}
	return 5 * time.Minute
}

// distinctProviders collects the sorted set of providers present in data.
func distinctProviders(data *RelevantData) []domain.Provider {
	set := make(map[domain.Provider]struct{})
	for _, o := range data.Orders {
		set[o.Provider] = struct{}{}
	}
	for _, p := range data.Products {
		set[p.Provider] = struct{}{}
	}
	for _, c := range data.Contacts {
		set[c.Provider] = struct{}{}
	}
	for _, d := range data.Deals {
		set[d.Provider] = struct{}{}
	}
	out := make([]domain.Provider, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Summarize produces the advisory one-paragraph digest of fetched data, in
// fixed bucket order (orders, products, contacts, deals), one line per
// record joined with "; ". Empty buckets are skipped. The summary feeds logs
// and debugging, not the LLM prompt.
func Summarize(data *RelevantData, qi intent.QueryIntent) string {
	var parts []string
	for _, o := range data.Orders {
		parts = append(parts, fmt.Sprintf("order #%s %s (%.2f %s)", o.OrderNumber, o.Status, o.TotalAmount, o.Currency))
	}
	for _, p := range data.Products {
		parts = append(parts, fmt.Sprintf("product %q %.2f %s, %d in stock", p.Title, p.Price, p.Currency, p.InventoryQty))
	}
	for _, c := range data.Contacts {
		parts = append(parts, fmt.Sprintf("contact %s %s <%s>", c.FirstName, c.LastName, c.Email))
	}
	for _, d := range data.Deals {
		parts = append(parts, fmt.Sprintf("deal %q in stage %s (%.2f %s)", d.Name, d.Stage, d.Amount, d.Currency))
	}
	if len(parts) == 0 {
		return ""
	}
	return fmt.Sprintf("[%s] %s", qi.Type, strings.Join(parts, "; "))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
