// Package services – PromptEnhancer
//
// This file implements the prompt construction step of the integration
// bridge. It is a pure string-building component: no network calls, no
// persistence. Given the user message, the tenant's knowledge-base text, and
// the AIIntegrationContext produced by IntegrationService, it emits the
// (system, user) prompt pair handed to the external LLM call.
//
// Security invariant: before any synced record reaches prompt text, a
// recursive sanitization pass strips every field whose key matches the
// sensitive-term denylist. No credential-shaped value may ever be rendered
// into a prompt, at any nesting depth of the provider data blobs.
package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/helplane/go-support-backend/internal/domain"
)

// integrationDataHeading marks the live-data block in the enhanced user
// prompt. It must never appear when no integration data was fetched.
const integrationDataHeading = "REAL-TIME INTEGRATION DATA"

// EnhancedPrompt is the final prompt pair for the LLM call.
type EnhancedPrompt struct {
	SystemPrompt       string `json:"system_prompt"`
	UserPrompt         string `json:"user_prompt"`
	HasIntegrationData bool   `json:"has_integration_data"`
}

// PromptEnhancer renders integration context into prompt text. The caps
// exist to keep prompts bounded: line items per order and description length
// are clipped, and each bucket was already limited at fetch time.
type PromptEnhancer struct {
	// MaxLineItems bounds rendered order line items. Defaults to 3.
	MaxLineItems int
	// MaxDescriptionRunes clips product descriptions. Defaults to 150.
	MaxDescriptionRunes int
}

// NewPromptEnhancer returns a PromptEnhancer with the default caps.
func NewPromptEnhancer() *PromptEnhancer {
	return &PromptEnhancer{MaxLineItems: 3, MaxDescriptionRunes: 150}
}

// Enhance builds the prompt pair. With no integration data it falls back to
// the base persona plus knowledge-base prompt; otherwise it emits the
// enhanced pair with provider context and structured record renderings.
func (p *PromptEnhancer) Enhance(message, knowledgeBase string, ictx *AIIntegrationContext, tone, businessType string) EnhancedPrompt {
	if ictx == nil || !ictx.HasIntegrations || ictx.RelevantData == nil || ictx.RelevantData.Empty() {
		return EnhancedPrompt{
			SystemPrompt: p.baseSystemPrompt(tone, businessType),
			UserPrompt:   p.baseUserPrompt(message, knowledgeBase),
		}
	}
	return EnhancedPrompt{
		SystemPrompt:       p.enhancedSystemPrompt(tone, businessType, ictx.AvailableProviders),
		UserPrompt:         p.enhancedUserPrompt(message, knowledgeBase, ictx.RelevantData),
		HasIntegrationData: true,
	}
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// baseSystemPrompt is the generic persona used when no live data is available.
func (p *PromptEnhancer) baseSystemPrompt(tone, businessType string) string {
	return fmt.Sprintf(
		"You are a helpful customer support agent for a %s business. "+
			"Keep a %s tone. Answer using the provided knowledge base; when the "+
			"knowledge base does not cover a question, say so honestly instead of guessing.",
		orDefault(businessType, "general"),
		orDefault(tone, "friendly and professional"),
	)
}

func (p *PromptEnhancer) baseUserPrompt(message, knowledgeBase string) string {
	var b strings.Builder
	if strings.TrimSpace(knowledgeBase) != "" {
		b.WriteString("KNOWLEDGE BASE:\n")
		b.WriteString(knowledgeBase)
		b.WriteString("\n\n")
	}
	b.WriteString("CUSTOMER MESSAGE:\n")
	b.WriteString(message)
	return b.String()
}

// enhancedSystemPrompt extends the persona with the connected providers and
// the behavioral rules for mixing live data with knowledge-base text.
func (p *PromptEnhancer) enhancedSystemPrompt(tone, businessType string, providers []domain.Provider) string {
	caser := cases.Title(language.English)
	labels := make([]string, 0, len(providers))
	for _, pr := range providers {
		labels = append(labels, caser.String(string(pr)))
	}

	var b strings.Builder
	b.WriteString(p.baseSystemPrompt(tone, businessType))
	b.WriteString("\n\nConnected integrations: ")
	b.WriteString(strings.Join(labels, ", "))
	b.WriteString(".\n")
	b.WriteString("When answering about orders, pricing, inventory, or account details, ")
	b.WriteString("prioritize the real-time integration data in the user message over ")
	b.WriteString("static knowledge-base text. The knowledge base remains authoritative ")
	b.WriteString("for policies and processes (returns policy, shipping rules, support hours).\n")
	b.WriteString("Speak as if you personally know this information. Never say ")
	b.WriteString(`"I found this in the system" or "according to the data" — just answer.`)
	return b.String()
}

// enhancedUserPrompt embeds the sanitized, field-by-field rendering of each
// non-empty bucket between the knowledge base and the customer message.
func (p *PromptEnhancer) enhancedUserPrompt(message, knowledgeBase string, data *RelevantData) string {
	var b strings.Builder
	if strings.TrimSpace(knowledgeBase) != "" {
		b.WriteString("KNOWLEDGE BASE:\n")
		b.WriteString(knowledgeBase)
		b.WriteString("\n\n")
	}

	b.WriteString(integrationDataHeading)
	b.WriteString(":\n")

	if len(data.Orders) > 0 {
		b.WriteString("\nOrders:\n")
		for _, o := range data.Orders {
			p.writeOrder(&b, o)
		}
	}
	if len(data.Products) > 0 {
		b.WriteString("\nProducts:\n")
		for _, pr := range data.Products {
			p.writeProduct(&b, pr)
		}
	}
	if len(data.Contacts) > 0 {
		b.WriteString("\nContacts:\n")
		for _, c := range data.Contacts {
			fmt.Fprintf(&b, "- %s %s | email: %s", c.FirstName, c.LastName, c.Email)
			if c.Company != "" {
				fmt.Fprintf(&b, " | company: %s", c.Company)
			}
			b.WriteString("\n")
		}
	}
	if len(data.Deals) > 0 {
		b.WriteString("\nDeals:\n")
		for _, d := range data.Deals {
			fmt.Fprintf(&b, "- %s | stage: %s | amount: %.2f %s", d.Name, d.Stage, d.Amount, d.Currency)
			if d.CloseDate != nil {
				fmt.Fprintf(&b, " | close date: %s", d.CloseDate.Format("2006-01-02"))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\nCUSTOMER MESSAGE:\n")
	b.WriteString(message)
	return b.String()
}

func (p *PromptEnhancer) writeOrder(b *strings.Builder, o domain.SyncedOrder) {
	fmt.Fprintf(b, "- Order #%s | status: %s", o.OrderNumber, o.Status)
	if o.FulfillmentStatus != "" {
		fmt.Fprintf(b, " | fulfillment: %s", o.FulfillmentStatus)
	}
	fmt.Fprintf(b, " | total: %.2f %s", o.TotalAmount, o.Currency)
	if o.TrackingNumber != "" {
		fmt.Fprintf(b, " | tracking: %s", o.TrackingNumber)
	}
	b.WriteString("\n")

	maxItems := p.MaxLineItems
	if maxItems <= 0 {
		maxItems = 3
	}
	for i, item := range lineItems(o.Data) {
		if i >= maxItems {
			break
		}
		fmt.Fprintf(b, "    - %s\n", item)
	}
}

func (p *PromptEnhancer) writeProduct(b *strings.Builder, pr domain.SyncedProduct) {
	fmt.Fprintf(b, "- %s | price: %.2f %s | stock: %d", pr.Title, pr.Price, pr.Currency, pr.InventoryQty)
	if pr.SKU != "" {
		fmt.Fprintf(b, " | sku: %s", pr.SKU)
	}
	b.WriteString("\n")
	if desc := strings.TrimSpace(pr.Description); desc != "" {
		maxRunes := p.MaxDescriptionRunes
		if maxRunes <= 0 {
			maxRunes = 150
		}
		if utf8.RuneCountInString(desc) > maxRunes {
			desc = string([]rune(desc)[:maxRunes]) + "…"
		}
		fmt.Fprintf(b, "    %s\n", desc)
	}
}

// lineItems extracts a short description per line item from the sanitized
// provider data blob (quantity x title, with price when present).
func lineItems(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var blob map[string]any
	if err := json.Unmarshal(raw, &blob); err != nil {
		return nil
	}
	items, ok := SanitizeMap(blob)["line_items"].([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		title, _ := m["title"].(string)
		if title == "" {
			continue
		}
		qty := 1.0
		if q, ok := m["quantity"].(float64); ok && q > 0 {
			qty = q
		}
		line := fmt.Sprintf("%dx %s", int(qty), title)
		if price, ok := m["price"].(string); ok && price != "" {
			line += " @ " + price
		}
		out = append(out, line)
	}
	return out
}

// sensitiveKeyTerms is the denylist applied to every key of provider data
// before it can reach prompt text. Matching is case-insensitive substring,
// so "shop_access_token" and "AccessToken" are both caught.
var sensitiveKeyTerms = []string{
	"access_token",
	"refresh_token",
	"password",
	"secret",
	"api_key",
	"apikey",
	"ssn",
	"credit_card",
	"card_number",
	"bank_account",
	"authorization",
	"token",
}

// isSensitiveKey reports whether a map key matches the denylist.
func isSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	for _, term := range sensitiveKeyTerms {
		if strings.Contains(k, term) {
			return true
		}
	}
	return false
}

// SanitizeMap returns a deep copy of m with every denylisted key removed,
// recursing through nested maps and slices. The input is never mutated.
func SanitizeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if isSensitiveKey(k) {
			continue
		}
		out[k] = sanitizeValue(v)
	}
	return out
}

func sanitizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return SanitizeMap(t)
	case []any:
		out := make([]any, 0, len(t))
		for _, item := range t {
			out = append(out, sanitizeValue(item))
		}
		return out
	default:
		return v
	}
}
