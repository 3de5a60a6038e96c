// Package intent implements rule-based intent classification and entity
// extraction for inbound support messages. It is the leaf of the integration
// query pipeline: given a free-text user message it produces a QueryIntent
// that tells the data fetcher which synced record types are worth querying.
//
// Classification is deliberately not a learned model. Patterns are static
// data (compiled once at package init), evaluation order is fixed, and the
// confidence per category is a constant — order-related rules win ties
// because order questions are both the most common and the most specific.
// Non-English input simply degrades to TypeGeneral with low confidence.
package intent

import (
	"regexp"
	"strings"
)

// Type is the closed set of recognized query intents.
type Type string

// Recognized intent types. TypeGeneral is the fallback when no pattern matches.
const (
	TypeOrderStatus         Type = "order_status"
	TypeOrderTracking       Type = "order_tracking"
	TypeProductInfo         Type = "product_info"
	TypeProductAvailability Type = "product_availability"
	TypePricingInfo         Type = "pricing_info"
	TypeContactInfo         Type = "contact_info"
	TypeAccountInfo         Type = "account_info"
	TypeDealInfo            Type = "deal_info"
	TypeDealStatus          Type = "deal_status"
	TypePaymentInfo         Type = "payment_info"
	TypeShippingInfo        Type = "shipping_info"
	TypeReturnRefund        Type = "return_refund"
	TypeGeneral             Type = "general"
)

// Per-category confidence constants. These are fixed by design — confidence
// reflects the category's pattern specificity, not match strength, and the
// exact values are relied on by downstream thresholds.
const (
	ConfidenceOrder   = 0.9
	ConfidenceProduct = 0.8
	ConfidenceContact = 0.8
	ConfidenceDeal    = 0.8
	ConfidenceGeneral = 0.3
)

// QueryIntent is the classification result for a single message. It is
// created fresh per request, never mutated after Classify returns, and
// discarded after the prompt is built.
type QueryIntent struct {
	Type       Type          `json:"type"`
	Confidence float64       `json:"confidence"`
	Keywords   []string      `json:"keywords,omitempty"`
	Entities   QueryEntities `json:"entities"`
	Context    string        `json:"context,omitempty"`
}

// rule couples one intent type with its trigger patterns and the plain
// keywords recorded on a hit. Rules are evaluated in declaration order;
// the first rule with at least one matching pattern wins.
type rule struct {
	intent     Type
	confidence float64
	keywords   []string
	patterns   []*regexp.Regexp
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, regexp.MustCompile(e))
	}
	return out
}

// rules is the ordered classification table. Order questions are checked
// first, then products, contacts, and deals; new intents are added here,
// not as control flow.
var rules = []rule{
	{
		intent:     TypeReturnRefund,
		confidence: ConfidenceOrder,
		keywords:   []string{"refund", "return", "exchange"},
		patterns: compileAll(
			`(?i)\brefund\b`,
			`(?i)\breturn(ing|ed)?\b.*\b(order|item|purchase|product)\b`,
			`(?i)\bmoney\s+back\b`,
			`(?i)\bexchange\b.*\b(item|order|product)\b`,
		),
	},
	{
		intent:     TypeOrderTracking,
		confidence: ConfidenceOrder,
		keywords:   []string{"track", "tracking", "shipped"},
		patterns: compileAll(
			`(?i)\btrack(ing)?\b`,
			`(?i)\bwhere\s+is\s+my\s+(order|package|delivery)\b`,
			`(?i)\b(has|was)\s+(it|my\s+order)\s+shipped\b`,
		),
	},
	{
		intent:     TypeShippingInfo,
		confidence: ConfidenceOrder,
		keywords:   []string{"shipping", "delivery"},
		patterns: compileAll(
			`(?i)\bshipping\b`,
			`(?i)\bdeliver(y|ed)?\s+(time|date|estimate|when)\b`,
			`(?i)\bwhen\s+will\s+.*\b(arrive|deliver)`,
		),
	},
	{
		intent:     TypePaymentInfo,
		confidence: ConfidenceOrder,
		keywords:   []string{"payment", "charged", "invoice", "billing"},
		patterns: compileAll(
			`(?i)\bpayment\b`,
			`(?i)\b(was|been)\s+charged\b`,
			`(?i)\binvoice\b`,
			`(?i)\bbilling\b`,
		),
	},
	{
		intent:     TypeOrderStatus,
		confidence: ConfidenceOrder,
		keywords:   []string{"order", "purchase"},
		patterns: compileAll(
			`(?i)\border\b`,
			`#\d{4,}`,
			`(?i)\bmy\s+purchase\b`,
			`(?i)\bstatus\s+of\s+my\b`,
		),
	},
	{
		intent:     TypeProductAvailability,
		confidence: ConfidenceProduct,
		keywords:   []string{"stock", "available", "availability"},
		patterns: compileAll(
			`(?i)\bin\s+stock\b`,
			`(?i)\bavailab(le|ility)\b`,
			`(?i)\bsold\s+out\b`,
			`(?i)\bback\s+in\s+stock\b`,
		),
	},
	{
		intent:     TypePricingInfo,
		confidence: ConfidenceProduct,
		keywords:   []string{"price", "cost"},
		patterns: compileAll(
			`(?i)\bprice\b`,
			`(?i)\bhow\s+much\s+(is|does|for)\b`,
			`(?i)\bcost(s)?\b`,
			`(?i)\bdiscount\b`,
		),
	},
	{
		intent:     TypeProductInfo,
		confidence: ConfidenceProduct,
		keywords:   []string{"product", "item", "sku"},
		patterns: compileAll(
			`(?i)\bproduct\b`,
			`(?i)\btell\s+me\s+about\s+the\b`,
			`(?i)\bsku\b`,
			`(?i)\bspecs?\b`,
		),
	},
	{
		intent:     TypeAccountInfo,
		confidence: ConfidenceContact,
		keywords:   []string{"account", "profile"},
		patterns: compileAll(
			`(?i)\bmy\s+account\b`,
			`(?i)\bmy\s+(profile|details|information)\b`,
			`(?i)\bupdate\s+my\b`,
		),
	},
	{
		intent:     TypeContactInfo,
		confidence: ConfidenceContact,
		keywords:   []string{"contact", "email", "phone"},
		patterns: compileAll(
			`(?i)\bcontact\b`,
			`(?i)\b(email|e-mail)\s+address\b`,
			`(?i)\bphone\s+number\b`,
			`(?i)\breach\s+(me|us|them)\b`,
		),
	},
	{
		intent:     TypeDealStatus,
		confidence: ConfidenceDeal,
		keywords:   []string{"deal", "stage", "pipeline"},
		patterns: compileAll(
			`(?i)\bdeal\b.*\b(stage|status|progress)\b`,
			`(?i)\bpipeline\b`,
			`(?i)\b(stage|status)\b.*\bdeal\b`,
		),
	},
	{
		intent:     TypeDealInfo,
		confidence: ConfidenceDeal,
		keywords:   []string{"deal", "opportunity", "quote"},
		patterns: compileAll(
			`(?i)\bdeal\b`,
			`(?i)\bopportunit(y|ies)\b`,
			`(?i)\bquote\b`,
		),
	},
}

// Classify evaluates the ordered rule table against message and returns the
// first matching intent, populated with matched keywords and extracted
// entities. It is pure and never fails: when nothing matches it returns
// TypeGeneral with ConfidenceGeneral.
func Classify(message string) QueryIntent {
	for _, r := range rules {
		matched := false
		for _, p := range r.patterns {
			if p.MatchString(message) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		return QueryIntent{
			Type:       r.intent,
			Confidence: r.confidence,
			Keywords:   matchedKeywords(message, r.keywords),
			Entities:   Extract(message, r.intent),
		}
	}
	return QueryIntent{
		Type:       TypeGeneral,
		Confidence: ConfidenceGeneral,
		Entities:   Extract(message, TypeGeneral),
	}
}

// matchedKeywords returns the subset of candidate keywords that occur in the
// message (case-insensitive substring check). The result is advisory, used
// for logging and the context summary.
func matchedKeywords(message string, candidates []string) []string {
	lower := strings.ToLower(message)
	var out []string
	for _, k := range candidates {
		if strings.Contains(lower, k) {
			out = append(out, k)
		}
	}
	return out
}
