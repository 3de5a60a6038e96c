package intent

import (
	"regexp"
	"strings"
)

// QueryEntities carries the structured values extracted from a message.
// Every field is a pointer: nil means "not mentioned in the message", which
// lets the data fetcher test presence without sentinel values.
type QueryEntities struct {
	OrderNumber *string `json:"order_number,omitempty"`
	Email       *string `json:"email,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	ProductName *string `json:"product_name,omitempty"`
	SKU         *string `json:"sku,omitempty"`
	DealName    *string `json:"deal_name,omitempty"`
	ContactName *string `json:"contact_name,omitempty"`
	Company     *string `json:"company,omitempty"`
}

// Extraction patterns. Each extractor is independent and order-insensitive;
// several may populate different fields of the same QueryEntities value.
var (
	orderNumberRE = regexp.MustCompile(`#?(\d{4,})`)
	emailRE       = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	phoneRE       = regexp.MustCompile(`\+?\d{1,3}[ .\-]?\(?\d{2,4}\)?[ .\-]?\d{3,4}[ .\-]?\d{4}`)
	quotedNameRE  = regexp.MustCompile(`"([^"]+)"`)
	skuRE         = regexp.MustCompile(`\b([A-Z]{2,}[A-Z0-9]*-[A-Z0-9\-]{2,})\b`)
)

// Extract runs the independent entity extractors against message and routes
// ambiguous captures (quoted names) to the field that matches intentType.
// Fields without a match stay nil.
func Extract(message string, intentType Type) QueryEntities {
	var e QueryEntities

	if m := orderNumberRE.FindStringSubmatch(message); m != nil {
		e.OrderNumber = ptr(m[1])
	}
	if m := emailRE.FindString(message); m != "" {
		e.Email = ptr(strings.ToLower(m))
	}
	if m := phoneRE.FindString(message); m != "" && e.OrderNumber == nil {
		// A bare long digit run already captured as an order number is not
		// re-reported as a phone number.
		e.Phone = ptr(m)
	}
	if m := skuRE.FindStringSubmatch(message); m != nil {
		e.SKU = ptr(m[1])
	}

	// Quoted strings name a product, deal, or contact depending on what the
	// user is asking about.
	if m := quotedNameRE.FindStringSubmatch(message); m != nil {
		name := strings.TrimSpace(m[1])
		if name != "" {
			switch intentType {
			case TypeDealInfo, TypeDealStatus:
				e.DealName = ptr(name)
			case TypeContactInfo, TypeAccountInfo:
				e.ContactName = ptr(name)
			default:
				e.ProductName = ptr(name)
			}
		}
	}

	return e
}

func ptr(s string) *string { return &s }
