// Package options models the host-supplied checkout configuration and builds
// the widget's initialization payload from it. The payload is opaque to the
// rest of the system: it is serialized and injected into the widget verbatim.
package options

import (
	"github.com/yourorg/checkout-widget/internal/session"
)

// MaxNotes is the widget's limit on notes entries.
const MaxNotes = 15

// Prefill pre-populates the widget's customer fields.
type Prefill struct {
	Name    string
	Email   string
	Contact string
}

// Theme controls the widget's appearance.
type Theme struct {
	Color string
}

// CheckoutOptions is the host-supplied configuration for one checkout.
// Amount is in the smallest currency unit. Exactly one of OrderID or
// SubscriptionID must be set; the contract monitor enforces this when the
// bridge serializes the payload.
type CheckoutOptions struct {
	Key            string
	Amount         int64
	Currency       string
	OrderID        string
	SubscriptionID string
	Name           string
	Description    string
	Image          string
	Prefill        Prefill
	Notes          map[string]string
	Theme          Theme
	Extra          map[string]any // forwarded to the widget verbatim
}

// Builder assembles the widget initialization payload from host options and
// host-level defaults.
type Builder struct {
	hosts session.HostConfigRepository // may be nil: no defaults applied
}

// NewBuilder creates a Builder. hosts may be nil.
func NewBuilder(hosts session.HostConfigRepository) *Builder {
	return &Builder{hosts: hosts}
}

// Build produces the initialization document for the widget. Required fields
// are always emitted, even when zero, so that contract validation reports the
// actual violation instead of a missing-field artifact. The handler field is
// owned by the bridge and is not set here.
func (b *Builder) Build(opts CheckoutOptions) map[string]any {
	doc := make(map[string]any, len(opts.Extra)+8)
	for k, v := range opts.Extra {
		doc[k] = v
	}

	var defaults session.HostConfig
	if b.hosts != nil {
		if cfg, err := b.hosts.Get(opts.Key); err == nil {
			defaults = cfg
		}
	}

	doc["key"] = opts.Key
	doc["amount"] = opts.Amount
	doc["currency"] = firstNonEmpty(opts.Currency, defaults.DefaultCurrency)
	if opts.OrderID != "" {
		doc["order_id"] = opts.OrderID
	}
	if opts.SubscriptionID != "" {
		doc["subscription_id"] = opts.SubscriptionID
	}
	if name := firstNonEmpty(opts.Name, defaults.DisplayName); name != "" {
		doc["name"] = name
	}
	if opts.Description != "" {
		doc["description"] = opts.Description
	}
	if opts.Image != "" {
		doc["image"] = opts.Image
	}
	if opts.Prefill != (Prefill{}) {
		prefill := make(map[string]any, 3)
		if opts.Prefill.Name != "" {
			prefill["name"] = opts.Prefill.Name
		}
		if opts.Prefill.Email != "" {
			prefill["email"] = opts.Prefill.Email
		}
		if opts.Prefill.Contact != "" {
			prefill["contact"] = opts.Prefill.Contact
		}
		doc["prefill"] = prefill
	}
	if len(opts.Notes) > 0 {
		notes := make(map[string]any, len(opts.Notes))
		for k, v := range opts.Notes {
			notes[k] = v
		}
		doc["notes"] = notes
	}
	if color := firstNonEmpty(opts.Theme.Color, defaults.ThemeColor); color != "" {
		doc["theme"] = map[string]any{"color": color}
	}

	return doc
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
