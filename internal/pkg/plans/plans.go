// Package plans holds the fixed subscription tiers offered on the site.
package plans

import (
	"strings"

	"github.com/fitcoach/fitcoach/internal/pkg/env"
)

const (
	KeyBasic    = "basic"
	KeyStandard = "standard"
	KeyVIP      = "vip"
)

// Plan is one subscription tier. Price is in major currency units.
type Plan struct {
	Key         string   `json:"key"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Currency    string   `json:"currency"`
	Interval    string   `json:"interval"`
	PriceID     string   `json:"price_id"`
	Features    []string `json:"features"`
	Popular     bool     `json:"popular"`
}

// Registry is an immutable lookup of plans by key and by provider price id.
type Registry struct {
	ordered []Plan
	byKey   map[string]Plan
	byPrice map[string]Plan
}

// NewRegistry builds a registry. Later plans with a duplicate key are ignored.
func NewRegistry(list ...Plan) *Registry {
	r := &Registry{
		byKey:   make(map[string]Plan, len(list)),
		byPrice: make(map[string]Plan, len(list)),
	}
	for _, p := range list {
		key := normalizeKey(p.Key)
		if key == "" {
			continue
		}
		if _, dup := r.byKey[key]; dup {
			continue
		}
		p.Key = key
		p.Features = append([]string(nil), p.Features...)
		r.ordered = append(r.ordered, p)
		r.byKey[key] = p
		if id := strings.TrimSpace(p.PriceID); id != "" {
			r.byPrice[id] = p
		}
	}
	return r
}

// NewRegistryFromEnv builds the standard three-tier registry with price ids
// from STRIPE_PRICE_BASIC, STRIPE_PRICE_STANDARD and STRIPE_PRICE_VIP.
func NewRegistryFromEnv() *Registry {
	return NewRegistry(
		Plan{
			Key:         KeyBasic,
			Name:        "Basic Coaching",
			Description: "A personalised training plan with monthly check-ins.",
			Price:       49,
			Currency:    "usd",
			Interval:    "month",
			PriceID:     strings.TrimSpace(env.GetEnv("STRIPE_PRICE_BASIC", "")),
			Features: []string{
				"Custom training program",
				"Monthly progress check-in",
				"Exercise video library",
			},
		},
		Plan{
			Key:         KeyStandard,
			Name:        "Standard Coaching",
			Description: "Training and nutrition coaching with weekly feedback.",
			Price:       99,
			Currency:    "usd",
			Interval:    "month",
			PriceID:     strings.TrimSpace(env.GetEnv("STRIPE_PRICE_STANDARD", "")),
			Features: []string{
				"Everything in Basic",
				"Nutrition plan",
				"Weekly check-ins",
				"Chat support",
			},
			Popular: true,
		},
		Plan{
			Key:         KeyVIP,
			Name:        "VIP Coaching",
			Description: "One-to-one coaching with daily access to your coach.",
			Price:       199,
			Currency:    "usd",
			Interval:    "month",
			PriceID:     strings.TrimSpace(env.GetEnv("STRIPE_PRICE_VIP", "")),
			Features: []string{
				"Everything in Standard",
				"Daily coach access",
				"Video form reviews",
				"Priority scheduling",
			},
		},
	)
}

// Get returns the plan for a key.
func (r *Registry) Get(key string) (Plan, bool) {
	p, ok := r.byKey[normalizeKey(key)]
	return p, ok
}

// IsValid reports whether key names a known plan.
func (r *Registry) IsValid(key string) bool {
	_, ok := r.Get(key)
	return ok
}

// ByPriceID reverse-looks-up a plan from a provider price id.
func (r *Registry) ByPriceID(priceID string) (Plan, bool) {
	p, ok := r.byPrice[strings.TrimSpace(priceID)]
	return p, ok
}

// All returns the plans in display order.
func (r *Registry) All() []Plan {
	out := make([]Plan, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Keys returns the known plan keys in display order.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.ordered))
	for _, p := range r.ordered {
		keys = append(keys, p.Key)
	}
	return keys
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
