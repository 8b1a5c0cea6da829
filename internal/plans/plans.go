// Package plans is the static catalog mapping sold products to plan
// types and their capability limits.
package plans

import (
	"fmt"
	"strings"
)

// Plan type identifiers, matching the product tiers sold at checkout.
const (
	Basico          = "basico"
	ComAudio        = "com_audio"
	MultiMensagem   = "multi_mensagem"
	PremiumHistoria = "premium_historia"
)

// PlanConfig defines the capability limits of one plan tier.
type PlanConfig struct {
	PlanType        string
	MaxMessages     int
	HasAudio        bool
	HasImages       bool
	HasPresentation bool
	AudioCharLimit  int
	Label           string
	Price           int
}

var catalog = map[string]PlanConfig{
	Basico: {
		PlanType:    Basico,
		MaxMessages: 1,
		Label:       "Mensagem Anônima",
		Price:       6,
	},
	ComAudio: {
		PlanType:       ComAudio,
		MaxMessages:    1,
		HasAudio:       true,
		AudioCharLimit: 500,
		Label:          "Mensagem + Áudio",
		Price:          14,
	},
	MultiMensagem: {
		PlanType:       MultiMensagem,
		MaxMessages:    5,
		HasAudio:       true,
		AudioCharLimit: 500,
		Label:          "Múltiplas Mensagens",
		Price:          15,
	},
	PremiumHistoria: {
		PlanType:        PremiumHistoria,
		MaxMessages:     1,
		HasAudio:        true,
		HasImages:       true,
		HasPresentation: true,
		AudioCharLimit:  500,
		Label:           "História Premium",
		Price:           25,
	},
}

// productIDMap maps checkout product IDs to plan types. Populated with
// the live product IDs via deployment configuration of the storefront.
var productIDMap = map[string]string{}

// productNameMap is the keyword fallback when the product ID is unknown.
// Keys are matched as case-insensitive substrings of the product name.
var productNameMap = []struct {
	keyword string
	plan    string
}{
	{"cupido basico", Basico},
	{"cupido com audio", ComAudio},
	{"cupido audio", ComAudio},
	{"cupido multi", MultiMensagem},
	{"cupido multiplas", MultiMensagem},
	{"cupido premium", PremiumHistoria},
	{"cupido historia", PremiumHistoria},
}

// Resolve determines the plan type from checkout product info. An exact
// product ID match wins, then a keyword match on the product name, then
// the base plan.
func Resolve(productID, productName string) string {
	if productID != "" {
		if plan, ok := productIDMap[productID]; ok {
			return plan
		}
	}

	if productName != "" {
		nameLower := strings.ToLower(strings.TrimSpace(productName))
		for _, entry := range productNameMap {
			if strings.Contains(nameLower, entry.keyword) {
				return entry.plan
			}
		}
	}

	return Basico
}

// Config returns the configuration for a plan type. Unknown plan types
// are a programming error, not a runtime case.
func Config(planType string) PlanConfig {
	cfg, ok := catalog[planType]
	if !ok {
		panic(fmt.Sprintf("plans: unknown plan type %q", planType))
	}
	return cfg
}
