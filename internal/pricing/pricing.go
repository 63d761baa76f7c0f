// Package pricing defines the operation rate table and cost calculation.
// Rates are versioned: every usage log is stamped with the version that
// priced it so historical records stay auditable after a rate change.
package pricing

import (
	"fmt"
	"math"
)

// Engine groups operations by the product surface that exposes them.
const (
	EngineAnalyser  = "analyser"
	EngineOptimiser = "optimiser"
)

// Metered operations.
const (
	OpGeoAnalysis    = "GEO_ANALYSIS"
	OpKeywordLookup  = "KEYWORD_LOOKUP"
	OpSerpAnalysis   = "SERP_ANALYSIS"
	OpBacklinkCheck  = "BACKLINK_CHECK"
	OpDomainOverview = "DOMAIN_OVERVIEW"
	OpPlatformSync   = "PLATFORM_SYNC"
)

// Rate is the pricing for one operation type.
type Rate struct {
	APICostUSD float64 `json:"api_cost_usd"` // raw upstream cost per unit
	Markup     float64 `json:"markup"`       // multiplier applied to raw cost
	Credits    int     `json:"credits"`      // credits deducted per unit
	Engine     string  `json:"engine"`
}

// Table is a complete versioned rate table. ExchangeRate, when positive,
// overrides the caller's USD to INR rate so a published table can pin the
// rate its prices were set at.
type Table struct {
	Version      string
	Rates        map[string]Rate
	ExchangeRate float64
}

// defaultRates are the compiled-in rates, used when no pricing version has
// been loaded from the database or object storage.
var defaultRates = map[string]Rate{
	OpGeoAnalysis:    {APICostUSD: 0.05, Markup: 2.0, Credits: 25, Engine: EngineAnalyser},
	OpKeywordLookup:  {APICostUSD: 0.002, Markup: 2.5, Credits: 1, Engine: EngineAnalyser},
	OpSerpAnalysis:   {APICostUSD: 0.012, Markup: 2.5, Credits: 5, Engine: EngineAnalyser},
	OpBacklinkCheck:  {APICostUSD: 0.02, Markup: 2.0, Credits: 8, Engine: EngineAnalyser},
	OpDomainOverview: {APICostUSD: 0.03, Markup: 2.0, Credits: 10, Engine: EngineAnalyser},
	OpPlatformSync:   {APICostUSD: 0.0, Markup: 1.0, Credits: 2, Engine: EngineOptimiser},
}

// DefaultTable returns the compiled-in rate table.
func DefaultTable() Table {
	rates := make(map[string]Rate, len(defaultRates))
	for op, r := range defaultRates {
		rates[op] = r
	}
	return Table{Version: "builtin", Rates: rates}
}

// Cost is a fully computed price for an operation.
type Cost struct {
	Operation  string
	Units      int
	APICostUSD float64 // raw cost for all units
	MarkupUSD  float64 // margin on top of raw cost
	TotalUSD   float64
	TotalINR   float64
	Credits    int
	Version    string
}

// Calculate prices an operation against the table. usdToINR converts the
// total for record keeping; the table's own ExchangeRate wins when set.
// Units below 1 are treated as 1.
func (t Table) Calculate(operation string, units int, usdToINR float64) (Cost, error) {
	rate, ok := t.Rates[operation]
	if !ok {
		return Cost{}, fmt.Errorf("unknown operation: %s", operation)
	}
	if units < 1 {
		units = 1
	}
	if t.ExchangeRate > 0 {
		usdToINR = t.ExchangeRate
	}

	apiCost := rate.APICostUSD * float64(units)
	total := apiCost * rate.Markup
	markup := total - apiCost

	return Cost{
		Operation:  operation,
		Units:      units,
		APICostUSD: round6(apiCost),
		MarkupUSD:  round6(markup),
		TotalUSD:   round6(total),
		TotalINR:   round6(total * usdToINR),
		Credits:    rate.Credits * units,
		Version:    t.Version,
	}, nil
}

// CreditsFor returns the credit cost for one unit of an operation, or 0 if
// the operation is unknown.
func (t Table) CreditsFor(operation string) int {
	return t.Rates[operation].Credits
}

// Has reports whether the table prices the operation.
func (t Table) Has(operation string) bool {
	_, ok := t.Rates[operation]
	return ok
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
