package repository

import (
	"context"
	"encoding/json"
	"testing"
)

func TestPricingRepository_SeededVersion(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	active, err := repos.Pricing.GetActive(ctx)
	if err != nil {
		t.Fatalf("GetActive() error = %v", err)
	}
	if active == nil {
		t.Fatal("migrations should seed an active pricing version")
	}

	var rates map[string]struct {
		Credits int `json:"credits"`
	}
	if err := json.Unmarshal([]byte(active.RatesJSON), &rates); err != nil {
		t.Fatalf("seeded rates_json is not valid JSON: %v", err)
	}
	if rates["GEO_ANALYSIS"].Credits != 25 {
		t.Errorf("seeded GEO_ANALYSIS credits = %d, want 25", rates["GEO_ANALYSIS"].Credits)
	}
}

func TestPricingRepository_Activate(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	newRates := `{"GEO_ANALYSIS":{"api_cost_usd":0.06,"markup":2.0,"credits":30,"engine":"analyser"}}`
	if err := repos.Pricing.Activate(ctx, "2026-06-01", newRates); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}

	active, err := repos.Pricing.GetActive(ctx)
	if err != nil {
		t.Fatalf("GetActive() error = %v", err)
	}
	if active.Version != "2026-06-01" {
		t.Errorf("active version = %q, want 2026-06-01", active.Version)
	}

	versions, err := repos.Pricing.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("version count = %d, want 2", len(versions))
	}

	activeCount := 0
	for _, v := range versions {
		if v.Active {
			activeCount++
		}
	}
	if activeCount != 1 {
		t.Errorf("active count = %d, want exactly 1", activeCount)
	}
}
