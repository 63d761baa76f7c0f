package platform

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/aureon-one/mediaplan-api/internal/models"
)

// ========================================
// Date triple formatting
// ========================================

func TestLinkedInDate_String(t *testing.T) {
	tests := []struct {
		name string
		date linkedInDate
		want string
	}{
		{"single digit month and day", linkedInDate{Year: 2024, Month: 1, Day: 15}, "2024-01-15"},
		{"double digits", linkedInDate{Year: 2023, Month: 11, Day: 30}, "2023-11-30"},
		{"first of year", linkedInDate{Year: 2024, Month: 1, Day: 1}, "2024-01-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.date.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

// ========================================
// Campaigns
// ========================================

func TestLinkedInConnector_FetchCampaigns(t *testing.T) {
	body := `{"elements":[
		{"id":5501,"name":"Lead Gen Q1","status":"ACTIVE","type":"SPONSORED_UPDATES","dailyBudget":{"amount":"75.00","currencyCode":"USD"}}
	]}`
	var captured http.Request
	srv := newTestServer(t, http.StatusOK, body, &captured)

	c := NewLinkedInConnector(Credentials{AccessToken: "tok", AccountID: "506789"}, Options{BaseURL: srv.URL})
	campaigns, err := c.FetchCampaigns(context.Background())
	if err != nil {
		t.Fatalf("FetchCampaigns failed: %v", err)
	}
	if len(campaigns) != 1 {
		t.Fatalf("expected 1 campaign, got %d", len(campaigns))
	}

	campaign := campaigns[0]
	if campaign.ID != "5501" {
		t.Errorf("numeric id should become string, got %q", campaign.ID)
	}
	if campaign.DailyBudget == nil || *campaign.DailyBudget != 75.00 {
		t.Errorf("expected daily budget 75.00, got %v", campaign.DailyBudget)
	}
	if campaign.Platform != models.PlatformLinkedIn {
		t.Errorf("expected platform LINKEDIN, got %q", campaign.Platform)
	}

	if got := captured.Header.Get("X-Restli-Protocol-Version"); got != "2.0.0" {
		t.Errorf("expected Restli header, got %q", got)
	}
	if got := captured.Header.Get("LinkedIn-Version"); got != "202401" {
		t.Errorf("expected LinkedIn-Version header, got %q", got)
	}
}

// ========================================
// Analytics with date triples
// ========================================

func TestLinkedInConnector_FetchCampaignMetrics(t *testing.T) {
	body := `{"elements":[
		{"dateRange":{"start":{"year":2024,"month":1,"day":15},"end":{"year":2024,"month":1,"day":15}},
		 "impressions":8000,"clicks":120,"costInLocalCurrency":"42.75"}
	]}`
	srv := newTestServer(t, http.StatusOK, body, nil)

	c := NewLinkedInConnector(Credentials{AccessToken: "tok", AccountID: "506789"}, Options{BaseURL: srv.URL})
	metrics, err := c.FetchCampaignMetrics(context.Background(), "5501", models.DateRange{Since: "2024-01-01", Until: "2024-01-31"})
	if err != nil {
		t.Fatalf("FetchCampaignMetrics failed: %v", err)
	}
	if len(metrics) != 1 {
		t.Fatalf("expected 1 row, got %d", len(metrics))
	}

	m := metrics[0]
	if m.Date != "2024-01-15" {
		t.Errorf("date triple {2024,1,15} should format as 2024-01-15, got %q", m.Date)
	}
	if m.Impressions != 8000 || m.Clicks != 120 || m.Spend != 42.75 {
		t.Errorf("unexpected metrics: %+v", m)
	}
}

func TestLinkedInConnector_UnsupportedOperations(t *testing.T) {
	c := NewLinkedInConnector(Credentials{}, Options{})

	if _, err := c.FetchAdSets(context.Background(), "5501"); !errors.Is(err, ErrNotImplemented) {
		t.Errorf("FetchAdSets: expected ErrNotImplemented, got %v", err)
	}
	if _, err := c.FetchAds(context.Background(), "x"); !errors.Is(err, ErrNotImplemented) {
		t.Errorf("FetchAds: expected ErrNotImplemented, got %v", err)
	}
	if err := c.UpdateCampaignBudget(context.Background(), "5501", 10); !errors.Is(err, ErrNotImplemented) {
		t.Errorf("UpdateCampaignBudget: expected ErrNotImplemented, got %v", err)
	}
}
