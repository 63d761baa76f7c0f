package platform

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/aureon-one/mediaplan-api/internal/models"
)

// ========================================
// Unix timestamp conversion
// ========================================

func TestPinterestUnixTime(t *testing.T) {
	got := pinterestUnixTime(1700000000)
	if got == nil {
		t.Fatal("expected non-nil time")
	}
	want := time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("pinterestUnixTime(1700000000) = %v, want %v", got, want)
	}
	if got.Location() != time.UTC {
		t.Errorf("expected UTC, got %v", got.Location())
	}

	if pinterestUnixTime(0) != nil {
		t.Error("zero timestamp should map to nil")
	}
}

// ========================================
// Campaigns
// ========================================

func TestPinterestConnector_FetchCampaigns(t *testing.T) {
	body := `{"items":[
		{"id":"626001","name":"Holiday Pins","status":"ACTIVE","objective_type":"AWARENESS",
		 "daily_spend_cap":25000000,"start_time":1700000000}
	]}`
	var captured http.Request
	srv := newTestServer(t, http.StatusOK, body, &captured)

	c := NewPinterestConnector(Credentials{AccessToken: "tok", AccountID: "549000"}, Options{BaseURL: srv.URL})
	campaigns, err := c.FetchCampaigns(context.Background())
	if err != nil {
		t.Fatalf("FetchCampaigns failed: %v", err)
	}
	if len(campaigns) != 1 {
		t.Fatalf("expected 1 campaign, got %d", len(campaigns))
	}

	campaign := campaigns[0]
	if campaign.ID != "626001" || campaign.Status != "ACTIVE" {
		t.Errorf("unexpected campaign: %+v", campaign)
	}
	if campaign.Platform != models.PlatformPinterest {
		t.Errorf("expected platform PINTEREST, got %q", campaign.Platform)
	}
	if campaign.DailyBudget == nil || *campaign.DailyBudget != 25.00 {
		t.Errorf("expected daily budget 25.00 from micro units, got %v", campaign.DailyBudget)
	}
	if campaign.StartTime == nil {
		t.Fatal("expected start time from unix seconds")
	}
	if got := campaign.StartTime.Format(time.RFC3339); got != "2023-11-14T22:13:20Z" {
		t.Errorf("expected 2023-11-14T22:13:20Z, got %q", got)
	}

	if got := captured.Header.Get("Authorization"); got != "Bearer tok" {
		t.Errorf("expected bearer auth, got %q", got)
	}
	if captured.URL.Path != "/ad_accounts/549000/campaigns" {
		t.Errorf("unexpected path %q", captured.URL.Path)
	}
}

// ========================================
// Analytics
// ========================================

func TestPinterestConnector_FetchCampaignMetrics(t *testing.T) {
	body := `[
		{"DATE":"2024-06-01","IMPRESSION_1":4000,"CLICKTHROUGH_1":80,"SPEND_IN_MICRO_DOLLAR":12000000}
	]`
	srv := newTestServer(t, http.StatusOK, body, nil)

	c := NewPinterestConnector(Credentials{AccessToken: "tok", AccountID: "549000"}, Options{BaseURL: srv.URL})
	metrics, err := c.FetchCampaignMetrics(context.Background(), "626001", models.DateRange{Since: "2024-06-01", Until: "2024-06-07"})
	if err != nil {
		t.Fatalf("FetchCampaignMetrics failed: %v", err)
	}
	if len(metrics) != 1 {
		t.Fatalf("expected 1 row, got %d", len(metrics))
	}

	m := metrics[0]
	if m.Date != "2024-06-01" || m.Impressions != 4000 || m.Clicks != 80 {
		t.Errorf("unexpected metrics: %+v", m)
	}
	if m.Spend != 12.00 {
		t.Errorf("expected spend 12.00 from micro dollars, got %f", m.Spend)
	}
}
