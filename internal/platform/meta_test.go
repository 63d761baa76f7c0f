package platform

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aureon-one/mediaplan-api/internal/models"
)

// newTestServer serves fixed JSON and captures the request for assertions.
func newTestServer(t *testing.T, status int, body string, capture *http.Request) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if capture != nil {
			*capture = *r
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// ========================================
// Campaign mapping
// ========================================

func TestMetaConnector_FetchCampaigns(t *testing.T) {
	body := `{"data":[
		{"id":"120001","name":"Summer Launch","status":"ACTIVE","objective":"OUTCOME_TRAFFIC","daily_budget":"5000","start_time":"2024-06-01T00:00:00+0000"},
		{"id":"120002","name":"Evergreen","status":"PAUSED","lifetime_budget":"250000"}
	]}`
	var captured http.Request
	srv := newTestServer(t, http.StatusOK, body, &captured)

	c := NewMetaConnector(Credentials{AccessToken: "tok", AccountID: "act123"}, Options{BaseURL: srv.URL})
	campaigns, err := c.FetchCampaigns(context.Background())
	if err != nil {
		t.Fatalf("FetchCampaigns failed: %v", err)
	}
	if len(campaigns) != 2 {
		t.Fatalf("expected 2 campaigns, got %d", len(campaigns))
	}

	first := campaigns[0]
	if first.ID != "120001" || first.Name != "Summer Launch" || first.Status != "ACTIVE" {
		t.Errorf("unexpected campaign: %+v", first)
	}
	if first.Platform != models.PlatformMeta {
		t.Errorf("expected platform META, got %q", first.Platform)
	}
	if first.DailyBudget == nil || *first.DailyBudget != 50.00 {
		t.Errorf("expected daily budget 50.00 from cents string, got %v", first.DailyBudget)
	}
	if first.LifetimeBudget != nil {
		t.Errorf("expected nil lifetime budget, got %v", *first.LifetimeBudget)
	}

	second := campaigns[1]
	if second.DailyBudget != nil {
		t.Errorf("missing daily_budget should map to nil, got %v", *second.DailyBudget)
	}
	if second.LifetimeBudget == nil || *second.LifetimeBudget != 2500.00 {
		t.Errorf("expected lifetime budget 2500.00, got %v", second.LifetimeBudget)
	}

	if got := captured.URL.Query().Get("access_token"); got != "tok" {
		t.Errorf("expected access_token query param, got %q", got)
	}
	if captured.URL.Path != "/act_act123/campaigns" {
		t.Errorf("unexpected path %q", captured.URL.Path)
	}
}

func TestMetaCentsToMajor(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  *float64
	}{
		{"standard cents", "5000", ptr(50.00)},
		{"single cent", "1", ptr(0.01)},
		{"missing", "", nil},
		{"garbage", "abc", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := metaCentsToMajor(tt.input)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("metaCentsToMajor(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if got != nil && *got != *tt.want {
				t.Errorf("metaCentsToMajor(%q) = %f, want %f", tt.input, *got, *tt.want)
			}
		})
	}
}

func ptr(v float64) *float64 { return &v }

// ========================================
// Metrics
// ========================================

func TestMetaConnector_FetchCampaignMetrics(t *testing.T) {
	body := `{"data":[
		{"date_start":"2024-06-01","impressions":"1200","clicks":"36","spend":"18.50","ctr":"3.0","cpc":"0.51"}
	]}`
	var captured http.Request
	srv := newTestServer(t, http.StatusOK, body, &captured)

	c := NewMetaConnector(Credentials{AccessToken: "tok", AccountID: "act123"}, Options{BaseURL: srv.URL})
	metrics, err := c.FetchCampaignMetrics(context.Background(), "120001", models.DateRange{Since: "2024-06-01", Until: "2024-06-07"})
	if err != nil {
		t.Fatalf("FetchCampaignMetrics failed: %v", err)
	}
	if len(metrics) != 1 {
		t.Fatalf("expected 1 row, got %d", len(metrics))
	}

	m := metrics[0]
	if m.Date != "2024-06-01" || m.Impressions != 1200 || m.Clicks != 36 || m.Spend != 18.50 {
		t.Errorf("unexpected metrics: %+v", m)
	}
	if got := captured.URL.Query().Get("time_range"); got != `{"since":"2024-06-01","until":"2024-06-07"}` {
		t.Errorf("unexpected time_range %q", got)
	}
}

// ========================================
// Errors
// ========================================

func TestMetaConnector_APIError(t *testing.T) {
	srv := newTestServer(t, http.StatusBadRequest, `{"error":{"message":"Invalid OAuth access token"}}`, nil)

	c := NewMetaConnector(Credentials{AccessToken: "bad"}, Options{BaseURL: srv.URL})
	_, err := c.FetchCampaigns(context.Background())
	if err == nil {
		t.Fatal("expected error for 400 response")
	}

	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.Platform != models.PlatformMeta || apiErr.StatusCode != http.StatusBadRequest {
		t.Errorf("unexpected error: %+v", apiErr)
	}
}

func TestMetaConnector_Capabilities(t *testing.T) {
	c := NewMetaConnector(Credentials{}, Options{})
	caps := c.Capabilities()
	if !caps.Campaigns || !caps.Metrics || !caps.AdSets || !caps.Ads || !caps.BudgetUpdate || !caps.StatusUpdate {
		t.Errorf("Meta should support all operations, got %+v", caps)
	}
}
