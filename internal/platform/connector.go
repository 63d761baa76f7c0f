// Package platform provides a uniform connector abstraction over ad
// platform APIs. Each connector maps vendor payloads into the normalized
// shapes in the models package; all vendor-specific quirks (unit
// conversions, header requirements, response nesting) stay inside the
// adapter that owns them.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aureon-one/mediaplan-api/internal/models"
)

// Capabilities declares which operations a connector actually implements.
// Methods outside the declared capabilities return ErrNotImplemented.
type Capabilities struct {
	Campaigns    bool `json:"campaigns"`
	Metrics      bool `json:"metrics"`
	AdSets       bool `json:"ad_sets"`
	Ads          bool `json:"ads"`
	BudgetUpdate bool `json:"budget_update"`
	StatusUpdate bool `json:"status_update"`
}

// Credentials carries the decrypted tokens a connector needs for one
// account. It only ever lives in memory.
type Credentials struct {
	AccessToken    string
	RefreshToken   string
	AccountID      string
	DeveloperToken string // Google Ads only
	ExpiresAt      *time.Time
}

// Connector is the uniform interface over ad platform APIs.
type Connector interface {
	Platform() string
	Capabilities() Capabilities

	FetchCampaigns(ctx context.Context) ([]models.Campaign, error)
	FetchCampaignMetrics(ctx context.Context, campaignID string, dateRange models.DateRange) ([]models.Metrics, error)
	FetchAdSets(ctx context.Context, campaignID string) ([]models.AdSet, error)
	FetchAds(ctx context.Context, adSetID string) ([]models.Ad, error)

	UpdateCampaignBudget(ctx context.Context, campaignID string, dailyBudget float64) error
	UpdateCampaignStatus(ctx context.Context, campaignID, status string) error
}

// Options configures connector construction. BaseURL overrides the
// platform's production endpoint, used in tests.
type Options struct {
	HTTPClient *http.Client
	Logger     *slog.Logger
	BaseURL    string
}

func (o Options) withDefaults() Options {
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// doRaw performs an HTTP request with an optional JSON body and returns
// the raw response bytes. Non-2xx responses become *APIError.
func doRaw(ctx context.Context, client *http.Client, platformName, method, url string, headers map[string]string, body any) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Platform: platformName, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, nil
}

// doJSON performs an HTTP request with a JSON body and decodes a JSON
// response into out.
func doJSON(ctx context.Context, client *http.Client, platformName, method, url string, headers map[string]string, body, out any) error {
	respBody, err := doRaw(ctx, client, platformName, method, url, headers, body)
	if err != nil {
		return err
	}
	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return err
		}
	}
	return nil
}
