package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/aureon-one/mediaplan-api/internal/models"
)

const googleDefaultBaseURL = "https://googleads.googleapis.com/v16"

var googleCapabilities = Capabilities{
	Campaigns:    true,
	Metrics:      true,
	AdSets:       true,
	Ads:          true,
	BudgetUpdate: false,
	StatusUpdate: true,
}

// GoogleConnector talks to the Google Ads API. It also serves YouTube
// campaigns since those live in the same Google Ads account. Monetary
// amounts come back in micros (one millionth of the currency unit).
type GoogleConnector struct {
	creds   Credentials
	client  *http.Client
	baseURL string
}

// NewGoogleConnector creates a Google Ads connector. The developer token
// from the credentials is sent on every request.
func NewGoogleConnector(creds Credentials, opts Options) *GoogleConnector {
	opts = opts.withDefaults()
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = googleDefaultBaseURL
	}
	return &GoogleConnector{creds: creds, client: opts.HTTPClient, baseURL: baseURL}
}

func (c *GoogleConnector) Platform() string           { return models.PlatformGoogle }
func (c *GoogleConnector) Capabilities() Capabilities { return googleCapabilities }

type googleSearchRequest struct {
	Query string `json:"query"`
}

type googleCampaign struct {
	ResourceName string `json:"resourceName"`
	ID           string `json:"id"`
	Name         string `json:"name"`
	Status       string `json:"status"`
	StartDate    string `json:"startDate,omitempty"`
	EndDate      string `json:"endDate,omitempty"`
}

type googleCampaignBudget struct {
	AmountMicros string `json:"amountMicros,omitempty"`
}

type googleAdGroup struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Status   string `json:"status"`
	Campaign string `json:"campaign,omitempty"`
}

type googleAdGroupAd struct {
	Status string `json:"status"`
	Ad     struct {
		ID   string `json:"id"`
		Name string `json:"name,omitempty"`
	} `json:"ad"`
}

type googleMetrics struct {
	Impressions string  `json:"impressions"`
	Clicks      string  `json:"clicks"`
	CostMicros  string  `json:"costMicros"`
	Conversions float64 `json:"conversions,omitempty"`
}

type googleSegments struct {
	Date string `json:"date"`
}

type googleResultRow struct {
	Campaign       *googleCampaign       `json:"campaign,omitempty"`
	CampaignBudget *googleCampaignBudget `json:"campaignBudget,omitempty"`
	AdGroup        *googleAdGroup        `json:"adGroup,omitempty"`
	AdGroupAd      *googleAdGroupAd      `json:"adGroupAd,omitempty"`
	Metrics        *googleMetrics        `json:"metrics,omitempty"`
	Segments       *googleSegments       `json:"segments,omitempty"`
}

// searchStream responses arrive as an array of batches, each holding
// a results slice.
type googleSearchBatch struct {
	Results []googleResultRow `json:"results"`
}

// googleMicrosToMajor converts a micros string ("3000000") to major
// units (3.00). Missing or malformed values become nil.
func googleMicrosToMajor(s string) *float64 {
	if s == "" {
		return nil
	}
	micros, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	major := float64(micros) / 1_000_000
	return &major
}

func mapGoogleCampaign(row googleResultRow) models.Campaign {
	gc := row.Campaign
	raw, _ := json.Marshal(row)
	campaign := models.Campaign{
		ID:           gc.ID,
		Name:         gc.Name,
		Status:       gc.Status,
		Platform:     models.PlatformGoogle,
		PlatformData: raw,
	}
	if row.CampaignBudget != nil {
		campaign.DailyBudget = googleMicrosToMajor(row.CampaignBudget.AmountMicros)
	}
	return campaign
}

func (c *GoogleConnector) headers() map[string]string {
	h := map[string]string{
		"Authorization":   "Bearer " + c.creds.AccessToken,
		"developer-token": c.creds.DeveloperToken,
	}
	if c.creds.AccountID != "" {
		h["login-customer-id"] = c.creds.AccountID
	}
	return h
}

func (c *GoogleConnector) searchStream(ctx context.Context, query string) ([]googleResultRow, error) {
	u := fmt.Sprintf("%s/customers/%s/googleAds:searchStream", c.baseURL, c.creds.AccountID)

	var batches []googleSearchBatch
	err := doJSON(ctx, c.client, models.PlatformGoogle, http.MethodPost, u, c.headers(), googleSearchRequest{Query: query}, &batches)
	if err != nil {
		return nil, err
	}

	var rows []googleResultRow
	for _, batch := range batches {
		rows = append(rows, batch.Results...)
	}
	return rows, nil
}

func (c *GoogleConnector) FetchCampaigns(ctx context.Context) ([]models.Campaign, error) {
	query := `SELECT campaign.id, campaign.name, campaign.status,
		campaign_budget.amount_micros
		FROM campaign ORDER BY campaign.id`

	rows, err := c.searchStream(ctx, query)
	if err != nil {
		return nil, err
	}

	campaigns := make([]models.Campaign, 0, len(rows))
	for _, row := range rows {
		if row.Campaign == nil {
			continue
		}
		campaigns = append(campaigns, mapGoogleCampaign(row))
	}
	return campaigns, nil
}

func (c *GoogleConnector) FetchCampaignMetrics(ctx context.Context, campaignID string, dateRange models.DateRange) ([]models.Metrics, error) {
	query := fmt.Sprintf(`SELECT segments.date, metrics.impressions, metrics.clicks,
		metrics.cost_micros, metrics.conversions
		FROM campaign
		WHERE campaign.id = %s AND segments.date BETWEEN '%s' AND '%s'
		ORDER BY segments.date`, campaignID, dateRange.Since, dateRange.Until)

	rows, err := c.searchStream(ctx, query)
	if err != nil {
		return nil, err
	}

	metrics := make([]models.Metrics, 0, len(rows))
	for _, row := range rows {
		if row.Metrics == nil {
			continue
		}
		m := models.Metrics{
			Platform:    models.PlatformGoogle,
			Conversions: row.Metrics.Conversions,
		}
		if row.Segments != nil {
			m.Date = row.Segments.Date
		}
		m.Impressions, _ = strconv.ParseInt(row.Metrics.Impressions, 10, 64)
		m.Clicks, _ = strconv.ParseInt(row.Metrics.Clicks, 10, 64)
		if spend := googleMicrosToMajor(row.Metrics.CostMicros); spend != nil {
			m.Spend = *spend
		}
		if m.Impressions > 0 {
			m.CTR = float64(m.Clicks) / float64(m.Impressions) * 100
		}
		if m.Clicks > 0 {
			m.CPC = m.Spend / float64(m.Clicks)
		}
		metrics = append(metrics, m)
	}
	return metrics, nil
}

func (c *GoogleConnector) FetchAdSets(ctx context.Context, campaignID string) ([]models.AdSet, error) {
	query := fmt.Sprintf(`SELECT ad_group.id, ad_group.name, ad_group.status
		FROM ad_group WHERE campaign.id = %s ORDER BY ad_group.id`, campaignID)

	rows, err := c.searchStream(ctx, query)
	if err != nil {
		return nil, err
	}

	adSets := make([]models.AdSet, 0, len(rows))
	for _, row := range rows {
		if row.AdGroup == nil {
			continue
		}
		raw, _ := json.Marshal(row)
		adSets = append(adSets, models.AdSet{
			ID:           row.AdGroup.ID,
			CampaignID:   campaignID,
			Name:         row.AdGroup.Name,
			Status:       row.AdGroup.Status,
			Platform:     models.PlatformGoogle,
			PlatformData: raw,
		})
	}
	return adSets, nil
}

func (c *GoogleConnector) FetchAds(ctx context.Context, adSetID string) ([]models.Ad, error) {
	query := fmt.Sprintf(`SELECT ad_group_ad.ad.id, ad_group_ad.ad.name, ad_group_ad.status
		FROM ad_group_ad WHERE ad_group.id = %s`, adSetID)

	rows, err := c.searchStream(ctx, query)
	if err != nil {
		return nil, err
	}

	ads := make([]models.Ad, 0, len(rows))
	for _, row := range rows {
		if row.AdGroupAd == nil {
			continue
		}
		raw, _ := json.Marshal(row)
		ads = append(ads, models.Ad{
			ID:           row.AdGroupAd.Ad.ID,
			AdSetID:      adSetID,
			Name:         row.AdGroupAd.Ad.Name,
			Status:       row.AdGroupAd.Status,
			Platform:     models.PlatformGoogle,
			PlatformData: raw,
		})
	}
	return ads, nil
}

// UpdateCampaignBudget is unsupported: Google Ads budgets are shared
// CampaignBudget resources, so a per-campaign daily amount cannot be set
// through this connector.
func (c *GoogleConnector) UpdateCampaignBudget(ctx context.Context, campaignID string, dailyBudget float64) error {
	return fmt.Errorf("%s budget update: %w", models.PlatformGoogle, ErrNotImplemented)
}

func (c *GoogleConnector) UpdateCampaignStatus(ctx context.Context, campaignID, status string) error {
	u := fmt.Sprintf("%s/customers/%s/campaigns:mutate", c.baseURL, c.creds.AccountID)
	body := map[string]any{
		"operations": []map[string]any{{
			"update": map[string]any{
				"resourceName": fmt.Sprintf("customers/%s/campaigns/%s", c.creds.AccountID, campaignID),
				"status":       status,
			},
			"updateMask": "status",
		}},
	}
	return doJSON(ctx, c.client, models.PlatformGoogle, http.MethodPost, u, c.headers(), body, nil)
}
