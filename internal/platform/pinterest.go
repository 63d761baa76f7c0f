package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/aureon-one/mediaplan-api/internal/models"
)

const pinterestDefaultBaseURL = "https://api.pinterest.com/v5"

var pinterestCapabilities = Capabilities{
	Campaigns:    true,
	Metrics:      true,
	AdSets:       true,
	Ads:          false,
	BudgetUpdate: false,
	StatusUpdate: true,
}

// PinterestConnector talks to the Pinterest Ads API. Pinterest reports
// timestamps as unix seconds and budgets in micro currency units.
type PinterestConnector struct {
	creds   Credentials
	client  *http.Client
	baseURL string
}

// NewPinterestConnector creates a Pinterest connector.
func NewPinterestConnector(creds Credentials, opts Options) *PinterestConnector {
	opts = opts.withDefaults()
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = pinterestDefaultBaseURL
	}
	return &PinterestConnector{creds: creds, client: opts.HTTPClient, baseURL: baseURL}
}

func (c *PinterestConnector) Platform() string           { return models.PlatformPinterest }
func (c *PinterestConnector) Capabilities() Capabilities { return pinterestCapabilities }

type pinterestCampaign struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Status           string `json:"status"`
	ObjectiveType    string `json:"objective_type,omitempty"`
	DailySpendCap    int64  `json:"daily_spend_cap,omitempty"`
	LifetimeSpendCap int64  `json:"lifetime_spend_cap,omitempty"`
	CreatedTime      int64  `json:"created_time,omitempty"`
	UpdatedTime      int64  `json:"updated_time,omitempty"`
	StartTime        int64  `json:"start_time,omitempty"`
	EndTime          int64  `json:"end_time,omitempty"`
}

type pinterestItems[T any] struct {
	Items    []T    `json:"items"`
	Bookmark string `json:"bookmark,omitempty"`
}

type pinterestAdGroup struct {
	ID                    string `json:"id"`
	CampaignID            string `json:"campaign_id"`
	Name                  string `json:"name"`
	Status                string `json:"status"`
	BudgetInMicroCurrency int64  `json:"budget_in_micro_currency,omitempty"`
}

type pinterestAnalyticsRow struct {
	Date        string  `json:"DATE"`
	Impressions int64   `json:"IMPRESSION_1"`
	Clicks      int64   `json:"CLICKTHROUGH_1"`
	SpendMicro  int64   `json:"SPEND_IN_MICRO_DOLLAR"`
	Conversions float64 `json:"TOTAL_CONVERSIONS,omitempty"`
}

// pinterestUnixTime converts unix seconds to UTC time, nil when zero.
func pinterestUnixTime(v int64) *time.Time {
	if v == 0 {
		return nil
	}
	t := time.Unix(v, 0).UTC()
	return &t
}

func pinterestMicroToMajor(v int64) *float64 {
	if v == 0 {
		return nil
	}
	major := float64(v) / 1_000_000
	return &major
}

func mapPinterestCampaign(pc pinterestCampaign) models.Campaign {
	raw, _ := json.Marshal(pc)
	return models.Campaign{
		ID:             pc.ID,
		Name:           pc.Name,
		Status:         pc.Status,
		Objective:      pc.ObjectiveType,
		DailyBudget:    pinterestMicroToMajor(pc.DailySpendCap),
		LifetimeBudget: pinterestMicroToMajor(pc.LifetimeSpendCap),
		StartTime:      pinterestUnixTime(pc.StartTime),
		StopTime:       pinterestUnixTime(pc.EndTime),
		Platform:       models.PlatformPinterest,
		PlatformData:   raw,
	}
}

func (c *PinterestConnector) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + c.creds.AccessToken}
}

func (c *PinterestConnector) FetchCampaigns(ctx context.Context) ([]models.Campaign, error) {
	u := fmt.Sprintf("%s/ad_accounts/%s/campaigns", c.baseURL, c.creds.AccountID)

	var list pinterestItems[pinterestCampaign]
	if err := doJSON(ctx, c.client, models.PlatformPinterest, http.MethodGet, u, c.headers(), nil, &list); err != nil {
		return nil, err
	}

	campaigns := make([]models.Campaign, 0, len(list.Items))
	for _, pc := range list.Items {
		campaigns = append(campaigns, mapPinterestCampaign(pc))
	}
	return campaigns, nil
}

func (c *PinterestConnector) FetchCampaignMetrics(ctx context.Context, campaignID string, dateRange models.DateRange) ([]models.Metrics, error) {
	params := url.Values{}
	params.Set("campaign_ids", campaignID)
	params.Set("start_date", dateRange.Since)
	params.Set("end_date", dateRange.Until)
	params.Set("granularity", "DAY")
	params.Set("columns", "SPEND_IN_MICRO_DOLLAR,IMPRESSION_1,CLICKTHROUGH_1,TOTAL_CONVERSIONS")
	u := fmt.Sprintf("%s/ad_accounts/%s/campaigns/analytics?%s", c.baseURL, c.creds.AccountID, params.Encode())

	var rows []pinterestAnalyticsRow
	if err := doJSON(ctx, c.client, models.PlatformPinterest, http.MethodGet, u, c.headers(), nil, &rows); err != nil {
		return nil, err
	}

	metrics := make([]models.Metrics, 0, len(rows))
	for _, row := range rows {
		m := models.Metrics{
			Date:        row.Date,
			Impressions: row.Impressions,
			Clicks:      row.Clicks,
			Spend:       float64(row.SpendMicro) / 1_000_000,
			Conversions: row.Conversions,
			Platform:    models.PlatformPinterest,
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

func (c *PinterestConnector) FetchAdSets(ctx context.Context, campaignID string) ([]models.AdSet, error) {
	params := url.Values{}
	params.Set("campaign_ids", campaignID)
	u := fmt.Sprintf("%s/ad_accounts/%s/ad_groups?%s", c.baseURL, c.creds.AccountID, params.Encode())

	var list pinterestItems[pinterestAdGroup]
	if err := doJSON(ctx, c.client, models.PlatformPinterest, http.MethodGet, u, c.headers(), nil, &list); err != nil {
		return nil, err
	}

	adSets := make([]models.AdSet, 0, len(list.Items))
	for _, ag := range list.Items {
		raw, _ := json.Marshal(ag)
		adSets = append(adSets, models.AdSet{
			ID:           ag.ID,
			CampaignID:   ag.CampaignID,
			Name:         ag.Name,
			Status:       ag.Status,
			DailyBudget:  pinterestMicroToMajor(ag.BudgetInMicroCurrency),
			Platform:     models.PlatformPinterest,
			PlatformData: raw,
		})
	}
	return adSets, nil
}

func (c *PinterestConnector) FetchAds(ctx context.Context, adSetID string) ([]models.Ad, error) {
	return nil, fmt.Errorf("%s ads: %w", models.PlatformPinterest, ErrNotImplemented)
}

func (c *PinterestConnector) UpdateCampaignBudget(ctx context.Context, campaignID string, dailyBudget float64) error {
	return fmt.Errorf("%s budget update: %w", models.PlatformPinterest, ErrNotImplemented)
}

func (c *PinterestConnector) UpdateCampaignStatus(ctx context.Context, campaignID, status string) error {
	u := fmt.Sprintf("%s/ad_accounts/%s/campaigns", c.baseURL, c.creds.AccountID)
	body := []map[string]string{{"id": campaignID, "status": status}}
	return doJSON(ctx, c.client, models.PlatformPinterest, http.MethodPatch, u, c.headers(), body, nil)
}
