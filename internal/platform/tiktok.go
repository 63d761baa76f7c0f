package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/aureon-one/mediaplan-api/internal/models"
)

const tikTokDefaultBaseURL = "https://business-api.tiktok.com/open_api/v1.3"

var tikTokCapabilities = Capabilities{
	Campaigns:    true,
	Metrics:      true,
	AdSets:       true,
	Ads:          true,
	BudgetUpdate: true,
	StatusUpdate: true,
}

// TikTokConnector talks to the TikTok Business API. Every response is
// wrapped in a {code, message, data} envelope and list payloads sit one
// level deeper under data.list.
type TikTokConnector struct {
	creds   Credentials
	client  *http.Client
	baseURL string
}

// NewTikTokConnector creates a TikTok connector.
func NewTikTokConnector(creds Credentials, opts Options) *TikTokConnector {
	opts = opts.withDefaults()
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = tikTokDefaultBaseURL
	}
	return &TikTokConnector{creds: creds, client: opts.HTTPClient, baseURL: baseURL}
}

func (c *TikTokConnector) Platform() string           { return models.PlatformTikTok }
func (c *TikTokConnector) Capabilities() Capabilities { return tikTokCapabilities }

// tikTokEnvelope wraps every TikTok response. A non-zero code is an
// application level error even when HTTP status is 200.
type tikTokEnvelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type tikTokList[T any] struct {
	List     []T `json:"list"`
	PageInfo struct {
		Page        int `json:"page"`
		PageSize    int `json:"page_size"`
		TotalNumber int `json:"total_number"`
		TotalPage   int `json:"total_page"`
	} `json:"page_info"`
}

type tikTokCampaign struct {
	CampaignID      string  `json:"campaign_id"`
	CampaignName    string  `json:"campaign_name"`
	OperationStatus string  `json:"operation_status"`
	Objective       string  `json:"objective_type,omitempty"`
	Budget          float64 `json:"budget,omitempty"`
	BudgetMode      string  `json:"budget_mode,omitempty"`
}

type tikTokAdGroup struct {
	AdgroupID       string  `json:"adgroup_id"`
	AdgroupName     string  `json:"adgroup_name"`
	CampaignID      string  `json:"campaign_id"`
	OperationStatus string  `json:"operation_status"`
	Budget          float64 `json:"budget,omitempty"`
}

type tikTokAd struct {
	AdID            string `json:"ad_id"`
	AdName          string `json:"ad_name"`
	AdgroupID       string `json:"adgroup_id"`
	OperationStatus string `json:"operation_status"`
}

type tikTokReportRow struct {
	Dimensions struct {
		StatTimeDay string `json:"stat_time_day"`
	} `json:"dimensions"`
	Metrics struct {
		Impressions string `json:"impressions"`
		Clicks      string `json:"clicks"`
		Spend       string `json:"spend"`
		Conversions string `json:"conversion,omitempty"`
	} `json:"metrics"`
}

// decode unwraps the TikTok envelope, surfacing non-zero codes as
// API errors.
func tikTokDecode[T any](body []byte, platformName string) (*T, error) {
	var env tikTokEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", platformName, err)
	}
	if env.Code != 0 {
		return nil, &APIError{Platform: platformName, StatusCode: http.StatusOK, Body: fmt.Sprintf("code %d: %s", env.Code, env.Message)}
	}
	var data T
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, fmt.Errorf("decode %s data: %w", platformName, err)
		}
	}
	return &data, nil
}

func (c *TikTokConnector) headers() map[string]string {
	return map[string]string{"Access-Token": c.creds.AccessToken}
}

func mapTikTokCampaign(tc tikTokCampaign) models.Campaign {
	raw, _ := json.Marshal(tc)
	campaign := models.Campaign{
		ID:           tc.CampaignID,
		Name:         tc.CampaignName,
		Status:       tc.OperationStatus,
		Objective:    tc.Objective,
		Platform:     models.PlatformTikTok,
		PlatformData: raw,
	}
	if tc.Budget > 0 {
		budget := tc.Budget
		switch tc.BudgetMode {
		case "BUDGET_MODE_TOTAL":
			campaign.LifetimeBudget = &budget
		default:
			campaign.DailyBudget = &budget
		}
	}
	return campaign
}

func (c *TikTokConnector) getList(ctx context.Context, path string, params url.Values) ([]byte, error) {
	params.Set("advertiser_id", c.creds.AccountID)
	u := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())
	return doRaw(ctx, c.client, models.PlatformTikTok, http.MethodGet, u, c.headers(), nil)
}

func (c *TikTokConnector) FetchCampaigns(ctx context.Context) ([]models.Campaign, error) {
	body, err := c.getList(ctx, "/campaign/get/", url.Values{})
	if err != nil {
		return nil, err
	}
	data, err := tikTokDecode[tikTokList[tikTokCampaign]](body, models.PlatformTikTok)
	if err != nil {
		return nil, err
	}

	campaigns := make([]models.Campaign, 0, len(data.List))
	for _, tc := range data.List {
		campaigns = append(campaigns, mapTikTokCampaign(tc))
	}
	return campaigns, nil
}

func (c *TikTokConnector) FetchCampaignMetrics(ctx context.Context, campaignID string, dateRange models.DateRange) ([]models.Metrics, error) {
	filtering, _ := json.Marshal(map[string]any{"campaign_ids": []string{campaignID}})
	params := url.Values{}
	params.Set("report_type", "BASIC")
	params.Set("data_level", "AUCTION_CAMPAIGN")
	params.Set("dimensions", `["campaign_id","stat_time_day"]`)
	params.Set("metrics", `["impressions","clicks","spend","conversion"]`)
	params.Set("start_date", dateRange.Since)
	params.Set("end_date", dateRange.Until)
	params.Set("filtering", string(filtering))

	body, err := c.getList(ctx, "/report/integrated/get/", params)
	if err != nil {
		return nil, err
	}
	data, err := tikTokDecode[tikTokList[tikTokReportRow]](body, models.PlatformTikTok)
	if err != nil {
		return nil, err
	}

	metrics := make([]models.Metrics, 0, len(data.List))
	for _, row := range data.List {
		m := models.Metrics{
			Date:     row.Dimensions.StatTimeDay,
			Platform: models.PlatformTikTok,
		}
		m.Impressions, _ = strconv.ParseInt(row.Metrics.Impressions, 10, 64)
		m.Clicks, _ = strconv.ParseInt(row.Metrics.Clicks, 10, 64)
		m.Spend, _ = strconv.ParseFloat(row.Metrics.Spend, 64)
		m.Conversions, _ = strconv.ParseFloat(row.Metrics.Conversions, 64)
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

func (c *TikTokConnector) FetchAdSets(ctx context.Context, campaignID string) ([]models.AdSet, error) {
	filtering, _ := json.Marshal(map[string]any{"campaign_ids": []string{campaignID}})
	params := url.Values{}
	params.Set("filtering", string(filtering))

	body, err := c.getList(ctx, "/adgroup/get/", params)
	if err != nil {
		return nil, err
	}
	data, err := tikTokDecode[tikTokList[tikTokAdGroup]](body, models.PlatformTikTok)
	if err != nil {
		return nil, err
	}

	adSets := make([]models.AdSet, 0, len(data.List))
	for _, ag := range data.List {
		raw, _ := json.Marshal(ag)
		adSet := models.AdSet{
			ID:           ag.AdgroupID,
			CampaignID:   ag.CampaignID,
			Name:         ag.AdgroupName,
			Status:       ag.OperationStatus,
			Platform:     models.PlatformTikTok,
			PlatformData: raw,
		}
		if ag.Budget > 0 {
			budget := ag.Budget
			adSet.DailyBudget = &budget
		}
		adSets = append(adSets, adSet)
	}
	return adSets, nil
}

func (c *TikTokConnector) FetchAds(ctx context.Context, adSetID string) ([]models.Ad, error) {
	filtering, _ := json.Marshal(map[string]any{"adgroup_ids": []string{adSetID}})
	params := url.Values{}
	params.Set("filtering", string(filtering))

	body, err := c.getList(ctx, "/ad/get/", params)
	if err != nil {
		return nil, err
	}
	data, err := tikTokDecode[tikTokList[tikTokAd]](body, models.PlatformTikTok)
	if err != nil {
		return nil, err
	}

	ads := make([]models.Ad, 0, len(data.List))
	for _, ta := range data.List {
		raw, _ := json.Marshal(ta)
		ads = append(ads, models.Ad{
			ID:           ta.AdID,
			AdSetID:      ta.AdgroupID,
			Name:         ta.AdName,
			Status:       ta.OperationStatus,
			Platform:     models.PlatformTikTok,
			PlatformData: raw,
		})
	}
	return ads, nil
}

func (c *TikTokConnector) post(ctx context.Context, path string, body any) error {
	u := c.baseURL + path
	raw, err := doRaw(ctx, c.client, models.PlatformTikTok, http.MethodPost, u, c.headers(), body)
	if err != nil {
		return err
	}
	_, err = tikTokDecode[json.RawMessage](raw, models.PlatformTikTok)
	return err
}

func (c *TikTokConnector) UpdateCampaignBudget(ctx context.Context, campaignID string, dailyBudget float64) error {
	return c.post(ctx, "/campaign/update/", map[string]any{
		"advertiser_id": c.creds.AccountID,
		"campaign_id":   campaignID,
		"budget":        dailyBudget,
		"budget_mode":   "BUDGET_MODE_DAY",
	})
}

func (c *TikTokConnector) UpdateCampaignStatus(ctx context.Context, campaignID, status string) error {
	return c.post(ctx, "/campaign/status/update/", map[string]any{
		"advertiser_id":    c.creds.AccountID,
		"campaign_ids":     []string{campaignID},
		"operation_status": status,
	})
}
