package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/aureon-one/mediaplan-api/internal/models"
)

const metaDefaultBaseURL = "https://graph.facebook.com/v19.0"

var metaCapabilities = Capabilities{
	Campaigns:    true,
	Metrics:      true,
	AdSets:       true,
	Ads:          true,
	BudgetUpdate: true,
	StatusUpdate: true,
}

// MetaConnector talks to the Meta Marketing API (Facebook/Instagram ads).
// Meta reports budgets as strings holding minor currency units (cents).
type MetaConnector struct {
	creds   Credentials
	client  *http.Client
	baseURL string
}

// NewMetaConnector creates a Meta connector.
func NewMetaConnector(creds Credentials, opts Options) *MetaConnector {
	opts = opts.withDefaults()
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = metaDefaultBaseURL
	}
	return &MetaConnector{creds: creds, client: opts.HTTPClient, baseURL: baseURL}
}

func (c *MetaConnector) Platform() string           { return models.PlatformMeta }
func (c *MetaConnector) Capabilities() Capabilities { return metaCapabilities }

// metaCampaign is the vendor shape for one campaign row.
type metaCampaign struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Status         string `json:"status"`
	Objective      string `json:"objective,omitempty"`
	DailyBudget    string `json:"daily_budget,omitempty"`
	LifetimeBudget string `json:"lifetime_budget,omitempty"`
	StartTime      string `json:"start_time,omitempty"`
	StopTime       string `json:"stop_time,omitempty"`
}

type metaCampaignList struct {
	Data []metaCampaign `json:"data"`
}

type metaAdSet struct {
	ID             string `json:"id"`
	CampaignID     string `json:"campaign_id"`
	Name           string `json:"name"`
	Status         string `json:"status"`
	DailyBudget    string `json:"daily_budget,omitempty"`
	LifetimeBudget string `json:"lifetime_budget,omitempty"`
}

type metaAdSetList struct {
	Data []metaAdSet `json:"data"`
}

type metaAd struct {
	ID       string `json:"id"`
	AdsetID  string `json:"adset_id"`
	Name     string `json:"name"`
	Status   string `json:"status"`
	Creative struct {
		ID string `json:"id"`
	} `json:"creative"`
}

type metaAdList struct {
	Data []metaAd `json:"data"`
}

type metaInsight struct {
	DateStart   string `json:"date_start"`
	Impressions string `json:"impressions"`
	Clicks      string `json:"clicks"`
	Spend       string `json:"spend"`
	CTR         string `json:"ctr,omitempty"`
	CPC         string `json:"cpc,omitempty"`
}

type metaInsightList struct {
	Data []metaInsight `json:"data"`
}

// metaCentsToMajor converts Meta's string-encoded minor units ("5000") to
// major units (50.00). Missing or unparseable values become nil so they
// never surface as NaN.
func metaCentsToMajor(s string) *float64 {
	if s == "" {
		return nil
	}
	cents, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	major := cents / 100
	return &major
}

func mapMetaCampaign(mc metaCampaign) models.Campaign {
	raw, _ := json.Marshal(mc)
	campaign := models.Campaign{
		ID:             mc.ID,
		Name:           mc.Name,
		Status:         mc.Status,
		Objective:      mc.Objective,
		DailyBudget:    metaCentsToMajor(mc.DailyBudget),
		LifetimeBudget: metaCentsToMajor(mc.LifetimeBudget),
		Platform:       models.PlatformMeta,
		PlatformData:   raw,
	}
	if t, err := time.Parse(time.RFC3339, mc.StartTime); err == nil {
		campaign.StartTime = &t
	}
	if t, err := time.Parse(time.RFC3339, mc.StopTime); err == nil {
		campaign.StopTime = &t
	}
	return campaign
}

func mapMetaAdSet(ms metaAdSet) models.AdSet {
	raw, _ := json.Marshal(ms)
	return models.AdSet{
		ID:             ms.ID,
		CampaignID:     ms.CampaignID,
		Name:           ms.Name,
		Status:         ms.Status,
		DailyBudget:    metaCentsToMajor(ms.DailyBudget),
		LifetimeBudget: metaCentsToMajor(ms.LifetimeBudget),
		Platform:       models.PlatformMeta,
		PlatformData:   raw,
	}
}

func mapMetaInsight(mi metaInsight) models.Metrics {
	impressions, _ := strconv.ParseInt(mi.Impressions, 10, 64)
	clicks, _ := strconv.ParseInt(mi.Clicks, 10, 64)
	spend, _ := strconv.ParseFloat(mi.Spend, 64)
	ctr, _ := strconv.ParseFloat(mi.CTR, 64)
	cpc, _ := strconv.ParseFloat(mi.CPC, 64)
	return models.Metrics{
		Date:        mi.DateStart,
		Impressions: impressions,
		Clicks:      clicks,
		Spend:       spend,
		CTR:         ctr,
		CPC:         cpc,
		Platform:    models.PlatformMeta,
	}
}

func (c *MetaConnector) get(ctx context.Context, path string, params url.Values, out any) error {
	params.Set("access_token", c.creds.AccessToken)
	u := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())
	return doJSON(ctx, c.client, models.PlatformMeta, http.MethodGet, u, nil, nil, out)
}

func (c *MetaConnector) FetchCampaigns(ctx context.Context) ([]models.Campaign, error) {
	params := url.Values{}
	params.Set("fields", "id,name,status,objective,daily_budget,lifetime_budget,start_time,stop_time")

	var list metaCampaignList
	if err := c.get(ctx, fmt.Sprintf("/act_%s/campaigns", c.creds.AccountID), params, &list); err != nil {
		return nil, err
	}

	campaigns := make([]models.Campaign, 0, len(list.Data))
	for _, mc := range list.Data {
		campaigns = append(campaigns, mapMetaCampaign(mc))
	}
	return campaigns, nil
}

func (c *MetaConnector) FetchCampaignMetrics(ctx context.Context, campaignID string, dateRange models.DateRange) ([]models.Metrics, error) {
	timeRange, _ := json.Marshal(map[string]string{"since": dateRange.Since, "until": dateRange.Until})
	params := url.Values{}
	params.Set("fields", "date_start,impressions,clicks,spend,ctr,cpc")
	params.Set("time_range", string(timeRange))
	params.Set("time_increment", "1")

	var list metaInsightList
	if err := c.get(ctx, fmt.Sprintf("/%s/insights", campaignID), params, &list); err != nil {
		return nil, err
	}

	metrics := make([]models.Metrics, 0, len(list.Data))
	for _, mi := range list.Data {
		metrics = append(metrics, mapMetaInsight(mi))
	}
	return metrics, nil
}

func (c *MetaConnector) FetchAdSets(ctx context.Context, campaignID string) ([]models.AdSet, error) {
	params := url.Values{}
	params.Set("fields", "id,campaign_id,name,status,daily_budget,lifetime_budget")

	var list metaAdSetList
	if err := c.get(ctx, fmt.Sprintf("/%s/adsets", campaignID), params, &list); err != nil {
		return nil, err
	}

	adSets := make([]models.AdSet, 0, len(list.Data))
	for _, ms := range list.Data {
		adSets = append(adSets, mapMetaAdSet(ms))
	}
	return adSets, nil
}

func (c *MetaConnector) FetchAds(ctx context.Context, adSetID string) ([]models.Ad, error) {
	params := url.Values{}
	params.Set("fields", "id,adset_id,name,status,creative")

	var list metaAdList
	if err := c.get(ctx, fmt.Sprintf("/%s/ads", adSetID), params, &list); err != nil {
		return nil, err
	}

	ads := make([]models.Ad, 0, len(list.Data))
	for _, ma := range list.Data {
		raw, _ := json.Marshal(ma)
		ads = append(ads, models.Ad{
			ID:           ma.ID,
			AdSetID:      ma.AdsetID,
			Name:         ma.Name,
			Status:       ma.Status,
			CreativeID:   ma.Creative.ID,
			Platform:     models.PlatformMeta,
			PlatformData: raw,
		})
	}
	return ads, nil
}

func (c *MetaConnector) UpdateCampaignBudget(ctx context.Context, campaignID string, dailyBudget float64) error {
	// Meta expects minor units back
	params := url.Values{}
	params.Set("daily_budget", strconv.FormatInt(int64(dailyBudget*100), 10))
	params.Set("access_token", c.creds.AccessToken)

	u := fmt.Sprintf("%s/%s?%s", c.baseURL, campaignID, params.Encode())
	return doJSON(ctx, c.client, models.PlatformMeta, http.MethodPost, u, nil, nil, nil)
}

func (c *MetaConnector) UpdateCampaignStatus(ctx context.Context, campaignID, status string) error {
	params := url.Values{}
	params.Set("status", status)
	params.Set("access_token", c.creds.AccessToken)

	u := fmt.Sprintf("%s/%s?%s", c.baseURL, campaignID, params.Encode())
	return doJSON(ctx, c.client, models.PlatformMeta, http.MethodPost, u, nil, nil, nil)
}
