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

const linkedInDefaultBaseURL = "https://api.linkedin.com/rest"

var linkedInCapabilities = Capabilities{
	Campaigns:    true,
	Metrics:      true,
	AdSets:       false,
	Ads:          false,
	BudgetUpdate: false,
	StatusUpdate: true,
}

// LinkedInConnector talks to the LinkedIn Marketing API. LinkedIn requires
// the Restli protocol header on every call and encodes dates as year,
// month and day integer triples rather than strings.
type LinkedInConnector struct {
	creds   Credentials
	client  *http.Client
	baseURL string
}

// NewLinkedInConnector creates a LinkedIn connector.
func NewLinkedInConnector(creds Credentials, opts Options) *LinkedInConnector {
	opts = opts.withDefaults()
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = linkedInDefaultBaseURL
	}
	return &LinkedInConnector{creds: creds, client: opts.HTTPClient, baseURL: baseURL}
}

func (c *LinkedInConnector) Platform() string           { return models.PlatformLinkedIn }
func (c *LinkedInConnector) Capabilities() Capabilities { return linkedInCapabilities }

// linkedInDate is LinkedIn's exploded calendar date.
type linkedInDate struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// String renders the triple as YYYY-MM-DD, zero padded.
func (d linkedInDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

type linkedInMoney struct {
	Amount       string `json:"amount"`
	CurrencyCode string `json:"currencyCode,omitempty"`
}

type linkedInCampaign struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Status      string         `json:"status"`
	Type        string         `json:"type,omitempty"`
	DailyBudget *linkedInMoney `json:"dailyBudget,omitempty"`
	TotalBudget *linkedInMoney `json:"totalBudget,omitempty"`
	RunSchedule *struct {
		Start int64 `json:"start"`
		End   int64 `json:"end,omitempty"`
	} `json:"runSchedule,omitempty"`
}

type linkedInCampaignList struct {
	Elements []linkedInCampaign `json:"elements"`
}

type linkedInAnalyticsRow struct {
	DateRange struct {
		Start linkedInDate `json:"start"`
		End   linkedInDate `json:"end"`
	} `json:"dateRange"`
	Impressions                int64   `json:"impressions"`
	Clicks                     int64   `json:"clicks"`
	CostInLocalCurrency        string  `json:"costInLocalCurrency"`
	ExternalWebsiteConversions float64 `json:"externalWebsiteConversions,omitempty"`
}

type linkedInAnalyticsList struct {
	Elements []linkedInAnalyticsRow `json:"elements"`
}

func linkedInBudget(m *linkedInMoney) *float64 {
	if m == nil || m.Amount == "" {
		return nil
	}
	amount, err := strconv.ParseFloat(m.Amount, 64)
	if err != nil {
		return nil
	}
	return &amount
}

func mapLinkedInCampaign(lc linkedInCampaign) models.Campaign {
	raw, _ := json.Marshal(lc)
	return models.Campaign{
		ID:             strconv.FormatInt(lc.ID, 10),
		Name:           lc.Name,
		Status:         lc.Status,
		Objective:      lc.Type,
		DailyBudget:    linkedInBudget(lc.DailyBudget),
		LifetimeBudget: linkedInBudget(lc.TotalBudget),
		Platform:       models.PlatformLinkedIn,
		PlatformData:   raw,
	}
}

func mapLinkedInAnalytics(row linkedInAnalyticsRow) models.Metrics {
	spend, _ := strconv.ParseFloat(row.CostInLocalCurrency, 64)
	m := models.Metrics{
		Date:        row.DateRange.Start.String(),
		Impressions: row.Impressions,
		Clicks:      row.Clicks,
		Spend:       spend,
		Conversions: row.ExternalWebsiteConversions,
		Platform:    models.PlatformLinkedIn,
	}
	if m.Impressions > 0 {
		m.CTR = float64(m.Clicks) / float64(m.Impressions) * 100
	}
	if m.Clicks > 0 {
		m.CPC = m.Spend / float64(m.Clicks)
	}
	return m
}

func (c *LinkedInConnector) headers() map[string]string {
	return map[string]string{
		"Authorization":             "Bearer " + c.creds.AccessToken,
		"X-Restli-Protocol-Version": "2.0.0",
		"LinkedIn-Version":          "202401",
	}
}

func (c *LinkedInConnector) FetchCampaigns(ctx context.Context) ([]models.Campaign, error) {
	params := url.Values{}
	params.Set("q", "search")
	u := fmt.Sprintf("%s/adAccounts/%s/adCampaigns?%s", c.baseURL, c.creds.AccountID, params.Encode())

	var list linkedInCampaignList
	if err := doJSON(ctx, c.client, models.PlatformLinkedIn, http.MethodGet, u, c.headers(), nil, &list); err != nil {
		return nil, err
	}

	campaigns := make([]models.Campaign, 0, len(list.Elements))
	for _, lc := range list.Elements {
		campaigns = append(campaigns, mapLinkedInCampaign(lc))
	}
	return campaigns, nil
}

func (c *LinkedInConnector) FetchCampaignMetrics(ctx context.Context, campaignID string, dateRange models.DateRange) ([]models.Metrics, error) {
	params := url.Values{}
	params.Set("q", "analytics")
	params.Set("pivot", "CAMPAIGN")
	params.Set("timeGranularity", "DAILY")
	params.Set("campaigns", fmt.Sprintf("urn:li:sponsoredCampaign:%s", campaignID))
	params.Set("dateRange.start", dateRange.Since)
	params.Set("dateRange.end", dateRange.Until)
	u := fmt.Sprintf("%s/adAnalytics?%s", c.baseURL, params.Encode())

	var list linkedInAnalyticsList
	if err := doJSON(ctx, c.client, models.PlatformLinkedIn, http.MethodGet, u, c.headers(), nil, &list); err != nil {
		return nil, err
	}

	metrics := make([]models.Metrics, 0, len(list.Elements))
	for _, row := range list.Elements {
		metrics = append(metrics, mapLinkedInAnalytics(row))
	}
	return metrics, nil
}

func (c *LinkedInConnector) FetchAdSets(ctx context.Context, campaignID string) ([]models.AdSet, error) {
	return nil, fmt.Errorf("%s ad sets: %w", models.PlatformLinkedIn, ErrNotImplemented)
}

func (c *LinkedInConnector) FetchAds(ctx context.Context, adSetID string) ([]models.Ad, error) {
	return nil, fmt.Errorf("%s ads: %w", models.PlatformLinkedIn, ErrNotImplemented)
}

func (c *LinkedInConnector) UpdateCampaignBudget(ctx context.Context, campaignID string, dailyBudget float64) error {
	return fmt.Errorf("%s budget update: %w", models.PlatformLinkedIn, ErrNotImplemented)
}

func (c *LinkedInConnector) UpdateCampaignStatus(ctx context.Context, campaignID, status string) error {
	u := fmt.Sprintf("%s/adAccounts/%s/adCampaigns/%s", c.baseURL, c.creds.AccountID, campaignID)
	body := map[string]any{
		"patch": map[string]any{
			"$set": map[string]string{"status": status},
		},
	}
	return doJSON(ctx, c.client, models.PlatformLinkedIn, http.MethodPost, u, c.headers(), body, nil)
}
