package platform

import (
	"context"
	"fmt"

	"github.com/aureon-one/mediaplan-api/internal/models"
)

// No operations are implemented yet; the connector exists so the account
// can be linked ahead of the X Ads API integration.
var twitterCapabilities = Capabilities{}

// TwitterConnector is a placeholder for the X Ads API. Every operation
// fails with ErrNotImplemented so callers can distinguish "unsupported"
// from a transport failure.
type TwitterConnector struct {
	creds Credentials
}

// NewTwitterConnector creates the stub connector.
func NewTwitterConnector(creds Credentials, opts Options) *TwitterConnector {
	return &TwitterConnector{creds: creds}
}

func (c *TwitterConnector) Platform() string           { return models.PlatformTwitter }
func (c *TwitterConnector) Capabilities() Capabilities { return twitterCapabilities }

func (c *TwitterConnector) notImplemented(op string) error {
	return fmt.Errorf("%s %s: %w", models.PlatformTwitter, op, ErrNotImplemented)
}

func (c *TwitterConnector) FetchCampaigns(ctx context.Context) ([]models.Campaign, error) {
	return nil, c.notImplemented("campaigns")
}

func (c *TwitterConnector) FetchCampaignMetrics(ctx context.Context, campaignID string, dateRange models.DateRange) ([]models.Metrics, error) {
	return nil, c.notImplemented("metrics")
}

func (c *TwitterConnector) FetchAdSets(ctx context.Context, campaignID string) ([]models.AdSet, error) {
	return nil, c.notImplemented("ad sets")
}

func (c *TwitterConnector) FetchAds(ctx context.Context, adSetID string) ([]models.Ad, error) {
	return nil, c.notImplemented("ads")
}

func (c *TwitterConnector) UpdateCampaignBudget(ctx context.Context, campaignID string, dailyBudget float64) error {
	return c.notImplemented("budget update")
}

func (c *TwitterConnector) UpdateCampaignStatus(ctx context.Context, campaignID, status string) error {
	return c.notImplemented("status update")
}
