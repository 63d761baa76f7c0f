package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/aureon-one/mediaplan-api/internal/models"
	"github.com/aureon-one/mediaplan-api/internal/platform"
	"github.com/aureon-one/mediaplan-api/internal/repository"
	"github.com/aureon-one/mediaplan-api/internal/service"
)

// ConnectorsHandler handles platform connection and campaign endpoints.
type ConnectorsHandler struct {
	connectors *service.ConnectorService
}

// NewConnectorsHandler creates a new connectors handler.
func NewConnectorsHandler(connectors *service.ConnectorService) *ConnectorsHandler {
	return &ConnectorsHandler{connectors: connectors}
}

// connectorError maps service and platform errors onto HTTP status codes.
func connectorError(err error) error {
	var apiErr *platform.APIError
	switch {
	case errors.Is(err, platform.ErrUnsupportedPlatform):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, platform.ErrNotImplemented):
		return huma.Error501NotImplemented(err.Error())
	case errors.Is(err, platform.ErrTokenExpired):
		return huma.Error401Unauthorized("platform token expired, reconnect the account")
	case errors.Is(err, repository.ErrNotFound):
		return huma.Error404NotFound("platform connection not found")
	case errors.Is(err, service.ErrInsufficientCredits):
		return huma.NewError(402, err.Error())
	case errors.As(err, &apiErr):
		return huma.Error502BadGateway(apiErr.Error())
	default:
		return huma.Error500InternalServerError(err.Error())
	}
}

// ConnectPlatformInput represents a connect request.
type ConnectPlatformInput struct {
	Body struct {
		Platform     string     `json:"platform" required:"true" doc:"Platform name or alias, e.g. META or GOOGLE_ADS"`
		AccountID    string     `json:"account_id" required:"true" doc:"Ad account identifier on the platform"`
		AccountName  string     `json:"account_name,omitempty"`
		AccessToken  string     `json:"access_token" required:"true"`
		RefreshToken string     `json:"refresh_token,omitempty"`
		Scopes       string     `json:"scopes,omitempty"`
		ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	}
}

// ConnectPlatformOutput represents the stored connection.
type ConnectPlatformOutput struct {
	Body models.PlatformCredentials
}

// ConnectPlatform handles linking a platform ad account.
func (h *ConnectorsHandler) ConnectPlatform(ctx context.Context, input *ConnectPlatformInput) (*ConnectPlatformOutput, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	creds, err := h.connectors.Connect(ctx, userID, service.ConnectInput{
		Platform:     input.Body.Platform,
		AccountID:    input.Body.AccountID,
		AccountName:  input.Body.AccountName,
		AccessToken:  input.Body.AccessToken,
		RefreshToken: input.Body.RefreshToken,
		Scopes:       input.Body.Scopes,
		ExpiresAt:    input.Body.ExpiresAt,
	})
	if err != nil {
		return nil, connectorError(err)
	}

	return &ConnectPlatformOutput{Body: *creds}, nil
}

// ListConnectionsOutput represents the list of linked accounts.
type ListConnectionsOutput struct {
	Body struct {
		Connections []*models.PlatformCredentials `json:"connections"`
	}
}

// ListConnections handles listing a user's linked platform accounts.
func (h *ConnectorsHandler) ListConnections(ctx context.Context, input *struct{}) (*ListConnectionsOutput, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	connections, err := h.connectors.ListConnections(ctx, userID)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list connections")
	}

	out := &ListConnectionsOutput{}
	out.Body.Connections = connections
	return out, nil
}

// DisconnectInput represents a disconnect request.
type DisconnectInput struct {
	ID string `path:"id" doc:"Connection ID"`
}

// DisconnectOutput represents a disconnect response.
type DisconnectOutput struct {
	Body struct {
		Disconnected bool `json:"disconnected"`
	}
}

// Disconnect handles removing a linked platform account.
func (h *ConnectorsHandler) Disconnect(ctx context.Context, input *DisconnectInput) (*DisconnectOutput, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	if err := h.connectors.Disconnect(ctx, userID, input.ID); err != nil {
		return nil, connectorError(err)
	}

	out := &DisconnectOutput{}
	out.Body.Disconnected = true
	return out, nil
}

// FetchCampaignsInput represents a campaign fetch request.
type FetchCampaignsInput struct {
	Platform string `path:"platform" doc:"Platform name or alias"`
}

// FetchCampaignsOutput represents the normalized campaign list.
type FetchCampaignsOutput struct {
	Body struct {
		Platform  string            `json:"platform"`
		Campaigns []models.Campaign `json:"campaigns"`
	}
}

// FetchCampaigns handles fetching campaigns from a linked platform.
func (h *ConnectorsHandler) FetchCampaigns(ctx context.Context, input *FetchCampaignsInput) (*FetchCampaignsOutput, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	campaigns, err := h.connectors.FetchCampaigns(ctx, userID, input.Platform)
	if err != nil {
		return nil, connectorError(err)
	}

	out := &FetchCampaignsOutput{}
	out.Body.Platform = input.Platform
	out.Body.Campaigns = campaigns
	return out, nil
}

// FetchMetricsInput represents a campaign metrics request.
type FetchMetricsInput struct {
	Platform   string `path:"platform" doc:"Platform name or alias"`
	CampaignID string `path:"campaignId" doc:"Platform campaign ID"`
	Since      string `query:"since" required:"true" doc:"Start date, YYYY-MM-DD"`
	Until      string `query:"until" required:"true" doc:"End date, YYYY-MM-DD"`
}

// FetchMetricsOutput represents daily campaign metrics.
type FetchMetricsOutput struct {
	Body struct {
		CampaignID string           `json:"campaign_id"`
		Metrics    []models.Metrics `json:"metrics"`
	}
}

// FetchMetrics handles fetching daily metrics for one campaign.
func (h *ConnectorsHandler) FetchMetrics(ctx context.Context, input *FetchMetricsInput) (*FetchMetricsOutput, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	for _, d := range []string{input.Since, input.Until} {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return nil, huma.Error400BadRequest("dates must be YYYY-MM-DD")
		}
	}

	metrics, err := h.connectors.FetchCampaignMetrics(ctx, userID, input.Platform, input.CampaignID, models.DateRange{
		Since: input.Since,
		Until: input.Until,
	})
	if err != nil {
		return nil, connectorError(err)
	}

	out := &FetchMetricsOutput{}
	out.Body.CampaignID = input.CampaignID
	out.Body.Metrics = metrics
	return out, nil
}

// FetchAdSetsInput represents an ad set fetch request.
type FetchAdSetsInput struct {
	Platform   string `path:"platform" doc:"Platform name or alias"`
	CampaignID string `path:"campaignId" doc:"Platform campaign ID"`
}

// FetchAdSetsOutput represents the normalized ad set list.
type FetchAdSetsOutput struct {
	Body struct {
		CampaignID string         `json:"campaign_id"`
		AdSets     []models.AdSet `json:"ad_sets"`
	}
}

// FetchAdSets handles fetching ad sets for one campaign.
func (h *ConnectorsHandler) FetchAdSets(ctx context.Context, input *FetchAdSetsInput) (*FetchAdSetsOutput, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	adSets, err := h.connectors.FetchAdSets(ctx, userID, input.Platform, input.CampaignID)
	if err != nil {
		return nil, connectorError(err)
	}

	out := &FetchAdSetsOutput{}
	out.Body.CampaignID = input.CampaignID
	out.Body.AdSets = adSets
	return out, nil
}

// FetchAdsInput represents an ads fetch request.
type FetchAdsInput struct {
	Platform string `path:"platform" doc:"Platform name or alias"`
	AdSetID  string `path:"adSetId" doc:"Platform ad set ID"`
}

// FetchAdsOutput represents the normalized ad list.
type FetchAdsOutput struct {
	Body struct {
		AdSetID string      `json:"ad_set_id"`
		Ads     []models.Ad `json:"ads"`
	}
}

// FetchAds handles fetching ads for one ad set.
func (h *ConnectorsHandler) FetchAds(ctx context.Context, input *FetchAdsInput) (*FetchAdsOutput, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	ads, err := h.connectors.FetchAds(ctx, userID, input.Platform, input.AdSetID)
	if err != nil {
		return nil, connectorError(err)
	}

	out := &FetchAdsOutput{}
	out.Body.AdSetID = input.AdSetID
	out.Body.Ads = ads
	return out, nil
}

// UpdateBudgetInput represents a budget update request.
type UpdateBudgetInput struct {
	Platform   string `path:"platform" doc:"Platform name or alias"`
	CampaignID string `path:"campaignId" doc:"Platform campaign ID"`
	Body       struct {
		DailyBudget float64 `json:"daily_budget" doc:"New daily budget in major currency units"`
	}
}

// UpdateBudgetOutput represents a budget update response.
type UpdateBudgetOutput struct {
	Body struct {
		Updated bool `json:"updated"`
	}
}

// UpdateBudget handles pushing a new daily budget to the platform.
func (h *ConnectorsHandler) UpdateBudget(ctx context.Context, input *UpdateBudgetInput) (*UpdateBudgetOutput, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	if err := h.connectors.UpdateCampaignBudget(ctx, userID, input.Platform, input.CampaignID, input.Body.DailyBudget); err != nil {
		if errors.Is(err, service.ErrInvalidBudget) {
			return nil, huma.Error400BadRequest(err.Error())
		}
		return nil, connectorError(err)
	}

	out := &UpdateBudgetOutput{}
	out.Body.Updated = true
	return out, nil
}

// UpdateStatusInput represents a status update request.
type UpdateStatusInput struct {
	Platform   string `path:"platform" doc:"Platform name or alias"`
	CampaignID string `path:"campaignId" doc:"Platform campaign ID"`
	Body       struct {
		Status string `json:"status" required:"true" enum:"ACTIVE,PAUSED" doc:"New campaign status"`
	}
}

// UpdateStatusOutput represents a status update response.
type UpdateStatusOutput struct {
	Body struct {
		Updated bool `json:"updated"`
	}
}

// UpdateStatus handles pushing a campaign status change to the platform.
func (h *ConnectorsHandler) UpdateStatus(ctx context.Context, input *UpdateStatusInput) (*UpdateStatusOutput, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	if err := h.connectors.UpdateCampaignStatus(ctx, userID, input.Platform, input.CampaignID, input.Body.Status); err != nil {
		return nil, connectorError(err)
	}

	out := &UpdateStatusOutput{}
	out.Body.Updated = true
	return out, nil
}
