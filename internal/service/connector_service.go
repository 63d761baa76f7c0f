package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/aureon-one/mediaplan-api/internal/crypto"
	"github.com/aureon-one/mediaplan-api/internal/models"
	"github.com/aureon-one/mediaplan-api/internal/platform"
	"github.com/aureon-one/mediaplan-api/internal/pricing"
	"github.com/aureon-one/mediaplan-api/internal/repository"
)

// ErrInvalidBudget is returned when a budget update carries a non-positive
// amount.
var ErrInvalidBudget = errors.New("daily budget must be positive")

// ConnectorService manages platform connections and fronts the connector
// registry. Tokens are encrypted at rest and only decrypted for the
// lifetime of one connector call.
type ConnectorService struct {
	repos     *repository.Repositories
	registry  *platform.Registry
	encryptor *crypto.Encryptor
	ledger    *LedgerService
	logger    *slog.Logger

	// googleDevToken is the app-level Google Ads developer token, shared
	// across every connected Google account
	googleDevToken string

	// connOpts is passed to every connector; tests point BaseURL at a
	// local server
	connOpts platform.Options
}

// NewConnectorService creates a connector service.
func NewConnectorService(repos *repository.Repositories, registry *platform.Registry, encryptor *crypto.Encryptor, ledger *LedgerService, googleDevToken string, logger *slog.Logger) *ConnectorService {
	return &ConnectorService{
		repos:          repos,
		registry:       registry,
		encryptor:      encryptor,
		ledger:         ledger,
		googleDevToken: googleDevToken,
		logger:         logger,
		connOpts:       platform.Options{Logger: logger},
	}
}

// ConnectInput carries the OAuth result for linking a platform account.
type ConnectInput struct {
	Platform     string     `json:"platform"`
	AccountID    string     `json:"account_id"`
	AccountName  string     `json:"account_name,omitempty"`
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	Scopes       string     `json:"scopes,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// Connect links a platform ad account, encrypting tokens before storage.
// Reconnecting an already-linked account replaces its tokens.
func (s *ConnectorService) Connect(ctx context.Context, userID string, input ConnectInput) (*models.PlatformCredentials, error) {
	name, ok := s.registry.Resolve(input.Platform)
	if !ok {
		return nil, platform.ErrUnsupportedPlatform
	}
	if s.encryptor == nil {
		return nil, fmt.Errorf("no encryption key configured, cannot store platform tokens")
	}

	accessEnc, err := s.encryptor.Encrypt(input.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt access token: %w", err)
	}
	refreshEnc, err := s.encryptor.Encrypt(input.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt refresh token: %w", err)
	}

	now := time.Now()
	creds := &models.PlatformCredentials{
		ID:              ulid.Make().String(),
		UserID:          userID,
		Platform:        name,
		AccountID:       input.AccountID,
		AccountName:     input.AccountName,
		AccessTokenEnc:  accessEnc,
		RefreshTokenEnc: refreshEnc,
		TokenType:       "Bearer",
		Scopes:          input.Scopes,
		ExpiresAt:       input.ExpiresAt,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repos.Credentials.Upsert(ctx, creds); err != nil {
		return nil, fmt.Errorf("failed to store credentials: %w", err)
	}

	s.logger.Info("platform connected",
		"user_id", userID,
		"platform", name,
		"account_id", input.AccountID,
	)
	return creds, nil
}

// Disconnect removes a linked platform account.
func (s *ConnectorService) Disconnect(ctx context.Context, userID, credentialID string) error {
	creds, err := s.repos.Credentials.GetByID(ctx, credentialID)
	if err != nil {
		return err
	}
	if creds == nil || creds.UserID != userID {
		return repository.ErrNotFound
	}
	return s.repos.Credentials.Delete(ctx, credentialID)
}

// ListConnections returns the user's linked accounts. Token fields are
// never serialized.
func (s *ConnectorService) ListConnections(ctx context.Context, userID string) ([]*models.PlatformCredentials, error) {
	return s.repos.Credentials.GetByUserID(ctx, userID)
}

// ListPlatforms returns metadata for every supported platform alongside
// its declared capabilities.
func (s *ConnectorService) ListPlatforms() []platform.Info {
	return s.registry.List()
}

// Capabilities returns the declared capabilities for a platform name.
func (s *ConnectorService) Capabilities(name string) (platform.Capabilities, bool) {
	return s.registry.CapabilitiesFor(name)
}

// connectorFor builds a live connector for the user's account on the
// named platform, decrypting stored tokens.
func (s *ConnectorService) connectorFor(ctx context.Context, userID, platformName string) (platform.Connector, error) {
	name, ok := s.registry.Resolve(platformName)
	if !ok {
		return nil, platform.ErrUnsupportedPlatform
	}

	stored, err := s.repos.Credentials.GetByUserAndPlatform(ctx, userID, name)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("%w: no %s account connected", repository.ErrNotFound, name)
	}
	if stored.ExpiresAt != nil && stored.ExpiresAt.Before(time.Now()) && stored.RefreshTokenEnc == "" {
		return nil, platform.ErrTokenExpired
	}

	accessToken, err := s.encryptor.Decrypt(stored.AccessTokenEnc)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt access token: %w", err)
	}
	refreshToken, err := s.encryptor.Decrypt(stored.RefreshTokenEnc)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt refresh token: %w", err)
	}

	creds := platform.Credentials{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		AccountID:    stored.AccountID,
		ExpiresAt:    stored.ExpiresAt,
	}
	if name == models.PlatformGoogle {
		creds.DeveloperToken = s.googleDevToken
	}
	return s.registry.NewConnector(name, creds, s.connOpts)
}

// FetchCampaigns pulls campaigns from the user's connected account. The
// sync is metered after a successful platform round trip.
func (s *ConnectorService) FetchCampaigns(ctx context.Context, userID, platformName string) ([]models.Campaign, error) {
	conn, err := s.connectorFor(ctx, userID, platformName)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	campaigns, err := conn.FetchCampaigns(ctx)
	if err != nil {
		return nil, err
	}

	s.meterSync(ctx, userID, conn.Platform(), time.Since(start))
	return campaigns, nil
}

// FetchCampaignMetrics pulls daily performance rows for one campaign.
func (s *ConnectorService) FetchCampaignMetrics(ctx context.Context, userID, platformName, campaignID string, dateRange models.DateRange) ([]models.Metrics, error) {
	conn, err := s.connectorFor(ctx, userID, platformName)
	if err != nil {
		return nil, err
	}
	return conn.FetchCampaignMetrics(ctx, campaignID, dateRange)
}

// FetchAdSets pulls ad sets for one campaign.
func (s *ConnectorService) FetchAdSets(ctx context.Context, userID, platformName, campaignID string) ([]models.AdSet, error) {
	conn, err := s.connectorFor(ctx, userID, platformName)
	if err != nil {
		return nil, err
	}
	return conn.FetchAdSets(ctx, campaignID)
}

// FetchAds pulls ads for one ad set.
func (s *ConnectorService) FetchAds(ctx context.Context, userID, platformName, adSetID string) ([]models.Ad, error) {
	conn, err := s.connectorFor(ctx, userID, platformName)
	if err != nil {
		return nil, err
	}
	return conn.FetchAds(ctx, adSetID)
}

// UpdateCampaignBudget sets a campaign's daily budget on the platform.
func (s *ConnectorService) UpdateCampaignBudget(ctx context.Context, userID, platformName, campaignID string, dailyBudget float64) error {
	if dailyBudget <= 0 {
		return fmt.Errorf("%w: got %.2f", ErrInvalidBudget, dailyBudget)
	}
	conn, err := s.connectorFor(ctx, userID, platformName)
	if err != nil {
		return err
	}
	return conn.UpdateCampaignBudget(ctx, campaignID, dailyBudget)
}

// UpdateCampaignStatus changes a campaign's status on the platform.
func (s *ConnectorService) UpdateCampaignStatus(ctx context.Context, userID, platformName, campaignID, status string) error {
	conn, err := s.connectorFor(ctx, userID, platformName)
	if err != nil {
		return err
	}
	return conn.UpdateCampaignStatus(ctx, campaignID, status)
}

// meterSync records a PLATFORM_SYNC usage row. Sync metering never blocks
// the response; an unpayable sync is logged and tolerated.
func (s *ConnectorService) meterSync(ctx context.Context, userID, platformName string, duration time.Duration) {
	rec := UsageRecord{
		UserID:     userID,
		Operation:  pricing.OpPlatformSync,
		Units:      1,
		Success:    true,
		Input:      map[string]string{"platform": platformName},
		DurationMs: duration.Milliseconds(),
	}
	if _, err := s.ledger.LogUsageAndDeductCredits(context.WithoutCancel(ctx), rec); err != nil {
		s.logger.Warn("failed to meter platform sync", "user_id", userID, "platform", platformName, "error", err)
	}
}
