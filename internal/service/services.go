// Package service contains the business logic layer.
// Note: user identity is handled upstream; the UserID in services is the
// subject claim from the caller's JWT.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aureon-one/mediaplan-api/internal/config"
	"github.com/aureon-one/mediaplan-api/internal/crypto"
	"github.com/aureon-one/mediaplan-api/internal/platform"
	"github.com/aureon-one/mediaplan-api/internal/repository"
)

// Services holds all service instances.
type Services struct {
	Ledger    *LedgerService
	Pricing   *PricingService
	Geo       *GeoService
	Connector *ConnectorService
	LLM       *LLMClient
}

// NewServices creates all service instances.
func NewServices(cfg *config.Config, repos *repository.Repositories, registry *platform.Registry, logger *slog.Logger) (*Services, error) {
	// Encryptor guards platform tokens at rest
	var encryptor *crypto.Encryptor
	if len(cfg.EncryptionKey) > 0 {
		var err error
		encryptor, err = crypto.NewEncryptor(cfg.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create encryptor: %w", err)
		}
	} else {
		logger.Warn("no encryption key configured, platform connections will be unavailable")
	}

	billingCfg := config.DefaultBillingConfig()

	// Rates loader pulls the pricing table from object storage when
	// configured; pricing falls back to the database otherwise
	var ratesLoader *config.RatesLoader
	if cfg.StorageEnabled() {
		s3Client, err := config.NewS3ClientFromConfig(context.Background(), cfg)
		if err != nil {
			logger.Warn("failed to create S3 client, pricing will use database rates", "error", err)
		} else if s3Client != nil {
			ratesLoader = config.NewRatesLoader(config.RatesLoaderConfig{
				S3Client: s3Client,
				Bucket:   cfg.StorageBucket,
				Key:      cfg.PricingConfigKey,
				Logger:   logger,
			})
			logger.Info("pricing rates loader enabled", "bucket", cfg.StorageBucket, "key", cfg.PricingConfigKey)
		}
	}

	pricingSvc := NewPricingService(repos, ratesLoader, &billingCfg, logger)
	ledgerSvc := NewLedgerService(repos, pricingSvc, &billingCfg, logger)
	llmClient := NewLLMClient(cfg, logger)
	geoSvc := NewGeoService(repos, ledgerSvc, llmClient, logger)
	connectorSvc := NewConnectorService(repos, registry, encryptor, ledgerSvc, cfg.GoogleDeveloperToken, logger)

	return &Services{
		Ledger:    ledgerSvc,
		Pricing:   pricingSvc,
		Geo:       geoSvc,
		Connector: connectorSvc,
		LLM:       llmClient,
	}, nil
}
