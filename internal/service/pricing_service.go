package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aureon-one/mediaplan-api/internal/config"
	"github.com/aureon-one/mediaplan-api/internal/pricing"
	"github.com/aureon-one/mediaplan-api/internal/repository"
)

// PricingService resolves the rate table used to bill operations.
// Resolution order: S3-hosted rates (if storage is configured), the active
// database version, then the built-in table. Every resolved table keeps its
// version string so usage rows record which rates priced them.
type PricingService struct {
	repos       *repository.Repositories
	ratesLoader *config.RatesLoader
	billingCfg  *config.BillingConfig
	logger      *slog.Logger
}

// NewPricingService creates a pricing service. ratesLoader may be nil when
// no object storage is configured.
func NewPricingService(repos *repository.Repositories, ratesLoader *config.RatesLoader, billingCfg *config.BillingConfig, logger *slog.Logger) *PricingService {
	return &PricingService{
		repos:       repos,
		ratesLoader: ratesLoader,
		billingCfg:  billingCfg,
		logger:      logger,
	}
}

// CurrentTable returns the rate table to price new operations with.
func (s *PricingService) CurrentTable(ctx context.Context) pricing.Table {
	// S3-hosted rates win when available
	if s.ratesLoader != nil && s.ratesLoader.IsEnabled() {
		s.ratesLoader.MaybeRefresh(ctx)
		if doc := s.ratesLoader.Current(); doc != nil {
			return ratesDocumentToTable(doc, s.billingCfg.DefaultMarkup)
		}
	}

	// Fall back to the active database version
	if version, err := s.repos.Pricing.GetActive(ctx); err != nil {
		s.logger.Warn("failed to load active pricing version", "error", err)
	} else if version != nil {
		table, err := tableFromJSON(version.Version, version.RatesJSON)
		if err != nil {
			s.logger.Warn("active pricing version has invalid rates", "version", version.Version, "error", err)
		} else {
			return table
		}
	}

	return pricing.DefaultTable()
}

// CalculateCost prices an operation using the current table.
func (s *PricingService) CalculateCost(ctx context.Context, operation string, units int) (pricing.Cost, error) {
	table := s.CurrentTable(ctx)
	return table.Calculate(operation, units, s.billingCfg.USDToINR)
}

// CreditsFor returns the per-unit credit cost for an operation.
func (s *PricingService) CreditsFor(ctx context.Context, operation string) (int, error) {
	table := s.CurrentTable(ctx)
	if !table.Has(operation) {
		return 0, fmt.Errorf("unknown operation %q", operation)
	}
	return table.CreditsFor(operation), nil
}

// PublishVersion stores a new rate table version and makes it active.
func (s *PricingService) PublishVersion(ctx context.Context, version string, table pricing.Table) error {
	ratesJSON, err := json.Marshal(table.Rates)
	if err != nil {
		return fmt.Errorf("failed to marshal rates: %w", err)
	}
	if err := s.repos.Pricing.Activate(ctx, version, string(ratesJSON)); err != nil {
		return fmt.Errorf("failed to activate pricing version: %w", err)
	}

	s.logger.Info("pricing version activated", "version", version, "operations", len(table.Rates))
	return nil
}

// ratesDocumentToTable converts an S3 rates document. Operations that omit
// their markup inherit defaultMarkup, and a usd_to_inr set on the document
// pins the exchange rate for every cost it prices.
func ratesDocumentToTable(doc *config.RatesDocument, defaultMarkup float64) pricing.Table {
	rates := make(map[string]pricing.Rate, len(doc.Operations))
	for op, r := range doc.Operations {
		markup := r.Markup
		if markup == 0 {
			markup = defaultMarkup
		}
		rates[op] = pricing.Rate{
			APICostUSD: r.APICostUSD,
			Markup:     markup,
			Credits:    r.Credits,
			Engine:     r.Engine,
		}
	}
	return pricing.Table{Version: doc.Version, Rates: rates, ExchangeRate: doc.USDToINR}
}

func tableFromJSON(version, ratesJSON string) (pricing.Table, error) {
	var rates map[string]pricing.Rate
	if err := json.Unmarshal([]byte(ratesJSON), &rates); err != nil {
		return pricing.Table{}, err
	}
	return pricing.Table{Version: version, Rates: rates}, nil
}
