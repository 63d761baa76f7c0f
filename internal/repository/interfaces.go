// Package repository defines repository interfaces for data access.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/aureon-one/mediaplan-api/internal/models"
)

var (
	// ErrInsufficientCredits is returned when a conditional deduction finds
	// the balance below the required amount. The balance is never driven
	// negative.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrDuplicatePurchase is returned when a purchase completion or gateway
	// reference has already been processed.
	ErrDuplicatePurchase = errors.New("purchase already processed")

	// ErrNotFound is returned by lookups that require the row to exist.
	ErrNotFound = errors.New("not found")
)

// CreditsRepository defines methods for user credit balance access.
type CreditsRepository interface {
	// Get returns the balance row, or nil if the user has none yet.
	Get(ctx context.Context, userID string) (*models.UserCredits, error)
	// GetOrCreate returns the balance row, creating it with the signup
	// grant on first access.
	GetOrCreate(ctx context.Context, userID string, signupGrant int) (*models.UserCredits, error)
	// AddCredits atomically increments the balance and, when purchaseID is
	// set, marks that purchase completed in the same transaction. Returns
	// ErrDuplicatePurchase if the purchase is not pending.
	AddCredits(ctx context.Context, userID string, credits int, purchaseID string) (*models.UserCredits, error)
}

// UsageRepository defines methods for usage log access. Deduction and
// logging happen in one transaction so a crash cannot separate them.
type UsageRepository interface {
	// CreateWithDeduction inserts the usage log and decrements the user's
	// balance, but only if the balance covers the cost. Returns
	// ErrInsufficientCredits (and inserts nothing) otherwise.
	CreateWithDeduction(ctx context.Context, log *models.UsageLog) error
	// Create inserts a usage log without touching the balance. Used for
	// failed operations, which are recorded but not charged.
	Create(ctx context.Context, log *models.UsageLog) error
	GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*models.UsageLog, error)
	GetSummary(ctx context.Context, userID string, from, to time.Time) (*models.UsageSummary, error)
}

// PurchaseRepository defines methods for credit purchase access.
type PurchaseRepository interface {
	// Create inserts a pending purchase. Returns ErrDuplicatePurchase when
	// the gateway reference has been seen before.
	Create(ctx context.Context, purchase *models.CreditPurchase) error
	GetByID(ctx context.Context, id string) (*models.CreditPurchase, error)
	GetByGatewayRef(ctx context.Context, gatewayRef string) (*models.CreditPurchase, error)
	GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*models.CreditPurchase, error)
	// MarkRefunded flips a completed purchase to refunded.
	MarkRefunded(ctx context.Context, id string) error
}

// CredentialsRepository defines methods for connected ad platform accounts.
type CredentialsRepository interface {
	Upsert(ctx context.Context, creds *models.PlatformCredentials) error
	GetByID(ctx context.Context, id string) (*models.PlatformCredentials, error)
	GetByUserID(ctx context.Context, userID string) ([]*models.PlatformCredentials, error)
	GetByUserAndPlatform(ctx context.Context, userID, platform string) (*models.PlatformCredentials, error)
	UpdateTokens(ctx context.Context, id, accessTokenEnc, refreshTokenEnc string, expiresAt *time.Time) error
	Delete(ctx context.Context, id string) error
}

// GeoRepository defines methods for GEO analysis persistence.
type GeoRepository interface {
	Create(ctx context.Context, analysis *models.GeoAnalysis) error
	GetByID(ctx context.Context, id string) (*models.GeoAnalysis, error)
	GetByUserID(ctx context.Context, userID string, limit int) ([]*models.GeoAnalysis, error)
}

// PricingVersion is a stored rate table revision.
type PricingVersion struct {
	Version   string
	RatesJSON string
	Active    bool
	CreatedAt time.Time
}

// PricingRepository defines methods for versioned pricing records.
type PricingRepository interface {
	// GetActive returns the active pricing version, or nil if none is set.
	GetActive(ctx context.Context) (*PricingVersion, error)
	// Activate inserts a new version and makes it the only active one.
	Activate(ctx context.Context, version, ratesJSON string) error
	List(ctx context.Context) ([]*PricingVersion, error)
}

// Repositories holds all repository instances.
type Repositories struct {
	Credits     CreditsRepository
	Usage       UsageRepository
	Purchase    PurchaseRepository
	Credentials CredentialsRepository
	Geo         GeoRepository
	Pricing     PricingRepository
}

// NewRepositories creates all repository instances.
func NewRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		Credits:     NewSQLiteCreditsRepository(db),
		Usage:       NewSQLiteUsageRepository(db),
		Purchase:    NewSQLitePurchaseRepository(db),
		Credentials: NewSQLiteCredentialsRepository(db),
		Geo:         NewSQLiteGeoRepository(db),
		Pricing:     NewSQLitePricingRepository(db),
	}
}
