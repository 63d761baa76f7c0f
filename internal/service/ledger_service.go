package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/aureon-one/mediaplan-api/internal/config"
	"github.com/aureon-one/mediaplan-api/internal/logging"
	"github.com/aureon-one/mediaplan-api/internal/models"
	"github.com/aureon-one/mediaplan-api/internal/repository"
)

// ErrInsufficientCredits indicates the user's balance does not cover the
// operation. Re-exported so handlers don't import the repository package.
var ErrInsufficientCredits = repository.ErrInsufficientCredits

// ErrDuplicatePurchase is re-exported so handlers can match it without
// importing the repository package.
var ErrDuplicatePurchase = repository.ErrDuplicatePurchase

// LedgerService owns the credit ledger: balance checks, metered deductions,
// purchases and usage reporting.
type LedgerService struct {
	repos      *repository.Repositories
	pricing    *PricingService
	billingCfg *config.BillingConfig
	logger     *slog.Logger
}

// NewLedgerService creates a ledger service.
func NewLedgerService(repos *repository.Repositories, pricingSvc *PricingService, billingCfg *config.BillingConfig, logger *slog.Logger) *LedgerService {
	return &LedgerService{
		repos:      repos,
		pricing:    pricingSvc,
		billingCfg: billingCfg,
		logger:     logger,
	}
}

// GetBalance returns the user's credit record, creating it with the signup
// grant on first touch.
func (s *LedgerService) GetBalance(ctx context.Context, userID string) (*models.UserCredits, error) {
	credits, err := s.repos.Credits.GetOrCreate(ctx, userID, s.billingCfg.SignupGrantCredits)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return credits, nil
}

// CheckCredits reports whether the user can afford an operation. It is
// read-only and never fails a request over affordability: an empty balance
// comes back as allowed=false, not as an error.
func (s *LedgerService) CheckCredits(ctx context.Context, userID, operation string, units int) (*models.CreditCheck, error) {
	cost, err := s.pricing.CalculateCost(ctx, operation, units)
	if err != nil {
		return nil, fmt.Errorf("failed to price operation: %w", err)
	}

	credits, err := s.repos.Credits.GetOrCreate(ctx, userID, s.billingCfg.SignupGrantCredits)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}

	check := &models.CreditCheck{
		Allowed:         credits.CreditsBalance >= cost.Credits,
		CreditsBalance:  credits.CreditsBalance,
		CreditsRequired: cost.Credits,
	}
	if !check.Allowed {
		check.CreditsShortfall = cost.Credits - credits.CreditsBalance
		check.Message = fmt.Sprintf("insufficient credits: %s requires %d, balance is %d", operation, cost.Credits, credits.CreditsBalance)
	}
	return check, nil
}

// UsageRecord describes one metered operation to log.
type UsageRecord struct {
	UserID     string
	Operation  string
	Units      int
	Success    bool
	Error      string
	Input      any
	DurationMs int64
}

// LogUsageAndDeductCredits records one operation in the usage log. For a
// successful operation the deduction and the log row commit in the same
// transaction; a failed operation is logged at zero cost and never touches
// the balance. Returns ErrInsufficientCredits when a successful operation
// cannot be covered, in which case nothing is written.
func (s *LedgerService) LogUsageAndDeductCredits(ctx context.Context, rec UsageRecord) (*models.UsageLog, error) {
	cost, err := s.pricing.CalculateCost(ctx, rec.Operation, rec.Units)
	if err != nil {
		return nil, fmt.Errorf("failed to price operation: %w", err)
	}

	var inputPayload string
	if rec.Input != nil {
		if encoded, err := json.Marshal(rec.Input); err == nil {
			inputPayload = string(encoded)
		}
	}

	log := &models.UsageLog{
		ID:             ulid.Make().String(),
		UserID:         rec.UserID,
		Operation:      rec.Operation,
		Units:          cost.Units,
		APICostUSD:     cost.APICostUSD,
		MarkupUSD:      cost.MarkupUSD,
		TotalUSD:       cost.TotalUSD,
		TotalINR:       cost.TotalINR,
		CreditsCost:    cost.Credits,
		InputPayload:   inputPayload,
		Success:        rec.Success,
		ErrorMessage:   rec.Error,
		PricingVersion: cost.Version,
		RequestID:      logging.GetRequestID(ctx),
		DurationMs:     rec.DurationMs,
		CreatedAt:      time.Now(),
	}

	if !rec.Success {
		// Failures are logged for visibility but never billed
		log.CreditsCost = 0
		log.APICostUSD = 0
		log.MarkupUSD = 0
		log.TotalUSD = 0
		log.TotalINR = 0
		if err := s.repos.Usage.Create(ctx, log); err != nil {
			return nil, fmt.Errorf("failed to log usage: %w", err)
		}
		return log, nil
	}

	if err := s.repos.Usage.CreateWithDeduction(ctx, log); err != nil {
		if errors.Is(err, repository.ErrInsufficientCredits) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to deduct credits: %w", err)
	}

	s.logger.Info("usage recorded",
		"user_id", rec.UserID,
		"operation", rec.Operation,
		"credits", cost.Credits,
		"total_usd", cost.TotalUSD,
		"pricing_version", cost.Version,
	)
	return log, nil
}

// AddCredits grants credits to a user, optionally completing a pending
// purchase. Replayed purchase completions return ErrDuplicatePurchase and
// leave the balance untouched.
func (s *LedgerService) AddCredits(ctx context.Context, userID string, credits int, purchaseID string) (*models.UserCredits, error) {
	if credits <= 0 {
		return nil, fmt.Errorf("credit amount must be positive, got %d", credits)
	}

	updated, err := s.repos.Credits.AddCredits(ctx, userID, credits, purchaseID)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicatePurchase) {
			s.logger.Info("duplicate purchase completion ignored", "user_id", userID, "purchase_id", purchaseID)
		}
		return nil, err
	}

	s.logger.Info("credits added",
		"user_id", userID,
		"credits", credits,
		"purchase_id", purchaseID,
		"balance_after", updated.CreditsBalance,
	)
	return updated, nil
}

// CreatePurchase records a pending credit purchase awaiting payment
// confirmation. gatewayRef is the payment gateway's idempotency handle.
func (s *LedgerService) CreatePurchase(ctx context.Context, userID string, credits int, amountUSD float64, gatewayRef string) (*models.CreditPurchase, error) {
	purchase := &models.CreditPurchase{
		ID:         ulid.Make().String(),
		UserID:     userID,
		Credits:    credits,
		AmountUSD:  amountUSD,
		Status:     models.PurchaseStatusPending,
		GatewayRef: gatewayRef,
		CreatedAt:  time.Now(),
	}
	if err := s.repos.Purchase.Create(ctx, purchase); err != nil {
		return nil, err
	}
	return purchase, nil
}

// CompletePurchaseByGatewayRef finishes a purchase identified by the payment
// gateway reference, crediting the buyer. Used by webhook handlers.
func (s *LedgerService) CompletePurchaseByGatewayRef(ctx context.Context, gatewayRef string) error {
	purchase, err := s.repos.Purchase.GetByGatewayRef(ctx, gatewayRef)
	if err != nil {
		return fmt.Errorf("failed to look up purchase: %w", err)
	}
	if purchase == nil {
		return fmt.Errorf("no purchase found for gateway ref %s", gatewayRef)
	}

	_, err = s.AddCredits(ctx, purchase.UserID, purchase.Credits, purchase.ID)
	return err
}

// RefundPurchase marks a completed purchase refunded.
func (s *LedgerService) RefundPurchase(ctx context.Context, gatewayRef string) error {
	purchase, err := s.repos.Purchase.GetByGatewayRef(ctx, gatewayRef)
	if err != nil {
		return fmt.Errorf("failed to look up purchase: %w", err)
	}
	if purchase == nil {
		return fmt.Errorf("no purchase found for gateway ref %s", gatewayRef)
	}
	return s.repos.Purchase.MarkRefunded(ctx, purchase.ID)
}

// GetUsageHistory returns a page of the user's usage log, newest first.
func (s *LedgerService) GetUsageHistory(ctx context.Context, userID string, limit, offset int) ([]*models.UsageLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repos.Usage.GetByUserID(ctx, userID, limit, offset)
}

// GetUsageSummary aggregates the user's usage per operation over a window.
func (s *LedgerService) GetUsageSummary(ctx context.Context, userID string, from, to time.Time) (*models.UsageSummary, error) {
	return s.repos.Usage.GetSummary(ctx, userID, from, to)
}

// GetPurchases returns a page of the user's purchase history, newest first.
func (s *LedgerService) GetPurchases(ctx context.Context, userID string, limit, offset int) ([]*models.CreditPurchase, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repos.Purchase.GetByUserID(ctx, userID, limit, offset)
}

// ShouldWarnLowCredits reports whether the balance has crossed the
// low-credit warning threshold.
func (s *LedgerService) ShouldWarnLowCredits(balance int) bool {
	return balance <= s.billingCfg.LowCreditThreshold
}
