// Package models contains the domain types shared across repositories,
// services and handlers.
package models

import "time"

// UserCredits is a user's credit balance row.
type UserCredits struct {
	UserID         string    `json:"user_id"`
	CreditsBalance int       `json:"credits_balance"`
	TotalPurchased int       `json:"total_purchased"`
	TotalUsed      int       `json:"total_used"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// UsageLog records one metered operation, successful or not. Failed
// operations are logged with Success=false and do not deduct credits.
type UsageLog struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Operation      string    `json:"operation"`
	Units          int       `json:"units"`
	APICostUSD     float64   `json:"api_cost_usd"`
	MarkupUSD      float64   `json:"markup_usd"`
	TotalUSD       float64   `json:"total_usd"`
	TotalINR       float64   `json:"total_inr"`
	CreditsCost    int       `json:"credits_cost"`
	InputPayload   string    `json:"input_payload,omitempty"`
	Success        bool      `json:"success"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	PricingVersion string    `json:"pricing_version,omitempty"`
	RequestID      string    `json:"request_id,omitempty"`
	DurationMs     int64     `json:"duration_ms,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Purchase statuses.
const (
	PurchaseStatusPending   = "pending"
	PurchaseStatusCompleted = "completed"
	PurchaseStatusRefunded  = "refunded"
)

// CreditPurchase is a credit pack purchase. GatewayRef holds the payment
// provider's reference (Stripe checkout session id) and is unique.
type CreditPurchase struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Credits     int        `json:"credits"`
	AmountUSD   float64    `json:"amount_usd"`
	Status      string     `json:"status"`
	GatewayRef  string     `json:"gateway_ref,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// CreditCheck is the result of a pre-flight affordability check.
type CreditCheck struct {
	Allowed          bool   `json:"allowed"`
	CreditsBalance   int    `json:"credits_balance"`
	CreditsRequired  int    `json:"credits_required"`
	CreditsShortfall int    `json:"credits_shortfall,omitempty"`
	Message          string `json:"message,omitempty"`
}

// OperationSummary aggregates usage for one operation type.
type OperationSummary struct {
	Operation   string  `json:"operation"`
	Count       int     `json:"count"`
	Credits     int     `json:"credits"`
	TotalUSD    float64 `json:"total_usd"`
	TotalINR    float64 `json:"total_inr"`
	SuccessRate float64 `json:"success_rate"`
}

// UsageSummary is the aggregate view returned by the usage summary endpoint.
type UsageSummary struct {
	UserID       string             `json:"user_id"`
	From         time.Time          `json:"from"`
	To           time.Time          `json:"to"`
	TotalCredits int                `json:"total_credits"`
	TotalUSD     float64            `json:"total_usd"`
	TotalINR     float64            `json:"total_inr"`
	Operations   []OperationSummary `json:"operations"`
}
