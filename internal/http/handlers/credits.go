package handlers

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/aureon-one/mediaplan-api/internal/models"
	"github.com/aureon-one/mediaplan-api/internal/service"
)

// CreditsHandler handles credit balance and purchase endpoints.
type CreditsHandler struct {
	ledger *service.LedgerService
}

// NewCreditsHandler creates a new credits handler.
func NewCreditsHandler(ledger *service.LedgerService) *CreditsHandler {
	return &CreditsHandler{ledger: ledger}
}

// GetBalanceOutput represents the credit balance response.
type GetBalanceOutput struct {
	Body struct {
		UserID         string `json:"user_id"`
		CreditsBalance int    `json:"credits_balance"`
		TotalPurchased int    `json:"total_purchased"`
		TotalUsed      int    `json:"total_used"`
		LowCredits     bool   `json:"low_credits" doc:"True when the balance is at or below the warning threshold"`
	}
}

// GetBalance handles getting the current credit balance.
func (h *CreditsHandler) GetBalance(ctx context.Context, input *struct{}) (*GetBalanceOutput, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	balance, err := h.ledger.GetBalance(ctx, userID)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to get credit balance")
	}

	out := &GetBalanceOutput{}
	out.Body.UserID = balance.UserID
	out.Body.CreditsBalance = balance.CreditsBalance
	out.Body.TotalPurchased = balance.TotalPurchased
	out.Body.TotalUsed = balance.TotalUsed
	out.Body.LowCredits = h.ledger.ShouldWarnLowCredits(balance.CreditsBalance)
	return out, nil
}

// CheckCreditsInput represents a pre-flight affordability check request.
type CheckCreditsInput struct {
	Operation string `query:"operation" required:"true" doc:"Operation to check, e.g. GEO_ANALYSIS"`
	Units     int    `query:"units" default:"1" minimum:"1" doc:"Number of units the operation will consume"`
}

// CheckCreditsOutput represents the affordability check response.
type CheckCreditsOutput struct {
	Body models.CreditCheck
}

// CheckCredits handles the read-only affordability check.
func (h *CreditsHandler) CheckCredits(ctx context.Context, input *CheckCreditsInput) (*CheckCreditsOutput, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	check, err := h.ledger.CheckCredits(ctx, userID, input.Operation, input.Units)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}

	return &CheckCreditsOutput{Body: *check}, nil
}

// CreatePurchaseInput represents a credit pack purchase request.
type CreatePurchaseInput struct {
	Body struct {
		Credits    int     `json:"credits" minimum:"1" doc:"Number of credits to purchase"`
		AmountUSD  float64 `json:"amount_usd" minimum:"0" doc:"Price paid in USD"`
		GatewayRef string  `json:"gateway_ref,omitempty" doc:"Payment gateway reference (Stripe checkout session id)"`
	}
}

// CreatePurchaseOutput represents the created purchase.
type CreatePurchaseOutput struct {
	Body models.CreditPurchase
}

// CreatePurchase records a pending credit purchase. Credits are granted
// when the payment gateway confirms completion via webhook.
func (h *CreditsHandler) CreatePurchase(ctx context.Context, input *CreatePurchaseInput) (*CreatePurchaseOutput, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	purchase, err := h.ledger.CreatePurchase(ctx, userID, input.Body.Credits, input.Body.AmountUSD, input.Body.GatewayRef)
	if err != nil {
		if errors.Is(err, service.ErrDuplicatePurchase) {
			return nil, huma.Error409Conflict("purchase already recorded for this gateway reference")
		}
		return nil, huma.Error400BadRequest(err.Error())
	}

	return &CreatePurchaseOutput{Body: *purchase}, nil
}

// ListPurchasesInput represents purchase history request.
type ListPurchasesInput struct {
	Limit  int `query:"limit" default:"50" minimum:"1" maximum:"100"`
	Offset int `query:"offset" default:"0" minimum:"0"`
}

// ListPurchasesOutput represents purchase history response.
type ListPurchasesOutput struct {
	Body struct {
		Purchases []*models.CreditPurchase `json:"purchases"`
	}
}

// ListPurchases handles listing a user's credit purchases.
func (h *CreditsHandler) ListPurchases(ctx context.Context, input *ListPurchasesInput) (*ListPurchasesOutput, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	purchases, err := h.ledger.GetPurchases(ctx, userID, input.Limit, input.Offset)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list purchases")
	}

	out := &ListPurchasesOutput{}
	out.Body.Purchases = purchases
	return out, nil
}
