package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"

	"github.com/aureon-one/mediaplan-api/internal/config"
	"github.com/aureon-one/mediaplan-api/internal/service"
)

// StripeWebhookHandler handles Stripe webhook events for credit purchases.
type StripeWebhookHandler struct {
	cfg    *config.Config
	ledger *service.LedgerService
	logger *slog.Logger
}

// NewStripeWebhookHandler creates a new Stripe webhook handler.
func NewStripeWebhookHandler(cfg *config.Config, ledger *service.LedgerService, logger *slog.Logger) *StripeWebhookHandler {
	return &StripeWebhookHandler{
		cfg:    cfg,
		ledger: ledger,
		logger: logger,
	}
}

// HandleWebhook processes incoming Stripe webhooks.
// This is a raw HTTP handler since huma doesn't handle raw body verification well.
func (h *StripeWebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	const maxBodySize = 65536 // 64KB

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error("failed to read webhook body", "error", err)
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	event, err := webhook.ConstructEvent(payload, sigHeader, h.cfg.StripeWebhookSecret)
	if err != nil {
		h.logger.Error("failed to verify webhook signature", "error", err)
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	if err := h.handleEvent(r.Context(), event); err != nil {
		h.logger.Error("failed to handle webhook event", "type", event.Type, "error", err)
		// Return 200 to prevent Stripe from retrying (we'll handle the error internally)
		w.WriteHeader(http.StatusOK)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// handleEvent routes events to appropriate handlers.
func (h *StripeWebhookHandler) handleEvent(ctx context.Context, event stripe.Event) error {
	h.logger.Info("received Stripe webhook", "type", event.Type, "id", event.ID)

	switch event.Type {
	case "checkout.session.completed":
		return h.handleCheckoutComplete(ctx, event)

	case "charge.refunded":
		return h.handleChargeRefunded(ctx, event)

	default:
		h.logger.Debug("unhandled webhook event type", "type", event.Type)
		return nil
	}
}

// handleCheckoutComplete completes the pending purchase keyed by the
// checkout session ID and credits the buyer's balance.
func (h *StripeWebhookHandler) handleCheckoutComplete(ctx context.Context, event stripe.Event) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return fmt.Errorf("failed to unmarshal checkout session: %w", err)
	}

	if err := h.ledger.CompletePurchaseByGatewayRef(ctx, session.ID); err != nil {
		if errors.Is(err, service.ErrDuplicatePurchase) {
			h.logger.Info("duplicate checkout completion ignored", "session_id", session.ID)
			return nil
		}
		return fmt.Errorf("failed to complete purchase: %w", err)
	}

	h.logger.Info("completed credit purchase", "session_id", session.ID)
	return nil
}

// handleChargeRefunded marks the matching purchase refunded. Spent credits
// are not clawed back.
func (h *StripeWebhookHandler) handleChargeRefunded(ctx context.Context, event stripe.Event) error {
	var charge stripe.Charge
	if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
		return fmt.Errorf("failed to unmarshal charge: %w", err)
	}

	sessionID := charge.Metadata["checkout_session_id"]
	if sessionID == "" {
		h.logger.Warn("refunded charge missing checkout session reference", "charge_id", charge.ID)
		return nil
	}

	if err := h.ledger.RefundPurchase(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to mark purchase refunded: %w", err)
	}

	h.logger.Info("marked purchase refunded",
		"charge_id", charge.ID,
		"session_id", sessionID,
		"refund_amount_usd", float64(charge.AmountRefunded)/100.0,
	)
	return nil
}
