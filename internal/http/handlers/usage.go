package handlers

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/aureon-one/mediaplan-api/internal/models"
	"github.com/aureon-one/mediaplan-api/internal/service"
)

// UsageHandler handles usage history and summary endpoints.
type UsageHandler struct {
	ledger *service.LedgerService
}

// NewUsageHandler creates a new usage handler.
func NewUsageHandler(ledger *service.LedgerService) *UsageHandler {
	return &UsageHandler{ledger: ledger}
}

// GetUsageInput represents usage history request.
type GetUsageInput struct {
	Limit  int `query:"limit" default:"50" minimum:"1" maximum:"100" doc:"Page size"`
	Offset int `query:"offset" default:"0" minimum:"0" doc:"Page offset"`
}

// GetUsageOutput represents usage history response.
type GetUsageOutput struct {
	Body struct {
		Logs []*models.UsageLog `json:"logs"`
	}
}

// GetUsage handles listing a user's usage logs, newest first.
func (h *UsageHandler) GetUsage(ctx context.Context, input *GetUsageInput) (*GetUsageOutput, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	logs, err := h.ledger.GetUsageHistory(ctx, userID, input.Limit, input.Offset)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to get usage history")
	}

	out := &GetUsageOutput{}
	out.Body.Logs = logs
	return out, nil
}

// GetUsageSummaryInput represents usage summary request.
type GetUsageSummaryInput struct {
	From string `query:"from" doc:"Start of the window (RFC 3339). Defaults to 30 days ago."`
	To   string `query:"to" doc:"End of the window (RFC 3339). Defaults to now."`
}

// GetUsageSummaryOutput represents usage summary response.
type GetUsageSummaryOutput struct {
	Body models.UsageSummary
}

// GetUsageSummary handles the per-operation usage aggregate.
func (h *UsageHandler) GetUsageSummary(ctx context.Context, input *GetUsageSummaryInput) (*GetUsageSummaryOutput, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -30)
	if input.From != "" {
		parsed, err := time.Parse(time.RFC3339, input.From)
		if err != nil {
			return nil, huma.Error400BadRequest("invalid from timestamp")
		}
		from = parsed
	}
	if input.To != "" {
		parsed, err := time.Parse(time.RFC3339, input.To)
		if err != nil {
			return nil, huma.Error400BadRequest("invalid to timestamp")
		}
		to = parsed
	}
	if to.Before(from) {
		return nil, huma.Error400BadRequest("to must be after from")
	}

	summary, err := h.ledger.GetUsageSummary(ctx, userID, from, to)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to get usage summary")
	}

	return &GetUsageSummaryOutput{Body: *summary}, nil
}
