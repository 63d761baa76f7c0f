package handlers

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/aureon-one/mediaplan-api/internal/models"
	"github.com/aureon-one/mediaplan-api/internal/repository"
	"github.com/aureon-one/mediaplan-api/internal/service"
)

// GeoHandler handles GEO analysis endpoints.
type GeoHandler struct {
	geo *service.GeoService
}

// NewGeoHandler creates a new GEO handler.
func NewGeoHandler(geo *service.GeoService) *GeoHandler {
	return &GeoHandler{geo: geo}
}

// AnalyzeInput represents an analysis request.
type AnalyzeInput struct {
	Body struct {
		URL           string   `json:"url" required:"true" doc:"Page URL to analyze. Scheme defaults to https."`
		TargetTopic   string   `json:"target_topic,omitempty" doc:"Topic the page should rank for; steers Q&A gap analysis"`
		TargetEngines []string `json:"target_engines,omitempty" doc:"AI search engines to optimize for, e.g. chatgpt, perplexity"`
	}
}

// AnalyzeOutput represents the completed analysis.
type AnalyzeOutput struct {
	Body models.GeoAnalysis
}

// Analyze handles running a GEO analysis for a URL.
func (h *GeoHandler) Analyze(ctx context.Context, input *AnalyzeInput) (*AnalyzeOutput, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	analysis, err := h.geo.Analyze(ctx, userID, service.AnalyzeInput{
		URL:           input.Body.URL,
		TargetTopic:   input.Body.TargetTopic,
		TargetEngines: input.Body.TargetEngines,
	})
	if err != nil {
		if errors.Is(err, service.ErrInsufficientCredits) {
			return nil, huma.NewError(402, err.Error())
		}
		return nil, huma.Error500InternalServerError(err.Error())
	}

	return &AnalyzeOutput{Body: *analysis}, nil
}

// GetAnalysisInput represents a single analysis lookup.
type GetAnalysisInput struct {
	ID string `path:"id" doc:"Analysis ID"`
}

// GetAnalysisOutput represents a single analysis.
type GetAnalysisOutput struct {
	Body models.GeoAnalysis
}

// GetAnalysis handles fetching one stored analysis.
func (h *GeoHandler) GetAnalysis(ctx context.Context, input *GetAnalysisInput) (*GetAnalysisOutput, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	analysis, err := h.geo.Get(ctx, userID, input.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, huma.Error404NotFound("analysis not found")
		}
		return nil, huma.Error500InternalServerError("failed to get analysis")
	}

	return &GetAnalysisOutput{Body: *analysis}, nil
}

// ListAnalysesOutput represents the analysis history.
type ListAnalysesOutput struct {
	Body struct {
		Analyses []*models.GeoAnalysis `json:"analyses"`
	}
}

// ListAnalyses handles listing a user's recent analyses, newest first.
func (h *GeoHandler) ListAnalyses(ctx context.Context, input *struct{}) (*ListAnalysesOutput, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	analyses, err := h.geo.GetHistory(ctx, userID)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list analyses")
	}

	out := &ListAnalysesOutput{}
	out.Body.Analyses = analyses
	return out, nil
}
