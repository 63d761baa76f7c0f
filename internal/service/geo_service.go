package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/oklog/ulid/v2"

	"github.com/aureon-one/mediaplan-api/internal/models"
	"github.com/aureon-one/mediaplan-api/internal/pricing"
	"github.com/aureon-one/mediaplan-api/internal/repository"
)

const (
	geoUserAgent      = "MediaPlanPro-GEO-Analyzer/1.0"
	geoMaxContentLen  = 15000
	geoHistoryLimit   = 20
	geoDefaultTimeout = 30 * time.Second
)

// Score weights. They sum to 1.0 so the overall score stays on the same
// 0-100 scale as the sub-scores.
const (
	weightContentClarity = 0.20
	weightQACoverage     = 0.25
	weightEntityRichness = 0.15
	weightSchemaPresence = 0.15
	weightFreshness      = 0.10
	weightAuthority      = 0.15
)

// GeoService scores pages for generative engine visibility: how likely an
// LLM-backed answer engine is to surface and cite the page.
type GeoService struct {
	repos  *repository.Repositories
	ledger *LedgerService
	llm    *LLMClient
	logger *slog.Logger

	// fetchPage is swappable in tests
	fetchPage func(ctx context.Context, targetURL string) (*pageContent, error)
}

// NewGeoService creates a GEO analysis service.
func NewGeoService(repos *repository.Repositories, ledger *LedgerService, llmClient *LLMClient, logger *slog.Logger) *GeoService {
	s := &GeoService{
		repos:  repos,
		ledger: ledger,
		llm:    llmClient,
		logger: logger,
	}
	s.fetchPage = s.fetchPageStatic
	return s
}

// AnalyzeInput is the request for one GEO analysis.
type AnalyzeInput struct {
	URL           string   `json:"url"`
	TargetTopic   string   `json:"target_topic,omitempty"`
	TargetEngines []string `json:"target_engines,omitempty"`
}

// pageContent is what the fetch stage hands to scoring.
type pageContent struct {
	Title       string
	Text        string
	WordCount   int
	HasSchema   bool
	SchemaTypes []string
}

// Analyze runs the full pipeline: affordability check, page fetch, LLM
// scoring, persistence, then metering. A failure after the credit check is
// logged as unbilled usage before the error returns.
func (s *GeoService) Analyze(ctx context.Context, userID string, input AnalyzeInput) (*models.GeoAnalysis, error) {
	startTime := time.Now()
	targetURL := normalizeURL(input.URL)

	s.logger.Info("starting GEO analysis", "user_id", userID, "url", targetURL)

	check, err := s.ledger.CheckCredits(ctx, userID, pricing.OpGeoAnalysis, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to check credits: %w", err)
	}
	if !check.Allowed {
		return nil, fmt.Errorf("%w: need %d credits, have %d", ErrInsufficientCredits, check.CreditsRequired, check.CreditsBalance)
	}

	page, err := s.fetchPage(ctx, targetURL)
	if err != nil {
		s.recordUsage(ctx, userID, targetURL, false, err.Error(), startTime)
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}

	scores, insights, parsed := s.scorePage(ctx, targetURL, input.TargetTopic, page)
	if !parsed {
		s.logger.Warn("LLM scores unavailable, using fallback", "url", targetURL, "has_schema", page.HasSchema)
	}

	overall := overallScore(scores)
	analysis := &models.GeoAnalysis{
		ID:                ulid.Make().String(),
		UserID:            userID,
		URL:               targetURL,
		Domain:            domainOf(targetURL),
		TargetTopic:       input.TargetTopic,
		OverallScore:      overall,
		Scores:            scores,
		Interpretation:    interpretScore(overall),
		ContentSummary:    insights.ContentSummary,
		Entities:          insights.Entities,
		QAClustersCovered: insights.QAClustersCovered,
		QAClustersGaps:    insights.QAClustersGaps,
		StructuralIssues:  insights.StructuralIssues,
		SchemaSuggestions: insights.SchemaSuggestions,
		Recommendations:   insights.Recommendations,
		ImprovedOutline:   insights.ImprovedOutline,
		TargetEngines:     input.TargetEngines,
		PageTitle:         page.Title,
		WordCount:         page.WordCount,
		HasSchemaMarkup:   page.HasSchema,
		SchemaTypes:       page.SchemaTypes,
		ProcessingTimeMs:  time.Since(startTime).Milliseconds(),
		CreatedAt:         time.Now(),
	}

	if err := s.repos.Geo.Create(ctx, analysis); err != nil {
		s.recordUsage(ctx, userID, targetURL, false, err.Error(), startTime)
		return nil, fmt.Errorf("failed to save analysis: %w", err)
	}

	s.recordUsage(ctx, userID, targetURL, true, "", startTime)

	s.logger.Info("GEO analysis complete",
		"user_id", userID,
		"url", targetURL,
		"overall_score", overall,
		"duration_ms", analysis.ProcessingTimeMs,
	)
	return analysis, nil
}

// Get returns one analysis, scoped to its owner.
func (s *GeoService) Get(ctx context.Context, userID, id string) (*models.GeoAnalysis, error) {
	analysis, err := s.repos.Geo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if analysis == nil || analysis.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return analysis, nil
}

// GetHistory returns the user's recent analyses, newest first.
func (s *GeoService) GetHistory(ctx context.Context, userID string) ([]*models.GeoAnalysis, error) {
	return s.repos.Geo.GetByUserID(ctx, userID, geoHistoryLimit)
}

// recordUsage meters the analysis. It uses a detached context so the usage
// row lands even when the request context has already been cancelled.
func (s *GeoService) recordUsage(ctx context.Context, userID, targetURL string, success bool, errMsg string, startTime time.Time) {
	rec := UsageRecord{
		UserID:     userID,
		Operation:  pricing.OpGeoAnalysis,
		Units:      1,
		Success:    success,
		Error:      errMsg,
		Input:      map[string]string{"url": targetURL},
		DurationMs: time.Since(startTime).Milliseconds(),
	}
	if _, err := s.ledger.LogUsageAndDeductCredits(context.WithoutCancel(ctx), rec); err != nil {
		s.logger.Warn("failed to record GEO usage", "user_id", userID, "url", targetURL, "error", err)
	}
}

// fetchPageStatic fetches the page and extracts the signals scoring needs.
func (s *GeoService) fetchPageStatic(ctx context.Context, targetURL string) (*pageContent, error) {
	page := &pageContent{}

	c := colly.NewCollector(
		colly.UserAgent(geoUserAgent),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(geoDefaultTimeout)

	c.OnHTML("title", func(e *colly.HTMLElement) {
		if page.Title == "" {
			page.Title = strings.TrimSpace(e.Text)
		}
	})

	c.OnHTML(`script[type="application/ld+json"]`, func(e *colly.HTMLElement) {
		page.HasSchema = true
		if t := schemaTypeOf(e.Text); t != "" {
			page.SchemaTypes = append(page.SchemaTypes, t)
		}
	})

	c.OnHTML("body", func(e *colly.HTMLElement) {
		// drop script and style contents before measuring text
		e.DOM.Find("script, style, noscript").Remove()
		page.Text = strings.Join(strings.Fields(e.DOM.Text()), " ")
	})

	if err := c.Visit(targetURL); err != nil {
		return nil, err
	}

	page.WordCount = len(strings.Fields(page.Text))
	if len(page.Text) > geoMaxContentLen {
		page.Text = page.Text[:geoMaxContentLen]
	}
	return page, nil
}

// geoLLMResponse is the JSON shape the scoring prompt asks for.
type geoLLMResponse struct {
	ContentClarity    int                `json:"content_clarity"`
	QACoverage        int                `json:"qa_coverage"`
	EntityRichness    int                `json:"entity_richness"`
	SchemaPresence    int                `json:"schema_presence"`
	Freshness         int                `json:"freshness"`
	Authority         int                `json:"authority"`
	ContentSummary    string             `json:"content_summary"`
	Entities          models.GeoEntities `json:"entities"`
	QAClustersCovered []string           `json:"qa_clusters_covered"`
	QAClustersGaps    []string           `json:"qa_clusters_gaps"`
	StructuralIssues  []string           `json:"structural_issues"`
	SchemaSuggestions []string           `json:"schema_suggestions"`
	Recommendations   []string           `json:"recommendations"`
	ImprovedOutline   string             `json:"improved_outline"`
}

// geoInsights is the qualitative half of a scored analysis.
type geoInsights struct {
	ContentSummary    string
	Entities          models.GeoEntities
	QAClustersCovered []string
	QAClustersGaps    []string
	StructuralIssues  []string
	SchemaSuggestions []string
	Recommendations   []string
	ImprovedOutline   string
}

// scorePage asks the LLM for sub-scores and the qualitative breakdown. When
// the call or parse fails the neutral fallback applies, with schema presence
// scored from what the fetcher actually observed. The third result reports
// whether LLM output was used.
func (s *GeoService) scorePage(ctx context.Context, targetURL, targetTopic string, page *pageContent) (models.GeoScores, geoInsights, bool) {
	prompt := buildGeoPrompt(targetURL, targetTopic, page)

	result, err := s.llm.Call(ctx, prompt, LLMCallOptions{JSONMode: true})
	if err != nil {
		s.logger.Warn("LLM scoring call failed", "url", targetURL, "error", err)
		return fallbackScores(page.HasSchema), fallbackInsights(page.HasSchema), false
	}

	var parsed geoLLMResponse
	if err := json.Unmarshal([]byte(extractJSON(result.Content)), &parsed); err != nil {
		s.logger.Warn("failed to parse LLM scores", "url", targetURL, "error", err)
		return fallbackScores(page.HasSchema), fallbackInsights(page.HasSchema), false
	}

	scores := models.GeoScores{
		ContentClarity: clampScore(parsed.ContentClarity),
		QACoverage:     clampScore(parsed.QACoverage),
		EntityRichness: clampScore(parsed.EntityRichness),
		SchemaPresence: clampScore(parsed.SchemaPresence),
		Freshness:      clampScore(parsed.Freshness),
		Authority:      clampScore(parsed.Authority),
	}
	insights := geoInsights{
		ContentSummary:    parsed.ContentSummary,
		Entities:          parsed.Entities,
		QAClustersCovered: parsed.QAClustersCovered,
		QAClustersGaps:    parsed.QAClustersGaps,
		StructuralIssues:  parsed.StructuralIssues,
		SchemaSuggestions: parsed.SchemaSuggestions,
		Recommendations:   parsed.Recommendations,
		ImprovedOutline:   parsed.ImprovedOutline,
	}
	return scores, insights, true
}

func buildGeoPrompt(targetURL, targetTopic string, page *pageContent) string {
	var sb strings.Builder
	sb.WriteString("You are scoring a web page for generative engine optimization: how likely ")
	sb.WriteString("AI answer engines (ChatGPT, Perplexity, Google AI Overviews) are to cite it.\n\n")
	sb.WriteString("Score each dimension 0-100:\n")
	sb.WriteString("- content_clarity: direct, well-structured answers over marketing fluff\n")
	sb.WriteString("- qa_coverage: how many concrete questions the page answers\n")
	sb.WriteString("- entity_richness: named entities, facts, figures, definitions\n")
	sb.WriteString("- schema_presence: structured data quality\n")
	sb.WriteString("- freshness: signals of recent or maintained content\n")
	sb.WriteString("- authority: expertise signals, citations, author credentials\n\n")
	sb.WriteString("Also produce:\n")
	sb.WriteString("- content_summary: 2-3 sentences summarizing what the page covers\n")
	sb.WriteString("- entities: named entities grouped as {\"brands\": [], \"topics\": [], \"locations\": [], \"people\": []}\n")
	sb.WriteString("- qa_clusters_covered: question clusters the page answers well\n")
	sb.WriteString("- qa_clusters_gaps: question clusters the page should answer but does not\n")
	sb.WriteString("- structural_issues: formatting or structure problems hurting citability\n")
	sb.WriteString("- schema_suggestions: JSON-LD schema types the page should add\n")
	sb.WriteString("- recommendations: up to 5 short, actionable recommendations\n")
	sb.WriteString("- improved_outline: a heading outline the page should adopt\n\n")
	sb.WriteString("Respond with only a JSON object containing the six integer scores ")
	sb.WriteString("and the fields above.\n\n")
	fmt.Fprintf(&sb, "URL: %s\nTitle: %s\nWord count: %d\n", targetURL, page.Title, page.WordCount)
	if targetTopic != "" {
		fmt.Fprintf(&sb, "Target topic: %s\n", targetTopic)
	}
	if len(page.SchemaTypes) > 0 {
		fmt.Fprintf(&sb, "Existing JSON-LD schema: %s\n", strings.Join(page.SchemaTypes, ", "))
	} else {
		sb.WriteString("Existing JSON-LD schema: none detected\n")
	}
	fmt.Fprintf(&sb, "\nPage content:\n%s\n", page.Text)
	return sb.String()
}

// fallbackScores is the neutral scoring used when LLM output is unusable.
// Schema presence is the one signal the fetcher can verify on its own.
func fallbackScores(hasSchema bool) models.GeoScores {
	scores := models.GeoScores{
		ContentClarity: 50,
		QACoverage:     50,
		EntityRichness: 50,
		SchemaPresence: 20,
		Freshness:      50,
		Authority:      50,
	}
	if hasSchema {
		scores.SchemaPresence = 60
	}
	return scores
}

func fallbackInsights(hasSchema bool) geoInsights {
	recs := []string{
		"Automated scoring was unavailable for this page; re-run the analysis for detailed recommendations.",
	}
	if !hasSchema {
		recs = append(recs, "Add JSON-LD structured data so answer engines can parse the page reliably.")
	}
	return geoInsights{
		ContentSummary:    "Unable to analyze content.",
		QAClustersCovered: []string{},
		QAClustersGaps:    []string{"Could not determine gaps"},
		StructuralIssues:  []string{"Analysis incomplete"},
		SchemaSuggestions: []string{"FAQPage", "Article"},
		Recommendations:   recs,
	}
}

// schemaTypeOf reads the @type of a JSON-LD block. Arrays yield their first
// element.
func schemaTypeOf(raw string) string {
	var doc struct {
		Type any `json:"@type"`
	}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return ""
	}
	switch t := doc.Type.(type) {
	case string:
		return t
	case []any:
		if len(t) > 0 {
			if s, ok := t[0].(string); ok {
				return s
			}
		}
	}
	return ""
}

// overallScore is the weighted blend of the sub-scores, rounded to the
// nearest integer.
func overallScore(s models.GeoScores) int {
	weighted := float64(s.ContentClarity)*weightContentClarity +
		float64(s.QACoverage)*weightQACoverage +
		float64(s.EntityRichness)*weightEntityRichness +
		float64(s.SchemaPresence)*weightSchemaPresence +
		float64(s.Freshness)*weightFreshness +
		float64(s.Authority)*weightAuthority
	return int(math.Round(weighted))
}

func interpretScore(score int) string {
	switch {
	case score >= 80:
		return "Excellent: this page is well positioned to be cited by generative engines."
	case score >= 60:
		return "Good: the page has solid fundamentals with room for targeted improvements."
	case score >= 40:
		return "Fair: generative engines may surface this page, but key signals are weak."
	default:
		return "Poor: significant changes are needed before generative engines will cite this page."
	}
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// extractJSON strips markdown code fences some models wrap JSON in.
func extractJSON(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		if idx := strings.LastIndex(content, "```"); idx >= 0 {
			content = content[:idx]
		}
		content = strings.TrimSpace(content)
	}
	return content
}

var schemeRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://`)

// normalizeURL defaults to https when no scheme was given.
func normalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	if !schemeRe.MatchString(raw) {
		return "https://" + raw
	}
	return raw
}

func domainOf(targetURL string) string {
	parsed, err := url.Parse(targetURL)
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}
