package models

import "time"

// GeoScores holds the six sub-scores (0-100) that make up a GEO analysis.
type GeoScores struct {
	ContentClarity int `json:"content_clarity"`
	QACoverage     int `json:"qa_coverage"`
	EntityRichness int `json:"entity_richness"`
	SchemaPresence int `json:"schema_presence"`
	Freshness      int `json:"freshness"`
	Authority      int `json:"authority"`
}

// GeoEntities groups the named entities extracted from a page.
type GeoEntities struct {
	Brands    []string `json:"brands"`
	Topics    []string `json:"topics"`
	Locations []string `json:"locations"`
	People    []string `json:"people"`
}

// GeoAnalysis is a persisted AI search visibility analysis for one URL.
type GeoAnalysis struct {
	ID                string      `json:"id"`
	UserID            string      `json:"user_id"`
	URL               string      `json:"url"`
	Domain            string      `json:"domain"`
	TargetTopic       string      `json:"target_topic,omitempty"`
	OverallScore      int         `json:"overall_score"`
	Scores            GeoScores   `json:"scores"`
	Interpretation    string      `json:"interpretation"`
	ContentSummary    string      `json:"content_summary"`
	Entities          GeoEntities `json:"entities"`
	QAClustersCovered []string    `json:"qa_clusters_covered"`
	QAClustersGaps    []string    `json:"qa_clusters_gaps"`
	StructuralIssues  []string    `json:"structural_issues"`
	SchemaSuggestions []string    `json:"schema_suggestions"`
	Recommendations   []string    `json:"recommendations"`
	ImprovedOutline   string      `json:"improved_outline,omitempty"`
	TargetEngines     []string    `json:"target_engines"`
	PageTitle         string      `json:"page_title,omitempty"`
	WordCount         int         `json:"word_count"`
	HasSchemaMarkup   bool        `json:"has_schema_markup"`
	SchemaTypes       []string    `json:"schema_types"`
	ProcessingTimeMs  int64       `json:"processing_time_ms"`
	CreatedAt         time.Time   `json:"created_at"`
}
