package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/aureon-one/mediaplan-api/internal/models"
)

// SQLiteGeoRepository implements GeoRepository for SQLite.
type SQLiteGeoRepository struct {
	db *sql.DB
}

// NewSQLiteGeoRepository creates a new SQLite GEO repository.
func NewSQLiteGeoRepository(db *sql.DB) *SQLiteGeoRepository {
	return &SQLiteGeoRepository{db: db}
}

const geoColumns = `id, user_id, url, domain, target_topic, overall_score, content_clarity, qa_coverage, entity_richness,
	schema_presence, freshness, authority, interpretation, content_summary, entities_json,
	qa_covered_json, qa_gaps_json, structural_issues_json, schema_suggestions_json,
	recommendations_json, improved_outline, target_engines_json,
	page_title, word_count, has_schema_markup, schema_types_json, processing_time_ms, created_at`

func (r *SQLiteGeoRepository) Create(ctx context.Context, analysis *models.GeoAnalysis) error {
	entities, err := json.Marshal(analysis.Entities)
	if err != nil {
		return err
	}
	qaCovered, err := json.Marshal(analysis.QAClustersCovered)
	if err != nil {
		return err
	}
	qaGaps, err := json.Marshal(analysis.QAClustersGaps)
	if err != nil {
		return err
	}
	issues, err := json.Marshal(analysis.StructuralIssues)
	if err != nil {
		return err
	}
	suggestions, err := json.Marshal(analysis.SchemaSuggestions)
	if err != nil {
		return err
	}
	recommendations, err := json.Marshal(analysis.Recommendations)
	if err != nil {
		return err
	}
	engines, err := json.Marshal(analysis.TargetEngines)
	if err != nil {
		return err
	}
	schemaTypes, err := json.Marshal(analysis.SchemaTypes)
	if err != nil {
		return err
	}

	query := `INSERT INTO geo_analyses (` + geoColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		analysis.ID, analysis.UserID, analysis.URL, analysis.Domain, nullString(analysis.TargetTopic),
		analysis.OverallScore, analysis.Scores.ContentClarity, analysis.Scores.QACoverage,
		analysis.Scores.EntityRichness, analysis.Scores.SchemaPresence, analysis.Scores.Freshness,
		analysis.Scores.Authority, nullString(analysis.Interpretation), nullString(analysis.ContentSummary),
		string(entities), string(qaCovered), string(qaGaps), string(issues), string(suggestions),
		string(recommendations), nullString(analysis.ImprovedOutline), string(engines),
		nullString(analysis.PageTitle), analysis.WordCount, analysis.HasSchemaMarkup,
		string(schemaTypes), analysis.ProcessingTimeMs, analysis.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (r *SQLiteGeoRepository) GetByID(ctx context.Context, id string) (*models.GeoAnalysis, error) {
	query := `SELECT ` + geoColumns + ` FROM geo_analyses WHERE id = ?`

	analysis, err := scanGeoRow(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return analysis, err
}

func (r *SQLiteGeoRepository) GetByUserID(ctx context.Context, userID string, limit int) ([]*models.GeoAnalysis, error) {
	query := `SELECT ` + geoColumns + ` FROM geo_analyses WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var analyses []*models.GeoAnalysis
	for rows.Next() {
		analysis, err := scanGeoRow(rows)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, analysis)
	}

	return analyses, rows.Err()
}

func scanGeoRow(row rowScanner) (*models.GeoAnalysis, error) {
	var a models.GeoAnalysis
	var targetTopic, interpretation, contentSummary, improvedOutline, pageTitle sql.NullString
	var entities, qaCovered, qaGaps, issues, suggestions, recommendations, engines, schemaTypes sql.NullString
	var processingTime sql.NullInt64
	var createdAt string

	err := row.Scan(&a.ID, &a.UserID, &a.URL, &a.Domain, &targetTopic,
		&a.OverallScore, &a.Scores.ContentClarity, &a.Scores.QACoverage,
		&a.Scores.EntityRichness, &a.Scores.SchemaPresence, &a.Scores.Freshness,
		&a.Scores.Authority, &interpretation, &contentSummary, &entities,
		&qaCovered, &qaGaps, &issues, &suggestions,
		&recommendations, &improvedOutline, &engines,
		&pageTitle, &a.WordCount, &a.HasSchemaMarkup, &schemaTypes, &processingTime, &createdAt)
	if err != nil {
		return nil, err
	}

	a.TargetTopic = targetTopic.String
	a.Interpretation = interpretation.String
	a.ContentSummary = contentSummary.String
	a.ImprovedOutline = improvedOutline.String
	a.PageTitle = pageTitle.String
	a.ProcessingTimeMs = processingTime.Int64
	if entities.Valid {
		_ = json.Unmarshal([]byte(entities.String), &a.Entities)
	}
	if qaCovered.Valid {
		_ = json.Unmarshal([]byte(qaCovered.String), &a.QAClustersCovered)
	}
	if qaGaps.Valid {
		_ = json.Unmarshal([]byte(qaGaps.String), &a.QAClustersGaps)
	}
	if issues.Valid {
		_ = json.Unmarshal([]byte(issues.String), &a.StructuralIssues)
	}
	if suggestions.Valid {
		_ = json.Unmarshal([]byte(suggestions.String), &a.SchemaSuggestions)
	}
	if recommendations.Valid {
		_ = json.Unmarshal([]byte(recommendations.String), &a.Recommendations)
	}
	if engines.Valid {
		_ = json.Unmarshal([]byte(engines.String), &a.TargetEngines)
	}
	if schemaTypes.Valid {
		_ = json.Unmarshal([]byte(schemaTypes.String), &a.SchemaTypes)
	}
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	return &a, nil
}
