package migrations

func init() {
	Register(Migration{
		Timestamp:   "20260830-091500",
		Description: "Carry the qualitative GEO analysis output alongside the scores",
		Up: []string{
			`ALTER TABLE geo_analyses ADD COLUMN target_topic TEXT`,
			`ALTER TABLE geo_analyses ADD COLUMN content_summary TEXT`,
			`ALTER TABLE geo_analyses ADD COLUMN entities_json TEXT`,
			`ALTER TABLE geo_analyses ADD COLUMN qa_covered_json TEXT`,
			`ALTER TABLE geo_analyses ADD COLUMN qa_gaps_json TEXT`,
			`ALTER TABLE geo_analyses ADD COLUMN structural_issues_json TEXT`,
			`ALTER TABLE geo_analyses ADD COLUMN schema_suggestions_json TEXT`,
			`ALTER TABLE geo_analyses ADD COLUMN improved_outline TEXT`,
			`ALTER TABLE geo_analyses ADD COLUMN schema_types_json TEXT`,
		},
	})
}
