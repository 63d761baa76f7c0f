package migrations

func init() {
	Register(Migration{
		Timestamp:   "20260308-000000",
		Description: "Versioned pricing records",
		Up: []string{
			// Pricing is versioned so historical usage logs stay auditable
			// after a rate change. Only one row is active at a time.
			`CREATE TABLE IF NOT EXISTS pricing_versions (
				version TEXT PRIMARY KEY,
				rates_json TEXT NOT NULL,
				active INTEGER NOT NULL DEFAULT 0,
				created_at TEXT NOT NULL
			)`,
			`INSERT INTO pricing_versions (version, rates_json, active, created_at) VALUES (
				'2026-03-08',
				'{"GEO_ANALYSIS":{"api_cost_usd":0.05,"markup":2.0,"credits":25,"engine":"analyser"},"KEYWORD_LOOKUP":{"api_cost_usd":0.002,"markup":2.5,"credits":1,"engine":"analyser"},"SERP_ANALYSIS":{"api_cost_usd":0.012,"markup":2.5,"credits":5,"engine":"analyser"},"BACKLINK_CHECK":{"api_cost_usd":0.02,"markup":2.0,"credits":8,"engine":"analyser"},"DOMAIN_OVERVIEW":{"api_cost_usd":0.03,"markup":2.0,"credits":10,"engine":"analyser"},"PLATFORM_SYNC":{"api_cost_usd":0.0,"markup":1.0,"credits":2,"engine":"optimiser"}}',
				1,
				'2026-03-08T00:00:00Z'
			)`,
		},
	})
}
