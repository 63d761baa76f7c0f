package migrations

func init() {
	Register(Migration{
		Timestamp:   "20260301-000000",
		Description: "Initial schema",
		Up: []string{
			// User credit balances - one row per user, created lazily with
			// the signup grant on first access
			`CREATE TABLE IF NOT EXISTS user_credits (
				user_id TEXT PRIMARY KEY,
				credits_balance INTEGER NOT NULL DEFAULT 0,
				total_purchased INTEGER NOT NULL DEFAULT 0,
				total_used INTEGER NOT NULL DEFAULT 0,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,

			// Usage logs - one row per metered operation, successful or not
			`CREATE TABLE IF NOT EXISTS usage_logs (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				operation TEXT NOT NULL,
				units INTEGER NOT NULL DEFAULT 1,
				api_cost_usd REAL NOT NULL DEFAULT 0,
				markup_usd REAL NOT NULL DEFAULT 0,
				total_usd REAL NOT NULL DEFAULT 0,
				total_inr REAL NOT NULL DEFAULT 0,
				credits_cost INTEGER NOT NULL DEFAULT 0,
				input_payload TEXT,
				success INTEGER NOT NULL DEFAULT 1,
				error_message TEXT,
				pricing_version TEXT,
				request_id TEXT,
				duration_ms INTEGER,
				created_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_usage_logs_user_id ON usage_logs(user_id)`,
			`CREATE INDEX IF NOT EXISTS idx_usage_logs_operation ON usage_logs(operation)`,
			`CREATE INDEX IF NOT EXISTS idx_usage_logs_created_at ON usage_logs(created_at)`,

			// Credit purchases - gateway_ref is the payment provider's reference
			// (Stripe checkout session id) and must be unique so webhook
			// replays cannot credit twice
			`CREATE TABLE IF NOT EXISTS credit_purchases (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				credits INTEGER NOT NULL,
				amount_usd REAL NOT NULL,
				status TEXT NOT NULL DEFAULT 'pending',
				gateway_ref TEXT UNIQUE,
				created_at TEXT NOT NULL,
				completed_at TEXT
			)`,
			`CREATE INDEX IF NOT EXISTS idx_credit_purchases_user_id ON credit_purchases(user_id)`,

			// Connected ad platform accounts - tokens are AES-256-GCM encrypted
			`CREATE TABLE IF NOT EXISTS platform_credentials (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				platform TEXT NOT NULL,
				account_id TEXT NOT NULL,
				account_name TEXT,
				access_token_enc TEXT NOT NULL,
				refresh_token_enc TEXT,
				expires_at TEXT,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				UNIQUE(user_id, platform, account_id)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_platform_credentials_user_id ON platform_credentials(user_id)`,

			// GEO analyses - AI search visibility scoring results
			`CREATE TABLE IF NOT EXISTS geo_analyses (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				url TEXT NOT NULL,
				domain TEXT NOT NULL,
				overall_score INTEGER NOT NULL DEFAULT 0,
				content_clarity INTEGER NOT NULL DEFAULT 0,
				qa_coverage INTEGER NOT NULL DEFAULT 0,
				entity_richness INTEGER NOT NULL DEFAULT 0,
				schema_presence INTEGER NOT NULL DEFAULT 0,
				freshness INTEGER NOT NULL DEFAULT 0,
				authority INTEGER NOT NULL DEFAULT 0,
				interpretation TEXT,
				recommendations_json TEXT,
				target_engines_json TEXT,
				page_title TEXT,
				word_count INTEGER NOT NULL DEFAULT 0,
				has_schema_markup INTEGER NOT NULL DEFAULT 0,
				processing_time_ms INTEGER,
				created_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_geo_analyses_user_id ON geo_analyses(user_id)`,
			`CREATE INDEX IF NOT EXISTS idx_geo_analyses_created_at ON geo_analyses(created_at)`,
		},
	})
}
