package migrations

func init() {
	Register(Migration{
		Timestamp:   "20260419-104500",
		Description: "Track granted OAuth scopes and token type per credential",
		Up: []string{
			`ALTER TABLE platform_credentials ADD COLUMN scopes TEXT`,
			`ALTER TABLE platform_credentials ADD COLUMN token_type TEXT DEFAULT 'Bearer'`,
		},
	})
}
