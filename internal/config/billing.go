package config

// BillingConfig holds credit and pricing settings.
type BillingConfig struct {
	// SignupGrantCredits is the balance a user starts with the first time
	// their credit row is created.
	SignupGrantCredits int

	// LowCreditThreshold is the balance at or below which clients should
	// surface a low-credit warning.
	LowCreditThreshold int

	// USDToINR is the exchange rate used when recording usage amounts in INR.
	USDToINR float64

	// DefaultMarkup multiplies raw API cost for operations without an explicit
	// markup in the pricing table.
	DefaultMarkup float64
}

// DefaultBillingConfig returns billing settings, overridable via environment.
func DefaultBillingConfig() BillingConfig {
	return BillingConfig{
		SignupGrantCredits: getEnvInt("SIGNUP_GRANT_CREDITS", 100),
		LowCreditThreshold: getEnvInt("LOW_CREDIT_THRESHOLD", 50),
		USDToINR:           getEnvFloat("USD_TO_INR_RATE", 83.0),
		DefaultMarkup:      getEnvFloat("PRICING_DEFAULT_MARKUP", 2.0),
	}
}
