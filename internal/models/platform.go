package models

import (
	"encoding/json"
	"time"
)

// Supported ad platforms.
const (
	PlatformMeta      = "META"
	PlatformGoogle    = "GOOGLE"
	PlatformGoogleAds = "GOOGLE_ADS"
	PlatformYouTube   = "YOUTUBE"
	PlatformLinkedIn  = "LINKEDIN"
	PlatformTikTok    = "TIKTOK"
	PlatformTwitter   = "TWITTER"
	PlatformPinterest = "PINTEREST"
)

// PlatformCredentials is a connected ad platform account. Tokens are stored
// encrypted; the plaintext only exists in memory while a connector runs.
type PlatformCredentials struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	Platform        string     `json:"platform"`
	AccountID       string     `json:"account_id"`
	AccountName     string     `json:"account_name,omitempty"`
	AccessTokenEnc  string     `json:"-"`
	RefreshTokenEnc string     `json:"-"`
	TokenType       string     `json:"token_type,omitempty"`
	Scopes          string     `json:"scopes,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Campaign is the normalized campaign shape every connector maps into.
// Budget fields are nil when the platform did not return them.
type Campaign struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Status         string          `json:"status"`
	Objective      string          `json:"objective,omitempty"`
	DailyBudget    *float64        `json:"daily_budget,omitempty"`
	LifetimeBudget *float64        `json:"lifetime_budget,omitempty"`
	StartTime      *time.Time      `json:"start_time,omitempty"`
	StopTime       *time.Time      `json:"stop_time,omitempty"`
	Platform       string          `json:"platform"`
	PlatformData   json.RawMessage `json:"platform_data,omitempty"`
}

// AdSet is the normalized ad group / ad set shape.
type AdSet struct {
	ID             string          `json:"id"`
	CampaignID     string          `json:"campaign_id"`
	Name           string          `json:"name"`
	Status         string          `json:"status"`
	DailyBudget    *float64        `json:"daily_budget,omitempty"`
	LifetimeBudget *float64        `json:"lifetime_budget,omitempty"`
	Platform       string          `json:"platform"`
	PlatformData   json.RawMessage `json:"platform_data,omitempty"`
}

// Ad is the normalized ad / creative shape.
type Ad struct {
	ID           string          `json:"id"`
	AdSetID      string          `json:"ad_set_id"`
	Name         string          `json:"name"`
	Status       string          `json:"status"`
	CreativeID   string          `json:"creative_id,omitempty"`
	Platform     string          `json:"platform"`
	PlatformData json.RawMessage `json:"platform_data,omitempty"`
}

// Metrics is a normalized daily performance row. Monetary values are in the
// account currency's major unit regardless of how the platform reports them.
type Metrics struct {
	Date        string  `json:"date"`
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	Spend       float64 `json:"spend"`
	Conversions float64 `json:"conversions,omitempty"`
	CTR         float64 `json:"ctr,omitempty"`
	CPC         float64 `json:"cpc,omitempty"`
	Platform    string  `json:"platform"`
}

// DateRange bounds a metrics query. Dates are YYYY-MM-DD.
type DateRange struct {
	Since string `json:"since"`
	Until string `json:"until"`
}
