package platform

import "github.com/aureon-one/mediaplan-api/internal/models"

// registerBuiltins wires up every supported platform. Aliases cover names
// that share an API: GOOGLE_ADS and YOUTUBE campaigns are both served by
// the Google Ads API.
func registerBuiltins(r *Registry) {
	r.Register(models.PlatformMeta, Registration{
		Info: Info{
			DisplayName:  "Meta Ads",
			Icon:         "meta",
			Color:        "#1877F2",
			AuthURL:      "https://www.facebook.com/v19.0/dialog/oauth",
			Scopes:       []string{"ads_read", "ads_management"},
			APIVersion:   "v19.0",
			RateLimitRPM: 200,
		},
		Capabilities: metaCapabilities,
		New: func(creds Credentials, opts Options) Connector {
			return NewMetaConnector(creds, opts)
		},
	})

	r.Register(models.PlatformGoogle, Registration{
		Info: Info{
			DisplayName:  "Google Ads",
			Icon:         "google",
			Color:        "#4285F4",
			AuthURL:      "https://accounts.google.com/o/oauth2/v2/auth",
			Scopes:       []string{"https://www.googleapis.com/auth/adwords"},
			APIVersion:   "v16",
			RateLimitRPM: 60,
		},
		Capabilities: googleCapabilities,
		New: func(creds Credentials, opts Options) Connector {
			return NewGoogleConnector(creds, opts)
		},
	})
	r.RegisterAlias(models.PlatformGoogleAds, models.PlatformGoogle)
	r.RegisterAlias(models.PlatformYouTube, models.PlatformGoogle)

	r.Register(models.PlatformLinkedIn, Registration{
		Info: Info{
			DisplayName:  "LinkedIn Ads",
			Icon:         "linkedin",
			Color:        "#0A66C2",
			AuthURL:      "https://www.linkedin.com/oauth/v2/authorization",
			Scopes:       []string{"r_ads", "r_ads_reporting"},
			APIVersion:   "202401",
			RateLimitRPM: 100,
		},
		Capabilities: linkedInCapabilities,
		New: func(creds Credentials, opts Options) Connector {
			return NewLinkedInConnector(creds, opts)
		},
	})

	r.Register(models.PlatformTikTok, Registration{
		Info: Info{
			DisplayName:  "TikTok Ads",
			Icon:         "tiktok",
			Color:        "#000000",
			AuthURL:      "https://business-api.tiktok.com/portal/auth",
			Scopes:       []string{"ads.read"},
			APIVersion:   "v1.3",
			RateLimitRPM: 600,
		},
		Capabilities: tikTokCapabilities,
		New: func(creds Credentials, opts Options) Connector {
			return NewTikTokConnector(creds, opts)
		},
	})

	r.Register(models.PlatformTwitter, Registration{
		Info: Info{
			DisplayName:  "X Ads",
			Icon:         "twitter",
			Color:        "#1DA1F2",
			APIVersion:   "12",
			RateLimitRPM: 0,
		},
		Capabilities: twitterCapabilities,
		New: func(creds Credentials, opts Options) Connector {
			return NewTwitterConnector(creds, opts)
		},
	})

	r.Register(models.PlatformPinterest, Registration{
		Info: Info{
			DisplayName:  "Pinterest Ads",
			Icon:         "pinterest",
			Color:        "#E60023",
			AuthURL:      "https://www.pinterest.com/oauth",
			Scopes:       []string{"ads:read"},
			APIVersion:   "v5",
			RateLimitRPM: 300,
		},
		Capabilities: pinterestCapabilities,
		New: func(creds Credentials, opts Options) Connector {
			return NewPinterestConnector(creds, opts)
		},
	})
}

// NewConnector resolves a platform name (including aliases) and constructs
// its connector. Returns ErrUnsupportedPlatform for unknown names.
func (r *Registry) NewConnector(name string, creds Credentials, opts Options) (Connector, error) {
	reg, ok := r.Get(name)
	if !ok {
		return nil, ErrUnsupportedPlatform
	}
	return reg.New(creds, opts.withDefaults()), nil
}
