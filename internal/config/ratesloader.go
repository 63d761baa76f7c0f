package config

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// OperationRate is one row of the pricing rates document.
type OperationRate struct {
	APICostUSD float64 `json:"api_cost_usd"`
	Markup     float64 `json:"markup"`
	Credits    int     `json:"credits"`
	Engine     string  `json:"engine,omitempty"`
}

// RatesDocument is the pricing rates file stored in S3. When present it
// overrides the compiled-in defaults for the operations it names.
type RatesDocument struct {
	Version    string                   `json:"version"`
	USDToINR   float64                  `json:"usd_to_inr,omitempty"`
	Operations map[string]OperationRate `json:"operations"`
}

// RatesLoaderConfig configures a RatesLoader.
type RatesLoaderConfig struct {
	S3Client     *s3.Client
	Bucket       string
	Key          string
	CacheTTL     time.Duration // how often to check for updates (default: 5 min)
	ErrorBackoff time.Duration // how long to wait after an error (default: 1 min)
	Logger       *slog.Logger
}

// RatesLoader loads pricing rate overrides from S3 with ETag caching.
// All methods are safe for concurrent use. When S3 is not configured the
// loader is inert and Current always returns nil.
type RatesLoader struct {
	s3Client *s3.Client
	bucket   string
	key      string

	mu           sync.RWMutex
	current      *RatesDocument
	etag         string
	lastFetch    time.Time
	lastCheck    time.Time
	lastError    time.Time
	initialized  bool
	fetching     bool
	cacheTTL     time.Duration
	errorBackoff time.Duration
	logger       *slog.Logger
}

// NewRatesLoader creates a rates loader.
func NewRatesLoader(cfg RatesLoaderConfig) *RatesLoader {
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.ErrorBackoff == 0 {
		cfg.ErrorBackoff = 1 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &RatesLoader{
		s3Client:     cfg.S3Client,
		bucket:       cfg.Bucket,
		key:          cfg.Key,
		cacheTTL:     cfg.CacheTTL,
		errorBackoff: cfg.ErrorBackoff,
		logger:       cfg.Logger,
	}
}

// IsEnabled returns true if S3 is configured.
func (l *RatesLoader) IsEnabled() bool {
	return l.s3Client != nil
}

// Current returns the most recently loaded rates document, or nil if none
// has been loaded yet.
func (l *RatesLoader) Current() *RatesDocument {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// MaybeRefresh refreshes the rates in the background if the cache TTL has
// expired. Safe to call on every request.
func (l *RatesLoader) MaybeRefresh(ctx context.Context) {
	if !l.needsRefresh() {
		return
	}
	go func() {
		// Detach from the caller's deadline so a finished request does not
		// abort the fetch.
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if err := l.refresh(refreshCtx); err != nil {
			l.logger.Debug("pricing rates refresh failed", "error", err)
		}
	}()
}

// Refresh fetches the rates document synchronously. Used at startup.
func (l *RatesLoader) Refresh(ctx context.Context) error {
	return l.refresh(ctx)
}

func (l *RatesLoader) needsRefresh() bool {
	if l.s3Client == nil {
		return false
	}

	l.mu.RLock()
	stale := !l.initialized || time.Since(l.lastCheck) > l.cacheTTL
	inErrorBackoff := !l.lastError.IsZero() && time.Since(l.lastError) < l.errorBackoff
	alreadyFetching := l.fetching
	l.mu.RUnlock()

	return stale && !inErrorBackoff && !alreadyFetching
}

func (l *RatesLoader) refresh(ctx context.Context) error {
	if l.s3Client == nil {
		return nil
	}

	l.mu.Lock()
	// Double-check after acquiring the lock in case another goroutine got here first
	if l.fetching || (l.initialized && time.Since(l.lastCheck) < l.cacheTTL) {
		l.mu.Unlock()
		return nil
	}
	l.fetching = true
	currentEtag := l.etag
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.fetching = false
		l.mu.Unlock()
	}()

	input := &s3.GetObjectInput{
		Bucket: &l.bucket,
		Key:    &l.key,
	}
	if currentEtag != "" {
		// Quoted for the HTTP If-None-Match header
		quotedEtag := "\"" + currentEtag + "\""
		input.IfNoneMatch = &quotedEtag
	}

	resp, err := l.s3Client.GetObject(ctx, input)
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			l.mu.Lock()
			wasInitialized := l.initialized
			l.initialized = true
			l.lastCheck = time.Now()
			l.lastError = time.Now()
			l.mu.Unlock()
			// Only log on first check, not every poll
			if !wasInitialized {
				l.logger.Debug("pricing rates file not found (using defaults)",
					"bucket", l.bucket,
					"key", l.key,
				)
			}
			return nil
		}

		var notModified interface{ ErrorCode() string }
		if errors.As(err, &notModified) && notModified.ErrorCode() == "NotModified" {
			l.mu.Lock()
			l.lastCheck = time.Now()
			l.mu.Unlock()
			l.logger.Debug("pricing rates unchanged (etag match)",
				"bucket", l.bucket,
				"key", l.key,
				"etag", currentEtag,
			)
			return nil
		}

		l.mu.Lock()
		l.lastError = time.Now()
		l.initialized = true
		l.mu.Unlock()
		l.logger.Error("failed to fetch pricing rates",
			"error", err,
			"bucket", l.bucket,
			"key", l.key,
			"next_retry", time.Now().Add(l.errorBackoff).Format(time.RFC3339),
		)
		return err
	}
	defer resp.Body.Close()

	var doc RatesDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		l.mu.Lock()
		l.lastError = time.Now()
		l.initialized = true
		l.mu.Unlock()
		l.logger.Error("failed to parse pricing rates JSON", "error", err)
		return err
	}

	now := time.Now()
	newEtag := ""
	if resp.ETag != nil {
		newEtag = strings.Trim(*resp.ETag, "\"")
	}

	l.mu.Lock()
	previousEtag := l.etag
	l.current = &doc
	l.initialized = true
	l.lastFetch = now
	l.lastCheck = now
	l.lastError = time.Time{}
	l.etag = newEtag
	l.mu.Unlock()

	l.logger.Info("pricing rates loaded",
		"bucket", l.bucket,
		"key", l.key,
		"version", doc.Version,
		"operations", len(doc.Operations),
		"etag", newEtag,
		"previous_etag", previousEtag,
	)

	return nil
}

// RatesLoaderStats describes the loader state for diagnostics.
type RatesLoaderStats struct {
	Initialized bool      `json:"initialized"`
	Version     string    `json:"version"`
	Etag        string    `json:"etag"`
	LastFetch   time.Time `json:"last_fetch"`
	LastCheck   time.Time `json:"last_check"`
	CacheTTL    string    `json:"cache_ttl"`
	Bucket      string    `json:"bucket"`
	Key         string    `json:"key"`
}

// Stats returns current loader statistics.
func (l *RatesLoader) Stats() RatesLoaderStats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	version := ""
	if l.current != nil {
		version = l.current.Version
	}

	return RatesLoaderStats{
		Initialized: l.initialized,
		Version:     version,
		Etag:        l.etag,
		LastFetch:   l.lastFetch,
		LastCheck:   l.lastCheck,
		CacheTTL:    l.cacheTTL.String(),
		Bucket:      l.bucket,
		Key:         l.key,
	}
}

// NewS3ClientFromConfig builds an S3 client for the rates loader from app
// config. Returns nil when storage is not configured.
func NewS3ClientFromConfig(ctx context.Context, cfg *Config) (*s3.Client, error) {
	if !cfg.StorageEnabled() {
		return nil, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.StorageRegion),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.StorageAccessKey,
			cfg.StorageSecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, err
	}

	// Custom endpoint for S3-compatible storage (Tigris, MinIO, etc.)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = &cfg.StorageEndpoint
		o.UsePathStyle = true
	})
	return client, nil
}
