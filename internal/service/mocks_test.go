package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/aureon-one/mediaplan-api/internal/config"
	"github.com/aureon-one/mediaplan-api/internal/models"
	"github.com/aureon-one/mediaplan-api/internal/repository"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testBillingConfig() *config.BillingConfig {
	return &config.BillingConfig{
		SignupGrantCredits: 100,
		LowCreditThreshold: 50,
		USDToINR:           83.0,
		DefaultMarkup:      2.0,
	}
}

// newTestRepos builds a Repositories backed by in-memory mocks.
func newTestRepos() (*repository.Repositories, *mockCreditsRepository, *mockUsageRepository) {
	credits := newMockCreditsRepository()
	usage := newMockUsageRepository(credits)
	return &repository.Repositories{
		Credits:     credits,
		Usage:       usage,
		Purchase:    newMockPurchaseRepository(),
		Credentials: newMockCredentialsRepository(),
		Geo:         newMockGeoRepository(),
		Pricing:     &mockPricingRepository{},
	}, credits, usage
}

// mockCreditsRepository implements repository.CreditsRepository in memory.
type mockCreditsRepository struct {
	mu       sync.Mutex
	balances map[string]*models.UserCredits
	getErr   error
}

func newMockCreditsRepository() *mockCreditsRepository {
	return &mockCreditsRepository{balances: make(map[string]*models.UserCredits)}
}

func (m *mockCreditsRepository) Get(ctx context.Context, userID string) (*models.UserCredits, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	if c, ok := m.balances[userID]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (m *mockCreditsRepository) GetOrCreate(ctx context.Context, userID string, signupGrant int) (*models.UserCredits, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	if c, ok := m.balances[userID]; ok {
		cp := *c
		return &cp, nil
	}
	now := time.Now()
	c := &models.UserCredits{
		UserID:         userID,
		CreditsBalance: signupGrant,
		TotalPurchased: signupGrant,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	m.balances[userID] = c
	cp := *c
	return &cp, nil
}

func (m *mockCreditsRepository) AddCredits(ctx context.Context, userID string, credits int, purchaseID string) (*models.UserCredits, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.balances[userID]
	if !ok {
		c = &models.UserCredits{UserID: userID, CreatedAt: time.Now()}
		m.balances[userID] = c
	}
	c.CreditsBalance += credits
	c.TotalPurchased += credits
	c.UpdatedAt = time.Now()
	cp := *c
	return &cp, nil
}

func (m *mockCreditsRepository) setBalance(userID string, balance int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[userID] = &models.UserCredits{UserID: userID, CreditsBalance: balance}
}

// mockUsageRepository implements repository.UsageRepository, deducting
// against the credits mock the way the SQL layer does.
type mockUsageRepository struct {
	mu      sync.Mutex
	logs    []*models.UsageLog
	credits *mockCreditsRepository
}

func newMockUsageRepository(credits *mockCreditsRepository) *mockUsageRepository {
	return &mockUsageRepository{credits: credits}
}

func (m *mockUsageRepository) CreateWithDeduction(ctx context.Context, log *models.UsageLog) error {
	m.credits.mu.Lock()
	defer m.credits.mu.Unlock()
	c, ok := m.credits.balances[log.UserID]
	if !ok || c.CreditsBalance < log.CreditsCost {
		return repository.ErrInsufficientCredits
	}
	c.CreditsBalance -= log.CreditsCost
	c.TotalUsed += log.CreditsCost

	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, log)
	return nil
}

func (m *mockUsageRepository) Create(ctx context.Context, log *models.UsageLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, log)
	return nil
}

func (m *mockUsageRepository) GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*models.UsageLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.UsageLog
	for i := len(m.logs) - 1; i >= 0; i-- {
		if m.logs[i].UserID == userID {
			out = append(out, m.logs[i])
		}
	}
	if offset < len(out) {
		out = out[offset:]
	} else {
		out = nil
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockUsageRepository) GetSummary(ctx context.Context, userID string, from, to time.Time) (*models.UsageSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	summary := &models.UsageSummary{UserID: userID, From: from, To: to}
	for _, log := range m.logs {
		if log.UserID == userID {
			summary.TotalCredits += log.CreditsCost
			summary.TotalUSD += log.TotalUSD
			summary.TotalINR += log.TotalINR
		}
	}
	return summary, nil
}

func (m *mockUsageRepository) lastLog() *models.UsageLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.logs) == 0 {
		return nil
	}
	return m.logs[len(m.logs)-1]
}

// mockPurchaseRepository implements repository.PurchaseRepository in memory.
type mockPurchaseRepository struct {
	mu           sync.Mutex
	purchases    map[string]*models.CreditPurchase
	byGatewayRef map[string]string
}

func newMockPurchaseRepository() *mockPurchaseRepository {
	return &mockPurchaseRepository{
		purchases:    make(map[string]*models.CreditPurchase),
		byGatewayRef: make(map[string]string),
	}
}

func (m *mockPurchaseRepository) Create(ctx context.Context, purchase *models.CreditPurchase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byGatewayRef[purchase.GatewayRef]; ok {
		return repository.ErrDuplicatePurchase
	}
	cp := *purchase
	m.purchases[purchase.ID] = &cp
	m.byGatewayRef[purchase.GatewayRef] = purchase.ID
	return nil
}

func (m *mockPurchaseRepository) GetByID(ctx context.Context, id string) (*models.CreditPurchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.purchases[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (m *mockPurchaseRepository) GetByGatewayRef(ctx context.Context, gatewayRef string) (*models.CreditPurchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.byGatewayRef[gatewayRef]; ok {
		cp := *m.purchases[id]
		return &cp, nil
	}
	return nil, nil
}

func (m *mockPurchaseRepository) GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*models.CreditPurchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.CreditPurchase
	for _, p := range m.purchases {
		if p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockPurchaseRepository) MarkRefunded(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.purchases[id]
	if !ok || p.Status != models.PurchaseStatusCompleted {
		return repository.ErrNotFound
	}
	p.Status = models.PurchaseStatusRefunded
	return nil
}

// mockCredentialsRepository implements repository.CredentialsRepository.
type mockCredentialsRepository struct {
	mu    sync.Mutex
	creds map[string]*models.PlatformCredentials
}

func newMockCredentialsRepository() *mockCredentialsRepository {
	return &mockCredentialsRepository{creds: make(map[string]*models.PlatformCredentials)}
}

func (m *mockCredentialsRepository) Upsert(ctx context.Context, creds *models.PlatformCredentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, existing := range m.creds {
		if existing.UserID == creds.UserID && existing.Platform == creds.Platform && existing.AccountID == creds.AccountID {
			delete(m.creds, id)
			break
		}
	}
	cp := *creds
	m.creds[creds.ID] = &cp
	return nil
}

func (m *mockCredentialsRepository) GetByID(ctx context.Context, id string) (*models.PlatformCredentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.creds[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (m *mockCredentialsRepository) GetByUserID(ctx context.Context, userID string) ([]*models.PlatformCredentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.PlatformCredentials
	for _, c := range m.creds {
		if c.UserID == userID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockCredentialsRepository) GetByUserAndPlatform(ctx context.Context, userID, platformName string) (*models.PlatformCredentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.creds {
		if c.UserID == userID && c.Platform == platformName {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockCredentialsRepository) UpdateTokens(ctx context.Context, id, accessTokenEnc, refreshTokenEnc string, expiresAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.creds[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.AccessTokenEnc = accessTokenEnc
	c.RefreshTokenEnc = refreshTokenEnc
	c.ExpiresAt = expiresAt
	return nil
}

func (m *mockCredentialsRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.creds, id)
	return nil
}

// mockGeoRepository implements repository.GeoRepository.
type mockGeoRepository struct {
	mu       sync.Mutex
	analyses []*models.GeoAnalysis
}

func newMockGeoRepository() *mockGeoRepository {
	return &mockGeoRepository{}
}

func (m *mockGeoRepository) Create(ctx context.Context, analysis *models.GeoAnalysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *analysis
	m.analyses = append(m.analyses, &cp)
	return nil
}

func (m *mockGeoRepository) GetByID(ctx context.Context, id string) (*models.GeoAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.analyses {
		if a.ID == id {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockGeoRepository) GetByUserID(ctx context.Context, userID string, limit int) ([]*models.GeoAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.GeoAnalysis
	for i := len(m.analyses) - 1; i >= 0 && len(out) < limit; i-- {
		if m.analyses[i].UserID == userID {
			cp := *m.analyses[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

// mockPricingRepository implements repository.PricingRepository. With no
// active version set, pricing falls through to the built-in table.
type mockPricingRepository struct {
	mu     sync.Mutex
	active *repository.PricingVersion
}

func (m *mockPricingRepository) GetActive(ctx context.Context) (*repository.PricingVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil, nil
	}
	cp := *m.active
	return &cp, nil
}

func (m *mockPricingRepository) Activate(ctx context.Context, version, ratesJSON string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = &repository.PricingVersion{
		Version:   version,
		RatesJSON: ratesJSON,
		Active:    true,
		CreatedAt: time.Now(),
	}
	return nil
}

func (m *mockPricingRepository) List(ctx context.Context) ([]*repository.PricingVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil, nil
	}
	cp := *m.active
	return []*repository.PricingVersion{&cp}, nil
}
