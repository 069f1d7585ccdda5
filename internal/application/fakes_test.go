package application

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"cartwise-orchestrator/internal/domain"
	"cartwise-orchestrator/internal/ports"
)

type fakeMerchantRepo struct {
	merchants map[string]*domain.Merchant
}

func newFakeMerchantRepo(merchants ...*domain.Merchant) *fakeMerchantRepo {
	repo := &fakeMerchantRepo{merchants: make(map[string]*domain.Merchant)}
	for _, m := range merchants {
		repo.merchants[m.Domain] = m
	}
	return repo
}

func (r *fakeMerchantRepo) Save(_ context.Context, merchant *domain.Merchant) error {
	r.merchants[merchant.Domain] = merchant
	return nil
}

func (r *fakeMerchantRepo) Get(_ context.Context, shopDomain string) (*domain.Merchant, error) {
	return r.merchants[shopDomain], nil
}

func (r *fakeMerchantRepo) ListActive(_ context.Context) ([]*domain.Merchant, error) {
	var out []*domain.Merchant
	for _, m := range r.merchants {
		if m.Active {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Domain < out[j].Domain })
	return out, nil
}

func (r *fakeMerchantRepo) SetActive(_ context.Context, shopDomain string, active bool) error {
	if m, ok := r.merchants[shopDomain]; ok {
		m.Active = active
	}
	return nil
}

func (r *fakeMerchantRepo) StampLastSync(_ context.Context, shopDomain string) error {
	if m, ok := r.merchants[shopDomain]; ok {
		now := time.Now()
		m.LastSyncAt = &now
	}
	return nil
}

type fakeProductRepo struct {
	rows       map[string]map[string]*domain.Product
	replaceErr error
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{rows: make(map[string]map[string]*domain.Product)}
}

func (r *fakeProductRepo) ReplaceAll(_ context.Context, shopDomain string, products []*domain.Product) error {
	if r.replaceErr != nil {
		return r.replaceErr
	}
	rows := make(map[string]*domain.Product, len(products))
	for _, p := range products {
		rows[p.ProductID] = p
	}
	r.rows[shopDomain] = rows
	return nil
}

func (r *fakeProductRepo) Upsert(_ context.Context, product *domain.Product) error {
	if r.rows[product.MerchantDomain] == nil {
		r.rows[product.MerchantDomain] = make(map[string]*domain.Product)
	}
	r.rows[product.MerchantDomain][product.ProductID] = product
	return nil
}

func (r *fakeProductRepo) Delete(_ context.Context, shopDomain, productID string) error {
	delete(r.rows[shopDomain], productID)
	return nil
}

func (r *fakeProductRepo) Get(_ context.Context, shopDomain, productID string) (*domain.Product, error) {
	return r.rows[shopDomain][productID], nil
}

func (r *fakeProductRepo) ListByMerchant(_ context.Context, shopDomain string) ([]*domain.Product, error) {
	var out []*domain.Product
	for _, p := range r.rows[shopDomain] {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

func (r *fakeProductRepo) CountByMerchant(_ context.Context, shopDomain string) (int64, error) {
	return int64(len(r.rows[shopDomain])), nil
}

func (r *fakeProductRepo) DeleteByMerchant(_ context.Context, shopDomain string) error {
	delete(r.rows, shopDomain)
	return nil
}

type fakeSettingsRepo struct {
	settings map[string]*domain.Settings
}

func newFakeSettingsRepo() *fakeSettingsRepo {
	return &fakeSettingsRepo{settings: make(map[string]*domain.Settings)}
}

func (r *fakeSettingsRepo) Save(_ context.Context, settings *domain.Settings) error {
	r.settings[settings.MerchantDomain] = settings
	return nil
}

func (r *fakeSettingsRepo) Get(_ context.Context, shopDomain string) (*domain.Settings, error) {
	return r.settings[shopDomain], nil
}

type fakeEventRepo struct {
	events []*domain.RecommendationEvent
}

func (r *fakeEventRepo) Insert(_ context.Context, event *domain.RecommendationEvent) error {
	r.events = append(r.events, event)
	return nil
}

func (r *fakeEventRepo) CountByKind(_ context.Context, shopDomain string) (map[string]int64, error) {
	counts := make(map[string]int64)
	for _, e := range r.events {
		if e.MerchantDomain == shopDomain {
			counts[e.Kind]++
		}
	}
	return counts, nil
}

func (r *fakeEventRepo) DeleteByMerchant(_ context.Context, shopDomain string) error {
	kept := r.events[:0]
	for _, e := range r.events {
		if e.MerchantDomain != shopDomain {
			kept = append(kept, e)
		}
	}
	r.events = kept
	return nil
}

type fakeCatalog struct {
	products []ports.CatalogProduct
	fetchErr error

	subs      []domain.WebhookSubscription
	created   []domain.WebhookSubscription
	deleted   []string
	createErr error
	nextID    int
}

func (c *fakeCatalog) FetchAllProducts(_ context.Context, _, _ string) ([]ports.CatalogProduct, error) {
	if c.fetchErr != nil {
		return nil, c.fetchErr
	}
	return c.products, nil
}

func (c *fakeCatalog) ListWebhookSubscriptions(_ context.Context, _, _ string) ([]domain.WebhookSubscription, error) {
	return c.subs, nil
}

func (c *fakeCatalog) CreateWebhookSubscription(_ context.Context, _, _, topic, address string) (*domain.WebhookSubscription, error) {
	if c.createErr != nil {
		return nil, c.createErr
	}
	c.nextID++
	sub := domain.WebhookSubscription{
		ID:      fmt.Sprintf("gid://shopify/WebhookSubscription/%d", c.nextID),
		Topic:   topic,
		Address: address,
	}
	c.created = append(c.created, sub)
	return &sub, nil
}

func (c *fakeCatalog) DeleteWebhookSubscription(_ context.Context, _, _, subscriptionID string) error {
	c.deleted = append(c.deleted, subscriptionID)
	return nil
}

type fakeEngine struct {
	registered map[string][]*domain.Product
	clears     []string

	recommendItems []domain.RecommendedItem
	recommendErr   error
	lastQuery      ports.RecommendQuery

	popularItems  []domain.RecommendedItem
	popularErr    error
	popularCalled bool

	registerErr error
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{registered: make(map[string][]*domain.Product)}
}

func (e *fakeEngine) Register(_ context.Context, shopDomain string, products []*domain.Product) (*ports.RegisterResult, error) {
	if e.registerErr != nil {
		return nil, e.registerErr
	}
	e.registered[shopDomain] = products
	return &ports.RegisterResult{Registered: len(products)}, nil
}

func (e *fakeEngine) Recommend(_ context.Context, query ports.RecommendQuery) ([]domain.RecommendedItem, error) {
	e.lastQuery = query
	if e.recommendErr != nil {
		return nil, e.recommendErr
	}
	return e.recommendItems, nil
}

func (e *fakeEngine) Popular(_ context.Context, _ ports.PopularQuery) ([]domain.RecommendedItem, error) {
	e.popularCalled = true
	if e.popularErr != nil {
		return nil, e.popularErr
	}
	return e.popularItems, nil
}

func (e *fakeEngine) Clear(_ context.Context, shopDomain string) error {
	e.clears = append(e.clears, shopDomain)
	return nil
}

func (e *fakeEngine) Health(_ context.Context) error {
	return nil
}

type fakeEncryption struct{}

func (fakeEncryption) Encrypt(plaintext string) (string, error) {
	return "enc:" + plaintext, nil
}

func (fakeEncryption) Decrypt(ciphertext string) (string, error) {
	return strings.TrimPrefix(ciphertext, "enc:"), nil
}

type fakeOAuth struct {
	valid bool
}

func (o *fakeOAuth) ExchangeToken(_ context.Context, _, _ string) (string, string, error) {
	return "token", "read_products", nil
}

func (o *fakeOAuth) ValidateToken(_ context.Context, _, _ string) (bool, error) {
	return o.valid, nil
}

func installedMerchant(shopDomain string) *domain.Merchant {
	return &domain.Merchant{
		Domain:      shopDomain,
		AccessToken: "enc:shpat_test",
		Active:      true,
		InstalledAt: time.Now(),
	}
}
