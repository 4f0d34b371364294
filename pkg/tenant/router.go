package tenant

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/wms-platform/outbound-fulfillment-service/pkg/logging"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/metrics"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/mongodb"
)

// DatastoreSettings describes where one tenant's data lives.
type DatastoreSettings struct {
	URI               string `json:"uri"`
	Database          string `json:"database"`
	Username          string `json:"username"`
	Password          string `json:"password"`
	AuthDB            string `json:"authDb"`
	CredentialVersion string `json:"credentialVersion"`
}

// HasCredentials reports whether the settings are complete enough to connect.
func (s *DatastoreSettings) HasCredentials() bool {
	return s != nil && s.URI != "" && s.Database != "" && s.Username != "" && s.Password != ""
}

// SettingsProvider resolves a tenant's datastore settings.
type SettingsProvider interface {
	GetDatastoreSettings(ctx context.Context, tenantID string) (*DatastoreSettings, error)
}

// Datastore is a live connection bound to one database.
type Datastore interface {
	Database() *mongo.Database
	Close(ctx context.Context) error
}

// Connector opens a Datastore for the given configuration.
type Connector func(ctx context.Context, cfg *mongodb.Config) (Datastore, error)

// MongoConnector opens pooled connections through mongodb.NewClient.
func MongoConnector(ctx context.Context, cfg *mongodb.Config) (Datastore, error) {
	return mongodb.NewClient(ctx, cfg)
}

// PoolConfig bounds every tenant connection pool.
type PoolConfig struct {
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
	ConnectTimeout  time.Duration
	SocketTimeout   time.Duration
}

// DefaultPoolConfig returns conservative per-tenant pool bounds
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxPoolSize:     20,
		MinPoolSize:     0,
		MaxConnIdleTime: 5 * time.Minute,
		ConnectTimeout:  10 * time.Second,
		SocketTimeout:   30 * time.Second,
	}
}

// DefaultDrainGrace is how long a datastore replaced by credential rotation stays
// open for requests that already hold its database handle.
const DefaultDrainGrace = time.Minute

type cachedDatastore struct {
	version string
	store   Datastore
}

// Router resolves the datastore for the tenant carried by a request context.
// Connections are cached per tenant id and credential version; anything that
// prevents resolving a tenant store falls back to the default database.
type Router struct {
	defaultDB *mongo.Database
	provider  SettingsProvider
	connect   Connector
	pool      PoolConfig
	logger    *logging.Logger
	metrics   *metrics.Metrics

	drainGrace time.Duration

	mu       sync.Mutex
	stores   map[string]*cachedDatastore
	draining map[Datastore]*time.Timer
}

// RouterOption configures a Router
type RouterOption func(*Router)

// WithConnector overrides how tenant connections are opened.
func WithConnector(c Connector) RouterOption {
	return func(r *Router) { r.connect = c }
}

// WithPoolConfig overrides the per-tenant pool bounds.
func WithPoolConfig(p PoolConfig) RouterOption {
	return func(r *Router) { r.pool = p }
}

// WithDrainGrace sets how long a rotated-out datastore stays open. Zero closes it immediately.
func WithDrainGrace(d time.Duration) RouterOption {
	return func(r *Router) { r.drainGrace = d }
}

// WithMetrics attaches metrics to the router.
func WithMetrics(m *metrics.Metrics) RouterOption {
	return func(r *Router) { r.metrics = m }
}

// NewRouter creates a Router that falls back to defaultDB.
func NewRouter(defaultDB *mongo.Database, provider SettingsProvider, logger *logging.Logger, opts ...RouterOption) *Router {
	r := &Router{
		defaultDB:  defaultDB,
		provider:   provider,
		connect:    MongoConnector,
		pool:       DefaultPoolConfig(),
		logger:     logger.WithComponent("tenant-router"),
		drainGrace: DefaultDrainGrace,
		stores:     make(map[string]*cachedDatastore),
		draining:   make(map[Datastore]*time.Timer),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Database returns the database for the tenant in ctx.
// Only a failure to open a connection for valid settings is returned as an error.
func (r *Router) Database(ctx context.Context) (*mongo.Database, error) {
	tc := FromContextOptional(ctx)
	if tc.IsDefault() {
		r.logger.WithContext(ctx).Debug("No tenant context, using default datastore")
		r.metrics.RecordTenantFallback("no_tenant")
		return r.defaultDB, nil
	}

	if r.provider == nil {
		return r.fallback(ctx, tc.TenantID, "no_provider", nil), nil
	}

	settings, err := r.provider.GetDatastoreSettings(ctx, tc.TenantID)
	if err != nil {
		return r.fallback(ctx, tc.TenantID, "settings_lookup_failed", err), nil
	}
	if !settings.HasCredentials() {
		return r.fallback(ctx, tc.TenantID, "missing_credentials", nil), nil
	}

	if db := r.cached(tc.TenantID, settings.CredentialVersion); db != nil {
		return db, nil
	}

	store, err := r.connect(ctx, r.configFor(settings))
	if err != nil {
		return nil, fmt.Errorf("connect tenant %s datastore: %w", tc.TenantID, err)
	}

	return r.install(ctx, tc.TenantID, settings.CredentialVersion, store), nil
}

func (r *Router) fallback(ctx context.Context, tenantID, reason string, err error) *mongo.Database {
	r.logger.WithContext(ctx).WithError(err).Warn("Falling back to default datastore",
		"tenantId", tenantID,
		"reason", reason,
	)
	r.metrics.RecordTenantFallback(reason)
	return r.defaultDB
}

func (r *Router) cached(tenantID, version string) *mongo.Database {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.stores[tenantID]; ok && c.version == version {
		return c.store.Database()
	}
	return nil
}

// install caches store unless another request won the race. A cached store
// with a different credential version is evicted and retired.
func (r *Router) install(ctx context.Context, tenantID, version string, store Datastore) *mongo.Database {
	r.mu.Lock()
	existing, ok := r.stores[tenantID]
	if ok && existing.version == version {
		r.mu.Unlock()
		r.closeQuietly(ctx, tenantID, store)
		return existing.store.Database()
	}
	r.stores[tenantID] = &cachedDatastore{version: version, store: store}
	count := len(r.stores)
	r.mu.Unlock()

	r.metrics.SetTenantConnections(count)

	if ok {
		r.logger.WithContext(ctx).Info("Tenant credentials rotated, retiring stale datastore",
			"tenantId", tenantID,
			"staleVersion", existing.version,
			"version", version,
			"drainGrace", r.drainGrace.String(),
		)
		r.retire(ctx, tenantID, existing.store)
	}

	return store.Database()
}

// retire closes a stale store once the drain grace has passed
func (r *Router) retire(ctx context.Context, tenantID string, store Datastore) {
	if r.drainGrace <= 0 {
		r.closeQuietly(ctx, tenantID, store)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.draining[store] = time.AfterFunc(r.drainGrace, func() {
		r.mu.Lock()
		_, pending := r.draining[store]
		delete(r.draining, store)
		r.mu.Unlock()
		if pending {
			r.closeQuietly(context.Background(), tenantID, store)
		}
	})
}

func (r *Router) closeQuietly(ctx context.Context, tenantID string, store Datastore) {
	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := store.Close(closeCtx); err != nil {
		r.logger.WithError(err).Warn("Failed to close tenant datastore", "tenantId", tenantID)
	}
}

func (r *Router) configFor(s *DatastoreSettings) *mongodb.Config {
	return &mongodb.Config{
		URI:             s.URI,
		Database:        s.Database,
		Username:        s.Username,
		Password:        s.Password,
		AuthDB:          s.AuthDB,
		ConnectTimeout:  r.pool.ConnectTimeout,
		SocketTimeout:   r.pool.SocketTimeout,
		MaxPoolSize:     r.pool.MaxPoolSize,
		MinPoolSize:     r.pool.MinPoolSize,
		MaxConnIdleTime: r.pool.MaxConnIdleTime,
	}
}

// Databases returns the default database followed by every cached tenant database.
func (r *Router) Databases() []*mongo.Database {
	r.mu.Lock()
	defer r.mu.Unlock()

	dbs := make([]*mongo.Database, 0, len(r.stores)+1)
	dbs = append(dbs, r.defaultDB)
	for _, c := range r.stores {
		dbs = append(dbs, c.store.Database())
	}
	return dbs
}

// Close disconnects every cached tenant datastore, including stores still
// draining after rotation. The default database is owned by the caller.
func (r *Router) Close(ctx context.Context) error {
	r.mu.Lock()
	stores := r.stores
	draining := r.draining
	r.stores = make(map[string]*cachedDatastore)
	r.draining = make(map[Datastore]*time.Timer)
	r.mu.Unlock()

	var firstErr error
	for tenantID, c := range stores {
		if err := c.store.Close(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close tenant %s datastore: %w", tenantID, err)
		}
	}
	for store, timer := range draining {
		timer.Stop()
		if err := store.Close(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close draining datastore: %w", err)
		}
	}
	r.metrics.SetTenantConnections(0)
	return firstErr
}

// CachingSettingsProvider memoizes settings lookups for a fixed TTL.
type CachingSettingsProvider struct {
	next SettingsProvider
	ttl  time.Duration
	now  func() time.Time

	mu      sync.Mutex
	entries map[string]cachedSettings
}

type cachedSettings struct {
	settings  *DatastoreSettings
	expiresAt time.Time
}

// NewCachingSettingsProvider wraps next with a TTL cache.
func NewCachingSettingsProvider(next SettingsProvider, ttl time.Duration) *CachingSettingsProvider {
	return &CachingSettingsProvider{
		next:    next,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cachedSettings),
	}
}

// GetDatastoreSettings implements SettingsProvider. Failed lookups are not cached.
func (p *CachingSettingsProvider) GetDatastoreSettings(ctx context.Context, tenantID string) (*DatastoreSettings, error) {
	p.mu.Lock()
	entry, ok := p.entries[tenantID]
	p.mu.Unlock()
	if ok && p.now().Before(entry.expiresAt) {
		return entry.settings, nil
	}

	settings, err := p.next.GetDatastoreSettings(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.entries[tenantID] = cachedSettings{settings: settings, expiresAt: p.now().Add(p.ttl)}
	p.mu.Unlock()
	return settings, nil
}
