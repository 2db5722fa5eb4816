package financas

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/pkg/errors"
	"github.com/ryan4rodrigues/financas-pessoais/internal/auth"
	"github.com/ryan4rodrigues/financas-pessoais/internal/events"
	"github.com/ryan4rodrigues/financas-pessoais/internal/storage"
	"github.com/ryan4rodrigues/financas-pessoais/internal/transport"
	internalTypes "github.com/ryan4rodrigues/financas-pessoais/internal/types"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultBaseURL is the default backend base URL
	DefaultBaseURL = internalTypes.DefaultBaseURL

	// DefaultTimeout is the default HTTP client timeout
	DefaultTimeout = internalTypes.DefaultTimeout

	// UserAgent is the user agent string
	UserAgent = internalTypes.UserAgent
)

// Client is the personal-finance state layer. It owns the session and the
// per-user entity caches.
type Client struct {
	// Stores
	Session      SessionManager
	Accounts     AccountStore
	Transactions TransactionStore
	Budgets      BudgetStore
	Goals        GoalStore
	Reports      ReportService

	// Internal fields
	baseURL      string
	httpClient   *http.Client
	transport    Transport
	options      *ClientOptions
	storage      storage.Store
	ownsStorage  bool
	bus          *events.Bus
	auth         *auth.Service
	session      *sessionManager
	accounts     *accountStore
	transactions *transactionStore
	budgets      *budgetStore
	goals        *goalStore
	location     *time.Location
	now          func() time.Time

	closeOnce     sync.Once
	unsubscribers []func()
}

// ClientOptions configures the client
type ClientOptions struct {
	// BaseURL overrides the default API base URL
	BaseURL string

	// HTTPClient allows using a custom HTTP client
	HTTPClient *http.Client

	// Timeout sets the HTTP client timeout
	Timeout time.Duration

	// Storage holds the credential and mirrored caches. Defaults to memory,
	// or to a sqlite database at SessionFile when that is set.
	Storage storage.Store

	// SessionFile path of a sqlite database used when Storage is nil
	SessionFile string

	// MirrorCaches copies every store's collection to Storage, keyed by user
	MirrorCaches bool

	// Logger for debug logging
	Logger Logger

	// RetryConfig configures retries of idempotent requests
	RetryConfig *RetryConfig

	// RateLimiter for rate limiting
	RateLimiter RateLimiter

	// Hooks for observability
	Hooks *Hooks

	// SentryDSN enables Sentry error tracking when set
	SentryDSN string

	// SentryOptions allows custom Sentry configuration
	SentryOptions *sentry.ClientOptions

	// Location calendar months are evaluated in. Defaults to UTC.
	Location *time.Location

	// Now overrides the clock used for goal deadlines and reports
	Now func() time.Time
}

// Logger interface for logging
type Logger = internalTypes.Logger

// RetryConfig configures retries of idempotent requests
type RetryConfig = internalTypes.RetryConfig

// Hooks provides lifecycle hooks for requests
type Hooks = internalTypes.Hooks

// RateLimiter interface for rate limiting
type RateLimiter interface {
	Wait(ctx context.Context) error
}

// Transport handles HTTP communication with the backend
type Transport interface {
	Do(ctx context.Context, method, path string, body interface{}, result interface{}) error
	DoPublic(ctx context.Context, method, path string, body interface{}, result interface{}) error
	SetAuth(token string)
	SetSession(session *internalTypes.Session)
}

// NewClient creates a new client. Call Start to restore a persisted session.
func NewClient(opts *ClientOptions) (*Client, error) {
	if opts == nil {
		opts = &ClientOptions{}
	}

	// Initialize Sentry if DSN is provided
	if opts.SentryDSN != "" || opts.SentryOptions != nil {
		sentryOpts := sentry.ClientOptions{}

		// Use provided options if available, otherwise create new ones
		if opts.SentryOptions != nil {
			sentryOpts = *opts.SentryOptions
		}

		// Override DSN if provided separately
		if opts.SentryDSN != "" {
			sentryOpts.Dsn = opts.SentryDSN
		}

		// Set default environment if not provided
		if sentryOpts.Environment == "" {
			sentryOpts.Environment = "production"
		}

		// Initialize Sentry
		if err := sentry.Init(sentryOpts); err != nil {
			// Log error but don't fail client creation
			if opts.Logger != nil {
				opts.Logger.Error("Failed to initialize Sentry", "error", err)
			}
		}
	}

	// Set defaults
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}

	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{
			Timeout: DefaultTimeout,
		}
	}

	if opts.Timeout > 0 {
		opts.HTTPClient.Timeout = opts.Timeout
	}

	ownsStorage := false
	if opts.Storage == nil && opts.SessionFile != "" {
		store, err := storage.NewSQLiteStore(opts.SessionFile)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open session storage")
		}
		opts.Storage = store
		ownsStorage = true
	}

	var c *Client
	trans := transport.NewRESTTransport(&transport.Options{
		BaseURL:     opts.BaseURL,
		HTTPClient:  opts.HTTPClient,
		RetryConfig: opts.RetryConfig,
		Logger:      opts.Logger,
		Hooks:       opts.Hooks,
		OnUnauthorized: func(err error) {
			c.session.invalidate(context.Background(), c.session.generation(), err)
		},
	})

	c = newClient(opts, trans)
	c.ownsStorage = ownsStorage
	return c, nil
}

// newClient assembles the stores around an existing transport
func newClient(opts *ClientOptions, trans Transport) *Client {
	if opts.Storage == nil {
		opts.Storage = storage.NewMemoryStore()
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	c := &Client{
		baseURL:    opts.BaseURL,
		httpClient: opts.HTTPClient,
		transport:  trans,
		options:    opts,
		storage:    opts.Storage,
		bus:        events.NewBus(),
		location:   loc,
		now:        now,
	}
	c.auth = auth.NewService(trans, opts.Storage, opts.Logger)

	c.initServices()
	return c
}

// initServices initializes all store implementations and their subscriptions
func (c *Client) initServices() {
	c.session = newSessionManager(c)
	c.accounts = newAccountStore(c)
	c.transactions = newTransactionStore(c)
	c.budgets = newBudgetStore(c)
	c.goals = newGoalStore(c)

	c.Session = c.session
	c.Accounts = c.accounts
	c.Transactions = c.transactions
	c.Budgets = c.budgets
	c.Goals = c.goals
	c.Reports = &reportService{client: c}

	c.unsubscribers = append(c.unsubscribers,
		c.session.Subscribe(c.accounts.onSession),
		c.session.Subscribe(c.transactions.onSession),
		c.session.Subscribe(c.budgets.onSession),
		c.session.Subscribe(c.goals.onSession),
		c.bus.Subscribe(events.LedgerChanged, c.accounts.onLedgerChanged),
	)
}

// Start restores a persisted session; when one exists every store loads
// before Start returns.
func (c *Client) Start(ctx context.Context) error {
	return c.session.Restore(ctx)
}

// Refresh reloads every store concurrently
func (c *Client) Refresh(ctx context.Context) error {
	if !c.session.authenticated() {
		return ErrNotAuthenticated
	}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.accounts.Load(ctx) })
	g.Go(func() error { return c.transactions.Load(ctx) })
	g.Go(func() error { return c.budgets.Load(ctx) })
	g.Go(func() error { return c.goals.Load(ctx) })
	return g.Wait()
}

// Wait blocks until background reloads triggered by mutations finish
func (c *Client) Wait() {
	c.bus.Wait()
}

// Close stops background work, flushes pending Sentry events and releases
// storage the client opened itself.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		for _, unsubscribe := range c.unsubscribers {
			unsubscribe()
		}
		c.bus.Wait()

		// Flush Sentry events with a 2 second timeout
		sentry.Flush(2 * time.Second)

		if c.ownsStorage {
			err = c.storage.Close()
		}
	})
	return err
}

// do executes an authenticated request. A 401 invalidates the session the
// request was made under.
func (c *Client) do(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	// Rate limiting
	if c.options.RateLimiter != nil {
		if err := c.options.RateLimiter.Wait(ctx); err != nil {
			// Capture rate limiter errors in Sentry
			if hub := sentry.GetHubFromContext(ctx); hub != nil {
				hub.CaptureException(err)
			} else {
				sentry.CaptureException(err)
			}
			return fmt.Errorf("rate limiter: %w", err)
		}
	}

	gen := c.session.generation()

	start := time.Now()
	err := c.transport.Do(ctx, method, path, body, result)
	duration := time.Since(start)

	if err == nil {
		return nil
	}

	if IsUnauthorized(err) {
		c.session.invalidate(ctx, gen, err)
	}

	// Capture errors in Sentry
	report := func(scope *sentry.Scope, capture func(error) *sentry.EventID) {
		scope.SetTag("http.method", method)
		scope.SetTag("http.path", path)
		scope.SetContext("request", map[string]interface{}{
			"method":   method,
			"path":     path,
			"duration": duration.String(),
		})
		capture(err)
	}
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.WithScope(func(scope *sentry.Scope) { report(scope, hub.CaptureException) })
	} else {
		sentry.WithScope(func(scope *sentry.Scope) { report(scope, sentry.CaptureException) })
	}

	return err
}

// mirrorKey is the per-user storage key of a store mirror
func mirrorKey(prefix, userID string) string {
	return prefix + "_" + userID
}

func (c *Client) saveMirror(ctx context.Context, prefix, userID string, items interface{}) {
	if !c.options.MirrorCaches || prefix == "" {
		return
	}
	if err := storage.SetJSON(ctx, c.storage, mirrorKey(prefix, userID), items); err != nil {
		c.logWarn("Failed to mirror cache", "key", prefix, "error", err)
	}
}

func (c *Client) loadMirror(ctx context.Context, prefix, userID string, out interface{}) bool {
	if !c.options.MirrorCaches || prefix == "" {
		return false
	}
	if err := storage.GetJSON(ctx, c.storage, mirrorKey(prefix, userID), out); err != nil {
		if err != storage.ErrNotFound {
			c.logWarn("Failed to read cache mirror", "key", prefix, "error", err)
		}
		return false
	}
	return true
}

func (c *Client) logDebug(msg string, keysAndValues ...interface{}) {
	if c.options.Logger != nil {
		c.options.Logger.Debug(msg, keysAndValues...)
	}
}

func (c *Client) logWarn(msg string, keysAndValues ...interface{}) {
	if c.options.Logger != nil {
		c.options.Logger.Warn(msg, keysAndValues...)
	}
}

func (c *Client) logError(msg string, err error) {
	if c.options.Logger != nil {
		c.options.Logger.Error(msg, "error", err)
	}
}

// publishLedgerChanged tells subscribers the backend recomputed balances
func (c *Client) publishLedgerChanged(ctx context.Context, method string) {
	c.bus.Publish(ctx, events.Event{
		Topic:   events.LedgerChanged,
		UserID:  c.session.userIDFor(c.session.generation()),
		Payload: method,
	})
}
