package lib

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/run"
	"github.com/shopspring/decimal"

	"github.com/slok/ordersaga/internal/app/authorize"
	"github.com/slok/ordersaga/internal/app/exporttasks"
	"github.com/slok/ordersaga/internal/app/transaction"
	"github.com/slok/ordersaga/internal/conventions"
	"github.com/slok/ordersaga/internal/ledger"
	"github.com/slok/ordersaga/internal/lock/memory"
	"github.com/slok/ordersaga/internal/log"
	"github.com/slok/ordersaga/internal/model"
	"github.com/slok/ordersaga/internal/provider"
	"github.com/slok/ordersaga/internal/provider/fake"
	"github.com/slok/ordersaga/internal/provider/reliable"
	"github.com/slok/ordersaga/internal/storage/sqlite"
	"github.com/slok/ordersaga/internal/task"
	"github.com/slok/ordersaga/internal/task/handler"
)

// Providers are the external systems the saga drives.
type Providers struct {
	Inventory  Inventory
	Payments   map[PaymentMethod]Payment
	Notifier   Notifier
	Membership Membership
}

// FakeProviders returns in-memory providers, useful for tests and demos.
// Payments of every method are accepted up to paymentLimit, zero means no limit.
func FakeProviders(paymentLimit decimal.Decimal, logger log.Logger) Providers {
	payments := map[PaymentMethod]Payment{}
	for _, m := range model.AllPaymentMethods {
		payments[m] = fake.NewPayment(paymentLimit)
	}

	return Providers{
		Inventory:  fake.NewInventory(),
		Payments:   payments,
		Notifier:   fake.NewNotifier(logger),
		Membership: fake.NewMembership(),
	}
}

// Config configures the SDK client.
//
// All fields are optional. An empty Config{} uses ~/.ordersaga/ordersaga.db
// for storage and fake providers.
type Config struct {
	// DBPath is the SQLite database path.
	// Default: ~/.ordersaga/ordersaga.db.
	DBPath string

	// Logger receives structured log output from the SDK.
	// Default: noop (silent).
	Logger log.Logger

	// Providers are the inventory, payment, notification and membership providers.
	// Default: FakeProviders without payment limit.
	Providers *Providers

	// Locker serializes the authorizations of the same offer.
	// Default: an in-process locker, use a shared one when several processes
	// authorize on the same database.
	Locker Locker
	// LockTTL is the expiry of the offer locks. Default: 30s.
	LockTTL time.Duration

	// ProviderTimeout bounds every provider call. Default: 10s.
	ProviderTimeout time.Duration
	// ProviderRequestsPerSecond limits the calls to every provider, zero disables it.
	ProviderRequestsPerSecond float64

	// TaskBackoffBase and TaskBackoffMax bound the retry delay of failed tasks.
	// Default: 10s and 1h.
	TaskBackoffBase time.Duration
	TaskBackoffMax  time.Duration
	// TaskConcurrency is the number of tasks RunWorker executes at the same time. Default: 1.
	TaskConcurrency int
}

func (c *Config) defaults() error {
	if c.DBPath == "" {
		c.DBPath = conventions.DBPath(conventions.DataDir())
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	if c.Providers == nil {
		p := FakeProviders(decimal.Zero, c.Logger)
		c.Providers = &p
	}
	if c.Providers.Inventory == nil || c.Providers.Notifier == nil || c.Providers.Membership == nil || len(c.Providers.Payments) == 0 {
		return fmt.Errorf("every provider is required")
	}

	if c.Locker == nil {
		c.Locker = memory.NewLocker()
	}

	if c.ProviderTimeout <= 0 {
		c.ProviderTimeout = 10 * time.Second
	}

	return nil
}

// Client is the main SDK entry point.
//
// Create a Client with [New] and release its resources with [Client.Close].
// A Client is safe for concurrent use.
type Client struct {
	ledger       *ledger.Ledger
	transactions *transaction.Service
	authorize    *authorize.Service
	exporter     *exporttasks.Service
	tasks        *sqlite.TaskRepository
	worker       *task.Worker
	logger       log.Logger
	closeFn      func() error
}

// New creates a new SDK client backed by a SQLite database.
//
// The caller must call [Client.Close] when done to release the database
// connection.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logger := cfg.Logger

	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: cfg.DBPath,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create repository: %w", err)
	}

	c, err := newClient(repo, cfg)
	if err != nil {
		_ = repo.Close()
		return nil, err
	}
	return c, nil
}

func newClient(repo *sqlite.Repository, cfg Config) (*Client, error) {
	logger := cfg.Logger

	taskRepo, err := sqlite.NewTaskRepository(sqlite.TaskRepositoryConfig{DB: repo.DB(), Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("could not create task repository: %w", err)
	}

	providers, err := reliableProviders(*cfg.Providers, cfg, logger)
	if err != nil {
		return nil, err
	}

	l, err := ledger.NewLedger(ledger.LedgerConfig{Repository: repo, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("could not create ledger: %w", err)
	}

	txSvc, err := transaction.NewService(transaction.ServiceConfig{
		Transactions: repo,
		Ledger:       l,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create transaction service: %w", err)
	}

	authSvc, err := authorize.NewService(authorize.ServiceConfig{
		Transactions:    repo,
		Ledger:          l,
		Inventory:       providers.Inventory,
		Payments:        provider.PaymentProviders(providers.Payments),
		Locker:          cfg.Locker,
		LockTTL:         cfg.LockTTL,
		ProviderTimeout: cfg.ProviderTimeout,
		Logger:          logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create authorize service: %w", err)
	}

	exporter, err := exporttasks.NewService(exporttasks.ServiceConfig{
		Transactions: repo,
		Actions:      repo,
		Tasks:        taskRepo,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create export service: %w", err)
	}

	reg := task.NewRegistry()
	err = handler.Register(reg, handler.Config{
		Inventory:  providers.Inventory,
		Payments:   provider.PaymentProviders(providers.Payments),
		Notifier:   providers.Notifier,
		Membership: providers.Membership,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not register task handlers: %w", err)
	}

	queue, err := task.NewQueue(task.QueueConfig{
		Repository:  taskRepo,
		Registry:    reg,
		BackoffBase: cfg.TaskBackoffBase,
		BackoffMax:  cfg.TaskBackoffMax,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create task queue: %w", err)
	}

	worker, err := task.NewWorker(task.WorkerConfig{
		Queue:       queue,
		Concurrency: cfg.TaskConcurrency,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create task worker: %w", err)
	}

	return &Client{
		ledger:       l,
		transactions: txSvc,
		authorize:    authSvc,
		exporter:     exporter,
		tasks:        taskRepo,
		worker:       worker,
		logger:       logger,
		closeFn:      repo.Close,
	}, nil
}

// reliableProviders wraps every provider with its own breaker and rate limiter.
func reliableProviders(p Providers, cfg Config, logger log.Logger) (Providers, error) {
	newCaller := func(name string) (*reliable.Caller, error) {
		c, err := reliable.NewCaller(reliable.CallerConfig{
			Name:              name,
			Timeout:           cfg.ProviderTimeout,
			RequestsPerSecond: cfg.ProviderRequestsPerSecond,
			Logger:            logger,
		})
		if err != nil {
			return nil, fmt.Errorf("could not create %s provider caller: %w", name, err)
		}
		return c, nil
	}

	res := Providers{Payments: map[PaymentMethod]Payment{}}

	c, err := newCaller("inventory")
	if err != nil {
		return Providers{}, err
	}
	res.Inventory = reliable.NewInventory(p.Inventory, c)

	for method, pp := range p.Payments {
		c, err := newCaller("payment-" + string(method))
		if err != nil {
			return Providers{}, err
		}
		res.Payments[method] = reliable.NewPayment(pp, c)
	}

	c, err = newCaller("notifier")
	if err != nil {
		return Providers{}, err
	}
	res.Notifier = reliable.NewNotifier(p.Notifier, c)

	c, err = newCaller("membership")
	if err != nil {
		return Providers{}, err
	}
	res.Membership = reliable.NewMembership(p.Membership, c)

	return res, nil
}

// Close releases resources held by the client, including the database connection.
// After Close returns, the client must not be used.
func (c *Client) Close() error {
	if c.closeFn != nil {
		return c.closeFn()
	}
	return nil
}

// RunWorker exports the tasks of finished transactions and executes the due
// tasks until the context is done.
func (c *Client) RunWorker(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var g run.Group
	g.Add(
		func() error { return c.exporter.Run(ctx) },
		func(_ error) { cancel() },
	)
	g.Add(
		func() error { return c.worker.Run(ctx) },
		func(_ error) { cancel() },
	)

	return g.Run()
}
