package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/oklog/run"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"

	"github.com/slok/ordersaga/internal/app/exporttasks"
	"github.com/slok/ordersaga/internal/app/transaction"
	"github.com/slok/ordersaga/internal/config"
	"github.com/slok/ordersaga/internal/conventions"
	"github.com/slok/ordersaga/internal/ledger"
	"github.com/slok/ordersaga/internal/log"
	"github.com/slok/ordersaga/internal/model"
	"github.com/slok/ordersaga/internal/provider"
	"github.com/slok/ordersaga/internal/provider/fake"
	"github.com/slok/ordersaga/internal/provider/reliable"
	"github.com/slok/ordersaga/internal/task"
	"github.com/slok/ordersaga/internal/task/handler"
)

// WorkerCommand runs the exporters, the task workers and the sweepers.
type WorkerCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	configPath  string
	concurrency int
}

// NewWorkerCommand returns the worker command.
func NewWorkerCommand(rootCmd *RootCommand, app *kingpin.Application) *WorkerCommand {
	c := &WorkerCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("worker", "Export and execute the tasks of finished transactions. Providers are in-memory fakes, embed pkg/lib to use real ones.")
	c.Cmd.Flag("config", "Path to the YAML worker tuning file, by default the worker.yaml next to the database is used if present.").StringVar(&c.configPath)
	c.Cmd.Flag("concurrency", "Number of tasks executed at the same time, overrides the tuning file.").IntVar(&c.concurrency)

	return c
}

func (c WorkerCommand) Name() string { return c.Cmd.FullCommand() }

func (c WorkerCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	configPath := c.configPath
	if configPath == "" {
		p := conventions.WorkerConfigPath(filepath.Dir(c.rootCmd.DBPath))
		if _, err := os.Stat(p); err == nil {
			configPath = p
		}
	}

	cfg, err := loadWorkerConfig(ctx, configPath)
	if err != nil {
		return err
	}
	if c.concurrency > 0 {
		cfg.Tasks.Concurrency = c.concurrency
	}

	repos, err := c.rootCmd.openRepositories(ctx)
	if err != nil {
		return err
	}
	defer repos.Close()

	l, err := ledger.NewLedger(ledger.LedgerConfig{Repository: repos.txs, Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create ledger: %w", err)
	}

	txSvc, err := transaction.NewService(transaction.ServiceConfig{
		Transactions: repos.txs,
		Ledger:       l,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("could not create transaction service: %w", err)
	}

	exporter, err := exporttasks.NewService(exporttasks.ServiceConfig{
		Transactions:     repos.txs,
		Actions:          repos.txs,
		Tasks:            repos.tasks,
		StuckGracePeriod: cfg.Export.StuckGrace,
		PollInterval:     cfg.Export.PollInterval,
		MaxPollInterval:  cfg.Export.MaxPollInterval,
		Logger:           logger,
	})
	if err != nil {
		return fmt.Errorf("could not create export service: %w", err)
	}

	handlerCfg, err := fakeProviders(cfg.Provider, logger)
	if err != nil {
		return err
	}

	reg := task.NewRegistry()
	if err := handler.Register(reg, handlerCfg); err != nil {
		return fmt.Errorf("could not register task handlers: %w", err)
	}

	queue, err := task.NewQueue(task.QueueConfig{
		Repository:     repos.tasks,
		Registry:       reg,
		BackoffBase:    cfg.Tasks.BackoffBase,
		BackoffMax:     cfg.Tasks.BackoffMax,
		HandlerTimeout: cfg.Tasks.HandlerTimeout,
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("could not create task queue: %w", err)
	}

	worker, err := task.NewWorker(task.WorkerConfig{
		Queue:        queue,
		Concurrency:  cfg.Tasks.Concurrency,
		PollInterval: cfg.Tasks.PollInterval,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("could not create task worker: %w", err)
	}

	sweepers, err := newSweepers(ctx, cfg, txSvc, exporter, queue, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var g run.Group

	// Exporters.
	for i := 0; i < cfg.Export.Exporters; i++ {
		g.Add(
			func() error {
				return exporter.Run(ctx)
			},
			func(_ error) {
				cancel()
			},
		)
	}

	// Task worker.
	{
		g.Add(
			func() error {
				return worker.Run(ctx)
			},
			func(_ error) {
				cancel()
			},
		)
	}

	// Sweepers.
	{
		g.Add(
			func() error {
				sweepers.Start()
				<-ctx.Done()
				<-sweepers.Stop().Done()
				return nil
			},
			func(_ error) {
				cancel()
			},
		)
	}

	logger.Infof("Worker started with %d exporters and %d task loops", cfg.Export.Exporters, cfg.Tasks.Concurrency)
	return g.Run()
}

func loadWorkerConfig(ctx context.Context, path string) (config.Worker, error) {
	if path == "" {
		return config.Default(), nil
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return config.Worker{}, fmt.Errorf("invalid config path: %w", err)
	}

	cfg, err := config.NewYAMLLoader(os.DirFS(filepath.Dir(abs))).Load(ctx, filepath.Base(abs))
	if err != nil {
		return config.Worker{}, fmt.Errorf("could not load worker config: %w", err)
	}
	return cfg, nil
}

// fakeProviders returns the in-memory providers behind reliable callers.
func fakeProviders(cfg config.ProviderConfig, logger log.Logger) (handler.Config, error) {
	newCaller := func(name string) (*reliable.Caller, error) {
		c, err := reliable.NewCaller(reliable.CallerConfig{
			Name:                    name,
			Timeout:                 cfg.Timeout,
			RequestsPerSecond:       cfg.RequestsPerSecond,
			Burst:                   cfg.Burst,
			BreakerMaxFailures:      cfg.Breaker.MaxFailures,
			BreakerOpenTimeout:      cfg.Breaker.OpenTimeout,
			BreakerHalfOpenRequests: cfg.Breaker.HalfOpenRequests,
			Logger:                  logger,
		})
		if err != nil {
			return nil, fmt.Errorf("could not create %s provider caller: %w", name, err)
		}
		return c, nil
	}

	hc := handler.Config{Payments: provider.PaymentProviders{}, Logger: logger}

	c, err := newCaller("inventory")
	if err != nil {
		return handler.Config{}, err
	}
	hc.Inventory = reliable.NewInventory(fake.NewInventory(), c)

	for _, m := range model.AllPaymentMethods {
		c, err := newCaller("payment-" + string(m))
		if err != nil {
			return handler.Config{}, err
		}
		hc.Payments[m] = reliable.NewPayment(fake.NewPayment(decimal.Zero), c)
	}

	c, err = newCaller("notifier")
	if err != nil {
		return handler.Config{}, err
	}
	hc.Notifier = reliable.NewNotifier(fake.NewNotifier(logger), c)

	c, err = newCaller("membership")
	if err != nil {
		return handler.Config{}, err
	}
	hc.Membership = reliable.NewMembership(fake.NewMembership(), c)

	return hc, nil
}

func newSweepers(ctx context.Context, cfg config.Worker, txs *transaction.Service, exporter *exporttasks.Service, queue *task.Queue, logger log.Logger) (*cron.Cron, error) {
	clog := cronLogger{logger: logger.WithValues(log.Kv{"svc": "cron.Sweepers"})}
	c := cron.New(cron.WithLogger(clog), cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)))

	jobs := []struct {
		name string
		spec string
		run  func(ctx context.Context) error
	}{
		{
			name: "expire-transactions",
			spec: cfg.Schedules.ExpireTransactions,
			run: func(ctx context.Context) error {
				_, err := txs.Expire(ctx)
				return err
			},
		},
		{
			name: "reset-stuck-exports",
			spec: cfg.Schedules.ResetStuckExports,
			run: func(ctx context.Context) error {
				_, err := exporter.ResetStuck(ctx)
				return err
			},
		},
		{
			name: "requeue-stale-tasks",
			spec: cfg.Schedules.RequeueStaleTasks,
			run: func(ctx context.Context) error {
				_, err := queue.RequeueStale(ctx, time.Now().UTC().Add(-cfg.Tasks.StaleAfter))
				return err
			},
		},
	}

	for _, job := range jobs {
		_, err := c.AddFunc(job.spec, func() {
			if err := job.run(ctx); err != nil {
				clog.Error(err, "sweeper failed", "job", job.name)
			}
		})
		if err != nil {
			return nil, fmt.Errorf("invalid %s schedule: %w", job.name, err)
		}
	}

	return c, nil
}

// cronLogger adapts log.Logger to cron.Logger.
type cronLogger struct {
	logger log.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.WithValues(kv(keysAndValues)).Debugf("%s", msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.WithValues(kv(keysAndValues)).Errorf("%s: %s", msg, err)
}

func kv(keysAndValues []any) log.Kv {
	res := log.Kv{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		res[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return res
}
