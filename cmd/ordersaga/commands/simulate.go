package commands

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/slok/ordersaga/internal/lock/memory"
	lockredis "github.com/slok/ordersaga/internal/lock/redis"
	"github.com/slok/ordersaga/pkg/lib"
)

// SimulateCommand runs concurrent customers placing orders on the same
// screening against the fake providers.
type SimulateCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	customers int
	seats     int
	price     int64
	redisAddr string
	lockTTL   time.Duration
	format    string
}

// NewSimulateCommand returns the simulate command.
func NewSimulateCommand(rootCmd *RootCommand, app *kingpin.Application) *SimulateCommand {
	c := &SimulateCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("simulate", "Simulate customers competing for the seats of a screening using fake providers.")
	c.Cmd.Flag("customers", "Number of concurrent customers.").Default("6").IntVar(&c.customers)
	c.Cmd.Flag("seats", "Number of seats on the screening.").Default("4").IntVar(&c.seats)
	c.Cmd.Flag("price", "Seat price.").Default("1800").Int64Var(&c.price)
	c.Cmd.Flag("redis-addr", "Redis address for the offer locks, in-process locks are used when empty.").StringVar(&c.redisAddr)
	c.Cmd.Flag("lock-ttl", "Offer lock TTL.").Default("30s").DurationVar(&c.lockTTL)
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")

	return c
}

func (c SimulateCommand) Name() string { return c.Cmd.FullCommand() }

func (c SimulateCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	if c.customers <= 0 || c.seats <= 0 || c.price <= 0 {
		return fmt.Errorf("customers, seats and price must be positive")
	}

	var locker lib.Locker = memory.NewLocker()
	if c.redisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: c.redisAddr})
		defer client.Close()

		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("could not connect to redis: %w", err)
		}

		rl, err := lockredis.NewLocker(lockredis.LockerConfig{Client: client, Logger: logger})
		if err != nil {
			return fmt.Errorf("could not create redis locker: %w", err)
		}
		locker = rl
	}

	return c.simulate(ctx, locker)
}

func (c SimulateCommand) simulate(ctx context.Context, locker lib.Locker) error {
	logger := c.rootCmd.Logger

	client, err := lib.New(ctx, lib.Config{
		DBPath:  c.rootCmd.DBPath,
		Logger:  logger,
		Locker:  locker,
		LockTTL: c.lockTTL,
	})
	if err != nil {
		return fmt.Errorf("could not create client: %w", err)
	}
	defer client.Close()

	screening := fmt.Sprintf("screening-%d", time.Now().Unix())
	price := decimal.NewFromInt(c.price)

	var (
		mu        sync.Mutex
		ids       []string
		confirmed int
		wg        sync.WaitGroup
	)
	for i := 0; i < c.customers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			customer := fmt.Sprintf("customer-%d", i+1)
			seat := fmt.Sprintf("A-%d", i%c.seats+1)
			id, ok, err := c.placeOrder(ctx, client, customer, screening, seat, price)
			if err != nil {
				logger.Errorf("%s could not place an order: %s", customer, err)
			}

			mu.Lock()
			defer mu.Unlock()
			if id != "" {
				ids = append(ids, id)
			}
			if ok {
				confirmed++
			}
		}()
	}
	wg.Wait()

	exported, err := client.ExportPendingTasks(ctx)
	if err != nil {
		return err
	}
	executed, err := client.RunDueTasks(ctx)
	if err != nil {
		return err
	}

	txs := make([]lib.Transaction, 0, len(ids))
	for _, id := range ids {
		tx, err := client.GetTransaction(ctx, id)
		if err != nil {
			return fmt.Errorf("could not get transaction: %w", err)
		}
		txs = append(txs, *tx)
	}

	p := c.rootCmd.printer(c.format)
	if err := p.PrintTransactions(txs); err != nil {
		return fmt.Errorf("could not print transactions: %w", err)
	}

	msg := fmt.Sprintf("%d orders confirmed, %d transactions canceled, %d exported, %d task attempts executed",
		confirmed, len(ids)-confirmed, exported, executed)
	return p.PrintMessage(msg)
}

// placeOrder returns the transaction ID and whether the order was confirmed. A
// taken seat cancels the transaction.
func (c SimulateCommand) placeOrder(ctx context.Context, client *lib.Client, customer, screening, seat string, price decimal.Decimal) (string, bool, error) {
	tx, err := client.StartTransaction(ctx, lib.StartTransactionOpts{
		ProjectID: "simulation",
		TypeOf:    lib.TransactionTypePlaceOrder,
		Agent:     lib.Party{ID: customer},
		Seller:    lib.Party{ID: "theater-1"},
		Expires:   time.Now().Add(15 * time.Minute),
	})
	if err != nil {
		return "", false, err
	}

	_, err = client.UpdateAgent(ctx, lib.UpdateAgentOpts{
		TransactionID: tx.ID,
		AgentID:       customer,
		Contact:       lib.Contact{GivenName: customer, Email: customer + "@example.com", Telephone: "090-1234-5678"},
	})
	if err != nil {
		return tx.ID, false, err
	}

	_, err = client.Authorize(ctx, lib.AuthorizeOpts{
		TransactionID: tx.ID,
		AgentID:       customer,
		Object: lib.AuthorizeObject{Offer: &lib.OfferAuthorization{
			OfferID:   screening + "-" + seat,
			OfferType: lib.OfferTypeEventReservation,
			EventID:   screening,
			SeatID:    seat,
			Quantity:  1,
			UnitPrice: price,
		}},
	})
	if errors.Is(err, lib.ErrAlreadyInUse) {
		c.rootCmd.Logger.Infof("Seat %s is taken, %s gives up", seat, customer)
		return tx.ID, false, client.CancelTransaction(ctx, tx.ID, customer)
	}
	if err != nil {
		return tx.ID, false, err
	}

	_, err = client.Authorize(ctx, lib.AuthorizeOpts{
		TransactionID: tx.ID,
		AgentID:       customer,
		Object:        lib.AuthorizeObject{Payment: &lib.PaymentAuthorization{Method: lib.PaymentMethodCreditCard, Amount: price}},
	})
	if err != nil {
		return tx.ID, false, err
	}

	_, err = client.ConfirmTransaction(ctx, lib.ConfirmOpts{
		TransactionID: tx.ID,
		AgentID:       customer,
		Price:         price,
		Email:         &lib.EmailOpts{Subject: "Your ticket", Text: "Seat " + seat + " on " + screening},
	})
	if err != nil {
		return tx.ID, false, err
	}

	return tx.ID, true, nil
}
