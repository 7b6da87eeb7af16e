package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hedeqiang/tonwatch"
	"github.com/hedeqiang/tonwatch/chain"
	"github.com/hedeqiang/tonwatch/cursor"
	"github.com/hedeqiang/tonwatch/deposit"
	"github.com/hedeqiang/tonwatch/event"
	"github.com/hedeqiang/tonwatch/internal/config"
	"github.com/hedeqiang/tonwatch/internal/server"
	"github.com/hedeqiang/tonwatch/middleware"
	"github.com/hedeqiang/tonwatch/publish"
	"github.com/hedeqiang/tonwatch/retry"
)

const (
	dedupSize       = 4096
	breakerFailures = 20
	breakerReset    = 30 * time.Second
	drainTimeout    = 30 * time.Second
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the deposit watcher daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer log.Sync()
		return run(cmd.Context(), cfg, log)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	if len(cfg.Watch.Wallets) == 0 && !cfg.Watch.Chain {
		return errors.New("nothing to watch: configure watch.wallets or enable watch.chain")
	}

	q, err := openChain(ctx, cfg.Chain)
	if err != nil {
		return err
	}
	defer q.Close()

	store, err := cursor.Open(ctx, cfg.Cursor.URL)
	if err != nil {
		return err
	}
	defer store.Close()

	pub, err := publish.Open(ctx, cfg.Publish.URL)
	if err != nil {
		return err
	}
	defer pub.Close()

	var ledger deposit.Crediter
	if cfg.Deposit.DSN != "" {
		l, err := deposit.OpenLedger(cfg.Deposit.DSN)
		if err != nil {
			return err
		}
		defer l.Close()
		if err := l.Migrate(ctx); err != nil {
			return err
		}
		ledger = l
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	mon, err := newMonitor(cfg, q, store, reg, log)
	if err != nil {
		return err
	}
	if err := watchAll(mon, cfg, ledger, pub, log); err != nil {
		_ = mon.Shutdown(context.Background())
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Server.Addr != "" {
		srv := server.New(cfg.Server.Addr, mon, reg, log)
		g.Go(func() error {
			return srv.Run(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		defer cancel()
		return mon.Shutdown(drainCtx)
	})

	log.Info("tonwatch running",
		zap.String("chain", cfg.Chain.ID),
		zap.Int("wallets", len(cfg.Watch.Wallets)),
		zap.Bool("blocks", cfg.Watch.Chain),
	)
	return g.Wait()
}

// newMonitor builds the daemon's monitor over q with its middleware stack.
func newMonitor(cfg *config.Config, q chain.Query, store cursor.Cursor, reg *prometheus.Registry, log *zap.Logger) (*tonwatch.Monitor, error) {
	dedup, err := middleware.NewDedup(dedupSize)
	if err != nil {
		return nil, err
	}
	breaker := retry.NewCircuitBreaker(breakerFailures, breakerReset)
	breaker.OnStateChange(func(from, to retry.State) {
		log.Warn("circuit breaker", zap.Stringer("from", from), zap.Stringer("to", to))
	})

	mws := []middleware.Middleware{
		middleware.NewMetrics(reg),
		middleware.NewLogger(log),
		dedup,
	}
	if cfg.Watch.HandlerRPS > 0 {
		mws = append(mws, middleware.NewThrottle(cfg.Watch.HandlerRPS, 1))
	}

	mon, err := tonwatch.New(
		tonwatch.WithLogger(log),
		tonwatch.WithCursor(store),
		tonwatch.WithMetrics(reg),
		tonwatch.WithPollInterval(cfg.Watch.Interval),
		tonwatch.WithPageSize(cfg.Watch.PageSize),
		tonwatch.WithCircuitBreaker(breaker),
		tonwatch.WithMiddleware(mws...),
	)
	if err != nil {
		return nil, err
	}
	if err := mon.AddChain(q); err != nil {
		return nil, err
	}
	return mon, nil
}

// watchAll starts a deposit subscription per configured wallet and, when
// enabled, the block subscription.
func watchAll(mon *tonwatch.Monitor, cfg *config.Config, ledger deposit.Crediter, pub publish.Publisher, log *zap.Logger) error {
	jettons := make(map[string]deposit.Jetton, len(cfg.Deposit.Jettons))
	for _, j := range cfg.Deposit.Jettons {
		jettons[j.Wallet] = deposit.Jetton{Symbol: j.Symbol, Decimals: j.Decimals}
	}
	for _, w := range cfg.Watch.Wallets {
		cls, err := deposit.NewClassifier(w, jettons)
		if err != nil {
			return err
		}
		h := deposit.Handler(cls, ledger, pub, cfg.Publish.Topic, log)
		if err := mon.WatchAccount(cfg.Chain.ID, w, h); err != nil {
			return fmt.Errorf("watch %s: %w", w, err)
		}
	}
	if cfg.Watch.Chain {
		if err := mon.WatchChain(cfg.Chain.ID, chainHandler(pub, cfg.Publish.Topic+".transactions")); err != nil {
			return err
		}
	}
	return nil
}

// chainHandler publishes every transaction seen in a block, keyed by account.
func chainHandler(pub publish.Publisher, topic string) event.Handler {
	return func(ctx context.Context, tx event.Transaction) error {
		v := newTxView(tx)
		payload, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return pub.Publish(ctx, topic, v.Account, payload)
	}
}
