// Package cmd implements the tonwatch command line.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hedeqiang/tonwatch/chain"
	"github.com/hedeqiang/tonwatch/chain/liteserver"
	"github.com/hedeqiang/tonwatch/chain/toncenter"
	"github.com/hedeqiang/tonwatch/internal/config"
	"github.com/hedeqiang/tonwatch/internal/logger"
	"github.com/hedeqiang/tonwatch/transport"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "tonwatch",
	Short: "Watch TON accounts and blocks for new transactions",
	Long: `tonwatch follows TON account histories and masterchain blocks, hands every
new transaction to a handler exactly once per committed cursor, and books
incoming payments as deposits.`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on failure. SIGINT
// and SIGTERM cancel the command's context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./tonwatch.yaml)")
}

// setup loads the configuration and builds the logger.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// queryCloser is a chain client that holds connections.
type queryCloser interface {
	chain.Query
	io.Closer
}

func openChain(ctx context.Context, cfg config.ChainConfig) (queryCloser, error) {
	switch cfg.Backend {
	case config.BackendLiteserver:
		url := cfg.Endpoint
		if url == "" && cfg.ID == "testnet" {
			url = liteserver.TestnetConfigURL
		}
		c, err := liteserver.Dial(ctx, cfg.ID, url)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		endpoint := cfg.Endpoint
		if endpoint == "" && cfg.ID == "testnet" {
			endpoint = toncenter.TestnetURL
		}
		if cfg.RPS <= 0 {
			return toncenter.NewWithID(cfg.ID, endpoint, cfg.APIKey), nil
		}
		if endpoint == "" {
			endpoint = toncenter.MainnetURL
		}
		t := transport.NewHTTP(endpoint, transport.WithAPIKey(cfg.APIKey), transport.WithRateLimit(cfg.RPS))
		return toncenter.NewWithTransport(cfg.ID, t), nil
	}
}
