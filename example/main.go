// Package main watches a wallet and prints the deposits it receives.
//
// Usage:
//
//	TON_WALLET=EQ... TONCENTER_API_KEY=... go run ./example
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hedeqiang/tonwatch"
	"github.com/hedeqiang/tonwatch/chain/toncenter"
	"github.com/hedeqiang/tonwatch/cursor"
	"github.com/hedeqiang/tonwatch/deposit"
	mw "github.com/hedeqiang/tonwatch/middleware"
	"github.com/hedeqiang/tonwatch/retry"
)

func main() {
	wallet := os.Getenv("TON_WALLET")
	if wallet == "" {
		log.Fatal("TON_WALLET environment variable is required")
	}
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	// 1. Create the monitor with a file-backed cursor so restarts resume.
	m, err := tonwatch.New(
		tonwatch.WithLogger(logger),
		tonwatch.WithCursor(cursor.NewFile("./tonwatch_cursors.json")),
		tonwatch.WithRetry(retry.Linear(5, 2*time.Second)),
		tonwatch.WithPollInterval(5*time.Second),
	)
	if err != nil {
		log.Fatal(err)
	}

	// 2. Register the network.
	if err := m.AddChain(toncenter.New("", os.Getenv("TONCENTER_API_KEY"))); err != nil {
		log.Fatal(err)
	}

	// 3. Add middleware.
	m.Use(mw.NewLogger(logger))

	// 4. Recognise deposits. Without a ledger they are only logged.
	cls, err := deposit.NewClassifier(wallet, nil)
	if err != nil {
		log.Fatal(err)
	}

	// 5. Start watching.
	if err := m.WatchAccount("mainnet", wallet, deposit.Handler(cls, nil, nil, "", logger)); err != nil {
		log.Fatal(err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
