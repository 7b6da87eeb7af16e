// Example multichain: follow every block of mainnet over liteservers and
// of testnet over toncenter at the same time.
//
// Usage:
//
//	go run ./example/multichain
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hedeqiang/tonwatch"
	"github.com/hedeqiang/tonwatch/chain/liteserver"
	"github.com/hedeqiang/tonwatch/chain/toncenter"
	"github.com/hedeqiang/tonwatch/cursor"
	"github.com/hedeqiang/tonwatch/event"
	"github.com/hedeqiang/tonwatch/retry"
)

func main() {
	ctx := context.Background()

	m, err := tonwatch.New(
		tonwatch.WithLogLevel("warn"),
		tonwatch.WithCursor(cursor.NewFile("./multichain_cursors.json")),
		tonwatch.WithPollInterval(3*time.Second),
		tonwatch.WithCircuitBreaker(retry.NewCircuitBreaker(10, time.Minute)),
		tonwatch.WithMetrics(prometheus.DefaultRegisterer),
	)
	if err != nil {
		log.Fatal(err)
	}

	mainnet, err := liteserver.Dial(ctx, "mainnet", liteserver.MainnetConfigURL)
	if err != nil {
		log.Fatal(err)
	}
	defer mainnet.Close()
	testnet := toncenter.NewWithID("testnet", toncenter.TestnetURL, os.Getenv("TONCENTER_TESTNET_API_KEY"))
	defer testnet.Close()

	if err := m.AddChain(mainnet); err != nil {
		log.Fatal(err)
	}
	if err := m.AddChain(testnet); err != nil {
		log.Fatal(err)
	}

	for _, id := range m.Chains() {
		id := id
		err :=m.WatchChain(id, func(_ context.Context, tx event.Transaction) error {
			fmt.Printf("[%s] %s account=%s lt=%d\n", id, tx.Shard, tx.Account, tx.LT)
			return nil
		})
		if err != nil {
			log.Fatal(err)
		}
	}

	fmt.Printf("Following %v... Press Ctrl+C to stop.\n", m.Chains())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	m.Shutdown(shutdownCtx)
	for id, pos := range m.Cursors() {
		fmt.Printf("%s stopped at seqno %d\n", id, pos.SeqNo)
	}
}
