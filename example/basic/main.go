// Example basic: print every new transaction of an account.
//
// Usage:
//
//	go run ./example/basic EQ...
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hedeqiang/tonwatch"
	"github.com/hedeqiang/tonwatch/chain/toncenter"
	"github.com/hedeqiang/tonwatch/event"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: basic <address>")
	}

	m, err := tonwatch.New(tonwatch.WithLogLevel("warn"))
	if err != nil {
		log.Fatal(err)
	}
	if err := m.AddChain(toncenter.New("", os.Getenv("TONCENTER_API_KEY"))); err != nil {
		log.Fatal(err)
	}

	err = m.WatchAccount("mainnet", os.Args[1], func(_ context.Context, tx event.Transaction) error {
		fmt.Printf("lt=%d hash=%s at=%s\n", tx.LT, tx.Hash.Hex(), tx.Now.Format(time.RFC3339))
		if tx.In != nil && tx.In.IsInternal() {
			fmt.Printf("  from %s value %s nanoton\n", tx.In.Source, tx.In.Value)
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("Watching... Press Ctrl+C to stop.")
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	m.Shutdown(ctx)
}
