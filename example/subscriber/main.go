// Example subscriber: fan one account's transactions out to a channel
// consumer and a callback through a broadcast.
//
// Usage:
//
//	go run ./example/subscriber EQ...
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/hedeqiang/tonwatch"
	"github.com/hedeqiang/tonwatch/chain/toncenter"
	"github.com/hedeqiang/tonwatch/cursor"
	"github.com/hedeqiang/tonwatch/event"
	"github.com/hedeqiang/tonwatch/subscriber"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: subscriber <address>")
	}

	m, err := tonwatch.New(
		tonwatch.WithLogLevel("warn"),
		tonwatch.WithCursor(cursor.NewFile("./progress_subscriber.json")),
		tonwatch.WithPollInterval(5*time.Second),
		tonwatch.WithPageSize(10),
	)
	if err != nil {
		log.Fatal(err)
	}
	if err := m.AddChain(toncenter.New("", os.Getenv("TONCENTER_API_KEY"))); err != nil {
		log.Fatal(err)
	}

	// --- Subscriber 1: Channel-based ---
	ch := subscriber.NewChannel(256)
	go func() {
		for tx := range ch.Transactions() {
			fmt.Printf("[Channel]  lt=%d hash=%s\n", tx.LT, tx.Hash.Hex())
		}
	}()

	// --- Subscriber 2: Callback-based ---
	var cbCount atomic.Int64
	cb := subscriber.NewCallback(func(_ context.Context, tx event.Transaction) error {
		n := cbCount.Add(1)
		fmt.Printf("[Callback] #%d lt=%d\n", n, tx.LT)
		return nil
	})

	// --- Broadcast: delivers to both subscribers ---
	bc := subscriber.NewBroadcast(ch, cb)

	if err := m.WatchAccount("mainnet", os.Args[1], bc.Send); err != nil {
		log.Fatal(err)
	}

	fmt.Println("Listening (broadcast mode)... Press Ctrl+C to stop.")
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	fmt.Println("\nShutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	m.Shutdown(ctx)
	bc.Close()

	fmt.Printf("Total callback invocations: %d\n", cbCount.Load())
}
