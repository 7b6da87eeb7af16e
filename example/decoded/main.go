// Example decoded: print decoded comments and jetton notifications of
// incoming payments above 0.1 TON, dropping everything else in middleware.
//
// Usage:
//
//	go run ./example/decoded EQ...
package main

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hedeqiang/tonwatch"
	"github.com/hedeqiang/tonwatch/chain/toncenter"
	"github.com/hedeqiang/tonwatch/decoder"
	"github.com/hedeqiang/tonwatch/event"
	"github.com/hedeqiang/tonwatch/filter"
	mw "github.com/hedeqiang/tonwatch/middleware"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: decoded <address>")
	}

	m, err := tonwatch.New(tonwatch.WithLogLevel("warn"))
	if err != nil {
		log.Fatal(err)
	}
	if err := m.AddChain(toncenter.New("", os.Getenv("TONCENTER_API_KEY"))); err != nil {
		log.Fatal(err)
	}

	m.Use(mw.NewFilter(filter.AnyOf(
		filter.AllOf(
			filter.NewInboundValueFilter(big.NewInt(100_000_000)),
			filter.NoOutbound(),
		),
		filter.NewOpFilter(decoder.OpJettonNotification),
	)))

	err = m.WatchAccount("mainnet", os.Args[1], func(_ context.Context, tx event.Transaction) error {
		p, err := decoder.Decode(tx.In)
		if err != nil {
			fmt.Printf("lt=%d undecodable body: %v\n", tx.LT, err)
			return nil
		}
		switch p.Kind {
		case decoder.KindJettonNotification:
			fmt.Printf("lt=%d jetton amount=%s from=%s comment=%q\n",
				tx.LT, p.Jetton.Amount, p.Jetton.Sender, p.Jetton.Comment)
		case decoder.KindComment:
			fmt.Printf("lt=%d %s nanoton comment=%q\n", tx.LT, tx.In.Value, p.Comment)
		default:
			fmt.Printf("lt=%d %s nanoton %s\n", tx.LT, tx.In.Value, p)
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	m.Shutdown(ctx)
}
