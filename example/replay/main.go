// Example replay: backfill every transaction of a masterchain seqno range.
//
// Usage:
//
//	go run ./example/replay 40000000 40000010
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync/atomic"

	"github.com/hedeqiang/tonwatch/chain/liteserver"
	"github.com/hedeqiang/tonwatch/event"
	"github.com/hedeqiang/tonwatch/watcher"
)

func main() {
	if len(os.Args) < 3 {
		log.Fatal("usage: replay <from> <to>")
	}
	from, err := strconv.ParseUint(os.Args[1], 10, 32)
	if err != nil {
		log.Fatal(err)
	}
	to, err := strconv.ParseUint(os.Args[2], 10, 32)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	client, err := liteserver.Dial(ctx, "mainnet", liteserver.MainnetConfigURL)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	var count atomic.Int64
	r, err := watcher.NewReplay(client, uint32(from), uint32(to), func(_ context.Context, tx event.Transaction) error {
		n := count.Add(1)
		fmt.Printf("#%d [%s] account=%s lt=%d\n", n, tx.Shard, tx.Account, tx.LT)
		return nil
	}, nil)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Replaying seqnos %d to %d...\n", from, to)
	last, err := r.Run(ctx)
	if err != nil {
		log.Fatalf("stopped after seqno %d: %v", last, err)
	}
	fmt.Printf("Done at seqno %d. Total transactions: %d\n", last, count.Load())
}
