package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hedeqiang/tonwatch/event"
	"github.com/hedeqiang/tonwatch/watcher"
)

var (
	accountLimit int
	accountAfter string
)

var accountCmd = &cobra.Command{
	Use:   "account <address>",
	Short: "Print the transactions of an account",
	Long: `Print transactions of an account as JSON lines, oldest first.

With --after, everything newer than the given transaction is printed, which
is exactly what one subscription tick from that cursor would deliver.
Without it the newest --limit transactions are printed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer log.Sync()

		ctx := cmd.Context()
		q, err := openChain(ctx, cfg.Chain)
		if err != nil {
			return err
		}
		defer q.Close()

		src, err := watcher.NewAccountSource(q, args[0],
			watcher.WithPageSize(cfg.Watch.PageSize),
			watcher.WithAccountLogger(log),
		)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if accountAfter == "" {
			txs, err := q.AccountTransactions(ctx, src.Account(), accountLimit, event.TxID{})
			if err != nil {
				return err
			}
			for i := len(txs) - 1; i >= 0; i-- {
				if err := printTx(out, txs[i]); err != nil {
					return err
				}
			}
			return nil
		}

		after, err := event.ParseTxID(accountAfter)
		if err != nil {
			return err
		}
		sub, err := watcher.New[event.TxID](ctx, src, func(_ context.Context, tx event.Transaction) error {
			return printTx(out, tx)
		}, watcher.Config[event.TxID]{Start: after, Logger: log})
		if err != nil {
			return err
		}
		txs, err := sub.Poll(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%d transactions, cursor %s\n", len(txs), sub.Cursor())
		return nil
	},
}

func init() {
	accountCmd.Flags().IntVarP(&accountLimit, "limit", "n", 20, "number of newest transactions to print without --after")
	accountCmd.Flags().StringVar(&accountAfter, "after", "", "print transactions after this one (lt:hash)")
	rootCmd.AddCommand(accountCmd)
}
