package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hedeqiang/tonwatch/event"
	"github.com/hedeqiang/tonwatch/watcher"
)

var chainFrom, chainTo uint32

var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Replay masterchain seqnos and print their transactions",
	Long: `Print every transaction of the masterchain blocks --from to --to and of the
shard blocks they reference, as JSON lines with shard context.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
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

		if chainTo == 0 {
			chainTo = chainFrom
		}
		out := cmd.OutOrStdout()
		r, err := watcher.NewReplay(q, chainFrom, chainTo, func(_ context.Context, tx event.Transaction) error {
			return printTx(out, tx)
		}, log)
		if err != nil {
			return err
		}

		last, err := r.Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		if last < chainTo {
			fmt.Fprintf(cmd.ErrOrStderr(), "stopped at seqno %d of %d\n", last, chainTo)
		}
		return nil
	},
}

func init() {
	chainCmd.Flags().Uint32Var(&chainFrom, "from", 0, "first masterchain seqno")
	chainCmd.Flags().Uint32Var(&chainTo, "to", 0, "last masterchain seqno (default --from)")
	_ = chainCmd.MarkFlagRequired("from")
	rootCmd.AddCommand(chainCmd)
}
