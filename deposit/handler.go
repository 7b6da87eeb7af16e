package deposit

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/hedeqiang/tonwatch/event"
	"github.com/hedeqiang/tonwatch/publish"
)

// Crediter books deposits. *Ledger implements it.
type Crediter interface {
	Credit(ctx context.Context, d *Deposit) (created bool, err error)
}

// Handler classifies every delivered transaction, credits the deposits and
// publishes them to topic. A ledger or broker failure is returned so the
// transaction is delivered again. The ledger keeps redelivery from
// crediting twice; the broker may see a deposit more than once and its
// consumers should key on tx_hash.
//
// ledger may be nil to disable bookkeeping, in which case every deposit
// is treated as new. pub may be nil to disable publishing.
func Handler(cls *Classifier, ledger Crediter, pub publish.Publisher, topic string, logger *zap.Logger) event.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, tx event.Transaction) error {
		d, ok := cls.Classify(tx)
		if !ok {
			return nil
		}

		created := true
		if ledger != nil {
			var err error
			if created, err = ledger.Credit(ctx, d); err != nil {
				return err
			}
		}
		if created {
			logger.Info("deposit credited",
				zap.String("asset", d.Asset),
				zap.String("value", d.Value().String()),
				zap.Stringer("from", d.From),
				zap.String("comment", d.Comment),
				zap.Uint64("lt", d.LT),
			)
		} else {
			logger.Debug("deposit already credited", zap.String("tx", d.TxHash.HexBare()))
		}

		if pub == nil {
			return nil
		}
		payload, err := json.Marshal(d.Message())
		if err != nil {
			return fmt.Errorf("deposit: encode: %w", err)
		}
		return pub.Publish(ctx, topic, cls.Wallet().String(), payload)
	}
}
