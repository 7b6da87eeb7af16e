package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hedeqiang/tonwatch/event"
)

// Logger logs each transaction that passes through the pipeline.
type Logger struct {
	logger *zap.Logger
}

// NewLogger creates a logging middleware. A nil logger discards output.
func NewLogger(l *zap.Logger) *Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return &Logger{logger: l}
}

// Wrap decorates the handler with transaction logging.
func (l *Logger) Wrap(next event.Handler) event.Handler {
	return func(ctx context.Context, tx event.Transaction) error {
		start := time.Now()
		err := next(ctx, tx)

		fields := []zap.Field{
			zap.Stringer("account", tx.Account),
			zap.Uint64("lt", tx.LT),
			zap.String("hash", tx.Hash.Hex()),
			zap.Int("out_msgs", tx.OutMsgCount),
			zap.Duration("took", time.Since(start)),
		}
		if tx.Shard != nil {
			fields = append(fields, zap.Stringer("shard", tx.Shard))
		}
		if tx.IsInternalIn() {
			fields = append(fields,
				zap.Stringer("from", tx.In.Source),
				zap.String("value", tx.In.Value.String()),
			)
		}

		if err != nil {
			l.logger.Error("handler failed", append(fields, zap.Error(err))...)
			return err
		}
		l.logger.Debug("transaction", fields...)
		return nil
	}
}
