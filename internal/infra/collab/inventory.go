package collab

import (
	"context"

	"go.uber.org/zap"
)

// LoggingReleaser is the default inventory collaborator. Stock levels
// live in the external inventory system; the register only announces
// which goods arrived.
type LoggingReleaser struct {
	Logger *zap.Logger
}

// ReleaseGoods logs the released goods and succeeds.
func (r *LoggingReleaser) ReleaseGoods(_ context.Context, items map[string]int) error {
	fields := make([]zap.Field, 0, len(items))
	for item, qty := range items {
		fields = append(fields, zap.Int(item, qty))
	}
	r.Logger.Info("goods released to inventory", fields...)
	return nil
}
