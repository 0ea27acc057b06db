package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogChannel пишет уведомление в журнал. Канал по умолчанию.
type LogChannel struct {
	logger *zap.SugaredLogger
}

func NewLogChannel(logger *zap.SugaredLogger) *LogChannel {
	return &LogChannel{logger: logger}
}

func (c *LogChannel) Name() string { return "log" }

func (c *LogChannel) Deliver(ctx context.Context, a Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.logger.Warnw("low stock",
		"item_id", a.ItemID,
		"item_name", a.ItemName,
		"type", a.Type,
		"quantity", a.Quantity,
		"unit", a.Unit,
		"storage_location", a.StorageLocation,
		"threshold", a.Threshold,
	)
	return nil
}
