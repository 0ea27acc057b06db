// Package notify доставляет уведомления о низком остатке вне пути обработки запроса.
package notify

import (
	"CocoStock/internal/model"
	"context"
	"time"
)

// Alert: полезная нагрузка уведомления о низком остатке.
type Alert struct {
	ItemID          string         `json:"itemId"`
	ItemName        string         `json:"itemName"`
	Type            model.ItemType `json:"type"`
	Quantity        float64        `json:"quantity"`
	Unit            model.Unit     `json:"unit"`
	StorageLocation string         `json:"storageLocation"`
	Threshold       float64        `json:"threshold"`
	DetectedAt      time.Time      `json:"detectedAt"`
}

// NewAlert собирает уведомление из закоммиченного состояния записи.
func NewAlert(it *model.Item, threshold float64) Alert {
	return Alert{
		ItemID:          it.ID,
		ItemName:        it.ItemName,
		Type:            it.Type,
		Quantity:        it.Quantity,
		Unit:            it.Unit,
		StorageLocation: it.StorageLocation,
		Threshold:       threshold,
		DetectedAt:      time.Now().UTC(),
	}
}

// Channel: транспорт доставки. Одна попытка на вызов, без повторов.
type Channel interface {
	Deliver(ctx context.Context, a Alert) error
	Name() string
}
