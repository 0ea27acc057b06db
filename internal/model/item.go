package model

import (
	"CocoStock/internal/apperr"
	"math"
	"strings"
	"time"
)

// Item: складская позиция (сырьё или продукт переработки).
type Item struct {
	ID              string   `gorm:"primaryKey;type:uuid" json:"id"`
	ItemName        string   `gorm:"not null" json:"itemName"`
	Type            ItemType `gorm:"not null;index" json:"type"`
	Quantity        float64  `gorm:"not null;index" json:"quantity"`
	Unit            Unit     `gorm:"not null" json:"unit"`
	StorageLocation string   `gorm:"not null" json:"storageLocation"`
	Status          Status   `gorm:"not null;default:available" json:"status"`

	// AssetRef: опциональная ссылка на blobs.id; уникальный индекс не даёт
	// двум записям делить один blob.
	AssetRef *string `gorm:"type:uuid;uniqueIndex" json:"assetRef"`

	LowStockNotified bool  `gorm:"not null;default:false" json:"lowStockNotified"`
	Version          int64 `gorm:"not null;default:1" json:"version"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// Validate проверяет ограничения полей и возвращает *apperr.ValidationError
// со списком всех невалидных полей.
func (it *Item) Validate() error {
	var bad []string
	if strings.TrimSpace(it.ItemName) == "" {
		bad = append(bad, "itemName")
	}
	if !it.Type.Valid() {
		bad = append(bad, "type")
	}
	if it.Quantity < 0 || math.IsNaN(it.Quantity) || math.IsInf(it.Quantity, 0) {
		bad = append(bad, "quantity")
	}
	if !it.Unit.Valid() {
		bad = append(bad, "unit")
	}
	if strings.TrimSpace(it.StorageLocation) == "" {
		bad = append(bad, "storageLocation")
	}
	if !it.Status.Valid() {
		bad = append(bad, "status")
	}
	return apperr.Validation(bad...)
}

// HasAsset сообщает, привязан ли к записи blob.
func (it *Item) HasAsset() bool {
	return it.AssetRef != nil && *it.AssetRef != ""
}
