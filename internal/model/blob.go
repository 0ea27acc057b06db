package model

import "time"

// Blob: метаданные бинарного объекта. Само содержимое лежит в blob store, не в БД.
type Blob struct {
	ID string `gorm:"primaryKey;type:uuid" json:"id"`

	FileName  string `json:"filename"`
	MimeType  string `gorm:"not null" json:"mimeType"`
	SizeBytes int64  `gorm:"not null" json:"sizeBytes"`
	SHA256    string `json:"sha256"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
}

// OrphanBlob: задача на повторное удаление blob, который не удалось убрать сразу.
type OrphanBlob struct {
	BlobID    string `gorm:"primaryKey;type:uuid"`
	Reason    string `gorm:"not null"`
	Attempts  int    `gorm:"not null;default:1"`
	LastError string

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}
