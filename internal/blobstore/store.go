// Package blobstore хранит бинарное содержимое (фотографии позиций) независимо от записей склада.
package blobstore

import (
	"CocoStock/internal/model"
	"context"
	"io"
)

// Meta: сведения о загружаемом содержимом, известные до записи.
type Meta struct {
	FileName string
	// MimeType: заявленный клиентом тип; пустой означает «не заявлен».
	MimeType string
	// Size: заявленный размер; 0 означает «неизвестен», лимит тогда проверяется по потоку.
	Size int64
}

// Store: put/get/delete по непрозрачному идентификатору.
type Store interface {
	// Put записывает поток целиком до возврата. Ошибки: apperr.ErrPayloadTooLarge,
	// apperr.ErrUnsupportedMediaType (до записи), apperr.ErrStoreUnavailable.
	Put(ctx context.Context, r io.Reader, meta Meta) (*model.Blob, error)
	// Get открывает содержимое на чтение; apperr.ErrNotFound, если blob нет.
	Get(ctx context.Context, id string) (io.ReadCloser, *model.Blob, error)
	// Delete удаляет содержимое и метаданные; apperr.ErrNotFound, если blob уже нет.
	Delete(ctx context.Context, id string) error
}

// AllowedMimeTypes: принимаемые форматы изображений.
var AllowedMimeTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
}

// IsAllowed сообщает, входит ли тип в белый список (параметры вида "; charset" отбрасываются).
func IsAllowed(mime string) bool {
	_, ok := AllowedMimeTypes[baseType(mime)]
	return ok
}
