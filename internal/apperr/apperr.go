// Package apperr holds the error taxonomy shared by the storage, asset and service layers.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound: unknown item or blob id.
	ErrNotFound = errors.New("not found")
	// ErrPayloadTooLarge: asset exceeds the configured size limit.
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrUnsupportedMediaType: asset MIME type outside the whitelist.
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	// ErrStoreUnavailable: transient storage failure, the caller may retry.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrAssetWriteFailed: upload failed, the operation was aborted before the record was touched.
	ErrAssetWriteFailed = errors.New("asset write failed")
	// ErrAssetOrphanLeft: advisory: a superseded blob could not be deleted yet.
	ErrAssetOrphanLeft = errors.New("asset orphan left")
	// ErrDeliveryFailed: advisory: the notification channel rejected or timed out.
	ErrDeliveryFailed = errors.New("delivery failed")
	// ErrConflict: the record changed between read and write.
	ErrConflict = errors.New("concurrent modification")
)

// ValidationError перечисляет поля, не прошедшие проверку.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, ", ")
}

// Validation собирает ValidationError; без полей возвращает nil.
func Validation(fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

// IsValidation сообщает, является ли err ошибкой валидации.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// AssetWrite оборачивает причину сбоя загрузки, сохраняя обе категории для errors.Is.
func AssetWrite(cause error) error {
	if cause == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrAssetWriteFailed, cause)
}
