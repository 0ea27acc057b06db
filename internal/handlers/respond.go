package handlers

import (
	"CocoStock/internal/apperr"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

type errorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor сопоставляет ошибку сервиса с HTTP-статусом.
// Категории загрузки проверяются раньше ErrAssetWriteFailed, который их оборачивает.
func statusFor(err error) int {
	var maxErr *http.MaxBytesError
	var formErr *badRequestError
	switch {
	case apperr.IsValidation(err), errors.As(err, &formErr):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrPayloadTooLarge), errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, apperr.ErrUnsupportedMediaType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, apperr.ErrStoreUnavailable), errors.Is(err, apperr.ErrAssetWriteFailed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, logger *zap.SugaredLogger, op string, err error) {
	status := statusFor(err)
	resp := errorResponse{Error: err.Error()}
	var ve *apperr.ValidationError
	if errors.As(err, &ve) {
		resp.Fields = ve.Fields
	}
	if status >= http.StatusInternalServerError {
		logger.Errorw(op+": failed", "status", status, "error", err)
		if status == http.StatusInternalServerError {
			resp.Error = "internal error"
		}
	} else {
		logger.Warnw(op+": rejected", "status", status, "error", err)
	}
	writeJSON(w, status, resp)
}
