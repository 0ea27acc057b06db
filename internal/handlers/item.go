package handlers

import (
	"CocoStock/internal/asset"
	"CocoStock/internal/config"
	"CocoStock/internal/model"
	"CocoStock/internal/service"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// multipartMemory: сколько формы держим в памяти; файлы крупнее уходят во временные файлы.
const multipartMemory = 1 << 20

// ItemHandler: CRUD складских позиций и выдача изображений.
type ItemHandler struct {
	ItemService *service.ItemService
	Logger      *zap.SugaredLogger
	Config      *config.Config
}

// NewItemHandler создаёт хендлер items
func NewItemHandler(itemService *service.ItemService, logger *zap.SugaredLogger, cfg *config.Config) *ItemHandler {
	return &ItemHandler{ItemService: itemService, Logger: logger, Config: cfg}
}

// List все позиции
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.ItemService.ListItems(r.Context())
	if err != nil {
		writeError(w, h.Logger, "List", err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// LowStock позиции ниже порога (?threshold=, по умолчанию: настроенный)
func (h *ItemHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	var threshold float64
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 || math.IsInf(v, 0) || math.IsNaN(v) {
			http.Error(w, "invalid threshold", http.StatusBadRequest)
			return
		}
		threshold = v
	}
	items, err := h.ItemService.ListLowStock(r.Context(), threshold)
	if err != nil {
		writeError(w, h.Logger, "LowStock", err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// Get одна позиция
func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	it, err := h.ItemService.GetItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Logger, "Get", err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

// Create новая позиция из multipart-формы, поле image опционально
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	form, cleanup, err := h.parseForm(w, r)
	if err != nil {
		writeError(w, h.Logger, "Create", err)
		return
	}
	defer cleanup()

	in := service.CreateItemInput{
		ItemName:        form.Get("itemName"),
		Type:            model.ParseItemType(form.Get("type")),
		Quantity:        parseQuantity(form.Get("quantity")),
		Unit:            model.ParseUnit(form.Get("unit")),
		StorageLocation: form.Get("storageLocation"),
		Status:          model.ParseStatus(form.Get("status")),
	}

	up, closeUpload, err := h.upload(r)
	if err != nil {
		writeError(w, h.Logger, "Create", err)
		return
	}
	defer closeUpload()

	res, err := h.ItemService.CreateItem(r.Context(), in, up)
	if err != nil {
		writeError(w, h.Logger, "Create", err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// Update частичное обновление: меняются только переданные поля
func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	form, cleanup, err := h.parseForm(w, r)
	if err != nil {
		writeError(w, h.Logger, "Update", err)
		return
	}
	defer cleanup()

	var patch model.ItemPatch
	if v, ok := formValue(form, "itemName"); ok {
		patch.ItemName = &v
	}
	if v, ok := formValue(form, "type"); ok {
		t := model.ParseItemType(v)
		patch.Type = &t
	}
	if v, ok := formValue(form, "quantity"); ok {
		q := parseQuantity(v)
		patch.Quantity = &q
	}
	if v, ok := formValue(form, "unit"); ok {
		u := model.ParseUnit(v)
		patch.Unit = &u
	}
	if v, ok := formValue(form, "storageLocation"); ok {
		patch.StorageLocation = &v
	}
	if v, ok := formValue(form, "status"); ok {
		s := model.ParseStatus(v)
		patch.Status = &s
	}

	up, closeUpload, err := h.upload(r)
	if err != nil {
		writeError(w, h.Logger, "Update", err)
		return
	}
	defer closeUpload()

	res, err := h.ItemService.UpdateItem(r.Context(), id, patch, up)
	if err != nil {
		writeError(w, h.Logger, "Update", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Delete удаление позиции вместе с изображением
func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	res, err := h.ItemService.DeleteItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Logger, "Delete", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Asset отдаёт изображение позиции потоком
func (h *ItemHandler) Asset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rc, b, err := h.ItemService.OpenAsset(r.Context(), id)
	if err != nil {
		writeError(w, h.Logger, "Asset", err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", b.MimeType)
	w.Header().Set("Content-Length", strconv.FormatInt(b.SizeBytes, 10))
	if b.FileName != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", b.FileName))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.Logger.Warnw("Asset: stream interrupted", "item_id", id, "blob_id", b.ID, "error", err)
	}
}

// parseForm разбирает multipart или urlencoded тело в пределах лимита.
func (h *ItemHandler) parseForm(w http.ResponseWriter, r *http.Request) (url.Values, func(), error) {
	// лимит тела = лимит изображения + запас на поля формы
	r.Body = http.MaxBytesReader(w, r.Body, h.Config.BlobMaxBytes()+multipartMemory)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return nil, func() {}, formError(err)
		}
		return r.PostForm, func() { _ = r.MultipartForm.RemoveAll() }, nil
	}
	if err := r.ParseForm(); err != nil {
		return nil, func() {}, formError(err)
	}
	return r.PostForm, func() {}, nil
}

// upload возвращает изображение из части image; nil, если часть не передана.
func (h *ItemHandler) upload(r *http.Request) (*asset.Upload, func(), error) {
	if r.MultipartForm == nil {
		return nil, func() {}, nil
	}
	f, hdr, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, formError(err)
	}
	return &asset.Upload{
		Reader:   f,
		FileName: hdr.Filename,
		MimeType: declaredType(hdr),
		Size:     hdr.Size,
	}, func() { _ = f.Close() }, nil
}

// declaredType: тип части; application/octet-stream считаем незаявленным.
func declaredType(hdr *multipart.FileHeader) string {
	ct := hdr.Header.Get("Content-Type")
	if ct == "application/octet-stream" {
		return ""
	}
	return ct
}

type badRequestError struct{ err error }

func (e *badRequestError) Error() string { return "invalid form: " + e.err.Error() }
func (e *badRequestError) Unwrap() error { return e.err }

// formError: превышение лимита тела остаётся MaxBytesError (413), прочее: ошибка формы (400).
func formError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return err
	}
	return &badRequestError{err: err}
}

func formValue(form url.Values, key string) (string, bool) {
	v, ok := form[key]
	if !ok || len(v) == 0 {
		return "", false
	}
	return v[0], true
}

// parseQuantity: нечисловое значение превращается в NaN и отбраковывается валидацией поля quantity.
func parseQuantity(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
