package blobstore

import (
	"CocoStock/internal/apperr"
	"CocoStock/internal/model"
	"CocoStock/internal/repo"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// sniffLen: сколько байт нужно http.DetectContentType.
const sniffLen = 512

// FSStore хранит содержимое файлами в dir/<id[:2]>/<id>, метаданные: через BlobRepository.
type FSStore struct {
	dir      string
	maxBytes int64
	blobs    repo.BlobRepository
}

var _ Store = (*FSStore)(nil)

// NewFSStore создаёт каталог хранилища при необходимости.
func NewFSStore(dir string, maxBytes int64, blobs repo.BlobRepository) (*FSStore, error) {
	if dir == "" {
		return nil, errors.New("empty blob dir")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrStoreUnavailable, err)
	}
	return &FSStore{dir: dir, maxBytes: maxBytes, blobs: blobs}, nil
}

// MaxBytes: текущий лимит размера.
func (s *FSStore) MaxBytes() int64 { return s.maxBytes }

func (s *FSStore) Put(ctx context.Context, r io.Reader, meta Meta) (*model.Blob, error) {
	if meta.Size > s.maxBytes {
		return nil, apperr.ErrPayloadTooLarge
	}
	if meta.MimeType != "" && !IsAllowed(meta.MimeType) {
		return nil, apperr.ErrUnsupportedMediaType
	}

	// тип определяем по содержимому, заявленному не доверяем
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: read upload: %w", apperr.ErrStoreUnavailable, err)
	}
	head = head[:n]
	if n == 0 {
		return nil, apperr.ErrUnsupportedMediaType
	}
	mime := baseType(http.DetectContentType(head))
	if !IsAllowed(mime) {
		return nil, apperr.ErrUnsupportedMediaType
	}
	if int64(n) > s.maxBytes {
		return nil, apperr.ErrPayloadTooLarge
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrStoreUnavailable, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	h := sha256.New()
	// +1 байт, чтобы отличить «ровно лимит» от «больше лимита»
	src := io.MultiReader(bytes.NewReader(head), io.LimitReader(r, s.maxBytes-int64(n)+1))
	written, err := io.Copy(io.MultiWriter(tmp, h), &ctxReader{ctx: ctx, r: src})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: write content: %w", apperr.ErrStoreUnavailable, err)
	}
	if written > s.maxBytes {
		return nil, apperr.ErrPayloadTooLarge
	}
	if err := tmp.Sync(); err != nil {
		return nil, fmt.Errorf("%w: sync: %w", apperr.ErrStoreUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("%w: close: %w", apperr.ErrStoreUnavailable, err)
	}

	id := uuid.NewString()
	final := s.path(id)
	if err := os.MkdirAll(filepath.Dir(final), 0o750); err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrStoreUnavailable, err)
	}
	if err := os.Rename(tmpName, final); err != nil {
		return nil, fmt.Errorf("%w: rename: %w", apperr.ErrStoreUnavailable, err)
	}
	committed = true

	b := &model.Blob{
		ID:        id,
		MimeType:  mime,
		SizeBytes: written,
		SHA256:    hex.EncodeToString(h.Sum(nil)),
	}
	if meta.FileName != "" {
		b.FileName = filepath.Base(meta.FileName)
	}
	if err := s.blobs.Create(ctx, b); err != nil {
		_ = os.Remove(final)
		return nil, fmt.Errorf("%w: save metadata: %w", apperr.ErrStoreUnavailable, err)
	}
	return b, nil
}

func (s *FSStore) Get(ctx context.Context, id string) (io.ReadCloser, *model.Blob, error) {
	b, err := s.blobs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, nil, apperr.ErrNotFound
		}
		return nil, nil, fmt.Errorf("%w: %w", apperr.ErrStoreUnavailable, err)
	}
	f, err := os.Open(s.path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, apperr.ErrNotFound
		}
		return nil, nil, fmt.Errorf("%w: %w", apperr.ErrStoreUnavailable, err)
	}
	return f, b, nil
}

func (s *FSStore) Delete(ctx context.Context, id string) error {
	fileGone := false
	if err := os.Remove(s.path(id)); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: remove content: %w", apperr.ErrStoreUnavailable, err)
		}
		fileGone = true
	}
	err := s.blobs.Delete(ctx, id)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, apperr.ErrNotFound):
		if fileGone {
			return apperr.ErrNotFound
		}
		return nil
	default:
		return fmt.Errorf("%w: delete metadata: %w", apperr.ErrStoreUnavailable, err)
	}
}

// path раскладывает файлы по подкаталогам, чтобы не копить всё в одном.
func (s *FSStore) path(id string) string {
	clean := filepath.Base(id)
	prefix := clean
	if len(prefix) > 2 {
		prefix = prefix[:2]
	}
	return filepath.Join(s.dir, prefix, clean)
}

func baseType(mime string) string {
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return strings.ToLower(strings.TrimSpace(mime))
}

// ctxReader прерывает копирование при отмене контекста.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
