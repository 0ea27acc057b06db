// Package asset связывает запись склада с не более чем одним blob и следит,
// чтобы ссылка никогда не указывала на удалённый blob, а вытесненные blobs не копились.
package asset

import (
	"CocoStock/internal/apperr"
	"CocoStock/internal/blobstore"
	"CocoStock/internal/model"
	"CocoStock/internal/repo"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Причины, под которыми blob попадает в очередь сверки.
const (
	ReasonAbort   = "create_aborted"
	ReasonReplace = "replaced"
	ReasonDelete  = "item_deleted"
	ReasonSweep   = "unreferenced"
)

// DefaultSweepGrace: blobs моложе этого возраста сверка не трогает: они могут быть
// записаны, но ещё не привязаны.
const DefaultSweepGrace = 10 * time.Minute

// Upload: бинарное содержимое из запроса на создание/обновление.
type Upload struct {
	Reader   io.Reader
	FileName string
	MimeType string
	Size     int64
}

// Outcome: итог операции привязки.
type Outcome struct {
	// AssetRef: ссылка, записанная в позицию (nil, если blob не менялся).
	AssetRef *string
	// OrphansLeft: blobs, которые не удалось удалить сразу; они записаны на сверку.
	OrphansLeft []string
}

// CommitFunc записывает позицию с переданной ссылкой на blob.
type CommitFunc func(ctx context.Context, assetRef *string) error

// Manager оркеструет порядок операций между blob store и репозиторием.
type Manager struct {
	store   blobstore.Store
	blobs   repo.BlobRepository
	orphans repo.OrphanRepository
	uploads *semaphore.Weighted
	grace   time.Duration
	logger  *zap.SugaredLogger
}

// NewManager; maxUploads ограничивает число одновременных записей в store.
func NewManager(store blobstore.Store, blobs repo.BlobRepository, orphans repo.OrphanRepository, maxUploads int, logger *zap.SugaredLogger) *Manager {
	if maxUploads <= 0 {
		maxUploads = 1
	}
	return &Manager{
		store:   store,
		blobs:   blobs,
		orphans: orphans,
		uploads: semaphore.NewWeighted(int64(maxUploads)),
		grace:   DefaultSweepGrace,
		logger:  logger,
	}
}

// SetSweepGrace меняет окно свежести для Reconcile.
func (m *Manager) SetSweepGrace(d time.Duration) { m.grace = d }

// CreateWithAsset: blob пишется до записи позиции; если запись не удалась, blob удаляется.
func (m *Manager) CreateWithAsset(ctx context.Context, up *Upload, commit CommitFunc) (*Outcome, error) {
	out := &Outcome{}
	if up == nil {
		return out, commit(ctx, nil)
	}

	b, err := m.write(ctx, up)
	if err != nil {
		return out, err
	}
	ref := b.ID
	if err := commit(ctx, &ref); err != nil {
		m.abort(ctx, ref, out)
		return out, err
	}
	out.AssetRef = &ref
	return out, nil
}

// ReplaceAsset: новый blob → запись ссылки → удаление старого. При обрыве между шагами
// остаётся лишь старый blob-сирота, но не висячая ссылка.
func (m *Manager) ReplaceAsset(ctx context.Context, oldRef *string, up *Upload, commit CommitFunc) (*Outcome, error) {
	out := &Outcome{}
	if up == nil {
		return out, commit(ctx, nil)
	}

	b, err := m.write(ctx, up)
	if err != nil {
		return out, err
	}
	ref := b.ID
	if err := commit(ctx, &ref); err != nil {
		m.abort(ctx, ref, out)
		return out, err
	}
	out.AssetRef = &ref

	if oldRef != nil && *oldRef != "" && *oldRef != ref {
		if m.release(ctx, *oldRef, ReasonReplace) {
			out.OrphansLeft = append(out.OrphansLeft, *oldRef)
		}
	}
	return out, nil
}

// DetachOnDelete: сначала удаляется запись, потом её blob. Сбой удаления blob не
// отменяет удаление записи: blob уходит на сверку.
func (m *Manager) DetachOnDelete(ctx context.Context, ref *string, remove func(ctx context.Context) error) (*Outcome, error) {
	out := &Outcome{}
	if err := remove(ctx); err != nil {
		return out, err
	}
	if ref != nil && *ref != "" {
		if m.release(ctx, *ref, ReasonDelete) {
			out.OrphansLeft = append(out.OrphansLeft, *ref)
		}
	}
	return out, nil
}

// Open отдаёт поток содержимого привязанного blob.
func (m *Manager) Open(ctx context.Context, blobID string) (io.ReadCloser, *model.Blob, error) {
	return m.store.Get(ctx, blobID)
}

// Reconcile повторяет отложенные удаления и подбирает blobs без ссылок старше окна свежести.
// Возвращает число удалённых blobs.
func (m *Manager) Reconcile(ctx context.Context, limit int) (int, error) {
	removed := 0

	tasks, err := m.orphans.List(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list orphans: %w", err)
	}
	for _, o := range tasks {
		if bound, err := m.blobs.IsReferenced(ctx, o.BlobID); err != nil || bound {
			if bound {
				m.logger.Warnw("reconcile: orphan task for a bound blob dropped", "blob_id", o.BlobID)
				if err := m.orphans.Resolve(ctx, o.BlobID); err != nil {
					m.logger.Errorw("reconcile: failed to resolve orphan task", "blob_id", o.BlobID, "error", err)
				}
			}
			continue
		}
		err := m.store.Delete(ctx, o.BlobID)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			m.logger.Warnw("reconcile: blob still not deleted", "blob_id", o.BlobID, "attempts", o.Attempts+1, "error", err)
			if recErr := m.orphans.Record(ctx, o.BlobID, o.Reason, err); recErr != nil {
				m.logger.Errorw("reconcile: failed to update orphan task", "blob_id", o.BlobID, "error", recErr)
			}
			continue
		}
		if err == nil {
			removed++
		}
		if err := m.orphans.Resolve(ctx, o.BlobID); err != nil {
			m.logger.Errorw("reconcile: failed to resolve orphan task", "blob_id", o.BlobID, "error", err)
		}
	}

	loose, err := m.blobs.ListUnreferenced(ctx, time.Now().Add(-m.grace), limit)
	if err != nil {
		return removed, fmt.Errorf("list unreferenced blobs: %w", err)
	}
	for _, b := range loose {
		if err := m.store.Delete(ctx, b.ID); err != nil && !errors.Is(err, apperr.ErrNotFound) {
			m.logger.Warnw("reconcile: failed to sweep unreferenced blob", "blob_id", b.ID, "error", err)
			if recErr := m.orphans.Record(ctx, b.ID, ReasonSweep, err); recErr != nil {
				m.logger.Errorw("reconcile: failed to record orphan", "blob_id", b.ID, "error", recErr)
			}
			continue
		}
		removed++
		m.logger.Infow("reconcile: swept unreferenced blob", "blob_id", b.ID, "size", b.SizeBytes)
	}
	return removed, nil
}

// write: загрузка с ограничением параллелизма; любая ошибка: ErrAssetWriteFailed.
func (m *Manager) write(ctx context.Context, up *Upload) (*model.Blob, error) {
	if err := m.uploads.Acquire(ctx, 1); err != nil {
		return nil, apperr.AssetWrite(err)
	}
	defer m.uploads.Release(1)

	b, err := m.store.Put(ctx, up.Reader, blobstore.Meta{
		FileName: up.FileName,
		MimeType: up.MimeType,
		Size:     up.Size,
	})
	if err != nil {
		m.logger.Warnw("asset upload rejected", "filename", up.FileName, "size", up.Size, "error", err)
		return nil, apperr.AssetWrite(err)
	}
	return b, nil
}

// abort убирает blob после неудачного commit. Ошибка commit может быть неоднозначной
// (COMMIT прошёл, ответ потерян), поэтому blob, на который уже ссылается позиция,
// не трогается. Если проверить ссылку нельзя, blob остаётся для сверки по ссылкам.
func (m *Manager) abort(ctx context.Context, ref string, out *Outcome) {
	ctx = context.WithoutCancel(ctx)
	bound, err := m.blobs.IsReferenced(ctx, ref)
	switch {
	case err != nil:
		m.logger.Warnw("asset abort: reference check failed, blob left for sweep", "blob_id", ref, "error", err)
		out.OrphansLeft = append(out.OrphansLeft, ref)
	case bound:
		m.logger.Warnw("asset abort: commit reported failure but blob is bound, keeping it", "blob_id", ref)
	default:
		if m.release(ctx, ref, ReasonAbort) {
			out.OrphansLeft = append(out.OrphansLeft, ref)
		}
	}
}

// release удаляет blob; при сбое пишет задачу сверки. true: blob остался сиротой.
func (m *Manager) release(ctx context.Context, blobID, reason string) bool {
	// удаление не должно зависеть от отмены запроса, основная операция уже закоммичена
	ctx = context.WithoutCancel(ctx)

	err := m.store.Delete(ctx, blobID)
	if err == nil || errors.Is(err, apperr.ErrNotFound) {
		return false
	}
	m.logger.Warnw("asset cleanup failed, scheduled for reconciliation",
		"blob_id", blobID, "reason", reason, "error", err)
	if recErr := m.orphans.Record(ctx, blobID, reason, err); recErr != nil {
		m.logger.Errorw("failed to record orphan blob", "blob_id", blobID, "reason", reason, "error", recErr)
	}
	return true
}
