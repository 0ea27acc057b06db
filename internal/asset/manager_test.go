package asset

import (
	"CocoStock/internal/apperr"
	"CocoStock/internal/blobstore"
	"CocoStock/internal/model"
	"CocoStock/internal/repo"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// flakyStore отказывает в Delete, пока failDelete == true.
type flakyStore struct {
	blobstore.Store
	failDelete bool
}

func (f *flakyStore) Delete(ctx context.Context, id string) error {
	if f.failDelete {
		return fmt.Errorf("%w: disk detached", apperr.ErrStoreUnavailable)
	}
	return f.Store.Delete(ctx, id)
}

type fixture struct {
	mgr     *Manager
	store   *flakyStore
	blobs   repo.BlobRepository
	orphans repo.OrphanRepository
	items   repo.ItemRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := repo.InitDB(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	blobs := repo.NewBlobRepository(db)
	orphans := repo.NewOrphanRepository(db)
	fs, err := blobstore.NewFSStore(t.TempDir(), 1<<20, blobs)
	require.NoError(t, err)

	st := &flakyStore{Store: fs}
	return &fixture{
		mgr:     NewManager(st, blobs, orphans, 2, zap.NewNop().Sugar()),
		store:   st,
		blobs:   blobs,
		orphans: orphans,
		items:   repo.NewItemRepository(db),
	}
}

func png(n int) []byte {
	b := make([]byte, n)
	copy(b, "\x89PNG\r\n\x1a\n")
	return b
}

func upload(n int) *Upload {
	return &Upload{Reader: bytes.NewReader(png(n)), FileName: "shell.png", MimeType: "image/png", Size: int64(n)}
}

func (f *fixture) exists(t *testing.T, id string) bool {
	t.Helper()
	_, err := f.blobs.GetByID(context.Background(), id)
	if errors.Is(err, apperr.ErrNotFound) {
		return false
	}
	require.NoError(t, err)
	return true
}

func TestCreateWithAsset_CommitsReference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var committed *string
	out, err := f.mgr.CreateWithAsset(ctx, upload(64), func(_ context.Context, ref *string) error {
		committed = ref
		return nil
	})
	require.NoError(t, err)
	require.NotNil(t, out.AssetRef)
	assert.Equal(t, *committed, *out.AssetRef)
	assert.True(t, f.exists(t, *out.AssetRef))

	rc, b, err := f.mgr.Open(ctx, *out.AssetRef)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, png(64), data)
	assert.Equal(t, "image/png", b.MimeType)
}

func TestCreateWithAsset_NoUpload(t *testing.T) {
	f := newFixture(t)
	called := false
	out, err := f.mgr.CreateWithAsset(context.Background(), nil, func(_ context.Context, ref *string) error {
		called = true
		assert.Nil(t, ref)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Nil(t, out.AssetRef)
}

func TestCreateWithAsset_CommitFailureRemovesBlob(t *testing.T) {
	f := newFixture(t)
	var ref string
	boom := errors.New("insert failed")

	_, err := f.mgr.CreateWithAsset(context.Background(), upload(32), func(_ context.Context, r *string) error {
		ref = *r
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.NotEmpty(t, ref)
	assert.False(t, f.exists(t, ref))
}

func TestCreateWithAsset_CommitErrorAfterInsertKeepsBoundBlob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var id, ref string

	// запись вставлена, но клиент получил ошибку (обрыв соединения после COMMIT)
	_, err := f.mgr.CreateWithAsset(ctx, upload(16), func(ctx context.Context, r *string) error {
		ref = *r
		it := &model.Item{ItemName: "shell", Type: model.TypeShell, Quantity: 3, Unit: model.UnitKg, StorageLocation: "A1", AssetRef: r}
		require.NoError(t, f.items.Create(ctx, it))
		id = it.ID
		return errors.New("connection reset by peer")
	})
	require.Error(t, err)
	assert.True(t, f.exists(t, ref))

	tasks, err := f.orphans.List(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	got, err := f.items.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got.AssetRef)
	assert.Equal(t, ref, *got.AssetRef)

	f.mgr.SetSweepGrace(-time.Hour)
	n, err := f.mgr.Reconcile(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.True(t, f.exists(t, ref))
}

func TestReconcile_DropsTaskForBoundBlob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	out, err := f.mgr.CreateWithAsset(ctx, upload(16), func(ctx context.Context, r *string) error {
		return f.items.Create(ctx, &model.Item{ItemName: "husk", Type: model.TypeHusk, Quantity: 1, Unit: model.UnitKg, StorageLocation: "B2", AssetRef: r})
	})
	require.NoError(t, err)
	ref := *out.AssetRef
	require.NoError(t, f.orphans.Record(ctx, ref, ReasonAbort, errors.New("stale")))

	n, err := f.mgr.Reconcile(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.True(t, f.exists(t, ref))

	tasks, err := f.orphans.List(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestCreateWithAsset_UploadRejectedBeforeCommit(t *testing.T) {
	f := newFixture(t)
	called := false
	_, err := f.mgr.CreateWithAsset(context.Background(), upload(2<<20), func(context.Context, *string) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, apperr.ErrAssetWriteFailed)
	assert.ErrorIs(t, err, apperr.ErrPayloadTooLarge)
	assert.False(t, called)
}

func TestReplaceAsset_DeletesOldAfterCommit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, err := f.mgr.CreateWithAsset(ctx, upload(16), func(context.Context, *string) error { return nil })
	require.NoError(t, err)
	old := *first.AssetRef

	var sawOld bool
	out, err := f.mgr.ReplaceAsset(ctx, &old, upload(48), func(_ context.Context, ref *string) error {
		// на момент коммита старый blob ещё на месте
		sawOld = f.exists(t, old)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, sawOld)
	require.NotNil(t, out.AssetRef)
	assert.NotEqual(t, old, *out.AssetRef)
	assert.True(t, f.exists(t, *out.AssetRef))
	assert.False(t, f.exists(t, old))
	assert.Empty(t, out.OrphansLeft)
}

func TestReplaceAsset_CommitFailureKeepsOld(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, err := f.mgr.CreateWithAsset(ctx, upload(16), func(context.Context, *string) error { return nil })
	require.NoError(t, err)
	old := *first.AssetRef

	var fresh string
	_, err = f.mgr.ReplaceAsset(ctx, &old, upload(16), func(_ context.Context, ref *string) error {
		fresh = *ref
		return apperr.ErrConflict
	})
	require.ErrorIs(t, err, apperr.ErrConflict)
	assert.True(t, f.exists(t, old))
	assert.False(t, f.exists(t, fresh))
}

func TestReplaceAsset_OrphanRecordedWhenOldDeleteFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, err := f.mgr.CreateWithAsset(ctx, upload(16), func(context.Context, *string) error { return nil })
	require.NoError(t, err)
	old := *first.AssetRef

	f.store.failDelete = true
	out, err := f.mgr.ReplaceAsset(ctx, &old, upload(16), func(context.Context, *string) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, []string{old}, out.OrphansLeft)

	tasks, err := f.orphans.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, old, tasks[0].BlobID)
	assert.Equal(t, ReasonReplace, tasks[0].Reason)

	// сверка при недоступном хранилище только увеличивает счётчик попыток
	n, err := f.mgr.Reconcile(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	tasks, err = f.orphans.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, 2, tasks[0].Attempts)

	f.store.failDelete = false
	n, err = f.mgr.Reconcile(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.False(t, f.exists(t, old))

	tasks, err = f.orphans.List(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestDetachOnDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, err := f.mgr.CreateWithAsset(ctx, upload(16), func(context.Context, *string) error { return nil })
	require.NoError(t, err)
	ref := *first.AssetRef

	t.Run("remove failure keeps blob", func(t *testing.T) {
		_, err := f.mgr.DetachOnDelete(ctx, &ref, func(context.Context) error { return apperr.ErrNotFound })
		require.ErrorIs(t, err, apperr.ErrNotFound)
		assert.True(t, f.exists(t, ref))
	})

	t.Run("blob removed after record", func(t *testing.T) {
		removed := false
		out, err := f.mgr.DetachOnDelete(ctx, &ref, func(context.Context) error {
			removed = true
			return nil
		})
		require.NoError(t, err)
		assert.True(t, removed)
		assert.Empty(t, out.OrphansLeft)
		assert.False(t, f.exists(t, ref))
	})

	t.Run("blob delete failure leaves orphan task", func(t *testing.T) {
		up, err := f.mgr.CreateWithAsset(ctx, upload(16), func(context.Context, *string) error { return nil })
		require.NoError(t, err)
		stuck := *up.AssetRef

		f.store.failDelete = true
		out, err := f.mgr.DetachOnDelete(ctx, &stuck, func(context.Context) error { return nil })
		f.store.failDelete = false
		require.NoError(t, err)
		assert.Equal(t, []string{stuck}, out.OrphansLeft)
		assert.True(t, f.exists(t, stuck))

		tasks, err := f.orphans.List(ctx, 10)
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, stuck, tasks[0].BlobID)
		assert.Equal(t, ReasonDelete, tasks[0].Reason)

		n, err := f.mgr.Reconcile(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.False(t, f.exists(t, stuck))
		tasks, err = f.orphans.List(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, tasks)
	})

	t.Run("no asset", func(t *testing.T) {
		out, err := f.mgr.DetachOnDelete(ctx, nil, func(context.Context) error { return nil })
		require.NoError(t, err)
		assert.Empty(t, out.OrphansLeft)
	})
}

func TestReconcile_SweepsUnreferencedBlobs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// blob записан, но запись так и не закоммитилась (процесс упал между шагами)
	b, err := f.store.Put(ctx, bytes.NewReader(png(16)), blobstore.Meta{MimeType: "image/png", Size: 16})
	require.NoError(t, err)

	n, err := f.mgr.Reconcile(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "fresh blobs are within the grace window")
	assert.True(t, f.exists(t, b.ID))

	f.mgr.SetSweepGrace(-time.Hour)
	n, err = f.mgr.Reconcile(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.False(t, f.exists(t, b.ID))
}
