package repo

import (
	"CocoStock/internal/apperr"
	"CocoStock/internal/model"
	"context"
	"time"

	"gorm.io/gorm"
)

// BlobRepository: метаданные бинарных объектов. Байты хранит blobstore.
type BlobRepository interface {
	Create(ctx context.Context, b *model.Blob) error
	GetByID(ctx context.Context, id string) (*model.Blob, error)
	// Delete возвращает apperr.ErrNotFound, если записи уже нет.
	Delete(ctx context.Context, id string) error
	// ListUnreferenced: blobs, на которые не ссылается ни одна позиция и которые
	// созданы раньше olderThan (свежие могут быть в середине привязки).
	ListUnreferenced(ctx context.Context, olderThan time.Time, limit int) ([]model.Blob, error)
	// IsReferenced: есть ли позиция с asset_ref = id.
	IsReferenced(ctx context.Context, id string) (bool, error)
}

type blobRepo struct {
	db *gorm.DB
}

// NewBlobRepository создаёт реализацию репозитория для Blob.
func NewBlobRepository(db *gorm.DB) BlobRepository {
	return &blobRepo{db: db}
}

func (r *blobRepo) Create(ctx context.Context, b *model.Blob) error {
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *blobRepo) GetByID(ctx context.Context, id string) (*model.Blob, error) {
	if !validID(id) {
		return nil, apperr.ErrNotFound
	}
	var b model.Blob
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&b).Error; err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

func (r *blobRepo) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return apperr.ErrNotFound
	}
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Blob{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *blobRepo) ListUnreferenced(ctx context.Context, olderThan time.Time, limit int) ([]model.Blob, error) {
	referenced := r.db.Model(&model.Item{}).Select("asset_ref").Where("asset_ref IS NOT NULL")
	var out []model.Blob
	err := r.db.WithContext(ctx).
		Where("id NOT IN (?)", referenced).
		Where("created_at < ?", olderThan).
		Order("created_at ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *blobRepo) IsReferenced(ctx context.Context, id string) (bool, error) {
	if !validID(id) {
		return false, nil
	}
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Item{}).Where("asset_ref = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}
