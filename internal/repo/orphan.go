package repo

import (
	"CocoStock/internal/model"
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrphanRepository: очередь задач на удаление blobs, которые не удалось убрать сразу.
type OrphanRepository interface {
	// Record добавляет задачу или увеличивает счётчик попыток существующей.
	Record(ctx context.Context, blobID, reason string, cause error) error
	// List возвращает самые старые задачи.
	List(ctx context.Context, limit int) ([]model.OrphanBlob, error)
	// Resolve закрывает задачу после успешного удаления.
	Resolve(ctx context.Context, blobID string) error
}

type orphanRepo struct {
	db *gorm.DB
}

func NewOrphanRepository(db *gorm.DB) OrphanRepository {
	return &orphanRepo{db: db}
}

func (r *orphanRepo) Record(ctx context.Context, blobID, reason string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	o := &model.OrphanBlob{BlobID: blobID, Reason: reason, Attempts: 1, LastError: msg}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "blob_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"attempts":   gorm.Expr("orphan_blobs.attempts + 1"),
			"last_error": msg,
			"updated_at": time.Now().UTC(),
		}),
	}).Create(o).Error
}

func (r *orphanRepo) List(ctx context.Context, limit int) ([]model.OrphanBlob, error) {
	var out []model.OrphanBlob
	if err := r.db.WithContext(ctx).Order("created_at ASC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *orphanRepo) Resolve(ctx context.Context, blobID string) error {
	return r.db.WithContext(ctx).Where("blob_id = ?", blobID).Delete(&model.OrphanBlob{}).Error
}
