package repo

import (
	"CocoStock/internal/apperr"
	"CocoStock/internal/model"
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ItemRepository: контракт хранилища складских позиций для слоя сервиса.
// Все записи валидируются до коммита; при ошибке валидации прежняя запись не меняется.
type ItemRepository interface {
	// Create сохраняет новую запись. Пустой ID заменяется на UUID, версия начинается с 1.
	Create(ctx context.Context, it *model.Item) error

	// GetByID возвращает apperr.ErrNotFound для неизвестного id.
	GetByID(ctx context.Context, id string) (*model.Item, error)

	// ListAll возвращает все записи в порядке создания.
	ListAll(ctx context.Context) ([]model.Item, error)

	// Update применяет только заданные в патче поля, если версия записи равна expectedVersion.
	// Несовпадение версии: apperr.ErrConflict.
	Update(ctx context.Context, id string, expectedVersion int64, patch model.ItemPatch) (*model.Item, error)

	// Delete удаляет запись; apperr.ErrNotFound, если её нет.
	Delete(ctx context.Context, id string) error

	// FindBelowThreshold: записи с quantity < threshold, по возрастанию количества.
	FindBelowThreshold(ctx context.Context, threshold float64) ([]model.Item, error)

	// MarkLowStockNotified атомарно переводит флаг false→true.
	// true означает, что переход сделал именно этот вызов.
	MarkLowStockNotified(ctx context.Context, id string) (bool, error)

	// ClearLowStockNotified атомарно переводит флаг true→false.
	ClearLowStockNotified(ctx context.Context, id string) (bool, error)
}

type itemRepo struct {
	db *gorm.DB
}

// NewItemRepository создаёт реализацию репозитория для Item.
func NewItemRepository(db *gorm.DB) ItemRepository {
	return &itemRepo{db: db}
}

func (r *itemRepo) Create(ctx context.Context, it *model.Item) error {
	if it.Status == "" {
		it.Status = model.StatusAvailable
	}
	if err := it.Validate(); err != nil {
		return err
	}
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	it.Version = 1
	return r.db.WithContext(ctx).Create(it).Error
}

func (r *itemRepo) GetByID(ctx context.Context, id string) (*model.Item, error) {
	if !validID(id) {
		return nil, apperr.ErrNotFound
	}
	var it model.Item
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&it).Error; err != nil {
		return nil, notFound(err)
	}
	return &it, nil
}

func (r *itemRepo) ListAll(ctx context.Context) ([]model.Item, error) {
	items := []model.Item{}
	if err := r.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *itemRepo) Update(ctx context.Context, id string, expectedVersion int64, patch model.ItemPatch) (*model.Item, error) {
	if !validID(id) {
		return nil, apperr.ErrNotFound
	}
	var out model.Item
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur model.Item
		if err := tx.Where("id = ?", id).First(&cur).Error; err != nil {
			return notFound(err)
		}
		if cur.Version != expectedVersion {
			return apperr.ErrConflict
		}

		merged := cur
		patch.Apply(&merged)
		if err := merged.Validate(); err != nil {
			return err
		}

		cols := patch.Columns()
		cols["version"] = gorm.Expr("version + 1")
		cols["updated_at"] = time.Now().UTC()

		res := tx.Model(&model.Item{}).
			Where("id = ? AND version = ?", id, expectedVersion).
			Updates(cols)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.ErrConflict
		}
		return tx.Where("id = ?", id).First(&out).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *itemRepo) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return apperr.ErrNotFound
	}
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Item{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *itemRepo) FindBelowThreshold(ctx context.Context, threshold float64) ([]model.Item, error) {
	items := []model.Item{}
	err := r.db.WithContext(ctx).
		Where("quantity < ?", threshold).
		Order("quantity ASC, id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *itemRepo) MarkLowStockNotified(ctx context.Context, id string) (bool, error) {
	return r.flipFlag(ctx, id, false, true)
}

func (r *itemRepo) ClearLowStockNotified(ctx context.Context, id string) (bool, error) {
	return r.flipFlag(ctx, id, true, false)
}

// flipFlag меняет low_stock_notified условным UPDATE, не трогая version:
// флаг не участвует в CAS по содержимому записи.
func (r *itemRepo) flipFlag(ctx context.Context, id string, from, to bool) (bool, error) {
	if !validID(id) {
		return false, nil
	}
	res := r.db.WithContext(ctx).Model(&model.Item{}).
		Where("id = ? AND low_stock_notified = ?", id, from).
		UpdateColumn("low_stock_notified", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// validID: id колонок type:uuid. Postgres отвергает иной текст ошибкой 22P02,
// поэтому такой id считается неизвестным ещё до запроса.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.ErrNotFound
	}
	return err
}
