package service

import (
	"CocoStock/internal/apperr"
	"CocoStock/internal/asset"
	"CocoStock/internal/model"
	"CocoStock/internal/monitor"
	"CocoStock/internal/notify"
	"CocoStock/internal/repo"
	"context"
	"fmt"
	"io"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Коды некритичных диагностик в ответе мутаций.
const (
	DiagAssetOrphanLeft = "ASSET_ORPHAN_LEFT"
	DiagDeliveryFailed  = "DELIVERY_FAILED"
)

// Notifier: асинхронная постановка уведомления; не должна блокировать.
type Notifier interface {
	Enqueue(a notify.Alert) bool
}

// Diagnostic: сбой очистки или уведомления, не отменяющий основную операцию.
type Diagnostic struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Refs    []string `json:"refs,omitempty"`
}

// Result: итог мутации: закоммиченная запись и диагностики.
type Result struct {
	Item        *model.Item  `json:"item"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// CreateItemInput: поля новой позиции. Пустой Status означает available.
type CreateItemInput struct {
	ItemName        string
	Type            model.ItemType
	Quantity        float64
	Unit            model.Unit
	StorageLocation string
	Status          model.Status
}

// ItemService: фасад: валидация → привязка blob → запись → проверка порога → уведомление.
type ItemService struct {
	items    repo.ItemRepository
	assets   *asset.Manager
	notifier Notifier
	monitor  monitor.Monitor
	locks    *keyedMutex
	tracer   trace.Tracer
	logger   *zap.SugaredLogger
}

func NewItemService(items repo.ItemRepository, assets *asset.Manager, notifier Notifier, m monitor.Monitor, logger *zap.SugaredLogger) *ItemService {
	return &ItemService{
		items:    items,
		assets:   assets,
		notifier: notifier,
		monitor:  m,
		locks:    newKeyedMutex(),
		tracer:   otel.Tracer("CocoStock/internal/service"),
		logger:   logger,
	}
}

// Threshold: настроенный порог низкого остатка.
func (s *ItemService) Threshold() float64 { return s.monitor.Threshold }

// CreateItem сохраняет позицию; если передан up, blob пишется до записи позиции.
func (s *ItemService) CreateItem(ctx context.Context, in CreateItemInput, up *asset.Upload) (res *Result, err error) {
	ctx, span := s.tracer.Start(ctx, "ItemService.CreateItem")
	defer func() { endSpan(span, err) }()

	it := &model.Item{
		ItemName:        strings.TrimSpace(in.ItemName),
		Type:            in.Type,
		Quantity:        in.Quantity,
		Unit:            in.Unit,
		StorageLocation: strings.TrimSpace(in.StorageLocation),
		Status:          in.Status,
	}
	if it.Status == "" {
		it.Status = model.StatusAvailable
	}
	if err := it.Validate(); err != nil {
		return nil, err
	}

	out, err := s.assets.CreateWithAsset(ctx, up, func(ctx context.Context, ref *string) error {
		it.AssetRef = ref
		return s.items.Create(ctx, it)
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("item.id", it.ID))

	res = &Result{Item: it, Diagnostics: []Diagnostic{}}
	s.addOrphans(res, out)
	s.checkThreshold(ctx, res)

	s.logger.Infow("item created", "item_id", it.ID, "type", it.Type, "quantity", it.Quantity, "has_asset", it.HasAsset())
	return res, nil
}

// UpdateItem применяет частичное обновление и при наличии up заменяет blob
// (новый → запись → удаление старого).
func (s *ItemService) UpdateItem(ctx context.Context, id string, patch model.ItemPatch, up *asset.Upload) (res *Result, err error) {
	ctx, span := s.tracer.Start(ctx, "ItemService.UpdateItem", trace.WithAttributes(attribute.String("item.id", id)))
	defer func() { endSpan(span, err) }()

	unlock := s.locks.Lock(id)
	defer unlock()

	cur, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// ссылку на blob меняет только привязка ниже
	patch = patch.Trimmed()
	patch.AssetRef = nil
	merged := *cur
	patch.Apply(&merged)
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	updated := cur
	out, err := s.assets.ReplaceAsset(ctx, cur.AssetRef, up, func(ctx context.Context, ref *string) error {
		p := patch
		p.AssetRef = ref
		if p.Empty() {
			return nil
		}
		it, err := s.items.Update(ctx, id, cur.Version, p)
		if err != nil {
			return err
		}
		updated = it
		return nil
	})
	if err != nil {
		return nil, err
	}

	res = &Result{Item: updated, Diagnostics: []Diagnostic{}}
	s.addOrphans(res, out)
	if patch.TouchesQuantity() {
		s.checkThreshold(ctx, res)
	}

	s.logger.Infow("item updated", "item_id", id, "version", updated.Version, "asset_replaced", out.AssetRef != nil)
	return res, nil
}

// DeleteItem удаляет запись, затем её blob. Сбой удаления blob не отменяет удаление записи.
func (s *ItemService) DeleteItem(ctx context.Context, id string) (res *Result, err error) {
	ctx, span := s.tracer.Start(ctx, "ItemService.DeleteItem", trace.WithAttributes(attribute.String("item.id", id)))
	defer func() { endSpan(span, err) }()

	unlock := s.locks.Lock(id)
	defer unlock()

	cur, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	out, err := s.assets.DetachOnDelete(ctx, cur.AssetRef, func(ctx context.Context) error {
		return s.items.Delete(ctx, id)
	})
	if err != nil {
		return nil, err
	}

	res = &Result{Item: cur, Diagnostics: []Diagnostic{}}
	s.addOrphans(res, out)
	s.logger.Infow("item deleted", "item_id", id, "had_asset", cur.HasAsset())
	return res, nil
}

func (s *ItemService) GetItem(ctx context.Context, id string) (*model.Item, error) {
	ctx, span := s.tracer.Start(ctx, "ItemService.GetItem", trace.WithAttributes(attribute.String("item.id", id)))
	defer span.End()
	return s.items.GetByID(ctx, id)
}

func (s *ItemService) ListItems(ctx context.Context) ([]model.Item, error) {
	ctx, span := s.tracer.Start(ctx, "ItemService.ListItems")
	defer span.End()
	return s.items.ListAll(ctx)
}

// ListLowStock: позиции с quantity < threshold; threshold <= 0 означает настроенный порог.
func (s *ItemService) ListLowStock(ctx context.Context, threshold float64) ([]model.Item, error) {
	if threshold <= 0 {
		threshold = s.monitor.Threshold
	}
	ctx, span := s.tracer.Start(ctx, "ItemService.ListLowStock", trace.WithAttributes(attribute.Float64("threshold", threshold)))
	defer span.End()
	return s.items.FindBelowThreshold(ctx, threshold)
}

// OpenAsset отдаёт содержимое blob позиции. ErrNotFound, если blob не привязан.
func (s *ItemService) OpenAsset(ctx context.Context, id string) (io.ReadCloser, *model.Blob, error) {
	ctx, span := s.tracer.Start(ctx, "ItemService.OpenAsset", trace.WithAttributes(attribute.String("item.id", id)))
	defer span.End()

	it, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !it.HasAsset() {
		return nil, nil, apperr.ErrNotFound
	}
	return s.assets.Open(ctx, *it.AssetRef)
}

// checkThreshold оценивает закоммиченное состояние. Флаг переводится условным UPDATE,
// и уведомление ставится в очередь, только если переход сделал этот вызов.
func (s *ItemService) checkThreshold(ctx context.Context, res *Result) {
	it := res.Item
	switch s.monitor.Evaluate(it.Quantity, it.LowStockNotified) {
	case monitor.FireNotification:
		flipped, err := s.items.MarkLowStockNotified(ctx, it.ID)
		if err != nil {
			s.logger.Errorw("failed to persist low-stock flag", "item_id", it.ID, "error", err)
			res.Diagnostics = append(res.Diagnostics, Diagnostic{
				Code:    DiagDeliveryFailed,
				Message: fmt.Sprintf("low-stock flag not persisted: %v", err),
			})
			return
		}
		if !flipped {
			return
		}
		it.LowStockNotified = true
		if !s.notifier.Enqueue(notify.NewAlert(it, s.monitor.Threshold)) {
			res.Diagnostics = append(res.Diagnostics, Diagnostic{
				Code:    DiagDeliveryFailed,
				Message: apperr.ErrDeliveryFailed.Error() + ": notification queue unavailable",
			})
		}
	case monitor.ClearFlag:
		cleared, err := s.items.ClearLowStockNotified(ctx, it.ID)
		if err != nil {
			s.logger.Warnw("failed to clear low-stock flag", "item_id", it.ID, "error", err)
			return
		}
		if cleared {
			it.LowStockNotified = false
			s.logger.Infow("low-stock alert re-armed", "item_id", it.ID, "quantity", it.Quantity)
		}
	}
}

func (s *ItemService) addOrphans(res *Result, out *asset.Outcome) {
	if out == nil || len(out.OrphansLeft) == 0 {
		return
	}
	res.Diagnostics = append(res.Diagnostics, Diagnostic{
		Code:    DiagAssetOrphanLeft,
		Message: apperr.ErrAssetOrphanLeft.Error() + ": scheduled for reconciliation",
		Refs:    out.OrphansLeft,
	})
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
