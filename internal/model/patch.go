package model

import "strings"

// ItemPatch: частичное обновление: nil-поля не меняются.
type ItemPatch struct {
	ItemName        *string
	Type            *ItemType
	Quantity        *float64
	Unit            *Unit
	StorageLocation *string
	Status          *Status
	AssetRef        *string
}

// Empty: в патче нет ни одного поля.
func (p ItemPatch) Empty() bool {
	return p.ItemName == nil && p.Type == nil && p.Quantity == nil && p.Unit == nil &&
		p.StorageLocation == nil && p.Status == nil && p.AssetRef == nil
}

// Trimmed возвращает копию патча с обрезанными пробелами в текстовых полях,
// как при создании позиции.
func (p ItemPatch) Trimmed() ItemPatch {
	if p.ItemName != nil {
		v := strings.TrimSpace(*p.ItemName)
		p.ItemName = &v
	}
	if p.StorageLocation != nil {
		v := strings.TrimSpace(*p.StorageLocation)
		p.StorageLocation = &v
	}
	return p
}

// TouchesQuantity: патч меняет количество, значит нужна проверка порога.
func (p ItemPatch) TouchesQuantity() bool { return p.Quantity != nil }

// Apply переносит заданные поля в it.
func (p ItemPatch) Apply(it *Item) {
	if p.ItemName != nil {
		it.ItemName = *p.ItemName
	}
	if p.Type != nil {
		it.Type = *p.Type
	}
	if p.Quantity != nil {
		it.Quantity = *p.Quantity
	}
	if p.Unit != nil {
		it.Unit = *p.Unit
	}
	if p.StorageLocation != nil {
		it.StorageLocation = *p.StorageLocation
	}
	if p.Status != nil {
		it.Status = *p.Status
	}
	if p.AssetRef != nil {
		ref := *p.AssetRef
		it.AssetRef = &ref
	}
}

// Columns возвращает карту колонок для gorm Updates.
func (p ItemPatch) Columns() map[string]any {
	cols := map[string]any{}
	if p.ItemName != nil {
		cols["item_name"] = *p.ItemName
	}
	if p.Type != nil {
		cols["type"] = *p.Type
	}
	if p.Quantity != nil {
		cols["quantity"] = *p.Quantity
	}
	if p.Unit != nil {
		cols["unit"] = *p.Unit
	}
	if p.StorageLocation != nil {
		cols["storage_location"] = *p.StorageLocation
	}
	if p.Status != nil {
		cols["status"] = *p.Status
	}
	if p.AssetRef != nil {
		cols["asset_ref"] = *p.AssetRef
	}
	return cols
}
