package model

import "strings"

// ItemType: вид сырья.
type ItemType string

const (
	TypeShell ItemType = "shell"
	TypeHusk  ItemType = "husk"
	TypeWater ItemType = "water"
	TypeMeat  ItemType = "meat"
	TypeOther ItemType = "other"
)

func (t ItemType) Valid() bool {
	switch t {
	case TypeShell, TypeHusk, TypeWater, TypeMeat, TypeOther:
		return true
	}
	return false
}

// Unit: единица измерения количества.
type Unit string

const (
	UnitKg     Unit = "kg"
	UnitLiters Unit = "liters"
	UnitPieces Unit = "pieces"
)

func (u Unit) Valid() bool {
	switch u {
	case UnitKg, UnitLiters, UnitPieces:
		return true
	}
	return false
}

// Status: состояние позиции.
type Status string

const (
	StatusAvailable  Status = "available"
	StatusProcessing Status = "processing"
	StatusDisposed   Status = "disposed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusProcessing, StatusDisposed:
		return true
	}
	return false
}

// ParseItemType нормализует ввод; невалидное значение возвращается как есть
// и отсекается валидацией репозитория.
func ParseItemType(s string) ItemType { return ItemType(strings.ToLower(strings.TrimSpace(s))) }

func ParseUnit(s string) Unit { return Unit(strings.ToLower(strings.TrimSpace(s))) }

func ParseStatus(s string) Status { return Status(strings.ToLower(strings.TrimSpace(s))) }
