package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PackListStatus string

const (
	PackListPending    PackListStatus = "pending"
	PackListInProgress PackListStatus = "in_progress"
	PackListCompleted  PackListStatus = "completed"
)

type PackType string

const (
	PackSingle PackType = "single"
	PackMulti  PackType = "multi"
	PackSplit  PackType = "split"
)

// Dimensions: габариты в сантиметрах.
type Dimensions struct {
	Length decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"length"`
	Width  decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"width"`
	Height decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"height"`
}

func NewDimensions(l, w, h int64) Dimensions {
	return Dimensions{Length: decimal.NewFromInt(l), Width: decimal.NewFromInt(w), Height: decimal.NewFromInt(h)}
}

// Volume в кубических сантиметрах.
func (d Dimensions) Volume() decimal.Decimal {
	return d.Length.Mul(d.Width).Mul(d.Height)
}

type PackedItem struct {
	PickListItemID uuid.UUID   `json:"pick_list_item_id"`
	OrderID        uuid.UUID   `json:"order_id"`
	OrderItemID    uuid.UUID   `json:"order_item_id"`
	ProductID      uuid.UUID   `json:"product_id"`
	Quantity       int32       `json:"quantity"`
	LotIDs         []uuid.UUID `json:"lot_ids"`
}

type PackList struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	PickListID  uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex"`
	WarehouseID uuid.UUID      `gorm:"type:uuid;not null;index"`
	OrderIDs    []uuid.UUID    `gorm:"type:jsonb;serializer:json"`
	Status      PackListStatus `gorm:"type:text;not null;default:'pending';index"`
	PackType    PackType       `gorm:"type:text;not null"`

	TotalWeight     decimal.Decimal `gorm:"type:numeric(12,3);not null;default:0"` // кг
	TotalVolume     decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"` // см³
	ShippingMethod  string          `gorm:"type:text;not null;default:'standard'"`
	TrackingNumbers []string        `gorm:"type:jsonb;serializer:json"`

	EstimatedMinutes int32 `gorm:"not null;default:0"`
	ActualMinutes    *float64

	AssignedTo  *uuid.UUID `gorm:"type:uuid;index"`
	AssignedAt  *time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time

	Packages []Package `gorm:"foreignKey:PackListID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"not null;default:now();index"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (PackList) TableName() string { return "pack_lists" }

type Package struct {
	ID            uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	PackListID    uuid.UUID    `gorm:"type:uuid;not null;index"`
	PackageNumber string       `gorm:"type:text;not null"`
	OrderIDs      []uuid.UUID  `gorm:"type:jsonb;serializer:json"`
	Items         []PackedItem `gorm:"type:jsonb;serializer:json"`

	Dimensions      Dimensions      `gorm:"embedded;embeddedPrefix:dim_"`
	EstimatedWeight decimal.Decimal `gorm:"type:numeric(12,3);not null;default:0"`
	Weight          decimal.Decimal `gorm:"type:numeric(12,3);not null;default:0"`

	Perishable        bool     `gorm:"not null;default:false"`
	Fragile           bool     `gorm:"not null;default:false"`
	RequiresInsurance bool     `gorm:"not null;default:false"`
	Instructions      []string `gorm:"type:jsonb;serializer:json"`

	TrackingNumber *string `gorm:"type:text"`
	LabelURL       *string `gorm:"type:text"`
	PackedAt       *time.Time
}

func (Package) TableName() string { return "packages" }

func (p Package) ItemCount() int32 {
	var n int32
	for _, it := range p.Items {
		n += it.Quantity
	}
	return n
}

func (pl PackList) Clone() PackList {
	out := pl
	out.OrderIDs = append([]uuid.UUID(nil), pl.OrderIDs...)
	out.TrackingNumbers = append([]string(nil), pl.TrackingNumbers...)
	out.ActualMinutes = clonePtr(pl.ActualMinutes)
	out.AssignedTo = clonePtr(pl.AssignedTo)
	out.AssignedAt = clonePtr(pl.AssignedAt)
	out.StartedAt = clonePtr(pl.StartedAt)
	out.CompletedAt = clonePtr(pl.CompletedAt)
	out.Packages = make([]Package, len(pl.Packages))
	for i, p := range pl.Packages {
		cp := p
		cp.OrderIDs = append([]uuid.UUID(nil), p.OrderIDs...)
		cp.Instructions = append([]string(nil), p.Instructions...)
		cp.Items = make([]PackedItem, len(p.Items))
		for j, it := range p.Items {
			it.LotIDs = append([]uuid.UUID(nil), it.LotIDs...)
			cp.Items[j] = it
		}
		cp.TrackingNumber = clonePtr(p.TrackingNumber)
		cp.LabelURL = clonePtr(p.LabelURL)
		cp.PackedAt = clonePtr(p.PackedAt)
		out.Packages[i] = cp
	}
	return out
}
