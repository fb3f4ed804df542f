package models

import (
	"time"

	"github.com/google/uuid"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Rank: urgent > high > medium > low; неизвестный приоритет считается low.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	default:
		return 1
	}
}

type PickType string

const (
	PickSingle PickType = "single"
	PickBatch  PickType = "batch"
	PickWave   PickType = "wave"
)

func (t PickType) Valid() bool {
	return t == PickSingle || t == PickBatch || t == PickWave
}

type PickListStatus string

const (
	PickListPending    PickListStatus = "pending"
	PickListInProgress PickListStatus = "in_progress"
	PickListCompleted  PickListStatus = "completed"
	PickListCancelled  PickListStatus = "cancelled"
)

type PickItemStatus string

const (
	PickItemPending PickItemStatus = "pending"
	PickItemPicked  PickItemStatus = "picked"
	PickItemShort   PickItemStatus = "short"
)

// PickRoute: производная от позиций, отдельно не изменяется.
type PickRoute struct {
	Zones            []string `json:"zones"`
	Aisles           []string `json:"aisles"`
	DistanceMeters   int32    `json:"distance_meters"`
	EstimatedMinutes int32    `json:"estimated_minutes"`
	Optimized        bool     `json:"optimized"`
}

type PickedLot struct {
	LotID    uuid.UUID `json:"lot_id"`
	Quantity int32     `json:"quantity"`
	PickedAt time.Time `json:"picked_at"`
	PickedBy uuid.UUID `json:"picked_by"`
}

type PickList struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	WarehouseID uuid.UUID      `gorm:"type:uuid;not null;index"`
	OrderIDs    []uuid.UUID    `gorm:"type:jsonb;serializer:json"`
	Status      PickListStatus `gorm:"type:text;not null;default:'pending';index"`
	Priority    Priority       `gorm:"type:text;not null;default:'low'"`
	PickType    PickType       `gorm:"type:text;not null"`
	Route       PickRoute      `gorm:"type:jsonb;serializer:json"`

	EstimatedMinutes int32 `gorm:"not null;default:0"`
	ActualMinutes    *float64

	AssignedTo  *uuid.UUID `gorm:"type:uuid;index"`
	AssignedAt  *time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	CancelledAt *time.Time

	// FulfillmentComplete=false: пик-лист завершён, но списание/упаковка прошли не полностью.
	FulfillmentComplete bool     `gorm:"not null;default:false"`
	Warnings            []string `gorm:"type:jsonb;serializer:json"`

	Items []PickListItem `gorm:"foreignKey:PickListID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"not null;default:now();index"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (PickList) TableName() string { return "pick_lists" }

type PickListItem struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	PickListID  uuid.UUID `gorm:"type:uuid;not null;index"`
	OrderID     uuid.UUID `gorm:"type:uuid;not null;index"`
	OrderItemID uuid.UUID `gorm:"type:uuid;not null"`
	ProductID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Priority    Priority  `gorm:"type:text;not null;default:'low'"`

	RequestedQuantity int32 `gorm:"not null"`
	PickedQuantity    int32 `gorm:"not null;default:0"`
	ShortQuantity     int32 `gorm:"not null;default:0"`

	Allocation []AllocatedLot `gorm:"type:jsonb;serializer:json"`
	PickedLots []PickedLot    `gorm:"type:jsonb;serializer:json"`

	Location     string         `gorm:"type:text;not null;default:''"`
	PickSequence int32          `gorm:"not null;default:0"`
	Status       PickItemStatus `gorm:"type:text;not null;default:'pending'"`
}

func (PickListItem) TableName() string { return "pick_list_items" }

// Reservation восстанавливает резерв позиции для Fulfill/Release.
func (it PickListItem) Reservation(warehouseID uuid.UUID) StockReservation {
	return StockReservation{
		OrderID:     it.OrderID,
		OrderItemID: it.OrderItemID,
		ProductID:   it.ProductID,
		WarehouseID: warehouseID,
		Lots:        append([]AllocatedLot(nil), it.Allocation...),
	}
}

func (pl PickList) Clone() PickList {
	out := pl
	out.OrderIDs = append([]uuid.UUID(nil), pl.OrderIDs...)
	out.Warnings = append([]string(nil), pl.Warnings...)
	out.Route.Zones = append([]string(nil), pl.Route.Zones...)
	out.Route.Aisles = append([]string(nil), pl.Route.Aisles...)
	out.AssignedTo = clonePtr(pl.AssignedTo)
	out.AssignedAt = clonePtr(pl.AssignedAt)
	out.StartedAt = clonePtr(pl.StartedAt)
	out.CompletedAt = clonePtr(pl.CompletedAt)
	out.CancelledAt = clonePtr(pl.CancelledAt)
	out.ActualMinutes = clonePtr(pl.ActualMinutes)
	out.Items = make([]PickListItem, len(pl.Items))
	for i, it := range pl.Items {
		cp := it
		cp.Allocation = append([]AllocatedLot(nil), it.Allocation...)
		cp.PickedLots = append([]PickedLot(nil), it.PickedLots...)
		out.Items[i] = cp
	}
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
