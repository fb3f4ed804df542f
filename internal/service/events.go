package service

import (
	"context"
	"time"

	"fulfillment-service/internal/models"

	"github.com/google/uuid"
)

type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
	// AggregateID: ключ партиционирования (партия, пик-лист, упаковочный лист).
	AggregateID() string
}

type EventBus interface {
	Publish(ctx context.Context, e DomainEvent) error
}

type LotStatusChangedEvent struct {
	LotID     uuid.UUID        `json:"lot_id"`
	ProductID uuid.UUID        `json:"product_id"`
	From      models.LotStatus `json:"from"`
	To        models.LotStatus `json:"to"`
	Reason    string           `json:"reason,omitempty"`
	ChangedAt time.Time        `json:"changed_at"`
}

func (e *LotStatusChangedEvent) EventType() string     { return "fulfillment.lot.status-changed" }
func (e *LotStatusChangedEvent) OccurredAt() time.Time { return e.ChangedAt }
func (e *LotStatusChangedEvent) AggregateID() string   { return e.LotID.String() }

// ReservationsVoidedEvent: компенсирующее событие: recall/expiry/depletion
// аннулировали резерв по партии, владельцы заказов должны перераспределить спрос.
type ReservationsVoidedEvent struct {
	LotID       uuid.UUID        `json:"lot_id"`
	LotNumber   string           `json:"lot_number"`
	ProductID   uuid.UUID        `json:"product_id"`
	WarehouseID uuid.UUID        `json:"warehouse_id"`
	Status      models.LotStatus `json:"status"`
	Quantity    int32            `json:"quantity"`
	Reason      string           `json:"reason,omitempty"`
	VoidedAt    time.Time        `json:"voided_at"`
}

func (e *ReservationsVoidedEvent) EventType() string     { return "fulfillment.lot.reservations-voided" }
func (e *ReservationsVoidedEvent) OccurredAt() time.Time { return e.VoidedAt }
func (e *ReservationsVoidedEvent) AggregateID() string   { return e.LotID.String() }

type LotExpiryWarningEvent struct {
	LotID        uuid.UUID `json:"lot_id"`
	LotNumber    string    `json:"lot_number"`
	ProductID    uuid.UUID `json:"product_id"`
	WarehouseID  uuid.UUID `json:"warehouse_id"`
	ExpiryDate   time.Time `json:"expiry_date"`
	DaysToExpiry int       `json:"days_to_expiry"`
	Available    int32     `json:"available_quantity"`
	DetectedAt   time.Time `json:"detected_at"`
}

func (e *LotExpiryWarningEvent) EventType() string     { return "fulfillment.lot.expiry-warning" }
func (e *LotExpiryWarningEvent) OccurredAt() time.Time { return e.DetectedAt }
func (e *LotExpiryWarningEvent) AggregateID() string   { return e.LotID.String() }

type PickListCreatedEvent struct {
	PickListID  uuid.UUID       `json:"pick_list_id"`
	WarehouseID uuid.UUID       `json:"warehouse_id"`
	OrderIDs    []uuid.UUID     `json:"order_ids"`
	ItemCount   int             `json:"item_count"`
	Priority    models.Priority `json:"priority"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (e *PickListCreatedEvent) EventType() string     { return "fulfillment.picking.list-created" }
func (e *PickListCreatedEvent) OccurredAt() time.Time { return e.CreatedAt }
func (e *PickListCreatedEvent) AggregateID() string   { return e.PickListID.String() }

type PickListCompletedEvent struct {
	PickListID          uuid.UUID  `json:"pick_list_id"`
	WarehouseID         uuid.UUID  `json:"warehouse_id"`
	PickedUnits         int32      `json:"picked_units"`
	ShortUnits          int32      `json:"short_units"`
	PackListID          *uuid.UUID `json:"pack_list_id,omitempty"`
	FulfillmentComplete bool       `json:"fulfillment_complete"`
	CompletedAt         time.Time  `json:"completed_at"`
}

func (e *PickListCompletedEvent) EventType() string     { return "fulfillment.picking.list-completed" }
func (e *PickListCompletedEvent) OccurredAt() time.Time { return e.CompletedAt }
func (e *PickListCompletedEvent) AggregateID() string   { return e.PickListID.String() }

type PickListCancelledEvent struct {
	PickListID  uuid.UUID `json:"pick_list_id"`
	Reason      string    `json:"reason,omitempty"`
	Released    int32     `json:"released_units"`
	CancelledAt time.Time `json:"cancelled_at"`
}

func (e *PickListCancelledEvent) EventType() string     { return "fulfillment.picking.list-cancelled" }
func (e *PickListCancelledEvent) OccurredAt() time.Time { return e.CancelledAt }
func (e *PickListCancelledEvent) AggregateID() string   { return e.PickListID.String() }

type PackListCompletedEvent struct {
	PackListID      uuid.UUID   `json:"pack_list_id"`
	PickListID      uuid.UUID   `json:"pick_list_id"`
	OrderIDs        []uuid.UUID `json:"order_ids"`
	TrackingNumbers []string    `json:"tracking_numbers"`
	ShippingMethod  string      `json:"shipping_method"`
	CompletedAt     time.Time   `json:"completed_at"`
}

func (e *PackListCompletedEvent) EventType() string     { return "fulfillment.packing.list-completed" }
func (e *PackListCompletedEvent) OccurredAt() time.Time { return e.CompletedAt }
func (e *PackListCompletedEvent) AggregateID() string   { return e.PackListID.String() }
