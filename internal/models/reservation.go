package models

import (
	"time"

	"github.com/google/uuid"
)

// AllocatedLot: строка резерва: сколько и из какой партии отдано под позицию заказа.
type AllocatedLot struct {
	LotID      uuid.UUID  `json:"lot_id"`
	LotNumber  string     `json:"lot_number"`
	Quantity   int32      `json:"quantity"`
	Location   string     `json:"location"`
	Score      int        `json:"score"`
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`
}

// StockReservation: результат аллокации для одной позиции заказа.
// Здесь не хранится: владельцем является заказ.
type StockReservation struct {
	OrderID     uuid.UUID      `json:"order_id"`
	OrderItemID uuid.UUID      `json:"order_item_id"`
	ProductID   uuid.UUID      `json:"product_id"`
	WarehouseID uuid.UUID      `json:"warehouse_id"`
	Lots        []AllocatedLot `json:"lots"`
	CreatedAt   time.Time      `json:"created_at"`
}

func (r StockReservation) Total() int32 {
	var total int32
	for _, l := range r.Lots {
		total += l.Quantity
	}
	return total
}
