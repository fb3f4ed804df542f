package dto

import (
	"time"

	"fulfillment-service/internal/models"
	"fulfillment-service/internal/service"

	"github.com/google/uuid"
)

type CreateProductRequest struct {
	SKU        string `json:"sku" binding:"required"`
	Name       string `json:"name" binding:"required"`
	Perishable bool   `json:"perishable"`
}

type ProductResponse struct {
	ID         uuid.UUID `json:"id"`
	SKU        string    `json:"sku"`
	Name       string    `json:"name"`
	Perishable bool      `json:"perishable"`
	CreatedAt  time.Time `json:"created_at"`
}

func FromProduct(p *models.Product) ProductResponse {
	return ProductResponse{ID: p.ID, SKU: p.SKU, Name: p.Name, Perishable: p.Perishable, CreatedAt: p.CreatedAt}
}

type UpsertWarehouseRequest struct {
	Code  string                 `json:"code" binding:"required"`
	Name  string                 `json:"name" binding:"required"`
	Zones []models.WarehouseZone `json:"zones"`
}

type WarehouseResponse struct {
	ID    uuid.UUID              `json:"id"`
	Code  string                 `json:"code"`
	Name  string                 `json:"name"`
	Zones []models.WarehouseZone `json:"zones"`
}

func FromWarehouse(w *models.Warehouse) WarehouseResponse {
	return WarehouseResponse{ID: w.ID, Code: w.Code, Name: w.Name, Zones: w.Zones}
}

func FromWarehouses(ws []models.Warehouse) []WarehouseResponse {
	out := make([]WarehouseResponse, 0, len(ws))
	for i := range ws {
		out = append(out, FromWarehouse(&ws[i]))
	}
	return out
}

// ReceiveLotRequest: приёмка партии. received_date по умолчанию: текущий момент.
type ReceiveLotRequest struct {
	ProductID     uuid.UUID  `json:"product_id"`
	WarehouseID   uuid.UUID  `json:"warehouse_id"`
	LotNumber     string     `json:"lot_number" binding:"required"`
	Zone          string     `json:"zone"`
	Aisle         string     `json:"aisle"`
	Shelf         string     `json:"shelf"`
	Bin           string     `json:"bin"`
	ReceivedDate  *time.Time `json:"received_date"`
	ExpiryDate    *time.Time `json:"expiry_date"`
	Quantity      int32      `json:"quantity"`
	QualityPassed bool       `json:"quality_passed"`
	QualityNotes  string     `json:"quality_notes"`
}

func (r ReceiveLotRequest) Input() service.ReceiveLotInput {
	in := service.ReceiveLotInput{
		ProductID:     r.ProductID,
		WarehouseID:   r.WarehouseID,
		LotNumber:     r.LotNumber,
		Zone:          r.Zone,
		Aisle:         r.Aisle,
		Shelf:         r.Shelf,
		Bin:           r.Bin,
		ExpiryDate:    r.ExpiryDate,
		Quantity:      r.Quantity,
		QualityPassed: r.QualityPassed,
		QualityNotes:  r.QualityNotes,
	}
	if r.ReceivedDate != nil {
		in.ReceivedDate = *r.ReceivedDate
	}
	return in
}

type UpdateLotStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

type LotResponse struct {
	ID                uuid.UUID        `json:"id"`
	ProductID         uuid.UUID        `json:"product_id"`
	WarehouseID       uuid.UUID        `json:"warehouse_id"`
	LotNumber         string           `json:"lot_number"`
	Location          string           `json:"location"`
	ReceivedDate      time.Time        `json:"received_date"`
	ExpiryDate        *time.Time       `json:"expiry_date,omitempty"`
	CurrentQuantity   int32            `json:"current_quantity"`
	ReservedQuantity  int32            `json:"reserved_quantity"`
	AvailableQuantity int32            `json:"available_quantity"`
	QualityPassed     bool             `json:"quality_passed"`
	QualityNotes      string           `json:"quality_notes,omitempty"`
	Status            models.LotStatus `json:"status"`
	StatusReason      string           `json:"status_reason,omitempty"`
	FEFOScore         int              `json:"fefo_score"`
	FEFOScoredAt      *time.Time       `json:"fefo_scored_at,omitempty"`
}

func FromLot(l *models.Lot) LotResponse {
	return LotResponse{
		ID:                l.ID,
		ProductID:         l.ProductID,
		WarehouseID:       l.Location.WarehouseID,
		LotNumber:         l.LotNumber,
		Location:          l.Location.String(),
		ReceivedDate:      l.ReceivedDate,
		ExpiryDate:        l.ExpiryDate,
		CurrentQuantity:   l.CurrentQuantity,
		ReservedQuantity:  l.ReservedQuantity,
		AvailableQuantity: l.AvailableQuantity,
		QualityPassed:     l.QualityPassed,
		QualityNotes:      l.QualityNotes,
		Status:            l.Status,
		StatusReason:      l.StatusReason,
		FEFOScore:         l.FEFOScore,
		FEFOScoredAt:      l.FEFOScoredAt,
	}
}

func FromLots(lots []models.Lot) []LotResponse {
	out := make([]LotResponse, 0, len(lots))
	for i := range lots {
		out = append(out, FromLot(&lots[i]))
	}
	return out
}

type ExpiringLotResponse struct {
	Lot          LotResponse `json:"lot"`
	DaysToExpiry int         `json:"days_to_expiry"`
}

func FromExpiringLots(in []service.ExpiringLot) []ExpiringLotResponse {
	out := make([]ExpiringLotResponse, 0, len(in))
	for i := range in {
		out = append(out, ExpiringLotResponse{Lot: FromLot(&in[i].Lot), DaysToExpiry: in[i].DaysToExpiry})
	}
	return out
}

type ExpiryCheckResponse struct {
	Checked  int                   `json:"checked"`
	Expired  []uuid.UUID           `json:"expired"`
	Warnings []ExpiringLotResponse `json:"warnings"`
	Errors   []string              `json:"errors,omitempty"`
}

func FromExpiryCheck(r *service.ExpiryCheckResult) ExpiryCheckResponse {
	expired := r.Expired
	if expired == nil {
		expired = []uuid.UUID{}
	}
	return ExpiryCheckResponse{
		Checked:  r.Checked,
		Expired:  expired,
		Warnings: FromExpiringLots(r.Warnings),
		Errors:   r.Errors,
	}
}

type AllocateRequest struct {
	ProductID          uuid.UUID  `json:"product_id"`
	WarehouseID        uuid.UUID  `json:"warehouse_id"`
	OrderID            uuid.UUID  `json:"order_id"`
	OrderItemID        uuid.UUID  `json:"order_item_id"`
	Quantity           int32      `json:"quantity"`
	MaxExpiryDate      *time.Time `json:"max_expiry_date"`
	PreferredLocations []string   `json:"preferred_locations"`
}

func (r AllocateRequest) Options() service.AllocateOptions {
	return service.AllocateOptions{
		OrderID:            r.OrderID,
		OrderItemID:        r.OrderItemID,
		WarehouseID:        r.WarehouseID,
		MaxExpiryDate:      r.MaxExpiryDate,
		PreferredLocations: r.PreferredLocations,
	}
}

type AllocationResponse struct {
	Success     bool                    `json:"success"`
	Reservation models.StockReservation `json:"reservation"`
	Allocated   int32                   `json:"allocated"`
	Shortfall   int32                   `json:"shortfall"`
}

func FromAllocation(r *service.AllocationResult) AllocationResponse {
	res := r.Reservation
	if res.Lots == nil {
		res.Lots = []models.AllocatedLot{}
	}
	return AllocationResponse{Success: r.Success, Reservation: res, Allocated: r.Allocated, Shortfall: r.Shortfall}
}

type ReleaseRequest struct {
	Reservation models.StockReservation `json:"reservation"`
}

type ReleaseResponse struct {
	Released int32 `json:"released"`
}

type PickedQuantityRequest struct {
	LotID    uuid.UUID `json:"lot_id"`
	Quantity int32     `json:"quantity"`
}

func toPicked(in []PickedQuantityRequest) []service.PickedQuantity {
	out := make([]service.PickedQuantity, 0, len(in))
	for _, p := range in {
		out = append(out, service.PickedQuantity{LotID: p.LotID, Quantity: p.Quantity})
	}
	return out
}

type FulfillRequest struct {
	Reservation models.StockReservation `json:"reservation"`
	Picked      []PickedQuantityRequest `json:"picked" binding:"required"`
}

func (r FulfillRequest) PickedQuantities() []service.PickedQuantity { return toPicked(r.Picked) }
