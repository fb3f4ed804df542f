package service

import (
	"context"
	"time"

	"fulfillment-service/internal/models"

	"github.com/google/uuid"
)

type ProductInput struct {
	SKU        string
	Name       string
	Perishable bool
}

type WarehouseInput struct {
	ID    uuid.UUID // пустой: будет сгенерирован
	Code  string
	Name  string
	Zones []models.WarehouseZone
}

// ReceiveLotInput: событие приёмки товара на склад.
type ReceiveLotInput struct {
	ProductID     uuid.UUID
	WarehouseID   uuid.UUID
	LotNumber     string
	Zone          string
	Aisle         string
	Shelf         string
	Bin           string
	ReceivedDate  time.Time // zero: текущий момент
	ExpiryDate    *time.Time
	Quantity      int32
	QualityPassed bool
	QualityNotes  string
}

type LotListFilter struct {
	ProductID   *uuid.UUID
	WarehouseID *uuid.UUID
	Status      *models.LotStatus
}

type AllocateOptions struct {
	OrderID            uuid.UUID
	OrderItemID        uuid.UUID
	WarehouseID        uuid.UUID
	MaxExpiryDate      *time.Time
	PreferredLocations []string
}

// AllocationResult: Shortfall > 0 нужно проверять даже при Success.
type AllocationResult struct {
	Success     bool
	Reservation models.StockReservation
	Allocated   int32
	Shortfall   int32
}

type PickedQuantity struct {
	LotID    uuid.UUID
	Quantity int32
}

type LotRef struct {
	LotID        uuid.UUID  `json:"lot_id"`
	LotNumber    string     `json:"lot_number"`
	ReceivedDate time.Time  `json:"received_date"`
	ExpiryDate   *time.Time `json:"expiry_date,omitempty"`
}

type ProductInventorySummary struct {
	ProductID         uuid.UUID                `json:"product_id"`
	WarehouseID       *uuid.UUID               `json:"warehouse_id,omitempty"`
	TotalQuantity     int32                    `json:"total_quantity"`
	AvailableQuantity int32                    `json:"available_quantity"`
	ReservedQuantity  int32                    `json:"reserved_quantity"`
	LotCount          int                      `json:"lot_count"`
	ByStatus          map[models.LotStatus]int `json:"by_status"`
	OldestLot         *LotRef                  `json:"oldest_lot,omitempty"`
	NewestLot         *LotRef                  `json:"newest_lot,omitempty"`
}

type ExpiringLot struct {
	Lot          models.Lot `json:"lot"`
	DaysToExpiry int        `json:"days_to_expiry"`
}

type ExpiryCheckResult struct {
	Checked  int           `json:"checked"`
	Expired  []uuid.UUID   `json:"expired"`
	Warnings []ExpiringLot `json:"warnings"`
	Errors   []string      `json:"errors,omitempty"`
}

type LotRecommendation struct {
	LotID     uuid.UUID `json:"lot_id"`
	LotNumber string    `json:"lot_number"`
	Location  string    `json:"location"`
	Available int32     `json:"available_quantity"`
	Score     int       `json:"score"`
}

type ReplenishmentCandidate struct {
	ProductID       uuid.UUID           `json:"product_id"`
	SKU             string              `json:"sku"`
	PickingQuantity int32               `json:"picking_quantity"`
	StorageQuantity int32               `json:"storage_quantity"`
	TotalQuantity   int32               `json:"total_quantity"`
	RecommendedLots []LotRecommendation `json:"recommended_lots"`
}

type ConsolidationOpportunity struct {
	ProductID          uuid.UUID           `json:"product_id"`
	SKU                string              `json:"sku"`
	LotCount           int                 `json:"lot_count"`
	FragmentedLots     []LotRecommendation `json:"fragmented_lots"`
	FragmentedQuantity int32               `json:"fragmented_quantity"`
	TargetLocation     string              `json:"target_location"`
}

// Allocator: контракт резервирования, которым пользуется комплектация.
type Allocator interface {
	Allocate(ctx context.Context, productID uuid.UUID, quantity int32, opts AllocateOptions) (*AllocationResult, error)
	Release(ctx context.Context, res models.StockReservation) (int32, error)
	Fulfill(ctx context.Context, res models.StockReservation, picked []PickedQuantity) error
}

type InventoryService interface {
	Allocator

	// directories
	CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error)
	GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	UpsertWarehouse(ctx context.Context, in WarehouseInput) (*models.Warehouse, error)
	GetWarehouse(ctx context.Context, warehouseID uuid.UUID) (*models.Warehouse, error)
	ListWarehouses(ctx context.Context) ([]models.Warehouse, error)

	// lots
	ReceiveLot(ctx context.Context, in ReceiveLotInput) (*models.Lot, error)
	GetLot(ctx context.Context, lotID uuid.UUID) (*models.Lot, error)
	ListLots(ctx context.Context, f LotListFilter) ([]models.Lot, error)
	UpdateLotStatus(ctx context.Context, lotID uuid.UUID, status, reason string) (*models.Lot, error)
	GetProductInventory(ctx context.Context, productID uuid.UUID, warehouseID *uuid.UUID) (*ProductInventorySummary, error)

	// operations tooling
	GetExpiringLots(ctx context.Context, warehouseID uuid.UUID, daysThreshold int) ([]ExpiringLot, error)
	RunExpiryCheck(ctx context.Context) (*ExpiryCheckResult, error)
	GetReplenishmentCandidates(ctx context.Context, warehouseID uuid.UUID) ([]ReplenishmentCandidate, error)
	GetConsolidationOpportunities(ctx context.Context, warehouseID uuid.UUID) ([]ConsolidationOpportunity, error)
}

// SummaryCache: кэш сводок по остаткам. Ключ сводки: товар + scope (склад или "all").
type SummaryCache interface {
	Get(ctx context.Context, productID uuid.UUID, scope string) ([]byte, bool, error)
	Set(ctx context.Context, productID uuid.UUID, scope string, data []byte) error
	Invalidate(ctx context.Context, productID uuid.UUID) error
}
