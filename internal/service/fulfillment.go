package service

import (
	"context"
	"time"

	"fulfillment-service/internal/models"
	"fulfillment-service/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PickOrderItem: позиция заказа, поступающая на комплектацию.
type PickOrderItem struct {
	OrderID            uuid.UUID
	OrderItemID        uuid.UUID
	ProductID          uuid.UUID
	Quantity           int32
	Priority           models.Priority
	OrderedAt          time.Time // zero: без ограничения по cutoff
	PreferredLocations []string
	MaxExpiryDate      *time.Time
}

type PickListOptions struct {
	MaxItems       int
	MaxOrders      int
	CutoffTime     *time.Time
	PriorityFilter []models.Priority
}

type PickListResult struct {
	PickList *models.PickList
	Warnings []string
}

type CompletePickListResult struct {
	PickList            *models.PickList
	PackList            *models.PackList
	FulfillmentComplete bool
	Warnings            []string
}

type PackListOptions struct {
	ShippingMethod string
}

// PackageUpdate: фактические данные упаковки; nil-поля не меняются.
type PackageUpdate struct {
	Weight            *decimal.Decimal
	Dimensions        *models.Dimensions
	TrackingNumber    *string
	LabelURL          *string
	Fragile           *bool
	RequiresInsurance *bool
}

type MetricsFilter struct {
	WarehouseID *uuid.UUID
	From        *time.Time
	To          *time.Time
}

type PickingMetrics struct {
	TotalPickLists     int     `json:"total_pick_lists"`
	Pending            int     `json:"pending"`
	InProgress         int     `json:"in_progress"`
	Completed          int     `json:"completed"`
	Cancelled          int     `json:"cancelled"`
	RequestedUnits     int64   `json:"requested_units"`
	PickedUnits        int64   `json:"picked_units"`
	ShortUnits         int64   `json:"short_units"`
	AverageMinutes     float64 `json:"average_minutes"`
	Accuracy           float64 `json:"accuracy"`
	ItemsPerHour       float64 `json:"items_per_hour"`
	FulfillmentIssues  int     `json:"fulfillment_issues"`
	AverageEstimateMin float64 `json:"average_estimated_minutes"`
}

type PackingMetrics struct {
	TotalPackLists  int             `json:"total_pack_lists"`
	Pending         int             `json:"pending"`
	InProgress      int             `json:"in_progress"`
	Completed       int             `json:"completed"`
	PackagesTotal   int             `json:"packages_total"`
	PackagesShipped int             `json:"packages_with_tracking"`
	PackedUnits     int64           `json:"packed_units"`
	TotalWeight     decimal.Decimal `json:"total_weight_kg"`
	AverageMinutes  float64         `json:"average_minutes"`
	ItemsPerHour    float64         `json:"items_per_hour"`
}

type FulfillmentService interface {
	// picking
	CreatePickList(ctx context.Context, items []PickOrderItem, warehouseID uuid.UUID, pickType models.PickType, opts PickListOptions) (*PickListResult, error)
	AssignPickList(ctx context.Context, pickListID, userID uuid.UUID) (*models.PickList, error)
	StartPickList(ctx context.Context, pickListID, userID uuid.UUID) (*models.PickList, error)
	RecordPick(ctx context.Context, pickListID, itemID uuid.UUID, lots []PickedQuantity, pickedBy uuid.UUID) (*models.PickList, error)
	CompletePickList(ctx context.Context, pickListID uuid.UUID) (*CompletePickListResult, error)
	CancelPickList(ctx context.Context, pickListID uuid.UUID, reason string) (*models.PickList, error)
	GetPickList(ctx context.Context, pickListID uuid.UUID) (*models.PickList, error)
	ListPickLists(ctx context.Context, f repository.PickListFilter) ([]models.PickList, error)

	// packing
	CreatePackList(ctx context.Context, pickListID uuid.UUID, opts PackListOptions) (*models.PackList, error)
	AssignPackList(ctx context.Context, packListID, userID uuid.UUID) (*models.PackList, error)
	StartPackList(ctx context.Context, packListID, userID uuid.UUID) (*models.PackList, error)
	RecordPackage(ctx context.Context, packListID, packageID uuid.UUID, upd PackageUpdate) (*models.PackList, error)
	CompletePackList(ctx context.Context, packListID uuid.UUID) (*models.PackList, error)
	GetPackList(ctx context.Context, packListID uuid.UUID) (*models.PackList, error)
	ListPackLists(ctx context.Context, f repository.PackListFilter) ([]models.PackList, error)

	// metrics
	GetPickingMetrics(ctx context.Context, f MetricsFilter) (*PickingMetrics, error)
	GetPackingMetrics(ctx context.Context, f MetricsFilter) (*PackingMetrics, error)
}

type fulfillmentService struct {
	repo   *repository.Repository
	alloc  Allocator
	events EventBus
	log    *zap.Logger
	now    func() time.Time

	expiryWarningDays int
}

func NewFulfillmentService(repo *repository.Repository, alloc Allocator, events EventBus, log *zap.Logger, opts ...Option) *fulfillmentService {
	o := buildOptions(opts)
	return &fulfillmentService{
		repo:              repo,
		alloc:             alloc,
		events:            events,
		log:               log,
		now:               o.now,
		expiryWarningDays: o.expiryWarningDays,
	}
}

func minutesBetween(from *time.Time, to time.Time) *float64 {
	if from == nil {
		return nil
	}
	m := to.Sub(*from).Minutes()
	return &m
}

var _ FulfillmentService = (*fulfillmentService)(nil)
