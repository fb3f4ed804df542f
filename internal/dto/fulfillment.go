package dto

import (
	"time"

	"fulfillment-service/internal/models"
	"fulfillment-service/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PickOrderItemRequest struct {
	OrderID            uuid.UUID  `json:"order_id"`
	OrderItemID        uuid.UUID  `json:"order_item_id"`
	ProductID          uuid.UUID  `json:"product_id"`
	Quantity           int32      `json:"quantity"`
	Priority           string     `json:"priority"`
	OrderedAt          *time.Time `json:"ordered_at"`
	PreferredLocations []string   `json:"preferred_locations"`
	MaxExpiryDate      *time.Time `json:"max_expiry_date"`
}

type CreatePickListRequest struct {
	WarehouseID    uuid.UUID              `json:"warehouse_id"`
	PickType       string                 `json:"pick_type" binding:"required"`
	Items          []PickOrderItemRequest `json:"items" binding:"required,min=1"`
	MaxItems       int                    `json:"max_items"`
	MaxOrders      int                    `json:"max_orders"`
	CutoffTime     *time.Time             `json:"cutoff_time"`
	PriorityFilter []string               `json:"priority_filter"`
}

func (r CreatePickListRequest) OrderItems() []service.PickOrderItem {
	out := make([]service.PickOrderItem, 0, len(r.Items))
	for _, it := range r.Items {
		item := service.PickOrderItem{
			OrderID:            it.OrderID,
			OrderItemID:        it.OrderItemID,
			ProductID:          it.ProductID,
			Quantity:           it.Quantity,
			Priority:           models.Priority(it.Priority),
			PreferredLocations: it.PreferredLocations,
			MaxExpiryDate:      it.MaxExpiryDate,
		}
		if item.Priority == "" {
			item.Priority = models.PriorityLow
		}
		if it.OrderedAt != nil {
			item.OrderedAt = *it.OrderedAt
		}
		out = append(out, item)
	}
	return out
}

func (r CreatePickListRequest) Options() service.PickListOptions {
	opts := service.PickListOptions{
		MaxItems:   r.MaxItems,
		MaxOrders:  r.MaxOrders,
		CutoffTime: r.CutoffTime,
	}
	for _, p := range r.PriorityFilter {
		opts.PriorityFilter = append(opts.PriorityFilter, models.Priority(p))
	}
	return opts
}

type RecordPickRequest struct {
	Lots []PickedQuantityRequest `json:"lots" binding:"required"`
}

func (r RecordPickRequest) PickedQuantities() []service.PickedQuantity { return toPicked(r.Lots) }

type CancelPickListRequest struct {
	Reason string `json:"reason"`
}

type CreatePackListRequest struct {
	ShippingMethod string `json:"shipping_method"`
}

type RecordPackageRequest struct {
	Weight            *decimal.Decimal   `json:"weight"`
	Dimensions        *models.Dimensions `json:"dimensions"`
	TrackingNumber    *string            `json:"tracking_number"`
	LabelURL          *string            `json:"label_url"`
	Fragile           *bool              `json:"fragile"`
	RequiresInsurance *bool              `json:"requires_insurance"`
}

func (r RecordPackageRequest) Update() service.PackageUpdate {
	return service.PackageUpdate{
		Weight:            r.Weight,
		Dimensions:        r.Dimensions,
		TrackingNumber:    r.TrackingNumber,
		LabelURL:          r.LabelURL,
		Fragile:           r.Fragile,
		RequiresInsurance: r.RequiresInsurance,
	}
}

type PickListItemResponse struct {
	ID                uuid.UUID             `json:"id"`
	OrderID           uuid.UUID             `json:"order_id"`
	OrderItemID       uuid.UUID             `json:"order_item_id"`
	ProductID         uuid.UUID             `json:"product_id"`
	Priority          models.Priority       `json:"priority"`
	RequestedQuantity int32                 `json:"requested_quantity"`
	PickedQuantity    int32                 `json:"picked_quantity"`
	ShortQuantity     int32                 `json:"short_quantity"`
	Allocation        []models.AllocatedLot `json:"allocation"`
	PickedLots        []models.PickedLot    `json:"picked_lots,omitempty"`
	Location          string                `json:"location"`
	PickSequence      int32                 `json:"pick_sequence"`
	Status            models.PickItemStatus `json:"status"`
}

type PickListResponse struct {
	ID                  uuid.UUID              `json:"id"`
	WarehouseID         uuid.UUID              `json:"warehouse_id"`
	OrderIDs            []uuid.UUID            `json:"order_ids"`
	Status              models.PickListStatus  `json:"status"`
	Priority            models.Priority        `json:"priority"`
	PickType            models.PickType        `json:"pick_type"`
	Route               models.PickRoute       `json:"route"`
	EstimatedMinutes    int32                  `json:"estimated_minutes"`
	ActualMinutes       *float64               `json:"actual_minutes,omitempty"`
	AssignedTo          *uuid.UUID             `json:"assigned_to,omitempty"`
	AssignedAt          *time.Time             `json:"assigned_at,omitempty"`
	StartedAt           *time.Time             `json:"started_at,omitempty"`
	CompletedAt         *time.Time             `json:"completed_at,omitempty"`
	CancelledAt         *time.Time             `json:"cancelled_at,omitempty"`
	FulfillmentComplete bool                   `json:"fulfillment_complete"`
	Warnings            []string               `json:"warnings,omitempty"`
	Items               []PickListItemResponse `json:"items"`
	CreatedAt           time.Time              `json:"created_at"`
}

func FromPickList(pl *models.PickList) PickListResponse {
	out := PickListResponse{
		ID:                  pl.ID,
		WarehouseID:         pl.WarehouseID,
		OrderIDs:            pl.OrderIDs,
		Status:              pl.Status,
		Priority:            pl.Priority,
		PickType:            pl.PickType,
		Route:               pl.Route,
		EstimatedMinutes:    pl.EstimatedMinutes,
		ActualMinutes:       pl.ActualMinutes,
		AssignedTo:          pl.AssignedTo,
		AssignedAt:          pl.AssignedAt,
		StartedAt:           pl.StartedAt,
		CompletedAt:         pl.CompletedAt,
		CancelledAt:         pl.CancelledAt,
		FulfillmentComplete: pl.FulfillmentComplete,
		Warnings:            pl.Warnings,
		Items:               make([]PickListItemResponse, 0, len(pl.Items)),
		CreatedAt:           pl.CreatedAt,
	}
	for _, it := range pl.Items {
		out.Items = append(out.Items, PickListItemResponse{
			ID:                it.ID,
			OrderID:           it.OrderID,
			OrderItemID:       it.OrderItemID,
			ProductID:         it.ProductID,
			Priority:          it.Priority,
			RequestedQuantity: it.RequestedQuantity,
			PickedQuantity:    it.PickedQuantity,
			ShortQuantity:     it.ShortQuantity,
			Allocation:        it.Allocation,
			PickedLots:        it.PickedLots,
			Location:          it.Location,
			PickSequence:      it.PickSequence,
			Status:            it.Status,
		})
	}
	return out
}

func FromPickLists(pls []models.PickList) []PickListResponse {
	out := make([]PickListResponse, 0, len(pls))
	for i := range pls {
		out = append(out, FromPickList(&pls[i]))
	}
	return out
}

type CreatePickListResponse struct {
	PickList PickListResponse `json:"pick_list"`
	Warnings []string         `json:"warnings,omitempty"`
}

type CompletePickListResponse struct {
	PickList            PickListResponse  `json:"pick_list"`
	PackList            *PackListResponse `json:"pack_list,omitempty"`
	FulfillmentComplete bool              `json:"fulfillment_complete"`
	Warnings            []string          `json:"warnings,omitempty"`
}

func FromCompletePickList(r *service.CompletePickListResult) CompletePickListResponse {
	out := CompletePickListResponse{
		PickList:            FromPickList(r.PickList),
		FulfillmentComplete: r.FulfillmentComplete,
		Warnings:            r.Warnings,
	}
	if r.PackList != nil {
		pl := FromPackList(r.PackList)
		out.PackList = &pl
	}
	return out
}

type PackageResponse struct {
	ID                uuid.UUID           `json:"id"`
	PackageNumber     string              `json:"package_number"`
	OrderIDs          []uuid.UUID         `json:"order_ids"`
	Items             []models.PackedItem `json:"items"`
	Dimensions        models.Dimensions   `json:"dimensions"`
	EstimatedWeight   decimal.Decimal     `json:"estimated_weight"`
	Weight            decimal.Decimal     `json:"weight"`
	Perishable        bool                `json:"perishable"`
	Fragile           bool                `json:"fragile"`
	RequiresInsurance bool                `json:"requires_insurance"`
	Instructions      []string            `json:"instructions,omitempty"`
	TrackingNumber    *string             `json:"tracking_number,omitempty"`
	LabelURL          *string             `json:"label_url,omitempty"`
	PackedAt          *time.Time          `json:"packed_at,omitempty"`
}

type PackListResponse struct {
	ID               uuid.UUID             `json:"id"`
	PickListID       uuid.UUID             `json:"pick_list_id"`
	WarehouseID      uuid.UUID             `json:"warehouse_id"`
	OrderIDs         []uuid.UUID           `json:"order_ids"`
	Status           models.PackListStatus `json:"status"`
	PackType         models.PackType       `json:"pack_type"`
	TotalWeight      decimal.Decimal       `json:"total_weight"`
	TotalVolume      decimal.Decimal       `json:"total_volume"`
	ShippingMethod   string                `json:"shipping_method"`
	TrackingNumbers  []string              `json:"tracking_numbers,omitempty"`
	EstimatedMinutes int32                 `json:"estimated_minutes"`
	ActualMinutes    *float64              `json:"actual_minutes,omitempty"`
	AssignedTo       *uuid.UUID            `json:"assigned_to,omitempty"`
	StartedAt        *time.Time            `json:"started_at,omitempty"`
	CompletedAt      *time.Time            `json:"completed_at,omitempty"`
	Packages         []PackageResponse     `json:"packages"`
	CreatedAt        time.Time             `json:"created_at"`
}

func FromPackList(pl *models.PackList) PackListResponse {
	out := PackListResponse{
		ID:               pl.ID,
		PickListID:       pl.PickListID,
		WarehouseID:      pl.WarehouseID,
		OrderIDs:         pl.OrderIDs,
		Status:           pl.Status,
		PackType:         pl.PackType,
		TotalWeight:      pl.TotalWeight,
		TotalVolume:      pl.TotalVolume,
		ShippingMethod:   pl.ShippingMethod,
		TrackingNumbers:  pl.TrackingNumbers,
		EstimatedMinutes: pl.EstimatedMinutes,
		ActualMinutes:    pl.ActualMinutes,
		AssignedTo:       pl.AssignedTo,
		StartedAt:        pl.StartedAt,
		CompletedAt:      pl.CompletedAt,
		Packages:         make([]PackageResponse, 0, len(pl.Packages)),
		CreatedAt:        pl.CreatedAt,
	}
	for _, p := range pl.Packages {
		out.Packages = append(out.Packages, PackageResponse{
			ID:                p.ID,
			PackageNumber:     p.PackageNumber,
			OrderIDs:          p.OrderIDs,
			Items:             p.Items,
			Dimensions:        p.Dimensions,
			EstimatedWeight:   p.EstimatedWeight,
			Weight:            p.Weight,
			Perishable:        p.Perishable,
			Fragile:           p.Fragile,
			RequiresInsurance: p.RequiresInsurance,
			Instructions:      p.Instructions,
			TrackingNumber:    p.TrackingNumber,
			LabelURL:          p.LabelURL,
			PackedAt:          p.PackedAt,
		})
	}
	return out
}

func FromPackLists(pls []models.PackList) []PackListResponse {
	out := make([]PackListResponse, 0, len(pls))
	for i := range pls {
		out = append(out, FromPackList(&pls[i]))
	}
	return out
}
