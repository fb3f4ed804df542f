package handlers

import (
	"net/http"

	"fulfillment-service/internal/dto"
	"fulfillment-service/internal/models"
	"fulfillment-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type InventoryHandler struct {
	inventory service.InventoryService
	log       *zap.Logger
}

func NewInventoryHandler(inventory service.InventoryService, log *zap.Logger) *InventoryHandler {
	return &InventoryHandler{
		inventory: inventory,
		log:       log,
	}
}

// POST /api/v1/products
func (h *InventoryHandler) CreateProduct(c *gin.Context) {
	var req dto.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, h.log, "create product", err)
		return
	}
	p, err := h.inventory.CreateProduct(c.Request.Context(), service.ProductInput{
		SKU: req.SKU, Name: req.Name, Perishable: req.Perishable,
	})
	if err != nil {
		writeError(c, h.log, "create product", err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromProduct(p))
}

// GET /api/v1/products/:id
func (h *InventoryHandler) GetProduct(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	p, err := h.inventory.GetProduct(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, "get product", err)
		return
	}
	c.JSON(http.StatusOK, dto.FromProduct(p))
}

// GET /api/v1/products/:id/inventory?warehouse_id=
func (h *InventoryHandler) GetProductInventory(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	warehouseID, ok := queryUUID(c, "warehouse_id")
	if !ok {
		return
	}
	sum, err := h.inventory.GetProductInventory(c.Request.Context(), id, warehouseID)
	if err != nil {
		writeError(c, h.log, "get product inventory", err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// PUT /api/v1/warehouses/:id
func (h *InventoryHandler) UpsertWarehouse(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.UpsertWarehouseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, h.log, "upsert warehouse", err)
		return
	}
	w, err := h.inventory.UpsertWarehouse(c.Request.Context(), service.WarehouseInput{
		ID: id, Code: req.Code, Name: req.Name, Zones: req.Zones,
	})
	if err != nil {
		writeError(c, h.log, "upsert warehouse", err)
		return
	}
	c.JSON(http.StatusOK, dto.FromWarehouse(w))
}

// GET /api/v1/warehouses
func (h *InventoryHandler) ListWarehouses(c *gin.Context) {
	ws, err := h.inventory.ListWarehouses(c.Request.Context())
	if err != nil {
		writeError(c, h.log, "list warehouses", err)
		return
	}
	c.JSON(http.StatusOK, dto.FromWarehouses(ws))
}

// GET /api/v1/warehouses/:id
func (h *InventoryHandler) GetWarehouse(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	w, err := h.inventory.GetWarehouse(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, "get warehouse", err)
		return
	}
	c.JSON(http.StatusOK, dto.FromWarehouse(w))
}

// POST /api/v1/lots
func (h *InventoryHandler) ReceiveLot(c *gin.Context) {
	var req dto.ReceiveLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, h.log, "receive lot", err)
		return
	}
	lot, err := h.inventory.ReceiveLot(c.Request.Context(), req.Input())
	if err != nil {
		writeError(c, h.log, "receive lot", err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromLot(lot))
}

// GET /api/v1/lots/:id
func (h *InventoryHandler) GetLot(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	lot, err := h.inventory.GetLot(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, "get lot", err)
		return
	}
	c.JSON(http.StatusOK, dto.FromLot(lot))
}

// GET /api/v1/lots?product_id=&warehouse_id=&status=
func (h *InventoryHandler) ListLots(c *gin.Context) {
	var f service.LotListFilter
	var ok bool
	if f.ProductID, ok = queryUUID(c, "product_id"); !ok {
		return
	}
	if f.WarehouseID, ok = queryUUID(c, "warehouse_id"); !ok {
		return
	}
	if raw := c.Query("status"); raw != "" {
		st, err := models.ParseLotStatus(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid query parameter", []dto.FieldError{
				{Field: "status", Message: err.Error(), Tag: "oneof"},
			}))
			return
		}
		f.Status = &st
	}
	lots, err := h.inventory.ListLots(c.Request.Context(), f)
	if err != nil {
		writeError(c, h.log, "list lots", err)
		return
	}
	c.JSON(http.StatusOK, dto.FromLots(lots))
}

// PATCH /api/v1/lots/:id/status
func (h *InventoryHandler) UpdateLotStatus(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateLotStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, h.log, "update lot status", err)
		return
	}
	lot, err := h.inventory.UpdateLotStatus(c.Request.Context(), id, req.Status, req.Reason)
	if err != nil {
		writeError(c, h.log, "update lot status", err)
		return
	}
	c.JSON(http.StatusOK, dto.FromLot(lot))
}

// POST /api/v1/allocations
func (h *InventoryHandler) Allocate(c *gin.Context) {
	var req dto.AllocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, h.log, "allocate", err)
		return
	}
	res, err := h.inventory.Allocate(c.Request.Context(), req.ProductID, req.Quantity, req.Options())
	if err != nil {
		writeError(c, h.log, "allocate", err)
		return
	}
	c.JSON(http.StatusOK, dto.FromAllocation(res))
}

// POST /api/v1/allocations/release
func (h *InventoryHandler) Release(c *gin.Context) {
	var req dto.ReleaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, h.log, "release", err)
		return
	}
	released, err := h.inventory.Release(c.Request.Context(), req.Reservation)
	if err != nil {
		writeError(c, h.log, "release", err)
		return
	}
	c.JSON(http.StatusOK, dto.ReleaseResponse{Released: released})
}

// POST /api/v1/allocations/fulfill
func (h *InventoryHandler) Fulfill(c *gin.Context) {
	var req dto.FulfillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, h.log, "fulfill", err)
		return
	}
	if err := h.inventory.Fulfill(c.Request.Context(), req.Reservation, req.PickedQuantities()); err != nil {
		writeError(c, h.log, "fulfill", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/v1/warehouses/:id/expiring?days=
func (h *InventoryHandler) GetExpiringLots(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	days, ok := queryInt(c, "days", 0)
	if !ok {
		return
	}
	lots, err := h.inventory.GetExpiringLots(c.Request.Context(), id, days)
	if err != nil {
		writeError(c, h.log, "get expiring lots", err)
		return
	}
	c.JSON(http.StatusOK, dto.FromExpiringLots(lots))
}

// POST /api/v1/expiry-check
func (h *InventoryHandler) RunExpiryCheck(c *gin.Context) {
	res, err := h.inventory.RunExpiryCheck(c.Request.Context())
	if err != nil {
		writeError(c, h.log, "expiry check", err)
		return
	}
	c.JSON(http.StatusOK, dto.FromExpiryCheck(res))
}

// GET /api/v1/warehouses/:id/replenishment
func (h *InventoryHandler) GetReplenishmentCandidates(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	out, err := h.inventory.GetReplenishmentCandidates(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, "replenishment candidates", err)
		return
	}
	if out == nil {
		out = []service.ReplenishmentCandidate{}
	}
	c.JSON(http.StatusOK, out)
}

// GET /api/v1/warehouses/:id/consolidation
func (h *InventoryHandler) GetConsolidationOpportunities(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	out, err := h.inventory.GetConsolidationOpportunities(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, "consolidation opportunities", err)
		return
	}
	if out == nil {
		out = []service.ConsolidationOpportunity{}
	}
	c.JSON(http.StatusOK, out)
}
