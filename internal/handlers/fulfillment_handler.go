package handlers

import (
	"net/http"

	"fulfillment-service/internal/dto"
	"fulfillment-service/internal/middleware"
	"fulfillment-service/internal/models"
	"fulfillment-service/internal/repository"
	"fulfillment-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type FulfillmentHandler struct {
	fulfillment service.FulfillmentService
	log         *zap.Logger
}

func NewFulfillmentHandler(fulfillment service.FulfillmentService, log *zap.Logger) *FulfillmentHandler {
	return &FulfillmentHandler{
		fulfillment: fulfillment,
		log:         log,
	}
}

type assignRequest struct {
	UserID *uuid.UUID `json:"user_id"`
}

// assignee: user_id из тела, иначе сам оператор из X-User-ID.
func assignee(c *gin.Context, log *zap.Logger) (uuid.UUID, bool) {
	var req assignRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badBody(c, log, "assign", err)
			return uuid.Nil, false
		}
	}
	if req.UserID != nil && *req.UserID != uuid.Nil {
		return *req.UserID, true
	}
	if id, ok := middleware.UserID(c); ok {
		return id, true
	}
	c.JSON(http.StatusBadRequest, dto.NewValidationError("assignee is required", []dto.FieldError{
		{Field: "user_id", Message: "user_id or X-User-ID header is required", Tag: "required"},
	}))
	return uuid.Nil, false
}

// POST /api/v1/pick-lists
func (h *FulfillmentHandler) CreatePickList(c *gin.Context) {
	var req dto.CreatePickListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, h.log, "create pick list", err)
		return
	}
	res, err := h.fulfillment.CreatePickList(c.Request.Context(), req.OrderItems(), req.WarehouseID,
		models.PickType(req.PickType), req.Options())
	if err != nil {
		writeError(c, h.log, "create pick list", err)
		return
	}
	c.JSON(http.StatusCreated, dto.CreatePickListResponse{
		PickList: dto.FromPickList(res.PickList),
		Warnings: res.Warnings,
	})
}

// GET /api/v1/pick-lists?warehouse_id=&status=&limit=&offset=
func (h *FulfillmentHandler) ListPickLists(c *gin.Context) {
	var f repository.PickListFilter
	var ok bool
	if f.WarehouseID, ok = queryUUID(c, "warehouse_id"); !ok {
		return
	}
	if raw := c.Query("status"); raw != "" {
		st := models.PickListStatus(raw)
		f.Status = &st
	}
	if f.Limit, ok = queryInt(c, "limit", 50); !ok {
		return
	}
	if f.Offset, ok = queryInt(c, "offset", 0); !ok {
		return
	}
	pls, err := h.fulfillment.ListPickLists(c.Request.Context(), f)
	if err != nil {
		writeError(c, h.log, "list pick lists", err)
		return
	}
	c.JSON(http.StatusOK, dto.FromPickLists(pls))
}

// GET /api/v1/pick-lists/:id
func (h *FulfillmentHandler) GetPickList(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	pl, err := h.fulfillment.GetPickList(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, "get pick list", err)
		return
	}
	c.JSON(http.StatusOK, dto.FromPickList(pl))
}

// POST /api/v1/pick-lists/:id/assign
func (h *FulfillmentHandler) AssignPickList(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	userID, ok := assignee(c, h.log)
	if !ok {
		return
	}
	pl, err := h.fulfillment.AssignPickList(c.Request.Context(), id, userID)
	if err != nil {
		writeError(c, h.log, "assign pick list", err)
		return
	}
	c.JSON(http.StatusOK, dto.FromPickList(pl))
}

// POST /api/v1/pick-lists/:id/start (X-User-ID обязателен)
func (h *FulfillmentHandler) StartPickList(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	userID, _ := middleware.UserID(c)
	pl, err := h.fulfillment.StartPickList(c.Request.Context(), id, userID)
	if err != nil {
		writeError(c, h.log, "start pick list", err)
		return
	}
	c.JSON(http.StatusOK, dto.FromPickList(pl))
}

// POST /api/v1/pick-lists/:id/items/:itemId/pick (X-User-ID обязателен)
func (h *FulfillmentHandler) RecordPick(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	itemID, ok := pathUUID(c, "itemId")
	if !ok {
		return
	}
	var req dto.RecordPickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, h.log, "record pick", err)
		return
	}
	userID, _ := middleware.UserID(c)
	pl, err := h.fulfillment.RecordPick(c.Request.Context(), id, itemID, req.PickedQuantities(), userID)
	if err != nil {
		writeError(c, h.log, "record pick", err)
		return
	}
	c.JSON(http.StatusOK, dto.FromPickList(pl))
}

// POST /api/v1/pick-lists/:id/complete
func (h *FulfillmentHandler) CompletePickList(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	res, err := h.fulfillment.CompletePickList(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, "complete pick list", err)
		return
	}
	if !res.FulfillmentComplete {
		h.log.Warn("pick list completed with fulfillment issues",
			zap.String("pick_list_id", id.String()),
			zap.Strings("warnings", res.Warnings))
	}
	c.JSON(http.StatusOK, dto.FromCompletePickList(res))
}

// POST /api/v1/pick-lists/:id/cancel
func (h *FulfillmentHandler) CancelPickList(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.CancelPickListRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badBody(c, h.log, "cancel pick list", err)
			return
		}
	}
	pl, err := h.fulfillment.CancelPickList(c.Request.Context(), id, req.Reason)
	if err != nil {
		writeError(c, h.log, "cancel pick list", err)
		return
	}
	c.JSON(http.StatusOK, dto.FromPickList(pl))
}

// POST /api/v1/pick-lists/:id/pack-list
func (h *FulfillmentHandler) CreatePackList(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.CreatePackListRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badBody(c, h.log, "create pack list", err)
			return
		}
	}
	pl, err := h.fulfillment.CreatePackList(c.Request.Context(), id, service.PackListOptions{ShippingMethod: req.ShippingMethod})
	if err != nil {
		writeError(c, h.log, "create pack list", err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromPackList(pl))
}

// GET /api/v1/pack-lists?warehouse_id=&status=&limit=&offset=
func (h *FulfillmentHandler) ListPackLists(c *gin.Context) {
	var f repository.PackListFilter
	var ok bool
	if f.WarehouseID, ok = queryUUID(c, "warehouse_id"); !ok {
		return
	}
	if raw := c.Query("status"); raw != "" {
		st := models.PackListStatus(raw)
		f.Status = &st
	}
	if f.Limit, ok = queryInt(c, "limit", 50); !ok {
		return
	}
	if f.Offset, ok = queryInt(c, "offset", 0); !ok {
		return
	}
	pls, err := h.fulfillment.ListPackLists(c.Request.Context(), f)
	if err != nil {
		writeError(c, h.log, "list pack lists", err)
		return
	}
	c.JSON(http.StatusOK, dto.FromPackLists(pls))
}

// GET /api/v1/pack-lists/:id
func (h *FulfillmentHandler) GetPackList(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	pl, err := h.fulfillment.GetPackList(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, "get pack list", err)
		return
	}
	c.JSON(http.StatusOK, dto.FromPackList(pl))
}

// POST /api/v1/pack-lists/:id/assign
func (h *FulfillmentHandler) AssignPackList(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	userID, ok := assignee(c, h.log)
	if !ok {
		return
	}
	pl, err := h.fulfillment.AssignPackList(c.Request.Context(), id, userID)
	if err != nil {
		writeError(c, h.log, "assign pack list", err)
		return
	}
	c.JSON(http.StatusOK, dto.FromPackList(pl))
}

// POST /api/v1/pack-lists/:id/start (X-User-ID обязателен)
func (h *FulfillmentHandler) StartPackList(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	userID, _ := middleware.UserID(c)
	pl, err := h.fulfillment.StartPackList(c.Request.Context(), id, userID)
	if err != nil {
		writeError(c, h.log, "start pack list", err)
		return
	}
	c.JSON(http.StatusOK, dto.FromPackList(pl))
}

// PATCH /api/v1/pack-lists/:id/packages/:packageId
func (h *FulfillmentHandler) RecordPackage(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	packageID, ok := pathUUID(c, "packageId")
	if !ok {
		return
	}
	var req dto.RecordPackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, h.log, "record package", err)
		return
	}
	pl, err := h.fulfillment.RecordPackage(c.Request.Context(), id, packageID, req.Update())
	if err != nil {
		writeError(c, h.log, "record package", err)
		return
	}
	c.JSON(http.StatusOK, dto.FromPackList(pl))
}

// POST /api/v1/pack-lists/:id/complete
func (h *FulfillmentHandler) CompletePackList(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	pl, err := h.fulfillment.CompletePackList(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, "complete pack list", err)
		return
	}
	c.JSON(http.StatusOK, dto.FromPackList(pl))
}

func metricsFilter(c *gin.Context) (service.MetricsFilter, bool) {
	var f service.MetricsFilter
	var ok bool
	if f.WarehouseID, ok = queryUUID(c, "warehouse_id"); !ok {
		return f, false
	}
	if f.From, ok = queryTime(c, "from"); !ok {
		return f, false
	}
	if f.To, ok = queryTime(c, "to"); !ok {
		return f, false
	}
	return f, true
}

// GET /api/v1/metrics/picking?warehouse_id=&from=&to=
func (h *FulfillmentHandler) GetPickingMetrics(c *gin.Context) {
	f, ok := metricsFilter(c)
	if !ok {
		return
	}
	m, err := h.fulfillment.GetPickingMetrics(c.Request.Context(), f)
	if err != nil {
		writeError(c, h.log, "picking metrics", err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// GET /api/v1/metrics/packing?warehouse_id=&from=&to=
func (h *FulfillmentHandler) GetPackingMetrics(c *gin.Context) {
	f, ok := metricsFilter(c)
	if !ok {
		return
	}
	m, err := h.fulfillment.GetPackingMetrics(c.Request.Context(), f)
	if err != nil {
		writeError(c, h.log, "packing metrics", err)
		return
	}
	c.JSON(http.StatusOK, m)
}
