package router

import (
	"fulfillment-service/internal/handlers"
	"fulfillment-service/internal/middleware"
	"fulfillment-service/internal/service"

	"github.com/gin-contrib/cors"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

func Router(inventory service.InventoryService, fulfillment service.FulfillmentService, log *zap.Logger) *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", middleware.HeaderUserID},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	inv := handlers.NewInventoryHandler(inventory, log)
	ful := handlers.NewFulfillmentHandler(fulfillment, log)

	api := r.Group("/api/v1", middleware.Operator(log))
	{
		api.POST("/products", inv.CreateProduct)
		api.GET("/products/:id", inv.GetProduct)
		api.GET("/products/:id/inventory", inv.GetProductInventory)

		api.GET("/warehouses", inv.ListWarehouses)
		api.GET("/warehouses/:id", inv.GetWarehouse)
		api.PUT("/warehouses/:id", inv.UpsertWarehouse)
		api.GET("/warehouses/:id/expiring", inv.GetExpiringLots)
		api.GET("/warehouses/:id/replenishment", inv.GetReplenishmentCandidates)
		api.GET("/warehouses/:id/consolidation", inv.GetConsolidationOpportunities)

		api.POST("/lots", inv.ReceiveLot)
		api.GET("/lots", inv.ListLots)
		api.GET("/lots/:id", inv.GetLot)
		api.PATCH("/lots/:id/status", inv.UpdateLotStatus)
		api.POST("/expiry-check", inv.RunExpiryCheck)

		api.POST("/allocations", inv.Allocate)
		api.POST("/allocations/release", inv.Release)
		api.POST("/allocations/fulfill", inv.Fulfill)

		api.POST("/pick-lists", ful.CreatePickList)
		api.GET("/pick-lists", ful.ListPickLists)
		api.GET("/pick-lists/:id", ful.GetPickList)
		api.POST("/pick-lists/:id/assign", ful.AssignPickList)
		api.POST("/pick-lists/:id/start", middleware.RequireOperator(), ful.StartPickList)
		api.POST("/pick-lists/:id/items/:itemId/pick", middleware.RequireOperator(), ful.RecordPick)
		api.POST("/pick-lists/:id/complete", ful.CompletePickList)
		api.POST("/pick-lists/:id/cancel", ful.CancelPickList)
		api.POST("/pick-lists/:id/pack-list", ful.CreatePackList)

		api.GET("/pack-lists", ful.ListPackLists)
		api.GET("/pack-lists/:id", ful.GetPackList)
		api.POST("/pack-lists/:id/assign", ful.AssignPackList)
		api.POST("/pack-lists/:id/start", middleware.RequireOperator(), ful.StartPackList)
		api.PATCH("/pack-lists/:id/packages/:packageId", ful.RecordPackage)
		api.POST("/pack-lists/:id/complete", ful.CompletePackList)

		api.GET("/metrics/picking", ful.GetPickingMetrics)
		api.GET("/metrics/packing", ful.GetPackingMetrics)
	}

	return r
}
