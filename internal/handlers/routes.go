package handlers

import (
	"fleetledger/internal/middleware"

	"github.com/labstack/echo/v4"
)

// Handlers groups every HTTP handler set registered by RegisterRoutes.
type Handlers struct {
	Health         *HealthHandlers
	Locations      *LocationHandlers
	Stock          *StockHandlers
	Transfers      *TransferHandlers
	Allocations    *AllocationHandlers
	Units          *UnitHandlers
	Reconciliation *ReconciliationHandlers
}

func RegisterRoutes(e *echo.Echo, vm *middleware.VersionMiddleware, h Handlers) {
	e.GET("/health", h.Health.HealthCheck)
	e.GET("/health/ready", h.Health.ReadinessCheck)

	v1 := vm.VersionRoute(e, "v1")

	v1.GET("/locations", h.Locations.ListLocations)
	v1.POST("/locations", h.Locations.CreateLocation)
	v1.GET("/locations/:id", h.Locations.GetLocation)
	v1.PUT("/locations/:id/active", h.Locations.SetLocationActive)

	v1.GET("/items/:itemId/stock", h.Stock.GetItemStock)
	v1.GET("/items/:itemId/stock/:locationId", h.Stock.GetStock)
	v1.PUT("/items/:itemId/stock/:locationId", h.Stock.SetStock)
	v1.POST("/items/:itemId/stock/:locationId/adjust", h.Stock.AdjustStock)
	v1.POST("/stock/bulk-adjust", h.Stock.BulkAdjust)

	v1.POST("/transfers", h.Transfers.CreateTransfer)
	v1.GET("/items/:itemId/transfers", h.Transfers.ListTransfers)

	v1.POST("/allocations/plan", h.Allocations.Plan)
	v1.POST("/allocations/commit", h.Allocations.Commit)

	v1.POST("/items/:itemId/units", h.Units.CreateUnits)
	v1.GET("/items/:itemId/units", h.Units.ListUnits)
	v1.GET("/units/:id", h.Units.GetUnit)
	v1.PUT("/units/:id/location", h.Units.MoveUnit)
	v1.PUT("/units/:id/status", h.Units.SetUnitStatus)
	v1.POST("/units/bulk-transfer", h.Units.BulkTransferUnits)

	v1.GET("/items/:itemId/reconciliation", h.Reconciliation.GetReport)
}
