package handlers

import (
	"net/http"

	"fleetledger/internal/common"
	"fleetledger/internal/models"
	"fleetledger/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type AllocationHandlers struct {
	allocations services.AllocationService
}

func NewAllocationHandlers(allocations services.AllocationService) *AllocationHandlers {
	return &AllocationHandlers{allocations: allocations}
}

// PlanRequest asks for a proposal. Existing holds rows the caller already
// picked; the planner fills the rest.
type PlanRequest struct {
	ItemID              uuid.UUID           `json:"item_id"`
	TotalQuantityNeeded int                 `json:"total_quantity_needed"`
	Existing            []models.Allocation `json:"existing"`
}

func (h *AllocationHandlers) Plan(c echo.Context) error {
	var req PlanRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if req.ItemID == uuid.Nil {
		return common.SendValidationError(c, "item_id", "item_id is required")
	}

	plan, err := h.allocations.Propose(c.Request().Context(), req.ItemID, req.TotalQuantityNeeded, req.Existing)
	if err != nil {
		return common.SendLedgerError(c, err)
	}
	return c.JSON(http.StatusOK, plan)
}

func (h *AllocationHandlers) Commit(c echo.Context) error {
	var req models.AllocationRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if req.ItemID == uuid.Nil {
		return common.SendValidationError(c, "item_id", "item_id is required")
	}
	req.Actor = actor(c, req.Actor)

	result, err := h.allocations.Commit(c.Request().Context(), &req)
	if err != nil {
		return common.SendLedgerError(c, err)
	}
	if result.Degraded {
		c.Response().Header().Set("Warning", `199 - "transfer records not written"`)
	}
	return c.JSON(http.StatusCreated, result)
}
