package handlers

import (
	"net/http"

	"fleetledger/internal/common"
	"fleetledger/internal/models"
	"fleetledger/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type UnitHandlers struct {
	units services.UnitService
}

func NewUnitHandlers(units services.UnitService) *UnitHandlers {
	return &UnitHandlers{units: units}
}

// CreateUnitsRequest picks a code generator: explicit Codes, a sequence
// from Start, or random codes with CodePrefix.
type CreateUnitsRequest struct {
	LocationID   uuid.UUID `json:"location_id"`
	Count        int       `json:"count"`
	CodeCategory string    `json:"code_category"`
	Codes        []string  `json:"codes"`
	CodePrefix   string    `json:"code_prefix"`
	Start        int       `json:"start"`
}

func (r CreateUnitsRequest) generator() services.CodeGenerator {
	switch {
	case len(r.Codes) > 0:
		return services.StaticCodeGenerator(r.Codes)
	case r.Start > 0:
		return services.NewSequentialCodeGenerator(r.CodePrefix, r.Start)
	}
	return services.RandomCodeGenerator{Prefix: r.CodePrefix}
}

type MoveUnitRequest struct {
	LocationID uuid.UUID `json:"location_id"`
}

type SetUnitStatusRequest struct {
	Status models.UnitStatus `json:"status"`
}

func (h *UnitHandlers) CreateUnits(c echo.Context) error {
	itemID, ok, err := pathUUID(c, "itemId")
	if !ok {
		return err
	}
	var req CreateUnitsRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if len(req.Codes) > 0 && req.Count == 0 {
		req.Count = len(req.Codes)
	}
	if req.Count <= 0 || req.Count > 1000 {
		return common.SendValidationError(c, "count", "count must be between 1 and 1000")
	}

	units, err := h.units.CreateUnits(c.Request().Context(), itemID, req.LocationID, req.Count, req.CodeCategory, req.generator())
	if err != nil && len(units) == 0 {
		return common.SendLedgerError(c, err)
	}
	resp := map[string]interface{}{"units": units}
	if err != nil {
		// Units are stored; only the bulk credit failed.
		c.Response().Header().Set("Warning", `199 - "bulk stock not credited"`)
		resp["warning"] = err.Error()
	}
	return c.JSON(http.StatusCreated, resp)
}

func (h *UnitHandlers) ListUnits(c echo.Context) error {
	itemID, ok, err := pathUUID(c, "itemId")
	if !ok {
		return err
	}
	limit, offset, err := pagination(c)
	if err != nil {
		return common.SendValidationError(c, "pagination", err.Error())
	}
	filter := models.UnitFilter{Limit: limit, Offset: offset}
	if raw := c.QueryParam("location_id"); raw != "" {
		loc, err := common.ValidateUUID(raw, "location_id")
		if err != nil {
			return common.SendValidationError(c, "location_id", err.Error())
		}
		filter.LocationID = &loc
	}
	if raw := c.QueryParam("status"); raw != "" {
		status := models.UnitStatus(raw)
		filter.Status = &status
	}

	units, err := h.units.ListUnits(c.Request().Context(), itemID, filter)
	if err != nil {
		return common.SendLedgerError(c, err)
	}
	if units == nil {
		units = []*models.IndividualUnit{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"units":  units,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *UnitHandlers) GetUnit(c echo.Context) error {
	id, ok, err := pathUUID(c, "id")
	if !ok {
		return err
	}
	unit, err := h.units.GetUnit(c.Request().Context(), id)
	if err != nil {
		return common.SendLedgerError(c, err)
	}
	return c.JSON(http.StatusOK, unit)
}

func (h *UnitHandlers) MoveUnit(c echo.Context) error {
	id, ok, err := pathUUID(c, "id")
	if !ok {
		return err
	}
	var req MoveUnitRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	unit, err := h.units.TransferUnit(c.Request().Context(), id, req.LocationID)
	if err != nil {
		return common.SendLedgerError(c, err)
	}
	return c.JSON(http.StatusOK, unit)
}

func (h *UnitHandlers) SetUnitStatus(c echo.Context) error {
	id, ok, err := pathUUID(c, "id")
	if !ok {
		return err
	}
	var req SetUnitStatusRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	unit, err := h.units.SetStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return common.SendLedgerError(c, err)
	}
	return c.JSON(http.StatusOK, unit)
}

func (h *UnitHandlers) BulkTransferUnits(c echo.Context) error {
	var req models.UnitBulkTransfer
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if len(req.UnitIDs) == 0 {
		return common.SendValidationError(c, "unit_ids", "at least one unit is required")
	}
	if len(req.UnitIDs) > 1000 {
		return common.SendValidationError(c, "unit_ids", "cannot exceed 1000 units")
	}
	req.Actor = actor(c, req.Actor)

	result, err := h.units.BulkTransferUnits(c.Request().Context(), &req)
	if err != nil {
		return common.SendLedgerError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}
