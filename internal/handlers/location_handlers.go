package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"fleetledger/internal/common"
	"fleetledger/internal/services"

	"github.com/labstack/echo/v4"
)

// LocationHandlers handles location registry requests
type LocationHandlers struct {
	locations services.LocationService
}

func NewLocationHandlers(locations services.LocationService) *LocationHandlers {
	return &LocationHandlers{locations: locations}
}

// CreateLocationRequest represents the location creation payload
type CreateLocationRequest struct {
	Name   string `json:"name"`
	Active *bool  `json:"active"`
}

type SetActiveRequest struct {
	Active *bool `json:"active"`
}

// ListLocations handles GET /locations?active_only=true&limit=&offset=
func (h *LocationHandlers) ListLocations(c echo.Context) error {
	limit, offset, err := pagination(c)
	if err != nil {
		return common.SendValidationError(c, "pagination", err.Error())
	}
	activeOnly := false
	if raw := c.QueryParam("active_only"); raw != "" {
		if activeOnly, err = strconv.ParseBool(raw); err != nil {
			return common.SendValidationError(c, "active_only", "must be a boolean")
		}
	}

	locations, err := h.locations.List(c.Request().Context(), activeOnly, limit, offset)
	if err != nil {
		return common.SendLedgerError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"locations": locations,
		"limit":     limit,
		"offset":    offset,
	})
}

func (h *LocationHandlers) CreateLocation(c echo.Context) error {
	var req CreateLocationRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if strings.TrimSpace(req.Name) == "" {
		return common.SendValidationError(c, "name", "name is required")
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	location, err := h.locations.Create(c.Request().Context(), req.Name, active)
	if err != nil {
		return common.SendLedgerError(c, err)
	}
	return c.JSON(http.StatusCreated, location)
}

func (h *LocationHandlers) GetLocation(c echo.Context) error {
	id, ok, err := pathUUID(c, "id")
	if !ok {
		return err
	}
	location, err := h.locations.Get(c.Request().Context(), id)
	if err != nil {
		return common.SendLedgerError(c, err)
	}
	return c.JSON(http.StatusOK, location)
}

// SetLocationActive updates only the active flag.
func (h *LocationHandlers) SetLocationActive(c echo.Context) error {
	id, ok, err := pathUUID(c, "id")
	if !ok {
		return err
	}
	var req SetActiveRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if req.Active == nil {
		return common.SendValidationError(c, "active", "active is required")
	}

	ctx := c.Request().Context()
	if err := h.locations.SetActive(ctx, id, *req.Active); err != nil {
		return common.SendLedgerError(c, err)
	}
	location, err := h.locations.Get(ctx, id)
	if err != nil {
		return common.SendLedgerError(c, err)
	}
	return c.JSON(http.StatusOK, location)
}
