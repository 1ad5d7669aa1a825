package handlers

import (
	"fmt"
	"net/http"

	"fleetledger/internal/common"
	"fleetledger/internal/models"
	"fleetledger/internal/services"

	"github.com/labstack/echo/v4"
)

// StockHandlers exposes the ledger.
type StockHandlers struct {
	ledger services.LedgerService
}

func NewStockHandlers(ledger services.LedgerService) *StockHandlers {
	return &StockHandlers{ledger: ledger}
}

type SetStockRequest struct {
	Quantity *int `json:"quantity"`
}

type AdjustStockRequest struct {
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

func entryETag(e *models.StockEntry) string {
	return fmt.Sprintf(`"%d"`, e.Version)
}

// GetItemStock returns the per-location breakdown and total for an item.
func (h *StockHandlers) GetItemStock(c echo.Context) error {
	itemID, ok, err := pathUUID(c, "itemId")
	if !ok {
		return err
	}
	stock, err := h.ledger.ItemStock(c.Request().Context(), itemID)
	if err != nil {
		return common.SendLedgerError(c, err)
	}
	return c.JSON(http.StatusOK, stock)
}

// GetStock returns one cell. The ETag is the entry version; a matching
// If-None-Match gets 304.
func (h *StockHandlers) GetStock(c echo.Context) error {
	itemID, ok, err := pathUUID(c, "itemId")
	if !ok {
		return err
	}
	locationID, ok, err := pathUUID(c, "locationId")
	if !ok {
		return err
	}

	entry, err := h.ledger.GetEntry(c.Request().Context(), itemID, locationID)
	if err != nil {
		return common.SendLedgerError(c, err)
	}
	etag := entryETag(entry)
	c.Response().Header().Set("ETag", etag)
	if c.Request().Header.Get("If-None-Match") == etag {
		return c.NoContent(http.StatusNotModified)
	}
	return c.JSON(http.StatusOK, entry)
}

func (h *StockHandlers) SetStock(c echo.Context) error {
	itemID, ok, err := pathUUID(c, "itemId")
	if !ok {
		return err
	}
	locationID, ok, err := pathUUID(c, "locationId")
	if !ok {
		return err
	}
	var req SetStockRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if req.Quantity == nil {
		return common.SendValidationError(c, "quantity", "quantity is required")
	}

	entry, err := h.ledger.SetQuantity(c.Request().Context(), itemID, locationID, *req.Quantity)
	if err != nil {
		return common.SendLedgerError(c, err)
	}
	c.Response().Header().Set("ETag", entryETag(entry))
	return c.JSON(http.StatusOK, entry)
}

func (h *StockHandlers) AdjustStock(c echo.Context) error {
	itemID, ok, err := pathUUID(c, "itemId")
	if !ok {
		return err
	}
	locationID, ok, err := pathUUID(c, "locationId")
	if !ok {
		return err
	}
	var req AdjustStockRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	entry, err := h.ledger.AdjustWithReason(c.Request().Context(), itemID, locationID, req.Delta, req.Reason)
	if err != nil {
		return common.SendLedgerError(c, err)
	}
	c.Response().Header().Set("ETag", entryETag(entry))
	return c.JSON(http.StatusOK, entry)
}

func (h *StockHandlers) BulkAdjust(c echo.Context) error {
	var req models.StockBulkAdjust
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if len(req.Adjustments) == 0 {
		return common.SendValidationError(c, "adjustments", "at least one adjustment is required")
	}
	if len(req.Adjustments) > 1000 {
		return common.SendValidationError(c, "adjustments", "cannot exceed 1000 adjustments")
	}

	result, err := h.ledger.BulkAdjust(c.Request().Context(), &req)
	if err != nil {
		return common.SendLedgerError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}
