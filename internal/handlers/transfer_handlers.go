package handlers

import (
	"net/http"

	"fleetledger/internal/common"
	"fleetledger/internal/models"
	"fleetledger/internal/services"

	"github.com/labstack/echo/v4"
)

type TransferHandlers struct {
	transfers services.TransferService
}

func NewTransferHandlers(transfers services.TransferService) *TransferHandlers {
	return &TransferHandlers{transfers: transfers}
}

// TransferResponse is a transfer result with the degraded-success warning
// spelled out for clients.
type TransferResponse struct {
	*models.TransferResult
	Warning string `json:"warning,omitempty"`
}

// CreateTransfer moves stock. A transfer whose audit record failed still
// returns 201, with degraded set and a Warning header.
func (h *TransferHandlers) CreateTransfer(c echo.Context) error {
	var req models.TransferRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	req.Actor = actor(c, req.Actor)

	result, err := h.transfers.Transfer(c.Request().Context(), req)
	if err != nil {
		return common.SendLedgerError(c, err)
	}
	resp := TransferResponse{TransferResult: result, Warning: result.Warning()}
	if resp.Warning != "" {
		c.Response().Header().Set("Warning", `199 - "transfer record not written"`)
	}
	return c.JSON(http.StatusCreated, resp)
}

func (h *TransferHandlers) ListTransfers(c echo.Context) error {
	itemID, ok, err := pathUUID(c, "itemId")
	if !ok {
		return err
	}
	limit, offset, err := pagination(c)
	if err != nil {
		return common.SendValidationError(c, "pagination", err.Error())
	}

	records, err := h.transfers.ListTransfers(c.Request().Context(), itemID, limit, offset)
	if err != nil {
		return common.SendLedgerError(c, err)
	}
	if records == nil {
		records = []*models.TransferRecord{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"transfers": records,
		"limit":     limit,
		"offset":    offset,
	})
}
