package handlers

import (
	"net/http"

	"fleetledger/internal/common"
	"fleetledger/internal/models"
	"fleetledger/internal/services"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type ReconciliationHandlers struct {
	recon   services.ReconciliationService
	reports services.ReportStore
	logger  zerolog.Logger
}

// NewReconciliationHandlers builds the handlers. reports may be nil when
// object storage is not configured; archiving is then refused.
func NewReconciliationHandlers(recon services.ReconciliationService, reports services.ReportStore, logger zerolog.Logger) *ReconciliationHandlers {
	return &ReconciliationHandlers{
		recon:   recon,
		reports: reports,
		logger:  logger.With().Str("component", "reconciliation_handlers").Logger(),
	}
}

type ReconciliationResponse struct {
	*models.ReconciliationReport
	DownloadURL string `json:"download_url,omitempty"`
}

// GetReport builds a fresh report. With ?archive=true it is also stored
// and a presigned download URL is returned.
func (h *ReconciliationHandlers) GetReport(c echo.Context) error {
	itemID, ok, err := pathUUID(c, "itemId")
	if !ok {
		return err
	}
	ctx := c.Request().Context()

	report, err := h.recon.Report(ctx, itemID)
	if err != nil {
		return common.SendLedgerError(c, err)
	}
	resp := ReconciliationResponse{ReconciliationReport: report}
	if c.QueryParam("archive") != "true" {
		return c.JSON(http.StatusOK, resp)
	}

	if h.reports == nil {
		return c.JSON(http.StatusServiceUnavailable, common.CreateErrorResponse("STORAGE_UNAVAILABLE", "report storage is not configured", nil))
	}
	key, err := h.reports.PutReport(ctx, report)
	if err != nil {
		h.logger.Error().Err(err).Str("item_id", itemID.String()).Msg("archive reconciliation report")
		return common.SendServerError(c, "failed to archive report")
	}
	report.ArchiveKey = key
	if resp.DownloadURL, err = h.reports.PresignedURL(ctx, key); err != nil {
		h.logger.Warn().Err(err).Str("key", key).Msg("presign reconciliation report")
	}
	return c.JSON(http.StatusOK, resp)
}
