package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	portssvc "github.com/perfinapp/ledger_engine/internal/core/ports/services"
	"github.com/perfinapp/ledger_engine/internal/dto"
	"github.com/perfinapp/ledger_engine/internal/middleware"
)

// reportingHandler handles HTTP requests for financial report projections.
type reportingHandler struct {
	reportingService portssvc.ReportingSvcFacade
}

// newReportingHandler creates a new reportingHandler.
func newReportingHandler(reportingService portssvc.ReportingSvcFacade) *reportingHandler {
	return &reportingHandler{
		reportingService: reportingService,
	}
}

// getBalanceSheet returns current balances grouped by type, with totals.
func (h *reportingHandler) getBalanceSheet(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	ownerID, ok := middleware.GetUserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	report, err := h.reportingService.BalanceSheet(c.Request.Context(), ownerID)
	if err != nil {
		logger.Error("Failed to build balance sheet", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to build balance sheet"})
		return
	}

	c.JSON(http.StatusOK, dto.ToBalanceSheetResponse(report, time.Now().UTC()))
}

// getNetWorth returns total assets minus total liabilities.
func (h *reportingHandler) getNetWorth(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	ownerID, ok := middleware.GetUserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	netWorth, err := h.reportingService.NetWorth(c.Request.Context(), ownerID)
	if err != nil {
		logger.Error("Failed to compute net worth", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to compute net worth"})
		return
	}

	c.JSON(http.StatusOK, dto.NetWorthResponse{
		AsOf:     time.Now().UTC().Format(time.RFC3339),
		NetWorth: netWorth,
	})
}

// getTrialBalance returns per-account debit/credit columns with totals.
func (h *reportingHandler) getTrialBalance(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	ownerID, ok := middleware.GetUserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	rows, err := h.reportingService.TrialBalance(c.Request.Context(), ownerID)
	if err != nil {
		logger.Error("Failed to build trial balance", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to build trial balance"})
		return
	}

	c.JSON(http.StatusOK, dto.ToTrialBalanceResponse(rows, time.Now().UTC()))
}

// registerReportingRoutes registers reporting specific routes
func registerReportingRoutes(group *gin.RouterGroup, reportingService portssvc.ReportingSvcFacade) {
	h := newReportingHandler(reportingService)

	reports := group.Group("/reports")
	{
		reports.GET("/balance-sheet", h.getBalanceSheet)
		reports.GET("/net-worth", h.getNetWorth)
		reports.GET("/trial-balance", h.getTrialBalance)
	}
}
