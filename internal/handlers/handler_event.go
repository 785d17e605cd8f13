package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/perfinapp/ledger_engine/internal/apperrors"
	"github.com/perfinapp/ledger_engine/internal/core/domain"
	portssvc "github.com/perfinapp/ledger_engine/internal/core/ports/services"
	"github.com/perfinapp/ledger_engine/internal/core/services"
	"github.com/perfinapp/ledger_engine/internal/dto"
	"github.com/perfinapp/ledger_engine/internal/middleware"
)

// EventEnqueuer queues a financial event for background ingestion. It is a
// closure over the job client so handlers stay free of queue plumbing.
type EventEnqueuer func(ctx context.Context, event domain.FinancialEvent) error

// eventHandler receives financial events from the expense and income services.
type eventHandler struct {
	ingestionService portssvc.IngestionSvcFacade
	enqueueEvent     EventEnqueuer
	async            bool
}

// newEventHandler creates a new eventHandler. When async is true and an
// enqueuer is available, events are accepted with 202 and applied by a worker.
func newEventHandler(ingestionService portssvc.IngestionSvcFacade, enqueueEvent EventEnqueuer, async bool) *eventHandler {
	return &eventHandler{
		ingestionService: ingestionService,
		enqueueEvent:     enqueueEvent,
		async:            async && enqueueEvent != nil,
	}
}

// receiveFinancialEvent is the webhook endpoint for expense.created and
// income.received events. Replays of an already-applied event ID are
// acknowledged without posting anything.
func (h *eventHandler) receiveFinancialEvent(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.FinancialEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Error("Failed to bind JSON for financial event", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid event format"})
		return
	}

	event := req.ToDomainEvent()
	logger = logger.With(slog.String("event_id", event.EventID), slog.String("event_type", event.EventType))

	if h.async {
		if err := h.enqueueEvent(c.Request.Context(), event); err != nil {
			logger.Error("Failed to enqueue event", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to accept event"})
			return
		}
		logger.Info("Event accepted for background ingestion")
		c.JSON(http.StatusAccepted, gin.H{"eventID": event.EventID, "status": "accepted"})
		return
	}

	result, err := h.ingestionService.IngestEvent(c.Request.Context(), event)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnknownEventSchema), errors.Is(err, apperrors.ErrValidation):
			logger.Warn("Rejected unprocessable event", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		case errors.Is(err, services.ErrSourceAccountResolution):
			logger.Warn("Could not resolve accounts for event", slog.String("error", err.Error()))
			c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
		default:
			logger.Error("Failed to ingest event", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to ingest event"})
		}
		return
	}

	if result.Duplicate {
		logger.Info("Duplicate event acknowledged", slog.String("entry_id", result.EntryID))
		c.JSON(http.StatusOK, gin.H{"eventID": event.EventID, "entryID": result.EntryID, "duplicate": true})
		return
	}

	logger.Info("Event ingested", slog.String("entry_id", result.EntryID))
	c.JSON(http.StatusCreated, gin.H{"eventID": event.EventID, "entryID": result.EntryID, "duplicate": false})
}
