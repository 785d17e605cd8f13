package ingestion

import (
	"context"
	"errors"
	"log/slog"

	"github.com/riverqueue/river"

	"github.com/perfinapp/ledger_engine/internal/apperrors"
	"github.com/perfinapp/ledger_engine/internal/core/domain"
	portssvc "github.com/perfinapp/ledger_engine/internal/core/ports/services"
	coresvc "github.com/perfinapp/ledger_engine/internal/core/services"
	"github.com/perfinapp/ledger_engine/internal/middleware"
)

// FinancialEventArgs is the job payload for asynchronous event ingestion.
// The whole event is carried in the job row so a worker can process it
// without calling back to the producer.
type FinancialEventArgs struct {
	Event domain.FinancialEvent `json:"event"`
}

func (FinancialEventArgs) Kind() string { return "ingest_financial_event" }

// EventWorker applies queued financial events to the ledger. Retries are
// safe: the idempotency record makes a second run of the same event a no-op.
type EventWorker struct {
	river.WorkerDefaults[FinancialEventArgs]
	ingestionSvc portssvc.IngestionSvcFacade
	logger       *slog.Logger
}

func NewEventWorker(ingestionSvc portssvc.IngestionSvcFacade, logger *slog.Logger) *EventWorker {
	return &EventWorker{
		ingestionSvc: ingestionSvc,
		logger:       logger,
	}
}

func (w *EventWorker) Work(ctx context.Context, job *river.Job[FinancialEventArgs]) error {
	event := job.Args.Event
	logger := w.logger.With(
		slog.String("event_id", event.EventID),
		slog.String("event_type", event.EventType),
		slog.Int64("job_id", job.ID),
	)
	ctx = middleware.ContextWithLogger(ctx, logger)

	result, err := w.ingestionSvc.IngestEvent(ctx, event)
	if err != nil {
		// Malformed or unrecognized events will never succeed, so cancel
		// instead of burning retries.
		if errors.Is(err, coresvc.ErrUnknownEventSchema) || errors.Is(err, apperrors.ErrValidation) {
			logger.Warn("Cancelling unprocessable event job", "error", err)
			return river.JobCancel(err)
		}
		// Everything else (missing target accounts, DB failures) is retried.
		return err
	}

	if result.Duplicate {
		logger.Info("Event already applied, skipping", slog.String("entry_id", result.EntryID))
		return nil
	}
	logger.Info("Event applied", slog.String("entry_id", result.EntryID))
	return nil
}
