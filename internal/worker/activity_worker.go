package worker

import (
	"context"
	"fmt"
	"sync/atomic"

	"bankdash/internal/amqp"
	"bankdash/internal/log"
	"bankdash/internal/sheets"
)

// ActivityWorker records completed transfers received from the broker.
type ActivityWorker struct {
	exporter sheets.ActivityExporter
	logger   *log.Logger

	processed atomic.Int64
	failed    atomic.Int64
}

// NewActivityWorker creates a worker. A nil exporter only logs messages.
func NewActivityWorker(exporter sheets.ActivityExporter, logger *log.Logger) *ActivityWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ActivityWorker{
		exporter: exporter,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// HandleTransferMessage processes a single transfer message from AMQP.
// A returned error makes the consumer requeue the message.
func (w *ActivityWorker) HandleTransferMessage(ctx context.Context, msg *amqp.TransferCompletedMessage) error {
	t := msg.Transfer()
	fields := log.NewFields().
		WithOperation(log.OpExport).
		WithTransfer(t.ID, t.FromAccountID, t.ToAccountID, t.Amount.Cents)

	w.logger.InfoContext(ctx, "Processing transfer message", fields.ToSlice()...)

	if w.exporter == nil {
		w.logger.DebugContext(ctx, "No activity exporter configured, skipping export",
			log.FieldTransferID, t.ID)
		w.processed.Add(1)
		return nil
	}

	ref, err := w.exporter.AppendTransfer(ctx, t)
	if err != nil {
		w.failed.Add(1)
		w.logger.ErrorContext(ctx, "Failed to export transfer", fields.WithError(err).ToSlice()...)
		return fmt.Errorf("export transfer %s: %w", t.ID, err)
	}
	w.processed.Add(1)

	w.logger.InfoContext(ctx, "Transfer exported",
		log.FieldTransferID, t.ID,
		log.FieldSheetsRef, ref)
	return nil
}

// Stats reports how many messages were handled and how many exports failed.
func (w *ActivityWorker) Stats() (processed, failed int64) {
	return w.processed.Load(), w.failed.Load()
}

// ExportedRows counts the rows held by the exporter. ok is false when the
// exporter cannot list its rows.
func (w *ActivityWorker) ExportedRows(ctx context.Context) (n int, ok bool, err error) {
	lister, ok := w.exporter.(sheets.ActivityLister)
	if !ok {
		return 0, false, nil
	}
	rows, err := lister.ListActivity(ctx)
	if err != nil {
		return 0, true, fmt.Errorf("list activity: %w", err)
	}
	return len(rows), true, nil
}
