package memory

import (
	"context"
	"fmt"
	"sync"

	"bankdash/internal/core"
	ports "bankdash/internal/sheets"
)

var (
	_ ports.ActivityExporter = (*Exporter)(nil)
	_ ports.ActivityLister   = (*Exporter)(nil)
)

// Exporter keeps exported rows in process. It backs the worker when no
// spreadsheet is configured.
type Exporter struct {
	mu   sync.Mutex
	rows []ports.ActivityRow
	// transfer id -> row number, so redelivered messages are not duplicated
	index map[string]int
}

func New() *Exporter {
	return &Exporter{index: make(map[string]int)}
}

// AppendTransfer stores the transfer and returns a synthetic row reference.
func (e *Exporter) AppendTransfer(_ context.Context, t core.Transfer) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if n, ok := e.index[t.ID]; ok {
		return fmt.Sprintf("mem:%d", n), nil
	}
	e.rows = append(e.rows, ports.NewActivityRow(t))
	n := len(e.rows)
	e.index[t.ID] = n
	return fmt.Sprintf("mem:%d", n), nil
}

func (e *Exporter) ListActivity(_ context.Context) ([]ports.ActivityRow, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]ports.ActivityRow(nil), e.rows...), nil
}
