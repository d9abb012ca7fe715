package sheets

import (
	"context"

	"bankdash/internal/core"
)

// Ports for outbound adapters.
type (
	// ActivityExporter records completed transfers in an external activity log.
	ActivityExporter interface {
		// AppendTransfer writes one row and returns a reference to it.
		AppendTransfer(ctx context.Context, t core.Transfer) (rowRef string, err error)
	}

	// ActivityLister reads back the exported rows, newest last.
	ActivityLister interface {
		ListActivity(ctx context.Context) ([]ActivityRow, error)
	}
)

// ActivityRow is one exported transfer as it appears in the sheet.
type ActivityRow struct {
	Date          string
	TransferID    string
	FromAccountID string
	ToAccountID   string
	Amount        string
	Status        string
}

// Header is the first row of an activity sheet.
var Header = []string{"Date", "Transfer ID", "From", "To", "Amount", "Status"}

// NewActivityRow formats a transfer for export. Amounts keep two decimals so
// spreadsheet locales never reinterpret them.
func NewActivityRow(t core.Transfer) ActivityRow {
	return ActivityRow{
		Date:          t.Date.String(),
		TransferID:    t.ID,
		FromAccountID: t.FromAccountID,
		ToAccountID:   t.ToAccountID,
		Amount:        t.Amount.String(),
		Status:        string(t.Status),
	}
}

// Values returns the row in Header order.
func (r ActivityRow) Values() []any {
	return []any{r.Date, r.TransferID, r.FromAccountID, r.ToAccountID, r.Amount, r.Status}
}

// ActivityRowFromValues is the inverse of Values. Missing trailing cells are empty.
func ActivityRowFromValues(vals []string) ActivityRow {
	get := func(i int) string {
		if i < len(vals) {
			return vals[i]
		}
		return ""
	}
	return ActivityRow{
		Date:          get(0),
		TransferID:    get(1),
		FromAccountID: get(2),
		ToAccountID:   get(3),
		Amount:        get(4),
		Status:        get(5),
	}
}
