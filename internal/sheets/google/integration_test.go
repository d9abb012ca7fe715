//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"bankdash/internal/config"
	"bankdash/internal/core"
)

// Integration tests require real Google Sheets credentials
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_ActivityExport(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	if os.Getenv("GOOGLE_SPREADSHEET_ID") == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}

	ctx := context.Background()
	opts, err := OptionsFromConfig(config.Load())
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	client, err := New(ctx, opts)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	tr := core.Transfer{
		ID:            uuid.NewString(),
		FromAccountID: "1",
		ToAccountID:   "2",
		Amount:        core.Cents(1),
		Date:          core.NewTimestamp(time.Now()),
		Status:        core.TransferCompleted,
	}
	ref, err := client.AppendTransfer(ctx, tr)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	again, err := client.AppendTransfer(ctx, tr)
	if err != nil || again != ref {
		t.Fatalf("redelivery wrote a new row: %q vs %q (err=%v)", again, ref, err)
	}

	rows, err := client.ListActivity(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	found := false
	for _, r := range rows {
		if r.TransferID == tr.ID {
			found = true
		}
	}
	if !found {
		t.Errorf("transfer %s not listed", tr.ID)
	}
}
