package memory

import (
	"context"
	"testing"
	"time"

	"bankdash/internal/core"
)

func transfer(id string) core.Transfer {
	return core.Transfer{
		ID:            id,
		FromAccountID: "1",
		ToAccountID:   "2",
		Amount:        core.Cents(123),
		Date:          core.NewTimestamp(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		Status:        core.TransferCompleted,
	}
}

func TestExporterAppendAndList(t *testing.T) {
	e := New()
	ref, err := e.AppendTransfer(context.Background(), transfer("a"))
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}
	ref, err = e.AppendTransfer(context.Background(), transfer("b"))
	if err != nil || ref != "mem:2" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}

	rows, err := e.ListActivity(context.Background())
	if err != nil || len(rows) != 2 {
		t.Fatalf("unexpected list: rows=%v err=%v", rows, err)
	}
	if rows[0].TransferID != "a" || rows[1].Amount != "1.23" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestExporterIgnoresRedelivery(t *testing.T) {
	e := New()
	first, _ := e.AppendTransfer(context.Background(), transfer("a"))
	again, err := e.AppendTransfer(context.Background(), transfer("a"))
	if err != nil || again != first {
		t.Fatalf("expected same ref %q, got %q err=%v", first, again, err)
	}
	rows, _ := e.ListActivity(context.Background())
	if len(rows) != 1 {
		t.Fatalf("expected one row, got %d", len(rows))
	}
}

func TestExporterRejectsInvalidTransfer(t *testing.T) {
	e := New()
	bad := transfer("")
	if _, err := e.AppendTransfer(context.Background(), bad); err == nil {
		t.Fatal("expected validation error")
	}
}
