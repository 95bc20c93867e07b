package portval

import (
	"context"
	"testing"
)

func stringPtr(s string) *string { return &s }

func TestOperationLogs(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	pid := int64(7)
	val := MustAmount("200000000")
	logID, err := core.AddOperationLog(ctx, OperationLog{
		Operation:   OperationTrade,
		PortfolioID: &pid,
		Asset:       stringPtr("EEUU"),
		Details:     stringPtr("ok"),
		Value:       &val,
	})
	if err != nil {
		t.Fatalf("AddOperationLog: %v", err)
	}
	if logID == 0 {
		t.Fatalf("expected log id")
	}

	if _, err := core.AddOperationLog(ctx, OperationLog{Operation: OperationImport}); err != nil {
		t.Fatalf("AddOperationLog (empty): %v", err)
	}

	logs, err := core.GetOperationLogs(ctx, 0, -1)
	if err != nil {
		t.Fatalf("GetOperationLogs: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 logs, got %d", len(logs))
	}
	if logs[0].Operation != OperationImport || logs[0].Value != nil || logs[0].PortfolioID != nil {
		t.Fatalf("unexpected newest log: %+v", logs[0])
	}
	trade := logs[1]
	if trade.PortfolioID == nil || *trade.PortfolioID != 7 {
		t.Fatalf("expected portfolio id 7, got %v", trade.PortfolioID)
	}
	if trade.Value == nil || trade.Value.String() != "200000000" {
		t.Fatalf("unexpected value %v", trade.Value)
	}
	if trade.CreatedAt == nil {
		t.Fatalf("expected created_at")
	}

	page, err := core.GetOperationLogs(ctx, 1, 1)
	if err != nil {
		t.Fatalf("GetOperationLogs page: %v", err)
	}
	if len(page) != 1 || page[0].ID != trade.ID {
		t.Fatalf("unexpected page %+v", page)
	}
}
