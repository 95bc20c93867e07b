package portval

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
)

func TestMethodsOnClosedDBReturnError(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	_ = core.Close()

	if _, err := core.ListPortfolios(ctx); err == nil {
		t.Fatalf("expected error from ListPortfolios")
	}
	if _, err := core.ListAssets(ctx); err == nil {
		t.Fatalf("expected error from ListAssets")
	}
	if _, err := core.UpsertPortfolio(ctx, "P", decimal.NewFromInt(1), MustParseDate("2022-01-01")); err == nil {
		t.Fatalf("expected error from UpsertPortfolio")
	}
	if _, err := core.AddOperationLog(ctx, OperationLog{Operation: "TEST"}); err == nil {
		t.Fatalf("expected error from AddOperationLog")
	}
	if _, err := core.GetOperationLogs(ctx, 10, 0); err == nil {
		t.Fatalf("expected error from GetOperationLogs")
	}
	if _, _, err := core.LastPriceDate(ctx); !IsErrorCode(err, ErrCodeDatabase) {
		t.Fatalf("expected DATABASE_ERROR from LastPriceDate, got %v", err)
	}
	if _, err := core.TimeSeries(ctx, 1, MustParseDate("2022-01-01"), MustParseDate("2022-01-02"), true); err == nil {
		t.Fatalf("expected error from TimeSeries")
	}
	if _, err := core.ApplyTrade(ctx, TradeRequest{
		PortfolioID: 1,
		Date:        MustParseDate("2022-01-01"),
		AssetSell:   "A",
		ValueSell:   decimal.NewFromInt(1),
		AssetBuy:    "B",
		ValueBuy:    decimal.NewFromInt(1),
	}); err == nil {
		t.Fatalf("expected error from ApplyTrade")
	}
}
