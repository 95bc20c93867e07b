package portval

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) (*Core, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "portval-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	dbPath := filepath.Join(tmpDir, "test.db")
	core, err := Open(dbPath)
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("failed to open test db: %v", err)
	}

	cleanup := func() {
		core.Close()
		os.RemoveAll(tmpDir)
	}

	return core, cleanup
}

// seedPrices stores prices keyed by asset and ISO date.
func seedPrices(t *testing.T, core *Core, prices map[string]map[string]string) {
	t.Helper()
	var rows []Price
	for asset, byDate := range prices {
		for date, price := range byDate {
			rows = append(rows, Price{
				AssetName: asset,
				Date:      MustParseDate(date),
				Price:     MustAmount(price),
			})
		}
	}
	if _, err := core.AddPrices(context.Background(), rows); err != nil {
		t.Fatalf("AddPrices: %v", err)
	}
}

// seedScenario builds portfolio P: V0=1e9 at 2022-02-15 split 60/40 between
// EEUU and Europa. EEUU has no price on 2022-02-17.
func seedScenario(t *testing.T, core *Core) int64 {
	t.Helper()
	ctx := context.Background()

	seedPrices(t, core, map[string]map[string]string{
		"EEUU": {
			"2022-02-15": "100",
			"2022-02-16": "101",
			"2022-05-14": "118",
			"2022-05-15": "120",
			"2022-05-16": "121",
		},
		"Europa": {
			"2022-02-15": "50",
			"2022-02-16": "51",
			"2022-02-17": "52",
			"2022-05-14": "54",
			"2022-05-15": "55",
			"2022-05-16": "56",
		},
	})

	pid, err := core.UpsertPortfolio(ctx, "P", decimal.NewFromInt(1_000_000_000), MustParseDate("2022-02-15"))
	if err != nil {
		t.Fatalf("UpsertPortfolio: %v", err)
	}
	if err := core.SetInitialWeight(ctx, pid, "EEUU", decimal.RequireFromString("0.6")); err != nil {
		t.Fatalf("SetInitialWeight EEUU: %v", err)
	}
	if err := core.SetInitialWeight(ctx, pid, "Europa", decimal.RequireFromString("0.4")); err != nil {
		t.Fatalf("SetInitialWeight Europa: %v", err)
	}
	return pid
}

// scenarioTrade is the 2022-05-15 rebalance of 200M from EEUU into Europa.
func scenarioTrade(pid int64) TradeRequest {
	return TradeRequest{
		PortfolioID: pid,
		Date:        MustParseDate("2022-05-15"),
		AssetSell:   "EEUU",
		ValueSell:   decimal.NewFromInt(200_000_000),
		AssetBuy:    "Europa",
		ValueBuy:    decimal.NewFromInt(200_000_000),
	}
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	if !decimal.RequireFromString(want).Equal(got) {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func assertErrorCode(t *testing.T, err error, code ErrorCode) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	if !IsErrorCode(err, code) {
		t.Fatalf("expected %s error, got %v", code, err)
	}
}
