package portval

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestApplyTradeScenario(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	pid := seedScenario(t, core)

	result, err := core.ApplyTrade(ctx, scenarioTrade(pid))
	require.NoError(t, err)
	assertDecimal(t, "1666666.66666667", result.UnitsSell.Decimal)
	assertDecimal(t, "3636363.63636364", result.UnitsBuy.Decimal)
	assertDecimal(t, "120", result.PriceSell.Decimal)
	assertDecimal(t, "55", result.PriceBuy.Decimal)
	require.Equal(t, MustParseDate("2022-05-15"), result.PriceDateSell)
	require.Equal(t, MustParseDate("2022-05-15"), result.PriceDateBuy)
	require.Equal(t, 2, result.Recorded)

	rows, err := core.ListAdjustments(ctx, pid)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	byAsset := map[string]HoldingAdjustment{}
	for _, r := range rows {
		require.Equal(t, MustParseDate("2022-05-15"), r.EffectiveDate)
		byAsset[r.AssetName] = r
	}
	assertDecimal(t, "-1666666.66666667", byAsset["EEUU"].DeltaUnits.Decimal)
	assertDecimal(t, "3636363.63636364", byAsset["Europa"].DeltaUnits.Decimal)
}

func TestApplyTradeIsIdempotent(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	pid := seedScenario(t, core)

	first, err := core.ApplyTrade(ctx, scenarioTrade(pid))
	require.NoError(t, err)
	require.Equal(t, 2, first.Recorded)

	second, err := core.ApplyTrade(ctx, scenarioTrade(pid))
	require.NoError(t, err)
	require.Equal(t, 0, second.Recorded)
	require.True(t, first.UnitsSell.Equal(second.UnitsSell.Decimal))

	rows, err := core.ListAdjustments(ctx, pid)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	logs, err := core.GetOperationLogs(ctx, 0, 0)
	require.NoError(t, err)
	trades := 0
	for _, l := range logs {
		if l.Operation == OperationTrade {
			trades++
		}
	}
	require.Equal(t, 1, trades)
}

func TestApplyTradeFallbackToPreviousPrice(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	pid := seedScenario(t, core)

	req := scenarioTrade(pid)
	req.Date = MustParseDate("2022-05-20")

	_, err := core.ApplyTrade(ctx, req)
	assertErrorCode(t, err, ErrCodeMissingData)

	req.FallbackToPreviousPrice = true
	result, err := core.ApplyTrade(ctx, req)
	require.NoError(t, err)
	assertDecimal(t, "121", result.PriceSell.Decimal)
	assertDecimal(t, "56", result.PriceBuy.Decimal)
	require.Equal(t, MustParseDate("2022-05-16"), result.PriceDateSell)
	require.Equal(t, MustParseDate("2022-05-16"), result.PriceDateBuy)

	// The ledger rows keep the requested date.
	rows, err := core.ListAdjustments(ctx, pid)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		require.Equal(t, MustParseDate("2022-05-20"), r.EffectiveDate)
	}

	// Nothing on or before the date is fatal even with fallback.
	req.Date = MustParseDate("2020-01-01")
	_, err = core.ApplyTrade(ctx, req)
	assertErrorCode(t, err, ErrCodeMissingData)
}

func TestApplyTradeIsAtomic(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	pid := seedScenario(t, core)

	// Europa is priced on 2022-02-17 but EEUU is not.
	req := scenarioTrade(pid)
	req.Date = MustParseDate("2022-02-17")
	req.AssetSell, req.AssetBuy = "Europa", "EEUU"

	_, err := core.ApplyTrade(ctx, req)
	assertErrorCode(t, err, ErrCodeMissingData)

	rows, err := core.ListAdjustments(ctx, pid)
	require.NoError(t, err)
	require.Empty(t, rows)

	logs, err := core.GetOperationLogs(ctx, 0, 0)
	require.NoError(t, err)
	require.Empty(t, logs)
}

func TestApplyTradeRollsBackWhenBuyLegFails(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	pid := seedScenario(t, core)

	// The sell leg (negative delta) is written first; reject the buy leg.
	_, err := core.db.ExecContext(ctx, `
		CREATE TRIGGER reject_buy_leg BEFORE INSERT ON holding_adjustments
		WHEN NEW.delta_units NOT LIKE '-%'
		BEGIN
			SELECT RAISE(ABORT, 'buy leg rejected');
		END
	`)
	require.NoError(t, err)

	_, err = core.ApplyTrade(ctx, scenarioTrade(pid))
	assertErrorCode(t, err, ErrCodeDatabase)

	rows, err := core.ListAdjustments(ctx, pid)
	require.NoError(t, err)
	require.Empty(t, rows)

	logs, err := core.GetOperationLogs(ctx, 0, 0)
	require.NoError(t, err)
	require.Empty(t, logs)

	// Once the fault is gone the same trade records both legs.
	_, err = core.db.ExecContext(ctx, "DROP TRIGGER reject_buy_leg")
	require.NoError(t, err)
	result, err := core.ApplyTrade(ctx, scenarioTrade(pid))
	require.NoError(t, err)
	require.Equal(t, 2, result.Recorded)
}

func TestApplyTradeValidation(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	pid := seedScenario(t, core)

	tests := []struct {
		name   string
		modify func(*TradeRequest)
		code   ErrorCode
	}{
		{"same asset", func(r *TradeRequest) { r.AssetBuy = r.AssetSell }, ErrCodeValidation},
		{"zero sell", func(r *TradeRequest) { r.ValueSell = decimal.Zero }, ErrCodeValidation},
		{"negative buy", func(r *TradeRequest) { r.ValueBuy = decimal.NewFromInt(-5) }, ErrCodeValidation},
		{"missing asset", func(r *TradeRequest) { r.AssetBuy = "  " }, ErrCodeInvalidInput},
		{"unknown asset", func(r *TradeRequest) { r.AssetBuy = "Asia" }, ErrCodeNotFound},
		{"unknown portfolio", func(r *TradeRequest) { r.PortfolioID = 424242 }, ErrCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := scenarioTrade(pid)
			tt.modify(&req)
			_, err := core.ApplyTrade(ctx, req)
			assertErrorCode(t, err, tt.code)
		})
	}

	var zero TradeRequest
	zero.PortfolioID = pid
	_, err := core.ApplyTrade(ctx, zero)
	assertErrorCode(t, err, ErrCodeInvalidInput)
}
