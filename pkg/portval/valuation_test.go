package portval

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestInitialUnitsForAllAssets(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()
	pid := seedScenario(t, core)

	rows, err := core.InitialUnitsForAllAssets(context.Background(), pid)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "EEUU", rows[0].Asset)
	require.Equal(t, "Europa", rows[1].Asset)
	assertDecimal(t, "6000000", rows[0].Units.Decimal)
	assertDecimal(t, "8000000", rows[1].Units.Decimal)

	raw, err := json.Marshal(rows)
	require.NoError(t, err)
	require.JSONEq(t, `[{"asset":"EEUU","units":6000000},{"asset":"Europa","units":8000000}]`, string(raw))

	byID, err := core.InitialUnits(context.Background(), pid)
	require.NoError(t, err)
	require.Len(t, byID, 2)
}

func TestInitialUnitsRoundToEightPlaces(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	seedPrices(t, core, map[string]map[string]string{"X": {"2022-01-03": "3"}})
	pid, err := core.UpsertPortfolio(ctx, "Thirds", decimal.NewFromInt(100), MustParseDate("2022-01-03"))
	require.NoError(t, err)
	require.NoError(t, core.SetInitialWeight(ctx, pid, "X", decimal.NewFromInt(1)))

	rows, err := core.InitialUnitsForAllAssets(ctx, pid)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assertDecimal(t, "33.33333333", rows[0].Units.Decimal)
}

func TestInitialUnitsMissingData(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	pid, err := core.UpsertPortfolio(ctx, "Empty", decimal.NewFromInt(1000), MustParseDate("2022-02-15"))
	require.NoError(t, err)
	_, err = core.InitialUnits(ctx, pid)
	assertErrorCode(t, err, ErrCodeMissingData)

	// Weighted asset with no price at t0.
	seedPrices(t, core, map[string]map[string]string{"Late": {"2022-02-16": "10"}})
	require.NoError(t, core.SetInitialWeight(ctx, pid, "Late", decimal.NewFromInt(1)))
	_, err = core.InitialUnitsForAllAssets(ctx, pid)
	assertErrorCode(t, err, ErrCodeMissingData)
	require.Contains(t, err.Error(), "Late")

	_, err = core.InitialUnits(ctx, 9999)
	assertErrorCode(t, err, ErrCodeNotFound)
}

func TestValueOnDateAtBaseDateEqualsInitialValue(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	pid := seedScenario(t, core)

	v, err := core.ValueOnDate(ctx, pid, MustParseDate("2022-02-15"))
	require.NoError(t, err)
	assertDecimal(t, "1000000000", v)

	weights, err := core.WeightsOnDate(ctx, pid, MustParseDate("2022-02-15"))
	require.NoError(t, err)
	assertDecimal(t, "0.6", weights["EEUU"])
	assertDecimal(t, "0.4", weights["Europa"])
}

func TestValueOnDateRequiresEveryPrice(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	pid := seedScenario(t, core)

	_, err := core.ValueOnDate(ctx, pid, MustParseDate("2022-02-17"))
	assertErrorCode(t, err, ErrCodeMissingData)

	_, err = core.WeightsOnDate(ctx, pid, MustParseDate("2022-02-17"))
	assertErrorCode(t, err, ErrCodeMissingData)
}

func TestUnitsOnDate(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	pid := seedScenario(t, core)

	// Dates before t0 still resolve to the base holding.
	units, err := core.UnitsOnDate(ctx, pid, "EEUU", MustParseDate("2022-01-01"))
	require.NoError(t, err)
	assertDecimal(t, "6000000", units)

	_, err = core.ApplyTrade(ctx, scenarioTrade(pid))
	require.NoError(t, err)

	units, err = core.UnitsOnDate(ctx, pid, "EEUU", MustParseDate("2022-05-14"))
	require.NoError(t, err)
	assertDecimal(t, "6000000", units)

	units, err = core.UnitsOnDate(ctx, pid, "EEUU", MustParseDate("2022-05-15"))
	require.NoError(t, err)
	assertDecimal(t, "4333333.33333333", units)

	units, err = core.UnitsOnDate(ctx, pid, "Europa", MustParseDate("2023-01-01"))
	require.NoError(t, err)
	assertDecimal(t, "11636363.63636364", units)

	_, err = core.UnitsOnDate(ctx, pid, "Asia", MustParseDate("2022-05-15"))
	assertErrorCode(t, err, ErrCodeNotFound)
}

func TestValuationOn(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	pid := seedScenario(t, core)

	v, err := core.ValuationOn(ctx, pid, MustParseDate("2022-02-16"))
	require.NoError(t, err)
	// 6e6*101 + 8e6*51
	assertDecimal(t, "1014000000", v.Value.Decimal)
	assertDecimal(t, "6000000", v.Units["EEUU"].Decimal)
	assertDecimal(t, "8000000", v.Units["Europa"].Decimal)
	require.Len(t, v.Weights, 2)

	sum := v.Weights["EEUU"].Add(v.Weights["Europa"].Decimal)
	require.True(t, sum.Sub(decimal.NewFromInt(1)).Abs().LessThanOrEqual(decimal.RequireFromString("0.00000002")), "weights sum %s", sum)
}

func TestWeightsOnDateZeroValue(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	seedScenario(t, core)

	pid, err := core.UpsertPortfolio(ctx, "Empty", decimal.NewFromInt(1_000_000), MustParseDate("2022-02-15"))
	require.NoError(t, err)
	require.NoError(t, core.SetInitialWeight(ctx, pid, "EEUU", decimal.Zero))
	require.NoError(t, core.SetInitialWeight(ctx, pid, "Europa", decimal.Zero))

	value, err := core.ValueOnDate(ctx, pid, MustParseDate("2022-02-16"))
	require.NoError(t, err)
	assertDecimal(t, "0", value)

	weights, err := core.WeightsOnDate(ctx, pid, MustParseDate("2022-02-16"))
	require.NoError(t, err)
	require.NotNil(t, weights)
	require.Empty(t, weights)
}

func TestTimeSeriesDailyAndSparse(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	pid := seedScenario(t, core)

	ts, err := core.TimeSeries(ctx, pid, MustParseDate("2022-02-15"), MustParseDate("2022-02-18"), true)
	require.NoError(t, err)
	require.Equal(t, 4, ts.Len())
	require.Len(t, ts.Vt, 4)
	require.Len(t, ts.Weights, 4)
	for i := 1; i < ts.Len(); i++ {
		require.Equal(t, ts.Dates[i-1].AddDays(1), ts.Dates[i], "dates not one day apart at %d", i)
	}

	assertDecimal(t, "1000000000", ts.Vt[0].Decimal)
	assertDecimal(t, "0.6", ts.Weights[0]["EEUU"].Decimal)
	assertDecimal(t, "0.4", ts.Weights[0]["Europa"].Decimal)

	// 2022-02-17: EEUU has no price and drops out of the day.
	assertDecimal(t, "416000000", ts.Vt[2].Decimal)
	require.Len(t, ts.Weights[2], 1)
	assertDecimal(t, "1", ts.Weights[2]["Europa"].Decimal)

	// 2022-02-18: nothing priced.
	assertDecimal(t, "0", ts.Vt[3].Decimal)
	require.Empty(t, ts.Weights[3])
}

func TestTimeSeriesWithAndWithoutTrades(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	pid := seedScenario(t, core)

	start, end := MustParseDate("2022-05-14"), MustParseDate("2022-05-16")
	before, err := core.TimeSeries(ctx, pid, start, end, true)
	require.NoError(t, err)

	_, err = core.ApplyTrade(ctx, scenarioTrade(pid))
	require.NoError(t, err)

	withTrades, err := core.TimeSeries(ctx, pid, start, end, true)
	require.NoError(t, err)
	withoutTrades, err := core.TimeSeries(ctx, pid, start, end, false)
	require.NoError(t, err)

	for i := range before.Vt {
		require.True(t, before.Vt[i].Equal(withoutTrades.Vt[i].Decimal), "day %d: %s vs %s", i, before.Vt[i], withoutTrades.Vt[i])
	}

	// Before the trade the ledger has no effect.
	assertDecimal(t, "1140000000", withTrades.Vt[0].Decimal)
	// Trade day is value neutral at trade prices.
	assertDecimal(t, "1160000000", withTrades.Vt[1].Decimal)
	assertDecimal(t, "0.44827586", withTrades.Weights[1]["EEUU"].Decimal)
	assertDecimal(t, "0.55172414", withTrades.Weights[1]["Europa"].Decimal)
	// After the trade the new units apply.
	assertDecimal(t, "1175969696.97", withTrades.Vt[2].Decimal)
	assertDecimal(t, "1174000000", withoutTrades.Vt[2].Decimal)
}

func TestTimeSeriesRejectsInvertedRange(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()
	pid := seedScenario(t, core)

	_, err := core.TimeSeries(context.Background(), pid, MustParseDate("2022-02-16"), MustParseDate("2022-02-15"), true)
	assertErrorCode(t, err, ErrCodeInvalidInput)
}

func TestTimeSeriesSingleDay(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()
	pid := seedScenario(t, core)

	d := MustParseDate("2022-02-16")
	ts, err := core.TimeSeries(context.Background(), pid, d, d, false)
	require.NoError(t, err)
	require.Equal(t, 1, ts.Len())
	require.Equal(t, d, ts.Dates[0])
	assertDecimal(t, "1014000000", ts.Vt[0].Decimal)
}
