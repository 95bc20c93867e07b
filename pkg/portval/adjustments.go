package portval

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// deltaPlaces is the fixed scale of stored deltas; every row of the same
// quantity has the same text, which the duplicate check relies on.
const deltaPlaces int32 = 10

// dailyDelta is the net unit change of one asset on one day.
type dailyDelta struct {
	date  civil.Date
	delta decimal.Decimal
}

// recordAdjustment appends a ledger row unless an identical row
// (portfolio, asset, date, delta) already exists. It reports whether a row
// was inserted.
func recordAdjustment(ctx context.Context, q queryer, portfolioID, assetID int64, d civil.Date, delta decimal.Decimal) (bool, error) {
	text := fixedText(delta, deltaPlaces)
	var exists int
	err := q.QueryRowContext(ctx, `
		SELECT 1 FROM holding_adjustments
		WHERE portfolio_id = ? AND asset_id = ? AND effective_date = ? AND delta_units = ?
		LIMIT 1
	`, portfolioID, assetID, d.String(), text).Scan(&exists)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, dbError("check adjustment", err)
	}
	if _, err := q.ExecContext(ctx, `
		INSERT INTO holding_adjustments (portfolio_id, asset_id, effective_date, delta_units)
		VALUES (?, ?, ?, ?)
	`, portfolioID, assetID, d.String(), text); err != nil {
		return false, dbError("insert adjustment", err)
	}
	return true, nil
}

// ListAdjustments returns the ledger of a portfolio ordered by date.
func (c *Core) ListAdjustments(ctx context.Context, portfolioID int64) ([]HoldingAdjustment, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT h.id, h.portfolio_id, h.asset_id, a.name, h.effective_date, h.delta_units
		FROM holding_adjustments h
		JOIN assets a ON a.id = h.asset_id
		WHERE h.portfolio_id = ?
		ORDER BY h.effective_date, h.id
	`, portfolioID)
	if err != nil {
		return nil, dbError("list adjustments", err)
	}
	defer rows.Close()

	var out []HoldingAdjustment
	for rows.Next() {
		var h HoldingAdjustment
		var date dateColumn
		if err := rows.Scan(&h.ID, &h.PortfolioID, &h.AssetID, &h.AssetName, &date, &h.DeltaUnits); err != nil {
			return nil, err
		}
		h.EffectiveDate = date.Date
		out = append(out, h)
	}
	return out, rows.Err()
}

// adjustmentTotal sums the deltas of one asset effective on or before d.
func adjustmentTotal(ctx context.Context, q queryer, portfolioID, assetID int64, d civil.Date) (decimal.Decimal, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT delta_units FROM holding_adjustments
		WHERE portfolio_id = ? AND asset_id = ? AND effective_date <= ?
	`, portfolioID, assetID, d.String())
	if err != nil {
		return decimal.Zero, dbError("load adjustments", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var delta Amount
		if err := rows.Scan(&delta); err != nil {
			return decimal.Zero, err
		}
		total = total.Add(delta.Decimal)
	}
	return total, rows.Err()
}

// adjustmentsThrough loads every row effective on or before end in one read
// and nets them per asset and day. Each asset's days come back ascending.
func adjustmentsThrough(ctx context.Context, q queryer, portfolioID int64, end civil.Date) (map[int64][]dailyDelta, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT asset_id, effective_date, delta_units FROM holding_adjustments
		WHERE portfolio_id = ? AND effective_date <= ?
	`, portfolioID, end.String())
	if err != nil {
		return nil, dbError("load adjustments", err)
	}
	defer rows.Close()

	netted := map[priceKey]decimal.Decimal{}
	for rows.Next() {
		var assetID int64
		var date dateColumn
		var delta Amount
		if err := rows.Scan(&assetID, &date, &delta); err != nil {
			return nil, err
		}
		key := priceKey{assetID: assetID, date: date.Date}
		netted[key] = netted[key].Add(delta.Decimal)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := map[int64][]dailyDelta{}
	for key, delta := range netted {
		out[key.assetID] = append(out[key.assetID], dailyDelta{date: key.date, delta: delta})
	}
	for _, series := range out {
		sort.Slice(series, func(i, j int) bool {
			return series[i].date.Before(series[j].date)
		})
	}
	return out, nil
}

// cumulativeByDay sweeps each asset's sorted deltas across days, carrying a
// running total forward. An asset with no row on or before a day has no entry
// for it.
func cumulativeByDay(perAsset map[int64][]dailyDelta, days []civil.Date) map[priceKey]decimal.Decimal {
	out := make(map[priceKey]decimal.Decimal, len(perAsset)*len(days))
	for assetID, series := range perAsset {
		cum := decimal.Zero
		idx := 0
		for _, d := range days {
			for idx < len(series) && !series[idx].date.After(d) {
				cum = cum.Add(series[idx].delta)
				idx++
			}
			if idx == 0 {
				continue
			}
			out[priceKey{assetID: assetID, date: d}] = cum
		}
	}
	return out
}
