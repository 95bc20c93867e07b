package portval

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// priceKey indexes a bulk price read by asset and day.
type priceKey struct {
	assetID int64
	date    civil.Date
}

// AddPrices inserts prices, skipping (asset, date) pairs that already exist.
// It returns the number of rows inserted.
func (c *Core) AddPrices(ctx context.Context, prices []Price) (int, error) {
	var inserted int
	err := c.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		inserted, err = addPrices(ctx, tx, prices)
		return err
	})
	return inserted, err
}

func addPrices(ctx context.Context, tx *sql.Tx, prices []Price) (int, error) {
	stmt, err := tx.PrepareContext(ctx, "INSERT OR IGNORE INTO prices (asset_id, date, price) VALUES (?, ?, ?)")
	if err != nil {
		return 0, dbError("prepare price insert", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, p := range prices {
		assetID := p.AssetID
		if assetID == 0 {
			if assetID, err = ensureAsset(ctx, tx, p.AssetName); err != nil {
				return 0, err
			}
		}
		if !p.Price.IsPositive() {
			return 0, Errorf(ErrCodeValidation, "price for %s on %s must be positive", p.AssetName, p.Date)
		}
		result, err := stmt.ExecContext(ctx, assetID, p.Date.String(), p.Price)
		if err != nil {
			return 0, dbError("insert price", err)
		}
		if n, err := result.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}
	return inserted, nil
}

// GetPrice returns the price of an asset on exactly d. The bool reports
// whether a price exists.
func (c *Core) GetPrice(ctx context.Context, assetID int64, d civil.Date) (Amount, bool, error) {
	var p Amount
	err := c.db.QueryRowContext(ctx, "SELECT price FROM prices WHERE asset_id = ? AND date = ?", assetID, d.String()).Scan(&p)
	if errors.Is(err, sql.ErrNoRows) {
		return Amount{}, false, nil
	}
	if err != nil {
		return Amount{}, false, dbError("lookup price", err)
	}
	return p, true, nil
}

// priceOnOrBefore returns the most recent price of an asset dated d or earlier.
func priceOnOrBefore(ctx context.Context, q queryer, assetID int64, d civil.Date) (Price, bool, error) {
	var p Price
	var date dateColumn
	err := q.QueryRowContext(ctx, `
		SELECT asset_id, date, price FROM prices
		WHERE asset_id = ? AND date <= ?
		ORDER BY date DESC
		LIMIT 1
	`, assetID, d.String()).Scan(&p.AssetID, &date, &p.Price)
	if errors.Is(err, sql.ErrNoRows) {
		return Price{}, false, nil
	}
	if err != nil {
		return Price{}, false, dbError("lookup previous price", err)
	}
	p.Date = date.Date
	return p, true, nil
}

// pricesOnDate returns the exact-date prices of the given assets.
func pricesOnDate(ctx context.Context, q queryer, assetIDs []int64, d civil.Date) (map[int64]decimal.Decimal, error) {
	out := make(map[int64]decimal.Decimal, len(assetIDs))
	if len(assetIDs) == 0 {
		return out, nil
	}
	args := make([]any, 0, len(assetIDs)+1)
	args = append(args, d.String())
	for _, id := range assetIDs {
		args = append(args, id)
	}
	rows, err := q.QueryContext(ctx,
		"SELECT asset_id, price FROM prices WHERE date = ? AND asset_id IN ("+placeholders(len(assetIDs))+")",
		args...)
	if err != nil {
		return nil, dbError("load prices", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var p Amount
		if err := rows.Scan(&id, &p); err != nil {
			return nil, err
		}
		out[id] = p.Decimal
	}
	return out, rows.Err()
}

// pricesInRange bulk-loads the prices of the given assets within [start, end].
func pricesInRange(ctx context.Context, q queryer, assetIDs []int64, start, end civil.Date) (map[priceKey]decimal.Decimal, error) {
	out := map[priceKey]decimal.Decimal{}
	if len(assetIDs) == 0 {
		return out, nil
	}
	args := make([]any, 0, len(assetIDs)+2)
	args = append(args, start.String(), end.String())
	for _, id := range assetIDs {
		args = append(args, id)
	}
	rows, err := q.QueryContext(ctx,
		"SELECT asset_id, date, price FROM prices WHERE date >= ? AND date <= ? AND asset_id IN ("+placeholders(len(assetIDs))+")",
		args...)
	if err != nil {
		return nil, dbError("load price range", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var date dateColumn
		var p Amount
		if err := rows.Scan(&id, &date, &p); err != nil {
			return nil, err
		}
		out[priceKey{assetID: id, date: date.Date}] = p.Decimal
	}
	return out, rows.Err()
}

// ListPrices returns the prices of one asset within [start, end] ordered by date.
func (c *Core) ListPrices(ctx context.Context, asset string, start, end civil.Date) ([]Price, error) {
	a, err := assetByName(ctx, c.db, asset)
	if err != nil {
		return nil, err
	}
	rows, err := c.db.QueryContext(ctx, `
		SELECT date, price FROM prices
		WHERE asset_id = ? AND date >= ? AND date <= ?
		ORDER BY date
	`, a.ID, start.String(), end.String())
	if err != nil {
		return nil, dbError("list prices", err)
	}
	defer rows.Close()

	var prices []Price
	for rows.Next() {
		p := Price{AssetID: a.ID, AssetName: a.Name}
		var date dateColumn
		if err := rows.Scan(&date, &p.Price); err != nil {
			return nil, err
		}
		p.Date = date.Date
		prices = append(prices, p)
	}
	return prices, rows.Err()
}

// LastPriceDate returns the latest date with any price. The bool is false
// when the store holds no prices.
func (c *Core) LastPriceDate(ctx context.Context) (civil.Date, bool, error) {
	var last sql.NullString
	if err := c.db.QueryRowContext(ctx, "SELECT MAX(date) FROM prices").Scan(&last); err != nil {
		return civil.Date{}, false, dbError("lookup last price date", err)
	}
	if !last.Valid || last.String == "" {
		return civil.Date{}, false, nil
	}
	d, err := ParseDate(last.String)
	if err != nil {
		return civil.Date{}, false, err
	}
	return d, true, nil
}

// PriceDateRange returns the earliest and latest dates with any price. The
// bool is false when the store holds no prices.
func (c *Core) PriceDateRange(ctx context.Context) (civil.Date, civil.Date, bool, error) {
	var first, last sql.NullString
	if err := c.db.QueryRowContext(ctx, "SELECT MIN(date), MAX(date) FROM prices").Scan(&first, &last); err != nil {
		return civil.Date{}, civil.Date{}, false, dbError("lookup price date range", err)
	}
	if !first.Valid || !last.Valid || first.String == "" || last.String == "" {
		return civil.Date{}, civil.Date{}, false, nil
	}
	from, err := ParseDate(first.String)
	if err != nil {
		return civil.Date{}, civil.Date{}, false, err
	}
	to, err := ParseDate(last.String)
	if err != nil {
		return civil.Date{}, civil.Date{}, false, err
	}
	return from, to, true, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
