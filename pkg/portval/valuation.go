package portval

import (
	"context"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// baseUnit is an asset's unit holding derived from its t0 weight.
type baseUnit struct {
	assetID int64
	name    string
	units   decimal.Decimal
}

// baseUnits computes C_i0 = w_i0 * V0 / P_i0 for every weighted asset, with
// one read for the weights and one for the t0 prices. Results are ordered by
// asset name.
func baseUnits(ctx context.Context, q queryer, p *Portfolio) ([]baseUnit, error) {
	weights, err := initialWeights(ctx, q, p.ID)
	if err != nil {
		return nil, err
	}
	if len(weights) == 0 {
		return nil, Errorf(ErrCodeMissingData, "no initial weights for portfolio %q", p.Name)
	}

	ids := make([]int64, len(weights))
	for i, w := range weights {
		ids[i] = w.AssetID
	}
	t0Prices, err := pricesOnDate(ctx, q, ids, p.InitialDate)
	if err != nil {
		return nil, err
	}

	out := make([]baseUnit, 0, len(weights))
	for _, w := range weights {
		p0, ok := t0Prices[w.AssetID]
		if !ok {
			return nil, Errorf(ErrCodeMissingData, "missing initial price (t0=%s) for asset %q", p.InitialDate, w.AssetName)
		}
		units := RoundUnits(quotient(w.Weight.Mul(p.InitialValue.Decimal), p0))
		out = append(out, baseUnit{assetID: w.AssetID, name: w.AssetName, units: units})
	}
	return out, nil
}

// InitialUnits returns the base unit holding of every weighted asset keyed by
// asset ID.
func (c *Core) InitialUnits(ctx context.Context, portfolioID int64) (map[int64]decimal.Decimal, error) {
	p, err := c.GetPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	base, err := baseUnits(ctx, c.db, p)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]decimal.Decimal, len(base))
	for _, b := range base {
		out[b.assetID] = b.units
	}
	return out, nil
}

// InitialUnitsForAllAssets lists base unit holdings sorted by asset name.
func (c *Core) InitialUnitsForAllAssets(ctx context.Context, portfolioID int64) ([]AssetUnits, error) {
	p, err := c.GetPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	base, err := baseUnits(ctx, c.db, p)
	if err != nil {
		return nil, err
	}
	rows := make([]AssetUnits, len(base))
	for i, b := range base {
		rows[i] = AssetUnits{Asset: b.name, Units: NewAmount(b.units)}
	}
	return rows, nil
}

// UnitsOnDate returns the base units of an asset plus every adjustment
// effective on or before d. Dates before t0 are allowed.
func (c *Core) UnitsOnDate(ctx context.Context, portfolioID int64, asset string, d civil.Date) (decimal.Decimal, error) {
	p, err := c.GetPortfolio(ctx, portfolioID)
	if err != nil {
		return decimal.Zero, err
	}
	a, err := assetByName(ctx, c.db, asset)
	if err != nil {
		return decimal.Zero, err
	}
	base, err := baseUnits(ctx, c.db, p)
	if err != nil {
		return decimal.Zero, err
	}
	units := decimal.Zero
	for _, b := range base {
		if b.assetID == a.ID {
			units = b.units
			break
		}
	}
	delta, err := adjustmentTotal(ctx, c.db, p.ID, a.ID, d)
	if err != nil {
		return decimal.Zero, err
	}
	return RoundUnits(units.Add(delta)), nil
}

// holding is one asset's units and exact-date price.
type holding struct {
	name  string
	units decimal.Decimal
	price decimal.Decimal
}

// holdingsOn resolves units and the exact price on d for every weighted
// asset. A missing price is fatal here; the ranged series skips instead.
func (c *Core) holdingsOn(ctx context.Context, portfolioID int64, d civil.Date) ([]holding, error) {
	p, err := c.GetPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	base, err := baseUnits(ctx, c.db, p)
	if err != nil {
		return nil, err
	}
	deltas, err := adjustmentsThrough(ctx, c.db, p.ID, d)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(base))
	for i, b := range base {
		ids[i] = b.assetID
	}
	prices, err := pricesOnDate(ctx, c.db, ids, d)
	if err != nil {
		return nil, err
	}

	out := make([]holding, 0, len(base))
	for _, b := range base {
		price, ok := prices[b.assetID]
		if !ok {
			return nil, Errorf(ErrCodeMissingData, "missing price for asset %q on %s", b.name, d)
		}
		units := b.units
		for _, dd := range deltas[b.assetID] {
			units = units.Add(dd.delta)
		}
		out = append(out, holding{name: b.name, units: RoundUnits(units), price: price})
	}
	return out, nil
}

func totalValue(holdings []holding) decimal.Decimal {
	total := decimal.Zero
	for _, h := range holdings {
		total = total.Add(h.units.Mul(h.price))
	}
	return RoundCurrency(total)
}

func weightsOf(holdings []holding, total decimal.Decimal) map[string]decimal.Decimal {
	out := map[string]decimal.Decimal{}
	if total.IsZero() {
		return out
	}
	for _, h := range holdings {
		out[h.name] = RoundWeight(quotient(h.units.Mul(h.price), total))
	}
	return out
}

// ValueOnDate returns Σ units × price on d, rounded to currency precision.
// Every weighted asset must have a price on exactly d.
func (c *Core) ValueOnDate(ctx context.Context, portfolioID int64, d civil.Date) (decimal.Decimal, error) {
	holdings, err := c.holdingsOn(ctx, portfolioID, d)
	if err != nil {
		return decimal.Zero, err
	}
	return totalValue(holdings), nil
}

// WeightsOnDate returns each asset's share of the value on d. A zero value
// yields an empty map.
func (c *Core) WeightsOnDate(ctx context.Context, portfolioID int64, d civil.Date) (map[string]decimal.Decimal, error) {
	holdings, err := c.holdingsOn(ctx, portfolioID, d)
	if err != nil {
		return nil, err
	}
	return weightsOf(holdings, totalValue(holdings)), nil
}

// ValuationOn returns units, value and weights on a single date.
func (c *Core) ValuationOn(ctx context.Context, portfolioID int64, d civil.Date) (*Valuation, error) {
	holdings, err := c.holdingsOn(ctx, portfolioID, d)
	if err != nil {
		return nil, err
	}
	total := totalValue(holdings)
	v := &Valuation{
		Date:    d,
		Units:   make(map[string]Amount, len(holdings)),
		Value:   NewAmount(total),
		Weights: map[string]Amount{},
	}
	for _, h := range holdings {
		v.Units[h.name] = NewAmount(h.units)
	}
	for name, w := range weightsOf(holdings, total) {
		v.Weights[name] = NewAmount(w)
	}
	return v, nil
}

// TimeSeries values the portfolio on every calendar day of [start, end].
// It reads base units, the ledger and the price range once each, then sweeps
// the days. Assets without a price on a day are left out of that day. With
// useTrades false the ledger is ignored.
func (c *Core) TimeSeries(ctx context.Context, portfolioID int64, start, end civil.Date, useTrades bool) (*TimeSeries, error) {
	if start.After(end) {
		return nil, Errorf(ErrCodeInvalidInput, "start date %s is after end date %s", start, end)
	}
	p, err := c.GetPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	base, err := baseUnits(ctx, c.db, p)
	if err != nil {
		return nil, err
	}
	days := DaysInRange(start, end)

	var cumulative map[priceKey]decimal.Decimal
	if useTrades {
		deltas, err := adjustmentsThrough(ctx, c.db, p.ID, end)
		if err != nil {
			return nil, err
		}
		cumulative = cumulativeByDay(deltas, days)
	}

	ids := make([]int64, len(base))
	for i, b := range base {
		ids[i] = b.assetID
	}
	prices, err := pricesInRange(ctx, c.db, ids, start, end)
	if err != nil {
		return nil, err
	}

	ts := &TimeSeries{
		Dates:   make([]civil.Date, 0, len(days)),
		Vt:      make([]Amount, 0, len(days)),
		Weights: make([]map[string]Amount, 0, len(days)),
	}
	values := make(map[string]decimal.Decimal, len(base))
	for _, d := range days {
		clear(values)
		total := decimal.Zero
		for _, b := range base {
			price, ok := prices[priceKey{assetID: b.assetID, date: d}]
			if !ok {
				continue
			}
			units := b.units.Add(cumulative[priceKey{assetID: b.assetID, date: d}])
			value := units.Mul(price)
			values[b.name] = value
			total = total.Add(value)
		}
		total = RoundCurrency(total)

		weights := map[string]Amount{}
		if total.IsPositive() && len(values) > 0 {
			for name, value := range values {
				weights[name] = NewAmount(RoundWeight(quotient(value, total)))
			}
		}

		ts.Dates = append(ts.Dates, d)
		ts.Vt = append(ts.Vt, NewAmount(total))
		ts.Weights = append(ts.Weights, weights)
	}

	c.logger.Debug("time series computed",
		"portfolio_id", p.ID,
		"start", start.String(),
		"end", end.String(),
		"days", len(days),
		"assets", len(base),
		"use_trades", useTrades,
	)
	return ts, nil
}
