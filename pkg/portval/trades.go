package portval

import (
	"context"
	"database/sql"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// resolvedPrice is the price a trade leg is executed at and the day it was
// observed.
type resolvedPrice struct {
	price decimal.Decimal
	date  civil.Date
}

// ApplyTrade sells value_sell of one asset and buys value_buy of another on
// req.Date, recording one negative and one positive ledger row dated at the
// requested day. Both legs commit together or not at all. Replaying an
// identical request records nothing new.
func (c *Core) ApplyTrade(ctx context.Context, req TradeRequest) (*TradeResult, error) {
	if err := validateTrade(req); err != nil {
		return nil, err
	}
	if _, err := c.GetPortfolio(ctx, req.PortfolioID); err != nil {
		return nil, err
	}

	var result TradeResult
	err := c.WithTx(ctx, func(tx *sql.Tx) error {
		sell, err := assetByName(ctx, tx, req.AssetSell)
		if err != nil {
			return err
		}
		buy, err := assetByName(ctx, tx, req.AssetBuy)
		if err != nil {
			return err
		}

		ps, err := c.resolveTradePrice(ctx, tx, sell, req.Date, req.FallbackToPreviousPrice)
		if err != nil {
			return err
		}
		pb, err := c.resolveTradePrice(ctx, tx, buy, req.Date, req.FallbackToPreviousPrice)
		if err != nil {
			return err
		}

		unitsSell := RoundUnits(quotient(req.ValueSell, ps.price))
		unitsBuy := RoundUnits(quotient(req.ValueBuy, pb.price))

		recorded := 0
		inserted, err := recordAdjustment(ctx, tx, req.PortfolioID, sell.ID, req.Date, unitsSell.Neg())
		if err != nil {
			return err
		}
		if inserted {
			recorded++
		}
		inserted, err = recordAdjustment(ctx, tx, req.PortfolioID, buy.ID, req.Date, unitsBuy)
		if err != nil {
			return err
		}
		if inserted {
			recorded++
		}

		if recorded > 0 {
			details := fmt.Sprintf("%s: sell %s %s @ %s, buy %s %s @ %s",
				req.Date, sell.Name, unitsSell, ps.price, buy.Name, unitsBuy, pb.price)
			pid := req.PortfolioID
			value := NewAmount(req.ValueSell)
			if _, err := addOperationLog(ctx, tx, OperationLog{
				Operation:   OperationTrade,
				PortfolioID: &pid,
				Asset:       &sell.Name,
				Details:     &details,
				Value:       &value,
			}); err != nil {
				return err
			}
		} else {
			c.logger.Debug("trade already recorded",
				"portfolio_id", req.PortfolioID,
				"date", req.Date.String(),
				"asset_sell", sell.Name,
				"asset_buy", buy.Name,
			)
		}

		result = TradeResult{
			UnitsSell:     NewAmount(unitsSell),
			UnitsBuy:      NewAmount(unitsBuy),
			PriceSell:     NewAmount(ps.price),
			PriceBuy:      NewAmount(pb.price),
			PriceDateSell: ps.date,
			PriceDateBuy:  pb.date,
			Recorded:      recorded,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func validateTrade(req TradeRequest) error {
	if !req.Date.IsValid() {
		return NewError(ErrCodeInvalidInput, "trade date required")
	}
	if normalizeName(req.AssetSell) == "" || normalizeName(req.AssetBuy) == "" {
		return NewError(ErrCodeInvalidInput, "asset_sell and asset_buy required")
	}
	if normalizeName(req.AssetSell) == normalizeName(req.AssetBuy) {
		return NewError(ErrCodeValidation, "asset_sell and asset_buy must differ")
	}
	if !req.ValueSell.IsPositive() || !req.ValueBuy.IsPositive() {
		return NewError(ErrCodeValidation, "value_sell and value_buy must be positive")
	}
	return nil
}

// resolveTradePrice returns the price of an asset on d. With fallback enabled
// an exact miss uses the latest earlier price; no price at or before d is
// fatal either way.
func (c *Core) resolveTradePrice(ctx context.Context, q queryer, asset *Asset, d civil.Date, fallback bool) (resolvedPrice, error) {
	prices, err := pricesOnDate(ctx, q, []int64{asset.ID}, d)
	if err != nil {
		return resolvedPrice{}, err
	}
	if price, ok := prices[asset.ID]; ok {
		return resolvedPrice{price: price, date: d}, nil
	}
	if !fallback {
		return resolvedPrice{}, Errorf(ErrCodeMissingData, "missing price for asset %q on %s", asset.Name, d)
	}
	prev, ok, err := priceOnOrBefore(ctx, q, asset.ID, d)
	if err != nil {
		return resolvedPrice{}, err
	}
	if !ok {
		return resolvedPrice{}, Errorf(ErrCodeMissingData, "no price for asset %q on or before %s", asset.Name, d)
	}
	c.logger.Warn("trade priced with previous available price",
		"asset", asset.Name,
		"requested_date", d.String(),
		"price_date", prev.Date.String(),
		"price", prev.Price.String(),
	)
	return resolvedPrice{price: prev.Price.Decimal, date: prev.Date}, nil
}
