package mobile

import (
	"context"
	"encoding/json"

	"portval/internal/importer"
	"portval/pkg/portval"
)

// Core wraps the portval core for gomobile bindings. Every method takes and
// returns plain strings so it can cross the binding boundary.
type Core struct {
	core *portval.Core
}

// Open initializes the core with a database path.
func Open(dbPath string) (*Core, error) {
	core, err := portval.Open(dbPath)
	if err != nil {
		return nil, err
	}
	return &Core{core: core}, nil
}

// Close releases resources.
func (c *Core) Close() error {
	if c == nil || c.core == nil {
		return nil
	}
	return c.core.Close()
}

// ListPortfoliosJSON returns all portfolios as JSON.
func (c *Core) ListPortfoliosJSON() (string, error) {
	data, err := c.core.ListPortfolios(context.Background())
	if err != nil {
		return "", err
	}
	if data == nil {
		data = []portval.Portfolio{}
	}
	return marshalJSON(data)
}

// InitialUnitsJSON returns the base units of every weighted asset as JSON.
func (c *Core) InitialUnitsJSON(portfolioID int64) (string, error) {
	data, err := c.core.InitialUnitsForAllAssets(context.Background(), portfolioID)
	if err != nil {
		return "", err
	}
	return marshalJSON(data)
}

// TimeSeriesJSON returns the daily values and weights over [start, end]. The
// window must lie within the stored price dates.
func (c *Core) TimeSeriesJSON(portfolioID int64, start, end string, useTrades bool) (string, error) {
	s, err := portval.ParseDate(start)
	if err != nil {
		return "", err
	}
	e, err := portval.ParseDate(end)
	if err != nil {
		return "", err
	}
	ctx := context.Background()
	if err := c.core.CheckSeriesWindow(ctx, s, e); err != nil {
		return "", err
	}
	data, err := c.core.TimeSeries(ctx, portfolioID, s, e, useTrades)
	if err != nil {
		return "", err
	}
	return marshalJSON(data)
}

// ValuationJSON returns units, value and weights on a single date as JSON.
func (c *Core) ValuationJSON(portfolioID int64, date string) (string, error) {
	d, err := portval.ParseDate(date)
	if err != nil {
		return "", err
	}
	data, err := c.core.ValuationOn(context.Background(), portfolioID, d)
	if err != nil {
		return "", err
	}
	return marshalJSON(data)
}

// ApplyTradeJSON applies a trade described by payloadJSON and returns the
// trade result as JSON.
func (c *Core) ApplyTradeJSON(portfolioID int64, payloadJSON string) (string, error) {
	var payload tradePayload
	if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
		return "", err
	}
	d, err := portval.ParseDate(payload.Date)
	if err != nil {
		return "", err
	}
	result, err := c.core.ApplyTrade(context.Background(), portval.TradeRequest{
		PortfolioID:             portfolioID,
		Date:                    d,
		AssetSell:               payload.AssetSell,
		ValueSell:               payload.ValueSell.Decimal,
		AssetBuy:                payload.AssetBuy,
		ValueBuy:                payload.ValueBuy.Decimal,
		FallbackToPreviousPrice: payload.FallbackToPreviousPrice,
	})
	if err != nil {
		return "", err
	}
	return marshalJSON(result)
}

// ImportFilesJSON loads a weights CSV and a prices CSV. initialValue may be
// empty to use the default V0.
func (c *Core) ImportFilesJSON(weightsPath, pricesPath, initialDate, initialValue string) (string, error) {
	d, err := portval.ParseDate(initialDate)
	if err != nil {
		return "", err
	}
	opts := importer.Options{InitialDate: d}
	if initialValue != "" {
		if opts.InitialValue, err = importer.ParseValue(initialValue, "initial value", false); err != nil {
			return "", err
		}
	}
	result, err := importer.New(c.core).ImportFiles(context.Background(), weightsPath, pricesPath, opts)
	if err != nil {
		return "", err
	}
	return marshalJSON(result)
}

// OperationLogsJSON returns a page of operation logs as JSON.
func (c *Core) OperationLogsJSON(limit, offset int) (string, error) {
	data, err := c.core.GetOperationLogs(context.Background(), limit, offset)
	if err != nil {
		return "", err
	}
	if data == nil {
		data = []portval.OperationLog{}
	}
	return marshalJSON(data)
}

func marshalJSON(value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

type tradePayload struct {
	Date                    string         `json:"date"`
	AssetSell               string         `json:"asset_sell"`
	ValueSell               portval.Amount `json:"value_sell"`
	AssetBuy                string         `json:"asset_buy"`
	ValueBuy                portval.Amount `json:"value_buy"`
	FallbackToPreviousPrice bool           `json:"fallback_to_previous_price"`
}
