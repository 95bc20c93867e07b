package portval

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Asset is a priced instrument identified by its unique name.
type Asset struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Portfolio holds the base value V0 and base date t0 a portfolio is built from.
type Portfolio struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	InitialValue Amount     `json:"initial_value"`
	InitialDate  civil.Date `json:"initial_date"`
}

// Price is the price of an asset on a calendar day.
type Price struct {
	AssetID   int64      `json:"asset_id"`
	AssetName string     `json:"asset"`
	Date      civil.Date `json:"date"`
	Price     Amount     `json:"price"`
}

// InitialWeight is the target weight of an asset at the portfolio's t0.
type InitialWeight struct {
	PortfolioID int64  `json:"portfolio_id"`
	AssetID     int64  `json:"asset_id"`
	AssetName   string `json:"asset"`
	Weight      Amount `json:"weight"`
}

// HoldingAdjustment is one ledger row: a signed unit delta effective on a date.
type HoldingAdjustment struct {
	ID            int64      `json:"id"`
	PortfolioID   int64      `json:"portfolio_id"`
	AssetID       int64      `json:"asset_id"`
	AssetName     string     `json:"asset"`
	EffectiveDate civil.Date `json:"effective_date"`
	DeltaUnits    Amount     `json:"delta_units"`
}

// AssetUnits is one row of the initial-units listing.
type AssetUnits struct {
	Asset string `json:"asset"`
	Units Amount `json:"units"`
}

// TimeSeries is the daily value and weight composition of a portfolio.
// The three slices are index-aligned.
type TimeSeries struct {
	Dates   []civil.Date        `json:"dates"`
	Vt      []Amount            `json:"Vt"`
	Weights []map[string]Amount `json:"weights"`
}

// Len returns the number of days in the series.
func (ts *TimeSeries) Len() int {
	return len(ts.Dates)
}

// Valuation is the single-date view of a portfolio.
type Valuation struct {
	Date    civil.Date        `json:"date"`
	Units   map[string]Amount `json:"units"`
	Value   Amount            `json:"value"`
	Weights map[string]Amount `json:"weights"`
}

// TradeRequest moves value from one asset to another on a date.
type TradeRequest struct {
	PortfolioID             int64
	Date                    civil.Date
	AssetSell               string
	ValueSell               decimal.Decimal
	AssetBuy                string
	ValueBuy                decimal.Decimal
	FallbackToPreviousPrice bool
}

// TradeResult reports the units moved by a trade and the prices used.
type TradeResult struct {
	UnitsSell     Amount     `json:"units_sell"`
	UnitsBuy      Amount     `json:"units_buy"`
	PriceSell     Amount     `json:"price_sell"`
	PriceBuy      Amount     `json:"price_buy"`
	PriceDateSell civil.Date `json:"price_date_sell"`
	PriceDateBuy  civil.Date `json:"price_date_buy"`
	// Recorded counts the ledger rows this call inserted; a replay records 0.
	Recorded int `json:"recorded"`
}

// OperationLog is an audit entry for a state-changing operation.
type OperationLog struct {
	ID          int64   `json:"id"`
	Operation   string  `json:"operation_type"`
	PortfolioID *int64  `json:"portfolio_id,omitempty"`
	Asset       *string `json:"asset,omitempty"`
	Details     *string `json:"details,omitempty"`
	Value       *Amount `json:"value,omitempty"`
	CreatedAt   *string `json:"created_at,omitempty"`
}

// Operation log types.
const (
	OperationTrade  = "TRADE"
	OperationImport = "IMPORT"
)
