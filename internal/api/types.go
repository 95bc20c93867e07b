package api

import (
	"portval/pkg/portval"
)

// tradePayload is the body of POST /api/portfolios/{id}/trade. The trade day
// may be sent as "fecha" or "date".
type tradePayload struct {
	Fecha                   string          `json:"fecha"`
	Date                    string          `json:"date"`
	AssetSell               string          `json:"asset_sell"`
	ValueSell               *portval.Amount `json:"value_sell"`
	AssetBuy                string          `json:"asset_buy"`
	ValueBuy                *portval.Amount `json:"value_buy"`
	FallbackToPreviousPrice *bool           `json:"fallback_to_previous_price"`
}

type tradeResponse struct {
	Status string `json:"status"`
	*portval.TradeResult
}

type portfolioSummary struct {
	ID           int64          `json:"id"`
	Name         string         `json:"name"`
	InitialValue portval.Amount `json:"initial_value"`
	InitialDate  string         `json:"initial_date"`
}

type portfoliosResponse struct {
	Portfolios   []portfolioSummary `json:"portfolios"`
	StartDefault string             `json:"start_default"`
	EndDefault   string             `json:"end_default"`
}

// chartResponse is the time series reshaped for plotting: one value series
// and one weight series per asset, with 0 where the asset had no price.
type chartResponse struct {
	PortfolioID int64                `json:"portfolio_id"`
	Name        string               `json:"name"`
	UseTrades   bool                 `json:"use_trades"`
	Dates       []string             `json:"dates"`
	Vt          []float64            `json:"vt"`
	Assets      []string             `json:"assets"`
	Series      map[string][]float64 `json:"series"`
	Summary     *chartSummary        `json:"summary,omitempty"`
}

type chartSummary struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Return float64 `json:"return"`
}

type operationLogsResponse struct {
	Items  []portval.OperationLog `json:"items"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
}
