package api

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/go-chi/chi/v5"
	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"

	"portval/pkg/portval"
)

// fallbackStartDefault is offered as the chart start when no portfolio exists.
var fallbackStartDefault = civil.Date{Year: 2022, Month: 1, Day: 1}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) listPortfolios(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	portfolios, err := h.core.ListPortfolios(ctx)
	if err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err)
		return
	}
	last, ok, err := h.core.LastPriceDate(ctx)
	if err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err)
		return
	}

	start := fallbackStartDefault
	if len(portfolios) > 0 {
		start = portfolios[0].InitialDate
	}
	end := start
	if ok {
		end = last
	}

	resp := portfoliosResponse{
		Portfolios:   make([]portfolioSummary, 0, len(portfolios)),
		StartDefault: start.String(),
		EndDefault:   end.String(),
	}
	for _, p := range portfolios {
		resp.Portfolios = append(resp.Portfolios, portfolioSummary{
			ID:           p.ID,
			Name:         p.Name,
			InitialValue: p.InitialValue,
			InitialDate:  p.InitialDate.String(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) getInitialUnits(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	rows, err := h.core.InitialUnitsForAllAssets(r.Context(), id)
	if err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *handler) getTimeSeries(w http.ResponseWriter, r *http.Request) {
	p, start, end, useTrades, ok := h.seriesRequest(w, r)
	if !ok {
		return
	}
	ts, err := h.core.TimeSeries(r.Context(), p.ID, start, end, useTrades)
	if err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, ts)
}

func (h *handler) getChart(w http.ResponseWriter, r *http.Request) {
	p, start, end, useTrades, ok := h.seriesRequest(w, r)
	if !ok {
		return
	}
	ts, err := h.core.TimeSeries(r.Context(), p.ID, start, end, useTrades)
	if err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err)
		return
	}
	resp := buildChart(ts)
	resp.PortfolioID = p.ID
	resp.Name = p.Name
	resp.UseTrades = useTrades
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) getValuation(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	raw := firstNonEmpty(r.URL.Query().Get("date"), r.URL.Query().Get("fecha"))
	if raw == "" {
		writeError(w, r, http.StatusBadRequest, "date is required")
		return
	}
	d, err := portval.ParseDate(raw)
	if err != nil {
		writeErrorResponse(w, r, http.StatusBadRequest, err)
		return
	}
	v, err := h.core.ValuationOn(r.Context(), id, d)
	if err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *handler) applyTrade(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var payload tradePayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	rawDate := firstNonEmpty(payload.Fecha, payload.Date)
	if rawDate == "" {
		writeError(w, r, http.StatusBadRequest, "fecha is required")
		return
	}
	d, err := portval.ParseDate(rawDate)
	if err != nil {
		writeErrorResponse(w, r, http.StatusBadRequest, err)
		return
	}

	req := portval.TradeRequest{
		PortfolioID:             id,
		Date:                    d,
		AssetSell:               payload.AssetSell,
		ValueSell:               amountOrZero(payload.ValueSell),
		AssetBuy:                payload.AssetBuy,
		ValueBuy:                amountOrZero(payload.ValueBuy),
		FallbackToPreviousPrice: h.tradeFallback,
	}
	if payload.FallbackToPreviousPrice != nil {
		req.FallbackToPreviousPrice = *payload.FallbackToPreviousPrice
	}

	result, err := h.core.ApplyTrade(r.Context(), req)
	if err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, tradeResponse{Status: "ok", TradeResult: result})
}

func (h *handler) getOperationLogs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, offset := normalizeLimitOffset(
		parseIntDefault(query.Get("limit"), 100),
		parseIntDefault(query.Get("offset"), 0),
	)
	logs, err := h.core.GetOperationLogs(r.Context(), limit, offset)
	if err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err)
		return
	}
	if logs == nil {
		logs = []portval.OperationLog{}
	}
	writeJSON(w, http.StatusOK, operationLogsResponse{Items: logs, Limit: limit, Offset: offset})
}

// seriesRequest resolves the portfolio, the [start, end] window and the
// use_trades flag of a ranged request. Missing dates default to t0. The
// window must lie within the stored price dates and is checked here so the
// engine only sees valid ranges.
func (h *handler) seriesRequest(w http.ResponseWriter, r *http.Request) (*portval.Portfolio, civil.Date, civil.Date, bool, bool) {
	var zero civil.Date
	id, ok := parseID(w, r)
	if !ok {
		return nil, zero, zero, false, false
	}
	ctx := r.Context()
	p, err := h.core.GetPortfolio(ctx, id)
	if err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err)
		return nil, zero, zero, false, false
	}

	query := r.URL.Query()
	start, end := p.InitialDate, p.InitialDate
	if raw := firstNonEmpty(query.Get("fecha_inicio"), query.Get("start")); raw != "" {
		if start, err = portval.ParseDate(raw); err != nil {
			writeErrorResponse(w, r, http.StatusBadRequest, err)
			return nil, zero, zero, false, false
		}
	}
	if raw := firstNonEmpty(query.Get("fecha_fin"), query.Get("end")); raw != "" {
		if end, err = portval.ParseDate(raw); err != nil {
			writeErrorResponse(w, r, http.StatusBadRequest, err)
			return nil, zero, zero, false, false
		}
	}
	if err := h.core.CheckSeriesWindow(ctx, start, end); err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err)
		return nil, zero, zero, false, false
	}

	useTrades := true
	if raw := strings.TrimSpace(query.Get("use_trades")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid use_trades")
			return nil, zero, zero, false, false
		}
		useTrades = v
	}
	return p, start, end, useTrades, true
}

// buildChart reshapes a series into float arrays with one weight series per
// asset, sorted by name.
func buildChart(ts *portval.TimeSeries) chartResponse {
	resp := chartResponse{
		Dates:  make([]string, ts.Len()),
		Vt:     make([]float64, ts.Len()),
		Series: map[string][]float64{},
	}
	names := map[string]struct{}{}
	for i := range ts.Dates {
		resp.Dates[i] = ts.Dates[i].String()
		resp.Vt[i] = ts.Vt[i].InexactFloat64()
		for name := range ts.Weights[i] {
			names[name] = struct{}{}
		}
	}
	for name := range names {
		resp.Assets = append(resp.Assets, name)
	}
	sort.Strings(resp.Assets)
	for _, name := range resp.Assets {
		series := make([]float64, ts.Len())
		for i, day := range ts.Weights {
			if w, ok := day[name]; ok {
				series[i] = w.InexactFloat64()
			}
		}
		resp.Series[name] = series
	}
	resp.Summary = summarize(resp.Vt)
	return resp
}

// summarize describes the priced days of a value series. Days valued at 0
// had no prices and are left out. It returns nil when nothing was priced.
func summarize(vt []float64) *chartSummary {
	var priced stats.Float64Data
	for _, v := range vt {
		if v > 0 {
			priced = append(priced, v)
		}
	}
	if len(priced) == 0 {
		return nil
	}
	minV, _ := stats.Min(priced)
	maxV, _ := stats.Max(priced)
	mean, _ := stats.Mean(priced)
	stdDev, _ := stats.StandardDeviation(priced)
	return &chartSummary{
		Min:    minV,
		Max:    maxV,
		Mean:   mean,
		StdDev: stdDev,
		Return: priced[len(priced)-1]/priced[0] - 1,
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, r, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func amountOrZero(a *portval.Amount) decimal.Decimal {
	if a == nil {
		return decimal.Zero
	}
	return a.Decimal
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func parseIntDefault(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return i
}

func normalizeLimitOffset(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
