package importer

import (
	"io"
	"sort"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"portval/pkg/portval"
)

var (
	weightDateHeaders  = []string{"fecha", "date"}
	weightAssetHeaders = []string{"activos", "activo", "asset", "assets"}
)

// maxListedDates caps how many available dates an error message lists.
const maxListedDates = 10

// WeightTable holds the t0 weights read from a weights CSV, keyed by
// portfolio then asset.
type WeightTable struct {
	Portfolios []string
	Assets     []string
	Weights    map[string]map[string]decimal.Decimal
}

// ReadWeights reads a weights CSV with a date column, an asset column and one
// column per portfolio, keeping only rows dated t0.
func ReadWeights(r io.Reader, t0 civil.Date) (*WeightTable, error) {
	rows, err := gocsv.CSVToMaps(r)
	if err != nil {
		return nil, portval.WrapError(portval.ErrCodeInvalidInput, "read weights csv", err)
	}
	if len(rows) == 0 {
		return nil, portval.NewError(portval.ErrCodeInvalidInput, "weights csv has no rows")
	}

	columns := make([]string, 0, len(rows[0]))
	for h := range rows[0] {
		columns = append(columns, h)
	}
	sort.Strings(columns)
	dateCol := findColumn(columns, weightDateHeaders)
	assetCol := findColumn(columns, weightAssetHeaders)
	var missing []string
	if dateCol == "" {
		missing = append(missing, "fecha")
	}
	if assetCol == "" {
		missing = append(missing, "activos")
	}
	if len(missing) > 0 {
		return nil, portval.Errorf(portval.ErrCodeInvalidInput, "weights csv is missing columns %v (headers: %v)", missing, columns)
	}

	var portfolioCols []string
	for _, h := range columns {
		if h != dateCol && h != assetCol && strings.TrimSpace(h) != "" {
			portfolioCols = append(portfolioCols, h)
		}
	}
	if len(portfolioCols) == 0 {
		return nil, portval.NewError(portval.ErrCodeInvalidInput, "weights csv has no portfolio columns")
	}

	table := &WeightTable{Weights: map[string]map[string]decimal.Decimal{}}
	for _, col := range portfolioCols {
		name := strings.TrimSpace(col)
		table.Portfolios = append(table.Portfolios, name)
		table.Weights[name] = map[string]decimal.Decimal{}
	}

	seenDates := map[civil.Date]bool{}
	seenAssets := map[string]bool{}
	for i, row := range rows {
		d, err := portval.ParseDate(row[dateCol])
		if err != nil {
			return nil, portval.Errorf(portval.ErrCodeInvalidInput, "weights row %d: invalid date %q", i+2, row[dateCol])
		}
		seenDates[d] = true
		if d != t0 {
			continue
		}
		asset := strings.TrimSpace(row[assetCol])
		if asset == "" || strings.EqualFold(asset, "nan") || strings.EqualFold(asset, "none") {
			continue
		}
		for _, col := range portfolioCols {
			name := strings.TrimSpace(col)
			w, err := ParseValue(row[col], "weights["+asset+"]-"+name, true)
			if err != nil {
				return nil, err
			}
			table.Weights[name][asset] = w
		}
		if !seenAssets[asset] {
			seenAssets[asset] = true
			table.Assets = append(table.Assets, asset)
		}
	}

	if len(table.Assets) == 0 {
		return nil, portval.Errorf(portval.ErrCodeMissingData, "no weight rows dated %s; available dates: %s", t0, listDates(seenDates))
	}
	sort.Strings(table.Assets)
	return table, nil
}

func findColumn(columns []string, candidates []string) string {
	for _, want := range candidates {
		for _, h := range columns {
			if normalizeHeader(h) == want {
				return h
			}
		}
	}
	return ""
}

func listDates(seen map[civil.Date]bool) string {
	dates := make([]civil.Date, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	parts := make([]string, 0, maxListedDates)
	for i, d := range dates {
		if i == maxListedDates {
			break
		}
		parts = append(parts, d.String())
	}
	out := "[" + strings.Join(parts, ", ") + "]"
	if len(dates) > maxListedDates {
		out += "..."
	}
	return out
}
