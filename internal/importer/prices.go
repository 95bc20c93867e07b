package importer

import (
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"

	"portval/pkg/portval"
)

// ReadPrices reads a wide prices CSV: the first column is the date and every
// other column is an asset. Every asset in assets must have a column; other
// columns are ignored.
func ReadPrices(r io.Reader, assets []string) ([]portval.Price, error) {
	records, err := gocsv.LazyCSVReader(r).ReadAll()
	if err != nil {
		return nil, portval.WrapError(portval.ErrCodeInvalidInput, "read prices csv", err)
	}
	if len(records) == 0 {
		return nil, portval.NewError(portval.ErrCodeInvalidInput, "prices csv is empty")
	}

	header := records[0]
	index := map[string]int{}
	var found []string
	for i, h := range header[1:] {
		name := strings.TrimSpace(h)
		index[name] = i + 1
		found = append(found, name)
	}
	var missing []string
	for _, a := range assets {
		if _, ok := index[a]; !ok {
			missing = append(missing, a)
		}
	}
	if len(missing) > 0 {
		return nil, portval.Errorf(portval.ErrCodeMissingData, "prices csv lacks columns for weighted assets %v (found %v)", missing, found)
	}

	prices := make([]portval.Price, 0, (len(records)-1)*len(assets))
	for rowNum, record := range records[1:] {
		if len(record) == 0 || (len(record) == 1 && strings.TrimSpace(record[0]) == "") {
			continue
		}
		d, err := portval.ParseDate(record[0])
		if err != nil {
			return nil, portval.Errorf(portval.ErrCodeInvalidInput, "prices row %d: invalid date %q", rowNum+2, record[0])
		}
		for _, asset := range assets {
			col := index[asset]
			var cell string
			if col < len(record) {
				cell = record[col]
			}
			price, err := ParseValue(cell, fmt.Sprintf("price[%s] %s", asset, d), false)
			if err != nil {
				return nil, err
			}
			prices = append(prices, portval.Price{
				AssetName: asset,
				Date:      d,
				Price:     portval.NewAmount(price),
			})
		}
	}
	return prices, nil
}
