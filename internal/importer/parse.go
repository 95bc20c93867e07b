package importer

import (
	"strings"

	"github.com/shopspring/decimal"

	"portval/pkg/portval"
)

var hundred = decimal.NewFromInt(100)

// ParseValue converts a spreadsheet cell to a decimal. It trims the cell,
// accepts a trailing % and a decimal comma. With percentAsFraction set, a
// value that had % or lies in (1, 100] is divided by 100. Empty cells are an
// error naming field.
func ParseValue(raw, field string, percentAsFraction bool) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" || strings.EqualFold(s, "nan") || strings.EqualFold(s, "none") {
		return decimal.Zero, portval.Errorf(portval.ErrCodeInvalidInput, "empty cell in %s", field)
	}

	hadPercent := false
	if strings.HasSuffix(s, "%") {
		hadPercent = true
		s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	}
	s = strings.ReplaceAll(s, ",", ".")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, portval.Errorf(portval.ErrCodeInvalidInput, "cannot parse %q as a number in %s", raw, field)
	}
	if percentAsFraction && (hadPercent || (d.GreaterThan(decimal.NewFromInt(1)) && d.LessThanOrEqual(hundred))) {
		d = d.Div(hundred)
	}
	return d, nil
}

// normalizeHeader lowercases and trims a column header for matching.
func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
}
