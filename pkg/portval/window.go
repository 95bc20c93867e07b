package portval

import (
	"context"

	"cloud.google.com/go/civil"
)

// CheckSeriesWindow validates a requested [start, end] window against the
// stored prices before a series is built. The window must be ordered and lie
// inside the first and last price dates. With no prices stored only the
// ordering is checked.
func (c *Core) CheckSeriesWindow(ctx context.Context, start, end civil.Date) error {
	if start.After(end) {
		return Errorf(ErrCodeInvalidInput, "start date %s is after end date %s", start, end)
	}
	first, last, ok, err := c.PriceDateRange(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if end.After(last) {
		return Errorf(ErrCodeInvalidInput, "end date %s cannot be later than %s, the last price date", end, last)
	}
	if start.Before(first) {
		return Errorf(ErrCodeInvalidInput, "start date %s cannot be earlier than %s, the first price date", start, first)
	}
	return nil
}
