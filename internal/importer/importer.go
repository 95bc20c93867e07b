// Package importer loads portfolio weights and price history from CSV files
// into the valuation store.
package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"portval/pkg/portval"
)

// DefaultInitialValue is V0 when none is given.
var DefaultInitialValue = decimal.NewFromInt(1_000_000_000)

// Options are the base values applied to every imported portfolio.
type Options struct {
	InitialDate  civil.Date
	InitialValue decimal.Decimal
}

// Importer writes CSV datasets into a Core.
type Importer struct {
	core   *portval.Core
	logger *slog.Logger
}

// New returns an Importer bound to core.
func New(core *portval.Core) *Importer {
	return &Importer{core: core, logger: core.Logger()}
}

// Result is the outcome of one import run.
type Result struct {
	RunID string `json:"run_id"`
	portval.ImportSummary
}

// BuildDataset reads the weights and prices CSVs into a dataset.
func BuildDataset(weights, prices io.Reader, opts Options) (portval.Dataset, error) {
	if !opts.InitialDate.IsValid() {
		return portval.Dataset{}, portval.NewError(portval.ErrCodeInvalidInput, "initial date required")
	}
	if opts.InitialValue.IsZero() {
		opts.InitialValue = DefaultInitialValue
	}
	if !opts.InitialValue.IsPositive() {
		return portval.Dataset{}, portval.Errorf(portval.ErrCodeValidation, "initial value must be positive, got %s", opts.InitialValue)
	}

	table, err := ReadWeights(weights, opts.InitialDate)
	if err != nil {
		return portval.Dataset{}, err
	}
	rows, err := ReadPrices(prices, table.Assets)
	if err != nil {
		return portval.Dataset{}, err
	}

	ds := portval.Dataset{Prices: rows}
	for _, name := range table.Portfolios {
		ds.Portfolios = append(ds.Portfolios, portval.PortfolioSeed{
			Name:         name,
			InitialValue: opts.InitialValue,
			InitialDate:  opts.InitialDate,
			Weights:      table.Weights[name],
		})
	}
	return ds, nil
}

// Import reads both CSVs and stores them in one transaction.
func (im *Importer) Import(ctx context.Context, weights, prices io.Reader, opts Options) (*Result, error) {
	runID := uuid.New().String()
	ds, err := BuildDataset(weights, prices, opts)
	if err != nil {
		im.logger.Error("import rejected", "run_id", runID, "err", err)
		return nil, err
	}
	ds.Label = "run " + runID
	im.logger.Info("import started",
		"run_id", runID,
		"portfolios", len(ds.Portfolios),
		"prices", len(ds.Prices),
		"initial_date", opts.InitialDate.String(),
	)
	summary, err := im.core.Import(ctx, ds)
	if err != nil {
		return nil, err
	}
	return &Result{RunID: runID, ImportSummary: *summary}, nil
}

// ImportFiles opens the two CSV files and imports them.
func (im *Importer) ImportFiles(ctx context.Context, weightsPath, pricesPath string, opts Options) (*Result, error) {
	wf, err := os.Open(weightsPath)
	if err != nil {
		return nil, fmt.Errorf("open weights file: %w", err)
	}
	defer wf.Close()
	pf, err := os.Open(pricesPath)
	if err != nil {
		return nil, fmt.Errorf("open prices file: %w", err)
	}
	defer pf.Close()
	return im.Import(ctx, wf, pf, opts)
}
