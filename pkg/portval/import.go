package portval

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// importBatchSize bounds how many prices one insert pass handles.
const importBatchSize = 5000

// PortfolioSeed is the base definition of a portfolio as loaded by an import.
type PortfolioSeed struct {
	Name         string
	InitialValue decimal.Decimal
	InitialDate  civil.Date
	Weights      map[string]decimal.Decimal
}

// Dataset is a complete import: portfolios with their t0 weights and the
// price history of their assets.
type Dataset struct {
	// Label tags the IMPORT operation log entry, e.g. with a run ID.
	Label      string
	Portfolios []PortfolioSeed
	Prices     []Price
}

// ImportSummary reports what an import wrote.
type ImportSummary struct {
	Portfolios     int `json:"portfolios"`
	Assets         int `json:"assets"`
	Weights        int `json:"weights"`
	PricesRead     int `json:"prices_read"`
	PricesInserted int `json:"prices_inserted"`
}

// Import loads a dataset in one transaction. Portfolios are created or have
// their V0 and t0 overwritten, weights are upserted and prices are appended,
// skipping (asset, date) pairs already stored.
func (c *Core) Import(ctx context.Context, ds Dataset) (*ImportSummary, error) {
	if len(ds.Portfolios) == 0 {
		return nil, NewError(ErrCodeInvalidInput, "dataset has no portfolios")
	}
	summary := &ImportSummary{PricesRead: len(ds.Prices)}
	err := c.WithTx(ctx, func(tx *sql.Tx) error {
		assetIDs := map[string]int64{}
		resolve := func(name string) (int64, error) {
			name = normalizeName(name)
			if id, ok := assetIDs[name]; ok {
				return id, nil
			}
			id, err := ensureAsset(ctx, tx, name)
			if err != nil {
				return 0, err
			}
			assetIDs[name] = id
			return id, nil
		}

		for _, seed := range ds.Portfolios {
			pid, err := upsertPortfolio(ctx, tx, seed.Name, seed.InitialValue, seed.InitialDate)
			if err != nil {
				return err
			}
			names := make([]string, 0, len(seed.Weights))
			for name := range seed.Weights {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				aid, err := resolve(name)
				if err != nil {
					return err
				}
				if err := setInitialWeight(ctx, tx, pid, aid, seed.Weights[name]); err != nil {
					return err
				}
				summary.Weights++
			}
			summary.Portfolios++
		}

		for startIdx := 0; startIdx < len(ds.Prices); startIdx += importBatchSize {
			endIdx := min(startIdx+importBatchSize, len(ds.Prices))
			batch := make([]Price, 0, endIdx-startIdx)
			for _, p := range ds.Prices[startIdx:endIdx] {
				aid, err := resolve(p.AssetName)
				if err != nil {
					return err
				}
				p.AssetID = aid
				batch = append(batch, p)
			}
			n, err := addPrices(ctx, tx, batch)
			if err != nil {
				return err
			}
			summary.PricesInserted += n
		}
		summary.Assets = len(assetIDs)

		details := fmt.Sprintf("portfolios=%d assets=%d weights=%d prices=%d/%d",
			summary.Portfolios, summary.Assets, summary.Weights, summary.PricesInserted, summary.PricesRead)
		if ds.Label != "" {
			details = ds.Label + ": " + details
		}
		_, err := addOperationLog(ctx, tx, OperationLog{Operation: OperationImport, Details: &details})
		return err
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info("import completed",
		"portfolios", summary.Portfolios,
		"assets", summary.Assets,
		"weights", summary.Weights,
		"prices_read", summary.PricesRead,
		"prices_inserted", summary.PricesInserted,
	)
	return summary, nil
}
