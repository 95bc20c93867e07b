package portval

import (
	"context"
	"database/sql"
	"errors"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// UpsertPortfolio creates the named portfolio or overwrites its V0 and t0.
func (c *Core) UpsertPortfolio(ctx context.Context, name string, initialValue decimal.Decimal, initialDate civil.Date) (int64, error) {
	var id int64
	err := c.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = upsertPortfolio(ctx, tx, name, initialValue, initialDate)
		return err
	})
	return id, err
}

func upsertPortfolio(ctx context.Context, q queryer, name string, initialValue decimal.Decimal, initialDate civil.Date) (int64, error) {
	name = normalizeName(name)
	if name == "" {
		return 0, NewError(ErrCodeInvalidInput, "portfolio name required")
	}
	if !initialValue.IsPositive() {
		return 0, Errorf(ErrCodeValidation, "initial value must be positive, got %s", initialValue)
	}
	if !initialDate.IsValid() {
		return 0, NewError(ErrCodeInvalidInput, "initial date required")
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO portfolios (name, initial_value, initial_date)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			initial_value = excluded.initial_value,
			initial_date = excluded.initial_date
	`, name, NewAmount(initialValue), initialDate.String())
	if err != nil {
		return 0, dbError("upsert portfolio", err)
	}
	var id int64
	if err := q.QueryRowContext(ctx, "SELECT id FROM portfolios WHERE name = ?", name).Scan(&id); err != nil {
		return 0, dbError("lookup portfolio", err)
	}
	return id, nil
}

// GetPortfolio returns a portfolio by ID or a NOT_FOUND error.
func (c *Core) GetPortfolio(ctx context.Context, id int64) (*Portfolio, error) {
	return scanPortfolio(c.db.QueryRowContext(ctx,
		"SELECT id, name, initial_value, initial_date FROM portfolios WHERE id = ?", id),
		"portfolio %d not found", id)
}

// GetPortfolioByName returns a portfolio by name or a NOT_FOUND error.
func (c *Core) GetPortfolioByName(ctx context.Context, name string) (*Portfolio, error) {
	name = normalizeName(name)
	return scanPortfolio(c.db.QueryRowContext(ctx,
		"SELECT id, name, initial_value, initial_date FROM portfolios WHERE name = ?", name),
		"portfolio %q not found", name)
}

func scanPortfolio(row *sql.Row, notFound string, key any) (*Portfolio, error) {
	var p Portfolio
	var date dateColumn
	err := row.Scan(&p.ID, &p.Name, &p.InitialValue, &date)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, Errorf(ErrCodeNotFound, notFound, key)
	}
	if err != nil {
		return nil, dbError("load portfolio", err)
	}
	p.InitialDate = date.Date
	return &p, nil
}

// ListPortfolios returns all portfolios ordered by ID.
func (c *Core) ListPortfolios(ctx context.Context) ([]Portfolio, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT id, name, initial_value, initial_date FROM portfolios ORDER BY id")
	if err != nil {
		return nil, dbError("list portfolios", err)
	}
	defer rows.Close()

	var portfolios []Portfolio
	for rows.Next() {
		var p Portfolio
		var date dateColumn
		if err := rows.Scan(&p.ID, &p.Name, &p.InitialValue, &date); err != nil {
			return nil, err
		}
		p.InitialDate = date.Date
		portfolios = append(portfolios, p)
	}
	return portfolios, rows.Err()
}

// SetInitialWeight creates or replaces the t0 weight of an asset.
func (c *Core) SetInitialWeight(ctx context.Context, portfolioID int64, asset string, weight decimal.Decimal) error {
	return c.WithTx(ctx, func(tx *sql.Tx) error {
		assetID, err := ensureAsset(ctx, tx, asset)
		if err != nil {
			return err
		}
		return setInitialWeight(ctx, tx, portfolioID, assetID, weight)
	})
}

func setInitialWeight(ctx context.Context, q queryer, portfolioID, assetID int64, weight decimal.Decimal) error {
	if weight.IsNegative() {
		return Errorf(ErrCodeValidation, "weight must not be negative, got %s", weight)
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO initial_weights (portfolio_id, asset_id, weight)
		VALUES (?, ?, ?)
		ON CONFLICT(portfolio_id, asset_id) DO UPDATE SET weight = excluded.weight
	`, portfolioID, assetID, NewAmount(weight))
	return dbError("upsert initial weight", err)
}

// GetInitialWeights returns the t0 weights of a portfolio ordered by asset name.
func (c *Core) GetInitialWeights(ctx context.Context, portfolioID int64) ([]InitialWeight, error) {
	return initialWeights(ctx, c.db, portfolioID)
}

func initialWeights(ctx context.Context, q queryer, portfolioID int64) ([]InitialWeight, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT w.portfolio_id, w.asset_id, a.name, w.weight
		FROM initial_weights w
		JOIN assets a ON a.id = w.asset_id
		WHERE w.portfolio_id = ?
		ORDER BY a.name
	`, portfolioID)
	if err != nil {
		return nil, dbError("list initial weights", err)
	}
	defer rows.Close()

	var weights []InitialWeight
	for rows.Next() {
		var w InitialWeight
		if err := rows.Scan(&w.PortfolioID, &w.AssetID, &w.AssetName, &w.Weight); err != nil {
			return nil, err
		}
		weights = append(weights, w)
	}
	return weights, rows.Err()
}
