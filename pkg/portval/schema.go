package portval

import (
	"database/sql"
)

// Decimal columns are TEXT so values round-trip exactly; dates are TEXT in
// YYYY-MM-DD so range predicates compare lexically.
func initDatabase(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS assets (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE
		)
	`); err != nil {
		return err
	}

	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS portfolios (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			initial_value TEXT NOT NULL,
			initial_date TEXT NOT NULL
		)
	`); err != nil {
		return err
	}

	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS prices (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			asset_id INTEGER NOT NULL,
			date TEXT NOT NULL,
			price TEXT NOT NULL,
			UNIQUE(asset_id, date),
			FOREIGN KEY(asset_id) REFERENCES assets(id) ON DELETE CASCADE
		)
	`); err != nil {
		return err
	}

	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS initial_weights (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			portfolio_id INTEGER NOT NULL,
			asset_id INTEGER NOT NULL,
			weight TEXT NOT NULL,
			UNIQUE(portfolio_id, asset_id),
			FOREIGN KEY(portfolio_id) REFERENCES portfolios(id) ON DELETE CASCADE,
			FOREIGN KEY(asset_id) REFERENCES assets(id) ON DELETE CASCADE
		)
	`); err != nil {
		return err
	}

	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS holding_adjustments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			portfolio_id INTEGER NOT NULL,
			asset_id INTEGER NOT NULL,
			effective_date TEXT NOT NULL,
			delta_units TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(portfolio_id) REFERENCES portfolios(id) ON DELETE CASCADE,
			FOREIGN KEY(asset_id) REFERENCES assets(id) ON DELETE CASCADE
		)
	`); err != nil {
		return err
	}

	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS operation_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			operation_type TEXT NOT NULL,
			portfolio_id INTEGER,
			asset TEXT,
			details TEXT,
			value TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return err
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_prices_date ON prices(date)",
		"CREATE INDEX IF NOT EXISTS idx_adjustments_portfolio_asset_date ON holding_adjustments(portfolio_id, asset_id, effective_date)",
		"CREATE INDEX IF NOT EXISTS idx_adjustments_portfolio_date ON holding_adjustments(portfolio_id, effective_date)",
	}
	for _, idx := range indexes {
		if err := exec(tx, idx); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	return nil
}

func exec(tx *sql.Tx, query string) error {
	_, err := tx.Exec(query)
	return err
}
