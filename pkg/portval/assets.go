package portval

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

func normalizeName(name string) string {
	return strings.TrimSpace(name)
}

// EnsureAsset returns the ID of the named asset, creating it if needed.
func (c *Core) EnsureAsset(ctx context.Context, name string) (int64, error) {
	var id int64
	err := c.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = ensureAsset(ctx, tx, name)
		return err
	})
	return id, err
}

func ensureAsset(ctx context.Context, q queryer, name string) (int64, error) {
	name = normalizeName(name)
	if name == "" {
		return 0, NewError(ErrCodeInvalidInput, "asset name required")
	}
	var id int64
	err := q.QueryRowContext(ctx, "SELECT id FROM assets WHERE name = ?", name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, dbError("lookup asset", err)
	}
	result, err := q.ExecContext(ctx, "INSERT INTO assets (name) VALUES (?)", name)
	if err != nil {
		return 0, dbError("insert asset", err)
	}
	return result.LastInsertId()
}

// GetAssetByName returns the named asset or a NOT_FOUND error.
func (c *Core) GetAssetByName(ctx context.Context, name string) (*Asset, error) {
	return assetByName(ctx, c.db, name)
}

func assetByName(ctx context.Context, q queryer, name string) (*Asset, error) {
	name = normalizeName(name)
	var a Asset
	err := q.QueryRowContext(ctx, "SELECT id, name FROM assets WHERE name = ?", name).Scan(&a.ID, &a.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, Errorf(ErrCodeNotFound, "asset %q not found", name)
	}
	if err != nil {
		return nil, dbError("lookup asset", err)
	}
	return &a, nil
}

// ListAssets returns all assets ordered by name.
func (c *Core) ListAssets(ctx context.Context) ([]Asset, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT id, name FROM assets ORDER BY name")
	if err != nil {
		return nil, dbError("list assets", err)
	}
	defer rows.Close()

	var assets []Asset
	for rows.Next() {
		var a Asset
		if err := rows.Scan(&a.ID, &a.Name); err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}
