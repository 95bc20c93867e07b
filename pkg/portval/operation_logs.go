package portval

import (
	"context"
	"database/sql"
)

// AddOperationLog adds a new operation log entry.
func (c *Core) AddOperationLog(ctx context.Context, log OperationLog) (int64, error) {
	return addOperationLog(ctx, c.db, log)
}

func addOperationLog(ctx context.Context, q queryer, log OperationLog) (int64, error) {
	var value any
	if log.Value != nil {
		value = *log.Value
	}
	result, err := q.ExecContext(ctx, `
		INSERT INTO operation_logs (operation_type, portfolio_id, asset, details, value)
		VALUES (?, ?, ?, ?, ?)
	`, log.Operation, log.PortfolioID, log.Asset, log.Details, value)
	if err != nil {
		return 0, dbError("insert operation log", err)
	}
	return result.LastInsertId()
}

// GetOperationLogs returns recent operation logs, newest first.
func (c *Core) GetOperationLogs(ctx context.Context, limit, offset int) ([]OperationLog, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := c.db.QueryContext(ctx,
		"SELECT id, operation_type, portfolio_id, asset, details, value, created_at FROM operation_logs ORDER BY id DESC LIMIT ? OFFSET ?",
		limit, offset,
	)
	if err != nil {
		return nil, dbError("list operation logs", err)
	}
	defer rows.Close()

	var logs []OperationLog
	for rows.Next() {
		var log OperationLog
		var portfolioID sql.NullInt64
		var asset, details, value, createdAt sql.NullString
		if err := rows.Scan(&log.ID, &log.Operation, &portfolioID, &asset, &details, &value, &createdAt); err != nil {
			return nil, err
		}
		if portfolioID.Valid {
			log.PortfolioID = &portfolioID.Int64
		}
		if asset.Valid {
			log.Asset = &asset.String
		}
		if details.Valid {
			log.Details = &details.String
		}
		if value.Valid {
			a, err := ParseAmount(value.String)
			if err != nil {
				return nil, err
			}
			log.Value = &a
		}
		if createdAt.Valid {
			log.CreatedAt = &createdAt.String
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}
