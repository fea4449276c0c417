package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/sentinel-ops/sentinel/internal/checks"
)

// StoreCheckResult stores one health check result
func (s *SQLiteStorage) StoreCheckResult(ctx context.Context, result *checks.Result) error {
	query := `
		INSERT INTO check_results (
			check_id, check_name, component, tier, status,
			message, output, unreachable, duration_ms, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		result.CheckID,
		result.CheckName,
		result.Component,
		result.Tier.String(),
		result.Status,
		result.Message,
		result.Output,
		result.Unreachable,
		result.Duration.Milliseconds(),
		result.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to store check result (check=%s): %w", result.CheckID, err)
	}

	return nil
}

// GetRecentCheckResults retrieves the most recent check results up to the
// specified limit
func (s *SQLiteStorage) GetRecentCheckResults(ctx context.Context, limit int) ([]*checks.Result, error) {
	query := `
		SELECT check_id, check_name, component, tier, status,
		       message, output, unreachable, duration_ms, timestamp
		FROM check_results
		ORDER BY timestamp DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query check results: %w", err)
	}
	defer rows.Close()

	var result []*checks.Result
	for rows.Next() {
		var r checks.Result
		var tier string
		var durationMs int64

		err := rows.Scan(
			&r.CheckID,
			&r.CheckName,
			&r.Component,
			&tier,
			&r.Status,
			&r.Message,
			&r.Output,
			&r.Unreachable,
			&durationMs,
			&r.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan check result row: %w", err)
		}

		parsed, err := checks.ParseTier(tier)
		if err != nil {
			return nil, fmt.Errorf("invalid tier in check result row: %w", err)
		}
		r.Tier = parsed
		r.Duration = time.Duration(durationMs) * time.Millisecond

		result = append(result, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating check result rows: %w", err)
	}

	return result, nil
}

// GetLatestCheckResult retrieves the most recent result for one check
func (s *SQLiteStorage) GetLatestCheckResult(ctx context.Context, checkID string) (*checks.Result, error) {
	query := `
		SELECT check_id, check_name, component, tier, status,
		       message, output, unreachable, duration_ms, timestamp
		FROM check_results
		WHERE check_id = ?
		ORDER BY timestamp DESC
		LIMIT 1
	`

	var r checks.Result
	var tier string
	var durationMs int64

	err := s.db.QueryRowContext(ctx, query, checkID).Scan(
		&r.CheckID,
		&r.CheckName,
		&r.Component,
		&tier,
		&r.Status,
		&r.Message,
		&r.Output,
		&r.Unreachable,
		&durationMs,
		&r.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest check result for %s: %w", checkID, err)
	}

	parsed, err := checks.ParseTier(tier)
	if err != nil {
		return nil, fmt.Errorf("invalid tier in check result row: %w", err)
	}
	r.Tier = parsed
	r.Duration = time.Duration(durationMs) * time.Millisecond

	return &r, nil
}
