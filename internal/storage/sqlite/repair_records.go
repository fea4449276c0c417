package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/sentinel-ops/sentinel/internal/repair"
)

// StoreRepairRecord stores a repair execution and its step outcomes in
// a single transaction
func (s *SQLiteStorage) StoreRepairRecord(ctx context.Context, record *repair.ExecutionRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO repair_records (id, workflow_id, timestamp, overall, summary, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		record.ID,
		record.WorkflowID,
		record.Timestamp,
		record.Overall,
		record.Summary,
		record.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to store repair record (workflow=%s): %w", record.WorkflowID, err)
	}

	for i, step := range record.Steps {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO repair_step_outcomes (record_id, step_order, name, outcome, detail, attempts, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			record.ID,
			i,
			step.Name,
			step.Outcome,
			step.Detail,
			step.Attempts,
			step.Duration.Milliseconds(),
		)
		if err != nil {
			return fmt.Errorf("failed to store step outcome %q: %w", step.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit repair record: %w", err)
	}

	return nil
}

// GetRecentRepairRecords retrieves the most recent repair executions,
// including their step outcomes, up to the specified limit
func (s *SQLiteStorage) GetRecentRepairRecords(ctx context.Context, limit int) ([]*repair.ExecutionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workflow_id, timestamp, overall, summary, duration_ms
		FROM repair_records
		ORDER BY timestamp DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query repair records: %w", err)
	}
	defer rows.Close()

	var result []*repair.ExecutionRecord
	for rows.Next() {
		var record repair.ExecutionRecord
		var durationMs int64

		err := rows.Scan(
			&record.ID,
			&record.WorkflowID,
			&record.Timestamp,
			&record.Overall,
			&record.Summary,
			&durationMs,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan repair record row: %w", err)
		}
		record.Duration = time.Duration(durationMs) * time.Millisecond

		result = append(result, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating repair record rows: %w", err)
	}

	for _, record := range result {
		steps, err := s.getStepOutcomes(ctx, record.ID)
		if err != nil {
			return nil, err
		}
		record.Steps = steps
	}

	return result, nil
}

func (s *SQLiteStorage) getStepOutcomes(ctx context.Context, recordID string) ([]repair.StepResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, outcome, detail, attempts, duration_ms
		FROM repair_step_outcomes
		WHERE record_id = ?
		ORDER BY step_order ASC
	`, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to query step outcomes for %s: %w", recordID, err)
	}
	defer rows.Close()

	var steps []repair.StepResult
	for rows.Next() {
		var step repair.StepResult
		var durationMs int64

		err := rows.Scan(&step.Name, &step.Outcome, &step.Detail, &step.Attempts, &durationMs)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step outcome row: %w", err)
		}
		step.Duration = time.Duration(durationMs) * time.Millisecond

		steps = append(steps, step)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating step outcome rows: %w", err)
	}

	return steps, nil
}
