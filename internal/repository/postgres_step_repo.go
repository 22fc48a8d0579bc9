package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/goalcoach/internal/model"
)

// PostgresStepRepo はPostgreSQLを使用したステップリポジトリ。
type PostgresStepRepo struct {
	db *sql.DB
}

// NewPostgresStepRepo はPostgresStepRepoを生成する。
func NewPostgresStepRepo(db *sql.DB) *PostgresStepRepo {
	return &PostgresStepRepo{db: db}
}

// FindByID は指定IDのステップを取得する。見つからない場合はnilを返す。
func (r *PostgresStepRepo) FindByID(ctx context.Context, id string) (*model.Step, error) {
	step := &model.Step{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, goal_id, title, completed, due_date, created_at, updated_at
		 FROM steps WHERE id = $1`,
		id,
	).Scan(&step.ID, &step.GoalID, &step.Title, &step.Completed,
		&step.DueDate, &step.CreatedAt, &step.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find step by ID: %w", err)
	}

	return step, nil
}

// CreateBatch は複数ステップを単一トランザクションで一括作成する。
func (r *PostgresStepRepo) CreateBatch(ctx context.Context, steps []*model.Step) error {
	if len(steps) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO steps (id, goal_id, title, completed, due_date, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
	)
	if err != nil {
		return fmt.Errorf("failed to prepare step insert: %w", err)
	}
	defer stmt.Close()

	for _, step := range steps {
		if _, err := stmt.ExecContext(ctx,
			step.ID, step.GoalID, step.Title, step.Completed,
			step.DueDate, step.CreatedAt, step.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert step %s: %w", step.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit step batch: %w", err)
	}
	return nil
}

// ListByGoalID は目標に属する全ステップを作成順に返す。
func (r *PostgresStepRepo) ListByGoalID(ctx context.Context, goalID string) ([]model.Step, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, goal_id, title, completed, due_date, created_at, updated_at
		 FROM steps WHERE goal_id = $1 ORDER BY created_at`,
		goalID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list steps: %w", err)
	}
	defer rows.Close()

	var steps []model.Step
	for rows.Next() {
		var s model.Step
		if err := rows.Scan(&s.ID, &s.GoalID, &s.Title, &s.Completed,
			&s.DueDate, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		steps = append(steps, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate steps: %w", err)
	}

	return steps, nil
}

// UpdateCompleted はステップの完了フラグを更新し、更新後の行を返す。
// 対象が存在しない場合はnilを返す。
func (r *PostgresStepRepo) UpdateCompleted(ctx context.Context, stepID string, completed bool, updatedAt time.Time) (*model.Step, error) {
	step := &model.Step{}
	err := r.db.QueryRowContext(ctx,
		`UPDATE steps SET completed = $2, updated_at = $3
		 WHERE id = $1
		 RETURNING id, goal_id, title, completed, due_date, created_at, updated_at`,
		stepID, completed, updatedAt,
	).Scan(&step.ID, &step.GoalID, &step.Title, &step.Completed,
		&step.DueDate, &step.CreatedAt, &step.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update step completion: %w", err)
	}

	return step, nil
}

// compile-time interface check
var _ StepRepository = (*PostgresStepRepo)(nil)
