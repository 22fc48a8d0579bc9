package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/goalcoach/internal/model"
)

// PostgresGoalRepo はPostgreSQLを使用した目標リポジトリ。
type PostgresGoalRepo struct {
	db *sql.DB
}

// NewPostgresGoalRepo はPostgresGoalRepoを生成する。
func NewPostgresGoalRepo(db *sql.DB) *PostgresGoalRepo {
	return &PostgresGoalRepo{db: db}
}

// FindByID は指定IDの目標を取得する。見つからない場合はnilを返す。
func (r *PostgresGoalRepo) FindByID(ctx context.Context, id string) (*model.Goal, error) {
	goal := &model.Goal{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, description, category, status, progress, deadline, created_at, updated_at
		 FROM goals WHERE id = $1`,
		id,
	).Scan(&goal.ID, &goal.UserID, &goal.Title, &goal.Description, &goal.Category,
		&goal.Status, &goal.Progress, &goal.Deadline, &goal.CreatedAt, &goal.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find goal by ID: %w", err)
	}

	return goal, nil
}

// Create は目標を作成する。
func (r *PostgresGoalRepo) Create(ctx context.Context, goal *model.Goal) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO goals (id, user_id, title, description, category, status, progress, deadline, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		goal.ID, goal.UserID, goal.Title, goal.Description, goal.Category,
		goal.Status, goal.Progress, goal.Deadline, goal.CreatedAt, goal.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert goal: %w", err)
	}
	return nil
}

// ListByUserIDWithSteps はユーザーの目標一覧をステップ付きで作成日時降順に返す。
// 目標ごとのステップは作成順。
func (r *PostgresGoalRepo) ListByUserIDWithSteps(ctx context.Context, userID string) ([]model.GoalWithSteps, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, title, description, category, status, progress, deadline, created_at, updated_at
		 FROM goals WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	defer rows.Close()

	var goals []model.GoalWithSteps
	var goalIDs []string
	index := make(map[string]int)

	for rows.Next() {
		var g model.Goal
		if err := rows.Scan(&g.ID, &g.UserID, &g.Title, &g.Description, &g.Category,
			&g.Status, &g.Progress, &g.Deadline, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		index[g.ID] = len(goals)
		goals = append(goals, model.GoalWithSteps{Goal: g})
		goalIDs = append(goalIDs, g.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate goals: %w", err)
	}

	if len(goalIDs) == 0 {
		return []model.GoalWithSteps{}, nil
	}

	stepRows, err := r.db.QueryContext(ctx,
		`SELECT id, goal_id, title, completed, due_date, created_at, updated_at
		 FROM steps WHERE goal_id = ANY($1) ORDER BY created_at`,
		pq.Array(goalIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list steps for goals: %w", err)
	}
	defer stepRows.Close()

	for stepRows.Next() {
		var s model.Step
		if err := stepRows.Scan(&s.ID, &s.GoalID, &s.Title, &s.Completed,
			&s.DueDate, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		if i, ok := index[s.GoalID]; ok {
			goals[i].Steps = append(goals[i].Steps, s)
		}
	}
	if err := stepRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate steps: %w", err)
	}

	return goals, nil
}

// ListActiveByUserID はユーザーの進行中の目標を返す。
func (r *PostgresGoalRepo) ListActiveByUserID(ctx context.Context, userID string) ([]*model.Goal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, title, description, category, status, progress, deadline, created_at, updated_at
		 FROM goals WHERE user_id = $1 AND status = 'active' ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list active goals: %w", err)
	}
	defer rows.Close()

	var goals []*model.Goal
	for rows.Next() {
		g := &model.Goal{}
		if err := rows.Scan(&g.ID, &g.UserID, &g.Title, &g.Description, &g.Category,
			&g.Status, &g.Progress, &g.Deadline, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		goals = append(goals, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate goals: %w", err)
	}

	return goals, nil
}

// UpdateDerived は導出フィールド（progress, status）を更新する。
func (r *PostgresGoalRepo) UpdateDerived(ctx context.Context, goalID string, progress int, status model.GoalStatus, updatedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE goals SET progress = $2, status = $3, updated_at = $4 WHERE id = $1`,
		goalID, progress, status, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update goal derived state: %w", err)
	}
	return nil
}

// UpdateStatus はユーザー操作によるステータス変更を適用する。
// 所有者スコープで更新し、対象が存在しない場合はfalseを返す。
func (r *PostgresGoalRepo) UpdateStatus(ctx context.Context, goalID, userID string, status model.GoalStatus, updatedAt time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE goals SET status = $3, updated_at = $4 WHERE id = $1 AND user_id = $2`,
		goalID, userID, status, updatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update goal status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

// compile-time interface check
var _ GoalRepository = (*PostgresGoalRepo)(nil)
