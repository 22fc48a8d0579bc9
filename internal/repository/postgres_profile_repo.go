package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/goalcoach/internal/model"
)

// PostgresProfileRepo はPostgreSQLを使用したプロフィールリポジトリ。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

// FindByID は指定IDのプロフィールを取得する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	profile := &model.Profile{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, name, onboarding_completed, focus_area, income_goal, target_deadline, obstacles, created_at
		 FROM users WHERE id = $1`,
		id,
	).Scan(&profile.ID, &profile.Email, &profile.Name, &profile.OnboardingCompleted,
		&profile.FocusArea, &profile.IncomeGoal, &profile.TargetDeadline,
		pq.Array(&profile.Obstacles), &profile.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find profile by ID: %w", err)
	}

	return profile, nil
}

// Create はプロフィールを作成する。
// 同一IDの行が既に存在する場合はErrDuplicateを返す。
// 並行トリガーによる二重作成の判別に使用される。
func (r *PostgresProfileRepo) Create(ctx context.Context, profile *model.Profile) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, onboarding_completed, focus_area, income_goal, target_deadline, obstacles, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		profile.ID, profile.Email, profile.Name, profile.OnboardingCompleted,
		profile.FocusArea, profile.IncomeGoal, profile.TargetDeadline,
		pq.Array(profile.Obstacles), profile.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("profile %s: %w", profile.ID, ErrDuplicate)
		}
		return fmt.Errorf("failed to insert profile: %w", err)
	}
	return nil
}

// Update は部分パッチを既存プロフィールにマージして更新する。
// nilフィールドはCOALESCEにより既存の値を維持する。
// プロフィールが存在しない場合はnilを返す。
func (r *PostgresProfileRepo) Update(ctx context.Context, id string, patch model.ProfilePatch) (*model.Profile, error) {
	var obstacles interface{}
	if patch.Obstacles != nil {
		obstacles = pq.Array(patch.Obstacles)
	}

	profile := &model.Profile{}
	err := r.db.QueryRowContext(ctx,
		`UPDATE users SET
		     name                 = COALESCE($2, name),
		     onboarding_completed = COALESCE($3, onboarding_completed),
		     focus_area           = COALESCE($4, focus_area),
		     income_goal          = COALESCE($5, income_goal),
		     target_deadline      = COALESCE($6, target_deadline),
		     obstacles            = COALESCE($7, obstacles)
		 WHERE id = $1
		 RETURNING id, email, name, onboarding_completed, focus_area, income_goal, target_deadline, obstacles, created_at`,
		id, patch.Name, patch.OnboardingCompleted, patch.FocusArea,
		patch.IncomeGoal, patch.TargetDeadline, obstacles,
	).Scan(&profile.ID, &profile.Email, &profile.Name, &profile.OnboardingCompleted,
		&profile.FocusArea, &profile.IncomeGoal, &profile.TargetDeadline,
		pq.Array(&profile.Obstacles), &profile.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return profile, nil
}

// compile-time interface check
var _ ProfileRepository = (*PostgresProfileRepo)(nil)
