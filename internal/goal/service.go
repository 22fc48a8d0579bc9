// Package goal は目標とステップの管理、進捗の集約を提供する。
package goal

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/goalcoach/internal/model"
	"github.com/hitoshi/goalcoach/internal/repository"
	"github.com/hitoshi/goalcoach/internal/security"
)

// ServiceConfig は目標サービスの設定。
type ServiceConfig struct {
	DefaultStepTitles []string // 目標作成時に付与するデフォルトステップ
}

// CreateGoalInput は目標作成の入力を表す。
type CreateGoalInput struct {
	Title       string
	Description *string
	Category    string
	Deadline    *time.Time
}

// ToggleResult はステップ完了トグルの結果を表す。
// ステップの更新が成功した後の目標更新失敗はリクエスト全体の失敗とせず、
// GoalUpdateFailedで二次的な警告として報告する。
type ToggleResult struct {
	Step             *model.Step
	Goal             *model.Goal // 目標更新をスキップした場合は更新前の状態
	GoalUpdateFailed bool
}

// Service は目標に関するビジネスロジックを提供する。
type Service struct {
	goalRepo  repository.GoalRepository
	stepRepo  repository.StepRepository
	sanitizer security.ContentSanitizerService
	config    ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	goalRepo repository.GoalRepository,
	stepRepo repository.StepRepository,
	sanitizer security.ContentSanitizerService,
	config ServiceConfig,
) *Service {
	return &Service{
		goalRepo:  goalRepo,
		stepRepo:  stepRepo,
		sanitizer: sanitizer,
		config:    config,
	}
}

// CreateGoal は目標を作成し、設定されたデフォルトステップを付与する。
// 新規目標はstatus=active、progress=0で始まり、全ステップは未完了。
func (s *Service) CreateGoal(ctx context.Context, userID string, input CreateGoalInput) (*model.Goal, []model.Step, error) {
	if input.Title == "" {
		return nil, nil, fmt.Errorf("goal title is required")
	}

	now := time.Now()
	goal := &model.Goal{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     s.sanitizer.Sanitize(input.Title),
		Category:  input.Category,
		Status:    model.GoalStatusActive,
		Progress:  0,
		Deadline:  input.Deadline,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if input.Description != nil {
		sanitized := s.sanitizer.Sanitize(*input.Description)
		goal.Description = &sanitized
	}

	if err := s.goalRepo.Create(ctx, goal); err != nil {
		return nil, nil, fmt.Errorf("failed to create goal: %w", err)
	}

	steps := make([]*model.Step, 0, len(s.config.DefaultStepTitles))
	for i, title := range s.config.DefaultStepTitles {
		steps = append(steps, &model.Step{
			ID:        uuid.New().String(),
			GoalID:    goal.ID,
			Title:     title,
			Completed: false,
			// 作成順の取得が挿入順と一致するようタイムスタンプをずらす
			CreatedAt: now.Add(time.Duration(i) * time.Millisecond),
			UpdatedAt: now,
		})
	}

	if err := s.stepRepo.CreateBatch(ctx, steps); err != nil {
		return nil, nil, fmt.Errorf("failed to create default steps: %w", err)
	}

	slog.Info("goal created",
		slog.String("goal_id", goal.ID),
		slog.String("user_id", userID),
		slog.Int("default_steps", len(steps)),
	)

	result := make([]model.Step, len(steps))
	for i, step := range steps {
		result[i] = *step
	}
	return goal, result, nil
}

// ListGoals はユーザーの目標一覧をステップ付きで新しい順に返す。
func (s *Service) ListGoals(ctx context.Context, userID string) ([]model.GoalWithSteps, error) {
	goals, err := s.goalRepo.ListByUserIDWithSteps(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	return goals, nil
}

// ToggleStep はステップの完了状態を変更し、所属する目標の進捗を再計算する。
//
// 所有権はステップ→目標→ユーザーの連鎖で検証し、他ユーザーのステップは
// 存在しないものとして扱う。進捗は書き込み後に全ステップを読み直して
// 導出する（progress = round(100 × 完了数 / 総数)）。ステップが1件もない
// 目標は進捗が定義できないため更新をスキップする。
//
// 目標の更新失敗はステップ更新をロールバックせず、二次的な警告として
// 結果に含める。リクエスト自体は成功となる。
func (s *Service) ToggleStep(ctx context.Context, userID, stepID string, completed bool) (*ToggleResult, error) {
	step, err := s.stepRepo.FindByID(ctx, stepID)
	if err != nil {
		return nil, fmt.Errorf("failed to find step: %w", err)
	}
	if step == nil {
		return nil, model.NewStepNotFoundError(stepID)
	}

	goal, err := s.goalRepo.FindByID(ctx, step.GoalID)
	if err != nil {
		return nil, fmt.Errorf("failed to find goal for step: %w", err)
	}
	if goal == nil || goal.UserID != userID {
		// 他ユーザーのステップは存在を漏らさない
		return nil, model.NewStepNotFoundError(stepID)
	}

	now := time.Now()
	updated, err := s.stepRepo.UpdateCompleted(ctx, stepID, completed, now)
	if err != nil {
		return nil, fmt.Errorf("failed to update step: %w", err)
	}
	if updated == nil {
		return nil, model.NewStepNotFoundError(stepID)
	}

	result := &ToggleResult{Step: updated, Goal: goal}

	// 書き込み後の読み直しで進捗を導出する
	steps, err := s.stepRepo.ListByGoalID(ctx, step.GoalID)
	if err != nil {
		slog.Warn("failed to read steps for progress recalculation",
			slog.String("goal_id", goal.ID),
			slog.String("error", err.Error()),
		)
		result.GoalUpdateFailed = true
		return result, nil
	}

	if len(steps) == 0 {
		// ステップのない目標は進捗が定義できない
		return result, nil
	}

	progress, status := deriveProgress(steps)
	if err := s.goalRepo.UpdateDerived(ctx, goal.ID, progress, status, now); err != nil {
		slog.Warn("failed to update goal progress",
			slog.String("goal_id", goal.ID),
			slog.String("error", err.Error()),
		)
		result.GoalUpdateFailed = true
		return result, nil
	}

	recalculated := *goal
	recalculated.Progress = progress
	recalculated.Status = status
	recalculated.UpdatedAt = now
	result.Goal = &recalculated

	return result, nil
}

// UpdateGoalStatus はユーザー操作による目標ステータスの変更を適用する。
// pausedを書き込めるのはこの操作のみ。
func (s *Service) UpdateGoalStatus(ctx context.Context, userID, goalID, status string) error {
	if !model.ValidGoalStatus(status) {
		return model.NewInvalidGoalStatusError(status)
	}

	ok, err := s.goalRepo.UpdateStatus(ctx, goalID, userID, model.GoalStatus(status), time.Now())
	if err != nil {
		return fmt.Errorf("failed to update goal status: %w", err)
	}
	if !ok {
		return model.NewGoalNotFoundError(goalID)
	}

	slog.Info("goal status updated",
		slog.String("goal_id", goalID),
		slog.String("status", status),
	)
	return nil
}

// deriveProgress はステップ一覧から進捗率とステータスを導出する。
// progress = round(100 × 完了数 / 総数)。全ステップ完了のときのみcompleted、
// それ以外はactiveとなる（一時停止中の目標もステップ操作でactiveに戻る）。
// 丸めで進捗が100になっても未完了ステップが残っていればcompletedにはしない。
func deriveProgress(steps []model.Step) (int, model.GoalStatus) {
	completed := 0
	for _, s := range steps {
		if s.Completed {
			completed++
		}
	}

	progress := int(math.Round(100 * float64(completed) / float64(len(steps))))
	status := model.GoalStatusActive
	if completed == len(steps) {
		status = model.GoalStatusCompleted
	}
	return progress, status
}
