// Package model はドメインモデルを定義する。
package model

import "time"

// GoalStatus は目標のステータスを表す。
type GoalStatus string

const (
	// GoalStatusActive は進行中の目標を示す。
	GoalStatusActive GoalStatus = "active"
	// GoalStatusCompleted は全ステップ完了により達成された目標を示す。
	GoalStatusCompleted GoalStatus = "completed"
	// GoalStatusPaused はユーザーが明示的に一時停止した目標を示す。
	// ステップ駆動の再計算はpausedを書き込まない（ユーザー操作専用）。
	GoalStatusPaused GoalStatus = "paused"
)

// ValidGoalStatus はステータス文字列が定義済みの値かどうかを判定する。
func ValidGoalStatus(s string) bool {
	switch GoalStatus(s) {
	case GoalStatusActive, GoalStatusCompleted, GoalStatusPaused:
		return true
	default:
		return false
	}
}

// Goal はユーザーが所有する目標を表す。
// 不変条件: ProgressとStatusはStepsから導出可能
// （progress = round(100 × 完了ステップ数 / 全ステップ数)、
// progress = 100 のときのみ status = completed）。
// ステップが0件の目標は導出値が未定義となり、最後の明示的な値を維持する。
type Goal struct {
	ID          string
	UserID      string
	Title       string
	Description *string
	Category    string
	Status      GoalStatus
	Progress    int // 0〜100
	Deadline    *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Step はGoalに属するチェックリスト項目を表す。
// Goal作成時にデフォルトバッチで作成され、完了トグル操作で変更される。
type Step struct {
	ID        string
	GoalID    string
	Title     string
	Completed bool
	DueDate   *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GoalWithSteps はGoalと所属Stepsを結合した読み取り用構造体。
type GoalWithSteps struct {
	Goal
	Steps []Step
}
