// Package repository はデータ永続化のインターフェースを定義する。
//
// 共通の契約:
//   - Find系は「該当行なし」をエラーではなく (nil, nil) で返す。
//   - Create系は一意性制約違反を ErrDuplicate（ラップ可）で返し、
//     その他の失敗と判別可能にする。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/goalcoach/internal/model"
)

// IdentityRepository は認証プリンシパルの永続化インターフェース。
type IdentityRepository interface {
	// Create はIdentityをパスワードハッシュとともに作成する。
	// メールアドレスが既に登録されている場合はErrDuplicateを返す。
	Create(ctx context.Context, identity *model.Identity, passwordHash string) error

	// FindByEmail はメールアドレスでIdentityとパスワードハッシュを取得する。
	// 見つからない場合は (nil, "", nil) を返す。
	FindByEmail(ctx context.Context, email string) (*model.Identity, string, error)

	// FindByID は指定IDのIdentityを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Identity, error)

	// ConfirmByToken は確認トークンに一致するIdentityのemail_confirmed_atを設定し、
	// トークンをクリアする。トークンが無効な場合はnilを返す。
	ConfirmByToken(ctx context.Context, token string, confirmedAt time.Time) (*model.Identity, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。存在しない場合もエラーにしない。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByIdentityID は指定Identityの全セッションを削除する。
	DeleteByIdentityID(ctx context.Context, identityID string) error
	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// ProfileRepository はプロフィールデータの永続化インターフェース。
type ProfileRepository interface {
	// FindByID は指定ID（= Identity ID）のプロフィールを取得する。
	// 見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Profile, error)

	// Create はプロフィールを作成する。
	// 同一IDの行が既に存在する場合はErrDuplicateを返す。
	Create(ctx context.Context, profile *model.Profile) error

	// Update は部分パッチを既存プロフィールにマージして更新する。
	// nilフィールドは変更しない。プロフィールが存在しない場合はnilを返す。
	Update(ctx context.Context, id string, patch model.ProfilePatch) (*model.Profile, error)
}

// GoalRepository は目標データの永続化インターフェース。
type GoalRepository interface {
	// FindByID は指定IDの目標を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Goal, error)

	// Create は目標を作成する。
	Create(ctx context.Context, goal *model.Goal) error

	// ListByUserIDWithSteps はユーザーの目標一覧をステップ付きで作成日時降順に返す。
	ListByUserIDWithSteps(ctx context.Context, userID string) ([]model.GoalWithSteps, error)

	// ListActiveByUserID はユーザーの進行中の目標を返す。
	ListActiveByUserID(ctx context.Context, userID string) ([]*model.Goal, error)

	// UpdateDerived は導出フィールド（progress, status）を更新する。
	UpdateDerived(ctx context.Context, goalID string, progress int, status model.GoalStatus, updatedAt time.Time) error

	// UpdateStatus はユーザー操作によるステータス変更を適用する。
	// 対象が存在しない場合はfalseを返す。
	UpdateStatus(ctx context.Context, goalID, userID string, status model.GoalStatus, updatedAt time.Time) (bool, error)
}

// StepRepository はステップデータの永続化インターフェース。
type StepRepository interface {
	// FindByID は指定IDのステップを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Step, error)

	// CreateBatch は複数ステップを一括作成する。
	CreateBatch(ctx context.Context, steps []*model.Step) error

	// ListByGoalID は目標に属する全ステップを作成順に返す。
	ListByGoalID(ctx context.Context, goalID string) ([]model.Step, error)

	// UpdateCompleted はステップの完了フラグを更新し、更新後の行を返す。
	// 対象が存在しない場合はnilを返す。
	UpdateCompleted(ctx context.Context, stepID string, completed bool, updatedAt time.Time) (*model.Step, error)
}

// ChatRepository はチャットセッションとメッセージの永続化インターフェース。
type ChatRepository interface {
	// FindSessionByID はセッションIDと所有者IDでセッションを取得する。
	// 見つからない場合はnilを返す。
	FindSessionByID(ctx context.Context, sessionID, userID string) (*model.ChatSession, error)

	// CreateSession はセッションを作成する。
	// 同一IDの行が既に存在する場合はErrDuplicateを返す。
	CreateSession(ctx context.Context, session *model.ChatSession) error

	// CountSessionsByUserID はユーザーのセッション数を返す。
	CountSessionsByUserID(ctx context.Context, userID string) (int, error)

	// CreateMessage はメッセージを作成し、採番されたpositionを書き戻す。
	CreateMessage(ctx context.Context, message *model.Message) error

	// ListMessagesBySessionID はセッションの全メッセージを挿入順（position昇順）に返す。
	ListMessagesBySessionID(ctx context.Context, sessionID string) ([]model.Message, error)

	// ListRecentMessages はセッションの直近limit件を時系列順（古い→新しい）で返す。
	ListRecentMessages(ctx context.Context, sessionID string, limit int) ([]model.Message, error)

	// CountMessagesByUserID はユーザーの全セッション合計のメッセージ数を返す。
	CountMessagesByUserID(ctx context.Context, userID string) (int, error)
}
