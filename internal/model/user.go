// Package model はドメインモデルを定義する。
package model

import "time"

// Identity は認証プリンシパルを表す。
// サインアップ時に作成され、メール確認時にEmailConfirmedAtが設定される。
// パスワードハッシュはリポジトリ層の内部に留め、このモデルには含めない。
type Identity struct {
	ID                string
	Email             string
	EmailConfirmedAt  *time.Time // 未確認の場合はnil
	ConfirmationToken string     // 確認済みの場合は空文字列
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Confirmed はメールアドレスが確認済みかどうかを返す。
func (i *Identity) Confirmed() bool {
	return i.EmailConfirmedAt != nil
}

// Session はクライアントとIdentityを結びつける一時的な認証情報を表す。
// ライフサイクル: 不在 → 確立（サインインまたは復元） → 終了（サインアウトまたは期限切れ）。
type Session struct {
	ID         string
	IdentityID string
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

// Profile はIdentityと1:1で対応するアプリケーション所有のユーザーレコード。
// IDはIdentity IDと同一（これが一意性キー）。
// Profile ReconcilerがIdentityの初回観測時に遅延作成する。
type Profile struct {
	ID                  string
	Email               string
	Name                *string
	OnboardingCompleted bool
	FocusArea           *string
	IncomeGoal          *int64
	TargetDeadline      *time.Time
	Obstacles           []string
	CreatedAt           time.Time
}

// ProfilePatch はProfileの部分更新を表す。
// nilフィールドは変更せず、既存の値を維持する。
type ProfilePatch struct {
	Name                *string
	OnboardingCompleted *bool
	FocusArea           *string
	IncomeGoal          *int64
	TargetDeadline      *time.Time
	Obstacles           []string // nilは変更なし、空スライスはクリア
}
