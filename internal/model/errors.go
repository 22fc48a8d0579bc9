// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, profile, goal, chat, validation, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeEmailNotConfirmed  = "EMAIL_NOT_CONFIRMED"
	ErrCodeRateLimited        = "RATE_LIMITED"
	ErrCodeEmailTaken         = "EMAIL_TAKEN"
	ErrCodeInvalidEmail       = "INVALID_EMAIL"
	ErrCodeWeakPassword       = "WEAK_PASSWORD"
	ErrCodeInvalidToken       = "INVALID_TOKEN"
	ErrCodeProfileUnavailable = "PROFILE_UNAVAILABLE"
	ErrCodeProfileNotFound    = "PROFILE_NOT_FOUND"
	ErrCodeGoalNotFound       = "GOAL_NOT_FOUND"
	ErrCodeStepNotFound       = "STEP_NOT_FOUND"
	ErrCodeInvalidGoalStatus  = "INVALID_GOAL_STATUS"
	ErrCodeSessionNotFound    = "CHAT_SESSION_NOT_FOUND"
	ErrCodeCoachKeyRequired   = "COACH_KEY_REQUIRED"
	ErrCodeCoachUnavailable   = "COACH_UNAVAILABLE"
)

// NewInvalidCredentialsError は認証情報不一致エラーを生成する。
// メールアドレスの存在有無は漏らさない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewEmailNotConfirmedError はメール未確認エラーを生成する。
func NewEmailNotConfirmedError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailNotConfirmed,
		Message:  "メールアドレスが確認されていません。",
		Category: "auth",
		Action:   "登録時に送信された確認メールのリンクをクリックしてください。",
	}
}

// NewRateLimitedError はサインイン試行の頻度超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "サインインの試行回数が上限に達しました。",
		Category: "auth",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewEmailTakenError はメールアドレス重複エラーを生成する。
func NewEmailTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailTaken,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "auth",
		Action:   "サインインするか、別のメールアドレスを使用してください。",
	}
}

// NewInvalidEmailError は無効なメールアドレス形式エラーを生成する。
func NewInvalidEmailError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidEmail,
		Message:  "メールアドレスの形式が正しくありません。",
		Category: "validation",
		Action:   "正しいメールアドレスを入力してください。",
	}
}

// NewWeakPasswordError はパスワードポリシー違反エラーを生成する。
func NewWeakPasswordError(minLength int) *APIError {
	return &APIError{
		Code:     ErrCodeWeakPassword,
		Message:  fmt.Sprintf("パスワードは%d文字以上で入力してください。", minLength),
		Category: "validation",
		Action:   "より長いパスワードを設定してください。",
	}
}

// NewInvalidTokenError は無効な確認トークンエラーを生成する。
func NewInvalidTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidToken,
		Message:  "確認トークンが無効または期限切れです。",
		Category: "auth",
		Action:   "最新の確認メールのリンクを使用してください。",
	}
}

// NewProfileUnavailableError はプロフィール取得・作成失敗エラーを生成する。
// 次回のIdentity観測時に再試行される（自動リトライはしない）。
func NewProfileUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeProfileUnavailable,
		Message:  "プロフィールを利用できません。",
		Category: "profile",
		Action:   "ページを再読み込みするか、サインインし直してください。",
	}
}

// NewProfileNotFoundError はプロフィール未作成エラーを生成する。
func NewProfileNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeProfileNotFound,
		Message:  "プロフィールが見つかりません。",
		Category: "profile",
		Action:   "サインインし直してください。",
	}
}

// NewGoalNotFoundError は目標未検出エラーを生成する。
func NewGoalNotFoundError(goalID string) *APIError {
	return &APIError{
		Code:     ErrCodeGoalNotFound,
		Message:  fmt.Sprintf("指定された目標が見つかりません: %s", goalID),
		Category: "goal",
		Action:   "目標IDを確認してください。",
	}
}

// NewStepNotFoundError はステップ未検出エラーを生成する。
func NewStepNotFoundError(stepID string) *APIError {
	return &APIError{
		Code:     ErrCodeStepNotFound,
		Message:  fmt.Sprintf("指定されたステップが見つかりません: %s", stepID),
		Category: "goal",
		Action:   "ステップIDを確認してください。",
	}
}

// NewInvalidGoalStatusError は無効な目標ステータスエラーを生成する。
func NewInvalidGoalStatusError(status string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidGoalStatus,
		Message:  fmt.Sprintf("無効なステータスです: %s", status),
		Category: "validation",
		Action:   "ステータスには active、completed、paused のいずれかを指定してください。",
	}
}

// NewChatSessionNotFoundError はチャットセッション未検出エラーを生成する。
func NewChatSessionNotFoundError(sessionID string) *APIError {
	return &APIError{
		Code:     ErrCodeSessionNotFound,
		Message:  fmt.Sprintf("指定されたチャットセッションが見つかりません: %s", sessionID),
		Category: "chat",
		Action:   "セッションIDを確認してください。",
	}
}

// NewCoachKeyRequiredError はAPIキー未指定エラーを生成する。
func NewCoachKeyRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeCoachKeyRequired,
		Message:  "AIコーチのAPIキーが指定されていません。",
		Category: "chat",
		Action:   "設定画面でAPIキーを登録してください。",
	}
}

// NewCoachUnavailableError はチャット補完呼び出し失敗エラーを生成する。
// 自動リトライはしない。
func NewCoachUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeCoachUnavailable,
		Message:  "AIコーチへの接続に失敗しました。",
		Category: "chat",
		Action:   "APIキーを確認し、しばらく待ってから再度お試しください。",
	}
}
