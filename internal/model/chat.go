// Package model はドメインモデルを定義する。
package model

import "time"

// MessageSender はメッセージの送信者種別を表す。
type MessageSender string

const (
	// SenderUser はユーザーが送信したメッセージを示す。
	SenderUser MessageSender = "user"
	// SenderAssistant はAIコーチが生成したメッセージを示す。
	SenderAssistant MessageSender = "assistant"
)

// ChatSession はProfileに属するチャットセッションを表す。
// クライアントが生成したIDによる初回参照時に遅延作成される。
type ChatSession struct {
	ID        string
	UserID    string
	Title     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message はChatSession内の1メッセージを表す。
// セッション内のメッセージは作成順に全順序付けされ、
// 取得時もその順序が保持される（Positionが単調増加）。
type Message struct {
	ID        string
	SessionID string
	Position  int64 // セッション内の挿入順序。DBのシーケンスで採番される。
	Sender    MessageSender
	Role      *string // 任意のロールラベル（例: "coach"）
	Content   string
	CreatedAt time.Time
}
