package auth

import "sync"

// TransitionKind はセッション遷移の種別を表す。
type TransitionKind string

const (
	// TransitionEstablished はセッション確立（サインインまたは起動時復元）を示す。
	TransitionEstablished TransitionKind = "established"
	// TransitionTerminated はセッション終了（サインアウトまたは期限切れ検出）を示す。
	TransitionTerminated TransitionKind = "terminated"
)

// Transition はセッション状態の遷移イベントを表す。
// Startupは起動時の復元による確立かどうかを示し、
// 購読側がライブなサインインと区別できるようにする。
type Transition struct {
	Kind       TransitionKind
	IdentityID string
	Startup    bool
}

// TransitionHandler はセッション遷移の通知を受け取る。
type TransitionHandler func(t Transition)

// Notifier はセッション遷移を購読者へ配信する。
// 配信は同期的かつ登録順で、1遷移につき各購読者へ最大1回通知される。
// 失敗した認証操作は遷移を発行しない。
type Notifier struct {
	mu       sync.Mutex
	handlers []TransitionHandler
}

// NewNotifier はNotifierを生成する。
func NewNotifier() *Notifier {
	return &Notifier{}
}

// Subscribe は遷移ハンドラを登録する。登録解除はサポートしない。
func (n *Notifier) Subscribe(h TransitionHandler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers = append(n.handlers, h)
}

// notify は全購読者へ遷移を配信する。
// ミューテックス下で実行されるため、並行する遷移の通知順序は
// 全購読者で一致する。
func (n *Notifier) notify(t Transition) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, h := range n.handlers {
		h(t)
	}
}
