package auth

import (
	"sync"
	"testing"
)

// 購読者が登録順に通知を受け取ることを検証
func TestNotifier_DispatchOrder(t *testing.T) {
	notifier := NewNotifier()

	var order []string
	notifier.Subscribe(func(_ Transition) { order = append(order, "first") })
	notifier.Subscribe(func(_ Transition) { order = append(order, "second") })
	notifier.Subscribe(func(_ Transition) { order = append(order, "third") })

	notifier.notify(Transition{Kind: TransitionEstablished, IdentityID: "identity-1"})

	want := []string{"first", "second", "third"}
	if len(order) != len(want) {
		t.Fatalf("expected %d calls, got %d", len(want), len(order))
	}
	for i, name := range want {
		if order[i] != name {
			t.Errorf("position %d: got %s, want %s", i, order[i], name)
		}
	}
}

// 1遷移につき各購読者へ1回だけ通知されることを検証
func TestNotifier_AtMostOncePerTransition(t *testing.T) {
	notifier := NewNotifier()

	count := 0
	notifier.Subscribe(func(_ Transition) { count++ })

	notifier.notify(Transition{Kind: TransitionEstablished, IdentityID: "identity-1"})
	notifier.notify(Transition{Kind: TransitionTerminated, IdentityID: "identity-1"})

	if count != 2 {
		t.Errorf("expected 2 notifications, got %d", count)
	}
}

// 並行する遷移通知がデータ競合なく完了することを検証
func TestNotifier_ConcurrentNotify(t *testing.T) {
	notifier := NewNotifier()

	var mu sync.Mutex
	received := 0
	notifier.Subscribe(func(_ Transition) {
		mu.Lock()
		received++
		mu.Unlock()
	})

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			notifier.notify(Transition{Kind: TransitionEstablished, IdentityID: "identity-1"})
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if received != n {
		t.Errorf("expected %d notifications, got %d", n, received)
	}
}
