package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/goalcoach/internal/model"
	"github.com/hitoshi/goalcoach/internal/repository"
)

// --- モック定義 ---

type mockGoalRepo struct {
	listWithStepsFn func(ctx context.Context, userID string) ([]model.GoalWithSteps, error)
}

func (m *mockGoalRepo) FindByID(_ context.Context, _ string) (*model.Goal, error) { return nil, nil }
func (m *mockGoalRepo) Create(_ context.Context, _ *model.Goal) error             { return nil }
func (m *mockGoalRepo) ListByUserIDWithSteps(ctx context.Context, userID string) ([]model.GoalWithSteps, error) {
	if m.listWithStepsFn != nil {
		return m.listWithStepsFn(ctx, userID)
	}
	return nil, nil
}
func (m *mockGoalRepo) ListActiveByUserID(_ context.Context, _ string) ([]*model.Goal, error) {
	return nil, nil
}
func (m *mockGoalRepo) UpdateDerived(_ context.Context, _ string, _ int, _ model.GoalStatus, _ time.Time) error {
	return nil
}
func (m *mockGoalRepo) UpdateStatus(_ context.Context, _, _ string, _ model.GoalStatus, _ time.Time) (bool, error) {
	return false, nil
}

type mockChatRepo struct {
	countSessionsFn func(ctx context.Context, userID string) (int, error)
	countMessagesFn func(ctx context.Context, userID string) (int, error)
}

func (m *mockChatRepo) FindSessionByID(_ context.Context, _, _ string) (*model.ChatSession, error) {
	return nil, nil
}
func (m *mockChatRepo) CreateSession(_ context.Context, _ *model.ChatSession) error { return nil }
func (m *mockChatRepo) CountSessionsByUserID(ctx context.Context, userID string) (int, error) {
	if m.countSessionsFn != nil {
		return m.countSessionsFn(ctx, userID)
	}
	return 0, nil
}
func (m *mockChatRepo) CreateMessage(_ context.Context, _ *model.Message) error { return nil }
func (m *mockChatRepo) ListMessagesBySessionID(_ context.Context, _ string) ([]model.Message, error) {
	return nil, nil
}
func (m *mockChatRepo) ListRecentMessages(_ context.Context, _ string, _ int) ([]model.Message, error) {
	return nil, nil
}
func (m *mockChatRepo) CountMessagesByUserID(ctx context.Context, userID string) (int, error) {
	if m.countMessagesFn != nil {
		return m.countMessagesFn(ctx, userID)
	}
	return 0, nil
}

var _ repository.GoalRepository = (*mockGoalRepo)(nil)
var _ repository.ChatRepository = (*mockChatRepo)(nil)

func goalWith(id string, status model.GoalStatus, progress int, category string, updatedAt time.Time, steps ...bool) model.GoalWithSteps {
	g := model.GoalWithSteps{
		Goal: model.Goal{
			ID:        id,
			Status:    status,
			Progress:  progress,
			Category:  category,
			UpdatedAt: updatedAt,
		},
	}
	for i, c := range steps {
		g.Steps = append(g.Steps, model.Step{ID: id + "-step-" + string(rune('a'+i)), Completed: c})
	}
	return g
}

// --- Summary ---

// 目標・ステップ・カテゴリ別・ステータス別の集計を検証
func TestSummary_Aggregates(t *testing.T) {
	now := time.Now()
	goalRepo := &mockGoalRepo{
		listWithStepsFn: func(_ context.Context, _ string) ([]model.GoalWithSteps, error) {
			return []model.GoalWithSteps{
				goalWith("g1", model.GoalStatusActive, 50, "income", now, true, true, false, false),
				goalWith("g2", model.GoalStatusCompleted, 100, "income", now, true, true),
				goalWith("g3", model.GoalStatusPaused, 25, "habit", now, true, false, false, false),
			}, nil
		},
	}
	chatRepo := &mockChatRepo{
		countSessionsFn: func(_ context.Context, _ string) (int, error) { return 2, nil },
		countMessagesFn: func(_ context.Context, _ string) (int, error) { return 14, nil },
	}
	svc := NewService(goalRepo, chatRepo)

	summary, err := svc.Summary(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.TotalGoals != 3 {
		t.Errorf("TotalGoals = %d, want 3", summary.TotalGoals)
	}
	if summary.ActiveGoals != 1 || summary.CompletedGoals != 1 || summary.PausedGoals != 1 {
		t.Errorf("status counts = %d/%d/%d, want 1/1/1",
			summary.ActiveGoals, summary.CompletedGoals, summary.PausedGoals)
	}
	if summary.TotalSteps != 10 {
		t.Errorf("TotalSteps = %d, want 10", summary.TotalSteps)
	}
	if summary.CompletedSteps != 5 {
		t.Errorf("CompletedSteps = %d, want 5", summary.CompletedSteps)
	}
	// (50+100+25)/3 = 58.33 → 58
	if summary.AverageProgress != 58 {
		t.Errorf("AverageProgress = %d, want 58", summary.AverageProgress)
	}
	if summary.GoalsByCategory["income"] != 2 || summary.GoalsByCategory["habit"] != 1 {
		t.Errorf("GoalsByCategory = %v", summary.GoalsByCategory)
	}
	if summary.GoalsByStatus["active"] != 1 || summary.GoalsByStatus["completed"] != 1 {
		t.Errorf("GoalsByStatus = %v", summary.GoalsByStatus)
	}
	if summary.ChatSessions != 2 || summary.ChatMessages != 14 {
		t.Errorf("chat counts = %d/%d, want 2/14", summary.ChatSessions, summary.ChatMessages)
	}
}

// 目標がない場合の空サマリーを検証
func TestSummary_Empty(t *testing.T) {
	svc := NewService(&mockGoalRepo{}, &mockChatRepo{})

	summary, err := svc.Summary(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.TotalGoals != 0 || summary.AverageProgress != 0 {
		t.Errorf("expected zeroed summary, got %+v", summary)
	}
	if len(summary.RecentGoals) != 0 {
		t.Errorf("expected no recent goals, got %d", len(summary.RecentGoals))
	}
}

// 直近目標が更新日時の新しい順で最大10件に制限されることを検証
func TestSummary_RecentGoalsLimited(t *testing.T) {
	base := time.Now()
	goalRepo := &mockGoalRepo{
		listWithStepsFn: func(_ context.Context, _ string) ([]model.GoalWithSteps, error) {
			var goals []model.GoalWithSteps
			for i := 0; i < 12; i++ {
				goals = append(goals, goalWith(
					string(rune('a'+i)), model.GoalStatusActive, 0, "habit",
					base.Add(time.Duration(i)*time.Minute),
				))
			}
			return goals, nil
		},
	}
	svc := NewService(goalRepo, &mockChatRepo{})

	summary, err := svc.Summary(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(summary.RecentGoals) != 10 {
		t.Fatalf("expected 10 recent goals, got %d", len(summary.RecentGoals))
	}
	for i := 1; i < len(summary.RecentGoals); i++ {
		if summary.RecentGoals[i].UpdatedAt.After(summary.RecentGoals[i-1].UpdatedAt) {
			t.Error("recent goals must be ordered newest first")
		}
	}
	// 最新の目標が先頭
	if summary.RecentGoals[0].ID != "l" {
		t.Errorf("newest goal first, got %q", summary.RecentGoals[0].ID)
	}
}

// チャット系カウンタの取得失敗はゼロに縮退し、サマリー全体は返ることを検証
func TestSummary_ChatCountersDegrade(t *testing.T) {
	now := time.Now()
	goalRepo := &mockGoalRepo{
		listWithStepsFn: func(_ context.Context, _ string) ([]model.GoalWithSteps, error) {
			return []model.GoalWithSteps{goalWith("g1", model.GoalStatusActive, 40, "income", now)}, nil
		},
	}
	chatRepo := &mockChatRepo{
		countSessionsFn: func(_ context.Context, _ string) (int, error) { return 0, errors.New("db down") },
		countMessagesFn: func(_ context.Context, _ string) (int, error) { return 0, errors.New("db down") },
	}
	svc := NewService(goalRepo, chatRepo)

	summary, err := svc.Summary(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("chat failure must not fail the summary: %v", err)
	}
	if summary.ChatSessions != 0 || summary.ChatMessages != 0 {
		t.Errorf("expected degraded zero counts, got %d/%d", summary.ChatSessions, summary.ChatMessages)
	}
	if summary.TotalGoals != 1 {
		t.Errorf("goal aggregation must still run, TotalGoals = %d", summary.TotalGoals)
	}
}

// 目標の取得失敗はエラーとして伝播することを検証
func TestSummary_GoalFetchFailureSurfaced(t *testing.T) {
	goalRepo := &mockGoalRepo{
		listWithStepsFn: func(_ context.Context, _ string) ([]model.GoalWithSteps, error) {
			return nil, errors.New("db down")
		},
	}
	svc := NewService(goalRepo, &mockChatRepo{})

	if _, err := svc.Summary(context.Background(), "user-1"); err == nil {
		t.Fatal("expected error")
	}
}
