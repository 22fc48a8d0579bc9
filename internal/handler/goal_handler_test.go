package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/goalcoach/internal/goal"
	"github.com/hitoshi/goalcoach/internal/model"
)

// --- モック定義 ---

type mockGoalService struct {
	createGoalFn       func(ctx context.Context, userID string, input goal.CreateGoalInput) (*model.Goal, []model.Step, error)
	listGoalsFn        func(ctx context.Context, userID string) ([]model.GoalWithSteps, error)
	updateGoalStatusFn func(ctx context.Context, userID, goalID, status string) error
}

func (m *mockGoalService) CreateGoal(ctx context.Context, userID string, input goal.CreateGoalInput) (*model.Goal, []model.Step, error) {
	return m.createGoalFn(ctx, userID, input)
}

func (m *mockGoalService) ListGoals(ctx context.Context, userID string) ([]model.GoalWithSteps, error) {
	return m.listGoalsFn(ctx, userID)
}

func (m *mockGoalService) UpdateGoalStatus(ctx context.Context, userID, goalID, status string) error {
	return m.updateGoalStatusFn(ctx, userID, goalID, status)
}

func testGoal() *model.Goal {
	return &model.Goal{
		ID:        "goal-1",
		UserID:    "identity-1",
		Title:     "月5万円の副収入",
		Category:  "income",
		Status:    model.GoalStatusActive,
		Progress:  0,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func testSteps() []model.Step {
	return []model.Step{
		{ID: "step-1", GoalID: "goal-1", Title: "現状を書き出す"},
		{ID: "step-2", GoalID: "goal-1", Title: "最初の行動を決める"},
	}
}

// --- CreateGoal ---

// 目標作成が201でデフォルトステップとともに返ることを検証
func TestCreateGoal_Success_Returns201(t *testing.T) {
	service := &mockGoalService{
		createGoalFn: func(_ context.Context, userID string, input goal.CreateGoalInput) (*model.Goal, []model.Step, error) {
			if userID != "identity-1" {
				t.Errorf("userID = %q, want identity-1", userID)
			}
			if input.Title != "月5万円の副収入" {
				t.Errorf("title = %q", input.Title)
			}
			return testGoal(), testSteps(), nil
		},
	}
	h := NewGoalHandler(service)

	w := httptest.NewRecorder()
	h.CreateGoal(w, authedRequest(http.MethodPost, "/api/goals",
		`{"title":"月5万円の副収入","category":"income"}`))

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", w.Code, http.StatusCreated)
	}

	var resp goalResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID != "goal-1" {
		t.Errorf("goal.id = %q, want goal-1", resp.ID)
	}
	if len(resp.Steps) != 2 {
		t.Errorf("steps count = %d, want 2", len(resp.Steps))
	}
}

// タイトル未指定は400で返ることを検証
func TestCreateGoal_EmptyTitle_Returns400(t *testing.T) {
	h := NewGoalHandler(&mockGoalService{})

	w := httptest.NewRecorder()
	h.CreateGoal(w, authedRequest(http.MethodPost, "/api/goals", `{"category":"income"}`))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// 未認証リクエストは401で返ることを検証
func TestCreateGoal_Unauthenticated_Returns401(t *testing.T) {
	h := NewGoalHandler(&mockGoalService{})

	req := httptest.NewRequest(http.MethodPost, "/api/goals", nil)
	w := httptest.NewRecorder()

	h.CreateGoal(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

// --- ListGoals ---

// 目標一覧がステップを含む配列で返ることを検証
func TestListGoals_ReturnsGoalsWithSteps(t *testing.T) {
	service := &mockGoalService{
		listGoalsFn: func(_ context.Context, _ string) ([]model.GoalWithSteps, error) {
			return []model.GoalWithSteps{
				{Goal: *testGoal(), Steps: testSteps()},
			}, nil
		},
	}
	h := NewGoalHandler(service)

	w := httptest.NewRecorder()
	h.ListGoals(w, authedRequest(http.MethodGet, "/api/goals", ""))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp []goalResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp) != 1 {
		t.Fatalf("goals count = %d, want 1", len(resp))
	}
	if len(resp[0].Steps) != 2 {
		t.Errorf("steps count = %d, want 2", len(resp[0].Steps))
	}
}

// 目標が0件でも空配列で返ることを検証（nullではない）
func TestListGoals_Empty_ReturnsEmptyArray(t *testing.T) {
	service := &mockGoalService{
		listGoalsFn: func(_ context.Context, _ string) ([]model.GoalWithSteps, error) {
			return nil, nil
		},
	}
	h := NewGoalHandler(service)

	w := httptest.NewRecorder()
	h.ListGoals(w, authedRequest(http.MethodGet, "/api/goals", ""))

	body := w.Body.String()
	if body == "null\n" {
		t.Error("empty goal list must be [] not null")
	}
}

// --- UpdateGoalStatus ---

// ステータス更新が204で返ることを検証
func TestUpdateGoalStatus_Success_Returns204(t *testing.T) {
	var gotGoalID, gotStatus string
	service := &mockGoalService{
		updateGoalStatusFn: func(_ context.Context, _, goalID, status string) error {
			gotGoalID = goalID
			gotStatus = status
			return nil
		},
	}

	r := chi.NewRouter()
	r.Patch("/api/goals/{id}/status", NewGoalHandler(service).UpdateGoalStatus)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(http.MethodPatch, "/api/goals/goal-1/status", `{"status":"paused"}`))

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if gotGoalID != "goal-1" || gotStatus != "paused" {
		t.Errorf("goalID = %q, status = %q", gotGoalID, gotStatus)
	}
}

// 無効なステータス値は400で返ることを検証
func TestUpdateGoalStatus_InvalidStatus_Returns400(t *testing.T) {
	service := &mockGoalService{
		updateGoalStatusFn: func(_ context.Context, _, _, status string) error {
			return model.NewInvalidGoalStatusError(status)
		},
	}

	r := chi.NewRouter()
	r.Patch("/api/goals/{id}/status", NewGoalHandler(service).UpdateGoalStatus)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(http.MethodPatch, "/api/goals/goal-1/status", `{"status":"archived"}`))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// 他ユーザーの目標は404で返ることを検証
func TestUpdateGoalStatus_ForeignGoal_Returns404(t *testing.T) {
	service := &mockGoalService{
		updateGoalStatusFn: func(_ context.Context, _, goalID, _ string) error {
			return model.NewGoalNotFoundError(goalID)
		},
	}

	r := chi.NewRouter()
	r.Patch("/api/goals/{id}/status", NewGoalHandler(service).UpdateGoalStatus)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(http.MethodPatch, "/api/goals/goal-other/status", `{"status":"paused"}`))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}
