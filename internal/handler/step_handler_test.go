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

type mockStepService struct {
	toggleStepFn func(ctx context.Context, userID, stepID string, completed bool) (*goal.ToggleResult, error)
}

func (m *mockStepService) ToggleStep(ctx context.Context, userID, stepID string, completed bool) (*goal.ToggleResult, error) {
	return m.toggleStepFn(ctx, userID, stepID, completed)
}

type stepMetricsRecorder struct {
	toggles   int
	completed int
}

func (m *stepMetricsRecorder) RecordStepToggle()    { m.toggles++ }
func (m *stepMetricsRecorder) RecordGoalCompleted() { m.completed++ }

func toggleRouter(service StepServiceInterface, metrics StepMetrics) http.Handler {
	r := chi.NewRouter()
	r.Patch("/api/steps/{id}", NewStepHandler(service, metrics).ToggleStep)
	return r
}

func toggleResult(progress int, status model.GoalStatus) *goal.ToggleResult {
	return &goal.ToggleResult{
		Step: &model.Step{
			ID:        "step-1",
			GoalID:    "goal-1",
			Title:     "現状を書き出す",
			Completed: true,
			UpdatedAt: time.Now(),
		},
		Goal: &model.Goal{
			ID:       "goal-1",
			Status:   status,
			Progress: progress,
		},
	}
}

// ステップトグルが再計算後の目標状態とともに200で返ることを検証
func TestToggleStep_Success_ReturnsRecalculatedGoal(t *testing.T) {
	metrics := &stepMetricsRecorder{}
	service := &mockStepService{
		toggleStepFn: func(_ context.Context, userID, stepID string, completed bool) (*goal.ToggleResult, error) {
			if userID != "identity-1" || stepID != "step-1" || !completed {
				t.Errorf("unexpected args: %s %s %v", userID, stepID, completed)
			}
			return toggleResult(25, model.GoalStatusActive), nil
		},
	}

	w := httptest.NewRecorder()
	toggleRouter(service, metrics).ServeHTTP(w,
		authedRequest(http.MethodPatch, "/api/steps/step-1", `{"completed":true}`))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp toggleStepResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Step.ID != "step-1" || !resp.Step.Completed {
		t.Errorf("unexpected step response: %+v", resp.Step)
	}
	if resp.Goal.Progress != 25 || resp.Goal.Status != "active" {
		t.Errorf("unexpected goal summary: %+v", resp.Goal)
	}
	if resp.GoalUpdateFailed {
		t.Error("goal_update_failed should be false")
	}

	if metrics.toggles != 1 {
		t.Errorf("RecordStepToggle calls = %d, want 1", metrics.toggles)
	}
	if metrics.completed != 0 {
		t.Error("RecordGoalCompleted must not fire for partial progress")
	}
}

// 最後のステップ完了で目標達成メトリクスが記録されることを検証
func TestToggleStep_GoalCompleted_RecordsMetric(t *testing.T) {
	metrics := &stepMetricsRecorder{}
	service := &mockStepService{
		toggleStepFn: func(_ context.Context, _, _ string, _ bool) (*goal.ToggleResult, error) {
			return toggleResult(100, model.GoalStatusCompleted), nil
		},
	}

	w := httptest.NewRecorder()
	toggleRouter(service, metrics).ServeHTTP(w,
		authedRequest(http.MethodPatch, "/api/steps/step-1", `{"completed":true}`))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if metrics.completed != 1 {
		t.Errorf("RecordGoalCompleted calls = %d, want 1", metrics.completed)
	}
}

// 目標再計算失敗は警告フラグ付きの成功として返ることを検証
func TestToggleStep_GoalUpdateFailed_ReturnsWarning(t *testing.T) {
	service := &mockStepService{
		toggleStepFn: func(_ context.Context, _, _ string, _ bool) (*goal.ToggleResult, error) {
			result := toggleResult(0, model.GoalStatusActive)
			result.GoalUpdateFailed = true
			return result, nil
		},
	}

	w := httptest.NewRecorder()
	toggleRouter(service, nil).ServeHTTP(w,
		authedRequest(http.MethodPatch, "/api/steps/step-1", `{"completed":true}`))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp toggleStepResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.GoalUpdateFailed {
		t.Error("goal_update_failed should be true")
	}
}

// 他ユーザーのステップは404で返ることを検証
func TestToggleStep_ForeignStep_Returns404(t *testing.T) {
	service := &mockStepService{
		toggleStepFn: func(_ context.Context, _, stepID string, _ bool) (*goal.ToggleResult, error) {
			return nil, model.NewStepNotFoundError(stepID)
		},
	}

	w := httptest.NewRecorder()
	toggleRouter(service, nil).ServeHTTP(w,
		authedRequest(http.MethodPatch, "/api/steps/step-other", `{"completed":true}`))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if resp := decodeAPIError(t, w); resp.Code != model.ErrCodeStepNotFound {
		t.Errorf("code = %q, want %q", resp.Code, model.ErrCodeStepNotFound)
	}
}

// 不正なJSONボディは400で返ることを検証
func TestToggleStep_InvalidBody_Returns400(t *testing.T) {
	w := httptest.NewRecorder()
	toggleRouter(&mockStepService{}, nil).ServeHTTP(w,
		authedRequest(http.MethodPatch, "/api/steps/step-1", "{broken"))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
