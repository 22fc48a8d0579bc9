package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/goalcoach/internal/goal"
	"github.com/hitoshi/goalcoach/internal/middleware"
	"github.com/hitoshi/goalcoach/internal/model"
)

// StepServiceInterface はステップハンドラーが必要とするサービスインターフェース。
type StepServiceInterface interface {
	ToggleStep(ctx context.Context, userID, stepID string, completed bool) (*goal.ToggleResult, error)
}

// StepMetrics はステップ操作のメトリクス記録インターフェース。
type StepMetrics interface {
	RecordStepToggle()
	RecordGoalCompleted()
}

// StepHandler はステップ完了トグルのHTTPハンドラー。
type StepHandler struct {
	service StepServiceInterface
	metrics StepMetrics // nil可
}

// NewStepHandler はStepHandlerを生成する。metricsはnilでもよい。
func NewStepHandler(service StepServiceInterface, metrics StepMetrics) *StepHandler {
	return &StepHandler{
		service: service,
		metrics: metrics,
	}
}

// toggleStepRequest はステップ完了トグルリクエストのボディ。
type toggleStepRequest struct {
	Completed bool `json:"completed"`
}

// goalSummary は再計算後の目標状態の要約。
type goalSummary struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
}

// toggleStepResponse はステップ完了トグルのAPIレスポンス。
// 目標の再計算に失敗した場合、ステップ更新自体は成功として返し
// GoalUpdateFailedで警告する。
type toggleStepResponse struct {
	Step             stepResponse `json:"step"`
	Goal             goalSummary  `json:"goal"`
	GoalUpdateFailed bool         `json:"goal_update_failed,omitempty"`
}

// ToggleStep はステップの完了状態を変更し、所属目標の進捗を再計算する。
// PATCH /api/steps/{id}
func (h *StepHandler) ToggleStep(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	stepID := chi.URLParam(r, "id")

	var req toggleStepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	result, err := h.service.ToggleStep(r.Context(), userID, stepID, req.Completed)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordStepToggle()
		if !result.GoalUpdateFailed && result.Goal.Status == model.GoalStatusCompleted && req.Completed {
			h.metrics.RecordGoalCompleted()
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toggleStepResponse{
		Step: toStepResponse(result.Step),
		Goal: goalSummary{
			ID:       result.Goal.ID,
			Status:   string(result.Goal.Status),
			Progress: result.Goal.Progress,
		},
		GoalUpdateFailed: result.GoalUpdateFailed,
	})
}
