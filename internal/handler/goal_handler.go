package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/goalcoach/internal/goal"
	"github.com/hitoshi/goalcoach/internal/middleware"
	"github.com/hitoshi/goalcoach/internal/model"
)

// GoalServiceInterface は目標ハンドラーが必要とするサービスインターフェース。
type GoalServiceInterface interface {
	CreateGoal(ctx context.Context, userID string, input goal.CreateGoalInput) (*model.Goal, []model.Step, error)
	ListGoals(ctx context.Context, userID string) ([]model.GoalWithSteps, error)
	UpdateGoalStatus(ctx context.Context, userID, goalID, status string) error
}

// GoalHandler は目標管理のHTTPハンドラー。
type GoalHandler struct {
	service GoalServiceInterface
}

// NewGoalHandler はGoalHandlerを生成する。
func NewGoalHandler(service GoalServiceInterface) *GoalHandler {
	return &GoalHandler{service: service}
}

// createGoalRequest は目標作成リクエストのボディ。
type createGoalRequest struct {
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Category    string     `json:"category"`
	Deadline    *time.Time `json:"deadline"`
}

// updateGoalStatusRequest は目標ステータス更新リクエストのボディ。
type updateGoalStatusRequest struct {
	Status string `json:"status"`
}

// stepResponse はステップ情報のAPIレスポンス。
type stepResponse struct {
	ID        string     `json:"id"`
	GoalID    string     `json:"goal_id"`
	Title     string     `json:"title"`
	Completed bool       `json:"completed"`
	DueDate   *time.Time `json:"due_date"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// goalResponse は目標情報のAPIレスポンス。
type goalResponse struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description *string        `json:"description"`
	Category    string         `json:"category"`
	Status      string         `json:"status"`
	Progress    int            `json:"progress"`
	Deadline    *time.Time     `json:"deadline"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Steps       []stepResponse `json:"steps"`
}

// CreateGoal は目標作成を処理する。デフォルトステップも同時に作成される。
// POST /api/goals
func (h *GoalHandler) CreateGoal(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req createGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	if req.Title == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "目標タイトルが空です。",
			Category: "validation",
			Action:   "タイトルを入力してください。",
		})
		return
	}

	created, steps, err := h.service.CreateGoal(r.Context(), userID, goal.CreateGoalInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Deadline:    req.Deadline,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toGoalResponse(created, steps))
}

// ListGoals は目標一覧を所属ステップとともに取得する。
// GET /api/goals
func (h *GoalHandler) ListGoals(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	goals, err := h.service.ListGoals(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]goalResponse, 0, len(goals))
	for i := range goals {
		responses = append(responses, toGoalResponse(&goals[i].Goal, goals[i].Steps))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(responses)
}

// UpdateGoalStatus は目標ステータスを明示的に変更する。
// PATCH /api/goals/{id}/status
func (h *GoalHandler) UpdateGoalStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	goalID := chi.URLParam(r, "id")

	var req updateGoalStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	if err := h.service.UpdateGoalStatus(r.Context(), userID, goalID, req.Status); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// toGoalResponse はmodel.GoalとステップからAPIレスポンスに変換する。
func toGoalResponse(g *model.Goal, steps []model.Step) goalResponse {
	stepResponses := make([]stepResponse, 0, len(steps))
	for _, s := range steps {
		stepResponses = append(stepResponses, toStepResponse(&s))
	}
	return goalResponse{
		ID:          g.ID,
		Title:       g.Title,
		Description: g.Description,
		Category:    g.Category,
		Status:      string(g.Status),
		Progress:    g.Progress,
		Deadline:    g.Deadline,
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
		Steps:       stepResponses,
	}
}

// toStepResponse はmodel.StepからAPIレスポンスに変換する。
func toStepResponse(s *model.Step) stepResponse {
	return stepResponse{
		ID:        s.ID,
		GoalID:    s.GoalID,
		Title:     s.Title,
		Completed: s.Completed,
		DueDate:   s.DueDate,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}
