package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hitoshi/goalcoach/internal/analytics"
	"github.com/hitoshi/goalcoach/internal/middleware"
	"github.com/hitoshi/goalcoach/internal/model"
)

// AnalyticsServiceInterface は分析ハンドラーが必要とするサービスインターフェース。
type AnalyticsServiceInterface interface {
	Summary(ctx context.Context, userID string) (*analytics.Summary, error)
}

// AnalyticsHandler は活動サマリーのHTTPハンドラー。
type AnalyticsHandler struct {
	service AnalyticsServiceInterface
}

// NewAnalyticsHandler はAnalyticsHandlerを生成する。
func NewAnalyticsHandler(service AnalyticsServiceInterface) *AnalyticsHandler {
	return &AnalyticsHandler{service: service}
}

// recentGoalResponse はサマリー内の直近目標のAPIレスポンス。
type recentGoalResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	Status    string    `json:"status"`
	Progress  int       `json:"progress"`
	UpdatedAt time.Time `json:"updated_at"`
}

// summaryResponse は活動サマリーのAPIレスポンス。
type summaryResponse struct {
	TotalGoals      int                  `json:"total_goals"`
	ActiveGoals     int                  `json:"active_goals"`
	CompletedGoals  int                  `json:"completed_goals"`
	PausedGoals     int                  `json:"paused_goals"`
	TotalSteps      int                  `json:"total_steps"`
	CompletedSteps  int                  `json:"completed_steps"`
	AverageProgress int                  `json:"average_progress"`
	GoalsByCategory map[string]int       `json:"goals_by_category"`
	GoalsByStatus   map[string]int       `json:"goals_by_status"`
	ChatSessions    int                  `json:"chat_sessions"`
	ChatMessages    int                  `json:"chat_messages"`
	RecentGoals     []recentGoalResponse `json:"recent_goals"`
}

// GetSummary はユーザーの活動サマリーを返す。集計は読み取りのたびに再計算される。
// GET /api/analytics
func (h *AnalyticsHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	summary, err := h.service.Summary(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toSummaryResponse(summary))
}

// toSummaryResponse はanalytics.SummaryからAPIレスポンスに変換する。
func toSummaryResponse(s *analytics.Summary) summaryResponse {
	recent := make([]recentGoalResponse, 0, len(s.RecentGoals))
	for _, g := range s.RecentGoals {
		recent = append(recent, toRecentGoalResponse(&g))
	}
	return summaryResponse{
		TotalGoals:      s.TotalGoals,
		ActiveGoals:     s.ActiveGoals,
		CompletedGoals:  s.CompletedGoals,
		PausedGoals:     s.PausedGoals,
		TotalSteps:      s.TotalSteps,
		CompletedSteps:  s.CompletedSteps,
		AverageProgress: s.AverageProgress,
		GoalsByCategory: s.GoalsByCategory,
		GoalsByStatus:   s.GoalsByStatus,
		ChatSessions:    s.ChatSessions,
		ChatMessages:    s.ChatMessages,
		RecentGoals:     recent,
	}
}

// toRecentGoalResponse はmodel.Goalから直近目標のAPIレスポンスに変換する。
func toRecentGoalResponse(g *model.Goal) recentGoalResponse {
	return recentGoalResponse{
		ID:        g.ID,
		Title:     g.Title,
		Category:  g.Category,
		Status:    string(g.Status),
		Progress:  g.Progress,
		UpdatedAt: g.UpdatedAt,
	}
}
