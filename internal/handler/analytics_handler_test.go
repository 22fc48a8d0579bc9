package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/goalcoach/internal/analytics"
	"github.com/hitoshi/goalcoach/internal/model"
)

type mockAnalyticsService struct {
	summaryFn func(ctx context.Context, userID string) (*analytics.Summary, error)
}

func (m *mockAnalyticsService) Summary(ctx context.Context, userID string) (*analytics.Summary, error) {
	return m.summaryFn(ctx, userID)
}

// 活動サマリーが200でJSONとして返ることを検証
func TestGetSummary_ReturnsSummary(t *testing.T) {
	service := &mockAnalyticsService{
		summaryFn: func(_ context.Context, userID string) (*analytics.Summary, error) {
			if userID != "identity-1" {
				t.Errorf("userID = %q, want identity-1", userID)
			}
			return &analytics.Summary{
				TotalGoals:      3,
				ActiveGoals:     2,
				CompletedGoals:  1,
				TotalSteps:      12,
				CompletedSteps:  5,
				AverageProgress: 58,
				GoalsByCategory: map[string]int{"income": 2, "skill": 1},
				GoalsByStatus:   map[string]int{"active": 2, "completed": 1},
				ChatSessions:    2,
				ChatMessages:    14,
				RecentGoals: []model.Goal{
					{ID: "goal-1", Title: "月5万円の副収入", Status: model.GoalStatusActive, UpdatedAt: time.Now()},
				},
			}, nil
		},
	}
	h := NewAnalyticsHandler(service)

	w := httptest.NewRecorder()
	h.GetSummary(w, authedRequest(http.MethodGet, "/api/analytics", ""))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp summaryResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.TotalGoals != 3 || resp.AverageProgress != 58 {
		t.Errorf("unexpected summary: %+v", resp)
	}
	if resp.GoalsByCategory["income"] != 2 {
		t.Errorf("goals_by_category[income] = %d, want 2", resp.GoalsByCategory["income"])
	}
	if len(resp.RecentGoals) != 1 || resp.RecentGoals[0].ID != "goal-1" {
		t.Errorf("unexpected recent goals: %+v", resp.RecentGoals)
	}
}

// 集計失敗は500で返ることを検証
func TestGetSummary_ServiceError_Returns500(t *testing.T) {
	service := &mockAnalyticsService{
		summaryFn: func(_ context.Context, _ string) (*analytics.Summary, error) {
			return nil, errors.New("db down")
		},
	}
	h := NewAnalyticsHandler(service)

	w := httptest.NewRecorder()
	h.GetSummary(w, authedRequest(http.MethodGet, "/api/analytics", ""))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

// 未認証リクエストは401で返ることを検証
func TestGetSummary_Unauthenticated_Returns401(t *testing.T) {
	h := NewAnalyticsHandler(&mockAnalyticsService{})

	req := httptest.NewRequest(http.MethodGet, "/api/analytics", nil)
	w := httptest.NewRecorder()

	h.GetSummary(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}
