// Package analytics は目標・ステップ・チャットの集計ビューを提供する。
// 集計は保存せず、読み取りのたびに再計算する。
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/hitoshi/goalcoach/internal/model"
	"github.com/hitoshi/goalcoach/internal/repository"
)

// Summary はユーザーの活動サマリーを表す。
type Summary struct {
	TotalGoals      int
	ActiveGoals     int
	CompletedGoals  int
	PausedGoals     int
	TotalSteps      int
	CompletedSteps  int
	AverageProgress int // 全目標の平均進捗（四捨五入）
	GoalsByCategory map[string]int
	GoalsByStatus   map[string]int
	ChatSessions    int
	ChatMessages    int
	RecentGoals     []model.Goal // 更新日時の新しい順、最大10件
}

// recentGoalLimit はサマリーに含める直近目標の最大件数。
const recentGoalLimit = 10

// Service は集計ビューを提供する。
type Service struct {
	goalRepo repository.GoalRepository
	chatRepo repository.ChatRepository
}

// NewService はServiceを生成する。
func NewService(goalRepo repository.GoalRepository, chatRepo repository.ChatRepository) *Service {
	return &Service{
		goalRepo: goalRepo,
		chatRepo: chatRepo,
	}
}

// Summary はユーザーの活動サマリーを再計算して返す。
// 目標の取得失敗はエラーとして返す。チャット系カウンタの取得失敗は
// ログに記録した上でゼロに縮退し、サマリー全体は返す。
func (s *Service) Summary(ctx context.Context, userID string) (*Summary, error) {
	goals, err := s.goalRepo.ListByUserIDWithSteps(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals for summary: %w", err)
	}

	summary := &Summary{
		TotalGoals:      len(goals),
		GoalsByCategory: make(map[string]int),
		GoalsByStatus:   make(map[string]int),
	}

	progressSum := 0
	for _, g := range goals {
		progressSum += g.Progress
		summary.GoalsByCategory[g.Category]++
		summary.GoalsByStatus[string(g.Status)]++

		switch g.Status {
		case model.GoalStatusActive:
			summary.ActiveGoals++
		case model.GoalStatusCompleted:
			summary.CompletedGoals++
		case model.GoalStatusPaused:
			summary.PausedGoals++
		}

		summary.TotalSteps += len(g.Steps)
		for _, step := range g.Steps {
			if step.Completed {
				summary.CompletedSteps++
			}
		}
	}

	if len(goals) > 0 {
		// 整数演算での四捨五入
		summary.AverageProgress = (progressSum + len(goals)/2) / len(goals)
	}

	summary.RecentGoals = recentGoals(goals)

	sessions, err := s.chatRepo.CountSessionsByUserID(ctx, userID)
	if err != nil {
		slog.Warn("failed to count chat sessions, degrading to zero",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	} else {
		summary.ChatSessions = sessions
	}

	messages, err := s.chatRepo.CountMessagesByUserID(ctx, userID)
	if err != nil {
		slog.Warn("failed to count chat messages, degrading to zero",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	} else {
		summary.ChatMessages = messages
	}

	return summary, nil
}

// recentGoals は更新日時の新しい順に最大recentGoalLimit件を返す。
func recentGoals(goals []model.GoalWithSteps) []model.Goal {
	sorted := make([]model.Goal, len(goals))
	for i, g := range goals {
		sorted[i] = g.Goal
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].UpdatedAt.After(sorted[j].UpdatedAt)
	})
	if len(sorted) > recentGoalLimit {
		sorted = sorted[:recentGoalLimit]
	}
	return sorted
}
