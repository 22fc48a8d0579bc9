// Package chat はチャットセッションとメッセージの管理、AIコーチ連携を提供する。
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"

	"github.com/hitoshi/goalcoach/internal/coach"
	"github.com/hitoshi/goalcoach/internal/model"
	"github.com/hitoshi/goalcoach/internal/repository"
	"github.com/hitoshi/goalcoach/internal/security"
)

// ServiceConfig はチャットサービスの設定。
type ServiceConfig struct {
	HistoryLimit int    // プロンプトに含める直近メッセージ数
	SystemPrompt string // %sに進行中の目標一覧が展開される
}

// SendResult はメッセージ送信の結果を表す。
type SendResult struct {
	UserMessage      *model.Message
	AssistantMessage *model.Message
}

// Service はチャットに関するビジネスロジックを提供する。
// セッションはクライアントが生成したIDによる初回参照時に遅延作成される。
type Service struct {
	chatRepo  repository.ChatRepository
	goalRepo  repository.GoalRepository
	completer coach.Completer
	sanitizer security.ContentSanitizerService
	config    ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	chatRepo repository.ChatRepository,
	goalRepo repository.GoalRepository,
	completer coach.Completer,
	sanitizer security.ContentSanitizerService,
	config ServiceConfig,
) *Service {
	return &Service{
		chatRepo:  chatRepo,
		goalRepo:  goalRepo,
		completer: completer,
		sanitizer: sanitizer,
		config:    config,
	}
}

// GetOrCreateSession はセッションを取得し、存在しない場合は作成する。
// 作成が一意性制約違反で失敗した場合は並行する参照が先に作成したとみなし、
// 再取得して既存の行を返す。
func (s *Service) GetOrCreateSession(ctx context.Context, userID, sessionID string) (*model.ChatSession, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session ID is required")
	}

	session, err := s.chatRepo.FindSessionByID(ctx, sessionID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find chat session: %w", err)
	}
	if session != nil {
		return session, nil
	}

	now := time.Now()
	newSession := &model.ChatSession{
		ID:        sessionID,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.chatRepo.CreateSession(ctx, newSession); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			existing, fetchErr := s.chatRepo.FindSessionByID(ctx, sessionID, userID)
			if fetchErr != nil {
				return nil, fmt.Errorf("failed to re-fetch chat session after conflict: %w", fetchErr)
			}
			if existing == nil {
				// 同一IDのセッションが別ユーザーに属している
				return nil, model.NewChatSessionNotFoundError(sessionID)
			}
			return existing, nil
		}
		return nil, fmt.Errorf("failed to create chat session: %w", err)
	}

	slog.Info("chat session created",
		slog.String("session_id", sessionID),
		slog.String("user_id", userID),
	)
	return newSession, nil
}

// ListMessages はセッションの全メッセージを作成順に返す。
// 存在しないセッションは参照時に遅延作成され、空の一覧を返す。
func (s *Service) ListMessages(ctx context.Context, userID, sessionID string) ([]model.Message, error) {
	session, err := s.GetOrCreateSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	messages, err := s.chatRepo.ListMessagesBySessionID(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	if messages == nil {
		messages = []model.Message{}
	}
	return messages, nil
}

// SendMessage はユーザーメッセージを保存し、AIコーチの応答を生成して保存する。
//
// APIキーは呼び出しごとにクライアントから渡され、サーバー側には保存しない。
// 補完の失敗はCOACH_UNAVAILABLEとなるが、ユーザーメッセージは
// その時点で既に保存済みであり、取り消されない。自動リトライはしない。
func (s *Service) SendMessage(ctx context.Context, userID, sessionID, text, apiKey string) (*SendResult, error) {
	if apiKey == "" {
		return nil, model.NewCoachKeyRequiredError()
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("message text is required")
	}

	session, err := s.GetOrCreateSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	userMessage := &model.Message{
		ID:        uuid.New().String(),
		SessionID: session.ID,
		Sender:    model.SenderUser,
		Content:   s.sanitizer.Sanitize(text),
		CreatedAt: time.Now(),
	}
	if err := s.chatRepo.CreateMessage(ctx, userMessage); err != nil {
		return nil, fmt.Errorf("failed to save user message: %w", err)
	}

	prompt, err := s.buildPrompt(ctx, userID, session.ID)
	if err != nil {
		return nil, err
	}

	reply, err := s.completer.Complete(ctx, apiKey, prompt)
	if err != nil {
		slog.Error("coach completion failed",
			slog.String("session_id", session.ID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewCoachUnavailableError()
	}

	role := "coach"
	assistantMessage := &model.Message{
		ID:        uuid.New().String(),
		SessionID: session.ID,
		Sender:    model.SenderAssistant,
		Role:      &role,
		Content:   reply,
		CreatedAt: time.Now(),
	}
	if err := s.chatRepo.CreateMessage(ctx, assistantMessage); err != nil {
		return nil, fmt.Errorf("failed to save assistant message: %w", err)
	}

	return &SendResult{
		UserMessage:      userMessage,
		AssistantMessage: assistantMessage,
	}, nil
}

// buildPrompt はシステムインストラクションと直近の会話履歴から
// 補完リクエストのメッセージ列を構築する。
// システムインストラクションにはユーザーの進行中の目標タイトルを展開する。
func (s *Service) buildPrompt(ctx context.Context, userID, sessionID string) ([]coach.Message, error) {
	goals, err := s.goalRepo.ListActiveByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active goals for prompt: %w", err)
	}

	titles := make([]string, 0, len(goals))
	for _, g := range goals {
		titles = append(titles, g.Title)
	}
	goalList := "（未設定）"
	if len(titles) > 0 {
		goalList = strings.Join(titles, "、")
	}

	history, err := s.chatRepo.ListRecentMessages(ctx, sessionID, s.config.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent messages: %w", err)
	}

	prompt := make([]coach.Message, 0, len(history)+1)
	prompt = append(prompt, coach.Message{
		Role:    openai.ChatMessageRoleSystem,
		Content: fmt.Sprintf(s.config.SystemPrompt, goalList),
	})
	for _, m := range history {
		role := openai.ChatMessageRoleUser
		if m.Sender == model.SenderAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		prompt = append(prompt, coach.Message{Role: role, Content: m.Content})
	}

	return prompt, nil
}
