package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/hitoshi/goalcoach/internal/chat"
	"github.com/hitoshi/goalcoach/internal/middleware"
	"github.com/hitoshi/goalcoach/internal/model"
)

// coachKeyHeaderName はAIコーチのAPIキーを受け取るリクエストヘッダー名。
// キーはサーバーに保存せず、リクエスト単位で利用する。
const coachKeyHeaderName = "X-OpenAI-Key"

// ChatServiceInterface はチャットハンドラーが必要とするサービスインターフェース。
type ChatServiceInterface interface {
	ListMessages(ctx context.Context, userID, sessionID string) ([]model.Message, error)
	SendMessage(ctx context.Context, userID, sessionID, text, apiKey string) (*chat.SendResult, error)
}

// ChatMetrics はチャット補完のメトリクス記録インターフェース。
type ChatMetrics interface {
	RecordChatCompletion(success bool)
	RecordChatLatency(duration time.Duration)
}

// ChatHandler はAIコーチチャットのHTTPハンドラー。
type ChatHandler struct {
	service ChatServiceInterface
	metrics ChatMetrics // nil可
}

// NewChatHandler はChatHandlerを生成する。metricsはnilでもよい。
func NewChatHandler(service ChatServiceInterface, metrics ChatMetrics) *ChatHandler {
	return &ChatHandler{
		service: service,
		metrics: metrics,
	}
}

// sendMessageRequest はチャット送信リクエストのボディ。
type sendMessageRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// messageResponse はチャットメッセージのAPIレスポンス。
type messageResponse struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Position  int64     `json:"position"`
	Sender    string    `json:"sender"`
	Role      *string   `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// sendMessageResponse はチャット送信のAPIレスポンス。
type sendMessageResponse struct {
	UserMessage      messageResponse `json:"user_message"`
	AssistantMessage messageResponse `json:"assistant_message"`
}

// ListMessages はセッション内のメッセージを挿入順で取得する。
// セッションが存在しない場合は空のセッションとして遅延作成する。
// GET /api/messages?sessionId=xxx
func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "sessionIdパラメータが指定されていません。",
			Category: "validation",
			Action:   "セッションIDを指定してください。",
		})
		return
	}

	messages, err := h.service.ListMessages(r.Context(), userID, sessionID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]messageResponse, 0, len(messages))
	for i := range messages {
		responses = append(responses, toMessageResponse(&messages[i]))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(responses)
}

// SendMessage はユーザーメッセージを保存し、AIコーチの応答を生成する。
// APIキーはX-OpenAI-Keyヘッダーで受け取る。
// POST /api/chat
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	if req.SessionID == "" || req.Message == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "セッションIDとメッセージは必須です。",
			Category: "validation",
			Action:   "session_idとmessageを指定してください。",
		})
		return
	}

	apiKey := r.Header.Get(coachKeyHeaderName)

	start := time.Now()
	result, err := h.service.SendMessage(r.Context(), userID, req.SessionID, req.Message, apiKey)
	if err != nil {
		var apiErr *model.APIError
		if h.metrics != nil && errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeCoachUnavailable {
			h.metrics.RecordChatCompletion(false)
			h.metrics.RecordChatLatency(time.Since(start))
		}
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordChatCompletion(true)
		h.metrics.RecordChatLatency(time.Since(start))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sendMessageResponse{
		UserMessage:      toMessageResponse(result.UserMessage),
		AssistantMessage: toMessageResponse(result.AssistantMessage),
	})
}

// toMessageResponse はmodel.MessageからAPIレスポンスに変換する。
func toMessageResponse(m *model.Message) messageResponse {
	return messageResponse{
		ID:        m.ID,
		SessionID: m.SessionID,
		Position:  m.Position,
		Sender:    string(m.Sender),
		Role:      m.Role,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}
