// Package coach はAIコーチのチャット補完クライアントを提供する。
package coach

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sashabaranov/go-openai"
)

// Message は補完リクエストに含める1メッセージを表す。
type Message struct {
	Role    string // system / user / assistant
	Content string
}

// Completer はチャット補完のインターフェース。
// APIキーはリクエストごとに呼び出し元から渡され、サーバー側には保存しない。
type Completer interface {
	// Complete は会話履歴から1件の補完を生成する。
	// ストリーミングは行わず、失敗時の自動リトライもしない。
	Complete(ctx context.Context, apiKey string, messages []Message) (string, error)
}

// ClientConfig はOpenAIクライアントの設定。
type ClientConfig struct {
	Model       string
	BaseURL     string // 空の場合はライブラリのデフォルトエンドポイント
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
}

// OpenAIClient はCompleterのOpenAI実装。
// クライアントは呼び出しごとにAPIキーから構築する。
type OpenAIClient struct {
	config ClientConfig
}

// NewOpenAIClient はOpenAIClientを生成する。
func NewOpenAIClient(config ClientConfig) *OpenAIClient {
	return &OpenAIClient{config: config}
}

// Complete は会話履歴から1件の補完を生成する。
func (c *OpenAIClient) Complete(ctx context.Context, apiKey string, messages []Message) (string, error) {
	if apiKey == "" {
		return "", fmt.Errorf("API key is required")
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if c.config.BaseURL != "" {
		clientConfig.BaseURL = c.config.BaseURL
	}
	client := openai.NewClientWithConfig(clientConfig)

	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	chatMessages := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		chatMessages = append(chatMessages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	start := time.Now()
	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.config.Model,
		Messages:    chatMessages,
		MaxTokens:   c.config.MaxTokens,
		Temperature: c.config.Temperature,
	})
	if err != nil {
		slog.Error("chat completion failed",
			slog.String("model", c.config.Model),
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	slog.Debug("chat completion succeeded",
		slog.String("model", c.config.Model),
		slog.Duration("elapsed", time.Since(start)),
	)

	return resp.Choices[0].Message.Content, nil
}

// compile-time interface check
var _ Completer = (*OpenAIClient)(nil)
