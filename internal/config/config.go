// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// defaultStepTitles はGoal作成時に付与されるデフォルトステップのタイトル。
// DEFAULT_STEP_TITLESで上書きできる（カンマ区切り）。
var defaultStepTitles = []string{
	"行動計画を立てる",
	"基礎の学習を始める",
	"学んだ知識を実践する",
	"最初のプロジェクトを作る",
}

// defaultCoachSystemPrompt はAIコーチのシステムインストラクション。
// ユーザーの進行中の目標一覧が%sに展開される。
const defaultCoachSystemPrompt = "あなたはユーザーの目標達成を支援するAIコーチです。" +
	"ユーザーの現在の目標: %s\n" +
	"前向きで具体的なアドバイスを簡潔に返してください。"

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Auth
	SessionMaxAge            int // セッション有効期間（秒）
	PasswordMinLength        int
	RequireEmailConfirmation bool
	SignInRatePerMinute      int // メールアドレスごとのサインイン試行上限
	SignInBurst              int

	// Goal
	DefaultStepTitles []string

	// Coach（チャット補完）
	CoachModel         string
	CoachBaseURL       string // 空の場合はライブラリのデフォルトエンドポイント
	CoachMaxTokens     int
	CoachTemperature   float64
	CoachHistoryLimit  int // プロンプトに含める直近メッセージ数
	CoachSystemPrompt  string

	// Rate Limit
	RateLimitGeneral int // API全般（req/min/user）
	RateLimitChat    int // チャット補完（req/min/user）

	// Worker
	SessionCleanupInterval time.Duration

	// Server
	ServerPort  string
	MetricsPort string // Prometheusメトリクス専用リスナー
	BaseURL     string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込む（存在しなくてもエラーにしない）。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.PasswordMinLength = getEnvInt("PASSWORD_MIN_LENGTH", 8)
	cfg.RequireEmailConfirmation = getEnvBool("REQUIRE_EMAIL_CONFIRMATION", true)
	cfg.SignInRatePerMinute = getEnvInt("SIGNIN_RATE_PER_MINUTE", 10)
	cfg.SignInBurst = getEnvInt("SIGNIN_BURST", 5)
	cfg.DefaultStepTitles = getEnvStringSlice("DEFAULT_STEP_TITLES", defaultStepTitles)
	cfg.CoachModel = getEnvString("COACH_MODEL", "gpt-3.5-turbo")
	cfg.CoachBaseURL = getEnvString("COACH_BASE_URL", "")
	cfg.CoachMaxTokens = getEnvInt("COACH_MAX_TOKENS", 500)
	cfg.CoachTemperature = getEnvFloat("COACH_TEMPERATURE", 0.7)
	cfg.CoachHistoryLimit = getEnvInt("COACH_HISTORY_LIMIT", 10)
	cfg.CoachSystemPrompt = getEnvString("COACH_SYSTEM_PROMPT", defaultCoachSystemPrompt)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitChat = getEnvInt("RATE_LIMIT_CHAT", 10)
	cfg.SessionCleanupInterval = getEnvDuration("SESSION_CLEANUP_INTERVAL", 24*time.Hour)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.MetricsPort = getEnvString("METRICS_PORT", "9091")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func getEnvStringSlice(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultVal
	}
	return result
}
