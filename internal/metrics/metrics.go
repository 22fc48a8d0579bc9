// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層およびワーカーから利用する。
type MetricsCollector interface {
	RecordSignIn()
	RecordSignUp()
	RecordReconcileOutcome(outcome string) // hit / created / conflict_recovered / failed
	RecordStepToggle()
	RecordGoalCompleted()
	RecordChatCompletion(success bool)
	RecordChatLatency(duration time.Duration)
	RecordHTTPStatus(statusCode int)
	RecordSessionsPurged(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	signIns          prometheus.Counter
	signUps          prometheus.Counter
	reconcileOutcome *prometheus.CounterVec
	stepToggles      prometheus.Counter
	goalsCompleted   prometheus.Counter
	chatCompletions  *prometheus.CounterVec
	chatLatency      prometheus.Histogram
	httpStatus       *prometheus.CounterVec
	sessionsPurged   prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		signIns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "goalcoach_signins_total",
			Help: "サインイン成功の合計数",
		}),
		signUps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "goalcoach_signups_total",
			Help: "サインアップ成功の合計数",
		}),
		reconcileOutcome: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "goalcoach_profile_reconcile_total",
			Help: "プロフィール照合の結果別合計数",
		}, []string{"outcome"}),
		stepToggles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "goalcoach_step_toggles_total",
			Help: "ステップ完了トグルの合計数",
		}),
		goalsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "goalcoach_goals_completed_total",
			Help: "達成された目標の合計数",
		}),
		chatCompletions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "goalcoach_chat_completions_total",
			Help: "チャット補完呼び出しの結果別合計数",
		}, []string{"result"}),
		chatLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "goalcoach_chat_latency_seconds",
			Help:    "チャット補完のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "goalcoach_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		sessionsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "goalcoach_sessions_purged_total",
			Help: "削除された期限切れセッションの合計数",
		}),
	}

	reg.MustRegister(
		c.signIns,
		c.signUps,
		c.reconcileOutcome,
		c.stepToggles,
		c.goalsCompleted,
		c.chatCompletions,
		c.chatLatency,
		c.httpStatus,
		c.sessionsPurged,
	)

	return c
}

// RecordSignIn はサインイン成功を記録する。
func (c *Collector) RecordSignIn() {
	c.signIns.Inc()
}

// RecordSignUp はサインアップ成功を記録する。
func (c *Collector) RecordSignUp() {
	c.signUps.Inc()
}

// RecordReconcileOutcome はプロフィール照合の結果を記録する。
func (c *Collector) RecordReconcileOutcome(outcome string) {
	c.reconcileOutcome.WithLabelValues(outcome).Inc()
}

// RecordStepToggle はステップ完了トグルを記録する。
func (c *Collector) RecordStepToggle() {
	c.stepToggles.Inc()
}

// RecordGoalCompleted は目標達成を記録する。
func (c *Collector) RecordGoalCompleted() {
	c.goalsCompleted.Inc()
}

// RecordChatCompletion はチャット補完呼び出しの結果を記録する。
func (c *Collector) RecordChatCompletion(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	c.chatCompletions.WithLabelValues(result).Inc()
}

// RecordChatLatency はチャット補完のレイテンシを記録する。
func (c *Collector) RecordChatLatency(duration time.Duration) {
	c.chatLatency.Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordSessionsPurged は削除された期限切れセッション数を記録する。
func (c *Collector) RecordSessionsPurged(count int64) {
	c.sessionsPurged.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
