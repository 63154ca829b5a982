package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// healthTimeout はヘルスチェックでストアを読み込む際のタイムアウト。
const healthTimeout = 3 * time.Second

// HealthChecker はサービスの稼働状態を確認する。
type HealthChecker interface {
	Check(ctx context.Context) error
}

// HealthCheckFunc は関数をHealthCheckerとして使うためのアダプタ。
type HealthCheckFunc func(ctx context.Context) error

// Check はf(ctx)を呼ぶ。
func (f HealthCheckFunc) Check(ctx context.Context) error {
	return f(ctx)
}

type healthResponse struct {
	Status string `json:"status"`
}

// NewHealthHandler は /health のハンドラーを返す。
// ストアが読み込めない場合は503を返す。
func NewHealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		if err := checker.Check(ctx); err != nil {
			slog.Warn("health check failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
	}
}
