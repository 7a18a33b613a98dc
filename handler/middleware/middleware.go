package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"realestate-marketplace-onchain/logger"
)

// RequestIDHeader はリクエストIDを運ぶHTTPヘッダー
const RequestIDHeader = "X-Request-ID"

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	loggerKey    contextKey = "logger"
)

// RequestID は上流のX-Request-IDを再利用するか新たに生成し、コンテキストとレスポンスヘッダーに設定する
func RequestID() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.New().String()
			}

			w.Header().Set(RequestIDHeader, requestID)
			ctx := context.WithValue(r.Context(), requestIDKey, requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetRequestID はリクエストIDを返す (なければ空文字)
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// statusRecorder はハンドラーが書き込んだステータスコードを記録する
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Logger は全リクエストをログに出し、リクエスト単位のロガーをハンドラーに渡す
func Logger(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestLogger := log.WithRequestID(GetRequestID(r.Context()))
			ctx := context.WithValue(r.Context(), loggerKey, requestLogger)

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r.WithContext(ctx))

			fields := map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      rec.status,
				"duration_ms": time.Since(start).Milliseconds(),
				"ip":          r.RemoteAddr,
			}
			if r.URL.RawQuery != "" {
				fields["query"] = r.URL.RawQuery
			}

			switch {
			case rec.status >= 500:
				requestLogger.Error("Request completed with server error", nil, fields)
			case rec.status >= 400:
				requestLogger.Warn("Request completed with client error", fields)
			default:
				requestLogger.Info("Request completed", fields)
			}
		})
	}
}

// GetLogger はリクエスト単位のロガーを返す。Loggerミドルウェア外ではnil
func GetLogger(ctx context.Context) *logger.Logger {
	if l, ok := ctx.Value(loggerKey).(*logger.Logger); ok {
		return l
	}
	return nil
}

// Recovery はハンドラーのpanicを500レスポンスに変換する
func Recovery(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error("Panic recovered", nil, map[string]interface{}{
						"panic":      rec,
						"path":       r.URL.Path,
						"request_id": GetRequestID(r.Context()),
					})
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_, _ = w.Write([]byte(`{"error":{"code":"INTERNAL_SERVER_ERROR","message":"internal server error"}}`))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
