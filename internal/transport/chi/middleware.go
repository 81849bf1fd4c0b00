package chi

import (
	"context"
	"net/http"
	"sync"
	"time"

	gochi "github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	logpkg "github.com/kailas-cloud/simdex/internal/logger"
)

// recoverJSON turns a handler panic into a 500 error body. http.ErrAbortHandler
// is re-raised so net/http can drop the connection.
func recoverJSON(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				logger.Error("Handler panicked",
					zap.String("request_id", chiMiddleware.GetReqID(r.Context())),
					zap.String("path", r.URL.Path),
					zap.Any("panic", rvr),
					zap.Stack("stacktrace"),
				)
				writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// requestFields accumulates what handlers learn about a request (outcome of a
// search, size of an upload) for the single access log line.
type requestFields struct {
	mu     sync.Mutex
	fields []zap.Field
}

type requestFieldsKey struct{}

// annotate attaches fields to the access log line of the current request.
// Outside requestLog it does nothing.
func annotate(ctx context.Context, fields ...zap.Field) {
	rf, ok := ctx.Value(requestFieldsKey{}).(*requestFields)
	if !ok {
		return
	}
	rf.mu.Lock()
	rf.fields = append(rf.fields, fields...)
	rf.mu.Unlock()
}

// requestLog writes one access line per request. Probes of /health and
// /metrics go to debug so they do not drown search traffic.
func requestLog(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := chiMiddleware.GetReqID(r.Context())
			if reqID != "" {
				w.Header().Set("X-Request-ID", reqID)
			}

			log := logger.With(zap.String("request_id", reqID))
			rf := &requestFields{}
			ctx := context.WithValue(logpkg.ContextWithLogger(r.Context(), log), requestFieldsKey{}, rf)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			line := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("request_bytes", r.ContentLength),
				zap.Int("response_bytes", ww.BytesWritten()),
			}
			if rc := gochi.RouteContext(r.Context()); rc != nil {
				line = append(line, zap.String("route", rc.RoutePattern()))
				if kind := rc.URLParam("kind"); kind != "" {
					line = append(line, zap.String("kind", kind))
				}
			}
			rf.mu.Lock()
			line = append(line, rf.fields...)
			rf.mu.Unlock()

			level := zapcore.InfoLevel
			switch {
			case ww.Status() >= http.StatusInternalServerError:
				level = zapcore.ErrorLevel
			case r.URL.Path == "/health" || r.URL.Path == "/metrics":
				level = zapcore.DebugLevel
			}
			log.Log(level, "HTTP request", line...)
		})
	}
}
