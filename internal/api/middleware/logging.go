// logging.go — middleware логирования HTTP запросов через slog.
package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// RequestLogger логирует каждый HTTP запрос: метод, путь, статус,
// длительность и адрес клиента. Health-пробы и /metrics логируются
// на уровне Debug, чтобы не засорять журнал.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	log := logger.With(slog.String("component", "http"))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			attrs := []any{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Duration("duration", time.Since(start)),
				slog.String("remote_addr", r.RemoteAddr),
			}

			if isProbePath(r.URL.Path) {
				log.Debug("HTTP запрос", attrs...)
				return
			}
			log.Info("HTTP запрос", attrs...)
		})
	}
}

// isProbePath — пути служебных проб и метрик.
func isProbePath(path string) bool {
	switch path {
	case "/health/live", "/health/ready", "/metrics":
		return true
	}
	return false
}
