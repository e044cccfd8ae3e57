// download.go — публичный обработчик скачивания high-res изображения.
// GET /api/qrs/{id}/download отдаёт PNG как attachment. Базовый адрес
// для динамических кодов выводится из входящего запроса: скачанный код
// ведёт на тот же хост, с которого скачан.
package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/qrstore/internal/api/errors"
	"github.com/bigkaa/qrstore/internal/service"
)

// DownloadQRCode — GET /api/qrs/{id}/download.
func (h *APIHandler) DownloadQRCode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	result, err := h.download.Render(r.Context(), id, requestBaseURL(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			apierrors.NotFound(w, "QR-код не найден")
		default:
			h.logger.Error("Ошибка рендера изображения для скачивания",
				slog.String("qr_id", id),
				slog.String("error", err.Error()),
			)
			apierrors.InternalError(w, "Не удалось сгенерировать изображение")
		}
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.PNG)
}

// requestBaseURL выводит базовый адрес из входящего запроса.
// Учитывает X-Forwarded-Proto при работе за reverse proxy.
func requestBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}
