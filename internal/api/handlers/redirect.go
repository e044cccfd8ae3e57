// redirect.go — публичный обработчик редиректа GET /s/{id}.
// Попадает сюда тот, кто отсканировал динамический QR, поэтому ответы
// об ошибках — человекочитаемый текст, а не JSON API-формата.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/qrstore/internal/service"
)

// ResolveRedirect — GET /s/{id}. Редирект на целевой URL с трекингом.
func (h *APIHandler) ResolveRedirect(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	qr, err := h.redirect.Resolve(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			http.Error(w, "QR Code Not Found", http.StatusNotFound)
		case errors.Is(err, service.ErrExpired):
			http.Error(w, "This QR Code has expired.", http.StatusGone)
		default:
			h.logger.Error("Ошибка разрешения редиректа",
				slog.String("qr_id", id),
				slog.String("error", err.Error()),
			)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
		return
	}

	http.Redirect(w, r, qr.TargetURL, http.StatusFound)
}
