// qrcodes.go — обработчики management-операций над QR-кодами.
// Все операции работают от имени владельца (sub из JWT) и доступны
// только через JWT middleware.
package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/qrstore/internal/api/errors"
	"github.com/bigkaa/qrstore/internal/api/middleware"
	"github.com/bigkaa/qrstore/internal/service"
)

// generateRequest — тело запроса POST /api/generate.
type generateRequest struct {
	URL       string `json:"url"`
	Name      string `json:"name"`
	QRType    string `json:"qrType"`
	ExpiresAt string `json:"expiresAt"`
}

// updateRequest — тело запроса PUT /api/qrs/{id}.
// expiresAt — json.RawMessage: различаем отсутствие поля,
// явный null и значение.
type updateRequest struct {
	URL       *string         `json:"url"`
	Name      *string         `json:"name"`
	ExpiresAt json.RawMessage `json:"expiresAt"`
}

// deleteResponse — тело ответа DELETE /api/qrs/{id}.
type deleteResponse struct {
	Success bool `json:"success"`
}

// ListQRCodes — GET /api/qrs. Все QR-коды владельца, новые первыми.
func (h *APIHandler) ListQRCodes(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}

	list, err := h.qrs.List(r.Context(), claims.Subject)
	if err != nil {
		h.logger.Error("Ошибка получения списка QR-кодов",
			slog.String("owner", claims.Subject),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Не удалось получить список QR-кодов")
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// GetQRCode — GET /api/qrs/{id}. QR-код владельца.
func (h *APIHandler) GetQRCode(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}
	id := chi.URLParam(r, "id")

	qr, err := h.qrs.Get(r.Context(), id, claims.Subject)
	if err != nil {
		h.writeQRError(w, err, id)
		return
	}

	writeJSON(w, http.StatusOK, qr)
}

// GenerateQRCode — POST /api/generate. Создание QR-кода.
func (h *APIHandler) GenerateQRCode(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON в теле запроса")
		return
	}

	input := service.CreateInput{
		TargetURL: req.URL,
		Name:      req.Name,
		Type:      req.QRType,
	}

	if req.ExpiresAt != "" {
		t, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			apierrors.ValidationError(w, "expiresAt должен быть в формате RFC3339")
			return
		}
		input.ExpiresAt = &t
	}

	qr, err := h.qrs.Create(r.Context(), claims.Subject, input)
	if err != nil {
		h.writeQRError(w, err, "")
		return
	}

	writeJSON(w, http.StatusCreated, qr)
}

// UpdateQRCode — PUT /api/qrs/{id}. Частичное обновление QR-кода.
func (h *APIHandler) UpdateQRCode(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}
	id := chi.URLParam(r, "id")

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON в теле запроса")
		return
	}

	patch := service.UpdatePatch{
		Name:      req.Name,
		TargetURL: req.URL,
	}

	// expiresAt: отсутствие поля — без изменений, null или пустая
	// строка — очистка, иначе — новое значение
	if len(req.ExpiresAt) > 0 {
		patch.ExpiresAtSet = true
		if !bytes.Equal(req.ExpiresAt, []byte("null")) {
			var raw string
			if err := json.Unmarshal(req.ExpiresAt, &raw); err != nil {
				apierrors.ValidationError(w, "expiresAt должен быть строкой или null")
				return
			}
			if raw != "" {
				t, err := time.Parse(time.RFC3339, raw)
				if err != nil {
					apierrors.ValidationError(w, "expiresAt должен быть в формате RFC3339")
					return
				}
				patch.ExpiresAt = &t
			}
		}
	}

	qr, err := h.qrs.Update(r.Context(), id, claims.Subject, patch)
	if err != nil {
		h.writeQRError(w, err, id)
		return
	}

	writeJSON(w, http.StatusOK, qr)
}

// DeleteQRCode — DELETE /api/qrs/{id}. Безвозвратное удаление.
func (h *APIHandler) DeleteQRCode(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}
	id := chi.URLParam(r, "id")

	if err := h.qrs.Delete(r.Context(), id, claims.Subject); err != nil {
		h.writeQRError(w, err, id)
		return
	}

	writeJSON(w, http.StatusOK, deleteResponse{Success: true})
}

// writeQRError преобразует ошибку сервисного слоя в HTTP-ответ.
func (h *APIHandler) writeQRError(w http.ResponseWriter, err error, id string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, "QR-код не найден")
	default:
		attrs := []any{slog.String("error", err.Error())}
		if id != "" {
			attrs = append(attrs, slog.String("qr_id", id))
		}
		h.logger.Error("Ошибка операции над QR-кодом", attrs...)
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
	}
}
