// qrcode.go — сервис жизненного цикла QR-кодов.
// Отвечает за контракт между target_url и image_data, зависящий от типа:
//   - static: изображение кодирует целевой URL напрямую;
//   - dynamic: изображение кодирует адрес редиректа <base>/s/{id} и
//     не меняется при смене целевого URL.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/qrstore/internal/domain/model"
	"github.com/bigkaa/qrstore/internal/qrimage"
	"github.com/bigkaa/qrstore/internal/repository"
)

// Prometheus-метрики жизненного цикла.
var (
	qrGeneratedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qs_qr_generated_total",
		Help: "Общее количество созданных QR-кодов по типу.",
	}, []string{"type"})
)

// CreateInput — входные данные создания QR-кода.
type CreateInput struct {
	// TargetURL — целевой URL. Обязательный.
	TargetURL string
	// Name — отображаемое имя. Пустое — "Untitled QR".
	Name string
	// Type — static или dynamic. Любое значение, кроме static,
	// трактуется как dynamic (поведение существующего клиента).
	Type string
	// ExpiresAt — срок действия. nil — бессрочный.
	ExpiresAt *time.Time
}

// UpdatePatch — частичное обновление QR-кода.
// Для expiresAt различаются "поле не передано" и "передано пустым":
// ExpiresAtSet=true с ExpiresAt=nil очищает срок действия.
type UpdatePatch struct {
	Name         *string
	TargetURL    *string
	ExpiresAt    *time.Time
	ExpiresAtSet bool
}

// QRCodeService — сервис жизненного цикла QR-кодов.
type QRCodeService struct {
	repo          repository.QRCodeRepository
	codec         qrimage.Encoder
	publicBaseURL string
	logger        *slog.Logger
}

// NewQRCodeService создаёт сервис жизненного цикла QR-кодов.
// publicBaseURL — базовый адрес, кодируемый в изображение динамических QR.
func NewQRCodeService(
	repo repository.QRCodeRepository,
	codec qrimage.Encoder,
	publicBaseURL string,
	logger *slog.Logger,
) *QRCodeService {
	return &QRCodeService{
		repo:          repo,
		codec:         codec,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:        logger.With(slog.String("component", "qrcode_service")),
	}
}

// RedirectAddress возвращает адрес редиректа для записи с указанным id.
func (s *QRCodeService) RedirectAddress(id string) string {
	return s.publicBaseURL + "/s/" + id
}

// Create создаёт QR-код.
//
// Для static — одна запись в БД с готовым изображением.
// Для dynamic — две фазы: сначала запись с placeholder (адрес редиректа
// содержит id, который появляется только после первой записи), затем
// генерация изображения и вторая запись. Сбой второй фазы оставляет
// запись с placeholder и возвращает ErrGeneration — повторная генерация
// возможна через скачивание или пересоздание.
func (s *QRCodeService) Create(ctx context.Context, ownerID string, in CreateInput) (*model.QRCode, error) {
	if strings.TrimSpace(in.TargetURL) == "" {
		return nil, fmt.Errorf("%w: url обязателен", ErrValidation)
	}

	qrType := model.QRTypeDynamic
	if in.Type == model.QRTypeStatic {
		qrType = model.QRTypeStatic
	}

	name := in.Name
	if name == "" {
		name = model.DefaultName
	}

	qr := &model.QRCode{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Name:      name,
		TargetURL: in.TargetURL,
		Type:      qrType,
		ImageData: model.ImagePlaceholder,
		ExpiresAt: in.ExpiresAt,
	}

	// Static: изображение известно до записи в БД
	if qrType == model.QRTypeStatic {
		img, err := s.codec.DataURL(qr.TargetURL)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
		}
		qr.ImageData = img
	}

	if err := s.repo.Create(ctx, qr); err != nil {
		return nil, fmt.Errorf("сохранение QR-кода: %w", err)
	}

	// Dynamic: вторая фаза — кодируем адрес редиректа с полученным id
	if qrType == model.QRTypeDynamic {
		addr := s.RedirectAddress(qr.ID)

		img, err := s.codec.DataURL(addr)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
		}
		if err := s.repo.UpdateImage(ctx, qr.ID, img); err != nil {
			return nil, fmt.Errorf("%w: запись изображения: %w", ErrGeneration, err)
		}
		qr.ImageData = img

		s.logger.Info("Создан динамический QR",
			slog.String("qr_id", qr.ID),
			slog.String("target_url", qr.TargetURL),
			slog.String("redirect_url", addr),
		)
	} else {
		s.logger.Info("Создан статический QR",
			slog.String("qr_id", qr.ID),
			slog.String("target_url", qr.TargetURL),
		)
	}

	qrGeneratedTotal.WithLabelValues(qrType).Inc()
	return qr, nil
}

// Get возвращает QR-код владельца.
func (s *QRCodeService) Get(ctx context.Context, id, ownerID string) (*model.QRCode, error) {
	qr, err := s.repo.GetByIDAndOwner(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение QR-кода: %w", err)
	}
	return qr, nil
}

// List возвращает все QR-коды владельца, новые первыми.
func (s *QRCodeService) List(ctx context.Context, ownerID string) ([]*model.QRCode, error) {
	list, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("получение списка QR-кодов: %w", err)
	}
	return list, nil
}

// Update применяет частичное обновление к QR-коду владельца.
//
// Семантика полей:
//   - name: непустое значение перезаписывает; пустое или отсутствующее —
//     без изменений (легаси-поведение существующего клиента);
//   - expiresAt: присутствие в patch перезаписывает (в т.ч. nil — очистка),
//     отсутствие — без изменений;
//   - url: непустое и отличающееся значение меняет целевой URL; для static
//     перегенерируется изображение, для dynamic изображение не трогается —
//     оно указывает на стабильный адрес редиректа.
func (s *QRCodeService) Update(ctx context.Context, id, ownerID string, patch UpdatePatch) (*model.QRCode, error) {
	qr, err := s.repo.GetByIDAndOwner(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение QR-кода: %w", err)
	}

	if patch.Name != nil && *patch.Name != "" {
		qr.Name = *patch.Name
	}

	if patch.ExpiresAtSet {
		qr.ExpiresAt = patch.ExpiresAt
	}

	if patch.TargetURL != nil && *patch.TargetURL != "" && *patch.TargetURL != qr.TargetURL {
		qr.TargetURL = *patch.TargetURL
		if qr.Type == model.QRTypeStatic {
			img, imgErr := s.codec.DataURL(qr.TargetURL)
			if imgErr != nil {
				return nil, fmt.Errorf("%w: %w", ErrGeneration, imgErr)
			}
			qr.ImageData = img
		}
	}

	if err := s.repo.Update(ctx, qr); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("обновление QR-кода: %w", err)
	}

	s.logger.Info("QR-код обновлён",
		slog.String("qr_id", qr.ID),
		slog.String("type", qr.Type),
	)
	return qr, nil
}

// Delete безвозвратно удаляет QR-код владельца.
func (s *QRCodeService) Delete(ctx context.Context, id, ownerID string) error {
	if err := s.repo.Delete(ctx, id, ownerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("удаление QR-кода: %w", err)
	}

	s.logger.Info("QR-код удалён", slog.String("qr_id", id))
	return nil
}
