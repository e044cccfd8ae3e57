// redirect.go — публичный сервис редиректа и трекинга сканирований.
// Разрешает id динамического QR в целевой URL, применяет срок действия
// и инкрементирует счётчик сканирований. Инкремент выполняется в фоне
// и не задерживает редирект; потерянный при сбое инкремент допустим,
// сам инкремент атомарен на стороне БД.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/qrstore/internal/domain/model"
	"github.com/bigkaa/qrstore/internal/repository"
)

// Prometheus-метрики сканирований.
var (
	scansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qs_scans_total",
		Help: "Общее количество обращений к редиректу по результату.",
	}, []string{"result"})
)

// incrementTimeout — таймаут фонового инкремента счётчика.
const incrementTimeout = 5 * time.Second

// RedirectService — сервис редиректа и трекинга.
type RedirectService struct {
	repo    repository.QRCodeRepository
	logger  *slog.Logger
	nowFunc func() time.Time

	// wg отслеживает фоновые инкременты: Drain дожидается их
	// при graceful shutdown и в тестах.
	wg sync.WaitGroup
}

// NewRedirectService создаёт сервис редиректа.
func NewRedirectService(repo repository.QRCodeRepository, logger *slog.Logger) *RedirectService {
	return &RedirectService{
		repo:    repo,
		logger:  logger.With(slog.String("component", "redirect_service")),
		nowFunc: time.Now,
	}
}

// Resolve разрешает id QR-кода в запись для редиректа.
//
// Отсутствующая запись — ErrNotFound. Истёкший срок действия —
// ErrExpired, счётчик при этом не меняется. В остальных случаях
// запускается фоновый инкремент счётчика и возвращается запись;
// вызывающий делает редирект на TargetURL, не дожидаясь инкремента.
//
// Тип записи не проверяется: изображение статического QR сюда не ведёт,
// но endpoint работает по id для любой записи.
func (s *RedirectService) Resolve(ctx context.Context, id string) (*model.QRCode, error) {
	qr, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			scansTotal.WithLabelValues("not_found").Inc()
			return nil, ErrNotFound
		}
		scansTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("получение QR-кода: %w", err)
	}

	if qr.Expired(s.nowFunc()) {
		scansTotal.WithLabelValues("expired").Inc()
		return nil, ErrExpired
	}

	// Fire-and-forget: редирект не ждёт записи счётчика.
	// Отвязанный контекст — инкремент переживает завершение запроса.
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		incCtx, cancel := context.WithTimeout(context.Background(), incrementTimeout)
		defer cancel()

		if incErr := s.repo.IncrementScanCount(incCtx, qr.ID); incErr != nil {
			s.logger.Warn("Не удалось записать сканирование",
				slog.String("qr_id", qr.ID),
				slog.String("error", incErr.Error()),
			)
		}
	}()

	scansTotal.WithLabelValues("redirected").Inc()
	return qr, nil
}

// Drain дожидается завершения фоновых инкрементов счётчика.
// Вызывается при graceful shutdown после остановки HTTP-сервера.
func (s *RedirectService) Drain() {
	s.wg.Wait()
}
