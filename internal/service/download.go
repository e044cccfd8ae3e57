// download.go — сервис скачивания high-res изображений QR-кодов.
// На каждый запрос изображение рендерится заново (хранимый preview не
// используется), запись при этом не изменяется. Повторные скачивания
// одного и того же содержимого обслуживает LRU-кэш с TTL: ключ включает
// кодируемый адрес, поэтому смена целевого URL статического QR никогда
// не отдаёт устаревший рендер.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/qrstore/internal/domain/model"
	"github.com/bigkaa/qrstore/internal/qrimage"
	"github.com/bigkaa/qrstore/internal/repository"
)

// Prometheus-метрики скачиваний.
var (
	downloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qs_downloads_total",
		Help: "Общее количество запросов на скачивание по результату.",
	}, []string{"status"})

	renderCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qs_render_cache_hits_total",
		Help: "Общее количество попаданий в кэш отрендеренных изображений.",
	})
	renderCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qs_render_cache_misses_total",
		Help: "Общее количество промахов кэша отрендеренных изображений.",
	})
)

// filenameSanitizer — всё, кроме латиницы и цифр, заменяется на "_"
// в имени скачиваемого файла.
var filenameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9]`)

// RenderResult — результат рендера для скачивания.
type RenderResult struct {
	// PNG — изображение.
	PNG []byte
	// Filename — имя файла для Content-Disposition.
	Filename string
}

// DownloadService — сервис скачивания high-res изображений.
type DownloadService struct {
	repo   repository.QRCodeRepository
	codec  qrimage.Encoder
	cache  *expirable.LRU[string, []byte]
	size   int
	logger *slog.Logger
}

// NewDownloadService создаёт сервис скачивания.
// size — размер стороны изображения в пикселях.
// cacheSize и cacheTTL задают LRU-кэш рендеров (per-instance, in-memory).
func NewDownloadService(
	repo repository.QRCodeRepository,
	codec qrimage.Encoder,
	size int,
	cacheSize int,
	cacheTTL time.Duration,
	logger *slog.Logger,
) *DownloadService {
	return &DownloadService{
		repo:   repo,
		codec:  codec,
		cache:  expirable.NewLRU[string, []byte](cacheSize, nil, cacheTTL),
		size:   size,
		logger: logger.With(slog.String("component", "download_service")),
	}
}

// Render возвращает high-res PNG для записи с указанным id.
//
// Кодируемый адрес: целевой URL для static, <requestBase>/s/{id} для
// dynamic — requestBase выводится вызывающим из входящего запроса,
// чтобы скачанный код вёл на тот же хост, с которого скачан.
// Endpoint публичный: владелец не проверяется.
func (s *DownloadService) Render(ctx context.Context, id, requestBase string) (*RenderResult, error) {
	qr, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			downloadsTotal.WithLabelValues("not_found").Inc()
			return nil, ErrNotFound
		}
		downloadsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("получение QR-кода: %w", err)
	}

	address := qr.TargetURL
	if qr.Type == model.QRTypeDynamic {
		address = strings.TrimRight(requestBase, "/") + "/s/" + qr.ID
	}

	png, err := s.renderPNG(qr.ID, address)
	if err != nil {
		downloadsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	downloadsTotal.WithLabelValues("ok").Inc()
	return &RenderResult{
		PNG:      png,
		Filename: "qrcode-" + filenameSanitizer.ReplaceAllString(qr.Name, "_") + ".png",
	}, nil
}

// renderPNG рендерит изображение или возвращает его из кэша.
// Ключ включает адрес и размер: после смены целевого URL static-записи
// кэш промахивается сам, инвалидация не нужна.
func (s *DownloadService) renderPNG(id, address string) ([]byte, error) {
	key := id + "|" + address + "|" + strconv.Itoa(s.size)

	if png, ok := s.cache.Get(key); ok {
		renderCacheHitsTotal.Inc()
		return png, nil
	}
	renderCacheMissesTotal.Inc()

	png, err := s.codec.PNG(address, s.size)
	if err != nil {
		return nil, err
	}
	s.cache.Add(key, png)
	return png, nil
}
