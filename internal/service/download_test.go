package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bigkaa/qrstore/internal/domain/model"
	"github.com/bigkaa/qrstore/internal/qrimage"
)

// pngMagic — сигнатура PNG-файла.
var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func newDownloadService(repo *fakeRepo) *DownloadService {
	codec := qrimage.NewCodec(128)
	return NewDownloadService(repo, codec, 1080, 16, time.Minute, testLogger())
}

func TestRender_Static(t *testing.T) {
	repo := newFakeRepo()
	svc := newDownloadService(repo)
	seedQR(t, repo, &model.QRCode{
		ID: "qr-1", OwnerID: "owner-1", Name: "Мой сайт 2024",
		TargetURL: "https://example.com",
		Type:      model.QRTypeStatic,
		ImageData: "data:image/png;base64,xxx",
	})

	result, err := svc.Render(context.Background(), "qr-1", "http://qr.test")
	if err != nil {
		t.Fatalf("Render() вернул ошибку: %v", err)
	}

	if !bytes.HasPrefix(result.PNG, pngMagic) {
		t.Error("результат не является PNG")
	}
	// Всё кроме латиницы и цифр (включая кириллицу) заменяется на "_"
	if result.Filename != "qrcode-_________2024.png" {
		t.Errorf("Filename = %q", result.Filename)
	}
}

func TestRender_FilenameSanitized(t *testing.T) {
	repo := newFakeRepo()
	svc := newDownloadService(repo)
	seedQR(t, repo, &model.QRCode{
		ID: "qr-1", OwnerID: "owner-1", Name: "My Promo: 50% off!",
		TargetURL: "https://example.com",
		Type:      model.QRTypeStatic,
	})

	result, err := svc.Render(context.Background(), "qr-1", "http://qr.test")
	if err != nil {
		t.Fatalf("Render() вернул ошибку: %v", err)
	}
	if result.Filename != "qrcode-My_Promo__50__off_.png" {
		t.Errorf("Filename = %q", result.Filename)
	}
}

func TestRender_DynamicUsesRequestBase(t *testing.T) {
	repo := newFakeRepo()
	codec := qrimage.NewCodec(128)
	svc := NewDownloadService(repo, codec, 512, 16, time.Minute, testLogger())
	seedQR(t, repo, &model.QRCode{
		ID: "qr-1", OwnerID: "owner-1", Name: "qr",
		TargetURL: "https://example.com",
		Type:      model.QRTypeDynamic,
	})

	result, err := svc.Render(context.Background(), "qr-1", "https://qr.example.com/")
	if err != nil {
		t.Fatalf("Render() вернул ошибку: %v", err)
	}

	// Динамический код кодирует адрес редиректа хоста запроса
	expected, err := codec.PNG("https://qr.example.com/s/qr-1", 512)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(result.PNG, expected) {
		t.Error("изображение должно кодировать <requestBase>/s/{id}")
	}
}

func TestRender_NotFound(t *testing.T) {
	repo := newFakeRepo()
	svc := newDownloadService(repo)

	_, err := svc.Render(context.Background(), "нет-такого", "http://qr.test")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("ошибка = %v, ожидается ErrNotFound", err)
	}
}

func TestRender_DoesNotMutateRecord(t *testing.T) {
	repo := newFakeRepo()
	svc := newDownloadService(repo)
	seedQR(t, repo, &model.QRCode{
		ID: "qr-1", OwnerID: "owner-1", Name: "qr",
		TargetURL: "https://example.com",
		Type:      model.QRTypeStatic,
		ImageData: "data:image/png;base64,original",
		ScanCount: 7,
	})

	if _, err := svc.Render(context.Background(), "qr-1", "http://qr.test"); err != nil {
		t.Fatalf("Render() вернул ошибку: %v", err)
	}

	stored := repo.stored(t, "qr-1")
	if stored.ImageData != "data:image/png;base64,original" {
		t.Error("скачивание не должно менять хранимое изображение")
	}
	if stored.ScanCount != 7 {
		t.Error("скачивание не должно менять счётчик сканирований")
	}
}

func TestRender_CacheMissAfterURLChange(t *testing.T) {
	repo := newFakeRepo()
	codec := qrimage.NewCodec(128)
	svc := NewDownloadService(repo, codec, 512, 16, time.Minute, testLogger())
	seedQR(t, repo, &model.QRCode{
		ID: "qr-1", OwnerID: "owner-1", Name: "qr",
		TargetURL: "https://old.example.com",
		Type:      model.QRTypeStatic,
	})

	first, err := svc.Render(context.Background(), "qr-1", "http://qr.test")
	if err != nil {
		t.Fatal(err)
	}

	// Меняем целевой URL напрямую в хранилище
	repo.mu.Lock()
	repo.items["qr-1"].TargetURL = "https://new.example.com"
	repo.mu.Unlock()

	second, err := svc.Render(context.Background(), "qr-1", "http://qr.test")
	if err != nil {
		t.Fatal(err)
	}

	// Кэш ключуется адресом: устаревший рендер не должен вернуться
	if bytes.Equal(first.PNG, second.PNG) {
		t.Error("после смены целевого URL должен вернуться новый рендер, а не кэшированный")
	}

	expected, _ := codec.PNG("https://new.example.com", 512)
	if !bytes.Equal(second.PNG, expected) {
		t.Error("второй рендер должен кодировать новый целевой URL")
	}
}

func TestRender_CacheReturnsSameBytes(t *testing.T) {
	repo := newFakeRepo()
	svc := newDownloadService(repo)
	seedQR(t, repo, &model.QRCode{
		ID: "qr-1", OwnerID: "owner-1", Name: "qr",
		TargetURL: "https://example.com",
		Type:      model.QRTypeStatic,
	})

	first, err := svc.Render(context.Background(), "qr-1", "http://qr.test")
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.Render(context.Background(), "qr-1", "http://qr.test")
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(first.PNG, second.PNG) {
		t.Error("повторный рендер того же содержимого должен совпадать")
	}
}
