package service

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"sync"
	"testing"

	"github.com/bigkaa/qrstore/internal/domain/model"
	"github.com/bigkaa/qrstore/internal/repository"
)

// fakeRepo — in-memory реализация repository.QRCodeRepository для тестов.
type fakeRepo struct {
	mu    sync.Mutex
	items map[string]*model.QRCode

	// Инъекция сбоев
	updateImageErr error
	incrementErr   error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{items: map[string]*model.QRCode{}}
}

// clone возвращает копию записи: тесты проверяют, что сервисы
// не мутируют хранимое состояние через возвращённые указатели.
func clone(qr *model.QRCode) *model.QRCode {
	c := *qr
	if qr.ExpiresAt != nil {
		t := *qr.ExpiresAt
		c.ExpiresAt = &t
	}
	return &c
}

func (f *fakeRepo) Create(_ context.Context, qr *model.QRCode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[qr.ID] = clone(qr)
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id string) (*model.QRCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	qr, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(qr), nil
}

func (f *fakeRepo) GetByIDAndOwner(_ context.Context, id, ownerID string) (*model.QRCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	qr, ok := f.items[id]
	if !ok || qr.OwnerID != ownerID {
		return nil, repository.ErrNotFound
	}
	return clone(qr), nil
}

func (f *fakeRepo) ListByOwner(_ context.Context, ownerID string) ([]*model.QRCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var list []*model.QRCode
	for _, qr := range f.items {
		if qr.OwnerID == ownerID {
			list = append(list, clone(qr))
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

func (f *fakeRepo) Update(_ context.Context, qr *model.QRCode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.items[qr.ID]
	if !ok || stored.OwnerID != qr.OwnerID {
		return repository.ErrNotFound
	}
	stored.Name = qr.Name
	stored.TargetURL = qr.TargetURL
	stored.ImageData = qr.ImageData
	if qr.ExpiresAt != nil {
		t := *qr.ExpiresAt
		stored.ExpiresAt = &t
	} else {
		stored.ExpiresAt = nil
	}
	qr.ScanCount = stored.ScanCount
	return nil
}

func (f *fakeRepo) UpdateImage(_ context.Context, id, imageData string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateImageErr != nil {
		return f.updateImageErr
	}
	qr, ok := f.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	qr.ImageData = imageData
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, id, ownerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	qr, ok := f.items[id]
	if !ok || qr.OwnerID != ownerID {
		return repository.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeRepo) IncrementScanCount(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.incrementErr != nil {
		return f.incrementErr
	}
	qr, ok := f.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	qr.ScanCount++
	return nil
}

// stored возвращает текущее состояние записи в фейке.
func (f *fakeRepo) stored(t *testing.T, id string) *model.QRCode {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	qr, ok := f.items[id]
	if !ok {
		t.Fatalf("запись %s отсутствует в репозитории", id)
	}
	return clone(qr)
}

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}
