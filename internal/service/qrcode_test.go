package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bigkaa/qrstore/internal/domain/model"
	"github.com/bigkaa/qrstore/internal/qrimage"
)

const testBaseURL = "http://qr.test"

func newQRService(repo *fakeRepo) (*QRCodeService, *qrimage.Codec) {
	codec := qrimage.NewCodec(128)
	return NewQRCodeService(repo, codec, testBaseURL, testLogger()), codec
}

func TestCreate_Static(t *testing.T) {
	repo := newFakeRepo()
	svc, codec := newQRService(repo)

	qr, err := svc.Create(context.Background(), "owner-1", CreateInput{
		TargetURL: "https://example.com/page",
		Name:      "Сайт",
		Type:      model.QRTypeStatic,
	})
	if err != nil {
		t.Fatalf("Create() вернул ошибку: %v", err)
	}

	if qr.Type != model.QRTypeStatic {
		t.Errorf("Type = %q, ожидается static", qr.Type)
	}
	if qr.OwnerID != "owner-1" {
		t.Errorf("OwnerID = %q, ожидается owner-1", qr.OwnerID)
	}

	// Статическое изображение кодирует целевой URL напрямую
	expected, err := codec.DataURL("https://example.com/page")
	if err != nil {
		t.Fatal(err)
	}
	if qr.ImageData != expected {
		t.Error("изображение статического QR должно кодировать целевой URL")
	}

	stored := repo.stored(t, qr.ID)
	if stored.ImageData != expected {
		t.Error("в БД сохранено не то изображение")
	}
}

func TestCreate_Dynamic(t *testing.T) {
	repo := newFakeRepo()
	svc, codec := newQRService(repo)

	qr, err := svc.Create(context.Background(), "owner-1", CreateInput{
		TargetURL: "https://example.com/page",
	})
	if err != nil {
		t.Fatalf("Create() вернул ошибку: %v", err)
	}

	// Тип по умолчанию — dynamic
	if qr.Type != model.QRTypeDynamic {
		t.Errorf("Type = %q, ожидается dynamic", qr.Type)
	}

	// Динамическое изображение кодирует адрес редиректа, не целевой URL
	expected, err := codec.DataURL(testBaseURL + "/s/" + qr.ID)
	if err != nil {
		t.Fatal(err)
	}
	if qr.ImageData != expected {
		t.Error("изображение динамического QR должно кодировать адрес редиректа /s/{id}")
	}
	if qr.ImagePending() {
		t.Error("после успешного создания изображение не должно быть placeholder")
	}

	if stored := repo.stored(t, qr.ID); stored.ImageData != expected {
		t.Error("в БД сохранено не то изображение")
	}
}

func TestCreate_DefaultName(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newQRService(repo)

	qr, err := svc.Create(context.Background(), "owner-1", CreateInput{
		TargetURL: "https://example.com",
	})
	if err != nil {
		t.Fatalf("Create() вернул ошибку: %v", err)
	}
	if qr.Name != model.DefaultName {
		t.Errorf("Name = %q, ожидается %q", qr.Name, model.DefaultName)
	}
}

func TestCreate_UnknownTypeIsDynamic(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newQRService(repo)

	qr, err := svc.Create(context.Background(), "owner-1", CreateInput{
		TargetURL: "https://example.com",
		Type:      "fancy",
	})
	if err != nil {
		t.Fatalf("Create() вернул ошибку: %v", err)
	}
	if qr.Type != model.QRTypeDynamic {
		t.Errorf("Type = %q, ожидается dynamic", qr.Type)
	}
}

func TestCreate_EmptyURL(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newQRService(repo)

	_, err := svc.Create(context.Background(), "owner-1", CreateInput{TargetURL: "  "})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("Create() без url: ошибка = %v, ожидается ErrValidation", err)
	}
}

func TestCreate_DynamicSecondPhaseFails(t *testing.T) {
	repo := newFakeRepo()
	repo.updateImageErr = errors.New("БД недоступна")
	svc, _ := newQRService(repo)

	_, err := svc.Create(context.Background(), "owner-1", CreateInput{
		TargetURL: "https://example.com",
	})
	if !errors.Is(err, ErrGeneration) {
		t.Fatalf("ошибка = %v, ожидается ErrGeneration", err)
	}

	// Запись первой фазы остаётся с placeholder
	var id string
	repo.mu.Lock()
	for k := range repo.items {
		id = k
	}
	repo.mu.Unlock()
	if id == "" {
		t.Fatal("запись первой фазы должна остаться в БД")
	}
	if stored := repo.stored(t, id); !stored.ImagePending() {
		t.Error("запись после сбоя второй фазы должна остаться с placeholder")
	}
}

func TestUpdate_NameSemantics(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newQRService(repo)

	qr, _ := svc.Create(context.Background(), "owner-1", CreateInput{
		TargetURL: "https://example.com", Name: "Исходное имя",
	})

	// Пустое имя не перезаписывает
	empty := ""
	updated, err := svc.Update(context.Background(), qr.ID, "owner-1", UpdatePatch{Name: &empty})
	if err != nil {
		t.Fatalf("Update() вернул ошибку: %v", err)
	}
	if updated.Name != "Исходное имя" {
		t.Errorf("пустое имя перезаписало существующее: %q", updated.Name)
	}

	// Непустое имя перезаписывает
	newName := "Новое имя"
	updated, err = svc.Update(context.Background(), qr.ID, "owner-1", UpdatePatch{Name: &newName})
	if err != nil {
		t.Fatalf("Update() вернул ошибку: %v", err)
	}
	if updated.Name != "Новое имя" {
		t.Errorf("Name = %q, ожидается Новое имя", updated.Name)
	}
}

func TestUpdate_ExpiresAtSemantics(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newQRService(repo)

	qr, _ := svc.Create(context.Background(), "owner-1", CreateInput{
		TargetURL: "https://example.com",
	})

	// Установка срока действия
	exp := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
	updated, err := svc.Update(context.Background(), qr.ID, "owner-1",
		UpdatePatch{ExpiresAt: &exp, ExpiresAtSet: true})
	if err != nil {
		t.Fatalf("Update() вернул ошибку: %v", err)
	}
	if updated.ExpiresAt == nil || !updated.ExpiresAt.Equal(exp) {
		t.Errorf("ExpiresAt = %v, ожидается %v", updated.ExpiresAt, exp)
	}

	// Patch без expiresAt не трогает срок действия
	name := "Имя"
	updated, err = svc.Update(context.Background(), qr.ID, "owner-1", UpdatePatch{Name: &name})
	if err != nil {
		t.Fatalf("Update() вернул ошибку: %v", err)
	}
	if updated.ExpiresAt == nil {
		t.Error("patch без expiresAt очистил срок действия")
	}

	// Явная очистка
	updated, err = svc.Update(context.Background(), qr.ID, "owner-1",
		UpdatePatch{ExpiresAtSet: true})
	if err != nil {
		t.Fatalf("Update() вернул ошибку: %v", err)
	}
	if updated.ExpiresAt != nil {
		t.Errorf("ExpiresAt = %v, ожидается nil после очистки", updated.ExpiresAt)
	}
}

func TestUpdate_URLStaticRegeneratesImage(t *testing.T) {
	repo := newFakeRepo()
	svc, codec := newQRService(repo)

	qr, _ := svc.Create(context.Background(), "owner-1", CreateInput{
		TargetURL: "https://old.example.com", Type: model.QRTypeStatic,
	})

	newURL := "https://new.example.com"
	updated, err := svc.Update(context.Background(), qr.ID, "owner-1", UpdatePatch{TargetURL: &newURL})
	if err != nil {
		t.Fatalf("Update() вернул ошибку: %v", err)
	}

	expected, _ := codec.DataURL(newURL)
	if updated.ImageData != expected {
		t.Error("изображение статического QR должно быть перегенерировано под новый URL")
	}
	if updated.TargetURL != newURL {
		t.Errorf("TargetURL = %q, ожидается %q", updated.TargetURL, newURL)
	}
}

func TestUpdate_URLDynamicKeepsImage(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newQRService(repo)

	qr, _ := svc.Create(context.Background(), "owner-1", CreateInput{
		TargetURL: "https://old.example.com",
	})
	originalImage := qr.ImageData

	newURL := "https://new.example.com"
	updated, err := svc.Update(context.Background(), qr.ID, "owner-1", UpdatePatch{TargetURL: &newURL})
	if err != nil {
		t.Fatalf("Update() вернул ошибку: %v", err)
	}

	// Изображение указывает на стабильный адрес редиректа и не меняется
	if updated.ImageData != originalImage {
		t.Error("изображение динамического QR не должно меняться при смене целевого URL")
	}
	if updated.TargetURL != newURL {
		t.Errorf("TargetURL = %q, ожидается %q", updated.TargetURL, newURL)
	}
}

func TestUpdate_WrongOwner(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newQRService(repo)

	qr, _ := svc.Create(context.Background(), "owner-1", CreateInput{
		TargetURL: "https://example.com",
	})

	name := "Чужое имя"
	_, err := svc.Update(context.Background(), qr.ID, "owner-2", UpdatePatch{Name: &name})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Update() чужой записи: ошибка = %v, ожидается ErrNotFound", err)
	}
}

func TestGet_WrongOwner(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newQRService(repo)

	qr, _ := svc.Create(context.Background(), "owner-1", CreateInput{
		TargetURL: "https://example.com",
	})

	if _, err := svc.Get(context.Background(), qr.ID, "owner-2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() чужой записи: ошибка = %v, ожидается ErrNotFound", err)
	}
	if _, err := svc.Get(context.Background(), qr.ID, "owner-1"); err != nil {
		t.Errorf("Get() своей записи вернул ошибку: %v", err)
	}
}

func TestList_OnlyOwn(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newQRService(repo)

	for i := 0; i < 3; i++ {
		if _, err := svc.Create(context.Background(), "owner-1", CreateInput{
			TargetURL: "https://example.com",
		}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := svc.Create(context.Background(), "owner-2", CreateInput{
		TargetURL: "https://example.com",
	}); err != nil {
		t.Fatal(err)
	}

	list, err := svc.List(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("List() вернул ошибку: %v", err)
	}
	if len(list) != 3 {
		t.Errorf("List() вернул %d записей, ожидается 3", len(list))
	}
	for _, qr := range list {
		if qr.OwnerID != "owner-1" {
			t.Errorf("в списке чужая запись владельца %q", qr.OwnerID)
		}
	}
}

func TestDelete(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newQRService(repo)

	qr, _ := svc.Create(context.Background(), "owner-1", CreateInput{
		TargetURL: "https://example.com",
	})

	if err := svc.Delete(context.Background(), qr.ID, "owner-2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() чужой записи: ошибка = %v, ожидается ErrNotFound", err)
	}
	if err := svc.Delete(context.Background(), qr.ID, "owner-1"); err != nil {
		t.Fatalf("Delete() вернул ошибку: %v", err)
	}
	if _, err := svc.Get(context.Background(), qr.ID, "owner-1"); !errors.Is(err, ErrNotFound) {
		t.Error("запись должна быть удалена")
	}
}
