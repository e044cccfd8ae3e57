// Пакет model — доменные модели QRStore.
package model

import "time"

// Типы QR-кодов.
const (
	// QRTypeStatic — изображение кодирует целевой URL напрямую,
	// без редиректа и без подсчёта сканирований.
	QRTypeStatic = "static"
	// QRTypeDynamic — изображение кодирует адрес редиректа /s/{id},
	// сервер разрешает его при сканировании (трекинг + срок действия).
	QRTypeDynamic = "dynamic"
)

// ImagePlaceholder — временное значение image_data динамического QR
// между двумя фазами создания записи. Адрес редиректа содержит id,
// поэтому изображение можно сгенерировать только после первой записи в БД.
const ImagePlaceholder = "placeholder"

// DefaultName — имя QR-кода по умолчанию, если клиент его не передал.
const DefaultName = "Untitled QR"

// QRCode — запись QR-кода.
// JSON-имена полей совпадают с контрактом существующего клиента.
type QRCode struct {
	// ID — UUID записи, генерируется при создании, неизменяемый.
	ID string `json:"id"`
	// OwnerID — идентификатор владельца (sub из JWT), неизменяемый.
	// Все management-операции проверяют владельца; редирект — публичный.
	OwnerID string `json:"user"`
	// Name — отображаемое имя.
	Name string `json:"name"`
	// TargetURL — URL, на который в итоге ведёт код.
	TargetURL string `json:"url"`
	// Type — static или dynamic. Задаётся при создании и не меняется:
	// конвертация между типами не поддерживается.
	Type string `json:"qrType"`
	// ImageData — PNG-изображение как data URL (самодостаточный блоб).
	// Для static кодирует TargetURL, для dynamic — адрес редиректа.
	ImageData string `json:"image_data"`
	// ScanCount — счётчик сканирований. Только растёт и только через
	// атомарный инкремент в сервисе редиректа.
	ScanCount int64 `json:"scanCount"`
	// ExpiresAt — срок действия. nil — код бессрочный.
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	// CreatedAt — время создания, неизменяемое.
	CreatedAt time.Time `json:"created_at"`
}

// Expired сообщает, истёк ли срок действия кода на момент now.
func (q *QRCode) Expired(now time.Time) bool {
	return q.ExpiresAt != nil && q.ExpiresAt.Before(now)
}

// ImagePending сообщает, что запись находится в переходном состоянии
// между двумя фазами создания динамического QR (изображение ещё не
// сгенерировано). Такое состояние возможно после сбоя второй фазы.
func (q *QRCode) ImagePending() bool {
	return q.ImageData == ImagePlaceholder
}
