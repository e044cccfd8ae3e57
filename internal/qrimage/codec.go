// Пакет qrimage — кодирование строк в QR-изображения.
// Обёртка над skip2/go-qrcode: сервисный слой работает только
// с интерфейсом Encoder, сама библиотека наружу не протекает.
package qrimage

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// Encoder — интерфейс кодирования строки в QR-изображение.
type Encoder interface {
	// DataURL кодирует content в PNG preview-размера и возвращает
	// самодостаточный data URL (data:image/png;base64,...).
	DataURL(content string) (string, error)
	// PNG кодирует content в PNG заданного размера стороны в пикселях.
	PNG(content string, size int) ([]byte, error)
}

// Codec — реализация Encoder на skip2/go-qrcode.
type Codec struct {
	previewSize int
}

// NewCodec создаёт кодек с указанным размером preview-изображений.
func NewCodec(previewSize int) *Codec {
	return &Codec{previewSize: previewSize}
}

// dataURLPrefix — префикс data URL для PNG.
const dataURLPrefix = "data:image/png;base64,"

func (c *Codec) DataURL(content string) (string, error) {
	png, err := c.PNG(content, c.previewSize)
	if err != nil {
		return "", err
	}
	return dataURLPrefix + base64.StdEncoding.EncodeToString(png), nil
}

func (c *Codec) PNG(content string, size int) ([]byte, error) {
	q, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("ошибка кодирования QR: %w", err)
	}

	// Стандартная тихая зона в 4 модуля съедает заметную часть
	// high-res изображения; рамка отключается, остаётся только
	// отступ от округления размера модуля при центрировании.
	q.DisableBorder = true

	png, err := q.PNG(size)
	if err != nil {
		return nil, fmt.Errorf("ошибка рендера PNG: %w", err)
	}
	return png, nil
}
