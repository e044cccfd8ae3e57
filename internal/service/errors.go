// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import "errors"

var (
	// ErrNotFound — QR-код не найден (или принадлежит другому владельцу).
	ErrNotFound = errors.New("QR-код не найден")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrExpired — срок действия QR-кода истёк.
	ErrExpired = errors.New("срок действия QR-кода истёк")
	// ErrGeneration — ошибка генерации изображения QR-кода.
	ErrGeneration = errors.New("ошибка генерации QR-кода")
)
