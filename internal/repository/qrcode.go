package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/qrstore/internal/domain/model"
)

// QRCodeRepository — интерфейс доступа к таблице qr_codes.
type QRCodeRepository interface {
	// Create создаёт новую запись QR-кода.
	Create(ctx context.Context, qr *model.QRCode) error
	// GetByID возвращает запись по id без проверки владельца.
	// Используется публичными endpoints (редирект, скачивание).
	GetByID(ctx context.Context, id string) (*model.QRCode, error)
	// GetByIDAndOwner возвращает запись по id, принадлежащую ownerID.
	GetByIDAndOwner(ctx context.Context, id, ownerID string) (*model.QRCode, error)
	// ListByOwner возвращает все записи владельца, новые первыми.
	ListByOwner(ctx context.Context, ownerID string) ([]*model.QRCode, error)
	// Update обновляет изменяемые поля записи (name, target_url,
	// image_data, expires_at). Счётчик сканирований не трогает —
	// он меняется только через IncrementScanCount.
	Update(ctx context.Context, qr *model.QRCode) error
	// UpdateImage записывает image_data (вторая фаза создания dynamic QR).
	UpdateImage(ctx context.Context, id, imageData string) error
	// Delete удаляет запись владельца. Без soft-delete.
	Delete(ctx context.Context, id, ownerID string) error
	// IncrementScanCount атомарно увеличивает счётчик сканирований на 1.
	// Инкремент выполняется на стороне БД, чтобы конкурентные
	// сканирования не теряли обновления.
	IncrementScanCount(ctx context.Context, id string) error
}

// qrCodeRepo — реализация QRCodeRepository.
type qrCodeRepo struct {
	db DBTX
}

// NewQRCodeRepository создаёт репозиторий QR-кодов.
func NewQRCodeRepository(db DBTX) QRCodeRepository {
	return &qrCodeRepo{db: db}
}

const qrCodeColumns = `id, owner_id, name, target_url, qr_type, image_data, scan_count, expires_at, created_at`

func (r *qrCodeRepo) Create(ctx context.Context, qr *model.QRCode) error {
	query := `
		INSERT INTO qr_codes (id, owner_id, name, target_url, qr_type, image_data, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING scan_count, created_at`

	err := r.db.QueryRow(ctx, query,
		qr.ID, qr.OwnerID, qr.Name, qr.TargetURL, qr.Type, qr.ImageData, qr.ExpiresAt,
	).Scan(&qr.ScanCount, &qr.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания QR-кода: %w", err)
	}
	return nil
}

func (r *qrCodeRepo) GetByID(ctx context.Context, id string) (*model.QRCode, error) {
	query := `SELECT ` + qrCodeColumns + ` FROM qr_codes WHERE id = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

func (r *qrCodeRepo) GetByIDAndOwner(ctx context.Context, id, ownerID string) (*model.QRCode, error) {
	query := `SELECT ` + qrCodeColumns + ` FROM qr_codes WHERE id = $1 AND owner_id = $2`
	return r.scanOne(r.db.QueryRow(ctx, query, id, ownerID))
}

func (r *qrCodeRepo) ListByOwner(ctx context.Context, ownerID string) ([]*model.QRCode, error) {
	query := `SELECT ` + qrCodeColumns + `
		FROM qr_codes
		WHERE owner_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка QR-кодов: %w", err)
	}
	defer rows.Close()

	result := make([]*model.QRCode, 0)
	for rows.Next() {
		qr := &model.QRCode{}
		if err := rows.Scan(
			&qr.ID, &qr.OwnerID, &qr.Name, &qr.TargetURL, &qr.Type,
			&qr.ImageData, &qr.ScanCount, &qr.ExpiresAt, &qr.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования QR-кода: %w", err)
		}
		result = append(result, qr)
	}
	return result, rows.Err()
}

func (r *qrCodeRepo) Update(ctx context.Context, qr *model.QRCode) error {
	query := `
		UPDATE qr_codes
		SET name = $3, target_url = $4, image_data = $5, expires_at = $6
		WHERE id = $1 AND owner_id = $2
		RETURNING scan_count`

	err := r.db.QueryRow(ctx, query,
		qr.ID, qr.OwnerID, qr.Name, qr.TargetURL, qr.ImageData, qr.ExpiresAt,
	).Scan(&qr.ScanCount)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка обновления QR-кода: %w", err)
	}
	return nil
}

func (r *qrCodeRepo) UpdateImage(ctx context.Context, id, imageData string) error {
	tag, err := r.db.Exec(ctx, `UPDATE qr_codes SET image_data = $2 WHERE id = $1`, id, imageData)
	if err != nil {
		return fmt.Errorf("ошибка записи изображения QR-кода: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *qrCodeRepo) Delete(ctx context.Context, id, ownerID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM qr_codes WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("ошибка удаления QR-кода: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *qrCodeRepo) IncrementScanCount(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `UPDATE qr_codes SET scan_count = scan_count + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка инкремента счётчика сканирований: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// scanOne сканирует одну строку в QRCode.
func (r *qrCodeRepo) scanOne(row pgx.Row) (*model.QRCode, error) {
	qr := &model.QRCode{}
	err := row.Scan(
		&qr.ID, &qr.OwnerID, &qr.Name, &qr.TargetURL, &qr.Type,
		&qr.ImageData, &qr.ScanCount, &qr.ExpiresAt, &qr.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения QR-кода: %w", err)
	}
	return qr, nil
}
