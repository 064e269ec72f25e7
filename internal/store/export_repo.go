package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"

	"github.com/rogers-f/phasebook/internal/domain"
)

// ExportRepo records document exports.
type ExportRepo struct {
	DB *sql.DB
}

// Checksum returns the hex sha256 of a rendered document.
func Checksum(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Record stores an export entry for content written to path.
func (r *ExportRepo) Record(ctx context.Context, path, content string, createdAt int64) (domain.ExportRecord, error) {
	rec := domain.ExportRecord{
		ExportID:  uuid.NewString(),
		FilePath:  path,
		Checksum:  Checksum(content),
		SizeBytes: int64(len(content)),
		CreatedAt: createdAt,
	}

	const q = `INSERT INTO document_exports (export_id, file_path, checksum, size_bytes, created_at)
VALUES (?, ?, ?, ?, ?)`
	_, err := r.DB.ExecContext(ctx, q, rec.ExportID, rec.FilePath, rec.Checksum, rec.SizeBytes, rec.CreatedAt)
	if err != nil {
		return rec, domain.WrapEngineError(domain.ErrStoreWrite.Code, "record export", err)
	}
	return rec, nil
}

// List returns exports newest first.
func (r *ExportRepo) List(ctx context.Context, limit int) ([]domain.ExportRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `SELECT export_id, file_path, checksum, size_bytes, created_at
FROM document_exports
ORDER BY created_at DESC, rowid DESC
LIMIT ?`

	rows, err := r.DB.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, domain.WrapEngineError(domain.ErrStoreQuery.Code, "list exports", err)
	}
	defer rows.Close()

	out := []domain.ExportRecord{}
	for rows.Next() {
		var e domain.ExportRecord
		if err := rows.Scan(&e.ExportID, &e.FilePath, &e.Checksum, &e.SizeBytes, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan export: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
