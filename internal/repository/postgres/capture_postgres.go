package postgres

import (
	"context"
	"database/sql"

	"webcamupload/internal/model"
	"webcamupload/internal/repository"
)

// CapturePostgres is a PostgreSQL implementation of repository.CaptureRepository.
type CapturePostgres struct {
	db *sql.DB
}

// NewCapturePostgres creates a new CapturePostgres repository.
func NewCapturePostgres(db *sql.DB) *CapturePostgres {
	return &CapturePostgres{db: db}
}

var _ repository.CaptureRepository = (*CapturePostgres)(nil)

const captureColumns = `id, filename, storage_path, size, captured_at`

// Create inserts a capture row. A repeated filename (same-millisecond overwrite on disk)
// updates the existing row so the log mirrors the directory.
func (r *CapturePostgres) Create(ctx context.Context, c *model.Capture) (*model.Capture, error) {
	const q = `
		INSERT INTO captures (` + captureColumns + `)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (filename) DO UPDATE
			SET size = EXCLUDED.size, captured_at = EXCLUDED.captured_at
		RETURNING ` + captureColumns
	row := r.db.QueryRowContext(ctx, q,
		c.ID,
		c.Filename,
		c.StoragePath,
		c.Size,
		c.CapturedAt,
	)
	var out model.Capture
	if err := row.Scan(&out.ID, &out.Filename, &out.StoragePath, &out.Size, &out.CapturedAt); err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns captures using LIMIT/OFFSET pagination and a total count.
func (r *CapturePostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Capture], error) {
	const qCount = `SELECT COUNT(*) FROM captures`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount).Scan(&total); err != nil {
		return nil, err
	}

	// filename sorts chronologically, so it breaks ties on captured_at
	const qList = `
		SELECT ` + captureColumns + `
		FROM captures
		ORDER BY captured_at DESC, filename DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, qList, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Capture, 0)
	for rows.Next() {
		var c model.Capture
		if err := rows.Scan(&c.ID, &c.Filename, &c.StoragePath, &c.Size, &c.CapturedAt); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Capture]{
		Items: items,
		Total: total,
	}, nil
}
