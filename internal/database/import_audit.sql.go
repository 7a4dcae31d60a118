package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const insertImportAudit = `-- name: InsertImportAudit :exec
INSERT INTO import_audit (
    batch_id, file_name, caller, status, total, inserted, skipped, failed, error, started_at, duration_ms
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
)
`

type InsertImportAuditParams struct {
	BatchID    pgtype.UUID
	FileName   string
	Caller     pgtype.Text
	Status     string
	Total      int32
	Inserted   int32
	Skipped    int32
	Failed     int32
	Error      pgtype.Text
	StartedAt  pgtype.Timestamptz
	DurationMs int64
}

func (q *Queries) InsertImportAudit(ctx context.Context, arg InsertImportAuditParams) error {
	_, err := q.db.Exec(ctx, insertImportAudit,
		arg.BatchID,
		arg.FileName,
		arg.Caller,
		arg.Status,
		arg.Total,
		arg.Inserted,
		arg.Skipped,
		arg.Failed,
		arg.Error,
		arg.StartedAt,
		arg.DurationMs,
	)
	return err
}

const listImportAudits = `-- name: ListImportAudits :many
SELECT batch_id, file_name, caller, status, total, inserted, skipped, failed, error, started_at, duration_ms
FROM import_audit
ORDER BY started_at DESC
LIMIT $1
`

func (q *Queries) ListImportAudits(ctx context.Context, limit int32) ([]ImportAudit, error) {
	rows, err := q.db.Query(ctx, listImportAudits, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ImportAudit
	for rows.Next() {
		var i ImportAudit
		if err := rows.Scan(
			&i.BatchID,
			&i.FileName,
			&i.Caller,
			&i.Status,
			&i.Total,
			&i.Inserted,
			&i.Skipped,
			&i.Failed,
			&i.Error,
			&i.StartedAt,
			&i.DurationMs,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const purgeImportAudits = `-- name: PurgeImportAudits :execrows
DELETE FROM import_audit WHERE started_at < $1
`

func (q *Queries) PurgeImportAudits(ctx context.Context, olderThan pgtype.Timestamptz) (int64, error) {
	result, err := q.db.Exec(ctx, purgeImportAudits, olderThan)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
