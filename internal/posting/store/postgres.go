package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"lofo/internal/posting/models"
	"lofo/pkg/platform/sentinel"
)

// Postgres persists postings in PostgreSQL.
// This store is pure I/O. Transition legality and ownership checks belong in
// the service; the store only guarantees that conditional updates are atomic.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed posting store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const postingColumns = `id, reporter_id, kind, status, category, description, location, event_time, photo_ref, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, posting *models.Posting) error {
	query := `
		INSERT INTO postings (` + postingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(ctx, query,
		posting.ID,
		posting.ReporterID,
		posting.Kind,
		posting.Status,
		posting.Category,
		posting.Description,
		posting.Location,
		posting.EventTime,
		nullString(posting.PhotoRef),
		posting.CreatedAt,
		posting.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create posting: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id uuid.UUID) (*models.Posting, error) {
	query := `SELECT ` + postingColumns + ` FROM postings WHERE id = $1`
	posting, err := scanPosting(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find posting: %w", err)
	}
	return posting, nil
}

func (s *Postgres) List(ctx context.Context, filter Filter) ([]*models.Posting, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Kind != "" {
		conds = append(conds, "kind = "+arg(filter.Kind))
	}
	if filter.Status != "" {
		conds = append(conds, "status = "+arg(filter.Status))
	}
	if filter.Category != "" {
		conds = append(conds, "category = "+arg(filter.Category))
	}

	query := `SELECT ` + postingColumns + ` FROM postings`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET " + arg(filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list postings: %w", err)
	}
	defer rows.Close()

	var out []*models.Posting
	for rows.Next() {
		posting, err := scanPosting(rows)
		if err != nil {
			return nil, fmt.Errorf("scan posting: %w", err)
		}
		out = append(out, posting)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list postings rows: %w", err)
	}
	return out, nil
}

// UpdateStatus moves the posting to the new status only if its current status
// is one of from. The status check and the write are a single conditional
// UPDATE, so concurrent transitions cannot both succeed.
func (s *Postgres) UpdateStatus(ctx context.Context, id uuid.UUID, from []models.Status, to models.Status, now time.Time) error {
	fromStrs := make([]string, len(from))
	for i, st := range from {
		fromStrs[i] = string(st)
	}
	query := `
		UPDATE postings
		SET status = $2, updated_at = $3
		WHERE id = $1 AND status = ANY($4)
	`
	result, err := s.db.ExecContext(ctx, query, id, to, now, pq.Array(fromStrs))
	if err != nil {
		return fmt.Errorf("update posting status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update posting status rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}

	// The guard failed. Re-read to tell a missing posting from one whose
	// status moved on.
	var current string
	err = s.db.QueryRowContext(ctx, `SELECT status FROM postings WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("recheck posting status: %w", err)
	}
	return sentinel.ErrInvalidState
}

// Delete removes the posting and any claims referencing it.
func (s *Postgres) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete posting: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM claims WHERE posting_id = $1`, id); err != nil {
		return fmt.Errorf("delete posting claims: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM postings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete posting: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete posting rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete posting: %w", err)
	}
	return nil
}

type postingRow interface {
	Scan(dest ...any) error
}

func scanPosting(row postingRow) (*models.Posting, error) {
	var posting models.Posting
	var photoRef sql.NullString
	err := row.Scan(
		&posting.ID,
		&posting.ReporterID,
		&posting.Kind,
		&posting.Status,
		&posting.Category,
		&posting.Description,
		&posting.Location,
		&posting.EventTime,
		&photoRef,
		&posting.CreatedAt,
		&posting.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	posting.PhotoRef = photoRef.String
	return &posting, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
