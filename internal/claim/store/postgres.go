package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"lofo/internal/claim/models"
	postingmodels "lofo/internal/posting/models"
	"lofo/pkg/platform/sentinel"
)

// Postgres persists claims in PostgreSQL.
//
// The store owns the two compound writes the claim lifecycle depends on:
// filing a claim and resolving one. Each runs the claim write and the posting
// status move in a single transaction with conditional guards, so the
// at-most-one-pending-claim rule holds under concurrency without any
// service-level locking.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed claim store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const claimColumns = `id, posting_id, claimant_id, evidence_ref, note, outcome, validation_note, submitted_at, validated_at`

// CreateAndGate inserts the pending claim and moves its posting from active
// to awaiting_validation as one atomic unit. If the posting guard fails the
// claim is not written and the error reports why:
//
//   - sentinel.ErrNotFound: no such posting
//   - sentinel.ErrConflict: another claim already holds the gate
//   - sentinel.ErrInvalidState: the posting is not claimable
func (s *Postgres) CreateAndGate(ctx context.Context, claim *models.Claim, now time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin file claim: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	result, err := tx.ExecContext(ctx, `
		UPDATE postings
		SET status = $2, updated_at = $3
		WHERE id = $1 AND status = $4
	`, claim.PostingID, postingmodels.StatusAwaitingValidation, now, postingmodels.StatusActive)
	if err != nil {
		return fmt.Errorf("gate posting for claim: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("gate posting rows affected: %w", err)
	}
	if rows == 0 {
		return s.classifyGateFailure(ctx, claim.PostingID)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO claims (`+claimColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		claim.ID,
		claim.PostingID,
		claim.ClaimantID,
		claim.EvidenceRef,
		claim.Note,
		claim.Outcome,
		nullString(claim.ValidationNote),
		claim.SubmittedAt,
		claim.ValidatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert claim: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit file claim: %w", err)
	}
	return nil
}

func (s *Postgres) classifyGateFailure(ctx context.Context, postingID uuid.UUID) error {
	var status string
	err := s.db.QueryRowContext(ctx, `SELECT status FROM postings WHERE id = $1`, postingID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("recheck posting for claim: %w", err)
	}
	if postingmodels.Status(status) == postingmodels.StatusAwaitingValidation {
		return sentinel.ErrConflict
	}
	return sentinel.ErrInvalidState
}

// ResolveAndRelease writes the resolved claim and moves its posting out of
// awaiting_validation in one transaction. The claim write is guarded on the
// stored outcome still being pending and the posting move on the stored
// status still being awaiting_validation; if either guard fails nothing is
// written.
//
//   - sentinel.ErrInvalidState: the claim was already resolved
//   - sentinel.ErrConflict: the posting moved on underneath the claim
func (s *Postgres) ResolveAndRelease(ctx context.Context, claim *models.Claim, postingTo postingmodels.Status, now time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin resolve claim: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	result, err := tx.ExecContext(ctx, `
		UPDATE claims
		SET outcome = $2, validation_note = $3, validated_at = $4
		WHERE id = $1 AND outcome = $5
	`, claim.ID, claim.Outcome, nullString(claim.ValidationNote), claim.ValidatedAt, models.OutcomePending)
	if err != nil {
		return fmt.Errorf("resolve claim: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("resolve claim rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrInvalidState
	}

	result, err = tx.ExecContext(ctx, `
		UPDATE postings
		SET status = $2, updated_at = $3
		WHERE id = $1 AND status = $4
	`, claim.PostingID, postingTo, now, postingmodels.StatusAwaitingValidation)
	if err != nil {
		return fmt.Errorf("release posting: %w", err)
	}
	rows, err = result.RowsAffected()
	if err != nil {
		return fmt.Errorf("release posting rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrConflict
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit resolve claim: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id uuid.UUID) (*models.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims WHERE id = $1`
	claim, err := scanClaim(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find claim: %w", err)
	}
	return claim, nil
}

// ListForPosting returns all claims for a posting, oldest first.
func (s *Postgres) ListForPosting(ctx context.Context, postingID uuid.UUID) ([]*models.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims WHERE posting_id = $1 ORDER BY submitted_at, id`
	rows, err := s.db.QueryContext(ctx, query, postingID)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	defer rows.Close()

	var out []*models.Claim
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		out = append(out, claim)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list claims rows: %w", err)
	}
	return out, nil
}

// DeleteForPosting removes all claims for a posting. Used by the hard delete
// moderation action; deleting zero claims is not an error.
func (s *Postgres) DeleteForPosting(ctx context.Context, postingID uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM claims WHERE posting_id = $1`, postingID); err != nil {
		return fmt.Errorf("delete claims: %w", err)
	}
	return nil
}

type claimRow interface {
	Scan(dest ...any) error
}

func scanClaim(row claimRow) (*models.Claim, error) {
	var claim models.Claim
	var validationNote sql.NullString
	var validatedAt sql.NullTime
	err := row.Scan(
		&claim.ID,
		&claim.PostingID,
		&claim.ClaimantID,
		&claim.EvidenceRef,
		&claim.Note,
		&claim.Outcome,
		&validationNote,
		&claim.SubmittedAt,
		&validatedAt,
	)
	if err != nil {
		return nil, err
	}
	claim.ValidationNote = validationNote.String
	if validatedAt.Valid {
		claim.ValidatedAt = &validatedAt.Time
	}
	return &claim, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
