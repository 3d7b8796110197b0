package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"lofo/internal/notify/models"
	"lofo/pkg/platform/sentinel"
)

// Postgres persists notifications in PostgreSQL.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed notification store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const notificationColumns = `id, recipient_id, event_type, posting_id, claim_id, message, read, created_at`

func (s *Postgres) Create(ctx context.Context, notification *models.Notification) error {
	query := `
		INSERT INTO notifications (` + notificationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		notification.ID,
		notification.RecipientID,
		notification.Type,
		nullUUID(notification.PostingID),
		nullUUID(notification.ClaimID),
		notification.Message,
		notification.Read,
		notification.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// ListForRecipient returns a member's notifications, newest first.
func (s *Postgres) ListForRecipient(ctx context.Context, recipientID uuid.UUID, unreadOnly bool) ([]*models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE recipient_id = $1`
	if unreadOnly {
		query += ` AND read = FALSE`
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.db.QueryContext(ctx, query, recipientID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []*models.Notification
	for rows.Next() {
		notification, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, notification)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notifications rows: %w", err)
	}
	return out, nil
}

// MarkRead flags a notification read if it belongs to the recipient.
func (s *Postgres) MarkRead(ctx context.Context, id, recipientID uuid.UUID, _ time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1 AND recipient_id = $2`, id, recipientID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark notification read rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func scanNotification(rows *sql.Rows) (*models.Notification, error) {
	var notification models.Notification
	var postingID, claimID uuid.NullUUID
	err := rows.Scan(
		&notification.ID,
		&notification.RecipientID,
		&notification.Type,
		&postingID,
		&claimID,
		&notification.Message,
		&notification.Read,
		&notification.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	notification.PostingID = postingID.UUID
	notification.ClaimID = claimID.UUID
	return &notification, nil
}

func nullUUID(id uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id, Valid: id != uuid.Nil}
}
