package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"incasso-core/internal/domain"
)

const pgUniqueViolation = "23505"

type NoticeRepository struct {
	db *sql.DB
}

func NewNoticeRepository(db *sql.DB) *NoticeRepository {
	return &NoticeRepository{db: db}
}

// Insert persists an immutable notice record. The notices table carries a
// UNIQUE (case_id, stage) constraint; a violation means a concurrent sweep
// already fired this stage and comes back as domain.ErrDuplicateNotice.
// An application-level check alone would be a check-then-insert race.
func (r *NoticeRepository) Insert(ctx context.Context, n *domain.Notice) error {
	query := `
		INSERT INTO notices (case_id, stage, title, message, sent_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query, n.CaseID, n.Stage, n.Title, n.Message, n.SentAt).Scan(&n.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return domain.ErrDuplicateNotice
		}
		return err
	}
	return nil
}

func (r *NoticeRepository) Exists(ctx context.Context, caseID int64, stage domain.Stage) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM notices WHERE case_id = $1 AND stage = $2)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, caseID, stage).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// LastSentAt returns the sent-at of the case's most recent notice, nil when
// no notice exists yet.
func (r *NoticeRepository) LastSentAt(ctx context.Context, caseID int64) (*time.Time, error) {
	query := `SELECT MAX(sent_at) FROM notices WHERE case_id = $1`

	var last sql.NullTime
	if err := r.db.QueryRowContext(ctx, query, caseID).Scan(&last); err != nil {
		return nil, err
	}
	if !last.Valid {
		return nil, nil
	}
	return &last.Time, nil
}

func (r *NoticeRepository) ListByCase(ctx context.Context, caseID int64) ([]domain.Notice, error) {
	query := `
		SELECT id, case_id, stage, title, message, sent_at
		FROM notices
		WHERE case_id = $1
		ORDER BY sent_at, id
	`

	rows, err := r.db.QueryContext(ctx, query, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Notice
	for rows.Next() {
		var n domain.Notice
		if err := rows.Scan(&n.ID, &n.CaseID, &n.Stage, &n.Title, &n.Message, &n.SentAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
