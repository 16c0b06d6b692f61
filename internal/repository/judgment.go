package repository

import (
	"context"
	"database/sql"
	"errors"

	"incasso-core/internal/domain"
)

type JudgmentRepository struct {
	db *sql.DB
}

func NewJudgmentRepository(db *sql.DB) *JudgmentRepository {
	return &JudgmentRepository{db: db}
}

// CreateWithTranches persists a judgment and its accrual schedule in one
// transaction; the judgment owns its tranches.
func (r *JudgmentRepository) CreateWithTranches(ctx context.Context, j *domain.Judgment, tranches []domain.AccrualTranche) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO judgments (case_id, interest_type_id, principal, period_start, period_end, total_interest, total_due)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, j.CaseID, j.InterestTypeID, j.Principal, j.PeriodStart, j.PeriodEnd, j.TotalInterest, j.TotalDue,
	).Scan(&j.ID, &j.CreatedAt)
	if err != nil {
		return err
	}

	for _, t := range tranches {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO judgment_tranches (
				judgment_id, seq, period_start, period_end, days,
				annual_rate, proportional_rate,
				opening_principal, interest, closing_principal
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, j.ID, t.Index, t.PeriodStart, t.PeriodEnd, t.Days,
			t.AnnualRate, t.ProportionalRate,
			t.OpeningPrincipal, t.Interest, t.ClosingPrincipal)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *JudgmentRepository) GetByID(ctx context.Context, id int64) (*domain.Judgment, error) {
	query := `
		SELECT id, case_id, interest_type_id, principal, period_start, period_end,
		       total_interest, total_due, created_at
		FROM judgments
		WHERE id = $1
	`

	var j domain.Judgment
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&j.ID, &j.CaseID, &j.InterestTypeID, &j.Principal, &j.PeriodStart, &j.PeriodEnd,
		&j.TotalInterest, &j.TotalDue, &j.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *JudgmentRepository) ListTranches(ctx context.Context, judgmentID int64) ([]domain.AccrualTranche, error) {
	query := `
		SELECT seq, period_start, period_end, days,
		       annual_rate, proportional_rate,
		       opening_principal, interest, closing_principal
		FROM judgment_tranches
		WHERE judgment_id = $1
		ORDER BY seq
	`

	rows, err := r.db.QueryContext(ctx, query, judgmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AccrualTranche
	for rows.Next() {
		var t domain.AccrualTranche
		if err := rows.Scan(
			&t.Index, &t.PeriodStart, &t.PeriodEnd, &t.Days,
			&t.AnnualRate, &t.ProportionalRate,
			&t.OpeningPrincipal, &t.Interest, &t.ClosingPrincipal,
		); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteCascade removes the tranches before the judgment, atomically.
func (r *JudgmentRepository) DeleteCascade(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM judgment_tranches WHERE judgment_id = $1`, id); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM judgments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}

	return tx.Commit()
}
