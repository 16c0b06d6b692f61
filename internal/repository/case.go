package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"incasso-core/internal/domain"
)

type CaseRepository struct {
	db *sql.DB
}

func NewCaseRepository(db *sql.DB) *CaseRepository {
	return &CaseRepository{db: db}
}

const caseColumns = `
	id, tenant_id, debtor_id, reference_number,
	issue_date, due_date,
	principal, fee_rate, fee_amount, levy_rate, levy_amount,
	total_due, total_to_receive, total_paid, balance,
	stage, created_at, updated_at
`

func scanCase(row interface{ Scan(...any) error }) (*domain.CollectionCase, error) {
	var c domain.CollectionCase
	if err := row.Scan(
		&c.ID, &c.TenantID, &c.DebtorID, &c.ReferenceNumber,
		&c.IssueDate, &c.DueDate,
		&c.Principal, &c.FeeRate, &c.FeeAmount, &c.LevyRate, &c.LevyAmount,
		&c.TotalDue, &c.TotalToReceive, &c.TotalPaid, &c.Balance,
		&c.Stage, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CaseRepository) Create(ctx context.Context, c *domain.CollectionCase) error {
	query := `
		INSERT INTO collection_cases (
			tenant_id, debtor_id, reference_number,
			issue_date, due_date,
			principal, fee_rate, fee_amount, levy_rate, levy_amount,
			total_due, total_to_receive, total_paid, balance,
			stage
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at, updated_at
	`

	return r.db.QueryRowContext(ctx, query,
		c.TenantID, c.DebtorID, c.ReferenceNumber,
		c.IssueDate, c.DueDate,
		c.Principal, c.FeeRate, c.FeeAmount, c.LevyRate, c.LevyAmount,
		c.TotalDue, c.TotalToReceive, c.TotalPaid, c.Balance,
		c.Stage,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (r *CaseRepository) GetByID(ctx context.Context, tenantID, id int64) (*domain.CollectionCase, error) {
	query := `SELECT ` + caseColumns + ` FROM collection_cases WHERE id = $1 AND tenant_id = $2`

	c, err := scanCase(r.db.QueryRowContext(ctx, query, id, tenantID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListOpen returns every case the sweep must look at: non-terminal stage and
// a positive balance.
func (r *CaseRepository) ListOpen(ctx context.Context, tenantID int64) ([]domain.CollectionCase, error) {
	query := `
		SELECT ` + caseColumns + `
		FROM collection_cases
		WHERE tenant_id = $1
		  AND stage NOT IN ($2, $3)
		  AND balance > 0
		ORDER BY due_date, id
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID, domain.StagePaid, domain.StageCancelled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CollectionCase
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *CaseRepository) UpdateStage(ctx context.Context, id int64, stage domain.Stage) error {
	query := `UPDATE collection_cases SET stage = $2, updated_at = $3 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, stage, time.Now())
	return err
}

// ApplyPayment subtracts the amount from the balance atomically and flips
// the stage to PAID when the balance reaches zero. The stage decision runs
// against the row's current balance inside the UPDATE, so a concurrent sweep
// can never observe a stale balance.
func (r *CaseRepository) ApplyPayment(ctx context.Context, tenantID, id int64, amount decimal.Decimal) (*domain.CollectionCase, error) {
	query := `
		UPDATE collection_cases
		SET total_paid = total_paid + $3,
		    balance    = balance - $3,
		    stage      = CASE
		        WHEN stage <> $4 AND balance - $3 <= 0 THEN $5
		        ELSE stage
		    END,
		    updated_at = $6
		WHERE id = $1 AND tenant_id = $2
		RETURNING ` + caseColumns

	c, err := scanCase(r.db.QueryRowContext(ctx, query,
		id, tenantID, amount, domain.StageCancelled, domain.StagePaid, time.Now()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *CaseRepository) Cancel(ctx context.Context, tenantID, id int64) error {
	query := `
		UPDATE collection_cases
		SET stage = $3, updated_at = $4
		WHERE id = $1 AND tenant_id = $2 AND stage NOT IN ($3, $5)
	`
	res, err := r.db.ExecContext(ctx, query, id, tenantID, domain.StageCancelled, time.Now(), domain.StagePaid)
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
	return nil
}

// DeleteCascade removes a case together with the judgments, tranches and
// notices it owns, children before parent, in one transaction.
func (r *CaseRepository) DeleteCascade(ctx context.Context, tenantID, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM judgment_tranches
		WHERE judgment_id IN (SELECT id FROM judgments WHERE case_id = $1)
	`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM judgments WHERE case_id = $1`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM notices WHERE case_id = $1`, id); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM collection_cases WHERE id = $1 AND tenant_id = $2`, id, tenantID)
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

type CasesFilter struct {
	Stage       *domain.Stage
	DebtorID    *int64
	OverdueOnly bool
	IssuedFrom  *time.Time
	IssuedTo    *time.Time
}

// CaseRecord is a case joined with the debtor fields the export sheet needs.
type CaseRecord struct {
	domain.CollectionCase

	DebtorName     string
	DebtorEmail    string
	DebtorCategory domain.Category
}

func (r *CaseRepository) List(ctx context.Context, tenantID int64, f CasesFilter) ([]CaseRecord, error) {
	baseQuery := `
		SELECT
			c.id, c.tenant_id, c.debtor_id, c.reference_number,
			c.issue_date, c.due_date,
			c.principal, c.fee_rate, c.fee_amount, c.levy_rate, c.levy_amount,
			c.total_due, c.total_to_receive, c.total_paid, c.balance,
			c.stage, c.created_at, c.updated_at,

			d.name     AS debtor_name,
			d.email    AS debtor_email,
			d.category AS debtor_category
		FROM collection_cases c
		JOIN debtors d ON d.id = c.debtor_id
	`

	where := []string{"c.tenant_id = $1"}
	args := []any{tenantID}
	i := 2

	if f.Stage != nil {
		where = append(where, fmt.Sprintf("c.stage = $%d", i))
		args = append(args, *f.Stage)
		i++
	}

	if f.DebtorID != nil {
		where = append(where, fmt.Sprintf("c.debtor_id = $%d", i))
		args = append(args, *f.DebtorID)
		i++
	}

	if f.IssuedFrom != nil {
		where = append(where, fmt.Sprintf("c.issue_date >= $%d", i))
		args = append(args, *f.IssuedFrom)
		i++
	}

	if f.IssuedTo != nil {
		where = append(where, fmt.Sprintf("c.issue_date <= $%d", i))
		args = append(args, *f.IssuedTo)
		i++
	}

	if f.OverdueOnly {
		where = append(where, "c.due_date < now()", "c.balance > 0")
	}

	query := baseQuery + " WHERE " + strings.Join(where, " AND ") + " ORDER BY c.id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []CaseRecord

	for rows.Next() {
		var rec CaseRecord
		if err := rows.Scan(
			&rec.ID, &rec.TenantID, &rec.DebtorID, &rec.ReferenceNumber,
			&rec.IssueDate, &rec.DueDate,
			&rec.Principal, &rec.FeeRate, &rec.FeeAmount, &rec.LevyRate, &rec.LevyAmount,
			&rec.TotalDue, &rec.TotalToReceive, &rec.TotalPaid, &rec.Balance,
			&rec.Stage, &rec.CreatedAt, &rec.UpdatedAt,
			&rec.DebtorName, &rec.DebtorEmail, &rec.DebtorCategory,
		); err != nil {
			return nil, err
		}
		result = append(result, rec)
	}

	return result, rows.Err()
}
