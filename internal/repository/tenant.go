package repository

import (
	"context"
	"database/sql"
	"errors"

	"incasso-core/internal/domain"
)

// TenantRepository is the persistence side of the configuration
// collaborator: tenant parameters and interest rate schedules, read-only
// from the core's perspective.
type TenantRepository struct {
	db *sql.DB
}

func NewTenantRepository(db *sql.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

func (r *TenantRepository) Params(ctx context.Context, tenantID int64) (*domain.TenantParameters, error) {
	query := `
		SELECT tenant_id, fee_rate, levy_rate, currency, bank_name, bank_account,
		       first_notice_days_individual, first_notice_days_company,
		       second_notice_days_individual, second_notice_days_company,
		       default_notice_days
		FROM tenant_parameters
		WHERE tenant_id = $1
	`

	var p domain.TenantParameters
	err := r.db.QueryRowContext(ctx, query, tenantID).Scan(
		&p.TenantID, &p.FeeRate, &p.LevyRate, &p.Currency, &p.BankName, &p.BankAccount,
		&p.FirstNoticeDays.Individual, &p.FirstNoticeDays.Company,
		&p.SecondNoticeDays.Individual, &p.SecondNoticeDays.Company,
		&p.DefaultNoticeDays,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// RateSchedule returns the rate entries for an interest type, ascending by
// effective date. Callers still sort defensively before accruing.
func (r *TenantRepository) RateSchedule(ctx context.Context, interestTypeID int64) ([]domain.RateEntry, error) {
	query := `
		SELECT effective_date, annual_rate
		FROM interest_rates
		WHERE interest_type_id = $1
		ORDER BY effective_date
	`

	rows, err := r.db.QueryContext(ctx, query, interestTypeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RateEntry
	for rows.Next() {
		var e domain.RateEntry
		if err := rows.Scan(&e.EffectiveDate, &e.AnnualRate); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListTenantIDs feeds the scheduled sweep: every tenant gets a pass.
func (r *TenantRepository) ListTenantIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM tenants ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
