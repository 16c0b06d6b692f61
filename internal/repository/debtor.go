package repository

import (
	"context"
	"database/sql"
	"errors"

	"incasso-core/internal/domain"
)

type DebtorRepository struct {
	db *sql.DB
}

func NewDebtorRepository(db *sql.DB) *DebtorRepository {
	return &DebtorRepository{db: db}
}

func (r *DebtorRepository) GetByID(ctx context.Context, tenantID, id int64) (*domain.Debtor, error) {
	query := `
		SELECT id, tenant_id, category, name, email, has_user_account, created_at
		FROM debtors
		WHERE id = $1 AND tenant_id = $2
	`

	var d domain.Debtor
	err := r.db.QueryRowContext(ctx, query, id, tenantID).Scan(
		&d.ID, &d.TenantID, &d.Category, &d.Name, &d.Email, &d.HasUserAccount, &d.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}
