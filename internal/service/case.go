package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"incasso-core/internal/domain"
	"incasso-core/internal/fees"
)

type CaseRepo interface {
	Create(ctx context.Context, c *domain.CollectionCase) error
	GetByID(ctx context.Context, tenantID, id int64) (*domain.CollectionCase, error)
	ApplyPayment(ctx context.Context, tenantID, id int64, amount decimal.Decimal) (*domain.CollectionCase, error)
	Cancel(ctx context.Context, tenantID, id int64) error
	DeleteCascade(ctx context.Context, tenantID, id int64) error
}

type NoticeLister interface {
	ListByCase(ctx context.Context, caseID int64) ([]domain.Notice, error)
}

type InvoiceTrigger interface {
	CreateInvoice(ctx context.Context, tenantID int64, amount, currency, description string) error
}

type StageFirer interface {
	Fire(ctx context.Context, tenantID, caseID int64, stage domain.Stage) error
}

// CaseService orchestrates the case lifecycle: registration with fee
// computation and the synchronous first notice, payments, cancellation and
// cascade deletion.
type CaseService struct {
	cases      CaseRepo
	notices    NoticeLister
	debtors    DebtorStore
	params     ParamsSource
	invoices   InvoiceTrigger
	dispatcher StageFirer

	log zerolog.Logger
}

func NewCaseService(
	cases CaseRepo,
	notices NoticeLister,
	debtors DebtorStore,
	params ParamsSource,
	invoices InvoiceTrigger,
	dispatcher StageFirer,
	log zerolog.Logger,
) *CaseService {
	return &CaseService{
		cases:      cases,
		notices:    notices,
		debtors:    debtors,
		params:     params,
		invoices:   invoices,
		dispatcher: dispatcher,
		log:        log,
	}
}

type CreateCaseInput struct {
	TenantID        int64
	DebtorID        int64
	ReferenceNumber string
	Principal       decimal.Decimal
	IssueDate       time.Time
}

// CreateCase registers a claim. The persisted case is the durable fact;
// the fee invoice and the first notice are retryable side effects and their
// failure never rolls the case back (the sweep re-sends a missed first
// notice once the case is overdue).
func (s *CaseService) CreateCase(ctx context.Context, in CreateCaseInput) (*domain.CollectionCase, error) {
	if strings.TrimSpace(in.ReferenceNumber) == "" {
		return nil, &domain.ValidationError{Field: "reference_number", Message: "reference_number is required"}
	}
	if in.IssueDate.IsZero() {
		return nil, &domain.ValidationError{Field: "issue_date", Message: "issue_date is required"}
	}

	debtor, err := s.debtors.GetByID(ctx, in.TenantID, in.DebtorID)
	if err != nil {
		return nil, err
	}

	params, err := s.params.Params(ctx, in.TenantID)
	if err != nil {
		return nil, err
	}

	res, err := fees.Compute(in.Principal, params.FeeRate, params.LevyRate)
	if err != nil {
		return nil, err
	}

	graceDays, _ := params.ThresholdDays(domain.StageFirstNotice, debtor.Category)

	c := &domain.CollectionCase{
		TenantID:        in.TenantID,
		DebtorID:        in.DebtorID,
		ReferenceNumber: in.ReferenceNumber,
		IssueDate:       in.IssueDate,
		DueDate:         in.IssueDate.AddDate(0, 0, graceDays),
		Principal:       in.Principal,
		FeeRate:         params.FeeRate,
		FeeAmount:       res.FeeAmount,
		LevyRate:        params.LevyRate,
		LevyAmount:      res.LevyAmount,
		TotalDue:        res.TotalDue,
		TotalToReceive:  res.TotalToReceive,
		TotalPaid:       decimal.Zero,
		Balance:         res.TotalDue,
		Stage:           domain.StageFirstNotice,
	}

	if err := s.cases.Create(ctx, c); err != nil {
		return nil, err
	}

	feeTotal := res.FeeAmount.Add(res.LevyAmount)
	if err := s.invoices.CreateInvoice(ctx, in.TenantID, feeTotal.StringFixed(2), params.Currency,
		"Collection fee for case "+c.ReferenceNumber); err != nil {
		s.log.Error().Err(err).Int64("case_id", c.ID).Msg("fee invoice trigger failed")
	}

	// First notice goes out synchronously at creation, not only on sweep.
	if err := s.dispatcher.Fire(ctx, in.TenantID, c.ID, domain.StageFirstNotice); err != nil {
		s.log.Error().Err(err).Int64("case_id", c.ID).Msg("first notice dispatch failed, sweep will retry")
	}

	return c, nil
}

// RecordPayment subtracts the amount from the case balance; a balance at or
// below zero flips the case to PAID and suppresses all further notices.
func (s *CaseService) RecordPayment(ctx context.Context, tenantID, caseID int64, amount decimal.Decimal) (*domain.CollectionCase, error) {
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	c, err := s.cases.ApplyPayment(ctx, tenantID, caseID, amount)
	if err != nil {
		return nil, err
	}

	s.log.Info().Int64("case_id", caseID).Str("amount", amount.StringFixed(2)).
		Str("balance", c.Balance.StringFixed(2)).Str("stage", string(c.Stage)).
		Msg("payment recorded")
	return c, nil
}

func (s *CaseService) GetCase(ctx context.Context, tenantID, caseID int64) (*domain.CollectionCase, []domain.Notice, error) {
	c, err := s.cases.GetByID(ctx, tenantID, caseID)
	if err != nil {
		return nil, nil, err
	}

	notices, err := s.notices.ListByCase(ctx, caseID)
	if err != nil {
		return nil, nil, err
	}
	return c, notices, nil
}

func (s *CaseService) CancelCase(ctx context.Context, tenantID, caseID int64) error {
	return s.cases.Cancel(ctx, tenantID, caseID)
}

// DeleteCase removes the case and everything it owns (notices, judgments,
// tranches) in one transaction.
func (s *CaseService) DeleteCase(ctx context.Context, tenantID, caseID int64) error {
	return s.cases.DeleteCascade(ctx, tenantID, caseID)
}
