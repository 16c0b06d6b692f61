package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"incasso-core/internal/domain"
	"incasso-core/internal/interest"
)

type JudgmentStore interface {
	CreateWithTranches(ctx context.Context, j *domain.Judgment, tranches []domain.AccrualTranche) error
	GetByID(ctx context.Context, id int64) (*domain.Judgment, error)
	ListTranches(ctx context.Context, judgmentID int64) ([]domain.AccrualTranche, error)
	DeleteCascade(ctx context.Context, id int64) error
}

// JudgmentInput is what the operator submits to register or preview a
// judgment-interest calculation.
type JudgmentInput struct {
	CaseID         int64
	InterestTypeID int64
	Principal      decimal.Decimal
	PeriodStart    time.Time
	PeriodEnd      time.Time
}

// JudgmentResult bundles a judgment with its tranche breakdown.
type JudgmentResult struct {
	Judgment *domain.Judgment
	Tranches []domain.AccrualTranche
}

// JudgmentService computes statutory interest over variable-rate schedules
// and, on registration, persists the calculation against its case.
type JudgmentService struct {
	judgments JudgmentStore
	cases     CaseStore
	rates     interest.RateScheduleResolver

	log zerolog.Logger
}

func NewJudgmentService(
	judgments JudgmentStore,
	cases CaseStore,
	rates interest.RateScheduleResolver,
	log zerolog.Logger,
) *JudgmentService {
	return &JudgmentService{
		judgments: judgments,
		cases:     cases,
		rates:     rates,
		log:       log,
	}
}

func (s *JudgmentService) validate(in JudgmentInput) error {
	if !in.Principal.IsPositive() {
		return &domain.ValidationError{Field: "principal", Message: "must be positive"}
	}
	if !in.PeriodStart.Before(in.PeriodEnd) {
		return &domain.ValidationError{Field: "period_end", Message: "must be after period_start"}
	}
	return nil
}

func (s *JudgmentService) accrue(ctx context.Context, in JudgmentInput) ([]domain.AccrualTranche, decimal.Decimal, error) {
	entries, err := s.rates.RateSchedule(ctx, in.InterestTypeID)
	if err != nil {
		return nil, decimal.Zero, err
	}

	tranches, totalInterest := interest.Accrue(in.Principal, in.PeriodStart, in.PeriodEnd, entries)
	return tranches, totalInterest, nil
}

// Preview runs the calculation without persisting anything.
func (s *JudgmentService) Preview(ctx context.Context, in JudgmentInput) (*JudgmentResult, error) {
	if err := s.validate(in); err != nil {
		return nil, err
	}

	tranches, totalInterest, err := s.accrue(ctx, in)
	if err != nil {
		return nil, err
	}

	j := &domain.Judgment{
		CaseID:         in.CaseID,
		InterestTypeID: in.InterestTypeID,
		Principal:      in.Principal,
		PeriodStart:    in.PeriodStart,
		PeriodEnd:      in.PeriodEnd,
		TotalInterest:  totalInterest,
		TotalDue:       in.Principal.Add(totalInterest),
	}

	return &JudgmentResult{Judgment: j, Tranches: tranches}, nil
}

// Register computes the accrual and stores the judgment with its tranches in
// one transaction. The case must exist and belong to the tenant.
func (s *JudgmentService) Register(ctx context.Context, tenantID int64, in JudgmentInput) (*JudgmentResult, error) {
	if err := s.validate(in); err != nil {
		return nil, err
	}

	if _, err := s.cases.GetByID(ctx, tenantID, in.CaseID); err != nil {
		return nil, err
	}

	tranches, totalInterest, err := s.accrue(ctx, in)
	if err != nil {
		return nil, err
	}

	j := &domain.Judgment{
		CaseID:         in.CaseID,
		InterestTypeID: in.InterestTypeID,
		Principal:      in.Principal,
		PeriodStart:    in.PeriodStart,
		PeriodEnd:      in.PeriodEnd,
		TotalInterest:  totalInterest,
		TotalDue:       in.Principal.Add(totalInterest),
	}

	if err := s.judgments.CreateWithTranches(ctx, j, tranches); err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("tenant_id", tenantID).
		Int64("case_id", in.CaseID).
		Int64("judgment_id", j.ID).
		Str("total_interest", totalInterest.StringFixed(2)).
		Msg("judgment registered")

	return &JudgmentResult{Judgment: j, Tranches: tranches}, nil
}

// Get loads a judgment with its tranches, scoped to the tenant through the
// owning case.
func (s *JudgmentService) Get(ctx context.Context, tenantID, judgmentID int64) (*JudgmentResult, error) {
	j, err := s.judgments.GetByID(ctx, judgmentID)
	if err != nil {
		return nil, err
	}

	if _, err := s.cases.GetByID(ctx, tenantID, j.CaseID); err != nil {
		return nil, err
	}

	tranches, err := s.judgments.ListTranches(ctx, j.ID)
	if err != nil {
		return nil, err
	}

	return &JudgmentResult{Judgment: j, Tranches: tranches}, nil
}

// Delete removes a judgment and its tranches.
func (s *JudgmentService) Delete(ctx context.Context, tenantID, judgmentID int64) error {
	j, err := s.judgments.GetByID(ctx, judgmentID)
	if err != nil {
		return err
	}

	if _, err := s.cases.GetByID(ctx, tenantID, j.CaseID); err != nil {
		return err
	}

	return s.judgments.DeleteCascade(ctx, j.ID)
}
