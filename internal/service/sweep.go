package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"incasso-core/internal/domain"
	"incasso-core/internal/escalation"
)

type OpenCaseLister interface {
	ListOpen(ctx context.Context, tenantID int64) ([]domain.CollectionCase, error)
}

type LastNoticeReader interface {
	LastSentAt(ctx context.Context, caseID int64) (*time.Time, error)
}

type SweepNotifier interface {
	NotifySweepProgress(ctx context.Context, userID, tenantID int64, processed, total int) error
	NotifySweepComplete(ctx context.Context, userID, tenantID int64, fired, skipped, failed int) error
}

// SweepSummary reports what one batch run did.
type SweepSummary struct {
	TenantID  int64 `json:"tenant_id"`
	Processed int   `json:"processed"`
	Fired     int   `json:"fired"`
	Skipped   int   `json:"skipped"`
	Failed    int   `json:"failed"`
}

// SweepProcessor walks every open case of a tenant and fires whatever stage
// the escalation policy says is due. One bad case never stops the batch.
type SweepProcessor struct {
	cases      OpenCaseLister
	notices    LastNoticeReader
	debtors    DebtorStore
	params     ParamsSource
	dispatcher StageFirer
	ws         SweepNotifier

	log zerolog.Logger
	now func() time.Time
}

func NewSweepProcessor(
	cases OpenCaseLister,
	notices LastNoticeReader,
	debtors DebtorStore,
	params ParamsSource,
	dispatcher StageFirer,
	ws SweepNotifier,
	log zerolog.Logger,
) *SweepProcessor {
	return &SweepProcessor{
		cases:      cases,
		notices:    notices,
		debtors:    debtors,
		params:     params,
		dispatcher: dispatcher,
		ws:         ws,
		log:        log,
		now:        time.Now,
	}
}

// Run sweeps one tenant. operatorID is the user to push progress to over the
// websocket hub; zero means an unattended (cron) run with no pushes.
func (p *SweepProcessor) Run(ctx context.Context, tenantID, operatorID int64) (SweepSummary, error) {
	summary := SweepSummary{TenantID: tenantID}

	params, err := p.params.Params(ctx, tenantID)
	if err != nil {
		return summary, err
	}

	cases, err := p.cases.ListOpen(ctx, tenantID)
	if err != nil {
		return summary, err
	}

	total := len(cases)
	today := p.now()

	for _, c := range cases {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		summary.Processed++

		if err := p.sweepCase(ctx, &c, params, today, &summary); err != nil {
			summary.Failed++
			p.log.Error().Err(err).
				Int64("tenant_id", tenantID).
				Int64("case_id", c.ID).
				Str("stage", string(c.Stage)).
				Msg("sweep: case failed")
		}

		if operatorID != 0 && p.ws != nil {
			_ = p.ws.NotifySweepProgress(ctx, operatorID, tenantID, summary.Processed, total)
		}
	}

	if operatorID != 0 && p.ws != nil {
		_ = p.ws.NotifySweepComplete(ctx, operatorID, tenantID, summary.Fired, summary.Skipped, summary.Failed)
	}

	p.log.Info().
		Int64("tenant_id", tenantID).
		Int("processed", summary.Processed).
		Int("fired", summary.Fired).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Msg("sweep: run complete")

	return summary, nil
}

func (p *SweepProcessor) sweepCase(
	ctx context.Context,
	c *domain.CollectionCase,
	params *domain.TenantParameters,
	today time.Time,
	summary *SweepSummary,
) error {
	debtor, err := p.debtors.GetByID(ctx, c.TenantID, c.DebtorID)
	if err != nil {
		return err
	}

	lastAt, err := p.notices.LastSentAt(ctx, c.ID)
	if err != nil {
		return err
	}

	next := escalation.Next(escalation.Input{
		Stage:        c.Stage,
		DueDate:      c.DueDate,
		Category:     debtor.Category,
		LastNoticeAt: lastAt,
		Today:        today,
		Params:       *params,
	})
	if next == nil {
		summary.Skipped++
		return nil
	}

	err = p.dispatcher.Fire(ctx, c.TenantID, c.ID, *next)
	switch {
	case err == nil:
		summary.Fired++
		return nil
	case errors.Is(err, domain.ErrNotFound):
		// Deleted between listing and firing.
		summary.Skipped++
		return nil
	default:
		return err
	}
}
