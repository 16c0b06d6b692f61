package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"incasso-core/internal/clients"
	"incasso-core/internal/domain"
)

type CaseStore interface {
	GetByID(ctx context.Context, tenantID, id int64) (*domain.CollectionCase, error)
	UpdateStage(ctx context.Context, id int64, stage domain.Stage) error
}

type NoticeStore interface {
	Insert(ctx context.Context, n *domain.Notice) error
	Exists(ctx context.Context, caseID int64, stage domain.Stage) (bool, error)
	LastSentAt(ctx context.Context, caseID int64) (*time.Time, error)
}

type DebtorStore interface {
	GetByID(ctx context.Context, tenantID, id int64) (*domain.Debtor, error)
}

type ParamsSource interface {
	Params(ctx context.Context, tenantID int64) (*domain.TenantParameters, error)
}

type NoticeMailer interface {
	SendNotice(ctx context.Context, email clients.NoticeEmail) error
}

type InviteIssuer interface {
	IssueInvitation(ctx context.Context, debtorID int64, email string) (*clients.Invitation, error)
}

// Dispatcher fires a single escalation stage for a case: render and send the
// notice through the mail/PDF collaborator, then record the immutable Notice.
// The (case_id, stage) uniqueness constraint is the real idempotency
// guarantee; the Exists pre-check only saves a wasted render.
type Dispatcher struct {
	cases   CaseStore
	notices NoticeStore
	debtors DebtorStore
	params  ParamsSource
	mailer  NoticeMailer
	invites InviteIssuer

	log zerolog.Logger
	now func() time.Time
}

func NewDispatcher(
	cases CaseStore,
	notices NoticeStore,
	debtors DebtorStore,
	params ParamsSource,
	mailer NoticeMailer,
	invites InviteIssuer,
	log zerolog.Logger,
) *Dispatcher {
	return &Dispatcher{
		cases:   cases,
		notices: notices,
		debtors: debtors,
		params:  params,
		mailer:  mailer,
		invites: invites,
		log:     log,
		now:     time.Now,
	}
}

// Fire sends the notice for one stage of one case. Safe to call repeatedly
// and concurrently for the same (case, stage): at most one Notice is ever
// persisted.
//
// The case is re-read here so the decision runs against a fresh balance; a
// payment that settled the case after the sweep loaded it wins the race.
func (d *Dispatcher) Fire(ctx context.Context, tenantID, caseID int64, stage domain.Stage) error {
	c, err := d.cases.GetByID(ctx, tenantID, caseID)
	if err != nil {
		return err
	}

	if c.Stage.Terminal() || c.Settled() {
		d.log.Debug().Int64("case_id", caseID).Str("stage", string(stage)).
			Msg("case settled or terminal, notice suppressed")
		return nil
	}

	exists, err := d.notices.Exists(ctx, caseID, stage)
	if err != nil {
		return err
	}
	if exists {
		// The notice went out on an earlier attempt. The stage may still
		// lag behind it when that attempt failed between the insert and
		// the advance, so repair it here or the sweep keeps requesting
		// the same stage forever.
		return d.repairStage(ctx, c, stage)
	}

	debtor, err := d.debtors.GetByID(ctx, tenantID, c.DebtorID)
	if err != nil {
		return err
	}

	params, err := d.params.Params(ctx, tenantID)
	if err != nil {
		return err
	}

	email := buildNoticeEmail(c, debtor, params, stage)

	// A debtor without a user account gets a registration invitation with
	// the first notice. Losing the invite is not worth losing the notice.
	if stage == domain.StageFirstNotice && !debtor.HasUserAccount && d.invites != nil {
		inv, err := d.invites.IssueInvitation(ctx, debtor.ID, debtor.Email)
		if err != nil {
			d.log.Warn().Err(err).Int64("debtor_id", debtor.ID).Msg("invitation request failed, sending notice without invite link")
		} else {
			email.InviteURL = inv.URL
		}
	}

	if err := d.mailer.SendNotice(ctx, email); err != nil {
		// No Notice row is written on a failed dispatch, so the stage
		// stays eligible for the next sweep pass.
		return fmt.Errorf("case %d stage %s: %w: %v", caseID, stage, domain.ErrDispatchFailed, err)
	}

	notice := &domain.Notice{
		CaseID:  caseID,
		Stage:   stage,
		Title:   stageTitle(stage),
		Message: noticeSummary(c, params, stage),
		SentAt:  d.now(),
	}

	if err := d.notices.Insert(ctx, notice); err != nil {
		if errors.Is(err, domain.ErrDuplicateNotice) {
			// A concurrent sweep got there first. The debtor received
			// the same stage twice at worst; the record stays single.
			d.log.Debug().Int64("case_id", caseID).Str("stage", string(stage)).
				Msg("duplicate notice insert, treating as already fired")
			return d.repairStage(ctx, c, stage)
		}
		return err
	}

	if c.Stage != stage {
		if err := d.cases.UpdateStage(ctx, caseID, stage); err != nil {
			return fmt.Errorf("advance case %d to %s: %w", caseID, stage, err)
		}
	}

	d.log.Info().Int64("case_id", caseID).Str("stage", string(stage)).Msg("notice fired")
	return nil
}

// repairStage advances a case whose notice record ran ahead of its stage.
// This happens when a previous Fire persisted the notice but failed on the
// stage update; without the repair every later Fire for that stage stops at
// the duplicate check and the case never escalates past it.
func (d *Dispatcher) repairStage(ctx context.Context, c *domain.CollectionCase, stage domain.Stage) error {
	if stage.Rank() <= c.Stage.Rank() {
		return nil
	}
	if err := d.cases.UpdateStage(ctx, c.ID, stage); err != nil {
		return fmt.Errorf("advance case %d to %s: %w", c.ID, stage, err)
	}
	d.log.Info().Int64("case_id", c.ID).Str("stage", string(stage)).
		Msg("case stage lagged its notice log, advanced")
	return nil
}

var stageTitles = map[domain.Stage]string{
	domain.StageFirstNotice:   "Payment reminder",
	domain.StageSecondNotice:  "Second payment reminder",
	domain.StageDefaultNotice: "Notice of default",
	domain.StageBlocked:       "Account blocked",
}

var stageTemplates = map[domain.Stage]string{
	domain.StageFirstNotice:   "notice_first",
	domain.StageSecondNotice:  "notice_second",
	domain.StageDefaultNotice: "notice_default",
	domain.StageBlocked:       "notice_blockage",
}

func stageTitle(stage domain.Stage) string {
	return stageTitles[stage]
}

func buildNoticeEmail(c *domain.CollectionCase, debtor *domain.Debtor, params *domain.TenantParameters, stage domain.Stage) clients.NoticeEmail {
	return clients.NoticeEmail{
		Recipient: debtor.Email,
		Template:  stageTemplates[stage],

		CaseReference: c.ReferenceNumber,
		DebtorName:    debtor.Name,

		Principal:  c.Principal.StringFixed(2),
		FeeAmount:  c.FeeAmount.StringFixed(2),
		LevyAmount: c.LevyAmount.StringFixed(2),
		TotalDue:   c.TotalDue.StringFixed(2),
		Balance:    c.Balance.StringFixed(2),
		Currency:   params.Currency,

		IssueDate: c.IssueDate.Format("2006-01-02"),
		DueDate:   c.DueDate.Format("2006-01-02"),

		BankName:    params.BankName,
		BankAccount: params.BankAccount,
	}
}

func noticeSummary(c *domain.CollectionCase, params *domain.TenantParameters, stage domain.Stage) string {
	return fmt.Sprintf("%s for case %s: outstanding %s %s, payable to %s (%s)",
		stageTitle(stage), c.ReferenceNumber,
		c.Balance.StringFixed(2), params.Currency,
		params.BankName, params.BankAccount)
}
