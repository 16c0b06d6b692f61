package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incasso-core/internal/clients"
	"incasso-core/internal/domain"
)

type fakeCaseStore struct {
	cases map[int64]*domain.CollectionCase

	// updateErr is returned by the next UpdateStage call, then cleared.
	updateErr error
}

func (f *fakeCaseStore) GetByID(_ context.Context, tenantID, id int64) (*domain.CollectionCase, error) {
	c, ok := f.cases[id]
	if !ok || c.TenantID != tenantID {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCaseStore) UpdateStage(_ context.Context, id int64, stage domain.Stage) error {
	if f.updateErr != nil {
		err := f.updateErr
		f.updateErr = nil
		return err
	}
	c, ok := f.cases[id]
	if !ok {
		return domain.ErrNotFound
	}
	c.Stage = stage
	return nil
}

func (f *fakeCaseStore) ListOpen(_ context.Context, tenantID int64) ([]domain.CollectionCase, error) {
	var out []domain.CollectionCase
	for _, c := range f.cases {
		if c.TenantID == tenantID && !c.Stage.Terminal() && c.Balance.IsPositive() {
			out = append(out, *c)
		}
	}
	return out, nil
}

type fakeNoticeStore struct {
	notices []domain.Notice
}

func (f *fakeNoticeStore) Insert(_ context.Context, n *domain.Notice) error {
	for _, existing := range f.notices {
		if existing.CaseID == n.CaseID && existing.Stage == n.Stage {
			return domain.ErrDuplicateNotice
		}
	}
	f.notices = append(f.notices, *n)
	return nil
}

func (f *fakeNoticeStore) Exists(_ context.Context, caseID int64, stage domain.Stage) (bool, error) {
	for _, n := range f.notices {
		if n.CaseID == caseID && n.Stage == stage {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeNoticeStore) LastSentAt(_ context.Context, caseID int64) (*time.Time, error) {
	var last *time.Time
	for i := range f.notices {
		n := f.notices[i]
		if n.CaseID != caseID {
			continue
		}
		if last == nil || n.SentAt.After(*last) {
			t := n.SentAt
			last = &t
		}
	}
	return last, nil
}

func (f *fakeNoticeStore) ListByCase(_ context.Context, caseID int64) ([]domain.Notice, error) {
	var out []domain.Notice
	for _, n := range f.notices {
		if n.CaseID == caseID {
			out = append(out, n)
		}
	}
	return out, nil
}

type fakeDebtorStore struct {
	debtors map[int64]*domain.Debtor
	err     error
}

func (f *fakeDebtorStore) GetByID(_ context.Context, tenantID, id int64) (*domain.Debtor, error) {
	if f.err != nil {
		return nil, f.err
	}
	d, ok := f.debtors[id]
	if !ok || d.TenantID != tenantID {
		return nil, domain.ErrNotFound
	}
	return d, nil
}

type fakeParamsSource struct {
	params domain.TenantParameters
}

func (f *fakeParamsSource) Params(_ context.Context, tenantID int64) (*domain.TenantParameters, error) {
	p := f.params
	p.TenantID = tenantID
	return &p, nil
}

type fakeMailer struct {
	sent []clients.NoticeEmail
	err  error
}

func (f *fakeMailer) SendNotice(_ context.Context, email clients.NoticeEmail) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, email)
	return nil
}

type fakeInviteIssuer struct {
	issued int
	err    error
}

func (f *fakeInviteIssuer) IssueInvitation(_ context.Context, debtorID int64, email string) (*clients.Invitation, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.issued++
	return &clients.Invitation{
		Token: "tok-123",
		URL:   fmt.Sprintf("https://portal.example/register?token=tok-123&debtor=%d", debtorID),
	}, nil
}

func testParams() domain.TenantParameters {
	return domain.TenantParameters{
		FeeRate:           decimal.NewFromInt(15),
		LevyRate:          decimal.NewFromInt(6),
		Currency:          "EUR",
		BankName:          "Handelsbank",
		BankAccount:       "NL02ABNA0123456789",
		FirstNoticeDays:   domain.StageThresholds{Individual: 14, Company: 8},
		SecondNoticeDays:  domain.StageThresholds{Individual: 14, Company: 8},
		DefaultNoticeDays: 14,
	}
}

func testCase(id int64, stage domain.Stage, balance int64) *domain.CollectionCase {
	return &domain.CollectionCase{
		ID:              id,
		TenantID:        1,
		DebtorID:        10,
		ReferenceNumber: fmt.Sprintf("INC-%04d", id),
		IssueDate:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		DueDate:         time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Principal:       decimal.NewFromInt(1000),
		TotalDue:        decimal.NewFromInt(1159),
		Balance:         decimal.NewFromInt(balance),
		Stage:           stage,
	}
}

type dispatcherFixture struct {
	cases   *fakeCaseStore
	notices *fakeNoticeStore
	debtors *fakeDebtorStore
	mailer  *fakeMailer
	invites *fakeInviteIssuer
	d       *Dispatcher
}

func newDispatcherFixture(hasAccount bool) *dispatcherFixture {
	f := &dispatcherFixture{
		cases: &fakeCaseStore{cases: map[int64]*domain.CollectionCase{
			100: testCase(100, domain.StageFirstNotice, 1159),
		}},
		notices: &fakeNoticeStore{},
		debtors: &fakeDebtorStore{debtors: map[int64]*domain.Debtor{
			10: {
				ID:             10,
				TenantID:       1,
				Category:       domain.CategoryIndividual,
				Name:           "J. Jansen",
				Email:          "jansen@example.com",
				HasUserAccount: hasAccount,
			},
		}},
		mailer:  &fakeMailer{},
		invites: &fakeInviteIssuer{},
	}

	f.d = NewDispatcher(
		f.cases, f.notices, f.debtors,
		&fakeParamsSource{params: testParams()},
		f.mailer, f.invites,
		zerolog.Nop(),
	)
	f.d.now = func() time.Time { return time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC) }

	return f
}

func TestDispatcherFiresFirstNoticeWithInvite(t *testing.T) {
	f := newDispatcherFixture(false)

	err := f.d.Fire(context.Background(), 1, 100, domain.StageFirstNotice)
	require.NoError(t, err)

	require.Len(t, f.mailer.sent, 1)
	email := f.mailer.sent[0]
	assert.Equal(t, "jansen@example.com", email.Recipient)
	assert.Equal(t, "notice_first", email.Template)
	assert.Equal(t, "1159.00", email.Balance)
	assert.NotEmpty(t, email.InviteURL)
	assert.Equal(t, 1, f.invites.issued)

	require.Len(t, f.notices.notices, 1)
	assert.Equal(t, domain.StageFirstNotice, f.notices.notices[0].Stage)
}

func TestDispatcherSkipsInviteForExistingAccount(t *testing.T) {
	f := newDispatcherFixture(true)

	err := f.d.Fire(context.Background(), 1, 100, domain.StageFirstNotice)
	require.NoError(t, err)

	assert.Equal(t, 0, f.invites.issued)
	require.Len(t, f.mailer.sent, 1)
	assert.Empty(t, f.mailer.sent[0].InviteURL)
}

func TestDispatcherSendsNoticeWhenInviteFails(t *testing.T) {
	f := newDispatcherFixture(false)
	f.invites.err = errors.New("identity service down")

	err := f.d.Fire(context.Background(), 1, 100, domain.StageFirstNotice)
	require.NoError(t, err)

	require.Len(t, f.mailer.sent, 1)
	assert.Empty(t, f.mailer.sent[0].InviteURL)
	assert.Len(t, f.notices.notices, 1)
}

func TestDispatcherSuppressesSettledCase(t *testing.T) {
	f := newDispatcherFixture(true)
	f.cases.cases[100].Balance = decimal.Zero

	err := f.d.Fire(context.Background(), 1, 100, domain.StageSecondNotice)
	require.NoError(t, err)

	assert.Empty(t, f.mailer.sent)
	assert.Empty(t, f.notices.notices)
}

func TestDispatcherSuppressesTerminalCase(t *testing.T) {
	f := newDispatcherFixture(true)
	f.cases.cases[100].Stage = domain.StageCancelled

	err := f.d.Fire(context.Background(), 1, 100, domain.StageSecondNotice)
	require.NoError(t, err)

	assert.Empty(t, f.mailer.sent)
	assert.Empty(t, f.notices.notices)
}

func TestDispatcherFailedDispatchStaysRetryable(t *testing.T) {
	f := newDispatcherFixture(true)
	f.mailer.err = errors.New("render timeout")

	err := f.d.Fire(context.Background(), 1, 100, domain.StageFirstNotice)
	require.ErrorIs(t, err, domain.ErrDispatchFailed)
	assert.Empty(t, f.notices.notices, "failed dispatch must not persist a notice")

	// Collaborator recovers, the same stage fires cleanly.
	f.mailer.err = nil
	require.NoError(t, f.d.Fire(context.Background(), 1, 100, domain.StageFirstNotice))
	assert.Len(t, f.notices.notices, 1)
}

func TestDispatcherIdempotentPerStage(t *testing.T) {
	f := newDispatcherFixture(true)

	require.NoError(t, f.d.Fire(context.Background(), 1, 100, domain.StageFirstNotice))
	require.NoError(t, f.d.Fire(context.Background(), 1, 100, domain.StageFirstNotice))

	assert.Len(t, f.mailer.sent, 1, "second fire must not re-send")
	assert.Len(t, f.notices.notices, 1)
}

func TestDispatcherAdvancesStage(t *testing.T) {
	f := newDispatcherFixture(true)
	f.cases.cases[100].Stage = domain.StageFirstNotice

	require.NoError(t, f.d.Fire(context.Background(), 1, 100, domain.StageSecondNotice))

	assert.Equal(t, domain.StageSecondNotice, f.cases.cases[100].Stage)
}

func TestDispatcherRepairsStageAfterAdvanceFailure(t *testing.T) {
	f := newDispatcherFixture(true)
	f.cases.updateErr = errors.New("connection reset")

	// Notice lands, stage advance fails. The case is now behind its
	// notice log.
	err := f.d.Fire(context.Background(), 1, 100, domain.StageSecondNotice)
	require.Error(t, err)
	require.Len(t, f.notices.notices, 1)
	assert.Equal(t, domain.StageFirstNotice, f.cases.cases[100].Stage)

	// The next sweep retries the same stage. The duplicate check must not
	// stop the repair: the stage catches up without a second email.
	require.NoError(t, f.d.Fire(context.Background(), 1, 100, domain.StageSecondNotice))

	assert.Equal(t, domain.StageSecondNotice, f.cases.cases[100].Stage)
	assert.Len(t, f.mailer.sent, 1)
	assert.Len(t, f.notices.notices, 1)
}

func TestDispatcherUnknownCase(t *testing.T) {
	f := newDispatcherFixture(true)

	err := f.d.Fire(context.Background(), 1, 999, domain.StageFirstNotice)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
