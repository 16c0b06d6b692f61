package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incasso-core/internal/domain"
)

type fakeJudgmentStore struct {
	judgments map[int64]*domain.Judgment
	tranches  map[int64][]domain.AccrualTranche
	nextID    int64
}

func newFakeJudgmentStore() *fakeJudgmentStore {
	return &fakeJudgmentStore{
		judgments: map[int64]*domain.Judgment{},
		tranches:  map[int64][]domain.AccrualTranche{},
		nextID:    1,
	}
}

func (f *fakeJudgmentStore) CreateWithTranches(_ context.Context, j *domain.Judgment, tranches []domain.AccrualTranche) error {
	j.ID = f.nextID
	f.nextID++
	f.judgments[j.ID] = j
	f.tranches[j.ID] = tranches
	return nil
}

func (f *fakeJudgmentStore) GetByID(_ context.Context, id int64) (*domain.Judgment, error) {
	j, ok := f.judgments[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return j, nil
}

func (f *fakeJudgmentStore) ListTranches(_ context.Context, judgmentID int64) ([]domain.AccrualTranche, error) {
	return f.tranches[judgmentID], nil
}

func (f *fakeJudgmentStore) DeleteCascade(_ context.Context, id int64) error {
	if _, ok := f.judgments[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.judgments, id)
	delete(f.tranches, id)
	return nil
}

type fakeRateSchedule struct {
	entries []domain.RateEntry
}

func (f *fakeRateSchedule) RateSchedule(_ context.Context, _ int64) ([]domain.RateEntry, error) {
	return f.entries, nil
}

func newJudgmentFixture() (*JudgmentService, *fakeJudgmentStore, *fakeCaseStore) {
	store := newFakeJudgmentStore()
	cases := &fakeCaseStore{cases: map[int64]*domain.CollectionCase{
		100: testCase(100, domain.StageDefaultNotice, 1159),
	}}
	rates := &fakeRateSchedule{entries: []domain.RateEntry{
		{EffectiveDate: time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC), AnnualRate: decimal.NewFromInt(12)},
		{EffectiveDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), AnnualRate: decimal.NewFromInt(18)},
	}}

	svc := NewJudgmentService(store, cases, rates, zerolog.Nop())
	return svc, store, cases
}

func judgmentInput() JudgmentInput {
	return JudgmentInput{
		CaseID:         100,
		InterestTypeID: 1,
		Principal:      decimal.NewFromInt(1000),
		PeriodStart:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:      time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestRegisterJudgmentPersistsTranches(t *testing.T) {
	svc, store, _ := newJudgmentFixture()

	res, err := svc.Register(context.Background(), 1, judgmentInput())
	require.NoError(t, err)

	require.Len(t, res.Tranches, 2, "rate change mid-period splits the accrual")
	assert.NotZero(t, res.Judgment.ID)
	assert.True(t, res.Judgment.TotalInterest.IsPositive())
	assert.True(t, res.Judgment.TotalDue.Equal(res.Judgment.Principal.Add(res.Judgment.TotalInterest)))

	stored, err := store.GetByID(context.Background(), res.Judgment.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), stored.CaseID)
	assert.Len(t, store.tranches[stored.ID], 2)
}

func TestRegisterJudgmentUnknownCase(t *testing.T) {
	svc, store, _ := newJudgmentFixture()

	in := judgmentInput()
	in.CaseID = 999

	_, err := svc.Register(context.Background(), 1, in)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, store.judgments)
}

func TestRegisterJudgmentWrongTenant(t *testing.T) {
	svc, store, _ := newJudgmentFixture()

	_, err := svc.Register(context.Background(), 2, judgmentInput())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, store.judgments)
}

func TestRegisterJudgmentValidation(t *testing.T) {
	svc, _, _ := newJudgmentFixture()

	in := judgmentInput()
	in.Principal = decimal.Zero
	_, err := svc.Register(context.Background(), 1, in)
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "principal", vErr.Field)

	in = judgmentInput()
	in.PeriodEnd = in.PeriodStart
	_, err = svc.Register(context.Background(), 1, in)
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "period_end", vErr.Field)
}

func TestPreviewDoesNotPersist(t *testing.T) {
	svc, store, _ := newJudgmentFixture()

	res, err := svc.Preview(context.Background(), judgmentInput())
	require.NoError(t, err)

	assert.Len(t, res.Tranches, 2)
	assert.Zero(t, res.Judgment.ID)
	assert.Empty(t, store.judgments)
}

func TestGetJudgmentScopedToTenant(t *testing.T) {
	svc, _, _ := newJudgmentFixture()

	res, err := svc.Register(context.Background(), 1, judgmentInput())
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), 1, res.Judgment.ID)
	require.NoError(t, err)
	assert.Len(t, got.Tranches, 2)

	_, err = svc.Get(context.Background(), 2, res.Judgment.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteJudgmentCascade(t *testing.T) {
	svc, store, _ := newJudgmentFixture()

	res, err := svc.Register(context.Background(), 1, judgmentInput())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), 1, res.Judgment.ID))
	assert.Empty(t, store.judgments)
	assert.Empty(t, store.tranches)
}
