package escalation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incasso-core/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testParams() domain.TenantParameters {
	return domain.TenantParameters{
		FirstNoticeDays:   domain.StageThresholds{Individual: 7, Company: 14},
		SecondNoticeDays:  domain.StageThresholds{Individual: 7, Company: 14},
		DefaultNoticeDays: 14,
	}
}

func TestNext_NotYetOverdue(t *testing.T) {
	in := Input{
		Stage:    domain.StageFirstNotice,
		DueDate:  day(2025, time.March, 20),
		Category: domain.CategoryIndividual,
		Today:    day(2025, time.March, 10),
		Params:   testParams(),
	}
	assert.Nil(t, Next(in))

	// Due today is still not overdue.
	in.Today = day(2025, time.March, 20)
	assert.Nil(t, Next(in))
}

func TestNext_FirstOverdueSweepFiresCurrentStage(t *testing.T) {
	// Created 10 days ago, threshold 7 days, no notice ever went out:
	// the sweep must send the first notice itself.
	in := Input{
		Stage:        domain.StageFirstNotice,
		DueDate:      day(2025, time.March, 8),
		Category:     domain.CategoryIndividual,
		LastNoticeAt: nil,
		Today:        day(2025, time.March, 11),
		Params:       testParams(),
	}
	got := Next(in)
	require.NotNil(t, got)
	assert.Equal(t, domain.StageFirstNotice, *got)
}

func TestNext_CooldownElapsedAdvances(t *testing.T) {
	last := day(2025, time.March, 1)
	in := Input{
		Stage:        domain.StageSecondNotice,
		DueDate:      day(2025, time.February, 1),
		Category:     domain.CategoryIndividual,
		LastNoticeAt: &last,
		Today:        day(2025, time.March, 9), // 8 days later, threshold 7
		Params:       testParams(),
	}
	got := Next(in)
	require.NotNil(t, got)
	assert.Equal(t, domain.StageDefaultNotice, *got)
}

func TestNext_InsideCooldownIsNoAction(t *testing.T) {
	last := day(2025, time.March, 6)
	in := Input{
		Stage:        domain.StageSecondNotice,
		DueDate:      day(2025, time.February, 1),
		Category:     domain.CategoryIndividual,
		LastNoticeAt: &last,
		Today:        day(2025, time.March, 9), // 3 days later, threshold 7
		Params:       testParams(),
	}
	assert.Nil(t, Next(in))
}

func TestNext_CategorySelectsThreshold(t *testing.T) {
	last := day(2025, time.March, 1)
	in := Input{
		Stage:        domain.StageFirstNotice,
		DueDate:      day(2025, time.February, 1),
		LastNoticeAt: &last,
		Today:        day(2025, time.March, 11), // 10 days later
		Params:       testParams(),
	}

	in.Category = domain.CategoryIndividual // threshold 7
	require.NotNil(t, Next(in))

	in.Category = domain.CategoryCompany // threshold 14
	assert.Nil(t, Next(in))
}

func TestNext_BlockedIsAbsorbing(t *testing.T) {
	last := day(2024, time.January, 1)
	in := Input{
		Stage:        domain.StageBlocked,
		DueDate:      day(2024, time.January, 1),
		Category:     domain.CategoryIndividual,
		LastNoticeAt: &last,
		Today:        day(2025, time.June, 1),
		Params:       testParams(),
	}
	assert.Nil(t, Next(in))
}

func TestNext_TerminalStagesAbsorb(t *testing.T) {
	last := day(2024, time.January, 1)
	for _, stage := range []domain.Stage{domain.StagePaid, domain.StageCancelled} {
		in := Input{
			Stage:        stage,
			DueDate:      day(2024, time.January, 1),
			Category:     domain.CategoryIndividual,
			LastNoticeAt: &last,
			Today:        day(2025, time.June, 1),
			Params:       testParams(),
		}
		assert.Nil(t, Next(in), "stage %s must absorb", stage)
	}
}

func TestNext_Idempotent(t *testing.T) {
	last := day(2025, time.March, 1)
	in := Input{
		Stage:        domain.StageDefaultNotice,
		DueDate:      day(2025, time.January, 1),
		Category:     domain.CategoryCompany,
		LastNoticeAt: &last,
		Today:        day(2025, time.March, 20),
		Params:       testParams(),
	}

	first := Next(in)
	second := Next(in)
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, *first, *second)
	assert.Equal(t, domain.StageBlocked, *first)
}

func TestStage_TransitionTableIsClosed(t *testing.T) {
	seq := []domain.Stage{
		domain.StageFirstNotice,
		domain.StageSecondNotice,
		domain.StageDefaultNotice,
		domain.StageBlocked,
	}
	for i := 0; i < len(seq)-1; i++ {
		next, ok := seq[i].Successor()
		require.True(t, ok, "stage %s must have a successor", seq[i])
		assert.Equal(t, seq[i+1], next)
		assert.Greater(t, next.Rank(), seq[i].Rank())
	}

	_, ok := domain.StageBlocked.Successor()
	assert.False(t, ok)
	_, ok = domain.StagePaid.Successor()
	assert.False(t, ok)
	_, ok = domain.StageCancelled.Successor()
	assert.False(t, ok)
}
