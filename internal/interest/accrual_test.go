package interest

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incasso-core/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func rate(y int, m time.Month, d int, pct string) domain.RateEntry {
	r, err := decimal.NewFromString(pct)
	if err != nil {
		panic(err)
	}
	return domain.RateEntry{EffectiveDate: day(y, m, d), AnnualRate: r}
}

func TestAccrue_SplitsAtRateChange(t *testing.T) {
	principal := decimal.NewFromInt(1000)
	entries := []domain.RateEntry{
		rate(2024, time.January, 1, "12"),
		rate(2024, time.March, 1, "18"),
	}

	tranches, total := Accrue(principal, day(2024, time.January, 1), day(2024, time.April, 1), entries)
	require.Len(t, tranches, 2)

	first, second := tranches[0], tranches[1]

	assert.Equal(t, day(2024, time.January, 1), first.PeriodStart)
	assert.Equal(t, day(2024, time.March, 1), first.PeriodEnd)
	assert.Equal(t, 60, first.Days) // leap year: 31 + 29
	assert.True(t, first.AnnualRate.Equal(decimal.NewFromInt(12)))

	assert.Equal(t, day(2024, time.March, 1), second.PeriodStart)
	assert.Equal(t, day(2024, time.April, 1), second.PeriodEnd)
	assert.Equal(t, 31, second.Days)
	assert.True(t, second.AnnualRate.Equal(decimal.NewFromInt(18)))

	// Tranche-level compounding: the first closing principal opens the
	// second tranche.
	assert.True(t, second.OpeningPrincipal.Equal(first.ClosingPrincipal))
	assert.True(t, first.ClosingPrincipal.Equal(first.OpeningPrincipal.Add(first.Interest)))
	assert.True(t, total.Equal(first.Interest.Add(second.Interest)))
}

func TestAccrue_SingleEntrySingleTranche(t *testing.T) {
	tranches, total := Accrue(
		decimal.NewFromInt(500),
		day(2025, time.January, 1), day(2025, time.December, 31),
		[]domain.RateEntry{rate(2020, time.January, 1, "10")},
	)
	require.Len(t, tranches, 1)

	tr := tranches[0]
	assert.Equal(t, day(2025, time.January, 1), tr.PeriodStart)
	assert.Equal(t, day(2025, time.December, 31), tr.PeriodEnd)
	assert.Equal(t, 364, tr.Days)
	assert.True(t, total.Equal(tr.Interest))
}

func TestAccrue_FallsBackToEarliestRate(t *testing.T) {
	// Schedule starts after the accrual start; the earliest entry applies
	// from the start of the range.
	entries := []domain.RateEntry{
		rate(2024, time.June, 1, "8"),
		rate(2024, time.September, 1, "9"),
	}
	tranches, _ := Accrue(decimal.NewFromInt(100), day(2024, time.January, 1), day(2024, time.July, 1), entries)
	require.Len(t, tranches, 2)

	assert.True(t, tranches[0].AnnualRate.Equal(decimal.NewFromInt(8)))
	assert.Equal(t, day(2024, time.June, 1), tranches[0].PeriodEnd)
	assert.True(t, tranches[1].AnnualRate.Equal(decimal.NewFromInt(8)))
}

func TestAccrue_UnsortedInput(t *testing.T) {
	entries := []domain.RateEntry{
		rate(2024, time.March, 1, "18"),
		rate(2024, time.January, 1, "12"),
	}
	tranches, _ := Accrue(decimal.NewFromInt(1000), day(2024, time.January, 1), day(2024, time.April, 1), entries)
	require.Len(t, tranches, 2)
	assert.True(t, tranches[0].AnnualRate.Equal(decimal.NewFromInt(12)))
}

func TestAccrue_DaysPartitionRange(t *testing.T) {
	entries := []domain.RateEntry{
		rate(2023, time.January, 1, "4"),
		rate(2023, time.July, 1, "5"),
		rate(2024, time.January, 1, "6"),
		rate(2024, time.July, 1, "7"),
	}
	start, end := day(2023, time.February, 10), day(2024, time.October, 3)

	tranches, _ := Accrue(decimal.NewFromInt(2500), start, end, entries)
	require.NotEmpty(t, tranches)

	sum := 0
	cursor := start
	for _, tr := range tranches {
		// Contiguous, non-overlapping periods.
		assert.Equal(t, cursor, tr.PeriodStart)
		assert.True(t, tr.PeriodStart.Before(tr.PeriodEnd))
		cursor = tr.PeriodEnd
		sum += tr.Days
	}
	assert.Equal(t, end, cursor)
	assert.Equal(t, ceilDays(start, end), sum)
}

func TestAccrue_ChangeOnEndIsNotATrailingTranche(t *testing.T) {
	entries := []domain.RateEntry{
		rate(2024, time.January, 1, "12"),
		rate(2024, time.April, 1, "18"), // lands exactly on end
	}
	tranches, _ := Accrue(decimal.NewFromInt(1000), day(2024, time.January, 1), day(2024, time.April, 1), entries)
	require.Len(t, tranches, 1)
	assert.Equal(t, day(2024, time.April, 1), tranches[0].PeriodEnd)
	assert.True(t, tranches[0].AnnualRate.Equal(decimal.NewFromInt(12)))
}

func TestAccrue_NoAccrualResults(t *testing.T) {
	entries := []domain.RateEntry{rate(2024, time.January, 1, "12")}

	tranches, total := Accrue(decimal.Zero, day(2024, time.January, 1), day(2024, time.April, 1), entries)
	assert.Empty(t, tranches)
	assert.True(t, total.IsZero())

	tranches, total = Accrue(decimal.NewFromInt(100), day(2024, time.April, 1), day(2024, time.April, 1), entries)
	assert.Empty(t, tranches)
	assert.True(t, total.IsZero())

	tranches, total = Accrue(decimal.NewFromInt(100), day(2024, time.April, 1), day(2024, time.January, 1), entries)
	assert.Empty(t, tranches)
	assert.True(t, total.IsZero())

	tranches, total = Accrue(decimal.NewFromInt(100), day(2024, time.January, 1), day(2024, time.April, 1), nil)
	assert.Empty(t, tranches)
	assert.True(t, total.IsZero())
}

func TestAccrue_SplitAtChangePointIsAssociative(t *testing.T) {
	principal := decimal.NewFromInt(1000)
	entries := []domain.RateEntry{
		rate(2024, time.January, 1, "12"),
		rate(2024, time.March, 1, "18"),
		rate(2024, time.June, 1, "15"),
	}
	start, mid, end := day(2024, time.January, 1), day(2024, time.March, 1), day(2024, time.August, 1)

	whole, _ := Accrue(principal, start, end, entries)
	require.NotEmpty(t, whole)
	wholeClosing := whole[len(whole)-1].ClosingPrincipal

	head, _ := Accrue(principal, start, mid, entries)
	require.NotEmpty(t, head)
	tail, _ := Accrue(head[len(head)-1].ClosingPrincipal, mid, end, entries)
	require.NotEmpty(t, tail)

	assert.True(t, wholeClosing.Equal(tail[len(tail)-1].ClosingPrincipal),
		"whole %s vs split %s", wholeClosing, tail[len(tail)-1].ClosingPrincipal)
}
