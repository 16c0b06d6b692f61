// Package interest computes statutory interest on court-ordered judgments.
// The applicable annual rate changes over time, so an accrual range is
// segmented into tranches at each rate change; interest compounds once per
// tranche (the tranche's closing principal opens the next), not daily.
package interest

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"incasso-core/internal/domain"
)

// RateScheduleResolver supplies the ordered (effective date, annual rate)
// schedule for an interest type. Implemented by the configuration
// collaborator; the engine itself never touches persistence.
type RateScheduleResolver interface {
	RateSchedule(ctx context.Context, interestTypeID int64) ([]domain.RateEntry, error)
}

var (
	hundred     = decimal.NewFromInt(100)
	daysPerYear = decimal.NewFromInt(365)
)

// Accrue segments [start, end) into rate tranches and compounds interest
// tranche by tranche. Entries need not arrive sorted.
//
// A zero principal, an empty range or an empty schedule is a defined
// "no accrual" result: no tranches, zero total. Not an error.
func Accrue(principal decimal.Decimal, start, end time.Time, entries []domain.RateEntry) ([]domain.AccrualTranche, decimal.Decimal) {
	if !principal.IsPositive() || !start.Before(end) || len(entries) == 0 {
		return nil, decimal.Zero
	}

	schedule := make([]domain.RateEntry, len(entries))
	copy(schedule, entries)
	sort.Slice(schedule, func(i, j int) bool {
		return schedule[i].EffectiveDate.Before(schedule[j].EffectiveDate)
	})

	var (
		tranches []domain.AccrualTranche
		total    = decimal.Zero
		cursor   = start
		index    = 0
	)

	for cursor.Before(end) && principal.IsPositive() {
		rate := rateAt(schedule, cursor)

		trancheEnd := end
		if change, ok := nextChangeAfter(schedule, cursor); ok && change.Before(end) {
			trancheEnd = change
		}

		days := ceilDays(cursor, trancheEnd)

		// Simple daily proration of the annual nominal rate.
		proportional := rate.Div(daysPerYear).Mul(decimal.NewFromInt(int64(days)))
		interestAmt := principal.Mul(proportional).Div(hundred).Round(2)
		closing := principal.Add(interestAmt)

		tranches = append(tranches, domain.AccrualTranche{
			Index:            index,
			PeriodStart:      cursor,
			PeriodEnd:        trancheEnd,
			Days:             days,
			AnnualRate:       rate,
			ProportionalRate: proportional.Round(6),
			OpeningPrincipal: principal,
			Interest:         interestAmt,
			ClosingPrincipal: closing,
		})

		total = total.Add(interestAmt)
		principal = closing
		cursor = trancheEnd
		index++
	}

	return tranches, total
}

// rateAt returns the rate of the entry most recently effective at or before
// the cursor, falling back to the earliest entry when none precedes it.
func rateAt(schedule []domain.RateEntry, cursor time.Time) decimal.Decimal {
	rate := schedule[0].AnnualRate
	for _, e := range schedule {
		if e.EffectiveDate.After(cursor) {
			break
		}
		rate = e.AnnualRate
	}
	return rate
}

// nextChangeAfter finds the first effective date strictly after the cursor.
func nextChangeAfter(schedule []domain.RateEntry, cursor time.Time) (time.Time, bool) {
	for _, e := range schedule {
		if e.EffectiveDate.After(cursor) {
			return e.EffectiveDate, true
		}
	}
	return time.Time{}, false
}

func ceilDays(from, to time.Time) int {
	hours := to.Sub(from).Hours()
	days := int(hours / 24)
	if float64(days)*24 < hours {
		days++
	}
	return days
}
