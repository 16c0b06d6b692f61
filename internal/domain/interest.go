package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InterestType identifies a statutory interest regime (e.g. legal interest
// for consumer claims vs. commercial claims). Each type carries an ordered
// rate schedule because the applicable annual rate changes over time.
type InterestType struct {
	ID   int64
	Name string
}

// RateEntry is one point in a rate schedule: from EffectiveDate on, the
// given annual nominal rate (percent) applies, until a later entry takes
// over.
type RateEntry struct {
	EffectiveDate time.Time
	AnnualRate    decimal.Decimal
}

// AccrualTranche is one sub-period of an accrual range during which a single
// annual rate applied. Tranches partition [start, end] exactly; the closing
// principal of one tranche is the opening principal of the next.
type AccrualTranche struct {
	Index int

	PeriodStart time.Time
	PeriodEnd   time.Time
	Days        int

	AnnualRate       decimal.Decimal
	ProportionalRate decimal.Decimal

	OpeningPrincipal decimal.Decimal
	Interest         decimal.Decimal
	ClosingPrincipal decimal.Decimal
}

// Judgment is a court-ordered claim whose principal accrues statutory
// interest over [PeriodStart, PeriodEnd). It owns its tranches: deletion
// removes the tranches before the judgment, in one transaction.
type Judgment struct {
	ID             int64
	CaseID         int64
	InterestTypeID int64

	Principal   decimal.Decimal
	PeriodStart time.Time
	PeriodEnd   time.Time

	TotalInterest decimal.Decimal
	TotalDue      decimal.Decimal

	CreatedAt time.Time
}
