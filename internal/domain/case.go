package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Stage is a position in the fixed escalation ladder of an open case.
// PAID and CANCELLED are terminal; no transition leaves them.
type Stage string

const (
	StageFirstNotice   Stage = "first_notice"
	StageSecondNotice  Stage = "second_notice"
	StageDefaultNotice Stage = "default_notice"
	StageBlocked       Stage = "blocked"
	StagePaid          Stage = "paid"
	StageCancelled     Stage = "cancelled"
)

// stageSuccessor is the single source of truth for forward transitions.
// Adding an escalation step means one entry here plus a rank below.
var stageSuccessor = map[Stage]Stage{
	StageFirstNotice:   StageSecondNotice,
	StageSecondNotice:  StageDefaultNotice,
	StageDefaultNotice: StageBlocked,
}

var stageRank = map[Stage]int{
	StageFirstNotice:   1,
	StageSecondNotice:  2,
	StageDefaultNotice: 3,
	StageBlocked:       4,
}

func (s Stage) Valid() bool {
	switch s {
	case StageFirstNotice, StageSecondNotice, StageDefaultNotice, StageBlocked, StagePaid, StageCancelled:
		return true
	}
	return false
}

func (s Stage) Terminal() bool {
	return s == StagePaid || s == StageCancelled
}

// Successor returns the next stage in the ladder; ok is false for BLOCKED
// and for terminal stages.
func (s Stage) Successor() (Stage, bool) {
	next, ok := stageSuccessor[s]
	return next, ok
}

// Rank returns the stage's position in the ladder (1-based); 0 for
// terminal stages, which have no position on the ladder.
func (s Stage) Rank() int {
	return stageRank[s]
}

// CollectionCase is a claim against a debtor on behalf of a tenant.
//
// Invariants: TotalDue = Principal + FeeAmount + LevyAmount,
// Balance = TotalDue - TotalPaid, Stage only moves forward except for the
// payment-driven flip to PAID.
type CollectionCase struct {
	ID              int64
	TenantID        int64
	DebtorID        int64
	ReferenceNumber string

	IssueDate time.Time
	DueDate   time.Time

	Principal      decimal.Decimal
	FeeRate        decimal.Decimal
	FeeAmount      decimal.Decimal
	LevyRate       decimal.Decimal
	LevyAmount     decimal.Decimal
	TotalDue       decimal.Decimal
	TotalToReceive decimal.Decimal
	TotalPaid      decimal.Decimal
	Balance        decimal.Decimal

	Stage Stage

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Settled reports whether the case no longer owes anything.
func (c *CollectionCase) Settled() bool {
	return !c.Balance.IsPositive()
}
