package domain

import "github.com/shopspring/decimal"

// StageThresholds holds the cool-down days per debtor category for one stage.
type StageThresholds struct {
	Individual int
	Company    int
}

func (t StageThresholds) For(c Category) int {
	if c == CategoryCompany {
		return t.Company
	}
	return t.Individual
}

// TenantParameters is the tenant configuration the core reads: fee and levy
// rates, per-stage grace periods and the bank details printed on notices.
// It is read-only from the core's perspective.
type TenantParameters struct {
	TenantID int64

	FeeRate  decimal.Decimal // percent of the principal
	LevyRate decimal.Decimal // percent of the fee, not the principal

	Currency    string
	BankName    string
	BankAccount string

	FirstNoticeDays  StageThresholds
	SecondNoticeDays StageThresholds

	// DefaultNoticeDays is the fixed step from DEFAULT_NOTICE to BLOCKED;
	// it does not vary by category.
	DefaultNoticeDays int
}

// ThresholdDays returns the cool-down in days before the given stage may be
// escalated past, for the given debtor category. ok is false when the stage
// has no cool-down (BLOCKED and terminal stages have no successor).
func (p TenantParameters) ThresholdDays(stage Stage, category Category) (int, bool) {
	switch stage {
	case StageFirstNotice:
		return p.FirstNoticeDays.For(category), true
	case StageSecondNotice:
		return p.SecondNoticeDays.For(category), true
	case StageDefaultNotice:
		return p.DefaultNoticeDays, true
	}
	return 0, false
}
