package fees

import (
	"github.com/shopspring/decimal"

	"incasso-core/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Result holds the amounts derived from a case principal. The fee is a
// percentage of the principal; the levy is a percentage of the fee, not of
// the principal.
type Result struct {
	FeeAmount      decimal.Decimal
	LevyAmount     decimal.Decimal
	TotalDue       decimal.Decimal
	TotalToReceive decimal.Decimal
}

// Compute derives the collection fee, levy and totals for a principal.
// Rounding to 2 decimals happens after each multiplication, not at the end;
// the figures on generated notices are audited against exactly this scheme.
func Compute(principal, feeRate, levyRate decimal.Decimal) (Result, error) {
	if !principal.IsPositive() {
		return Result{}, domain.ErrInvalidAmount
	}

	fee := principal.Mul(feeRate).Div(hundred).Round(2)
	levy := fee.Mul(levyRate).Div(hundred).Round(2)

	return Result{
		FeeAmount:      fee,
		LevyAmount:     levy,
		TotalDue:       principal.Add(fee).Add(levy),
		TotalToReceive: principal.Sub(fee).Sub(levy),
	}, nil
}
