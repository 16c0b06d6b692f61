package fees

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incasso-core/internal/domain"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCompute_AuditedFigures(t *testing.T) {
	// 1000.00 at 15% fee and 6% levy is the reference scenario used on
	// generated notices.
	res, err := Compute(dec("1000.00"), dec("15"), dec("6"))
	require.NoError(t, err)

	assert.True(t, res.FeeAmount.Equal(dec("150.00")), "fee: %s", res.FeeAmount)
	assert.True(t, res.LevyAmount.Equal(dec("9.00")), "levy: %s", res.LevyAmount)
	assert.True(t, res.TotalDue.Equal(dec("1159.00")), "total due: %s", res.TotalDue)
	assert.True(t, res.TotalToReceive.Equal(dec("841.00")), "to receive: %s", res.TotalToReceive)
}

func TestCompute_RoundsAfterEachStep(t *testing.T) {
	// 333.33 * 15% = 49.9995 -> 50.00, then levy on the rounded fee:
	// 50.00 * 6% = 3.00. Rounding at the end would give a different levy.
	res, err := Compute(dec("333.33"), dec("15"), dec("6"))
	require.NoError(t, err)

	assert.True(t, res.FeeAmount.Equal(dec("50.00")), "fee: %s", res.FeeAmount)
	assert.True(t, res.LevyAmount.Equal(dec("3.00")), "levy: %s", res.LevyAmount)
}

func TestCompute_TotalsInvariant(t *testing.T) {
	cases := []struct{ principal, feeRate, levyRate string }{
		{"1000.00", "15", "6"},
		{"0.01", "15", "6"},
		{"999999.99", "12.5", "21"},
		{"741.37", "8.25", "3.3"},
		{"50", "0", "0"},
	}

	for _, tc := range cases {
		res, err := Compute(dec(tc.principal), dec(tc.feeRate), dec(tc.levyRate))
		require.NoError(t, err)

		p := dec(tc.principal)
		assert.True(t, res.TotalDue.Equal(p.Add(res.FeeAmount).Add(res.LevyAmount)),
			"total_due invariant for %s", tc.principal)
		assert.True(t, res.TotalToReceive.Equal(p.Sub(res.FeeAmount).Sub(res.LevyAmount)),
			"total_to_receive invariant for %s", tc.principal)
	}
}

func TestCompute_RejectsNonPositivePrincipal(t *testing.T) {
	_, err := Compute(dec("0"), dec("15"), dec("6"))
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = Compute(dec("-10"), dec("15"), dec("6"))
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}
