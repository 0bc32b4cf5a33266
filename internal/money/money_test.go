package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	m, err := Parse("1000.00")
	require.NoError(t, err)
	require.Equal(t, "1000.00", m.String())

	m, err = Parse("0.005")
	require.NoError(t, err)
	require.Equal(t, "0.01", m.String(), "half-up rounding on parse")

	_, err = Parse("ten naira")
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = Parse("")
	require.ErrorIs(t, err, ErrInvalidAmount)

	// negative amounts parse fine; rejecting them is the caller's job
	m, err = Parse("-5")
	require.NoError(t, err)
	require.True(t, m.IsNegative())
}

func TestRoundingHalfUp(t *testing.T) {
	rate := decimal.RequireFromString("0.10")

	tests := []struct {
		amount string
		want   string
	}{
		{"1000.00", "100.00"},
		{"0.05", "0.01"},  // 0.005 rounds up
		{"0.04", "0.00"},  // 0.004 rounds down
		{"33.33", "3.33"}, // 3.333
		{"33.35", "3.34"}, // 3.335 rounds up
	}

	for _, tt := range tests {
		m, err := Parse(tt.amount)
		require.NoError(t, err)
		require.Equal(t, tt.want, m.Mul(rate).String(), "10%% of %s", tt.amount)
	}
}

func TestArithmetic(t *testing.T) {
	a, _ := Parse("10.10")
	b, _ := Parse("0.20")

	require.Equal(t, "10.30", a.Add(b).String())
	require.Equal(t, "9.90", a.Sub(b).String())
	require.True(t, a.GreaterThan(b))
	require.True(t, b.LessThan(a))
	require.False(t, a.Equal(b))
	require.True(t, Zero().IsZero())
}

func TestKoboConversion(t *testing.T) {
	m := FromKobo(1_000_000)
	require.Equal(t, "10000.00", m.String())
	require.Equal(t, int64(1_000_000), m.Kobo())

	m, _ = Parse("1.50")
	require.Equal(t, int64(150), m.Kobo())
}

func TestFeeScheduleApply(t *testing.T) {
	schedule := FeeSchedule{
		Rate: decimal.RequireFromString("0.10"),
		Min:  Zero(),
	}

	amount, _ := Parse("1000.00")
	fee, net := schedule.Apply(amount)

	require.Equal(t, "100.00", fee.String())
	require.Equal(t, "900.00", net.String())
	require.True(t, amount.Equal(fee.Add(net)), "amount = fee + net exactly")
}

func TestFeeScheduleFloorAndCeiling(t *testing.T) {
	min, _ := Parse("50.00")
	max, _ := Parse("2000.00")

	schedule := FeeSchedule{
		Rate: decimal.RequireFromString("0.10"),
		Min:  min,
		Max:  &max,
	}

	small, _ := Parse("100.00")
	fee, net := schedule.Apply(small)
	require.Equal(t, "50.00", fee.String(), "floor applies below minimum fee")
	require.Equal(t, "50.00", net.String())

	large, _ := Parse("100000.00")
	fee, net = schedule.Apply(large)
	require.Equal(t, "2000.00", fee.String(), "ceiling caps the fee")
	require.Equal(t, "98000.00", net.String())
}

func TestReferralBonusScenario(t *testing.T) {
	// subscription of 10000.00 at 5% referral rate earns exactly 500.00
	rate := decimal.RequireFromString("0.05")
	amount, _ := Parse("10000.00")

	require.Equal(t, "500.00", amount.Mul(rate).String())
}

func TestJSONRoundTrip(t *testing.T) {
	m, _ := Parse("1234.50")

	data, err := m.MarshalJSON()
	require.NoError(t, err)
	require.Equal(t, `"1234.50"`, string(data))

	var out Money
	require.NoError(t, out.UnmarshalJSON(data))
	require.True(t, m.Equal(out))
}
