package stats

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestSigned(t *testing.T) {
	cases := []struct {
		name string
		snap *TxSnapshot
		want string
	}{
		{"paid receivable", &TxSnapshot{Type: "receivable", Status: "paid", Amount: dec("100")}, "100"},
		{"paid payable", &TxSnapshot{Type: "payable", Status: "paid", Amount: dec("40")}, "-40"},
		{"approved payable", &TxSnapshot{Type: "payable", Status: "approved", Amount: dec("40")}, "0"},
		{"draft receivable", &TxSnapshot{Type: "receivable", Status: "draft", Amount: dec("9")}, "0"},
		{"absent", nil, "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.True(t, dec(tc.want).Equal(Signed(tc.snap)))
		})
	}
}

func TestDeltaBetween(t *testing.T) {
	// Paid receivable of 100 updated to a paid payable of 40 must apply -140.
	before := &TxSnapshot{Type: "receivable", Status: "paid", Amount: dec("100")}
	after := &TxSnapshot{Type: "payable", Status: "paid", Amount: dec("40")}
	require.True(t, dec("-140").Equal(DeltaBetween(before, after)))
}

func TestDeltaBetweenCreateAndDelete(t *testing.T) {
	paid := &TxSnapshot{Type: "receivable", Status: "paid", Amount: dec("55.50")}
	require.True(t, dec("55.50").Equal(DeltaBetween(nil, paid)))
	require.True(t, dec("-55.50").Equal(DeltaBetween(paid, nil)))
}

func TestDeltaBetweenNonPaidIsZero(t *testing.T) {
	before := &TxSnapshot{Type: "payable", Status: "draft", Amount: dec("10")}
	after := &TxSnapshot{Type: "payable", Status: "approved", Amount: dec("25")}
	require.True(t, DeltaBetween(before, after).IsZero())
}
