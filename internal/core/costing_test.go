package core_test

import (
	"testing"

	"stock-ledger/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestApplyMovement_BlendsWeightedAverage(t *testing.T) {
	entry := core.LedgerEntry{Quantity: dec("10"), UnitCost: dec("2")}
	entry = core.ApplyMovement(entry, core.Movement{Quantity: dec("5"), UnitCost: dec("3")})

	require.True(t, entry.Quantity.Equal(dec("15")), "quantity: %s", entry.Quantity)
	// (10*2 + 5*3) / 15 = 35/15
	require.True(t, entry.UnitCost.Equal(dec("35").Div(dec("15"))), "unit cost: %s", entry.UnitCost)
}

func TestApplyMovement_OutgoingPreservesCost(t *testing.T) {
	entry := core.LedgerEntry{Quantity: dec("15"), UnitCost: dec("2.5")}
	entry = core.ApplyMovement(entry, core.Movement{Quantity: dec("-5"), UnitCost: dec("2.5")})

	require.True(t, entry.Quantity.Equal(dec("10")))
	require.True(t, entry.UnitCost.Equal(dec("2.5")), "outgoing must not move the average")
}

func TestApplyMovement_OutgoingBelowZero(t *testing.T) {
	entry := core.LedgerEntry{Quantity: dec("3"), UnitCost: dec("4")}
	entry = core.ApplyMovement(entry, core.Movement{Quantity: dec("-5"), UnitCost: dec("4")})

	require.True(t, entry.Quantity.Equal(dec("-2")), "quantity may go negative")
	require.True(t, entry.UnitCost.Equal(dec("4")))
}

func TestApplyMovement_ZeroResultKeepsReferenceCost(t *testing.T) {
	entry := core.LedgerEntry{Quantity: dec("-5"), UnitCost: dec("2")}
	entry = core.ApplyMovement(entry, core.Movement{Quantity: dec("5"), UnitCost: dec("9")})

	require.True(t, entry.Quantity.IsZero())
	require.True(t, entry.UnitCost.Equal(dec("2")), "zero-result incoming keeps the reference cost")
}

func TestInverse_ExactWhenUninterleaved(t *testing.T) {
	entry := core.LedgerEntry{Quantity: dec("10"), UnitCost: dec("2")}
	m := core.Movement{Quantity: dec("5"), UnitCost: dec("3")}

	entry = core.ApplyMovement(entry, m)
	entry = core.ApplyMovement(entry, m.Inverse())

	require.True(t, entry.Quantity.Equal(dec("10")))
	require.True(t, entry.UnitCost.Equal(dec("2")), "uninterleaved revert must restore the cost exactly")
}

// Interleaved approvals make the inverse inexact: approving A then B, then
// reverting A, leaves a cost that full replay of {B} alone would not produce.
// The best-effort revert drifts; Replay is the exact repair.
func TestInverse_InterleavedDriftRepairedByReplay(t *testing.T) {
	a := core.Movement{Quantity: dec("5"), UnitCost: dec("3")}
	b := core.Movement{Quantity: dec("5"), UnitCost: dec("5")}

	entry := core.Replay([]core.Movement{a, b}) // 10 @ 4
	require.True(t, entry.UnitCost.Equal(dec("4")))

	drifted := core.ApplyMovement(entry, a.Inverse()) // 5 @ 4, not 5 @ 5
	require.True(t, drifted.Quantity.Equal(dec("5")))
	require.True(t, drifted.UnitCost.Equal(dec("4")))

	exact := core.Replay([]core.Movement{b})
	require.True(t, exact.Quantity.Equal(dec("5")))
	require.True(t, exact.UnitCost.Equal(dec("5")))
	require.False(t, drifted.UnitCost.Equal(exact.UnitCost), "interleaved revert must drift")
}

func TestReplay_Deterministic(t *testing.T) {
	history := []core.Movement{
		{Quantity: dec("10"), UnitCost: dec("2")},
		{Quantity: dec("-4"), UnitCost: dec("2")},
		{Quantity: dec("6"), UnitCost: dec("3.5")},
		{Quantity: dec("-2"), UnitCost: dec("2.75")},
	}
	first := core.Replay(history)
	second := core.Replay(history)

	require.True(t, first.Quantity.Equal(second.Quantity))
	require.True(t, first.UnitCost.Equal(second.UnitCost))
	require.Equal(t, first.Quantity.String(), second.Quantity.String(), "replay must be byte-identical")
	require.Equal(t, first.UnitCost.String(), second.UnitCost.String())
}

func TestLedgerEntry_Value(t *testing.T) {
	entry := core.LedgerEntry{Quantity: dec("12"), UnitCost: dec("1.25")}
	require.True(t, entry.Value().Equal(dec("15")))
}
