package core_test

import (
	"testing"

	"stock-ledger/internal/core"

	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to core.RequestStatus
		ok       bool
	}{
		{core.StatusPending, core.StatusApproved, true},
		{core.StatusPending, core.StatusRejected, true},
		{core.StatusPending, core.StatusEditRequested, false},
		{core.StatusApproved, core.StatusRejected, true},
		{core.StatusApproved, core.StatusEditRequested, true},
		{core.StatusApproved, core.StatusPending, true},
		{core.StatusEditRequested, core.StatusEditApproved, true},
		{core.StatusEditRequested, core.StatusApproved, true},
		{core.StatusEditRequested, core.StatusPending, false},
		{core.StatusEditApproved, core.StatusPending, true},
		{core.StatusEditApproved, core.StatusApproved, false},
		{core.StatusRejected, core.StatusPending, false},
		{core.StatusRejected, core.StatusApproved, false},
	}
	for _, tt := range tests {
		require.Equal(t, tt.ok, core.CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestLedgerApplied(t *testing.T) {
	require.True(t, core.StatusApproved.LedgerApplied())
	require.True(t, core.StatusEditRequested.LedgerApplied())
	require.False(t, core.StatusPending.LedgerApplied())
	require.False(t, core.StatusRejected.LedgerApplied())
	require.False(t, core.StatusEditApproved.LedgerApplied(), "edit_approved lines were reverted")
}

func TestAggregateStatus(t *testing.T) {
	tests := []struct {
		name   string
		stored core.OrderStatus
		lines  []core.RequestStatus
		want   core.OrderStatus
	}{
		{"empty order reads open", core.OrderOpen, nil, core.OrderOpen},
		{"uniform pending", core.OrderOpen,
			[]core.RequestStatus{core.StatusPending, core.StatusPending}, core.OrderStatus("pending")},
		{"uniform approved", core.OrderOpen,
			[]core.RequestStatus{core.StatusApproved, core.StatusApproved}, core.OrderStatus("approved")},
		{"mixed is partial", core.OrderOpen,
			[]core.RequestStatus{core.StatusApproved, core.StatusPending}, core.OrderPartial},
		{"stored edit state wins", core.OrderEditRequested,
			[]core.RequestStatus{core.StatusApproved, core.StatusApproved}, core.OrderEditing},
		{"line edit state beats uniformity", core.OrderOpen,
			[]core.RequestStatus{core.StatusEditRequested, core.StatusEditRequested}, core.OrderEditing},
		{"one editing line beats partial", core.OrderOpen,
			[]core.RequestStatus{core.StatusApproved, core.StatusEditApproved}, core.OrderEditing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, core.AggregateStatus(tt.stored, tt.lines))
		})
	}
}
