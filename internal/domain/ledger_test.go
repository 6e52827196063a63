package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLedger(t *testing.T) {
	l, err := NewLedger(3)
	require.NoError(t, err)
	assert.Equal(t, Ledger{Total: 3, Available: 3}, l)
	assert.Equal(t, 0, l.OnLoan())

	_, err = NewLedger(-1)
	assert.ErrorIs(t, err, ErrInvalidAdjustment)
}

func TestLedger_AdjustTotal(t *testing.T) {
	tests := []struct {
		name     string
		start    Ledger
		newTotal int
		want     Ledger
		wantErr  error
	}{
		{"grow with copies on loan", Ledger{Total: 5, Available: 3}, 7, Ledger{Total: 7, Available: 5}, nil},
		{"shrink within shelf stock", Ledger{Total: 5, Available: 3}, 3, Ledger{Total: 3, Available: 1}, nil},
		{"shrink to exactly on loan", Ledger{Total: 5, Available: 3}, 2, Ledger{Total: 2, Available: 0}, nil},
		{"shrink below on loan", Ledger{Total: 5, Available: 3}, 1, Ledger{Total: 5, Available: 3}, ErrInvalidAdjustment},
		{"negative total", Ledger{Total: 5, Available: 5}, -1, Ledger{Total: 5, Available: 5}, ErrInvalidAdjustment},
		{"to zero with nothing out", Ledger{Total: 2, Available: 2}, 0, Ledger{Total: 0, Available: 0}, nil},
		{"unchanged", Ledger{Total: 4, Available: 1}, 4, Ledger{Total: 4, Available: 1}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.start.AdjustTotal(tt.newTotal)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
			assert.NoError(t, got.Validate())
		})
	}
}

func TestLedger_Decrement(t *testing.T) {
	l := Ledger{Total: 2, Available: 1}

	next, err := l.Decrement()
	require.NoError(t, err)
	assert.Equal(t, Ledger{Total: 2, Available: 0}, next)
	assert.Equal(t, Ledger{Total: 2, Available: 1}, l, "receiver must not change")

	_, err = next.Decrement()
	assert.ErrorIs(t, err, ErrOutOfStock)
}

func TestLedger_Increment(t *testing.T) {
	l := Ledger{Total: 2, Available: 1}

	next, err := l.Increment()
	require.NoError(t, err)
	assert.Equal(t, Ledger{Total: 2, Available: 2}, next)

	_, err = next.Increment()
	assert.ErrorIs(t, err, ErrOverCapacity)
}

func TestLedger_Validate(t *testing.T) {
	assert.NoError(t, Ledger{Total: 0, Available: 0}.Validate())
	assert.NoError(t, Ledger{Total: 3, Available: 2}.Validate())
	assert.ErrorIs(t, Ledger{Total: 3, Available: 4}.Validate(), ErrInvalidLedger)
	assert.ErrorIs(t, Ledger{Total: 3, Available: -1}.Validate(), ErrInvalidLedger)
	assert.ErrorIs(t, Ledger{Total: -1, Available: 0}.Validate(), ErrInvalidLedger)
}

func TestLedger_InvariantHoldsOverSequence(t *testing.T) {
	l, err := NewLedger(2)
	require.NoError(t, err)

	ops := []func(Ledger) (Ledger, error){
		Ledger.Decrement,
		Ledger.Decrement,
		Ledger.Decrement, // out of stock
		func(l Ledger) (Ledger, error) { return l.AdjustTotal(1) }, // below on loan
		Ledger.Increment,
		func(l Ledger) (Ledger, error) { return l.AdjustTotal(4) },
		Ledger.Increment,
		Ledger.Increment,
		Ledger.Increment, // over capacity
	}
	for _, op := range ops {
		if next, err := op(l); err == nil {
			l = next
		}
		require.NoError(t, l.Validate())
	}
	assert.Equal(t, Ledger{Total: 4, Available: 4}, l)
}
