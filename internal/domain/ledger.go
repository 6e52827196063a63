package domain

import (
	"errors"
	"fmt"
)

// Ledger errors. Services translate these into coded API errors.
var (
	ErrOutOfStock        = errors.New("no copies available")
	ErrOverCapacity      = errors.New("available copies would exceed total copies")
	ErrInvalidAdjustment = errors.New("invalid total copies adjustment")
	ErrInvalidLedger     = errors.New("ledger out of range")
)

// Ledger is the authoritative (total, available) copy pair of one book title.
//
// Ledger is a value: every operation returns the next ledger and leaves the
// receiver untouched, so a failed operation never leaves a half-applied count.
// Every Ledger produced by this package satisfies 0 <= Available <= Total.
type Ledger struct {
	Total     int `json:"total_copies"`
	Available int `json:"available_copies"`
}

// NewLedger returns the ledger of a newly catalogued book: every copy is on the shelf.
func NewLedger(total int) (Ledger, error) {
	if total < 0 {
		return Ledger{}, fmt.Errorf("%w: total copies cannot be negative", ErrInvalidAdjustment)
	}
	return Ledger{Total: total, Available: total}, nil
}

// OnLoan returns the number of copies currently checked out.
func (l Ledger) OnLoan() int {
	return l.Total - l.Available
}

// Validate reports whether the ledger satisfies 0 <= available <= total.
func (l Ledger) Validate() error {
	if l.Total < 0 || l.Available < 0 || l.Available > l.Total {
		return fmt.Errorf("%w: total=%d available=%d", ErrInvalidLedger, l.Total, l.Available)
	}
	return nil
}

// AdjustTotal changes the number of owned copies. The difference is applied to
// the available count so copies on loan stay on loan.
//
// A new total below the number of copies on loan is rejected rather than
// clamped: the ledger would otherwise claim copies are available that are
// physically out with members.
func (l Ledger) AdjustTotal(newTotal int) (Ledger, error) {
	if newTotal < 0 {
		return l, fmt.Errorf("%w: total copies cannot be negative", ErrInvalidAdjustment)
	}
	newAvailable := l.Available + (newTotal - l.Total)
	if newAvailable < 0 {
		return l, fmt.Errorf("%w: %d copies are on loan, total cannot drop to %d",
			ErrInvalidAdjustment, l.OnLoan(), newTotal)
	}
	return Ledger{Total: newTotal, Available: newAvailable}, nil
}

// Decrement takes one copy off the shelf for a checkout.
func (l Ledger) Decrement() (Ledger, error) {
	if l.Available <= 0 {
		return l, ErrOutOfStock
	}
	return Ledger{Total: l.Total, Available: l.Available - 1}, nil
}

// Increment puts one returned copy back on the shelf.
func (l Ledger) Increment() (Ledger, error) {
	if l.Available >= l.Total {
		return l, ErrOverCapacity
	}
	return Ledger{Total: l.Total, Available: l.Available + 1}, nil
}
