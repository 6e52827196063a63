package domain

// Book is a catalogued title. Its copy counts are owned by the embedded Ledger;
// nothing outside the ledger methods computes AvailableCopies.
type Book struct {
	Entity
	Ledger
	Title     string `json:"title"`
	Author    string `json:"author"`
	ISBN      string `json:"isbn"`
	Publisher string `json:"publisher,omitempty"`
	// Version increases on every write and is the compare-and-swap token
	// for concurrent ledger updates.
	Version int64 `json:"version"`
}

// ApplyLedger replaces the copy counts with next and bumps the version.
func (b *Book) ApplyLedger(next Ledger) {
	b.Ledger = next
	b.Version++
	b.Touch()
}

// BookChanges holds an administrative edit. Nil fields are left as they are.
// Available copies are derived from the ledger and cannot be edited.
type BookChanges struct {
	Title       *string
	Author      *string
	ISBN        *string
	Publisher   *string
	TotalCopies *int
}

// IsEmpty reports whether the edit touches nothing.
func (c BookChanges) IsEmpty() bool {
	return c.Title == nil && c.Author == nil && c.ISBN == nil && c.Publisher == nil && c.TotalCopies == nil
}

// Apply applies the descriptive fields and, when TotalCopies is set and differs,
// reconciles the ledger. It reports whether the ledger changed. On error the
// book is left unchanged.
func (b *Book) Apply(c BookChanges) (ledgerChanged bool, err error) {
	next := b.Ledger
	if c.TotalCopies != nil && *c.TotalCopies != b.Total {
		next, err = b.AdjustTotal(*c.TotalCopies)
		if err != nil {
			return false, err
		}
		ledgerChanged = true
	}

	if c.Title != nil {
		b.Title = *c.Title
	}
	if c.Author != nil {
		b.Author = *c.Author
	}
	if c.ISBN != nil {
		b.ISBN = *c.ISBN
	}
	if c.Publisher != nil {
		b.Publisher = *c.Publisher
	}
	b.ApplyLedger(next)
	return ledgerChanged, nil
}
