package sqlite

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/librarydesk/librarydesk-server/internal/domain"
)

type eventRow struct {
	ID              string `db:"id"`
	Type            string `db:"type"`
	BookID          string `db:"book_id"`
	MemberID        string `db:"member_id"`
	BorrowingID     string `db:"borrowing_id"`
	Delta           int    `db:"delta"`
	TotalCopies     int    `db:"total_copies"`
	AvailableCopies int    `db:"available_copies"`
	OccurredAt      string `db:"occurred_at"`
}

// ListBookEvents returns a book's circulation events, newest first.
func (s *Store) ListBookEvents(ctx context.Context, bookID string, limit int) ([]*domain.CirculationEvent, error) {
	var rows []eventRow
	if err := selectAll(ctx, s.db, s.q.BookEvents(bookID, limit), &rows); err != nil {
		return nil, err
	}

	events := make([]*domain.CirculationEvent, 0, len(rows))
	for _, r := range rows {
		occurredAt, err := parseTime(r.OccurredAt)
		if err != nil {
			return nil, err
		}
		events = append(events, &domain.CirculationEvent{
			ID:              r.ID,
			Type:            domain.EventType(r.Type),
			BookID:          r.BookID,
			MemberID:        r.MemberID,
			BorrowingID:     r.BorrowingID,
			Delta:           r.Delta,
			TotalCopies:     r.TotalCopies,
			AvailableCopies: r.AvailableCopies,
			OccurredAt:      occurredAt,
		})
	}
	return events, nil
}

func appendEvent(ctx context.Context, e sqlx.ExecerContext, ev *domain.CirculationEvent) error {
	_, err := e.ExecContext(ctx, `
		INSERT INTO circulation_events (
			id, type, book_id, member_id, borrowing_id,
			delta, total_copies, available_copies, occurred_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID,
		string(ev.Type),
		ev.BookID,
		ev.MemberID,
		ev.BorrowingID,
		ev.Delta,
		ev.TotalCopies,
		ev.AvailableCopies,
		formatTime(ev.OccurredAt),
	)
	return mapError(err)
}
