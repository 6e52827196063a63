package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"github.com/librarydesk/librarydesk-server/internal/domain"
	"github.com/librarydesk/librarydesk-server/internal/store"
	"github.com/librarydesk/librarydesk-server/internal/store/query"
)

// memberRow mirrors query.MemberColumns.
type memberRow struct {
	ID         string `db:"id"`
	FirstName  string `db:"first_name"`
	LastName   string `db:"last_name"`
	Email      string `db:"email"`
	Phone      string `db:"phone"`
	Address    string `db:"address"`
	JoinedDate string `db:"joined_date"`
	IsActive   bool   `db:"is_active"`
	CreatedAt  string `db:"created_at"`
	UpdatedAt  string `db:"updated_at"`
}

func (r *memberRow) toDomain() (*domain.Member, error) {
	m := &domain.Member{
		Entity:    domain.Entity{ID: r.ID},
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Phone:     r.Phone,
		Address:   r.Address,
		IsActive:  r.IsActive,
	}
	var err error
	if m.JoinedDate, err = time.Parse(domain.DateLayout, r.JoinedDate); err != nil {
		return nil, fmt.Errorf("member %s joined_date: %w", r.ID, err)
	}
	if m.CreatedAt, err = parseTime(r.CreatedAt); err != nil {
		return nil, fmt.Errorf("member %s created_at: %w", r.ID, err)
	}
	if m.UpdatedAt, err = parseTime(r.UpdatedAt); err != nil {
		return nil, fmt.Errorf("member %s updated_at: %w", r.ID, err)
	}
	return m, nil
}

func membersFromRows(rows []memberRow) ([]*domain.Member, error) {
	members := make([]*domain.Member, 0, len(rows))
	for i := range rows {
		m, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, nil
}

func getMember(ctx context.Context, q sqlx.QueryerContext, qb query.Builder, id string) (*domain.Member, error) {
	ds := qb.Dialect().From(query.TableMembers).Prepared(true).
		Select(query.MemberColumns...).
		Where(goqu.C("id").Eq(id))

	var row memberRow
	if err := selectOne(ctx, q, ds, &row); err != nil {
		return nil, err
	}
	return row.toDomain()
}

func memberSearchText(m *domain.Member) string {
	return query.SearchText(m.FirstName, m.LastName, m.Email)
}

// CreateMember inserts a new member.
// Returns store.ErrAlreadyExists on duplicate email.
func (s *Store) CreateMember(ctx context.Context, m *domain.Member) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO members (
			id, first_name, last_name, email, phone, address,
			joined_date, is_active, search_text, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID,
		m.FirstName,
		m.LastName,
		m.Email,
		m.Phone,
		m.Address,
		m.JoinedDate.Format(domain.DateLayout),
		m.IsActive,
		memberSearchText(m),
		formatTime(m.CreatedAt),
		formatTime(m.UpdatedAt),
	)
	return mapError(err)
}

// GetMember retrieves a member by ID.
// Returns store.ErrNotFound if the member does not exist.
func (s *Store) GetMember(ctx context.Context, id string) (*domain.Member, error) {
	return getMember(ctx, s.db, s.q, id)
}

// GetMembersByIDs retrieves the members with the given IDs. Missing IDs are skipped.
func (s *Store) GetMembersByIDs(ctx context.Context, ids []string) ([]*domain.Member, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []memberRow
	if err := selectAll(ctx, s.db, s.q.ByIDs(query.TableMembers, query.MemberColumns, ids), &rows); err != nil {
		return nil, err
	}
	return membersFromRows(rows)
}

// ListMembers returns a page of members ordered by name plus the total match count.
func (s *Store) ListMembers(ctx context.Context, filter store.MemberFilter) ([]*domain.Member, int, error) {
	list, countDS := s.q.Members(filter)

	total, err := count(ctx, s.db, countDS)
	if err != nil {
		return nil, 0, err
	}

	var rows []memberRow
	if err := selectAll(ctx, s.db, list, &rows); err != nil {
		return nil, 0, err
	}
	members, err := membersFromRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return members, total, nil
}

// CountMembers returns the number of registered members.
func (s *Store) CountMembers(ctx context.Context) (int, error) {
	return count(ctx, s.db, s.q.Dialect().From(query.TableMembers).Select(goqu.COUNT(goqu.Star())))
}

// UpdateMember overwrites a member's fields.
// Returns store.ErrNotFound or store.ErrAlreadyExists on duplicate email.
func (s *Store) UpdateMember(ctx context.Context, m *domain.Member) error {
	return execOne(ctx, s.db, store.ErrNotFound, `
		UPDATE members SET
			first_name = ?, last_name = ?, email = ?, phone = ?, address = ?,
			joined_date = ?, is_active = ?, search_text = ?, updated_at = ?
		WHERE id = ?`,
		m.FirstName,
		m.LastName,
		m.Email,
		m.Phone,
		m.Address,
		m.JoinedDate.Format(domain.DateLayout),
		m.IsActive,
		memberSearchText(m),
		formatTime(m.UpdatedAt),
		m.ID,
	)
}

// DeleteMember removes a member with no borrowing history.
func (s *Store) DeleteMember(ctx context.Context, id string) error {
	return execOne(ctx, s.db, store.ErrNotFound, `DELETE FROM members WHERE id = ?`, id)
}
