package postgres

import (
	"context"

	"github.com/doug-martin/goqu/v9"

	"github.com/librarydesk/librarydesk-server/internal/domain"
	"github.com/librarydesk/librarydesk-server/internal/store"
	"github.com/librarydesk/librarydesk-server/internal/store/query"
)

// CreateMember inserts a new member.
func (s *Store) CreateMember(ctx context.Context, m *domain.Member) error {
	rec := memberRecord(m)
	rec["id"] = m.ID
	rec["created_at"] = m.CreatedAt.UTC()
	return exec(ctx, s.pool, s.q.Dialect().Insert(query.TableMembers).Prepared(true).Rows(rec))
}

// GetMember retrieves a member by ID.
func (s *Store) GetMember(ctx context.Context, id string) (*domain.Member, error) {
	row, err := selectOne[memberRow](ctx, s.pool, s.byID(query.TableMembers, query.MemberColumns, id))
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

// GetMembersByIDs retrieves the members with the given IDs. Missing IDs are skipped.
func (s *Store) GetMembersByIDs(ctx context.Context, ids []string) ([]*domain.Member, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := selectAll[memberRow](ctx, s.pool, s.q.ByIDs(query.TableMembers, query.MemberColumns, ids))
	if err != nil {
		return nil, err
	}
	members := make([]*domain.Member, 0, len(rows))
	for i := range rows {
		members = append(members, rows[i].toDomain())
	}
	return members, nil
}

// ListMembers returns a page of members ordered by name plus the total match count.
func (s *Store) ListMembers(ctx context.Context, filter store.MemberFilter) ([]*domain.Member, int, error) {
	list, countDS := s.q.Members(filter)

	total, err := count(ctx, s.pool, countDS)
	if err != nil {
		return nil, 0, err
	}
	rows, err := selectAll[memberRow](ctx, s.pool, list)
	if err != nil {
		return nil, 0, err
	}
	members := make([]*domain.Member, 0, len(rows))
	for i := range rows {
		members = append(members, rows[i].toDomain())
	}
	return members, total, nil
}

// UpdateMember overwrites a member's fields.
func (s *Store) UpdateMember(ctx context.Context, m *domain.Member) error {
	ds := s.q.Dialect().Update(query.TableMembers).Prepared(true).
		Set(memberRecord(m)).
		Where(goqu.C("id").Eq(m.ID))
	return execOne(ctx, s.pool, store.ErrNotFound, ds)
}

// DeleteMember removes a member with no borrowing history.
func (s *Store) DeleteMember(ctx context.Context, id string) error {
	ds := s.q.Dialect().Delete(query.TableMembers).Prepared(true).Where(goqu.C("id").Eq(id))
	return execOne(ctx, s.pool, store.ErrNotFound, ds)
}
