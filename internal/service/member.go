package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/librarydesk/librarydesk-server/internal/domain"
	domainerrors "github.com/librarydesk/librarydesk-server/internal/errors"
	"github.com/librarydesk/librarydesk-server/internal/id"
	"github.com/librarydesk/librarydesk-server/internal/normalize"
	"github.com/librarydesk/librarydesk-server/internal/search"
	"github.com/librarydesk/librarydesk-server/internal/sse"
	"github.com/librarydesk/librarydesk-server/internal/store"
	"github.com/librarydesk/librarydesk-server/internal/validation"
)

// MemberService manages library members.
type MemberService struct {
	store     store.Store
	search    *SearchService
	notifier  Notifier
	validator *validation.Validator
	logger    *slog.Logger
}

// NewMemberService creates a new member service. search may be nil.
func NewMemberService(store store.Store, search *SearchService, notifier Notifier, validator *validation.Validator, logger *slog.Logger) *MemberService {
	if notifier == nil {
		notifier = discardNotifier{}
	}
	return &MemberService{
		store:     store,
		search:    search,
		notifier:  notifier,
		validator: validator,
		logger:    logger,
	}
}

// CreateMemberRequest contains the data for a new member.
// JoinedDate defaults to today and IsActive to true.
type CreateMemberRequest struct {
	FirstName  string     `json:"first_name" validate:"required,max=100"`
	LastName   string     `json:"last_name" validate:"required,max=100"`
	Email      string     `json:"email" validate:"required,email,max=254"`
	Phone      string     `json:"phone" validate:"max=15"`
	Address    string     `json:"address" validate:"max=500"`
	JoinedDate *time.Time `json:"joined_date"`
	IsActive   *bool      `json:"is_active"`
}

func (r *CreateMemberRequest) normalize() {
	r.FirstName = normalize.Text(r.FirstName)
	r.LastName = normalize.Text(r.LastName)
	r.Email = normalize.Email(r.Email)
	r.Phone = normalize.Text(r.Phone)
	r.Address = normalize.Text(r.Address)
}

// UpdateMemberRequest is a partial member edit. Nil fields are left unchanged.
type UpdateMemberRequest struct {
	FirstName  *string    `json:"first_name" validate:"omitnil,min=1,max=100"`
	LastName   *string    `json:"last_name" validate:"omitnil,min=1,max=100"`
	Email      *string    `json:"email" validate:"omitnil,email,max=254"`
	Phone      *string    `json:"phone" validate:"omitnil,max=15"`
	Address    *string    `json:"address" validate:"omitnil,max=500"`
	JoinedDate *time.Time `json:"joined_date"`
	IsActive   *bool      `json:"is_active"`
}

func (r *UpdateMemberRequest) normalize() {
	normalizePtr(r.FirstName, normalize.Text)
	normalizePtr(r.LastName, normalize.Text)
	normalizePtr(r.Email, normalize.Email)
	normalizePtr(r.Phone, normalize.Text)
	normalizePtr(r.Address, normalize.Text)
}

// MemberListFilter narrows ListMembers.
type MemberListFilter struct {
	Search string
	Active *bool
	store.Page
}

// CreateMember registers a new member.
func (s *MemberService) CreateMember(ctx context.Context, req CreateMemberRequest) (*domain.Member, error) {
	req.normalize()
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	memberID, err := id.Generate(id.PrefixMember)
	if err != nil {
		return nil, fmt.Errorf("generate member ID: %w", err)
	}

	member := &domain.Member{
		Entity:     domain.Entity{ID: memberID},
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		Phone:      req.Phone,
		Address:    req.Address,
		JoinedDate: domain.TruncateToDate(time.Now()),
		IsActive:   true,
	}
	if req.JoinedDate != nil {
		member.JoinedDate = domain.TruncateToDate(*req.JoinedDate)
	}
	if req.IsActive != nil {
		member.IsActive = *req.IsActive
	}
	member.InitTimestamps()

	if err := s.store.CreateMember(ctx, member); err != nil {
		return nil, memberError(err, member.ID)
	}

	s.logger.Info("member created", "member_id", member.ID, "email", member.Email)

	s.afterMemberWrite(member, sse.NewMemberCreatedEvent(member))
	return member, nil
}

// ReplaceMember applies a full edit: every field is overwritten.
// A nil JoinedDate or IsActive keeps the current value.
func (s *MemberService) ReplaceMember(ctx context.Context, memberID string, req CreateMemberRequest) (*domain.Member, error) {
	req.normalize()
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	return s.updateMember(ctx, memberID, domain.MemberChanges{
		FirstName:  &req.FirstName,
		LastName:   &req.LastName,
		Email:      &req.Email,
		Phone:      &req.Phone,
		Address:    &req.Address,
		JoinedDate: req.JoinedDate,
		IsActive:   req.IsActive,
	})
}

// UpdateMember applies a partial edit. Deactivating a member leaves their
// current borrowings untouched.
func (s *MemberService) UpdateMember(ctx context.Context, memberID string, req UpdateMemberRequest) (*domain.Member, error) {
	req.normalize()
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	return s.updateMember(ctx, memberID, domain.MemberChanges{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		Phone:      req.Phone,
		Address:    req.Address,
		JoinedDate: req.JoinedDate,
		IsActive:   req.IsActive,
	})
}

func (s *MemberService) updateMember(ctx context.Context, memberID string, changes domain.MemberChanges) (*domain.Member, error) {
	member, err := s.store.GetMember(ctx, memberID)
	if err != nil {
		return nil, memberError(err, memberID)
	}

	if changes.JoinedDate != nil {
		d := domain.TruncateToDate(*changes.JoinedDate)
		changes.JoinedDate = &d
	}
	member.Apply(changes)

	if err := s.store.UpdateMember(ctx, member); err != nil {
		return nil, memberError(err, memberID)
	}

	s.logger.Info("member updated", "member_id", member.ID, "is_active", member.IsActive)

	s.afterMemberWrite(member, sse.NewMemberUpdatedEvent(member))
	return member, nil
}

// GetMember retrieves a single member by ID.
func (s *MemberService) GetMember(ctx context.Context, memberID string) (*domain.Member, error) {
	member, err := s.store.GetMember(ctx, memberID)
	if err != nil {
		return nil, memberError(err, memberID)
	}
	return member, nil
}

// ListMembers returns members ordered by last then first name, or by
// relevance when a search term is given and an index is configured.
func (s *MemberService) ListMembers(ctx context.Context, filter MemberListFilter) (*ListResult[*domain.Member], error) {
	page := filter.Page.Normalize()
	query := normalize.Text(filter.Search)

	if query != "" && s.search != nil {
		params := search.SearchParams{Query: query}
		if filter.Active != nil {
			params.ActiveOnly = *filter.Active
			params.InactiveOnly = !*filter.Active
		}
		ids, total, err := s.search.findIDs(ctx, params, search.DocTypeMember, page)
		if err != nil {
			return nil, err
		}
		members, err := s.store.GetMembersByIDs(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("load members: %w", err)
		}
		return &ListResult[*domain.Member]{
			Items:  orderByIDs(ids, members, func(m *domain.Member) string { return m.ID }),
			Total:  total,
			Limit:  page.Limit,
			Offset: page.Offset,
		}, nil
	}

	members, total, err := s.store.ListMembers(ctx, store.MemberFilter{
		Search: query,
		Active: filter.Active,
		Page:   page,
	})
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return &ListResult[*domain.Member]{Items: members, Total: total, Limit: page.Limit, Offset: page.Offset}, nil
}

// DeleteMember removes a member. Members with borrowing records cannot be deleted.
func (s *MemberService) DeleteMember(ctx context.Context, memberID string) error {
	if err := s.store.DeleteMember(ctx, memberID); err != nil {
		if errors.Is(err, store.ErrInUse) {
			return domainerrors.ErrMemberInUse.WithDetails(map[string]string{
				"member": "This member has borrowing records and cannot be deleted.",
			})
		}
		return memberError(err, memberID)
	}

	s.logger.Info("member deleted", "member_id", memberID)

	if s.search != nil {
		_ = s.search.Remove(memberID)
	}
	s.notifier.Emit(sse.NewMemberDeletedEvent(memberID))
	return nil
}

func (s *MemberService) afterMemberWrite(member *domain.Member, event sse.Event) {
	if s.search != nil {
		_ = s.search.IndexMember(member)
	}
	s.notifier.Emit(event)
}
