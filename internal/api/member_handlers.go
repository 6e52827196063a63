package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/librarydesk/librarydesk-server/internal/domain"
	domainerrors "github.com/librarydesk/librarydesk-server/internal/errors"
	"github.com/librarydesk/librarydesk-server/internal/service"
)

func (s *Server) registerMemberRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listMembers",
		Method:      http.MethodGet,
		Path:        "/api/v1/members",
		Summary:     "List members",
		Description: "Returns members ordered by last name, then first name",
		Tags:        []string{"Members"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListMembers)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createMember",
		Method:        http.MethodPost,
		Path:          "/api/v1/members",
		Summary:       "Create member",
		Description:   "Registers a new library member",
		Tags:          []string{"Members"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleCreateMember)

	huma.Register(s.api, huma.Operation{
		OperationID: "getMember",
		Method:      http.MethodGet,
		Path:        "/api/v1/members/{id}",
		Summary:     "Get member",
		Tags:        []string{"Members"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetMember)

	huma.Register(s.api, huma.Operation{
		OperationID: "replaceMember",
		Method:      http.MethodPut,
		Path:        "/api/v1/members/{id}",
		Summary:     "Replace member",
		Tags:        []string{"Members"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleReplaceMember)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateMember",
		Method:      http.MethodPatch,
		Path:        "/api/v1/members/{id}",
		Summary:     "Update member",
		Description: "Partially updates a member. Setting is_active to false blocks new borrowings only.",
		Tags:        []string{"Members"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateMember)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteMember",
		Method:        http.MethodDelete,
		Path:          "/api/v1/members/{id}",
		Summary:       "Delete member",
		Description:   "Deletes a member with no borrowing records",
		Tags:          []string{"Members"},
		DefaultStatus: http.StatusNoContent,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteMember)
}

// === DTOs ===

// MemberResponse contains member data in API responses.
type MemberResponse struct {
	ID         string    `json:"id" doc:"Member ID"`
	FirstName  string    `json:"first_name" doc:"First name"`
	LastName   string    `json:"last_name" doc:"Last name"`
	FullName   string    `json:"full_name" doc:"First and last name"`
	Email      string    `json:"email" doc:"Email address"`
	Phone      string    `json:"phone" doc:"Phone number"`
	Address    string    `json:"address" doc:"Postal address"`
	JoinedDate Date      `json:"joined_date" doc:"Date the member joined"`
	IsActive   bool      `json:"is_active" doc:"Whether the member may borrow"`
	CreatedAt  time.Time `json:"created_at" doc:"Creation time"`
	UpdatedAt  time.Time `json:"updated_at" doc:"Last update time"`
}

func mapMemberResponse(m *domain.Member) MemberResponse {
	return MemberResponse{
		ID:         m.ID,
		FirstName:  m.FirstName,
		LastName:   m.LastName,
		FullName:   m.FullName(),
		Email:      m.Email,
		Phone:      m.Phone,
		Address:    m.Address,
		JoinedDate: NewDate(m.JoinedDate),
		IsActive:   m.IsActive,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

// MemberOutput wraps the member response for Huma.
type MemberOutput struct {
	Body MemberResponse
}

// ListMembersInput contains parameters for listing members.
type ListMembersInput struct {
	Search   string `query:"search" maxLength:"200" doc:"Match name or email"`
	IsActive string `query:"is_active" doc:"Filter by active flag (true or false)"`
	PageParams
}

// MemberRequest is the request body for creating or replacing a member.
type MemberRequest struct {
	_          struct{} `additionalProperties:"true"`
	FirstName  string   `json:"first_name,omitempty" doc:"First name (required)"`
	LastName   string   `json:"last_name,omitempty" doc:"Last name (required)"`
	Email      string   `json:"email,omitempty" doc:"Unique email address (required)"`
	Phone      string   `json:"phone,omitempty" doc:"Phone number"`
	Address    string   `json:"address,omitempty" doc:"Postal address"`
	JoinedDate *Date    `json:"joined_date,omitempty" doc:"Join date (default today)"`
	IsActive   *bool    `json:"is_active,omitempty" doc:"Whether the member may borrow (default true)"`
}

func (r MemberRequest) toService() service.CreateMemberRequest {
	return service.CreateMemberRequest{
		FirstName:  r.FirstName,
		LastName:   r.LastName,
		Email:      r.Email,
		Phone:      r.Phone,
		Address:    r.Address,
		JoinedDate: datePtr(r.JoinedDate),
		IsActive:   r.IsActive,
	}
}

// CreateMemberInput wraps the create member request for Huma.
type CreateMemberInput struct {
	Body MemberRequest
}

// MemberIDInput contains the member ID path parameter.
type MemberIDInput struct {
	ID string `path:"id" doc:"Member ID"`
}

// ReplaceMemberInput wraps the replace member request for Huma.
type ReplaceMemberInput struct {
	ID   string `path:"id" doc:"Member ID"`
	Body MemberRequest
}

// MemberUpdateRequest is the request body for partially updating a member.
type MemberUpdateRequest struct {
	_          struct{} `additionalProperties:"true"`
	FirstName  *string  `json:"first_name,omitempty" doc:"First name"`
	LastName   *string  `json:"last_name,omitempty" doc:"Last name"`
	Email      *string  `json:"email,omitempty" doc:"Email address"`
	Phone      *string  `json:"phone,omitempty" doc:"Phone number"`
	Address    *string  `json:"address,omitempty" doc:"Postal address"`
	JoinedDate *Date    `json:"joined_date,omitempty" doc:"Join date"`
	IsActive   *bool    `json:"is_active,omitempty" doc:"Whether the member may borrow"`
}

// UpdateMemberInput wraps the update member request for Huma.
type UpdateMemberInput struct {
	ID   string `path:"id" doc:"Member ID"`
	Body MemberUpdateRequest
}

// === Handlers ===

func (s *Server) handleListMembers(ctx context.Context, input *ListMembersInput) (*ListOutput[MemberResponse], error) {
	filter := service.MemberListFilter{
		Search: input.Search,
		Page:   input.page(),
	}
	if input.IsActive != "" {
		active, err := strconv.ParseBool(input.IsActive)
		if err != nil {
			return nil, domainerrors.ValidationWithDetails("invalid is_active",
				map[string]string{"is_active": "Must be true or false."})
		}
		filter.Active = &active
	}

	res, err := s.services.Members.ListMembers(ctx, filter)
	if err != nil {
		return nil, err
	}
	return mapList(res.Items, res.Total, res.Limit, res.Offset, mapMemberResponse), nil
}

func (s *Server) handleCreateMember(ctx context.Context, input *CreateMemberInput) (*MemberOutput, error) {
	member, err := s.services.Members.CreateMember(ctx, input.Body.toService())
	if err != nil {
		return nil, err
	}
	return &MemberOutput{Body: mapMemberResponse(member)}, nil
}

func (s *Server) handleGetMember(ctx context.Context, input *MemberIDInput) (*MemberOutput, error) {
	member, err := s.services.Members.GetMember(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &MemberOutput{Body: mapMemberResponse(member)}, nil
}

func (s *Server) handleReplaceMember(ctx context.Context, input *ReplaceMemberInput) (*MemberOutput, error) {
	member, err := s.services.Members.ReplaceMember(ctx, input.ID, input.Body.toService())
	if err != nil {
		return nil, err
	}
	return &MemberOutput{Body: mapMemberResponse(member)}, nil
}

func (s *Server) handleUpdateMember(ctx context.Context, input *UpdateMemberInput) (*MemberOutput, error) {
	member, err := s.services.Members.UpdateMember(ctx, input.ID, service.UpdateMemberRequest{
		FirstName:  input.Body.FirstName,
		LastName:   input.Body.LastName,
		Email:      input.Body.Email,
		Phone:      input.Body.Phone,
		Address:    input.Body.Address,
		JoinedDate: datePtr(input.Body.JoinedDate),
		IsActive:   input.Body.IsActive,
	})
	if err != nil {
		return nil, err
	}
	return &MemberOutput{Body: mapMemberResponse(member)}, nil
}

func (s *Server) handleDeleteMember(ctx context.Context, input *MemberIDInput) (*struct{}, error) {
	if err := s.services.Members.DeleteMember(ctx, input.ID); err != nil {
		return nil, err
	}
	return nil, nil
}
