package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/librarydesk/librarydesk-server/internal/domain"
	"github.com/librarydesk/librarydesk-server/internal/logger"
	"github.com/librarydesk/librarydesk-server/internal/service"
)

func (s *Server) registerBorrowingRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listBorrowings",
		Method:      http.MethodGet,
		Path:        "/api/v1/borrowings",
		Summary:     "List borrowings",
		Description: "Returns borrowings, newest first unless ordering is set",
		Tags:        []string{"Borrowings"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListBorrowings)

	huma.Register(s.api, huma.Operation{
		OperationID:   "checkoutBook",
		Method:        http.MethodPost,
		Path:          "/api/v1/borrowings",
		Summary:       "Check out a book",
		Description:   "Lends one available copy to an active member. Fails with OUT_OF_STOCK when no copy is on the shelf.",
		Tags:          []string{"Borrowings"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleCheckout)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBorrowing",
		Method:      http.MethodGet,
		Path:        "/api/v1/borrowings/{id}",
		Summary:     "Get borrowing",
		Tags:        []string{"Borrowings"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetBorrowing)

	huma.Register(s.api, huma.Operation{
		OperationID: "returnBook",
		Method:      http.MethodPost,
		Path:        "/api/v1/borrowings/{id}/return",
		Summary:     "Return a book",
		Description: "Puts the borrowed copy back on the shelf. A borrowing can only be returned once.",
		Tags:        []string{"Borrowings"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleReturn)

	// Older clients post to return_book.
	huma.Register(s.api, huma.Operation{
		OperationID: "returnBookLegacy",
		Method:      http.MethodPost,
		Path:        "/api/v1/borrowings/{id}/return_book",
		Summary:     "Return a book (alias)",
		Tags:        []string{"Borrowings"},
		Deprecated:  true,
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleReturn)
}

// === DTOs ===

// BorrowingResponse contains borrowing data in API responses.
type BorrowingResponse struct {
	ID         string     `json:"id" doc:"Borrowing ID"`
	Book       string     `json:"book" doc:"Book ID"`
	BookTitle  string     `json:"book_title" doc:"Title of the borrowed book"`
	Member     string     `json:"member" doc:"Member ID"`
	MemberName string     `json:"member_name" doc:"Full name of the borrower"`
	BorrowDate time.Time  `json:"borrow_date" doc:"Checkout time"`
	DueDate    time.Time  `json:"due_date" doc:"Due time"`
	ReturnDate *time.Time `json:"return_date" doc:"Return time, null while the book is out"`
	Status     string     `json:"status" enum:"ACTIVE,RETURNED" doc:"Borrowing status"`
	IsOverdue  bool       `json:"is_overdue" doc:"Active and past its due date"`
}

func (s *Server) mapBorrowingResponse(b *domain.Borrowing) BorrowingResponse {
	return BorrowingResponse{
		ID:         b.ID,
		Book:       b.BookID,
		BookTitle:  b.BookTitle,
		Member:     b.MemberID,
		MemberName: b.MemberName,
		BorrowDate: b.BorrowDate,
		DueDate:    b.DueDate,
		ReturnDate: b.ReturnDate,
		Status:     string(b.Status),
		IsOverdue:  b.IsOverdue(s.services.Circulation.Now()),
	}
}

// BorrowingOutput wraps the borrowing response for Huma.
type BorrowingOutput struct {
	Body BorrowingResponse
}

// ListBorrowingsInput contains parameters for listing borrowings.
type ListBorrowingsInput struct {
	Status   string `query:"status" enum:"ACTIVE,RETURNED" doc:"Filter by status"`
	MemberID string `query:"member_id" doc:"Filter by member"`
	BookID   string `query:"book_id" doc:"Filter by book"`
	Overdue  bool   `query:"overdue" doc:"Only active borrowings past their due date"`
	Ordering string `query:"ordering" enum:"borrow_date,-borrow_date,due_date,-due_date,status,-status" doc:"Sort field, prefix with - for descending"`
	PageParams
}

// CheckoutRequest is the request body for checking out a book.
type CheckoutRequest struct {
	_       struct{}  `additionalProperties:"true"`
	Book    string    `json:"book,omitempty" doc:"Book ID (required)"`
	Member  string    `json:"member,omitempty" doc:"Member ID (required)"`
	DueDate *FlexTime `json:"due_date,omitempty" doc:"Due time (default: loan period from now)"`
}

// CheckoutInput wraps the checkout request for Huma.
type CheckoutInput struct {
	Body CheckoutRequest
}

// BorrowingIDInput contains the borrowing ID path parameter.
type BorrowingIDInput struct {
	ID string `path:"id" doc:"Borrowing ID"`
}

// === Handlers ===

func (s *Server) handleListBorrowings(ctx context.Context, input *ListBorrowingsInput) (*ListOutput[BorrowingResponse], error) {
	res, err := s.services.Circulation.ListBorrowings(ctx, service.BorrowingListFilter{
		Status:   input.Status,
		MemberID: input.MemberID,
		BookID:   input.BookID,
		Overdue:  input.Overdue,
		Ordering: input.Ordering,
		Page:     input.page(),
	})
	if err != nil {
		return nil, err
	}
	return mapList(res.Items, res.Total, res.Limit, res.Offset, s.mapBorrowingResponse), nil
}

func (s *Server) handleCheckout(ctx context.Context, input *CheckoutInput) (*BorrowingOutput, error) {
	loan, err := s.services.Circulation.Checkout(ctx, service.CheckoutRequest{
		BookID:   input.Body.Book,
		MemberID: input.Body.Member,
		DueDate:  timePtr(input.Body.DueDate),
	})
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx, s.logger).Info("checkout recorded", "borrowing_id", loan.ID, "staff", StaffFromContext(ctx))
	return &BorrowingOutput{Body: s.mapBorrowingResponse(loan)}, nil
}

func (s *Server) handleGetBorrowing(ctx context.Context, input *BorrowingIDInput) (*BorrowingOutput, error) {
	loan, err := s.services.Circulation.GetBorrowing(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &BorrowingOutput{Body: s.mapBorrowingResponse(loan)}, nil
}

func (s *Server) handleReturn(ctx context.Context, input *BorrowingIDInput) (*BorrowingOutput, error) {
	loan, err := s.services.Circulation.Return(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx, s.logger).Info("return recorded", "borrowing_id", loan.ID, "staff", StaffFromContext(ctx))
	return &BorrowingOutput{Body: s.mapBorrowingResponse(loan)}, nil
}
