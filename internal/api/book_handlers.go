package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/librarydesk/librarydesk-server/internal/domain"
	"github.com/librarydesk/librarydesk-server/internal/service"
)

func (s *Server) registerBookRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/books",
		Summary:     "List books",
		Description: "Returns books ordered by title, or by relevance when search is set",
		Tags:        []string{"Books"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListBooks)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createBook",
		Method:        http.MethodPost,
		Path:          "/api/v1/books",
		Summary:       "Create book",
		Description:   "Catalogues a new title with every copy available",
		Tags:          []string{"Books"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleCreateBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBook",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}",
		Summary:     "Get book",
		Description: "Returns a book with its current copy counts",
		Tags:        []string{"Books"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "replaceBook",
		Method:      http.MethodPut,
		Path:        "/api/v1/books/{id}",
		Summary:     "Replace book",
		Description: "Overwrites the descriptive fields of a book. A new total_copies is reconciled with the copies on loan.",
		Tags:        []string{"Books"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleReplaceBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateBook",
		Method:      http.MethodPatch,
		Path:        "/api/v1/books/{id}",
		Summary:     "Update book",
		Description: "Partially updates a book. Only provided fields are changed; available_copies is derived and ignored.",
		Tags:        []string{"Books"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateBook)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteBook",
		Method:        http.MethodDelete,
		Path:          "/api/v1/books/{id}",
		Summary:       "Delete book",
		Description:   "Deletes a book that has never been borrowed",
		Tags:          []string{"Books"},
		DefaultStatus: http.StatusNoContent,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBookHistory",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}/history",
		Summary:     "Book circulation history",
		Description: "Returns the copy ledger changes of a book, newest first",
		Tags:        []string{"Books"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetBookHistory)
}

// === DTOs ===

// BookResponse contains book data in API responses.
type BookResponse struct {
	ID              string    `json:"id" doc:"Book ID"`
	Title           string    `json:"title" doc:"Title"`
	Author          string    `json:"author" doc:"Author"`
	ISBN            string    `json:"isbn" doc:"ISBN-10 or ISBN-13, digits only"`
	Publisher       string    `json:"publisher" doc:"Publisher"`
	TotalCopies     int       `json:"total_copies" doc:"Copies owned"`
	AvailableCopies int       `json:"available_copies" doc:"Copies on the shelf"`
	Version         int64     `json:"version" doc:"Increases on every change"`
	CreatedAt       time.Time `json:"created_at" doc:"Creation time"`
	UpdatedAt       time.Time `json:"updated_at" doc:"Last update time"`
}

func mapBookResponse(b *domain.Book) BookResponse {
	return BookResponse{
		ID:              b.ID,
		Title:           b.Title,
		Author:          b.Author,
		ISBN:            b.ISBN,
		Publisher:       b.Publisher,
		TotalCopies:     b.Total,
		AvailableCopies: b.Available,
		Version:         b.Version,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

// BookOutput wraps the book response for Huma.
type BookOutput struct {
	Body BookResponse
}

// ListBooksInput contains parameters for listing books.
type ListBooksInput struct {
	Search string `query:"search" maxLength:"200" doc:"Match title, author or ISBN"`
	PageParams
}

// BookRequest is the request body for creating or replacing a book.
// Unknown fields such as available_copies are accepted and ignored.
type BookRequest struct {
	_           struct{} `additionalProperties:"true"`
	Title       string   `json:"title,omitempty" doc:"Title (required)"`
	Author      string   `json:"author,omitempty" doc:"Author (required)"`
	ISBN        string   `json:"isbn,omitempty" doc:"ISBN-10 or ISBN-13 (required)"`
	Publisher   string   `json:"publisher,omitempty" doc:"Publisher"`
	TotalCopies *int     `json:"total_copies,omitempty" doc:"Copies owned (default 1 on create)"`
}

func (r BookRequest) toService() service.CreateBookRequest {
	return service.CreateBookRequest{
		Title:       r.Title,
		Author:      r.Author,
		ISBN:        r.ISBN,
		Publisher:   r.Publisher,
		TotalCopies: r.TotalCopies,
	}
}

// CreateBookInput wraps the create book request for Huma.
type CreateBookInput struct {
	Body BookRequest
}

// BookIDInput contains the book ID path parameter.
type BookIDInput struct {
	ID string `path:"id" doc:"Book ID"`
}

// ReplaceBookInput wraps the replace book request for Huma.
type ReplaceBookInput struct {
	ID   string `path:"id" doc:"Book ID"`
	Body BookRequest
}

// BookUpdateRequest is the request body for partially updating a book.
// Nil fields are left unchanged.
type BookUpdateRequest struct {
	_           struct{} `additionalProperties:"true"`
	Title       *string  `json:"title,omitempty" doc:"Title"`
	Author      *string  `json:"author,omitempty" doc:"Author"`
	ISBN        *string  `json:"isbn,omitempty" doc:"ISBN-10 or ISBN-13"`
	Publisher   *string  `json:"publisher,omitempty" doc:"Publisher"`
	TotalCopies *int     `json:"total_copies,omitempty" doc:"Copies owned; cannot drop below the copies on loan"`
}

// UpdateBookInput wraps the update book request for Huma.
type UpdateBookInput struct {
	ID   string `path:"id" doc:"Book ID"`
	Body BookUpdateRequest
}

// CirculationEventResponse is one entry of a book's ledger history.
type CirculationEventResponse struct {
	ID              string    `json:"id" doc:"Event ID"`
	Type            string    `json:"type" doc:"book.registered, copies.adjusted, loan.checked_out or loan.returned"`
	Delta           int       `json:"delta" doc:"Change in available copies"`
	TotalCopies     int       `json:"total_copies" doc:"Total copies after the change"`
	AvailableCopies int       `json:"available_copies" doc:"Available copies after the change"`
	MemberID        string    `json:"member_id,omitempty" doc:"Member, for loan events"`
	BorrowingID     string    `json:"borrowing_id,omitempty" doc:"Borrowing, for loan events"`
	OccurredAt      time.Time `json:"occurred_at" doc:"When the change committed"`
}

// BookHistoryResponse lists a book's circulation events.
type BookHistoryResponse struct {
	BookID string                     `json:"book_id" doc:"Book ID"`
	Events []CirculationEventResponse `json:"events" doc:"Events, newest first"`
}

// BookHistoryOutput wraps the history response for Huma.
type BookHistoryOutput struct {
	Body BookHistoryResponse
}

// === Handlers ===

func (s *Server) handleListBooks(ctx context.Context, input *ListBooksInput) (*ListOutput[BookResponse], error) {
	res, err := s.services.Catalog.ListBooks(ctx, input.Search, input.page())
	if err != nil {
		return nil, err
	}
	return mapList(res.Items, res.Total, res.Limit, res.Offset, mapBookResponse), nil
}

func (s *Server) handleCreateBook(ctx context.Context, input *CreateBookInput) (*BookOutput, error) {
	book, err := s.services.Catalog.CreateBook(ctx, input.Body.toService())
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: mapBookResponse(book)}, nil
}

func (s *Server) handleGetBook(ctx context.Context, input *BookIDInput) (*BookOutput, error) {
	book, err := s.services.Catalog.GetBook(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: mapBookResponse(book)}, nil
}

func (s *Server) handleReplaceBook(ctx context.Context, input *ReplaceBookInput) (*BookOutput, error) {
	book, err := s.services.Catalog.ReplaceBook(ctx, input.ID, input.Body.toService())
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: mapBookResponse(book)}, nil
}

func (s *Server) handleUpdateBook(ctx context.Context, input *UpdateBookInput) (*BookOutput, error) {
	book, err := s.services.Catalog.UpdateBook(ctx, input.ID, service.UpdateBookRequest{
		Title:       input.Body.Title,
		Author:      input.Body.Author,
		ISBN:        input.Body.ISBN,
		Publisher:   input.Body.Publisher,
		TotalCopies: input.Body.TotalCopies,
	})
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: mapBookResponse(book)}, nil
}

func (s *Server) handleDeleteBook(ctx context.Context, input *BookIDInput) (*struct{}, error) {
	if err := s.services.Catalog.DeleteBook(ctx, input.ID); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Server) handleGetBookHistory(ctx context.Context, input *BookIDInput) (*BookHistoryOutput, error) {
	events, err := s.services.Catalog.BookHistory(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	resp := make([]CirculationEventResponse, len(events))
	for i, e := range events {
		resp[i] = CirculationEventResponse{
			ID:              e.ID,
			Type:            string(e.Type),
			Delta:           e.Delta,
			TotalCopies:     e.TotalCopies,
			AvailableCopies: e.AvailableCopies,
			MemberID:        e.MemberID,
			BorrowingID:     e.BorrowingID,
			OccurredAt:      e.OccurredAt,
		}
	}

	return &BookHistoryOutput{Body: BookHistoryResponse{BookID: input.ID, Events: resp}}, nil
}
