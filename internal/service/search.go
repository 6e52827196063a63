package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/librarydesk/librarydesk-server/internal/domain"
	"github.com/librarydesk/librarydesk-server/internal/search"
	"github.com/librarydesk/librarydesk-server/internal/store"
)

// SearchService bridges the search index with the store. It keeps book and
// member documents current after commits and resolves list searches to IDs.
//
// Index writes are best-effort: a failure is logged and the committed change
// stands. The next full reindex repairs the document.
type SearchService struct {
	index  *search.SearchIndex
	store  store.Store
	logger *slog.Logger
}

// NewSearchService creates a new search service.
func NewSearchService(index *search.SearchIndex, store store.Store, logger *slog.Logger) *SearchService {
	return &SearchService{
		index:  index,
		store:  store,
		logger: logger,
	}
}

// Search runs a federated query across books and members.
func (s *SearchService) Search(ctx context.Context, params search.SearchParams) (*search.SearchResult, error) {
	return s.index.Search(ctx, params)
}

// IndexBook adds or replaces a book document.
func (s *SearchService) IndexBook(b *domain.Book) error {
	if err := s.index.IndexBook(b); err != nil {
		s.logger.Warn("failed to index book", "book_id", b.ID, "error", err)
		return err
	}
	return nil
}

// IndexMember adds or replaces a member document.
func (s *SearchService) IndexMember(m *domain.Member) error {
	if err := s.index.IndexMember(m); err != nil {
		s.logger.Warn("failed to index member", "member_id", m.ID, "error", err)
		return err
	}
	return nil
}

// Remove deletes the document of a book or member.
func (s *SearchService) Remove(id string) error {
	if err := s.index.Remove(id); err != nil {
		s.logger.Warn("failed to remove search document", "id", id, "error", err)
		return err
	}
	return nil
}

// DocumentCount returns the number of indexed documents.
func (s *SearchService) DocumentCount() (uint64, error) {
	return s.index.DocumentCount()
}

// findIDs resolves a text query to entity IDs of one type in relevance order,
// along with the total number of matches.
func (s *SearchService) findIDs(ctx context.Context, params search.SearchParams, docType search.DocType, page store.Page) ([]string, int, error) {
	page = page.Normalize()

	params.Types = []search.DocType{docType}
	params.Limit = page.Limit
	params.Offset = page.Offset
	params.SortBy = search.SortRelevance
	params.IncludeFacets = false
	params.Highlight = false

	res, err := s.index.Search(ctx, params)
	if err != nil {
		return nil, 0, fmt.Errorf("search %s: %w", docType, err)
	}

	ids := make([]string, len(res.Hits))
	for i, hit := range res.Hits {
		ids[i] = hit.ID
	}
	return ids, int(res.Total), nil
}

// NeedsReindex reports whether the index is empty while the store is not.
func (s *SearchService) NeedsReindex(ctx context.Context) bool {
	if !s.index.NeedsReindex() {
		return false
	}
	books, err := s.store.CountBooks(ctx)
	if err != nil {
		s.logger.Warn("failed to count books for reindex check", "error", err)
		return false
	}
	members, err := s.store.CountMembers(ctx)
	if err != nil {
		s.logger.Warn("failed to count members for reindex check", "error", err)
		return false
	}
	return books+members > 0
}

// ReindexAll rebuilds the index from every book and member in the store.
func (s *SearchService) ReindexAll(ctx context.Context) error {
	s.logger.Info("starting full reindex")

	var books []*domain.Book
	for page := (store.Page{Limit: store.MaxPageLimit}); ; page.Offset += page.Limit {
		batch, _, err := s.store.ListBooks(ctx, store.BookFilter{Page: page})
		if err != nil {
			return fmt.Errorf("list books: %w", err)
		}
		books = append(books, batch...)
		if len(batch) < page.Limit {
			break
		}
	}

	var members []*domain.Member
	for page := (store.Page{Limit: store.MaxPageLimit}); ; page.Offset += page.Limit {
		batch, _, err := s.store.ListMembers(ctx, store.MemberFilter{Page: page})
		if err != nil {
			return fmt.Errorf("list members: %w", err)
		}
		members = append(members, batch...)
		if len(batch) < page.Limit {
			break
		}
	}

	if err := s.index.Reindex(books, members); err != nil {
		return fmt.Errorf("reindex: %w", err)
	}

	s.logger.Info("full reindex complete", "books", len(books), "members", len(members))
	return nil
}

// orderByIDs returns items arranged in the order of ids, dropping IDs with
// no matching item (deleted since they were indexed).
func orderByIDs[T any](ids []string, items []T, idOf func(T) string) []T {
	byID := make(map[string]T, len(items))
	for _, item := range items {
		byID[idOf(item)] = item
	}
	ordered := make([]T, 0, len(ids))
	for _, id := range ids {
		if item, ok := byID[id]; ok {
			ordered = append(ordered, item)
		}
	}
	return ordered
}
