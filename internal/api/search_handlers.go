package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/librarydesk/librarydesk-server/internal/errors"
	"github.com/librarydesk/librarydesk-server/internal/search"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "search",
		Method:      http.MethodGet,
		Path:        "/api/v1/search",
		Summary:     "Search library",
		Description: "Federated search across books and members",
		Tags:        []string{"Search"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSearch)
}

// === DTOs ===

// SearchInput contains parameters for searching the library.
type SearchInput struct {
	Query         string `query:"q" required:"true" minLength:"1" maxLength:"200" doc:"Search query"`
	Types         string `query:"types" maxLength:"100" doc:"Comma-separated types to search (book,member). Omit for all."`
	AvailableOnly bool   `query:"available_only" doc:"Only books with a copy on the shelf"`
	ActiveOnly    bool   `query:"active_only" doc:"Only active members"`
	Limit         int    `query:"limit" minimum:"0" maximum:"100" doc:"Max results (default 20)"`
	Offset        int    `query:"offset" minimum:"0" doc:"Pagination offset"`
	Facets        bool   `query:"facets" doc:"Include facets in response"`
}

// SearchHitResult contains a single book or member match.
type SearchHitResult struct {
	ID              string            `json:"id" doc:"Entity ID"`
	Type            string            `json:"type" doc:"Type: book or member"`
	Score           float64           `json:"score" doc:"Search relevance score"`
	Name            string            `json:"name" doc:"Display name (title for books)"`
	Author          string            `json:"author,omitempty" doc:"Author (for books)"`
	ISBN            string            `json:"isbn,omitempty" doc:"ISBN (for books)"`
	Email           string            `json:"email,omitempty" doc:"Email (for members)"`
	Status          string            `json:"status,omitempty" doc:"available/out for books, active/inactive for members"`
	TotalCopies     *int              `json:"total_copies,omitempty" doc:"Copies owned (for books)"`
	AvailableCopies *int              `json:"available_copies,omitempty" doc:"Copies on the shelf (for books)"`
	Highlights      map[string]string `json:"highlights,omitempty" doc:"Highlighted matches"`
}

// SearchFacets contains facet counts for filtering.
type SearchFacets struct {
	Types   []FacetCount `json:"types,omitempty" doc:"Type facets"`
	Authors []FacetCount `json:"authors,omitempty" doc:"Author facets"`
}

// FacetCount represents a facet value and its count.
type FacetCount struct {
	Value string `json:"value" doc:"Facet value"`
	Count int    `json:"count" doc:"Number of matches"`
}

// SearchResponse contains search results.
type SearchResponse struct {
	Query  string            `json:"query" doc:"Original search query"`
	Total  int64             `json:"total" doc:"Total matches"`
	TookMs int64             `json:"took_ms" doc:"Search duration in milliseconds"`
	Hits   []SearchHitResult `json:"hits" doc:"Search results"`
	Facets *SearchFacets     `json:"facets,omitempty" doc:"Facet counts for filtering"`
}

// SearchOutput wraps the search response for Huma.
type SearchOutput struct {
	Body SearchResponse
}

// === Handlers ===

func (s *Server) handleSearch(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	if s.services.Search == nil {
		return nil, domainerrors.Validation("search is disabled on this server")
	}

	params := search.DefaultSearchParams()
	params.Query = input.Query
	params.AvailableOnly = input.AvailableOnly
	params.ActiveOnly = input.ActiveOnly
	params.Offset = input.Offset
	params.IncludeFacets = input.Facets
	if input.Limit > 0 {
		params.Limit = input.Limit
	}

	if input.Types != "" {
		for t := range strings.SplitSeq(input.Types, ",") {
			switch strings.TrimSpace(t) {
			case "book":
				params.Types = append(params.Types, search.DocTypeBook)
			case "member":
				params.Types = append(params.Types, search.DocTypeMember)
			}
		}
	}

	s.logger.Debug("search request", "query", input.Query, "types", input.Types, "limit", params.Limit)

	result, err := s.services.Search.Search(ctx, params)
	if err != nil {
		s.logger.Error("search failed", "error", err, "query", input.Query)
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "search failed")
	}

	hits := make([]SearchHitResult, len(result.Hits))
	for i, h := range result.Hits {
		hits[i] = SearchHitResult{
			ID:              h.ID,
			Type:            string(h.Type),
			Score:           h.Score,
			Name:            h.Name,
			Author:          h.Author,
			ISBN:            h.ISBN,
			Email:           h.Email,
			Status:          h.Status,
			TotalCopies:     h.TotalCopies,
			AvailableCopies: h.AvailableCopies,
			Highlights:      h.Highlights,
		}
	}

	resp := SearchResponse{
		Query:  result.Query,
		Total:  int64(result.Total),
		TookMs: result.TookMs,
		Hits:   hits,
	}
	if input.Facets {
		resp.Facets = &SearchFacets{
			Types:   mapFacets(result.Facets.Types),
			Authors: mapFacets(result.Facets.Authors),
		}
	}

	return &SearchOutput{Body: resp}, nil
}

func mapFacets(in []search.FacetCount) []FacetCount {
	out := make([]FacetCount, len(in))
	for i, f := range in {
		out[i] = FacetCount{Value: f.Value, Count: f.Count}
	}
	return out
}
