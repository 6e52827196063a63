package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/librarydesk/librarydesk-server/internal/normalize"
)

// Sort keys accepted by Search.
const (
	SortRelevance = "relevance"
	SortName      = "name"
	SortRecent    = "recent"
)

// SearchParams configures a search query.
type SearchParams struct {
	Query string    // User's search query
	Types []DocType // Document types to include (empty = all)

	// Filters
	AvailableOnly bool // Drop books with no copy on the shelf
	ActiveOnly    bool // Drop inactive members
	InactiveOnly  bool // Keep only inactive members

	// Pagination
	Limit  int
	Offset int

	// Sorting
	SortBy    string // SortRelevance, SortName, SortRecent
	SortOrder string // "asc", "desc"

	IncludeFacets bool
	Highlight     bool
}

// DefaultSearchParams returns sensible defaults.
func DefaultSearchParams() SearchParams {
	return SearchParams{
		Limit:         20,
		SortBy:        SortRelevance,
		SortOrder:     "desc",
		IncludeFacets: true,
		Highlight:     true,
	}
}

// SearchResult represents the search results.
type SearchResult struct {
	Query  string       `json:"query"`
	Total  uint64       `json:"total"`
	TookMs int64        `json:"took_ms"`
	Hits   []SearchHit  `json:"hits"`
	Facets SearchFacets `json:"facets,omitzero"`
}

// SearchHit represents a single search result.
type SearchHit struct {
	ID              string            `json:"id"`
	Type            DocType           `json:"type"`
	Score           float64           `json:"score"`
	Name            string            `json:"name"`
	Author          string            `json:"author,omitempty"`
	ISBN            string            `json:"isbn,omitempty"`
	Email           string            `json:"email,omitempty"`
	Status          string            `json:"status,omitempty"`
	TotalCopies     *int              `json:"total_copies,omitempty"`
	AvailableCopies *int              `json:"available_copies,omitempty"`
	Highlights      map[string]string `json:"highlights,omitempty"`
}

// SearchFacets contains facet counts.
type SearchFacets struct {
	Types   []FacetCount `json:"types,omitempty"`
	Authors []FacetCount `json:"authors,omitempty"`
}

// FacetCount represents a facet value and its count.
type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Search executes a search query.
func (s *SearchIndex) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if params.Limit <= 0 {
		params.Limit = DefaultSearchParams().Limit
	}

	req := bleve.NewSearchRequestOptions(buildSearchQuery(params), params.Limit, params.Offset, false)
	addSorting(req, params)

	if params.IncludeFacets {
		req.AddFacet("type", bleve.NewFacetRequest("type", 5))
		req.AddFacet("author_facet", bleve.NewFacetRequest("author_facet", 20))
	}

	if params.Highlight {
		req.Highlight = bleve.NewHighlight()
		req.Highlight.AddField("name")
		req.Highlight.AddField("author")
	}

	req.Fields = []string{
		"type", "name", "author", "isbn", "email", "status",
		"total_copies", "available_copies",
	}

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &SearchResult{
		Query:  params.Query,
		Total:  res.Total,
		TookMs: res.Took.Milliseconds(),
		Hits:   make([]SearchHit, 0, len(res.Hits)),
	}

	for _, hit := range res.Hits {
		h := SearchHit{ID: hit.ID, Score: hit.Score}

		if t, ok := hit.Fields["type"].(string); ok {
			h.Type = DocType(t)
		}
		h.Name, _ = hit.Fields["name"].(string)
		h.Author, _ = hit.Fields["author"].(string)
		h.ISBN, _ = hit.Fields["isbn"].(string)
		h.Email, _ = hit.Fields["email"].(string)
		h.Status, _ = hit.Fields["status"].(string)
		if v, ok := hit.Fields["total_copies"].(float64); ok {
			n := int(v)
			h.TotalCopies = &n
		}
		if v, ok := hit.Fields["available_copies"].(float64); ok {
			n := int(v)
			h.AvailableCopies = &n
		}

		if len(hit.Fragments) > 0 {
			h.Highlights = make(map[string]string)
			for field, fragments := range hit.Fragments {
				if len(fragments) > 0 {
					h.Highlights[field] = fragments[0]
				}
			}
		}

		result.Hits = append(result.Hits, h)
	}

	if params.IncludeFacets {
		result.Facets = extractFacets(res)
	}

	return result, nil
}

// buildSearchQuery constructs the Bleve query from params.
func buildSearchQuery(params SearchParams) query.Query {
	var must []query.Query
	var mustNot []query.Query

	if q := strings.TrimSpace(params.Query); q != "" {
		text := []query.Query{}

		nameMatch := bleve.NewMatchQuery(q)
		nameMatch.SetField("name")
		nameMatch.SetBoost(3.0)
		text = append(text, nameMatch)

		authorMatch := bleve.NewMatchQuery(q)
		authorMatch.SetField("author")
		authorMatch.SetBoost(2.0)
		text = append(text, authorMatch)

		publisherMatch := bleve.NewMatchQuery(q)
		publisherMatch.SetField("publisher")
		publisherMatch.SetBoost(0.5)
		text = append(text, publisherMatch)

		// Typo tolerance on names.
		fuzzy := bleve.NewFuzzyQuery(strings.ToLower(q))
		fuzzy.SetFuzziness(1)
		fuzzy.SetField("name")
		fuzzy.SetBoost(0.8)
		text = append(text, fuzzy)

		// Prefix for autocomplete (minimum 2 chars).
		if len(q) >= 2 {
			prefix := bleve.NewPrefixQuery(strings.ToLower(q))
			prefix.SetField("name")
			prefix.SetBoost(0.5)
			text = append(text, prefix)
		}

		// Identifiers match exactly.
		if isbn := normalize.ISBN(q); normalize.ValidISBN(isbn) {
			isbnTerm := bleve.NewTermQuery(isbn)
			isbnTerm.SetField("isbn")
			isbnTerm.SetBoost(5.0)
			text = append(text, isbnTerm)
		}
		if strings.Contains(q, "@") {
			emailTerm := bleve.NewTermQuery(normalize.Email(q))
			emailTerm.SetField("email")
			emailTerm.SetBoost(5.0)
			text = append(text, emailTerm)
		}

		must = append(must, bleve.NewDisjunctionQuery(text...))
	}

	if len(params.Types) > 0 {
		typeQueries := make([]query.Query, len(params.Types))
		for i, t := range params.Types {
			tq := bleve.NewTermQuery(string(t))
			tq.SetField("type")
			typeQueries[i] = tq
		}
		must = append(must, bleve.NewDisjunctionQuery(typeQueries...))
	}

	if params.AvailableOnly {
		zero, one := 0.0, 1.0
		inclusive, exclusive := true, false
		none := bleve.NewNumericRangeInclusiveQuery(&zero, &one, &inclusive, &exclusive)
		none.SetField("available_copies")
		mustNot = append(mustNot, none)
	}

	if params.ActiveOnly {
		inactive := bleve.NewTermQuery(statusInactive)
		inactive.SetField("status")
		mustNot = append(mustNot, inactive)
	}

	if params.InactiveOnly {
		inactive := bleve.NewTermQuery(statusInactive)
		inactive.SetField("status")
		must = append(must, inactive)
	}

	if len(must) == 0 {
		must = append(must, bleve.NewMatchAllQuery())
	}
	if len(mustNot) == 0 && len(must) == 1 {
		return must[0]
	}

	bq := bleve.NewBooleanQuery()
	bq.AddMust(must...)
	if len(mustNot) > 0 {
		bq.AddMustNot(mustNot...)
	}
	return bq
}

// addSorting configures sort order.
func addSorting(req *bleve.SearchRequest, params SearchParams) {
	switch params.SortBy {
	case SortName:
		if params.SortOrder == "desc" {
			req.SortBy([]string{"-name", "_id"})
		} else {
			req.SortBy([]string{"name", "_id"})
		}
	case SortRecent:
		if params.SortOrder == "asc" {
			req.SortBy([]string{"created_at", "_id"})
		} else {
			req.SortBy([]string{"-created_at", "_id"})
		}
	default:
		req.SortBy([]string{"-_score", "_id"})
	}
}

// extractFacets converts Bleve facets to our format.
func extractFacets(result *bleve.SearchResult) SearchFacets {
	facets := SearchFacets{}

	if typeFacet, ok := result.Facets["type"]; ok && typeFacet.Terms != nil {
		for _, term := range typeFacet.Terms.Terms() {
			facets.Types = append(facets.Types, FacetCount{Value: term.Term, Count: term.Count})
		}
	}

	if authorFacet, ok := result.Facets["author_facet"]; ok && authorFacet.Terms != nil {
		for _, term := range authorFacet.Terms.Terms() {
			facets.Authors = append(facets.Authors, FacetCount{Value: term.Term, Count: term.Count})
		}
	}

	return facets
}
