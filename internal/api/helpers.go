package api

import (
	"strings"

	"github.com/librarydesk/librarydesk-server/internal/store"
)

// extractIP picks the client address from proxy headers. X-Forwarded-For
// may carry a chain; the first entry is the client.
func extractIP(forwardedFor, realIP string) string {
	if forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		return strings.TrimSpace(first)
	}
	return strings.TrimSpace(realIP)
}

// PageParams are the limit/offset query parameters shared by list endpoints.
type PageParams struct {
	Limit  int `query:"limit" minimum:"0" maximum:"500" doc:"Page size (default 50, max 500)"`
	Offset int `query:"offset" minimum:"0" doc:"Number of items to skip"`
}

func (p PageParams) page() store.Page {
	return store.Page{Limit: p.Limit, Offset: p.Offset}
}

// ListResponse is a page of items with the total match count.
type ListResponse[T any] struct {
	Items  []T `json:"items" doc:"Items on this page"`
	Total  int `json:"total" doc:"Total number of matching items"`
	Limit  int `json:"limit" doc:"Page size used"`
	Offset int `json:"offset" doc:"Offset used"`
}

// ListOutput wraps a list response for Huma.
type ListOutput[T any] struct {
	Body ListResponse[T]
}

// mapList converts a page of domain items into response items.
func mapList[D, T any](items []D, total, limit, offset int, fn func(D) T) *ListOutput[T] {
	out := make([]T, len(items))
	for i, item := range items {
		out[i] = fn(item)
	}
	return &ListOutput[T]{Body: ListResponse[T]{Items: out, Total: total, Limit: limit, Offset: offset}}
}
