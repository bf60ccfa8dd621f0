package pagination

import (
	"context"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// Disabled as a page length turns pagination off.
const Disabled = -1

// PageParam is the query parameter holding the requested page number.
const PageParam = "page"

// Page is a bounded slice of a larger result set.
type Page[T any] struct {
	Items      []T  `json:"items"`
	Number     int  `json:"page"`
	PageLength int  `json:"page_length"`
	NumPages   int  `json:"num_pages"`
	Count      int  `json:"count"`
	Paginated  bool `json:"paginated"`
}

// HasNext reports whether a page follows this one.
func (p Page[T]) HasNext() bool { return p.Number < p.NumPages }

// HasPrevious reports whether a page precedes this one.
func (p Page[T]) HasPrevious() bool { return p.Number > 1 }

// StartIndex is the 1-based index of the first item on the page, 0 when empty.
func (p Page[T]) StartIndex() int {
	if p.Count == 0 {
		return 0
	}
	if !p.Paginated {
		return 1
	}
	return (p.Number-1)*p.PageLength + 1
}

// Query is a lazily evaluated, countable and sliceable result set.
type Query[T any] interface {
	Count(ctx context.Context) (int, error)
	Slice(ctx context.Context, offset, limit int) ([]T, error)
}

// numPages follows the usual convention that an empty result still has one
// (empty) page.
func numPages(count, pageLength int) int {
	if count == 0 {
		return 1
	}
	return (count + pageLength - 1) / pageLength
}

// resolve parses raw and clamps it to page 1 when it is not an integer or
// falls outside [1, pages].
func resolve(raw string, pages int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 1
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > pages {
		return 1
	}
	return n
}

// Paginate returns the requested page of items. With pageLength Disabled
// (or any value below 1) the input comes back unchanged as a single
// unpaginated page. Invalid page numbers resolve to the first page.
func Paginate[T any](items []T, pageLength int, pageParam string) Page[T] {
	if pageLength < 1 {
		return Page[T]{Items: items, Number: 1, PageLength: len(items), NumPages: 1, Count: len(items)}
	}
	count := len(items)
	pages := numPages(count, pageLength)
	n := resolve(pageParam, pages)
	lo := (n - 1) * pageLength
	hi := min(lo+pageLength, count)
	return Page[T]{
		Items:      items[lo:hi],
		Number:     n,
		PageLength: pageLength,
		NumPages:   pages,
		Count:      count,
		Paginated:  true,
	}
}

// PaginateQuery is Paginate over a Query, fetching only the requested page.
func PaginateQuery[T any](ctx context.Context, q Query[T], pageLength int, pageParam string) (Page[T], error) {
	count, err := q.Count(ctx)
	if err != nil {
		return Page[T]{}, err
	}
	if pageLength < 1 {
		items, err := q.Slice(ctx, 0, count)
		if err != nil {
			return Page[T]{}, err
		}
		return Page[T]{Items: items, Number: 1, PageLength: len(items), NumPages: 1, Count: len(items)}, nil
	}
	pages := numPages(count, pageLength)
	n := resolve(pageParam, pages)
	items, err := q.Slice(ctx, (n-1)*pageLength, pageLength)
	if err != nil {
		return Page[T]{}, err
	}
	return Page[T]{
		Items:      items,
		Number:     n,
		PageLength: pageLength,
		NumPages:   pages,
		Count:      count,
		Paginated:  true,
	}, nil
}

// FromRequest returns the raw page parameter of the request.
func FromRequest(c *gin.Context) string {
	return c.Query(PageParam)
}
