// Package pagination splits ordered listings into fixed-size pages.
package pagination

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
)

// PerPage is the number of items on every page.
const PerPage = 10

// Page is one window of an ordered listing.
type Page[T any] struct {
	Items      []T
	Number     int
	TotalPages int
	TotalItems int64
}

func (p Page[T]) Len() int { return len(p.Items) }

func (p Page[T]) HasNext() bool { return p.Number < p.TotalPages }

func (p Page[T]) HasPrevious() bool { return p.Number > 1 }

func (p Page[T]) NextNumber() int { return p.Number + 1 }

func (p Page[T]) PreviousNumber() int { return p.Number - 1 }

// Numbers lists every page number, for rendering page links.
func (p Page[T]) Numbers() []int {
	nums := make([]int, p.TotalPages)
	for i := range nums {
		nums[i] = i + 1
	}
	return nums
}

// ParseNumber reads a 1-based page number from a query value.
// Anything that is not an integer yields 1. Integers too large for int
// saturate so that Resolve clamps them like any other out-of-range page.
func ParseNumber(raw string) int {
	raw = strings.TrimSpace(raw)
	n, err := strconv.Atoi(raw)
	if errors.Is(err, strconv.ErrRange) {
		if strings.HasPrefix(raw, "-") {
			return 1
		}
		return math.MaxInt
	}
	if err != nil {
		return 1
	}
	return n
}

// Resolve clamps requested into [1, totalPages] for total items.
// An empty listing still has one (empty) page.
func Resolve(requested int, total int64) (number, totalPages int) {
	totalPages = int((total + PerPage - 1) / PerPage)
	if totalPages == 0 {
		totalPages = 1
	}
	number = requested
	if number < 1 {
		number = 1
	}
	if number > totalPages {
		number = totalPages
	}
	return number, totalPages
}

// Offset returns the index of the first item on page number.
func Offset(number int) int {
	return (number - 1) * PerPage
}

// Slice pages an in-memory ordered collection.
func Slice[T any](items []T, raw string) Page[T] {
	number, totalPages := Resolve(ParseNumber(raw), int64(len(items)))

	start := Offset(number)
	end := start + PerPage
	if start > len(items) {
		start = len(items)
	}
	if end > len(items) {
		end = len(items)
	}

	return Page[T]{
		Items:      items[start:end],
		Number:     number,
		TotalPages: totalPages,
		TotalItems: int64(len(items)),
	}
}

// CountFunc reports the size of a listing.
type CountFunc func(ctx context.Context) (int64, error)

// ListFunc fetches limit items of a listing starting at offset.
type ListFunc[T any] func(ctx context.Context, offset, limit int) ([]T, error)

// Fetch pages a listing that lives in storage, loading only the requested window.
func Fetch[T any](ctx context.Context, raw string, count CountFunc, list ListFunc[T]) (Page[T], error) {
	total, err := count(ctx)
	if err != nil {
		return Page[T]{}, err
	}
	number, totalPages := Resolve(ParseNumber(raw), total)

	items := []T{}
	if total > 0 {
		items, err = list(ctx, Offset(number), PerPage)
		if err != nil {
			return Page[T]{}, err
		}
	}

	return Page[T]{
		Items:      items,
		Number:     number,
		TotalPages: totalPages,
		TotalItems: total,
	}, nil
}
