package domain

import "fmt"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

type SortOrder struct {
	Field     string
	Direction SortDirection
}

// SortFields is the allow-list of sortable fields for a resource.
type SortFields []string

var (
	ItemSortFields  = SortFields{"id", "itemName", "quantity", "remainingQuantity", "place", "createdAt", "updatedAt"}
	ClaimSortFields = SortFields{"id", "claimDate", "claimedQuantity", "status", "notes"}
)

func (f SortFields) Contains(field string) bool {
	for _, s := range f {
		if s == field {
			return true
		}
	}
	return false
}

// PageRequest is a zero-based page of a listing.
type PageRequest struct {
	Page int
	Size int
	Sort []SortOrder
}

// Validate normalizes the size and rejects sort fields outside allowed.
func (r *PageRequest) Validate(allowed SortFields) error {
	if r.Page < 0 {
		return NewValidationError("page", "must not be negative")
	}
	if r.Size <= 0 {
		r.Size = DefaultPageSize
	}
	if r.Size > MaxPageSize {
		r.Size = MaxPageSize
	}
	for i, s := range r.Sort {
		if !allowed.Contains(s.Field) {
			return NewValidationError("sort", fmt.Sprintf("unknown sort field %q", s.Field))
		}
		if s.Direction == "" {
			r.Sort[i].Direction = SortAsc
		}
		if s.Direction != "" && s.Direction != SortAsc && s.Direction != SortDesc {
			return NewValidationError("sort", fmt.Sprintf("unknown sort direction %q", s.Direction))
		}
	}
	return nil
}

func (r PageRequest) Offset() int {
	return r.Page * r.Size
}

type Page[T any] struct {
	Content       []T
	Page          int
	Size          int
	TotalElements int64
	TotalPages    int
}

func NewPage[T any](content []T, req PageRequest, total int64) Page[T] {
	if content == nil {
		content = []T{}
	}
	pages := 0
	if req.Size > 0 {
		pages = int((total + int64(req.Size) - 1) / int64(req.Size))
	}
	return Page[T]{
		Content:       content,
		Page:          req.Page,
		Size:          req.Size,
		TotalElements: total,
		TotalPages:    pages,
	}
}

// MapPage converts the content of p with fn, keeping the paging metadata.
func MapPage[T, U any](p Page[T], fn func(T) U) Page[U] {
	out := make([]U, 0, len(p.Content))
	for _, v := range p.Content {
		out = append(out, fn(v))
	}
	return Page[U]{
		Content:       out,
		Page:          p.Page,
		Size:          p.Size,
		TotalElements: p.TotalElements,
		TotalPages:    p.TotalPages,
	}
}
