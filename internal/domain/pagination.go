package domain

import "math"

const (
	DefaultPostsLimit    = 10
	DefaultCommentsLimit = 50
	MaxPageLimit         = 50

	// MaxPage keeps (page-1)*limit from overflowing.
	MaxPage = math.MaxInt / MaxPageLimit
)

// PageRequest carries raw paging input. Zero values mean "not supplied".
type PageRequest struct {
	Page  int
	Limit int
}

// Normalize clamps page into [1, MaxPage] and clamps limit into [1, MaxPageLimit],
// substituting defaultLimit when no limit was supplied.
func (r PageRequest) Normalize(defaultLimit int) PageRequest {
	page := r.Page
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	limit := r.Limit
	if limit == 0 {
		limit = defaultLimit
	}
	if limit < 1 {
		limit = 1
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return PageRequest{Page: page, Limit: limit}
}

// Offset is the number of records skipped before this page.
func (r PageRequest) Offset() int {
	return (r.Page - 1) * r.Limit
}

// Pagination describes where a page sits in the full result set.
type Pagination struct {
	Total       int64
	Page        int
	Limit       int
	TotalPages  int
	HasNextPage bool
	HasPrevPage bool
}

// NewPagination derives page metadata from a normalized request and a total count.
func NewPagination(req PageRequest, total int64) Pagination {
	totalPages := 0
	if req.Limit > 0 {
		totalPages = int((total + int64(req.Limit) - 1) / int64(req.Limit))
	}
	return Pagination{
		Total:       total,
		Page:        req.Page,
		Limit:       req.Limit,
		TotalPages:  totalPages,
		HasNextPage: req.Page < totalPages,
		HasPrevPage: req.Page > 1,
	}
}

// PostPage is one page of the feed.
type PostPage struct {
	Posts      []EnrichedPost
	Pagination Pagination
}

// CommentPage is one page of a post's comments.
type CommentPage struct {
	Comments   []Comment
	Pagination Pagination
}
