package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageRequestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   PageRequest
		def  int
		want PageRequest
	}{
		{"defaults", PageRequest{}, DefaultPostsLimit, PageRequest{Page: 1, Limit: 10}},
		{"comment defaults", PageRequest{}, DefaultCommentsLimit, PageRequest{Page: 1, Limit: 50}},
		{"zero page", PageRequest{Page: 0, Limit: 5}, DefaultPostsLimit, PageRequest{Page: 1, Limit: 5}},
		{"negative page", PageRequest{Page: -3, Limit: 5}, DefaultPostsLimit, PageRequest{Page: 1, Limit: 5}},
		{"huge limit", PageRequest{Page: 2, Limit: 1000}, DefaultPostsLimit, PageRequest{Page: 2, Limit: 50}},
		{"negative limit", PageRequest{Page: 1, Limit: -4}, DefaultPostsLimit, PageRequest{Page: 1, Limit: 1}},
		{"max int page", PageRequest{Page: math.MaxInt, Limit: 10}, DefaultPostsLimit, PageRequest{Page: MaxPage, Limit: 10}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.in.Normalize(tc.def))
		})
	}
}

func TestPageRequestOffset(t *testing.T) {
	for page := 1; page <= 5; page++ {
		for limit := 1; limit <= MaxPageLimit; limit += 7 {
			req := PageRequest{Page: page, Limit: limit}
			assert.Equal(t, (page-1)*limit, req.Offset())
		}
	}

	for _, limit := range []int{1, DefaultPostsLimit, MaxPageLimit} {
		req := PageRequest{Page: math.MaxInt, Limit: limit}.Normalize(DefaultPostsLimit)
		assert.Positive(t, req.Offset())
	}
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(PageRequest{Page: 1, Limit: 10}, 25)
	assert.Equal(t, 3, p.TotalPages)
	assert.True(t, p.HasNextPage)
	assert.False(t, p.HasPrevPage)

	p = NewPagination(PageRequest{Page: 3, Limit: 10}, 25)
	assert.False(t, p.HasNextPage)
	assert.True(t, p.HasPrevPage)

	p = NewPagination(PageRequest{Page: 1, Limit: 10}, 0)
	assert.Equal(t, Pagination{Total: 0, Page: 1, Limit: 10, TotalPages: 0}, p)

	p = NewPagination(PageRequest{Page: 2, Limit: 5}, 10)
	assert.Equal(t, 2, p.TotalPages)
	assert.False(t, p.HasNextPage)
}

func TestEnrich(t *testing.T) {
	post := Post{ID: "p1", LikerIDs: []string{"u1", "u2"}}

	e := Enrich(post, "u2", 4)
	assert.Equal(t, 2, e.LikesCount)
	assert.Equal(t, int64(4), e.CommentsCount)
	assert.True(t, e.IsLiked)

	e = Enrich(post, "u3", 0)
	assert.False(t, e.IsLiked)
	assert.Len(t, post.LikerIDs, 2)
}
