package domain

import "time"

const (
	MaxPostLength    = 500
	MaxCommentLength = 300
)

// Post is a short text entry authored by a user.
type Post struct {
	ID        string
	Content   string
	AuthorID  string
	Author    Author
	LikerIDs  []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LikedBy reports whether userID is in the post's liker set.
func (p *Post) LikedBy(userID string) bool {
	for _, id := range p.LikerIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// EnrichedPost is a post with read-time derived fields for a specific viewer.
type EnrichedPost struct {
	Post
	LikesCount    int
	CommentsCount int64
	IsLiked       bool
}

// Enrich derives like and comment counters without touching stored state.
func Enrich(post Post, viewerID string, commentsCount int64) EnrichedPost {
	return EnrichedPost{
		Post:          post,
		LikesCount:    len(post.LikerIDs),
		CommentsCount: commentsCount,
		IsLiked:       viewerID != "" && post.LikedBy(viewerID),
	}
}

// Comment is an immutable reply to a post.
type Comment struct {
	ID        string
	PostID    string
	AuthorID  string
	Author    Author
	Content   string
	CreatedAt time.Time
}

// LikeResult is the outcome of a like toggle.
type LikeResult struct {
	Liked      bool
	LikesCount int
}

// NotificationKind distinguishes the interaction that triggered a push.
type NotificationKind string

const (
	NotificationLike    NotificationKind = "like"
	NotificationComment NotificationKind = "comment"
)

// Notification is a best-effort push request for a post author.
type Notification struct {
	PushToken     string
	Kind          NotificationKind
	ActorUsername string
	PostID        string
}
