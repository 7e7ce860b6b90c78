package store

import (
	"context"
	"errors"

	"github.com/arafat2020/feedwire/src/types"
)

var (
	// ErrNotFound is returned when the target entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when a mutation is attempted by a user
	// other than the entity's author.
	ErrForbidden = errors.New("forbidden")
)

// NewPost carries the fields needed to create a post.
type NewPost struct {
	Content  string
	ImageURL string
	Author   types.UserRef
}

// NewComment carries the fields needed to create a comment.
// ParentID is empty for root comments.
type NewComment struct {
	PostID   string
	ParentID string
	Content  string
	Author   types.UserRef
}

// Store is the store of record for posts and comments. Implementations
// must be safe for concurrent use. The broadcaster is invoked by callers
// only after a Store mutation has returned successfully.
type Store interface {
	CreatePost(ctx context.Context, in NewPost) (*types.Post, error)
	GetPost(ctx context.Context, id string) (*types.Post, error)
	ListPosts(ctx context.Context) ([]*types.Post, error)
	UpdatePost(ctx context.Context, id, userID, content string) (*types.Post, error)
	DeletePost(ctx context.Context, id, userID string) error
	TogglePostLike(ctx context.Context, id, userID string) (*types.Post, error)
	TogglePostDislike(ctx context.Context, id, userID string) (*types.Post, error)

	CreateComment(ctx context.Context, in NewComment) (*types.Comment, error)
	GetComment(ctx context.Context, id string) (*types.Comment, error)
	ListComments(ctx context.Context, postID string) ([]*types.Comment, error)
	UpdateComment(ctx context.Context, id, userID, content string) (*types.Comment, error)

	// DeleteComment removes the comment and its entire reply subtree in one
	// batch. It returns the owning post ID and every removed comment ID,
	// the target first.
	DeleteComment(ctx context.Context, id, userID string) (postID string, removed []string, err error)

	ToggleCommentLike(ctx context.Context, id, userID string) (*types.Comment, error)
	ToggleCommentDislike(ctx context.Context, id, userID string) (*types.Comment, error)

	Close()
}
