package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/arafat2020/feedwire/src/types"
	"github.com/google/uuid"
)

// Memory is an in-process Store. It backs tests and single-node
// deployments that do not need durable persistence.
type Memory struct {
	mu       sync.RWMutex
	posts    map[string]*types.Post
	comments map[string]*types.Comment
	children map[string][]string // parent comment ID -> child comment IDs
	now      func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		posts:    make(map[string]*types.Post),
		comments: make(map[string]*types.Comment),
		children: make(map[string][]string),
		now:      time.Now,
	}
}

func (m *Memory) CreatePost(_ context.Context, in NewPost) (*types.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := &types.Post{
		ID:        uuid.New().String(),
		Content:   in.Content,
		ImageURL:  in.ImageURL,
		Author:    in.Author,
		Likes:     []string{},
		Dislikes:  []string{},
		CreatedAt: m.now(),
	}
	m.posts[p.ID] = p
	return clonePost(p), nil
}

func (m *Memory) GetPost(_ context.Context, id string) (*types.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clonePost(p), nil
}

// ListPosts returns all posts, newest first.
func (m *Memory) ListPosts(_ context.Context) ([]*types.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*types.Post, 0, len(m.posts))
	for _, p := range m.posts {
		out = append(out, clonePost(p))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) UpdatePost(_ context.Context, id, userID, content string) (*types.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	if p.Author.ID != userID {
		return nil, ErrForbidden
	}
	p.Content = content
	return clonePost(p), nil
}

// DeletePost removes the post and every comment attached to it.
func (m *Memory) DeletePost(_ context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.posts[id]
	if !ok {
		return ErrNotFound
	}
	if p.Author.ID != userID {
		return ErrForbidden
	}
	delete(m.posts, id)

	for cid, c := range m.comments {
		if c.PostID == id {
			delete(m.comments, cid)
			delete(m.children, cid)
		}
	}
	return nil
}

func (m *Memory) TogglePostLike(_ context.Context, id, userID string) (*types.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	p.ToggleLike(userID)
	return clonePost(p), nil
}

func (m *Memory) TogglePostDislike(_ context.Context, id, userID string) (*types.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	p.ToggleDislike(userID)
	return clonePost(p), nil
}

func (m *Memory) CreateComment(_ context.Context, in NewComment) (*types.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.posts[in.PostID]; !ok {
		return nil, ErrNotFound
	}
	if in.ParentID != "" {
		parent, ok := m.comments[in.ParentID]
		if !ok || parent.PostID != in.PostID {
			return nil, ErrNotFound
		}
	}

	c := &types.Comment{
		ID:        uuid.New().String(),
		PostID:    in.PostID,
		ParentID:  in.ParentID,
		Content:   in.Content,
		Author:    in.Author,
		Likes:     []string{},
		Dislikes:  []string{},
		CreatedAt: m.now(),
	}
	m.comments[c.ID] = c
	if c.ParentID != "" {
		m.children[c.ParentID] = append(m.children[c.ParentID], c.ID)
	}
	return cloneComment(c), nil
}

func (m *Memory) GetComment(_ context.Context, id string) (*types.Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.comments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneComment(c), nil
}

// ListComments returns a post's comments, newest first.
func (m *Memory) ListComments(_ context.Context, postID string) ([]*types.Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*types.Comment, 0)
	for _, c := range m.comments {
		if c.PostID == postID {
			out = append(out, cloneComment(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) UpdateComment(_ context.Context, id, userID, content string) (*types.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.comments[id]
	if !ok {
		return nil, ErrNotFound
	}
	if c.Author.ID != userID {
		return nil, ErrForbidden
	}
	c.Content = content
	return cloneComment(c), nil
}

// DeleteComment removes the comment and its reply subtree. Descendant IDs
// are collected by walking the parent index first, then removed in one
// batch, so a partially-deleted thread is never observable.
func (m *Memory) DeleteComment(_ context.Context, id, userID string) (string, []string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.comments[id]
	if !ok {
		return "", nil, ErrNotFound
	}
	if c.Author.ID != userID {
		return "", nil, ErrForbidden
	}

	removed := m.collectSubtree(id)
	for _, cid := range removed {
		delete(m.comments, cid)
		delete(m.children, cid)
	}
	return c.PostID, removed, nil
}

// collectSubtree walks the children index breadth-first from id and
// returns the full set of IDs to delete, target first.
func (m *Memory) collectSubtree(id string) []string {
	ids := []string{id}
	for i := 0; i < len(ids); i++ {
		ids = append(ids, m.children[ids[i]]...)
	}
	return ids
}

func (m *Memory) ToggleCommentLike(_ context.Context, id, userID string) (*types.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.comments[id]
	if !ok {
		return nil, ErrNotFound
	}
	c.ToggleLike(userID)
	return cloneComment(c), nil
}

func (m *Memory) ToggleCommentDislike(_ context.Context, id, userID string) (*types.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.comments[id]
	if !ok {
		return nil, ErrNotFound
	}
	c.ToggleDislike(userID)
	return cloneComment(c), nil
}

func (m *Memory) Close() {}

func clonePost(p *types.Post) *types.Post {
	return p.CloneEntity().(*types.Post)
}

func cloneComment(c *types.Comment) *types.Comment {
	return c.CloneEntity().(*types.Comment)
}
