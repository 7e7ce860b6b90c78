package types

import "time"

// UserRef identifies the author of a post or comment. Resolving it to a
// profile is the job of the upstream auth collaborator.
type UserRef struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
}

// Post is the canonical snapshot broadcast for post events.
type Post struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	Author    UserRef   `json:"author"`
	Likes     []string  `json:"likes"`
	Dislikes  []string  `json:"dislikes"`
	CreatedAt time.Time `json:"createdAt"`
}

// Comment is the canonical snapshot broadcast for comment events.
// Comments form a tree per post via ParentID.
type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"postId"`
	ParentID  string    `json:"parentId,omitempty"`
	Content   string    `json:"content"`
	Author    UserRef   `json:"author"`
	Likes     []string  `json:"likes"`
	Dislikes  []string  `json:"dislikes"`
	CreatedAt time.Time `json:"createdAt"`
}

// Entity is the common surface of Post and Comment used by the
// reconciliation overlay: identity, deep copy, and the delta mutations
// an optimistic action can express.
type Entity interface {
	EntityID() string
	CloneEntity() Entity
	ToggleLike(userID string)
	ToggleDislike(userID string)
	SetContent(content string)
}

func (p *Post) EntityID() string { return p.ID }

func (p *Post) CloneEntity() Entity {
	cp := *p
	cp.Likes = append([]string(nil), p.Likes...)
	cp.Dislikes = append([]string(nil), p.Dislikes...)
	return &cp
}

// ToggleLike flips the user's membership in the likes set. Adding a like
// removes any standing dislike: a user is never in both sets.
func (p *Post) ToggleLike(userID string) {
	p.Likes, p.Dislikes = toggleReaction(p.Likes, p.Dislikes, userID)
}

func (p *Post) ToggleDislike(userID string) {
	p.Dislikes, p.Likes = toggleReaction(p.Dislikes, p.Likes, userID)
}

func (p *Post) SetContent(content string) { p.Content = content }

func (c *Comment) EntityID() string { return c.ID }

func (c *Comment) CloneEntity() Entity {
	cp := *c
	cp.Likes = append([]string(nil), c.Likes...)
	cp.Dislikes = append([]string(nil), c.Dislikes...)
	return &cp
}

func (c *Comment) ToggleLike(userID string) {
	c.Likes, c.Dislikes = toggleReaction(c.Likes, c.Dislikes, userID)
}

func (c *Comment) ToggleDislike(userID string) {
	c.Dislikes, c.Likes = toggleReaction(c.Dislikes, c.Likes, userID)
}

func (c *Comment) SetContent(content string) { c.Content = content }

// toggleReaction removes userID from target if present, otherwise adds it
// to target and removes it from opposite.
func toggleReaction(target, opposite []string, userID string) (newTarget, newOpposite []string) {
	if i := indexOf(target, userID); i >= 0 {
		return append(target[:i], target[i+1:]...), opposite
	}
	if i := indexOf(opposite, userID); i >= 0 {
		opposite = append(opposite[:i], opposite[i+1:]...)
	}
	return append(target, userID), opposite
}

func indexOf(list []string, v string) int {
	for i, s := range list {
		if s == v {
			return i
		}
	}
	return -1
}
