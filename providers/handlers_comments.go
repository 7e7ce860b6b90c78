package providers

import (
	"context"

	"github.com/arafat2020/feedwire/src/store"
	"github.com/arafat2020/feedwire/src/types"
	"github.com/gofiber/fiber/v3"
)

type createCommentRequest struct {
	PostID   string `json:"postId"`
	ParentID string `json:"parentId"`
	Content  string `json:"content"`
}

func (a *API) listComments(c fiber.Ctx) error {
	comments, err := a.store.ListComments(c.Context(), c.Params("id"))
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(comments)
}

func (a *API) createComment(c fiber.Ctx) error {
	uid := userID(c)
	if uid == "" {
		return c.SendStatus(fiber.StatusUnauthorized)
	}
	var req createCommentRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid body"})
	}
	if req.PostID == "" || req.Content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "postId and content are required"})
	}

	comment, err := a.store.CreateComment(c.Context(), store.NewComment{
		PostID:   req.PostID,
		ParentID: req.ParentID,
		Content:  req.Content,
		Author:   author(c),
	})
	if err != nil {
		return storeError(c, err)
	}

	a.publish(types.EventNewComment, comment, types.PostRoom(comment.PostID))
	return c.Status(fiber.StatusCreated).JSON(comment)
}

func (a *API) updateComment(c fiber.Ctx) error {
	uid := userID(c)
	if uid == "" {
		return c.SendStatus(fiber.StatusUnauthorized)
	}
	var req updateRequest
	if err := c.Bind().Body(&req); err != nil || req.Content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "content is required"})
	}

	comment, err := a.store.UpdateComment(c.Context(), c.Params("id"), uid, req.Content)
	if err != nil {
		return storeError(c, err)
	}

	a.publish(types.EventUpdateComment, comment, types.PostRoom(comment.PostID))
	return c.JSON(comment)
}

// deleteComment removes a whole reply subtree; one delete_comment event is
// published per removed id so every client can prune by id.
func (a *API) deleteComment(c fiber.Ctx) error {
	uid := userID(c)
	if uid == "" {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	postID, removed, err := a.store.DeleteComment(c.Context(), c.Params("id"), uid)
	if err != nil {
		return storeError(c, err)
	}

	room := types.PostRoom(postID)
	for _, id := range removed {
		a.publish(types.EventDeleteComment, types.Deletion{ID: id}, room)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (a *API) likeComment(c fiber.Ctx) error {
	return a.toggleCommentReaction(c, a.store.ToggleCommentLike)
}

func (a *API) dislikeComment(c fiber.Ctx) error {
	return a.toggleCommentReaction(c, a.store.ToggleCommentDislike)
}

func (a *API) toggleCommentReaction(c fiber.Ctx, toggle func(ctx context.Context, id, userID string) (*types.Comment, error)) error {
	uid := userID(c)
	if uid == "" {
		return c.SendStatus(fiber.StatusUnauthorized)
	}
	comment, err := toggle(c.Context(), c.Params("id"), uid)
	if err != nil {
		return storeError(c, err)
	}

	a.publish(types.EventUpdateComment, comment, types.PostRoom(comment.PostID))
	return c.JSON(comment)
}
