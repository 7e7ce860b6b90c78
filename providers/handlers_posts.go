package providers

import (
	"context"

	"github.com/arafat2020/feedwire/src/store"
	"github.com/arafat2020/feedwire/src/types"
	"github.com/gofiber/fiber/v3"
)

type createPostRequest struct {
	Content  string `json:"content"`
	ImageURL string `json:"imageUrl"`
}

type updateRequest struct {
	Content string `json:"content"`
}

func (a *API) listPosts(c fiber.Ctx) error {
	posts, err := a.store.ListPosts(c.Context())
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(posts)
}

func (a *API) getPost(c fiber.Ctx) error {
	post, err := a.store.GetPost(c.Context(), c.Params("id"))
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(post)
}

func (a *API) createPost(c fiber.Ctx) error {
	uid := userID(c)
	if uid == "" {
		return c.SendStatus(fiber.StatusUnauthorized)
	}
	var req createPostRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid body"})
	}
	if req.Content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "content is required"})
	}

	post, err := a.store.CreatePost(c.Context(), store.NewPost{
		Content:  req.Content,
		ImageURL: req.ImageURL,
		Author:   author(c),
	})
	if err != nil {
		return storeError(c, err)
	}

	a.publish(types.EventNewPost, post, types.FeedRoom)
	return c.Status(fiber.StatusCreated).JSON(post)
}

func (a *API) updatePost(c fiber.Ctx) error {
	uid := userID(c)
	if uid == "" {
		return c.SendStatus(fiber.StatusUnauthorized)
	}
	var req updateRequest
	if err := c.Bind().Body(&req); err != nil || req.Content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "content is required"})
	}

	post, err := a.store.UpdatePost(c.Context(), c.Params("id"), uid, req.Content)
	if err != nil {
		return storeError(c, err)
	}

	a.publish(types.EventUpdatePost, post, types.FeedRoom)
	return c.JSON(post)
}

func (a *API) deletePost(c fiber.Ctx) error {
	uid := userID(c)
	if uid == "" {
		return c.SendStatus(fiber.StatusUnauthorized)
	}
	id := c.Params("id")
	if err := a.store.DeletePost(c.Context(), id, uid); err != nil {
		return storeError(c, err)
	}

	a.publish(types.EventDeletePost, types.Deletion{ID: id}, types.FeedRoom)
	return c.SendStatus(fiber.StatusNoContent)
}

func (a *API) likePost(c fiber.Ctx) error {
	return a.togglePostReaction(c, a.store.TogglePostLike)
}

func (a *API) dislikePost(c fiber.Ctx) error {
	return a.togglePostReaction(c, a.store.TogglePostDislike)
}

func (a *API) togglePostReaction(c fiber.Ctx, toggle func(ctx context.Context, id, userID string) (*types.Post, error)) error {
	uid := userID(c)
	if uid == "" {
		return c.SendStatus(fiber.StatusUnauthorized)
	}
	post, err := toggle(c.Context(), c.Params("id"), uid)
	if err != nil {
		return storeError(c, err)
	}

	a.publish(types.EventUpdatePost, post, types.FeedRoom)
	return c.JSON(post)
}
