package providers

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/arafat2020/feedwire/src/hub"
	"github.com/arafat2020/feedwire/src/store"
	"github.com/arafat2020/feedwire/src/types"
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publishedEvent struct {
	kind types.EventKind
	room string
}

// fakePublisher records events instead of fanning them out.
type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (f *fakePublisher) Publish(kind types.EventKind, payload any, room string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, publishedEvent{kind: kind, room: room})
	return nil
}

func (f *fakePublisher) list() []publishedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]publishedEvent, len(f.events))
	copy(cp, f.events)
	return cp
}

func newTestAPI(t *testing.T) (*fiber.App, *store.Memory, *fakePublisher) {
	t.Helper()
	st := store.NewMemory()
	pub := &fakePublisher{}
	h := hub.New(zerolog.Nop())
	api := NewAPI(st, pub, h, zerolog.Nop())

	app := fiber.New()
	api.RegisterRoutes(app)
	return app, st, pub
}

func doJSON(t *testing.T, app *fiber.App, method, path, body, user string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set("X-User-ID", user)
		req.Header.Set("X-User-Name", user)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func TestCreatePost(t *testing.T) {
	app, _, pub := newTestAPI(t)

	status, body := doJSON(t, app, "POST", "/posts/", `{"content":"hello","imageUrl":"http://img"}`, "u1")
	require.Equal(t, fiber.StatusCreated, status)

	var post types.Post
	require.NoError(t, json.Unmarshal(body, &post))
	assert.NotEmpty(t, post.ID)
	assert.Equal(t, "hello", post.Content)
	assert.Equal(t, "u1", post.Author.ID)
	assert.NotNil(t, post.Likes)

	events := pub.list()
	require.Len(t, events, 1)
	assert.Equal(t, types.EventNewPost, events[0].kind)
	assert.Equal(t, types.FeedRoom, events[0].room)
}

func TestCreatePostRequiresUser(t *testing.T) {
	app, _, pub := newTestAPI(t)

	status, _ := doJSON(t, app, "POST", "/posts/", `{"content":"hello"}`, "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Empty(t, pub.list())
}

func TestCreatePostRequiresContent(t *testing.T) {
	app, _, pub := newTestAPI(t)

	status, _ := doJSON(t, app, "POST", "/posts/", `{"imageUrl":"x"}`, "u1")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Empty(t, pub.list())
}

func TestGetMissingPost(t *testing.T) {
	app, _, _ := newTestAPI(t)

	status, _ := doJSON(t, app, "GET", "/posts/missing", "", "")
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestUpdatePostByNonAuthor(t *testing.T) {
	app, st, pub := newTestAPI(t)
	p, err := st.CreatePost(context.Background(), store.NewPost{Content: "mine", Author: types.UserRef{ID: "u1"}})
	require.NoError(t, err)

	status, _ := doJSON(t, app, "PUT", "/posts/"+p.ID, `{"content":"hijack"}`, "u2")
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Empty(t, pub.list())
}

func TestLikePostPublishesUpdate(t *testing.T) {
	app, st, pub := newTestAPI(t)
	p, err := st.CreatePost(context.Background(), store.NewPost{Content: "x", Author: types.UserRef{ID: "u1"}})
	require.NoError(t, err)

	status, body := doJSON(t, app, "PUT", "/posts/"+p.ID+"/like", "", "u2")
	require.Equal(t, fiber.StatusOK, status)

	var post types.Post
	require.NoError(t, json.Unmarshal(body, &post))
	assert.Equal(t, []string{"u2"}, post.Likes)

	events := pub.list()
	require.Len(t, events, 1)
	assert.Equal(t, types.EventUpdatePost, events[0].kind)
	assert.Equal(t, types.FeedRoom, events[0].room)
}

func TestDeletePostPublishesDeletion(t *testing.T) {
	app, st, pub := newTestAPI(t)
	p, err := st.CreatePost(context.Background(), store.NewPost{Content: "x", Author: types.UserRef{ID: "u1"}})
	require.NoError(t, err)

	status, _ := doJSON(t, app, "DELETE", "/posts/"+p.ID, "", "u1")
	require.Equal(t, fiber.StatusNoContent, status)

	events := pub.list()
	require.Len(t, events, 1)
	assert.Equal(t, types.EventDeletePost, events[0].kind)
}

func TestCreateCommentPublishesToPostRoom(t *testing.T) {
	app, st, pub := newTestAPI(t)
	p, err := st.CreatePost(context.Background(), store.NewPost{Content: "x", Author: types.UserRef{ID: "u1"}})
	require.NoError(t, err)

	status, body := doJSON(t, app, "POST", "/comments/", `{"postId":"`+p.ID+`","content":"hi"}`, "u2")
	require.Equal(t, fiber.StatusCreated, status)

	var comment types.Comment
	require.NoError(t, json.Unmarshal(body, &comment))
	assert.Equal(t, p.ID, comment.PostID)

	events := pub.list()
	require.Len(t, events, 1)
	assert.Equal(t, types.EventNewComment, events[0].kind)
	assert.Equal(t, types.PostRoom(p.ID), events[0].room)
}

func TestDeleteCommentPublishesPerRemovedID(t *testing.T) {
	app, st, pub := newTestAPI(t)
	ctx := context.Background()
	p, err := st.CreatePost(ctx, store.NewPost{Content: "x", Author: types.UserRef{ID: "u1"}})
	require.NoError(t, err)
	root, err := st.CreateComment(ctx, store.NewComment{PostID: p.ID, Content: "root", Author: types.UserRef{ID: "u1"}})
	require.NoError(t, err)
	_, err = st.CreateComment(ctx, store.NewComment{PostID: p.ID, ParentID: root.ID, Content: "reply", Author: types.UserRef{ID: "u2"}})
	require.NoError(t, err)

	status, _ := doJSON(t, app, "DELETE", "/comments/"+root.ID, "", "u1")
	require.Equal(t, fiber.StatusNoContent, status)

	events := pub.list()
	require.Len(t, events, 2, "one delete_comment per removed id")
	for _, ev := range events {
		assert.Equal(t, types.EventDeleteComment, ev.kind)
		assert.Equal(t, types.PostRoom(p.ID), ev.room)
	}
}

func TestListCommentsForPost(t *testing.T) {
	app, st, _ := newTestAPI(t)
	ctx := context.Background()
	p, err := st.CreatePost(ctx, store.NewPost{Content: "x", Author: types.UserRef{ID: "u1"}})
	require.NoError(t, err)
	_, err = st.CreateComment(ctx, store.NewComment{PostID: p.ID, Content: "hi", Author: types.UserRef{ID: "u2"}})
	require.NoError(t, err)

	status, body := doJSON(t, app, "GET", "/posts/"+p.ID+"/comments", "", "")
	require.Equal(t, fiber.StatusOK, status)

	var comments []types.Comment
	require.NoError(t, json.Unmarshal(body, &comments))
	assert.Len(t, comments, 1)
}

func TestWSInfo(t *testing.T) {
	app, _, _ := newTestAPI(t)

	status, body := doJSON(t, app, "GET", "/ws/info", "", "")
	require.Equal(t, fiber.StatusOK, status)

	var info map[string]any
	require.NoError(t, json.Unmarshal(body, &info))
	assert.Equal(t, true, info["websocket"])
	assert.Equal(t, "/ws", info["endpoint"])
}
