package providers

import (
	"strings"

	"github.com/arafat2020/feedwire/src/hub"
	"github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

var upgrader = websocket.FastHTTPUpgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// RegisterRoutes registers the REST and diagnostics routes via Fiber.
// The actual WebSocket upgrade uses FastHTTPHandler, registered at the
// server level since Fiber v3 does not expose *fasthttp.RequestCtx.
func (a *API) RegisterRoutes(app fiber.Router) {
	app.Get("/ws/info", a.handleInfo)

	posts := app.Group("/posts")
	posts.Get("/", a.listPosts)
	posts.Post("/", a.createPost)
	posts.Get("/:id", a.getPost)
	posts.Put("/:id", a.updatePost)
	posts.Delete("/:id", a.deletePost)
	posts.Put("/:id/like", a.likePost)
	posts.Put("/:id/dislike", a.dislikePost)
	posts.Get("/:id/comments", a.listComments)

	comments := app.Group("/comments")
	comments.Post("/", a.createComment)
	comments.Put("/:id", a.updateComment)
	comments.Delete("/:id", a.deleteComment)
	comments.Put("/:id/like", a.likeComment)
	comments.Put("/:id/dislike", a.dislikeComment)
}

func (a *API) handleInfo(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"websocket": true,
		"endpoint":  "/ws",
		"clients":   a.hub.ClientCount(),
		"rooms":     len(a.hub.Rooms()),
	})
}

// FastHTTPHandler returns a raw fasthttp handler for WebSocket upgrades.
// Register this on the fasthttp server at the "/ws" path.
func (a *API) FastHTTPHandler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		upgrade := string(ctx.Request.Header.Peek("Upgrade"))
		if !strings.EqualFold(upgrade, "websocket") {
			ctx.SetStatusCode(fasthttp.StatusUpgradeRequired)
			ctx.SetBodyString(`{"error":"upgrade_required","message":"WebSocket upgrade required"}`)
			return
		}

		clientID := uuid.New().String()
		h := a.hub
		logger := a.logger

		err := upgrader.Upgrade(ctx, func(conn *websocket.Conn) {
			client := hub.NewClient(clientID, &fasthttpConn{conn}, h)
			h.Register(client)
			go client.WritePump()
			client.ReadPump()
		})
		if err != nil {
			logger.Error().Err(err).Msg("websocket upgrade failed")
		}
	}
}

// fasthttpConn wraps fasthttp/websocket.Conn to satisfy types.Conn.
type fasthttpConn struct {
	conn *websocket.Conn
}

func (f *fasthttpConn) ReadMessage() ([]byte, error) {
	_, data, err := f.conn.ReadMessage()
	return data, err
}

func (f *fasthttpConn) WriteMessage(data []byte) error {
	return f.conn.WriteMessage(websocket.TextMessage, data)
}

func (f *fasthttpConn) Close() error { return f.conn.Close() }
