package modules

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-ddd-private-messages/internal/container"
	"github.com/oksasatya/go-ddd-private-messages/internal/domain/repository"
	handlers "github.com/oksasatya/go-ddd-private-messages/internal/interface/http"
	"github.com/oksasatya/go-ddd-private-messages/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-private-messages/pkg/helpers"
)

// MessageModule wires the mailbox routes under /api/messages. All routes
// require a session.
type MessageModule struct {
	Handler *handlers.MessageHandler
	JWT     *helpers.JWTManager
}

func NewMessageModule(h *handlers.MessageHandler, jwt *helpers.JWTManager) *MessageModule {
	return &MessageModule{Handler: h, JWT: jwt}
}

func (m *MessageModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()
	g := rg.Group("/messages")
	g.Use(
		middleware.Auth(rdb, m.JWT),
		middleware.RateLimit(rdb, middleware.MailboxLimit),
	)
	composeLimiter := middleware.RateLimit(rdb, middleware.ComposeLimit)
	uploadLimiter := middleware.RateLimit(rdb, middleware.UploadLimit)

	g.GET("/inbox", m.Handler.Folder(repository.Inbox))
	g.GET("/outbox", m.Handler.Folder(repository.Outbox))
	g.GET("/trash", m.Handler.Folder(repository.Trash))
	g.GET("/unread", m.Handler.Unread)
	g.GET("/search", m.Handler.Search)
	g.POST("", composeLimiter, m.Handler.Compose)
	g.GET("/:id", m.Handler.View)
	g.GET("/:id/reply", m.Handler.Reply)
	g.POST("/:id/delete", m.Handler.Delete)
	g.POST("/:id/undelete", m.Handler.Undelete)
	g.POST("/:id/attachments", uploadLimiter, m.Handler.Attach)
}
