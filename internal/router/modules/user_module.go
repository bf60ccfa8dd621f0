package modules

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-ddd-private-messages/internal/container"
	handlers "github.com/oksasatya/go-ddd-private-messages/internal/interface/http"
	"github.com/oksasatya/go-ddd-private-messages/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-private-messages/pkg/helpers"
)

// UserModule wires login and profile routes.
// Public: POST /api/login, POST /api/refresh
// Protected: POST /api/logout, GET /api/profile
type UserModule struct {
	Handler *handlers.UserHandler
	JWT     *helpers.JWTManager
}

func NewUserModule(h *handlers.UserHandler, jwt *helpers.JWTManager) *UserModule {
	return &UserModule{Handler: h, JWT: jwt}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()
	rg.POST("/login", middleware.RateLimit(rdb, middleware.LoginLimit), m.Handler.Login)
	rg.POST("/refresh", middleware.RateLimit(rdb, middleware.RefreshLimit), m.Handler.Refresh)

	auth := rg.Group("/")
	auth.Use(middleware.Auth(rdb, m.JWT))
	auth.Use(middleware.RateLimit(rdb, middleware.AccountLimit))
	{
		auth.POST("/logout", m.Handler.Logout)
		auth.GET("/profile", m.Handler.GetProfile)
	}
}
