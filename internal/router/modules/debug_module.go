package modules

import (
	"expvar"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-ddd-private-messages/internal/container"
	"github.com/oksasatya/go-ddd-private-messages/internal/interface/middleware"
)

type DebugModule struct{}

func NewDebugModule() *DebugModule { return &DebugModule{} }

// Register exposes expvar, including the notification counters. Private
// networks skip the per-IP limit.
func (m *DebugModule) Register(rg *gin.RouterGroup) {
	rl := middleware.RateLimit(container.GetRedis(), middleware.DebugLimit)
	rg.GET("/debug/vars", rl, gin.WrapH(expvar.Handler()))
}
