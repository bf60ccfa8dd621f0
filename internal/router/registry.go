package router

import "github.com/gin-gonic/gin"

// APIPrefix is the group every module registers under.
const APIPrefix = "/api"

// Module is a feature that adds its routes to the API group.
type Module interface {
	Register(rg *gin.RouterGroup)
}

// Registry collects the shared middleware and feature modules mounted on
// the API group.
type Registry struct {
	Engine      *gin.Engine
	API         *gin.RouterGroup
	middlewares []gin.HandlerFunc
	modules     []Module
	registered  bool
}

func NewRegistry(engine *gin.Engine) *Registry {
	return &Registry{Engine: engine, API: engine.Group(APIPrefix)}
}

func (r *Registry) Use(mw ...gin.HandlerFunc) {
	r.middlewares = append(r.middlewares, mw...)
}

// Add queues mod; nil modules are skipped.
func (r *Registry) Add(mod Module) {
	if mod == nil {
		return
	}
	r.modules = append(r.modules, mod)
}

// RegisterAll applies the middleware then lets each module add its routes.
// Only the first call has an effect, gin panics on duplicate routes.
func (r *Registry) RegisterAll() {
	if r.registered {
		return
	}
	r.registered = true
	if len(r.middlewares) > 0 {
		r.API.Use(r.middlewares...)
	}
	for _, m := range r.modules {
		m.Register(r.API)
	}
}
