package router

import (
	"github.com/oksasatya/go-ddd-private-messages/internal/application"
	"github.com/oksasatya/go-ddd-private-messages/internal/container"
	pginfra "github.com/oksasatya/go-ddd-private-messages/internal/infrastructure/postgres"
	handlers "github.com/oksasatya/go-ddd-private-messages/internal/interface/http"
	"github.com/oksasatya/go-ddd-private-messages/internal/notification"
	"github.com/oksasatya/go-ddd-private-messages/internal/router/modules"
	"github.com/oksasatya/go-ddd-private-messages/pkg/messaging"
)

func buildUserHandler() *handlers.UserHandler {
	cfg := container.GetConfig()
	repo := pginfra.NewUserRepository(container.GetPGPool(), container.GetUserModel())
	svc := application.NewUserService(repo, container.GetJWT(), container.GetRedis(), container.GetLogger())
	return handlers.NewUserHandler(svc, container.GetLogger(), cfg.CookieDomain, cfg.CookieSecure)
}

// buildMessageHandler wires the message service and connects the new
// message notification to the post-save signal.
func buildMessageHandler() *handlers.MessageHandler {
	cfg := container.GetConfig()
	pool := container.GetPGPool()
	logger := container.GetLogger()

	sites := application.NewSiteService(pginfra.NewSiteRepository(pool), container.GetRedis(), logger, cfg.SiteID, cfg.SiteDomain, cfg.SiteCacheTTL)
	notifier := notification.New(container.GetMailSender(), sites, cfg, logger)
	container.GetSignals().Connect(notifier.NewMessageEmail)

	svc := application.NewMessageService(
		pginfra.NewMessageRepository(pool, container.GetUserModel()),
		pginfra.NewUserRepository(pool, container.GetUserModel()),
		container.GetStorage(),
		container.GetSignals(),
		messaging.NewPrinter(cfg.LanguageCode),
		container.GetES(),
		cfg.ESMessagesIndex,
		logger,
	)
	svc.PageLength = cfg.MessagesPageLength
	svc.MaxAttachmentBytes = cfg.MaxAttachmentBytes
	return handlers.NewMessageHandler(svc, logger)
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	r.Add(modules.NewUserModule(buildUserHandler(), container.GetJWT()))
	r.Add(modules.NewMessageModule(buildMessageHandler(), container.GetJWT()))
	if container.GetConfig().DebugMetricsEnabled {
		r.Add(modules.NewDebugModule())
	}
}
