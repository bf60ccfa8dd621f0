package container

import (
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-private-messages/config"
	"github.com/oksasatya/go-ddd-private-messages/internal/signals"
	"github.com/oksasatya/go-ddd-private-messages/pkg/helpers"
	"github.com/oksasatya/go-ddd-private-messages/pkg/mailer"
	"github.com/oksasatya/go-ddd-private-messages/pkg/storage"
	"github.com/oksasatya/go-ddd-private-messages/pkg/users"
)

// app-level container to share constructed components across packages
// Router can auto-wire modules from these singletons.

var (
	cfg         *config.Config
	logger      *logrus.Logger
	pgPool      *pgxpool.Pool
	redisClient *redis.Client

	jwtManager *helpers.JWTManager

	mailSender mailer.Sender
	esClient   *elasticsearch.Client

	storageBackend storage.Backend
	dispatcher     = signals.NewDispatcher()
	userModel      = users.Legacy
)

func SetConfig(c *config.Config)   { cfg = c }
func GetConfig() *config.Config    { return cfg }
func SetLogger(l *logrus.Logger)   { logger = l }
func GetLogger() *logrus.Logger    { return logger }
func SetPGPool(p *pgxpool.Pool)    { pgPool = p }
func GetPGPool() *pgxpool.Pool     { return pgPool }
func SetRedis(r *redis.Client)     { redisClient = r }
func GetRedis() *redis.Client      { return redisClient }
func SetJWT(m *helpers.JWTManager) { jwtManager = m }
func GetJWT() *helpers.JWTManager  { return jwtManager }

func SetMailSender(s mailer.Sender) { mailSender = s }
func SetES(c *elasticsearch.Client) { esClient = c }
func GetES() *elasticsearch.Client  { return esClient }

// GetMailSender never returns nil.
func GetMailSender() mailer.Sender {
	if mailSender == nil {
		return mailer.NopSender{}
	}
	return mailSender
}

// SetStorage sets the attachment backend; nil disables attachments.
func SetStorage(b storage.Backend) { storageBackend = b }
func GetStorage() storage.Backend  { return storageBackend }

func GetSignals() *signals.Dispatcher { return dispatcher }

func SetUserModel(m users.Model) { userModel = m }
func GetUserModel() users.Model  { return userModel }
