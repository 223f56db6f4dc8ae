// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/clarityhealth/claritymdt/internal/app/store/audit"
	notifstore "github.com/clarityhealth/claritymdt/internal/app/store/notifications"
	userstore "github.com/clarityhealth/claritymdt/internal/app/store/users"
	"github.com/clarityhealth/claritymdt/internal/app/store/verifycodes"
	"github.com/clarityhealth/claritymdt/internal/app/system/auditlog"
	"github.com/clarityhealth/claritymdt/internal/app/system/convert"
	"github.com/clarityhealth/claritymdt/internal/app/system/linking"
	"github.com/clarityhealth/claritymdt/internal/app/system/notify"
	"github.com/clarityhealth/claritymdt/internal/app/system/telegram"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/storage"
	"go.uber.org/zap"
)

// services holds the long-lived components built once at startup and
// shared between BuildHandler and Shutdown. WAFFLE's Startup hook has no
// return slot for app state, so the bootstrap package carries it.
var services struct {
	storage   storage.Store
	converter *convert.Converter
	audit     *auditlog.Logger
	bot       *telegram.Bot
	messages  *telegram.MessageHandler
	listener  *telegram.Listener
	notifier  *notify.Notifier
	linking   *linking.Service
}

// Startup builds file storage, the audit logger, and the Telegram side
// channel after DB connections and schema setup are complete, but before
// the HTTP handler is built. The long-poll listener starts here when
// polling mode is on.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	store, err := buildStorage(ctx, appCfg)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	services.storage = store
	services.converter = convert.New(store, appCfg.SofficePath, logger)

	services.audit = auditlog.New(audit.New(deps.MongoDatabase), logger, auditlog.Config{
		Auth:     appCfg.AuditLogAuth,
		Admin:    appCfg.AuditLogAdmin,
		Clinical: appCfg.AuditLogClinical,
		Telegram: appCfg.AuditLogTelegram,
	})

	users := userstore.New(deps.MongoDatabase)
	codes := verifycodes.New(deps.MongoDatabase, appCfg.LinkCodeExpiry)

	// A typed nil *telegram.Bot inside an interface would pass nil checks
	// downstream, so the interface values stay nil unless a bot exists.
	var forwarder notify.Sender
	var confirmer linking.Confirmer
	var replier telegram.Sender
	if appCfg.TelegramBotToken != "" {
		bot, err := telegram.NewBot(appCfg.TelegramBotToken, logger)
		if err != nil {
			return fmt.Errorf("init telegram bot: %w", err)
		}
		services.bot = bot
		forwarder, confirmer, replier = bot, bot, bot
	} else {
		logger.Warn("telegram bot token not set; notifications stay in-app only")
	}

	services.notifier = notify.New(notifstore.New(deps.MongoDatabase), users, forwarder, logger)
	services.linking = linking.New(codes, users, confirmer, services.audit, logger)
	services.messages = telegram.NewMessageHandler(replier, services.linking, logger)

	if services.bot != nil && appCfg.TelegramPolling {
		services.listener = telegram.NewListener(services.bot, services.messages, logger)
		services.listener.Start()
	}

	return nil
}

func buildStorage(ctx context.Context, appCfg AppConfig) (storage.Store, error) {
	switch appCfg.StorageType {
	case "local":
		return storage.NewLocal(storage.LocalConfig{
			BasePath: appCfg.StorageLocalPath,
			BaseURL:  appCfg.StorageLocalURL,
		})
	case "s3":
		return storage.NewS3(ctx, storage.S3Config{
			Region: appCfg.StorageS3Region,
			Bucket: appCfg.StorageS3Bucket,
			Prefix: appCfg.StorageS3Prefix,
		})
	default:
		return nil, fmt.Errorf("unknown storage_type %q", appCfg.StorageType)
	}
}
