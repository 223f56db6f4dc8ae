// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"time"

	attachmentsfeature "github.com/clarityhealth/claritymdt/internal/app/features/attachments"
	authgooglefeature "github.com/clarityhealth/claritymdt/internal/app/features/authgoogle"
	casesfeature "github.com/clarityhealth/claritymdt/internal/app/features/cases"
	departmentsfeature "github.com/clarityhealth/claritymdt/internal/app/features/departments"
	healthfeature "github.com/clarityhealth/claritymdt/internal/app/features/health"
	loginfeature "github.com/clarityhealth/claritymdt/internal/app/features/login"
	logoutfeature "github.com/clarityhealth/claritymdt/internal/app/features/logout"
	meetingsfeature "github.com/clarityhealth/claritymdt/internal/app/features/meetings"
	notificationsfeature "github.com/clarityhealth/claritymdt/internal/app/features/notifications"
	opinionsfeature "github.com/clarityhealth/claritymdt/internal/app/features/opinions"
	reportsfeature "github.com/clarityhealth/claritymdt/internal/app/features/reports"
	telegramlinkfeature "github.com/clarityhealth/claritymdt/internal/app/features/telegramlink"
	userinfofeature "github.com/clarityhealth/claritymdt/internal/app/features/userinfo"
	usersfeature "github.com/clarityhealth/claritymdt/internal/app/features/users"
	attachstore "github.com/clarityhealth/claritymdt/internal/app/store/attachments"
	casestore "github.com/clarityhealth/claritymdt/internal/app/store/cases"
	deptstore "github.com/clarityhealth/claritymdt/internal/app/store/departments"
	meetingstore "github.com/clarityhealth/claritymdt/internal/app/store/meetings"
	notifstore "github.com/clarityhealth/claritymdt/internal/app/store/notifications"
	opinionstore "github.com/clarityhealth/claritymdt/internal/app/store/opinions"
	reportstore "github.com/clarityhealth/claritymdt/internal/app/store/reports"
	userstore "github.com/clarityhealth/claritymdt/internal/app/store/users"
	"github.com/clarityhealth/claritymdt/internal/app/store/verifycodes"
	"github.com/clarityhealth/claritymdt/internal/app/system/auth"
	"github.com/clarityhealth/claritymdt/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler for the JSON API.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed, so the shared services (storage, audit,
// telegram) already exist. Every feature gets its own subrouter; session
// loading is global so auth.CurrentUser works everywhere, and the webhook
// is mounted outside the /api tree because the bot has no session.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Fresh user data on each request so role changes and disabled
	// accounts take effect immediately.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(deps.MongoDatabase))

	db := deps.MongoDatabase
	users := userstore.New(db)
	codes := verifycodes.New(db, appCfg.LinkCodeExpiry)
	departments := deptstore.New(db)
	cases := casestore.New(db)
	opinions := opinionstore.New(db)
	reports := reportstore.New(db)
	meetings := meetingstore.New(db)
	attachments := attachstore.New(db)
	notifications := notifstore.New(db)

	r := chi.NewRouter()
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Authentication
	loginHandler := loginfeature.NewHandler(users, sessionMgr, services.audit, ratelimit.NewLoginLimiter(), logger)
	r.Mount("/login", loginfeature.Routes(loginHandler))

	logoutHandler := logoutfeature.NewHandler(sessionMgr, services.audit, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler))

	if appCfg.GoogleClientID != "" {
		googleHandler := authgooglefeature.NewHandler(users, sessionMgr, services.audit,
			appCfg.GoogleClientID, appCfg.GoogleClientSecret, appCfg.BaseURL, logger)
		r.Mount("/auth/google", authgooglefeature.Routes(googleHandler))
	}

	// Session identity for the front end
	r.Mount("/api/user", userinfofeature.Routes(userinfofeature.NewHandler()))

	// Admin: user and department management
	usersHandler := usersfeature.NewHandler(users, codes, services.audit, logger)
	r.Mount("/api/users", usersfeature.Routes(usersHandler))

	departmentsHandler := departmentsfeature.NewHandler(departments, services.audit, logger)
	r.Mount("/api/departments", departmentsfeature.Routes(departmentsHandler))

	// Clinical: cases and their nested resources
	casesHandler := casesfeature.NewHandler(cases, opinions, reports, attachments, services.notifier, services.audit, logger)
	opinionsHandler := opinionsfeature.NewHandler(cases, opinions, services.notifier, services.audit, logger)
	reportsHandler := reportsfeature.NewHandler(cases, reports, services.notifier, services.audit, logger)
	attachmentsHandler := attachmentsfeature.NewHandler(cases, attachments, services.storage, services.converter, services.audit, logger)
	r.Route("/api/cases", func(api chi.Router) {
		api.Mount("/{id}/opinions", opinionsfeature.Routes(opinionsHandler))
		api.Mount("/{id}/report", reportsfeature.Routes(reportsHandler))
		api.Mount("/{id}/attachments", attachmentsfeature.Routes(attachmentsHandler))
		api.Mount("/", casesfeature.Routes(casesHandler))
	})

	meetingsHandler := meetingsfeature.NewHandler(meetings, services.notifier, services.audit, logger)
	r.Mount("/api/meetings", meetingsfeature.Routes(meetingsHandler))

	notificationsHandler := notificationsfeature.NewHandler(notifications, logger)
	r.Mount("/api/notifications", notificationsfeature.Routes(notificationsHandler))

	// Telegram account linking and the bot webhook
	botUsername := ""
	if services.bot != nil {
		botUsername = services.bot.Username()
	}
	codeLimiter := ratelimit.New(5, 10*time.Minute)
	linkHandler := telegramlinkfeature.NewHandler(users, codes, services.linking, services.messages,
		appCfg.TelegramWebhookSecret, botUsername, codeLimiter, services.audit, logger)
	r.Mount("/api/telegram", telegramlinkfeature.Routes(linkHandler))
	if !appCfg.TelegramPolling {
		r.Mount("/telegram/webhook", telegramlinkfeature.WebhookRoutes(linkHandler))
	}

	return r, nil
}
