package http

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/tgvault/backend/internal/config"
	"github.com/tgvault/backend/internal/core/services"
	"github.com/tgvault/backend/internal/infrastructure/db"
	"github.com/tgvault/backend/internal/infrastructure/logger"
	"github.com/tgvault/backend/internal/infrastructure/remote"
	"github.com/tgvault/backend/internal/infrastructure/telegram"
	"github.com/tgvault/backend/internal/transport/http/handlers"
	httpmw "github.com/tgvault/backend/internal/transport/http/middleware"
	"github.com/tgvault/backend/pkg/utils/crypto"
)

type RouterConfig struct {
	DB     *gorm.DB
	Logger *logger.Logger
	Config *config.Config
}

// SetupRoutes wires repositories, services and handlers onto the app and
// returns the backup scheduler so main can start and stop it.
func SetupRoutes(app *fiber.App, cfg RouterConfig) (*services.BackupService, error) {
	cipher, err := crypto.NewCipher(cfg.Config.Security.EncryptionKey)
	if err != nil {
		return nil, err
	}

	// Repositories
	accountRepo := db.NewAccountRepository(cfg.DB, cfg.Logger)
	chatRepo := db.NewChatRepository(cfg.DB, cfg.Logger)
	messageRepo := db.NewMessageRepository(cfg.DB, cfg.Logger)
	taskRepo := db.NewSyncTaskRepository(cfg.DB, cfg.Logger)
	mediaHashRepo := db.NewMediaHashRepository(cfg.DB, cfg.Logger)
	alertRepo := db.NewAlertRepository(cfg.DB, cfg.Logger)
	backupRepo := db.NewBackupRepository(cfg.DB, cfg.Logger)
	auditRepo := db.NewAuditRepository(cfg.DB, cfg.Logger)
	analyticsRepo := db.NewAnalyticsCacheRepository(cfg.DB, cfg.Logger)

	gateway := telegram.NewBridgeClient(cfg.Config.Telegram.BridgeURL, cfg.Config.Telegram.Timeout, cfg.Logger)

	// Services
	auditService := services.NewAuditService(auditRepo, cfg.Logger)
	alertService := services.NewAlertService(services.AlertServiceConfig{
		Alerts: alertRepo,
		Logger: cfg.Logger,
	})

	sessionService := services.NewSessionService(services.SessionServiceConfig{
		Accounts: accountRepo,
		Gateway:  gateway,
		Cipher:   cipher,
		Logger:   cfg.Logger,
	})

	syncService := services.NewSyncService(services.SyncServiceConfig{
		Accounts:        accountRepo,
		Chats:           chatRepo,
		Messages:        messageRepo,
		Tasks:           taskRepo,
		Gateway:         gateway,
		Alerts:          alertService,
		Cipher:          cipher,
		Logger:          cfg.Logger,
		MessagePageSize: cfg.Config.Sync.MessagePageSize,
		MaxChats:        cfg.Config.Sync.MaxChats,
		LogTailLines:    cfg.Config.Sync.LogTailLines,
	})

	mediaService := services.NewMediaService(services.MediaServiceConfig{
		Messages:   messageRepo,
		Chats:      chatRepo,
		Accounts:   accountRepo,
		Hashes:     mediaHashRepo,
		Gateway:    gateway,
		Cipher:     cipher,
		Logger:     cfg.Logger,
		StorageDir: cfg.Config.Media.StorageDir,
	})

	exportService := services.NewExportService(services.ExportServiceConfig{
		Accounts: accountRepo,
		Chats:    chatRepo,
		Messages: messageRepo,
		Logger:   cfg.Logger,
	})

	analyticsService := services.NewAnalyticsService(services.AnalyticsServiceConfig{
		Chats:    chatRepo,
		Messages: messageRepo,
		Cache:    analyticsRepo,
		Logger:   cfg.Logger,
	})

	var uploader *remote.SFTPUploader
	if cfg.Config.Backup.UploadEnabled() {
		uploader = remote.NewSFTPUploader(remote.SFTPConfig{
			Host:       cfg.Config.Backup.SFTPHost,
			Port:       cfg.Config.Backup.SFTPPort,
			User:       cfg.Config.Backup.SFTPUser,
			Password:   cfg.Config.Backup.SFTPPasswd,
			PrivateKey: cfg.Config.Backup.SFTPKey,
		})
	}
	backupService := services.NewBackupService(services.BackupServiceConfig{
		Backups:   backupRepo,
		Exporter:  exportService,
		Uploader:  uploader,
		Logger:    cfg.Logger,
		Dir:       cfg.Config.Backup.Dir,
		RemoteDir: cfg.Config.Backup.SFTPDir,
	})

	// Handlers
	accountHandler := handlers.NewAccountHandler(sessionService, auditService, cfg.Logger)
	syncHandler := handlers.NewSyncHandler(syncService, auditService, cfg.Logger)
	streamHandler := handlers.NewSyncStreamHandler(syncService, cfg.Logger)
	mediaHandler := handlers.NewMediaHandler(mediaService, auditService, cfg.Logger)
	exportHandler := handlers.NewExportHandler(exportService, auditService, cfg.Logger)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService, cfg.Logger)
	alertHandler := handlers.NewAlertHandler(alertService, auditService, cfg.Logger)
	backupHandler := handlers.NewBackupHandler(backupService, auditService, cfg.Logger)
	auditHandler := handlers.NewAuditHandler(auditService, cfg.Logger)

	// Websocket upgrade gate
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws/sync/:id", websocket.New(streamHandler.Handle))

	api := app.Group("/api/v1", httpmw.APIAuth(cfg.Config))

	// Account routes
	accounts := api.Group("/accounts")
	accounts.Post("/connect", accountHandler.Connect)
	accounts.Post("/resend-code", accountHandler.ResendCode)
	accounts.Post("/verify-code", accountHandler.VerifyCode)
	accounts.Post("/verify-2fa", accountHandler.Verify2FA)
	accounts.Get("/", accountHandler.ListAccounts)
	accounts.Post("/:id/current", accountHandler.SetCurrent)
	accounts.Post("/:id/disconnect", accountHandler.Disconnect)
	accounts.Delete("/:id", accountHandler.DeleteAccount)

	// Sync routes
	api.Post("/sync", syncHandler.StartSync)
	api.Get("/sync/:id/status", syncHandler.GetStatus)
	api.Post("/sync/:id/cancel", httpmw.RequireAjax(), syncHandler.Cancel)

	// Media routes
	api.Get("/media/:messageId/trigger-download", mediaHandler.TriggerDownload)

	// Export routes
	api.Get("/export/:format", exportHandler.Export)

	// Analytics routes
	api.Get("/analytics/summary", analyticsHandler.Summary)

	// Alert routes
	alerts := api.Group("/alerts")
	alerts.Post("/", alertHandler.Create)
	alerts.Get("/", alertHandler.List)
	alerts.Post("/:id/toggle", alertHandler.Toggle)
	alerts.Delete("/:id", alertHandler.Delete)

	// Backup routes
	backups := api.Group("/backups")
	backups.Post("/", backupHandler.Create)
	backups.Get("/", backupHandler.List)
	backups.Post("/:id/run", backupHandler.RunNow)
	backups.Delete("/:id", backupHandler.Delete)

	// Audit routes
	api.Get("/audit", auditHandler.List)

	return backupService, nil
}
