package main

import (
	"chatforge-backend/internal/api"
	"chatforge-backend/internal/api/middleware"
	"chatforge-backend/internal/api/router"
	"chatforge-backend/internal/bootstrap"
	"chatforge-backend/internal/llm"
	"chatforge-backend/internal/queue"
	adminsvc "chatforge-backend/internal/service/admin"
	chatsvc "chatforge-backend/internal/service/chat"
	"chatforge-backend/internal/service/outreach"

	"go.uber.org/zap"
)

const prefix = "/api/admin/v1"

func main() {
	ctx, stop := bootstrap.SignalContext()
	defer stop()

	rt, err := bootstrap.Start(ctx, "admin-server")
	if err != nil {
		bootstrap.Fatal("startup failed", err)
	}
	defer rt.Close()

	cfg := rt.Config
	if cfg.Admin.AccessKey == "" && cfg.Admin.TOTPSecret == "" {
		rt.Log.Warn("no admin access key configured, every login will be rejected")
	}

	mailer := rt.Mailer()
	writer := chatsvc.New(llm.NewClient(llm.Config{
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		BaseURL: cfg.LLM.BaseURL,
		Timeout: cfg.LLM.Timeout,
	}))

	// Bulk mail runs on its own pool; a request handler already holds a
	// worker of rt.Queue while it waits for the fan-out.
	mailQueue := queue.NewRequestQueueManager(cfg.QueueSize, cfg.QueueWorkers)
	defer mailQueue.Shutdown()

	admin := adminsvc.New(rt.DB, mailer, writer, adminsvc.Config{
		AccessKey:  cfg.Admin.AccessKey,
		TOTPSecret: cfg.Admin.TOTPSecret,
	})

	server := api.NewAPIServer(
		":84",
		rt.Queue,
		rt.DB,
		middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins)),
		router.UtilsRoutes(prefix),
		router.AdminRoutes(prefix, admin, cfg.Environment == "production"),
		router.OutreachAdminRoutes(prefix, outreach.New(rt.DB, mailer, mailQueue)),
	)

	if err := server.Run(ctx); err != nil {
		rt.Log.Error("admin server stopped", zap.Error(err))
	}
}
