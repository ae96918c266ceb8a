package main

import (
	"chatforge-backend/internal/api"
	"chatforge-backend/internal/api/middleware"
	"chatforge-backend/internal/api/router"
	"chatforge-backend/internal/bootstrap"
	"chatforge-backend/internal/llm"
	chatsvc "chatforge-backend/internal/service/chat"
	"chatforge-backend/internal/service/gate"
	"chatforge-backend/internal/service/outreach"
	"chatforge-backend/internal/websocket"

	"go.uber.org/zap"
)

const prefix = "/api/public/v1"

func main() {
	ctx, stop := bootstrap.SignalContext()
	defer stop()

	rt, err := bootstrap.Start(ctx, "public-server")
	if err != nil {
		bootstrap.Fatal("startup failed", err)
	}
	defer rt.Close()

	cfg := rt.Config
	if cfg.LLM.APIKey == "" {
		rt.Log.Warn("GEMINI_API_KEY not set, chat replies will fail")
	}

	gateCfg := gate.Config{AppURL: cfg.AppURL}
	if rt.Usage != nil {
		gateCfg.Publisher = websocket.NewPublisher(rt.Usage)
	}

	chat := chatsvc.New(llm.NewClient(llm.Config{
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		BaseURL: cfg.LLM.BaseURL,
		Timeout: cfg.LLM.Timeout,
	}))

	server := api.NewAPIServer(
		":82",
		rt.Queue,
		rt.DB,
		middleware.PublicCORS(),
		router.UtilsRoutes(prefix),
		router.WidgetRoutes(prefix, cfg.AppURL),
		router.ChatRoutes(prefix, gate.New(rt.DB, gateCfg), chat, cfg.ChatRateLimit),
		router.OutreachPublicRoutes(prefix, outreach.New(rt.DB, rt.Mailer(), nil)),
	)

	if err := server.Run(ctx); err != nil {
		rt.Log.Error("public server stopped", zap.Error(err))
	}
}
