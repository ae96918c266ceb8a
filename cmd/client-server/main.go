package main

import (
	"chatforge-backend/internal/api"
	"chatforge-backend/internal/api/middleware"
	"chatforge-backend/internal/api/router"
	"chatforge-backend/internal/bootstrap"

	"go.uber.org/zap"
)

const prefix = "/api/client/v1"

func main() {
	ctx, stop := bootstrap.SignalContext()
	defer stop()

	rt, err := bootstrap.Start(ctx, "client-server")
	if err != nil {
		bootstrap.Fatal("startup failed", err)
	}
	defer rt.Close()

	server := api.NewAPIServer(
		":81",
		rt.Queue,
		rt.DB,
		middleware.CORS(middleware.DefaultCORSConfig(rt.Config.CORSOrigins)),
		router.UtilsRoutes(prefix),
		router.AuthRoutes(prefix, rt.Mailer()),
		router.ChatbotRoutes(prefix, rt.Config.AppURL),
	)

	if err := server.Run(ctx); err != nil {
		rt.Log.Error("client server stopped", zap.Error(err))
	}
}
