package main

import (
	"fmt"

	"chatforge-backend/internal/api"
	"chatforge-backend/internal/api/middleware"
	"chatforge-backend/internal/api/router"
	"chatforge-backend/internal/bootstrap"
	internaljwt "chatforge-backend/internal/jwt"
	"chatforge-backend/internal/websocket"

	"go.uber.org/zap"
)

const prefix = "/api/ws/v1"

func main() {
	if err := run(); err != nil {
		bootstrap.Fatal("ws server failed", err)
	}
}

func run() error {
	ctx, stop := bootstrap.SignalContext()
	defer stop()

	rt, err := bootstrap.Start(ctx, "ws-server")
	if err != nil {
		return fmt.Errorf("startup: %w", err)
	}
	defer rt.Close()

	if err := rt.RequireUsage(); err != nil {
		return err
	}

	hub := websocket.NewHub()
	go hub.Run(ctx)

	handler := websocket.NewHandler(hub, func(token string) (string, error) {
		user, err := internaljwt.ParseUser(token, internaljwt.RoleTenant)
		if err != nil {
			return "", err
		}
		return user.ID, nil
	})

	go func() {
		if err := handler.Listen(ctx, rt.Usage); err != nil && ctx.Err() == nil {
			rt.Log.Error("usage subscription failed", zap.Error(err))
			stop()
		}
	}()

	server := api.NewAPIServer(
		":83",
		rt.Queue,
		rt.DB,
		middleware.CORS(middleware.DefaultCORSConfig(rt.Config.CORSOrigins)),
		router.UtilsRoutes(prefix),
		router.UsageRoutes(prefix, handler),
	)

	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
