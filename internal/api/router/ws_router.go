package router

import (
	"net/http"

	"chatforge-backend/internal/api"
	"chatforge-backend/internal/api/middleware"
	"chatforge-backend/internal/websocket"
)

// UsageRoutes registers the live usage feed. Upgrades run on the connection
// goroutine so open sockets never hold a pool worker. The room listing uses
// the admin panel session cookie.
func UsageRoutes(prefix string, handler *websocket.Handler) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		mux.HandleFunc(prefix+"/usage", s.MakeStreamHandleFunc(serve(handler.JoinUsage)))
		mux.HandleFunc(prefix+"/rooms", s.MakeHTTPHandleFunc(serve(handler.GetRooms), middleware.ValidateAdminSession()))
	}
}

func serve(h http.HandlerFunc) func(http.ResponseWriter, *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		h(w, r)
		return nil
	}
}
