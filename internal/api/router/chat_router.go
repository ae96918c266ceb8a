package router

import (
	"net/http"
	"time"

	"chatforge-backend/internal/api"
	"chatforge-backend/internal/api/endpoints"
	"chatforge-backend/internal/api/middleware"
	chatsvc "chatforge-backend/internal/service/chat"
)

// ChatRoutes registers the embed chat endpoint, limited to ratePerMinute
// requests per client IP, and the marketing demo.
func ChatRoutes(prefix string, admitter endpoints.Admitter, chat *chatsvc.Service, ratePerMinute int) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		chatEndpoints := endpoints.NewChatEndpoints(admitter, chat)
		limit := middleware.RateLimit(ratePerMinute, time.Minute)

		mux.HandleFunc(prefix+"/chat", s.MakeStreamHandleFunc(chatEndpoints.Chat, limit))
		mux.HandleFunc(prefix+"/demo/chat", s.MakeHTTPHandleFunc(chatEndpoints.Demo, limit))
	}
}
