package router

import (
	"net/http"

	"chatforge-backend/internal/api"
	"chatforge-backend/internal/api/endpoints"
	"chatforge-backend/internal/api/middleware"
)

// ChatbotRoutes registers the dashboard's chatbot management.
func ChatbotRoutes(prefix, baseURL string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		chatbotEndpoints := endpoints.NewChatbotEndpoints(s.Database(), baseURL)
		mux.HandleFunc(prefix+"/chatbots", s.MakeHTTPHandleFunc(chatbotEndpoints.Chatbots, middleware.ValidateTenantJWT))
		mux.HandleFunc(prefix+"/chatbots/{chatbotId}", s.MakeHTTPHandleFunc(chatbotEndpoints.Chatbot, middleware.ValidateTenantJWT))
		mux.HandleFunc(prefix+"/chatbots/{chatbotId}/embed", s.MakeHTTPHandleFunc(chatbotEndpoints.Embed, middleware.ValidateTenantJWT))
	}
}
