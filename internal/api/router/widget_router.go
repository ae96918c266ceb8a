package router

import (
	"net/http"

	"chatforge-backend/internal/api"
	"chatforge-backend/internal/api/endpoints"
)

// WidgetRoutes registers the lookups the embedded widget performs by API key.
func WidgetRoutes(prefix, baseURL string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		chatbotEndpoints := endpoints.NewChatbotEndpoints(s.Database(), baseURL)
		mux.HandleFunc(prefix+"/chat/config/{apiKey}", s.MakeHTTPHandleFunc(chatbotEndpoints.PublicConfig))
		mux.HandleFunc(prefix+"/embed/{apiKey}", s.MakeHTTPHandleFunc(chatbotEndpoints.PublicEmbed))
	}
}
