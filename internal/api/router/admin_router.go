package router

import (
	"net/http"

	"chatforge-backend/internal/api"
	"chatforge-backend/internal/api/endpoints"
	"chatforge-backend/internal/api/middleware"
	adminsvc "chatforge-backend/internal/service/admin"
)

func AdminRoutes(prefix string, service *adminsvc.Service, secureCookie bool) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		adminEndpoints := endpoints.NewAdminEndpoints(service, secureCookie)
		admin := middleware.ValidateAdminSession()

		mux.HandleFunc(prefix+"/access", s.MakeHTTPHandleFunc(adminEndpoints.Access))
		mux.HandleFunc(prefix+"/users", s.MakeHTTPHandleFunc(adminEndpoints.Users, admin))
		mux.HandleFunc(prefix+"/users/{tenantId}", s.MakeHTTPHandleFunc(adminEndpoints.User, admin))
		mux.HandleFunc(prefix+"/users/{tenantId}/status", s.MakeHTTPHandleFunc(adminEndpoints.UserStatus, admin))
		mux.HandleFunc(prefix+"/users/{tenantId}/plan", s.MakeHTTPHandleFunc(adminEndpoints.UserPlan, admin))
		mux.HandleFunc(prefix+"/chatbots/{chatbotId}", s.MakeHTTPHandleFunc(adminEndpoints.Chatbot, admin))
		mux.HandleFunc(prefix+"/chatbots/{chatbotId}/regenerate-key", s.MakeHTTPHandleFunc(adminEndpoints.RegenerateKey, admin))
		mux.HandleFunc(prefix+"/newsletter/generate", s.MakeHTTPHandleFunc(adminEndpoints.GenerateNewsletter, admin))
		mux.HandleFunc(prefix+"/email/direct", s.MakeHTTPHandleFunc(adminEndpoints.DirectEmail, admin))
		mux.HandleFunc(prefix+"/email/generate", s.MakeHTTPHandleFunc(adminEndpoints.GenerateEmail, admin))
		mux.HandleFunc(prefix+"/stats", s.MakeHTTPHandleFunc(adminEndpoints.Stats, admin))
	}
}
