package router

import (
	"net/http"

	"chatforge-backend/internal/api"
	"chatforge-backend/internal/api/endpoints"
	"chatforge-backend/internal/api/middleware"
	"chatforge-backend/internal/service/outreach"
)

func OutreachPublicRoutes(prefix string, service *outreach.Service) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		outreachEndpoints := endpoints.NewOutreachEndpoints(service)
		mux.HandleFunc(prefix+"/submissions", s.MakeHTTPHandleFunc(outreachEndpoints.Submit))
		mux.HandleFunc(prefix+"/newsletter/subscribe", s.MakeHTTPHandleFunc(outreachEndpoints.Subscribe))
	}
}

func OutreachAdminRoutes(prefix string, service *outreach.Service) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		outreachEndpoints := endpoints.NewOutreachEndpoints(service)
		admin := middleware.ValidateAdminSession()
		mux.HandleFunc(prefix+"/submissions", s.MakeHTTPHandleFunc(outreachEndpoints.Submissions, admin))
		mux.HandleFunc(prefix+"/submissions/{submissionId}", s.MakeHTTPHandleFunc(outreachEndpoints.Submission, admin))
		mux.HandleFunc(prefix+"/subscribers", s.MakeHTTPHandleFunc(outreachEndpoints.Subscribers, admin))
		mux.HandleFunc(prefix+"/newsletter/send", s.MakeHTTPHandleFunc(outreachEndpoints.SendNewsletter, admin))
		mux.HandleFunc(prefix+"/email/bulk", s.MakeHTTPHandleFunc(outreachEndpoints.SendBulkEmail, admin))
	}
}
