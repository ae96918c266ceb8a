package router

import (
	"net/http"

	"chatforge-backend/internal/api"
	"chatforge-backend/internal/api/endpoints"
	"chatforge-backend/internal/api/middleware"
	"chatforge-backend/internal/notification"
)

func AuthRoutes(prefix string, mailer notification.Mailer) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		authEndpoints := endpoints.NewAuthEndpoints(s.Database(), mailer)
		mux.HandleFunc(prefix+"/auth/signup", s.MakeHTTPHandleFunc(authEndpoints.Signup))
		mux.HandleFunc(prefix+"/auth/login", s.MakeHTTPHandleFunc(authEndpoints.Login))
		mux.HandleFunc(prefix+"/auth/otp/verify", s.MakeHTTPHandleFunc(authEndpoints.VerifyOTP))
		mux.HandleFunc(prefix+"/auth/otp/resend", s.MakeHTTPHandleFunc(authEndpoints.ResendOTP))
		mux.HandleFunc(prefix+"/auth/refresh", s.MakeHTTPHandleFunc(authEndpoints.Refresh))
		mux.HandleFunc(prefix+"/auth/logout", s.MakeHTTPHandleFunc(authEndpoints.Logout))
		mux.HandleFunc(prefix+"/me", s.MakeHTTPHandleFunc(authEndpoints.Me, middleware.ValidateTenantJWT))
	}
}
