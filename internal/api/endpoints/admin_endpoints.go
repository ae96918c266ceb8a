package endpoints

import (
	"errors"
	"net/http"
	"time"

	"chatforge-backend/internal/api/middleware"
	"chatforge-backend/internal/dto"
	"chatforge-backend/internal/model"
	adminsvc "chatforge-backend/internal/service/admin"
)

type AdminEndpoints interface {
	Access(http.ResponseWriter, *http.Request) error
	Users(http.ResponseWriter, *http.Request) error
	User(http.ResponseWriter, *http.Request) error
	UserStatus(http.ResponseWriter, *http.Request) error
	UserPlan(http.ResponseWriter, *http.Request) error
	RegenerateKey(http.ResponseWriter, *http.Request) error
	Chatbot(http.ResponseWriter, *http.Request) error
	DirectEmail(http.ResponseWriter, *http.Request) error
	GenerateNewsletter(http.ResponseWriter, *http.Request) error
	GenerateEmail(http.ResponseWriter, *http.Request) error
	Stats(http.ResponseWriter, *http.Request) error
}

type adminEndpoints struct {
	service      *adminsvc.Service
	secureCookie bool
}

// NewAdminEndpoints serves the admin panel. secureCookie marks the session
// cookie Secure and should be set whenever the panel is served over TLS.
func NewAdminEndpoints(service *adminsvc.Service, secureCookie bool) AdminEndpoints {
	return &adminEndpoints{service: service, secureCookie: secureCookie}
}

func (h *adminEndpoints) Access(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet:    h.handleAccessStatus,
		http.MethodPost:   h.handleAccess,
		http.MethodDelete: h.handleLogout,
	})
}

func (h *adminEndpoints) Users(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleListUsers,
	})
}

func (h *adminEndpoints) User(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet:    h.handleUserDetails,
		http.MethodDelete: h.handleDeleteUser,
	})
}

func (h *adminEndpoints) UserStatus(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPatch: h.handleUserStatus,
	})
}

func (h *adminEndpoints) UserPlan(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPatch: h.handleUserPlan,
	})
}

func (h *adminEndpoints) RegenerateKey(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleRegenerateKey,
	})
}

func (h *adminEndpoints) Chatbot(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodDelete: h.handleDeleteChatbot,
	})
}

func (h *adminEndpoints) DirectEmail(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleDirectEmail,
	})
}

func (h *adminEndpoints) GenerateNewsletter(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleGenerateNewsletter,
	})
}

func (h *adminEndpoints) GenerateEmail(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleGenerateEmail,
	})
}

func (h *adminEndpoints) Stats(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleStats,
	})
}

func (h *adminEndpoints) handleAccess(w http.ResponseWriter, r *http.Request) error {
	var req dto.AccessRequest
	if err := decodeJSON(r, &req, "admin access"); err != nil {
		return err
	}

	session, err := h.service.Access(req.Key)
	if err != nil {
		return h.serviceError(err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AdminCookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		MaxAge:   int(adminsvc.SessionTTL / time.Second),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	return WriteJSON(w, http.StatusOK, dto.AccessResponse{
		IsAuthenticated: true,
		ExpiresAt:       session.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func (h *adminEndpoints) handleAccessStatus(w http.ResponseWriter, r *http.Request) error {
	authenticated := false
	if cookie, err := r.Cookie(middleware.AdminCookieName); err == nil {
		authenticated = h.service.Authenticated(cookie.Value)
	}
	return WriteJSON(w, http.StatusOK, dto.AccessResponse{IsAuthenticated: authenticated})
}

func (h *adminEndpoints) handleLogout(w http.ResponseWriter, r *http.Request) error {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AdminCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return WriteJSON(w, http.StatusOK, dto.AccessResponse{IsAuthenticated: false})
}

func (h *adminEndpoints) handleListUsers(w http.ResponseWriter, r *http.Request) error {
	tenants, err := h.service.ListUsers(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		return h.serviceError(err)
	}

	out := make([]dto.AdminUserResponse, 0, len(tenants))
	for _, tenant := range tenants {
		out = append(out, toAdminUserResponse(tenant))
	}
	return WriteJSON(w, http.StatusOK, out)
}

func (h *adminEndpoints) handleUserDetails(w http.ResponseWriter, r *http.Request) error {
	details, err := h.service.UserDetails(r.Context(), r.PathValue("tenantId"))
	if err != nil {
		return h.serviceError(err)
	}

	return WriteJSON(w, http.StatusOK, dto.AdminUserDetailsResponse{
		User:     toAdminUserResponse(details.Tenant),
		Chatbots: toChatbotResponses(details.Chatbots),
	})
}

func (h *adminEndpoints) handleDeleteUser(w http.ResponseWriter, r *http.Request) error {
	if err := h.service.DeleteUser(r.Context(), r.PathValue("tenantId")); err != nil {
		return h.serviceError(err)
	}
	return WriteJSON(w, http.StatusOK, ApiMessageResponse{Message: "User and all associated data deleted successfully."})
}

func (h *adminEndpoints) handleUserStatus(w http.ResponseWriter, r *http.Request) error {
	var req dto.UserStatusRequest
	if err := decodeJSON(r, &req, "user status"); err != nil {
		return err
	}
	if req.IsBanned == nil {
		return &HTTPError{StatusCode: http.StatusBadRequest, Message: "Invalid input.", ErrorLog: errors.New("isBanned missing")}
	}

	tenant, err := h.service.SetBanned(r.Context(), r.PathValue("tenantId"), *req.IsBanned)
	if err != nil {
		return h.serviceError(err)
	}
	return WriteJSON(w, http.StatusOK, toAdminUserResponse(tenant))
}

func (h *adminEndpoints) handleUserPlan(w http.ResponseWriter, r *http.Request) error {
	var req dto.UserPlanRequest
	if err := decodeJSON(r, &req, "user plan"); err != nil {
		return err
	}

	tenant, err := h.service.SetPlan(r.Context(), r.PathValue("tenantId"), adminsvc.PlanParams{
		Plan:         req.Plan,
		MessageLimit: req.MessageLimit,
		ChatbotLimit: req.ChatbotLimit,
	})
	if err != nil {
		return h.serviceError(err)
	}
	return WriteJSON(w, http.StatusOK, toAdminUserResponse(tenant))
}

func (h *adminEndpoints) handleRegenerateKey(w http.ResponseWriter, r *http.Request) error {
	key, err := h.service.RegenerateAPIKey(r.Context(), r.PathValue("chatbotId"))
	if err != nil {
		return h.serviceError(err)
	}
	return WriteJSON(w, http.StatusOK, dto.RegenerateKeyResponse{APIKey: key})
}

func (h *adminEndpoints) handleDeleteChatbot(w http.ResponseWriter, r *http.Request) error {
	if err := h.service.DeleteChatbot(r.Context(), r.PathValue("chatbotId")); err != nil {
		return h.serviceError(err)
	}
	return WriteJSON(w, http.StatusOK, ApiMessageResponse{Message: "Chatbot deleted successfully."})
}

func (h *adminEndpoints) handleDirectEmail(w http.ResponseWriter, r *http.Request) error {
	var req dto.DirectEmailRequest
	if err := decodeJSON(r, &req, "direct email"); err != nil {
		return err
	}

	if err := h.service.SendDirectEmail(r.Context(), req.To, req.Subject, req.Message); err != nil {
		return h.serviceError(err)
	}
	return WriteJSON(w, http.StatusOK, ApiMessageResponse{Message: "Email sent successfully."})
}

func (h *adminEndpoints) handleGenerateNewsletter(w http.ResponseWriter, r *http.Request) error {
	var req dto.GenerateRequest
	if err := decodeJSON(r, &req, "generate newsletter"); err != nil {
		return err
	}

	content, err := h.service.GenerateNewsletter(r.Context(), req.Prompt)
	if err != nil {
		return h.serviceError(err)
	}
	return WriteJSON(w, http.StatusOK, dto.GenerateResponse{Content: content})
}

func (h *adminEndpoints) handleGenerateEmail(w http.ResponseWriter, r *http.Request) error {
	var req dto.GenerateRequest
	if err := decodeJSON(r, &req, "generate email"); err != nil {
		return err
	}

	content, err := h.service.GenerateDirectEmail(r.Context(), req.Prompt, req.UserName)
	if err != nil {
		return h.serviceError(err)
	}
	return WriteJSON(w, http.StatusOK, dto.GenerateResponse{Content: content})
}

func (h *adminEndpoints) handleStats(w http.ResponseWriter, r *http.Request) error {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		return h.serviceError(err)
	}

	chart := make([]dto.SignupDayResponse, 0, len(stats.SignupChart))
	for _, day := range stats.SignupChart {
		chart = append(chart, dto.SignupDayResponse{Date: day.Date, Signups: day.Signups})
	}

	return WriteJSON(w, http.StatusOK, dto.StatsResponse{
		TotalUsers:        stats.TotalUsers,
		NewUsers:          stats.NewUsers,
		TotalSubmissions:  stats.TotalSubmissions,
		RecentSubmissions: toSubmissionResponses(stats.RecentSubmissions),
		SignupChart:       chart,
	})
}

func (h *adminEndpoints) serviceError(err error) error {
	if err == nil {
		return nil
	}

	var svcErr *adminsvc.Error
	if !errors.As(err, &svcErr) {
		return internalError("admin service", err)
	}

	errorLog := errorLog(svcErr.Message, svcErr.Err)

	switch svcErr.Code {
	case adminsvc.ErrorCodeValidation:
		return &HTTPError{StatusCode: http.StatusBadRequest, Message: svcErr.Message, ErrorLog: errorLog}
	case adminsvc.ErrorCodeUnauthorized:
		return &HTTPError{StatusCode: http.StatusUnauthorized, Message: svcErr.Message, ErrorLog: errorLog}
	case adminsvc.ErrorCodeNotFound:
		return &HTTPError{StatusCode: http.StatusNotFound, Message: svcErr.Message, ErrorLog: errorLog}
	case adminsvc.ErrorCodeUpstream:
		return &HTTPError{StatusCode: http.StatusBadGateway, Message: svcErr.Message, ErrorLog: errorLog}
	default:
		return &HTTPError{StatusCode: http.StatusInternalServerError, Message: svcErr.Message, ErrorLog: errorLog}
	}
}

func toAdminUserResponse(t model.TenantItem) dto.AdminUserResponse {
	limits := t.CurrentPlan().Limits()
	return dto.AdminUserResponse{
		TenantID:     t.TenantID,
		Email:        t.Email,
		Name:         t.Name,
		AuthMethod:   t.AuthMethod,
		IsVerified:   t.Verified,
		IsBanned:     t.Banned,
		Plan:         t.CurrentPlan().String(),
		MessagesSent: t.MessagesSent,
		MessageLimit: limits.Messages,
		ChatbotLimit: limits.Chatbots,
		CycleStart:   t.CycleStart,
		CreatedAt:    t.CreatedAt,
	}
}
