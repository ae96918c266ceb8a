package endpoints

import (
	"errors"
	"net/http"
	"time"

	"chatforge-backend/internal/database"
	"chatforge-backend/internal/dto"
	"chatforge-backend/internal/notification"
	authsvc "chatforge-backend/internal/service/auth"
)

type AuthEndpoints interface {
	Signup(http.ResponseWriter, *http.Request) error
	Login(http.ResponseWriter, *http.Request) error
	VerifyOTP(http.ResponseWriter, *http.Request) error
	ResendOTP(http.ResponseWriter, *http.Request) error
	Refresh(http.ResponseWriter, *http.Request) error
	Logout(http.ResponseWriter, *http.Request) error
	Me(http.ResponseWriter, *http.Request) error
}

type authEndpoints struct {
	service *authsvc.Service
}

func NewAuthEndpoints(db *database.Database, mailer notification.Mailer) AuthEndpoints {
	return &authEndpoints{
		service: authsvc.New(db, mailer),
	}
}

func NewAuthEndpointsWithService(service *authsvc.Service) AuthEndpoints {
	return &authEndpoints{service: service}
}

func (h *authEndpoints) Signup(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleSignup,
	})
}

func (h *authEndpoints) Login(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleLogin,
	})
}

func (h *authEndpoints) VerifyOTP(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleVerifyOTP,
	})
}

func (h *authEndpoints) ResendOTP(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleResendOTP,
	})
}

func (h *authEndpoints) Refresh(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleRefresh,
	})
}

func (h *authEndpoints) Logout(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleLogout,
	})
}

func (h *authEndpoints) Me(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleMe,
	})
}

func (h *authEndpoints) handleSignup(w http.ResponseWriter, r *http.Request) error {
	var req dto.SignupRequest
	if err := decodeJSON(r, &req, "signup"); err != nil {
		return err
	}

	tenant, err := h.service.Signup(r.Context(), authsvc.SignupParams{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		return h.serviceError(err)
	}

	return WriteJSON(w, http.StatusCreated, dto.SignupResponse{
		TenantID: tenant.TenantID,
		Message:  "Signup successful. Please check your email for the verification code.",
	})
}

func (h *authEndpoints) handleLogin(w http.ResponseWriter, r *http.Request) error {
	var req dto.LoginRequest
	if err := decodeJSON(r, &req, "login"); err != nil {
		return err
	}

	result, err := h.service.Login(r.Context(), authsvc.LoginParams{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return h.serviceError(err)
	}

	if result.RequiresOTP {
		return WriteJSON(w, http.StatusAccepted, dto.LoginResponse{
			RequiresOTP: true,
			TenantID:    result.TenantID,
			Message:     "Your account is not verified. A new code has been sent to your email.",
		})
	}

	return WriteJSON(w, http.StatusOK, dto.LoginResponse{
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
	})
}

func (h *authEndpoints) handleVerifyOTP(w http.ResponseWriter, r *http.Request) error {
	var req dto.VerifyOTPRequest
	if err := decodeJSON(r, &req, "verify otp"); err != nil {
		return err
	}

	result, err := h.service.VerifyOTP(r.Context(), req.TenantID, req.OTP)
	if err != nil {
		return h.serviceError(err)
	}

	return WriteJSON(w, http.StatusOK, dto.VerifyOTPResponse{
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
		TenantID:     result.Tenant.TenantID,
		Email:        result.Tenant.Email,
	})
}

func (h *authEndpoints) handleResendOTP(w http.ResponseWriter, r *http.Request) error {
	var req dto.ResendOTPRequest
	if err := decodeJSON(r, &req, "resend otp"); err != nil {
		return err
	}

	if err := h.service.ResendOTP(r.Context(), req.TenantID); err != nil {
		return h.serviceError(err)
	}

	return WriteJSON(w, http.StatusOK, ApiMessageResponse{Message: "A new verification code has been sent."})
}

func (h *authEndpoints) handleRefresh(w http.ResponseWriter, r *http.Request) error {
	var req dto.RefreshRequest
	if err := decodeJSON(r, &req, "refresh"); err != nil {
		return err
	}

	token, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		return h.serviceError(err)
	}

	return WriteJSON(w, http.StatusOK, dto.RefreshResponse{AccessToken: token})
}

func (h *authEndpoints) handleLogout(w http.ResponseWriter, r *http.Request) error {
	var req dto.RefreshRequest
	if err := decodeJSON(r, &req, "logout"); err != nil {
		return err
	}

	if err := h.service.Logout(r.Context(), req.RefreshToken); err != nil {
		return h.serviceError(err)
	}

	return WriteJSON(w, http.StatusOK, ApiMessageResponse{Message: "Logged out."})
}

func (h *authEndpoints) handleMe(w http.ResponseWriter, r *http.Request) error {
	tenantID, email, err := tenantIdentity(r)
	if err != nil {
		return err
	}

	profile, err := h.service.Me(r.Context(), authsvc.Identity{TenantID: tenantID, Email: email})
	if err != nil {
		return h.serviceError(err)
	}

	return WriteJSON(w, http.StatusOK, toMeResponse(profile))
}

func (h *authEndpoints) serviceError(err error) error {
	if err == nil {
		return nil
	}

	var svcErr *authsvc.Error
	if !errors.As(err, &svcErr) {
		return internalError("auth service", err)
	}

	errorLog := errorLog(svcErr.Message, svcErr.Err)

	switch svcErr.Code {
	case authsvc.ErrorCodeValidation:
		return &HTTPError{StatusCode: http.StatusBadRequest, Message: svcErr.Message, ErrorLog: errorLog}
	case authsvc.ErrorCodeUnauthorized:
		return &HTTPError{StatusCode: http.StatusUnauthorized, Message: svcErr.Message, ErrorLog: errorLog}
	case authsvc.ErrorCodeConflict:
		return &HTTPError{StatusCode: http.StatusConflict, Message: svcErr.Message, ErrorLog: errorLog}
	case authsvc.ErrorCodeNotFound:
		return &HTTPError{StatusCode: http.StatusNotFound, Message: svcErr.Message, ErrorLog: errorLog}
	default:
		return &HTTPError{StatusCode: http.StatusInternalServerError, Message: "Internal server error", ErrorLog: errorLog}
	}
}

func toMeResponse(profile authsvc.ProfileResult) dto.MeResponse {
	tenant := profile.Tenant
	limits := profile.Plan.Limits()

	return dto.MeResponse{
		TenantID:     tenant.TenantID,
		Email:        tenant.Email,
		Name:         tenant.Name,
		AuthMethod:   tenant.AuthMethod,
		IsVerified:   tenant.Verified,
		Plan:         profile.Plan.String(),
		MessagesSent: tenant.MessagesSent,
		MessageLimit: limits.Messages,
		ChatbotLimit: limits.Chatbots,
		CycleStart:   tenant.CycleStart,
		CycleEnd:     profile.CycleEnd.UTC().Format(time.RFC3339),
		CreatedAt:    tenant.CreatedAt,
	}
}
