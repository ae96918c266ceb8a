package dto

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

type SignupResponse struct {
	TenantID string `json:"tenantId"`
	Message  string `json:"message"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries tokens, or RequiresOTP when the account still has to
// be verified.
type LoginResponse struct {
	AccessToken  string `json:"accessToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
	RequiresOTP  bool   `json:"requiresOtp,omitempty"`
	TenantID     string `json:"tenantId,omitempty"`
	Message      string `json:"message,omitempty"`
}

type VerifyOTPRequest struct {
	TenantID string `json:"tenantId"`
	OTP      string `json:"otp"`
}

type VerifyOTPResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	TenantID     string `json:"tenantId"`
	Email        string `json:"email"`
}

type ResendOTPRequest struct {
	TenantID string `json:"tenantId"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
}

type MeResponse struct {
	TenantID     string `json:"tenantId"`
	Email        string `json:"email"`
	Name         string `json:"name,omitempty"`
	AuthMethod   string `json:"authMethod"`
	IsVerified   bool   `json:"isVerified"`
	Plan         string `json:"plan"`
	MessagesSent int    `json:"messagesSent"`
	MessageLimit int    `json:"messageLimit"`
	ChatbotLimit int    `json:"chatbotLimit"`
	CycleStart   string `json:"planCycleStartDate"`
	CycleEnd     string `json:"planCycleEndDate"`
	CreatedAt    string `json:"createdAt"`
}
