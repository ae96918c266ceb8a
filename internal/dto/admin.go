package dto

type AccessRequest struct {
	Key string `json:"key"`
}

type AccessResponse struct {
	IsAuthenticated bool   `json:"isAuthenticated"`
	ExpiresAt       string `json:"expiresAt,omitempty"`
}

type AdminUserResponse struct {
	TenantID     string `json:"tenantId"`
	Email        string `json:"email"`
	Name         string `json:"name,omitempty"`
	AuthMethod   string `json:"authMethod"`
	IsVerified   bool   `json:"isVerified"`
	IsBanned     bool   `json:"isBanned"`
	Plan         string `json:"plan"`
	MessagesSent int    `json:"messagesSent"`
	MessageLimit int    `json:"messageLimit"`
	ChatbotLimit int    `json:"chatbotLimit"`
	CycleStart   string `json:"planCycleStartDate"`
	CreatedAt    string `json:"createdAt"`
}

type AdminUserDetailsResponse struct {
	User     AdminUserResponse `json:"user"`
	Chatbots []ChatbotResponse `json:"chatbots"`
}

type UserStatusRequest struct {
	IsBanned *bool `json:"isBanned"`
}

type UserPlanRequest struct {
	Plan         string `json:"plan"`
	MessageLimit int    `json:"messageLimit"`
	ChatbotLimit int    `json:"chatbotLimit"`
}

type RegenerateKeyResponse struct {
	APIKey string `json:"apiKey"`
}

type DirectEmailRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

type BulkEmailRequest struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
}

type GenerateRequest struct {
	Prompt   string `json:"prompt"`
	UserName string `json:"userName,omitempty"`
}

type GenerateResponse struct {
	Content string `json:"content"`
}

type SignupDayResponse struct {
	Date    string `json:"date"`
	Signups int    `json:"signups"`
}

type StatsResponse struct {
	TotalUsers        int                  `json:"totalUsers"`
	NewUsers          int                  `json:"newUsers"`
	TotalSubmissions  int                  `json:"totalSubmissions"`
	RecentSubmissions []SubmissionResponse `json:"recentSubmissions"`
	SignupChart       []SignupDayResponse  `json:"signupChart"`
}
