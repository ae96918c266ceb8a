package model

const (
	TenantsTable     = "Tenants"
	ChatbotsTable    = "Chatbots"
	SubmissionsTable = "Submissions"
	SubscribersTable = "Subscribers"

	TenantsByEmailIndex   = "byEmail"
	ChatbotsByAPIKeyIndex = "byApiKey"
	ChatbotsByOwnerIndex  = "byOwner"
)

const (
	AuthMethodEmail  = "email"
	AuthMethodGoogle = "google"
)

type TenantItem struct {
	TenantID     string `dynamodbav:"tenantId"`
	Email        string `dynamodbav:"email"`
	Name         string `dynamodbav:"name,omitempty"`
	PasswordHash string `dynamodbav:"passwordHash,omitempty"`
	AuthMethod   string `dynamodbav:"authMethod"`
	Verified     bool   `dynamodbav:"isVerified"`
	Banned       bool   `dynamodbav:"isBanned"`
	OTP          string `dynamodbav:"otp,omitempty"`
	OTPExpiresAt string `dynamodbav:"otpExpiresAt,omitempty"`
	Plan         string `dynamodbav:"plan"`
	MessagesSent int    `dynamodbav:"messagesSent"`
	MessageLimit int    `dynamodbav:"messageLimit"`
	ChatbotLimit int    `dynamodbav:"chatbotLimit"`
	CycleStart   string `dynamodbav:"planCycleStartDate"`
	CreatedAt    string `dynamodbav:"createdAt"`
}

// CurrentPlan decodes the stored tier and limits into the plan variant.
// Unknown tiers fall back to Free.
func (t TenantItem) CurrentPlan() Plan {
	plan, err := ParsePlan(t.Plan, Limits{Messages: t.MessageLimit, Chatbots: t.ChatbotLimit})
	if err != nil {
		return FreePlan()
	}
	return plan
}

type QAPair struct {
	Question string `dynamodbav:"question" json:"question"`
	Answer   string `dynamodbav:"answer" json:"answer"`
}

type ChatbotItem struct {
	ChatbotID         string   `dynamodbav:"chatbotId"`
	TenantID          string   `dynamodbav:"tenantId"`
	Name              string   `dynamodbav:"name"`
	Instructions      string   `dynamodbav:"instructions"`
	QA                []QAPair `dynamodbav:"qa"`
	WelcomeMessage    string   `dynamodbav:"welcomeMessage"`
	Color             string   `dynamodbav:"color"`
	APIKey            string   `dynamodbav:"apiKey"`
	AuthorizedDomains []string `dynamodbav:"authorizedDomains"`
	CreatedAt         string   `dynamodbav:"createdAt"`
}

type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionAccepted SubmissionStatus = "accepted"
	SubmissionRejected SubmissionStatus = "rejected"
)

type SubmissionItem struct {
	SubmissionID string           `dynamodbav:"submissionId"`
	Name         string           `dynamodbav:"name"`
	Email        string           `dynamodbav:"email"`
	Company      string           `dynamodbav:"company,omitempty"`
	Plan         string           `dynamodbav:"plan"`
	Message      string           `dynamodbav:"message"`
	Status       SubmissionStatus `dynamodbav:"status"`
	CreatedAt    string           `dynamodbav:"createdAt"`
}

type SubscriberItem struct {
	Email        string `dynamodbav:"email"`
	SubscribedAt string `dynamodbav:"subscribedAt"`
}

// UsageEvent is pushed to the live usage feed after each gate decision.
type UsageEvent struct {
	TenantID     string `json:"tenantId"`
	ChatbotID    string `json:"chatbotId"`
	MessagesSent int    `json:"messagesSent"`
	MessageLimit int    `json:"messageLimit"`
	Outcome      string `json:"outcome"`
	At           string `json:"at"`
}

const (
	DefaultWelcomeMessage = "Hello! How can I help you today?"
	DefaultColor          = "#007BFF"
)

// NewChatbot builds a chatbot with the product defaults.
func NewChatbot(chatbotID, tenantID, name, instructions, apiKey, createdAt string) ChatbotItem {
	return ChatbotItem{
		ChatbotID:         chatbotID,
		TenantID:          tenantID,
		Name:              name,
		Instructions:      instructions,
		QA:                []QAPair{},
		WelcomeMessage:    DefaultWelcomeMessage,
		Color:             DefaultColor,
		APIKey:            apiKey,
		AuthorizedDomains: []string{},
		CreatedAt:         createdAt,
	}
}
