package dto

type QAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type CreateChatbotRequest struct {
	Name string `json:"name"`
}

// UpdateChatbotRequest is a partial update; absent fields are left unchanged.
type UpdateChatbotRequest struct {
	Name              *string   `json:"name,omitempty"`
	Instructions      *string   `json:"instructions,omitempty"`
	QA                *[]QAPair `json:"qa,omitempty"`
	WelcomeMessage    *string   `json:"welcomeMessage,omitempty"`
	Color             *string   `json:"color,omitempty"`
	AuthorizedDomains *[]string `json:"authorizedDomains,omitempty"`
}

type ChatbotResponse struct {
	ChatbotID         string   `json:"chatbotId"`
	TenantID          string   `json:"tenantId"`
	Name              string   `json:"name"`
	Instructions      string   `json:"instructions"`
	QA                []QAPair `json:"qa"`
	WelcomeMessage    string   `json:"welcomeMessage"`
	Color             string   `json:"color"`
	APIKey            string   `json:"apiKey"`
	AuthorizedDomains []string `json:"authorizedDomains"`
	CreatedAt         string   `json:"createdAt"`
}

type EmbedResponse struct {
	HTML   string `json:"html"`
	React  string `json:"react"`
	NextJS string `json:"nextjs"`
}

type ChatbotConfigResponse struct {
	Name    string `json:"name"`
	Welcome string `json:"welcome"`
	Color   string `json:"color"`
	Plan    string `json:"plan"`
}
