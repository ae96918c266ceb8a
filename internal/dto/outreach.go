package dto

type SubmissionRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Company string `json:"company,omitempty"`
	Plan    string `json:"plan"`
	Message string `json:"message"`
}

type SubmissionResponse struct {
	SubmissionID string `json:"submissionId"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Company      string `json:"company,omitempty"`
	Plan         string `json:"plan"`
	Message      string `json:"message"`
	Status       string `json:"status"`
	CreatedAt    string `json:"createdAt"`
}

type UpdateSubmissionRequest struct {
	Status string `json:"status"`
}

type SubscribeRequest struct {
	Email string `json:"email"`
}

type SubscriberResponse struct {
	Email        string `json:"email"`
	SubscribedAt string `json:"subscribedAt"`
}

type NewsletterSendRequest struct {
	Subject     string `json:"subject"`
	HTMLContent string `json:"htmlContent"`
}

type SendResultResponse struct {
	Message    string `json:"message"`
	Recipients int    `json:"recipients"`
	Failed     int    `json:"failed"`
}
