package endpoints

import (
	"errors"
	"fmt"
	"net/http"

	"chatforge-backend/internal/dto"
	"chatforge-backend/internal/model"
	"chatforge-backend/internal/service/outreach"
)

// OutreachEndpoints covers lead submissions, newsletter subscriptions and
// bulk mailings. Submit and Subscribe are public; the rest are admin routes.
type OutreachEndpoints interface {
	Submit(http.ResponseWriter, *http.Request) error
	Subscribe(http.ResponseWriter, *http.Request) error
	Submissions(http.ResponseWriter, *http.Request) error
	Submission(http.ResponseWriter, *http.Request) error
	Subscribers(http.ResponseWriter, *http.Request) error
	SendNewsletter(http.ResponseWriter, *http.Request) error
	SendBulkEmail(http.ResponseWriter, *http.Request) error
}

type outreachEndpoints struct {
	service *outreach.Service
}

func NewOutreachEndpoints(service *outreach.Service) OutreachEndpoints {
	return &outreachEndpoints{service: service}
}

func (h *outreachEndpoints) Submit(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleSubmit,
	})
}

func (h *outreachEndpoints) Subscribe(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleSubscribe,
	})
}

func (h *outreachEndpoints) Submissions(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleListSubmissions,
	})
}

func (h *outreachEndpoints) Submission(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPatch:  h.handleResolveSubmission,
		http.MethodDelete: h.handleDeleteSubmission,
	})
}

func (h *outreachEndpoints) Subscribers(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleListSubscribers,
	})
}

func (h *outreachEndpoints) SendNewsletter(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleSendNewsletter,
	})
}

func (h *outreachEndpoints) SendBulkEmail(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleSendBulkEmail,
	})
}

func (h *outreachEndpoints) handleSubmit(w http.ResponseWriter, r *http.Request) error {
	var req dto.SubmissionRequest
	if err := decodeJSON(r, &req, "submission"); err != nil {
		return err
	}

	submission, err := h.service.CreateSubmission(r.Context(), outreach.SubmissionParams{
		Name:    req.Name,
		Email:   req.Email,
		Company: req.Company,
		Plan:    req.Plan,
		Message: req.Message,
	})
	if err != nil {
		return h.serviceError(err)
	}

	return WriteJSON(w, http.StatusCreated, toSubmissionResponse(submission))
}

func (h *outreachEndpoints) handleSubscribe(w http.ResponseWriter, r *http.Request) error {
	var req dto.SubscribeRequest
	if err := decodeJSON(r, &req, "subscribe"); err != nil {
		return err
	}

	if err := h.service.Subscribe(r.Context(), req.Email); err != nil {
		return h.serviceError(err)
	}

	return WriteJSON(w, http.StatusCreated, ApiMessageResponse{Message: "Thank you for subscribing!"})
}

func (h *outreachEndpoints) handleListSubmissions(w http.ResponseWriter, r *http.Request) error {
	submissions, err := h.service.ListSubmissions(r.Context())
	if err != nil {
		return h.serviceError(err)
	}

	return WriteJSON(w, http.StatusOK, toSubmissionResponses(submissions))
}

func (h *outreachEndpoints) handleResolveSubmission(w http.ResponseWriter, r *http.Request) error {
	var req dto.UpdateSubmissionRequest
	if err := decodeJSON(r, &req, "update submission"); err != nil {
		return err
	}

	submission, err := h.service.ResolveSubmission(r.Context(), r.PathValue("submissionId"), model.SubmissionStatus(req.Status))
	if err != nil {
		return h.serviceError(err)
	}

	return WriteJSON(w, http.StatusOK, toSubmissionResponse(submission))
}

func (h *outreachEndpoints) handleDeleteSubmission(w http.ResponseWriter, r *http.Request) error {
	if err := h.service.DeleteSubmission(r.Context(), r.PathValue("submissionId")); err != nil {
		return h.serviceError(err)
	}

	return WriteJSON(w, http.StatusOK, ApiMessageResponse{Message: "Submission deleted successfully."})
}

func (h *outreachEndpoints) handleListSubscribers(w http.ResponseWriter, r *http.Request) error {
	subscribers, err := h.service.ListSubscribers(r.Context())
	if err != nil {
		return h.serviceError(err)
	}

	out := make([]dto.SubscriberResponse, 0, len(subscribers))
	for _, sub := range subscribers {
		out = append(out, dto.SubscriberResponse{Email: sub.Email, SubscribedAt: sub.SubscribedAt})
	}
	return WriteJSON(w, http.StatusOK, out)
}

func (h *outreachEndpoints) handleSendNewsletter(w http.ResponseWriter, r *http.Request) error {
	var req dto.NewsletterSendRequest
	if err := decodeJSON(r, &req, "newsletter send"); err != nil {
		return err
	}

	result, err := h.service.SendNewsletter(r.Context(), req.Subject, req.HTMLContent)
	if err != nil {
		return h.serviceError(err)
	}

	return WriteJSON(w, http.StatusOK, toSendResultResponse("Newsletter", result))
}

func (h *outreachEndpoints) handleSendBulkEmail(w http.ResponseWriter, r *http.Request) error {
	var req dto.BulkEmailRequest
	if err := decodeJSON(r, &req, "bulk email"); err != nil {
		return err
	}

	result, err := h.service.SendToAllUsers(r.Context(), req.Subject, req.Message)
	if err != nil {
		return h.serviceError(err)
	}

	return WriteJSON(w, http.StatusOK, toSendResultResponse("Email", result))
}

func (h *outreachEndpoints) serviceError(err error) error {
	if err == nil {
		return nil
	}

	var svcErr *outreach.Error
	if !errors.As(err, &svcErr) {
		return internalError("outreach service", err)
	}

	errorLog := errorLog(svcErr.Message, svcErr.Err)

	switch svcErr.Code {
	case outreach.ErrorCodeValidation:
		return &HTTPError{StatusCode: http.StatusBadRequest, Message: svcErr.Message, Fields: svcErr.Fields, ErrorLog: errorLog}
	case outreach.ErrorCodeConflict:
		return &HTTPError{StatusCode: http.StatusConflict, Message: svcErr.Message, ErrorLog: errorLog}
	case outreach.ErrorCodeNotFound:
		return &HTTPError{StatusCode: http.StatusNotFound, Message: svcErr.Message, ErrorLog: errorLog}
	default:
		return &HTTPError{StatusCode: http.StatusInternalServerError, Message: svcErr.Message, ErrorLog: errorLog}
	}
}

func toSubmissionResponse(s model.SubmissionItem) dto.SubmissionResponse {
	return dto.SubmissionResponse{
		SubmissionID: s.SubmissionID,
		Name:         s.Name,
		Email:        s.Email,
		Company:      s.Company,
		Plan:         s.Plan,
		Message:      s.Message,
		Status:       string(s.Status),
		CreatedAt:    s.CreatedAt,
	}
}

func toSubmissionResponses(items []model.SubmissionItem) []dto.SubmissionResponse {
	out := make([]dto.SubmissionResponse, 0, len(items))
	for _, s := range items {
		out = append(out, toSubmissionResponse(s))
	}
	return out
}

func toSendResultResponse(kind string, result outreach.SendResult) dto.SendResultResponse {
	sent := result.Recipients - result.Failed
	message := fmt.Sprintf("%s sent to %d recipients.", kind, sent)
	if result.Failed > 0 {
		message = fmt.Sprintf("%s sent to %d of %d recipients; %d failed.", kind, sent, result.Recipients, result.Failed)
	}
	return dto.SendResultResponse{
		Message:    message,
		Recipients: result.Recipients,
		Failed:     result.Failed,
	}
}
