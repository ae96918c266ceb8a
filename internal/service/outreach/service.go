package outreach

import (
	"context"
	"errors"
	"strings"
	"time"

	"chatforge-backend/internal/database"
	"chatforge-backend/internal/logger"
	"chatforge-backend/internal/model"
	"chatforge-backend/internal/notification"
	"chatforge-backend/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	minSubmissionNameLength    = 2
	minSubmissionMessageLength = 10
)

// Dispatcher runs independent jobs concurrently and reports how many failed.
type Dispatcher interface {
	RunAll(name string, fns []func() error) (int, error)
}

type Service struct {
	repo       Repository
	now        func() time.Time
	mailer     notification.Mailer
	dispatcher Dispatcher
}

func New(db *database.Database, mailer notification.Mailer, dispatcher Dispatcher) *Service {
	return NewWithRepository(NewDynamoRepository(db), time.Now, mailer, dispatcher)
}

func NewWithRepository(repo Repository, now func() time.Time, mailer notification.Mailer, dispatcher Dispatcher) *Service {
	if now == nil {
		now = time.Now
	}
	if mailer == nil {
		mailer = notification.LogMailer{}
	}
	return &Service{
		repo:       repo,
		now:        now,
		mailer:     mailer,
		dispatcher: dispatcher,
	}
}

func (s *Service) CreateSubmission(ctx context.Context, params SubmissionParams) (model.SubmissionItem, error) {
	submission := model.SubmissionItem{
		SubmissionID: uuid.NewString(),
		Name:         strings.TrimSpace(params.Name),
		Email:        utils.NormalizeEmail(params.Email),
		Company:      strings.TrimSpace(params.Company),
		Plan:         strings.TrimSpace(params.Plan),
		Message:      strings.TrimSpace(params.Message),
		Status:       model.SubmissionPending,
		CreatedAt:    s.now().UTC().Format(time.RFC3339),
	}

	fields := make(map[string][]string)
	if len(submission.Name) < minSubmissionNameLength {
		fields["name"] = append(fields["name"], "Name must be at least 2 characters.")
	}
	if !utils.ValidEmail(submission.Email) {
		fields["email"] = append(fields["email"], "Please enter a valid email.")
	}
	if plan := model.PlanTier(submission.Plan); plan != model.TierPro && plan != model.TierEnterprise {
		fields["plan"] = append(fields["plan"], "Plan must be Pro or Enterprise.")
	}
	if len(submission.Message) < minSubmissionMessageLength {
		fields["message"] = append(fields["message"], "Message must be at least 10 characters.")
	}
	if len(fields) > 0 {
		return model.SubmissionItem{}, &Error{
			Code:    ErrorCodeValidation,
			Message: "Please correct the highlighted fields.",
			Fields:  fields,
		}
	}

	if err := s.repo.CreateSubmission(ctx, submission); err != nil {
		return model.SubmissionItem{}, newError(ErrorCodeInternal, "Could not submit your request.", err)
	}
	return submission, nil
}

func (s *Service) ListSubmissions(ctx context.Context) ([]model.SubmissionItem, error) {
	submissions, err := s.repo.ListSubmissions(ctx)
	if err != nil {
		return nil, newError(ErrorCodeInternal, "Could not list submissions.", err)
	}
	return submissions, nil
}

// ResolveSubmission accepts or rejects a pending submission and emails the
// requester. A failed email is logged and does not undo the status change.
func (s *Service) ResolveSubmission(ctx context.Context, submissionID string, status model.SubmissionStatus) (model.SubmissionItem, error) {
	submissionID = strings.TrimSpace(submissionID)
	if status != model.SubmissionAccepted && status != model.SubmissionRejected {
		return model.SubmissionItem{}, newError(ErrorCodeValidation, "Invalid input.", nil)
	}
	if submissionID == "" {
		return model.SubmissionItem{}, newError(ErrorCodeValidation, "Invalid submission ID.", nil)
	}

	submission, err := s.repo.ResolveSubmission(ctx, submissionID, status)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.SubmissionItem{}, newError(ErrorCodeConflict, "Submission not found or already processed.", err)
		}
		return model.SubmissionItem{}, newError(ErrorCodeInternal, "Could not update submission status.", err)
	}

	msg, err := notification.SubmissionStatusEmail(submission.Email, submission.Name, submission.Plan, status == model.SubmissionAccepted)
	if err == nil {
		err = s.mailer.Send(ctx, msg)
	}
	if err != nil {
		logger.FromContext(ctx).Error("failed to send submission status email",
			zap.String("submissionId", submission.SubmissionID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
	return submission, nil
}

func (s *Service) DeleteSubmission(ctx context.Context, submissionID string) error {
	submissionID = strings.TrimSpace(submissionID)
	if submissionID == "" {
		return newError(ErrorCodeValidation, "Invalid submission ID.", nil)
	}
	if err := s.repo.DeleteSubmission(ctx, submissionID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return newError(ErrorCodeNotFound, "Submission not found.", err)
		}
		return newError(ErrorCodeInternal, "Could not delete the submission.", err)
	}
	return nil
}

func (s *Service) Subscribe(ctx context.Context, email string) error {
	email = utils.NormalizeEmail(email)
	if !utils.ValidEmail(email) {
		return newError(ErrorCodeValidation, "Invalid email address.", nil)
	}

	err := s.repo.AddSubscriber(ctx, model.SubscriberItem{
		Email:        email,
		SubscribedAt: s.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return newError(ErrorCodeConflict, "This email is already subscribed.", err)
		}
		return newError(ErrorCodeInternal, "Could not subscribe at this time.", err)
	}
	return nil
}

func (s *Service) ListSubscribers(ctx context.Context) ([]model.SubscriberItem, error) {
	subscribers, err := s.repo.ListSubscribers(ctx)
	if err != nil {
		return nil, newError(ErrorCodeInternal, "Could not list subscribers.", err)
	}
	return subscribers, nil
}

func (s *Service) SendNewsletter(ctx context.Context, subject, html string) (SendResult, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" || strings.TrimSpace(html) == "" {
		return SendResult{}, newError(ErrorCodeValidation, "Subject and content are required.", nil)
	}

	subscribers, err := s.repo.ListSubscribers(ctx)
	if err != nil {
		return SendResult{}, newError(ErrorCodeInternal, "Could not retrieve subscriber list.", err)
	}
	if len(subscribers) == 0 {
		return SendResult{}, newError(ErrorCodeValidation, "There are no subscribers to send to.", nil)
	}

	recipients := make([]string, 0, len(subscribers))
	for _, sub := range subscribers {
		recipients = append(recipients, sub.Email)
	}
	return s.fanOut(ctx, "newsletter", recipients, subject, html)
}

func (s *Service) SendToAllUsers(ctx context.Context, subject, html string) (SendResult, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" || strings.TrimSpace(html) == "" {
		return SendResult{}, newError(ErrorCodeValidation, "Subject and message are required.", nil)
	}

	recipients, err := s.repo.ListTenantEmails(ctx)
	if err != nil {
		return SendResult{}, newError(ErrorCodeInternal, "Could not retrieve user list.", err)
	}
	if len(recipients) == 0 {
		return SendResult{}, newError(ErrorCodeValidation, "There are no registered users to send to.", nil)
	}
	return s.fanOut(ctx, "bulk-email", recipients, subject, html)
}

// fanOut sends one message per recipient so no address is exposed to others.
func (s *Service) fanOut(ctx context.Context, name string, recipients []string, subject, html string) (SendResult, error) {
	jobs := make([]func() error, 0, len(recipients))
	for _, to := range recipients {
		msg := notification.BulkEmail(to, subject, html)
		jobs = append(jobs, func() error {
			return s.mailer.Send(ctx, msg)
		})
	}

	var failed int
	var firstErr error
	if s.dispatcher != nil {
		failed, firstErr = s.dispatcher.RunAll(name, jobs)
	} else {
		for _, job := range jobs {
			if err := job(); err != nil {
				failed++
				if firstErr == nil {
					firstErr = err
				}
			}
		}
	}

	result := SendResult{Recipients: len(recipients), Failed: failed}
	if failed > 0 {
		logger.FromContext(ctx).Warn("bulk mailing finished with failures",
			zap.String("mailing", name),
			zap.Int("recipients", result.Recipients),
			zap.Int("failed", failed),
			zap.Error(firstErr),
		)
	}
	if failed == len(recipients) {
		return result, newError(ErrorCodeInternal, "Could not send the emails.", firstErr)
	}
	return result, nil
}
