package admin

import (
	"context"
	"crypto/subtle"
	"errors"
	"sort"
	"strings"
	"time"

	"chatforge-backend/internal/database"
	internaljwt "chatforge-backend/internal/jwt"
	"chatforge-backend/internal/model"
	"chatforge-backend/internal/notification"
	"chatforge-backend/utils"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	SessionTTL = time.Hour

	statsWindowDays   = 7
	recentSubmissions = 5

	msgInvalidAccessKey = "Invalid access key."
)

var adminUser = internaljwt.User{ID: "admin", Email: "admin"}

// EmailWriter drafts email bodies from an admin prompt.
type EmailWriter interface {
	NewsletterEmail(ctx context.Context, prompt string) (string, error)
	DirectEmail(ctx context.Context, prompt, userName string) (string, error)
}

// Config selects how admin access keys are checked. A TOTP secret takes
// precedence over the static key.
type Config struct {
	AccessKey  string
	TOTPSecret string
}

type Service struct {
	repo   Repository
	now    func() time.Time
	mailer notification.Mailer
	writer EmailWriter
	cfg    Config
}

func New(db *database.Database, mailer notification.Mailer, writer EmailWriter, cfg Config) *Service {
	return NewWithRepository(NewDynamoRepository(db), time.Now, mailer, writer, cfg)
}

func NewWithRepository(repo Repository, now func() time.Time, mailer notification.Mailer, writer EmailWriter, cfg Config) *Service {
	if now == nil {
		now = time.Now
	}
	if mailer == nil {
		mailer = notification.LogMailer{}
	}
	return &Service{
		repo:   repo,
		now:    now,
		mailer: mailer,
		writer: writer,
		cfg:    cfg,
	}
}

// Access exchanges an access key for a one hour admin session.
func (s *Service) Access(key string) (Session, error) {
	key = strings.TrimSpace(key)
	if key == "" || !s.validKey(key) {
		return Session{}, newError(ErrorCodeUnauthorized, msgInvalidAccessKey, nil)
	}

	expires := s.now().Add(SessionTTL)
	token, err := internaljwt.CreateToken(adminUser, internaljwt.RoleAdmin, expires.Unix())
	if err != nil {
		return Session{}, newError(ErrorCodeInternal, "failed to issue admin session", err)
	}
	return Session{Token: token, ExpiresAt: expires}, nil
}

func (s *Service) validKey(key string) bool {
	if s.cfg.TOTPSecret != "" {
		valid, err := totp.ValidateCustom(key, s.cfg.TOTPSecret, s.now(), totp.ValidateOpts{
			Period:    30,
			Skew:      1,
			Digits:    otp.DigitsSix,
			Algorithm: otp.AlgorithmSHA1,
		})
		return err == nil && valid
	}
	if s.cfg.AccessKey == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(s.cfg.AccessKey)) == 1
}

// Authenticated reports whether token is a live admin session.
func (s *Service) Authenticated(token string) bool {
	token = strings.TrimSpace(token)
	if token == "" {
		return false
	}
	_, err := internaljwt.ParseUser(token, internaljwt.RoleAdmin)
	return err == nil
}

// ListUsers returns tenants newest first, optionally filtered by a
// case-insensitive email substring. Secrets are stripped.
func (s *Service) ListUsers(ctx context.Context, query string) ([]model.TenantItem, error) {
	tenants, err := s.repo.ListTenants(ctx)
	if err != nil {
		return nil, newError(ErrorCodeInternal, "Could not list users.", err)
	}

	query = strings.ToLower(strings.TrimSpace(query))
	out := make([]model.TenantItem, 0, len(tenants))
	for _, tenant := range tenants {
		if query != "" && !strings.Contains(strings.ToLower(tenant.Email), query) {
			continue
		}
		out = append(out, withoutSecrets(tenant))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt > out[j].CreatedAt
	})
	return out, nil
}

func (s *Service) UserDetails(ctx context.Context, tenantID string) (UserDetails, error) {
	tenant, err := s.tenant(ctx, tenantID)
	if err != nil {
		return UserDetails{}, err
	}
	bots, err := s.repo.ListChatbots(ctx, tenant.TenantID)
	if err != nil {
		return UserDetails{}, newError(ErrorCodeInternal, "Could not retrieve user details.", err)
	}
	return UserDetails{Tenant: withoutSecrets(tenant), Chatbots: bots}, nil
}

func (s *Service) DeleteUser(ctx context.Context, tenantID string) error {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return newError(ErrorCodeValidation, "Invalid user ID.", nil)
	}
	if err := s.repo.DeleteTenant(ctx, tenantID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return newError(ErrorCodeNotFound, "User not found.", err)
		}
		return newError(ErrorCodeInternal, "Could not delete user.", err)
	}
	return nil
}

func (s *Service) SetBanned(ctx context.Context, tenantID string, banned bool) (model.TenantItem, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return model.TenantItem{}, newError(ErrorCodeValidation, "Invalid user ID.", nil)
	}
	tenant, err := s.repo.SetBanned(ctx, tenantID, banned)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.TenantItem{}, newError(ErrorCodeNotFound, "User not found.", err)
		}
		return model.TenantItem{}, newError(ErrorCodeInternal, "Could not update user status.", err)
	}
	return withoutSecrets(tenant), nil
}

// SetPlan moves a tenant to a plan. Free and Pro use their catalogue limits;
// the supplied limits only apply to Enterprise.
func (s *Service) SetPlan(ctx context.Context, tenantID string, params PlanParams) (model.TenantItem, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return model.TenantItem{}, newError(ErrorCodeValidation, "Invalid user ID.", nil)
	}
	plan, err := model.ParsePlan(params.Plan, model.Limits{Messages: params.MessageLimit, Chatbots: params.ChatbotLimit})
	if err != nil {
		return model.TenantItem{}, newError(ErrorCodeValidation, "Invalid input.", err)
	}

	tenant, err := s.repo.SetPlan(ctx, tenantID, plan)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.TenantItem{}, newError(ErrorCodeNotFound, "User not found.", err)
		}
		return model.TenantItem{}, newError(ErrorCodeInternal, "Could not update user plan.", err)
	}
	return withoutSecrets(tenant), nil
}

func (s *Service) RegenerateAPIKey(ctx context.Context, chatbotID string) (string, error) {
	chatbotID = strings.TrimSpace(chatbotID)
	if chatbotID == "" {
		return "", newError(ErrorCodeValidation, "Invalid chatbot ID.", nil)
	}
	key, err := utils.GenerateAPIKey()
	if err != nil {
		return "", newError(ErrorCodeInternal, "Could not regenerate API key.", err)
	}
	if _, err := s.repo.SetChatbotAPIKey(ctx, chatbotID, key); err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", newError(ErrorCodeNotFound, "Chatbot not found.", err)
		}
		return "", newError(ErrorCodeInternal, "Could not regenerate API key.", err)
	}
	return key, nil
}

func (s *Service) DeleteChatbot(ctx context.Context, chatbotID string) error {
	chatbotID = strings.TrimSpace(chatbotID)
	if chatbotID == "" {
		return newError(ErrorCodeValidation, "Invalid chatbot ID.", nil)
	}
	if err := s.repo.DeleteChatbot(ctx, chatbotID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return newError(ErrorCodeNotFound, "Chatbot not found.", err)
		}
		return newError(ErrorCodeInternal, "Could not delete chatbot.", err)
	}
	return nil
}

func (s *Service) SendDirectEmail(ctx context.Context, to, subject, message string) error {
	to = utils.NormalizeEmail(to)
	subject = strings.TrimSpace(subject)
	if !utils.ValidEmail(to) || subject == "" || strings.TrimSpace(message) == "" {
		return newError(ErrorCodeValidation, "Invalid input.", nil)
	}

	msg, err := notification.DirectMessageEmail(to, subject, message)
	if err == nil {
		err = s.mailer.Send(ctx, msg)
	}
	if err != nil {
		return newError(ErrorCodeInternal, "Could not send the email.", err)
	}
	return nil
}

func (s *Service) GenerateNewsletter(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", newError(ErrorCodeValidation, "Prompt cannot be empty.", nil)
	}
	if s.writer == nil {
		return "", newError(ErrorCodeInternal, "Email generation is not configured.", nil)
	}
	html, err := s.writer.NewsletterEmail(ctx, prompt)
	if err != nil {
		return "", newError(ErrorCodeUpstream, "Could not generate email content.", err)
	}
	return html, nil
}

func (s *Service) GenerateDirectEmail(ctx context.Context, prompt, userName string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", newError(ErrorCodeValidation, "Prompt cannot be empty.", nil)
	}
	if s.writer == nil {
		return "", newError(ErrorCodeInternal, "Email generation is not configured.", nil)
	}
	html, err := s.writer.DirectEmail(ctx, prompt, userName)
	if err != nil {
		return "", newError(ErrorCodeUpstream, "Could not generate email content.", err)
	}
	return html, nil
}

// Stats summarises signups and submissions over the last seven days. Days are
// UTC calendar days ending today.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	tenants, err := s.repo.ListTenants(ctx)
	if err != nil {
		return Stats{}, newError(ErrorCodeInternal, "Could not retrieve dashboard statistics.", err)
	}
	submissions, err := s.repo.ListSubmissions(ctx)
	if err != nil {
		return Stats{}, newError(ErrorCodeInternal, "Could not retrieve dashboard statistics.", err)
	}

	now := s.now().UTC()
	since := now.AddDate(0, 0, -statsWindowDays)

	perDay := make(map[string]int)
	stats := Stats{
		TotalUsers:       len(tenants),
		TotalSubmissions: len(submissions),
	}
	for _, tenant := range tenants {
		created, err := time.Parse(time.RFC3339, tenant.CreatedAt)
		if err != nil || created.Before(since) {
			continue
		}
		stats.NewUsers++
		perDay[created.UTC().Format(time.DateOnly)]++
	}

	for i := statsWindowDays - 1; i >= 0; i-- {
		day := now.AddDate(0, 0, -i).Format(time.DateOnly)
		stats.SignupChart = append(stats.SignupChart, SignupDay{Date: day, Signups: perDay[day]})
	}

	sort.SliceStable(submissions, func(i, j int) bool {
		return submissions[i].CreatedAt > submissions[j].CreatedAt
	})
	if len(submissions) > recentSubmissions {
		submissions = submissions[:recentSubmissions]
	}
	stats.RecentSubmissions = submissions

	return stats, nil
}

func (s *Service) tenant(ctx context.Context, tenantID string) (model.TenantItem, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return model.TenantItem{}, newError(ErrorCodeValidation, "Invalid user ID.", nil)
	}
	tenant, err := s.repo.GetTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.TenantItem{}, newError(ErrorCodeNotFound, "User not found.", err)
		}
		return model.TenantItem{}, newError(ErrorCodeInternal, "Could not retrieve user details.", err)
	}
	return tenant, nil
}

func withoutSecrets(tenant model.TenantItem) model.TenantItem {
	tenant.PasswordHash = ""
	tenant.OTP = ""
	tenant.OTPExpiresAt = ""
	return tenant
}
