package gate

import (
	"context"
	"errors"
	"strings"
	"time"

	"chatforge-backend/internal/database"
	"chatforge-backend/internal/logger"
	"chatforge-backend/internal/model"
	"chatforge-backend/utils"

	"go.uber.org/zap"
)

// CycleLength is the length of a quota cycle.
const CycleLength = 30 * 24 * time.Hour

// UsagePublisher receives a usage event after each admission.
type UsagePublisher interface {
	PublishUsage(ctx context.Context, event model.UsageEvent) error
}

type Config struct {
	// AppURL is the product's own origin; embeds on it skip the domain check.
	AppURL    string
	Publisher UsagePublisher
}

type Service struct {
	repo      Repository
	now       func() time.Time
	appURL    string
	publisher UsagePublisher
}

func New(db *database.Database, cfg Config) *Service {
	return NewWithRepository(NewDynamoRepository(db), time.Now, cfg)
}

func NewWithRepository(repo Repository, now func() time.Time, cfg Config) *Service {
	if now == nil {
		now = time.Now
	}

	return &Service{
		repo:      repo,
		now:       now,
		appURL:    cfg.AppURL,
		publisher: cfg.Publisher,
	}
}

// Admit resolves the key, checks the origin, the owner and the quota, and
// charges one message when the request is admitted. A rejected or failed
// request never changes the counter.
func (s *Service) Admit(ctx context.Context, req Request) (Decision, error) {
	log := logger.FromContext(ctx)

	apiKey := strings.TrimSpace(req.APIKey)
	if !utils.LooksLikeAPIKey(apiKey) {
		recordDecision(string(ErrorCodeInvalidCredential))
		return Decision{}, newError(ErrorCodeInvalidCredential, MessageInvalidCredential, nil)
	}

	bot, err := s.repo.FindChatbotByAPIKey(ctx, apiKey)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			recordDecision(string(ErrorCodeInvalidCredential))
			return Decision{}, newError(ErrorCodeInvalidCredential, MessageInvalidCredential, err)
		}
		return Decision{}, newError(ErrorCodeInternal, "failed to resolve api key", err)
	}

	if !originAllowed(req.Origin, s.appURL, bot.AuthorizedDomains) {
		recordDecision(string(OutcomePolicyRejected))
		log.Info("origin rejected",
			zap.String("chatbotId", bot.ChatbotID),
			zap.String("origin", req.Origin),
		)
		return Decision{
			Outcome: OutcomePolicyRejected,
			Message: MessageDomainRejected,
			Chatbot: bot,
		}, nil
	}

	tenant, err := s.repo.GetTenant(ctx, bot.TenantID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			recordDecision(string(ErrorCodeInternalInconsistency))
			log.Error("chatbot owner missing",
				zap.String("chatbotId", bot.ChatbotID),
				zap.String("tenantId", bot.TenantID),
			)
			return Decision{}, newError(ErrorCodeInternalInconsistency, MessageOwnerNotFound, err)
		}
		return Decision{}, newError(ErrorCodeInternal, "failed to load chatbot owner", err)
	}

	if tenant.Banned {
		recordDecision(string(ErrorCodeAccessDisabled))
		return Decision{}, newError(ErrorCodeAccessDisabled, MessageAccessDisabled, nil)
	}

	tenant, err = s.charge(ctx, tenant)
	if err != nil {
		var gateErr *Error
		if errors.As(err, &gateErr) {
			recordDecision(string(gateErr.Code))
		}
		return Decision{}, err
	}

	recordDecision(string(OutcomeAdmitted))
	s.publish(ctx, bot, tenant)

	return Decision{
		Outcome: OutcomeAdmitted,
		Chatbot: bot,
		Tenant:  tenant,
	}, nil
}

func (s *Service) charge(ctx context.Context, tenant model.TenantItem) (model.TenantItem, error) {
	now := s.now().UTC()

	if now.After(CycleStart(tenant).Add(CycleLength)) {
		updated, err := s.repo.StartCycle(ctx, tenant.TenantID, tenant.CycleStart, now.Format(time.RFC3339))
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, ErrConflict) {
			return model.TenantItem{}, newError(ErrorCodeInternal, "failed to start usage cycle", err)
		}

		// Another request rolled the cycle first; charge against its record.
		tenant, err = s.repo.GetTenant(ctx, tenant.TenantID)
		if err != nil {
			return model.TenantItem{}, newError(ErrorCodeInternal, "failed to reload chatbot owner", err)
		}
	}

	if tenant.MessagesSent >= tenant.MessageLimit {
		return model.TenantItem{}, newError(ErrorCodeQuotaExceeded, MessageQuotaExceeded, nil)
	}

	updated, err := s.repo.IncrementUsage(ctx, tenant.TenantID)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return model.TenantItem{}, newError(ErrorCodeQuotaExceeded, MessageQuotaExceeded, err)
		}
		return model.TenantItem{}, newError(ErrorCodeInternal, "failed to record usage", err)
	}
	return updated, nil
}

// Refund returns one message to the tenant's counter. A counter already at
// zero is left untouched.
func (s *Service) Refund(ctx context.Context, tenantID string) error {
	err := s.repo.DecrementUsage(ctx, tenantID)
	switch {
	case err == nil:
		recordDecision(outcomeRefunded)
		return nil
	case errors.Is(err, ErrConflict):
		return nil
	default:
		return newError(ErrorCodeInternal, "failed to refund usage", err)
	}
}

func (s *Service) publish(ctx context.Context, bot model.ChatbotItem, tenant model.TenantItem) {
	if s.publisher == nil {
		return
	}
	event := model.UsageEvent{
		TenantID:     tenant.TenantID,
		ChatbotID:    bot.ChatbotID,
		MessagesSent: tenant.MessagesSent,
		MessageLimit: tenant.MessageLimit,
		Outcome:      string(OutcomeAdmitted),
		At:           s.now().UTC().Format(time.RFC3339),
	}
	if err := s.publisher.PublishUsage(ctx, event); err != nil {
		logger.FromContext(ctx).Warn("usage publish failed", zap.String("tenantId", tenant.TenantID), zap.Error(err))
	}
}

// CycleStart parses the tenant's stored cycle start. Missing or malformed
// values yield the zero time.
func CycleStart(tenant model.TenantItem) time.Time {
	if tenant.CycleStart == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, tenant.CycleStart)
	if err != nil {
		return time.Time{}
	}
	return t
}

// CycleEnd is the instant after which the next admission opens a new cycle.
func CycleEnd(tenant model.TenantItem) time.Time {
	return CycleStart(tenant).Add(CycleLength)
}
