package chatbot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"chatforge-backend/internal/database"
	"chatforge-backend/internal/embed"
	"chatforge-backend/internal/model"
	"chatforge-backend/utils"

	"github.com/google/uuid"
)

type Service struct {
	repo    Repository
	now     func() time.Time
	baseURL string
}

func New(db *database.Database, baseURL string) *Service {
	return NewWithRepository(NewDynamoRepository(db), time.Now, baseURL)
}

func NewWithRepository(repo Repository, now func() time.Time, baseURL string) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:    repo,
		now:     now,
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
	}
}

func (s *Service) List(ctx context.Context, identity Identity) ([]model.ChatbotItem, error) {
	tenantID, err := requireTenant(identity)
	if err != nil {
		return nil, err
	}

	bots, err := s.repo.ListChatbots(ctx, tenantID)
	if err != nil {
		return nil, newError(ErrorCodeInternal, "Could not list chatbots.", err)
	}
	return bots, nil
}

// Create adds a chatbot while the tenant is below its plan's chatbot ceiling.
func (s *Service) Create(ctx context.Context, identity Identity, name string) (model.ChatbotItem, error) {
	tenantID, err := requireTenant(identity)
	if err != nil {
		return model.ChatbotItem{}, err
	}

	name = strings.TrimSpace(name)
	if len(name) < minNameLength {
		return model.ChatbotItem{}, newError(ErrorCodeValidation, "Bot name must be at least 2 characters.", nil)
	}

	tenant, err := s.repo.GetTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.ChatbotItem{}, newError(ErrorCodeNotFound, "User not found.", err)
		}
		return model.ChatbotItem{}, newError(ErrorCodeInternal, "Could not create chatbot.", err)
	}

	existing, err := s.repo.ListChatbots(ctx, tenantID)
	if err != nil {
		return model.ChatbotItem{}, newError(ErrorCodeInternal, "Could not create chatbot.", err)
	}
	if len(existing) >= tenant.CurrentPlan().Limits().Chatbots {
		return model.ChatbotItem{}, newError(ErrorCodeForbidden, msgLimitReached, nil)
	}

	apiKey, err := utils.GenerateAPIKey()
	if err != nil {
		return model.ChatbotItem{}, newError(ErrorCodeInternal, "failed to generate api key", err)
	}

	bot := model.NewChatbot(
		uuid.NewString(),
		tenantID,
		name,
		fmt.Sprintf("You are a helpful assistant named %s.", name),
		apiKey,
		s.now().UTC().Format(time.RFC3339),
	)
	if err := s.repo.CreateChatbot(ctx, bot); err != nil {
		return model.ChatbotItem{}, newError(ErrorCodeInternal, "Could not create chatbot.", err)
	}
	return bot, nil
}

func (s *Service) Get(ctx context.Context, identity Identity, chatbotID string) (model.ChatbotItem, error) {
	return s.owned(ctx, identity, chatbotID, msgNotFoundEdit)
}

// Update applies a partial settings change. An empty patch returns the
// current state without writing.
func (s *Service) Update(ctx context.Context, identity Identity, chatbotID string, patch Patch) (model.ChatbotItem, error) {
	if patch.Empty() {
		return s.owned(ctx, identity, chatbotID, msgNotFoundEdit)
	}

	tenantID, err := requireTenant(identity)
	if err != nil {
		return model.ChatbotItem{}, err
	}
	chatbotID = strings.TrimSpace(chatbotID)
	if chatbotID == "" {
		return model.ChatbotItem{}, newError(ErrorCodeNotFound, msgNotFoundEdit, nil)
	}

	normalized, err := normalizePatch(patch)
	if err != nil {
		return model.ChatbotItem{}, err
	}

	bot, err := s.repo.UpdateChatbot(ctx, tenantID, chatbotID, normalized)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.ChatbotItem{}, newError(ErrorCodeNotFound, msgNotFoundEdit, err)
		}
		return model.ChatbotItem{}, newError(ErrorCodeInternal, "Could not update settings.", err)
	}
	return bot, nil
}

func (s *Service) Delete(ctx context.Context, identity Identity, chatbotID string) error {
	tenantID, err := requireTenant(identity)
	if err != nil {
		return err
	}
	chatbotID = strings.TrimSpace(chatbotID)
	if chatbotID == "" {
		return newError(ErrorCodeNotFound, msgNotFoundDelete, nil)
	}

	if err := s.repo.DeleteChatbot(ctx, tenantID, chatbotID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return newError(ErrorCodeNotFound, msgNotFoundDelete, err)
		}
		return newError(ErrorCodeInternal, "Could not delete chatbot.", err)
	}
	return nil
}

// Embed renders the install snippets for one of the tenant's chatbots.
func (s *Service) Embed(ctx context.Context, identity Identity, chatbotID string) (embed.Snippets, error) {
	bot, err := s.owned(ctx, identity, chatbotID, msgNotFoundEdit)
	if err != nil {
		return embed.Snippets{}, err
	}
	return s.render(bot.APIKey)
}

// PublicEmbed renders the install snippets for an API key without a session.
func (s *Service) PublicEmbed(ctx context.Context, apiKey string) (embed.Snippets, error) {
	bot, _, err := s.byAPIKey(ctx, apiKey)
	if err != nil {
		return embed.Snippets{}, err
	}
	return s.render(bot.APIKey)
}

// PublicConfig returns the widget display settings for apiKey. A chatbot whose
// owner is gone is still served with the Free plan label.
func (s *Service) PublicConfig(ctx context.Context, apiKey string) (PublicConfig, error) {
	bot, tenant, err := s.byAPIKey(ctx, apiKey)
	if err != nil {
		return PublicConfig{}, err
	}
	if tenant != nil && tenant.Banned {
		return PublicConfig{}, newError(ErrorCodeForbidden, msgChatbotDisabled, nil)
	}
	return publicConfig(bot, tenant), nil
}

func (s *Service) byAPIKey(ctx context.Context, apiKey string) (model.ChatbotItem, *model.TenantItem, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return model.ChatbotItem{}, nil, newError(ErrorCodeUnauthorized, "API key is required.", nil)
	}
	if !utils.LooksLikeAPIKey(apiKey) {
		return model.ChatbotItem{}, nil, newError(ErrorCodeUnauthorized, msgInvalidAPIKey, nil)
	}

	bot, err := s.repo.FindChatbotByAPIKey(ctx, apiKey)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.ChatbotItem{}, nil, newError(ErrorCodeUnauthorized, msgInvalidAPIKey, err)
		}
		return model.ChatbotItem{}, nil, newError(ErrorCodeInternal, "An internal server error occurred.", err)
	}

	tenant, err := s.repo.GetTenant(ctx, bot.TenantID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return bot, nil, nil
		}
		return model.ChatbotItem{}, nil, newError(ErrorCodeInternal, "An internal server error occurred.", err)
	}
	return bot, &tenant, nil
}

func (s *Service) render(apiKey string) (embed.Snippets, error) {
	snippets, err := embed.Render(apiKey, s.baseURL)
	if err != nil {
		return embed.Snippets{}, newError(ErrorCodeInternal, "Could not render embed code.", err)
	}
	return snippets, nil
}

func (s *Service) owned(ctx context.Context, identity Identity, chatbotID, notFound string) (model.ChatbotItem, error) {
	tenantID, err := requireTenant(identity)
	if err != nil {
		return model.ChatbotItem{}, err
	}
	chatbotID = strings.TrimSpace(chatbotID)
	if chatbotID == "" {
		return model.ChatbotItem{}, newError(ErrorCodeNotFound, notFound, nil)
	}

	bot, err := s.repo.GetChatbot(ctx, chatbotID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.ChatbotItem{}, newError(ErrorCodeNotFound, notFound, err)
		}
		return model.ChatbotItem{}, newError(ErrorCodeInternal, "Could not load chatbot.", err)
	}
	if bot.TenantID != tenantID {
		return model.ChatbotItem{}, newError(ErrorCodeNotFound, notFound, nil)
	}
	return bot, nil
}

func requireTenant(identity Identity) (string, error) {
	tenantID := strings.TrimSpace(identity.TenantID)
	if tenantID == "" {
		return "", newError(ErrorCodeUnauthorized, "invalid user identity", nil)
	}
	return tenantID, nil
}
