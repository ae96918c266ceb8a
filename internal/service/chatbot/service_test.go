package chatbot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"chatforge-backend/internal/model"
)

type memoryRepository struct {
	mu       sync.Mutex
	tenants  map[string]model.TenantItem
	chatbots map[string]model.ChatbotItem
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		tenants:  make(map[string]model.TenantItem),
		chatbots: make(map[string]model.ChatbotItem),
	}
}

func (m *memoryRepository) GetTenant(_ context.Context, tenantID string) (model.TenantItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tenant, ok := m.tenants[tenantID]
	if !ok {
		return model.TenantItem{}, ErrNotFound
	}
	return tenant, nil
}

func (m *memoryRepository) ListChatbots(_ context.Context, tenantID string) ([]model.ChatbotItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var bots []model.ChatbotItem
	for _, bot := range m.chatbots {
		if bot.TenantID == tenantID {
			bots = append(bots, bot)
		}
	}
	return bots, nil
}

func (m *memoryRepository) GetChatbot(_ context.Context, chatbotID string) (model.ChatbotItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bot, ok := m.chatbots[chatbotID]
	if !ok {
		return model.ChatbotItem{}, ErrNotFound
	}
	return bot, nil
}

func (m *memoryRepository) FindChatbotByAPIKey(_ context.Context, apiKey string) (model.ChatbotItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, bot := range m.chatbots {
		if bot.APIKey == apiKey {
			return bot, nil
		}
	}
	return model.ChatbotItem{}, ErrNotFound
}

func (m *memoryRepository) CreateChatbot(_ context.Context, bot model.ChatbotItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chatbots[bot.ChatbotID] = bot
	return nil
}

func (m *memoryRepository) UpdateChatbot(_ context.Context, tenantID, chatbotID string, patch Patch) (model.ChatbotItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bot, ok := m.chatbots[chatbotID]
	if !ok || bot.TenantID != tenantID {
		return model.ChatbotItem{}, ErrNotFound
	}
	bot = applyPatch(bot, patch)
	m.chatbots[chatbotID] = bot
	return bot, nil
}

func (m *memoryRepository) DeleteChatbot(_ context.Context, tenantID, chatbotID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bot, ok := m.chatbots[chatbotID]
	if !ok || bot.TenantID != tenantID {
		return ErrNotFound
	}
	delete(m.chatbots, chatbotID)
	return nil
}

// applyPatch returns bot with the non-nil patch fields applied.
func applyPatch(bot model.ChatbotItem, patch Patch) model.ChatbotItem {
	if patch.Name != nil {
		bot.Name = *patch.Name
	}
	if patch.Instructions != nil {
		bot.Instructions = *patch.Instructions
	}
	if patch.QA != nil {
		bot.QA = append([]model.QAPair(nil), *patch.QA...)
	}
	if patch.WelcomeMessage != nil {
		bot.WelcomeMessage = *patch.WelcomeMessage
	}
	if patch.Color != nil {
		bot.Color = *patch.Color
	}
	if patch.AuthorizedDomains != nil {
		bot.AuthorizedDomains = append([]string(nil), *patch.AuthorizedDomains...)
	}
	return bot
}

func fixedNow() time.Time {
	return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
}

func seed(repo *memoryRepository, plan model.Plan) (model.TenantItem, model.ChatbotItem) {
	tenant := model.TenantItem{TenantID: "tenant-1", Email: "owner@example.com"}
	tenant.ApplyPlan(plan)
	repo.tenants[tenant.TenantID] = tenant

	bot := model.NewChatbot("bot-1", tenant.TenantID, "Helper", "Be brief.", "cfai_00112233445566778899aabbccddeeff", "2024-01-01T00:00:00Z")
	repo.chatbots[bot.ChatbotID] = bot
	return tenant, bot
}

func expectCode(t *testing.T, err error, code ErrorCode, message string) {
	t.Helper()
	var svcErr *Error
	if !errors.As(err, &svcErr) {
		t.Fatalf("expected chatbot error, got %v", err)
	}
	if svcErr.Code != code {
		t.Fatalf("expected code %s, got %s (%s)", code, svcErr.Code, svcErr.Message)
	}
	if message != "" && svcErr.Message != message {
		t.Fatalf("expected message %q, got %q", message, svcErr.Message)
	}
}

func strPtr(s string) *string {
	return &s
}

func TestCreateRespectsChatbotCeiling(t *testing.T) {
	repo := newMemoryRepository()
	tenant, _ := seed(repo, model.FreePlan())
	svc := NewWithRepository(repo, fixedNow, "https://chatforge.example")

	_, err := svc.Create(context.Background(), Identity{TenantID: tenant.TenantID}, "Second")
	expectCode(t, err, ErrorCodeForbidden, "You have reached your chatbot limit for this plan.")

	tenant.ApplyPlan(model.ProPlan())
	repo.tenants[tenant.TenantID] = tenant

	bot, err := svc.Create(context.Background(), Identity{TenantID: tenant.TenantID}, "  Second  ")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if bot.Name != "Second" || bot.Instructions != "You are a helpful assistant named Second." {
		t.Fatalf("unexpected chatbot: %+v", bot)
	}
	if !strings.HasPrefix(bot.APIKey, "cfai_") || bot.CreatedAt != "2024-03-01T09:00:00Z" {
		t.Fatalf("unexpected chatbot key or timestamp: %+v", bot)
	}
	if len(repo.chatbots) != 2 {
		t.Fatalf("expected 2 chatbots, got %d", len(repo.chatbots))
	}
}

func TestCreateValidatesName(t *testing.T) {
	repo := newMemoryRepository()
	tenant, _ := seed(repo, model.ProPlan())
	svc := NewWithRepository(repo, fixedNow, "https://chatforge.example")

	_, err := svc.Create(context.Background(), Identity{TenantID: tenant.TenantID}, "x")
	expectCode(t, err, ErrorCodeValidation, "")
}

func TestEnterpriseZeroChatbotsBlocksCreate(t *testing.T) {
	repo := newMemoryRepository()
	tenant := model.TenantItem{TenantID: "tenant-2"}
	tenant.ApplyPlan(model.EnterprisePlan(model.Limits{Messages: 10, Chatbots: 0}))
	repo.tenants[tenant.TenantID] = tenant
	svc := NewWithRepository(repo, fixedNow, "https://chatforge.example")

	_, err := svc.Create(context.Background(), Identity{TenantID: tenant.TenantID}, "Bot")
	expectCode(t, err, ErrorCodeForbidden, "")
}

func TestUpdateAppliesPartialPatch(t *testing.T) {
	repo := newMemoryRepository()
	tenant, bot := seed(repo, model.FreePlan())
	svc := NewWithRepository(repo, fixedNow, "https://chatforge.example")

	qa := []model.QAPair{{Question: " Hours? ", Answer: " 9-5 "}, {Question: " ", Answer: ""}}
	domains := []string{"https://Shop.Example.com/", "shop.example.com", "", "*.blog.example.org"}
	updated, err := svc.Update(context.Background(), Identity{TenantID: tenant.TenantID}, bot.ChatbotID, Patch{
		Color:             strPtr("#ff00aa"),
		QA:                &qa,
		AuthorizedDomains: &domains,
	})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	if updated.Color != "#FF00AA" {
		t.Fatalf("unexpected color %q", updated.Color)
	}
	if len(updated.QA) != 1 || updated.QA[0].Question != "Hours?" || updated.QA[0].Answer != "9-5" {
		t.Fatalf("unexpected qa %+v", updated.QA)
	}
	if len(updated.AuthorizedDomains) != 2 || updated.AuthorizedDomains[0] != "shop.example.com" || updated.AuthorizedDomains[1] != "blog.example.org" {
		t.Fatalf("unexpected domains %+v", updated.AuthorizedDomains)
	}
	if updated.Name != bot.Name || updated.Instructions != bot.Instructions || updated.WelcomeMessage != bot.WelcomeMessage {
		t.Fatalf("untouched fields changed: %+v", updated)
	}
}

func TestUpdateRejectsInvalidColor(t *testing.T) {
	repo := newMemoryRepository()
	tenant, bot := seed(repo, model.FreePlan())
	svc := NewWithRepository(repo, fixedNow, "https://chatforge.example")

	_, err := svc.Update(context.Background(), Identity{TenantID: tenant.TenantID}, bot.ChatbotID, Patch{Color: strPtr("blue")})
	expectCode(t, err, ErrorCodeValidation, "")
	if repo.chatbots[bot.ChatbotID].Color != model.DefaultColor {
		t.Fatalf("color should not change on validation failure")
	}
}

func TestUpdateRejectsDomainsWithoutHost(t *testing.T) {
	repo := newMemoryRepository()
	tenant, bot := seed(repo, model.FreePlan())
	bot.AuthorizedDomains = []string{"acme.com"}
	repo.chatbots[bot.ChatbotID] = bot
	svc := NewWithRepository(repo, fixedNow, "https://chatforge.example")

	for _, entry := range []string{"https://", "*.", "http://:8080/path"} {
		domains := []string{entry}
		_, err := svc.Update(context.Background(), Identity{TenantID: tenant.TenantID}, bot.ChatbotID, Patch{AuthorizedDomains: &domains})
		expectCode(t, err, ErrorCodeValidation, "")
	}
	if got := repo.chatbots[bot.ChatbotID].AuthorizedDomains; len(got) != 1 || got[0] != "acme.com" {
		t.Fatalf("allow-list changed on validation failure: %v", got)
	}
}

func TestEmptyPatchReturnsCurrentState(t *testing.T) {
	repo := newMemoryRepository()
	tenant, bot := seed(repo, model.FreePlan())
	svc := NewWithRepository(repo, fixedNow, "https://chatforge.example")

	current, err := svc.Update(context.Background(), Identity{TenantID: tenant.TenantID}, bot.ChatbotID, Patch{})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if current.ChatbotID != bot.ChatbotID || current.Name != bot.Name {
		t.Fatalf("unexpected chatbot %+v", current)
	}
}

func TestForeignChatbotIsNotFound(t *testing.T) {
	repo := newMemoryRepository()
	_, bot := seed(repo, model.FreePlan())
	svc := NewWithRepository(repo, fixedNow, "https://chatforge.example")
	intruder := Identity{TenantID: "someone-else"}

	_, err := svc.Update(context.Background(), intruder, bot.ChatbotID, Patch{Name: strPtr("Taken")})
	expectCode(t, err, ErrorCodeNotFound, "Chatbot not found or you do not have permission to edit it.")

	_, err = svc.Get(context.Background(), intruder, bot.ChatbotID)
	expectCode(t, err, ErrorCodeNotFound, "Chatbot not found or you do not have permission to edit it.")

	err = svc.Delete(context.Background(), intruder, bot.ChatbotID)
	expectCode(t, err, ErrorCodeNotFound, "Chatbot not found or you do not have permission to delete it.")

	if _, ok := repo.chatbots[bot.ChatbotID]; !ok {
		t.Fatalf("chatbot should survive a foreign delete")
	}
}

func TestDeleteOwnChatbot(t *testing.T) {
	repo := newMemoryRepository()
	tenant, bot := seed(repo, model.FreePlan())
	svc := NewWithRepository(repo, fixedNow, "https://chatforge.example")

	if err := svc.Delete(context.Background(), Identity{TenantID: tenant.TenantID}, bot.ChatbotID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if len(repo.chatbots) != 0 {
		t.Fatalf("chatbot not deleted")
	}
}

func TestPublicConfig(t *testing.T) {
	repo := newMemoryRepository()
	tenant, bot := seed(repo, model.ProPlan())
	svc := NewWithRepository(repo, fixedNow, "https://chatforge.example")

	first, err := svc.PublicConfig(context.Background(), bot.APIKey)
	if err != nil {
		t.Fatalf("PublicConfig returned error: %v", err)
	}
	if first.Name != "Helper" || first.Welcome != model.DefaultWelcomeMessage || first.Color != model.DefaultColor || first.Plan != "Pro" {
		t.Fatalf("unexpected config %+v", first)
	}
	second, err := svc.PublicConfig(context.Background(), bot.APIKey)
	if err != nil || second != first {
		t.Fatalf("repeated config differs: %+v vs %+v (%v)", second, first, err)
	}

	_, err = svc.PublicConfig(context.Background(), "cfai_missing")
	expectCode(t, err, ErrorCodeUnauthorized, "Invalid API key.")

	tenant.Banned = true
	repo.tenants[tenant.TenantID] = tenant
	_, err = svc.PublicConfig(context.Background(), bot.APIKey)
	expectCode(t, err, ErrorCodeForbidden, "This chatbot has been disabled.")
}

func TestPublicConfigDefaults(t *testing.T) {
	repo := newMemoryRepository()
	repo.chatbots["bare"] = model.ChatbotItem{ChatbotID: "bare", TenantID: "gone", APIKey: "cfai_000000000000000000000000000000aa"}
	svc := NewWithRepository(repo, fixedNow, "https://chatforge.example")

	cfg, err := svc.PublicConfig(context.Background(), "cfai_000000000000000000000000000000aa")
	if err != nil {
		t.Fatalf("PublicConfig returned error: %v", err)
	}
	want := PublicConfig{Name: "Chat with us", Welcome: "Hello! How can I help you today?", Color: "#007BFF", Plan: "Free"}
	if cfg != want {
		t.Fatalf("expected %+v, got %+v", want, cfg)
	}
}

func TestEmbedUsesChatbotKey(t *testing.T) {
	repo := newMemoryRepository()
	tenant, bot := seed(repo, model.FreePlan())
	svc := NewWithRepository(repo, fixedNow, "https://chatforge.example/")

	snippets, err := svc.Embed(context.Background(), Identity{TenantID: tenant.TenantID}, bot.ChatbotID)
	if err != nil {
		t.Fatalf("Embed returned error: %v", err)
	}
	if !strings.Contains(snippets.HTML, bot.APIKey) || !strings.Contains(snippets.HTML, "var APP_URL = 'https://chatforge.example';") {
		t.Fatalf("html snippet missing key or base url")
	}
}
