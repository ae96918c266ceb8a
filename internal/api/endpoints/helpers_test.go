package endpoints

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"chatforge-backend/internal/api"
	internaljwt "chatforge-backend/internal/jwt"
	"chatforge-backend/internal/model"
	"chatforge-backend/internal/notification"
	"chatforge-backend/internal/queue"
	authsvc "chatforge-backend/internal/service/auth"
	chatbotsvc "chatforge-backend/internal/service/chatbot"
)

func fixedTime() time.Time {
	return time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
}

func setupTestJWT(t *testing.T) {
	t.Helper()

	prev := map[internaljwt.Role]string{}
	for k, v := range internaljwt.RoleSecrets {
		prev[k] = v
	}
	internaljwt.RoleSecrets[internaljwt.RoleTenant] = "tenant-test-secret"
	internaljwt.RoleSecrets[internaljwt.RoleAdmin] = "admin-test-secret"

	authsvc.SetTokenIssuer(func(_ context.Context, user internaljwt.User, role internaljwt.Role) (internaljwt.TokenResponse, error) {
		token, err := internaljwt.CreateToken(user, role, 0)
		if err != nil {
			return internaljwt.TokenResponse{}, err
		}
		return internaljwt.TokenResponse{
			AccessToken:  token,
			RefreshToken: "refresh-" + user.ID,
		}, nil
	})
	t.Cleanup(func() {
		authsvc.SetTokenIssuer(nil)
		internaljwt.RoleSecrets = prev
	})
}

func tenantToken(t *testing.T, tenantID string) string {
	t.Helper()
	token, err := internaljwt.CreateToken(internaljwt.User{ID: tenantID, Email: tenantID + "@example.com"}, internaljwt.RoleTenant, 0)
	if err != nil {
		t.Fatalf("create token: %v", err)
	}
	return token
}

func newTestServer(t *testing.T) *api.APIServer {
	t.Helper()
	queueManager := queue.NewRequestQueueManager(10, 2)
	t.Cleanup(queueManager.Shutdown)
	return api.NewAPIServer(":0", queueManager, nil, nil)
}

func doJSONRequest[T any](t *testing.T, handler http.Handler, method, target string, body interface{}, headers map[string]string, expectedStatus int) T {
	t.Helper()

	var payload io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		payload = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, target, payload)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != expectedStatus {
		t.Fatalf("expected status %d, got %d: %s", expectedStatus, rec.Code, rec.Body.String())
	}

	var result T
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	return result
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []notification.Message
}

func (m *recordingMailer) Send(_ context.Context, msg notification.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

// memoryStore backs the auth and chatbot repositories in endpoint tests.
type memoryStore struct {
	mu       sync.Mutex
	tenants  map[string]model.TenantItem
	chatbots map[string]model.ChatbotItem
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		tenants:  make(map[string]model.TenantItem),
		chatbots: make(map[string]model.ChatbotItem),
	}
}

func (m *memoryStore) putTenant(tenant model.TenantItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tenants[tenant.TenantID] = tenant
}

func (m *memoryStore) putChatbot(bot model.ChatbotItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chatbots[bot.ChatbotID] = bot
}

func (m *memoryStore) tenant(id string) (model.TenantItem, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tenant, ok := m.tenants[id]
	return tenant, ok
}

type authStore struct{ *memoryStore }

func (s authStore) CreateTenant(_ context.Context, tenant model.TenantItem) error {
	s.putTenant(tenant)
	return nil
}

func (s authStore) CreateChatbot(_ context.Context, bot model.ChatbotItem) error {
	s.putChatbot(bot)
	return nil
}

func (s authStore) FindTenantByEmail(_ context.Context, email string) (model.TenantItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tenant := range s.tenants {
		if tenant.Email == email {
			return tenant, nil
		}
	}
	return model.TenantItem{}, authsvc.ErrNotFound
}

func (s authStore) GetTenant(_ context.Context, tenantID string) (model.TenantItem, error) {
	tenant, ok := s.tenant(tenantID)
	if !ok {
		return model.TenantItem{}, authsvc.ErrNotFound
	}
	return tenant, nil
}

func (s authStore) SetOTP(_ context.Context, tenantID, otp, expiresAt string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tenant, ok := s.tenants[tenantID]
	if !ok {
		return authsvc.ErrNotFound
	}
	tenant.OTP = otp
	tenant.OTPExpiresAt = expiresAt
	s.tenants[tenantID] = tenant
	return nil
}

func (s authStore) MarkVerified(_ context.Context, tenantID string) (model.TenantItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tenant, ok := s.tenants[tenantID]
	if !ok {
		return model.TenantItem{}, authsvc.ErrNotFound
	}
	tenant.Verified = true
	tenant.OTP = ""
	tenant.OTPExpiresAt = ""
	s.tenants[tenantID] = tenant
	return tenant, nil
}

type chatbotStore struct{ *memoryStore }

func (s chatbotStore) GetTenant(_ context.Context, tenantID string) (model.TenantItem, error) {
	tenant, ok := s.tenant(tenantID)
	if !ok {
		return model.TenantItem{}, chatbotsvc.ErrNotFound
	}
	return tenant, nil
}

func (s chatbotStore) ListChatbots(_ context.Context, tenantID string) ([]model.ChatbotItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ChatbotItem
	for _, bot := range s.chatbots {
		if bot.TenantID == tenantID {
			out = append(out, bot)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out, nil
}

func (s chatbotStore) GetChatbot(_ context.Context, chatbotID string) (model.ChatbotItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bot, ok := s.chatbots[chatbotID]
	if !ok {
		return model.ChatbotItem{}, chatbotsvc.ErrNotFound
	}
	return bot, nil
}

func (s chatbotStore) FindChatbotByAPIKey(_ context.Context, apiKey string) (model.ChatbotItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, bot := range s.chatbots {
		if bot.APIKey == apiKey {
			return bot, nil
		}
	}
	return model.ChatbotItem{}, chatbotsvc.ErrNotFound
}

func (s chatbotStore) CreateChatbot(_ context.Context, bot model.ChatbotItem) error {
	s.putChatbot(bot)
	return nil
}

func (s chatbotStore) UpdateChatbot(_ context.Context, tenantID, chatbotID string, patch chatbotsvc.Patch) (model.ChatbotItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bot, ok := s.chatbots[chatbotID]
	if !ok || bot.TenantID != tenantID {
		return model.ChatbotItem{}, chatbotsvc.ErrNotFound
	}
	if patch.Name != nil {
		bot.Name = *patch.Name
	}
	if patch.Instructions != nil {
		bot.Instructions = *patch.Instructions
	}
	if patch.QA != nil {
		bot.QA = *patch.QA
	}
	if patch.WelcomeMessage != nil {
		bot.WelcomeMessage = *patch.WelcomeMessage
	}
	if patch.Color != nil {
		bot.Color = *patch.Color
	}
	if patch.AuthorizedDomains != nil {
		bot.AuthorizedDomains = *patch.AuthorizedDomains
	}
	s.chatbots[chatbotID] = bot
	return bot, nil
}

func (s chatbotStore) DeleteChatbot(_ context.Context, tenantID, chatbotID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bot, ok := s.chatbots[chatbotID]
	if !ok || bot.TenantID != tenantID {
		return chatbotsvc.ErrNotFound
	}
	delete(s.chatbots, chatbotID)
	return nil
}
