package admin

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	internaljwt "chatforge-backend/internal/jwt"
	"chatforge-backend/internal/model"
	"chatforge-backend/internal/notification"

	"github.com/pquerna/otp/totp"
)

type memoryRepository struct {
	mu          sync.Mutex
	tenants     map[string]model.TenantItem
	chatbots    map[string]model.ChatbotItem
	submissions []model.SubmissionItem
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		tenants:  make(map[string]model.TenantItem),
		chatbots: make(map[string]model.ChatbotItem),
	}
}

func (m *memoryRepository) ListTenants(context.Context) ([]model.TenantItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.TenantItem, 0, len(m.tenants))
	for _, tenant := range m.tenants {
		out = append(out, tenant)
	}
	return out, nil
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
	var out []model.ChatbotItem
	for _, bot := range m.chatbots {
		if bot.TenantID == tenantID {
			out = append(out, bot)
		}
	}
	return out, nil
}

func (m *memoryRepository) DeleteTenant(_ context.Context, tenantID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, bot := range m.chatbots {
		if bot.TenantID == tenantID {
			delete(m.chatbots, id)
		}
	}
	if _, ok := m.tenants[tenantID]; !ok {
		return ErrNotFound
	}
	delete(m.tenants, tenantID)
	return nil
}

func (m *memoryRepository) SetBanned(_ context.Context, tenantID string, banned bool) (model.TenantItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tenant, ok := m.tenants[tenantID]
	if !ok {
		return model.TenantItem{}, ErrNotFound
	}
	tenant.Banned = banned
	m.tenants[tenantID] = tenant
	return tenant, nil
}

func (m *memoryRepository) SetPlan(_ context.Context, tenantID string, plan model.Plan) (model.TenantItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tenant, ok := m.tenants[tenantID]
	if !ok {
		return model.TenantItem{}, ErrNotFound
	}
	tenant.ApplyPlan(plan)
	m.tenants[tenantID] = tenant
	return tenant, nil
}

func (m *memoryRepository) SetChatbotAPIKey(_ context.Context, chatbotID, apiKey string) (model.ChatbotItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bot, ok := m.chatbots[chatbotID]
	if !ok {
		return model.ChatbotItem{}, ErrNotFound
	}
	bot.APIKey = apiKey
	m.chatbots[chatbotID] = bot
	return bot, nil
}

func (m *memoryRepository) DeleteChatbot(_ context.Context, chatbotID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.chatbots[chatbotID]; !ok {
		return ErrNotFound
	}
	delete(m.chatbots, chatbotID)
	return nil
}

func (m *memoryRepository) ListSubmissions(context.Context) ([]model.SubmissionItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.SubmissionItem(nil), m.submissions...), nil
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []notification.Message
}

func (r *recordingMailer) Send(_ context.Context, msg notification.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return nil
}

type fakeWriter struct {
	err error
}

func (f fakeWriter) NewsletterEmail(_ context.Context, prompt string) (string, error) {
	return "<h1>" + prompt + "</h1>", f.err
}

func (f fakeWriter) DirectEmail(_ context.Context, prompt, userName string) (string, error) {
	return "<p>" + userName + ": " + prompt + "</p>", f.err
}

func fixedNow() time.Time {
	return time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
}

func expectCode(t *testing.T, err error, code ErrorCode) {
	t.Helper()
	var svcErr *Error
	if !errors.As(err, &svcErr) {
		t.Fatalf("expected admin error, got %v", err)
	}
	if svcErr.Code != code {
		t.Fatalf("expected code %s, got %s (%s)", code, svcErr.Code, svcErr.Message)
	}
}

func TestAccessWithStaticKey(t *testing.T) {
	internaljwt.RoleSecrets[internaljwt.RoleAdmin] = "admin-secret"
	svc := NewWithRepository(newMemoryRepository(), time.Now, nil, nil, Config{AccessKey: "open-sesame"})

	_, err := svc.Access("wrong")
	expectCode(t, err, ErrorCodeUnauthorized)

	session, err := svc.Access("open-sesame")
	if err != nil {
		t.Fatalf("Access returned error: %v", err)
	}
	if !svc.Authenticated(session.Token) {
		t.Fatalf("expected session to authenticate")
	}
	if svc.Authenticated("garbage") || svc.Authenticated("") {
		t.Fatalf("garbage tokens must not authenticate")
	}
}

func TestAccessWithoutConfiguredKeyAlwaysFails(t *testing.T) {
	svc := NewWithRepository(newMemoryRepository(), time.Now, nil, nil, Config{})
	_, err := svc.Access("anything")
	expectCode(t, err, ErrorCodeUnauthorized)
}

func TestAccessWithTOTP(t *testing.T) {
	internaljwt.RoleSecrets[internaljwt.RoleAdmin] = "admin-secret"
	secret := "JBSWY3DPEHPK3PXP"
	svc := NewWithRepository(newMemoryRepository(), fixedNow, nil, nil, Config{AccessKey: "ignored", TOTPSecret: secret})

	code, err := totp.GenerateCode(secret, fixedNow())
	if err != nil {
		t.Fatalf("GenerateCode returned error: %v", err)
	}
	session, err := svc.Access(code)
	if err != nil {
		t.Fatalf("Access returned error: %v", err)
	}
	if !session.ExpiresAt.Equal(fixedNow().Add(time.Hour)) {
		t.Fatalf("unexpected expiry %s", session.ExpiresAt)
	}

	_, err = svc.Access("ignored")
	expectCode(t, err, ErrorCodeUnauthorized)
}

func TestListUsersFiltersAndStripsSecrets(t *testing.T) {
	repo := newMemoryRepository()
	repo.tenants["a"] = model.TenantItem{TenantID: "a", Email: "alice@shop.com", PasswordHash: "hash", OTP: "ABC123", CreatedAt: "2024-03-01T00:00:00Z"}
	repo.tenants["b"] = model.TenantItem{TenantID: "b", Email: "bob@SHOP.com", CreatedAt: "2024-03-05T00:00:00Z"}
	repo.tenants["c"] = model.TenantItem{TenantID: "c", Email: "carol@other.com", CreatedAt: "2024-03-02T00:00:00Z"}
	svc := NewWithRepository(repo, fixedNow, nil, nil, Config{})

	users, err := svc.ListUsers(context.Background(), "Shop")
	if err != nil {
		t.Fatalf("ListUsers returned error: %v", err)
	}
	if len(users) != 2 || users[0].TenantID != "b" || users[1].TenantID != "a" {
		t.Fatalf("unexpected users %+v", users)
	}
	if users[1].PasswordHash != "" || users[1].OTP != "" {
		t.Fatalf("secrets leaked: %+v", users[1])
	}
}

func TestSetPlanUsesPlanVariant(t *testing.T) {
	repo := newMemoryRepository()
	repo.tenants["a"] = model.TenantItem{TenantID: "a"}
	svc := NewWithRepository(repo, fixedNow, nil, nil, Config{})

	tenant, err := svc.SetPlan(context.Background(), "a", PlanParams{Plan: "Pro", MessageLimit: 5, ChatbotLimit: 5})
	if err != nil {
		t.Fatalf("SetPlan returned error: %v", err)
	}
	if tenant.Plan != "Pro" || tenant.MessageLimit != 50000 || tenant.ChatbotLimit != 10 {
		t.Fatalf("Pro must ignore supplied limits: %+v", tenant)
	}

	tenant, err = svc.SetPlan(context.Background(), "a", PlanParams{Plan: "Enterprise", MessageLimit: 250000, ChatbotLimit: 40})
	if err != nil {
		t.Fatalf("SetPlan returned error: %v", err)
	}
	if tenant.MessageLimit != 250000 || tenant.ChatbotLimit != 40 {
		t.Fatalf("unexpected enterprise limits: %+v", tenant)
	}

	_, err = svc.SetPlan(context.Background(), "a", PlanParams{Plan: "Enterprise", MessageLimit: -1})
	expectCode(t, err, ErrorCodeValidation)
	_, err = svc.SetPlan(context.Background(), "a", PlanParams{Plan: "Gold"})
	expectCode(t, err, ErrorCodeValidation)
	_, err = svc.SetPlan(context.Background(), "missing", PlanParams{Plan: "Free"})
	expectCode(t, err, ErrorCodeNotFound)
}

func TestDeleteUserCascadesChatbots(t *testing.T) {
	repo := newMemoryRepository()
	repo.tenants["a"] = model.TenantItem{TenantID: "a"}
	repo.chatbots["bot-1"] = model.ChatbotItem{ChatbotID: "bot-1", TenantID: "a"}
	repo.chatbots["bot-2"] = model.ChatbotItem{ChatbotID: "bot-2", TenantID: "b"}
	svc := NewWithRepository(repo, fixedNow, nil, nil, Config{})

	if err := svc.DeleteUser(context.Background(), "a"); err != nil {
		t.Fatalf("DeleteUser returned error: %v", err)
	}
	if len(repo.chatbots) != 1 {
		t.Fatalf("expected only the foreign chatbot to remain, got %d", len(repo.chatbots))
	}
	expectCode(t, svc.DeleteUser(context.Background(), "a"), ErrorCodeNotFound)
}

func TestBanAndRegenerateKey(t *testing.T) {
	repo := newMemoryRepository()
	repo.tenants["a"] = model.TenantItem{TenantID: "a"}
	repo.chatbots["bot-1"] = model.ChatbotItem{ChatbotID: "bot-1", TenantID: "a", APIKey: "cfai_old"}
	svc := NewWithRepository(repo, fixedNow, nil, nil, Config{})

	tenant, err := svc.SetBanned(context.Background(), "a", true)
	if err != nil || !tenant.Banned {
		t.Fatalf("SetBanned: %+v %v", tenant, err)
	}

	key, err := svc.RegenerateAPIKey(context.Background(), "bot-1")
	if err != nil {
		t.Fatalf("RegenerateAPIKey returned error: %v", err)
	}
	if key == "cfai_old" || !strings.HasPrefix(key, "cfai_") || repo.chatbots["bot-1"].APIKey != key {
		t.Fatalf("unexpected key %q", key)
	}

	_, err = svc.RegenerateAPIKey(context.Background(), "missing")
	expectCode(t, err, ErrorCodeNotFound)
}

func TestStats(t *testing.T) {
	repo := newMemoryRepository()
	repo.tenants["old"] = model.TenantItem{TenantID: "old", CreatedAt: "2024-01-01T00:00:00Z"}
	repo.tenants["d1"] = model.TenantItem{TenantID: "d1", CreatedAt: "2024-03-10T08:00:00Z"}
	repo.tenants["d2"] = model.TenantItem{TenantID: "d2", CreatedAt: "2024-03-10T09:00:00Z"}
	repo.tenants["d3"] = model.TenantItem{TenantID: "d3", CreatedAt: "2024-03-05T09:00:00Z"}
	for i, stamp := range []string{
		"2024-03-01T00:00:00Z", "2024-03-02T00:00:00Z", "2024-03-03T00:00:00Z",
		"2024-03-04T00:00:00Z", "2024-03-05T00:00:00Z", "2024-03-06T00:00:00Z",
	} {
		repo.submissions = append(repo.submissions, model.SubmissionItem{SubmissionID: string(rune('a' + i)), CreatedAt: stamp})
	}
	svc := NewWithRepository(repo, fixedNow, nil, nil, Config{})

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if stats.TotalUsers != 4 || stats.NewUsers != 3 || stats.TotalSubmissions != 6 {
		t.Fatalf("unexpected totals %+v", stats)
	}
	if len(stats.RecentSubmissions) != 5 || stats.RecentSubmissions[0].CreatedAt != "2024-03-06T00:00:00Z" {
		t.Fatalf("unexpected recent submissions %+v", stats.RecentSubmissions)
	}
	if len(stats.SignupChart) != 7 {
		t.Fatalf("expected 7 chart days, got %d", len(stats.SignupChart))
	}
	if stats.SignupChart[0].Date != "2024-03-04" || stats.SignupChart[6].Date != "2024-03-10" {
		t.Fatalf("unexpected chart range %+v", stats.SignupChart)
	}
	if stats.SignupChart[6].Signups != 2 || stats.SignupChart[1].Signups != 1 {
		t.Fatalf("unexpected chart counts %+v", stats.SignupChart)
	}
}

func TestDirectEmailAndGeneration(t *testing.T) {
	mailer := &recordingMailer{}
	svc := NewWithRepository(newMemoryRepository(), fixedNow, mailer, fakeWriter{}, Config{})

	if err := svc.SendDirectEmail(context.Background(), "user@example.com", "Hello", "Line one"); err != nil {
		t.Fatalf("SendDirectEmail returned error: %v", err)
	}
	if len(mailer.sent) != 1 || mailer.sent[0].FromName != "ChatForge AI Admin" {
		t.Fatalf("unexpected sent mail %+v", mailer.sent)
	}
	expectCode(t, svc.SendDirectEmail(context.Background(), "bad", "Hello", "x"), ErrorCodeValidation)

	html, err := svc.GenerateDirectEmail(context.Background(), "welcome", "Ada")
	if err != nil || html != "<p>Ada: welcome</p>" {
		t.Fatalf("GenerateDirectEmail: %q %v", html, err)
	}
	_, err = svc.GenerateNewsletter(context.Background(), " ")
	expectCode(t, err, ErrorCodeValidation)

	failing := NewWithRepository(newMemoryRepository(), fixedNow, mailer, fakeWriter{err: errors.New("quota")}, Config{})
	_, err = failing.GenerateNewsletter(context.Background(), "spring")
	expectCode(t, err, ErrorCodeUpstream)
}
