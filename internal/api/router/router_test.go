package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"chatforge-backend/internal/api"
	"chatforge-backend/internal/api/middleware"
	"chatforge-backend/internal/dto"
	internaljwt "chatforge-backend/internal/jwt"
	"chatforge-backend/internal/model"
	"chatforge-backend/internal/notification"
	"chatforge-backend/internal/queue"
	adminsvc "chatforge-backend/internal/service/admin"
	"chatforge-backend/internal/service/outreach"
	"chatforge-backend/internal/websocket"
)

const (
	adminPrefix  = "/api/admin/v1"
	publicPrefix = "/api/public/v1"
	wsPrefix     = "/api/ws/v1"
	accessKey    = "open-sesame"
)

// backend implements both the admin and outreach repositories over one set
// of maps so the dashboard stats see public submissions.
type backend struct {
	mu          sync.Mutex
	tenants     map[string]model.TenantItem
	chatbots    map[string]model.ChatbotItem
	submissions map[string]model.SubmissionItem
	subscribers map[string]model.SubscriberItem
}

func newBackend() *backend {
	return &backend{
		tenants:     make(map[string]model.TenantItem),
		chatbots:    make(map[string]model.ChatbotItem),
		submissions: make(map[string]model.SubmissionItem),
		subscribers: make(map[string]model.SubscriberItem),
	}
}

func (b *backend) ListTenants(context.Context) ([]model.TenantItem, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]model.TenantItem, 0, len(b.tenants))
	for _, tenant := range b.tenants {
		out = append(out, tenant)
	}
	return out, nil
}

func (b *backend) GetTenant(_ context.Context, tenantID string) (model.TenantItem, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	tenant, ok := b.tenants[tenantID]
	if !ok {
		return model.TenantItem{}, adminsvc.ErrNotFound
	}
	return tenant, nil
}

func (b *backend) ListChatbots(_ context.Context, tenantID string) ([]model.ChatbotItem, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []model.ChatbotItem
	for _, bot := range b.chatbots {
		if bot.TenantID == tenantID {
			out = append(out, bot)
		}
	}
	return out, nil
}

func (b *backend) DeleteTenant(_ context.Context, tenantID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.tenants[tenantID]; !ok {
		return adminsvc.ErrNotFound
	}
	for id, bot := range b.chatbots {
		if bot.TenantID == tenantID {
			delete(b.chatbots, id)
		}
	}
	delete(b.tenants, tenantID)
	return nil
}

func (b *backend) SetBanned(_ context.Context, tenantID string, banned bool) (model.TenantItem, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	tenant, ok := b.tenants[tenantID]
	if !ok {
		return model.TenantItem{}, adminsvc.ErrNotFound
	}
	tenant.Banned = banned
	b.tenants[tenantID] = tenant
	return tenant, nil
}

func (b *backend) SetPlan(_ context.Context, tenantID string, plan model.Plan) (model.TenantItem, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	tenant, ok := b.tenants[tenantID]
	if !ok {
		return model.TenantItem{}, adminsvc.ErrNotFound
	}
	tenant.ApplyPlan(plan)
	b.tenants[tenantID] = tenant
	return tenant, nil
}

func (b *backend) SetChatbotAPIKey(_ context.Context, chatbotID, apiKey string) (model.ChatbotItem, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	bot, ok := b.chatbots[chatbotID]
	if !ok {
		return model.ChatbotItem{}, adminsvc.ErrNotFound
	}
	bot.APIKey = apiKey
	b.chatbots[chatbotID] = bot
	return bot, nil
}

func (b *backend) DeleteChatbot(_ context.Context, chatbotID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.chatbots[chatbotID]; !ok {
		return adminsvc.ErrNotFound
	}
	delete(b.chatbots, chatbotID)
	return nil
}

func (b *backend) CreateSubmission(_ context.Context, submission model.SubmissionItem) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.submissions[submission.SubmissionID] = submission
	return nil
}

func (b *backend) ListSubmissions(context.Context) ([]model.SubmissionItem, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]model.SubmissionItem, 0, len(b.submissions))
	for _, submission := range b.submissions {
		out = append(out, submission)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

func (b *backend) ResolveSubmission(_ context.Context, submissionID string, status model.SubmissionStatus) (model.SubmissionItem, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	submission, ok := b.submissions[submissionID]
	if !ok || submission.Status != model.SubmissionPending {
		return model.SubmissionItem{}, outreach.ErrNotFound
	}
	submission.Status = status
	b.submissions[submissionID] = submission
	return submission, nil
}

func (b *backend) DeleteSubmission(_ context.Context, submissionID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.submissions[submissionID]; !ok {
		return outreach.ErrNotFound
	}
	delete(b.submissions, submissionID)
	return nil
}

func (b *backend) AddSubscriber(_ context.Context, subscriber model.SubscriberItem) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subscribers[subscriber.Email]; ok {
		return outreach.ErrAlreadyExists
	}
	b.subscribers[subscriber.Email] = subscriber
	return nil
}

func (b *backend) ListSubscribers(context.Context) ([]model.SubscriberItem, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]model.SubscriberItem, 0, len(b.subscribers))
	for _, sub := range b.subscribers {
		out = append(out, sub)
	}
	return out, nil
}

func (b *backend) ListTenantEmails(context.Context) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.tenants))
	for _, tenant := range b.tenants {
		out = append(out, tenant.Email)
	}
	return out, nil
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

func (m *recordingMailer) recipients() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sent))
	for _, msg := range m.sent {
		out = append(out, msg.To)
	}
	sort.Strings(out)
	return out
}

type fakeWriter struct{}

func (fakeWriter) NewsletterEmail(_ context.Context, prompt string) (string, error) {
	return "<p>" + prompt + "</p>", nil
}

func (fakeWriter) DirectEmail(_ context.Context, prompt, userName string) (string, error) {
	return "<p>Hi " + userName + "</p>", nil
}

type harness struct {
	handler http.Handler
	store   *backend
	mailer  *recordingMailer
}

func setupHarness(t *testing.T) *harness {
	t.Helper()

	prev := internaljwt.RoleSecrets
	internaljwt.RoleSecrets = map[internaljwt.Role]string{
		internaljwt.RoleTenant: "tenant-test-secret",
		internaljwt.RoleAdmin:  "admin-test-secret",
	}
	t.Cleanup(func() { internaljwt.RoleSecrets = prev })

	store := newBackend()
	mailer := &recordingMailer{}
	now := func() time.Time { return time.Now().UTC() }

	admin := adminsvc.NewWithRepository(store, now, mailer, fakeWriter{}, adminsvc.Config{AccessKey: accessKey})
	outreachService := outreach.NewWithRepository(store, now, mailer, nil)

	queueManager := queue.NewRequestQueueManager(10, 2)
	t.Cleanup(queueManager.Shutdown)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := websocket.NewHub()
	go hub.Run(ctx)
	usage := websocket.NewHandler(hub, func(string) (string, error) { return "", errors.New("no tenants") })

	server := api.NewAPIServer(":0", queueManager, nil, nil,
		UtilsRoutes(publicPrefix),
		OutreachPublicRoutes(publicPrefix, outreachService),
		AdminRoutes(adminPrefix, admin, false),
		OutreachAdminRoutes(adminPrefix, outreachService),
		UsageRoutes(wsPrefix, usage),
	)

	return &harness{handler: server.Routes(), store: store, mailer: mailer}
}

func (h *harness) do(t *testing.T, method, target string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
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
	if cookie != nil {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder, expectedStatus int) T {
	t.Helper()
	if rec.Code != expectedStatus {
		t.Fatalf("expected status %d, got %d: %s", expectedStatus, rec.Code, rec.Body.String())
	}
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

type messageResponse struct {
	Message string              `json:"message"`
	Fields  map[string][]string `json:"fields"`
}

func (h *harness) login(t *testing.T) *http.Cookie {
	t.Helper()
	rec := h.do(t, http.MethodPost, adminPrefix+"/access", dto.AccessRequest{Key: accessKey}, nil)
	resp := decode[dto.AccessResponse](t, rec, http.StatusOK)
	if !resp.IsAuthenticated || resp.ExpiresAt == "" {
		t.Fatalf("unexpected access response %#v", resp)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.AdminCookieName {
			if !c.HttpOnly || c.MaxAge != 3600 {
				t.Fatalf("unexpected cookie attributes %#v", c)
			}
			return c
		}
	}
	t.Fatal("admin session cookie not set")
	return nil
}

func TestHealthRoute(t *testing.T) {
	h := setupHarness(t)
	resp := decode[map[string]string](t, h.do(t, http.MethodGet, publicPrefix+"/health", nil, nil), http.StatusOK)
	if resp["status"] != "ok" {
		t.Fatalf("unexpected health response %v", resp)
	}
}

func TestUsageRoomsUseAdminSession(t *testing.T) {
	h := setupHarness(t)

	resp := decode[messageResponse](t, h.do(t, http.MethodGet, wsPrefix+"/rooms", nil, nil), http.StatusUnauthorized)
	if resp.Message != "Admin authentication required." {
		t.Fatalf("unexpected message %q", resp.Message)
	}

	tenantToken, err := internaljwt.CreateToken(internaljwt.User{ID: "tenant-1"}, internaljwt.RoleTenant, 0)
	if err != nil {
		t.Fatalf("CreateToken returned error: %v", err)
	}
	forged := &http.Cookie{Name: middleware.AdminCookieName, Value: tenantToken}
	decode[messageResponse](t, h.do(t, http.MethodGet, wsPrefix+"/rooms", nil, forged), http.StatusUnauthorized)

	rooms := decode[[]websocket.RoomRes](t, h.do(t, http.MethodGet, wsPrefix+"/rooms", nil, h.login(t)), http.StatusOK)
	if len(rooms) != 0 {
		t.Fatalf("expected no rooms, got %+v", rooms)
	}
}

func TestAdminAccessFlow(t *testing.T) {
	h := setupHarness(t)

	resp := decode[messageResponse](t, h.do(t, http.MethodGet, adminPrefix+"/users", nil, nil), http.StatusUnauthorized)
	if resp.Message != "Admin authentication required." {
		t.Fatalf("unexpected message %q", resp.Message)
	}

	resp = decode[messageResponse](t, h.do(t, http.MethodPost, adminPrefix+"/access", dto.AccessRequest{Key: "wrong"}, nil), http.StatusUnauthorized)
	if resp.Message != "Invalid access key." {
		t.Fatalf("unexpected message %q", resp.Message)
	}

	status := decode[dto.AccessResponse](t, h.do(t, http.MethodGet, adminPrefix+"/access", nil, nil), http.StatusOK)
	if status.IsAuthenticated {
		t.Fatal("expected unauthenticated status without a cookie")
	}

	cookie := h.login(t)
	status = decode[dto.AccessResponse](t, h.do(t, http.MethodGet, adminPrefix+"/access", nil, cookie), http.StatusOK)
	if !status.IsAuthenticated {
		t.Fatal("expected authenticated status with the session cookie")
	}

	rec := h.do(t, http.MethodDelete, adminPrefix+"/access", nil, cookie)
	decode[dto.AccessResponse](t, rec, http.StatusOK)
	cleared := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.AdminCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatal("logout should expire the session cookie")
	}
}

func TestAdminUserManagement(t *testing.T) {
	h := setupHarness(t)

	older := model.TenantItem{TenantID: "t-1", Email: "old@example.com", PasswordHash: "hash", CreatedAt: "2024-01-01T00:00:00Z"}
	older.ApplyPlan(model.FreePlan())
	newer := model.TenantItem{TenantID: "t-2", Email: "new@example.com", CreatedAt: "2024-02-01T00:00:00Z"}
	newer.ApplyPlan(model.FreePlan())
	h.store.tenants[older.TenantID] = older
	h.store.tenants[newer.TenantID] = newer
	h.store.chatbots["bot-1"] = model.NewChatbot("bot-1", "t-1", "Support", "", "cfai_00000000000000000000000000000009", "2024-01-02T00:00:00Z")

	cookie := h.login(t)

	users := decode[[]dto.AdminUserResponse](t, h.do(t, http.MethodGet, adminPrefix+"/users", nil, cookie), http.StatusOK)
	if len(users) != 2 || users[0].TenantID != "t-2" {
		t.Fatalf("expected newest first, got %#v", users)
	}

	filtered := decode[[]dto.AdminUserResponse](t, h.do(t, http.MethodGet, adminPrefix+"/users?q=OLD", nil, cookie), http.StatusOK)
	if len(filtered) != 1 || filtered[0].TenantID != "t-1" {
		t.Fatalf("unexpected filter result %#v", filtered)
	}

	details := decode[dto.AdminUserDetailsResponse](t, h.do(t, http.MethodGet, adminPrefix+"/users/t-1", nil, cookie), http.StatusOK)
	if len(details.Chatbots) != 1 || details.User.Email != "old@example.com" {
		t.Fatalf("unexpected details %#v", details)
	}

	resp := decode[messageResponse](t, h.do(t, http.MethodPatch, adminPrefix+"/users/t-1/status", map[string]any{}, cookie), http.StatusBadRequest)
	if resp.Message != "Invalid input." {
		t.Fatalf("unexpected message %q", resp.Message)
	}

	banned := decode[dto.AdminUserResponse](t, h.do(t, http.MethodPatch, adminPrefix+"/users/t-1/status", map[string]any{"isBanned": true}, cookie), http.StatusOK)
	if !banned.IsBanned {
		t.Fatal("expected tenant to be banned")
	}

	enterprise := decode[dto.AdminUserResponse](t, h.do(t, http.MethodPatch, adminPrefix+"/users/t-1/plan", dto.UserPlanRequest{Plan: "Enterprise", MessageLimit: 90000, ChatbotLimit: 25}, cookie), http.StatusOK)
	if enterprise.Plan != "Enterprise" || enterprise.MessageLimit != 90000 || enterprise.ChatbotLimit != 25 {
		t.Fatalf("unexpected plan result %#v", enterprise)
	}
	decode[messageResponse](t, h.do(t, http.MethodPatch, adminPrefix+"/users/t-1/plan", dto.UserPlanRequest{Plan: "Platinum"}, cookie), http.StatusBadRequest)

	key := decode[dto.RegenerateKeyResponse](t, h.do(t, http.MethodPost, adminPrefix+"/chatbots/bot-1/regenerate-key", nil, cookie), http.StatusOK)
	if !strings.HasPrefix(key.APIKey, "cfai_") || key.APIKey == "cfai_00000000000000000000000000000009" {
		t.Fatalf("expected a fresh key, got %q", key.APIKey)
	}

	decode[messageResponse](t, h.do(t, http.MethodDelete, adminPrefix+"/users/t-1", nil, cookie), http.StatusOK)
	decode[messageResponse](t, h.do(t, http.MethodGet, adminPrefix+"/users/t-1", nil, cookie), http.StatusNotFound)
	decode[messageResponse](t, h.do(t, http.MethodDelete, adminPrefix+"/chatbots/bot-1", nil, cookie), http.StatusNotFound)

	generated := decode[dto.GenerateResponse](t, h.do(t, http.MethodPost, adminPrefix+"/email/generate", dto.GenerateRequest{Prompt: "welcome", UserName: "Sam"}, cookie), http.StatusOK)
	if generated.Content != "<p>Hi Sam</p>" {
		t.Fatalf("unexpected generated content %q", generated.Content)
	}
}

func TestSubmissionLifecycle(t *testing.T) {
	h := setupHarness(t)

	resp := decode[messageResponse](t, h.do(t, http.MethodPost, publicPrefix+"/submissions", dto.SubmissionRequest{Name: "A", Email: "bad", Plan: "Free", Message: "short"}, nil), http.StatusBadRequest)
	for _, field := range []string{"name", "email", "plan", "message"} {
		if len(resp.Fields[field]) == 0 {
			t.Fatalf("expected a %s field error, got %v", field, resp.Fields)
		}
	}

	created := decode[dto.SubmissionResponse](t, h.do(t, http.MethodPost, publicPrefix+"/submissions", dto.SubmissionRequest{
		Name:    "Ada Lovelace",
		Email:   "Ada@Example.com",
		Plan:    "Pro",
		Message: "We would like the Pro plan for our shop.",
	}, nil), http.StatusCreated)
	if created.Status != "pending" || created.Email != "ada@example.com" {
		t.Fatalf("unexpected submission %#v", created)
	}

	cookie := h.login(t)
	target := adminPrefix + "/submissions/" + created.SubmissionID

	decode[messageResponse](t, h.do(t, http.MethodPatch, target, dto.UpdateSubmissionRequest{Status: "pending"}, cookie), http.StatusBadRequest)

	accepted := decode[dto.SubmissionResponse](t, h.do(t, http.MethodPatch, target, dto.UpdateSubmissionRequest{Status: "accepted"}, cookie), http.StatusOK)
	if accepted.Status != "accepted" {
		t.Fatalf("unexpected status %q", accepted.Status)
	}
	if got := h.mailer.recipients(); len(got) != 1 || got[0] != "ada@example.com" {
		t.Fatalf("expected a status email to the requester, got %v", got)
	}

	resp = decode[messageResponse](t, h.do(t, http.MethodPatch, target, dto.UpdateSubmissionRequest{Status: "rejected"}, cookie), http.StatusConflict)
	if resp.Message != "Submission not found or already processed." {
		t.Fatalf("unexpected message %q", resp.Message)
	}

	stats := decode[dto.StatsResponse](t, h.do(t, http.MethodGet, adminPrefix+"/stats", nil, cookie), http.StatusOK)
	if stats.TotalSubmissions != 1 || len(stats.SignupChart) != 7 {
		t.Fatalf("unexpected stats %#v", stats)
	}

	decode[messageResponse](t, h.do(t, http.MethodDelete, target, nil, cookie), http.StatusOK)
	decode[messageResponse](t, h.do(t, http.MethodDelete, target, nil, cookie), http.StatusNotFound)
}

func TestNewsletter(t *testing.T) {
	h := setupHarness(t)
	cookie := h.login(t)

	resp := decode[messageResponse](t, h.do(t, http.MethodPost, adminPrefix+"/newsletter/send", dto.NewsletterSendRequest{Subject: "News", HTMLContent: "<p>hi</p>"}, cookie), http.StatusBadRequest)
	if resp.Message != "There are no subscribers to send to." {
		t.Fatalf("unexpected message %q", resp.Message)
	}

	for _, email := range []string{"one@example.com", "two@example.com"} {
		decode[messageResponse](t, h.do(t, http.MethodPost, publicPrefix+"/newsletter/subscribe", dto.SubscribeRequest{Email: email}, nil), http.StatusCreated)
	}
	resp = decode[messageResponse](t, h.do(t, http.MethodPost, publicPrefix+"/newsletter/subscribe", dto.SubscribeRequest{Email: "ONE@example.com"}, nil), http.StatusConflict)
	if resp.Message != "This email is already subscribed." {
		t.Fatalf("unexpected message %q", resp.Message)
	}

	subscribers := decode[[]dto.SubscriberResponse](t, h.do(t, http.MethodGet, adminPrefix+"/subscribers", nil, cookie), http.StatusOK)
	if len(subscribers) != 2 {
		t.Fatalf("expected two subscribers, got %d", len(subscribers))
	}

	result := decode[dto.SendResultResponse](t, h.do(t, http.MethodPost, adminPrefix+"/newsletter/send", dto.NewsletterSendRequest{Subject: "News", HTMLContent: "<p>hi</p>"}, cookie), http.StatusOK)
	if result.Recipients != 2 || result.Failed != 0 || result.Message != "Newsletter sent to 2 recipients." {
		t.Fatalf("unexpected send result %#v", result)
	}
	if got := h.mailer.recipients(); len(got) != 2 || got[0] != "one@example.com" || got[1] != "two@example.com" {
		t.Fatalf("expected one message per subscriber, got %v", got)
	}
}
