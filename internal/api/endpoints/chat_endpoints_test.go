package endpoints

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"chatforge-backend/internal/dto"
	"chatforge-backend/internal/llm"
	"chatforge-backend/internal/model"
	chatsvc "chatforge-backend/internal/service/chat"
	"chatforge-backend/internal/service/gate"
)

type fakeAdmitter struct {
	mu       sync.Mutex
	decision gate.Decision
	err      error
	origins  []string
	refunds  []string
}

func (f *fakeAdmitter) Admit(_ context.Context, req gate.Request) (gate.Decision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.origins = append(f.origins, req.Origin)
	return f.decision, f.err
}

func (f *fakeAdmitter) Refund(_ context.Context, tenantID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refunds = append(f.refunds, tenantID)
	return nil
}

func (f *fakeAdmitter) refunded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.refunds...)
}

type fakeGenerator struct {
	mu        sync.Mutex
	prompts   []string
	reply     string
	err       error
	chunks    []string
	streamErr error
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

func (f *fakeGenerator) Stream(_ context.Context, prompt string) (llm.Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return nil, f.err
	}
	return &scriptedStream{chunks: append([]string(nil), f.chunks...), err: f.streamErr}, nil
}

// scriptedStream yields chunks then ends with err, or io.EOF when err is nil.
type scriptedStream struct {
	chunks []string
	err    error
}

func (s *scriptedStream) Recv() (string, error) {
	if len(s.chunks) == 0 {
		if s.err != nil {
			return "", s.err
		}
		return "", io.EOF
	}
	next := s.chunks[0]
	s.chunks = s.chunks[1:]
	return next, nil
}

func (s *scriptedStream) Close() error { return nil }

func admitted() gate.Decision {
	bot := model.NewChatbot("bot-1", "tenant-1", "Support", "Be brief.", "cfai_00000000000000000000000000000003", "2024-05-01T12:00:00Z")
	return gate.Decision{
		Outcome: gate.OutcomeAdmitted,
		Chatbot: bot,
		Tenant:  model.TenantItem{TenantID: "tenant-1"},
	}
}

func setupChatHandler(t *testing.T, admitter *fakeAdmitter, gen *fakeGenerator) http.Handler {
	t.Helper()

	chatEndpoints := NewChatEndpoints(admitter, chatsvc.New(gen))
	s := newTestServer(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/public/v1/chat", s.MakeStreamHandleFunc(chatEndpoints.Chat))
	mux.HandleFunc("/api/public/v1/demo/chat", s.MakeHTTPHandleFunc(chatEndpoints.Demo))
	return mux
}

func TestChatValidatesBeforeAdmission(t *testing.T) {
	admitter := &fakeAdmitter{decision: admitted()}
	handler := setupChatHandler(t, admitter, &fakeGenerator{reply: "hi"})

	resp := doJSONRequest[ApiMessageResponse](t, handler, http.MethodPost, "/api/public/v1/chat", dto.ChatRequest{Message: "hello"}, nil, http.StatusUnauthorized)
	if resp.Message != "API key is required." {
		t.Fatalf("unexpected message %q", resp.Message)
	}

	resp = doJSONRequest[ApiMessageResponse](t, handler, http.MethodPost, "/api/public/v1/chat", dto.ChatRequest{APIKey: "cfai_x", Message: "  "}, nil, http.StatusBadRequest)
	if resp.Message != "Message is required." {
		t.Fatalf("unexpected message %q", resp.Message)
	}

	if len(admitter.origins) != 0 {
		t.Fatalf("gate should not be consulted for invalid requests")
	}
}

func TestChatPolicyRejectionIsAReply(t *testing.T) {
	admitter := &fakeAdmitter{decision: gate.Decision{Outcome: gate.OutcomePolicyRejected, Message: gate.MessageDomainRejected}}
	gen := &fakeGenerator{reply: "should not be used"}
	handler := setupChatHandler(t, admitter, gen)

	headers := map[string]string{"Origin": "https://evil.example"}
	resp := doJSONRequest[dto.ChatResponse](t, handler, http.MethodPost, "/api/public/v1/chat", dto.ChatRequest{APIKey: "cfai_x", Message: "hello"}, headers, http.StatusOK)
	if resp.Reply != gate.MessageDomainRejected {
		t.Fatalf("unexpected reply %q", resp.Reply)
	}
	if len(gen.prompts) != 0 {
		t.Fatal("generator should not run for rejected requests")
	}
	if admitter.origins[0] != "https://evil.example" {
		t.Fatalf("origin not forwarded, got %q", admitter.origins[0])
	}
}

func TestChatGateErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid key", &gate.Error{Code: gate.ErrorCodeInvalidCredential, Message: gate.MessageInvalidCredential}, http.StatusUnauthorized},
		{"banned", &gate.Error{Code: gate.ErrorCodeAccessDisabled, Message: gate.MessageAccessDisabled}, http.StatusForbidden},
		{"quota", &gate.Error{Code: gate.ErrorCodeQuotaExceeded, Message: gate.MessageQuotaExceeded}, http.StatusTooManyRequests},
		{"orphan", &gate.Error{Code: gate.ErrorCodeInternalInconsistency, Message: gate.MessageOwnerNotFound}, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := setupChatHandler(t, &fakeAdmitter{err: tc.err}, &fakeGenerator{})
			resp := doJSONRequest[ApiMessageResponse](t, handler, http.MethodPost, "/api/public/v1/chat", dto.ChatRequest{APIKey: "cfai_x", Message: "hello"}, nil, tc.status)
			if resp.Message != tc.err.Error() {
				t.Fatalf("expected %q, got %q", tc.err.Error(), resp.Message)
			}
		})
	}
}

func TestChatSingleShot(t *testing.T) {
	admitter := &fakeAdmitter{decision: admitted()}
	gen := &fakeGenerator{reply: "Hello there"}
	handler := setupChatHandler(t, admitter, gen)

	resp := doJSONRequest[dto.ChatResponse](t, handler, http.MethodPost, "/api/public/v1/chat", dto.ChatRequest{
		APIKey:  "cfai_x",
		Message: "hello",
		History: []dto.HistoryTurn{{Role: "user", Text: "earlier question"}},
	}, nil, http.StatusOK)
	if resp.Reply != "Hello there" {
		t.Fatalf("unexpected reply %q", resp.Reply)
	}
	if !strings.Contains(gen.prompts[0], "Be brief.") || !strings.Contains(gen.prompts[0], "earlier question") {
		t.Fatalf("prompt missing instructions or history: %s", gen.prompts[0])
	}
	if len(admitter.refunded()) != 0 {
		t.Fatal("successful reply should not be refunded")
	}
}

func TestChatUpstreamFailureRefunds(t *testing.T) {
	admitter := &fakeAdmitter{decision: admitted()}
	handler := setupChatHandler(t, admitter, &fakeGenerator{err: errors.New("model unavailable")})

	resp := doJSONRequest[ApiMessageResponse](t, handler, http.MethodPost, "/api/public/v1/chat", dto.ChatRequest{APIKey: "cfai_x", Message: "hello"}, nil, http.StatusBadGateway)
	if resp.Message != chatsvc.MessageGenerationFailed {
		t.Fatalf("unexpected message %q", resp.Message)
	}
	if refunds := admitter.refunded(); len(refunds) != 1 || refunds[0] != "tenant-1" {
		t.Fatalf("expected one refund for tenant-1, got %v", refunds)
	}
}

func postStream(t *testing.T, handler http.Handler) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(dto.ChatRequest{APIKey: "cfai_x", Message: "hello", Stream: true})
	req := httptest.NewRequest(http.MethodPost, "/api/public/v1/chat", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestChatStreamsFragments(t *testing.T) {
	admitter := &fakeAdmitter{decision: admitted()}
	handler := setupChatHandler(t, admitter, &fakeGenerator{chunks: []string{"Hel", "", "lo"}})

	rec := postStream(t, handler)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	want := "data: {\"text\":\"Hel\"}\n\ndata: {\"text\":\"lo\"}\n\nevent: done\ndata: {}\n\n"
	if rec.Body.String() != want {
		t.Fatalf("unexpected stream body:\n%s", rec.Body.String())
	}
	if len(admitter.refunded()) != 0 {
		t.Fatal("completed stream should not be refunded")
	}
}

func TestChatStreamFailureBeforeFirstFragmentRefunds(t *testing.T) {
	admitter := &fakeAdmitter{decision: admitted()}
	handler := setupChatHandler(t, admitter, &fakeGenerator{streamErr: errors.New("reset")})

	rec := postStream(t, handler)
	if !strings.Contains(rec.Body.String(), "event: error\n") {
		t.Fatalf("expected error event, got %s", rec.Body.String())
	}
	if len(admitter.refunded()) != 1 {
		t.Fatalf("expected a refund, got %v", admitter.refunded())
	}
}

func TestChatStreamFailureAfterFragmentKeepsCharge(t *testing.T) {
	admitter := &fakeAdmitter{decision: admitted()}
	handler := setupChatHandler(t, admitter, &fakeGenerator{chunks: []string{"partial"}, streamErr: errors.New("reset")})

	rec := postStream(t, handler)
	if !strings.HasPrefix(rec.Body.String(), "data: {\"text\":\"partial\"}\n\n") {
		t.Fatalf("expected partial fragment first, got %s", rec.Body.String())
	}
	if len(admitter.refunded()) != 0 {
		t.Fatalf("partial stream should stay charged, got %v", admitter.refunded())
	}
}

func TestDemoChat(t *testing.T) {
	gen := &fakeGenerator{reply: "ChatForge is great"}
	handler := setupChatHandler(t, &fakeAdmitter{}, gen)

	resp := doJSONRequest[ApiMessageResponse](t, handler, http.MethodPost, "/api/public/v1/demo/chat", dto.DemoChatRequest{Message: " "}, nil, http.StatusBadRequest)
	if resp.Message != "Message cannot be empty." {
		t.Fatalf("unexpected message %q", resp.Message)
	}

	reply := doJSONRequest[dto.ChatResponse](t, handler, http.MethodPost, "/api/public/v1/demo/chat", dto.DemoChatRequest{Message: "what is this?"}, nil, http.StatusOK)
	if reply.Reply != "ChatForge is great" {
		t.Fatalf("unexpected reply %q", reply.Reply)
	}
	if !strings.Contains(gen.prompts[0], "ChatForge AI") {
		t.Fatal("demo prompt should carry the product instructions")
	}
}
