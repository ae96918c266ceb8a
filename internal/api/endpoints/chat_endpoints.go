package endpoints

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"chatforge-backend/internal/dto"
	"chatforge-backend/internal/logger"
	chatsvc "chatforge-backend/internal/service/chat"
	"chatforge-backend/internal/service/gate"

	"go.uber.org/zap"
)

// Admitter decides whether an embed request may be answered and charges it.
type Admitter interface {
	Admit(ctx context.Context, req gate.Request) (gate.Decision, error)
	Refund(ctx context.Context, tenantID string) error
}

type ChatEndpoints interface {
	Chat(http.ResponseWriter, *http.Request) error
	Demo(http.ResponseWriter, *http.Request) error
}

type chatEndpoints struct {
	gate Admitter
	chat *chatsvc.Service
}

func NewChatEndpoints(admitter Admitter, chat *chatsvc.Service) ChatEndpoints {
	return &chatEndpoints{gate: admitter, chat: chat}
}

func (h *chatEndpoints) Chat(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleChat,
	})
}

func (h *chatEndpoints) Demo(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleDemo,
	})
}

func (h *chatEndpoints) handleChat(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	var req dto.ChatRequest
	if err := decodeJSON(r, &req, "chat"); err != nil {
		return err
	}

	if strings.TrimSpace(req.APIKey) == "" {
		return &HTTPError{StatusCode: http.StatusUnauthorized, Message: "API key is required.", ErrorLog: errors.New("chat without api key")}
	}
	if strings.TrimSpace(req.Message) == "" {
		return &HTTPError{StatusCode: http.StatusBadRequest, Message: "Message is required.", ErrorLog: errors.New("chat without message")}
	}

	decision, err := h.gate.Admit(r.Context(), gate.Request{
		APIKey: strings.TrimSpace(req.APIKey),
		Origin: r.Header.Get("Origin"),
	})
	if err != nil {
		return gateError(err)
	}
	if !decision.Admitted() {
		return WriteJSON(w, http.StatusOK, dto.ChatResponse{Reply: decision.Message})
	}

	input := chatsvc.InputForChatbot(decision.Chatbot, req.Message, toTurns(req.History))

	if req.Stream {
		return h.stream(w, r, decision.Tenant.TenantID, input)
	}

	reply, err := h.chat.Reply(r.Context(), input)
	if err != nil {
		h.refund(r.Context(), decision.Tenant.TenantID)
		return chatError(err)
	}

	return WriteJSON(w, http.StatusOK, dto.ChatResponse{Reply: reply})
}

// stream relays fragments as server-sent events. The message is refunded
// only when nothing reached the client.
func (h *chatEndpoints) stream(w http.ResponseWriter, r *http.Request, tenantID string, input chatsvc.Input) error {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.refund(ctx, tenantID)
		return internalError("chat stream", errors.New("response writer does not support flushing"))
	}

	stream, err := h.chat.Stream(ctx, input)
	if err != nil {
		h.refund(ctx, tenantID)
		return chatError(err)
	}
	defer stream.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	fragments := 0
	for {
		text, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			writeEvent(w, "done", struct{}{})
			flusher.Flush()
			return nil
		}
		if err != nil {
			log.Error("chat stream interrupted", zap.Int("fragments", fragments), zap.Error(err))
			if fragments == 0 {
				h.refund(ctx, tenantID)
			}
			writeEvent(w, "error", dto.StreamError{Message: chatsvc.MessageGenerationFailed})
			flusher.Flush()
			return nil
		}
		if text == "" {
			continue
		}

		if err := writeEvent(w, "", dto.StreamChunk{Text: text}); err != nil {
			log.Warn("chat stream client gone", zap.Error(err))
			return nil
		}
		flusher.Flush()
		fragments++
	}
}

func (h *chatEndpoints) refund(ctx context.Context, tenantID string) {
	if err := h.gate.Refund(context.WithoutCancel(ctx), tenantID); err != nil {
		logger.FromContext(ctx).Warn("failed to refund message", zap.String("tenant_id", tenantID), zap.Error(err))
	}
}

func (h *chatEndpoints) handleDemo(w http.ResponseWriter, r *http.Request) error {
	var req dto.DemoChatRequest
	if err := decodeJSON(r, &req, "demo chat"); err != nil {
		return err
	}

	reply, err := h.chat.DemoReply(r.Context(), req.Message, toTurns(req.History))
	if err != nil {
		return chatError(err)
	}

	return WriteJSON(w, http.StatusOK, dto.ChatResponse{Reply: reply})
}

func writeEvent(w io.Writer, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if event != "" {
		if _, err := fmt.Fprintf(w, "event: %s\n", event); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

func toTurns(history []dto.HistoryTurn) []chatsvc.Turn {
	turns := make([]chatsvc.Turn, 0, len(history))
	for _, turn := range history {
		turns = append(turns, chatsvc.Turn{Role: turn.Role, Text: turn.Message()})
	}
	return turns
}

func gateError(err error) error {
	var svcErr *gate.Error
	if !errors.As(err, &svcErr) {
		return internalError("gate", err)
	}

	errorLog := errorLog(svcErr.Message, svcErr.Err)

	switch svcErr.Code {
	case gate.ErrorCodeInvalidCredential:
		return &HTTPError{StatusCode: http.StatusUnauthorized, Message: svcErr.Message, ErrorLog: errorLog}
	case gate.ErrorCodeAccessDisabled:
		return &HTTPError{StatusCode: http.StatusForbidden, Message: svcErr.Message, ErrorLog: errorLog}
	case gate.ErrorCodeQuotaExceeded:
		return &HTTPError{StatusCode: http.StatusTooManyRequests, Message: svcErr.Message, ErrorLog: errorLog}
	case gate.ErrorCodeInternalInconsistency:
		return &HTTPError{StatusCode: http.StatusInternalServerError, Message: svcErr.Message, ErrorLog: errorLog}
	default:
		return &HTTPError{StatusCode: http.StatusInternalServerError, Message: "Internal server error", ErrorLog: errorLog}
	}
}

func chatError(err error) error {
	var svcErr *chatsvc.Error
	if !errors.As(err, &svcErr) {
		return internalError("chat service", err)
	}

	errorLog := errorLog(svcErr.Message, svcErr.Err)

	switch svcErr.Code {
	case chatsvc.ErrorCodeValidation:
		return &HTTPError{StatusCode: http.StatusBadRequest, Message: svcErr.Message, ErrorLog: errorLog}
	case chatsvc.ErrorCodeUpstream:
		return &HTTPError{StatusCode: http.StatusBadGateway, Message: chatsvc.MessageGenerationFailed, ErrorLog: errorLog}
	default:
		return &HTTPError{StatusCode: http.StatusInternalServerError, Message: "Internal server error", ErrorLog: errorLog}
	}
}
