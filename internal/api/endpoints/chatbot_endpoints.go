package endpoints

import (
	"errors"
	"net/http"

	"chatforge-backend/internal/database"
	"chatforge-backend/internal/dto"
	"chatforge-backend/internal/embed"
	"chatforge-backend/internal/model"
	chatbotsvc "chatforge-backend/internal/service/chatbot"
)

// ChatbotEndpoints serves the dashboard's chatbot management and the public
// widget config and embed lookups.
type ChatbotEndpoints interface {
	Chatbots(http.ResponseWriter, *http.Request) error
	Chatbot(http.ResponseWriter, *http.Request) error
	Embed(http.ResponseWriter, *http.Request) error
	PublicConfig(http.ResponseWriter, *http.Request) error
	PublicEmbed(http.ResponseWriter, *http.Request) error
}

type chatbotEndpoints struct {
	service *chatbotsvc.Service
}

func NewChatbotEndpoints(db *database.Database, baseURL string) ChatbotEndpoints {
	return &chatbotEndpoints{
		service: chatbotsvc.New(db, baseURL),
	}
}

func NewChatbotEndpointsWithService(service *chatbotsvc.Service) ChatbotEndpoints {
	return &chatbotEndpoints{service: service}
}

func (h *chatbotEndpoints) Chatbots(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet:  h.handleList,
		http.MethodPost: h.handleCreate,
	})
}

func (h *chatbotEndpoints) Chatbot(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet:    h.handleGet,
		http.MethodPatch:  h.handleUpdate,
		http.MethodPut:    h.handleUpdate,
		http.MethodDelete: h.handleDelete,
	})
}

func (h *chatbotEndpoints) Embed(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleEmbed,
	})
}

func (h *chatbotEndpoints) PublicConfig(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handlePublicConfig,
	})
}

func (h *chatbotEndpoints) PublicEmbed(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handlePublicEmbed,
	})
}

func (h *chatbotEndpoints) identity(r *http.Request) (chatbotsvc.Identity, error) {
	tenantID, email, err := tenantIdentity(r)
	if err != nil {
		return chatbotsvc.Identity{}, err
	}
	return chatbotsvc.Identity{TenantID: tenantID, Email: email}, nil
}

func (h *chatbotEndpoints) handleList(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.identity(r)
	if err != nil {
		return err
	}

	bots, err := h.service.List(r.Context(), identity)
	if err != nil {
		return h.serviceError(err)
	}

	return WriteJSON(w, http.StatusOK, toChatbotResponses(bots))
}

func (h *chatbotEndpoints) handleCreate(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.identity(r)
	if err != nil {
		return err
	}

	var req dto.CreateChatbotRequest
	if err := decodeJSON(r, &req, "create chatbot"); err != nil {
		return err
	}

	bot, err := h.service.Create(r.Context(), identity, req.Name)
	if err != nil {
		return h.serviceError(err)
	}

	return WriteJSON(w, http.StatusCreated, toChatbotResponse(bot))
}

func (h *chatbotEndpoints) handleGet(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.identity(r)
	if err != nil {
		return err
	}

	bot, err := h.service.Get(r.Context(), identity, r.PathValue("chatbotId"))
	if err != nil {
		return h.serviceError(err)
	}

	return WriteJSON(w, http.StatusOK, toChatbotResponse(bot))
}

func (h *chatbotEndpoints) handleUpdate(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.identity(r)
	if err != nil {
		return err
	}

	var req dto.UpdateChatbotRequest
	if err := decodeJSON(r, &req, "update chatbot"); err != nil {
		return err
	}

	bot, err := h.service.Update(r.Context(), identity, r.PathValue("chatbotId"), toPatch(req))
	if err != nil {
		return h.serviceError(err)
	}

	return WriteJSON(w, http.StatusOK, toChatbotResponse(bot))
}

func (h *chatbotEndpoints) handleDelete(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.identity(r)
	if err != nil {
		return err
	}

	if err := h.service.Delete(r.Context(), identity, r.PathValue("chatbotId")); err != nil {
		return h.serviceError(err)
	}

	return WriteJSON(w, http.StatusOK, ApiMessageResponse{Message: "Chatbot deleted successfully."})
}

func (h *chatbotEndpoints) handleEmbed(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.identity(r)
	if err != nil {
		return err
	}

	snippets, err := h.service.Embed(r.Context(), identity, r.PathValue("chatbotId"))
	if err != nil {
		return h.serviceError(err)
	}

	return WriteJSON(w, http.StatusOK, toEmbedResponse(snippets))
}

func (h *chatbotEndpoints) handlePublicConfig(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	cfg, err := h.service.PublicConfig(r.Context(), r.PathValue("apiKey"))
	if err != nil {
		return h.serviceError(err)
	}

	return WriteJSON(w, http.StatusOK, dto.ChatbotConfigResponse{
		Name:    cfg.Name,
		Welcome: cfg.Welcome,
		Color:   cfg.Color,
		Plan:    cfg.Plan,
	})
}

func (h *chatbotEndpoints) handlePublicEmbed(w http.ResponseWriter, r *http.Request) error {
	snippets, err := h.service.PublicEmbed(r.Context(), r.PathValue("apiKey"))
	if err != nil {
		return h.serviceError(err)
	}

	return WriteJSON(w, http.StatusOK, toEmbedResponse(snippets))
}

func (h *chatbotEndpoints) serviceError(err error) error {
	if err == nil {
		return nil
	}

	var svcErr *chatbotsvc.Error
	if !errors.As(err, &svcErr) {
		return internalError("chatbot service", err)
	}

	errorLog := errorLog(svcErr.Message, svcErr.Err)

	switch svcErr.Code {
	case chatbotsvc.ErrorCodeValidation:
		return &HTTPError{StatusCode: http.StatusBadRequest, Message: svcErr.Message, ErrorLog: errorLog}
	case chatbotsvc.ErrorCodeUnauthorized:
		return &HTTPError{StatusCode: http.StatusUnauthorized, Message: svcErr.Message, ErrorLog: errorLog}
	case chatbotsvc.ErrorCodeForbidden:
		return &HTTPError{StatusCode: http.StatusForbidden, Message: svcErr.Message, ErrorLog: errorLog}
	case chatbotsvc.ErrorCodeNotFound:
		return &HTTPError{StatusCode: http.StatusNotFound, Message: svcErr.Message, ErrorLog: errorLog}
	default:
		return &HTTPError{StatusCode: http.StatusInternalServerError, Message: "Internal server error", ErrorLog: errorLog}
	}
}

func toPatch(req dto.UpdateChatbotRequest) chatbotsvc.Patch {
	patch := chatbotsvc.Patch{
		Name:              req.Name,
		Instructions:      req.Instructions,
		WelcomeMessage:    req.WelcomeMessage,
		Color:             req.Color,
		AuthorizedDomains: req.AuthorizedDomains,
	}
	if req.QA != nil {
		qa := make([]model.QAPair, 0, len(*req.QA))
		for _, pair := range *req.QA {
			qa = append(qa, model.QAPair{Question: pair.Question, Answer: pair.Answer})
		}
		patch.QA = &qa
	}
	return patch
}

func toChatbotResponse(bot model.ChatbotItem) dto.ChatbotResponse {
	qa := make([]dto.QAPair, 0, len(bot.QA))
	for _, pair := range bot.QA {
		qa = append(qa, dto.QAPair{Question: pair.Question, Answer: pair.Answer})
	}
	domains := bot.AuthorizedDomains
	if domains == nil {
		domains = []string{}
	}

	return dto.ChatbotResponse{
		ChatbotID:         bot.ChatbotID,
		TenantID:          bot.TenantID,
		Name:              bot.Name,
		Instructions:      bot.Instructions,
		QA:                qa,
		WelcomeMessage:    bot.WelcomeMessage,
		Color:             bot.Color,
		APIKey:            bot.APIKey,
		AuthorizedDomains: domains,
		CreatedAt:         bot.CreatedAt,
	}
}

func toChatbotResponses(bots []model.ChatbotItem) []dto.ChatbotResponse {
	out := make([]dto.ChatbotResponse, 0, len(bots))
	for _, bot := range bots {
		out = append(out, toChatbotResponse(bot))
	}
	return out
}

func toEmbedResponse(s embed.Snippets) dto.EmbedResponse {
	return dto.EmbedResponse{HTML: s.HTML, React: s.React, NextJS: s.NextJS}
}
