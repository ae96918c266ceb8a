package chat

import (
	"context"
	"strings"

	"chatforge-backend/internal/llm"
	"chatforge-backend/internal/logger"

	"go.uber.org/zap"
)

// DemoInstructions drive the product's own live demo bot.
const DemoInstructions = "You are a friendly and helpful assistant for ChatForge AI, a platform that lets users build and deploy chatbots. Briefly answer questions about the product's features, pricing, and ease of use. Keep your answers concise and encouraging. If asked about something unrelated, politely steer the conversation back to ChatForge AI."

type Service struct {
	gen llm.Generator
}

func New(gen llm.Generator) *Service {
	return &Service{gen: gen}
}

// Reply returns one complete answer. Upstream failures are logged and
// reported with a generic message; nothing is retried.
func (s *Service) Reply(ctx context.Context, in Input) (string, error) {
	prompt, err := s.prompt(in)
	if err != nil {
		return "", err
	}

	reply, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		logger.FromContext(ctx).Error("chat generation failed", zap.Error(err))
		return "", newError(ErrorCodeUpstream, MessageGenerationFailed, err)
	}
	return reply, nil
}

// Stream starts an incremental answer. The caller owns the stream and must
// close it; a failed stream is not resumed.
func (s *Service) Stream(ctx context.Context, in Input) (llm.Stream, error) {
	prompt, err := s.prompt(in)
	if err != nil {
		return nil, err
	}

	stream, err := s.gen.Stream(ctx, prompt)
	if err != nil {
		logger.FromContext(ctx).Error("chat stream failed to start", zap.Error(err))
		return nil, newError(ErrorCodeUpstream, MessageGenerationFailed, err)
	}
	return stream, nil
}

// DemoReply answers the marketing site's live demo.
func (s *Service) DemoReply(ctx context.Context, message string, history []Turn) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", newError(ErrorCodeValidation, "Message cannot be empty.", nil)
	}
	return s.Reply(ctx, Input{
		Message:      message,
		Instructions: DemoInstructions,
		History:      history,
	})
}

// NewsletterEmail drafts an HTML newsletter from an admin's prompt.
func (s *Service) NewsletterEmail(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", newError(ErrorCodeValidation, "Prompt is required.", nil)
	}
	text, err := render(newsletterPrompt, struct{ Prompt string }{prompt})
	if err != nil {
		return "", newError(ErrorCodeValidation, "failed to build prompt", err)
	}
	return s.compose(ctx, text)
}

// DirectEmail drafts an HTML email addressed to userName.
func (s *Service) DirectEmail(ctx context.Context, prompt, userName string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", newError(ErrorCodeValidation, "Prompt is required.", nil)
	}
	text, err := render(directEmailPrompt, struct{ Prompt, UserName string }{prompt, userName})
	if err != nil {
		return "", newError(ErrorCodeValidation, "failed to build prompt", err)
	}
	return s.compose(ctx, text)
}

func (s *Service) compose(ctx context.Context, prompt string) (string, error) {
	out, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		logger.FromContext(ctx).Error("email generation failed", zap.Error(err))
		return "", newError(ErrorCodeUpstream, "Failed to generate email content.", err)
	}
	return stripCodeFence(out), nil
}

// stripCodeFence removes a markdown ```html fence the model sometimes adds.
func stripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return s
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if i := strings.Index(trimmed, "\n"); i >= 0 {
		trimmed = trimmed[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(trimmed), "```"))
}

func (s *Service) prompt(in Input) (string, error) {
	if strings.TrimSpace(in.Message) == "" {
		return "", newError(ErrorCodeValidation, "Message is required.", nil)
	}
	prompt, err := BuildPrompt(in)
	if err != nil {
		return "", newError(ErrorCodeValidation, "failed to build prompt", err)
	}
	return prompt, nil
}
