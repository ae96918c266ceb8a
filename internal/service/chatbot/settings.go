package chatbot

import (
	"fmt"
	"regexp"
	"strings"

	"chatforge-backend/internal/model"
	"chatforge-backend/internal/service/gate"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	minNameLength = 2

	DefaultDisplayName = "Chat with us"
)

var hexColorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// normalizePatch validates the patch and returns a copy with trimmed values,
// upper-cased colors, and authorized domains reduced to unique bare hosts.
func normalizePatch(patch Patch) (Patch, error) {
	out := Patch{}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if len(name) < minNameLength {
			return Patch{}, newError(ErrorCodeValidation, "Bot name must be at least 2 characters.", nil)
		}
		out.Name = &name
	}

	if patch.Instructions != nil {
		instructions := strings.TrimSpace(*patch.Instructions)
		out.Instructions = &instructions
	}

	if patch.WelcomeMessage != nil {
		welcome := strings.TrimSpace(*patch.WelcomeMessage)
		out.WelcomeMessage = &welcome
	}

	if patch.Color != nil {
		color := strings.TrimSpace(*patch.Color)
		if !hexColorPattern.MatchString(color) {
			return Patch{}, newError(ErrorCodeValidation, "color must be a valid hex color (e.g. #007BFF)", nil)
		}
		color = strings.ToUpper(color)
		out.Color = &color
	}

	if patch.QA != nil {
		qa := make([]model.QAPair, 0, len(*patch.QA))
		for _, pair := range *patch.QA {
			question := strings.TrimSpace(pair.Question)
			answer := strings.TrimSpace(pair.Answer)
			if question == "" && answer == "" {
				continue
			}
			qa = append(qa, model.QAPair{Question: question, Answer: answer})
		}
		out.QA = &qa
	}

	if patch.AuthorizedDomains != nil {
		seen := make(map[string]bool)
		domains := make([]string, 0, len(*patch.AuthorizedDomains))
		for _, entry := range *patch.AuthorizedDomains {
			entry = strings.TrimSpace(entry)
			if entry == "" {
				continue
			}
			domain := gate.NormalizeDomain(entry)
			if domain == "" {
				return Patch{}, newError(ErrorCodeValidation, fmt.Sprintf("%q is not a valid domain.", entry), nil)
			}
			if seen[domain] {
				continue
			}
			seen[domain] = true
			domains = append(domains, domain)
		}
		out.AuthorizedDomains = &domains
	}

	return out, nil
}

func patchExpression(patch Patch) (string, map[string]types.AttributeValue, map[string]string, error) {
	var sets []string
	values := make(map[string]types.AttributeValue)
	names := make(map[string]string)

	set := func(attr string, value interface{}) error {
		av, err := attributevalue.Marshal(value)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", attr, err)
		}
		names["#"+attr] = attr
		values[":"+attr] = av
		sets = append(sets, fmt.Sprintf("#%s = :%s", attr, attr))
		return nil
	}

	fields := []struct {
		attr  string
		ok    bool
		value func() interface{}
	}{
		{"name", patch.Name != nil, func() interface{} { return *patch.Name }},
		{"instructions", patch.Instructions != nil, func() interface{} { return *patch.Instructions }},
		{"qa", patch.QA != nil, func() interface{} { return *patch.QA }},
		{"welcomeMessage", patch.WelcomeMessage != nil, func() interface{} { return *patch.WelcomeMessage }},
		{"color", patch.Color != nil, func() interface{} { return *patch.Color }},
		{"authorizedDomains", patch.AuthorizedDomains != nil, func() interface{} { return *patch.AuthorizedDomains }},
	}
	for _, field := range fields {
		if !field.ok {
			continue
		}
		if err := set(field.attr, field.value()); err != nil {
			return "", nil, nil, err
		}
	}

	if len(sets) == 0 {
		return "", nil, nil, fmt.Errorf("empty chatbot patch")
	}
	return "SET " + strings.Join(sets, ", "), values, names, nil
}

func publicConfig(bot model.ChatbotItem, tenant *model.TenantItem) PublicConfig {
	cfg := PublicConfig{
		Name:    bot.Name,
		Welcome: bot.WelcomeMessage,
		Color:   bot.Color,
		Plan:    string(model.TierFree),
	}
	if strings.TrimSpace(cfg.Name) == "" {
		cfg.Name = DefaultDisplayName
	}
	if strings.TrimSpace(cfg.Welcome) == "" {
		cfg.Welcome = model.DefaultWelcomeMessage
	}
	if strings.TrimSpace(cfg.Color) == "" {
		cfg.Color = model.DefaultColor
	}
	if tenant != nil && tenant.Plan != "" {
		cfg.Plan = tenant.Plan
	}
	return cfg
}
