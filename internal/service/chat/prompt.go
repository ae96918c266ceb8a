package chat

import (
	"strings"
	"text/template"
)

const DefaultInstructions = "You are a helpful assistant."

var chatPrompt = template.Must(template.New("chat").Parse(`You are a custom AI chatbot.

Your personality and instructions are defined as follows:
---
{{.Instructions}}
---

You must adhere to these instructions strictly.

The user has provided the following custom question and answer pairs. If the user's message is a close match to one of these questions, you MUST provide the corresponding answer exactly as written.
---
{{range .QA}}Question: "{{.Question}}"
Answer: "{{.Answer}}"
{{end}}---
{{if .History}}
Here is the conversation history. Use it to provide context for your response. The roles will be 'user' and 'model'.
---
{{range .History}}{{.Role}}: {{.Text}}
{{end}}---
{{end}}
Now, please respond to the following user message:
"{{.Message}}"
`))

var newsletterPrompt = template.Must(template.New("newsletter").Parse(`You are an expert email designer and copywriter.
Your task is to generate a complete, responsive, and visually appealing HTML email based on the user's prompt.
The output MUST be a single HTML file with inline CSS for maximum compatibility with email clients.
Do not use any external stylesheets or links to external assets.
Use a clean, modern design with a clear call-to-action if appropriate.
The email should be well-structured with tables for layout.
Ensure the design is professional and engaging.

The user's prompt is:
---
"{{.Prompt}}"
---
`))

var directEmailPrompt = template.Must(template.New("direct").Parse(`You are an expert email copywriter for a SaaS company called ChatForge AI.
Your task is to generate a complete, responsive, and visually appealing HTML email based on the user's prompt.
The output MUST be a single HTML file with inline CSS for maximum compatibility with email clients.
Do not use any external stylesheets or links to external assets.
Use a clean, modern design.
The email should be addressed to the user by their name, which is provided.
Ensure the design is professional and engaging.

User's Name: {{.UserName}}

The user's prompt is:
---
"{{.Prompt}}"
---
`))

// BuildPrompt renders the generation request for in. Empty instructions fall
// back to DefaultInstructions; history turns without text are dropped.
func BuildPrompt(in Input) (string, error) {
	data := in
	data.Instructions = strings.TrimSpace(in.Instructions)
	if data.Instructions == "" {
		data.Instructions = DefaultInstructions
	}
	data.History = normalizeHistory(in.History)

	var sb strings.Builder
	if err := chatPrompt.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func normalizeHistory(turns []Turn) []Turn {
	out := make([]Turn, 0, len(turns))
	for _, turn := range turns {
		text := strings.TrimSpace(turn.Text)
		if text == "" {
			continue
		}
		role := RoleModel
		if turn.Role == RoleUser {
			role = RoleUser
		}
		out = append(out, Turn{Role: role, Text: text})
	}
	return out
}

func render(t *template.Template, data any) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}
