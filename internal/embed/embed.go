package embed

import (
	"encoding/json"
	"errors"
	"strings"
	"text/template"
)

// Snippets are the three ways a tenant can install a chatbot.
type Snippets struct {
	HTML   string `json:"html"`
	React  string `json:"react"`
	NextJS string `json:"nextjs"`
}

var (
	loaderTmpl = template.Must(template.New("loader").Parse(loaderTemplate))
	htmlTmpl   = template.Must(template.New("html").Parse(htmlTemplate))
	reactTmpl  = template.Must(template.New("react").Parse(reactTemplate))
	nextTmpl   = template.Must(template.New("nextjs").Parse(nextjsTemplate))
)

// Render builds the embed snippets for apiKey served from baseURL.
func Render(apiKey, baseURL string) (Snippets, error) {
	apiKey = strings.TrimSpace(apiKey)
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if apiKey == "" {
		return Snippets{}, errors.New("embed: api key is required")
	}
	if baseURL == "" {
		return Snippets{}, errors.New("embed: base url is required")
	}

	var loader strings.Builder
	if err := loaderTmpl.Execute(&loader, struct{ APIKey, BaseURL string }{apiKey, baseURL}); err != nil {
		return Snippets{}, err
	}

	// A JSON string is a valid JS string literal.
	literal, err := json.Marshal(loader.String())
	if err != nil {
		return Snippets{}, err
	}

	data := struct {
		Loader        string
		LoaderLiteral string
	}{loader.String(), string(literal)}

	var out Snippets
	for _, r := range []struct {
		tmpl *template.Template
		dst  *string
	}{
		{htmlTmpl, &out.HTML},
		{reactTmpl, &out.React},
		{nextTmpl, &out.NextJS},
	} {
		var sb strings.Builder
		if err := r.tmpl.Execute(&sb, data); err != nil {
			return Snippets{}, err
		}
		*r.dst = sb.String()
	}
	return out, nil
}
