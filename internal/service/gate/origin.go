package gate

import (
	"net/url"
	"strings"
)

// NormalizeDomain reduces an allow-list entry to a bare lowercase hostname.
// "https://*.Example.com:8080/path" becomes "example.com".
func NormalizeDomain(entry string) string {
	d := strings.ToLower(strings.TrimSpace(entry))
	if i := strings.Index(d, "://"); i >= 0 {
		d = d[i+3:]
	}
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	if i := strings.LastIndex(d, ":"); i >= 0 && !strings.Contains(d[i:], "]") {
		d = d[:i]
	}
	d = strings.TrimPrefix(d, "*.")
	return strings.Trim(d, ".")
}

func originHost(origin string) string {
	raw := strings.TrimSpace(origin)
	if !strings.Contains(raw, "://") {
		raw = "//" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// originAllowed reports whether origin may use a chatbot with the given
// allow-list. An empty list, an absent origin and the application's own origin
// are always allowed.
func originAllowed(origin, appURL string, domains []string) bool {
	if len(domains) == 0 {
		return true
	}
	origin = strings.TrimSpace(origin)
	if origin == "" {
		return true
	}
	if appURL != "" && strings.TrimRight(origin, "/") == strings.TrimRight(appURL, "/") {
		return true
	}

	host := originHost(origin)
	if host == "" {
		return false
	}
	for _, entry := range domains {
		domain := NormalizeDomain(entry)
		if domain == "" {
			continue
		}
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}
