package monitor

import (
	"strings"

	"github.com/mssola/useragent"
)

// describeAgent renders a user agent as "Browser on OS" for hit records.
func describeAgent(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	ua := useragent.New(raw)
	if ua.Bot() {
		name, _ := ua.Browser()
		if name == "" {
			return "bot"
		}
		return "bot: " + name
	}

	browser, _ := ua.Browser()
	if browser == "" {
		browser = "Unknown Browser"
	}
	os := ua.OS()
	if ua.Mobile() && ua.Platform() != "" {
		os = ua.Platform()
	}
	if os == "" {
		os = "Unknown OS"
	}
	return browser + " on " + os
}
