package acceptance

import (
	"strings"

	"github.com/mssola/useragent"
)

// summarizeDevice condenses a raw User-Agent into the short human-readable
// form stored on the ledger row ("Chrome 120 on Linux"). The raw header is
// stored alongside; the summary is for dispute-handling screens.
func summarizeDevice(rawUserAgent string) string {
	if strings.TrimSpace(rawUserAgent) == "" {
		return ""
	}

	ua := useragent.New(rawUserAgent)
	name, version := ua.Browser()
	if name == "" {
		return "unknown device"
	}

	var b strings.Builder
	b.WriteString(name)
	if version != "" {
		if major, _, found := strings.Cut(version, "."); found {
			version = major
		}
		b.WriteString(" ")
		b.WriteString(version)
	}
	if os := ua.OSInfo().Name; os != "" {
		b.WriteString(" on ")
		b.WriteString(os)
	}
	if ua.Mobile() {
		b.WriteString(" (mobile)")
	}
	return b.String()
}
