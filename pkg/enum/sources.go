package enum

import (
	"context"
	"strings"
)

type Result struct {
	Source string
	Value  string
	Error  error
}

type Source interface {
	Run(ctx context.Context, domain string) <-chan Result

	Name() string
}

func belongsToTargetDomain(hostname, targetDomain string) bool {
	hostname = strings.TrimSpace(strings.ToLower(hostname))
	targetDomain = strings.TrimSpace(strings.ToLower(targetDomain))

	if hostname == targetDomain {
		return true
	}

	return strings.HasSuffix(hostname, "."+targetDomain)
}

func isValidHostname(hostname string) bool {
	if len(hostname) == 0 || len(hostname) > 253 {
		return false
	}

	if strings.HasPrefix(hostname, ".") || strings.HasSuffix(hostname, ".") || strings.Contains(hostname, "..") {
		return false
	}

	for _, char := range hostname {
		if !((char >= 'a' && char <= 'z') || (char >= '0' && char <= '9') || char == '.' || char == '-' || char == '_') {
			return false
		}
	}

	return true
}

// normalize lowercases, strips wildcard prefixes and rejects names outside
// domain.
func normalize(raw, domain string) string {
	hostname := strings.ToLower(strings.TrimSpace(raw))
	hostname = strings.TrimPrefix(hostname, "*.")

	if !isValidHostname(hostname) || !belongsToTargetDomain(hostname, domain) {
		return ""
	}

	return hostname
}
