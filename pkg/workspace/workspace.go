package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	SubdomainsFile     = "subdomains.txt"
	LiveSubdomainsFile = "live_subdomains.txt"
	ProbeResultsFile   = "probe_results.jsonl"
	JSURLsFile         = "js_urls.txt"
	SecretsFile        = "found_secrets.txt"
	WaybackURLsFile    = "wayback_urls.txt"
	SuspiciousFile     = "suspicious_wayback.txt"
	FfufResultsFile    = "ffuf_results.json"
	FoundPathsFile     = "found_paths.txt"
	logsDirName        = "logs"
)

var ErrEmptyTarget = errors.New("empty target")

type Workspace struct {
	Target string
	Dir    string
}

// ValidateTarget accepts localhost, an IPv4 address or a dotted domain,
// optionally followed by a numeric port.
func ValidateTarget(input string) (string, error) {
	target := strings.TrimSpace(input)
	if target == "" {
		return "", ErrEmptyTarget
	}

	host := target
	if i := strings.Index(target, ":"); i >= 0 {
		host = target[:i]
		port := target[i+1:]
		if port == "" || !isDigits(port) {
			return "", fmt.Errorf("port must be numeric: %q", port)
		}
	}

	if host == "localhost" || isDigits(strings.ReplaceAll(host, ".", "")) || strings.Contains(host, ".") {
		return target, nil
	}

	return "", fmt.Errorf("invalid host %q: use a domain (example.com), an IP (127.0.0.1) or localhost[:port]", host)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// SafeName maps a target to its directory name: localhost:3000 -> localhost_3000.
func SafeName(target string) string {
	return strings.ReplaceAll(target, ":", "_")
}

// Setup creates (or reuses) <root>/<safe target>/logs.
func Setup(root, target string) (*Workspace, error) {
	dir := filepath.Join(root, SafeName(target))
	if err := os.MkdirAll(filepath.Join(dir, logsDirName), 0755); err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	return &Workspace{Target: target, Dir: dir}, nil
}

func (w *Workspace) Path(name string) string {
	return filepath.Join(w.Dir, name)
}

func (w *Workspace) LogPath(stage string) string {
	return filepath.Join(w.Dir, logsDirName, stage+".log")
}

func (w *Workspace) Exists(name string) bool {
	_, err := os.Stat(w.Path(name))
	return err == nil
}

// Host strips the port from the workspace target.
func (w *Workspace) Host() string {
	if i := strings.Index(w.Target, ":"); i >= 0 {
		return w.Target[:i]
	}
	return w.Target
}
