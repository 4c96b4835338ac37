package jsscan

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/suh3art/Recon-toolkit/pkg/fileutil"
	"github.com/suh3art/Recon-toolkit/pkg/session"
	"github.com/suh3art/Recon-toolkit/pkg/tools"
	"golang.org/x/net/html"
)

var DefaultPatterns = []string{"apiKey", "token", "secret", "auth", "clientId", "key"}

const maxScriptBytes = 10 * 1024 * 1024

type Scanner struct {
	Session  *session.Session
	Patterns []string
	// LiveURLs, when set, are crawled for <script src> references.
	LiveURLs []string
}

type Finding struct {
	URL  string
	Line string
}

func (f Finding) String() string {
	return f.URL + ": " + f.Line
}

type Result struct {
	URLs     []string
	Scripts  int
	Findings []Finding
}

// CollectURLs runs gau for domain and returns every URL it printed.
func CollectURLs(ctx context.Context, domain string, log *logrus.Logger, stderr io.Writer) ([]string, error) {
	log.Info("Running gau to collect JS URLs...")

	var stdout bytes.Buffer
	if err := tools.Run(ctx, "gau", []string{domain}, &stdout, stderr); err != nil {
		return nil, err
	}

	var urls []string
	scanner := bufio.NewScanner(&stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			urls = append(urls, line)
		}
	}

	return urls, scanner.Err()
}

// IsScript reports whether u points at a .js file, ignoring query and case.
func IsScript(u string) bool {
	path := u
	if parsed, err := url.Parse(u); err == nil {
		path = parsed.Path
	}
	return strings.HasSuffix(strings.ToLower(path), ".js")
}

// ExtractScripts returns the absolute src of every <script> in an HTML page.
func ExtractScripts(base *url.URL, body io.Reader) []string {
	var scripts []string
	tokenizer := html.NewTokenizer(body)

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return scripts
		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()
			if token.Data != "script" {
				continue
			}
			for _, attr := range token.Attr {
				if attr.Key != "src" || strings.TrimSpace(attr.Val) == "" {
					continue
				}
				ref, err := url.Parse(strings.TrimSpace(attr.Val))
				if err != nil {
					continue
				}
				scripts = append(scripts, base.ResolveReference(ref).String())
			}
		}
	}
}

func (s *Scanner) get(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", session.UserAgent)

	resp, err := s.Session.Client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return resp, nil
}

// DiscoverScripts fetches each page and collects its script references.
func (s *Scanner) DiscoverScripts(ctx context.Context, pages []string, log *logrus.Logger) []string {
	var scripts []string

	for _, page := range pages {
		base, err := url.Parse(page)
		if err != nil {
			continue
		}

		resp, err := s.get(ctx, page)
		if err != nil {
			log.Warnf("Error fetching %s: %v", page, err)
			continue
		}
		found := ExtractScripts(base, io.LimitReader(resp.Body, maxScriptBytes))
		resp.Body.Close()

		scripts = append(scripts, found...)
	}

	return scripts
}

// ScanScript fetches one script and reports every line containing a pattern.
func (s *Scanner) ScanScript(ctx context.Context, target string) ([]Finding, error) {
	resp, err := s.get(ctx, target)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	patterns := s.Patterns
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}

	var findings []Finding
	scanner := bufio.NewScanner(io.LimitReader(resp.Body, maxScriptBytes))
	scanner.Buffer(make([]byte, 0, 64*1024), maxScriptBytes)

	for scanner.Scan() {
		line := scanner.Text()
		for _, pattern := range patterns {
			if strings.Contains(line, pattern) {
				findings = append(findings, Finding{URL: target, Line: strings.TrimSpace(line)})
			}
		}
	}

	return findings, scanner.Err()
}

// Scan fetches every .js URL in urls plus scripts discovered on the live
// pages and writes the findings to secretsFile.
func (s *Scanner) Scan(ctx context.Context, urls []string, secretsFile string, log *logrus.Logger) (*Result, error) {
	result := &Result{URLs: urls}

	candidates := append([]string{}, urls...)
	if len(s.LiveURLs) > 0 {
		discovered := s.DiscoverScripts(ctx, s.LiveURLs, log)
		log.Infof("Discovered %d script references on %d live hosts", len(discovered), len(s.LiveURLs))
		candidates = append(candidates, discovered...)
	}

	out, err := os.Create(secretsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create secrets file: %w", err)
	}
	defer out.Close()
	writer := bufio.NewWriter(out)

	log.Info("Scanning JS for secrets...")
	for _, script := range fileutil.Unique(candidates) {
		if !IsScript(script) {
			continue
		}
		result.Scripts++

		findings, err := s.ScanScript(ctx, script)
		if err != nil {
			log.Errorf("Error fetching %s: %v", script, err)
		}
		for _, finding := range findings {
			if _, err := writer.WriteString(finding.String() + "\n"); err != nil {
				return nil, fmt.Errorf("failed to write secrets file: %w", err)
			}
		}
		result.Findings = append(result.Findings, findings...)
	}

	if err := writer.Flush(); err != nil {
		return nil, fmt.Errorf("failed to write secrets file: %w", err)
	}

	return result, nil
}

// Run collects URLs with gau, stores them in urlsFile, then scans scripts.
func (s *Scanner) Run(ctx context.Context, domain, urlsFile, secretsFile string, log *logrus.Logger, stderr io.Writer) (*Result, error) {
	urls, err := CollectURLs(ctx, domain, log, stderr)
	if err != nil {
		log.Errorf("gau failed: %v", err)
		urls = nil
		if len(s.LiveURLs) == 0 {
			return nil, err
		}
	}

	if err := fileutil.WriteLines(urlsFile, urls); err != nil {
		return nil, err
	}

	return s.Scan(ctx, urls, secretsFile, log)
}
