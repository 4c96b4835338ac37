package wayback

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/suh3art/Recon-toolkit/pkg/fileutil"
	"github.com/suh3art/Recon-toolkit/pkg/session"
)

const DefaultCDXURL = "https://web.archive.org/cdx/search/cdx"

var DefaultPatterns = []string{
	`login`, `logout`, `register`, `admin`, `dashboard`, `user`,
	`config`, `settings`, `backup`, `secret`, `token`, `api`,
	`auth`, `csrf`, `upload`, `download`, `export`, `import`,
	`adminer`, `phpmyadmin`, `wp-admin`, `wp-login`, `\.json`,
	`\.xml`, `\.php`, `\.aspx`, `\.jsp`, `\.action`, `sitemap\.xml`,
	`\.git`, `\.env`, `credentials`, `db`, `certificate`, `cert\.pem`,
	`key`, `metrics`, `health`, `status`, `logs`, `error`, `debug`,
	`backup\.zip`, `tar\.gz`,
}

type Client struct {
	Session  *session.Session
	CDXURL   string
	Timeout  time.Duration
	Patterns []string
}

type Result struct {
	URLs       []string
	Suspicious []string
}

// Fetch queries the CDX API for every archived original URL of domain.
func (c *Client) Fetch(ctx context.Context, domain string) ([]string, error) {
	base := c.CDXURL
	if base == "" {
		base = DefaultCDXURL
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	params := url.Values{}
	params.Set("url", domain)
	params.Set("output", "json")
	params.Set("fl", "original")
	params.Set("collapse", "urlkey")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", session.UserAgent)

	resp, err := c.Session.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("CDX API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var rows []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode CDX response: %w", err)
	}

	return parseRows(rows), nil
}

// parseRows accepts both [["original"],["http://..."]] and flat string rows.
func parseRows(rows []json.RawMessage) []string {
	var urls []string

	for i, raw := range rows {
		var value string

		var row []string
		if err := json.Unmarshal(raw, &row); err == nil {
			if len(row) == 0 {
				continue
			}
			value = row[0]
		} else if err := json.Unmarshal(raw, &value); err != nil {
			continue
		}

		if i == 0 && value == "original" {
			continue
		}
		urls = append(urls, strings.TrimSpace(value))
	}

	return fileutil.Unique(urls)
}

func compile(patterns []string) (*regexp.Regexp, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	return regexp.Compile("(?i)" + strings.Join(patterns, "|"))
}

// Filter returns the URLs matching any suspicious pattern, in input order.
func Filter(urls []string, patterns []string) ([]string, error) {
	re, err := compile(patterns)
	if err != nil {
		return nil, fmt.Errorf("invalid suspicious pattern: %w", err)
	}

	var matched []string
	for _, u := range urls {
		if re.MatchString(u) {
			matched = append(matched, u)
		}
	}

	return matched, nil
}

// Run fetches archived URLs for domain, writes them to urlsFile and the
// suspicious subset to suspiciousFile.
func (c *Client) Run(ctx context.Context, domain, urlsFile, suspiciousFile string, log *logrus.Logger) (*Result, error) {
	urls, err := c.Fetch(ctx, domain)
	if err != nil {
		log.Errorf("CDX API error for %s: %v", domain, err)
		return nil, err
	}

	log.Infof("Retrieved %d URLs via CDX API", len(urls))
	if err := fileutil.WriteLines(urlsFile, urls); err != nil {
		return nil, err
	}

	log.Info("Filtering suspicious endpoints from CDX URLs...")
	suspicious, err := Filter(urls, c.Patterns)
	if err != nil {
		return nil, err
	}

	if err := fileutil.WriteLines(suspiciousFile, suspicious); err != nil {
		return nil, err
	}
	log.Infof("Suspicious endpoints saved: %d", len(suspicious))

	return &Result{URLs: urls, Suspicious: suspicious}, nil
}
