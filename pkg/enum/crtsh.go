package enum

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	_ "github.com/lib/pq"
	"github.com/suh3art/Recon-toolkit/pkg/session"
)

const (
	CrtshURL = "https://crt.sh/"
	CrtshDSN = "host=crt.sh user=guest dbname=certwatch sslmode=disable binary_parameters=yes connect_timeout=10"
)

// Crtsh queries certificate transparency through the public certwatch
// database and falls back to the JSON endpoint when the query yields nothing.
type Crtsh struct {
	Session    *session.Session
	BaseURL    string
	DSN        string
	DisableSQL bool
}

type crtshEntry struct {
	ID        int    `json:"id"`
	NameValue string `json:"name_value"`
}

func (c *Crtsh) Name() string {
	return "crtsh"
}

func (c *Crtsh) Run(ctx context.Context, domain string) <-chan Result {
	results := make(chan Result)

	go func() {
		defer close(results)

		if !c.DisableSQL {
			if count := c.getSubdomainsFromSQL(ctx, domain, results); count > 0 {
				return
			}
		}

		c.getSubdomainsFromHTTP(ctx, domain, results)
	}()

	return results
}

func (c *Crtsh) getSubdomainsFromSQL(ctx context.Context, domain string, results chan<- Result) int {
	dsn := c.DSN
	if dsn == "" {
		dsn = CrtshDSN
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return 0
	}
	defer db.Close()

	query := `SELECT DISTINCT cai.NAME_VALUE
		FROM certificate_and_identities cai
		WHERE plainto_tsquery('certwatch', $1) @@ identities(cai.CERTIFICATE)
			AND cai.NAME_VALUE ILIKE ('%' || $1 || '%')
		LIMIT 10000`

	rows, err := db.QueryContext(ctx, query, domain)
	if err != nil {
		return 0
	}
	defer rows.Close()

	count := 0
	seen := make(map[string]bool)

	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			continue
		}

		for _, name := range strings.Split(data, "\n") {
			hostname := normalize(name, domain)
			if hostname == "" || seen[hostname] {
				continue
			}
			seen[hostname] = true
			count++

			select {
			case results <- Result{Source: c.Name(), Value: hostname}:
			case <-ctx.Done():
				return count
			}
		}
	}

	return count
}

func (c *Crtsh) getSubdomainsFromHTTP(ctx context.Context, domain string, results chan<- Result) {
	base := c.BaseURL
	if base == "" {
		base = CrtshURL
	}

	apiURL := fmt.Sprintf("%s?q=%s&output=json", base, url.QueryEscape("%."+domain))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		results <- Result{Source: c.Name(), Error: fmt.Errorf("failed to create request: %w", err)}
		return
	}

	req.Header.Set("User-Agent", session.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.Session.Client.Do(req)
	if err != nil {
		results <- Result{Source: c.Name(), Error: fmt.Errorf("failed to execute request: %w", err)}
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		results <- Result{Source: c.Name(), Error: fmt.Errorf("HTTP error: %d", resp.StatusCode)}
		return
	}

	var entries []crtshEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		results <- Result{Source: c.Name(), Error: fmt.Errorf("failed to decode JSON: %w", err)}
		return
	}

	seen := make(map[string]bool)
	for _, entry := range entries {
		for _, name := range strings.Split(entry.NameValue, "\n") {
			hostname := normalize(name, domain)
			if hostname == "" || seen[hostname] {
				continue
			}
			seen[hostname] = true

			select {
			case results <- Result{Source: c.Name(), Value: hostname}:
			case <-ctx.Done():
				return
			}
		}
	}
}
