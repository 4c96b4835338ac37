// Package probe checks which hostnames answer over HTTP and HTTPS.
//
// Every hostname is expanded into an http:// and an https:// candidate.
// All candidates are checked concurrently, each under its own timeout, and a
// failure on one candidate never affects another. The alive set is only
// built after every check has returned.
package probe

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

type Status int

const (
	Alive Status = iota
	Dead
	Failed
)

func (s Status) String() string {
	switch s {
	case Alive:
		return "alive"
	case Dead:
		return "dead"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

var Schemes = []string{"http", "https"}

type Candidate struct {
	Host   string
	Scheme string
}

func (c Candidate) URL() string {
	return c.Scheme + "://" + c.Host
}

type Outcome struct {
	URL        string
	Host       string
	Scheme     string
	Status     Status
	StatusCode int
	Err        error
	Duration   time.Duration
}

type Result struct {
	Hosts      int
	Candidates int
	Alive      []string
	AliveCount int
	DeadCount  int
	FailCount  int
	Outcomes   []Outcome
	Duration   time.Duration
}

// Classify maps an HTTP status code to Alive (below 400) or Dead.
func Classify(statusCode int) Status {
	if statusCode < 400 {
		return Alive
	}
	return Dead
}

// Dedupe trims hostnames, drops blanks and keeps the first occurrence of each.
func Dedupe(hosts []string) []string {
	seen := make(map[string]struct{}, len(hosts))
	unique := make([]string, 0, len(hosts))

	for _, host := range hosts {
		host = strings.TrimSpace(host)
		if host == "" {
			continue
		}
		if _, ok := seen[host]; ok {
			continue
		}
		seen[host] = struct{}{}
		unique = append(unique, host)
	}

	return unique
}

// Candidates yields exactly two candidates per deduplicated host, http first.
func Candidates(hosts []string) []Candidate {
	unique := Dedupe(hosts)
	candidates := make([]Candidate, 0, len(unique)*len(Schemes))

	for _, host := range unique {
		for _, scheme := range Schemes {
			candidates = append(candidates, Candidate{Host: host, Scheme: scheme})
		}
	}

	return candidates
}

// AliveURLs filters alive outcomes and returns their URLs deduplicated and sorted.
func AliveURLs(outcomes []Outcome) []string {
	seen := make(map[string]struct{})
	urls := []string{}

	for _, outcome := range outcomes {
		if outcome.Status != Alive {
			continue
		}
		if _, ok := seen[outcome.URL]; ok {
			continue
		}
		seen[outcome.URL] = struct{}{}
		urls = append(urls, outcome.URL)
	}

	sort.Strings(urls)
	return urls
}

func summarize(hosts int, outcomes []Outcome, duration time.Duration) *Result {
	result := &Result{
		Hosts:      hosts,
		Candidates: len(outcomes),
		Alive:      AliveURLs(outcomes),
		Outcomes:   outcomes,
		Duration:   duration,
	}

	for _, outcome := range outcomes {
		switch outcome.Status {
		case Alive:
			result.AliveCount++
		case Dead:
			result.DeadCount++
		case Failed:
			result.FailCount++
		}
	}

	return result
}

type outcomeRecord struct {
	URL        string `json:"url"`
	Host       string `json:"host"`
	Scheme     string `json:"scheme"`
	Result     string `json:"result"`
	StatusCode int    `json:"status_code,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// WriteOutcomesJSONL writes one JSON object per outcome, overwriting path.
func WriteOutcomesJSONL(path string, outcomes []Outcome) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	for _, outcome := range outcomes {
		record := outcomeRecord{
			URL:        outcome.URL,
			Host:       outcome.Host,
			Scheme:     outcome.Scheme,
			Result:     outcome.Status.String(),
			StatusCode: outcome.StatusCode,
			DurationMs: outcome.Duration.Milliseconds(),
		}
		if outcome.Err != nil {
			record.Error = outcome.Err.Error()
		}

		if err := encoder.Encode(record); err != nil {
			return fmt.Errorf("failed to write outcome: %w", err)
		}
	}

	return nil
}
