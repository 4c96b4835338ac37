package fuzz

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/suh3art/Recon-toolkit/pkg/fileutil"
	"github.com/suh3art/Recon-toolkit/pkg/tools"
)

type Options struct {
	Wordlist   string
	Threads    int
	MatchCodes string
}

type ffufOutput struct {
	Results []struct {
		Input  map[string]string `json:"input"`
		Status int               `json:"status"`
		URL    string            `json:"url"`
	} `json:"results"`
}

type Result struct {
	Targets []string
	Hits    []string
}

// Args builds the ffuf invocation for one base URL.
func Args(base, resultsFile string, opts Options) []string {
	threads := opts.Threads
	if threads <= 0 {
		threads = 40
	}
	matchCodes := opts.MatchCodes
	if matchCodes == "" {
		matchCodes = "200,301,302"
	}

	return []string{
		"-u", strings.TrimSuffix(base, "/") + "/FUZZ",
		"-w", opts.Wordlist,
		"-t", strconv.Itoa(threads),
		"-o", resultsFile,
		"-of", "json",
		"-mc", matchCodes,
	}
}

// ParseResults reads the fuzz keyword of every ffuf hit. A missing or
// malformed results file yields no hits.
func ParseResults(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var output ffufOutput
	if err := json.Unmarshal(data, &output); err != nil {
		return nil
	}

	var hits []string
	for _, entry := range output.Results {
		value, ok := entry.Input["FUZZ"]
		if !ok {
			value = entry.Input["value"]
		}
		if value != "" {
			hits = append(hits, value)
		}
	}

	return hits
}

// Run fuzzes each base URL in turn and writes the merged, sorted hit list to
// pathsFile. ffuf's own output goes to logOut. resultsFile is cleared before
// every run and only read back when ffuf exited cleanly.
func Run(ctx context.Context, bases []string, resultsFile, pathsFile string, opts Options, log *logrus.Logger, logOut io.Writer) (*Result, error) {
	result := &Result{Targets: bases}
	seen := make(map[string]struct{})

	for _, base := range bases {
		if err := os.Remove(resultsFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to clear %s: %w", resultsFile, err)
		}

		args := Args(base, resultsFile, opts)
		log.Infof("Running ffuf: %s", tools.CommandLine("ffuf", args))

		if err := tools.Run(ctx, "ffuf", args, logOut, logOut); err != nil {
			log.Errorf("ffuf failed for %s: %v", base, err)
			continue
		}

		for _, hit := range ParseResults(resultsFile) {
			if _, ok := seen[hit]; !ok {
				seen[hit] = struct{}{}
				result.Hits = append(result.Hits, hit)
			}
		}
	}

	sort.Strings(result.Hits)
	if err := fileutil.WriteLines(pathsFile, result.Hits); err != nil {
		return nil, fmt.Errorf("failed to write found paths: %w", err)
	}

	return result, nil
}
