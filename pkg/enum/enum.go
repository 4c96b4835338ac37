package enum

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/suh3art/Recon-toolkit/pkg/fileutil"
)

type SourceStat struct {
	Name     string
	Duration time.Duration
	Results  int
	Errors   int
}

type EnumerationResult struct {
	Subdomains []string
	Stats      []SourceStat
}

// Enumerate runs every source concurrently and merges their hostnames,
// lowercased, deduplicated and sorted. It fails only when every source
// reported an error and nothing was found.
func Enumerate(ctx context.Context, domain string, sources []Source, log *logrus.Logger) (*EnumerationResult, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("no enumeration sources enabled")
	}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		found = make(map[string]struct{})
		stats = make([]SourceStat, len(sources))
	)

	for i, source := range sources {
		wg.Add(1)
		go func(i int, s Source) {
			defer wg.Done()

			log.Infof("Running %s enumeration...", s.Name())
			stat := SourceStat{Name: s.Name()}
			start := time.Now()

			for result := range s.Run(ctx, domain) {
				if result.Error != nil {
					stat.Errors++
					log.Errorf("Error during %s enumeration: %v", s.Name(), result.Error)
					continue
				}
				stat.Results++

				mu.Lock()
				found[result.Value] = struct{}{}
				mu.Unlock()
			}

			stat.Duration = time.Since(start)
			stats[i] = stat
			log.Infof("%s returned %d subdomains", s.Name(), stat.Results)
		}(i, source)
	}
	wg.Wait()

	subdomains := make([]string, 0, len(found))
	for subdomain := range found {
		subdomains = append(subdomains, subdomain)
	}
	sort.Strings(subdomains)

	failed := 0
	for _, stat := range stats {
		if stat.Errors > 0 && stat.Results == 0 {
			failed++
		}
	}
	if failed == len(sources) && len(subdomains) == 0 {
		return nil, fmt.Errorf("all %d enumeration sources failed", failed)
	}

	return &EnumerationResult{Subdomains: subdomains, Stats: stats}, nil
}

// Run enumerates target and overwrites outputFile. For host:port targets the
// bare host is enumerated and the target itself is kept in the list, even
// when enumeration fails.
func Run(ctx context.Context, target string, sources []Source, outputFile string, log *logrus.Logger) (*EnumerationResult, error) {
	domain := target
	if i := strings.Index(target, ":"); i >= 0 {
		domain = target[:i]
	}

	result, err := Enumerate(ctx, domain, sources, log)
	if err != nil {
		if domain == target {
			return nil, err
		}
		log.Errorf("Enumeration of %s failed, keeping %s only: %v", domain, target, err)
		result = &EnumerationResult{}
	}

	if domain != target {
		result.Subdomains = append([]string{target}, result.Subdomains...)
	}

	if err := fileutil.WriteLines(outputFile, result.Subdomains); err != nil {
		return nil, fmt.Errorf("failed to write subdomains: %w", err)
	}

	log.Infof("Subdomain enumeration complete: %d subdomains saved to %s", len(result.Subdomains), outputFile)
	return result, nil
}
