package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/suh3art/Recon-toolkit/pkg/elastic"
	"github.com/suh3art/Recon-toolkit/pkg/enum"
	"github.com/suh3art/Recon-toolkit/pkg/fileutil"
	"github.com/suh3art/Recon-toolkit/pkg/fuzz"
	"github.com/suh3art/Recon-toolkit/pkg/jsscan"
	"github.com/suh3art/Recon-toolkit/pkg/probe"
	"github.com/suh3art/Recon-toolkit/pkg/tools"
	"github.com/suh3art/Recon-toolkit/pkg/wayback"
	"github.com/suh3art/Recon-toolkit/pkg/workspace"
)

type sourceFactory func(toolOutput io.Writer, verbose bool) []enum.Source

func (o *Orchestrator) defaultSources(toolOutput io.Writer, verbose bool) []enum.Source {
	var sources []enum.Source

	if o.config.Enumeration.Crtsh {
		sources = append(sources, &enum.Crtsh{Session: o.session})
	}

	if o.config.Enumeration.Subfinder {
		if err := tools.Ensure("subfinder", verbose); err != nil {
			o.logger.Warnf("subfinder unavailable: %v", err)
		} else {
			sources = append(sources, enum.Subfinder(toolOutput))
		}
	}

	if o.config.Enumeration.Assetfinder {
		if err := tools.Ensure("assetfinder", verbose); err != nil {
			o.logger.Warnf("assetfinder unavailable: %v", err)
		} else {
			sources = append(sources, enum.Assetfinder(toolOutput))
		}
	}

	return sources
}

func (o *Orchestrator) runEnumeration(ctx context.Context, ws *workspace.Workspace, opts PipelineOptions, log *workspace.StageLog, result *PipelineResult) error {
	o.logger.Infof("Running subdomain enumeration for %s", ws.Target)

	sources := o.sources(log.Writer(), opts.Verbose)
	enumeration, err := enum.Run(ctx, ws.Target, sources, ws.Path(workspace.SubdomainsFile), log.Logger)
	if err != nil {
		return err
	}

	for _, stat := range enumeration.Stats {
		o.logger.Debugf("%s: %d results, %d errors in %s", stat.Name, stat.Results, stat.Errors, stat.Duration.Round(time.Millisecond))
	}
	o.logger.Infof("Subdomains found: %d", len(enumeration.Subdomains))

	return nil
}

func (o *Orchestrator) proberOptions(opts PipelineOptions) probe.Options {
	cfg := o.config.Probe

	probeOpts := probe.Options{
		Timeout:     time.Duration(cfg.Timeout) * time.Second,
		Concurrency: cfg.Concurrency,
		RateLimit:   cfg.RateLimit,
		UserAgents:  cfg.UserAgents,
		Progress:    cfg.Progress && !opts.Silent,
		Transport:   o.transport,
	}
	if opts.Timeout > 0 {
		probeOpts.Timeout = opts.Timeout
	}
	if opts.Concurrency > 0 {
		probeOpts.Concurrency = opts.Concurrency
	}

	return probeOpts
}

func (o *Orchestrator) runProbe(ctx context.Context, ws *workspace.Workspace, opts PipelineOptions, log *workspace.StageLog, result *PipelineResult) error {
	hostsFile := ws.Path(workspace.SubdomainsFile)

	hosts, err := probe.LoadHostnames(hostsFile)
	if err != nil {
		if errors.Is(err, probe.ErrHostsFileMissing) {
			return fmt.Errorf("%s not found, run enumeration first: %w", workspace.SubdomainsFile, err)
		}
		return err
	}

	o.logger.Infof("Probing %d subdomains for liveness (http + https)...", len(hosts))

	prober := probe.New(o.proberOptions(opts), log.Logger)
	probeResult, err := prober.RunHosts(ctx, hosts, ws.Path(workspace.LiveSubdomainsFile))
	if err != nil {
		return err
	}

	result.LiveHosts = probeResult.AliveCount
	o.logger.Infof("Live hosts found: %d", probeResult.AliveCount)
	o.logger.Debugf("%d candidates in %s: %d alive, %d dead, %d failed",
		probeResult.Candidates, probeResult.Duration.Round(time.Millisecond),
		probeResult.AliveCount, probeResult.DeadCount, probeResult.FailCount)

	o.exportProbeResults(ctx, ws, probeResult)

	return nil
}

// exportProbeResults writes the per-candidate record and feeds the optional
// tracking database and search index. Failures here never fail the stage.
func (o *Orchestrator) exportProbeResults(ctx context.Context, ws *workspace.Workspace, probeResult *probe.Result) {
	jsonlPath := ws.Path(workspace.ProbeResultsFile)
	if err := probe.WriteOutcomesJSONL(jsonlPath, probeResult.Outcomes); err != nil {
		o.logger.Warnf("Failed to write probe results: %v", err)
		return
	}

	if o.db.IsEnabled() {
		if err := o.db.TrackAliveURLs(ws.Target, probeResult.Alive); err != nil {
			o.logger.Warnf("Failed to track live hosts: %v", err)
		} else {
			o.logger.Infof("Tracked %d live URLs in database", len(probeResult.Alive))
		}
	}

	if o.config.Elastic.Enabled {
		client, err := elastic.New(o.config.Elastic)
		if err != nil {
			o.logger.Warnf("Elasticsearch unavailable: %v", err)
			return
		}
		indexed, err := client.IndexJSONLinesFile(ctx, jsonlPath)
		if err != nil {
			o.logger.Warnf("Elasticsearch indexing failed: %v", err)
			return
		}
		o.logger.Infof("Indexed %d probe results into %s", indexed, client.Index())
	}
}

func (o *Orchestrator) readLiveURLs(ws *workspace.Workspace) []string {
	if !ws.Exists(workspace.LiveSubdomainsFile) {
		return nil
	}
	urls, err := fileutil.ReadLines(ws.Path(workspace.LiveSubdomainsFile))
	if err != nil {
		o.logger.Warnf("Could not read %s: %v", workspace.LiveSubdomainsFile, err)
		return nil
	}
	return urls
}

func (o *Orchestrator) runJSScraper(ctx context.Context, ws *workspace.Workspace, opts PipelineOptions, log *workspace.StageLog, result *PipelineResult) error {
	o.logger.Infof("Scraping JavaScript files for secrets...")

	if err := tools.Ensure("gau", opts.Verbose); err != nil {
		o.logger.Warnf("gau unavailable: %v", err)
	}

	scanner := &jsscan.Scanner{
		Session:  o.session,
		Patterns: o.config.JSScraper.Patterns,
	}
	if o.config.JSScraper.ScriptDiscovery {
		scanner.LiveURLs = o.readLiveURLs(ws)
	}

	scan, err := scanner.Run(ctx, ws.Host(), ws.Path(workspace.JSURLsFile), ws.Path(workspace.SecretsFile), log.Logger, log.Writer())
	if err != nil {
		return err
	}

	o.logger.Infof("JS files scanned: %d, potential secrets: %d", scan.Scripts, len(scan.Findings))
	return nil
}

func (o *Orchestrator) runWayback(ctx context.Context, ws *workspace.Workspace, opts PipelineOptions, log *workspace.StageLog, result *PipelineResult) error {
	o.logger.Infof("Fetching Wayback Machine URLs for %s", ws.Host())

	client := &wayback.Client{
		Session:  o.session,
		CDXURL:   o.config.Wayback.CDXURL,
		Timeout:  time.Duration(o.config.Wayback.Timeout) * time.Second,
		Patterns: o.config.Wayback.Patterns,
	}

	archived, err := client.Run(ctx, ws.Host(), ws.Path(workspace.WaybackURLsFile), ws.Path(workspace.SuspiciousFile), log.Logger)
	if err != nil {
		return err
	}

	o.logger.Infof("Wayback URLs: %d, suspicious: %d", len(archived.URLs), len(archived.Suspicious))
	return nil
}

func (o *Orchestrator) runDirFuzz(ctx context.Context, ws *workspace.Workspace, opts PipelineOptions, log *workspace.StageLog, result *PipelineResult) error {
	cfg := o.config.DirFuzz

	if _, err := os.Stat(cfg.Wordlist); err != nil {
		return fmt.Errorf("wordlist %s not available: %w", cfg.Wordlist, err)
	}

	if err := tools.Ensure("ffuf", opts.Verbose); err != nil {
		return err
	}

	bases := []string{"http://" + ws.Target}
	if cfg.FuzzLiveHosts {
		if live := o.readLiveURLs(ws); len(live) > 0 {
			bases = live
		}
	}

	o.logger.Infof("Fuzzing directories on %d base URL(s)...", len(bases))

	fuzzResult, err := fuzz.Run(ctx, bases, ws.Path(workspace.FfufResultsFile), ws.Path(workspace.FoundPathsFile), fuzz.Options{
		Wordlist:   cfg.Wordlist,
		Threads:    cfg.Threads,
		MatchCodes: cfg.MatchCodes,
	}, log.Logger, log.Writer())
	if err != nil {
		return err
	}

	o.logger.Infof("Paths found: %d", len(fuzzResult.Hits))
	return nil
}
