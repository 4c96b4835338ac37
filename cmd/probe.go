package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/suh3art/Recon-toolkit/pkg/config"
	"github.com/suh3art/Recon-toolkit/pkg/probe"
	"github.com/suh3art/Recon-toolkit/pkg/workspace"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	probeList        string
	probeOutput      string
	probeLog         string
	probeTimeout     int
	probeConcurrency int
	probeRate        float64
	probeNoProgress  bool
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Probe a hostname list for live http/https services",
	Long: `Probe every hostname in a list over http and https and write the
sorted alive URLs to the output file. Per-URL outcomes go to the log file.`,
	Example: `  recon-toolkit probe -l subdomains.txt -o live_subdomains.txt
  recon-toolkit probe -l hosts.txt --concurrency 50 --rate 20 -t 3`,
	Run: runProbe,
}

func init() {
	probeCmd.Flags().StringVarP(&probeList, "list", "l", workspace.SubdomainsFile, "file containing hostnames, one per line")
	probeCmd.Flags().StringVarP(&probeOutput, "output", "o", workspace.LiveSubdomainsFile, "file to write alive URLs to")
	probeCmd.Flags().StringVar(&probeLog, "log", "live_probe.log", "file to append per-URL outcomes to")
	probeCmd.Flags().IntVarP(&probeTimeout, "timeout", "t", 0, "per-request timeout in seconds (default from config)")
	probeCmd.Flags().IntVar(&probeConcurrency, "concurrency", 0, "maximum concurrent requests (0 = unbounded)")
	probeCmd.Flags().Float64Var(&probeRate, "rate", 0, "maximum requests per second (0 = unlimited)")
	probeCmd.Flags().BoolVar(&probeNoProgress, "no-progress", false, "disable the progress bar")
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) {
	configManager := config.NewManager(configFile)
	if err := configManager.LoadConfig(); err != nil {
		color.Red("Failed to load configuration: %v", err)
		os.Exit(1)
	}
	cfg := configManager.GetConfig().Probe

	opts := probe.Options{
		Timeout:     time.Duration(cfg.Timeout) * time.Second,
		Concurrency: cfg.Concurrency,
		RateLimit:   cfg.RateLimit,
		UserAgents:  cfg.UserAgents,
		Progress:    cfg.Progress && !probeNoProgress,
	}
	if probeTimeout > 0 {
		opts.Timeout = time.Duration(probeTimeout) * time.Second
	}
	if probeConcurrency > 0 {
		opts.Concurrency = probeConcurrency
	}
	if probeRate > 0 {
		opts.RateLimit = probeRate
	}

	logFile, err := workspace.OpenLogFile(probeLog)
	if err != nil {
		color.Red("Failed to open log file: %v", err)
		os.Exit(1)
	}
	defer logFile.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := probe.New(opts, logFile.Logger).Run(ctx, probeList, probeOutput)
	if err != nil {
		if errors.Is(err, probe.ErrHostsFileMissing) {
			color.Red("Hostname list %s not found", probeList)
		} else {
			color.Red("Probe failed: %v", err)
		}
		logFile.Close()
		os.Exit(1)
	}

	color.Green("[INF] Probed %d hostnames (%d URLs) in %v", result.Hosts, result.Candidates, result.Duration.Round(time.Millisecond))
	color.Green("[INF] Alive URLs: %d, written to %s", result.AliveCount, probeOutput)
}
