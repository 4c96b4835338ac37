package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/suh3art/Recon-toolkit/pkg/config"
	"github.com/suh3art/Recon-toolkit/pkg/database"
	"github.com/suh3art/Recon-toolkit/pkg/orchestrator"
	"github.com/suh3art/Recon-toolkit/pkg/session"
	"github.com/suh3art/Recon-toolkit/pkg/workspace"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	configFile   string
	target       string
	targetList   string
	outputDir    string
	stageList    string
	skipExisting bool
	rerun        bool
	timeout      int
	concurrency  int
	silent       bool
	verbose      bool
)

var Verbose bool

var rootCmd = &cobra.Command{
	Use:   "recon-toolkit",
	Short: "automated recon pipeline for bug bounty targets",
	Long:  `subdomain enumeration, live host probing, JS secret scraping, wayback mining and directory fuzzing in one pipeline`,
	Run:   runPipeline,
}

func Execute() {
	hasSilentFlag := false
	for i, arg := range os.Args {
		if arg == "-dL" {
			os.Args[i] = "--dL"
		}
		if arg == "-silent" {
			os.Args[i] = "--silent"
			hasSilentFlag = true
		}
		if arg == "--silent" {
			hasSilentFlag = true
		}
	}

	if !hasSilentFlag {
		printBanner()
	}

	if err := rootCmd.Execute(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func DebugLog(format string, args ...interface{}) {
	if Verbose {
		fmt.Printf("[DBG] "+format+"\n", args...)
	}
}

func setDebugLogFunctions() {
	config.DebugLog = DebugLog
	orchestrator.DebugLog = DebugLog
	session.DebugLog = DebugLog
	database.DebugLog = DebugLog
}

func init() {
	rootCmd.SetHelpTemplate(`Usage:
  {{.UseLine}}{{if .HasAvailableSubCommands}}
  {{.CommandPath}} [command]{{end}}

{{if .HasAvailableSubCommands}}Commands:{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}

{{end}}Flags:
INPUT:
   -d, -target string        target (example.com, 10.0.0.5, localhost:3000); prompts when omitted
   -dL, -list string         file containing list of targets

PIPELINE:
   -stages string            comma-separated stages to run (enum,probe,js,wayback,fuzz)
   -skip-existing            reuse existing stage artifacts without asking
   -rerun                    rerun every stage even when artifacts exist

PROBE:
   -t, -timeout int          per-request probe timeout in seconds
   -concurrency int          maximum concurrent probe requests (0 = unbounded)

OUTPUT:
   -o, -output-dir string    directory holding per-target workspaces
   -silent                   silent mode - no banner or extra output

CONFIGURATION:
   -c, -config string        config file path (default: ~/.config/recon-toolkit/config.yaml)

OPTIMIZATION:
   -v, -verbose              enable verbose/debug output
{{if .HasAvailableSubCommands}}
Use "{{.CommandPath}} [command] --help" for more information about a command.{{end}}
`)

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (default: ~/.config/recon-toolkit/config.yaml)")

	rootCmd.Flags().StringVarP(&target, "target", "d", "", "target to scan")
	rootCmd.Flags().StringVar(&targetList, "dL", "", "file containing list of targets")
	rootCmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "directory holding per-target workspaces")
	rootCmd.Flags().StringVar(&stageList, "stages", "", "comma-separated stages to run (enum,probe,js,wayback,fuzz)")
	rootCmd.Flags().BoolVar(&skipExisting, "skip-existing", false, "reuse existing stage artifacts without asking")
	rootCmd.Flags().BoolVar(&rerun, "rerun", false, "rerun every stage even when artifacts exist")
	rootCmd.Flags().IntVarP(&timeout, "timeout", "t", 0, "per-request probe timeout in seconds")
	rootCmd.Flags().IntVar(&concurrency, "concurrency", 0, "maximum concurrent probe requests (0 = unbounded)")
	rootCmd.Flags().BoolVar(&silent, "silent", false, "silent mode - no banner or extra output")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose/debug output")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(updateCmd)
}

func runPipeline(cmd *cobra.Command, args []string) {
	if target != "" && targetList != "" {
		color.Red("Error: cannot use both -d and -dL flags together")
		cmd.Help()
		os.Exit(1)
	}

	if skipExisting && rerun {
		color.Red("Error: --skip-existing and --rerun are mutually exclusive")
		os.Exit(1)
	}

	stages, err := orchestrator.ParseStages(stageList)
	if err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}

	Verbose = verbose

	if verbose {
		setDebugLogFunctions()
	}

	orch, err := orchestrator.NewOrchestrator(configFile)
	if err != nil {
		color.Red("Failed to initialize orchestrator: %v", err)
		os.Exit(1)
	}
	defer orch.GetDB().Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stdin := bufio.NewReader(os.Stdin)

	options := orchestrator.PipelineOptions{
		OutputDir:   outputDir,
		Stages:      stages,
		SkipPolicy:  skipPolicy(),
		Prompter:    stdinPrompter(stdin, os.Stdout),
		Timeout:     time.Duration(timeout) * time.Second,
		Concurrency: concurrency,
		Verbose:     verbose,
		Silent:      silent,
	}

	if target == "" && targetList == "" {
		runInteractive(ctx, orch, options, stdin)
		return
	}

	var targets []string
	if target != "" {
		targets = append(targets, target)
	}

	if targetList != "" {
		fileTargets, err := readTargetsFromFile(targetList)
		if err != nil {
			color.Red("Failed to read target list: %v", err)
			os.Exit(1)
		}
		targets = fileTargets
	}

	allSuccess := true
	for _, t := range targets {
		DebugLog("running pipeline for %s", t)

		options.Target = t
		if !runTarget(ctx, orch, options) {
			allSuccess = false
		}
	}

	if !allSuccess {
		os.Exit(1)
	}
}

func skipPolicy() orchestrator.SkipPolicy {
	switch {
	case skipExisting:
		return orchestrator.SkipExisting
	case rerun:
		return orchestrator.Rerun
	default:
		return orchestrator.SkipAsk
	}
}

// runInteractive keeps asking for targets until the operator enters an
// empty line or stdin closes.
func runInteractive(ctx context.Context, orch *orchestrator.Orchestrator, options orchestrator.PipelineOptions, stdin *bufio.Reader) {
	for ctx.Err() == nil {
		fmt.Print(color.CyanString("[?] Enter target (example.com, 127.0.0.1, localhost:3000) or press Enter to exit: "))

		line, err := stdin.ReadString('\n')
		if err != nil && line == "" {
			fmt.Println()
			return
		}

		t, err := workspace.ValidateTarget(line)
		if errors.Is(err, workspace.ErrEmptyTarget) {
			color.Yellow("Exiting.")
			return
		}
		if err != nil {
			color.Red("Invalid target: %v", err)
			continue
		}

		options.Target = t
		runTarget(ctx, orch, options)
	}
}

func runTarget(ctx context.Context, orch *orchestrator.Orchestrator, options orchestrator.PipelineOptions) bool {
	result, err := orch.RunPipeline(ctx, options)
	if err != nil {
		color.Red("Pipeline failed for %s: %v", options.Target, err)
		return false
	}

	if !silent {
		displaySummary(result)
	}

	return !result.Failed()
}

func stdinPrompter(in *bufio.Reader, out io.Writer) orchestrator.Prompter {
	return func(question string) bool {
		fmt.Fprint(out, color.YellowString("[?] %s (y/n): ", question))
		answer, _ := in.ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		return answer == "y" || answer == "yes"
	}
}

func readTargetsFromFile(filename string) ([]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var targets []string
	scanner := bufio.NewScanner(file)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, err := workspace.ValidateTarget(line); err != nil {
			color.Yellow("Skipping %s: %v", line, err)
			continue
		}
		targets = append(targets, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	if len(targets) == 0 {
		return nil, fmt.Errorf("no valid targets found in file")
	}

	return targets, nil
}

func printBanner() {
	banner := color.CyanString(`
┬─┐┌─┐┌─┐┌─┐┌┐┌  ┌┬┐┌─┐┌─┐┬  ┬┌─┬┌┬┐
├┬┘├┤ │  │ ││││───│ │ ││ ││  ├┴┐│ │
┴└─└─┘└─┘└─┘┘└┘   ┴ └─┘└─┘┴─┘┴ ┴┴ ┴
`)
	info := color.HiBlackString("enumerate, probe, scrape and fuzz from a single prompt")
	fmt.Println(banner)
	fmt.Println(info)
	fmt.Println()
}

func displaySummary(result *orchestrator.PipelineResult) {
	fmt.Println()

	color.Green("[INF] Pipeline finished for %s in %v", result.Target, result.Duration.Round(time.Millisecond))
	color.Cyan("[INF] Results saved to %s", result.Workspace)
	fmt.Println()

	fmt.Printf(" %-10s %-10s %-12s %s\n", "Stage", "Status", "Duration", "Error")
	color.Cyan(strings.Repeat("─", 60))

	for _, stage := range result.Stages {
		duration := fmt.Sprintf("%.0fms", stage.Duration.Seconds()*1000)
		if stage.Duration.Seconds() >= 1 {
			duration = fmt.Sprintf("%.3fs", stage.Duration.Seconds())
		}

		status := color.GreenString("%-10s", stage.Status)
		switch stage.Status {
		case orchestrator.StageFailed:
			status = color.RedString("%-10s", stage.Status)
		case orchestrator.StageSkipped:
			status = color.YellowString("%-10s", stage.Status)
		}

		errText := ""
		if stage.Err != nil {
			errText = stage.Err.Error()
		}

		fmt.Printf(" %-10s %s %-12s %s\n", stage.Stage, status, duration, errText)
	}

	fmt.Println()
}
