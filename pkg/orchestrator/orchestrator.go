package orchestrator

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/suh3art/Recon-toolkit/pkg/config"
	"github.com/suh3art/Recon-toolkit/pkg/database"
	"github.com/suh3art/Recon-toolkit/pkg/session"
	"github.com/suh3art/Recon-toolkit/pkg/workspace"

	"github.com/sirupsen/logrus"
)

var DebugLog func(string, ...interface{})

type Stage string

const (
	StageEnum    Stage = "enum"
	StageProbe   Stage = "probe"
	StageJS      Stage = "js"
	StageWayback Stage = "wayback"
	StageFuzz    Stage = "fuzz"
)

// AllStages is the fixed execution order of the pipeline.
var AllStages = []Stage{StageEnum, StageProbe, StageJS, StageWayback, StageFuzz}

// ParseStages turns a comma separated list into stages. An empty list
// selects every stage.
func ParseStages(list string) ([]Stage, error) {
	if strings.TrimSpace(list) == "" {
		return AllStages, nil
	}

	var stages []Stage
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(strings.ToLower(name))
		if name == "" {
			continue
		}
		valid := false
		for _, stage := range AllStages {
			if Stage(name) == stage {
				valid = true
				break
			}
		}
		if !valid {
			return nil, fmt.Errorf("unknown stage: %s", name)
		}
		stages = append(stages, Stage(name))
	}

	if len(stages) == 0 {
		return AllStages, nil
	}
	return stages, nil
}

// SkipPolicy decides what happens when a stage artifact already exists.
type SkipPolicy int

const (
	SkipAsk SkipPolicy = iota
	SkipExisting
	Rerun
)

// Prompter asks the operator a yes/no question.
type Prompter func(question string) bool

type StageStatus string

const (
	StageDone    StageStatus = "done"
	StageSkipped StageStatus = "skipped"
	StageFailed  StageStatus = "failed"
)

type StageResult struct {
	Stage    Stage
	Status   StageStatus
	Duration time.Duration
	Err      error
}

type PipelineOptions struct {
	Target      string
	OutputDir   string
	Stages      []Stage
	SkipPolicy  SkipPolicy
	Prompter    Prompter
	Timeout     time.Duration
	Concurrency int
	Verbose     bool
	Silent      bool
}

type PipelineResult struct {
	Target    string
	Workspace string
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	Stages    []StageResult
	LiveHosts int
}

// Failed reports whether any stage of the run failed.
func (r *PipelineResult) Failed() bool {
	for _, stage := range r.Stages {
		if stage.Status == StageFailed {
			return true
		}
	}
	return false
}

type Orchestrator struct {
	config        *config.Config
	configManager *config.Manager
	logger        *logrus.Logger
	db            *database.DB
	dbErr         error
	session       *session.Session

	// overridable in tests
	transport http.RoundTripper
	sources   sourceFactory
}

func NewOrchestrator(configPath string) (*Orchestrator, error) {
	logger := workspace.NewConsoleLogger(os.Stderr, false)

	configManager := config.NewManager(configPath)
	if err := configManager.LoadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	cfg := configManager.GetConfig()

	db, err := database.New(&cfg.Database)
	if err != nil {
		logger.Warnf("Database initialization failed: %v", err)
	}

	o := newOrchestrator(cfg, logger)
	o.configManager = configManager
	o.db = db
	o.dbErr = err
	return o, nil
}

func newOrchestrator(cfg *config.Config, logger *logrus.Logger) *Orchestrator {
	o := &Orchestrator{
		config:  cfg,
		logger:  logger,
		session: session.New(cfg),
	}
	o.sources = o.defaultSources
	return o
}

func (o *Orchestrator) GetConfig() *config.Config {
	return o.config
}

func (o *Orchestrator) GetDB() *database.DB {
	return o.db
}

// DBError is the error database initialization failed with, if any.
func (o *Orchestrator) DBError() error {
	return o.dbErr
}

func (o *Orchestrator) Logger() *logrus.Logger {
	return o.logger
}

type stageFunc func(ctx context.Context, ws *workspace.Workspace, opts PipelineOptions, log *workspace.StageLog, result *PipelineResult) error

type stageDef struct {
	stage    Stage
	logName  string
	artifact string
	question string
	run      stageFunc
}

func (o *Orchestrator) stageDefs() []stageDef {
	return []stageDef{
		{StageEnum, "subdomain_enum", workspace.SubdomainsFile, "Skip subdomain enumeration?", o.runEnumeration},
		{StageProbe, "live_probe", workspace.LiveSubdomainsFile, "Skip live host probing?", o.runProbe},
		{StageJS, "js_scraper", workspace.JSURLsFile, "Skip JS scraping?", o.runJSScraper},
		{StageWayback, "wayback_urls", "", "", o.runWayback},
		{StageFuzz, "dir_fuzz", workspace.FfufResultsFile, "Skip directory fuzzing?", o.runDirFuzz},
	}
}

// RunPipeline runs the selected stages against one target in fixed order.
// A failing stage is recorded and the next stage still runs.
func (o *Orchestrator) RunPipeline(ctx context.Context, opts PipelineOptions) (*PipelineResult, error) {
	target, err := workspace.ValidateTarget(opts.Target)
	if err != nil {
		return nil, err
	}

	if opts.Silent {
		o.logger.SetLevel(logrus.ErrorLevel)
	} else if opts.Verbose {
		o.logger.SetLevel(logrus.DebugLevel)
	}

	root := opts.OutputDir
	if root == "" {
		root = o.config.Workspace.OutputDir
	}

	ws, err := workspace.Setup(root, target)
	if err != nil {
		return nil, err
	}

	if len(opts.Stages) == 0 {
		opts.Stages = AllStages
	}
	selected := make(map[Stage]bool, len(opts.Stages))
	for _, stage := range opts.Stages {
		selected[stage] = true
	}

	result := &PipelineResult{
		Target:    target,
		Workspace: ws.Dir,
		StartTime: time.Now(),
	}

	o.logger.Infof("Output will be saved to: %s", ws.Dir)

	for _, def := range o.stageDefs() {
		if !selected[def.stage] {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		result.Stages = append(result.Stages, o.runStage(ctx, def, ws, opts, result))
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	return result, nil
}

func (o *Orchestrator) shouldSkip(def stageDef, ws *workspace.Workspace, opts PipelineOptions) bool {
	if def.artifact == "" || !ws.Exists(def.artifact) {
		return false
	}

	switch opts.SkipPolicy {
	case SkipExisting:
		return true
	case Rerun:
		return false
	default:
		if opts.Prompter == nil {
			return false
		}
		return opts.Prompter(fmt.Sprintf("%s already exists. %s", def.artifact, def.question))
	}
}

func (o *Orchestrator) runStage(ctx context.Context, def stageDef, ws *workspace.Workspace, opts PipelineOptions, result *PipelineResult) StageResult {
	stageResult := StageResult{Stage: def.stage}

	if o.shouldSkip(def, ws, opts) {
		o.logger.Infof("Skipping %s, using existing %s", def.stage, def.artifact)
		stageResult.Status = StageSkipped
		return stageResult
	}

	stageLog, err := ws.OpenStageLog(def.logName)
	if err != nil {
		o.logger.Errorf("Could not open %s log: %v", def.stage, err)
		stageResult.Status = StageFailed
		stageResult.Err = err
		return stageResult
	}
	defer stageLog.Close()

	if DebugLog != nil {
		DebugLog("starting stage %s, log at %s", def.stage, ws.LogPath(def.logName))
	}

	start := time.Now()
	err = def.run(ctx, ws, opts, stageLog, result)
	stageResult.Duration = time.Since(start)

	if err != nil {
		o.logger.Errorf("Stage %s failed: %v", def.stage, err)
		stageLog.Errorf("stage failed: %v", err)
		stageResult.Status = StageFailed
		stageResult.Err = err
		return stageResult
	}

	stageResult.Status = StageDone
	return stageResult
}
