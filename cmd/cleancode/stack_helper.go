package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fareya22/CleanCodeAAgent/internal/analysis"
	"github.com/fareya22/CleanCodeAAgent/internal/config"
	"github.com/fareya22/CleanCodeAAgent/internal/githost"
	"github.com/fareya22/CleanCodeAAgent/internal/logging"
	"github.com/fareya22/CleanCodeAAgent/internal/navstate"
	"github.com/fareya22/CleanCodeAAgent/internal/pipeline"
)

// stack bundles every collaborator a command may need
type stack struct {
	cfg          *config.Config
	locator      *githost.Locator
	treeBuilder  *githost.TreeBuilder
	fetcher      *githost.ContentFetcher
	analyzer     *analysis.Client
	orchestrator *pipeline.Orchestrator
	store        *navstate.Store
	manager      *navstate.Manager
	host         *githost.Client
}

var (
	stackOnce   sync.Once
	sharedStack *stack
	stackErr    error
)

// getStack returns the shared collaborator stack, lazily initialized
func getStack(logger *logging.Logger) (*stack, error) {
	stackOnce.Do(func() {
		dir := stateDir()
		cfg, err := config.Load(dir)
		if err != nil {
			logger.Warn("Failed to load config, using defaults", map[string]interface{}{
				"error": err.Error(),
			})
			cfg = config.DefaultConfig()
		}

		store, err := navstate.Open(dir, logger)
		if err != nil {
			stackErr = fmt.Errorf("failed to open state database: %w", err)
			return
		}

		host := githost.NewClient(githost.ClientConfig{
			APIBaseURL: cfg.GitHub.APIBaseURL,
			WebBaseURL: cfg.GitHub.WebBaseURL,
			Token:      cfg.GitHub.Token,
			Timeout:    time.Duration(cfg.GitHub.TimeoutMs) * time.Millisecond,
		}, logger)

		fetcher := githost.NewContentFetcher(host, logger)
		analyzer := analysis.NewClient(cfg.Analysis.BaseURL,
			time.Duration(cfg.Analysis.TimeoutMs)*time.Millisecond, logger)

		sharedStack = &stack{
			cfg:         cfg,
			host:        host,
			locator:     githost.NewLocator(host, store, logger),
			treeBuilder: githost.NewTreeBuilder(host, logger),
			fetcher:     fetcher,
			analyzer:    analyzer,
			orchestrator: pipeline.New(fetcher, analyzer, pipeline.Options{
				Extensions:        cfg.Pipeline.Extensions,
				MaxFiles:          cfg.Pipeline.MaxFiles,
				RequestsPerMinute: cfg.Pipeline.RequestsPerMinute,
				MaxContentBytes:   cfg.Pipeline.MaxContentBytes,
			}, logger),
			store:   store,
			manager: navstate.NewManager(store, logger),
		}
	})
	return sharedStack, stackErr
}

// mustGetStack returns the shared stack or exits on error
func mustGetStack(logger *logging.Logger) *stack {
	s, err := getStack(logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing: %v\n", err)
		os.Exit(1)
	}
	return s
}

// stateDir resolves the configuration/state directory, flag first
func stateDir() string {
	if configDirFlag != "" {
		return configDirFlag
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cleancode"
	}
	return home + "/.cleancode"
}

// newLogger creates a command-scoped logger. Human output formats keep the
// log level quiet so progress rendering stays readable.
func newLogger(format string) *logging.Logger {
	level := logging.InfoLevel
	logFormat := logging.HumanFormat
	if format == "json" || format == "yaml" {
		level = logging.WarnLevel
		logFormat = logging.JSONFormat
	}
	return logging.NewLogger(logging.Config{Format: logFormat, Level: level})
}

func newContext() context.Context {
	return context.Background()
}

// resolveRepo turns an "owner/repo" argument into a RepoRef. The branch
// flag, when set, plays the role of the on-page branch selector.
func resolveRepo(ctx context.Context, s *stack, arg, branch string) (*githost.RepoRef, error) {
	arg = strings.TrimSpace(strings.Trim(arg, "/"))
	if arg == "" || len(strings.Split(arg, "/")) < 2 {
		return nil, fmt.Errorf("expected an owner/repo argument, got %q", arg)
	}
	return s.locator.Resolve(ctx, githost.PageContext{
		URL:            strings.TrimRight(s.host.WebBaseURL(), "/") + "/" + arg,
		SelectorBranch: branch,
	})
}
