// Command orchestratord wires every component (C1-C12) into a single
// process and drives the tick loop over pending tasks for one session.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/swarmkernel/orchestrator/internal/blackboard"
	"github.com/swarmkernel/orchestrator/internal/config"
	"github.com/swarmkernel/orchestrator/internal/fault"
	"github.com/swarmkernel/orchestrator/internal/gitadapter"
	"github.com/swarmkernel/orchestrator/internal/gitroles"
	"github.com/swarmkernel/orchestrator/internal/graph"
	"github.com/swarmkernel/orchestrator/internal/health"
	"github.com/swarmkernel/orchestrator/internal/kernel"
	"github.com/swarmkernel/orchestrator/internal/llm"
	"github.com/swarmkernel/orchestrator/internal/parse"
	"github.com/swarmkernel/orchestrator/internal/pruner"
	"github.com/swarmkernel/orchestrator/internal/taskmodel"
	"github.com/swarmkernel/orchestrator/internal/telemetry"
)

var (
	configPath string
	workspace  string
	session    string
	verbose    bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "orchestratord",
	Short: "Multi-agent orchestration kernel daemon",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Build the knowledge graph and tick every non-completed task once",
	RunE: func(cmd *cobra.Command, args []string) error {
		k, cleanup, err := buildKernel()
		if err != nil {
			return err
		}
		defer cleanup()

		ctx := context.Background()
		profile, err := k.Store.Load(session)
		if err != nil {
			return fmt.Errorf("load session %s: %w", session, err)
		}

		for id, task := range profile.Tasks {
			if task.Status == taskmodel.StatusCompleted {
				continue
			}
			if err := k.ProcessTask(ctx, session, id); err != nil {
				logger.Error("orchestratord: task tick failed", zap.String("task_id", id), zap.Error(err))
			}
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")
	rootCmd.PersistentFlags().StringVar(&session, "session", "default", "Session identifier")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(runCmd)
}

// buildKernel constructs every component C1-C12 composes and returns a
// ready Kernel plus a cleanup func for the owned resources (telemetry DB,
// optional SQL backend).
func buildKernel() (*kernel.Kernel, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if workspace != "" {
		cfg.Workspace = workspace
	}
	if cfg.Workspace == "" {
		cfg.Workspace, _ = os.Getwd()
	}

	ledger, err := telemetry.Open(cfg.Telemetry.DBPath, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open telemetry ledger: %w", err)
	}

	monitor, err := health.NewMonitor(ledger, logger)
	if err != nil {
		ledger.Close()
		return nil, nil, fmt.Errorf("build health monitor: %w", err)
	}

	var storeOpts []blackboard.Option
	storeOpts = append(storeOpts, blackboard.WithLogger(logger))
	if cfg.Blackboard.PostgresURL != "" {
		logger.Warn("orchestratord: POSTGRES_URL set but no Postgres backend is wired in-tree; falling back to the sqlite stand-in")
	}
	sqlBackend, err := blackboard.NewSQLiteBackend(cfg.Blackboard.FilePath + ".sqlite")
	if err != nil {
		logger.Warn("orchestratord: sqlite backend unavailable, file-only mode", zap.Error(err))
	} else {
		storeOpts = append(storeOpts, blackboard.WithSQLBackend(sqlBackend))
	}
	store := blackboard.New(cfg.Blackboard.FilePath, cfg.Blackboard.LockTTL, cfg.Blackboard.LockTimeout, storeOpts...)

	prune := pruner.New(pruner.KeywordEmbedder{}, logger)
	roles := gitroles.New(monitor, logger)
	faultRunner := fault.NewRunner(fault.NoOpCollector{}, cfg.Fault.Timeout, logger)
	git := gitadapter.New(cfg.Workspace, 2*time.Minute, logger)

	var client llm.Client
	if cfg.LLM.APIKey != "" {
		client = llm.NewOpenRouterClient(llm.OpenRouterConfig{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
			Timeout: cfg.LLM.Timeout,
		}, logger)
	} else {
		logger.Warn("orchestratord: OPENROUTER_API_KEY not set, worker dispatch will fail")
	}

	registry := parse.NewRegistry(cfg.Graph.LiteMode, logger)
	g, err := graph.Build(context.Background(), cfg.Workspace, registry, cfg.Graph.Parallelism, logger)
	if err != nil {
		logger.Warn("orchestratord: knowledge graph build failed, context_needed dispatch will raise a contract violation", zap.Error(err))
		g = nil
	}

	k := kernel.New(store, ledger, monitor, prune, roles, faultRunner, nil, client, git, g, cfg, logger)

	cleanup := func() {
		ledger.Close()
		if sqlBackend != nil {
			sqlBackend.Close()
		}
	}
	return k, cleanup, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
