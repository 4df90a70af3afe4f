// Command cadence is the personal automation CLI: it runs workflows on
// demand, lists registrations, runs the cron scheduler daemon, and
// creates manual vault notes.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/deepnoodle-ai/cadence"
	"github.com/deepnoodle-ai/cadence/config"
	"github.com/deepnoodle-ai/cadence/log"
	"github.com/deepnoodle-ai/cadence/runner"
	"github.com/deepnoodle-ai/cadence/scheduler"
	"github.com/deepnoodle-ai/cadence/state"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "cadence",
		Short:         "Personal automation framework",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "cadence.yaml", "Path to config file")
	root.AddCommand(newRunCmd(), newListCmd(), newScheduleCmd(), newNewCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRunCmd() *cobra.Command {
	var rawArgs []string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run <workflow>",
		Short: "Run a workflow once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			workflowName := args[0]

			// Malformed arguments fail here, before any state I/O.
			workflowArgs, err := cadence.ParseArgs(rawArgs)
			if err != nil {
				return err
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg, workflowName)
			if err != nil {
				return err
			}
			app, err := bootstrap(cfg, logger)
			if err != nil {
				return err
			}

			run, err := cadence.NewRunContext(cadence.RunContextOptions{
				Workflow: workflowName,
				Trigger:  cadence.NewTrigger(cadence.TriggerManual, nil),
				Args:     workflowArgs,
				DryRun:   dryRun,
			})
			if err != nil {
				return err
			}
			_, err = app.runner.Run(cmd.Context(), run)
			return err
		},
	}
	cmd.Flags().StringArrayVar(&rawArgs, "arg", nil, "Workflow arg in key=value form (repeatable)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Execute without persisting state")
	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available workflows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			app, err := bootstrap(cfg, log.NewNullLogger())
			if err != nil {
				return err
			}
			name := color.New(color.FgCyan, color.Bold)
			for _, workflowName := range app.registry.Names() {
				workflow, err := app.registry.Get(workflowName)
				if err != nil {
					continue
				}
				name.Print(workflowName)
				fmt.Printf(": %s\n", workflow.Description())
			}
			return nil
		},
	}
}

func newScheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run the scheduler daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg, "scheduler")
			if err != nil {
				return err
			}
			app, err := bootstrap(cfg, logger)
			if err != nil {
				return err
			}

			sched, err := scheduler.New(scheduler.Options{
				Runner:        app.runner,
				RuntimeRoot:   cfg.RuntimeRoot,
				CheckInterval: cfg.CheckInterval(),
				Logger:        logger,
			})
			if err != nil {
				return err
			}
			for _, job := range cfg.Jobs {
				if err := sched.RegisterJob(job.Workflow, job.Schedule, job.Timezone); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return sched.Run(ctx)
		},
	}
}

func newNewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new <type>",
		Short: "Create a new note (currently only: meeting)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] != "meeting" {
				return fmt.Errorf("unsupported note type: %q", args[0])
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger := log.New(log.LevelFromString(cfg.LogLevel))
			app, err := bootstrap(cfg, logger)
			if err != nil {
				return err
			}
			if app.vault == nil {
				return fmt.Errorf("vault_dir not configured")
			}
			path, err := app.vault.CreateMeetingNote(time.Now())
			if err != nil {
				return err
			}
			fmt.Println("Created:", path)
			if err := app.vault.OpenNote(path); err != nil {
				logger.Warn("failed to open note in Obsidian", "error", err)
			}
			return nil
		},
	}
}

// newLogger builds the structured logger, teeing to a per-invocation
// log file under the runtime root.
func newLogger(cfg *config.Config, name string) (log.Logger, error) {
	level := log.LevelFromString(cfg.LogLevel)
	logger, err := log.NewWithLogFile(level, filepath.Join(cfg.RuntimeRoot, "logs"), name)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return logger, nil
}

// newRunner wires the registry and state store into a runner. Split out
// so tests and commands share one bootstrap path.
func newRunner(cfg *config.Config, registry *cadence.Registry, logger log.Logger) (*runner.Runner, error) {
	store, err := state.NewFileStore(state.FileStoreOptions{
		Root:   cfg.RuntimeRoot,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	return runner.New(runner.Options{
		Registry: registry,
		Store:    store,
		Logger:   logger,
	})
}
