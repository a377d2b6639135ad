package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vibeagent/vibe-agent/agent"
	"github.com/vibeagent/vibe-agent/llm"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type cliOptions struct {
	goal          string
	workspace     string
	provider      string
	model         string
	baseURL       string
	maxIterations int
	yes           bool
	verbose       bool
}

func newRootCmd() *cobra.Command {
	var opts cliOptions

	cmd := &cobra.Command{
		Use:   "vibe-agent",
		Short: "Policy-gated coding agent that edits your workspace through an approval loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return run(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.goal, "goal", "", "task for the agent (required)")
	flags.StringVar(&opts.workspace, "workspace", "", "workspace root (default: current directory)")
	flags.StringVar(&opts.provider, "provider", "", `chat provider: "openai" (default) or "gollm:<name>"`)
	flags.StringVar(&opts.model, "model", "", "model id or alias")
	flags.StringVar(&opts.baseURL, "base-url", "", "OpenAI-compatible endpoint base URL")
	flags.IntVar(&opts.maxIterations, "max-iterations", 0, "iteration cap for this task")
	flags.BoolVar(&opts.yes, "yes", false, "auto-approve writes, never prompt")
	flags.BoolVar(&opts.verbose, "verbose", false, "enable diagnostic logging")
	_ = cmd.MarkFlagRequired("goal")

	return cmd
}

func run(ctx context.Context, opts cliOptions) error {
	workspaceRoot := opts.workspace
	if workspaceRoot == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolve working directory: %w", err)
		}
		workspaceRoot = wd
	}

	cfg := agent.LoadConfig(workspaceRoot, agent.Overrides{
		Provider:      opts.provider,
		Model:         opts.model,
		BaseURL:       opts.baseURL,
		MaxIterations: opts.maxIterations,
	})

	logger := zap.NewNop()
	if opts.verbose {
		dev, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		logger = dev
		defer func() { _ = logger.Sync() }()
	}

	client, err := llm.New(llm.Config{
		Provider: cfg.Provider,
		APIKey:   cfg.APIKey,
		BaseURL:  cfg.BaseURL,
		Model:    cfg.Model,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	ui := newConsole(os.Stdout, os.Stdin)
	var prompter agent.Prompter = ui
	if opts.yes {
		prompter = agent.AutoPrompter{}
	}

	session, err := agent.NewSession(cfg, client, prompter, logger)
	if err != nil {
		return err
	}

	rendered := make(chan struct{})
	go func() {
		defer close(rendered)
		for ev := range session.Events() {
			ui.Render(ev)
		}
	}()

	result, runErr := session.RunTask(ctx, opts.goal)
	session.Close()
	<-rendered

	if runErr != nil {
		return runErr
	}
	if result.State != agent.TaskCompleted {
		return fmt.Errorf("task ended without completion: %s", result.State)
	}
	return nil
}
