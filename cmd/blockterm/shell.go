package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fentz26/blockterm/internal/ai"
	"github.com/fentz26/blockterm/internal/audit"
	"github.com/fentz26/blockterm/internal/connectors/localexec"
	"github.com/fentz26/blockterm/internal/dispatch"
	"github.com/fentz26/blockterm/internal/files"
	"github.com/fentz26/blockterm/internal/permission"
	"github.com/fentz26/blockterm/internal/project"
	"github.com/fentz26/blockterm/internal/ui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// exitGrace is how long the shell may take to wind down after an interrupt
// before the process exits anyway.
const exitGrace = 2 * time.Second

var resumeID string

func init() {
	rootCmd.Flags().StringVar(&resumeID, "resume", "", "Resume a stored session by ID")
}

func runShell(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return withEnv(func(env *appEnv) error {
		logger := env.logger
		cfg := env.cfg

		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
		exec := localexec.New(wd, append(cfg.ExecutorOptions(), localexec.WithLogger(logger))...)

		provider, err := ai.NewFactory().Create(ctx, cfg.ProviderConfig(), logger)
		if err != nil {
			return fmt.Errorf("failed to create AI provider: %w", err)
		}

		sessions := env.sessions()
		if err := sessions.Initialize(ctx); err != nil {
			return err
		}
		if resumeID != "" {
			found, err := sessions.LoadSessionByID(ctx, resumeID)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("session not found: %s", resumeID)
			}
		}

		console := ui.NewConsole(os.Stdin, os.Stdout)
		renderer := ui.NewRenderer(os.Stdout, os.Stderr)
		auditor := audit.NewWriter(env.db, logger)
		gate := permission.NewGate(console, os.Stdout,
			permission.WithRecorder(auditor.RecordChange),
			permission.WithLogger(logger),
			permission.WithPreviewLines(cfg.Permission.CurrentPreviewLines, cfg.Permission.ProposedPreviewLines),
		)
		handler := files.NewHandler(cfg.Policy(), exec.Dir)

		d := dispatch.New(dispatch.Deps{
			Sessions:     sessions,
			Executor:     exec,
			Provider:     provider,
			AIOptions:    cfg.ProviderConfig().Options(),
			Conversation: ai.NewConversation(env.db, cfg.AI.ContextEntries),
			Files:        handler,
			Analyzer:     project.NewAnalyzer(exec.Dir, cfg.Policy(), logger),
			Gate:         gate,
			Audit:        auditor,
			UI:           renderer,
			Input:        console,
			Logger:       logger,
		})

		if ui.Interactive(os.Stdin) {
			renderer.Welcome()
		}
		if _, err := d.AnalyzeProject(ctx); err != nil {
			logger.Warn("initial project analysis", zap.Error(err))
			renderer.Warning("Project analysis failed: " + err.Error())
		}
		if provider.Info().Demo {
			renderer.Info("Running in demo mode. Set an API key (GEMINI_API_KEY or OPENAI_API_KEY) to enable AI responses.")
		}

		logger.Info("shell started",
			zap.String("session", sessions.SessionID()),
			zap.String("provider", string(provider.Info().Provider)),
			zap.String("dir", wd),
		)

		done := make(chan struct{})
		defer close(done)
		go watchdog(ctx, done, logger)

		err = d.Run(ctx)
		if errors.Is(err, context.Canceled) {
			renderer.Info("Goodbye!")
			return nil
		}
		if err == nil {
			renderer.Info("Goodbye!")
		}
		return err
	})
}

// watchdog exits the process when the shell has not returned within
// exitGrace of an interrupt, e.g. while blocked on a permission prompt.
func watchdog(ctx context.Context, done <-chan struct{}, logger *zap.Logger) {
	select {
	case <-done:
		return
	case <-ctx.Done():
	}
	select {
	case <-done:
	case <-time.After(exitGrace):
		logger.Warn("shell did not stop after interrupt, exiting")
		_ = logger.Sync()
		os.Exit(130)
	}
}
