package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"doc-clerk/internal/app"
	"doc-clerk/internal/chat"
	"doc-clerk/internal/config"
	"doc-clerk/internal/llm"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCommand(os.Stdin).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "[Error]", err)
		stop()
		os.Exit(1)
	}
}

type chatFlags struct {
	singleTurn bool
	model      string
	system     string
	label      string
}

func newRootCommand(in io.Reader) *cobra.Command {
	var f chatFlags
	cmd := &cobra.Command{
		Use:           "chat",
		Short:         "Interactive chat with the configured model",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := app.LoadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("model") {
				cfg.SetModel(f.model)
			}
			if cmd.Flags().Changed("system") {
				cfg.ChatSystemInstruction = f.system
			}
			deps, err := app.BuildWith(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer deps.Close()

			repl := newREPL(deps.LLM, cfg, log, f)
			repl.In = in
			repl.Out = cmd.OutOrStdout()
			repl.Err = cmd.ErrOrStderr()
			return repl.Run(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&f.singleTurn, "single-turn", false, "Send every message without earlier history")
	cmd.Flags().StringVar(&f.model, "model", "", "Model name (defaults to the configured model)")
	cmd.Flags().StringVar(&f.system, "system", "", "System instruction for the conversation")
	cmd.Flags().StringVar(&f.label, "label", "", "Reply prefix (defaults to the provider name)")
	return cmd
}

func newREPL(client llm.Client, cfg config.Config, log *slog.Logger, f chatFlags) *chat.REPL {
	label := f.label
	if label == "" {
		label = providerLabel(cfg.LLMProvider)
	}
	return &chat.REPL{
		Client:  client,
		Session: chat.NewSession(cfg.Model(), cfg.ChatSystemInstruction, !f.singleTurn),
		Options: chatOptions(cfg),
		Log:     log,
		Label:   label,
	}
}

func chatOptions(cfg config.Config) chat.Options {
	return chat.Options{
		Temperature:      llm.Temperature(cfg.ChatTemperature),
		MaxOutputTokens:  cfg.ChatMaxTokens,
		RateLimitRetries: cfg.ChatRateLimitRetries,
		RetryDelay:       cfg.ChatRetryDelay,
	}
}

func providerLabel(provider string) string {
	if provider == "openai" {
		return "OpenAI"
	}
	return "Gemini"
}
