package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"doc-clerk/internal/app"
	"doc-clerk/internal/llm"
)

const checkPrompt = "Say only the word: OK"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "[Error]", err)
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	return &cobra.Command{
		Use:           "keycheck",
		Short:         "Verify that the configured API key and model answer a minimal request",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			cfg, log, err := app.LoadConfig()
			if err != nil {
				return err
			}
			key, err := cfg.APIKey()
			if err != nil {
				fmt.Fprintln(out, "API key is not set. Add it to .env in the project root, for example:")
				fmt.Fprintf(out, "  %s=YOUR_API_KEY_HERE\n", keyVar(cfg.LLMProvider))
				return err
			}
			fmt.Fprintln(out, "Loaded API key:", maskKey(key))
			fmt.Fprintln(out, "Using model   :", cfg.Model())

			client, err := app.NewLLM(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			return check(cmd.Context(), out, client, cfg.Model())
		},
	}
}

// check sends a minimal prompt. A reply other than OK is reported but is
// not an error since the key evidently works.
func check(ctx context.Context, out io.Writer, client llm.Client, model string) error {
	res, err := client.Generate(ctx, llm.Request{
		Model:    model,
		Messages: []llm.Message{llm.UserMessage(checkPrompt)},
	})
	if err != nil {
		fmt.Fprintln(out, "Test request failed:")
		fmt.Fprintln(out, "   ", err)
		fmt.Fprintln(out, "\nChecklist")
		fmt.Fprintln(out, " - the API key in .env is correct and active")
		fmt.Fprintf(out, " - the model name is correct (e.g. %s)\n", llm.DefaultGeminiModel)
		fmt.Fprintln(out, " - the network or firewall is not blocking the request")
		return fmt.Errorf("connection test failed: %w", err)
	}
	text, _ := llm.ExtractText(res)
	if strings.ToUpper(text) == "OK" {
		fmt.Fprintf(out, "Connection test succeeded (model: %s)\n", model)
		return nil
	}
	fmt.Fprintf(out, "Got a response, but not the expected one -> %q\n", text)
	return nil
}

func maskKey(key string) string {
	if len(key) < 8 {
		return "None"
	}
	return key[:8] + "..." + key[len(key)-4:]
}

func keyVar(provider string) string {
	if provider == "openai" {
		return "OPENAI_API_KEY"
	}
	return "GEMINI_API_KEY"
}
