package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"doc-clerk/internal/app"
	"doc-clerk/internal/llm"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "[Error]", err)
		stop()
		os.Exit(1)
	}
}

type promptFlags struct {
	text        string
	file        string
	demo        string
	system      string
	model       string
	temperature float32
	maxTokens   int
}

func newRootCommand() *cobra.Command {
	var f promptFlags
	cmd := &cobra.Command{
		Use:           "prompt (--text TEXT | --file FILE | --demo NAME)",
		Short:         "Send a single prompt to the configured model and print the answer",
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
			if !cmd.Flags().Changed("temperature") {
				f.temperature = cfg.PromptTemperature
			}
			deps, err := app.BuildWith(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer deps.Close()

			req, err := buildRequest(deps.FS, f)
			if err != nil {
				return err
			}
			req.Model = cfg.Model()
			return runPrompt(cmd.Context(), cmd.OutOrStdout(), deps.LLM, req)
		},
	}
	cmd.Flags().StringVar(&f.text, "text", "", "Prompt text")
	cmd.Flags().StringVar(&f.file, "file", "", "Read the prompt from a file")
	cmd.Flags().StringVar(&f.demo, "demo", "", "Built-in prompt: "+strings.Join(demoNames(), ", "))
	cmd.Flags().StringVar(&f.system, "system", "", "System instruction (overrides the demo's)")
	cmd.Flags().StringVar(&f.model, "model", "", "Model name (defaults to the configured model)")
	cmd.Flags().Float32Var(&f.temperature, "temperature", 0.9, "Sampling temperature (default $PROMPT_TEMPERATURE)")
	cmd.Flags().IntVar(&f.maxTokens, "max-tokens", 0, "Output token limit, 0 for the provider default")
	cmd.MarkFlagsOneRequired("text", "file", "demo")
	cmd.MarkFlagsMutuallyExclusive("text", "file", "demo")
	return cmd
}

// buildRequest resolves the prompt source into a single-turn request.
func buildRequest(fs afero.Fs, f promptFlags) (llm.Request, error) {
	var prompt, system string
	switch {
	case f.demo != "":
		d, err := lookupDemo(f.demo)
		if err != nil {
			return llm.Request{}, err
		}
		prompt, system = d.prompt, d.system
	case f.file != "":
		data, err := afero.ReadFile(fs, f.file)
		if err != nil {
			return llm.Request{}, fmt.Errorf("failed to read prompt file: %w", err)
		}
		prompt = string(data)
	default:
		prompt = f.text
	}
	if strings.TrimSpace(prompt) == "" {
		return llm.Request{}, fmt.Errorf("prompt is empty")
	}
	if f.system != "" {
		system = f.system
	}
	return llm.Request{
		SystemInstruction: system,
		Messages:          []llm.Message{llm.UserMessage(prompt)},
		Temperature:       llm.Temperature(f.temperature),
		MaxOutputTokens:   f.maxTokens,
	}, nil
}

func runPrompt(ctx context.Context, out io.Writer, client llm.Client, req llm.Request) error {
	text, err := llm.GenerateText(ctx, client, req)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, text)
	return nil
}
