package chat

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"doc-clerk/internal/llm"
)

// REPL runs an interactive conversation over line-oriented streams.
type REPL struct {
	Client  llm.Client
	Session Session
	Options Options
	Log     *slog.Logger

	In  io.Reader
	Out io.Writer
	Err io.Writer

	// Label prefixes every reply, "Gemini" by default.
	Label string
}

const maxLineSize = 1 << 20

// Run reads input until exit, end of input or ctx cancellation.
func (r *REPL) Run(ctx context.Context) error {
	label := r.Label
	if label == "" {
		label = "Gemini"
	}
	opts := r.Options
	if opts.OnRetry == nil {
		opts.OnRetry = func(attempt int, wait time.Duration, err error) {
			r.Log.Warn("rate limited; retrying", "attempt", attempt, "wait", wait, "err", err)
			fmt.Fprintf(r.Err, "[Rate limit] retrying in %s\n", wait.Round(time.Second))
		}
	}

	scanner := bufio.NewScanner(r.In)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	fmt.Fprintln(r.Out, "Type 'exit' to quit, /reset to start over, /help for commands.")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(r.Out, "You: ")
		if !scanner.Scan() {
			fmt.Fprintln(r.Out, "\nBye!")
			return scanner.Err()
		}

		cmd := ParseCommand(scanner.Text())
		switch cmd.Kind {
		case CmdEmpty:
			continue
		case CmdExit:
			fmt.Fprintln(r.Out, "Bye!")
			return nil
		case CmdHelp:
			fmt.Fprintln(r.Out, HelpText)
		case CmdReset:
			r.Session = r.Session.Reset()
			fmt.Fprintf(r.Out, "%s: Starting a new conversation!\n", label)
		case CmdModel:
			if cmd.Arg == "" {
				fmt.Fprintln(r.Err, "[Error] usage: /model NAME")
				continue
			}
			r.Session = r.Session.WithModel(cmd.Arg)
			r.Log.Info("model switched", "model", cmd.Arg)
			fmt.Fprintf(r.Out, "%s: Switched to %s.\n", label, cmd.Arg)
		case CmdMessage:
			next, reply, err := r.Session.Send(ctx, r.Client, cmd.Arg, opts)
			if err != nil {
				r.Log.Error("send failed", "err", err)
				fmt.Fprintf(r.Err, "[Error] %v\n", err)
				continue
			}
			r.Session = next
			fmt.Fprintf(r.Out, "%s: %s\n", label, reply)
		}
	}
}
