// Package chat holds conversation state and the interactive chat loop.
package chat

import (
	"context"
	"time"

	"doc-clerk/internal/llm"
	"doc-clerk/internal/retry"
)

// Session is one conversation. It is a value: Send, Reset and WithModel
// return a new Session and never modify the receiver.
type Session struct {
	Model             string
	SystemInstruction string
	// MultiTurn sessions send the whole history with every message.
	// Single-turn sessions send each message on its own.
	MultiTurn bool
	History   []llm.Message
}

// Options are the generation and rate-limit settings for Send.
type Options struct {
	Temperature     *float32
	MaxOutputTokens int
	// RateLimitRetries is how many times a rate-limited send is retried.
	RateLimitRetries int
	// RetryDelay is the wait before the first retry when the API suggests none.
	RetryDelay time.Duration
	OnRetry    func(attempt int, wait time.Duration, err error)
}

// NewSession starts an empty conversation.
func NewSession(model, systemInstruction string, multiTurn bool) Session {
	return Session{
		Model:             model,
		SystemInstruction: systemInstruction,
		MultiTurn:         multiTurn,
	}
}

// Reset returns a session with the same settings and no history.
func (s Session) Reset() Session {
	return NewSession(s.Model, s.SystemInstruction, s.MultiTurn)
}

// WithModel returns a fresh session that talks to model.
func (s Session) WithModel(model string) Session {
	return NewSession(model, s.SystemInstruction, s.MultiTurn)
}

// Send delivers text and returns the successor session and the reply.
// Rate-limit errors are retried according to opts; the last error is
// returned if every attempt fails. A reply without text is reported as
// llm.FallbackText and leaves the history unchanged.
func (s Session) Send(ctx context.Context, client llm.Client, text string, opts Options) (Session, string, error) {
	user := llm.UserMessage(text)

	msgs := make([]llm.Message, 0, len(s.History)+1)
	if s.MultiTurn {
		msgs = append(msgs, s.History...)
	}
	msgs = append(msgs, user)

	req := llm.Request{
		Model:             s.Model,
		SystemInstruction: s.SystemInstruction,
		Messages:          msgs,
		Temperature:       opts.Temperature,
		MaxOutputTokens:   opts.MaxOutputTokens,
	}

	policy := retry.Policy{
		MaxRetries: opts.RateLimitRetries,
		BaseDelay:  opts.RetryDelay,
		Retryable:  llm.IsRateLimitError,
		Delay:      llm.RetryDelay,
		OnRetry:    opts.OnRetry,
	}

	var res llm.Result
	err := retry.Do(ctx, policy, func(ctx context.Context) error {
		var err error
		res, err = client.Generate(ctx, req)
		return err
	})
	if err != nil {
		return s, "", err
	}

	reply, ok := llm.ExtractText(res)
	if !ok {
		return s, llm.FallbackText, nil
	}

	next := s
	if s.MultiTurn {
		next.History = make([]llm.Message, 0, len(s.History)+2)
		next.History = append(next.History, s.History...)
		next.History = append(next.History, user, llm.Message{Role: llm.RoleModel, Text: reply})
	}
	return next, reply, nil
}
