package chat

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"doc-clerk/internal/llm"
	"doc-clerk/internal/logger"
)

func newTestREPL(client llm.Client, input string) (*REPL, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return &REPL{
		Client:  client,
		Session: NewSession("gemini-1.5-pro", "", true),
		Log:     logger.NewWithWriter(io.Discard, "error", "json"),
		In:      strings.NewReader(input),
		Out:     &out,
		Err:     &errOut,
	}, &out, &errOut
}

func TestREPLConversation(t *testing.T) {
	client := new(llm.MockClient)
	client.On("Generate", mock.Anything, mock.MatchedBy(func(req llm.Request) bool {
		return len(req.Messages) == 1
	})).Return(llm.DirectText{Text: "Hello!"}, nil).Once()
	client.On("Generate", mock.Anything, mock.MatchedBy(func(req llm.Request) bool {
		return len(req.Messages) == 3
	})).Return(llm.DirectText{Text: "Again!"}, nil).Once()

	repl, out, _ := newTestREPL(client, "hi\n\nhi again\nexit\n")
	require.NoError(t, repl.Run(context.Background()))

	assert.Contains(t, out.String(), "Gemini: Hello!\n")
	assert.Contains(t, out.String(), "Gemini: Again!\n")
	assert.True(t, strings.HasSuffix(out.String(), "Bye!\n"))
	assert.Len(t, repl.Session.History, 4)
	client.AssertExpectations(t)
}

func TestREPLResetAndModel(t *testing.T) {
	client := new(llm.MockClient)
	client.On("Generate", mock.Anything, mock.MatchedBy(func(req llm.Request) bool {
		return req.Model == "gemini-1.5-flash" && len(req.Messages) == 1
	})).Return(llm.DirectText{Text: "fast"}, nil).Once()
	client.On("Generate", mock.Anything, mock.Anything).Return(llm.DirectText{Text: "x"}, nil)

	repl, out, errOut := newTestREPL(client, "first\n/reset\n/model\n/model gemini-1.5-flash\nsecond\n/help\n")
	require.NoError(t, repl.Run(context.Background()))

	assert.Contains(t, out.String(), "Gemini: Starting a new conversation!")
	assert.Contains(t, out.String(), "Gemini: Switched to gemini-1.5-flash.")
	assert.Contains(t, out.String(), "Gemini: fast")
	assert.Contains(t, out.String(), HelpText)
	assert.Contains(t, errOut.String(), "usage: /model NAME")
	assert.Equal(t, "gemini-1.5-flash", repl.Session.Model)
	assert.True(t, strings.HasSuffix(out.String(), "\nBye!\n"), "EOF ends with Bye!")
}

func TestREPLReportsErrors(t *testing.T) {
	client := new(llm.MockClient)
	client.On("Generate", mock.Anything, mock.Anything).Return(nil, errors.New("boom")).Once()
	client.On("Generate", mock.Anything, mock.Anything).Return(llm.DirectText{Text: "recovered"}, nil).Once()

	repl, out, errOut := newTestREPL(client, "one\ntwo\n")
	require.NoError(t, repl.Run(context.Background()))

	assert.Contains(t, errOut.String(), "[Error] boom")
	assert.Contains(t, out.String(), "Gemini: recovered")
	client.AssertExpectations(t)
}

func TestREPLCustomLabel(t *testing.T) {
	client := new(llm.MockClient)
	client.On("Generate", mock.Anything, mock.Anything).Return(llm.DirectText{Text: "hey"}, nil)

	repl, out, _ := newTestREPL(client, "hi\n")
	repl.Label = "Assistant"
	require.NoError(t, repl.Run(context.Background()))
	assert.Contains(t, out.String(), "Assistant: hey")
}

func TestREPLStopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repl, _, _ := newTestREPL(new(llm.MockClient), "hi\n")
	assert.ErrorIs(t, repl.Run(ctx), context.Canceled)
}
