package llm

import (
	"context"
	"errors"
)

// Roles of a conversation message.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// ErrEmptyResponse is returned when the model answers without any text.
var ErrEmptyResponse = errors.New("model returned no text")

// Client is a minimal LLM interface to allow pluggable providers.
type Client interface {
	Generate(ctx context.Context, req Request) (Result, error)
}

// Message is one turn of a conversation.
type Message struct {
	Role string
	Text string
}

// Request describes a single generation call. An empty Model selects the
// client default; nil Temperature and zero MaxOutputTokens leave the
// provider defaults in place.
type Request struct {
	Model             string
	SystemInstruction string
	Messages          []Message
	Temperature       *float32
	MaxOutputTokens   int
}

// UserMessage is shorthand for a single user turn.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Text: text}
}

// Temperature returns a pointer suitable for Request.Temperature.
func Temperature(t float32) *float32 {
	return &t
}

// GenerateText runs req and resolves the result to text. A result without
// text yields ErrEmptyResponse.
func GenerateText(ctx context.Context, c Client, req Request) (string, error) {
	res, err := c.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	text, ok := ExtractText(res)
	if !ok {
		return "", ErrEmptyResponse
	}
	return text, nil
}
