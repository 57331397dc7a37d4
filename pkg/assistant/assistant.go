// Package assistant defines the conversation service contract: a remote
// provider that hosts persistent conversations the bot posts user
// messages into and reads replies back out of. Implementations live in
// subpackages (openai implements the Assistants v2 API the bot was built
// against).
package assistant

import (
	"context"
	"errors"
	"fmt"
)

// Client is the conversation service consumed by the routing engine and
// the Discord front end. Every method is one HTTP round trip (WaitForRun
// is several) and suspends on network I/O; all take a context.
type Client interface {
	// CreateConversation creates a remote conversation seeded with an
	// initial user message and returns its opaque id.
	CreateConversation(ctx context.Context, seed string) (string, error)

	// PostMessage appends a user message to the conversation.
	PostMessage(ctx context.Context, conversationID, text string) error

	// StartRun triggers processing of the conversation and returns the
	// run id to poll.
	StartRun(ctx context.Context, conversationID string) (string, error)

	// WaitForRun polls the run until it reaches a terminal state or the
	// configured timeout elapses. A timeout surfaces ErrRunTimeout.
	WaitForRun(ctx context.Context, conversationID, runID string) error

	// LatestReply fetches the most recent assistant reply in the
	// conversation.
	LatestReply(ctx context.Context, conversationID string) (string, error)
}

// ErrRunTimeout is returned by WaitForRun when a run stays non-terminal
// past the configured bound. Surfaced distinctly so callers can suggest
// retrying later.
var ErrRunTimeout = errors.New("assistant run timed out")

// ErrRunFailed is returned when the remote run reports a failed terminal
// state.
var ErrRunFailed = errors.New("assistant run failed")

// RemoteError is a non-success response from the conversation service at
// any stage, with the remote body attached for the user-facing report.
type RemoteError struct {
	Stage  string
	Status int
	Body   string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("assistant %s: status %d: %s", e.Stage, e.Status, e.Body)
}

// Exchange runs the full request cycle against an existing conversation:
// post the user's message, start a run, wait for it, and fetch the reply.
// The conversation id must already be resolved and non-empty; enforcing
// that is the caller's job (the routing engine never hands out blank ids).
func Exchange(ctx context.Context, c Client, conversationID, text string) (string, error) {
	if err := c.PostMessage(ctx, conversationID, text); err != nil {
		return "", err
	}

	runID, err := c.StartRun(ctx, conversationID)
	if err != nil {
		return "", err
	}

	if err := c.WaitForRun(ctx, conversationID, runID); err != nil {
		return "", err
	}

	return c.LatestReply(ctx, conversationID)
}
