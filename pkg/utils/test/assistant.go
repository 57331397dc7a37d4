// Package testutils provides shared fakes for package test suites.
package testutils

import (
	"context"
	"fmt"
	"sync"

	"github.com/aidm5e/aidm/pkg/assistant"
)

// FakeAssistant is an in-memory assistant.Client. Conversation ids are
// minted sequentially ("conv-1", "conv-2", ...) and every exchange
// replies with Reply (or an echo when unset).
type FakeAssistant struct {
	mu sync.Mutex

	// Reply is returned from LatestReply when non-empty.
	Reply string

	// Err, when set, is returned from every call.
	Err error

	created  int
	Seeds    []string
	Messages map[string][]string
}

func NewFakeAssistant() *FakeAssistant {
	return &FakeAssistant{Messages: map[string][]string{}}
}

// Created returns how many conversations have been minted.
func (f *FakeAssistant) Created() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created
}

func (f *FakeAssistant) CreateConversation(_ context.Context, seed string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return "", f.Err
	}
	f.created++
	f.Seeds = append(f.Seeds, seed)
	return fmt.Sprintf("conv-%d", f.created), nil
}

func (f *FakeAssistant) PostMessage(_ context.Context, conversationID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.Messages[conversationID] = append(f.Messages[conversationID], text)
	return nil
}

func (f *FakeAssistant) StartRun(_ context.Context, conversationID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return "", f.Err
	}
	return "run-" + conversationID, nil
}

func (f *FakeAssistant) WaitForRun(_ context.Context, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Err
}

func (f *FakeAssistant) LatestReply(_ context.Context, conversationID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return "", f.Err
	}
	if f.Reply != "" {
		return f.Reply, nil
	}
	msgs := f.Messages[conversationID]
	if len(msgs) == 0 {
		return "", nil
	}
	return "echo: " + msgs[len(msgs)-1], nil
}

var _ assistant.Client = (*FakeAssistant)(nil)
