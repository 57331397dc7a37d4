// Package transcript records every prompt/reply exchange the bot
// brokers, keyed by the remote conversation it was routed to. The log is
// local history: the remote conversation remains the source of truth for
// assistant context, this store exists for auditing and the recent-
// activity surfaces.
package transcript

import (
	"context"
	"time"
)

// Exchange is one routed prompt and its reply.
type Exchange struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	MemoryName     string    `json:"memory_name"`
	CategoryID     string    `json:"category_id"`
	ChannelID      string    `json:"channel_id"`
	ThreadID       string    `json:"thread_id,omitempty"`
	UserID         string    `json:"user_id"`
	UserName       string    `json:"user_name"`
	Prompt         string    `json:"prompt"`
	Reply          string    `json:"reply"`
	CreatedAt      time.Time `json:"created_at"`
}

// Driver persists exchanges. Implementations assign ID and CreatedAt
// when the caller leaves them zero.
type Driver interface {
	// Record appends one exchange to the log.
	Record(ctx context.Context, ex Exchange) (*Exchange, error)

	// Recent returns the newest exchanges for a conversation, newest
	// first, capped at limit.
	Recent(ctx context.Context, conversationID string, limit int) ([]Exchange, error)

	// Count returns the total number of recorded exchanges.
	Count(ctx context.Context) (int, error)

	Close() error
}
