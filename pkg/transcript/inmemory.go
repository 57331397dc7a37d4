package transcript

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryDriver implements Driver without persistence, for tests and
// for running the bot with transcripts disabled.
type InMemoryDriver struct {
	mu        sync.Mutex
	exchanges []Exchange
}

func NewInMemoryDriver() *InMemoryDriver {
	return &InMemoryDriver{}
}

func (d *InMemoryDriver) Record(_ context.Context, ex Exchange) (*Exchange, error) {
	if ex.ID == "" {
		ex.ID = uuid.NewString()
	}
	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = time.Now().UTC()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.exchanges = append(d.exchanges, ex)
	return &ex, nil
}

func (d *InMemoryDriver) Recent(_ context.Context, conversationID string, limit int) ([]Exchange, error) {
	if limit <= 0 {
		limit = 20
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	var out []Exchange
	for i := len(d.exchanges) - 1; i >= 0 && len(out) < limit; i-- {
		if d.exchanges[i].ConversationID == conversationID {
			out = append(out, d.exchanges[i])
		}
	}
	return out, nil
}

func (d *InMemoryDriver) Count(context.Context) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.exchanges), nil
}

func (d *InMemoryDriver) Close() error {
	return nil
}

var _ Driver = (*InMemoryDriver)(nil)
