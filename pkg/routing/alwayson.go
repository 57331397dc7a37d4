package routing

import "sync"

// AlwaysOnIndex is the fast-path set of channel ids whose every message is
// routed to the assistant. The message handler consults it on every
// inbound message, so it must not require a document load.
//
// The index is derived state: it is rebuilt from the persisted document at
// startup (and whenever the file changes out-of-band) and updated in the
// same critical section as every always_on mutation. It is never the
// source of truth.
type AlwaysOnIndex struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

func NewAlwaysOnIndex() *AlwaysOnIndex {
	return &AlwaysOnIndex{ids: map[string]struct{}{}}
}

// Contains reports whether the channel id is flagged always-on. Threads
// inherit their parent channel's flag, so callers pass the parent channel
// id for messages arriving in a thread.
func (i *AlwaysOnIndex) Contains(channelID string) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	_, ok := i.ids[NormalizeID(channelID)]
	return ok
}

// Set flags or unflags a single channel id.
func (i *AlwaysOnIndex) Set(channelID string, on bool) {
	id := NormalizeID(channelID)
	i.mu.Lock()
	defer i.mu.Unlock()
	if on {
		i.ids[id] = struct{}{}
	} else {
		delete(i.ids, id)
	}
}

// Rebuild replaces the index contents from the document.
func (i *AlwaysOnIndex) Rebuild(doc Document) {
	ids := map[string]struct{}{}
	for _, cat := range doc {
		for chID, ch := range cat.Channels {
			if ch.AlwaysOn {
				ids[chID] = struct{}{}
			}
		}
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	i.ids = ids
}

// Len returns the number of flagged channels.
func (i *AlwaysOnIndex) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.ids)
}
