package routing

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// ConversationCreator is the one slice of the conversation service the
// engine needs: minting a fresh remote conversation for a new memory.
type ConversationCreator interface {
	CreateConversation(ctx context.Context, seed string) (string, error)
}

// Engine is the memory resolution engine. Every user-facing operation
// flows through it: read-only resolution of a (category, channel, thread)
// triple to a conversation id, and the mutations that assign, delete and
// repair memory slots.
//
// Mutations hold a per-category mutex for their entire
// load → (remote call) → re-load → mutate → save sequence, closing the
// lost-update window between concurrent handlers touching the same
// category. Operations on different categories interleave freely.
type Engine struct {
	store    *Store
	convos   ConversationCreator
	index    *AlwaysOnIndex
	logger   *slog.Logger
	catLocks keyedMutex
}

func NewEngine(store *Store, convos ConversationCreator, logger *slog.Logger) *Engine {
	e := &Engine{
		store:  store,
		convos: convos,
		index:  NewAlwaysOnIndex(),
		logger: logger.With("component", "routing.engine"),
	}
	e.index.Rebuild(store.Load())
	return e
}

// Index exposes the derived always-on index for the hot message path.
func (e *Engine) Index() *AlwaysOnIndex {
	return e.index
}

// Store exposes the underlying persisted store for read-only consumers
// (the status API, the routes CLI).
func (e *Engine) Store() *Store {
	return e.store
}

// Resolve determines the conversation id for a channel or thread.
// Resolution is read-only: nothing is created here. The second return is
// false when no usable id exists; that outcome is distinct from an error
// and callers must check it before dispatching to the conversation
// service.
//
// A thread's own assignment overrides its parent channel's. Slot names
// are resolved through the category's memory_threads map first, so a
// reassigned slot takes effect everywhere it is referenced.
func (e *Engine) Resolve(categoryID, channelID, threadID string) (string, bool) {
	id, err := e.Lookup(categoryID, channelID, threadID)
	return id, err == nil
}

// Lookup is Resolve with the not-found outcome broken out into typed
// errors: UnknownCategoryError and UnknownChannelError when the document
// has no record at all, ErrNotAssigned when the record exists but carries
// no usable conversation id. Callers that relay errors to users should
// prefer this over Resolve.
func (e *Engine) Lookup(categoryID, channelID, threadID string) (string, error) {
	categoryID = NormalizeID(categoryID)
	channelID = NormalizeID(channelID)
	threadID = NormalizeID(threadID)

	doc := e.store.Load()

	cat, ok := doc[categoryID]
	if !ok {
		return "", &UnknownCategoryError{ID: categoryID}
	}

	ch, ok := cat.Channels[channelID]
	if !ok {
		return "", &UnknownChannelError{CategoryID: categoryID, ID: channelID}
	}

	if threadID != "" {
		if th, ok := ch.Threads[threadID]; ok {
			if id := resolveRecord(cat, th.MemoryName, th.AssignedMemory); id != "" {
				return id, nil
			}
		}
	}

	if id := resolveRecord(cat, ch.MemoryName, ch.AssignedMemory); id != "" {
		return id, nil
	}

	return "", fmt.Errorf("channel %s: %w", channelID, ErrNotAssigned)
}

// AssignParams names the target of an assignment. ThreadID empty assigns
// to the channel record; non-empty assigns to the nested thread record.
// CreateNew mints a fresh remote conversation under MemoryName instead of
// resolving an existing slot.
type AssignParams struct {
	CategoryID   string
	CategoryName string
	ChannelID    string
	ChannelName  string
	ThreadID     string
	ThreadName   string
	MemoryName   string
	CreateNew    bool
}

// AssignResult reports what an assignment did, with enough context for
// the caller to tell the user where the memory landed.
type AssignResult struct {
	ConversationID string
	MemoryName     string
	ChannelName    string
	ThreadName     string
	Created        bool
}

// Assign points a channel or thread at a memory slot, creating the remote
// conversation first when CreateNew is set. The whole operation runs
// under the category's lock; because conversation creation suspends on
// network I/O, the document is re-loaded after the remote call rather
// than mutating the copy loaded before it.
func (e *Engine) Assign(ctx context.Context, p AssignParams) (*AssignResult, error) {
	p.CategoryID = NormalizeID(p.CategoryID)
	p.ChannelID = NormalizeID(p.ChannelID)
	p.ThreadID = NormalizeID(p.ThreadID)

	if p.MemoryName == "" {
		return nil, fmt.Errorf("memory name is required")
	}

	unlock := e.catLocks.lock(p.CategoryID)
	defer unlock()

	doc := e.store.Load()
	cat, ok := doc[p.CategoryID]
	if !ok {
		return nil, &UnknownCategoryError{ID: p.CategoryID}
	}

	var convID string
	if p.CreateNew {
		created, err := e.convos.CreateConversation(ctx, "Memory: "+p.MemoryName)
		if err != nil {
			return nil, fmt.Errorf("creating conversation for memory %q: %w", p.MemoryName, err)
		}
		created = CleanConversationID(created)
		if created == "" {
			return nil, fmt.Errorf("%w: conversation service returned a blank id", ErrInvalidConversationID)
		}
		convID = created

		// The remote call suspended; pick up any saves that happened
		// meanwhile before mutating.
		doc = e.store.Load()
		cat = doc.ensureCategory(p.CategoryID, p.CategoryName)
		cat.MemoryThreads[p.MemoryName] = convID

		e.logger.Info("created memory",
			"category", p.CategoryID,
			"memory", p.MemoryName,
			"conversation", convID,
		)
	} else {
		convID = cat.slot(p.MemoryName)
		if convID == "" {
			return nil, &MemoryNotFoundError{Name: p.MemoryName, Available: cat.slotNames()}
		}
	}

	result := &AssignResult{
		ConversationID: convID,
		MemoryName:     p.MemoryName,
		Created:        p.CreateNew,
	}

	ch := cat.ensureChannel(p.ChannelID, p.ChannelName)
	result.ChannelName = ch.Name

	if p.ThreadID != "" {
		th := ch.ensureThread(p.ThreadID, p.ThreadName)
		th.AssignedMemory = convID
		th.MemoryName = p.MemoryName
		result.ThreadName = th.Name
	} else {
		ch.AssignedMemory = convID
		ch.MemoryName = p.MemoryName
	}

	if err := e.store.Save(doc); err != nil {
		return nil, err
	}

	e.logger.Info("assigned memory",
		"category", p.CategoryID,
		"channel", p.ChannelID,
		"thread", p.ThreadID,
		"memory", p.MemoryName,
		"conversation", convID,
	)

	return result, nil
}

// Delete removes a named memory slot from the category. Channel and
// thread records that referenced the slot are deliberately left dangling;
// the caller decides whether to repair them immediately via
// ReassignDefault or report the gap. The reserved gameplay and
// out-of-game slots cannot be deleted.
func (e *Engine) Delete(categoryID, memoryName string) error {
	categoryID = NormalizeID(categoryID)

	if memoryName == DefaultMemoryName || memoryName == OutOfGameMemoryName {
		return fmt.Errorf("%w: %q", ErrReservedMemory, memoryName)
	}

	unlock := e.catLocks.lock(categoryID)
	defer unlock()

	doc := e.store.Load()
	cat, ok := doc[categoryID]
	if !ok {
		return &UnknownCategoryError{ID: categoryID}
	}

	if _, ok := cat.MemoryThreads[memoryName]; !ok {
		return &MemoryNotFoundError{Name: memoryName, Available: cat.slotNames()}
	}

	delete(cat.MemoryThreads, memoryName)

	if err := e.store.Save(doc); err != nil {
		return err
	}

	e.logger.Info("deleted memory", "category", categoryID, "memory", memoryName)
	return nil
}

// ReassignDefault repairs every channel and thread record in the category
// whose memory_name matches the given (typically just-deleted) slot,
// pointing them back at the category's gameplay slot. Returns how many
// records were repaired.
func (e *Engine) ReassignDefault(categoryID, memoryName string) (int, error) {
	categoryID = NormalizeID(categoryID)

	unlock := e.catLocks.lock(categoryID)
	defer unlock()

	doc := e.store.Load()
	cat, ok := doc[categoryID]
	if !ok {
		return 0, &UnknownCategoryError{ID: categoryID}
	}

	fallback := cat.slot(DefaultMemoryName)
	if fallback == "" {
		return 0, &MemoryNotFoundError{Name: DefaultMemoryName, Available: cat.slotNames()}
	}

	repaired := 0
	for _, ch := range cat.Channels {
		if ch.MemoryName == memoryName {
			ch.MemoryName = DefaultMemoryName
			ch.AssignedMemory = fallback
			repaired++
		}
		for _, th := range ch.Threads {
			if th.MemoryName == memoryName {
				th.MemoryName = DefaultMemoryName
				th.AssignedMemory = fallback
				repaired++
			}
		}
	}

	if repaired == 0 {
		return 0, nil
	}

	if err := e.store.Save(doc); err != nil {
		return 0, err
	}

	e.logger.Info("reassigned default memory",
		"category", categoryID,
		"from", memoryName,
		"records", repaired,
	)
	return repaired, nil
}

// SetAlwaysOn flags or unflags a channel so every message in it (not just
// mentions and commands) is routed to the assistant. The persisted flag
// and the derived index are updated in the same critical section.
func (e *Engine) SetAlwaysOn(categoryID, channelID, channelName string, on bool) error {
	categoryID = NormalizeID(categoryID)
	channelID = NormalizeID(channelID)

	unlock := e.catLocks.lock(categoryID)
	defer unlock()

	doc := e.store.Load()
	cat := doc.ensureCategory(categoryID, "")
	ch := cat.ensureChannel(channelID, channelName)
	ch.AlwaysOn = on

	if err := e.store.Save(doc); err != nil {
		return err
	}

	e.index.Set(channelID, on)
	e.logger.Info("set always-on", "category", categoryID, "channel", channelID, "on", on)
	return nil
}

// keyedMutex hands out one mutex per key so operations on unrelated
// categories never contend.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// lock acquires the mutex for key and returns its unlock func.
func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = map[string]*sync.Mutex{}
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
