// Package routing implements the memory assignment and resolution engine:
// the persisted routing document mapping Discord categories, channels and
// threads to remote conversation ids, the resolution algorithm used on
// every inbound request, and the lifecycle synchronization that keeps the
// document congruent with live Discord state.
package routing

import "strings"

const (
	// DefaultMemoryName is the memory slot every channel falls back to.
	DefaultMemoryName = "gameplay"

	// OutOfGameMemoryName is the slot reserved for out-of-character talk.
	OutOfGameMemoryName = "out-of-game"
)

// conversationIDJunk is the set of characters historically observed
// leaking into stored conversation ids through hand-edits of the
// document. Ids are rejected at write time if they are empty once
// trimmed, and trimmed again defensively on every read.
const conversationIDJunk = "'\". \t\r\n"

// Document is the entire routing table, keyed by category id. It is
// loaded wholesale from disk and written back wholesale on every save.
type Document map[string]*Category

// Category groups the channels of one Discord category together with its
// named memory slots. An initialized category always has non-empty
// gameplay and out-of-game slots.
type Category struct {
	Name          string              `json:"name"`
	DefaultMemory string              `json:"default_memory"`
	MemoryThreads map[string]string   `json:"memory_threads"`
	Channels      map[string]*Channel `json:"channels"`
}

// Channel is one text channel's routing record, nested under its owning
// category.
type Channel struct {
	Name           string             `json:"name"`
	AssignedMemory string             `json:"assigned_memory,omitempty"`
	MemoryName     string             `json:"memory_name,omitempty"`
	AlwaysOn       bool               `json:"always_on"`
	Threads        map[string]*Thread `json:"threads"`
}

// Thread is one Discord thread's routing record. Threads do not carry
// their own always_on; they inherit the parent channel's value at read
// time.
type Thread struct {
	Name           string `json:"name"`
	AssignedMemory string `json:"assigned_memory,omitempty"`
	MemoryName     string `json:"memory_name,omitempty"`
}

// NormalizeID canonicalizes a platform id. All ids enter the document as
// trimmed strings; Discord snowflakes are already strings on the wire.
func NormalizeID(id string) string {
	return strings.TrimSpace(id)
}

// CleanConversationID strips the stray quote, period and whitespace
// characters that corrupted ids in earlier revisions of the document.
func CleanConversationID(id string) string {
	return strings.Trim(id, conversationIDJunk)
}

// ensureCategory returns the category record for id, creating a skeleton
// record if absent. The name is refreshed on every call so renames in
// Discord propagate.
func (d Document) ensureCategory(id, name string) *Category {
	cat, ok := d[id]
	if !ok {
		cat = &Category{
			DefaultMemory: DefaultMemoryName,
			MemoryThreads: map[string]string{},
			Channels:      map[string]*Channel{},
		}
		d[id] = cat
	}
	if cat.MemoryThreads == nil {
		cat.MemoryThreads = map[string]string{}
	}
	if cat.Channels == nil {
		cat.Channels = map[string]*Channel{}
	}
	if cat.DefaultMemory == "" {
		cat.DefaultMemory = DefaultMemoryName
	}
	if name != "" {
		cat.Name = name
	}
	return cat
}

// ensureChannel returns the channel record for id, creating it if absent.
func (c *Category) ensureChannel(id, name string) *Channel {
	if c.Channels == nil {
		c.Channels = map[string]*Channel{}
	}
	ch, ok := c.Channels[id]
	if !ok {
		ch = &Channel{Threads: map[string]*Thread{}}
		c.Channels[id] = ch
	}
	if ch.Threads == nil {
		ch.Threads = map[string]*Thread{}
	}
	if name != "" {
		ch.Name = name
	}
	return ch
}

// ensureThread returns the thread record for id, creating it if absent.
func (c *Channel) ensureThread(id, name string) *Thread {
	if c.Threads == nil {
		c.Threads = map[string]*Thread{}
	}
	th, ok := c.Threads[id]
	if !ok {
		th = &Thread{}
		c.Threads[id] = th
	}
	if name != "" {
		th.Name = name
	}
	return th
}

// slot resolves a named memory slot, cleaned; empty means the slot is
// absent or unusable.
func (c *Category) slot(name string) string {
	if c == nil || c.MemoryThreads == nil {
		return ""
	}
	return CleanConversationID(c.MemoryThreads[name])
}

// slotNames returns the category's defined memory slot names for
// user-facing "available memories" listings.
func (c *Category) slotNames() []string {
	names := make([]string, 0, len(c.MemoryThreads))
	for name := range c.MemoryThreads {
		names = append(names, name)
	}
	return names
}

// Stats summarizes the document for the status API.
type Stats struct {
	Categories     int `json:"categories"`
	Channels       int `json:"channels"`
	Threads        int `json:"threads"`
	MemorySlots    int `json:"memory_slots"`
	AlwaysOn       int `json:"always_on"`
	UnassignedRefs int `json:"unassigned"`
}

// Stats walks the document and counts its records. UnassignedRefs counts
// channel/thread records that currently resolve to nothing.
func (d Document) Stats() Stats {
	var s Stats
	s.Categories = len(d)
	for _, cat := range d {
		s.MemorySlots += len(cat.MemoryThreads)
		s.Channels += len(cat.Channels)
		for _, ch := range cat.Channels {
			s.Threads += len(ch.Threads)
			if ch.AlwaysOn {
				s.AlwaysOn++
			}
			if resolveRecord(cat, ch.MemoryName, ch.AssignedMemory) == "" {
				s.UnassignedRefs++
			}
			for _, th := range ch.Threads {
				if resolveRecord(cat, th.MemoryName, th.AssignedMemory) == "" &&
					resolveRecord(cat, ch.MemoryName, ch.AssignedMemory) == "" {
					s.UnassignedRefs++
				}
			}
		}
	}
	return s
}

// resolveRecord resolves a single record's conversation id under
// shared-slot semantics: the record's named slot wins when the category
// still defines it, so reassigning a slot retargets every referencing
// record; the stored id is only used while the slot is gone (the dangling
// window after a slot delete).
func resolveRecord(cat *Category, memoryName, assigned string) string {
	if memoryName != "" {
		if id := cat.slot(memoryName); id != "" {
			return id
		}
	}
	return CleanConversationID(assigned)
}
