package routing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Syncer is the lifecycle synchronizer. It reacts to Discord structural
// events (category/channel/thread created or deleted) and to explicit
// initialization commands, keeping the document's shape congruent with
// live Discord state: default conversations for new categories, cascading
// deletes, and normalization of the designated out-of-game channel.
type Syncer struct {
	engine           *Engine
	outOfGameChannel string
	logger           *slog.Logger
}

// CategorySnapshot describes the live Discord shape of one category for
// an initialization pass.
type CategorySnapshot struct {
	ID       string
	Name     string
	Channels []ChannelSnapshot
}

// ChannelSnapshot describes one live text channel and its threads.
type ChannelSnapshot struct {
	ID      string
	Name    string
	Threads []ThreadSnapshot
}

// ThreadSnapshot describes one live thread.
type ThreadSnapshot struct {
	ID   string
	Name string
}

// NewSyncer wires a synchronizer over the same engine that serves
// resolution, so structural mutations and assignments share the same
// per-category locks. outOfGameChannel is the channel name (case
// insensitive) that is always normalized onto the out-of-game slot.
func NewSyncer(engine *Engine, outOfGameChannel string, logger *slog.Logger) *Syncer {
	return &Syncer{
		engine:           engine,
		outOfGameChannel: strings.ToLower(outOfGameChannel),
		logger:           logger.With("component", "routing.sync"),
	}
}

// InitializeCategory ensures a category record exists with both reserved
// memory slots populated, creating remote conversations for any that are
// missing, and ensures a channel record for every live channel in the
// snapshot. Channels default to the gameplay slot; the designated
// out-of-game channel is normalized to the out-of-game slot on every
// pass, not just at creation, so records broken by earlier bugs or manual
// edits self-heal.
func (s *Syncer) InitializeCategory(ctx context.Context, snap CategorySnapshot) error {
	catID := NormalizeID(snap.ID)

	unlock := s.engine.catLocks.lock(catID)
	defer unlock()

	doc := s.engine.store.Load()
	cat := doc.ensureCategory(catID, snap.Name)

	// Mint missing reserved slots first. Each creation suspends on the
	// network, so the document is re-loaded afterwards before mutating.
	missing := []string{}
	for _, name := range []string{DefaultMemoryName, OutOfGameMemoryName} {
		if cat.slot(name) == "" {
			missing = append(missing, name)
		}
	}

	created := map[string]string{}
	for _, name := range missing {
		seed := fmt.Sprintf("%s memory for %s", seedTitle(name), snap.Name)
		id, err := s.engine.convos.CreateConversation(ctx, seed)
		if err != nil {
			return fmt.Errorf("creating %s conversation for category %s: %w", name, catID, err)
		}
		id = CleanConversationID(id)
		if id == "" {
			return fmt.Errorf("%w: conversation service returned a blank id", ErrInvalidConversationID)
		}
		created[name] = id
	}

	if len(created) > 0 {
		doc = s.engine.store.Load()
		cat = doc.ensureCategory(catID, snap.Name)
		for name, id := range created {
			// Another handler may have raced the creation; last writer wins.
			cat.MemoryThreads[name] = id
		}
	}

	for _, chSnap := range snap.Channels {
		s.syncChannel(cat, chSnap)
	}

	// Normalize records for channels the snapshot did not cover but the
	// document already tracks (self-heal applies to them too).
	for _, ch := range cat.Channels {
		if s.isOutOfGameChannel(ch.Name) {
			s.normalizeOutOfGame(cat, ch)
		}
	}

	if err := s.engine.store.Save(doc); err != nil {
		return err
	}

	s.engine.index.Rebuild(doc)
	s.logger.Info("initialized category",
		"category", catID,
		"name", snap.Name,
		"created_slots", len(created),
		"channels", len(snap.Channels),
	)
	return nil
}

// syncChannel ensures one channel record and its thread records exist
// with inherited defaults.
func (s *Syncer) syncChannel(cat *Category, snap ChannelSnapshot) {
	chID := NormalizeID(snap.ID)
	_, existed := cat.Channels[chID]
	ch := cat.ensureChannel(chID, snap.Name)

	if s.isOutOfGameChannel(ch.Name) {
		s.normalizeOutOfGame(cat, ch)
	} else if !existed {
		ch.MemoryName = DefaultMemoryName
		ch.AssignedMemory = cat.slot(DefaultMemoryName)
	}

	for _, thSnap := range snap.Threads {
		thID := NormalizeID(thSnap.ID)
		if _, ok := ch.Threads[thID]; ok {
			continue
		}
		th := ch.ensureThread(thID, thSnap.Name)
		th.MemoryName = ch.MemoryName
		th.AssignedMemory = ch.AssignedMemory
	}
}

// normalizeOutOfGame forces the designated out-of-game channel onto the
// out-of-game slot and always-on listening, regardless of what an earlier
// pass or a hand edit left behind.
func (s *Syncer) normalizeOutOfGame(cat *Category, ch *Channel) {
	ch.MemoryName = OutOfGameMemoryName
	ch.AssignedMemory = cat.slot(OutOfGameMemoryName)
	ch.AlwaysOn = true
}

func (s *Syncer) isOutOfGameChannel(name string) bool {
	return s.outOfGameChannel != "" && strings.ToLower(name) == s.outOfGameChannel
}

// seedTitle capitalizes a slot name for the seed message of a freshly
// minted conversation ("gameplay" -> "Gameplay memory for ...").
func seedTitle(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// OnCategoryCreated initializes a freshly created category. Discord
// creates categories empty, so the snapshot carries no channels.
func (s *Syncer) OnCategoryCreated(ctx context.Context, categoryID, name string) error {
	return s.InitializeCategory(ctx, CategorySnapshot{ID: categoryID, Name: name})
}

// OnChannelCreated lazily extends the document with a record for a new
// channel, inheriting the category's gameplay slot (or the out-of-game
// slot for the designated channel name).
func (s *Syncer) OnChannelCreated(categoryID, channelID, name string) error {
	catID := NormalizeID(categoryID)

	unlock := s.engine.catLocks.lock(catID)
	defer unlock()

	doc := s.engine.store.Load()
	cat, ok := doc[catID]
	if !ok {
		// The category has never been initialized; the channel record
		// will be created lazily on first interaction instead.
		s.logger.Warn("channel created in untracked category", "category", catID, "channel", channelID)
		return nil
	}

	s.syncChannel(cat, ChannelSnapshot{ID: channelID, Name: name})

	if err := s.engine.store.Save(doc); err != nil {
		return err
	}

	s.engine.index.Rebuild(doc)
	s.logger.Info("channel record created", "category", catID, "channel", channelID, "name", name)
	return nil
}

// OnThreadCreated lazily extends the document with a thread record
// inheriting its parent channel's assignment.
func (s *Syncer) OnThreadCreated(categoryID, channelID, threadID, name string) error {
	catID := NormalizeID(categoryID)
	chID := NormalizeID(channelID)

	unlock := s.engine.catLocks.lock(catID)
	defer unlock()

	doc := s.engine.store.Load()
	cat, ok := doc[catID]
	if !ok {
		s.logger.Warn("thread created in untracked category", "category", catID, "thread", threadID)
		return nil
	}

	ch, ok := cat.Channels[chID]
	if !ok {
		s.logger.Warn("thread created in untracked channel", "category", catID, "channel", chID, "thread", threadID)
		return nil
	}

	th := ch.ensureThread(NormalizeID(threadID), name)
	th.MemoryName = ch.MemoryName
	th.AssignedMemory = ch.AssignedMemory

	if err := s.engine.store.Save(doc); err != nil {
		return err
	}

	s.logger.Info("thread record created", "category", catID, "channel", chID, "thread", threadID)
	return nil
}

// OnCategoryDeleted removes the category record and everything nested
// under it. Deleting a category with no record is a warn-level no-op.
func (s *Syncer) OnCategoryDeleted(categoryID string) error {
	catID := NormalizeID(categoryID)

	unlock := s.engine.catLocks.lock(catID)
	defer unlock()

	doc := s.engine.store.Load()
	if _, ok := doc[catID]; !ok {
		s.logger.Warn("delete for untracked category", "category", catID)
		return nil
	}

	delete(doc, catID)

	if err := s.engine.store.Save(doc); err != nil {
		return err
	}

	s.engine.index.Rebuild(doc)
	s.logger.Info("category record deleted", "category", catID)
	return nil
}

// OnChannelDeleted removes the channel record and its threads.
func (s *Syncer) OnChannelDeleted(categoryID, channelID string) error {
	catID := NormalizeID(categoryID)
	chID := NormalizeID(channelID)

	unlock := s.engine.catLocks.lock(catID)
	defer unlock()

	doc := s.engine.store.Load()
	cat, ok := doc[catID]
	if !ok {
		s.logger.Warn("channel delete for untracked category", "category", catID, "channel", chID)
		return nil
	}
	if _, ok := cat.Channels[chID]; !ok {
		s.logger.Warn("delete for untracked channel", "category", catID, "channel", chID)
		return nil
	}

	delete(cat.Channels, chID)

	if err := s.engine.store.Save(doc); err != nil {
		return err
	}

	s.engine.index.Rebuild(doc)
	s.logger.Info("channel record deleted", "category", catID, "channel", chID)
	return nil
}

// OnThreadDeleted removes a single thread record.
func (s *Syncer) OnThreadDeleted(categoryID, channelID, threadID string) error {
	catID := NormalizeID(categoryID)
	chID := NormalizeID(channelID)
	thID := NormalizeID(threadID)

	unlock := s.engine.catLocks.lock(catID)
	defer unlock()

	doc := s.engine.store.Load()
	cat, ok := doc[catID]
	if !ok {
		s.logger.Warn("thread delete for untracked category", "category", catID, "thread", thID)
		return nil
	}
	ch, ok := cat.Channels[chID]
	if !ok {
		s.logger.Warn("thread delete for untracked channel", "category", catID, "channel", chID)
		return nil
	}
	if _, ok := ch.Threads[thID]; !ok {
		s.logger.Warn("delete for untracked thread", "category", catID, "channel", chID, "thread", thID)
		return nil
	}

	delete(ch.Threads, thID)

	if err := s.engine.store.Save(doc); err != nil {
		return err
	}

	s.logger.Info("thread record deleted", "category", catID, "channel", chID, "thread", thID)
	return nil
}
