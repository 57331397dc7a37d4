package bot

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// Structural gateway events feed the lifecycle synchronizer so the
// routing document tracks live Discord shape.

func (b *Bot) onChannelCreate(s *discordgo.Session, e *discordgo.ChannelCreate) {
	switch e.Type {
	case discordgo.ChannelTypeGuildCategory:
		if err := b.syncer.OnCategoryCreated(context.Background(), e.ID, e.Name); err != nil {
			b.logger.Error("syncing created category", "category", e.ID, "err", err)
		}

	case discordgo.ChannelTypeGuildText:
		if e.ParentID == "" {
			return
		}
		if err := b.syncer.OnChannelCreated(e.ParentID, e.ID, e.Name); err != nil {
			b.logger.Error("syncing created channel", "channel", e.ID, "err", err)
		}
	}
}

func (b *Bot) onChannelDelete(s *discordgo.Session, e *discordgo.ChannelDelete) {
	switch e.Type {
	case discordgo.ChannelTypeGuildCategory:
		if err := b.syncer.OnCategoryDeleted(e.ID); err != nil {
			b.logger.Error("syncing deleted category", "category", e.ID, "err", err)
		}

	case discordgo.ChannelTypeGuildText:
		if e.ParentID == "" {
			return
		}
		if err := b.syncer.OnChannelDeleted(e.ParentID, e.ID); err != nil {
			b.logger.Error("syncing deleted channel", "channel", e.ID, "err", err)
		}
	}
}

func (b *Bot) onThreadCreate(s *discordgo.Session, e *discordgo.ThreadCreate) {
	parent, err := b.channel(s, e.ParentID)
	if err != nil {
		b.logger.Warn("looking up thread parent", "thread", e.ID, "err", err)
		return
	}
	if parent.ParentID == "" {
		return
	}
	if err := b.syncer.OnThreadCreated(parent.ParentID, parent.ID, e.ID, e.Name); err != nil {
		b.logger.Error("syncing created thread", "thread", e.ID, "err", err)
	}
}

func (b *Bot) onThreadDelete(s *discordgo.Session, e *discordgo.ThreadDelete) {
	parent, err := b.channel(s, e.ParentID)
	if err != nil {
		b.logger.Warn("looking up thread parent", "thread", e.ID, "err", err)
		return
	}
	if parent.ParentID == "" {
		return
	}
	if err := b.syncer.OnThreadDeleted(parent.ParentID, parent.ID, e.ID); err != nil {
		b.logger.Error("syncing deleted thread", "thread", e.ID, "err", err)
	}
}
