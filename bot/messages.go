package bot

import (
	"context"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/aidm5e/aidm/pkg/assistant"
	"github.com/aidm5e/aidm/pkg/transcript"
	"github.com/aidm5e/aidm/pkg/utils"
)

// onMessageCreate is the hot path: every guild message lands here. A
// message is routed to the assistant when its channel is flagged
// always-on, when it arrives in the designated out-of-game channel, or
// when it mentions the bot. Everything else is dropped without a
// document load.
func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if m.GuildID == "" {
		return
	}

	mentioned := b.mentionsMe(s, m.Message)

	t, err := b.resolveTarget(s, m.ChannelID)
	if err != nil {
		b.logger.Warn("resolving message target", "channel", m.ChannelID, "err", err)
		return
	}

	// The always-on index keys on parent channel ids; thread messages
	// arrive with the thread's id in the channel field, so the check
	// runs against the resolved parent.
	if !mentioned &&
		!b.engine.Index().Contains(t.ChannelID) &&
		!b.isOutOfGameChannel(t.ChannelName) {
		return
	}

	if t.CategoryID == "" {
		b.logger.Debug("message outside any category", "channel", m.ChannelID)
		return
	}

	text := b.stripMention(s, m.Content)
	if text == "" {
		return
	}

	conversationID, err := b.engine.Lookup(t.CategoryID, t.ChannelID, t.ThreadID)
	if err != nil {
		b.logger.Warn("no conversation for message",
			"category", t.CategoryID,
			"channel", t.ChannelID,
			"thread", t.ThreadID,
			"err", err,
		)
		if mentioned {
			b.reply(s, m.ChannelID, userMessage(err))
		}
		return
	}

	ctx := context.Background()
	s.ChannelTyping(m.ChannelID)

	reply, err := assistant.Exchange(ctx, b.assistant, conversationID, b.prefixAuthor(m, text))
	if err != nil {
		b.logger.Error("assistant exchange failed",
			"conversation", conversationID,
			"err", err,
		)
		b.reply(s, m.ChannelID, "Something went wrong talking to the assistant. Try again in a moment.")
		return
	}

	b.reply(s, m.ChannelID, reply)
	b.record(ctx, t, m, conversationID, text, reply)
}

// prefixAuthor tags the prompt with the speaking player so a shared
// conversation can tell voices apart.
func (b *Bot) prefixAuthor(m *discordgo.MessageCreate, text string) string {
	return m.Author.Username + ": " + text
}

func (b *Bot) mentionsMe(s *discordgo.Session, m *discordgo.Message) bool {
	if s.State.User == nil {
		return false
	}
	for _, u := range m.Mentions {
		if u.ID == s.State.User.ID {
			return true
		}
	}
	return false
}

// stripMention removes the bot's own mention token from the prompt text.
func (b *Bot) stripMention(s *discordgo.Session, content string) string {
	if s.State.User != nil {
		content = strings.ReplaceAll(content, "<@"+s.State.User.ID+">", "")
		content = strings.ReplaceAll(content, "<@!"+s.State.User.ID+">", "")
	}
	return strings.TrimSpace(content)
}

// reply sends text to a channel in gateway-sized chunks.
func (b *Bot) reply(s *discordgo.Session, channelID, text string) {
	for _, chunk := range SplitMessage(text, MaxMessageLength) {
		if _, err := s.ChannelMessageSend(channelID, chunk); err != nil {
			b.logger.Error("sending reply", "channel", channelID, "err", err)
			return
		}
	}
}

func (b *Bot) record(ctx context.Context, t *target, m *discordgo.MessageCreate, conversationID, prompt, reply string) {
	_, err := b.transcripts.Record(ctx, transcript.Exchange{
		ConversationID: conversationID,
		MemoryName:     b.memoryNameFor(t),
		CategoryID:     t.CategoryID,
		ChannelID:      t.ChannelID,
		ThreadID:       t.ThreadID,
		UserID:         m.Author.ID,
		UserName:       m.Author.Username,
		Prompt:         prompt,
		Reply:          reply,
	})
	if err != nil {
		b.logger.Error("recording transcript",
			"conversation", conversationID,
			"prompt", utils.Truncate(prompt, 80),
			"err", err,
		)
	}
}

// memoryNameFor reads the slot name a target currently routes through,
// for transcript labeling only.
func (b *Bot) memoryNameFor(t *target) string {
	doc := b.engine.Store().Load()
	cat, ok := doc[t.CategoryID]
	if !ok {
		return ""
	}
	ch, ok := cat.Channels[t.ChannelID]
	if !ok {
		return ""
	}
	if t.ThreadID != "" {
		if th, ok := ch.Threads[t.ThreadID]; ok && th.MemoryName != "" {
			return th.MemoryName
		}
	}
	return ch.MemoryName
}
