package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/aidm5e/aidm/pkg/assistant"
	"github.com/aidm5e/aidm/pkg/routing"
	"github.com/aidm5e/aidm/pkg/transcript"
	"github.com/aidm5e/aidm/pkg/utils"
)

func commandDefinitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "tellme",
			Description: "Info about spells, items, NPCs, character status, inventory, or roll checks.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "query-type",
					Description: "What kind of lookup",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "Spell", Value: "spell"},
						{Name: "CheckStatus", Value: "checkstatus"},
						{Name: "Item", Value: "item"},
						{Name: "NPC", Value: "npc"},
						{Name: "Inventory", Value: "inventory"},
						{Name: "RollCheck", Value: "rollcheck"},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "query",
					Description: "What to look up",
					Required:    true,
				},
			},
		},
		{
			Name:        "ask",
			Description: "Inquire about rules, lore, monsters, and more.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "query-type",
					Description: "Topic area",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "Game Mechanics", Value: "game_mechanics"},
						{Name: "Monsters & Creatures", Value: "monsters_creatures"},
						{Name: "World Lore & History", Value: "world_lore_history"},
						{Name: "Conditions & Effects", Value: "conditions_effects"},
						{Name: "Rules Clarifications", Value: "rules_clarifications"},
						{Name: "Race or Class", Value: "race_class"},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "query",
					Description: "Your question",
					Required:    true,
				},
			},
		},
		{
			Name:        "summarize",
			Description: "Summarize channel messages starting from a given message ID.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "start",
					Description: "Message ID to start from",
					Required:    true,
				},
			},
		},
		{
			Name:        "feedback",
			Description: "Provide feedback about the DM's performance or game experience.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "suggestions",
					Description: "Your feedback",
					Required:    true,
				},
			},
		},
		{
			Name:        "assign-memory",
			Description: "Point this channel or thread at a named memory.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "memory",
					Description: "Memory name",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "create-new",
					Description: "Create the memory if it does not exist",
				},
			},
		},
		{
			Name:        "new-memory",
			Description: "Create a new memory and assign it here.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "memory",
					Description: "Name for the new memory",
					Required:    true,
				},
			},
		},
		{
			Name:        "delete-memory",
			Description: "Delete a named memory from this category.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "memory",
					Description: "Memory name",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "reassign",
					Description: "Point affected channels back at gameplay (default true)",
				},
			},
		},
		{
			Name:        "always-on",
			Description: "Route every message in this channel to the assistant.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "enabled",
					Description: "On or off",
					Required:    true,
				},
			},
		},
		{
			Name:        "init-memory",
			Description: "Initialize memory routing for this category.",
		},
		{
			Name:        "send",
			Description: "Relay messages to another channel in this category.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "message-ids",
					Description: "Comma-separated message IDs",
					Required:    true,
				},
				{
					Type:         discordgo.ApplicationCommandOptionChannel,
					Name:         "target-channel",
					Description:  "Where to send them",
					Required:     true,
					ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
				},
			},
		},
	}
}

func (b *Bot) commandHandlers() map[string]commandHandler {
	return map[string]commandHandler{
		"tellme":        b.handleTellme,
		"ask":           b.handleAsk,
		"summarize":     b.handleSummarize,
		"feedback":      b.handleFeedback,
		"assign-memory": b.handleAssignMemory,
		"new-memory":    b.handleNewMemory,
		"delete-memory": b.handleDeleteMemory,
		"always-on":     b.handleAlwaysOn,
		"init-memory":   b.handleInitMemory,
		"send":          b.handleSend,
	}
}

func (b *Bot) registerCommands(s *discordgo.Session) error {
	appID := s.State.User.ID
	defs := commandDefinitions()

	_, err := s.ApplicationCommandBulkOverwrite(appID, b.config.GuildID, defs)
	if err != nil {
		return fmt.Errorf("registering %d commands: %w", len(defs), err)
	}

	scope := "global"
	if b.config.GuildID != "" {
		scope = "guild " + b.config.GuildID
	}
	b.logger.Info("registered slash commands", "count", len(defs), "scope", scope)
	return nil
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	name := i.ApplicationCommandData().Name
	handler, ok := b.commands[name]
	if !ok {
		b.logger.Warn("unknown command", "command", name)
		return
	}

	// Every handler may block on the conversation service, so the
	// interaction is acknowledged up front and answered via followups.
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}); err != nil {
		b.logger.Error("acknowledging interaction", "command", name, "err", err)
		return
	}

	if err := handler(context.Background(), s, i); err != nil {
		b.logger.Error("command failed", "command", name, "err", err)
		b.followUp(s, i, userMessage(err))
	}
}

// userMessage maps known error shapes to something worth showing in the
// channel; everything else gets a generic line.
func userMessage(err error) string {
	var notFound *routing.MemoryNotFoundError
	var unknownCat *routing.UnknownCategoryError
	var unknownCh *routing.UnknownChannelError

	switch {
	case errors.As(err, &notFound):
		return fmt.Sprintf("No memory named %q here. Available: %s.", notFound.Name, strings.Join(notFound.Available, ", "))
	case errors.As(err, &unknownCat):
		return "This category has no memory routing yet. Run /init-memory first."
	case errors.As(err, &unknownCh):
		return "This channel is not routed yet. Run /init-memory to pick it up."
	case errors.Is(err, routing.ErrNotAssigned):
		return "No memory is assigned here yet. Use /assign-memory to pick one."
	case errors.Is(err, routing.ErrReservedMemory):
		return "The gameplay and out-of-game memories are reserved and cannot be deleted."
	case errors.Is(err, assistant.ErrRunTimeout):
		return "The assistant took too long to respond. Try again in a moment."
	default:
		return "Something went wrong. Check the bot logs."
	}
}

// followUp sends chunked followup messages for a deferred interaction.
func (b *Bot) followUp(s *discordgo.Session, i *discordgo.InteractionCreate, text string) {
	for _, chunk := range SplitMessage(text, MaxMessageLength) {
		_, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
			Content: chunk,
		})
		if err != nil {
			b.logger.Error("sending followup", "err", err)
			return
		}
	}
}

func options(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	opts := i.ApplicationCommandData().Options
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
	for _, opt := range opts {
		m[opt.Name] = opt
	}
	return m
}

func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil {
		return i.Member.User
	}
	return i.User
}

// exchangeAt resolves the interaction's target to a conversation, runs
// one exchange, records it and returns the reply.
func (b *Bot) exchangeAt(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, prompt string) (string, error) {
	t, err := b.resolveTarget(s, i.ChannelID)
	if err != nil {
		return "", err
	}
	if t.CategoryID == "" {
		return "", fmt.Errorf("channel %s is not in a category", i.ChannelID)
	}

	conversationID, err := b.engine.Lookup(t.CategoryID, t.ChannelID, t.ThreadID)
	if err != nil {
		return "", err
	}

	reply, err := assistant.Exchange(ctx, b.assistant, conversationID, prompt)
	if err != nil {
		return "", err
	}

	user := interactionUser(i)
	_, recErr := b.transcripts.Record(ctx, transcript.Exchange{
		ConversationID: conversationID,
		MemoryName:     b.memoryNameFor(t),
		CategoryID:     t.CategoryID,
		ChannelID:      t.ChannelID,
		ThreadID:       t.ThreadID,
		UserID:         user.ID,
		UserName:       user.Username,
		Prompt:         prompt,
		Reply:          reply,
	})
	if recErr != nil {
		b.logger.Error("recording transcript",
			"conversation", conversationID,
			"prompt", utils.Truncate(prompt, 80),
			"err", recErr,
		)
	}

	return reply, nil
}

func (b *Bot) handleTellme(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	opts := options(i)
	queryType := opts["query-type"].StringValue()
	query := opts["query"].StringValue()

	prompt := fmt.Sprintf("[%s] %s: %s", queryType, interactionUser(i).Username, query)
	reply, err := b.exchangeAt(ctx, s, i, prompt)
	if err != nil {
		return err
	}

	b.followUp(s, i, reply)
	return nil
}

func (b *Bot) handleAsk(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	opts := options(i)
	queryType := opts["query-type"].StringValue()
	query := opts["query"].StringValue()

	prompt := fmt.Sprintf("[%s] %s: %s", queryType, interactionUser(i).Username, query)
	reply, err := b.exchangeAt(ctx, s, i, prompt)
	if err != nil {
		return err
	}

	b.followUp(s, i, reply)
	return nil
}

// handleSummarize collects channel messages after the start id, asks the
// assistant for a summary, and posts it to the category's summary
// channel (created on demand).
func (b *Bot) handleSummarize(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	startID := options(i)["start"].StringValue()

	msgs, err := s.ChannelMessages(i.ChannelID, 100, "", startID, "")
	if err != nil {
		return fmt.Errorf("fetching messages after %s: %w", startID, err)
	}
	if len(msgs) == 0 {
		b.followUp(s, i, "No messages found after that ID.")
		return nil
	}

	// ChannelMessages returns newest first.
	var sb strings.Builder
	for idx := len(msgs) - 1; idx >= 0; idx-- {
		m := msgs[idx]
		if m.Author == nil || m.Author.Bot {
			continue
		}
		fmt.Fprintf(&sb, "%s: %s\n", m.Author.Username, m.Content)
	}
	if sb.Len() == 0 {
		b.followUp(s, i, "Nothing to summarize after that ID.")
		return nil
	}

	prompt := "Summarize the following session messages for the party:\n\n" + sb.String()
	summary, err := b.exchangeAt(ctx, s, i, prompt)
	if err != nil {
		return err
	}

	t, err := b.resolveTarget(s, i.ChannelID)
	if err != nil {
		return err
	}

	summaryCh, err := b.findOrCreateChannel(s, t.GuildID, t.CategoryID, b.config.SummaryChannel)
	if err != nil {
		return fmt.Errorf("preparing summary channel: %w", err)
	}

	b.reply(s, summaryCh.ID, summary)
	b.followUp(s, i, fmt.Sprintf("Summary posted to <#%s>.", summaryCh.ID))
	return nil
}

// handleFeedback relays feedback into the category's out-of-game channel
// (created on demand) and routes it to the out-of-game conversation.
func (b *Bot) handleFeedback(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	suggestions := options(i)["suggestions"].StringValue()
	user := interactionUser(i)

	t, err := b.resolveTarget(s, i.ChannelID)
	if err != nil {
		return err
	}
	if t.CategoryID == "" {
		return fmt.Errorf("channel %s is not in a category", i.ChannelID)
	}

	feedbackCh, err := b.findOrCreateChannel(s, t.GuildID, t.CategoryID, b.config.OutOfGameChannel)
	if err != nil {
		return fmt.Errorf("preparing feedback channel: %w", err)
	}

	b.reply(s, feedbackCh.ID, fmt.Sprintf("Feedback from %s: %s", user.Username, suggestions))

	prompt := fmt.Sprintf("%s left feedback about the game: %s. Acknowledge it briefly.", user.Username, suggestions)
	reply, err := b.exchangeAt(ctx, s, i, prompt)
	if err != nil {
		return err
	}

	b.followUp(s, i, reply)
	return nil
}

func (b *Bot) handleAssignMemory(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	opts := options(i)
	memory := opts["memory"].StringValue()
	createNew := false
	if opt, ok := opts["create-new"]; ok {
		createNew = opt.BoolValue()
	}

	return b.assign(ctx, s, i, memory, createNew)
}

func (b *Bot) handleNewMemory(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	memory := options(i)["memory"].StringValue()
	return b.assign(ctx, s, i, memory, true)
}

func (b *Bot) assign(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, memory string, createNew bool) error {
	t, err := b.resolveTarget(s, i.ChannelID)
	if err != nil {
		return err
	}
	if t.CategoryID == "" {
		return fmt.Errorf("channel %s is not in a category", i.ChannelID)
	}

	result, err := b.engine.Assign(ctx, routing.AssignParams{
		CategoryID:   t.CategoryID,
		CategoryName: t.CategoryName,
		ChannelID:    t.ChannelID,
		ChannelName:  t.ChannelName,
		ThreadID:     t.ThreadID,
		ThreadName:   t.ThreadName,
		MemoryName:   memory,
		CreateNew:    createNew,
	})
	if err != nil {
		return err
	}

	where := "#" + result.ChannelName
	if result.ThreadName != "" {
		where = "thread " + result.ThreadName
	}
	verb := "assigned to"
	if result.Created {
		verb = "created and assigned to"
	}
	b.followUp(s, i, fmt.Sprintf("Memory %q %s %s.", result.MemoryName, verb, where))
	return nil
}

func (b *Bot) handleDeleteMemory(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	opts := options(i)
	memory := opts["memory"].StringValue()
	reassign := true
	if opt, ok := opts["reassign"]; ok {
		reassign = opt.BoolValue()
	}

	t, err := b.resolveTarget(s, i.ChannelID)
	if err != nil {
		return err
	}
	if t.CategoryID == "" {
		return fmt.Errorf("channel %s is not in a category", i.ChannelID)
	}

	if err := b.engine.Delete(t.CategoryID, memory); err != nil {
		return err
	}

	msg := fmt.Sprintf("Memory %q deleted.", memory)
	if reassign {
		repaired, err := b.engine.ReassignDefault(t.CategoryID, memory)
		if err != nil {
			return err
		}
		if repaired > 0 {
			msg = fmt.Sprintf("Memory %q deleted; %d channel(s)/thread(s) moved back to gameplay.", memory, repaired)
		}
	}

	b.followUp(s, i, msg)
	return nil
}

func (b *Bot) handleAlwaysOn(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	enabled := options(i)["enabled"].BoolValue()

	t, err := b.resolveTarget(s, i.ChannelID)
	if err != nil {
		return err
	}
	if t.CategoryID == "" {
		return fmt.Errorf("channel %s is not in a category", i.ChannelID)
	}

	if err := b.engine.SetAlwaysOn(t.CategoryID, t.ChannelID, t.ChannelName, enabled); err != nil {
		return err
	}

	state := "off"
	if enabled {
		state = "on"
	}
	b.followUp(s, i, fmt.Sprintf("Always-on is now %s for #%s.", state, t.ChannelName))
	return nil
}

func (b *Bot) handleInitMemory(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	t, err := b.resolveTarget(s, i.ChannelID)
	if err != nil {
		return err
	}
	if t.CategoryID == "" {
		return fmt.Errorf("channel %s is not in a category", i.ChannelID)
	}

	snap, err := b.categorySnapshot(s, t.GuildID, t.CategoryID, t.CategoryName)
	if err != nil {
		return err
	}

	if err := b.syncer.InitializeCategory(ctx, snap); err != nil {
		return err
	}

	b.followUp(s, i, fmt.Sprintf("Memory routing initialized for %s (%d channels).", t.CategoryName, len(snap.Channels)))
	return nil
}

// handleSend relays existing messages into a sibling channel.
func (b *Bot) handleSend(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	opts := options(i)
	ids := strings.Split(opts["message-ids"].StringValue(), ",")
	targetCh := opts["target-channel"].ChannelValue(s)
	if targetCh == nil {
		return fmt.Errorf("target channel not found")
	}

	t, err := b.resolveTarget(s, i.ChannelID)
	if err != nil {
		return err
	}
	if targetCh.ParentID != t.CategoryID {
		b.followUp(s, i, "The target channel must be in this category.")
		return nil
	}

	sent := 0
	for _, raw := range ids {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		msg, err := s.ChannelMessage(i.ChannelID, id)
		if err != nil {
			b.logger.Warn("fetching message to relay", "message", id, "err", err)
			continue
		}
		content := fmt.Sprintf("%s (relayed from <#%s>): %s", msg.Author.Username, i.ChannelID, msg.Content)
		b.reply(s, targetCh.ID, content)
		sent++
	}

	b.followUp(s, i, fmt.Sprintf("Relayed %d message(s) to <#%s>.", sent, targetCh.ID))
	return nil
}

// findOrCreateChannel looks for a text channel by name in the category,
// creating it when absent.
func (b *Bot) findOrCreateChannel(s *discordgo.Session, guildID, categoryID, name string) (*discordgo.Channel, error) {
	if name == "" {
		return nil, fmt.Errorf("channel name not configured")
	}

	channels, err := s.GuildChannels(guildID)
	if err != nil {
		return nil, fmt.Errorf("listing guild channels: %w", err)
	}
	for _, ch := range channels {
		if ch.ParentID == categoryID && ch.Type == discordgo.ChannelTypeGuildText && strings.EqualFold(ch.Name, name) {
			return ch, nil
		}
	}

	ch, err := s.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:     name,
		Type:     discordgo.ChannelTypeGuildText,
		ParentID: categoryID,
	})
	if err != nil {
		return nil, fmt.Errorf("creating channel %q: %w", name, err)
	}

	b.logger.Info("created channel", "name", name, "category", categoryID)
	return ch, nil
}
