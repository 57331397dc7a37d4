// Package bot is the Discord front end: gateway session, slash commands,
// the always-on/mention message path, and the structural event handlers
// that feed lifecycle synchronization.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/aidm5e/aidm/pkg/assistant"
	"github.com/aidm5e/aidm/pkg/routing"
	"github.com/aidm5e/aidm/pkg/transcript"
)

// Config is the bot configuration.
type Config struct {
	// Token is the Discord bot token.
	Token string

	// GuildID scopes slash-command registration to one guild when set.
	// Global registration takes Discord up to an hour to propagate;
	// guild-scoped is immediate.
	GuildID string

	// OutOfGameChannel is the channel name routed to the out-of-game
	// memory and flagged always-on (case insensitive).
	OutOfGameChannel string

	// SummaryChannel is where /summarize posts its result, created in
	// the category on demand.
	SummaryChannel string
}

// Bot wires the Discord session to the routing engine, the lifecycle
// synchronizer, the conversation service and the transcript log.
type Bot struct {
	session     *discordgo.Session
	engine      *routing.Engine
	syncer      *routing.Syncer
	assistant   assistant.Client
	transcripts transcript.Driver
	config      Config
	logger      *slog.Logger

	commands map[string]commandHandler
}

type commandHandler func(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error

// New creates the bot and registers its gateway handlers. The session is
// not opened until Run.
func New(
	config Config,
	engine *routing.Engine,
	syncer *routing.Syncer,
	client assistant.Client,
	transcripts transcript.Driver,
	logger *slog.Logger,
) (*Bot, error) {
	if config.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}
	if config.SummaryChannel == "" {
		config.SummaryChannel = "session-summary"
	}

	session, err := discordgo.New("Bot " + config.Token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentMessageContent

	b := &Bot{
		session:     session,
		engine:      engine,
		syncer:      syncer,
		assistant:   client,
		transcripts: transcripts,
		config:      config,
		logger:      logger.With("component", "bot"),
	}
	b.commands = b.commandHandlers()

	session.AddHandler(b.onReady)
	session.AddHandler(b.onMessageCreate)
	session.AddHandler(b.onInteractionCreate)
	session.AddHandler(b.onChannelCreate)
	session.AddHandler(b.onChannelDelete)
	session.AddHandler(b.onThreadCreate)
	session.AddHandler(b.onThreadDelete)

	return b, nil
}

// Run opens the gateway connection and blocks until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("opening discord session: %w", err)
	}

	b.logger.Info("connected to discord gateway")
	<-ctx.Done()

	b.logger.Info("closing discord session")
	return b.session.Close()
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.logger.Info("discord session ready",
		"user", r.User.Username,
		"guilds", len(r.Guilds),
	)

	if err := b.registerCommands(s); err != nil {
		b.logger.Error("registering slash commands", "err", err)
	}
}

// target identifies where a message or interaction happened, with thread
// messages resolved up to their parent channel.
type target struct {
	CategoryID   string
	CategoryName string
	ChannelID    string
	ChannelName  string
	ThreadID     string
	ThreadName   string
	GuildID      string
}

// resolveTarget maps a raw channel id to its (category, channel, thread)
// triple. Discord delivers thread messages with the thread's id in the
// channel field, so the parent chain is walked through session state,
// falling back to the REST API on a cold cache.
func (b *Bot) resolveTarget(s *discordgo.Session, channelID string) (*target, error) {
	ch, err := b.channel(s, channelID)
	if err != nil {
		return nil, fmt.Errorf("looking up channel %s: %w", channelID, err)
	}

	t := &target{GuildID: ch.GuildID}

	if ch.IsThread() {
		t.ThreadID = ch.ID
		t.ThreadName = ch.Name

		parent, err := b.channel(s, ch.ParentID)
		if err != nil {
			return nil, fmt.Errorf("looking up thread parent %s: %w", ch.ParentID, err)
		}
		t.ChannelID = parent.ID
		t.ChannelName = parent.Name
		t.CategoryID = parent.ParentID
	} else {
		t.ChannelID = ch.ID
		t.ChannelName = ch.Name
		t.CategoryID = ch.ParentID
	}

	if t.CategoryID != "" {
		if cat, err := b.channel(s, t.CategoryID); err == nil {
			t.CategoryName = cat.Name
		}
	}

	return t, nil
}

func (b *Bot) channel(s *discordgo.Session, id string) (*discordgo.Channel, error) {
	if ch, err := s.State.Channel(id); err == nil {
		return ch, nil
	}
	return s.Channel(id)
}

// categorySnapshot collects the live channels and threads of a category
// for an initialization pass.
func (b *Bot) categorySnapshot(s *discordgo.Session, guildID, categoryID, categoryName string) (routing.CategorySnapshot, error) {
	snap := routing.CategorySnapshot{ID: categoryID, Name: categoryName}

	channels, err := s.GuildChannels(guildID)
	if err != nil {
		return snap, fmt.Errorf("listing guild channels: %w", err)
	}

	byParent := map[string][]*discordgo.Channel{}
	for _, ch := range channels {
		byParent[ch.ParentID] = append(byParent[ch.ParentID], ch)
	}

	for _, ch := range byParent[categoryID] {
		if ch.Type != discordgo.ChannelTypeGuildText {
			continue
		}
		chSnap := routing.ChannelSnapshot{ID: ch.ID, Name: ch.Name}
		for _, th := range byParent[ch.ID] {
			if th.IsThread() {
				chSnap.Threads = append(chSnap.Threads, routing.ThreadSnapshot{ID: th.ID, Name: th.Name})
			}
		}
		snap.Channels = append(snap.Channels, chSnap)
	}

	return snap, nil
}

func (b *Bot) isOutOfGameChannel(name string) bool {
	return b.config.OutOfGameChannel != "" &&
		strings.EqualFold(name, b.config.OutOfGameChannel)
}
