// Package servecmder provides the serve command that runs the bot and
// the status API together.
package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aidm5e/aidm/api"
	"github.com/aidm5e/aidm/bot"
	"github.com/aidm5e/aidm/pkg/assistant/openai"
	"github.com/aidm5e/aidm/pkg/config"
	"github.com/aidm5e/aidm/pkg/dotdir"
	"github.com/aidm5e/aidm/pkg/logger"
	"github.com/aidm5e/aidm/pkg/routing"
	"github.com/aidm5e/aidm/pkg/transcript"
)

type ServeCommander struct {
	configDir string
	apiListen string
	noAPI     bool
	debug     bool
	logger    *slog.Logger
}

const serveLongDesc string = `Run the Discord bot and the status API server.

Requires AIDM_BOT_TOKEN and AIDM_ASSISTANT_API_KEY in the environment,
and an assistant id configured via config.toml (assistant.assistant_id)
or AIDM_ASSISTANT_ASSISTANT_ID. Everything else has defaults.

The routing document and the transcript database live in the .aidm/
directory unless storage.routes_path / storage.transcripts_path point
elsewhere.`

const serveShortDesc string = "Run the bot and status API"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			return cmder.run()
		},
	}

	cmd.Flags().StringVarP(&cmder.apiListen, "api-listen", "a", "", "Address for the status API (overrides config)")
	cmd.Flags().BoolVar(&cmder.noAPI, "no-api", false, "Disable the status API server")

	return cmd
}

func (c *ServeCommander) run() error {
	c.logger = logger.New(logger.WithDebug(c.debug), logger.WithPretty(true))

	v, err := config.InitViper(c.configDir)
	if err != nil {
		return err
	}
	cfg := config.FromViper(v)

	if c.apiListen != "" {
		cfg.API.Listen = c.apiListen
	}
	if c.noAPI {
		cfg.API.Enabled = false
	}

	if cfg.Bot.Token == "" {
		return fmt.Errorf("AIDM_BOT_TOKEN is required")
	}
	if cfg.Assistant.APIKey == "" {
		return fmt.Errorf("AIDM_ASSISTANT_API_KEY is required")
	}
	if cfg.Assistant.AssistantID == "" {
		return fmt.Errorf("assistant.assistant_id must be configured")
	}

	routesPath, transcriptsPath, err := c.storagePaths(cfg)
	if err != nil {
		return err
	}

	store := routing.NewStore(routesPath, c.logger)

	client, err := openai.NewClient(openai.ClientConfig{
		BaseURL:      cfg.Assistant.BaseURL,
		APIKey:       cfg.Assistant.APIKey,
		AssistantID:  cfg.Assistant.AssistantID,
		PollInterval: cfg.PollInterval(),
		RunTimeout:   cfg.RunTimeout(),
	})
	if err != nil {
		return fmt.Errorf("creating assistant client: %w", err)
	}

	engine := routing.NewEngine(store, client, c.logger)
	syncer := routing.NewSyncer(engine, cfg.Bot.OutOfGameChannel, c.logger)

	transcripts, err := transcript.NewSQLiteDriver(transcriptsPath)
	if err != nil {
		return fmt.Errorf("opening transcript store: %w", err)
	}
	defer transcripts.Close()

	b, err := bot.New(bot.Config{
		Token:            cfg.Bot.Token,
		GuildID:          cfg.Bot.GuildID,
		OutOfGameChannel: cfg.Bot.OutOfGameChannel,
		SummaryChannel:   cfg.Bot.SummaryChannel,
	}, engine, syncer, client, transcripts, c.logger)
	if err != nil {
		return fmt.Errorf("creating bot: %w", err)
	}

	c.logger.Info("starting aidm",
		"routes", routesPath,
		"transcripts", transcriptsPath,
		"api_enabled", cfg.API.Enabled,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 3)

	go func() {
		if err := b.Run(ctx); err != nil {
			errChan <- fmt.Errorf("bot error: %w", err)
		}
	}()

	watcher := routing.NewWatcher(store, engine.Index(), c.logger)
	go func() {
		if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
			errChan <- fmt.Errorf("watcher error: %w", err)
		}
	}()

	var apiServer *api.Server
	if cfg.API.Enabled {
		apiServer = api.NewServer(api.Config{ListenAddr: cfg.API.Listen}, store, transcripts, c.logger)
		go func() {
			if err := apiServer.Run(); err != nil {
				errChan <- fmt.Errorf("API server error: %w", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
		cancel()
		if apiServer != nil {
			if err := apiServer.Shutdown(); err != nil {
				c.logger.Error("shutting down API server", "err", err)
			}
		}
		return nil
	}
}

// storagePaths resolves the routing document and transcript database
// paths, falling back to the .aidm/ directory when unset.
func (c *ServeCommander) storagePaths(cfg *config.Config) (string, string, error) {
	ddm := dotdir.NewManager()

	routesPath := cfg.Storage.RoutesPath
	if routesPath == "" {
		var err error
		routesPath, err = ddm.RoutesPath(c.configDir)
		if err != nil {
			return "", "", fmt.Errorf("resolving routes path: %w", err)
		}
	}

	transcriptsPath := cfg.Storage.TranscriptsPath
	if transcriptsPath == "" {
		var err error
		transcriptsPath, err = ddm.TranscriptsPath(c.configDir)
		if err != nil {
			return "", "", fmt.Errorf("resolving transcripts path: %w", err)
		}
	}

	return routesPath, transcriptsPath, nil
}
