package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aidm5e/aidm/pkg/config"
)

var _ = Describe("Config", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	Describe("NewDefaultConfig", func() {
		It("populates every section", func() {
			cfg := config.NewDefaultConfig()
			Expect(cfg.Bot.OutOfGameChannel).To(Equal("telldm"))
			Expect(cfg.Bot.SummaryChannel).To(Equal("session-summary"))
			Expect(cfg.Assistant.BaseURL).To(Equal("https://api.openai.com"))
			Expect(cfg.Assistant.PollIntervalSeconds).To(BeNumerically(">", 0))
			Expect(cfg.Assistant.RunTimeoutSeconds).To(BeNumerically(">", 0))
			Expect(cfg.API.Enabled).To(BeTrue())
			Expect(cfg.API.Listen).NotTo(BeEmpty())
		})
	})

	Describe("ParseConfigTOML", func() {
		It("parses a valid config", func() {
			data := []byte(`
version = 0

[bot]
guild_id = "123456"
out_of_game_channel = "ask-the-dm"

[assistant]
assistant_id = "asst_abc"
run_timeout_seconds = 30
`)
			cfg, err := config.ParseConfigTOML(data)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Bot.GuildID).To(Equal("123456"))
			Expect(cfg.Bot.OutOfGameChannel).To(Equal("ask-the-dm"))
			Expect(cfg.Assistant.AssistantID).To(Equal("asst_abc"))
			Expect(cfg.Assistant.RunTimeoutSeconds).To(Equal(uint(30)))
		})

		It("rejects unsupported versions", func() {
			_, err := config.ParseConfigTOML([]byte("version = 99"))
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("unsupported config version"))
		})

		It("rejects malformed TOML", func() {
			_, err := config.ParseConfigTOML([]byte("not toml ==="))
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Configer", func() {
		It("returns defaults when no config file exists", func() {
			cfger, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := cfger.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Bot.OutOfGameChannel).To(Equal("telldm"))
		})

		It("round-trips save and load", func() {
			cfger, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg := config.NewDefaultConfig()
			cfg.Bot.GuildID = "guild-1"
			cfg.Assistant.AssistantID = "asst_xyz"
			Expect(cfger.SaveConfig(cfg)).To(Succeed())

			loaded, err := cfger.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Bot.GuildID).To(Equal("guild-1"))
			Expect(loaded.Assistant.AssistantID).To(Equal("asst_xyz"))
		})

		It("fills defaults for fields missing from the file", func() {
			path := filepath.Join(tmpDir, "config.toml")
			Expect(os.WriteFile(path, []byte("[bot]\nguild_id = \"g\"\n"), 0o600)).To(Succeed())

			cfger, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := cfger.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Bot.GuildID).To(Equal("g"))
			Expect(cfg.Bot.OutOfGameChannel).To(Equal("telldm"))
			Expect(cfg.Assistant.BaseURL).To(Equal("https://api.openai.com"))
		})

		It("never persists secrets", func() {
			cfger, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg := config.NewDefaultConfig()
			cfg.Bot.Token = "super-secret"
			cfg.Assistant.APIKey = "sk-secret"
			Expect(cfger.SaveConfig(cfg)).To(Succeed())

			raw, err := os.ReadFile(filepath.Join(tmpDir, "config.toml"))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(raw)).NotTo(ContainSubstring("super-secret"))
			Expect(string(raw)).NotTo(ContainSubstring("sk-secret"))
		})
	})

	Describe("config keys", func() {
		It("gets and sets registered keys", func() {
			cfger, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(cfger.SetConfigValue("bot.out_of_game_channel", "ooc")).To(Succeed())

			val, err := cfger.GetConfigValue("bot.out_of_game_channel")
			Expect(err).NotTo(HaveOccurred())
			Expect(val).To(Equal("ooc"))
		})

		It("sets the summary channel", func() {
			cfger, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(cfger.SetConfigValue("bot.summary_channel", "recaps")).To(Succeed())

			val, err := cfger.GetConfigValue("bot.summary_channel")
			Expect(err).NotTo(HaveOccurred())
			Expect(val).To(Equal("recaps"))
		})

		It("rejects unknown keys", func() {
			cfger, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(cfger.SetConfigValue("nope.nope", "x")).NotTo(Succeed())
			_, err = cfger.GetConfigValue("nope.nope")
			Expect(err).To(HaveOccurred())
		})

		It("validates numeric values", func() {
			cfger, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(cfger.SetConfigValue("assistant.run_timeout_seconds", "abc")).NotTo(Succeed())
			Expect(cfger.SetConfigValue("assistant.run_timeout_seconds", "45")).To(Succeed())
		})

		It("does not expose secret keys", func() {
			Expect(config.IsValidConfigKey("bot.token")).To(BeFalse())
			Expect(config.IsValidConfigKey("assistant.api_key")).To(BeFalse())
		})
	})

	Describe("InitViper", func() {
		It("layers env vars over file values", func() {
			cfger, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			cfg := config.NewDefaultConfig()
			cfg.Bot.GuildID = "from-file"
			Expect(cfger.SaveConfig(cfg)).To(Succeed())

			GinkgoT().Setenv("AIDM_BOT_GUILD_ID", "from-env")
			GinkgoT().Setenv("AIDM_BOT_TOKEN", "tok")

			v, err := config.InitViper(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			out := config.FromViper(v)
			Expect(out.Bot.GuildID).To(Equal("from-env"))
			Expect(out.Bot.Token).To(Equal("tok"))
		})

		It("falls back to defaults when nothing is set", func() {
			v, err := config.InitViper(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			out := config.FromViper(v)
			Expect(out.Bot.OutOfGameChannel).To(Equal("telldm"))
			Expect(out.API.Listen).To(Equal(":8082"))
		})
	})
})
