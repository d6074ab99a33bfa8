package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/nbenliogludev/go-nav-guide/internal/agent"
	"github.com/nbenliogludev/go-nav-guide/internal/browser"
	"github.com/nbenliogludev/go-nav-guide/internal/llm"
	"github.com/nbenliogludev/go-nav-guide/internal/snapshot"
)

const EnvPrefix = "NAVGUIDE"

type Config struct {
	DBPath   string `mapstructure:"db_path"`
	LogLevel string `mapstructure:"log_level"`
	// MetricsAddr, when set, serves prometheus metrics at /metrics.
	MetricsAddr string            `mapstructure:"metrics_addr"`
	Browser     BrowserConfig     `mapstructure:"browser"`
	Prompt      PromptConfig      `mapstructure:"prompt"`
	Snapshot    SnapshotConfig    `mapstructure:"snapshot"`
	Executor    ExecutorConfig    `mapstructure:"executor"`
	Models      map[string]string `mapstructure:"models"`
}

type BrowserConfig struct {
	Driver      string        `mapstructure:"driver"`
	Headless    bool          `mapstructure:"headless"`
	UserDataDir string        `mapstructure:"user_data_dir"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type PromptConfig struct {
	Budget int `mapstructure:"budget"`
}

type SnapshotConfig struct {
	MaxChars int      `mapstructure:"max_chars"`
	Mode     string   `mapstructure:"mode"`
	Markers  []string `mapstructure:"markers"`
}

type ExecutorConfig struct {
	AutoInteract    bool          `mapstructure:"auto_interact"`
	StreamDelay     time.Duration `mapstructure:"stream_delay"`
	SettleDelay     time.Duration `mapstructure:"settle_delay"`
	AfterClickDelay time.Duration `mapstructure:"after_click_delay"`
}

func setDefaults(v *viper.Viper) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	def := agent.DefaultOptions()

	v.SetDefault("db_path", filepath.Join(home, ".navguide", "navguide.db"))
	v.SetDefault("log_level", "info")
	v.SetDefault("metrics_addr", "")

	v.SetDefault("browser.driver", browser.DriverPlaywright)
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.user_data_dir", "")
	v.SetDefault("browser.timeout", 60*time.Second)

	v.SetDefault("prompt.budget", llm.DefaultPromptBudget)

	v.SetDefault("snapshot.max_chars", snapshot.DefaultMaxChars)
	v.SetDefault("snapshot.mode", string(snapshot.ModeStructured))
	v.SetDefault("snapshot.markers", snapshot.DefaultMarkers)

	v.SetDefault("executor.auto_interact", def.AutoInteract)
	v.SetDefault("executor.stream_delay", def.StreamDelay)
	v.SetDefault("executor.settle_delay", def.SettleDelay)
	v.SetDefault("executor.after_click_delay", def.AfterClickDelay)

	v.SetDefault("models.groq", llm.DefaultGroqModel)
	v.SetDefault("models.openai", "")
	v.SetDefault("models.gemini", llm.DefaultGeminiModel)
}

// Load reads defaults, then the optional YAML file at path, then NAVGUIDE_*
// environment variables. Later sources win.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Browser.Driver {
	case browser.DriverPlaywright, browser.DriverChromedp:
	default:
		return fmt.Errorf("browser.driver must be %q or %q, got %q",
			browser.DriverPlaywright, browser.DriverChromedp, c.Browser.Driver)
	}
	switch snapshot.Mode(c.Snapshot.Mode) {
	case snapshot.ModeStructured, snapshot.ModeMarkup:
	default:
		return fmt.Errorf("snapshot.mode must be %q or %q, got %q",
			snapshot.ModeStructured, snapshot.ModeMarkup, c.Snapshot.Mode)
	}
	if c.Prompt.Budget <= 0 {
		return fmt.Errorf("prompt.budget must be positive")
	}
	return nil
}

// ExecutorOptions maps the executor section onto agent options.
func (c *Config) ExecutorOptions() agent.Options {
	return agent.Options{
		AutoInteract:    c.Executor.AutoInteract,
		StreamDelay:     c.Executor.StreamDelay,
		SettleDelay:     c.Executor.SettleDelay,
		AfterClickDelay: c.Executor.AfterClickDelay,
		PromptBudget:    c.Prompt.Budget,
	}
}

func (c *Config) SnapshotConfig() snapshot.Config {
	return snapshot.Config{
		MaxChars: c.Snapshot.MaxChars,
		Markers:  c.Snapshot.Markers,
		Mode:     snapshot.Mode(c.Snapshot.Mode),
	}
}

func (c *Config) BrowserOptions() browser.Options {
	return browser.Options{
		Headless:    c.Browser.Headless,
		UserDataDir: c.Browser.UserDataDir,
		Timeout:     c.Browser.Timeout,
	}
}
