package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/nbenliogludev/go-nav-guide/internal/config"
	"github.com/nbenliogludev/go-nav-guide/internal/credentials"
)

var (
	bold = color.New(color.Bold).SprintFunc()
	red  = color.New(color.FgRed).SprintFunc()
	gray = color.New(color.FgHiBlack).SprintFunc()
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, red("error: "+err.Error()))
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "navguide",
		Short: "Step-by-step website navigation guide",
		Long: fmt.Sprintf(`%s

Ask a question about the page you are on and get numbered steps, each
highlighted on the page. Optionally the steps are clicked for you.

%s
  navguide key set groq gsk_xxx
  navguide model use groq
  navguide guide --url https://example.com
  navguide guide --url https://example.com --auto`,
			bold("navguide"), bold("EXAMPLES:")),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML config file")

	root.AddCommand(newKeyCommand(a))
	root.AddCommand(newModelCommand(a))
	root.AddCommand(newGuideCommand(a))
	return root
}

func (a *app) init() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = newLogger(cfg.LogLevel)
	slog.SetDefault(a.logger)
	return nil
}

func (a *app) openStore() (*credentials.SQLiteStore, error) {
	store, err := credentials.OpenSQLite(a.cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open credential store: %w", err)
	}
	return store, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
