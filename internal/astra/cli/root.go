// Package cli implements the astra command tree.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/astralab/astra/internal/astra/chat"
	"github.com/astralab/astra/internal/astra/config"
	"github.com/astralab/astra/internal/astra/llm"
	"github.com/astralab/astra/internal/astra/memory"
	"github.com/astralab/astra/internal/astra/store"
)

var (
	configFlag  string
	verboseFlag bool
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "astra",
	Short: "Local personal assistant",
	Long:  "Astra is a locally hosted personal assistant backed by an Ollama-compatible inference server, with persistent conversation history and long-term memory in SQLite.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verboseFlag {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)
	},
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Config file path (default: $ASTRA_CONFIG or ./astra.yaml)")
	RootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable debug logging")
}

func configPath() string {
	if configFlag != "" {
		return configFlag
	}
	if env := os.Getenv("ASTRA_CONFIG"); env != "" {
		return env
	}
	return "astra.yaml"
}

// loadConfig loads .env (optional) and the effective configuration.
func loadConfig() (config.Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "err", err)
	}
	return config.Load(configPath())
}

// app bundles the assembled core for commands that run a full pipeline.
type app struct {
	cfg      config.Config
	store    *store.Store
	mem      *memory.Manager
	client   *llm.Client
	settings *config.Settings
	orch     *chat.Orchestrator
}

func buildApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	st, err := store.New(cfg.DB.Path, nil)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	mem := memory.NewManager(st, nil)
	client := newClient(cfg)
	settings := config.NewSettings(cfg.Settings)
	orch := chat.New(st, client, mem, settings, "", nil)

	return &app{
		cfg:      cfg,
		store:    st,
		mem:      mem,
		client:   client,
		settings: settings,
		orch:     orch,
	}, nil
}

func newClient(cfg config.Config) *llm.Client {
	return llm.New(llm.Config{
		BaseURL:   cfg.Server.URL,
		Model:     cfg.Server.Model,
		KeepAlive: cfg.Server.KeepAliveSeconds,
		Timeout:   time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
	}, nil)
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		slog.Error("close database", "err", err)
	}
}

// openStore opens just the database, for commands that do not need the
// LLM pipeline.
func openStore() (*store.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return store.New(cfg.DB.Path, nil)
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
