// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/lmchat/internal/config"
	"github.com/jeranaias/lmchat/internal/documents"
	"github.com/jeranaias/lmchat/internal/lmstudio"
	"github.com/jeranaias/lmchat/internal/logging"
	"github.com/jeranaias/lmchat/internal/offline"
	"github.com/jeranaias/lmchat/internal/render"
	"github.com/jeranaias/lmchat/internal/session"
	"github.com/jeranaias/lmchat/internal/ui/chat"
	"github.com/jeranaias/lmchat/internal/webpage"
)

// Version information (set at build time)
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// logToStderr marks commands whose log goes to stderr instead of a file.
const logToStderr = "log-stderr"

// app holds the state shared by all commands of one invocation.
type app struct {
	configPath string
	endpoint   string
	model      string
	offline    bool
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "lmchat",
		Short: "Chat with models served by LM Studio",
		Long: `lmchat talks to a local OpenAI-compatible inference server such as
LM Studio. Attach documents and webpages to a session and their text is
sent along with every question.

Run without arguments to start the full-screen chat.`,
		Version:           fmt.Sprintf("%s (%s)", Version, GitCommit),
		SilenceUsage:      true,
		SilenceErrors:     true,
		Args:              cobra.NoArgs,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.Sync(a.logger)
		},
		RunE: a.runTUI,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default ~/.lmchat/config.toml)")
	flags.StringVar(&a.endpoint, "endpoint", "", "inference server URL (default http://127.0.0.1:1234)")
	flags.StringVarP(&a.model, "model", "m", "", "model to use")
	flags.BoolVar(&a.offline, "offline", false, "disable webpage fetching")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newAskCmd(a),
		newChatCmd(a),
		newModelsCmd(a),
		newServeCmd(a),
	)
	return root
}

// setup loads configuration, applies flags and builds the logger.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	var (
		cfg *config.Config
		err error
	)
	if a.configPath != "" {
		cfg, err = config.LoadFromPath(a.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	if a.endpoint != "" {
		cfg.Server.Endpoint = a.endpoint
	}
	if a.model != "" {
		cfg.Server.DefaultModel = a.model
	}
	if a.offline {
		cfg.Web.Offline = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	config.SetGlobal(cfg)
	offline.SetOfflineMode(cfg.Web.Offline)
	a.cfg = cfg

	opts := logging.Options{Level: cfg.Log.Level, Verbose: a.verbose, File: cfg.Log.File}
	if opts.File == "" && cmd.Annotations[logToStderr] == "" {
		dir, err := config.ConfigDir()
		if err != nil {
			return err
		}
		opts.File = filepath.Join(dir, "lmchat.log")
	}
	logger, err := logging.New(opts)
	if err != nil {
		return err
	}
	a.logger = logger
	a.logger.Debug("CONFIG_LOADED",
		zap.String("command", cmd.Name()),
		zap.String("endpoint", cfg.Server.Endpoint),
		zap.Bool("offline", cfg.Web.Offline),
	)
	return nil
}

// =============================================================================
// COLLABORATORS
// =============================================================================

func (a *app) newClient() *lmstudio.Client {
	return lmstudio.NewClientWithConfig(&lmstudio.ClientConfig{
		BaseURL:       a.cfg.Server.Endpoint,
		Timeout:       a.cfg.Server.RequestTimeout(),
		StreamTimeout: a.cfg.Server.StreamTimeout(),
		DefaultModel:  a.cfg.Server.DefaultModel,
	}).WithLogger(a.logger)
}

// newFetcher returns nil when webpage fetching is off.
func (a *app) newFetcher() session.PageFetcher {
	if a.cfg.Web.Offline {
		return nil
	}
	return webpage.NewFetcher(webpage.Config{
		ProxyURL: a.cfg.Web.ProxyURL,
		Timeout:  a.cfg.Web.FetchTimeout(),
	}).WithLogger(a.logger)
}

func (a *app) newController(client session.Completer) *session.Controller {
	return session.NewController(client, a.newFetcher()).WithLogger(a.logger)
}

func (a *app) newLoader() *documents.Loader {
	return documents.NewLoader().WithLogger(a.logger)
}

// newRenderer returns a glamour renderer, or Plain if one cannot be built.
func (a *app) newRenderer(width int) render.Renderer {
	r, err := render.NewTerminalRenderer(a.cfg.UI.Theme, width)
	if err != nil {
		a.logger.Warn("RENDERER_FAILED", zap.Error(err))
		return render.Plain
	}
	return r
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// =============================================================================
// TUI
// =============================================================================

func (a *app) runTUI(cmd *cobra.Command, args []string) error {
	client := a.newClient()
	defer client.CloseIdleConnections()

	m := chat.New(chat.Options{
		Controller: a.newController(client),
		Renderer:   a.newRenderer(min(a.cfg.UI.WordWrap, terminalWidth())),
		Loader:     a.newLoader(),
		Model:      a.cfg.Server.DefaultModel,
		ExportDir:  a.cfg.Export.OutputDir,
		Offline:    a.cfg.Web.Offline,
		RenderFPS:  a.cfg.UI.RenderFPS,
		Logger:     a.logger,
	})

	watcher, err := documents.NewWatcher(0, m.DocumentChanged)
	if err != nil {
		a.logger.Warn("WATCHER_UNAVAILABLE", zap.Error(err))
	} else {
		watcher.WithLogger(a.logger).Start()
		defer watcher.Close()
		m = m.WithWatcher(watcher)
	}

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	m.Attach(p)

	a.logger.Info("TUI_START")
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("chat screen: %w", err)
	}
	return nil
}
