// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/lmchat/internal/config"
	"github.com/jeranaias/lmchat/internal/documents"
	"github.com/jeranaias/lmchat/internal/export"
	"github.com/jeranaias/lmchat/internal/session"
	"github.com/jeranaias/lmchat/internal/ui/styles"
	"github.com/jeranaias/lmchat/internal/util"
)

var (
	promptStyle  = lipgloss.NewStyle().Foreground(styles.Cyan).Bold(true)
	welcomeStyle = lipgloss.NewStyle().Foreground(styles.Purple).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(styles.TextMuted)
)

// replCommands is the completion list.
var replCommands = []string{
	"/help", "/model", "/models", "/docs", "/upload", "/remove", "/save", "/clear", "/quit",
}

const replHelp = `Commands:
  /model [name]      show or switch the model
  /models            list available models
  /upload <path>...  attach files
  /remove <name>     detach a file
  /docs              list attached files and webpages
  /save [md|json|html]  export the conversation
  /clear             start over
  /quit              exit (Ctrl+D also works)

Paste a URL to attach a webpage. Ctrl+C stops a running answer.`

func newChatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Line-oriented chat with history",
		Long: `Start a plain REPL. Input history is kept in ~/.lmchat/history and
answers stream as raw text, which suits terminals where the full-screen
chat does not work.`,
		Args: cobra.NoArgs,
		RunE: a.runChat,
	}
}

// repl is one chat REPL session.
type repl struct {
	ctrl      *session.Controller
	client    session.Completer
	loader    *documents.Loader
	logger    *zap.Logger
	out       io.Writer
	info      io.Writer
	exportDir string

	model  string
	models []string
}

func (a *app) runChat(cmd *cobra.Command, args []string) error {
	client := a.newClient()
	defer client.CloseIdleConnections()

	r := &repl{
		ctrl:      a.newController(client),
		client:    client,
		loader:    a.newLoader(),
		logger:    a.logger,
		out:       cmd.OutOrStdout(),
		info:      cmd.ErrOrStderr(),
		exportDir: a.cfg.Export.OutputDir,
		model:     a.cfg.Server.DefaultModel,
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(completeCommand)

	historyPath, err := config.HistoryPath()
	if err == nil {
		if f, err := os.Open(historyPath); err == nil {
			_, _ = line.ReadHistory(f)
			f.Close()
		}
		defer saveHistory(line, historyPath, a.logger)
	}

	fmt.Fprintln(r.out, welcomeStyle.Render("lmchat")+" "+mutedStyle.Render("/help for commands, Ctrl+D to exit"))
	if r.model == "" {
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		r.listModels(ctx, false)
		cancel()
	}

	for {
		input, err := line.Prompt(r.prompt())
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(r.out)
			return nil
		}
		if err != nil {
			return err
		}
		if strings.TrimSpace(input) != "" {
			line.AppendHistory(input)
		}

		ctx, stop := signalContext(cmd.Context())
		quit := r.handle(ctx, input)
		stop()
		if quit {
			return nil
		}
	}
}

func (r *repl) modelLabel() string {
	if r.model == "" {
		return "no model"
	}
	return r.model
}

// prompt is plain text; liner measures it and cannot skip escape codes.
func (r *repl) prompt() string {
	return r.modelLabel() + "> "
}

// handle processes one input line. It reports whether the REPL should exit.
func (r *repl) handle(ctx context.Context, input string) bool {
	text := strings.TrimSpace(input)
	if text == "" {
		return false
	}
	if strings.HasPrefix(text, "/") {
		return r.command(ctx, text)
	}
	if r.model == "" {
		fmt.Fprintln(r.info, "No model selected; use /models or /model <name>")
		return false
	}

	p := newPrinter(r.out, r.info)
	outcome, err := r.ctrl.Submit(ctx, r.model, text, p)
	fmt.Fprintln(r.out)
	switch {
	case err != nil:
		r.logger.Warn("REPL_SUBMIT_FAILED", zap.Error(err))
		fmt.Fprintln(r.info, styles.RenderError(err.Error()))
	case outcome.Cancelled:
		fmt.Fprintln(r.info, mutedStyle.Render("(stopped)"))
	}
	return false
}

func (r *repl) command(ctx context.Context, text string) bool {
	fields := strings.Fields(text)
	name, args := strings.ToLower(fields[0]), fields[1:]

	switch name {
	case "/quit", "/exit", "/q":
		return true

	case "/help", "/h", "/?":
		fmt.Fprintln(r.out, replHelp)

	case "/models":
		r.listModels(ctx, true)

	case "/model":
		if len(args) == 0 {
			fmt.Fprintln(r.out, "Model:", r.modelLabel())
			break
		}
		if len(r.models) > 0 && !slices.Contains(r.models, args[0]) {
			fmt.Fprintln(r.info, styles.RenderError("unknown model "+args[0]))
			break
		}
		r.model = args[0]
		fmt.Fprintln(r.out, styles.RenderSuccess("Model: "+r.model))

	case "/upload":
		if len(args) == 0 {
			fmt.Fprintln(r.info, "Usage: /upload <path>...")
			break
		}
		p := newPrinter(r.out, r.out)
		docs, err := r.loader.Load(ctx, args)
		for _, doc := range docs {
			r.ctrl.AddDocument(doc.Name, doc.Content, p)
		}
		if err != nil {
			fmt.Fprintln(r.info, styles.RenderWarning(err.Error()))
		}

	case "/remove":
		if len(args) == 0 {
			fmt.Fprintln(r.info, "Usage: /remove <name>")
			break
		}
		doc := strings.Join(args, " ")
		if r.ctrl.RemoveDocument(doc) {
			fmt.Fprintln(r.out, "Removed", doc)
		} else {
			fmt.Fprintln(r.info, styles.RenderError("no document named "+doc))
		}

	case "/docs":
		r.listAttachments()

	case "/save", "/export":
		format := ""
		if len(args) > 0 {
			format = args[0]
		}
		r.save(format)

	case "/clear":
		if err := r.ctrl.Reset(); err != nil {
			fmt.Fprintln(r.info, styles.RenderError(err.Error()))
			break
		}
		fmt.Fprintln(r.out, "Conversation cleared")

	default:
		fmt.Fprintf(r.info, "Unknown command %s; try /help\n", name)
	}
	return false
}

// listModels refreshes the model list and picks a default model. The table
// is printed only when show is set.
func (r *repl) listModels(ctx context.Context, show bool) {
	models, err := r.ctrl.LoadModels(ctx, newPrinter(r.out, r.info))
	if err != nil {
		return
	}
	r.models = models
	if r.model == "" {
		r.model = models[0]
	}
	if show {
		writeModelTable(r.out, models, r.model)
	}
}

func (r *repl) listAttachments() {
	docs, pages := r.ctrl.Documents(), r.ctrl.WebPages()
	if len(docs)+len(pages) == 0 {
		fmt.Fprintln(r.out, "Nothing attached")
		return
	}
	for _, d := range docs {
		fmt.Fprintln(r.out, "  file ", d)
	}
	for _, p := range pages {
		fmt.Fprintln(r.out, "  page ", p)
	}
}

func (r *repl) save(format string) {
	exporter, err := export.ForFormat(format)
	if err != nil {
		fmt.Fprintln(r.info, styles.RenderError(err.Error()))
		return
	}
	opts := export.DefaultOptions()
	opts.OutputDir = r.exportDir
	path, err := export.ExportToFile(export.FromSource(r.ctrl, r.model), exporter, opts)
	if err != nil {
		fmt.Fprintln(r.info, styles.RenderError(err.Error()))
		return
	}
	fmt.Fprintln(r.out, styles.RenderSuccess("Saved "+path))
}

func completeCommand(line string) []string {
	if !strings.HasPrefix(line, "/") || strings.Contains(line, " ") {
		return nil
	}
	var out []string
	for _, c := range replCommands {
		if strings.HasPrefix(c, line) {
			out = append(out, c)
		}
	}
	return out
}

func saveHistory(line *liner.State, path string, logger *zap.Logger) {
	var buf bytes.Buffer
	if _, err := line.WriteHistory(&buf); err != nil {
		logger.Warn("HISTORY_SAVE_FAILED", zap.Error(err))
		return
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		logger.Warn("HISTORY_SAVE_FAILED", zap.String("path", path), zap.Error(err))
	}
}
