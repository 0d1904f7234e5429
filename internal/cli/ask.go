// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/lmchat/internal/lmstudio"
	"github.com/jeranaias/lmchat/internal/session"
)

// maxStdinQuestion bounds a question read from a pipe.
const maxStdinQuestion = 1 << 20

type askOptions struct {
	files []string
	urls  []string
	raw   bool
}

func newAskCmd(a *app) *cobra.Command {
	opts := &askOptions{}
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask one question and stream the answer",
		Long: `Ask one question, optionally with attached files and webpages, and print
the answer. On a terminal the answer is rendered as markdown once complete;
otherwise the raw text streams to stdout as it arrives.

With no question argument the question is read from stdin.`,
		Example: `  lmchat ask "What is a monad?"
  lmchat ask -f main.go "Explain this file"
  lmchat ask -u https://go.dev/doc/effective_go "Summarise the naming rules"
  git diff | lmchat ask --raw`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAsk(cmd, args, opts)
		},
	}
	cmd.Flags().StringArrayVarP(&opts.files, "file", "f", nil, "attach a file (repeatable)")
	cmd.Flags().StringArrayVarP(&opts.urls, "url", "u", nil, "attach a webpage (repeatable)")
	cmd.Flags().BoolVar(&opts.raw, "raw", false, "print raw markdown even on a terminal")
	return cmd
}

func (a *app) runAsk(cmd *cobra.Command, args []string, opts *askOptions) error {
	question := strings.Join(args, " ")
	if strings.TrimSpace(question) == "" && !stdinIsTerminal() {
		raw, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), maxStdinQuestion))
		if err != nil {
			return fmt.Errorf("read question: %w", err)
		}
		question = string(raw)
	}
	if strings.TrimSpace(question) == "" {
		return errors.New("a question is required")
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	out, info := cmd.OutOrStdout(), cmd.ErrOrStderr()
	client := a.newClient()
	defer client.CloseIdleConnections()
	ctrl := a.newController(client)
	p := newPrinter(out, info)

	if len(opts.files) > 0 {
		docs, err := a.newLoader().Load(ctx, opts.files)
		for _, doc := range docs {
			ctrl.AddDocument(doc.Name, doc.Content, p)
		}
		if err != nil {
			fmt.Fprintf(info, "Warning: %v\n", err)
		}
	}
	for _, url := range opts.urls {
		if err := ctrl.AddWebPage(ctx, url, p); err != nil {
			a.logger.Warn("ASK_WEBPAGE_FAILED", zap.String("url", url), zap.Error(err))
		}
	}

	modelID, err := a.resolveModel(ctx, client)
	if err != nil {
		return err
	}

	pretty := !opts.raw && isTerminal(out)
	p.quiet = pretty
	if pretty {
		fmt.Fprintf(info, "Asking %s...\n", modelID)
	}

	outcome, err := ctrl.Submit(ctx, modelID, question, p)
	if err != nil {
		if !pretty {
			fmt.Fprintln(out)
		}
		return err
	}
	if outcome.Cancelled {
		fmt.Fprintln(info, "\n(stopped)")
		return nil
	}
	if !pretty {
		fmt.Fprintln(out)
		return nil
	}

	rendered, err := a.newRenderer(terminalWidth()).Render(outcome.Result.Content)
	if err != nil {
		a.logger.Debug("RENDER_FAILED", zap.Error(err))
	}
	fmt.Fprint(out, rendered)
	return nil
}

// resolveModel returns the configured model, or the server's first one.
func (a *app) resolveModel(ctx context.Context, client session.Completer) (string, error) {
	if a.cfg.Server.DefaultModel != "" {
		return a.cfg.Server.DefaultModel, nil
	}
	models, err := client.ListModels(ctx)
	if err != nil {
		if errors.Is(err, lmstudio.ErrNoModelsFound) {
			return "", errors.New("no models are loaded in the inference server")
		}
		return "", fmt.Errorf("no model configured and listing failed: %w", err)
	}
	return models[0], nil
}
