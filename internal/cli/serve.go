// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/lmchat/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a chat session over a local HTTP API",
		Long: `Serve one chat session over HTTP. Answers stream as server-sent events
from POST /api/chat. Only localhost origins may call the API from a browser.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{logToStderr: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.Serve.Addr
			}
			if !a.verbose {
				gin.SetMode(gin.ReleaseMode)
			}

			client := a.newClient()
			defer client.CloseIdleConnections()

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			// The API is still useful for uploads while LM Studio starts up.
			if err := client.CheckRunning(ctx); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: inference server at %s is not reachable yet\n", client.BaseURL())
				a.logger.Warn("INFERENCE_SERVER_UNREACHABLE", zap.String("endpoint", client.BaseURL()), zap.Error(err))
			}

			srv := server.New(a.newController(client), server.Config{
				Addr:         addr,
				DefaultModel: a.cfg.Server.DefaultModel,
			}, a.logger)

			fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s (Ctrl+C to stop)\n", srv.Addr())
			return srv.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, 127.0.0.1:8080)")
	return cmd
}
