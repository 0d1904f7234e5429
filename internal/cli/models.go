// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jeranaias/lmchat/internal/util"
)

func newModelsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models the inference server offers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.Server.RequestTimeout())
			defer cancel()

			client := a.newClient()
			defer client.CloseIdleConnections()

			models, err := client.ListModels(ctx)
			if err != nil {
				return fmt.Errorf("list models from %s: %w", client.BaseURL(), err)
			}
			writeModelTable(cmd.OutOrStdout(), models, a.cfg.Server.DefaultModel)
			return nil
		},
	}
}

// writeModelTable prints models as an aligned table, marking selected.
func writeModelTable(w io.Writer, models []string, selected string) {
	idxWidth := len(strconv.Itoa(len(models)))
	nameWidth := util.StringWidth("MODEL")
	for _, m := range models {
		nameWidth = max(nameWidth, util.StringWidth(m))
	}

	fmt.Fprintf(w, "%s  %s  %s\n", util.PadRight("#", idxWidth), util.PadRight("MODEL", nameWidth), "SELECTED")
	for i, m := range models {
		mark := ""
		if m == selected {
			mark = "*"
		}
		fmt.Fprintf(w, "%s  %s  %s\n", util.PadRight(strconv.Itoa(i+1), idxWidth), util.PadRight(m, nameWidth), mark)
	}
}
