package main

import (
	"github.com/spf13/cobra"

	"github.com/dhamidi/kiln/lsp"
)

func newLSPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lsp",
		Short: "Start the language server for kiln.toml files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return lsp.NewLSPServer(version).RunStdio()
		},
	}
}
