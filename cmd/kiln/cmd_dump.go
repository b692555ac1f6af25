package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dhamidi/kiln/classfile"
	"github.com/dhamidi/kiln/format"
)

func newDumpCmd() *cobra.Command {
	var dumpFormat string
	var code bool

	cmd := &cobra.Command{
		Use:   "dump <file.class>...",
		Short: "Dump the members, and optionally the code, of class files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			enc, err := format.NewEncoder(dumpFormat, os.Stdout, code)
			if err != nil {
				return err
			}
			for _, filename := range args {
				cf, err := classfile.ParseFile(filename)
				if err != nil {
					return fmt.Errorf("parse class file: %w", err)
				}
				if err := enc.Encode(cf); err != nil {
					return fmt.Errorf("encode %s: %w", dumpFormat, err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&dumpFormat, "format", "f", "line", "output format (json, line)")
	cmd.Flags().BoolVarP(&code, "code", "c", false, "disassemble method bodies")

	return cmd
}
