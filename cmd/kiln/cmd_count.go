package main

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dhamidi/kiln/program"
)

func newCountCmd() *cobra.Command {
	var output string
	var libs []string
	var top int

	cmd := &cobra.Command{
		Use:   "count <classes>",
		Short: "Count method invocations across a program and save them as facts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := loadProgram(args[0], libs)
			if err != nil {
				return err
			}
			counts := program.CountInvocations(pool)
			if err := program.SaveFactsFile(output, counts); err != nil {
				return err
			}
			fmt.Printf("%s invoked methods written to %s\n", humanize.Comma(int64(len(counts))), output)

			keys := make([]program.MethodKey, 0, len(counts))
			for k := range counts {
				keys = append(keys, k)
			}
			slices.SortFunc(keys, func(a, b program.MethodKey) int {
				if c := cmp.Compare(counts[b], counts[a]); c != 0 {
					return c
				}
				return cmp.Compare(a.String(), b.String())
			})
			for _, k := range keys[:min(top, len(keys))] {
				fmt.Printf("%8d  %s\n", counts[k], k)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "facts.cbor", "facts file to write")
	cmd.Flags().StringSliceVarP(&libs, "lib", "l", nil, "directories of library classes")
	cmd.Flags().IntVar(&top, "top", 0, "print the most invoked methods")

	return cmd
}
