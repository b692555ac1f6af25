package main

import (
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dhamidi/kiln/shrink"
)

func newShrinkCmd() *cobra.Command {
	var output string
	var libs, strip []string
	var workers int

	cmd := &cobra.Command{
		Use:   "shrink <classes>",
		Short: "Strip attributes and unused constants from a program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			pool, err := loadProgram(input, libs)
			if err != nil {
				return err
			}
			classes := pool.ProgramClasses()

			marks := shrink.NewUsageMarks(pool)
			for _, c := range classes {
				marks.MarkAll(c.File, strip...)
			}
			marker := shrink.NewReferenceMarker(marks)
			shrinker := shrink.NewShrinker(marks)

			var total shrink.Result
			var mu sync.Mutex
			var g errgroup.Group
			if workers > 0 {
				g.SetLimit(workers)
			}
			for _, c := range classes {
				g.Go(func() error {
					if err := marker.MarkClass(c.File); err != nil {
						return err
					}
					result, err := shrinker.Shrink(c)
					if err != nil {
						return err
					}
					mu.Lock()
					total.Add(result)
					mu.Unlock()
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			fmt.Println(total)

			before, after, err := writeProgram(pool, input, output)
			if err != nil {
				return err
			}
			printSizes(len(classes), before, after)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "out", "directory to write the shrunk classes to")
	cmd.Flags().StringSliceVarP(&libs, "lib", "l", nil, "directories of library classes")
	cmd.Flags().StringSliceVarP(&strip, "strip", "s", nil, "attribute names to remove, e.g. SourceFile,LineNumberTable")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "classes to shrink at once (default: unlimited)")

	return cmd
}
