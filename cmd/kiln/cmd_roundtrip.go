package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dhamidi/kiln/classfile"
)

func newRoundtripCmd() *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "roundtrip <path>...",
		Short: "Check that class files are written back byte for byte",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var files []string
			for _, arg := range args {
				found, err := classFiles(arg)
				if err != nil {
					return err
				}
				files = append(files, found...)
			}

			var failed atomic.Int64
			var g errgroup.Group
			g.SetLimit(workers)
			for _, path := range files {
				g.Go(func() error {
					if err := roundtrip(path); err != nil {
						failed.Add(1)
						fmt.Fprintf(os.Stderr, "[FAIL] %s: %v\n", path, err)
					}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			fmt.Printf("%d files, %d failed\n", len(files), failed.Load())
			if failed.Load() > 0 {
				return fmt.Errorf("%d files did not round-trip", failed.Load())
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", runtime.GOMAXPROCS(0), "files checked in parallel")

	return cmd
}

func roundtrip(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	cf, err := classfile.ParseBytes(data)
	if err != nil {
		return err
	}
	out, err := classfile.Marshal(cf)
	if err != nil {
		return err
	}
	if !bytes.Equal(data, out) {
		return fmt.Errorf("written %d bytes differ from the %d bytes read", len(out), len(data))
	}
	return nil
}

func classFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	var files []string
	err = filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(p) == ".class" {
			files = append(files, p)
		}
		return nil
	})
	return files, err
}
