package main

import (
	"fmt"
	"sort"
	"sync"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	"golang.org/x/sync/errgroup"

	"github.com/dhamidi/kiln/config"
	"github.com/dhamidi/kiln/evaluation"
	"github.com/dhamidi/kiln/optimize"
	"github.com/dhamidi/kiln/program"
)

var log = commonlog.GetLogger("kiln.cmd")

func newOptimizeCmd() *cobra.Command {
	var output, configPath, factsPath string
	var libs []string

	cmd := &cobra.Command{
		Use:   "optimize <classes>",
		Short: "Run the configured optimization passes over a program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			cfg, err := loadConfig(configPath, input)
			if err != nil {
				return err
			}
			pool, err := loadProgram(input, libs)
			if err != nil {
				return err
			}

			var counts program.InvocationCounts
			if factsPath != "" {
				counts, err = program.LoadFactsFile(factsPath)
			} else {
				counts = program.CountInvocations(pool)
			}
			if err != nil {
				return err
			}

			stats, err := runPasses(cfg, pool, counts)
			if err != nil {
				return err
			}
			names := make([]string, 0, len(stats))
			for name := range stats {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Printf("%-15s %s\n", name, stats[name])
			}

			before, after, err := writeProgram(pool, input, output)
			if err != nil {
				return err
			}
			printSizes(len(pool.ProgramClasses()), before, after)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "out", "directory to write the optimized classes to")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "configuration file (default: nearest kiln.toml)")
	cmd.Flags().StringVar(&factsPath, "facts", "", "invocation counts written by the count command")
	cmd.Flags().StringSliceVarP(&libs, "lib", "l", nil, "directories of library classes")

	return cmd
}

// runPasses applies the configured passes in order. Tail recursion only
// rewrites code and runs on many classes at once. The other passes add
// constants or rename methods that calls in other classes resolve against,
// so they run one class at a time.
func runPasses(cfg *config.Configuration, pool *program.Pool, counts program.InvocationCounts) (map[string]optimize.Stats, error) {
	sideEffects, err := optimize.NewSideEffectChecker(pool, cfg.NoSideEffectMethods, false)
	if err != nil {
		return nil, err
	}
	classes := pool.ProgramClasses()
	stats := make(map[string]optimize.Stats)
	var mu sync.Mutex
	record := func(s map[string]optimize.Stats) {
		mu.Lock()
		defer mu.Unlock()
		for name, st := range s {
			total := stats[name]
			total.Add(st)
			stats[name] = total
		}
	}

	for _, name := range cfg.Passes {
		log.Infof("running %s on %d classes", name, len(classes))
		switch name {
		case config.PassInitializers:
			links := program.Link(pool)
			for _, c := range classes {
				fixed, err := optimize.DuplicateInitializerFixer{}.FixClass(c.File)
				if err != nil {
					log.Warningf("%s: %s", c.Name(), err)
					continue
				}
				for _, m := range fixed {
					log.Debugf("renamed duplicate initializer %s", c.File.MethodName(m))
				}
			}
			runner := optimize.NewRunner(optimize.NewDuplicateInitializerInvocationFixer(links))
			for _, c := range classes {
				record(runner.RunClass(c.File))
			}

		case config.PassInline:
			runner := optimize.NewRunner(optimize.NewMethodInliner(pool, counts, cfg))
			for _, c := range classes {
				record(runner.RunClass(c.File))
			}

		case config.PassEvaluation:
			runner := optimize.NewRunner(optimize.NewEvaluationSimplifier(evaluation.NewEvaluator(), sideEffects))
			for _, c := range classes {
				record(runner.RunClass(c.File))
			}

		case config.PassTailRecursion:
			// Passes keep per-method scratch state, so each class gets its own.
			var g errgroup.Group
			g.SetLimit(cfg.Workers)
			for _, c := range classes {
				g.Go(func() error {
					record(optimize.NewRunner(optimize.NewTailRecursionSimplifier(pool)).RunClass(c.File))
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return nil, err
			}

		default:
			return nil, fmt.Errorf("unknown pass %q", name)
		}
	}
	return stats, nil
}
