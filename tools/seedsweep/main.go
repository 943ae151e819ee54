// Command seedsweep runs many independent headless simulations
// concurrently (distinct seeds, one strategy) and prints a table with one
// row per seed — a concurrent counterpart to a single cmd/space run.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/elektrokombinacija/space/internal/config"
	"github.com/elektrokombinacija/space/internal/sim"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	strategy := flag.String("strategy", "FirstClaimGreedy", "allocation strategy")
	runs := flag.Int("runs", 8, "number of independent seeded runs")
	concurrency := flag.Int("concurrency", 4, "maximum simultaneous runs")
	baseSeed := flag.Int64("base-seed", 1, "first seed; subsequent runs use base-seed+i")
	flag.Parse()

	if err := sweep(*configPath, *strategy, *runs, *concurrency, *baseSeed); err != nil {
		fmt.Fprintln(os.Stderr, "seedsweep:", err)
		os.Exit(1)
	}
}

type result struct {
	seed     int64
	metrics  sim.Metrics
}

func sweep(configPath, strategy string, runs, concurrency int, baseSeed int64) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(concurrency)

	var mu sync.Mutex
	results := make([]result, 0, runs)

	for i := 0; i < runs; i++ {
		seed := baseSeed + int64(i)
		g.Go(func() error {
			simulator, err := sim.NewSimulator(cfg, strategy, seed)
			if err != nil {
				return fmt.Errorf("seed %d: %w", seed, err)
			}
			metrics, err := simulator.Run(ctx)
			if err != nil {
				return fmt.Errorf("seed %d: %w", seed, err)
			}
			mu.Lock()
			results = append(results, result{seed: seed, metrics: *metrics})
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].seed < results[j].seed })

	fmt.Printf("%-8s %-10s %-8s %-10s %-10s\n", "seed", "ticks", "sim_t", "completed", "remaining")
	for _, r := range results {
		fmt.Printf("%-8d %-10d %-8.2f %-10d %-10d\n",
			r.seed, r.metrics.Ticks, r.metrics.SimTimeSeconds, r.metrics.TasksCompleted, r.metrics.TasksRemaining)
	}
	return nil
}
