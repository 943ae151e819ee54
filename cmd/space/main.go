// Command space runs a single headless SPACE simulation to completion (or
// time-out) and reports its final metrics.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/elektrokombinacija/space/internal/config"
	"github.com/elektrokombinacija/space/internal/sim"
	"github.com/elektrokombinacija/space/internal/telemetry"
)

// telemetryPollInterval is how often the running Simulator's world state is
// sampled for the Prometheus collectors and the websocket feed — decoupled
// from the simulation's own tick rate so a fast config doesn't flood slow
// viewers.
const telemetryPollInterval = 200 * time.Millisecond

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (overrides embedded defaults)")
	strategy := flag.String("strategy", "FirstClaimGreedy", "allocation strategy: CBAA, CBBA, GRAPE, FirstClaimGreedy")
	seed := flag.Int64("seed", 42, "deterministic RNG seed")
	metricsOut := flag.String("metrics-out", "", "optional path to write final metrics as JSON")
	metricsAddr := flag.String("metrics-addr", "", "optional host:port to serve /metrics and /feed on while running")
	flag.Parse()

	if err := run(*configPath, *strategy, *seed, *metricsOut, *metricsAddr); err != nil {
		fmt.Fprintln(os.Stderr, "space:", err)
		os.Exit(1)
	}
}

func run(configPath, strategy string, seed int64, metricsOut, metricsAddr string) error {
	if err := config.Init(configPath); err != nil {
		return err
	}
	cfg := config.Cfg()

	simulator, err := sim.NewSimulator(cfg, strategy, seed)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if metricsAddr != "" {
		reg := prometheus.NewRegistry()
		feed := telemetry.NewFeed()
		collectors := telemetry.NewCollectors(reg, simulator.Metrics().RunID, strategy)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		mux.Handle("/feed", feed)
		simulator.TickHook = func(d time.Duration) { collectors.TickDuration.Observe(d.Seconds()) }

		server := &http.Server{Addr: metricsAddr, Handler: mux}
		go func() {
			log.Printf("[INFO] space: serving metrics and feed on %s", metricsAddr)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("[WARN] space: telemetry server stopped: %v", err)
			}
		}()
		go func() {
			<-ctx.Done()
			server.Close()
		}()
		go pollTelemetry(ctx, simulator, feed, collectors)
	}

	metrics, err := simulator.Run(ctx)
	if err != nil && err != context.Canceled {
		return fmt.Errorf("space: run failed: %w", err)
	}

	log.Printf("[INFO] space: run %s done — ticks=%d sim_time=%.2fs completed=%d remaining=%d",
		metrics.RunID, metrics.Ticks, metrics.SimTimeSeconds, metrics.TasksCompleted, metrics.TasksRemaining)

	if metricsOut != "" {
		if err := metrics.ExportMetrics(metricsOut); err != nil {
			return err
		}
	}
	return nil
}

// pollTelemetry samples the running Simulator at telemetryPollInterval and
// forwards world state to the Prometheus collectors and the websocket feed,
// until ctx is done.
func pollTelemetry(ctx context.Context, simulator *sim.Simulator, feed *telemetry.Feed, collectors *telemetry.Collectors) {
	ticker := time.NewTicker(telemetryPollInterval)
	defer ticker.Stop()

	var lastTicks, lastRounds int
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		world := simulator.World()
		m := simulator.Metrics()

		collectors.TicksTotal.Add(float64(world.TickCount - lastTicks))
		lastTicks = world.TickCount
		collectors.TasksCompleted.Set(float64(len(world.Tasks) - world.IncompleteTasks()))
		collectors.TasksRemaining.Set(float64(world.IncompleteTasks()))
		collectors.GenerationRounds.Add(float64(m.GenerationRounds - lastRounds))
		lastRounds = m.GenerationRounds

		var dist float64
		agents := make([]telemetry.AgentSnapshot, len(world.Agents))
		for i, a := range world.Agents {
			dist += a.DistanceMoved
			agents[i] = telemetry.AgentSnapshot{ID: int(a.ID), X: a.Position.X, Y: a.Position.Y, Rotation: a.Rotation}
		}
		collectors.AgentsDistance.Set(dist)

		tasks := make([]telemetry.TaskSnapshot, len(world.Tasks))
		for i, t := range world.Tasks {
			tasks[i] = telemetry.TaskSnapshot{ID: int(t.ID), X: t.Position.X, Y: t.Position.Y, Amount: t.Amount, Completed: t.Completed}
		}

		feed.Publish(telemetry.Snapshot{SimTime: world.SimTime, Tick: world.TickCount, Agents: agents, Tasks: tasks})

		if world.MissionCompleted {
			return
		}
	}
}
