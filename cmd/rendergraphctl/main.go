// Command rendergraphctl drives a render graph from the command line:
// it builds a small demonstration graph, compiles it, and renders a
// fixed number of frames, optionally persisting and reloading task
// profile calibration between runs.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
	uuid "github.com/hashicorp/go-uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/vixengraph/rendergraph/internal/capacity"
	"github.com/vixengraph/rendergraph/internal/dag/graphviz"
	"github.com/vixengraph/rendergraph/internal/devicecache"
	"github.com/vixengraph/rendergraph/internal/eventbus"
	"github.com/vixengraph/rendergraph/internal/logging"
	"github.com/vixengraph/rendergraph/internal/loop"
	"github.com/vixengraph/rendergraph/internal/nodes"
	"github.com/vixengraph/rendergraph/internal/nodetype"
	"github.com/vixengraph/rendergraph/internal/rendergraph"
	"github.com/vixengraph/rendergraph/internal/taskprofile"
)

// config collects the flags every subcommand shares.
type config struct {
	logLevel      string
	poolSize      int
	frames        int
	profilePath   string
	deviceCacheSz int
}

func main() {
	os.Exit(realMain())
}

func realMain() int {
	cfg := &config{}
	root := newRootCommand(cfg)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func newRootCommand(cfg *config) *cobra.Command {
	root := &cobra.Command{
		Use:   "rendergraphctl",
		Short: "Drive a data-driven render graph runtime from the command line",
	}
	root.PersistentFlags().StringVar(&cfg.logLevel, "log-level", "info", "log level: trace, debug, info, warn, error")
	root.PersistentFlags().IntVar(&cfg.poolSize, "pool-size", 4, "executor worker pool size")
	root.PersistentFlags().StringVar(&cfg.profilePath, "profile-state", "", "path to a task-profile JSON state file to load/save")

	run := &cobra.Command{
		Use:   "run",
		Short: "Compile a demonstration graph and render a fixed number of frames",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(cmd.Context(), cfg)
		},
	}
	run.Flags().IntVar(&cfg.frames, "frames", 60, "number of frames to render")
	run.Flags().IntVar(&cfg.deviceCacheSz, "device-cache-size", 64, "device/cache manager capacity")

	dump := &cobra.Command{
		Use:   "dump",
		Short: "Compile the demonstration graph and print its topology as Graphviz dot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return dumpGraph(cmd.Context(), cfg)
		},
	}
	dump.Flags().IntVar(&cfg.deviceCacheSz, "device-cache-size", 64, "device/cache manager capacity")

	root.AddCommand(run)
	root.AddCommand(dump)
	root.AddCommand(newProfileCommand(cfg))
	return root
}

func newProfileCommand(cfg *config) *cobra.Command {
	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Inspect or seed persisted task-profile calibration state",
	}
	profileCmd.AddCommand(&cobra.Command{
		Use:   "new-id",
		Short: "Print a fresh UUID suitable for tagging a profile snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.GenerateUUID()
			if err != nil {
				return err
			}
			fmt.Println(id)
			return nil
		},
	})
	profileCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Print the persisted task-profile state file as formatted JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.profilePath == "" {
				return fmt.Errorf("--profile-state is required")
			}
			data, err := os.ReadFile(cfg.profilePath)
			if err != nil {
				return err
			}
			var pretty map[string]any
			if err := json.Unmarshal(data, &pretty); err != nil {
				return err
			}
			out, err := json.MarshalIndent(pretty, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	})
	return profileCmd
}

func parseLevel(s string) hclog.Level {
	lvl := hclog.LevelFromString(s)
	if lvl == hclog.NoLevel {
		return hclog.Info
	}
	return lvl
}

// buildDemoGraph wires up a small Constant -> Passthrough graph shared by
// the run and dump subcommands, stopping short of compiling it.
func buildDemoGraph(cfg *config, logger *logging.Logger) (*rendergraph.Graph, *taskprofile.Registry, error) {
	bus := eventbus.New(logger)
	types := nodetype.New()
	if _, err := types.Register("Constant", "generic", 0, 0, nodes.NewConstant); err != nil {
		return nil, nil, err
	}
	if _, err := types.Register("Passthrough", "generic", 0, 0, nodes.NewPassthrough); err != nil {
		return nil, nil, err
	}

	cache, err := devicecache.New(cfg.deviceCacheSz)
	if err != nil {
		return nil, nil, fmt.Errorf("construct device cache: %w", err)
	}

	profiles := taskprofile.NewRegistry(logger)
	if cfg.profilePath != "" {
		if data, err := os.ReadFile(cfg.profilePath); err == nil {
			if err := profiles.LoadFromJSON(data); err != nil {
				logger.Warn("failed to load persisted task-profile state", "error", err)
			}
		}
	}

	capTracker := capacity.NewTracker(profiles, 3, prometheus.DefaultRegisterer)
	capTracker.SetBudget("generic", 2_000_000)

	loops := loop.New()
	frameLoop := loops.RegisterLoop(loop.Config{Name: "frame", FixedTimestep: 0, CatchupMode: loop.FireAndForget})
	_ = frameLoop

	g := rendergraph.New(rendergraph.Config{
		Logger:   logger,
		Bus:      bus,
		Device:   cache,
		Types:    types,
		Profiles: profiles,
		Capacity: capTracker,
		Loops:    loops,
		PoolSize: cfg.poolSize,
	})

	if err := g.AddNode("Constant", "seed", map[string]any{"value": 1}); err != nil {
		return nil, nil, err
	}
	if err := g.AddNode("Passthrough", "relay", nil); err != nil {
		return nil, nil, err
	}
	if err := g.Connect("seed", 0, "relay", 0); err != nil {
		return nil, nil, err
	}

	return g, profiles, nil
}

// dumpGraph compiles the demonstration graph and prints its topology as
// a Graphviz digraph, for piping into `dot -Tsvg`.
func dumpGraph(ctx context.Context, cfg *config) error {
	logger := logging.New(logging.Config{Name: "rendergraphctl", Level: parseLevel(cfg.logLevel), MirrorToStderr: true})

	g, _, err := buildDemoGraph(cfg, logger)
	if err != nil {
		return err
	}
	if d := g.Compile(ctx); d.HasErrors() {
		return fmt.Errorf("compile failed: %w", d.Err())
	}

	gv := graphviz.FromTopology(g.Topology())
	return graphviz.WriteDirectedGraph(gv, os.Stdout)
}

// runGraph builds a small Constant -> Passthrough demonstration graph,
// compiles it, renders cfg.frames frames, and persists task-profile
// calibration on exit. Capacity adjustments made during the frames are
// not reported.
func runGraph(ctx context.Context, cfg *config) error {
	logger := logging.New(logging.Config{Name: "rendergraphctl", Level: parseLevel(cfg.logLevel), MirrorToStderr: true})

	g, profiles, err := buildDemoGraph(cfg, logger)
	if err != nil {
		return err
	}

	if d := g.Compile(ctx); d.HasErrors() {
		return fmt.Errorf("compile failed: %w", d.Err())
	}

	const dt = 1.0 / 60.0
	for i := 0; i < cfg.frames; i++ {
		if d := g.RenderFrame(ctx, dt, nil); d.HasErrors() {
			logger.Warn("render frame reported errors", "frame", i, "error", d.Err())
		}
	}

	if err := g.Shutdown(); err != nil {
		logger.Warn("cleanup stack reported an error", "error", err)
	}

	if cfg.profilePath != "" {
		data, err := profiles.SaveToJSON()
		if err != nil {
			return fmt.Errorf("serialize task-profile state: %w", err)
		}
		if err := os.WriteFile(cfg.profilePath, data, 0o644); err != nil {
			return fmt.Errorf("write task-profile state: %w", err)
		}
	}

	logger.Info("render complete", "frames", cfg.frames)
	return nil
}
