package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/talgya/econsim/internal/api"
	"github.com/talgya/econsim/internal/config"
	"github.com/talgya/econsim/internal/engine"
	"github.com/talgya/econsim/internal/persistence"
	"github.com/talgya/econsim/internal/worldgen"
)

var runFlags struct {
	configPath string
	seed       int64
	turns      int
	entities   int
	dbPath     string
	apiEnabled bool
	apiPort    int
	resume     bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate a world and advance it through turns",
	RunE:  runSimulation,
}

func init() {
	runCmd.Flags().StringVarP(&runFlags.configPath, "config", "c", "", "TOML config file")
	runCmd.Flags().Int64Var(&runFlags.seed, "seed", 0, "world seed (overrides config)")
	runCmd.Flags().IntVar(&runFlags.turns, "turns", 0, "turns to advance (overrides config)")
	runCmd.Flags().IntVar(&runFlags.entities, "entities", 0, "entity count (overrides config)")
	runCmd.Flags().StringVar(&runFlags.dbPath, "db", "", "snapshot database path (overrides config)")
	runCmd.Flags().BoolVar(&runFlags.apiEnabled, "api", false, "serve the observation API while running")
	runCmd.Flags().IntVar(&runFlags.apiPort, "port", 0, "observation API port (overrides config)")
	runCmd.Flags().BoolVar(&runFlags.resume, "resume", false, "resume from the snapshot in the database")
}

func loadRunConfig() (config.Config, error) {
	cfg := config.Default()
	if runFlags.configPath != "" {
		loaded, err := config.Load(runFlags.configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if runFlags.seed != 0 {
		cfg.Simulation.Seed = runFlags.seed
	}
	if runFlags.turns != 0 {
		cfg.Simulation.Turns = runFlags.turns
	}
	if runFlags.entities != 0 {
		cfg.Simulation.Entities = runFlags.entities
	}
	if runFlags.dbPath != "" {
		cfg.Database.Path = runFlags.dbPath
	}
	if runFlags.apiEnabled {
		cfg.API.Enabled = true
	}
	if runFlags.apiPort != 0 {
		cfg.API.Port = runFlags.apiPort
	}
	return cfg, cfg.Validate()
}

func runSimulation(cmd *cobra.Command, _ []string) error {
	cfg, err := loadRunConfig()
	if err != nil {
		return err
	}
	setupLogging(cfg.SlogLevel())

	db, err := persistence.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	var sim *engine.Simulation
	if runFlags.resume && db.HasSnapshot() {
		sim, err = db.LoadSnapshot()
		if err != nil {
			return fmt.Errorf("resume: %w", err)
		}
	} else {
		gen := worldgen.DefaultGenConfig()
		gen.Seed = cfg.Simulation.Seed
		gen.Entities = cfg.Simulation.Entities
		world := worldgen.Generate(gen)
		sim = engine.NewSimulation(world.Market, world.Network, world.Entities, cfg.Simulation.Seed)
		slog.Info("world generated",
			"seed", cfg.Simulation.Seed,
			"entities", len(world.Entities),
			"routes", len(world.Network.Routes()),
		)
	}

	var mu sync.RWMutex
	if cfg.API.Enabled {
		server := api.New(sim, &mu, cfg.API.Port)
		server.Start()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			server.Shutdown(ctx)
		}()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	for i := 0; i < cfg.Simulation.Turns; i++ {
		select {
		case <-ctx.Done():
			slog.Info("interrupted, saving", "turn", sim.Turn)
			return db.SaveSnapshot(sim)
		default:
		}

		mu.Lock()
		sim.AdvanceTurn()
		mu.Unlock()

		// Periodic checkpoints survive a crash mid-run.
		if sim.Turn%25 == 0 {
			if err := db.SaveSnapshot(sim); err != nil {
				return err
			}
		}
	}

	if err := db.SaveSnapshot(sim); err != nil {
		return err
	}
	slog.Info("run complete",
		"turns", cfg.Simulation.Turns,
		"final_turn", sim.Turn,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return nil
}
