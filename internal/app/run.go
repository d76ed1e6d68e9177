package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/vk/provision/internal/ctxlog"
	"github.com/vk/provision/internal/dag"
	"github.com/vk/provision/internal/journal"
)

// Run executes the loaded plan: build the dependency graph, replay the state
// journal, and hand the graph to the executor.
func (a *App) Run(ctx context.Context, appConfig *Config) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	graph, err := dag.Build(ctx, a.config, a.registry)
	if err != nil {
		return fmt.Errorf("failed to build dependency graph: %w", err)
	}
	a.logger.Debug("Dependency graph built.", "node_count", len(graph.Nodes))

	if len(graph.Nodes) == 0 {
		a.logger.Warn("No steps found in plan, nothing to execute.")
		return nil
	}

	// Replaying a corrupt journal is fatal before anything executes.
	records, err := journal.Replay(appConfig.StateDir)
	if err != nil {
		return err
	}
	prior := journal.Latest(records)
	a.logger.Debug("State journal replayed.", "records", len(records), "steps_with_state", len(prior))

	jrnl, err := journal.Open(appConfig.StateDir)
	if err != nil {
		return err
	}
	defer jrnl.Close()

	runID := uuid.NewString()
	a.logger.Info("🚀 Starting provisioning run.", "run_id", runID, "steps", len(graph.Nodes), "workers", appConfig.WorkerCount)

	exec := dag.NewExecutor(graph, appConfig.WorkerCount, a.registry, a.converter, dag.RunOptions{
		Journal: jrnl,
		RunID:   runID,
		Force:   appConfig.Force,
		Prior:   prior,
	})
	if err := exec.Run(ctx); err != nil {
		return err
	}

	a.logger.Info("🏁 Provisioning run finished.", "run_id", runID)
	return nil
}
