package dag

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/vk/provision/internal/config"
	"github.com/vk/provision/internal/ctxlog"
	"github.com/vk/provision/internal/journal"
	"github.com/vk/provision/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// RunOptions carries the per-run execution settings that aren't part of the
// graph itself.
type RunOptions struct {
	// Journal receives per-step status records. May be nil in tests.
	Journal *journal.Journal
	// RunID identifies this run in the journal.
	RunID string
	// Force re-executes steps even when the journal already records them as
	// succeeded.
	Force bool
	// Prior is the replayed latest-status map from previous runs.
	Prior map[string]journal.Record
}

// Executor runs the graph on a bounded worker pool.
type Executor struct {
	Graph      *Graph
	numWorkers int
	registry   *registry.Registry
	converter  config.Converter
	opts       RunOptions
	wg         sync.WaitGroup
}

// NewExecutor creates an executor for the given graph.
func NewExecutor(graph *Graph, workers int, reg *registry.Registry, conv config.Converter, opts RunOptions) *Executor {
	if workers <= 0 {
		workers = 1
	}
	return &Executor{
		Graph:      graph,
		numWorkers: workers,
		registry:   reg,
		converter:  conv,
		opts:       opts,
	}
}

// Run executes the entire graph concurrently and returns an error if any node
// fails. A failing node takes down only its transitive dependents; branches
// with no path through the failure run to completion. External cancellation
// via ctx skips every node that has not yet started.
func (e *Executor) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	readyChan := make(chan *Node, len(e.Graph.Nodes))

	rootCount := 0
	for _, node := range e.Graph.Nodes {
		if node.depCount.Load() == 0 {
			readyChan <- node
			rootCount++
		}
	}
	logger.Debug("Seeded ready queue with root nodes.", "count", rootCount)

	e.wg.Add(len(e.Graph.Nodes))

	logger.Debug("Starting worker pool.", "workers", e.numWorkers)
	for i := 0; i < e.numWorkers; i++ {
		go e.worker(ctx, readyChan, i)
	}

	e.wg.Wait()
	close(readyChan)

	return e.collectResult(ctx)
}

// worker is the core processing loop for a single concurrent worker.
func (e *Executor) worker(ctx context.Context, readyChan chan *Node, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for node := range readyChan {
		workerLogger := logger.With("workerID", workerID, "nodeID", node.ID)

		if ctx.Err() != nil {
			node.skipOnce.Do(func() {
				workerLogger.Warn("Context canceled, skipping node execution.")
				node.Error = ctx.Err()
				node.setState(Skipped)
				e.record(ctx, node.ID, journal.StatusSkipped, "canceled before execution")
				// Dependents will never be unlocked through the ready queue,
				// so their WaitGroup slots must be released here.
				e.skipDependents(ctx, node)
				e.wg.Done()
			})
			continue
		}

		if e.shouldSkipReplayed(node) {
			workerLogger.Info("⏭️ Skipping step, journal records it as succeeded.", "step", node.ID)
			node.Output = cty.EmptyObjectVal
			node.setState(Succeeded)
			// Recorded as succeeded, not skipped, so the step stays eligible
			// for replay on every later run.
			e.record(ctx, node.ID, journal.StatusSucceeded, "satisfied from journal, not re-executed")
			e.unlockDependents(ctx, node, readyChan)
			e.wg.Done()
			continue
		}

		workerLogger.Debug("Worker picked up node for execution.")
		node.setState(Running)
		e.record(ctx, node.ID, journal.StatusRunning, "")

		if err := e.executeStepNode(ctx, node); err != nil {
			workerLogger.Error("Node execution failed.", "error", err)
			node.Error = err
			node.setState(Failed)
			e.record(ctx, node.ID, journal.StatusFailed, err.Error())
			e.skipDependents(ctx, node)
			e.wg.Done()
			continue
		}

		workerLogger.Debug("Node execution succeeded.")
		node.setState(Succeeded)
		e.record(ctx, node.ID, journal.StatusSucceeded, "")
		e.unlockDependents(ctx, node, readyChan)
		e.wg.Done()
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}

// unlockDependents decrements each dependent's remaining-dependency counter
// and queues those that become ready.
func (e *Executor) unlockDependents(ctx context.Context, node *Node, readyChan chan *Node) {
	logger := ctxlog.FromContext(ctx)
	for _, dependent := range node.Dependents {
		if dependent.depCount.Add(-1) == 0 {
			logger.Debug("Unlocking dependent node.", "dependentID", dependent.ID)
			readyChan <- dependent
		}
	}
}

// skipDependents recursively marks all downstream nodes as skipped. Each node
// is released from the WaitGroup exactly once.
func (e *Executor) skipDependents(ctx context.Context, node *Node) {
	logger := ctxlog.FromContext(ctx)
	for _, dependent := range node.Dependents {
		dependent.skipOnce.Do(func() {
			logger.Warn("Skipping dependent node, upstream did not succeed.", "nodeID", dependent.ID, "dependency", node.ID)
			dependent.Error = fmt.Errorf("skipped because upstream step '%s' did not succeed", node.ID)
			dependent.setState(Skipped)
			e.record(ctx, dependent.ID, journal.StatusSkipped, dependent.Error.Error())
			e.wg.Done()
			e.skipDependents(ctx, dependent)
		})
	}
}

// shouldSkipReplayed reports whether the node can be satisfied from the
// journal instead of being executed.
func (e *Executor) shouldSkipReplayed(node *Node) bool {
	if e.opts.Force || !node.StepConfig.Idempotent {
		return false
	}
	prior, ok := e.opts.Prior[node.ID]
	return ok && prior.Status == journal.StatusSucceeded
}

// record appends a status record to the journal, if one is attached. Journal
// write failures don't abort the run, but they do make the next resume
// re-execute the affected step, so they are logged loudly.
func (e *Executor) record(ctx context.Context, step string, status journal.Status, detail string) {
	if e.opts.Journal == nil {
		return
	}
	rec := journal.Record{
		RunID:  e.opts.RunID,
		Step:   step,
		Status: status,
		Detail: detail,
	}
	if err := e.opts.Journal.Append(rec); err != nil {
		ctxlog.FromContext(ctx).Error("Failed to append to state journal.", "step", step, "status", status, "error", err)
	}
}

// collectResult inspects the final node states and builds the run's outcome.
func (e *Executor) collectResult(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	var failedNodes []string
	var rootCauseError error
	for _, node := range e.Graph.Nodes {
		if node.State() != Failed {
			continue
		}
		logger.Error("Node failed execution.", "nodeID", node.ID, "error", node.Error)
		failedNodes = append(failedNodes, node.ID)
		if rootCauseError == nil {
			rootCauseError = node.Error
		}
	}

	if rootCauseError != nil {
		sort.Strings(failedNodes)
		return fmt.Errorf("provisioning failed for %s: %w", strings.Join(failedNodes, ", "), rootCauseError)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}
