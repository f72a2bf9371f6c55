package graph

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const simpleChain = `
builds:
  - id: 1
    name: Build
    status: normal
    queued: 3500
    started: 4000
    finished: 4500
  - id: 2
    name: Pipeline
    composite: true
    status: normal
    queued: 4800
    started: 5000
    finished: 6000
    dependencies: [1]
`

const partialRetryChain = `
builds:
  - id: 1
    name: Fresh
    status: normal
    queued: 3500
    started: 4000
    finished: 4500
  - id: 3
    name: Reused
    status: normal
    queued: 500
    started: 1000
    finished: 1500
  - id: 2
    name: Pipeline
    composite: true
    status: normal
    started: 5000
    finished: 6000
    dependencies: [1, 3]
`

const filteredChain = `
builds:
  - id: 10
    name: Personal
    personal: true
    status: normal
    started: 100000
    finished: 100500
  - id: 11
    name: Aggregator
    composite: true
    status: normal
    started: 100000
    finished: 101000
    dependencies: [12]
  - id: 12
    name: Unfinished
    canceled: true
    status: unknown
  - id: 13
    name: Test
    status: failure
    started: 100100
    finished: 100900
  - id: 20
    name: Pipeline
    composite: true
    status: failure
    started: 100000
    finished: 102000
    dependencies: [10, 11, 13, 99]
`

// Two branches merge into one aggregator before reaching the pipeline.
const fanInChain = `
builds:
  - id: 1
    name: Checkout
    status: normal
    started: 10000
    finished: 11000
  - id: 2
    name: Linux
    status: normal
    started: 11000
    finished: 12000
    dependencies: [1]
  - id: 3
    name: Windows
    status: normal
    started: 11000
    finished: 12500
    dependencies: [1]
  - id: 4
    name: Merge
    composite: true
    status: normal
    started: 10000
    finished: 13000
    dependencies: [2, 3]
  - id: 5
    name: Release
    composite: true
    status: normal
    started: 10000
    finished: 14000
    dependencies: [4]
`

const orphanChain = `
builds:
  - id: 1
    name: Lonely
    status: normal
    started: 1000
    finished: 2000
  - id: 2
    name: Downstream
    status: normal
    started: 2000
    finished: 3000
    dependencies: [1]
`

func makeWalker(t *testing.T, chain string) *Walker {
	snapshot, err := ParseSnapshot([]byte(chain))
	if err != nil {
		t.Fatalf("Failed to parse snapshot: %v", err)
	}
	g, err := NewMemoryGraph(snapshot)
	if err != nil {
		t.Fatalf("Failed to build graph: %v", err)
	}
	return NewWalker(g, zap.NewNop())
}

func checkPipeline(t *testing.T, w *Walker, from, expected int64) {
	ctx := context.Background()
	build, err := w.Graph().Build(ctx, from)
	if err != nil {
		t.Fatalf("Failed to load build %d: %v", from, err)
	}
	pipeline, err := w.FindPipeline(ctx, build)
	if err != nil {
		t.Fatalf("Failed to find pipeline for %d: %v", from, err)
	}
	if pipeline.ID != expected {
		t.Fatalf("Invalid pipeline for %d: %d, expected: %d", from, pipeline.ID, expected)
	}
}

func collectIDs(t *testing.T, w *Walker, pipelineID int64) []int64 {
	ctx := context.Background()
	pipeline, err := w.Graph().Build(ctx, pipelineID)
	if err != nil {
		t.Fatalf("Failed to load pipeline: %v", err)
	}
	jobs, err := w.CollectEligibleJobs(ctx, pipeline)
	if err != nil {
		t.Fatalf("Failed to collect jobs: %v", err)
	}
	ids := []int64{}
	for _, job := range jobs {
		ids = append(ids, job.ID)
	}
	return ids
}

func checkPartialRetry(t *testing.T, w *Walker, pipelineID int64, expected bool) {
	ctx := context.Background()
	pipeline, err := w.Graph().Build(ctx, pipelineID)
	if err != nil {
		t.Fatalf("Failed to load pipeline: %v", err)
	}
	retry, err := w.IsPartialRetry(ctx, pipeline)
	if err != nil {
		t.Fatalf("Failed to check partial retry: %v", err)
	}
	if retry != expected {
		t.Fatalf("Invalid partial retry flag: %v, expected: %v", retry, expected)
	}
}

func TestFindPipeline(t *testing.T) {
	w := makeWalker(t, simpleChain)
	checkPipeline(t, w, 1, 2)
	checkPipeline(t, w, 2, 2)

	w = makeWalker(t, fanInChain)
	checkPipeline(t, w, 1, 5)
	checkPipeline(t, w, 3, 5)
	checkPipeline(t, w, 4, 5)
}

func TestFindPipelineNotFound(t *testing.T) {
	w := makeWalker(t, orphanChain)
	ctx := context.Background()
	build, err := w.Graph().Build(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}

	_, err = w.FindPipeline(ctx, build)
	if !errors.Is(err, ErrPipelineNotFound) {
		t.Fatalf("Expected ErrPipelineNotFound, got %v", err)
	}
}

func TestIsPipeline(t *testing.T) {
	w := makeWalker(t, fanInChain)
	ctx := context.Background()
	for id, expected := range map[int64]bool{1: false, 4: false, 5: true} {
		build, err := w.Graph().Build(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		isPipeline, err := w.IsPipeline(ctx, build)
		if err != nil {
			t.Fatal(err)
		}
		if isPipeline != expected {
			t.Fatalf("Invalid IsPipeline for %d: %v, expected: %v", id, isPipeline, expected)
		}
	}
}

func TestAllDependencies(t *testing.T) {
	w := makeWalker(t, fanInChain)
	ids, err := w.AllDependencies(context.Background(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int64{4, 2, 3, 1}, ids); diff != "" {
		t.Fatalf("Invalid dependencies (-want +got):\n%s", diff)
	}
}

func TestCollectEligibleJobs(t *testing.T) {
	w := makeWalker(t, simpleChain)
	if diff := cmp.Diff([]int64{1}, collectIDs(t, w, 2)); diff != "" {
		t.Fatalf("Invalid jobs (-want +got):\n%s", diff)
	}
	checkPartialRetry(t, w, 2, false)

	w = makeWalker(t, fanInChain)
	if diff := cmp.Diff([]int64{2, 3, 1}, collectIDs(t, w, 5)); diff != "" {
		t.Fatalf("Invalid jobs (-want +got):\n%s", diff)
	}
}

func TestCollectEligibleJobsFiltersReused(t *testing.T) {
	w := makeWalker(t, partialRetryChain)
	if diff := cmp.Diff([]int64{1}, collectIDs(t, w, 2)); diff != "" {
		t.Fatalf("Invalid jobs (-want +got):\n%s", diff)
	}
	checkPartialRetry(t, w, 2, true)
}

func TestCollectEligibleJobsFilters(t *testing.T) {
	w := makeWalker(t, filteredChain)
	// 10 is personal, 11 composite, 12 unfinished, 99 dangling.
	if diff := cmp.Diff([]int64{13}, collectIDs(t, w, 20)); diff != "" {
		t.Fatalf("Invalid jobs (-want +got):\n%s", diff)
	}
	// Unstarted builds never mark a retry.
	checkPartialRetry(t, w, 20, false)
}

func TestAutomaticRetry(t *testing.T) {
	w := makeWalker(t, `
builds:
  - id: 1
    name: Pipeline
    composite: true
    status: normal
    started: 5000
    finished: 6000
    trigger:
      type: retry
`)
	checkPartialRetry(t, w, 1, true)
}

func TestPipelineStartWithOffset(t *testing.T) {
	w := makeWalker(t, simpleChain)
	pipeline, err := w.Graph().Build(context.Background(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if got := PipelineStartWithOffset(pipeline).UnixMilli(); got != 2000 {
		t.Fatalf("Invalid threshold: %d, expected: %d", got, 2000)
	}

	for _, started := range []int64{0, 1000, 3000} {
		pipeline.StartedAt = time.UnixMilli(started)
		if got := PipelineStartWithOffset(pipeline).UnixMilli(); got != 0 {
			t.Fatalf("Threshold for start %d is not clamped: %d", started, got)
		}
	}
}

func TestMemoryGraphRejectsBrokenSnapshots(t *testing.T) {
	for _, chain := range []string{
		"builds: [{id: 1}, {id: 1}]",
		"builds: [{id: 1, dependencies: [1]}]",
	} {
		snapshot, err := ParseSnapshot([]byte(chain))
		if err != nil {
			t.Fatal(err)
		}
		if _, err := NewMemoryGraph(snapshot); err == nil {
			t.Fatalf("Expected error for %q", chain)
		}
	}
}

func TestMemoryGraphBuildNotFound(t *testing.T) {
	w := makeWalker(t, filteredChain)
	_, err := w.Graph().Build(context.Background(), 99)
	if !errors.Is(err, ErrBuildNotFound) {
		t.Fatalf("Expected ErrBuildNotFound, got %v", err)
	}
}
