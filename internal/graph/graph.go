package graph

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	lf "github.com/bigredeye/cichain/internal/logfield"
	"github.com/bigredeye/cichain/internal/models"
)

var (
	ErrBuildNotFound    = errors.New("build not found")
	ErrPipelineNotFound = errors.New("pipeline build not found")
)

// Graph is the read-only view of the host's build dependency graph. Edges
// exist independently of builds: an id may have dependencies or dependents
// while Build returns ErrBuildNotFound for it.
type Graph interface {
	Build(ctx context.Context, id int64) (*models.Build, error)
	// Dependencies returns the direct upstream (snapshot) dependencies of id.
	Dependencies(ctx context.Context, id int64) ([]int64, error)
	// Dependents returns the builds that directly depend on id.
	Dependents(ctx context.Context, id int64) ([]int64, error)
}

// PipelineStartOffset absorbs the delay between the first job of a chain and
// the start of the composite build that closes it.
const PipelineStartOffset = 3000 * time.Millisecond

func PipelineStartWithOffset(pipeline *models.Build) time.Time {
	if pipeline.StartedAt.UnixMilli() <= PipelineStartOffset.Milliseconds() {
		return time.UnixMilli(0)
	}
	return pipeline.StartedAt.Add(-PipelineStartOffset)
}

type Walker struct {
	graph  Graph
	logger *zap.Logger
}

func NewWalker(graph Graph, logger *zap.Logger) *Walker {
	return &Walker{
		graph:  graph,
		logger: logger.Named("walker"),
	}
}

func (w *Walker) Graph() Graph {
	return w.graph
}

// IsPipeline reports whether build closes its chain: a composite build
// nothing depends on.
func (w *Walker) IsPipeline(ctx context.Context, build *models.Build) (bool, error) {
	if !build.Composite {
		return false, nil
	}
	dependents, err := w.graph.Dependents(ctx, build.ID)
	if err != nil {
		return false, errors.Wrapf(err, "Failed to list dependents of build %d", build.ID)
	}
	return len(dependents) == 0, nil
}

// FindPipeline walks dependents breadth-first from build until it reaches a
// composite build with no dependents. Fan-in may merge several branches into
// the same aggregator, so every id is visited once.
func (w *Walker) FindPipeline(ctx context.Context, build *models.Build) (*models.Build, error) {
	queue := []int64{build.ID}
	visited := map[int64]bool{build.ID: true}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		dependents, err := w.graph.Dependents(ctx, id)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to list dependents of build %d", id)
		}

		current, err := w.lookup(ctx, id, build)
		if err != nil {
			return nil, err
		}
		if current != nil && current.Composite && len(dependents) == 0 {
			return current, nil
		}

		for _, dependent := range dependents {
			if !visited[dependent] {
				visited[dependent] = true
				queue = append(queue, dependent)
			}
		}
	}

	w.logger.Warn("Could not find pipeline build", lf.BuildID(build.ID), lf.BuildName(build.Name))
	return nil, errors.Wrapf(ErrPipelineNotFound, "build %d", build.ID)
}

func (w *Walker) lookup(ctx context.Context, id int64, start *models.Build) (*models.Build, error) {
	if id == start.ID {
		return start, nil
	}
	build, err := w.graph.Build(ctx, id)
	if errors.Is(err, ErrBuildNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, errors.Wrapf(err, "Failed to load build %d", id)
	}
	return build, nil
}

// AllDependencies returns the upstream closure of id in breadth-first order,
// without id itself.
func (w *Walker) AllDependencies(ctx context.Context, id int64) ([]int64, error) {
	queue := []int64{id}
	visited := map[int64]bool{id: true}
	result := []int64{}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		dependencies, err := w.graph.Dependencies(ctx, current)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to list dependencies of build %d", current)
		}
		for _, dependency := range dependencies {
			if !visited[dependency] {
				visited[dependency] = true
				queue = append(queue, dependency)
				result = append(result, dependency)
			}
		}
	}

	return result, nil
}

// dependencyBuilds loads the builds of the upstream closure, dropping ids the
// host has no build for.
func (w *Walker) dependencyBuilds(ctx context.Context, pipeline *models.Build) ([]*models.Build, error) {
	ids, err := w.AllDependencies(ctx, pipeline.ID)
	if err != nil {
		return nil, err
	}

	builds := make([]*models.Build, 0, len(ids))
	for _, id := range ids {
		build, err := w.lookup(ctx, id, pipeline)
		if err != nil {
			return nil, err
		}
		if build != nil {
			builds = append(builds, build)
		}
	}
	return builds, nil
}

// CollectEligibleJobs returns the builds of the pipeline's chain that are
// reported as jobs.
func (w *Walker) CollectEligibleJobs(ctx context.Context, pipeline *models.Build) ([]*models.Build, error) {
	builds, err := w.dependencyBuilds(ctx, pipeline)
	if err != nil {
		return nil, err
	}

	threshold := PipelineStartWithOffset(pipeline)
	jobs := make([]*models.Build, 0, len(builds))
	for _, build := range builds {
		if shouldBeIgnored(build, threshold) {
			w.logger.Debug("Ignoring build", lf.BuildID(build.ID), lf.BuildName(build.Name), lf.PipelineID(pipeline.ID))
			continue
		}
		jobs = append(jobs, build)
	}
	return jobs, nil
}

func shouldBeIgnored(build *models.Build, threshold time.Time) bool {
	return build.Composite ||
		build.Personal ||
		// Canceled before it started
		!build.IsFinished() ||
		// Reused from a previous attempt, already reported back then
		build.StartedAt.Before(threshold)
}

// IsPartialRetry reports whether the pipeline was an automatic retry or reused
// at least one build started before it.
func (w *Walker) IsPartialRetry(ctx context.Context, pipeline *models.Build) (bool, error) {
	if pipeline.IsAutomaticRetry() {
		return true, nil
	}

	builds, err := w.dependencyBuilds(ctx, pipeline)
	if err != nil {
		return false, err
	}

	threshold := PipelineStartWithOffset(pipeline)
	for _, build := range builds {
		if !build.StartedAt.IsZero() && build.StartedAt.Before(threshold) {
			return true, nil
		}
	}
	return false, nil
}
