package graph

import (
	"context"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/bigredeye/cichain/internal/models"
)

// Snapshot is a serializable copy of a build chain. Timestamps are unix
// milliseconds. A dependency id without a matching build is kept as a
// dangling edge.
type Snapshot struct {
	Builds []SnapshotBuild `json:"builds" yaml:"builds"`
}

type SnapshotBuild struct {
	ID        int64  `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	ProjectID string `json:"project_id,omitempty" yaml:"project_id"`

	Composite     bool          `json:"composite,omitempty" yaml:"composite"`
	Personal      bool          `json:"personal,omitempty" yaml:"personal"`
	Status        models.Status `json:"status" yaml:"status"`
	Canceled      bool          `json:"canceled,omitempty" yaml:"canceled"`
	InternalError bool          `json:"internal_error,omitempty" yaml:"internal_error"`

	Queued   int64  `json:"queued" yaml:"queued"`
	Started  int64  `json:"started" yaml:"started"`
	Finished *int64 `json:"finished,omitempty" yaml:"finished"`

	Tags             []string               `json:"tags,omitempty" yaml:"tags"`
	Branch           string                 `json:"branch,omitempty" yaml:"branch"`
	Trigger          map[string]string      `json:"trigger,omitempty" yaml:"trigger"`
	Failures         []models.FailureReason `json:"failures,omitempty" yaml:"failures"`
	Agent            *models.Agent          `json:"agent,omitempty" yaml:"agent"`
	CheckoutDir      string                 `json:"checkout_dir,omitempty" yaml:"checkout_dir"`
	Revisions        []SnapshotRevision     `json:"revisions,omitempty" yaml:"revisions"`
	PreviousFinished *int64                 `json:"previous_finished,omitempty" yaml:"previous_finished"`

	Dependencies []int64 `json:"dependencies,omitempty" yaml:"dependencies"`
}

type SnapshotRevision struct {
	Version string          `json:"version" yaml:"version"`
	Root    models.VcsRoot  `json:"root" yaml:"root"`
	Change  *SnapshotChange `json:"change,omitempty" yaml:"change"`
}

type SnapshotChange struct {
	Version     string   `json:"version" yaml:"version"`
	Description string   `json:"description" yaml:"description"`
	Username    string   `json:"username" yaml:"username"`
	Author      string   `json:"author,omitempty" yaml:"author"`
	Committers  []string `json:"committers,omitempty" yaml:"committers"`
	CommitDate  int64    `json:"commit_date" yaml:"commit_date"`
	VcsDate     int64    `json:"vcs_date" yaml:"vcs_date"`
}

func ParseSnapshot(data []byte) (*Snapshot, error) {
	snapshot := &Snapshot{}
	if err := yaml.Unmarshal(data, snapshot); err != nil {
		return nil, errors.Wrap(err, "Failed to unmarshal snapshot")
	}
	return snapshot, nil
}

func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to read snapshot")
	}
	return ParseSnapshot(data)
}

// millis treats 0 as an unset timestamp.
func millis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// Model converts b to the build view, dropping its dependency edges.
func (b *SnapshotBuild) Model() *models.Build {
	build := &models.Build{
		ID:                 b.ID,
		Name:               b.Name,
		ProjectID:          b.ProjectID,
		Composite:          b.Composite,
		Personal:           b.Personal,
		Status:             b.Status,
		Canceled:           b.Canceled,
		InternalError:      b.InternalError,
		QueuedAt:           millis(b.Queued),
		StartedAt:          millis(b.Started),
		Tags:               b.Tags,
		Branch:             b.Branch,
		TriggerParameters:  b.Trigger,
		FailureReasons:     b.Failures,
		Agent:              b.Agent,
		CheckoutDir:        b.CheckoutDir,
		PreviousFinishedID: b.PreviousFinished,
	}
	if b.Finished != nil {
		finished := millis(*b.Finished)
		build.FinishedAt = &finished
	}
	for _, revision := range b.Revisions {
		build.Revisions = append(build.Revisions, revision.toModel())
	}
	return build
}

func (r *SnapshotRevision) toModel() models.Revision {
	revision := models.Revision{
		Version: r.Version,
		Root:    r.Root,
	}
	if r.Change != nil {
		revision.Change = &models.Change{
			Version:     r.Change.Version,
			Description: r.Change.Description,
			Username:    r.Change.Username,
			Author:      r.Change.Author,
			Committers:  r.Change.Committers,
			CommitDate:  millis(r.Change.CommitDate),
			VcsDate:     millis(r.Change.VcsDate),
		}
	}
	return revision
}

// MemoryGraph serves a Snapshot as a Graph.
type MemoryGraph struct {
	builds       map[int64]*models.Build
	dependencies map[int64][]int64
	dependents   map[int64][]int64
}

func NewMemoryGraph(snapshot *Snapshot) (*MemoryGraph, error) {
	g := &MemoryGraph{
		builds:       make(map[int64]*models.Build, len(snapshot.Builds)),
		dependencies: make(map[int64][]int64),
		dependents:   make(map[int64][]int64),
	}

	for i := range snapshot.Builds {
		build := &snapshot.Builds[i]
		if _, found := g.builds[build.ID]; found {
			return nil, errors.Errorf("Duplicate build %d in snapshot", build.ID)
		}
		g.builds[build.ID] = build.Model()
		for _, dependency := range build.Dependencies {
			if dependency == build.ID {
				return nil, errors.Errorf("Build %d depends on itself", build.ID)
			}
			g.dependencies[build.ID] = append(g.dependencies[build.ID], dependency)
			g.dependents[dependency] = append(g.dependents[dependency], build.ID)
		}
	}

	return g, nil
}

func (g *MemoryGraph) Build(ctx context.Context, id int64) (*models.Build, error) {
	build, found := g.builds[id]
	if !found {
		return nil, errors.Wrapf(ErrBuildNotFound, "build %d", id)
	}
	return build, nil
}

func (g *MemoryGraph) Dependencies(ctx context.Context, id int64) ([]int64, error) {
	return g.dependencies[id], nil
}

func (g *MemoryGraph) Dependents(ctx context.Context, id int64) ([]int64, error) {
	return g.dependents[id], nil
}
