package database

import (
	"time"

	"github.com/bigredeye/cichain/internal/models"
)

// RootProjectID holds parameters inherited by every project.
const RootProjectID = "_Root"

type Build struct {
	ID        int64 `gorm:"primaryKey;autoIncrement:false"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Name      string
	ProjectID string `gorm:"index"`

	Composite     bool
	Personal      bool
	Status        string
	Canceled      bool
	InternalError bool

	QueuedAt   *time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time

	Tags              []string               `gorm:"serializer:json"`
	Branch            string
	TriggerParameters map[string]string      `gorm:"serializer:json"`
	FailureReasons    []models.FailureReason `gorm:"serializer:json"`
	Agent             *models.Agent          `gorm:"serializer:json"`
	CheckoutDir       string
	Revisions         []models.Revision `gorm:"serializer:json"`

	PreviousFinishedID *int64
}

// Dependency is a snapshot dependency edge: BuildID depends on DependsOnID.
type Dependency struct {
	BuildID     int64 `gorm:"primaryKey;autoIncrement:false"`
	DependsOnID int64 `gorm:"primaryKey;autoIncrement:false;index"`
}

type ProjectParameter struct {
	ProjectID string `gorm:"primaryKey"`
	Name      string `gorm:"primaryKey"`
	Value     string
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func valueOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}

func newBuildRecord(build *models.Build) *Build {
	return &Build{
		ID:                 build.ID,
		Name:               build.Name,
		ProjectID:          build.ProjectID,
		Composite:          build.Composite,
		Personal:           build.Personal,
		Status:             string(build.Status),
		Canceled:           build.Canceled,
		InternalError:      build.InternalError,
		QueuedAt:           optionalTime(build.QueuedAt),
		StartedAt:          optionalTime(build.StartedAt),
		FinishedAt:         build.FinishedAt,
		Tags:               build.Tags,
		Branch:             build.Branch,
		TriggerParameters:  build.TriggerParameters,
		FailureReasons:     build.FailureReasons,
		Agent:              build.Agent,
		CheckoutDir:        build.CheckoutDir,
		Revisions:          build.Revisions,
		PreviousFinishedID: build.PreviousFinishedID,
	}
}

func (b *Build) model() *models.Build {
	build := &models.Build{
		ID:                 b.ID,
		Name:               b.Name,
		ProjectID:          b.ProjectID,
		Composite:          b.Composite,
		Personal:           b.Personal,
		Status:             models.Status(b.Status),
		Canceled:           b.Canceled,
		InternalError:      b.InternalError,
		QueuedAt:           valueOrZero(b.QueuedAt),
		StartedAt:          valueOrZero(b.StartedAt),
		Tags:               b.Tags,
		Branch:             b.Branch,
		TriggerParameters:  b.TriggerParameters,
		FailureReasons:     b.FailureReasons,
		Agent:              b.Agent,
		CheckoutDir:        b.CheckoutDir,
		Revisions:          b.Revisions,
		PreviousFinishedID: b.PreviousFinishedID,
	}
	if b.FinishedAt != nil {
		finished := b.FinishedAt.UTC()
		build.FinishedAt = &finished
	}
	return build
}
