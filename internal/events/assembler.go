package events

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/bigredeye/cichain/api"
	"github.com/bigredeye/cichain/internal/graph"
	lf "github.com/bigredeye/cichain/internal/logfield"
	"github.com/bigredeye/cichain/internal/models"
	"github.com/bigredeye/cichain/internal/vcs"
)

var ErrUnrecognizedStatus = errors.New("unrecognized build status")

const defaultScheme = "http"

type Settings struct {
	// RootURL of the CI server, build links are resolved against it.
	RootURL string
	// ServerUUID prefixes webhook ids so that builds of different servers
	// never collide. Empty means bare build ids.
	ServerUUID string
}

type Assembler struct {
	walker    *graph.Walker
	extractor *vcs.Extractor
	settings  Settings
	logger    *zap.Logger
}

func NewAssembler(walker *graph.Walker, extractor *vcs.Extractor, settings Settings, logger *zap.Logger) *Assembler {
	return &Assembler{
		walker:    walker,
		extractor: extractor,
		settings:  settings,
		logger:    logger.Named("assembler"),
	}
}

// Assemble returns the pipeline webhook followed by one webhook per eligible
// job of the chain. Any error aborts the whole chain.
func (a *Assembler) Assemble(ctx context.Context, pipeline *models.Build, emailDomain string) ([]api.Webhook, error) {
	git, err := a.extractor.Extract(pipeline, emailDomain)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to extract git info")
	}

	pipelineWebhook, err := a.PipelineWebhook(ctx, pipeline, git)
	if err != nil {
		return nil, err
	}

	jobs, err := a.walker.CollectEligibleJobs(ctx, pipeline)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to collect jobs")
	}

	webhooks := make([]api.Webhook, 0, len(jobs)+1)
	webhooks = append(webhooks, pipelineWebhook)
	for _, job := range jobs {
		jobWebhook, err := a.JobWebhook(ctx, job, pipelineWebhook, git)
		if err != nil {
			return nil, err
		}
		webhooks = append(webhooks, jobWebhook)
	}

	a.logger.Info("Assembled webhooks",
		lf.PipelineID(pipeline.ID),
		lf.BuildName(pipeline.Name),
		lf.Webhooks(len(webhooks)),
	)
	return webhooks, nil
}

func (a *Assembler) PipelineWebhook(ctx context.Context, pipeline *models.Build, git *api.GitInfo) (*api.PipelineWebhook, error) {
	status, err := pipelineStatus(pipeline)
	if err != nil {
		return nil, err
	}

	partialRetry, err := a.walker.IsPartialRetry(ctx, pipeline)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to check partial retry")
	}

	var previous *api.RelatedPipeline
	if partialRetry {
		previous, err = a.previousAttempt(ctx, pipeline)
		if err != nil {
			return nil, err
		}
	}

	return &api.PipelineWebhook{
		Level:           api.LevelPipeline,
		Name:            pipeline.Name,
		URL:             a.BuildURL(pipeline.ID),
		Start:           api.FormatTime(pipeline.StartedAt),
		End:             finishTime(pipeline),
		Git:             git,
		Tags:            tags(pipeline),
		UniqueID:        a.BuildID(pipeline.ID),
		PipelineID:      strconv.FormatInt(pipeline.ID, 10),
		PartialRetry:    partialRetry,
		Status:          status,
		PreviousAttempt: previous,
	}, nil
}

func (a *Assembler) JobWebhook(ctx context.Context, job *models.Build, pipeline *api.PipelineWebhook, git *api.GitInfo) (*api.JobWebhook, error) {
	status, err := jobStatus(job)
	if err != nil {
		return nil, err
	}

	dependencies, err := a.dependencyIDs(ctx, job)
	if err != nil {
		return nil, err
	}

	return &api.JobWebhook{
		Level:            api.LevelJob,
		Name:             job.Name,
		URL:              a.BuildURL(job.ID),
		Start:            api.FormatTime(job.StartedAt),
		End:              finishTime(job),
		Git:              git,
		Tags:             tags(job),
		PipelineUniqueID: pipeline.UniqueID,
		PipelineName:     pipeline.Name,
		JobID:            a.BuildID(job.ID),
		Status:           status,
		QueueTime:        job.QueueTime().Milliseconds(),
		Dependencies:     dependencies,
		Node:             hostInfo(job),
		Error:            errorInfo(job),
	}, nil
}

func (a *Assembler) BuildID(id int64) string {
	if a.settings.ServerUUID == "" {
		return strconv.FormatInt(id, 10)
	}
	return fmt.Sprintf("%s-%d", a.settings.ServerUUID, id)
}

// BuildURL links to the build page of the CI server, or is empty when the
// root URL is unusable.
func (a *Assembler) BuildURL(id int64) string {
	root := a.settings.RootURL
	if !strings.Contains(root, "://") {
		root = defaultScheme + "://" + root
	}
	base, err := url.Parse(root)
	if err == nil && base.Host == "" {
		err = errors.Errorf("no host in %q", a.settings.RootURL)
	}
	if err != nil {
		a.logger.Warn("Failed to build a valid build URL", lf.BuildID(id), lf.URL(a.settings.RootURL), zap.Error(err))
		return ""
	}
	return base.ResolveReference(&url.URL{Path: fmt.Sprintf("/build/%d", id)}).String()
}

func (a *Assembler) previousAttempt(ctx context.Context, pipeline *models.Build) (*api.RelatedPipeline, error) {
	if pipeline.PreviousFinishedID == nil {
		return nil, nil
	}
	previous, err := a.walker.Graph().Build(ctx, *pipeline.PreviousFinishedID)
	if errors.Is(err, graph.ErrBuildNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, errors.Wrap(err, "Failed to load previous attempt")
	}
	return &api.RelatedPipeline{
		ID:  a.BuildID(previous.ID),
		URL: a.BuildURL(previous.ID),
	}, nil
}

// dependencyIDs lists direct dependencies that still have a build.
func (a *Assembler) dependencyIDs(ctx context.Context, job *models.Build) ([]string, error) {
	dependencies, err := a.walker.Graph().Dependencies(ctx, job.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to list dependencies of build %d", job.ID)
	}

	var ids []string
	for _, id := range dependencies {
		build, err := a.walker.Graph().Build(ctx, id)
		if errors.Is(err, graph.ErrBuildNotFound) {
			continue
		} else if err != nil {
			return nil, errors.Wrapf(err, "Failed to load dependency %d", id)
		}
		ids = append(ids, a.BuildID(build.ID))
	}
	return ids, nil
}

func pipelineStatus(build *models.Build) (api.PipelineStatus, error) {
	switch {
	case build.Status.IsSuccessful():
		return api.PipelineStatusSuccess, nil
	case build.Status.IsFailed():
		return api.PipelineStatusError, nil
	case build.Canceled:
		return api.PipelineStatusCanceled, nil
	}
	return "", errors.Wrapf(ErrUnrecognizedStatus, "pipeline %d has status %q", build.ID, build.Status)
}

func jobStatus(build *models.Build) (api.JobStatus, error) {
	switch {
	case build.Status.IsSuccessful():
		return api.JobStatusSuccess, nil
	case build.Status.IsFailed():
		return api.JobStatusError, nil
	case build.Canceled:
		return api.JobStatusCanceled, nil
	}
	return "", errors.Wrapf(ErrUnrecognizedStatus, "job %d has status %q", build.ID, build.Status)
}

func finishTime(build *models.Build) string {
	if build.FinishedAt == nil {
		return ""
	}
	return api.FormatTime(*build.FinishedAt)
}

func tags(build *models.Build) []string {
	if len(build.Tags) == 0 {
		return nil
	}
	return build.Tags
}
