package chain

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/bigredeye/cichain/api"
	"github.com/bigredeye/cichain/internal/events"
	"github.com/bigredeye/cichain/internal/graph"
	"github.com/bigredeye/cichain/internal/intake"
	lf "github.com/bigredeye/cichain/internal/logfield"
	"github.com/bigredeye/cichain/internal/models"
	"github.com/bigredeye/cichain/internal/projects"
	"github.com/bigredeye/cichain/internal/vcs"
)

// Result describes what was done for one finished build.
type Result struct {
	Pipeline *models.Build
	Webhooks []api.Webhook
	// Batch is nil when nothing was dispatched.
	Batch   *intake.Batch
	Ignored bool
	Reason  string
}

type Processor struct {
	walker     *graph.Walker
	extractor  *vcs.Extractor
	assembler  *events.Assembler
	settings   events.Settings
	resolver   *projects.Resolver
	dispatcher *intake.Dispatcher
	root       *zap.Logger
	logger     *zap.Logger
}

func NewProcessor(
	g graph.Graph,
	settings events.Settings,
	resolver *projects.Resolver,
	dispatcher *intake.Dispatcher,
	logger *zap.Logger,
) *Processor {
	p := &Processor{
		extractor:  vcs.NewExtractor(logger),
		settings:   settings,
		resolver:   resolver,
		dispatcher: dispatcher,
		root:       logger,
		logger:     logger.Named("chain"),
	}
	p.bind(g)
	return p
}

func (p *Processor) bind(g graph.Graph) {
	p.walker = graph.NewWalker(g, p.root)
	p.assembler = events.NewAssembler(p.walker, p.extractor, p.settings, p.root)
}

// WithGraph returns a processor reading builds from g and sharing everything
// else, the dispatcher pool included.
func (p *Processor) WithGraph(g graph.Graph) *Processor {
	clone := *p
	clone.bind(g)
	return &clone
}

// OnBuildFinished handles the finish of any build. Only the last composite
// build of a chain is processed.
func (p *Processor) OnBuildFinished(ctx context.Context, buildID int64) (*Result, error) {
	build, err := p.walker.Graph().Build(ctx, buildID)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to load finished build %d", buildID)
	}

	isPipeline, err := p.walker.IsPipeline(ctx, build)
	if err != nil {
		return nil, err
	}
	if !isPipeline || build.Personal {
		p.logger.Info("Ignoring build", lf.BuildID(build.ID), lf.BuildName(build.Name))
		return &Result{Ignored: true, Reason: "not the last composite build of a chain"}, nil
	}

	return p.ProcessPipeline(ctx, build)
}

// ProcessBuild processes the chain build belongs to, wherever it is in it.
func (p *Processor) ProcessBuild(ctx context.Context, buildID int64) (*Result, error) {
	pipeline, err := p.FindPipeline(ctx, buildID)
	if err != nil {
		return nil, err
	}
	return p.ProcessPipeline(ctx, pipeline)
}

func (p *Processor) FindPipeline(ctx context.Context, buildID int64) (*models.Build, error) {
	build, err := p.walker.Graph().Build(ctx, buildID)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to load build %d", buildID)
	}
	return p.walker.FindPipeline(ctx, build)
}

// ProcessPipeline assembles and dispatches the webhooks of the chain closed by
// pipeline. Delivery runs in the background, see Result.Batch.
func (p *Processor) ProcessPipeline(ctx context.Context, pipeline *models.Build) (*Result, error) {
	params, err := p.resolver.Resolve(ctx, pipeline.ProjectID)
	if err != nil {
		return nil, err
	}
	if !params.Enabled {
		p.logger.Debug("Project is not enabled", lf.ProjectID(pipeline.ProjectID), lf.PipelineID(pipeline.ID))
		return &Result{Pipeline: pipeline, Ignored: true, Reason: "project is not enabled"}, nil
	}

	creds, err := params.Credentials()
	if err != nil {
		return nil, errors.Wrapf(err, "Project %s is misconfigured", pipeline.ProjectID)
	}

	webhooks, err := p.Assemble(ctx, pipeline, params.EmailDomain)
	if err != nil {
		return nil, err
	}

	p.logger.Info("Dispatching chain",
		lf.PipelineID(pipeline.ID),
		lf.BuildName(pipeline.Name),
		lf.ProjectID(pipeline.ProjectID),
		lf.Webhooks(len(webhooks)),
	)
	return &Result{
		Pipeline: pipeline,
		Webhooks: webhooks,
		Batch:    p.dispatcher.Dispatch(webhooks, creds),
	}, nil
}

// Assemble builds the webhooks of the chain without sending them.
func (p *Processor) Assemble(ctx context.Context, pipeline *models.Build, emailDomain string) ([]api.Webhook, error) {
	webhooks, err := p.assembler.Assemble(ctx, pipeline, emailDomain)
	if err != nil {
		p.logger.Error("Failed to assemble chain", lf.PipelineID(pipeline.ID), zap.Error(err))
		return nil, errors.Wrapf(err, "Failed to assemble chain of pipeline %d", pipeline.ID)
	}
	return webhooks, nil
}

func (p *Processor) Resolver() *projects.Resolver {
	return p.resolver
}

func (p *Processor) Dispatcher() *intake.Dispatcher {
	return p.dispatcher
}
