package projects

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/bigredeye/cichain/internal/intake"
	lf "github.com/bigredeye/cichain/internal/logfield"
)

const (
	ParamAPIKey      = "datadog.ci.api.key"
	ParamSite        = "datadog.ci.site"
	ParamEnabled     = "datadog.ci.enabled"
	ParamEmailDomain = "datadog.ci.email.domain"
)

var (
	ErrProjectNotFound  = errors.New("project not found")
	ErrMissingParameter = errors.New("missing project parameter")
)

// Source looks up raw project parameters.
type Source interface {
	// ProjectParameters returns ErrProjectNotFound for unknown projects.
	ProjectParameters(ctx context.Context, projectID string) (map[string]string, error)
	RootParameters(ctx context.Context) (map[string]string, error)
}

type Parameters struct {
	APIKey      string
	Site        string
	Enabled     bool
	EmailDomain string
}

// Credentials fails with ErrMissingParameter unless both the api key and the
// site are set.
func (p *Parameters) Credentials() (intake.Credentials, error) {
	if p.APIKey == "" {
		return intake.Credentials{}, errors.Wrap(ErrMissingParameter, ParamAPIKey)
	}
	if p.Site == "" {
		return intake.Credentials{}, errors.Wrap(ErrMissingParameter, ParamSite)
	}
	return intake.Credentials{APIKey: p.APIKey, Site: p.Site}, nil
}

type Resolver struct {
	source Source
	logger *zap.Logger
}

func NewResolver(source Source, logger *zap.Logger) *Resolver {
	return &Resolver{
		source: source,
		logger: logger.Named("projects"),
	}
}

// Resolve returns the parameters of projectID. Projects inherit the root
// project parameters, and unknown projects get the root ones as is.
func (r *Resolver) Resolve(ctx context.Context, projectID string) (*Parameters, error) {
	root, err := r.source.RootParameters(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to load root project parameters")
	}

	params := make(map[string]string, len(root))
	for key, value := range root {
		params[key] = value
	}

	if projectID != "" {
		project, err := r.source.ProjectParameters(ctx, projectID)
		if errors.Is(err, ErrProjectNotFound) {
			r.logger.Debug("Unknown project, using root parameters", lf.ProjectID(projectID))
		} else if err != nil {
			return nil, errors.Wrapf(err, "Failed to load parameters of project %s", projectID)
		}
		for key, value := range project {
			params[key] = value
		}
	}

	return &Parameters{
		APIKey:      params[ParamAPIKey],
		Site:        params[ParamSite],
		Enabled:     strings.EqualFold(strings.TrimSpace(params[ParamEnabled]), "true"),
		EmailDomain: params[ParamEmailDomain],
	}, nil
}
