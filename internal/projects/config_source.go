package projects

import (
	"context"
	"strconv"

	"github.com/pkg/errors"
)

// ProjectConfig holds the parameters of one project in the service config.
type ProjectConfig struct {
	ID          string
	APIKey      string
	Site        string
	Enabled     *bool
	EmailDomain string
}

func (c *ProjectConfig) parameters() map[string]string {
	params := map[string]string{}
	set := func(key, value string) {
		if value != "" {
			params[key] = value
		}
	}
	set(ParamAPIKey, c.APIKey)
	set(ParamSite, c.Site)
	set(ParamEmailDomain, c.EmailDomain)
	if c.Enabled != nil {
		params[ParamEnabled] = strconv.FormatBool(*c.Enabled)
	}
	return params
}

// ConfigSource serves project parameters from the service config.
type ConfigSource struct {
	root     map[string]string
	projects map[string]map[string]string
}

func NewConfigSource(root ProjectConfig, projects []ProjectConfig) (*ConfigSource, error) {
	source := &ConfigSource{
		root:     root.parameters(),
		projects: make(map[string]map[string]string, len(projects)),
	}
	for i := range projects {
		project := &projects[i]
		if project.ID == "" {
			return nil, errors.Errorf("Project #%d has no id", i)
		}
		if _, found := source.projects[project.ID]; found {
			return nil, errors.Errorf("Duplicate project %s", project.ID)
		}
		source.projects[project.ID] = project.parameters()
	}
	return source, nil
}

func (s *ConfigSource) ProjectParameters(ctx context.Context, projectID string) (map[string]string, error) {
	params, found := s.projects[projectID]
	if !found {
		return nil, errors.Wrap(ErrProjectNotFound, projectID)
	}
	return params, nil
}

func (s *ConfigSource) RootParameters(ctx context.Context) (map[string]string, error) {
	return s.root, nil
}
