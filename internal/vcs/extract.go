package vcs

import (
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/bigredeye/cichain/api"
	lf "github.com/bigredeye/cichain/internal/logfield"
	"github.com/bigredeye/cichain/internal/models"
)

const GitVcsName = "jetbrains.git"

type Extractor struct {
	logger *zap.Logger
}

func NewExtractor(logger *zap.Logger) *Extractor {
	return &Extractor{logger: logger.Named("vcs")}
}

// Extract builds the git block of build from its first git revision. A build
// without a git revision or a resolved change has no git block and no error.
func (e *Extractor) Extract(build *models.Build, emailDomain string) (*api.GitInfo, error) {
	revision := findGitRevision(build)
	if revision == nil {
		e.logger.Warn("Could not find git revision", lf.BuildID(build.ID), lf.BuildName(build.Name))
		return nil, nil
	}
	change := revision.Change
	if change == nil {
		e.logger.Warn("Could not find change for revision",
			lf.BuildID(build.ID),
			zap.String("revision", revision.Version),
		)
		return nil, nil
	}

	style, err := ParseUsernameStyle(revision.Root.Property(models.VcsRootUsernameStyleProperty))
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read username style of build %d", build.ID)
	}

	committer, err := resolveCommitter(change, style, emailDomain)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to resolve committer of build %d", build.ID)
	}
	author := committer
	if change.Author != "" {
		author, err = ParseUsername(style, change.Author, emailDomain)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to resolve author of build %d", build.ID)
		}
	}

	return &api.GitInfo{
		RepositoryURL:  revision.Root.Property(models.VcsRootURLProperty),
		DefaultBranch:  revision.Root.Property(models.VcsRootBranchProperty),
		Branch:         build.Branch,
		SHA:            change.Version,
		Message:        change.Description,
		CommitTime:     api.FormatTime(change.CommitDate),
		AuthorTime:     api.FormatTime(change.VcsDate),
		CommitterName:  committer.Name,
		CommitterEmail: committer.Email,
		AuthorName:     author.Name,
		AuthorEmail:    author.Email,
	}, nil
}

func findGitRevision(build *models.Build) *models.Revision {
	for i := range build.Revisions {
		if strings.EqualFold(build.Revisions[i].Root.VcsName, GitVcsName) {
			return &build.Revisions[i]
		}
	}
	return nil
}

// resolveCommitter prefers the VCS username, then the first linked account.
func resolveCommitter(change *models.Change, style UsernameStyle, emailDomain string) (*Identity, error) {
	username := change.Username
	if username == "" {
		if len(change.Committers) == 0 {
			return nil, errors.Wrapf(ErrUnresolvableCommitter, "change %s has no committers", change.Version)
		}
		username = change.Committers[0]
		if username == "" {
			return nil, errors.Wrapf(ErrUnresolvableCommitter, "change %s has an empty committer", change.Version)
		}
	}
	return ParseUsername(style, username, emailDomain)
}
