package models

import "time"

const (
	VcsRootURLProperty           = "url"
	VcsRootBranchProperty        = "branch"
	VcsRootUsernameStyleProperty = "usernameStyle"
)

type VcsRoot struct {
	VcsName    string            `json:"vcs_name" yaml:"vcs_name"`
	Properties map[string]string `json:"properties" yaml:"properties"`
}

func (r *VcsRoot) Property(name string) string {
	if r == nil {
		return ""
	}
	return r.Properties[name]
}

// Revision is a VCS revision a build was run against. Change is the
// modification the host resolved for Version, nil when it could not.
type Revision struct {
	Version string
	Root    VcsRoot
	Change  *Change
}

type Change struct {
	Version     string
	Description string

	// Username is the raw committer string as reported by the VCS.
	Username string
	// Author is the raw author string, empty when the VCS did not report one.
	Author string
	// Committers are the usernames of host accounts linked to the change.
	Committers []string

	CommitDate time.Time
	VcsDate    time.Time
}
