package events

import (
	"golang.org/x/exp/slices"

	"github.com/bigredeye/cichain/api"
	"github.com/bigredeye/cichain/internal/models"
)

const (
	FailureTypeFailedTests        = "TC_FAILED_TESTS"
	FailureTypeSnapshotDependency = "SNAPSHOT_DEPENDENCY_ERROR_BUILD_PROCEEDS_TYPE"
)

// Other failure types carry messages like "exit code 1" and are not reported.
var failureTypeNames = map[string]string{
	FailureTypeFailedTests:        "Tests Failed",
	FailureTypeSnapshotDependency: "Snapshot Dependencies Failed",
}

func hostInfo(build *models.Build) *api.HostInfo {
	if build.Agent.IsEmpty() {
		return nil
	}
	return &api.HostInfo{
		Hostname:  build.Agent.HostAddress,
		Name:      build.Agent.HostName,
		Workspace: build.CheckoutDir,
	}
}

// errorInfo describes the first reported failure of a failed build.
func errorInfo(build *models.Build) *api.ErrorInfo {
	if !build.Status.IsFailed() {
		return nil
	}

	idx := slices.IndexFunc(build.FailureReasons, func(reason models.FailureReason) bool {
		_, reported := failureTypeNames[reason.Type]
		return reported
	})
	if idx == -1 {
		return nil
	}

	reason := build.FailureReasons[idx]
	domain := api.ErrorDomainUser
	if build.InternalError {
		domain = api.ErrorDomainProvider
	}
	return &api.ErrorInfo{
		Message: reason.Description,
		Type:    failureTypeNames[reason.Type],
		Domain:  domain,
	}
}
