package model

import "github.com/m-mizutani/drover/pkg/domain/types"

// ReleaseKey links a created release to the workflow run it later triggers.
// The deploy workflow runs on a branch named after the version tag, so the
// version string doubles as the correlation key.
type ReleaseKey struct {
	Version      string
	Installation types.InstallationID
}

// DeployKey links a dispatched workflow run to its completion event.
type DeployKey struct {
	RunID        types.WorkflowRunID
	Installation types.InstallationID
}

// PendingRelease is a release that has been created but not yet observed to
// trigger a deploy workflow. IssueNumber is 0 for push-triggered releases,
// which have no originating issue to report back to.
type PendingRelease struct {
	Owner       string
	Repo        string
	IssueNumber int
	IssueAuthor string
	Version     SemanticVersion
}

// InProgressDeploy is a deploy correlated to a specific workflow run.
type InProgressDeploy struct {
	Owner       string
	Repo        string
	IssueNumber int
	IssueAuthor string
	Version     SemanticVersion
}
