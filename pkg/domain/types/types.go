package types

// Version is the application version, overridden at build time via -ldflags.
var Version = "dev"

// InstallationID identifies one installation of the GitHub App. All API
// calls and cached credentials are scoped to an installation.
type InstallationID int64

// WorkflowRunID identifies a single GitHub Actions workflow run.
type WorkflowRunID int64
