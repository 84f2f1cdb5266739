package interfaces

import (
	"context"

	"github.com/m-mizutani/drover/pkg/domain/model"
	"github.com/m-mizutani/drover/pkg/domain/types"
)

// RepositoryGateway defines installation-scoped operations against the
// repository hosting API. Implementations authenticate every call through a
// TokenSource and retry once on an authorization failure.
type RepositoryGateway interface {
	// ListTags returns tags in the order the platform returned them.
	ListTags(ctx context.Context, installation types.InstallationID, owner, repo string) ([]model.Tag, error)

	// CreateRelease creates a release for the given tag name.
	CreateRelease(ctx context.Context, installation types.InstallationID, owner, repo, tag string, draft bool) error

	// CreateIssueComment posts a comment on an issue.
	CreateIssueComment(ctx context.Context, installation types.InstallationID, owner, repo string, number int, body string) error

	// ListReleases returns all releases of the repository.
	ListReleases(ctx context.Context, installation types.InstallationID, owner, repo string) ([]model.Release, error)

	// DeleteRelease deletes a release by its ID.
	DeleteRelease(ctx context.Context, installation types.InstallationID, owner, repo string, releaseID int64) error

	// DeleteTag deletes a tag reference.
	DeleteTag(ctx context.Context, installation types.InstallationID, owner, repo, tag string) error

	// BranchesWhereHead returns the names of branches whose head is the
	// given commit SHA.
	BranchesWhereHead(ctx context.Context, installation types.InstallationID, owner, repo, sha string) ([]string, error)
}

// TokenSource provides authorization material for outbound API calls and
// refreshes it after an authorization failure.
type TokenSource interface {
	// AuthHeader returns the Authorization header value for the given
	// installation. Falls back to the app identity token when no cached
	// installation token exists.
	AuthHeader(installation types.InstallationID) string

	// Refresh re-mints the app identity token and the installation's
	// access token, then waits the refresh cooldown before returning.
	Refresh(ctx context.Context, installation types.InstallationID) error
}
