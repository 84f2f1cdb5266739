package usecase

import (
	"context"
	"fmt"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/drover/pkg/domain/interfaces"
	"github.com/m-mizutani/drover/pkg/domain/model"
	"github.com/m-mizutani/drover/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

type deployUseCase struct {
	gateway interfaces.RepositoryGateway
	store   interfaces.CorrelationStore
	cleanup *AmendedCleanup
}

// NewDeploy creates a new instance of DeployUseCase
func NewDeploy(gateway interfaces.RepositoryGateway, store interfaces.CorrelationStore) interfaces.DeployUseCase {
	return &deployUseCase{
		gateway: gateway,
		store:   store,
		cleanup: NewAmendedCleanup(gateway),
	}
}

// HandleIssueComment processes a comment-triggered bump request. Only
// comments by an OWNER or COLLABORATOR are accepted; a comment without a
// bump marker is a valid no-op.
func (uc *deployUseCase) HandleIssueComment(ctx context.Context, event *model.CommentEvent) error {
	logger := ctxlog.From(ctx)

	if !event.Authorized() {
		logger.Info("Rejecting bump request from unauthorized commenter",
			"association", event.Association,
			"repo", event.Owner+"/"+event.Repo,
			"issue", event.IssueNumber,
		)
		return nil
	}

	kind := model.ParseBumpKind(event.Body)
	if kind == model.BumpNone {
		return nil
	}

	return uc.requestRelease(ctx, releaseRequest{
		installation: event.Installation,
		owner:        event.Owner,
		repo:         event.Repo,
		issueNumber:  event.IssueNumber,
		issueAuthor:  event.IssueAuthor,
		kind:         kind,
	})
}

// HandleWorkflowRequested correlates a dispatched workflow run with a
// pending release. The workflow's source branch is named after the version
// tag, so (branch, installation) is the correlation key. Runs without a
// matching pending release are unrelated and ignored.
func (uc *deployUseCase) HandleWorkflowRequested(ctx context.Context, event *model.WorkflowEvent) error {
	logger := ctxlog.From(ctx)

	key := model.ReleaseKey{Version: event.HeadBranch, Installation: event.Installation}
	pending, ok := uc.store.TakePending(key)
	if !ok {
		logger.Debug("Workflow run has no pending release, ignoring",
			"head_branch", event.HeadBranch,
			"run_id", event.RunID,
		)
		return nil
	}

	uc.store.PutDeploy(model.DeployKey{RunID: event.RunID, Installation: event.Installation}, &model.InProgressDeploy{
		Owner:       pending.Owner,
		Repo:        pending.Repo,
		IssueNumber: pending.IssueNumber,
		IssueAuthor: pending.IssueAuthor,
		Version:     pending.Version,
	})

	logger.Info("Deploy workflow started for release",
		"version", pending.Version.String(),
		"run_id", event.RunID,
		"repo", pending.Owner+"/"+pending.Repo,
	)
	return nil
}

// HandleWorkflowCompleted reports the deploy outcome back to the
// originating issue. Runs without a matching in-progress deploy are ignored.
func (uc *deployUseCase) HandleWorkflowCompleted(ctx context.Context, event *model.WorkflowEvent) error {
	logger := ctxlog.From(ctx)

	key := model.DeployKey{RunID: event.RunID, Installation: event.Installation}
	deploy, ok := uc.store.TakeDeploy(key)
	if !ok {
		logger.Debug("Completed workflow run has no in-progress deploy, ignoring",
			"run_id", event.RunID,
		)
		return nil
	}

	logger.Info("Deploy workflow completed",
		"version", deploy.Version.String(),
		"conclusion", event.Conclusion,
		"repo", deploy.Owner+"/"+deploy.Repo,
	)

	if deploy.IssueNumber == 0 {
		// Push-triggered releases have no originating issue to report to.
		return nil
	}

	comment := formatConclusion(deploy, event)
	if err := uc.gateway.CreateIssueComment(ctx, event.Installation, deploy.Owner, deploy.Repo, deploy.IssueNumber, comment); err != nil {
		return goerr.Wrap(err, "failed to post status comment",
			goerr.V("repo", deploy.Owner+"/"+deploy.Repo),
			goerr.V("issue", deploy.IssueNumber),
		)
	}

	return nil
}

// HandlePush processes pushes to the default branch: forced pushes first get
// a best-effort cleanup of releases orphaned by the rewritten history, then
// a commit by the repository owner carrying a bump marker requests a
// release.
func (uc *deployUseCase) HandlePush(ctx context.Context, event *model.PushEvent) error {
	if !event.ToDefaultBranch() {
		return nil
	}

	// Never blocks release creation, even on total failure.
	uc.cleanup.Run(ctx, event)

	commit, kind, ok := event.BumpCommit()
	if !ok {
		return nil
	}

	ctxlog.From(ctx).Info("Push-triggered bump request",
		"commit", commit.SHA,
		"kind", kind.String(),
		"repo", event.Owner+"/"+event.Repo,
	)

	return uc.requestRelease(ctx, releaseRequest{
		installation: event.Installation,
		owner:        event.Owner,
		repo:         event.Repo,
		issueAuthor:  event.Owner,
		kind:         kind,
	})
}

type releaseRequest struct {
	installation types.InstallationID
	owner        string
	repo         string
	issueNumber  int
	issueAuthor  string
	kind         model.BumpKind
}

// requestRelease computes the next version, creates the release, and records
// the pending correlation entry.
func (uc *deployUseCase) requestRelease(ctx context.Context, req releaseRequest) error {
	logger := ctxlog.From(ctx)

	tags, err := uc.gateway.ListTags(ctx, req.installation, req.owner, req.repo)
	if err != nil {
		return goerr.Wrap(err, "failed to list tags", goerr.V("repo", req.owner+"/"+req.repo))
	}

	version, err := model.NextVersion(tags, req.kind)
	if err != nil {
		return goerr.Wrap(err, "failed to resolve next version", goerr.V("repo", req.owner+"/"+req.repo))
	}

	if err := uc.gateway.CreateRelease(ctx, req.installation, req.owner, req.repo, version.String(), true); err != nil {
		return goerr.Wrap(err, "failed to create release",
			goerr.V("repo", req.owner+"/"+req.repo),
			goerr.V("version", version.String()),
		)
	}

	uc.store.PutPending(model.ReleaseKey{Version: version.String(), Installation: req.installation}, &model.PendingRelease{
		Owner:       req.owner,
		Repo:        req.repo,
		IssueNumber: req.issueNumber,
		IssueAuthor: req.issueAuthor,
		Version:     version,
	})

	logger.Info("Release created, waiting for deploy workflow",
		"version", version.String(),
		"kind", req.kind.String(),
		"repo", req.owner+"/"+req.repo,
		"pending_releases", uc.store.PendingCount(),
	)
	return nil
}

// formatConclusion renders the status comment for a finished deploy,
// addressed to the issue author.
func formatConclusion(deploy *model.InProgressDeploy, event *model.WorkflowEvent) string {
	switch event.Conclusion {
	case "success":
		return fmt.Sprintf("@%s, ✅ Success. Version: %s \n%s", deploy.IssueAuthor, deploy.Version.String(), event.RunURL)
	case "failure":
		return fmt.Sprintf("@%s, ❌ Failure. Something went wrong, please check the workflow logs. \n%s", deploy.IssueAuthor, event.RunURL)
	default:
		return fmt.Sprintf("@%s, deploy finished with conclusion %q. \n%s", deploy.IssueAuthor, event.Conclusion, event.RunURL)
	}
}
