package interfaces

import (
	"context"

	"github.com/m-mizutani/drover/pkg/domain/model"
)

// DeployUseCase drives the release lifecycle: a bump request creates a
// release, a workflow run is correlated back to it, and the outcome is
// reported to the original requester.
type DeployUseCase interface {
	// HandleIssueComment processes a comment-triggered bump request.
	HandleIssueComment(ctx context.Context, event *model.CommentEvent) error

	// HandleWorkflowRequested correlates a dispatched workflow run with a
	// pending release. Unrelated runs are ignored.
	HandleWorkflowRequested(ctx context.Context, event *model.WorkflowEvent) error

	// HandleWorkflowCompleted reports the outcome of a correlated deploy
	// back to the originating issue.
	HandleWorkflowCompleted(ctx context.Context, event *model.WorkflowEvent) error

	// HandlePush processes push-triggered bump requests and cleans up
	// releases orphaned by forced pushes.
	HandlePush(ctx context.Context, event *model.PushEvent) error
}
