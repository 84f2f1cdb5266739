package github

import (
	"context"

	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/drover/pkg/domain/interfaces"
	"github.com/m-mizutani/drover/pkg/domain/model"
	"github.com/m-mizutani/drover/pkg/domain/types"
)

// EventProcessor converts parsed GitHub webhook payloads into the closed set
// of domain events and routes them to the deploy use case. The conversion
// happens exactly once, here at the boundary; everything below works on
// typed events.
type EventProcessor struct {
	deployUC interfaces.DeployUseCase
}

// NewEventProcessor creates a new GitHub event processor
func NewEventProcessor(deployUC interfaces.DeployUseCase) *EventProcessor {
	return &EventProcessor{
		deployUC: deployUC,
	}
}

// Process routes one webhook payload. Unrecognized payload shapes and
// actions are silently ignored.
func (p *EventProcessor) Process(ctx context.Context, payload any) error {
	logger := ctxlog.From(ctx)

	switch event := payload.(type) {
	case *github.IssueCommentEvent:
		return p.processIssueComment(ctx, event)
	case *github.WorkflowRunEvent:
		return p.processWorkflowRun(ctx, event)
	case *github.PushEvent:
		return p.processPush(ctx, event)
	default:
		logger.Debug("Ignoring unsupported event payload")
		return nil
	}
}

func (p *EventProcessor) processIssueComment(ctx context.Context, event *github.IssueCommentEvent) error {
	switch event.GetAction() {
	case "created", "edited":
	default:
		return nil
	}

	return p.deployUC.HandleIssueComment(ctx, &model.CommentEvent{
		Installation: types.InstallationID(event.GetInstallation().GetID()),
		Owner:        event.GetRepo().GetOwner().GetLogin(),
		Repo:         event.GetRepo().GetName(),
		IssueNumber:  event.GetIssue().GetNumber(),
		IssueAuthor:  event.GetIssue().GetUser().GetLogin(),
		Association:  event.GetComment().GetAuthorAssociation(),
		Body:         event.GetComment().GetBody(),
	})
}

func (p *EventProcessor) processWorkflowRun(ctx context.Context, event *github.WorkflowRunEvent) error {
	workflowEvent := &model.WorkflowEvent{
		Installation: types.InstallationID(event.GetInstallation().GetID()),
		Owner:        event.GetRepo().GetOwner().GetLogin(),
		Repo:         event.GetRepo().GetName(),
		Action:       model.WorkflowAction(event.GetAction()),
		RunID:        types.WorkflowRunID(event.GetWorkflowRun().GetID()),
		HeadBranch:   event.GetWorkflowRun().GetHeadBranch(),
		Conclusion:   event.GetWorkflowRun().GetConclusion(),
		RunURL:       event.GetWorkflowRun().GetHTMLURL(),
	}

	switch workflowEvent.Action {
	case model.WorkflowRequested:
		return p.deployUC.HandleWorkflowRequested(ctx, workflowEvent)
	case model.WorkflowCompleted:
		return p.deployUC.HandleWorkflowCompleted(ctx, workflowEvent)
	default:
		return nil
	}
}

func (p *EventProcessor) processPush(ctx context.Context, event *github.PushEvent) error {
	commits := make([]model.PushCommit, 0, len(event.Commits))
	for _, commit := range event.Commits {
		commits = append(commits, model.PushCommit{
			SHA:         commit.GetID(),
			Message:     commit.GetMessage(),
			AuthorLogin: commit.GetAuthor().GetLogin(),
		})
	}

	return p.deployUC.HandlePush(ctx, &model.PushEvent{
		Installation:  types.InstallationID(event.GetInstallation().GetID()),
		Owner:         event.GetRepo().GetOwner().GetLogin(),
		Repo:          event.GetRepo().GetName(),
		DefaultBranch: event.GetRepo().GetDefaultBranch(),
		Ref:           event.GetRef(),
		Before:        event.GetBefore(),
		Forced:        event.GetForced(),
		Commits:       commits,
	})
}
