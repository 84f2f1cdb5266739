package model

import (
	"strings"

	"github.com/m-mizutani/drover/pkg/domain/types"
)

// The webhook ingress converts raw GitHub payloads into this closed set of
// event types once, at the boundary. Domain code never sees the generic
// "any shape" payload.

// AuthorAssociation values that may request a release via comment.
const (
	AssociationOwner        = "OWNER"
	AssociationCollaborator = "COLLABORATOR"
)

// CommentEvent is an issue_comment webhook with action created or edited.
type CommentEvent struct {
	Installation types.InstallationID
	Owner        string
	Repo         string
	IssueNumber  int
	IssueAuthor  string
	Association  string // commenter's author_association
	Body         string
}

// Authorized reports whether the commenter may request a release.
func (e *CommentEvent) Authorized() bool {
	return e.Association == AssociationOwner || e.Association == AssociationCollaborator
}

// WorkflowAction distinguishes the workflow_run sub-kinds the bot reacts to.
type WorkflowAction string

const (
	WorkflowRequested WorkflowAction = "requested"
	WorkflowCompleted WorkflowAction = "completed"
)

// WorkflowEvent is a workflow_run webhook.
type WorkflowEvent struct {
	Installation types.InstallationID
	Owner        string
	Repo         string
	Action       WorkflowAction
	RunID        types.WorkflowRunID
	HeadBranch   string
	Conclusion   string // set on completed events: success, failure, ...
	RunURL       string
}

// PushCommit is one commit carried by a push event.
type PushCommit struct {
	SHA         string
	Message     string
	AuthorLogin string
}

// PushEvent is a push webhook.
type PushEvent struct {
	Installation  types.InstallationID
	Owner         string
	Repo          string
	DefaultBranch string
	Ref           string // refs/heads/<branch>
	Before        string
	Forced        bool
	Commits       []PushCommit
}

// Branch strips the refs/heads/ prefix from Ref.
func (e *PushEvent) Branch() string {
	return strings.TrimPrefix(e.Ref, "refs/heads/")
}

// ToDefaultBranch reports whether the push targets the repository's
// configured default branch.
func (e *PushEvent) ToDefaultBranch() bool {
	return e.DefaultBranch != "" && e.Branch() == e.DefaultBranch
}

const zeroSHA = "0000000000000000000000000000000000000000"

// HasBefore reports whether the push carries a usable before SHA. Branch
// creation events carry the all-zero SHA.
func (e *PushEvent) HasBefore() bool {
	return e.Before != "" && e.Before != zeroSHA
}

// BumpCommit returns the first commit authored by the repository owner whose
// message contains a bump marker. Later matches are ignored.
func (e *PushEvent) BumpCommit() (PushCommit, BumpKind, bool) {
	for _, commit := range e.Commits {
		if commit.AuthorLogin != e.Owner {
			continue
		}
		if kind := ParseBumpKind(commit.Message); kind != BumpNone {
			return commit, kind, true
		}
	}
	return PushCommit{}, BumpNone, false
}
