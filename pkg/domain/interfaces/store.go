package interfaces

import (
	"github.com/m-mizutani/drover/pkg/domain/model"
)

// CorrelationStore holds the ephemeral state linking release requests to
// workflow runs. Entries are consumed exactly once: Take atomically removes
// and returns the entry, closing the read-then-delete race between
// concurrently handled events.
type CorrelationStore interface {
	// PutPending stores a released-but-not-yet-deployed entry. A second
	// put under the same key overwrites the first (last-write-wins).
	PutPending(key model.ReleaseKey, release *model.PendingRelease)

	// TakePending removes and returns the pending release for the key.
	TakePending(key model.ReleaseKey) (*model.PendingRelease, bool)

	// PutDeploy stores a deploy correlated to a workflow run.
	PutDeploy(key model.DeployKey, deploy *model.InProgressDeploy)

	// TakeDeploy removes and returns the in-progress deploy for the key.
	TakeDeploy(key model.DeployKey) (*model.InProgressDeploy, bool)

	// PendingCount returns the number of unclaimed pending releases. There
	// is no eviction; the count makes leakage observable in logs.
	PendingCount() int
}
