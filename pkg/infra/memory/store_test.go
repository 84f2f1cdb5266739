package memory_test

import (
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/drover/pkg/domain/model"
	"github.com/m-mizutani/drover/pkg/infra/memory"
)

func TestStore_PendingTakenExactlyOnce(t *testing.T) {
	store := memory.New()
	key := model.ReleaseKey{Version: "v2.0.0", Installation: 5}

	store.PutPending(key, &model.PendingRelease{
		Owner:       "octocat",
		Repo:        "widget",
		IssueNumber: 12,
		Version:     model.SemanticVersion{Major: 2},
	})
	gt.Value(t, store.PendingCount()).Equal(1)

	release, ok := store.TakePending(key)
	gt.Value(t, ok).Equal(true)
	gt.Value(t, release.IssueNumber).Equal(12)
	gt.Value(t, store.PendingCount()).Equal(0)

	_, ok = store.TakePending(key)
	gt.Value(t, ok).Equal(false)
}

func TestStore_PendingKeyMismatch(t *testing.T) {
	store := memory.New()
	store.PutPending(model.ReleaseKey{Version: "v2.0.0", Installation: 5}, &model.PendingRelease{})

	// A different version or installation never consumes the entry.
	_, ok := store.TakePending(model.ReleaseKey{Version: "v2.0.1", Installation: 5})
	gt.Value(t, ok).Equal(false)
	_, ok = store.TakePending(model.ReleaseKey{Version: "v2.0.0", Installation: 6})
	gt.Value(t, ok).Equal(false)

	gt.Value(t, store.PendingCount()).Equal(1)
}

func TestStore_PendingLastWriteWins(t *testing.T) {
	store := memory.New()
	key := model.ReleaseKey{Version: "v2.0.0", Installation: 5}

	store.PutPending(key, &model.PendingRelease{IssueNumber: 1})
	store.PutPending(key, &model.PendingRelease{IssueNumber: 2})

	release, ok := store.TakePending(key)
	gt.Value(t, ok).Equal(true)
	gt.Value(t, release.IssueNumber).Equal(2)
}

func TestStore_DeployTakenExactlyOnce(t *testing.T) {
	store := memory.New()
	key := model.DeployKey{RunID: 777, Installation: 5}

	store.PutDeploy(key, &model.InProgressDeploy{
		Owner:   "octocat",
		Repo:    "widget",
		Version: model.SemanticVersion{Major: 1, Minor: 4},
	})

	deploy, ok := store.TakeDeploy(key)
	gt.Value(t, ok).Equal(true)
	gt.Value(t, deploy.Version.String()).Equal("v1.4.0")

	_, ok = store.TakeDeploy(key)
	gt.Value(t, ok).Equal(false)

	_, ok = store.TakeDeploy(model.DeployKey{RunID: 778, Installation: 5})
	gt.Value(t, ok).Equal(false)
}
