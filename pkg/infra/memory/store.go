package memory

import (
	"sync"

	"github.com/m-mizutani/drover/pkg/domain/interfaces"
	"github.com/m-mizutani/drover/pkg/domain/model"
)

// Store is the in-memory correlation store. State is intentionally
// ephemeral, per-process; nothing survives a restart. Unclaimed pending
// releases are never evicted.
type Store struct {
	mu      sync.Mutex
	pending map[model.ReleaseKey]*model.PendingRelease
	deploys map[model.DeployKey]*model.InProgressDeploy
}

// New creates an empty correlation store
func New() *Store {
	return &Store{
		pending: make(map[model.ReleaseKey]*model.PendingRelease),
		deploys: make(map[model.DeployKey]*model.InProgressDeploy),
	}
}

var _ interfaces.CorrelationStore = (*Store)(nil)

// PutPending stores a pending release. Last write wins on key collision.
func (s *Store) PutPending(key model.ReleaseKey, release *model.PendingRelease) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[key] = release
}

// TakePending removes and returns the pending release for the key.
func (s *Store) TakePending(key model.ReleaseKey) (*model.PendingRelease, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	release, ok := s.pending[key]
	if ok {
		delete(s.pending, key)
	}
	return release, ok
}

// PutDeploy stores an in-progress deploy.
func (s *Store) PutDeploy(key model.DeployKey, deploy *model.InProgressDeploy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deploys[key] = deploy
}

// TakeDeploy removes and returns the in-progress deploy for the key.
func (s *Store) TakeDeploy(key model.DeployKey) (*model.InProgressDeploy, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deploy, ok := s.deploys[key]
	if ok {
		delete(s.deploys, key)
	}
	return deploy, ok
}

// PendingCount returns the number of unclaimed pending releases.
func (s *Store) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
