package usecase

import (
	"context"
	"runtime/debug"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/drover/pkg/domain/interfaces"
	"github.com/m-mizutani/drover/pkg/domain/model"
)

// AmendedCleanup removes releases and tags orphaned when a forced push
// rewrites the default branch's history. The whole procedure is best-effort:
// no failure in here may ever block the release that follows the push.
type AmendedCleanup struct {
	gateway interfaces.RepositoryGateway
}

// NewAmendedCleanup creates a new cleanup instance
func NewAmendedCleanup(gateway interfaces.RepositoryGateway) *AmendedCleanup {
	return &AmendedCleanup{gateway: gateway}
}

// Run inspects the commit the forced push rewrote away and deletes releases
// and tags that pointed at it, if it is no longer reachable from any branch
// head. All errors are logged and swallowed.
func (uc *AmendedCleanup) Run(ctx context.Context, event *model.PushEvent) {
	logger := ctxlog.From(ctx)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic during amended-commit cleanup",
				"recover", r,
				"stack", string(debug.Stack()),
			)
		}
	}()

	if !event.Forced || !event.HasBefore() {
		return
	}

	tags, releases, err := uc.orphanCandidates(ctx, event)
	if err != nil {
		logger.Error("Failed to collect amended-commit cleanup candidates", "error", err, "before", event.Before)
		return
	}
	if len(tags) == 0 && len(releases) == 0 {
		return
	}

	branches, err := uc.gateway.BranchesWhereHead(ctx, event.Installation, event.Owner, event.Repo, event.Before)
	if err != nil {
		logger.Error("Failed to check commit reachability", "error", err, "before", event.Before)
		return
	}
	if len(branches) > 0 {
		// The old history still exists on some branch; nothing was orphaned.
		return
	}

	logger.Info("Removing releases and tags orphaned by forced push",
		"before", event.Before,
		"tags", len(tags),
		"releases", len(releases),
		"repo", event.Owner+"/"+event.Repo,
	)

	// Releases reference tags, so they go first. Each deletion is attempted
	// independently.
	for _, release := range releases {
		if err := uc.gateway.DeleteRelease(ctx, event.Installation, event.Owner, event.Repo, release.ID); err != nil {
			logger.Warn("Failed to delete orphaned release", "error", err, "release_id", release.ID, "tag", release.TagName)
		}
	}
	for _, tag := range tags {
		if err := uc.gateway.DeleteTag(ctx, event.Installation, event.Owner, event.Repo, tag.Name); err != nil {
			logger.Warn("Failed to delete orphaned tag", "error", err, "tag", tag.Name)
		}
	}
}

// orphanCandidates returns the tags pointing at the rewritten commit and the
// releases whose tag matches one of them.
func (uc *AmendedCleanup) orphanCandidates(ctx context.Context, event *model.PushEvent) ([]model.Tag, []model.Release, error) {
	allTags, err := uc.gateway.ListTags(ctx, event.Installation, event.Owner, event.Repo)
	if err != nil {
		return nil, nil, err
	}

	var tags []model.Tag
	tagNames := make(map[string]bool)
	for _, tag := range allTags {
		if tag.SHA == event.Before {
			tags = append(tags, tag)
			tagNames[tag.Name] = true
		}
	}
	if len(tags) == 0 {
		return nil, nil, nil
	}

	allReleases, err := uc.gateway.ListReleases(ctx, event.Installation, event.Owner, event.Repo)
	if err != nil {
		return nil, nil, err
	}

	var releases []model.Release
	for _, release := range allReleases {
		if tagNames[release.TagName] {
			releases = append(releases, release)
		}
	}

	return tags, releases, nil
}
