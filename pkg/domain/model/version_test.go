package model_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/drover/pkg/domain/model"
)

func TestParseBumpKind(t *testing.T) {
	tests := []struct {
		name string
		text string
		want model.BumpKind
	}{
		{
			name: "major marker",
			text: "please $major",
			want: model.BumpMajor,
		},
		{
			name: "minor marker",
			text: "release $minor when ready",
			want: model.BumpMinor,
		},
		{
			name: "patch marker",
			text: "$patch",
			want: model.BumpPatch,
		},
		{
			name: "case insensitive",
			text: "PLEASE $MINOR",
			want: model.BumpMinor,
		},
		{
			name: "declaration order wins over text order",
			text: "$patch and also $major",
			want: model.BumpMajor,
		},
		{
			name: "no marker",
			text: "just a regular comment",
			want: model.BumpNone,
		},
		{
			name: "bare word without dollar sign",
			text: "bump the major version",
			want: model.BumpNone,
		},
		{
			name: "empty text",
			text: "",
			want: model.BumpNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gt.Value(t, model.ParseBumpKind(tt.text)).Equal(tt.want)
		})
	}
}

func TestSemanticVersionBump(t *testing.T) {
	base := model.SemanticVersion{Major: 2, Minor: 5, Patch: 7}

	gt.Value(t, base.Bump(model.BumpMajor)).Equal(model.SemanticVersion{Major: 3})
	gt.Value(t, base.Bump(model.BumpMinor)).Equal(model.SemanticVersion{Major: 2, Minor: 6})
	gt.Value(t, base.Bump(model.BumpPatch)).Equal(model.SemanticVersion{Major: 2, Minor: 5, Patch: 8})
}

func TestSemanticVersionString(t *testing.T) {
	version := model.SemanticVersion{Major: 1, Minor: 4, Patch: 0}
	gt.Value(t, version.String()).Equal("v1.4.0")
}

func TestNextVersion(t *testing.T) {
	tags := []model.Tag{
		{Name: "nightly-build"},
		{Name: "v1.3.2"},
		{Name: "v0.9.0"},
	}

	// The first matching tag wins, in the order the platform returned them.
	next, err := model.NextVersion(tags, model.BumpMinor)
	gt.NoError(t, err)
	gt.Value(t, next.String()).Equal("v1.4.0")

	next, err = model.NextVersion(tags, model.BumpMajor)
	gt.NoError(t, err)
	gt.Value(t, next.String()).Equal("v2.0.0")

	next, err = model.NextVersion(tags, model.BumpPatch)
	gt.NoError(t, err)
	gt.Value(t, next.String()).Equal("v1.3.3")
}

func TestNextVersion_NoMatchingTag(t *testing.T) {
	tags := []model.Tag{
		{Name: "release-candidate"},
		{Name: "1.2"},
	}

	_, err := model.NextVersion(tags, model.BumpPatch)
	gt.Value(t, errors.Is(err, model.ErrNoVersionTag)).Equal(true)
}

func TestNextVersion_EmptyTags(t *testing.T) {
	_, err := model.NextVersion(nil, model.BumpPatch)
	gt.Value(t, errors.Is(err, model.ErrNoVersionTag)).Equal(true)
}
