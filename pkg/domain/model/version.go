package model

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// BumpKind is the unit of semantic-version increment requested via a text
// marker such as "$minor". The zero value means no bump was requested.
type BumpKind int

const (
	BumpNone BumpKind = iota
	BumpMajor
	BumpMinor
	BumpPatch
)

func (k BumpKind) String() string {
	switch k {
	case BumpMajor:
		return "major"
	case BumpMinor:
		return "minor"
	case BumpPatch:
		return "patch"
	default:
		return "none"
	}
}

// ParseBumpKind scans free text (a comment body or commit message) for a
// literal $major, $minor or $patch marker. Matching is case-insensitive.
// When several markers appear, the first kind in declaration order wins.
func ParseBumpKind(text string) BumpKind {
	lowered := strings.ToLower(text)
	for _, kind := range []BumpKind{BumpMajor, BumpMinor, BumpPatch} {
		if strings.Contains(lowered, "$"+kind.String()) {
			return kind
		}
	}
	return BumpNone
}

// SemanticVersion is a parsed vMAJOR.MINOR.PATCH release tag.
type SemanticVersion struct {
	Major int
	Minor int
	Patch int
}

func (v SemanticVersion) String() string {
	return fmt.Sprintf("v%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Bump returns the next version for the requested kind. A major bump resets
// minor and patch, a minor bump resets patch.
func (v SemanticVersion) Bump(kind BumpKind) SemanticVersion {
	switch kind {
	case BumpMajor:
		return SemanticVersion{Major: v.Major + 1}
	case BumpMinor:
		return SemanticVersion{Major: v.Major, Minor: v.Minor + 1}
	case BumpPatch:
		return SemanticVersion{Major: v.Major, Minor: v.Minor, Patch: v.Patch + 1}
	default:
		return v
	}
}

var versionPattern = regexp.MustCompile(`v([0-9]+)\.([0-9]+)\.([0-9]+)`)

// ErrNoVersionTag is returned when no tag matches the vMAJOR.MINOR.PATCH
// pattern. The caller decides whether to abort the release flow.
var ErrNoVersionTag = goerr.New("no tag matches version pattern")

// LatestVersion returns the version parsed from the first matching tag,
// scanning tags in the order the platform returned them (not sorted).
func LatestVersion(tags []Tag) (SemanticVersion, error) {
	for _, tag := range tags {
		m := versionPattern.FindStringSubmatch(tag.Name)
		if m == nil {
			continue
		}

		major, _ := strconv.Atoi(m[1])
		minor, _ := strconv.Atoi(m[2])
		patch, _ := strconv.Atoi(m[3])
		return SemanticVersion{Major: major, Minor: minor, Patch: patch}, nil
	}

	return SemanticVersion{}, goerr.Wrap(ErrNoVersionTag, "failed to resolve current version", goerr.V("tag_count", len(tags)))
}

// NextVersion resolves the current version from tags and applies the
// requested bump.
func NextVersion(tags []Tag, kind BumpKind) (SemanticVersion, error) {
	current, err := LatestVersion(tags)
	if err != nil {
		return SemanticVersion{}, err
	}

	return current.Bump(kind), nil
}
