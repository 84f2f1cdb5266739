package model

// Tag is a repository tag as returned by the tag listing API.
type Tag struct {
	Name string
	SHA  string
}

// Release is a published or draft release.
type Release struct {
	ID      int64
	TagName string
	Draft   bool
}
