package aggregator

import (
	"net/url"
	"path"
	"strings"
)

// Song is one normalized search result from the aggregator API.
// Immutable once fetched.
type Song struct {
	// ID is the opaque upstream track identifier.
	ID string

	// ResolveID, when non-empty, is used instead of ID for direct-link
	// resolution (some deployments return a separate url_id).
	ResolveID string

	Title    string
	Artist   string
	Album    string
	Source   string

	// DurationSec is 0 when the upstream did not report a duration.
	DurationSec int
}

// LinkID returns the identifier to use for direct-link resolution.
func (s Song) LinkID() string {
	if s.ResolveID != "" {
		return s.ResolveID
	}
	return s.ID
}

// ResolvedAudio is the transient result of direct-link resolution.
type ResolvedAudio struct {
	URL     string
	Bitrate int

	// FragileFormat is true when the URL points at a container known to
	// fail on some delivery paths (Windows-media containers).
	FragileFormat bool
}

// qualityLadder is the fixed descending bitrate ladder tried during
// resolution.
var qualityLadder = []int{999, 740, 320, 192, 128}

// Ladder returns the quality ladder truncated to start at the requested
// bitrate. A request that matches no tier starts at the first tier at or
// below it; anything below the lowest tier yields just the lowest tier.
func Ladder(requested int) []int {
	for i, br := range qualityLadder {
		if requested >= br {
			return qualityLadder[i:]
		}
	}
	return qualityLadder[len(qualityLadder)-1:]
}

var fragileExtensions = map[string]bool{
	".wma": true,
	".wmv": true,
	".asf": true,
}

// isFragileFormat reports whether the URL's file extension signals a
// container that breaks on direct-link playback for some clients.
func isFragileFormat(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	ext := strings.ToLower(path.Ext(parsed.Path))
	return fragileExtensions[ext]
}
