package aggregator

import (
	"encoding/json"
	"strings"
)

// Aggregator deployments disagree on the envelope around the result array.
// Each matcher is a pure function that either yields the raw item list or
// reports no-match; matchers are tried in a fixed priority order and the
// first hit wins.
type shapeMatcher func(raw json.RawMessage) ([]json.RawMessage, bool)

var shapeMatchers = []shapeMatcher{
	matchBareArray,
	matchEnvelope("data"),
	matchEnvelope("result"),
	matchNested("result", "list"),
	matchNested("result", "songs"),
}

func matchBareArray(raw json.RawMessage) ([]json.RawMessage, bool) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	return items, true
}

func matchEnvelope(field string) shapeMatcher {
	return func(raw json.RawMessage) ([]json.RawMessage, bool) {
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return nil, false
		}
		inner, ok := envelope[field]
		if !ok {
			return nil, false
		}
		return matchBareArray(inner)
	}
}

func matchNested(outer, inner string) shapeMatcher {
	return func(raw json.RawMessage) ([]json.RawMessage, bool) {
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return nil, false
		}
		mid, ok := envelope[outer]
		if !ok {
			return nil, false
		}
		return matchEnvelope(inner)(mid)
	}
}

// extractItems applies the shape matchers in priority order.
func extractItems(raw json.RawMessage) ([]json.RawMessage, bool) {
	for _, match := range shapeMatchers {
		if items, ok := match(raw); ok {
			return items, true
		}
	}
	return nil, false
}

// Alternate keys under which deployments report each field.
var (
	idKeys      = []string{"id", "songid", "song_id", "rid"}
	resolveKeys = []string{"url_id", "urlId", "url_id_str"}
	titleKeys   = []string{"name", "title", "songname"}
	artistKeys  = []string{"artist", "author", "singer", "artists"}
	albumKeys   = []string{"album", "albumname"}
	sourceKeys  = []string{"source", "platform"}
	lengthKeys  = []string{"duration", "interval", "length"}
)

// Durations above this threshold are assumed to be milliseconds.
const millisecondThreshold = 10000

// normalizeItems maps raw items defensively into Songs. Items missing the
// identifier or the title are dropped.
func normalizeItems(items []json.RawMessage, defaultSource string) []Song {
	songs := make([]Song, 0, len(items))
	for _, item := range items {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(item, &fields); err != nil {
			continue
		}

		song := Song{
			ID:        firstScalar(fields, idKeys),
			ResolveID: firstScalar(fields, resolveKeys),
			Title:     firstScalar(fields, titleKeys),
			Artist:    firstJoined(fields, artistKeys),
			Album:     firstJoined(fields, albumKeys),
			Source:    firstScalar(fields, sourceKeys),
		}
		if song.ID == "" || song.Title == "" {
			continue
		}
		if song.Source == "" {
			song.Source = defaultSource
		}

		if seconds, ok := firstDuration(fields, lengthKeys); ok {
			song.DurationSec = seconds
		}

		songs = append(songs, song)
	}
	return songs
}

// firstScalar returns the first present key decoded as a scalar string.
// Numeric identifiers are rendered without an exponent or trailing zeros.
func firstScalar(fields map[string]json.RawMessage, keys []string) string {
	for _, key := range keys {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		if s, ok := decodeScalar(raw); ok && s != "" {
			return s
		}
	}
	return ""
}

// firstJoined handles fields that may be a scalar or a list of scalars
// (or objects carrying a name field); list entries are joined with "/".
func firstJoined(fields map[string]json.RawMessage, keys []string) string {
	for _, key := range keys {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		if s, ok := decodeScalarOrList(raw); ok && s != "" {
			return s
		}
	}
	return ""
}

func firstDuration(fields map[string]json.RawMessage, keys []string) (int, bool) {
	for _, key := range keys {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var value float64
		if err := json.Unmarshal(raw, &value); err != nil {
			continue
		}
		if value <= 0 {
			continue
		}
		if value > millisecondThreshold {
			return int(value) / 1000, true
		}
		return int(value), true
	}
	return 0, false
}

func decodeScalar(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	return "", false
}

func decodeScalarOrList(raw json.RawMessage) (string, bool) {
	if s, ok := decodeScalar(raw); ok {
		return s, true
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return "", false
	}
	parts := make([]string, 0, len(list))
	for _, elem := range list {
		if s, ok := decodeScalar(elem); ok && s != "" {
			parts = append(parts, s)
			continue
		}
		// Objects from richer deployments carry a name field.
		var obj struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(elem, &obj); err == nil && obj.Name != "" {
			parts = append(parts, obj.Name)
		}
	}
	return strings.Join(parts, "/"), true
}
