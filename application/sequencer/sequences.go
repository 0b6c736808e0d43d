package sequencer

import (
	"errors"
	"fmt"
	"sort"
)

// ErrSequenceNotFound is returned for a sequence name nobody defines
var ErrSequenceNotFound = errors.New("sequence not found")

var builtinSequences = map[string][]string{
	"spotify_music_session": {
		"spotify_search_artist_name",
		"spotify_play",
		"spotify_next_track",
		"spotify_search_artist_name",
		"spotify_play",
		"spotify_pause",
		"spotify_close",
	},
	"spotify_quick_play": {
		"spotify_play",
		"spotify_next_track",
		"spotify_pause",
	},
	"spotify_search_and_play": {
		"spotify_search_artist_name",
		"spotify_play",
		"spotify_pause",
		"spotify_close",
	},
	"spotify_volume_control": {
		"spotify_volume_up",
		"spotify_volume_down",
		"spotify_mute",
	},
	"spotify_filter_browse": {
		"spotify_filter_artists",
		"spotify_filter_albums",
		"spotify_filter_songs",
		"spotify_filter_all",
	},
	"spotify_music_journey": {
		"spotify_search_metallica",
		"spotify_play",
		"spotify_next_track",
		"spotify_search_iron_maiden",
		"spotify_play",
		"spotify_search_ozzy_osbourne",
		"spotify_play",
		"spotify_pause",
		"spotify_close",
	},
	"spotify_simple_test": {
		"spotify_search_metallica",
		"spotify_play",
		"spotify_pause",
	},
}

// Sequences merges the built-in sequences with overrides; an override
// replaces the built-in of the same name.
func Sequences(overrides map[string][]string) map[string][]string {
	merged := make(map[string][]string, len(builtinSequences)+len(overrides))
	for name, ids := range builtinSequences {
		merged[name] = append([]string(nil), ids...)
	}
	for name, ids := range overrides {
		merged[name] = append([]string(nil), ids...)
	}
	return merged
}

// ResolveSequence returns the objective ids of a named sequence.
func ResolveSequence(name string, overrides map[string][]string) ([]string, error) {
	ids, ok := Sequences(overrides)[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s (available: %v)", ErrSequenceNotFound, name, SequenceNames(overrides))
	}
	return ids, nil
}

// SequenceNames lists every known sequence name, sorted.
func SequenceNames(overrides map[string][]string) []string {
	all := Sequences(overrides)
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
