// Package keymap normalizes key names from instruction files into the names
// understood by the input backend.
package keymap

import "strings"

var modifiers = map[string]string{
	"command": "cmd",
	"cmd":     "cmd",
	"super":   "cmd",
	"win":     "cmd",
	"control": "ctrl",
	"ctrl":    "ctrl",
	"alt":     "alt",
	"option":  "alt",
	"shift":   "shift",
}

var aliases = map[string]string{
	"return":    "enter",
	"esc":       "escape",
	"del":       "delete",
	"page_up":   "pageup",
	"page_down": "pagedown",
	"pgup":      "pageup",
	"pgdn":      "pagedown",
	"spacebar":  "space",
}

// IsModifier reports whether key names a modifier.
func IsModifier(key string) bool {
	_, ok := modifiers[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

// Key - returns the backend name of a single key
func Key(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	if m, ok := modifiers[k]; ok {
		return m
	}
	if a, ok := aliases[k]; ok {
		return a
	}
	return k
}

// Combo - splits a key combination into the main key and its modifiers.
// The last key is the one tapped; every key before it is held.
func Combo(keys []string) (string, []string) {
	if len(keys) == 0 {
		return "", nil
	}
	mods := make([]string, 0, len(keys)-1)
	for _, k := range keys[:len(keys)-1] {
		mods = append(mods, Key(k))
	}
	return Key(keys[len(keys)-1]), mods
}
