package windowmatch

import "testing"

func TestSpotifyMatches(t *testing.T) {
	tests := []struct {
		title string
		want  bool
	}{
		{"Spotify Premium", true},
		{"spotify", true},
		{"Daft Punk - One More Time", true},
		{"main.go - Cursor", false},
		{"README.md - Visual Studio Code", false},
		{"a - b", false},
		{"", false},
		{"Calculator", false},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			if got := (Spotify{}).Matches(tt.title); got != tt.want {
				t.Errorf("Matches(%q) = %v, want %v", tt.title, got, tt.want)
			}
		})
	}
}

func TestSubstringMatches(t *testing.T) {
	m := Substring{Name: "Notepad"}
	if !m.Matches("Untitled - notepad") {
		t.Error("expected case-insensitive match")
	}
	if m.Matches("Calculator") {
		t.Error("unexpected match")
	}
	if (Substring{}).Matches("anything") {
		t.Error("empty name must not match")
	}
}

func TestRegistryFor(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.For("SPOTIFY").(Spotify); !ok {
		t.Fatalf("spotify should use the Spotify matcher, got %T", r.For("SPOTIFY"))
	}

	m, ok := r.For("notepad").(Substring)
	if !ok || m.Name != "notepad" {
		t.Fatalf("unregistered app should fall back to Substring, got %#v", r.For("notepad"))
	}

	r.Register("Notepad", Substring{Name: "Editor"})
	if !r.For("notepad").Matches("My Editor") {
		t.Error("registered matcher not used")
	}
}
