package entities

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Point is a screen coordinate
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Region is a screen rectangle. In files it is written as [x, y, width, height].
type Region struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Center returns the centroid of the region.
func (r Region) Center() Point {
	return Point{X: r.X + r.W/2, Y: r.Y + r.H/2}
}

// Empty reports whether the region has no area.
func (r Region) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

func (r Region) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]int{r.X, r.Y, r.W, r.H})
}

func (r *Region) UnmarshalJSON(data []byte) error {
	var quad []int
	if err := json.Unmarshal(data, &quad); err == nil {
		return r.fromSlice(quad)
	}

	type plain Region
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("region must be [x, y, w, h] or an object: %w", err)
	}
	*r = Region(p)
	return nil
}

func (r *Region) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		var quad []int
		if err := node.Decode(&quad); err != nil {
			return err
		}
		return r.fromSlice(quad)
	}

	type plain Region
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*r = Region(p)
	return nil
}

func (r *Region) fromSlice(quad []int) error {
	if len(quad) != 4 {
		return fmt.Errorf("region must have 4 values, got %d", len(quad))
	}
	*r = Region{X: quad[0], Y: quad[1], W: quad[2], H: quad[3]}
	return nil
}

// TextMatch is one OCR bounding box that matched the searched text
type TextMatch struct {
	Text       string  `json:"text"`
	Box        Region  `json:"bbox"`
	Confidence float64 `json:"confidence"`
}

// Center returns the click target of the match.
func (m TextMatch) Center() Point {
	return m.Box.Center()
}

// Best returns the highest-confidence match.
func Best(matches []TextMatch) (TextMatch, bool) {
	if len(matches) == 0 {
		return TextMatch{}, false
	}
	best := matches[0]
	for _, m := range matches[1:] {
		if m.Confidence > best.Confidence {
			best = m
		}
	}
	return best, true
}
