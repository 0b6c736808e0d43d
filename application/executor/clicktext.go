package executor

import (
	"fmt"
	"image"

	"desktop_automation/domain/entities"

	"github.com/sirupsen/logrus"
)

// clickText locates text by OCR and clicks the centroid of the most confident
// bounding box at or above the configured confidence.
func (e *Executor) clickText(action entities.Action) error {
	if action.Text == "" {
		return fmt.Errorf("no text specified")
	}

	img, err := e.probe.Capture()
	if err != nil {
		return fmt.Errorf("failed to take screenshot: %w", err)
	}

	threshold := action.ConfidenceOr()
	match, method, found := e.locateText(img, action, threshold)
	if !found {
		return fmt.Errorf("text '%s' not found at confidence %.2f", action.Text, threshold)
	}

	target := match.Center()
	e.logger.WithFields(logrus.Fields{
		"method":     method,
		"confidence": fmt.Sprintf("%.2f", match.Confidence),
		"bbox":       fmt.Sprintf("%v", match.Box),
	}).Infof("  [CLICK] Clicking text '%s' at (%d, %d)", action.Text, target.X, target.Y)

	return e.clickAt(target, e.timing.Click)
}

func (e *Executor) locateText(img image.Image, action entities.Action, threshold float64) (entities.TextMatch, string, bool) {
	if action.SmartCrop() {
		for _, region := range e.probe.SmartCrop(img, action.TextHint) {
			if action.Region != nil && !contains(*action.Region, region) {
				continue
			}
			r := region
			if best, ok := e.bestMatch(img, action.Text, &r, threshold); ok {
				return best, "smart_crop", true
			}
		}
	}

	best, ok := e.bestMatch(img, action.Text, action.Region, threshold)
	return best, "regular", ok
}

func (e *Executor) bestMatch(img image.Image, text string, region *entities.Region, threshold float64) (entities.TextMatch, bool) {
	matches, err := e.probe.FindText(img, text, region, threshold)
	if err != nil {
		e.logger.Warnf("  [ERROR] OCR search failed: %v", err)
		return entities.TextMatch{}, false
	}

	accepted := matches[:0:0]
	for _, m := range matches {
		if m.Confidence >= threshold {
			accepted = append(accepted, m)
		}
	}
	return entities.Best(accepted)
}

// contains reports whether inner lies entirely within outer.
func contains(outer, inner entities.Region) bool {
	return inner.X >= outer.X && inner.Y >= outer.Y &&
		inner.X+inner.W <= outer.X+outer.W &&
		inner.Y+inner.H <= outer.Y+outer.H
}
