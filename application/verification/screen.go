package verification

import (
	"image"
	"strings"
	"time"
	"unicode/utf8"

	"desktop_automation/domain/entities"
)

// ChangeThreshold is the mean pixel difference above which the screen counts as changed.
const ChangeThreshold = 10.0

// ScreenStable - waits until two consecutive captures differ by less than
// StabilityThreshold. Returns false once timeout elapses; never blocks longer
// than timeout plus one capture.
func (e *Engine) ScreenStable(timeout, interval time.Duration) bool {
	deadline := time.Now().Add(timeout)

	previous, err := e.probe.Capture()
	if err != nil {
		e.logger.Debugf("  [STABILITY] capture failed: %v", err)
		previous = nil
	}

	for {
		wait := interval
		if remaining := time.Until(deadline); remaining < wait {
			wait = remaining
		}
		if wait > 0 {
			time.Sleep(wait)
		}

		current, err := e.probe.Capture()
		if err != nil {
			e.logger.Debugf("  [STABILITY] capture failed: %v", err)
			current = nil
		}

		if previous != nil && current != nil && !e.probe.Differs(previous, current, StabilityThreshold) {
			return true
		}
		previous = current

		if !time.Now().Before(deadline) {
			return false
		}
	}
}

// ScreenChanged - compares a stored screenshot with the live screen.
// A missing screenshot counts as changed.
func (e *Engine) ScreenChanged(before image.Image) bool {
	if before == nil {
		return true
	}
	after, err := e.probe.Capture()
	if err != nil {
		e.logger.Warnf("  [WARN] Failed to capture screen for change detection: %v", err)
		return true
	}
	return e.probe.Differs(before, after, ChangeThreshold)
}

// OCRTextPresent - captures the screen, runs OCR (optionally inside region),
// and checks case-insensitive containment of text in the recognized text.
func (e *Engine) OCRTextPresent(text string, region *entities.Region, confidence float64) bool {
	expected := normalizeText(text)
	if expected == "" {
		return false
	}

	img, err := e.probe.Capture()
	if err != nil {
		e.logger.Warnf("  [FAIL] Failed to take screenshot for OCR: %v", err)
		return false
	}

	recognized, err := e.probe.RecognizeText(img, region, confidence)
	if err != nil {
		e.logger.Warnf("  [FAIL] OCR failed: %v", err)
		return false
	}

	found := strings.Contains(normalizeText(recognized), expected)
	if found {
		e.logger.Infof("  [OK] OCR found expected text: '%s'", expected)
	} else {
		e.logger.WithField("ocr", truncate(normalizeText(recognized), 100)).
			Warnf("  [FAIL] OCR did not find expected text: '%s'", expected)
	}
	return found
}

// FindTextMatches - returns threshold-filtered OCR bounding boxes for text
func (e *Engine) FindTextMatches(text string, region *entities.Region, confidence float64) []entities.TextMatch {
	img, err := e.probe.Capture()
	if err != nil {
		e.logger.Warnf("  [FAIL] Failed to take screenshot for OCR: %v", err)
		return nil
	}
	return e.findTextIn(img, text, region, confidence)
}

func (e *Engine) findTextIn(img image.Image, text string, region *entities.Region, confidence float64) []entities.TextMatch {
	matches, err := e.probe.FindText(img, text, region, confidence)
	if err != nil {
		e.logger.Warnf("  [ERROR] OCR with bounding boxes failed: %v", err)
		return nil
	}
	e.logger.Debugf("  [OCR] Found %d match(es) for '%s'", len(matches), text)
	return matches
}

// TextPresent - reports whether at least one bounding box matches text at confidence
func (e *Engine) TextPresent(text string, region *entities.Region, confidence float64) bool {
	return len(e.FindTextMatches(text, region, confidence)) > 0
}

// WaitForText - polls for text until it appears or timeout elapses
func (e *Engine) WaitForText(text string, region *entities.Region, confidence float64, timeout, interval time.Duration) bool {
	start := time.Now()
	for {
		if e.TextPresent(text, region, confidence) {
			e.logger.Infof("  Text '%s' found after %.1f seconds", text, time.Since(start).Seconds())
			return true
		}
		if !sleepUntil(start.Add(timeout), interval) {
			break
		}
	}
	e.logger.Warnf("  Text '%s' not found within %s", text, timeout)
	return false
}

// TemplatePresent - reports whether a template matches the live screen
func (e *Engine) TemplatePresent(templatePath string, threshold float64, region *entities.Region) bool {
	img, err := e.probe.Capture()
	if err != nil {
		e.logger.Warnf("  [FAIL] Failed to take screenshot: %v", err)
		return false
	}
	_, found, err := e.probe.FindTemplate(img, templatePath, threshold, region)
	if err != nil {
		e.logger.Warnf("  [FAIL] Template match failed for %s: %v", templatePath, err)
		return false
	}
	return found
}

// WaitForTemplate - polls for a template until it appears or timeout elapses
func (e *Engine) WaitForTemplate(templatePath string, timeout time.Duration, threshold float64, interval time.Duration) (entities.Point, bool) {
	start := time.Now()
	for {
		img, err := e.probe.Capture()
		if err == nil {
			point, found, err := e.probe.FindTemplate(img, templatePath, threshold, nil)
			if err != nil {
				e.logger.Warnf("  [FAIL] Template match failed for %s: %v", templatePath, err)
				return entities.Point{}, false
			}
			if found {
				e.logger.Infof("  Element found after %.1f seconds", time.Since(start).Seconds())
				return point, true
			}
		}
		if !sleepUntil(start.Add(timeout), interval) {
			break
		}
	}
	e.logger.Warnf("  Element not found within %s", timeout)
	return entities.Point{}, false
}

// sleepUntil sleeps for interval, clipped to deadline. It returns false when
// the deadline has already passed.
func sleepUntil(deadline time.Time, interval time.Duration) bool {
	remaining := time.Until(deadline)
	if remaining <= 0 {
		return false
	}
	if interval > remaining {
		interval = remaining
	}
	time.Sleep(interval)
	return true
}

func normalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// truncate keeps at most n runes of s.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}
