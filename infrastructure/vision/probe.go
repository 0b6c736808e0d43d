// Package vision implements screen probing on captured images: template
// matching, OCR, text region detection and screen diffing.
package vision

import (
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sync"

	"desktop_automation/domain/entities"
	"desktop_automation/domain/interfaces"

	"github.com/sirupsen/logrus"
)

// Capturer grabs the current screen contents
type Capturer interface {
	Capture() (image.Image, error)
}

type Probe struct {
	capturer      Capturer
	recognizer    Recognizer
	screenshotDir string
	logger        *logrus.Logger

	mu        sync.Mutex
	templates map[string]*image.Gray
}

var _ interfaces.ScreenProbe = (*Probe)(nil)

// NewProbe - creates new screen probe
func NewProbe(capturer Capturer, recognizer Recognizer, screenshotDir string, logger *logrus.Logger) *Probe {
	return &Probe{
		capturer:      capturer,
		recognizer:    recognizer,
		screenshotDir: screenshotDir,
		logger:        logger,
		templates:     make(map[string]*image.Gray),
	}
}

// Capture - takes a screenshot of the primary display
func (p *Probe) Capture() (image.Image, error) {
	img, err := p.capturer.Capture()
	if err != nil {
		return nil, fmt.Errorf("failed to capture screen: %w", err)
	}
	return img, nil
}

// FindTemplate - locates templatePath inside img and returns the match center
func (p *Probe) FindTemplate(img image.Image, templatePath string, threshold float64, region *entities.Region) (entities.Point, bool, error) {
	needle, err := p.template(templatePath)
	if err != nil {
		return entities.Point{}, false, err
	}

	haystack, origin := p.scope(img, region)
	m, ok := MatchTemplate(haystack, needle)
	if !ok {
		p.logger.Debugf("  [MATCH] Template %s larger than search area", templatePath)
		return entities.Point{}, false, nil
	}

	p.logger.Debugf("  [MATCH] %s best score %.3f (threshold %.2f)", filepath.Base(templatePath), m.Score, threshold)
	if m.Score < threshold {
		return entities.Point{}, false, nil
	}

	c := m.Center()
	return entities.Point{X: c.X + origin.X, Y: c.Y + origin.Y}, true, nil
}

// FindText - returns OCR matches of text at or above threshold in screen coordinates
func (p *Probe) FindText(img image.Image, text string, region *entities.Region, threshold float64) ([]entities.TextMatch, error) {
	scoped, origin := p.scope(img, region)
	words, err := p.recognizer.Words(scoped)
	if err != nil {
		return nil, err
	}

	matches := MatchPhrase(words, text, threshold)
	for i := range matches {
		matches[i].Box.X += origin.X
		matches[i].Box.Y += origin.Y
	}
	return matches, nil
}

// RecognizeText - returns the OCR text of img keeping words with at least minConfidence
func (p *Probe) RecognizeText(img image.Image, region *entities.Region, minConfidence float64) (string, error) {
	scoped, _ := p.scope(img, region)
	words, err := p.recognizer.Words(scoped)
	if err != nil {
		return "", err
	}
	return JoinLines(words, minConfidence), nil
}

// SmartCrop - proposes candidate text regions
func (p *Probe) SmartCrop(img image.Image, hint entities.TextHint) []entities.Region {
	regions := TextRegions(Gray(img), hint)
	p.logger.Debugf("  [CROP] %d candidate text region(s)", len(regions))
	return regions
}

// Differs - reports whether two screenshots differ by more than threshold
func (p *Probe) Differs(a, b image.Image, threshold float64) bool {
	return Differs(a, b, threshold)
}

// SaveDiagnostic - writes img as PNG under the screenshot directory
func (p *Probe) SaveDiagnostic(img image.Image, name string) (string, error) {
	if err := os.MkdirAll(p.screenshotDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create screenshot directory: %w", err)
	}
	if filepath.Ext(name) == "" {
		name += ".png"
	}
	path := filepath.Join(p.screenshotDir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create screenshot file: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return "", fmt.Errorf("failed to encode screenshot: %w", err)
	}
	p.logger.Infof("  [DEBUG] Screenshot saved: %s", path)
	return path, nil
}

// scope crops img to region and returns the grayscale result with its origin.
func (p *Probe) scope(img image.Image, region *entities.Region) (*image.Gray, image.Point) {
	g := Gray(img)
	if region == nil || region.Empty() {
		return g, image.Point{}
	}
	r := image.Rect(region.X, region.Y, region.X+region.W, region.Y+region.H).Intersect(g.Rect)
	return crop(g, r), r.Min
}

func (p *Probe) template(path string) (*image.Gray, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if g, ok := p.templates[path]; ok {
		return g, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open template %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode template %s: %w", path, err)
	}

	g := Gray(img)
	p.templates[path] = g
	return g, nil
}
