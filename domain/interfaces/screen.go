package interfaces

import (
	"image"

	"desktop_automation/domain/entities"
)

// ScreenProbe wraps screenshot capture, template matching, OCR and screen diffing.
// Implementations never panic; failures are reported through errors or false.
type ScreenProbe interface {
	// Capture takes a screenshot of the primary display
	Capture() (image.Image, error)

	// FindTemplate locates a template image inside img (optionally within region)
	// and returns the center of the best match at or above threshold
	FindTemplate(img image.Image, templatePath string, threshold float64, region *entities.Region) (entities.Point, bool, error)

	// FindText runs OCR over img and returns every bounding box containing text
	// whose confidence is at or above threshold, in screen coordinates
	FindText(img image.Image, text string, region *entities.Region, threshold float64) ([]entities.TextMatch, error)

	// RecognizeText returns the OCR text of img (optionally cropped to region),
	// keeping only words recognized with at least minConfidence
	RecognizeText(img image.Image, region *entities.Region, minConfidence float64) (string, error)

	// SmartCrop proposes candidate text regions ordered by hint
	SmartCrop(img image.Image, hint entities.TextHint) []entities.Region

	// Differs reports whether two screenshots differ by more than threshold
	Differs(a, b image.Image, threshold float64) bool

	// SaveDiagnostic writes img under the screenshot directory and returns its path
	SaveDiagnostic(img image.Image, name string) (string, error)
}
