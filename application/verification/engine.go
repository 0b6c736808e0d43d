// Package verification checks action prerequisites and completion conditions
// against the live screen and window state.
package verification

import (
	"strings"
	"time"

	"desktop_automation/domain/entities"
	"desktop_automation/domain/interfaces"

	"github.com/sirupsen/logrus"
)

// StabilityThreshold is the mean pixel difference below which two consecutive
// captures count as the same screen.
const StabilityThreshold = 5.0

// Default waits used by prerequisite kinds and template polling.
const (
	PageLoadedTimeout     = 3 * time.Second
	SearchCompleteTimeout = 2 * time.Second
	StabilityInterval     = 500 * time.Millisecond
	TemplatePollInterval  = 500 * time.Millisecond
)

type Engine struct {
	probe   interfaces.ScreenProbe
	windows interfaces.WindowController
	logger  *logrus.Logger
}

// NewEngine - creates new verification engine
func NewEngine(probe interfaces.ScreenProbe, windows interfaces.WindowController, logger *logrus.Logger) *Engine {
	return &Engine{
		probe:   probe,
		windows: windows,
		logger:  logger,
	}
}

// VerifyPrerequisites - checks that all prerequisite kinds hold
func (e *Engine) VerifyPrerequisites(kinds []entities.PrerequisiteKind, ectx *entities.ExecutionContext) bool {
	if len(kinds) == 0 {
		return true
	}

	e.logger.Infof("  Verifying %d prerequisite(s)...", len(kinds))
	for _, kind := range kinds {
		if !e.VerifyPrerequisite(kind, ectx) {
			return false
		}
	}
	return true
}

// VerifyPrerequisite - checks a single prerequisite kind
func (e *Engine) VerifyPrerequisite(kind entities.PrerequisiteKind, ectx *entities.ExecutionContext) (result bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Errorf("  [FAIL] Prerequisite '%s' panicked: %v", kind, r)
			result = false
		}
	}()

	switch kind {
	case entities.PrereqAppMaximized:
		handle, ok := e.windows.Find(ectx.AppName)
		result = ok && e.windows.IsMaximized(handle)

	case entities.PrereqPageLoaded:
		result = e.ScreenStable(PageLoadedTimeout, StabilityInterval)

	case entities.PrereqSearchComplete:
		result = e.ScreenStable(SearchCompleteTimeout, StabilityInterval)

	case entities.PrereqCorrectPage:
		result = true
		if ectx.ExpectedPage != nil {
			result = e.verifyCorrectPage(*ectx.ExpectedPage, ectx)
		}

	case entities.PrereqElementPresent:
		result = true
		if ectx.PrerequisiteTemplate != "" {
			result = e.TemplatePresent(ectx.PrerequisiteTemplate, entities.DefaultConfidence, nil)
		}

	default:
		e.logger.Warnf("  [WARN] Unknown prerequisite: %s", kind)
		return true
	}

	if result {
		e.logger.Infof("  [OK] Prerequisite '%s': Met", kind)
	} else {
		e.logger.Warnf("  [FAIL] Prerequisite '%s': Not met", kind)
	}
	return result
}

func (e *Engine) verifyCorrectPage(page entities.PageExpectation, ectx *entities.ExecutionContext) bool {
	if page.Title != "" {
		handle, ok := e.windows.Find(ectx.AppName)
		if ok {
			found := strings.Contains(strings.ToLower(handle.Title), strings.ToLower(page.Title))
			e.logger.Infof("  [PAGE] Title check: '%s' in '%s' = %v", page.Title, handle.Title, found)
			return found
		}
	}

	if page.Text != "" {
		found := e.TextPresent(page.Text, page.Region, entities.DefaultConfidence)
		e.logger.Infof("  [PAGE] Text check: '%s' found = %v", page.Text, found)
		return found
	}

	if page.Template != "" {
		found := e.TemplatePresent(page.Template, entities.DefaultConfidence, nil)
		e.logger.Infof("  [PAGE] Template check: '%s' found = %v", page.Template, found)
		return found
	}

	e.logger.Info("  [PAGE] No verification method specified")
	return true
}

// VerifyCompletion - checks that an action had its intended effect
func (e *Engine) VerifyCompletion(spec *entities.VerificationSpec, ectx *entities.ExecutionContext) (result bool) {
	if spec == nil {
		return true
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Errorf("  [FAIL] Verification '%s' panicked: %v", spec.Type, r)
			result = false
		}
	}()

	e.logger.Infof("  [VERIFY] Verifying action completion: %s", spec.Type)

	switch spec.Type {
	case entities.VerifyTemplateMatch:
		if spec.Template == "" {
			e.logger.Warn("  [WARN] No template specified for verification")
			return false
		}
		_, result = e.WaitForTemplate(spec.Template, spec.TimeoutOr(), spec.ThresholdOr(), TemplatePollInterval)

	case entities.VerifyScreenChange:
		result = e.ScreenChanged(ectx.PreviousScreenshot)

	case entities.VerifyElementAtLocation:
		if spec.Template == "" || spec.Location == nil {
			return false
		}
		result = e.TemplatePresent(spec.Template, spec.ThresholdOr(), spec.Location)

	case entities.VerifyOCRText:
		if spec.Text == "" {
			e.logger.Warn("  [WARN] No text specified for OCR verification")
			return false
		}
		result = e.OCRTextPresent(spec.Text, spec.Region, 0)
		if !result && spec.FallbackTemplate != "" {
			e.logger.Info("  [FALLBACK] OCR failed, trying template matching...")
			result = e.TemplatePresent(spec.FallbackTemplate, entities.DefaultConfidence, nil)
		}

	case entities.VerifyWait:
		time.Sleep(spec.WaitDuration())
		result = true

	default:
		e.logger.Warnf("  [WARN] Unknown verification type: %s", spec.Type)
		return true
	}

	if result {
		e.logger.Info("  [OK] Verification: Passed")
	} else {
		e.logger.Warn("  [FAIL] Verification: Failed")
	}
	return result
}
