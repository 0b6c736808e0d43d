package executor

import (
	"errors"
	"io"
	"testing"

	"desktop_automation/application/verification"
	"desktop_automation/domain/entities"
	"desktop_automation/infrastructure/simulated"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
)

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestExecutor(t *testing.T) (*Executor, *simulated.Desktop) {
	t.Helper()
	desk := simulated.NewDesktop()
	desk.Width, desk.Height = 64, 48
	logger := newTestLogger()
	verifier := verification.NewEngine(desk, desk, logger)
	return NewExecutor(desk, desk, desk, verifier, Timing{}, logger), desk
}

func TestExecute_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name   string
		action entities.Action
	}{
		{name: "type_text without text", action: entities.Action{Type: entities.ActionTypeText}},
		{name: "hotkey without keys", action: entities.Action{Type: entities.ActionHotkey, Keys: []string{}}},
		{name: "key_press without key", action: entities.Action{Type: entities.ActionKeyPress}},
		{name: "click_image without template", action: entities.Action{Type: entities.ActionClickImage}},
		{name: "click_text without text", action: entities.Action{Type: entities.ActionClickText}},
		{name: "verify_text without text", action: entities.Action{Type: entities.ActionVerifyText}},
		{name: "wait_for_text without text", action: entities.Action{Type: entities.ActionWaitForText}},
		{name: "close_window without app", action: entities.Action{Type: entities.ActionCloseWindow}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, desk := newTestExecutor(t)
			desk.Permissive = true

			if e.Execute(tt.action) {
				t.Fatal("expected false")
			}
			if got := desk.Recorded(); len(got) != 0 {
				t.Fatalf("expected no input, got %v", got)
			}
		})
	}
}

func TestExecute_UnknownType(t *testing.T) {
	e, _ := newTestExecutor(t)
	if e.Execute(entities.Action{Type: "teleport"}) {
		t.Fatal("expected false for unknown action type")
	}
}

func TestExecute_Wait(t *testing.T) {
	e, _ := newTestExecutor(t)
	if !e.Execute(entities.Action{Type: entities.ActionWait, Duration: entities.Float(0.01)}) {
		t.Fatal("expected wait to succeed")
	}
}

func TestExecute_InputActions(t *testing.T) {
	e, desk := newTestExecutor(t)

	actions := []entities.Action{
		{Type: entities.ActionTypeText, Text: "hello"},
		{Type: entities.ActionHotkey, Keys: []string{"ctrl", "l"}},
		{Type: entities.ActionKeyPress, Key: "enter"},
	}
	for _, a := range actions {
		if !e.Execute(a) {
			t.Fatalf("action %s failed", a.Type)
		}
	}

	want := []string{"type:hello", "hotkey:ctrl+l", "press:enter"}
	if diff := cmp.Diff(want, desk.Recorded()); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestExecute_InputErrorIsFailure(t *testing.T) {
	e, desk := newTestExecutor(t)
	desk.InputErr = errors.New("display unavailable")

	if e.Execute(entities.Action{Type: entities.ActionTypeText, Text: "x"}) {
		t.Fatal("expected false when the input device fails")
	}
}

func TestExecute_ClickImage(t *testing.T) {
	e, desk := newTestExecutor(t)
	desk.Templates["templates/play.png"] = entities.Point{X: 30, Y: 20}

	ok := e.Execute(entities.Action{
		Type:     entities.ActionClickImage,
		Template: "templates/play.png",
		OffsetX:  5,
		OffsetY:  -5,
	})
	if !ok {
		t.Fatal("expected click_image to succeed")
	}
	if diff := cmp.Diff([]string{"click:35,15"}, desk.Recorded()); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestExecute_ClickImageNotFound(t *testing.T) {
	e, desk := newTestExecutor(t)

	if e.Execute(entities.Action{Type: entities.ActionClickImage, Template: "templates/missing.png"}) {
		t.Fatal("expected false for a missing template")
	}
	if got := desk.Recorded(); len(got) != 0 {
		t.Fatalf("expected no click, got %v", got)
	}
}

func TestExecute_ClickTextBelowConfidence(t *testing.T) {
	e, desk := newTestExecutor(t)
	desk.Texts = []entities.TextMatch{
		{Text: "Submit", Box: entities.Region{X: 10, Y: 10, W: 20, H: 10}, Confidence: 0.90},
	}

	ok := e.Execute(entities.Action{
		Type:       entities.ActionClickText,
		Text:       "Submit",
		Confidence: entities.Float(0.95),
	})
	if ok {
		t.Fatal("expected not-found for a match below the confidence threshold")
	}
	if got := desk.Recorded(); len(got) != 0 {
		t.Fatalf("expected no click, got %v", got)
	}
}

func TestExecute_ClickTextPicksMostConfidentMatch(t *testing.T) {
	e, desk := newTestExecutor(t)
	desk.Texts = []entities.TextMatch{
		{Text: "Play", Box: entities.Region{X: 0, Y: 0, W: 10, H: 10}, Confidence: 0.85},
		{Text: "Play all", Box: entities.Region{X: 20, Y: 20, W: 20, H: 10}, Confidence: 0.92},
	}

	ok := e.Execute(entities.Action{Type: entities.ActionClickText, Text: "play"})
	if !ok {
		t.Fatal("expected click_text to succeed")
	}
	if diff := cmp.Diff([]string{"click:30,25"}, desk.Recorded()); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestExecute_ClickTextTriesSmartCropFirst(t *testing.T) {
	e, desk := newTestExecutor(t)
	desk.Texts = []entities.TextMatch{
		{Text: "Next", Box: entities.Region{X: 0, Y: 0, W: 10, H: 10}, Confidence: 0.85},
		{Text: "Next", Box: entities.Region{X: 40, Y: 30, W: 10, H: 10}, Confidence: 0.99},
	}
	desk.Crops = []entities.Region{{X: 0, Y: 0, W: 20, H: 20}}

	if !e.Execute(entities.Action{Type: entities.ActionClickText, Text: "Next"}) {
		t.Fatal("expected click_text to succeed")
	}
	if diff := cmp.Diff([]string{"click:5,5"}, desk.Recorded()); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}

	desk.Events = nil
	noCrop := entities.Action{Type: entities.ActionClickText, Text: "Next", UseSmartCrop: entities.Bool(false)}
	if !e.Execute(noCrop) {
		t.Fatal("expected click_text to succeed without smart crop")
	}
	if diff := cmp.Diff([]string{"click:45,35"}, desk.Recorded()); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestExecute_CloseWindowWithoutWindow(t *testing.T) {
	e, desk := newTestExecutor(t)

	if e.Execute(entities.Action{Type: entities.ActionCloseWindow, AppName: "Notepad"}) {
		t.Fatal("expected false when no window matches")
	}
	if got := desk.Recorded(); len(got) != 0 {
		t.Fatalf("expected no click, got %v", got)
	}
}

func TestExecute_CloseWindow(t *testing.T) {
	e, desk := newTestExecutor(t)
	desk.AddWindow("Notepad", entities.WindowHandle{Bounds: entities.Bounds{X: 100, Y: 50, W: 400, H: 300}})

	ok := e.Execute(entities.Action{Type: entities.ActionCloseWindow, AppName: "notepad", DismissSaveDialog: true})
	if !ok {
		t.Fatal("expected close_window to succeed")
	}

	want := []string{"click:485,65", "press:tab", "press:enter"}
	if diff := cmp.Diff(want, desk.Recorded()); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestExecute_VerifyText(t *testing.T) {
	e, desk := newTestExecutor(t)
	desk.Texts = []entities.TextMatch{
		{Text: "Welcome", Box: entities.Region{X: 1, Y: 1, W: 10, H: 5}, Confidence: 0.9},
	}

	if !e.Execute(entities.Action{Type: entities.ActionVerifyText, Text: "welcome"}) {
		t.Fatal("expected verify_text to find visible text")
	}
	if e.Execute(entities.Action{Type: entities.ActionVerifyText, Text: "goodbye"}) {
		t.Fatal("expected verify_text to fail for absent text")
	}
}

func TestExecute_WaitForTextTimesOut(t *testing.T) {
	e, _ := newTestExecutor(t)

	ok := e.Execute(entities.Action{
		Type:          entities.ActionWaitForText,
		Text:          "Loaded",
		Timeout:       entities.Float(0.05),
		CheckInterval: entities.Float(0.01),
	})
	if ok {
		t.Fatal("expected wait_for_text to time out")
	}
}
