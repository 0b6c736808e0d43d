package orchestrator

import (
	"context"
	"errors"
	"image"
	"io"
	"runtime"
	"testing"

	"desktop_automation/application/executor"
	"desktop_automation/application/verification"
	"desktop_automation/domain/entities"
	"desktop_automation/infrastructure/simulated"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
)

type recordingNotifier struct {
	messages []string
	subjects []string
}

func (n *recordingNotifier) NotifyError(message, subject string) {
	n.messages = append(n.messages, message)
	n.subjects = append(n.subjects, subject)
}

func (n *recordingNotifier) NotifyUnsupported(objectives []entities.UnsupportedObjective) {}

type memoryStore struct {
	saved []entities.Checkpoint
	err   error
}

func (s *memoryStore) Save(cp entities.Checkpoint) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, cp)
	return nil
}

func (s *memoryStore) Load(sessionID string) (*entities.Checkpoint, error) {
	for i := len(s.saved) - 1; i >= 0; i-- {
		if s.saved[i].SessionID == sessionID {
			cp := s.saved[i]
			return &cp, nil
		}
	}
	return nil, nil
}

// countingExecutor fails the first failFirst calls, then delegates.
type countingExecutor struct {
	inner     ActionExecutor
	calls     int
	failFirst int
}

func (c *countingExecutor) Execute(action entities.Action) bool {
	c.calls++
	if c.calls <= c.failFirst {
		return false
	}
	return c.inner.Execute(action)
}

type fixture struct {
	orch     *Orchestrator
	desk     *simulated.Desktop
	exec     *countingExecutor
	notifier *recordingNotifier
	store    *memoryStore
	states   []State
}

func testPolicy() Policy {
	return Policy{MaxAttempts: 3}
}

func newFixture(t *testing.T, policy Policy) *fixture {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	desk := simulated.NewDesktop()
	desk.Width, desk.Height = 40, 30
	verifier := verification.NewEngine(desk, desk, logger)
	inner := executor.NewExecutor(desk, desk, desk, verifier, executor.Timing{}, logger)

	f := &fixture{
		desk:     desk,
		exec:     &countingExecutor{inner: inner},
		notifier: &recordingNotifier{},
		store:    &memoryStore{},
	}
	f.orch = NewOrchestrator(f.exec, verifier, desk, desk, desk, f.store, f.notifier, policy, logger)
	f.orch.SetObserver(func(index int, action string, state State) {
		f.states = append(f.states, state)
	})
	return f
}

func (f *fixture) count(state State) int {
	n := 0
	for _, s := range f.states {
		if s == state {
			n++
		}
	}
	return n
}

func TestRunObjective_SingleWait(t *testing.T) {
	f := newFixture(t, testPolicy())
	wait := entities.Action{Type: entities.ActionWait, Duration: entities.Float(0.1)}

	res := f.orch.RunObjective(context.Background(), entities.Objective{ID: "t1", Actions: []entities.Action{wait}}, "s1")
	if !res.OK {
		t.Fatalf("expected success, got %+v", res)
	}
	if diff := cmp.Diff([]entities.Action{wait}, res.History); diff != "" {
		t.Fatalf("history mismatch (-want +got):\n%s", diff)
	}
	if res.FailedIndex != -1 {
		t.Fatalf("FailedIndex = %d, want -1", res.FailedIndex)
	}
}

func TestRunObjective_EmptyHotkeyRollsBack(t *testing.T) {
	f := newFixture(t, testPolicy())
	objective := entities.Objective{
		ID:   "t2",
		Name: "broken hotkey",
		Actions: []entities.Action{
			{Type: entities.ActionHotkey, Keys: []string{}, ErrorStrategy: entities.StrategyRollbackAll},
		},
	}

	res := f.orch.RunObjective(context.Background(), objective, "s1")
	if res.OK {
		t.Fatal("expected failure")
	}
	if res.Reason != entities.ReasonExecutionFailed {
		t.Fatalf("Reason = %q, want %q", res.Reason, entities.ReasonExecutionFailed)
	}
	if f.exec.calls != 3 {
		t.Fatalf("executor called %d times, want 3", f.exec.calls)
	}
	if len(res.History) != 0 {
		t.Fatalf("History = %v, want empty", res.History)
	}
	if got := f.desk.Recorded(); len(got) != 0 {
		t.Fatalf("rollback over empty history sent input: %v", got)
	}
	if len(f.notifier.messages) != 1 || f.notifier.subjects[0] != "broken hotkey" {
		t.Fatalf("expected one notification for the objective, got %v", f.notifier.subjects)
	}
}

func TestRunObjective_VerificationSharesRetryBudget(t *testing.T) {
	f := newFixture(t, testPolicy())
	objective := entities.Objective{
		ID: "t3",
		Actions: []entities.Action{{
			Type: entities.ActionKeyPress,
			Key:  "enter",
			Verification: &entities.VerificationSpec{
				Type:     entities.VerifyTemplateMatch,
				Template: "templates/never.png",
				Timeout:  entities.Float(0),
			},
			ErrorStrategy: entities.StrategyEmailDev,
		}},
	}

	res := f.orch.RunObjective(context.Background(), objective, "s1")
	if res.OK {
		t.Fatal("expected failure")
	}
	if f.exec.calls != 3 {
		t.Fatalf("executor called %d times, want 3", f.exec.calls)
	}
	if got := f.count(StateVerifying); got != 3 {
		t.Fatalf("verifying entered %d times, want 3", got)
	}
	if got := f.count(StateRetrying); got != 2 {
		t.Fatalf("retrying entered %d times, want 2", got)
	}
	if f.states[len(f.states)-1] != StateFailed {
		t.Fatalf("final state = %s, want failed", f.states[len(f.states)-1])
	}
}

func TestRunObjective_SucceedsOnRetry(t *testing.T) {
	f := newFixture(t, testPolicy())
	f.exec.failFirst = 2

	objective := entities.Objective{ID: "t4", Actions: []entities.Action{{Type: entities.ActionKeyPress, Key: "space"}}}
	res := f.orch.RunObjective(context.Background(), objective, "s1")
	if !res.OK {
		t.Fatalf("expected success on third attempt, got %+v", res)
	}
	if f.exec.calls != 3 {
		t.Fatalf("executor called %d times, want 3", f.exec.calls)
	}
}

func TestRunObjective_PartialFailureKeepsCompletedHistory(t *testing.T) {
	f := newFixture(t, testPolicy())
	first := entities.Action{Type: entities.ActionTypeText, Text: "a"}
	second := entities.Action{Type: entities.ActionTypeText, Text: "b"}
	objective := entities.Objective{
		ID: "t5",
		Actions: []entities.Action{
			first,
			second,
			{Type: entities.ActionHotkey, ErrorStrategy: entities.StrategyEmailDev},
			{Type: entities.ActionTypeText, Text: "never"},
		},
	}

	res := f.orch.RunObjective(context.Background(), objective, "s1")
	if res.OK {
		t.Fatal("expected failure")
	}
	if diff := cmp.Diff([]entities.Action{first, second}, res.History); diff != "" {
		t.Fatalf("history mismatch (-want +got):\n%s", diff)
	}
	if res.FailedIndex != 2 {
		t.Fatalf("FailedIndex = %d, want 2", res.FailedIndex)
	}
	// email_dev leaves partial state alone
	if diff := cmp.Diff([]string{"type:a", "type:b"}, f.desk.Recorded()); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
	if len(f.notifier.messages) != 1 {
		t.Fatalf("notifications = %d, want 1", len(f.notifier.messages))
	}
}

func TestRunObjective_RollbackReversesHistory(t *testing.T) {
	f := newFixture(t, testPolicy())
	f.desk.Templates["templates/ok.png"] = entities.Point{X: 10, Y: 10}

	objective := entities.Objective{
		ID: "t6",
		Actions: []entities.Action{
			{Type: entities.ActionTypeText, Text: "abc"},
			{Type: entities.ActionHotkey, Keys: []string{"ctrl", "b"}},
			{Type: entities.ActionClickImage, Template: "templates/ok.png"},
			{Type: entities.ActionKeyPress},
		},
	}

	res := f.orch.RunObjective(context.Background(), objective, "s1")
	if res.OK {
		t.Fatal("expected failure")
	}

	mod := PrimaryModifier()
	want := []string{
		"type:abc", "hotkey:ctrl+b", "click:10,10",
		"press:escape", "hotkey:" + mod + "+z", "hotkey:" + mod + "+a", "press:backspace",
	}
	if diff := cmp.Diff(want, f.desk.Recorded()); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestRollback_EmptyHistory(t *testing.T) {
	f := newFixture(t, testPolicy())
	f.orch.Rollback(nil)
	f.orch.Rollback([]entities.Action{})
	if got := f.desk.Recorded(); len(got) != 0 {
		t.Fatalf("expected no input, got %v", got)
	}
}

func TestRollback_IrreversibleActionsOnlyLog(t *testing.T) {
	f := newFixture(t, testPolicy())
	f.orch.Rollback([]entities.Action{
		{Type: entities.ActionCloseWindow, AppName: "Notepad"},
		{Type: entities.ActionWait},
		{Type: entities.ActionKeyPress, Key: "enter"},
	})
	if got := f.desk.Recorded(); len(got) != 0 {
		t.Fatalf("expected no input, got %v", got)
	}
}

func TestRollback_InputErrorsAreSwallowed(t *testing.T) {
	f := newFixture(t, testPolicy())
	f.desk.InputErr = errors.New("no display")
	f.orch.Rollback([]entities.Action{{Type: entities.ActionTypeText, Text: "x"}})
}

func TestRunObjective_RetryPrevious(t *testing.T) {
	f := newFixture(t, testPolicy())
	objective := entities.Objective{
		ID: "t7",
		Actions: []entities.Action{
			{Type: entities.ActionTypeText, Text: "abc"},
			{Type: entities.ActionKeyPress, ErrorStrategy: entities.StrategyRetryPrevious},
		},
	}

	res := f.orch.RunObjective(context.Background(), objective, "s1")
	if !res.OK {
		t.Fatalf("expected the re-executed previous action to decide the result, got %+v", res)
	}
	if diff := cmp.Diff([]string{"type:abc", "type:abc"}, f.desk.Recorded()); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
	if len(f.notifier.messages) != 0 {
		t.Fatalf("retry_previous must not notify, got %v", f.notifier.messages)
	}
}

func TestRunObjective_RetryPreviousWithoutHistory(t *testing.T) {
	f := newFixture(t, testPolicy())
	objective := entities.Objective{
		ID:      "t8",
		Actions: []entities.Action{{Type: entities.ActionKeyPress, ErrorStrategy: entities.StrategyRetryPrevious}},
	}

	if res := f.orch.RunObjective(context.Background(), objective, "s1"); res.OK {
		t.Fatal("expected failure without a previous action")
	}
}

func TestRunObjective_PrerequisitesNotMet(t *testing.T) {
	f := newFixture(t, testPolicy())
	objective := entities.Objective{
		ID:  "t9",
		App: "Spotify",
		Actions: []entities.Action{{
			Type:          entities.ActionKeyPress,
			Key:           "space",
			Prerequisites: []entities.PrerequisiteKind{entities.PrereqAppMaximized},
			ErrorStrategy: entities.StrategyEmailDev,
		}},
	}

	res := f.orch.RunObjective(context.Background(), objective, "s1")
	if res.Reason != entities.ReasonPrerequisitesNotMet {
		t.Fatalf("Reason = %q, want %q", res.Reason, entities.ReasonPrerequisitesNotMet)
	}
	if f.exec.calls != 0 {
		t.Fatalf("executor called %d times, want 0", f.exec.calls)
	}
}

func TestRunObjective_CheckpointsEveryCompletedAction(t *testing.T) {
	f := newFixture(t, testPolicy())
	objective := entities.Objective{
		ID: "t10",
		Actions: []entities.Action{
			{Type: entities.ActionTypeText, Text: "a"},
			{Type: entities.ActionKeyPress, Key: "enter"},
		},
	}

	if res := f.orch.RunObjective(context.Background(), objective, "session-1"); !res.OK {
		t.Fatalf("expected success, got %+v", res)
	}
	if len(f.store.saved) != 2 {
		t.Fatalf("saved %d checkpoints, want 2", len(f.store.saved))
	}
	for i, cp := range f.store.saved {
		if cp.SessionID != "session-1" || cp.ObjectiveID != "t10" {
			t.Fatalf("checkpoint %d has wrong identity: %+v", i, cp)
		}
		if cp.ActionIndex != i+1 || len(cp.History) != i+1 {
			t.Fatalf("checkpoint %d: index %d history %d", i, cp.ActionIndex, len(cp.History))
		}
	}
}

func TestRunObjective_CheckpointErrorsDoNotFail(t *testing.T) {
	f := newFixture(t, testPolicy())
	f.store.err = errors.New("disk full")

	objective := entities.Objective{ID: "t11", Actions: []entities.Action{{Type: entities.ActionKeyPress, Key: "a"}}}
	if res := f.orch.RunObjective(context.Background(), objective, "s1"); !res.OK {
		t.Fatalf("expected success despite persistence errors, got %+v", res)
	}
}

func TestRunObjective_StrictScreenChange(t *testing.T) {
	click := entities.Action{Type: entities.ActionClickImage, Template: "templates/a.png", ErrorStrategy: entities.StrategyEmailDev}
	objective := entities.Objective{ID: "t12", Actions: []entities.Action{click}}

	lenient := newFixture(t, testPolicy())
	lenient.desk.Frames = []image.Image{simulated.Solid(40, 30, 10)}
	lenient.desk.Templates["templates/a.png"] = entities.Point{X: 1, Y: 1}
	if res := lenient.orch.RunObjective(context.Background(), objective, "s1"); !res.OK {
		t.Fatalf("unchanged screen must only warn by default, got %+v", res)
	}

	policy := testPolicy()
	policy.StrictScreenChange = true
	strict := newFixture(t, policy)
	strict.desk.Frames = []image.Image{simulated.Solid(40, 30, 10)}
	strict.desk.Templates["templates/a.png"] = entities.Point{X: 1, Y: 1}
	if res := strict.orch.RunObjective(context.Background(), objective, "s1"); res.OK {
		t.Fatal("strict mode must fail an unchanged click")
	}
	if strict.exec.calls != 3 {
		t.Fatalf("executor called %d times, want 3", strict.exec.calls)
	}
}

func TestRunObjective_Cancelled(t *testing.T) {
	f := newFixture(t, testPolicy())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	objective := entities.Objective{ID: "t13", Actions: []entities.Action{{Type: entities.ActionKeyPress, Key: "a"}}}
	res := f.orch.RunObjective(ctx, objective, "s1")
	if res.OK || res.Reason != entities.ReasonCancelled {
		t.Fatalf("expected cancelled result, got %+v", res)
	}
	if f.exec.calls != 0 || len(f.notifier.messages) != 0 {
		t.Fatalf("cancelled run executed %d actions and sent %d notifications", f.exec.calls, len(f.notifier.messages))
	}
}

func TestRunObjective_ResolvesApp(t *testing.T) {
	f := newFixture(t, testPolicy())
	f.desk.AddWindow("Spotify", entities.WindowHandle{PID: 42, Bounds: entities.Bounds{W: 1920, H: 1080}})

	var asked []string
	f.orch.SetAppResolver(func(name string) (entities.AppConfig, bool) {
		asked = append(asked, name)
		if name == "" || name == "Spotify" {
			return entities.AppConfig{Name: "Spotify", Path: "spotify"}, true
		}
		return entities.AppConfig{}, false
	})

	objective := entities.Objective{ID: "t14", Actions: []entities.Action{{Type: entities.ActionKeyPress, Key: "a"}}}
	if res := f.orch.RunObjective(context.Background(), objective, "s1"); !res.OK {
		t.Fatalf("expected success, got %+v", res)
	}

	if diff := cmp.Diff([]string{""}, asked); diff != "" {
		t.Fatalf("resolver calls mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"focus:42", "press:a"}, f.desk.Recorded()); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestNewExecutionContextKeepsApp(t *testing.T) {
	app := &entities.AppConfig{Name: "Spotify"}
	ectx := entities.NewExecutionContext(entities.Objective{ID: "x", App: "Other"}, "s1", app)
	if ectx.App != app || ectx.AppName != "Other" {
		t.Fatalf("context = %+v, want objective app name and config kept", ectx)
	}
}

func TestPrimaryModifier(t *testing.T) {
	want := "ctrl"
	if runtime.GOOS == "darwin" {
		want = "cmd"
	}
	if got := PrimaryModifier(); got != want {
		t.Fatalf("PrimaryModifier() = %q, want %q", got, want)
	}
}
