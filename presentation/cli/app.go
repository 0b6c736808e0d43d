// Package cli is the command-line front end: it loads configuration, wires the
// automation stack and maps outcomes to exit codes.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"desktop_automation/application/executor"
	"desktop_automation/application/orchestrator"
	"desktop_automation/application/sequencer"
	"desktop_automation/application/verification"
	"desktop_automation/domain/entities"
	"desktop_automation/domain/interfaces"
	"desktop_automation/infrastructure/config"
	"desktop_automation/infrastructure/notification"
	"desktop_automation/infrastructure/security"
	"desktop_automation/infrastructure/simulated"
	"desktop_automation/infrastructure/storage"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Options are the global flags shared by every command
type Options struct {
	ConfigPath string
	DryRun     bool
	Verbose    bool
	Confirm    bool
}

// Devices are the screen, window and input backends automation runs against
type Devices struct {
	Probe   interfaces.ScreenProbe
	Windows interfaces.WindowController
	Input   interfaces.InputDevice
}

// Backend builds the live devices; it is only called outside dry runs
type Backend func(cfg *config.Config, logger *logrus.Logger) Devices

// App is the wired automation stack for one invocation
type App struct {
	cfg       *config.Config
	logger    *logrus.Logger
	sessionID string

	probe   interfaces.ScreenProbe
	windows interfaces.WindowController
	input   interfaces.InputDevice

	store    interfaces.CheckpointStore
	journal  *storage.Journal
	notifier interfaces.Notifier
	security *security.SecurityLayer

	handlers  *sequencer.HandlerRegistry
	sequencer *sequencer.Sequencer
	preparer  *sequencer.Preparer
}

// NewApp - loads configuration and builds every component
func NewApp(opts Options, backend Backend, logOutput io.Writer) (*App, error) {
	envErr := godotenv.Load()
	logger := newLogger(opts.Verbose, logOutput)
	if envErr != nil {
		// .env file is optional
		logger.Debug(".env file not found, using environment variables")
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:       cfg,
		logger:    logger,
		sessionID: entities.SessionID(time.Now()),
		security:  security.NewSecurityLayer(logger),
		notifier:  notification.NewMailer(notification.SMTPConfigFromEnv(), logger),
	}

	if err := a.openStore(); err != nil {
		return nil, err
	}

	timing := executor.DefaultTiming()
	policy := policyFrom(cfg)
	prep := sequencer.DefaultPrepPolicy()
	settle := 500 * time.Millisecond

	if opts.DryRun || backend == nil {
		logger.Info("Dry run: actions are sent to a simulated desktop")
		desk := simulated.NewDesktop()
		desk.Permissive = true
		a.probe, a.windows, a.input = desk, desk, desk

		timing = executor.Timing{}
		policy.Backoff, policy.StabilityTimeout, policy.FocusDelay, policy.RollbackSettle = 0, 0, 0, 0
		prep.LaunchBackoff, prep.MaximizeBackoff = 0, 0
		settle = 0
	} else {
		devices := backend(cfg, logger)
		a.probe, a.windows, a.input = devices.Probe, devices.Windows, devices.Input
	}

	verifier := verification.NewEngine(a.probe, a.windows, logger)
	exec := executor.NewExecutor(a.probe, a.windows, a.input, verifier, timing, logger)
	orch := orchestrator.NewOrchestrator(exec, verifier, a.probe, a.windows, a.input, a.store, a.notifier, policy, logger)

	orch.SetAppResolver(func(name string) (entities.AppConfig, bool) {
		app, err := a.appConfig(name)
		return app, err == nil
	})

	a.preparer = sequencer.NewPreparer(a.windows, a.notifier, prep, logger)
	a.handlers = sequencer.NewHandlerRegistry()
	builtins := &sequencer.Builtins{
		Runner:   orch,
		Preparer: a.preparer,
		Apps: func(name string) (entities.AppConfig, bool) {
			app, err := cfg.App(name)
			return app, err == nil
		},
		Probe:   a.probe,
		Windows: a.windows,
		Input:   a.input,
		Logger:  logger,
		Settle:  settle,
	}
	builtins.Register(a.handlers)
	a.sequencer = sequencer.NewSequencer(orch, a.handlers, a.store, a.notifier, logger)

	return a, nil
}

func newLogger(verbose bool, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		if level, err := logrus.ParseLevel(env); err == nil {
			logger.SetLevel(level)
		}
	}
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	if out != nil {
		logger.SetOutput(out)
	}
	return logger
}

func (a *App) openStore() error {
	dir := a.cfg.CheckpointDir
	if dir == "" {
		dir = storage.DefaultCheckpointDir()
	}
	primary, err := storage.NewCheckpointState(dir)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint store: %w", err)
	}
	a.store = primary

	if a.cfg.JournalPath == "" {
		return nil
	}
	journal, err := storage.OpenJournal(a.cfg.JournalPath)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	a.journal = journal
	a.store = storage.NewJournalingStore(primary, journal, a.logger)
	return nil
}

func policyFrom(cfg *config.Config) orchestrator.Policy {
	p := orchestrator.DefaultPolicy()
	r := cfg.Retry
	if r.MaxAttempts > 0 {
		p.MaxAttempts = r.MaxAttempts
	}
	if r.BackoffSeconds > 0 {
		p.Backoff = entities.Seconds(r.BackoffSeconds)
	}
	if r.StabilitySeconds > 0 {
		p.StabilityTimeout = entities.Seconds(r.StabilitySeconds)
	}
	if r.FocusDelaySeconds > 0 {
		p.FocusDelay = entities.Seconds(r.FocusDelaySeconds)
	}
	p.StrictScreenChange = cfg.StrictScreenChange
	return p
}

// Close - releases the journal database
func (a *App) Close() error {
	if a.journal != nil {
		return a.journal.Close()
	}
	return nil
}

func (a *App) instructions() (*config.Instructions, error) {
	return config.LoadInstructions(a.cfg.InstructionsFile)
}

// appConfig resolves an app by name, falling back to the default app.
func (a *App) appConfig(name string) (entities.AppConfig, error) {
	if name == "" {
		name = a.cfg.DefaultApp
	}
	return a.cfg.App(name)
}

// risky collects the high-risk actions of the supported objectives.
func (a *App) risky(objectives []entities.Objective) []security.Finding {
	var findings []security.Finding
	for _, o := range objectives {
		if o.Supported {
			findings = append(findings, a.security.Review(o)...)
		}
	}
	return findings
}

// splitIDs accepts ids as separate arguments, comma-separated, or both.
func splitIDs(args []string) []string {
	var ids []string
	for _, arg := range args {
		for _, id := range strings.Split(arg, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}
