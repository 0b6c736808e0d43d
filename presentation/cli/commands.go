package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"desktop_automation/application/sequencer"
	"desktop_automation/domain/entities"
	"desktop_automation/presentation/terminal"

	"github.com/spf13/cobra"
)

// NewRootCommand - builds the command tree; backend drives the live desktop
func NewRootCommand(backend Backend) *cobra.Command {
	opts := &Options{}

	cmd := &cobra.Command{
		Use:   "desktop-automation",
		Short: "Drive desktop applications through declarative objectives",
		Long: `desktop-automation runs objectives, ordered lists of UI actions, against
live desktop applications. Each action is retried, verified and, when it
cannot be completed, recovered with its error strategy.

Quick start:
  desktop-automation prepare Spotify                 # Launch and maximize
  desktop-automation run Spotify spotify_play        # Run objectives
  desktop-automation sequence spotify_quick_play     # Run a named sequence
  desktop-automation list                            # Show what is configured`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default config/config.json)")
	cmd.PersistentFlags().BoolVar(&opts.DryRun, "dry-run", false, "send actions to a simulated desktop")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(newRunCommand(opts, backend))
	cmd.AddCommand(newSequenceCommand(opts, backend))
	cmd.AddCommand(newPrepareCommand(opts, backend))
	cmd.AddCommand(newListCommand(opts, backend))
	cmd.AddCommand(newHistoryCommand(opts, backend))
	cmd.AddCommand(newShellCommand(opts, backend))

	return cmd
}

// Execute runs the CLI with args and returns the process exit code.
func Execute(args []string, backend Backend) int {
	root := NewRootCommand(backend)
	root.SetArgs(args)
	err := root.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return ExitCode(err)
}

func withApp(cmd *cobra.Command, opts *Options, backend Backend, run func(ctx context.Context, a *App) error) error {
	a, err := NewApp(*opts, backend, cmd.ErrOrStderr())
	if err != nil {
		return fail(ExitConfigError, "failed to initialize: %w", err)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	return run(ctx, a)
}

func newRunCommand(opts *Options, backend Backend) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [app] [objective-ids...]",
		Short: "Prepare an app and run objectives by id",
		Long: `Prepare the app (launch, maximize, verify) and run the given objectives in
order. Ids may be separate arguments or comma-separated. Without ids the app
is only prepared.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var appName string
			if len(args) > 0 {
				appName, args = args[0], args[1:]
			}
			return withApp(cmd, opts, backend, func(ctx context.Context, a *App) error {
				return a.runObjectives(ctx, cmd, appName, splitIDs(args), opts.Confirm)
			})
		},
	}
	cmd.Flags().BoolVar(&opts.Confirm, "confirm", false, "ask before running objectives with destructive actions")
	return cmd
}

func newSequenceCommand(opts *Options, backend Backend) *cobra.Command {
	var appName string
	cmd := &cobra.Command{
		Use:   "sequence <name>",
		Short: "Run a named multi-objective sequence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, backend, func(ctx context.Context, a *App) error {
				return a.runSequence(ctx, cmd, args[0], appName, opts.Confirm)
			})
		},
	}
	cmd.Flags().StringVar(&appName, "app", "", "app to prepare (default: app of the first objective)")
	cmd.Flags().BoolVar(&opts.Confirm, "confirm", false, "ask before running objectives with destructive actions")
	return cmd
}

func newPrepareCommand(opts *Options, backend Backend) *cobra.Command {
	return &cobra.Command{
		Use:   "prepare [app]",
		Short: "Launch, maximize and verify an app",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var appName string
			if len(args) == 1 {
				appName = args[0]
			}
			return withApp(cmd, opts, backend, func(ctx context.Context, a *App) error {
				app, err := a.appConfig(appName)
				if err != nil {
					return fail(ExitConfigError, "%w", err)
				}
				if err := a.prepare(ctx, cmd.OutOrStdout(), app); err != nil {
					return err
				}
				banner(cmd.OutOrStdout(), "PREPARATION COMPLETE - App is ready")
				return nil
			})
		},
	}
}

func newListCommand(opts *Options, backend Backend) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show configured apps, objectives and sequences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, backend, func(ctx context.Context, a *App) error {
				return a.list(cmd.OutOrStdout())
			})
		},
	}
}

func newHistoryCommand(opts *Options, backend Backend) *cobra.Command {
	return &cobra.Command{
		Use:   "history [session-id]",
		Short: "Show journaled sessions or the checkpoints of one session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, backend, func(ctx context.Context, a *App) error {
				if len(args) == 0 {
					return a.sessions(cmd.OutOrStdout())
				}
				return a.history(cmd.OutOrStdout(), args[0])
			})
		},
	}
}

func newShellCommand(opts *Options, backend Backend) *cobra.Command {
	return &cobra.Command{
		Use:   "shell [app]",
		Short: "Prepare an app, then run objectives typed at a prompt",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var appName string
			if len(args) == 1 {
				appName = args[0]
			}
			return withApp(cmd, opts, backend, func(ctx context.Context, a *App) error {
				app, err := a.appConfig(appName)
				if err != nil {
					return fail(ExitConfigError, "%w", err)
				}
				if err := a.prepare(ctx, cmd.OutOrStdout(), app); err != nil {
					return err
				}
				ins, err := a.instructions()
				if err != nil {
					return fail(ExitConfigError, "%w", err)
				}

				list := func() []string {
					ids := make([]string, 0, len(ins.Objectives))
					for _, o := range ins.Objectives {
						ids = append(ids, o.ID)
					}
					return ids
				}
				run := func(ctx context.Context, ids []string) error {
					objectives, missing := ins.Select(ids)
					if len(missing) > 0 {
						return fmt.Errorf("unknown objective id(s): %s", strings.Join(missing, ", "))
					}
					report := a.sequencer.RunReport(ctx, objectives, a.sessionID)
					if !report.OK {
						return fmt.Errorf("objective %s failed: %s", report.FailedID, report.Reason)
					}
					return nil
				}

				err = terminal.NewTerminalInterface(run, list, cmd.InOrStdin(), cmd.OutOrStdout()).Run(ctx)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		},
	}
}

func (a *App) prepare(ctx context.Context, w io.Writer, app entities.AppConfig) error {
	if err := a.preparer.Prepare(ctx, app); err != nil {
		failed(w, "Application preparation failed")
		return fail(ExitPreparationFailed, "%w", err)
	}
	return nil
}

func (a *App) runObjectives(ctx context.Context, cmd *cobra.Command, appName string, ids []string, confirm bool) error {
	w := cmd.OutOrStdout()
	app, err := a.appConfig(appName)
	if err != nil {
		return fail(ExitConfigError, "%w", err)
	}

	var objectives []entities.Objective
	if len(ids) > 0 {
		ins, err := a.instructions()
		if err != nil {
			return fail(ExitConfigError, "%w", err)
		}
		var missing []string
		objectives, missing = ins.Select(ids)
		if len(missing) > 0 {
			return fail(ExitConfigError, "unknown objective id(s): %s", strings.Join(missing, ", "))
		}
		if err := a.confirm(cmd, objectives, confirm); err != nil {
			return err
		}
	}

	if err := a.prepare(ctx, w, app); err != nil {
		return err
	}
	if len(ids) == 0 {
		banner(w, "PREPARATION COMPLETE - App is ready")
		fmt.Fprintf(w, "\nTo execute objectives, use: desktop-automation run %s <objective_ids>\n", app.Name)
		return nil
	}

	banner(w, fmt.Sprintf("Executing %d objective(s)...", len(objectives)))
	report := a.sequencer.RunReport(ctx, objectives, a.sessionID)
	if !report.OK {
		failed(w, "Workflow execution failed at '%s'", report.FailedID)
		return fail(ExitObjectiveFailed, "objective %s failed (session %s)", report.FailedID, a.sessionID)
	}
	banner(w, "[OK] Workflow complete!")
	return nil
}

func (a *App) runSequence(ctx context.Context, cmd *cobra.Command, name, appName string, confirm bool) error {
	w := cmd.OutOrStdout()
	ins, err := a.instructions()
	if err != nil {
		return fail(ExitConfigError, "%w", err)
	}
	ids, err := sequencer.ResolveSequence(name, ins.Sequences)
	if err != nil {
		return fail(ExitConfigError, "%w", err)
	}
	fmt.Fprintf(w, "Sequence: %s\n", strings.Join(ids, " -> "))

	objectives, missing := ins.Select(ids)
	if len(missing) > 0 {
		a.logger.Warnf("[WARN] Sequence objectives not in instructions file: %s", strings.Join(missing, ", "))
	}
	supported, _ := sequencer.Partition(objectives)
	if len(supported) == 0 {
		failed(w, "No supported objectives found in sequence '%s'", name)
		return fail(ExitSequenceFailed, "sequence %s has no supported objectives", name)
	}
	if appName == "" {
		appName = supported[0].App
	}
	app, err := a.appConfig(appName)
	if err != nil {
		return fail(ExitConfigError, "%w", err)
	}
	if err := a.confirm(cmd, objectives, confirm); err != nil {
		return err
	}

	if err := a.prepare(ctx, w, app); err != nil {
		return err
	}

	banner(w, fmt.Sprintf("Executing sequence %s (%d objectives)...", name, len(objectives)))
	report := a.sequencer.RunReport(ctx, objectives, a.sessionID)
	if !report.OK {
		failed(w, "Sequence '%s' aborted at '%s'", name, report.FailedID)
		return fail(ExitSequenceFailed, "sequence %s aborted at %s (session %s)", name, report.FailedID, a.sessionID)
	}
	banner(w, fmt.Sprintf("[OK] Sequence %s complete!", name))
	return nil
}

var errDeclined = errors.New("run declined")

// confirm lists destructive actions and asks before going on.
func (a *App) confirm(cmd *cobra.Command, objectives []entities.Objective, enabled bool) error {
	if !enabled {
		return nil
	}
	findings := a.risky(objectives)
	if len(findings) == 0 {
		return nil
	}

	w := cmd.OutOrStdout()
	heading(w, "Destructive actions")
	for _, f := range findings {
		fmt.Fprintf(w, "  %s #%d %s: %s\n", f.ObjectiveID, f.Index+1, f.Action, f.Why)
	}
	fmt.Fprint(w, "Proceed? [y/N] ")

	answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return nil
	}
	return fail(ExitConfigError, "%w", errDeclined)
}

func (a *App) list(w io.Writer) error {
	heading(w, "Apps")
	for _, name := range a.cfg.AppNames() {
		marker := ""
		if strings.EqualFold(name, a.cfg.DefaultApp) {
			marker = " (default)"
		}
		fmt.Fprintf(w, "  %s%s\n", name, marker)
	}

	ins, err := a.instructions()
	if err != nil {
		return fail(ExitConfigError, "%w", err)
	}

	heading(w, "Objectives")
	for _, o := range ins.All() {
		if !o.Supported {
			fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("  %-32s unsupported: %s", o.ID, o.AsUnsupported().Reason)))
			continue
		}
		flags := ""
		if _, ok := a.handlers.Lookup(o.ID); ok {
			flags += " [handler]"
		}
		if len(a.security.Review(o)) > 0 {
			flags += " [destructive]"
		}
		fmt.Fprintf(w, "  %-32s %d action(s)%s  %s\n", o.ID, len(o.Actions), flags, o.Name)
	}

	heading(w, "Sequences")
	all := sequencer.Sequences(ins.Sequences)
	for _, name := range sequencer.SequenceNames(ins.Sequences) {
		fmt.Fprintf(w, "  %-32s %s\n", name, strings.Join(all[name], " -> "))
	}
	return nil
}

func (a *App) sessions(w io.Writer) error {
	if a.journal == nil {
		return fail(ExitConfigError, "no journal_path configured")
	}
	ids, err := a.journal.Sessions()
	if err != nil {
		return fail(ExitConfigError, "%w", err)
	}
	heading(w, "Sessions")
	for _, id := range ids {
		fmt.Fprintf(w, "  %s\n", id)
	}
	return nil
}

func (a *App) history(w io.Writer, sessionID string) error {
	if a.journal == nil {
		return fail(ExitConfigError, "no journal_path configured")
	}
	entries, err := a.journal.Entries(sessionID)
	if err != nil {
		return fail(ExitConfigError, "%w", err)
	}
	if len(entries) == 0 {
		return fail(ExitConfigError, "no checkpoints for session %s", sessionID)
	}

	heading(w, "Session "+sessionID)
	for _, cp := range entries {
		fmt.Fprintf(w, "  %s  %-32s action %d  (%d completed)\n",
			cp.Timestamp.Local().Format("15:04:05"), cp.ObjectiveID, cp.ActionIndex, len(cp.History))
	}
	okLine(w, "%d checkpoint(s)", len(entries))
	return nil
}
