// Package terminal is the interactive prompt: each line names objectives to
// run until the user quits.
package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// RunFunc executes the objectives named on one input line
type RunFunc func(ctx context.Context, ids []string) error

type TerminalInterface struct {
	run    RunFunc
	list   func() []string
	reader *bufio.Reader
	out    io.Writer
}

// NewTerminalInterface - creates a prompt reading from in and writing to out.
// list, when non-nil, answers the "list" command.
func NewTerminalInterface(run RunFunc, list func() []string, in io.Reader, out io.Writer) *TerminalInterface {
	return &TerminalInterface{
		run:    run,
		list:   list,
		reader: bufio.NewReader(in),
		out:    out,
	}
}

// Run - reads commands until quit, end of input or ctx is cancelled.
// A failing objective is reported and the prompt continues.
func (t *TerminalInterface) Run(ctx context.Context) error {
	fmt.Fprintln(t.out, "Desktop Automation")
	fmt.Fprintln(t.out, "==================")
	fmt.Fprintln(t.out, "Enter objective ids (space or comma separated), 'list', or 'quit' to exit")
	fmt.Fprintln(t.out)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Fprint(t.out, "> ")
		input, err := t.reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && input != "") {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(t.out)
				return nil
			}
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		switch input {
		case "quit", "exit", "q":
			fmt.Fprintln(t.out, "Goodbye!")
			return nil
		case "list", "ls":
			t.printList()
			continue
		case "help", "?":
			fmt.Fprintln(t.out, "Commands: <objective ids>, list, quit")
			continue
		}

		ids := Fields(input)
		fmt.Fprintf(t.out, "\nRunning: %s\n\n", strings.Join(ids, ", "))
		if err := t.run(ctx, ids); err != nil {
			fmt.Fprintf(t.out, "\nNot completed: %v\n\n", err)
		} else {
			fmt.Fprintf(t.out, "\nCompleted\n\n")
		}
	}
}

func (t *TerminalInterface) printList() {
	if t.list == nil {
		fmt.Fprintln(t.out, "No objectives available")
		return
	}
	for _, id := range t.list() {
		fmt.Fprintf(t.out, "  %s\n", id)
	}
}

// Fields splits an input line on spaces and commas.
func Fields(line string) []string {
	return strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
}
