package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/snrecon/internal/engine"
)

// AssignOptions holds flags for the assign command.
type AssignOptions struct {
	*RootOptions
	Select  []string
	Line    string
	Write   bool
	Discard bool
}

// AssignOutput is the JSON payload of the assign command.
type AssignOutput struct {
	Outcome   *engine.AssignmentOutcome `json:"outcome,omitempty"`
	State     engine.State              `json:"state"`
	Remaining []string                  `json:"remaining"`
}

// NewAssignCommand creates the assign command.
func NewAssignCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AssignOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "assign <order.yaml> --select <serials> --line <id>",
		Short: "Place pending serials into a line item",
		Long: `Resume the serials left pending by reconcile --apply for this order and
place the selected ones into a line. The line's quantity is recomputed.
Serials still pending afterwards are kept for the next run.

With --discard the pending serials are dropped instead.

Example:
  snrecon assign order.yaml --select SN400,SN401 --line 10 --write
  snrecon assign order.yaml --discard`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssign(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Select, "select", nil, "serials to assign (comma separated)")
	cmd.Flags().StringVar(&opts.Line, "line", "", "line id receiving the serials")
	cmd.Flags().BoolVar(&opts.Write, "write", false, "save the order and remaining serials")
	cmd.Flags().BoolVar(&opts.Discard, "discard", false, "drop all pending serials")
	cmd.MarkFlagsMutuallyExclusive("discard", "select")
	cmd.MarkFlagsMutuallyExclusive("discard", "line")

	return cmd
}

func runAssign(opts *AssignOptions, path string, cmd *cobra.Command) (err error) {
	if !opts.Discard && (len(opts.Select) == 0 || opts.Line == "") {
		return NewExitError(ExitCommandError, "--select and --line are required unless --discard is set")
	}

	s, err := openSession(opts.RootOptions, path, opts.Write || opts.Discard)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := s.close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	ctx := commandContext(cmd.Context())
	wf := s.engine.Workflow()
	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	if opts.Discard {
		wf.Discard(ctx)
		out := AssignOutput{State: wf.State(), Remaining: []string{}}
		return f.Render(s.doc.Scope, out, func(w io.Writer) {
			fmt.Fprintln(w, "Pending serials discarded.")
		})
	}

	if err := s.engine.Resume(ctx); err != nil {
		return err
	}
	if wf.State() != engine.StateSelecting {
		return NewExitError(ExitCommandError, fmt.Sprintf("no serials pending assignment for %s", s.doc.Scope))
	}
	for _, serial := range opts.Select {
		if err := wf.Toggle(serial); err != nil {
			return err
		}
	}
	if err := wf.ChooseTarget(opts.Line); err != nil {
		return err
	}

	outcome, err := s.engine.Commit(ctx)
	if err != nil {
		return err
	}
	if err := s.doc.ApplyChanges(outcome.Changes); err != nil {
		return err
	}
	s.metrics.ObserveAssignment(outcome)

	out := AssignOutput{Outcome: outcome, State: wf.State(), Remaining: wf.Remaining()}
	if out.Remaining == nil {
		out.Remaining = []string{}
	}
	if wf.State() == engine.StateSelecting {
		if err := wf.Cancel(ctx); err != nil {
			return err
		}
	}
	if err := s.save(opts.Write); err != nil {
		return err
	}

	return f.Render(s.doc.Scope, out, func(w io.Writer) {
		fmt.Fprintf(w, "Assigned %s to line %s\n", strings.Join(outcome.Assigned, ", "), outcome.LineID)
		if len(out.Remaining) > 0 {
			fmt.Fprintf(w, "%d serial(s) still pending: %s\n", len(out.Remaining), strings.Join(out.Remaining, ", "))
		} else {
			fmt.Fprintln(w, "All pending serials placed.")
		}
		if !opts.Write {
			fmt.Fprintln(w, "(dry run, use --write to save)")
		}
	})
}
