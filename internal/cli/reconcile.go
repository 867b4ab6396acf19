package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/snrecon/internal/engine"
	"github.com/roach88/snrecon/internal/ir"
	"github.com/roach88/snrecon/internal/targetlist"
)

// ReconcileOptions holds flags for the reconcile command.
type ReconcileOptions struct {
	*RootOptions
	Targets string
	Apply   bool
	Write   bool
}

// ReconcileOutput is the JSON payload of the reconcile command.
type ReconcileOutput struct {
	Result      *engine.ReconciliationResult `json:"result"`
	Fingerprint string                       `json:"fingerprint"`
	Applied     *engine.AppliedChange        `json:"applied,omitempty"`
	// Pending lists serials awaiting assignment after an apply.
	Pending []string `json:"pending,omitempty"`
}

// NewReconcileCommand creates the reconcile command.
func NewReconcileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReconcileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reconcile <order.yaml> --targets <file>",
		Short: "Compare line serials against a target list",
		Long: `Compare the serials in the order's line descriptions with an
authoritative target list (.txt, .csv or .xlsx).

With --apply, serials not in the list are removed, lines left without
serials are deleted, and quantities are recomputed. Serials in the list
but on no line are kept for the assign command. Add --write to save the
order and the pending serials; without it --apply is a dry run.

Example:
  snrecon reconcile order.yaml --targets renewal.xlsx
  snrecon reconcile order.yaml --targets renewal.csv --apply --write`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Targets, "targets", "", "target serial list (required)")
	cmd.Flags().BoolVar(&opts.Apply, "apply", false, "apply the result to the order")
	cmd.Flags().BoolVar(&opts.Write, "write", false, "save the order and pending serials")
	_ = cmd.MarkFlagRequired("targets")

	return cmd
}

func runReconcile(opts *ReconcileOptions, path string, cmd *cobra.Command) (err error) {
	if opts.Write && !opts.Apply {
		return NewExitError(ExitCommandError, "--write requires --apply")
	}

	targets, err := targetlist.Read(opts.Targets)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read target list", err)
	}

	s, err := openSession(opts.RootOptions, path, opts.Write)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := s.close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	ctx := commandContext(cmd.Context())
	res, err := s.engine.Reconcile(ctx, targets)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to reconcile", err)
	}
	s.metrics.ObserveReconciliation(res)

	fp, err := ir.Fingerprint(ir.DomainReconciliation, res)
	if err != nil {
		return err
	}
	out := ReconcileOutput{Result: res, Fingerprint: fp}

	if opts.Apply {
		change, err := s.engine.Apply(ctx, res)
		if err != nil {
			return err
		}
		if err := s.doc.ApplyChanges(change.Changes); err != nil {
			return err
		}
		s.metrics.ObserveChanges(change.Changes)
		out.Applied = change

		wf := s.engine.Workflow()
		if wf.State() == engine.StateSelecting {
			out.Pending = wf.Remaining()
			if err := wf.Cancel(ctx); err != nil {
				return err
			}
		}
		if err := s.save(opts.Write); err != nil {
			return err
		}
	}

	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return f.Render(s.doc.Scope, out, func(w io.Writer) {
		writeReconciliation(w, res)
		if out.Applied != nil {
			fmt.Fprintf(w, "\nApplied %d change(s)", len(out.Applied.Changes))
			if !opts.Write {
				fmt.Fprint(w, " (dry run, use --write to save)")
			}
			fmt.Fprintln(w)
			if len(out.Pending) > 0 {
				fmt.Fprintf(w, "%d serial(s) pending assignment: %s\n", len(out.Pending), strings.Join(out.Pending, ", "))
			}
		}
	})
}

func writeReconciliation(w io.Writer, res *engine.ReconciliationResult) {
	fmt.Fprintf(w, "Matching:  %d\n", len(res.Matching))
	fmt.Fprintf(w, "To remove: %d\n", len(res.ToRemove))
	for _, ref := range res.ToRemove {
		fmt.Fprintf(w, "  - %s (line %s)\n", ref.Serial, ref.LineID)
	}
	fmt.Fprintf(w, "Missing:   %d\n", len(res.Missing))
	for _, s := range res.Missing {
		fmt.Fprintf(w, "  + %s\n", s)
	}
	if len(res.PositionsToDelete) > 0 {
		fmt.Fprintf(w, "Lines to delete: %s\n", strings.Join(res.PositionsToDelete, ", "))
	}
	for _, m := range res.MultiplyUsed {
		fmt.Fprintf(w, "Warning: %s appears on lines %s\n", m.Serial, strings.Join(m.LineIDs, ", "))
	}
}
