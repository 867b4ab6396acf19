package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewUndoCommand creates the undo command.
func NewUndoCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "undo <order.yaml>",
		Short: "Restore the order as it was before the last change",
		Long: `Restore the fields captured before the last saved fix, apply or
assignment of this order. Only the most recent change can be undone.

Example:
  snrecon undo order.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUndo(rootOpts, args[0], cmd)
		},
	}
}

func runUndo(opts *RootOptions, path string, cmd *cobra.Command) (err error) {
	s, err := openSession(opts, path, true)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := s.close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	n, err := s.engine.Undo(commandContext(cmd.Context()))
	if err != nil {
		return err
	}
	s.metrics.ObserveUndo(n)
	if err := s.save(n > 0); err != nil {
		return err
	}

	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return f.Render(s.doc.Scope, map[string]int{"restored": n}, func(w io.Writer) {
		if n == 0 {
			fmt.Fprintln(w, "Nothing to undo.")
			return
		}
		fmt.Fprintf(w, "Restored %d field(s).\n", n)
	})
}
