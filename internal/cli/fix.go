package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/snrecon/internal/description"
	"github.com/roach88/snrecon/internal/engine"
)

// FixOptions holds flags for the fix command.
type FixOptions struct {
	*RootOptions
	Translate string
	Write     bool
}

// FixedLine is a description changed by fix.
type FixedLine struct {
	ID     string `json:"id"`
	Before string `json:"before"`
	After  string `json:"after"`
}

// NewFixCommand creates the fix command.
func NewFixCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FixOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fix <order.yaml>",
		Short: "Repair malformed line descriptions",
		Long: `Repair literal newlines, serial delimiters and service dates in every
line description, optionally translating labels to one language.

Without --write the repaired descriptions are only shown. With --write the
order is saved and the previous descriptions can be restored with undo.

Example:
  snrecon fix order.yaml
  snrecon fix order.yaml --translate en --write`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFix(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Translate, "translate", "", "translate labels to de or en")
	cmd.Flags().BoolVar(&opts.Write, "write", false, "save the repaired order")

	return cmd
}

func runFix(opts *FixOptions, path string, cmd *cobra.Command) (err error) {
	lang := description.Language(opts.Translate)
	if opts.Translate != "" && !description.ValidLanguage(lang) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid --translate %q: must be de or en", opts.Translate))
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

	fixed := []FixedLine{}
	for _, l := range s.doc.Items {
		after := description.ApplyAllFixes(l.Description)
		if opts.Translate != "" {
			after = description.TranslateLanguage(after, lang)
		}
		if after != l.Description {
			fixed = append(fixed, FixedLine{ID: l.ID, Before: l.Description, After: after})
		}
	}

	if opts.Write && len(fixed) > 0 {
		ctx := commandContext(cmd.Context())
		refs := make([]engine.FieldRef, len(fixed))
		for i, f := range fixed {
			refs[i] = engine.FieldRef{LineID: f.ID, Field: engine.FieldDescription}
		}
		if err := s.engine.Snapshot(ctx, refs...); err != nil {
			return err
		}
		for _, f := range fixed {
			if err := s.doc.WriteField(engine.FieldRef{LineID: f.ID, Field: engine.FieldDescription}, f.After); err != nil {
				return err
			}
		}
		if err := s.save(true); err != nil {
			return err
		}
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return out.Render(s.doc.Scope, fixed, func(w io.Writer) {
		if len(fixed) == 0 {
			fmt.Fprintln(w, "All descriptions are already clean.")
			return
		}
		for _, f := range fixed {
			fmt.Fprintf(w, "%s:\n", f.ID)
			writeIndented(w, "  - ", f.Before)
			writeIndented(w, "  + ", f.After)
		}
		if opts.Write {
			fmt.Fprintf(w, "\n%d line(s) repaired and saved\n", len(fixed))
		} else {
			fmt.Fprintf(w, "\n%d line(s) would change (use --write to save)\n", len(fixed))
		}
	})
}

func writeIndented(w io.Writer, prefix, text string) {
	for _, line := range strings.Split(text, "\n") {
		fmt.Fprintf(w, "%s%s\n", prefix, line)
	}
}
