package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/snrecon/internal/description"
)

// LineHealth is the audit outcome of one line.
type LineHealth struct {
	ID     string                   `json:"id"`
	Status description.HealthStatus `json:"status"`
	Reason string                   `json:"reason,omitempty"`
}

// AuditResult holds the audit of an order.
type AuditResult struct {
	Lines    []LineHealth `json:"lines"`
	Findings int          `json:"findings"`
}

// NewAuditCommand creates the audit command.
func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "audit <order.yaml>",
		Short: "Check every line description for structural problems",
		Long: `Audit each line description and report its health status.

Exit codes:
  0 - All lines are ok
  1 - At least one line needs attention
  2 - Command error

Example:
  snrecon audit order.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(rootOpts, args[0], cmd)
		},
	}
}

func runAudit(opts *RootOptions, path string, cmd *cobra.Command) (err error) {
	s, err := openSession(opts, path, false)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := s.close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	items, err := s.engine.Lines(commandContext(cmd.Context()))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read lines", err)
	}

	auditor := description.NewAuditor(s.engine.Rules())
	result := AuditResult{Lines: make([]LineHealth, 0, len(items))}
	for _, item := range items {
		h := auditor.Audit(item.Description, item.Quantity, item.Manufacturer, item.ProductName)
		s.metrics.ObserveAudit(h.Status)
		if !h.OK() {
			result.Findings++
		}
		result.Lines = append(result.Lines, LineHealth{ID: item.ID, Status: h.Status, Reason: h.Reason})
	}

	var failure *CLIError
	if result.Findings > 0 {
		failure = &CLIError{Code: CodeAuditFindings, Message: fmt.Sprintf("%d line(s) need attention", result.Findings)}
	}
	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if err := f.Report(s.doc.Scope, result, failure, func(w io.Writer) {
		for _, l := range result.Lines {
			if l.Reason != "" {
				fmt.Fprintf(w, "%-8s %-20s %s\n", l.ID, l.Status, l.Reason)
			} else {
				fmt.Fprintf(w, "%-8s %s\n", l.ID, l.Status)
			}
		}
		fmt.Fprintf(w, "\n%d line(s), %d finding(s)\n", len(result.Lines), result.Findings)
	}); err != nil {
		return err
	}

	if failure != nil {
		return NewExitError(ExitFailure, failure.Message)
	}
	return nil
}
