package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/snrecon/internal/description"
	"github.com/roach88/snrecon/internal/ir"
	"github.com/roach88/snrecon/internal/order"
)

// ParsedLine is the structured view of one order line.
type ParsedLine struct {
	ID          string                       `json:"id"`
	Quantity    int                          `json:"quantity"`
	Product     string                       `json:"product,omitempty"`
	Description *description.LineDescription `json:"description"`
	// Fingerprint identifies the raw description text.
	Fingerprint string `json:"fingerprint"`
}

// NewParseCommand creates the parse command.
func NewParseCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "parse <order.yaml>",
		Short: "Show the structured form of every line description",
		Long: `Parse each line description into serials, service dates, language and
unmanaged lines.

Example:
  snrecon parse order.yaml
  snrecon parse order.yaml --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(rootOpts, args[0], cmd)
		},
	}
}

func runParse(opts *RootOptions, path string, cmd *cobra.Command) error {
	doc, err := order.Load(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load order", err)
	}

	parsed := make([]ParsedLine, len(doc.Items))
	for i, l := range doc.Items {
		parsed[i] = ParsedLine{
			ID:          l.ID,
			Quantity:    l.Quantity,
			Product:     l.Product,
			Description: description.Parse(l.Description),
			Fingerprint: ir.DescriptionFingerprint(l.Description),
		}
	}

	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return f.Render(doc.Scope, parsed, func(w io.Writer) {
		for _, p := range parsed {
			writeParsedLine(w, p)
		}
	})
}

func writeParsedLine(w io.Writer, p ParsedLine) {
	d := p.Description
	fmt.Fprintf(w, "%s (quantity %d)\n", p.ID, p.Quantity)
	fmt.Fprintf(w, "  serials:  %s\n", orDash(strings.Join(d.Serials, ", ")))
	fmt.Fprintf(w, "  start:    %s\n", orDash(dateText(d.ServiceStart, d.StartField)))
	fmt.Fprintf(w, "  end:      %s\n", orDash(dateText(d.ServiceEnd, d.EndField)))
	fmt.Fprintf(w, "  language: %s\n", d.Language)
	for _, o := range d.OtherLines {
		fmt.Fprintf(w, "  | %s\n", o)
	}
}

func dateText(date *description.Date, f description.Field) string {
	if date != nil {
		return date.String()
	}
	return f.Value
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
