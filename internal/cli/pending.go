package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/snrecon/internal/engine"
)

// PendingScope lists the serials awaiting assignment for one order.
type PendingScope struct {
	Scope   string   `json:"scope"`
	Serials []string `json:"serials"`
}

// NewPendingCommand creates the pending command.
func NewPendingCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List orders with serials awaiting assignment",
		Long: `List every order scope with serials left pending by reconcile or assign.

Exit codes:
  0 - Nothing pending
  1 - At least one order has pending serials
  2 - Command error`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPending(rootOpts, cmd)
		},
	}
}

func runPending(opts *RootOptions, cmd *cobra.Command) (err error) {
	b, err := openBackend(opts)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := b.close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	ctx := commandContext(cmd.Context())
	keys, err := b.store.Keys(ctx, engine.LeftoverKeyPrefix)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list pending serials", err)
	}

	pending := []PendingScope{}
	for _, key := range keys {
		raw, ok, err := b.store.Get(ctx, key)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read pending serials", err)
		}
		if !ok {
			continue
		}
		var serials []string
		if err := json.Unmarshal([]byte(raw), &serials); err != nil {
			b.logger.Warn("ignoring unreadable leftovers", zap.String("key", key), zap.Error(err))
			continue
		}
		if len(serials) == 0 {
			continue
		}
		pending = append(pending, PendingScope{
			Scope:   strings.TrimPrefix(key, engine.LeftoverKeyPrefix),
			Serials: serials,
		})
	}

	var failure *CLIError
	if len(pending) > 0 {
		failure = &CLIError{Code: CodePending, Message: fmt.Sprintf("%d order(s) with pending serials", len(pending))}
	}
	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if err := f.Report("", pending, failure, func(w io.Writer) {
		if len(pending) == 0 {
			fmt.Fprintln(w, "No serials pending.")
			return
		}
		for _, p := range pending {
			fmt.Fprintf(w, "%s: %s\n", p.Scope, strings.Join(p.Serials, ", "))
		}
	}); err != nil {
		return err
	}

	if failure != nil {
		return NewExitError(ExitFailure, failure.Message)
	}
	return nil
}
