package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rakyury/pmu30/internal/trace"
)

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <trace-db> <session-token>",
		Short: "Re-run a recorded session and verify determinism",
		Long: `Re-run a recorded session from its stored config blob and inputs,
and compare the resulting actuation sequence against the recording.

Exit codes:
  0 - replay reproduced the recorded actuations exactly
  1 - replay diverged from the recording
  2 - database or session not found`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(rootOpts, args[0], args[1], cmd)
		},
	}

	return cmd
}

func runReplay(opts *RootOptions, dbPath, token string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	store, err := trace.Open(dbPath)
	if err != nil {
		message := fmt.Sprintf("opening trace database: %v", err)
		_ = formatter.Error(ErrCodeNotFound, message, nil)
		return NewExitError(ExitCommandError, message)
	}
	defer store.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result, err := store.Replay(ctx, token)
	if err != nil {
		code := ErrCodeGeneric
		if errors.Is(err, trace.ErrSessionNotFound) {
			code = ErrCodeNotFound
		}
		_ = formatter.Error(code, err.Error(), nil)
		return WrapExitError(ExitCommandError, "replay failed", err)
	}

	if formatter.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else if result.Match {
		fmt.Fprintf(formatter.Writer, "✓ Replay of %s matched over %d tick(s)\n", result.Token, result.Ticks)
	} else {
		fmt.Fprintf(formatter.Writer, "✗ Replay of %s diverged:\n", result.Token)
		for _, m := range result.Mismatches {
			fmt.Fprintf(formatter.Writer, "  %s\n", m)
		}
	}

	if !result.Match {
		return NewExitError(ExitFailure, fmt.Sprintf("replay diverged with %d mismatch(es)", len(result.Mismatches)))
	}
	return nil
}
