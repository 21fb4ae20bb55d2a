package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rakyury/pmu30/internal/trace"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Session  string
	FromTick int
	ToTick   int
	Channel  int // -1 when unset
	Output   int // -1 when unset
}

// SessionSummary is one session row for display.
type SessionSummary struct {
	Token     string `json:"token"`
	StartedAt string `json:"started_at"`
	BlobHash  string `json:"blob_hash"`
	TickMS    int    `json:"tick_ms"`
	Ticks     int    `json:"ticks"`
}

// TraceResult holds one session's filtered trace.
type TraceResult struct {
	Session    string            `json:"session"`
	Writes     []trace.Write     `json:"writes"`
	Actuations []trace.Actuation `json:"actuations"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace <trace-db>",
		Short: "Query recorded sessions and their traces",
		Long: `List recorded sessions, or show one session's channel writes and
actuations filtered by tick range, channel or output.

Example:
  pmuctl trace trace.db
  pmuctl trace trace.db --session <token> --from 10 --to 20 --channel 100`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Session, "session", "", "session token to show")
	cmd.Flags().IntVar(&opts.FromTick, "from", 0, "first tick to include")
	cmd.Flags().IntVar(&opts.ToTick, "to", 0, "last tick to include")
	cmd.Flags().IntVar(&opts.Channel, "channel", -1, "only writes to this channel")
	cmd.Flags().IntVar(&opts.Output, "output", -1, "only actuations of this output")

	return cmd
}

func runTrace(opts *TraceOptions, dbPath string, cmd *cobra.Command) error {
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

	if opts.Session == "" {
		return listSessions(ctx, store, formatter)
	}
	return showSession(ctx, store, opts, formatter)
}

func listSessions(ctx context.Context, store *trace.Store, formatter *OutputFormatter) error {
	sessions, err := store.ListSessions(ctx)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "listing sessions", err)
	}

	summaries := make([]SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		summaries = append(summaries, SessionSummary{
			Token:     s.Token,
			StartedAt: s.StartedAt.Format(time.RFC3339),
			BlobHash:  s.BlobHash,
			TickMS:    s.TickMS,
			Ticks:     s.Ticks,
		})
	}

	if formatter.Format == "json" {
		return formatter.Success(summaries)
	}

	if len(summaries) == 0 {
		fmt.Fprintln(formatter.Writer, "No recorded sessions.")
		return nil
	}
	fmt.Fprintf(formatter.Writer, "%d session(s):\n", len(summaries))
	for _, s := range summaries {
		fmt.Fprintf(formatter.Writer, "  %s  %s  %d tick(s) @ %dms  blob %s\n",
			s.Token, s.StartedAt, s.Ticks, s.TickMS, s.BlobHash[:12])
	}
	return nil
}

func showSession(ctx context.Context, store *trace.Store, opts *TraceOptions, formatter *OutputFormatter) error {
	filter := trace.Filter{FromTick: opts.FromTick, ToTick: opts.ToTick}
	if opts.Channel >= 0 {
		ch := uint16(opts.Channel)
		filter.Channel = &ch
	}
	if opts.Output >= 0 {
		out := opts.Output
		filter.Output = &out
	}

	// Resolve the session first so an unknown token fails cleanly.
	if _, err := store.GetSession(ctx, opts.Session); err != nil {
		code := ErrCodeGeneric
		if errors.Is(err, trace.ErrSessionNotFound) {
			code = ErrCodeNotFound
		}
		_ = formatter.Error(code, err.Error(), nil)
		return WrapExitError(ExitCommandError, "loading session", err)
	}

	writes, err := store.ReadWrites(ctx, opts.Session, filter)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "reading writes", err)
	}
	acts, err := store.ReadActuations(ctx, opts.Session, filter)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "reading actuations", err)
	}

	result := TraceResult{Session: opts.Session, Writes: writes, Actuations: acts}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "Session %s\n", result.Session)
	fmt.Fprintf(formatter.Writer, "%d write(s):\n", len(writes))
	for _, w := range writes {
		fmt.Fprintf(formatter.Writer, "  tick %4d  channel %5d = %d\n", w.Tick, w.Channel, w.Value)
	}
	fmt.Fprintf(formatter.Writer, "%d actuation(s):\n", len(acts))
	for _, a := range acts {
		fmt.Fprintf(formatter.Writer, "  tick %4d  output %2d -> %v\n", a.Tick, a.Output, a.On)
	}
	return nil
}
