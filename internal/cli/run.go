package cli

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rakyury/pmu30/internal/blob"
	"github.com/rakyury/pmu30/internal/engine"
	"github.com/rakyury/pmu30/internal/registry"
	"github.com/rakyury/pmu30/internal/testutil"
	"github.com/rakyury/pmu30/internal/trace"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Ticks  int
	TickMS int
	Script string
	Record string
}

// ScriptStep is one scripted input write, applied before its tick.
type ScriptStep struct {
	AtTick  int    `yaml:"at_tick"`
	Channel uint16 `yaml:"channel"`
	Value   int32  `yaml:"value"`
}

// inputScript is the YAML shape of a --script file.
type inputScript struct {
	Inputs []ScriptStep `yaml:"inputs"`
}

// RunSummary is the run command's output.
type RunSummary struct {
	Ticks      int                     `json:"ticks"`
	BlobHash   string                  `json:"blob_hash"`
	Actuations int                     `json:"actuations"`
	Channels   []registry.ChannelValue `json:"channels"`
	Session    string                  `json:"session,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <blob-file>",
		Short: "Simulate a config blob for a number of ticks",
		Long: `Load a configuration blob into the execution engine and run it
for a fixed number of ticks, optionally driving external inputs from a
YAML script and recording the run into a trace database.

Example:
  pmuctl run pmu.blob --ticks 50
  pmuctl run pmu.blob --ticks 50 --script inputs.yaml --record trace.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Ticks, "ticks", 100, "number of ticks to simulate")
	cmd.Flags().IntVar(&opts.TickMS, "tick-ms", 100, "tick interval in milliseconds")
	cmd.Flags().StringVar(&opts.Script, "script", "", "YAML input script")
	cmd.Flags().StringVar(&opts.Record, "record", "", "record the run into this trace database")

	return cmd
}

func runSimulation(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	configureLogging(opts.Verbose)

	if opts.Ticks <= 0 || opts.TickMS <= 0 {
		message := "--ticks and --tick-ms must be positive"
		_ = formatter.Error(ErrCodeGeneric, message, nil)
		return NewExitError(ExitCommandError, message)
	}

	config, err := os.ReadFile(path)
	if err != nil {
		message := fmt.Sprintf("reading blob: %v", err)
		_ = formatter.Error(ErrCodeNotFound, message, nil)
		return NewExitError(ExitCommandError, message)
	}
	records, err := blob.Decode(config)
	if err != nil {
		message := fmt.Sprintf("decoding blob: %v", err)
		_ = formatter.Error(ErrCodeBadBlob, message, nil)
		return NewExitError(ExitCommandError, message)
	}

	var script inputScript
	if opts.Script != "" {
		if err := loadScript(opts.Script, &script); err != nil {
			message := fmt.Sprintf("loading script: %v", err)
			_ = formatter.Error(ErrCodeLoadFailed, message, nil)
			return NewExitError(ExitCommandError, message)
		}
	}
	inputsByTick := make(map[int][]ScriptStep)
	for _, step := range script.Inputs {
		if step.AtTick < 1 || step.AtTick > opts.Ticks {
			message := fmt.Sprintf("script input at tick %d outside 1..%d", step.AtTick, opts.Ticks)
			_ = formatter.Error(ErrCodeGeneric, message, nil)
			return NewExitError(ExitCommandError, message)
		}
		inputsByTick[step.AtTick] = append(inputsByTick[step.AtTick], step)
	}

	reg := registry.NewMemory()
	driver := testutil.NewRecordingDriver()
	eng := engine.New(reg, driver)
	if _, err := eng.LoadConfig(config, nil); err != nil {
		message := fmt.Sprintf("loading config: %v", err)
		_ = formatter.Error(ErrCodeBadBlob, message, nil)
		return NewExitError(ExitCommandError, message)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var store *trace.Store
	var session trace.Session
	if opts.Record != "" {
		store, err = trace.Open(opts.Record)
		if err != nil {
			message := fmt.Sprintf("opening trace database: %v", err)
			_ = formatter.Error(ErrCodeNotFound, message, nil)
			return NewExitError(ExitCommandError, message)
		}
		defer store.Close()

		session, err = store.BeginSession(ctx, config, opts.TickMS)
		if err != nil {
			message := fmt.Sprintf("beginning trace session: %v", err)
			_ = formatter.Error(ErrCodeGeneric, message, nil)
			return NewExitError(ExitCommandError, message)
		}
		slog.Info("recording session", "token", session.Token, "db", opts.Record)
	}

	watch := make([]engine.Channel, 0, len(records))
	for _, rec := range records {
		watch = append(watch, rec.Channel)
	}
	prev := make(map[engine.Channel]int32, len(watch))
	clock := testutil.NewStepClock(time.Duration(opts.TickMS) * time.Millisecond)

	for tick := 1; tick <= opts.Ticks; tick++ {
		for _, step := range inputsByTick[tick] {
			if err := reg.Set(engine.Channel(step.Channel), step.Value); err != nil {
				return WrapExitError(ExitCommandError, fmt.Sprintf("input at tick %d", tick), err)
			}
			if store != nil {
				in := trace.Input{Tick: tick, Channel: step.Channel, Value: step.Value}
				if err := store.RecordInput(ctx, session.Token, in); err != nil {
					return WrapExitError(ExitCommandError, "recording input", err)
				}
			}
		}

		before := len(driver.Actuations)
		eng.Tick(clock.Next())

		if store != nil {
			var writes []trace.Write
			for _, ch := range watch {
				if v := eng.ChannelValue(ch); v != prev[ch] {
					writes = append(writes, trace.Write{Tick: tick, Channel: uint16(ch), Value: v})
					prev[ch] = v
				}
			}
			var acts []trace.Actuation
			for i, a := range driver.Actuations[before:] {
				acts = append(acts, trace.Actuation{Tick: tick, Seq: i, Output: a.Index, On: a.On})
			}
			if err := store.RecordTick(ctx, session.Token, tick, writes, acts); err != nil {
				return WrapExitError(ExitCommandError, "recording tick", err)
			}
		}
	}

	if store != nil {
		if err := store.FinishSession(ctx, session.Token, opts.Ticks); err != nil {
			return WrapExitError(ExitCommandError, "finishing session", err)
		}
	}

	summary := RunSummary{
		Ticks:      opts.Ticks,
		BlobHash:   blob.Hash(config),
		Actuations: len(driver.Actuations),
		Channels:   reg.Snapshot(),
		Session:    session.Token,
	}

	if formatter.Format == "json" {
		return formatter.Success(summary)
	}

	fmt.Fprintf(formatter.Writer, "✓ Ran %d tick(s), %d actuation(s)\n", summary.Ticks, summary.Actuations)
	for _, cv := range summary.Channels {
		fmt.Fprintf(formatter.Writer, "  channel %5d = %d\n", cv.Channel, cv.Value)
	}
	if summary.Session != "" {
		fmt.Fprintf(formatter.Writer, "Recorded session %s\n", summary.Session)
	}
	return nil
}

// loadScript parses a YAML input script with strict field checking.
func loadScript(path string, script *inputScript) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	return decoder.Decode(script)
}

// configureLogging sets the default slog level from the verbose flag.
func configureLogging(verbose bool) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}
