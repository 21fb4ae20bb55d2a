package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rakyury/pmu30/internal/blob"
	"github.com/rakyury/pmu30/internal/compiler"
	"github.com/rakyury/pmu30/internal/engine"
)

// InspectRecord is the decoded form of one blob record for display.
type InspectRecord struct {
	Channel  uint16 `json:"channel"`
	Kind     string `json:"kind"` // node type name or "output"
	Name     string `json:"name,omitempty"`
	Disabled bool   `json:"disabled,omitempty"`
	Source   uint16 `json:"source,omitempty"`   // output records
	HWIndex  int    `json:"hw_index,omitempty"` // output records
	Default  int32  `json:"default,omitempty"`
	Payload  int    `json:"payload_bytes,omitempty"`
}

// InspectResult is the inspect command's output.
type InspectResult struct {
	BlobHash string                     `json:"blob_hash"`
	Records  []InspectRecord            `json:"records"`
	Findings []compiler.ValidationError `json:"findings,omitempty"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <blob-file>",
		Short: "Decode a config blob and list its records",
		Long: `Decode a binary configuration blob, list its records, and
re-validate them against the engine's table shape.

Exit codes:
  0 - blob decodes and validates cleanly
  1 - blob decodes but has validation findings
  2 - file missing or blob malformed`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runInspect(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		message := fmt.Sprintf("reading blob: %v", err)
		_ = formatter.Error(ErrCodeNotFound, message, nil)
		return NewExitError(ExitCommandError, message)
	}

	records, err := blob.Decode(data)
	if err != nil {
		message := fmt.Sprintf("decoding blob: %v", err)
		_ = formatter.Error(ErrCodeBadBlob, message, nil)
		return NewExitError(ExitCommandError, message)
	}

	result := InspectResult{
		BlobHash: blob.Hash(data),
		Records:  make([]InspectRecord, 0, len(records)),
		Findings: compiler.Validate(&compiler.Document{Records: records}),
	}
	for _, rec := range records {
		row := InspectRecord{
			Channel:  uint16(rec.Channel),
			Name:     rec.Name,
			Disabled: rec.Flags&engine.FlagDisabled != 0,
			Default:  rec.Default,
			Payload:  len(rec.Payload),
		}
		if rec.IsOutput() {
			row.Kind = "output"
			row.Source = uint16(rec.Source)
			row.HWIndex = int(rec.HWIndex)
		} else if t, ok := rec.NodeType(); ok {
			row.Kind = t.String()
		} else {
			row.Kind = fmt.Sprintf("unknown(0x%02x)", rec.Type)
		}
		result.Records = append(result.Records, row)
	}

	if formatter.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(formatter.Writer, "Blob hash: %s\n", result.BlobHash)
		fmt.Fprintf(formatter.Writer, "%d record(s):\n", len(result.Records))
		for _, r := range result.Records {
			line := fmt.Sprintf("  %5d  %-12s %s", r.Channel, r.Kind, r.Name)
			if r.Kind == "output" {
				line += fmt.Sprintf("  source=%d hw_index=%d", r.Source, r.HWIndex)
			}
			if r.Disabled {
				line += "  (disabled)"
			}
			fmt.Fprintln(formatter.Writer, line)
		}
		for _, f := range result.Findings {
			fmt.Fprintf(formatter.Writer, "✗ [%s] %s: %s\n", f.Code, f.Field, f.Message)
		}
	}

	if len(result.Findings) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("blob has %d validation finding(s)", len(result.Findings)))
	}
	return nil
}
