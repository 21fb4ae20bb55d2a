package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rakyury/pmu30/internal/blob"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompileSummary describes a successful compilation.
type CompileSummary struct {
	Nodes    int    `json:"nodes"`
	Outputs  int    `json:"outputs"`
	Bytes    int    `json:"bytes"`
	BlobHash string `json:"blob_hash"`
	Output   string `json:"output,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <config-dir|config-file>",
		Short: "Compile a channel-definition document to a config blob",
		Long: `Compile a CUE channel-definition document to the binary
configuration blob the device loader consumes.

Records are emitted in ascending channel-ID order, which is also the
engine's evaluation order.

Example:
  pmuctl compile ./config -o pmu.blob
  pmuctl compile channels.cue -o pmu.blob --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	doc, err := LoadDocument(path)
	if err != nil {
		return outputDocumentError(formatter, err)
	}

	encoded, err := doc.Encode()
	if err != nil {
		code, message, _ := classifyError(err)
		_ = formatter.Error(code, message, nil)
		return NewExitError(ExitCommandError, message)
	}

	for _, rec := range doc.Records {
		formatter.VerboseLog("compiled %s as channel %d", rec.Name, rec.Channel)
	}

	summary := CompileSummary{
		Bytes:    len(encoded),
		BlobHash: blob.Hash(encoded),
		Output:   opts.Output,
	}
	for _, rec := range doc.Records {
		if rec.IsOutput() {
			summary.Outputs++
		} else {
			summary.Nodes++
		}
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, encoded, 0644); err != nil {
			message := fmt.Sprintf("writing output file: %v", err)
			_ = formatter.Error(ErrCodeWriteFailed, message, nil)
			return NewExitError(ExitCommandError, message)
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(summary)
	}

	fmt.Fprintf(formatter.Writer, "✓ Compiled %d node(s), %d output link(s) into %d bytes\n",
		summary.Nodes, summary.Outputs, summary.Bytes)
	fmt.Fprintf(formatter.Writer, "Blob hash: %s\n", summary.BlobHash)
	if opts.Output != "" {
		fmt.Fprintf(formatter.Writer, "Wrote config blob to %s\n", opts.Output)
	}
	return nil
}

// outputDocumentError reports a load/compile error and maps it to a
// command-level exit code.
func outputDocumentError(formatter *OutputFormatter, err error) error {
	code, message, pos := classifyError(err)
	if formatter.Format != "json" && pos.IsValid() {
		fmt.Fprintf(formatter.Writer, "%s:%d:%d\n", pos.Filename(), pos.Line(), pos.Column())
	}
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}
