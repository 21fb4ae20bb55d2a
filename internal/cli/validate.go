package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config-dir|config-file>",
		Short: "Validate a channel-definition document without writing output",
		Long: `Compile a CUE channel-definition document and report problems
without producing a blob. Errors carry source positions where CUE
provides them.

Exit codes:
  0 - document is valid
  1 - document has compile or validation errors
  2 - path not found or unreadable`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	doc, err := LoadDocument(path)
	if err != nil {
		code, message, pos := classifyError(err)
		// A missing or unreadable path is a command error; a document
		// that fails to compile is a validation failure.
		exitCode := ExitFailure
		if code == ErrCodeNotFound || code == ErrCodeLoadFailed || code == ErrCodeNoFiles {
			exitCode = ExitCommandError
		}
		if formatter.Format != "json" && pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n", pos.Filename(), pos.Line(), pos.Column())
		}
		_ = formatter.Error(code, message, nil)
		return NewExitError(exitCode, fmt.Sprintf("%s: %s", code, message))
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]any{
			"valid":   true,
			"records": len(doc.Records),
		})
	}

	fmt.Fprintf(formatter.Writer, "✓ Document is valid (%d record(s))\n", len(doc.Records))
	return nil
}
