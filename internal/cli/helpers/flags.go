package helpers

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// AddFormatFlag adds the standard --format/-o flag with shell completion
// over the supported formats.
func AddFormatFlag(cmd *cobra.Command, formatVar *string, defaultFormat OutputFormat, supported []OutputFormat) {
	names := formatNames(supported)

	cmd.Flags().StringVarP(formatVar, "format", "o", string(defaultFormat),
		fmt.Sprintf("Output format (%s)", strings.Join(names, ", ")))

	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return names, cobra.ShellCompDirectiveNoFileComp
	})
}

// AddVerboseFlag adds the standard --verbose/-v flag.
func AddVerboseFlag(cmd *cobra.Command, verboseVar *bool) {
	cmd.Flags().BoolVarP(verboseVar, "verbose", "v", false, "Verbose output (show additional details)")
}

// ValidateFormat rejects formats outside the supported list before any
// network work happens.
func ValidateFormat(format string, supported []OutputFormat) error {
	for _, s := range supported {
		if format == string(s) {
			return nil
		}
	}
	return fmt.Errorf("unsupported format %q, must be one of: %s",
		format, strings.Join(formatNames(supported), ", "))
}

func formatNames(formats []OutputFormat) []string {
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = string(f)
	}
	return names
}

// Confirm prompts for a literal "yes" before destructive operations.
func Confirm(in io.Reader, out io.Writer, prompt string) bool {
	_, _ = fmt.Fprintln(out, prompt)
	_, _ = fmt.Fprint(out, "Type 'yes' to confirm: ")

	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return false
	}
	return strings.TrimSpace(scanner.Text()) == "yes"
}
