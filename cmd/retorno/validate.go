package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kingrea/retorno/internal/contracts"
)

// errInvalidWorkbook makes the process exit non-zero after the report is printed.
var errInvalidWorkbook = errors.New("workbook does not satisfy the roster contract")

// validateCmd checks a workbook without starting a session
var validateCmd = &cobra.Command{
	Use:   "validate [workbook]",
	Short: "Check that a workbook can be triaged",
	Long: `Reads the workbook (default: the configured input), decodes the
configured sheet and reports unreadable Resultado labels as errors.
Missing columns, repeated headers, duplicate customer codes and rows
without a phone number are reported as warnings.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	location := cfg.Input()
	if len(args) == 1 {
		location = args[0]
	}
	out := cmd.OutOrStdout()
	report, err := contracts.ValidateWorkbook(cmd.Context(), nil, location, cfg.Sheet())
	if err != nil {
		journal.Error("Validation of %s failed: %v", location, err)
		return fmt.Errorf("validation failed: %w", err)
	}
	for _, warning := range report.Warnings {
		fmt.Fprintf(out, "warning: %s\n", warning)
	}
	if len(report.Warnings) > 0 {
		fmt.Fprintf(out, "Expected columns: %s\n", contracts.RosterContract().Describe())
	}
	if report.IsValid() {
		journal.Info("Validated %s: %d rows", location, report.Rows)
		fmt.Fprintf(out, "OK: %s (sheet %s, %d rows)\n", report.Location, report.Sheet, report.Rows)
		return nil
	}
	journal.Warn("Validation of %s found %d problems", location, len(report.Errors))
	fmt.Fprintf(out, "Invalid: %s (sheet %s)\n", report.Location, report.Sheet)
	for _, validationErr := range report.Errors {
		fmt.Fprintf(out, "- %v\n", validationErr)
	}
	return errInvalidWorkbook
}
