package contracts

import (
	"context"
	"fmt"

	"github.com/kingrea/retorno/internal/codec"
	"github.com/kingrea/retorno/internal/source"
)

// Report captures validation results for a workbook.
type Report struct {
	Location string
	Sheet    string
	Rows     int
	Errors   []error
	Warnings []string
}

// ValidateWorkbook fetches, decodes and validates a workbook. A workbook
// that cannot be read or lacks the sheet is returned as an error rather
// than a report.
func ValidateWorkbook(ctx context.Context, fetcher *source.Fetcher, location, sheet string) (*Report, error) {
	if fetcher == nil {
		fetcher = source.New()
	}
	blob, err := fetcher.Fetch(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("read workbook: %w", err)
	}
	c := codec.New(sheet)
	decoded, err := c.Decode(blob)
	if err != nil {
		return nil, fmt.Errorf("decode workbook: %w", err)
	}
	findings := ValidateSheet(decoded)
	return &Report{
		Location: location,
		Sheet:    c.SheetName(),
		Rows:     len(decoded.Rows),
		Errors:   findings.Errors,
		Warnings: findings.Warnings,
	}, nil
}

// IsValid reports whether the validation passed.
func (r *Report) IsValid() bool {
	return r != nil && len(r.Errors) == 0
}
