package contracts

import (
	"fmt"
	"strings"

	"github.com/kingrea/retorno/internal/codec"
	"github.com/kingrea/retorno/internal/roster"
)

// Findings splits validation output into blocking errors and advisories.
type Findings struct {
	Errors   []error
	Warnings []string
}

// ValidateSheet checks a decoded sheet against the roster contract.
// Unreadable Resultado labels are errors. Missing expected columns and rows
// that load but lose information are warnings, since the engine loads any
// subset of the columns.
func ValidateSheet(sheet codec.Sheet) Findings {
	var out Findings
	header := map[string]struct{}{}
	for _, col := range sheet.Header {
		header[col] = struct{}{}
	}
	for _, group := range rosterContract.ExpectedColumns {
		found := false
		for _, name := range group {
			if _, ok := header[name]; ok {
				found = true
				break
			}
		}
		if !found {
			out.Warnings = append(out.Warnings, fmt.Sprintf("missing column %s", strings.Join(group, " or ")))
		}
	}
	for _, r := range sheet.Renamed {
		out.Warnings = append(out.Warnings, fmt.Sprintf("column %s appears more than once; the repeat is kept as %s", r.Original, r.Column))
	}
	if len(sheet.Rows) == 0 {
		out.Warnings = append(out.Warnings, "sheet has no data rows")
	}

	for index, row := range sheet.Rows {
		label := strings.TrimSpace(row[roster.ColumnResult])
		status, ok := roster.ParseStatus(label)
		if !ok {
			out.Errors = append(out.Errors, fmt.Errorf("rows[%d].%s: unknown label %q", index, roster.ColumnResult, label))
		}
		if strings.TrimSpace(row[roster.ColumnPhone]) == "" {
			out.Warnings = append(out.Warnings, fmt.Sprintf("rows[%d]: no phone number", index))
		}
		if ok && status != roster.StatusNotPurchased && strings.TrimSpace(row[roster.ColumnReason]) != "" {
			out.Warnings = append(out.Warnings, fmt.Sprintf("rows[%d].%s is dropped unless %s is %q",
				index, roster.ColumnReason, roster.ColumnResult, roster.LabelNotPurchased))
		}
	}

	report := roster.NewStore().Load(sheet)
	for _, code := range report.DuplicateCodes {
		out.Warnings = append(out.Warnings, fmt.Sprintf("code %s appears in more than one row", code))
	}
	return out
}
