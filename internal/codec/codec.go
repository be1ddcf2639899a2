package codec

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// DefaultSheet is the sheet name shared by the input roster and the export.
const DefaultSheet = "retorno"

var (
	// ErrMissingSheet is returned when the workbook has no sheet with the agreed name.
	ErrMissingSheet = errors.New("codec: sheet not found")
	// ErrDecode is returned when the blob is not a readable workbook.
	ErrDecode = errors.New("codec: unreadable workbook")
)

// Row is one spreadsheet row keyed by header cell.
type Row map[string]string

// Kind is the stored type of a cell. Values always travel as the raw cell
// text; Kind tells Encode how to write them back.
type Kind int

const (
	KindText Kind = iota
	KindNumber
	KindDate
	KindBool
)

// RowKinds holds the non-text cells of one row. Missing keys are text.
type RowKinds map[string]Kind

// ColumnRename records a repeated header cell that was given a new name.
type ColumnRename struct {
	Original string
	Column   string
}

// Sheet is the decoded content of the agreed sheet.
type Sheet struct {
	Name   string
	Header []string
	Rows   []Row
	// Kinds runs parallel to Rows and may be shorter or nil.
	Kinds []RowKinds
	// Renamed lists repeated header names and the column each was stored under.
	Renamed []ColumnRename
}

// KindOf returns the kind of column col in row i.
func (s Sheet) KindOf(i int, col string) Kind {
	if i < 0 || i >= len(s.Kinds) {
		return KindText
	}
	return s.Kinds[i][col]
}

// Codec reads and writes a single named sheet.
type Codec struct {
	sheet string
}

// New returns a codec bound to sheet. An empty name falls back to DefaultSheet.
func New(sheet string) *Codec {
	sheet = strings.TrimSpace(sheet)
	if sheet == "" {
		sheet = DefaultSheet
	}
	return &Codec{sheet: sheet}
}

// SheetName reports the sheet this codec reads and writes.
func (c *Codec) SheetName() string {
	return c.sheet
}

// Decode reads the agreed sheet out of blob. The first non-empty row is the
// header; blank rows are skipped and header cells that are empty are dropped.
// A repeated header name is kept under Name_2, Name_3 and so on. Cell values
// are read raw; numbers, dates and booleans are noted in Sheet.Kinds.
func (c *Codec) Decode(blob []byte) (Sheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(blob))
	if err != nil {
		return Sheet{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	defer f.Close()

	if !hasSheet(f, c.sheet) {
		return Sheet{}, fmt.Errorf("%w: %q", ErrMissingSheet, c.sheet)
	}
	grid, err := f.GetRows(c.sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return Sheet{}, fmt.Errorf("%w: read %q: %v", ErrDecode, c.sheet, err)
	}
	kinds := &kindReader{f: f, sheet: c.sheet, dateStyles: map[int]bool{}}
	return buildSheet(c.sheet, grid, kinds.kind), nil
}

// Encode writes sheet into a fresh workbook containing only the agreed sheet.
// Column order follows sheet.Header; rows keep their order.
func (c *Codec) Encode(sheet Sheet) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), c.sheet); err != nil {
		return nil, fmt.Errorf("codec: name sheet: %w", err)
	}
	if err := writeRow(f, c.sheet, 1, stringsToCells(sheet.Header)); err != nil {
		return nil, err
	}
	styles := map[int]int{}
	for i, row := range sheet.Rows {
		rowNum := i + 2
		cells := make([]interface{}, len(sheet.Header))
		var dates []int
		for col, key := range sheet.Header {
			value, isDate := typedValue(row[key], sheet.KindOf(i, key))
			cells[col] = value
			if isDate {
				dates = append(dates, col)
			}
		}
		if err := writeRow(f, c.sheet, rowNum, cells); err != nil {
			return nil, err
		}
		for _, col := range dates {
			if err := styleDate(f, c.sheet, styles, col+1, rowNum, cells[col].(float64)); err != nil {
				return nil, err
			}
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("codec: write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func hasSheet(f *excelize.File, name string) bool {
	for _, candidate := range f.GetSheetList() {
		if candidate == name {
			return true
		}
	}
	return false
}

func writeRow(f *excelize.File, sheet string, rowNum int, cells []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("codec: row %d: %w", rowNum, err)
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("codec: write row %d: %w", rowNum, err)
	}
	return nil
}

func stringsToCells(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// typedValue converts raw back to the value excelize should store. Values
// that no longer parse as their kind are written as text.
func typedValue(raw string, kind Kind) (interface{}, bool) {
	switch kind {
	case KindNumber, KindDate:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return raw, false
		}
		return f, kind == KindDate
	case KindBool:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return raw, false
		}
		return b, false
	}
	return raw, false
}

// styleDate gives a date serial a date format: whole days as a short date,
// anything with a time part as date and time.
func styleDate(f *excelize.File, sheet string, styles map[int]int, col, row int, serial float64) error {
	numFmt := 14
	if serial != float64(int64(serial)) {
		numFmt = 22
	}
	id, ok := styles[numFmt]
	if !ok {
		var err error
		id, err = f.NewStyle(&excelize.Style{NumFmt: numFmt})
		if err != nil {
			return fmt.Errorf("codec: date style: %w", err)
		}
		styles[numFmt] = id
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("codec: row %d: %w", row, err)
	}
	if err := f.SetCellStyle(sheet, cell, cell, id); err != nil {
		return fmt.Errorf("codec: style %s: %w", cell, err)
	}
	return nil
}

// kindReader classifies cells of an open workbook. Style lookups are cached
// per style index.
type kindReader struct {
	f          *excelize.File
	sheet      string
	dateStyles map[int]bool
}

// kind classifies the cell at 1-based col and row holding raw.
func (k *kindReader) kind(col, row int, raw string) Kind {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return KindText
	}
	typ, err := k.f.GetCellType(k.sheet, cell)
	if err != nil {
		return KindText
	}
	switch typ {
	case excelize.CellTypeBool:
		return KindBool
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		if _, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err != nil {
			return KindText
		}
		if k.isDate(cell) {
			return KindDate
		}
		return KindNumber
	}
	return KindText
}

func (k *kindReader) isDate(cell string) bool {
	idx, err := k.f.GetCellStyle(k.sheet, cell)
	if err != nil {
		return false
	}
	if known, ok := k.dateStyles[idx]; ok {
		return known
	}
	date := false
	if style, err := k.f.GetStyle(idx); err == nil && style != nil {
		date = dateNumFmt(style.NumFmt)
		if !date && style.CustomNumFmt != nil {
			date = dateFormatCode(*style.CustomNumFmt)
		}
	}
	k.dateStyles[idx] = date
	return date
}

// dateNumFmt reports whether a built-in number format shows a date or time.
func dateNumFmt(id int) bool {
	return (id >= 14 && id <= 22) || (id >= 45 && id <= 47)
}

// dateFormatCode reports whether a custom format code shows a date or time.
// Quoted literals and bracketed sections such as colours are ignored.
func dateFormatCode(code string) bool {
	var quoted, bracket bool
	for _, r := range strings.ToLower(code) {
		switch {
		case r == '"':
			quoted = !quoted
		case quoted:
		case r == '[':
			bracket = true
		case r == ']':
			bracket = false
		case bracket:
		case r == 'y', r == 'd', r == 'h', r == 's':
			return true
		}
	}
	return false
}

func buildSheet(name string, grid [][]string, kindOf func(col, row int, raw string) Kind) Sheet {
	sheet := Sheet{Name: name}
	start := -1
	for i, row := range grid {
		if !blank(row) {
			start = i
			break
		}
	}
	if start < 0 {
		return sheet
	}
	// header position -> column name; empty header cells are skipped.
	columns := map[int]string{}
	seen := map[string]struct{}{}
	for _, cell := range grid[start] {
		if name := strings.TrimSpace(cell); name != "" {
			seen[name] = struct{}{}
		}
	}
	taken := map[string]struct{}{}
	for idx, cell := range grid[start] {
		name := strings.TrimSpace(cell)
		if name == "" {
			continue
		}
		column := name
		if _, dup := taken[name]; dup {
			column = freeName(name, seen)
			sheet.Renamed = append(sheet.Renamed, ColumnRename{Original: name, Column: column})
		}
		taken[column] = struct{}{}
		seen[column] = struct{}{}
		columns[idx] = column
		sheet.Header = append(sheet.Header, column)
	}
	for offset, raw := range grid[start+1:] {
		if blank(raw) {
			continue
		}
		rowNum := start + offset + 2
		row := make(Row, len(columns))
		var kinds RowKinds
		for idx, key := range columns {
			if idx >= len(raw) {
				continue
			}
			row[key] = raw[idx]
			if kindOf == nil || raw[idx] == "" {
				continue
			}
			if kind := kindOf(idx+1, rowNum, raw[idx]); kind != KindText {
				if kinds == nil {
					kinds = RowKinds{}
				}
				kinds[key] = kind
			}
		}
		sheet.Rows = append(sheet.Rows, row)
		sheet.Kinds = append(sheet.Kinds, kinds)
	}
	return sheet
}

// freeName returns the first of name_2, name_3, ... not present in seen.
func freeName(name string, seen map[string]struct{}) string {
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s_%d", name, n)
		if _, ok := seen[candidate]; !ok {
			return candidate
		}
	}
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
