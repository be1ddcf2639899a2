package roster

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/kingrea/retorno/internal/codec"
)

// ErrRecordNotFound is returned when an identifier does not resolve to a
// record in the current roster.
var ErrRecordNotFound = errors.New("roster: record not found")

// IDGenerator produces the synthetic identifiers assigned at load.
type IDGenerator func() string

// UUIDv7 prefixes time-ordered UUIDs with "rec_".
func UUIDv7() IDGenerator {
	return func() string {
		return "rec_" + uuid.Must(uuid.NewV7()).String()
	}
}

// Sequential returns deterministic ids (rec-1, rec-2, ...) for tests.
func Sequential() IDGenerator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("rec-%d", n)
	}
}

// Option customizes a Store.
type Option func(*Store)

// WithIDGenerator overrides the identifier strategy.
func WithIDGenerator(gen IDGenerator) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// Store is the in-memory roster: the ordered sequence of records for one
// session. It is owned by a single goroutine (the UI loop) and does no locking.
type Store struct {
	sheet   string
	header  []string
	records []Record
	index   map[string]int
	newID   IDGenerator
}

// LoadReport summarises what Load found in the input rows.
type LoadReport struct {
	Rows int
	// DuplicateCodes lists codes shared by more than one row, in first-seen order.
	DuplicateCodes []string
	// UnknownLabels lists Resultado values that could not be parsed.
	UnknownLabels []string
	// RenamedColumns lists repeated header cells and the column each was kept under.
	RenamedColumns []codec.ColumnRename
}

// NewStore returns an empty roster.
func NewStore(opts ...Option) *Store {
	s := &Store{
		index: map[string]int{},
		newID: UUIDv7(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Load replaces the roster wholesale with the rows of sheet. Rows without a
// Resultado start Untouched; rows without Aparecio start not contacted.
// Every row gets a fresh identifier, so rows sharing a code stay
// independently addressable.
func (s *Store) Load(sheet codec.Sheet) LoadReport {
	s.sheet = sheet.Name
	s.header = append([]string(nil), sheet.Header...)
	s.records = make([]Record, 0, len(sheet.Rows))
	s.index = make(map[string]int, len(sheet.Rows))

	report := LoadReport{Rows: len(sheet.Rows), RenamedColumns: sheet.Renamed}
	codes := map[string]int{}
	unknown := map[string]struct{}{}
	for i, row := range sheet.Rows {
		rec, known := recordFromRow(row)
		if i < len(sheet.Kinds) && len(sheet.Kinds[i]) > 0 {
			rec.Kinds = make(codec.RowKinds, len(sheet.Kinds[i]))
			for k, v := range sheet.Kinds[i] {
				rec.Kinds[k] = v
			}
		}
		if !known {
			label := strings.TrimSpace(row[ColumnResult])
			if _, ok := unknown[label]; !ok {
				unknown[label] = struct{}{}
				report.UnknownLabels = append(report.UnknownLabels, label)
			}
		}
		if rec.Code != "" {
			codes[rec.Code]++
			if codes[rec.Code] == 2 {
				report.DuplicateCodes = append(report.DuplicateCodes, rec.Code)
			}
		}
		rec.ID = s.newID()
		s.index[rec.ID] = len(s.records)
		s.records = append(s.records, rec)
	}
	return report
}

// Len returns the number of records.
func (s *Store) Len() int {
	return len(s.records)
}

// Get returns a copy of the record with id.
func (s *Store) Get(id string) (Record, bool) {
	pos, ok := s.index[id]
	if !ok {
		return Record{}, false
	}
	return s.records[pos].Clone(), true
}

// Replace substitutes the record stored under id. The identifier on rec is
// ignored; the stored record keeps id and its position. Unknown ids leave
// the roster untouched and return ErrRecordNotFound.
func (s *Store) Replace(id string, rec Record) error {
	pos, ok := s.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	rec = rec.Clone()
	rec.ID = id
	s.records[pos] = rec
	return nil
}

// All returns a snapshot of every record in load order.
func (s *Store) All() []Record {
	out := make([]Record, len(s.records))
	for i, rec := range s.records {
		out[i] = rec.Clone()
	}
	return out
}

// Header returns the input column order.
func (s *Store) Header() []string {
	return append([]string(nil), s.header...)
}

// Sheet renders the roster for the codec: the input columns in their
// original order followed by Resultado, Motivo and Aparecio when the input
// did not already carry them. Input cell kinds are carried over; the three
// triage columns are always text.
func (s *Store) Sheet() codec.Sheet {
	header := s.Header()
	for _, col := range []string{ColumnResult, ColumnReason, ColumnAppeared} {
		if !containsColumn(header, col) {
			header = append(header, col)
		}
	}
	rows := make([]codec.Row, len(s.records))
	kinds := make([]codec.RowKinds, len(s.records))
	for i, rec := range s.records {
		rows[i] = rec.toRow()
		kinds[i] = passthroughKinds(rec.Kinds)
	}
	return codec.Sheet{Name: s.sheet, Header: header, Rows: rows, Kinds: kinds}
}

func passthroughKinds(in codec.RowKinds) codec.RowKinds {
	if len(in) == 0 {
		return nil
	}
	out := make(codec.RowKinds, len(in))
	for col, kind := range in {
		switch col {
		case ColumnResult, ColumnReason, ColumnAppeared:
			continue
		}
		out[col] = kind
	}
	return out
}

func containsColumn(header []string, col string) bool {
	for _, h := range header {
		if h == col {
			return true
		}
	}
	return false
}
