package roster

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/kingrea/retorno/internal/codec"
)

// Status is the triage state of a single customer record.
type Status string

const (
	StatusUntouched    Status = "untouched"
	StatusPending      Status = "pending"
	StatusPurchased    Status = "purchased"
	StatusNotPurchased Status = "not_purchased"
)

// Input/output column names. Lookups are case-sensitive.
const (
	ColumnCode     = "Codigo"
	ColumnCodeAlt  = "Codigo Cliente"
	ColumnName     = "Cliente"
	ColumnNameAlt  = "Nombre"
	ColumnProducts = "Productos"
	ColumnPhone    = "Telefono"
	ColumnResult   = "Resultado"
	ColumnReason   = "Motivo"
	ColumnAppeared = "Aparecio"
)

// Localized labels written to the Resultado and Aparecio columns.
const (
	LabelPending      = "Pendiente"
	LabelPurchased    = "Compró"
	LabelNotPurchased = "No compró"
	LabelYes          = "Sí"
	LabelNo           = "No"
)

// Display fallbacks for rows without a name or code.
const (
	PlaceholderName = "Cliente"
	PlaceholderCode = "Sin código"
)

// Valid reports whether s is one of the four lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusUntouched, StatusPending, StatusPurchased, StatusNotPurchased:
		return true
	}
	return false
}

// Label returns the spreadsheet label for s. Untouched records have none.
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return LabelPending
	case StatusPurchased:
		return LabelPurchased
	case StatusNotPurchased:
		return LabelNotPurchased
	}
	return ""
}

// statusLabels maps folded Resultado labels to a status. Unaccented
// spellings and the legacy "Compró ✅" are accepted.
var statusLabels = map[string]Status{
	fold(LabelPending):      StatusPending,
	fold(LabelPurchased):    StatusPurchased,
	"compro":                StatusPurchased,
	fold("Compró ✅"):        StatusPurchased,
	fold("Compro ✅"):        StatusPurchased,
	fold(LabelNotPurchased): StatusNotPurchased,
	"no compro":             StatusNotPurchased,
}

// ParseStatus maps a Resultado cell back to a Status. Labels match exactly
// after case folding. The boolean is false for a non-empty label that is not
// recognised; such rows load as Untouched.
func ParseStatus(label string) (Status, bool) {
	folded := strings.Join(strings.Fields(fold(label)), " ")
	if folded == "" {
		return StatusUntouched, true
	}
	if status, ok := statusLabels[folded]; ok {
		return status, true
	}
	return StatusUntouched, false
}

func parseAppeared(value string) bool {
	switch fold(strings.TrimSpace(value)) {
	case "sí", "si", "yes", "true", "1", "x":
		return true
	}
	return false
}

func appearedLabel(v bool) string {
	if v {
		return LabelYes
	}
	return LabelNo
}

// Record is one customer row. Fields keeps every input column verbatim so
// that columns the engine does not know about survive an export.
type Record struct {
	ID            string
	Code          string
	DisplayName   string
	Phone         string
	Products      string
	Status        Status
	Reason        string
	EverContacted bool
	Fields        map[string]string
	// Kinds notes which Fields were numbers, dates or booleans in the input.
	Kinds codec.RowKinds
}

// Clone returns a copy that shares no mutable state with r.
func (r Record) Clone() Record {
	out := r
	if r.Fields != nil {
		out.Fields = make(map[string]string, len(r.Fields))
		for k, v := range r.Fields {
			out.Fields[k] = v
		}
	}
	if r.Kinds != nil {
		out.Kinds = make(codec.RowKinds, len(r.Kinds))
		for k, v := range r.Kinds {
			out.Kinds[k] = v
		}
	}
	return out
}

// CodeOrPlaceholder is the code shown to the operator.
func (r Record) CodeOrPlaceholder() string {
	if r.Code == "" {
		return PlaceholderCode
	}
	return r.Code
}

// Matches reports whether term is a case-insensitive substring of the
// record's display name or code. The empty term matches everything.
func (r Record) Matches(term string) bool {
	if term == "" {
		return true
	}
	needle := fold(term)
	return strings.Contains(fold(r.DisplayName), needle) || strings.Contains(fold(r.Code), needle)
}

func recordFromRow(row map[string]string) (Record, bool) {
	fields := make(map[string]string, len(row))
	for k, v := range row {
		fields[k] = v
	}
	status, known := ParseStatus(fields[ColumnResult])
	rec := Record{
		Code:          firstNonEmpty(fields[ColumnCode], fields[ColumnCodeAlt]),
		DisplayName:   firstNonEmpty(fields[ColumnName], fields[ColumnNameAlt], PlaceholderName),
		Phone:         stringifyPhone(fields[ColumnPhone]),
		Products:      strings.TrimSpace(fields[ColumnProducts]),
		Status:        status,
		EverContacted: parseAppeared(fields[ColumnAppeared]),
		Fields:        fields,
	}
	if status == StatusNotPurchased {
		rec.Reason = strings.TrimSpace(fields[ColumnReason])
	}
	// A record that reached Pending or beyond has been contacted.
	if status != StatusUntouched {
		rec.EverContacted = true
	}
	return rec, known
}

func (r Record) toRow() codec.Row {
	row := make(codec.Row, len(r.Fields)+3)
	for k, v := range r.Fields {
		row[k] = v
	}
	// A row whose label was not recognised keeps its Resultado and Motivo
	// until the record gets an outcome.
	if _, known := ParseStatus(r.Fields[ColumnResult]); known || r.Status != StatusUntouched {
		row[ColumnResult] = r.Status.Label()
		row[ColumnReason] = r.Reason
	}
	row[ColumnAppeared] = appearedLabel(r.EverContacted)
	return row
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// stringifyPhone undoes float rendering of numeric phone cells
// (5.491112345678e+12 -> 5491112345678). Anything else is kept as typed.
func stringifyPhone(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || !strings.ContainsAny(raw, ".eE") {
		return raw
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != float64(int64(f)) {
		return raw
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func fold(s string) string {
	return cases.Fold().String(s)
}
