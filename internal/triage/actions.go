package triage

import "github.com/kingrea/retorno/internal/roster"

// Action is an operator command handled by Engine.Dispatch.
type Action interface {
	actionName() string
}

// Contact sends the greeting to an untouched record and moves it to Pending.
type Contact struct{ ID string }

// Select picks a pending record as the target of the next RecordOutcome.
type Select struct{ ID string }

// ClearSelection drops the current selection.
type ClearSelection struct{}

// RecordOutcome resolves the selected pending record.
type RecordOutcome struct {
	Purchased bool
	Reason    string
}

// Next advances the navigator.
type Next struct{}

// Prev moves the navigator back.
type Prev struct{}

// Export renders the whole roster into a workbook.
type Export struct{}

func (Contact) actionName() string        { return "contact" }
func (Select) actionName() string         { return "select" }
func (ClearSelection) actionName() string { return "clear-selection" }
func (RecordOutcome) actionName() string  { return "record-outcome" }
func (Next) actionName() string           { return "next" }
func (Prev) actionName() string           { return "prev" }
func (Export) actionName() string         { return "export" }

// Name returns a short label for logging.
func Name(a Action) string {
	if a == nil {
		return "none"
	}
	return a.actionName()
}

// Effect is a side effect requested by a transition. Effects are executed by
// the caller after Dispatch returns; their failure never rolls back state.
type Effect interface {
	effectName() string
}

// OpenLink asks the caller to open the outbound messaging link.
type OpenLink struct {
	RecordID string
	URL      string
}

// PersistCursor asks the caller to store the navigator position.
type PersistCursor struct {
	Position int
}

// WriteExport carries an encoded workbook to be written out.
type WriteExport struct {
	Blob []byte
	Rows int
}

func (OpenLink) effectName() string      { return "open-link" }
func (PersistCursor) effectName() string { return "persist-cursor" }
func (WriteExport) effectName() string   { return "write-export" }

// Result reports what a Dispatch did.
type Result struct {
	// Applied is false when the action was a guarded no-op.
	Applied bool
	// Record is the record after the transition, when one was touched.
	Record  *roster.Record
	Effects []Effect
	// Note carries a non-fatal problem, e.g. a greeting that failed to render.
	Note string
}
