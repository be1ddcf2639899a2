package triage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kingrea/retorno/internal/codec"
	"github.com/kingrea/retorno/internal/messaging"
	"github.com/kingrea/retorno/internal/roster"
)

// Phase is the coarse engine lifecycle.
type Phase string

const (
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
)

var (
	// ErrNotReady is returned for any action dispatched while loading.
	ErrNotReady = errors.New("triage: roster still loading")
	// ErrInvalidTransition is returned when an action does not apply to the
	// record's current status.
	ErrInvalidTransition = errors.New("triage: invalid transition")
	// ErrUnknownAction is returned for action types the engine does not handle.
	ErrUnknownAction = errors.New("triage: unknown action")
)

// Engine owns the roster for one session and applies operator actions to
// it one at a time. It performs no I/O: side effects come back as Effects.
type Engine struct {
	phase    Phase
	store    *roster.Store
	nav      *Navigator
	codec    *codec.Codec
	composer *messaging.Composer
	selected string
	warning  string
	report   roster.LoadReport
}

// Option customizes the engine instance.
type Option func(*Engine)

// WithStore supplies the roster store (tests use it to pin identifiers).
func WithStore(store *roster.Store) Option {
	return func(e *Engine) {
		if store != nil {
			e.store = store
		}
	}
}

// WithCursor restores a previously persisted navigator position.
func WithCursor(position int) Option {
	return func(e *Engine) {
		e.nav = NewNavigator(position)
	}
}

// New builds an engine in the Loading phase.
func New(c *codec.Codec, composer *messaging.Composer, opts ...Option) (*Engine, error) {
	if c == nil {
		return nil, fmt.Errorf("triage: codec is required")
	}
	if composer == nil {
		return nil, fmt.Errorf("triage: message composer is required")
	}
	e := &Engine{
		phase:    PhaseLoading,
		store:    roster.NewStore(),
		nav:      NewNavigator(0),
		codec:    c,
		composer: composer,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e, nil
}

// Ready loads the decoded sheet and enables actions.
func (e *Engine) Ready(sheet codec.Sheet) roster.LoadReport {
	e.report = e.store.Load(sheet)
	e.selected = ""
	e.warning = ""
	if e.store.Len() == 0 {
		e.warning = fmt.Sprintf("No rows found in sheet %q", e.codec.SheetName())
	}
	e.phase = PhaseReady
	return e.report
}

// Failed ends loading with an empty roster and a visible warning. Missing
// sheets and unreadable workbooks both end up here.
func (e *Engine) Failed(err error) {
	e.store.Load(codec.Sheet{Name: e.codec.SheetName()})
	e.report = roster.LoadReport{}
	e.selected = ""
	switch {
	case errors.Is(err, codec.ErrMissingSheet):
		e.warning = fmt.Sprintf("Sheet %q not found in the workbook", e.codec.SheetName())
	case err != nil:
		e.warning = fmt.Sprintf("Could not read the roster: %v", err)
	default:
		e.warning = "Roster unavailable"
	}
	e.phase = PhaseReady
}

// Phase reports whether the roster has finished loading.
func (e *Engine) Phase() Phase { return e.phase }

// Warning is the message shown when the roster is empty or failed to load.
func (e *Engine) Warning() string { return e.warning }

// Report returns the summary of the last load.
func (e *Engine) Report() roster.LoadReport { return e.report }

// Store exposes the roster for read-only views.
func (e *Engine) Store() *roster.Store { return e.store }

// Untouched returns the current untouched queue.
func (e *Engine) Untouched() []roster.Record { return roster.UntouchedQueue(e.store) }

// Pending returns the current pending list filtered by term.
func (e *Engine) Pending(term string) []roster.Record { return roster.PendingList(e.store, term) }

// Cursor returns the clamped navigator position.
func (e *Engine) Cursor() int { return e.nav.Position(len(e.Untouched())) }

// Current returns the record under the cursor; ok is false once the queue
// is exhausted.
func (e *Engine) Current() (roster.Record, bool) {
	return e.nav.Current(e.Untouched())
}

// Selected returns the pending record chosen for the next outcome.
func (e *Engine) Selected() (roster.Record, bool) {
	if e.selected == "" {
		return roster.Record{}, false
	}
	return e.store.Get(e.selected)
}

// Dispatch applies one action. A returned error means state is unchanged.
func (e *Engine) Dispatch(a Action) (Result, error) {
	if e.phase != PhaseReady {
		return Result{}, ErrNotReady
	}
	switch act := a.(type) {
	case Contact:
		return e.contact(act.ID)
	case Select:
		return e.selectPending(act.ID)
	case ClearSelection:
		applied := e.selected != ""
		e.selected = ""
		return Result{Applied: applied}, nil
	case RecordOutcome:
		return e.recordOutcome(act)
	case Next:
		return e.move(e.nav.Next)
	case Prev:
		return e.move(e.nav.Prev)
	case Export:
		return e.export()
	default:
		return Result{}, fmt.Errorf("%w: %T", ErrUnknownAction, a)
	}
}

func (e *Engine) contact(id string) (Result, error) {
	rec, ok := e.store.Get(id)
	if !ok {
		return Result{}, fmt.Errorf("contact: %w: %s", roster.ErrRecordNotFound, id)
	}
	if rec.Status != roster.StatusUntouched {
		return Result{}, fmt.Errorf("%w: contact %s while %s", ErrInvalidTransition, id, rec.Status)
	}
	before := e.Cursor()

	rec.Status = roster.StatusPending
	rec.EverContacted = true
	rec.Reason = ""
	if err := e.store.Replace(id, rec); err != nil {
		return Result{}, err
	}

	res := Result{Applied: true, Record: &rec}
	link, err := e.composer.Link(messaging.Recipient{Name: rec.DisplayName, Code: rec.Code, Phone: rec.Phone})
	if err != nil {
		res.Note = err.Error()
	} else {
		res.Effects = append(res.Effects, OpenLink{RecordID: id, URL: link})
	}
	if after := e.Cursor(); after != before {
		res.Effects = append(res.Effects, PersistCursor{Position: after})
	}
	return res, nil
}

func (e *Engine) selectPending(id string) (Result, error) {
	rec, ok := e.store.Get(id)
	if !ok {
		return Result{}, fmt.Errorf("select: %w: %s", roster.ErrRecordNotFound, id)
	}
	if rec.Status != roster.StatusPending {
		return Result{}, fmt.Errorf("%w: select %s while %s", ErrInvalidTransition, id, rec.Status)
	}
	e.selected = id
	return Result{Applied: true, Record: &rec}, nil
}

func (e *Engine) recordOutcome(act RecordOutcome) (Result, error) {
	if e.selected == "" {
		return Result{}, nil
	}
	id := e.selected
	rec, ok := e.store.Get(id)
	if !ok {
		e.selected = ""
		return Result{}, fmt.Errorf("record outcome: %w: %s", roster.ErrRecordNotFound, id)
	}
	if rec.Status != roster.StatusPending {
		e.selected = ""
		return Result{}, fmt.Errorf("%w: outcome for %s while %s", ErrInvalidTransition, id, rec.Status)
	}
	if act.Purchased {
		rec.Status = roster.StatusPurchased
		rec.Reason = ""
	} else {
		rec.Status = roster.StatusNotPurchased
		rec.Reason = strings.TrimSpace(act.Reason)
	}
	rec.EverContacted = true
	if err := e.store.Replace(id, rec); err != nil {
		return Result{}, err
	}
	e.selected = ""
	return Result{Applied: true, Record: &rec}, nil
}

func (e *Engine) move(step func(int) bool) (Result, error) {
	if !step(len(e.Untouched())) {
		return Result{}, nil
	}
	pos := e.Cursor()
	return Result{Applied: true, Effects: []Effect{PersistCursor{Position: pos}}}, nil
}

func (e *Engine) export() (Result, error) {
	blob, err := encodeRoster(e.store, e.codec)
	if err != nil {
		return Result{}, err
	}
	return Result{Applied: true, Effects: []Effect{WriteExport{Blob: blob, Rows: e.store.Len()}}}, nil
}
