// internal/tui/app.go
//
// This is the terminal front end for retorno.
// It uses bubbletea, which follows The Elm Architecture:
//
// 1. Model: Your application state
// 2. Update: A function that updates state based on messages
// 3. View: A function that renders state to a string
//
// Every key press becomes at most one triage.Action. The engine applies it
// and hands back effects (open a link, remember the cursor, write the
// export) which the App executes afterwards.

package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/kingrea/retorno/internal/codec"
	"github.com/kingrea/retorno/internal/config"
	"github.com/kingrea/retorno/internal/kv"
	"github.com/kingrea/retorno/internal/logbook"
	"github.com/kingrea/retorno/internal/messaging"
	"github.com/kingrea/retorno/internal/roster"
	"github.com/kingrea/retorno/internal/source"
	"github.com/kingrea/retorno/internal/triage"
)

// appState represents which "screen" we're on
type appState int

const (
	stateLoading appState = iota // Fetching and decoding the workbook
	stateTriage                  // One untouched customer at a time
	statePending                 // Contacted customers awaiting an outcome
	stateOutcome                 // A pending customer is selected
	stateReason                  // Typing the reason for "no compró"
)

const logPanelLines = 8

// AppOption customizes the App.
type AppOption func(*App)

// WithOpener replaces the platform link opener.
func WithOpener(opener messaging.Opener) AppOption {
	return func(a *App) {
		if opener != nil {
			a.opener = opener
		}
	}
}

// WithCursorStore supplies the key-value store used for the cursor. The
// App does not close stores it did not open.
func WithCursorStore(store kv.Store) AppOption {
	return func(a *App) {
		if store != nil {
			a.cursorStore = store
			a.ownsStore = false
		}
	}
}

// WithFetcher replaces the workbook fetcher.
func WithFetcher(fetcher *source.Fetcher) AppOption {
	return func(a *App) {
		if fetcher != nil {
			a.fetcher = fetcher
		}
	}
}

// WithLogbook supplies the session journal.
func WithLogbook(lb *logbook.Logbook) AppOption {
	return func(a *App) {
		if lb != nil {
			a.logbook = lb
		}
	}
}

// rosterLoadedMsg ends the Loading phase.
type rosterLoadedMsg struct {
	sheet codec.Sheet
	err   error
}

// linkOpenedMsg reports the outcome of an OpenLink effect.
type linkOpenedMsg struct {
	recordID string
	url      string
	err      error
}

// App is the main application model. In bubbletea, this holds ALL your state.
type App struct {
	state   appState
	config  *config.Config
	engine  *triage.Engine
	logbook *logbook.Logbook
	ctx     context.Context

	fetcher     *source.Fetcher
	opener      messaging.Opener
	cursorStore kv.Store
	ownsStore   bool

	// UI components
	spinner   spinner.Model
	pending   *pendingView
	reason    textinput.Model
	statusMsg string

	// Window size (we get this from bubbletea)
	width  int
	height int
}

// NewApp wires the engine and its collaborators from the configuration.
func NewApp(cfg *config.Config, opts ...AppOption) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("tui: config is required")
	}
	composer, err := messaging.NewComposer(cfg.MessagingBaseURL(), cfg.Greeting())
	if err != nil {
		return nil, err
	}

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF"))

	reason := textinput.New()
	reason.Placeholder = "Motivo (opcional)"
	reason.CharLimit = 200

	app := &App{
		state:     stateLoading,
		config:    cfg,
		ctx:       context.Background(),
		fetcher:   source.New(),
		opener:    messaging.SystemOpener{},
		ownsStore: true,
		spinner:   spin,
		reason:    reason,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	if app.logbook == nil {
		if lb, err := logbook.New(cfg.JournalPath()); err == nil {
			app.logbook = lb
		}
	}
	if app.cursorStore == nil {
		store, err := kv.Open(cfg.StateBackend(), cfg.StatePath())
		if err != nil {
			app.logWarn("Cursor store unavailable: %v", err)
			app.ownsStore = false
		} else {
			app.cursorStore = store
		}
	}

	engineOpts := []triage.Option{}
	if pos, ok, err := kv.LoadInt(app.ctx, app.cursorStore, kv.CursorKey); err != nil {
		app.logWarn("Could not restore cursor: %v", err)
	} else if ok {
		engineOpts = append(engineOpts, triage.WithCursor(pos))
	}
	eng, err := triage.New(codec.New(cfg.Sheet()), composer, engineOpts...)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.engine = eng
	app.pending = newPendingView(app)
	app.logInfo("Session opened · input: %s", cfg.Input())
	return app, nil
}

// Close releases the cursor store and flushes the journal.
func (a *App) Close() error {
	var errs []error
	if a.ownsStore && a.cursorStore != nil {
		errs = append(errs, a.cursorStore.Close())
	}
	if a.logbook != nil {
		errs = append(errs, a.logbook.Close())
	}
	return errors.Join(errs...)
}

func (a *App) logInfo(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Info(format, args...)
}

func (a *App) logWarn(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Warn(format, args...)
}

func (a *App) logError(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Error(format, args...)
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.spinner.Tick, a.loadRoster())
}

// loadRoster fetches and decodes the workbook off the event loop.
func (a *App) loadRoster() tea.Cmd {
	location := a.config.Input()
	c := codec.New(a.config.Sheet())
	fetcher := a.fetcher
	ctx := a.ctx
	return func() tea.Msg {
		blob, err := fetcher.Fetch(ctx, location)
		if err != nil {
			return rosterLoadedMsg{err: err}
		}
		sheet, err := c.Decode(blob)
		return rosterLoadedMsg{sheet: sheet, err: err}
	}
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.pending.SetSize(max(20, msg.Width-6), max(5, msg.Height-16))
		return a, nil

	case spinner.TickMsg:
		if a.state != stateLoading {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case rosterLoadedMsg:
		a.handleLoaded(msg)
		return a, nil

	case linkOpenedMsg:
		if msg.err != nil {
			a.logError("Could not open link for %s: %v", msg.recordID, msg.err)
			a.statusMsg = "No se pudo abrir el enlace: " + msg.url
		}
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		switch a.state {
		case stateLoading:
			if msg.String() == "q" {
				return a, tea.Quit
			}
			return a, nil
		case stateTriage:
			return a.handleTriageKey(msg)
		case statePending:
			return a, a.pending.Update(msg)
		case stateOutcome:
			return a.handleOutcomeKey(msg)
		case stateReason:
			return a.handleReasonKey(msg)
		}
	}

	if a.state == statePending {
		return a, a.pending.Update(msg)
	}
	return a, nil
}

func (a *App) handleLoaded(msg rosterLoadedMsg) {
	if msg.err != nil {
		a.engine.Failed(msg.err)
		a.logError("Load failed: %v", msg.err)
	} else {
		report := a.engine.Ready(msg.sheet)
		a.logInfo("Loaded %d rows from sheet %q", report.Rows, msg.sheet.Name)
		for _, code := range report.DuplicateCodes {
			a.logWarn("Code %s appears in more than one row; each row is triaged on its own", code)
		}
		for _, label := range report.UnknownLabels {
			a.logWarn("Unrecognized result label %q loaded as untouched", label)
		}
		for _, r := range report.RenamedColumns {
			a.logWarn("Column %s appears more than once; the repeat is kept as %s", r.Original, r.Column)
		}
	}
	if w := a.engine.Warning(); w != "" {
		a.logWarn("%s", w)
	}
	a.state = stateTriage
	a.pending.refresh()
}

func (a *App) handleTriageKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return a, tea.Quit
	case "enter", "c":
		rec, ok := a.engine.Current()
		if !ok {
			return a, nil
		}
		return a, a.dispatch(triage.Contact{ID: rec.ID})
	case "right", "l", "n":
		return a, a.dispatch(triage.Next{})
	case "left", "h", "p":
		return a, a.dispatch(triage.Prev{})
	case "tab", "2":
		return a, a.openPending()
	case "e":
		return a, a.dispatch(triage.Export{})
	}
	return a, nil
}

func (a *App) openPending() tea.Cmd {
	a.state = statePending
	a.pending.refresh()
	return nil
}

func (a *App) returnToTriage() {
	a.pending.blurSearch()
	a.state = stateTriage
}

func (a *App) handleOutcomeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "c", "y":
		cmd := a.dispatch(triage.RecordOutcome{Purchased: true})
		a.afterOutcome()
		return a, cmd
	case "n", "x":
		a.state = stateReason
		a.reason.SetValue("")
		return a, a.reason.Focus()
	case "esc":
		a.dispatch(triage.ClearSelection{})
		a.state = statePending
	}
	return a, nil
}

func (a *App) handleReasonKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		cmd := a.dispatch(triage.RecordOutcome{Purchased: false, Reason: a.reason.Value()})
		a.reason.Blur()
		a.afterOutcome()
		return a, cmd
	case "esc":
		a.reason.Blur()
		a.state = stateOutcome
		return a, nil
	}
	var cmd tea.Cmd
	a.reason, cmd = a.reason.Update(msg)
	return a, cmd
}

func (a *App) afterOutcome() {
	a.state = statePending
	a.pending.refresh()
}

// dispatch applies one action and executes the requested effects. Errors
// never end the session; they are logged and surfaced in the status line.
func (a *App) dispatch(act triage.Action) tea.Cmd {
	res, err := a.engine.Dispatch(act)
	if err != nil {
		switch {
		case errors.Is(err, roster.ErrRecordNotFound):
			a.logError("Roster inconsistency on %s: %v", triage.Name(act), err)
		case errors.Is(err, triage.ErrInvalidTransition):
			a.logWarn("%v", err)
		default:
			a.logError("%s failed: %v", triage.Name(act), err)
		}
		a.statusMsg = err.Error()
		return nil
	}
	a.statusMsg = ""
	if res.Note != "" {
		a.logWarn("%s: %s", triage.Name(act), res.Note)
		a.statusMsg = res.Note
	}
	if res.Applied && res.Record != nil {
		rec := res.Record
		entry := a.logbook.With(zap.String("id", rec.ID), zap.String("code", rec.CodeOrPlaceholder()))
		if entry != nil {
			entry.Info("%s · %s → %s", triage.Name(act), rec.DisplayName, rec.Status.Label())
		}
	}
	return a.runEffects(res.Effects)
}

func (a *App) runEffects(effects []triage.Effect) tea.Cmd {
	var cmds []tea.Cmd
	for _, eff := range effects {
		switch e := eff.(type) {
		case triage.OpenLink:
			cmds = append(cmds, a.openLink(e))
		case triage.PersistCursor:
			if err := kv.SaveInt(a.ctx, a.cursorStore, kv.CursorKey, e.Position); err != nil {
				a.logWarn("Could not persist cursor: %v", err)
			}
		case triage.WriteExport:
			a.writeExport(e)
		}
	}
	return tea.Batch(cmds...)
}

func (a *App) openLink(e triage.OpenLink) tea.Cmd {
	opener := a.opener
	return func() tea.Msg {
		return linkOpenedMsg{recordID: e.RecordID, url: e.URL, err: opener.Open(e.URL)}
	}
}

func (a *App) writeExport(e triage.WriteExport) {
	path := a.config.Output()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		a.logError("Export failed: %v", err)
		a.statusMsg = "No se pudo exportar: " + err.Error()
		return
	}
	if err := os.WriteFile(path, e.Blob, 0o644); err != nil {
		a.logError("Export failed: %v", err)
		a.statusMsg = "No se pudo exportar: " + err.Error()
		return
	}
	a.logInfo("Exported %d rows to %s", e.Rows, path)
	a.statusMsg = fmt.Sprintf("Exportado: %s (%d filas)", filepath.Base(path), e.Rows)
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B")).MarginBottom(1)
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Bold(true)
	cardStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#5B8DEF")).
			Padding(1, 2)
)

// View renders the current state to a string.
func (a *App) View() string {
	var content string
	switch a.state {
	case stateLoading:
		content = fmt.Sprintf("%s Cargando %s...", a.spinner.View(), a.config.Input())
	case stateTriage:
		content = a.renderTriage()
	case statePending:
		content = a.pending.View()
	case stateOutcome, stateReason:
		content = a.renderOutcome()
	}
	sections := []string{headerStyle.Render("⬡ RETORNO"), a.renderCounts(), content}
	if a.statusMsg != "" {
		sections = append(sections, warnStyle.Render(a.statusMsg))
	}
	if panel := a.renderLogPanel(); panel != "" {
		sections = append(sections, panel)
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (a *App) renderCounts() string {
	if a.engine.Phase() != triage.PhaseReady {
		return ""
	}
	counts := roster.Counts(a.engine.Store())
	return mutedStyle.Render(fmt.Sprintf("%s %d · %s %d · %s %d · %s %d",
		"Sin contactar", counts[roster.StatusUntouched],
		roster.StatusPending.Label(), counts[roster.StatusPending],
		roster.StatusPurchased.Label(), counts[roster.StatusPurchased],
		roster.StatusNotPurchased.Label(), counts[roster.StatusNotPurchased],
	))
}

func (a *App) renderTriage() string {
	if w := a.engine.Warning(); w != "" && a.engine.Store().Len() == 0 {
		return warnStyle.Render(w) + "\n\n" + mutedStyle.Render("q salir")
	}
	rec, ok := a.engine.Current()
	if !ok {
		return titleStyle.Render("No quedan clientes sin contactar.") + "\n\n" +
			mutedStyle.Render("tab pendientes · e exportar · q salir")
	}
	total := len(a.engine.Untouched())
	lines := []string{
		titleStyle.Render(fmt.Sprintf("%s  (%d/%d)", rec.DisplayName, a.engine.Cursor()+1, total)),
		fmt.Sprintf("Código:    %s", rec.CodeOrPlaceholder()),
		fmt.Sprintf("Teléfono:  %s", rec.Phone),
	}
	if rec.Products != "" {
		lines = append(lines, fmt.Sprintf("Productos: %s", rec.Products))
	}
	if rec.EverContacted {
		lines = append(lines, warnStyle.Render("Apareció de nuevo"))
	}
	help := mutedStyle.Render("enter contactar · ←/→ navegar · tab pendientes · e exportar · q salir")
	return cardStyle.Render(strings.Join(lines, "\n")) + "\n" + help
}

func (a *App) renderOutcome() string {
	rec, ok := a.engine.Selected()
	if !ok {
		return mutedStyle.Render("Sin selección")
	}
	body := titleStyle.Render(rec.DisplayName) + "\n" +
		fmt.Sprintf("Código: %s · Teléfono: %s", rec.CodeOrPlaceholder(), rec.Phone)
	if a.state == stateReason {
		body += "\n\n" + a.reason.View() + "\n" + mutedStyle.Render("enter guardar · esc volver")
	} else {
		body += "\n\n" + mutedStyle.Render("c compró · n no compró · esc cancelar")
	}
	return cardStyle.Render(body)
}

func (a *App) renderLogPanel() string {
	if a.logbook == nil {
		return ""
	}
	lines, total := a.logbook.Tail(logPanelLines)
	if len(lines) == 0 {
		return ""
	}
	fileName := filepath.Base(a.logbook.Path())
	if fileName == "." || fileName == "" {
		fileName = "log"
	}
	head := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#5B8DEF")).
		Render(fmt.Sprintf("LOG · %s · %d", fileName, total))
	body := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA")).
		Render(strings.Join(lines, "\n"))
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1).
		Render(fmt.Sprintf("%s\n%s", head, body))
}
