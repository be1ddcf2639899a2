package tui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/cursor"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/retorno/internal/codec"
	"github.com/kingrea/retorno/internal/config"
	"github.com/kingrea/retorno/internal/kv"
	"github.com/kingrea/retorno/internal/roster"
)

type recordingOpener struct {
	urls []string
	err  error
}

func (o *recordingOpener) Open(url string) error {
	o.urls = append(o.urls, url)
	return o.err
}

func TestKeysIgnoredWhileLoading(t *testing.T) {
	projectDir := t.TempDir()
	writeWorkbook(t, projectDir)
	opener := &recordingOpener{}
	app := newTestApp(t, projectDir, WithOpener(opener))
	app = press(t, app, key(tea.KeyEnter), runes("n"), key(tea.KeyTab))
	if app.state != stateLoading {
		t.Fatalf("state = %v, want loading", app.state)
	}
	if len(opener.urls) != 0 {
		t.Fatalf("no link may open before the roster is loaded, got %v", opener.urls)
	}
}

func TestContactOpensLinkAndAdvances(t *testing.T) {
	projectDir := t.TempDir()
	writeWorkbook(t, projectDir)
	opener := &recordingOpener{}
	app := loadedApp(t, projectDir, WithOpener(opener))

	app = press(t, app, key(tea.KeyEnter))
	if len(opener.urls) != 1 || opener.urls[0] != "https://wa.me/111?text=Hola%20Ana%21" {
		t.Fatalf("unexpected links: %v", opener.urls)
	}
	if got := len(app.engine.Untouched()); got != 2 {
		t.Fatalf("untouched = %d, want 2", got)
	}
	cur, ok := app.engine.Current()
	if !ok || cur.DisplayName != "Beto" {
		t.Fatalf("expected Beto under the cursor, got %+v", cur)
	}
	if !strings.Contains(app.View(), "Beto") {
		t.Fatalf("view should show the next customer")
	}
}

func TestOpenerFailureIsReported(t *testing.T) {
	projectDir := t.TempDir()
	writeWorkbook(t, projectDir)
	opener := &recordingOpener{err: errors.New("no browser")}
	app := loadedApp(t, projectDir, WithOpener(opener))
	app = press(t, app, key(tea.KeyEnter))
	if !strings.Contains(app.statusMsg, "wa.me") {
		t.Fatalf("status should mention the link, got %q", app.statusMsg)
	}
	if got := len(app.engine.Pending("")); got != 1 {
		t.Fatalf("a failed open must not roll back the contact, pending = %d", got)
	}
}

func TestOutcomeWithReason(t *testing.T) {
	projectDir := t.TempDir()
	writeWorkbook(t, projectDir)
	app := loadedApp(t, projectDir)

	app = press(t, app, key(tea.KeyEnter), key(tea.KeyTab))
	if app.state != statePending {
		t.Fatalf("state = %v, want pending", app.state)
	}
	app = press(t, app, key(tea.KeyEnter))
	if app.state != stateOutcome {
		t.Fatalf("state = %v, want outcome", app.state)
	}
	app = press(t, app, runes("n"), runes("muy caro"), key(tea.KeyEnter))
	if app.state != statePending {
		t.Fatalf("state = %v, want pending after outcome", app.state)
	}
	var ana roster.Record
	for _, rec := range app.engine.Store().All() {
		if rec.DisplayName == "Ana" {
			ana = rec
		}
	}
	if ana.Status != roster.StatusNotPurchased || ana.Reason != "muy caro" {
		t.Fatalf("unexpected record after outcome: %+v", ana)
	}
	if len(app.engine.Pending("")) != 0 {
		t.Fatalf("resolved record must leave the pending list")
	}
}

func TestPurchasedOutcomeAndCancel(t *testing.T) {
	projectDir := t.TempDir()
	writeWorkbook(t, projectDir)
	app := loadedApp(t, projectDir)

	app = press(t, app, key(tea.KeyEnter), key(tea.KeyEnter), key(tea.KeyTab), key(tea.KeyEnter), key(tea.KeyEsc))
	if _, selected := app.engine.Selected(); selected {
		t.Fatalf("esc must clear the selection")
	}
	app = press(t, app, key(tea.KeyEnter), runes("c"))
	counts := roster.Counts(app.engine.Store())
	if counts[roster.StatusPurchased] != 1 || counts[roster.StatusPending] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}

func TestPendingSearch(t *testing.T) {
	projectDir := t.TempDir()
	writeWorkbook(t, projectDir)
	app := loadedApp(t, projectDir)

	app = press(t, app, key(tea.KeyEnter), key(tea.KeyEnter), key(tea.KeyTab), runes("/"), runes("BETO"))
	if got := len(app.pending.list.Items()); got != 1 {
		t.Fatalf("search should narrow the list to one item, got %d", got)
	}
	app = press(t, app, key(tea.KeyEsc))
	if got := len(app.pending.list.Items()); got != 2 {
		t.Fatalf("clearing the search should restore both items, got %d", got)
	}
}

func TestCursorSurvivesRestart(t *testing.T) {
	projectDir := t.TempDir()
	writeWorkbook(t, projectDir)
	store := kv.NewFileStore(filepath.Join(projectDir, "cursor.json"))
	app := loadedApp(t, projectDir, WithCursorStore(store))
	app = press(t, app, key(tea.KeyRight), key(tea.KeyRight))

	pos, ok, err := kv.LoadInt(context.Background(), store, kv.CursorKey)
	if err != nil || !ok || pos != 2 {
		t.Fatalf("persisted cursor = %d, %v, %v", pos, ok, err)
	}

	again := loadedApp(t, projectDir, WithCursorStore(store))
	cur, ok := again.engine.Current()
	if !ok || cur.DisplayName != "Carla" {
		t.Fatalf("expected restored cursor on Carla, got %+v", cur)
	}
}

func TestExportWritesOutput(t *testing.T) {
	projectDir := t.TempDir()
	writeWorkbook(t, projectDir)
	app := loadedApp(t, projectDir)
	app = press(t, app, key(tea.KeyEnter), runes("e"))

	blob, err := os.ReadFile(app.config.Output())
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	sheet, err := codec.New("").Decode(blob)
	if err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if len(sheet.Rows) != 3 {
		t.Fatalf("export rows = %d, want 3", len(sheet.Rows))
	}
	if got := sheet.Rows[0][roster.ColumnResult]; got != roster.LabelPending {
		t.Fatalf("first row result = %q, want %q", got, roster.LabelPending)
	}
}

func TestMissingWorkbookShowsWarning(t *testing.T) {
	projectDir := t.TempDir()
	opener := &recordingOpener{}
	app := loadedApp(t, projectDir, WithOpener(opener))
	if app.state != stateTriage {
		t.Fatalf("state = %v, want triage", app.state)
	}
	if app.engine.Warning() == "" {
		t.Fatalf("expected a warning for the missing workbook")
	}
	app = press(t, app, key(tea.KeyEnter), key(tea.KeyRight))
	if len(opener.urls) != 0 {
		t.Fatalf("empty roster cannot contact anyone")
	}
	if !strings.Contains(app.View(), app.engine.Warning()) {
		t.Fatalf("view should render the warning")
	}
}

func newTestApp(t *testing.T, projectDir string, opts ...AppOption) *App {
	t.Helper()
	t.Setenv("RETORNO_INPUT", "")
	t.Setenv("RETORNO_OUTPUT", "")
	if err := config.InitRetornoDir(projectDir); err != nil {
		t.Fatalf("init retorno dir: %v", err)
	}
	cfg, err := config.NewConfig(projectDir)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	baseOpts := []AppOption{
		WithOpener(&recordingOpener{}),
		WithCursorStore(kv.NewFileStore(filepath.Join(t.TempDir(), "state.json"))),
	}
	app, err := NewApp(cfg, append(baseOpts, opts...)...)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(func() { _ = app.Close() })
	// A blinking cursor schedules ticks forever; runCommands would never drain.
	app.reason.Cursor.SetMode(cursor.CursorStatic)
	app.pending.search.Cursor.SetMode(cursor.CursorStatic)
	return app
}

func loadedApp(t *testing.T, projectDir string, opts ...AppOption) *App {
	t.Helper()
	app := newTestApp(t, projectDir, opts...)
	return runCommands(t, app, app.loadRoster())
}

func writeWorkbook(t *testing.T, projectDir string) {
	t.Helper()
	sheet := codec.Sheet{
		Name:   codec.DefaultSheet,
		Header: []string{"Codigo", "Cliente", "Telefono"},
		Rows: []codec.Row{
			{"Codigo": "A1", "Cliente": "Ana", "Telefono": "111"},
			{"Codigo": "B2", "Cliente": "Beto", "Telefono": "222"},
			{"Codigo": "C3", "Cliente": "Carla", "Telefono": "333"},
		},
	}
	blob, err := codec.New("").Encode(sheet)
	if err != nil {
		t.Fatalf("encode workbook: %v", err)
	}
	if err := os.WriteFile(filepath.Join(projectDir, "base_no_compradores.xlsx"), blob, 0o644); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
}

func key(k tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: k} }

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func press(t *testing.T, app *App, keys ...tea.KeyMsg) *App {
	t.Helper()
	for _, k := range keys {
		model, cmd := app.Update(k)
		app = runCommands(t, model, cmd)
	}
	return app
}

func runCommands(t *testing.T, model tea.Model, cmd tea.Cmd) *App {
	t.Helper()
	app, ok := model.(*App)
	if !ok {
		t.Fatalf("unexpected model type: %T", model)
	}
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		msg := next()
		if batch, ok := msg.(tea.BatchMsg); ok {
			queue = append(queue, batch...)
			continue
		}
		if msg == nil {
			continue
		}
		nextModel, nextCmd := app.Update(msg)
		app, ok = nextModel.(*App)
		if !ok {
			t.Fatalf("unexpected model type: %T", nextModel)
		}
		queue = append(queue, nextCmd)
	}
	return app
}
