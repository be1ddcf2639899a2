package triage

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/retorno/internal/codec"
	"github.com/kingrea/retorno/internal/messaging"
	"github.com/kingrea/retorno/internal/roster"
)

func newEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	composer, err := messaging.NewComposer("", "")
	require.NoError(t, err)
	opts = append([]Option{WithStore(roster.NewStore(roster.WithIDGenerator(roster.Sequential())))}, opts...)
	eng, err := New(codec.New(""), composer, opts...)
	require.NoError(t, err)
	return eng
}

func threeRows() codec.Sheet {
	return codec.Sheet{
		Name:   codec.DefaultSheet,
		Header: []string{"Codigo", "Cliente", "Telefono"},
		Rows: []codec.Row{
			{"Codigo": "A1", "Cliente": "Ana", "Telefono": "111"},
			{"Codigo": "B2", "Cliente": "Beto", "Telefono": "222"},
			{"Codigo": "C3", "Cliente": "Carla", "Telefono": "333"},
		},
	}
}

func readyEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	eng := newEngine(t, opts...)
	eng.Ready(threeRows())
	return eng
}

func effectsOf[T Effect](res Result) []T {
	var out []T
	for _, eff := range res.Effects {
		if typed, ok := eff.(T); ok {
			out = append(out, typed)
		}
	}
	return out
}

func TestActionsRejectedWhileLoading(t *testing.T) {
	eng := newEngine(t)
	assert.Equal(t, PhaseLoading, eng.Phase())
	for _, act := range []Action{Contact{ID: "rec-1"}, Next{}, Prev{}, Export{}, RecordOutcome{Purchased: true}} {
		_, err := eng.Dispatch(act)
		require.ErrorIs(t, err, ErrNotReady, Name(act))
	}
}

func TestContactThenOutcomeScenario(t *testing.T) {
	eng := readyEngine(t)

	cur, ok := eng.Current()
	require.True(t, ok)
	require.Equal(t, "rec-1", cur.ID)

	res, err := eng.Dispatch(Contact{ID: cur.ID})
	require.NoError(t, err)
	require.True(t, res.Applied)
	assert.Equal(t, roster.StatusPending, res.Record.Status)
	assert.True(t, res.Record.EverContacted)

	links := effectsOf[OpenLink](res)
	require.Len(t, links, 1)
	assert.Equal(t, "https://wa.me/111?text=Hola%20Ana%21", links[0].URL)

	queue := eng.Untouched()
	require.Len(t, queue, 2)
	assert.Equal(t, "rec-2", queue[0].ID)
	assert.Equal(t, 0, eng.Cursor())
	cur, _ = eng.Current()
	assert.Equal(t, "rec-2", cur.ID)

	_, err = eng.Dispatch(Select{ID: "rec-1"})
	require.NoError(t, err)
	res, err = eng.Dispatch(RecordOutcome{Purchased: false, Reason: "no budget"})
	require.NoError(t, err)
	require.True(t, res.Applied)

	a, _ := eng.Store().Get("rec-1")
	assert.Equal(t, roster.StatusNotPurchased, a.Status)
	assert.Equal(t, "no budget", a.Reason)
	assert.True(t, a.EverContacted)
	assert.Empty(t, eng.Pending(""))
	_, selected := eng.Selected()
	assert.False(t, selected)
}

func TestPurchasedClearsReason(t *testing.T) {
	eng := readyEngine(t)
	_, err := eng.Dispatch(Contact{ID: "rec-2"})
	require.NoError(t, err)
	_, err = eng.Dispatch(Select{ID: "rec-2"})
	require.NoError(t, err)
	_, err = eng.Dispatch(RecordOutcome{Purchased: true, Reason: "ignored"})
	require.NoError(t, err)

	b, _ := eng.Store().Get("rec-2")
	assert.Equal(t, roster.StatusPurchased, b.Status)
	assert.Empty(t, b.Reason)
}

func TestOutcomeWithoutSelectionIsNoOp(t *testing.T) {
	eng := readyEngine(t)
	_, err := eng.Dispatch(Contact{ID: "rec-1"})
	require.NoError(t, err)

	res, err := eng.Dispatch(RecordOutcome{Purchased: true})
	require.NoError(t, err)
	assert.False(t, res.Applied)
	a, _ := eng.Store().Get("rec-1")
	assert.Equal(t, roster.StatusPending, a.Status)
}

func TestInvalidTransitions(t *testing.T) {
	eng := readyEngine(t)

	_, err := eng.Dispatch(Select{ID: "rec-1"})
	require.ErrorIs(t, err, ErrInvalidTransition, "untouched records cannot be selected")

	_, err = eng.Dispatch(Contact{ID: "rec-1"})
	require.NoError(t, err)
	_, err = eng.Dispatch(Contact{ID: "rec-1"})
	require.ErrorIs(t, err, ErrInvalidTransition, "contact is only valid from untouched")

	_, err = eng.Dispatch(Contact{ID: "rec-404"})
	require.ErrorIs(t, err, roster.ErrRecordNotFound)
}

func TestStaleSelectionIsReported(t *testing.T) {
	eng := readyEngine(t)
	_, err := eng.Dispatch(Contact{ID: "rec-1"})
	require.NoError(t, err)
	_, err = eng.Dispatch(Select{ID: "rec-1"})
	require.NoError(t, err)

	// A reload replaces the roster under the selection.
	eng.selected = "rec-gone"
	_, err = eng.Dispatch(RecordOutcome{Purchased: true})
	require.ErrorIs(t, err, roster.ErrRecordNotFound)
	_, selected := eng.Selected()
	assert.False(t, selected)
}

func TestNavigationPersistsCursor(t *testing.T) {
	eng := readyEngine(t)

	res, err := eng.Dispatch(Prev{})
	require.NoError(t, err)
	assert.False(t, res.Applied)

	res, err = eng.Dispatch(Next{})
	require.NoError(t, err)
	require.True(t, res.Applied)
	assert.Equal(t, []PersistCursor{{Position: 1}}, effectsOf[PersistCursor](res))

	_, _ = eng.Dispatch(Next{})
	res, err = eng.Dispatch(Next{})
	require.NoError(t, err)
	assert.False(t, res.Applied, "next at the last position is a no-op")
	assert.Equal(t, 2, eng.Cursor())

	// contacting the last record shrinks the queue and clamps the cursor
	res, err = eng.Dispatch(Contact{ID: "rec-3"})
	require.NoError(t, err)
	assert.Equal(t, []PersistCursor{{Position: 1}}, effectsOf[PersistCursor](res))
}

func TestRestoredCursorIsClamped(t *testing.T) {
	eng := readyEngine(t, WithCursor(10))
	assert.Equal(t, 2, eng.Cursor())
	cur, ok := eng.Current()
	require.True(t, ok)
	assert.Equal(t, "rec-3", cur.ID)
}

func TestExhaustedQueue(t *testing.T) {
	eng := readyEngine(t)
	for _, id := range []string{"rec-1", "rec-2", "rec-3"} {
		_, err := eng.Dispatch(Contact{ID: id})
		require.NoError(t, err)
	}
	_, ok := eng.Current()
	assert.False(t, ok)
	assert.Equal(t, 0, eng.Cursor())
}

func TestFailedLoadLeavesEmptyRoster(t *testing.T) {
	eng := newEngine(t)
	eng.Failed(codec.ErrMissingSheet)
	assert.Equal(t, PhaseReady, eng.Phase())
	assert.Contains(t, eng.Warning(), "retorno")
	assert.Zero(t, eng.Store().Len())
	_, ok := eng.Current()
	assert.False(t, ok)

	eng2 := newEngine(t)
	eng2.Failed(errors.New("zip: not a valid zip file"))
	assert.Contains(t, eng2.Warning(), "zip")
}

func TestExportRoundTrip(t *testing.T) {
	eng := readyEngine(t)
	_, _ = eng.Dispatch(Contact{ID: "rec-1"})
	_, _ = eng.Dispatch(Contact{ID: "rec-2"})
	_, _ = eng.Dispatch(Select{ID: "rec-2"})
	_, _ = eng.Dispatch(RecordOutcome{Reason: "sin stock"})

	res, err := eng.Dispatch(Export{})
	require.NoError(t, err)
	writes := effectsOf[WriteExport](res)
	require.Len(t, writes, 1)
	assert.Equal(t, 3, writes[0].Rows)

	sheet, err := codec.New("").Decode(writes[0].Blob)
	require.NoError(t, err)
	reloaded := newEngine(t)
	reloaded.Ready(sheet)

	before, after := eng.Store().All(), reloaded.Store().All()
	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].Status, after[i].Status)
		assert.Equal(t, before[i].Reason, after[i].Reason)
		assert.Equal(t, before[i].EverContacted, after[i].EverContacted)
		assert.Equal(t, before[i].Code, after[i].Code)
		assert.Equal(t, before[i].Phone, after[i].Phone)
	}
}

func TestExportKeepsPassthroughColumns(t *testing.T) {
	eng := newEngine(t)
	eng.Ready(codec.Sheet{
		Name:   codec.DefaultSheet,
		Header: []string{"Codigo", "Cliente", "Telefono", "Ultima compra", "Monto", "Notas", "Notas_2"},
		Rows: []codec.Row{
			{"Codigo": "A1", "Cliente": "Ana", "Telefono": "111", "Ultima compra": "45366", "Monto": "1250.5", "Notas": "llamar tarde", "Notas_2": "vip"},
		},
		Kinds:   []codec.RowKinds{{"Ultima compra": codec.KindDate, "Monto": codec.KindNumber}},
		Renamed: []codec.ColumnRename{{Original: "Notas", Column: "Notas_2"}},
	})
	_, err := eng.Dispatch(Contact{ID: "rec-1"})
	require.NoError(t, err)

	res, err := eng.Dispatch(Export{})
	require.NoError(t, err)
	writes := effectsOf[WriteExport](res)
	require.Len(t, writes, 1)

	sheet, err := codec.New("").Decode(writes[0].Blob)
	require.NoError(t, err)
	require.Len(t, sheet.Rows, 1)
	assert.Equal(t, "45366", sheet.Rows[0]["Ultima compra"])
	assert.Equal(t, codec.KindDate, sheet.KindOf(0, "Ultima compra"))
	assert.Equal(t, codec.KindNumber, sheet.KindOf(0, "Monto"))
	assert.Equal(t, "vip", sheet.Rows[0]["Notas_2"])
	assert.Equal(t, roster.LabelPending, sheet.Rows[0][roster.ColumnResult])
}

func TestEncodeRosterNeedsStoreAndCodec(t *testing.T) {
	_, err := encodeRoster(nil, codec.New(""))
	require.Error(t, err)
	_, err = encodeRoster(roster.NewStore(), nil)
	require.Error(t, err)

	blob, err := encodeRoster(roster.NewStore(), codec.New(""))
	require.NoError(t, err)
	assert.NotEmpty(t, blob)
}

// Random action sequences must never break the record invariants.
func TestInvariantsUnderRandomActions(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 50; round++ {
		eng := readyEngine(t)
		contacted := map[string]bool{}
		for step := 0; step < 40; step++ {
			all := eng.Store().All()
			target := all[rng.Intn(len(all))].ID
			var act Action
			switch rng.Intn(6) {
			case 0:
				act = Contact{ID: target}
			case 1:
				act = Select{ID: target}
			case 2:
				act = RecordOutcome{Purchased: rng.Intn(2) == 0, Reason: "r"}
			case 3:
				act = Next{}
			case 4:
				act = Prev{}
			default:
				act = ClearSelection{}
			}
			_, _ = eng.Dispatch(act)

			untouched := eng.Untouched()
			pos := eng.Cursor()
			assert.GreaterOrEqual(t, pos, 0)
			assert.LessOrEqual(t, pos, max(0, len(untouched)-1))

			buckets := 0
			for _, rec := range eng.Store().All() {
				require.True(t, rec.Status.Valid())
				if rec.Reason != "" {
					require.Equal(t, roster.StatusNotPurchased, rec.Status)
				}
				if contacted[rec.ID] {
					require.True(t, rec.EverContacted, "ever-contacted reset on %s", rec.ID)
				}
				contacted[rec.ID] = rec.EverContacted
				buckets++
			}
			counts := roster.Counts(eng.Store())
			assert.Equal(t, buckets, counts[roster.StatusUntouched]+counts[roster.StatusPending]+
				counts[roster.StatusPurchased]+counts[roster.StatusNotPurchased])
			assert.Len(t, untouched, counts[roster.StatusUntouched])
			assert.Len(t, eng.Pending(""), counts[roster.StatusPending])
		}
	}
}

func TestUnknownAction(t *testing.T) {
	eng := readyEngine(t)
	_, err := eng.Dispatch(nil)
	require.ErrorIs(t, err, ErrUnknownAction)
}
