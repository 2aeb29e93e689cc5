//go:build js && wasm

package main

import (
	"context"
	"log/slog"
	"os"
	"syscall/js"

	"github.com/graphif/stagecore/internal/attachment"
	"github.com/graphif/stagecore/internal/clipboard"
	"github.com/graphif/stagecore/internal/engine"
	"github.com/graphif/stagecore/internal/geom"
)

var eng *engine.Engine

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn})))

	var err error
	eng, err = engine.New(engine.Options{
		ViewSize:    geom.V(1280, 720),
		Attachments: attachment.NewMemoryStore(),
	})
	if err != nil {
		slog.Error("create engine", "error", err)
		return
	}

	// Create the engine API object
	stageEngine := js.Global().Get("Object").New()

	// --- Commands (frontend → engine) ---
	stageEngine.Set("loadDocument", js.FuncOf(loadDocument))
	stageEngine.Set("loadSampleDocument", js.FuncOf(loadSampleDocument))
	stageEngine.Set("setViewSize", js.FuncOf(setViewSize))
	stageEngine.Set("pan", js.FuncOf(pan))
	stageEngine.Set("zoomAt", js.FuncOf(zoomAt))
	stageEngine.Set("resetCamera", js.FuncOf(resetCamera))
	stageEngine.Set("focusOn", js.FuncOf(focusOn))
	stageEngine.Set("focusAll", js.FuncOf(focusAll))
	stageEngine.Set("setSelection", js.FuncOf(setSelection))
	stageEngine.Set("selectAt", js.FuncOf(selectAt))
	stageEngine.Set("selectRect", js.FuncOf(selectRect))
	stageEngine.Set("selectAll", js.FuncOf(selectAll))
	stageEngine.Set("moveSelected", js.FuncOf(moveSelected))
	stageEngine.Set("record", js.FuncOf(record))
	stageEngine.Set("undo", js.FuncOf(undo))
	stageEngine.Set("redo", js.FuncOf(redo))
	stageEngine.Set("copy", js.FuncOf(copySelection))
	stageEngine.Set("cut", js.FuncOf(cut))
	stageEngine.Set("paste", js.FuncOf(paste))
	stageEngine.Set("copyText", js.FuncOf(copyText))
	stageEngine.Set("deleteSelected", js.FuncOf(deleteSelected))
	stageEngine.Set("connect", js.FuncOf(connect))
	stageEngine.Set("connectSelected", js.FuncOf(connectSelected))
	stageEngine.Set("addTextNode", js.FuncOf(addTextNode))
	stageEngine.Set("addImage", js.FuncOf(addImage))
	stageEngine.Set("groupSelected", js.FuncOf(groupSelected))
	stageEngine.Set("toggleCollapse", js.FuncOf(toggleCollapse))
	stageEngine.Set("layout", js.FuncOf(layout))
	stageEngine.Set("beginEdit", js.FuncOf(beginEdit))
	stageEngine.Set("endEdit", js.FuncOf(endEdit))
	stageEngine.Set("cancelEdit", js.FuncOf(cancelEdit))
	stageEngine.Set("tick", js.FuncOf(tick))

	// --- Queries (frontend ← engine) ---
	stageEngine.Set("render", js.FuncOf(render))
	stageEngine.Set("hitTest", js.FuncOf(hitTest))
	stageEngine.Set("getSelection", js.FuncOf(getSelection))
	stageEngine.Set("getSelectionBounds", js.FuncOf(getSelectionBounds))
	stageEngine.Set("getDocument", js.FuncOf(getDocument))
	stageEngine.Set("getCamera", js.FuncOf(getCamera))
	stageEngine.Set("getHistory", js.FuncOf(getHistory))

	// Register on global scope
	js.Global().Set("stageEngine", stageEngine)

	// Signal that WASM is ready
	js.Global().Set("stageWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func done() interface{} {
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func fail(err error) interface{} {
	return js.ValueOf(map[string]interface{}{"error": err.Error()})
}

func missing(what string) interface{} {
	return js.ValueOf(map[string]interface{}{"error": "missing " + what})
}

func result(err error) interface{} {
	if err != nil {
		return fail(err)
	}
	return done()
}

func floats(args []js.Value, n int) ([]float64, bool) {
	if len(args) < n {
		return nil, false
	}
	out := make([]float64, n)
	for i := range n {
		out[i] = args[i].Float()
	}
	return out, true
}

func stringSlice(v js.Value) []string {
	if v.Type() != js.TypeObject {
		return nil
	}
	out := make([]string, v.Length())
	for i := range out {
		out[i] = v.Index(i).String()
	}
	return out
}

// --- Command Handlers ---

func loadDocument(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return missing("document JSON")
	}
	return result(eng.LoadDocument(args[0].String()))
}

func loadSampleDocument(this js.Value, args []js.Value) interface{} {
	return result(eng.LoadSampleDocument())
}

func setViewSize(this js.Value, args []js.Value) interface{} {
	if xs, ok := floats(args, 2); ok {
		eng.SetViewSize(xs[0], xs[1])
	}
	return nil
}

func pan(this js.Value, args []js.Value) interface{} {
	if xs, ok := floats(args, 2); ok {
		return js.ValueOf(eng.Pan(xs[0], xs[1]))
	}
	return js.ValueOf(false)
}

func zoomAt(this js.Value, args []js.Value) interface{} {
	if xs, ok := floats(args, 3); ok {
		return js.ValueOf(eng.ZoomAt(xs[0], xs[1], xs[2]))
	}
	return js.ValueOf(false)
}

func resetCamera(this js.Value, args []js.Value) interface{} {
	eng.ResetCamera()
	return nil
}

func focusOn(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return missing("object id")
	}
	return result(eng.FocusOn(args[0].String()))
}

func focusAll(this js.Value, args []js.Value) interface{} {
	eng.FocusAll()
	return nil
}

func setSelection(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		eng.Select(nil)
		return nil
	}
	eng.Select(stringSlice(args[0]))
	return nil
}

func selectAt(this js.Value, args []js.Value) interface{} {
	xs, ok := floats(args, 2)
	if !ok {
		return js.ValueOf("")
	}
	additive := len(args) > 2 && args[2].Truthy()
	return js.ValueOf(eng.SelectAt(xs[0], xs[1], additive))
}

func selectRect(this js.Value, args []js.Value) interface{} {
	xs, ok := floats(args, 4)
	if !ok {
		return js.ValueOf(0)
	}
	additive := len(args) > 4 && args[4].Truthy()
	return js.ValueOf(eng.SelectRect(xs[0], xs[1], xs[2], xs[3], additive))
}

func selectAll(this js.Value, args []js.Value) interface{} {
	eng.SelectAll()
	return nil
}

func moveSelected(this js.Value, args []js.Value) interface{} {
	if xs, ok := floats(args, 2); ok {
		eng.MoveSelected(xs[0], xs[1])
	}
	return nil
}

func record(this js.Value, args []js.Value) interface{} {
	_, err := eng.Record()
	return result(err)
}

func undo(this js.Value, args []js.Value) interface{} {
	changed, err := eng.Undo()
	if err != nil {
		return fail(err)
	}
	return js.ValueOf(changed)
}

func redo(this js.Value, args []js.Value) interface{} {
	changed, err := eng.Redo()
	if err != nil {
		return fail(err)
	}
	return js.ValueOf(changed)
}

func copySelection(this js.Value, args []js.Value) interface{} {
	n, err := eng.Copy()
	if err != nil {
		return fail(err)
	}
	return js.ValueOf(n)
}

func cut(this js.Value, args []js.Value) interface{} {
	n, err := eng.Cut()
	if err != nil {
		return fail(err)
	}
	return js.ValueOf(n)
}

func paste(this js.Value, args []js.Value) interface{} {
	xs, ok := floats(args, 2)
	if !ok {
		return missing("paste position")
	}
	ids, err := eng.Paste(xs[0], xs[1])
	if err != nil {
		return fail(err)
	}
	out := make([]interface{}, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return js.ValueOf(out)
}

// copyText mirrors the selection as plain text through navigator.clipboard.
func copyText(this js.Value, args []js.Value) interface{} {
	mirror := clipboard.TextMirror{Write: func(text string) error {
		js.Global().Get("navigator").Get("clipboard").Call("writeText", text)
		return nil
	}}
	return result(eng.CopyText(mirror))
}

func deleteSelected(this js.Value, args []js.Value) interface{} {
	n, err := eng.Delete()
	if err != nil {
		return fail(err)
	}
	return js.ValueOf(n)
}

func connect(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return missing("source and target")
	}
	curved := len(args) > 2 && args[2].Truthy()
	id, err := eng.Connect(args[0].String(), args[1].String(), curved)
	if err != nil {
		return fail(err)
	}
	return js.ValueOf(id)
}

func connectSelected(this js.Value, args []js.Value) interface{} {
	id, err := eng.ConnectSelected()
	if err != nil {
		return fail(err)
	}
	return js.ValueOf(id)
}

func addTextNode(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return missing("text and position")
	}
	id, err := eng.AddTextNode(args[0].String(), args[1].Float(), args[2].Float())
	if err != nil {
		return fail(err)
	}
	return js.ValueOf(id)
}

// addImage takes a Uint8Array of file bytes and a view position.
func addImage(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return missing("image bytes and position")
	}
	data := make([]byte, args[0].Get("length").Int())
	js.CopyBytesToGo(data, args[0])
	id, err := eng.AddImage(context.Background(), data, args[1].Float(), args[2].Float())
	if err != nil {
		return fail(err)
	}
	return js.ValueOf(id)
}

func groupSelected(this js.Value, args []js.Value) interface{} {
	title := ""
	if len(args) > 0 {
		title = args[0].String()
	}
	id, err := eng.GroupSelected(title)
	if err != nil {
		return fail(err)
	}
	return js.ValueOf(id)
}

func toggleCollapse(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return missing("section id")
	}
	return result(eng.ToggleCollapse(args[0].String()))
}

func layout(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return missing("layout name")
	}
	return result(eng.Layout(args[0].String()))
}

func beginEdit(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return missing("object id")
	}
	text, err := eng.BeginEdit(args[0].String())
	if err != nil {
		return fail(err)
	}
	return js.ValueOf(text)
}

func endEdit(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return missing("text")
	}
	return result(eng.EndEdit(args[0].String()))
}

func cancelEdit(this js.Value, args []js.Value) interface{} {
	return result(eng.CancelEdit())
}

func tick(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Tick())
}

// --- Query Handlers ---

func render(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Render())
}

func hitTest(this js.Value, args []js.Value) interface{} {
	xs, ok := floats(args, 2)
	if !ok {
		return js.ValueOf("")
	}
	return js.ValueOf(eng.HitTest(xs[0], xs[1]))
}

func getSelection(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.GetSelection())
}

func getSelectionBounds(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.GetSelectionBounds())
}

func getDocument(this js.Value, args []js.Value) interface{} {
	doc, err := eng.Document()
	if err != nil {
		return fail(err)
	}
	return js.ValueOf(doc)
}

func getCamera(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.CameraState())
}

func getHistory(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.HistoryState())
}
