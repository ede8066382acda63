package gen

import (
	"bytes"
	"go/format"
	"strings"
	"testing"

	"github.com/stagescript/stagescript/graph"
)

func mustAdd(t *testing.T, w *graph.Workspace, defID string, scope graph.Scope) *graph.BlockInstance {
	t.Helper()
	inst, err := w.AddInstance(defID, scope)
	if err != nil {
		t.Fatalf("AddInstance(%s): %v", defID, err)
	}
	return inst
}

func mustConnect(t *testing.T, w *graph.Workspace, src, srcHandle, dst, dstHandle string, wait int) {
	t.Helper()
	if _, err := w.Connect(src, srcHandle, dst, dstHandle, wait); err != nil {
		t.Fatalf("Connect(%s.%s -> %s.%s): %v", src, srcHandle, dst, dstHandle, err)
	}
}

func mustGenerate(t *testing.T, w *graph.Workspace) string {
	t.Helper()
	out, err := New(w, "program").Generate()
	if err != nil {
		t.Fatalf("Generate: %v\n%s", err, out)
	}
	return string(out)
}

func assertOrder(t *testing.T, out string, first, second string) {
	t.Helper()
	i, j := strings.Index(out, first), strings.Index(out, second)
	if i < 0 || j < 0 {
		t.Fatalf("missing %q (at %d) or %q (at %d) in:\n%s", first, i, second, j, out)
	}
	if i > j {
		t.Errorf("%q appears after %q", first, second)
	}
}

func TestGenerate_SetupChain(t *testing.T) {
	w := graph.NewWorkspace()
	entry := mustAdd(t, w, "when_setup", graph.StageScope)
	bg := mustAdd(t, w, "set_background", graph.StageScope)
	if err := w.SetValue(bg.ID, "color", "blue"); err != nil {
		t.Fatal(err)
	}
	mustConnect(t, w, entry.ID, "bottom", bg.ID, "top", 0)

	out := mustGenerate(t, w)
	if !strings.Contains(out, "func Setup(sim *stagescript.SimulationContext)") {
		t.Errorf("no Setup hook in:\n%s", out)
	}
	if !strings.Contains(out, `sim.SetBackground("blue")`) {
		t.Errorf("setup chain missing in:\n%s", out)
	}
}

func TestGenerate_StageTickAndClickInline(t *testing.T) {
	w := graph.NewWorkspace()
	tick := mustAdd(t, w, "when_stage_tick", graph.StageScope)
	score := mustAdd(t, w, "var_change", graph.StageScope)
	mustConnect(t, w, tick.ID, "bottom", score.ID, "top", 0)

	click := mustAdd(t, w, "when_clicked", graph.StageScope)
	bg := mustAdd(t, w, "set_background", graph.StageScope)
	mustConnect(t, w, click.ID, "bottom", bg.ID, "top", 0)

	out := mustGenerate(t, w)
	assertOrder(t, out, "func PerTick(", `sim.SetVar("score", sim.NumVar("score")`)
	assertOrder(t, out, "func Click(", `sim.SetBackground("white")`)
	if strings.Contains(out, "go runLoop_") {
		t.Error("stage tick entry was promoted to a loop")
	}
}

func TestGenerate_ActorTickPromotedToLoop(t *testing.T) {
	w := graph.NewWorkspace()
	tick := mustAdd(t, w, "when_stage_tick", graph.Scope("cat"))
	move := mustAdd(t, w, "move_by", graph.Scope("cat"))
	mustConnect(t, w, tick.ID, "bottom", move.ID, "top", 0)

	out := mustGenerate(t, w)
	if !strings.Contains(out, "go runLoop_") {
		t.Errorf("actor tick entry not promoted to a loop:\n%s", out)
	}
	assertOrder(t, out, "func stepLoop_", `sim.MoveActor("cat", 10, 0)`)
}

func TestGenerate_UnconnectedPortsDefault(t *testing.T) {
	w := graph.NewWorkspace()
	entry := mustAdd(t, w, "when_setup", graph.Scope("cat"))
	cond := mustAdd(t, w, "if_else", graph.Scope("cat"))
	mustConnect(t, w, entry.ID, "bottom", cond.ID, "top", 0)

	out := mustGenerate(t, w)
	if !strings.Contains(out, "if true {") {
		t.Errorf("unconnected condition did not default to true:\n%s", out)
	}
	if !strings.Contains(out, "// no blocks connected") {
		t.Errorf("empty branches missing placeholder comment:\n%s", out)
	}
	if strings.Contains(out, "${") {
		t.Errorf("unexpanded placeholder leaked:\n%s", out)
	}
}

func TestGenerate_BranchChains(t *testing.T) {
	w := graph.NewWorkspace()
	entry := mustAdd(t, w, "when_setup", graph.Scope("cat"))
	cond := mustAdd(t, w, "if_else", graph.Scope("cat"))
	gt := mustAdd(t, w, "op_gt", graph.Scope("cat"))
	move := mustAdd(t, w, "move_by", graph.Scope("cat"))
	hide := mustAdd(t, w, "hide", graph.Scope("cat"))

	mustConnect(t, w, entry.ID, "bottom", cond.ID, "top", 0)
	mustConnect(t, w, gt.ID, "output-0", cond.ID, "input-0", 0)
	mustConnect(t, w, cond.ID, "output-0", move.ID, "top", 0)
	mustConnect(t, w, cond.ID, "output-1", hide.ID, "top", 0)

	out := mustGenerate(t, w)
	if !strings.Contains(out, "if 0 > 0 {") {
		t.Errorf("condition supplier not expanded:\n%s", out)
	}
	assertOrder(t, out, `sim.MoveActor("cat", 10, 0)`, "} else {")
	assertOrder(t, out, "} else {", "Visible: stagescript.B(false)")
}

// An unconnected divisor defaults to a constant 0; the division has to go
// through the runtime helper or the generated program would not compile.
func TestGenerate_DivisionDefaultsCompile(t *testing.T) {
	w := graph.NewWorkspace()
	entry := mustAdd(t, w, "when_setup", graph.Scope("cat"))
	jump := mustAdd(t, w, "goto_xy", graph.Scope("cat"))
	div := mustAdd(t, w, "op_div", graph.Scope("cat"))
	mustConnect(t, w, entry.ID, "bottom", jump.ID, "top", 0)
	mustConnect(t, w, div.ID, "output-0", jump.ID, "x", 0)

	out := mustGenerate(t, w)
	if !strings.Contains(out, "stagescript.F(sim.Div(0, 0))") {
		t.Errorf("division not routed through the runtime:\n%s", out)
	}
	if strings.Contains(out, "0 / 0") {
		t.Errorf("constant division leaked into the output:\n%s", out)
	}
}

// A generic (untyped) supplier wired into a typed field is wrapped in a
// runtime coercion so the generated program stays well typed.
func TestGenerate_GenericSupplierCoerced(t *testing.T) {
	w := graph.NewWorkspace()
	entry := mustAdd(t, w, "when_setup", graph.Scope("cat"))
	paint := mustAdd(t, w, "set_color", graph.Scope("cat"))
	score := mustAdd(t, w, "var_get", graph.Scope("cat"))
	mustConnect(t, w, entry.ID, "bottom", paint.ID, "top", 0)
	mustConnect(t, w, score.ID, "output", paint.ID, "color", 0)

	out := mustGenerate(t, w)
	if !strings.Contains(out, `stagescript.S(stagescript.AsText(sim.NumVar("score")))`) {
		t.Errorf("generic supplier not coerced to text:\n%s", out)
	}
}

// Typed port pairings with matching types stay unwrapped.
func TestGenerate_MatchingSupplierNotCoerced(t *testing.T) {
	w := graph.NewWorkspace()
	entry := mustAdd(t, w, "when_setup", graph.Scope("cat"))
	jump := mustAdd(t, w, "goto_xy", graph.Scope("cat"))
	add := mustAdd(t, w, "op_add", graph.Scope("cat"))
	mustConnect(t, w, entry.ID, "bottom", jump.ID, "top", 0)
	mustConnect(t, w, add.ID, "output-0", jump.ID, "x", 0)

	out := mustGenerate(t, w)
	if strings.Contains(out, "stagescript.AsNum(") {
		t.Errorf("matching number supplier was wrapped:\n%s", out)
	}
	if !strings.Contains(out, "stagescript.F((0 + 0))") {
		t.Errorf("supplier expression missing:\n%s", out)
	}
}

func TestGenerate_RepeatBody(t *testing.T) {
	w := graph.NewWorkspace()
	entry := mustAdd(t, w, "when_setup", graph.Scope("cat"))
	loop := mustAdd(t, w, "repeat", graph.Scope("cat"))
	move := mustAdd(t, w, "move_by", graph.Scope("cat"))
	if err := w.SetValue(loop.ID, "times", 4); err != nil {
		t.Fatal(err)
	}
	mustConnect(t, w, entry.ID, "bottom", loop.ID, "top", 0)
	mustConnect(t, w, loop.ID, "output-0", move.ID, "top", 0)

	out := mustGenerate(t, w)
	assertOrder(t, out, "for _i := 0; _i < int(4); _i++ {", `sim.MoveActor("cat", 10, 0)`)
}

func TestGenerate_WhileBody(t *testing.T) {
	w := graph.NewWorkspace()
	entry := mustAdd(t, w, "when_setup", graph.Scope("cat"))
	loop := mustAdd(t, w, "while", graph.Scope("cat"))
	lt := mustAdd(t, w, "op_lt", graph.Scope("cat"))
	hide := mustAdd(t, w, "hide", graph.Scope("cat"))
	mustConnect(t, w, entry.ID, "bottom", loop.ID, "top", 0)
	mustConnect(t, w, lt.ID, "output-0", loop.ID, "input-0", 0)
	mustConnect(t, w, loop.ID, "output-0", hide.ID, "top", 0)

	out := mustGenerate(t, w)
	assertOrder(t, out, "for 0 < 0 {", "Visible: stagescript.B(false)")
}

func TestGenerate_TimedEdgeInLoop(t *testing.T) {
	w := graph.NewWorkspace()
	entry := mustAdd(t, w, "forever", graph.Scope("cat"))
	move := mustAdd(t, w, "move_by", graph.Scope("cat"))
	jump := mustAdd(t, w, "goto_xy", graph.Scope("cat"))
	mustConnect(t, w, entry.ID, "bottom", move.ID, "top", 0)
	mustConnect(t, w, move.ID, "bottom", jump.ID, "top", 5)

	out := mustGenerate(t, w)
	assertOrder(t, out, `sim.MoveActor("cat", 10, 0)`, "sim.WaitFrames(_epoch, 5)")
	assertOrder(t, out, "sim.WaitFrames(_epoch, 5)", "sim.UpdateActor(\"cat\"")
	if !strings.Contains(out, "stagescript.CooldownFrames") {
		t.Errorf("loop fault cooldown missing:\n%s", out)
	}
}

func TestGenerate_TimedEdgeTruncatesSyncHook(t *testing.T) {
	w := graph.NewWorkspace()
	entry := mustAdd(t, w, "when_setup", graph.StageScope)
	bg := mustAdd(t, w, "set_background", graph.StageScope)
	mustConnect(t, w, entry.ID, "bottom", bg.ID, "top", 3)

	out := mustGenerate(t, w)
	if strings.Contains(out, "sim.SetBackground") {
		t.Errorf("chain behind a timed edge ran inside a synchronous hook:\n%s", out)
	}
	if !strings.Contains(out, "chain truncated") {
		t.Errorf("truncation comment missing:\n%s", out)
	}
}

func TestGenerate_WaitBlockInSyncHook(t *testing.T) {
	w := graph.NewWorkspace()
	entry := mustAdd(t, w, "when_setup", graph.StageScope)
	pause := mustAdd(t, w, "wait", graph.StageScope)
	mustConnect(t, w, entry.ID, "bottom", pause.ID, "top", 0)

	out := mustGenerate(t, w)
	if !strings.Contains(out, "cannot suspend inside a synchronous hook") {
		t.Errorf("wait block not dropped with a comment:\n%s", out)
	}
	if strings.Contains(out, "sim.WaitFrames(_epoch, int(") {
		t.Errorf("wait template leaked into a synchronous hook:\n%s", out)
	}
}

func TestGenerate_ActorRequiredDroppedOnStage(t *testing.T) {
	w := graph.NewWorkspace()
	entry := mustAdd(t, w, "when_setup", graph.StageScope)
	move := mustAdd(t, w, "move_by", graph.StageScope)
	mustConnect(t, w, entry.ID, "bottom", move.ID, "top", 0)

	out := mustGenerate(t, w)
	if strings.Contains(out, "sim.MoveActor") {
		t.Errorf("actor-required block ran on the stage:\n%s", out)
	}
	if !strings.Contains(out, "needs an actor") {
		t.Errorf("drop comment missing:\n%s", out)
	}
}

// Cyclic data wiring compiles to a degraded but terminating expression
// instead of hanging the generator.
func TestGenerate_DataCycleTerminates(t *testing.T) {
	w := graph.NewWorkspace()
	entry := mustAdd(t, w, "when_setup", graph.Scope("cat"))
	jump := mustAdd(t, w, "goto_xy", graph.Scope("cat"))
	add := mustAdd(t, w, "op_add", graph.Scope("cat"))
	mul := mustAdd(t, w, "op_mul", graph.Scope("cat"))

	mustConnect(t, w, entry.ID, "bottom", jump.ID, "top", 0)
	mustConnect(t, w, mul.ID, "output-0", add.ID, "input-0", 0)
	mustConnect(t, w, add.ID, "output-0", mul.ID, "input-0", 0)
	mustConnect(t, w, add.ID, "output-0", jump.ID, "x", 0)

	out := mustGenerate(t, w)
	if !strings.Contains(out, "(0 + 0)") {
		t.Errorf("cycle did not degrade to defaults:\n%s", out)
	}
	if strings.Contains(out, "${") {
		t.Errorf("unexpanded placeholder leaked:\n%s", out)
	}
}

func TestGenerate_VarRefInput(t *testing.T) {
	w := graph.NewWorkspace()
	entry := mustAdd(t, w, "when_setup", graph.Scope("cat"))
	move := mustAdd(t, w, "move_by", graph.Scope("cat"))
	if err := w.SetValue(move.ID, "dx", graph.VarRef{Name: "speed"}); err != nil {
		t.Fatal(err)
	}
	mustConnect(t, w, entry.ID, "bottom", move.ID, "top", 0)

	out := mustGenerate(t, w)
	if !strings.Contains(out, `sim.MoveActor("cat", sim.NumVar("speed"), 0)`) {
		t.Errorf("variable reference not expanded:\n%s", out)
	}
}

func TestGenerate_DrawBufferedInLoop(t *testing.T) {
	w := graph.NewWorkspace()
	entry := mustAdd(t, w, "forever", graph.StageScope)
	circle := mustAdd(t, w, "draw_circle", graph.StageScope)
	mustConnect(t, w, entry.ID, "bottom", circle.ID, "top", 0)

	out := mustGenerate(t, w)
	if !strings.Contains(out, `sim.AppendDrawCommand("circle", 0, 0, 20)`) {
		t.Errorf("draw call not routed through the buffer:\n%s", out)
	}
	if strings.Contains(out, "sim.Draw(") {
		t.Errorf("immediate draw call inside a loop body:\n%s", out)
	}
}

func TestGenerate_DrawImmediateInSetup(t *testing.T) {
	w := graph.NewWorkspace()
	entry := mustAdd(t, w, "when_setup", graph.StageScope)
	circle := mustAdd(t, w, "draw_circle", graph.StageScope)
	mustConnect(t, w, entry.ID, "bottom", circle.ID, "top", 0)

	out := mustGenerate(t, w)
	if !strings.Contains(out, `sim.Draw("circle", 0, 0, 20)`) {
		t.Errorf("synchronous draw call was rewritten:\n%s", out)
	}
}

func TestGenerate_RegisterActorsRoster(t *testing.T) {
	w := graph.NewWorkspace()
	if err := w.AddActor(graph.ActorSpec{ID: "cat", Size: 100, Color: "orange", Visible: true}); err != nil {
		t.Fatal(err)
	}
	if err := w.AddActor(graph.ActorSpec{ID: "dog", Size: 80, Color: "brown", Visible: true}); err != nil {
		t.Fatal(err)
	}

	out := mustGenerate(t, w)
	assertOrder(t, out, `sim.RegisterActor(stagescript.Actor{ID: "cat"`, `sim.RegisterActor(stagescript.Actor{ID: "dog"`)
}

func TestGenerate_ScopeIsolation(t *testing.T) {
	w := graph.NewWorkspace()
	catEntry := mustAdd(t, w, "when_setup", graph.Scope("cat"))
	catMove := mustAdd(t, w, "move_by", graph.Scope("cat"))
	mustConnect(t, w, catEntry.ID, "bottom", catMove.ID, "top", 0)

	dogEntry := mustAdd(t, w, "when_setup", graph.Scope("dog"))
	dogHide := mustAdd(t, w, "hide", graph.Scope("dog"))
	mustConnect(t, w, dogEntry.ID, "bottom", dogHide.ID, "top", 0)

	out := mustGenerate(t, w)
	if !strings.Contains(out, `sim.MoveActor("cat", 10, 0)`) {
		t.Errorf("cat chain missing:\n%s", out)
	}
	if !strings.Contains(out, `sim.UpdateActor("dog"`) {
		t.Errorf("dog chain missing:\n%s", out)
	}
	if strings.Contains(out, `sim.MoveActor("dog"`) {
		t.Errorf("chain leaked across scopes:\n%s", out)
	}
}

// Unknown block kinds in a hand-edited snapshot compile to comments, never
// to a generator error.
func TestGenerate_UnknownBlockKind(t *testing.T) {
	src := `{
  "version": 1,
  "actors": [],
  "blocks": [
    {"id": "blk1", "def": "when_setup", "scope": "stage"},
    {"id": "blk2", "def": "bogus", "scope": "stage"}
  ],
  "connections": [
    {"id": "c1", "source": "blk1", "sourceHandle": "bottom", "target": "blk2", "targetHandle": "top", "kind": "flow"}
  ]
}`
	w, err := graph.Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	out := mustGenerate(t, w)
	if !strings.Contains(out, `unknown block kind "bogus"`) {
		t.Errorf("unknown block not surfaced as comment:\n%s", out)
	}
}

func TestGenerate_Idempotent(t *testing.T) {
	w := graph.NewWorkspace()
	if err := w.AddActor(graph.ActorSpec{ID: "cat", Visible: true}); err != nil {
		t.Fatal(err)
	}
	entry := mustAdd(t, w, "forever", graph.Scope("cat"))
	move := mustAdd(t, w, "move_by", graph.Scope("cat"))
	jump := mustAdd(t, w, "goto_xy", graph.Scope("cat"))
	mustConnect(t, w, entry.ID, "bottom", move.ID, "top", 0)
	mustConnect(t, w, move.ID, "bottom", jump.ID, "top", 2)

	first, err := New(w, "program").Generate()
	if err != nil {
		t.Fatalf("first Generate: %v", err)
	}
	second, err := New(w, "program").Generate()
	if err != nil {
		t.Fatalf("second Generate: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("repeated generation produced different output")
	}
}

func TestGenerate_OutputIsFormatted(t *testing.T) {
	w := graph.NewWorkspace()
	entry := mustAdd(t, w, "when_setup", graph.Scope("cat"))
	cond := mustAdd(t, w, "if_else", graph.Scope("cat"))
	move := mustAdd(t, w, "move_by", graph.Scope("cat"))
	mustConnect(t, w, entry.ID, "bottom", cond.ID, "top", 0)
	mustConnect(t, w, cond.ID, "output-0", move.ID, "top", 0)

	out := []byte(mustGenerate(t, w))
	formatted, err := format.Source(out)
	if err != nil {
		t.Fatalf("generated output does not parse: %v", err)
	}
	if !bytes.Equal(out, formatted) {
		t.Error("generated output is not gofmt-clean")
	}
}
