// Package gen compiles a block graph into a runnable Go program. One
// compilation pass runs per entry block: synchronous entries (setup, stage
// tick, click) inline their chains into the matching hook; perpetual entries
// become independently scheduled loop functions started by StartLoops.
//
// Compilation is total: malformed or half-wired graphs compile to degraded
// but runnable output (safe defaults and explanatory comments), never to an
// error. Errors surface only from formatting the final source.
package gen

import (
	"bytes"
	"fmt"
	"go/format"
	"strings"

	"golang.org/x/tools/imports"

	"github.com/stagescript/stagescript/catalog"
	"github.com/stagescript/stagescript/graph"
)

// runtimeImport is the module the generated program links against.
const runtimeImport = "github.com/stagescript/stagescript"

// Compiler generates one program from one workspace.
type Compiler struct {
	ws     *graph.Workspace
	pkg    string
	buf    *bytes.Buffer
	indent int
}

// New returns a compiler emitting into the given package name
// ("program" when empty).
func New(ws *graph.Workspace, pkg string) *Compiler {
	if pkg == "" {
		pkg = "program"
	}
	return &Compiler{ws: ws, pkg: pkg, buf: &bytes.Buffer{}}
}

// entry is one discovered entry block.
type entry struct {
	inst *graph.BlockInstance
	def  *catalog.BlockDefinition
}

// scopeCtx carries the compilation context of one chain: whose scope the
// code runs in and whether it runs inside a perpetual loop body (where
// suspension is legal and draw calls are buffered).
type scopeCtx struct {
	scope  graph.Scope
	inLoop bool
}

func (ctx scopeCtx) actorID() string {
	if ctx.scope == graph.StageScope {
		return ""
	}
	return string(ctx.scope)
}

// Generate compiles the workspace and returns formatted Go source. When
// gofmt rejects the output the raw buffer is returned together with the
// error, for debugging.
func (c *Compiler) Generate() ([]byte, error) {
	c.buf.Reset()
	c.indent = 0

	setups, ticks, clicks, loops := c.discoverEntries()

	c.writeLine("// Code generated by stagegen. DO NOT EDIT.")
	c.writeLine("")
	c.writeLine("package %s", c.pkg)
	c.writeLine("")
	c.writeLine("import (")
	c.indent++
	c.writeLine(`"fmt"`)
	c.writeLine(`"log"`)
	c.writeLine("")
	c.writeLine(`"%s"`, runtimeImport)
	c.indent--
	c.writeLine(")")
	c.writeLine("")

	c.emitRegisterActors()
	c.emitHook("Setup", "runs once before the first frame", setups)
	c.emitHook("PerTick", "runs inside every frame of the host loop", ticks)
	c.emitHook("Click", "runs when the host reports a click", clicks)
	c.emitLoops(loops)

	formatted, err := format.Source(c.buf.Bytes())
	if err != nil {
		return c.buf.Bytes(), fmt.Errorf("format generated code: %w", err)
	}
	// Prune imports the graph did not end up using.
	pruned, err := imports.Process(c.pkg+".go", formatted, nil)
	if err != nil {
		return formatted, fmt.Errorf("fix imports: %w", err)
	}
	return pruned, nil
}

// discoverEntries partitions entry blocks by hook, in sorted instance order
// so repeated compilations emit identical text. An actor-scoped tick entry
// is promoted to a perpetual loop; a stage-scoped one stays inline.
func (c *Compiler) discoverEntries() (setups, ticks, clicks, loops []entry) {
	for _, inst := range c.ws.AllInstances() {
		def, err := catalog.Get(inst.Def)
		if err != nil || def.Entry == catalog.EntryNone {
			continue
		}
		e := entry{inst: inst, def: def}
		switch def.Entry {
		case catalog.EntrySetup:
			setups = append(setups, e)
		case catalog.EntryTick:
			if inst.Scope == graph.StageScope {
				ticks = append(ticks, e)
			} else {
				loops = append(loops, e)
			}
		case catalog.EntryClick:
			clicks = append(clicks, e)
		case catalog.EntryLoop:
			loops = append(loops, e)
		}
	}
	return setups, ticks, clicks, loops
}

// emitRegisterActors emits the roster loader the host calls before Setup.
func (c *Compiler) emitRegisterActors() {
	c.writeLine("// RegisterActors loads the actor roster into the simulation context.")
	c.writeLine("func RegisterActors(sim *stagescript.SimulationContext) {")
	c.indent++
	for _, a := range c.ws.Actors() {
		c.writeLine("sim.RegisterActor(stagescript.Actor{ID: %q, X: %v, Y: %v, Size: %v, Color: %q, Visible: %t})",
			a.ID, a.X, a.Y, a.Size, a.Color, a.Visible)
	}
	c.indent--
	c.writeLine("}")
	c.writeLine("")
}

// emitHook emits one synchronous hook containing the inline chains of its
// entries. The walk follows only immediate flow edges; a timed edge
// truncates the chain because a synchronous hook cannot suspend.
func (c *Compiler) emitHook(name, doc string, entries []entry) {
	c.writeLine("// %s %s.", name, doc)
	c.writeLine("func %s(sim *stagescript.SimulationContext) {", name)
	c.indent++
	for _, e := range entries {
		c.writeLine("// block %s (%s)", e.inst.ID, e.def.ID)
		ctx := scopeCtx{scope: e.inst.Scope}
		if next, wait, ok := c.primaryNext(e.inst); ok {
			if wait > 0 {
				c.writeLine("// timed edge (%d frames) cannot fire inside a synchronous hook; chain truncated", wait)
			} else {
				c.emitChain(next, ctx, newVisited())
			}
		}
	}
	c.indent--
	c.writeLine("}")
	c.writeLine("")
}

// emitLoops emits one perpetual loop per entry plus the StartLoops starter.
// Loop names derive from the entry instance id, so they are stable across
// compilations.
func (c *Compiler) emitLoops(loops []entry) {
	c.writeLine("// StartLoops starts one goroutine per perpetual entry. Each loop runs")
	c.writeLine("// until the context's epoch changes.")
	c.writeLine("func StartLoops(sim *stagescript.SimulationContext) {")
	c.indent++
	for _, e := range loops {
		c.writeLine("go runLoop_%s(sim)", ident(e.inst.ID))
	}
	c.indent--
	c.writeLine("}")
	c.writeLine("")

	for _, e := range loops {
		name := ident(e.inst.ID)
		c.writeLine("func runLoop_%s(sim *stagescript.SimulationContext) {", name)
		c.indent++
		c.writeLine("epoch := sim.Epoch()")
		c.writeLine("for {")
		c.indent++
		c.writeLine("if err := stepLoop_%s(sim, epoch); err != nil {", name)
		c.indent++
		c.writeLine(`log.Printf("loop %s: %%v", err)`, e.inst.ID)
		c.writeLine("if !sim.WaitFrames(epoch, stagescript.CooldownFrames) {")
		c.indent++
		c.writeLine("return")
		c.indent--
		c.writeLine("}")
		c.indent--
		c.writeLine("}")
		c.writeLine("if !sim.WaitFrames(epoch, 1) {")
		c.indent++
		c.writeLine("return")
		c.indent--
		c.writeLine("}")
		c.indent--
		c.writeLine("}")
		c.indent--
		c.writeLine("}")
		c.writeLine("")

		c.writeLine("func stepLoop_%s(sim *stagescript.SimulationContext, _epoch int64) (err error) {", name)
		c.indent++
		c.writeLine("defer func() {")
		c.indent++
		c.writeLine("if r := recover(); r != nil {")
		c.indent++
		c.writeLine(`err = fmt.Errorf("block fault: %%v", r)`)
		c.indent--
		c.writeLine("}")
		c.indent--
		c.writeLine("}()")
		ctx := scopeCtx{scope: e.inst.Scope, inLoop: true}
		if next, wait, ok := c.primaryNext(e.inst); ok {
			if wait > 0 {
				c.writeLine("if !sim.WaitFrames(_epoch, %d) {", wait)
				c.indent++
				c.writeLine("return nil")
				c.indent--
				c.writeLine("}")
			}
			c.emitChain(next, ctx, newVisited())
		}
		c.writeLine("return nil")
		c.indent--
		c.writeLine("}")
		c.writeLine("")
	}
}

// emitChain walks the primary flow sequence starting at a block and emits
// one statement per block. Inside a loop body a timed edge stays in the
// sequence with an explicit suspension in between; a synchronous chain was
// already truncated by the caller at the first timed edge.
func (c *Compiler) emitChain(startID string, ctx scopeCtx, vis visited) {
	walked := make(map[string]bool)
	currentID := startID
	for currentID != "" {
		if walked[currentID] {
			c.writeLine("// flow cycle at %s; chain truncated", currentID)
			return
		}
		walked[currentID] = true

		inst := c.ws.Instance(currentID)
		if inst == nil {
			c.writeLine("// dangling flow edge to %s", currentID)
			return
		}
		c.emitStatement(inst, ctx, vis)

		next, wait, ok := c.primaryNext(inst)
		if !ok {
			return
		}
		if wait > 0 {
			if !ctx.inLoop {
				c.writeLine("// timed edge (%d frames) cannot fire inside a synchronous hook; chain truncated", wait)
				return
			}
			c.writeLine("if !sim.WaitFrames(_epoch, %d) {", wait)
			c.indent++
			c.writeLine("return nil")
			c.indent--
			c.writeLine("}")
		}
		currentID = next
	}
}

// primaryNext returns the next block in a primary sequence: the flow edge
// out of the generic bottom handle or, bridging the horizontal style, a
// generic output->input data edge whose target is a statement block.
// Branch-labeled flow outputs are not primary; they resolve inside the
// control block's own template.
func (c *Compiler) primaryNext(inst *graph.BlockInstance) (next string, wait int, ok bool) {
	for _, conn := range c.ws.Outgoing(inst.ID) {
		if conn.Kind == graph.FlowKind && conn.SourceHandle == "bottom" {
			return conn.Target, conn.WaitFrames, true
		}
		if conn.Kind == graph.DataKind && conn.SourceHandle == "output" && conn.TargetHandle == "input" {
			if tgt := c.ws.Instance(conn.Target); tgt != nil {
				if def, err := catalog.Get(tgt.Def); err == nil && def.Shape == catalog.Statement {
					return conn.Target, conn.WaitFrames, true
				}
			}
		}
	}
	return "", 0, false
}

// emitStatement compiles one block in statement position.
func (c *Compiler) emitStatement(inst *graph.BlockInstance, ctx scopeCtx, vis visited) {
	def, err := catalog.Get(inst.Def)
	if err != nil {
		c.writeLine("// unknown block kind %q", inst.Def)
		return
	}
	if def.Entry != catalog.EntryNone {
		c.writeLine("// nested entry block %s ignored", inst.ID)
		return
	}
	if def.Shape == catalog.Reporter {
		c.writeLine("// value block %s has no effect in a sequence", inst.ID)
		return
	}
	if ctx.scope == graph.StageScope && def.Actor == catalog.ActorRequired {
		c.writeLine("// %s needs an actor and was skipped on the stage", inst.ID)
		return
	}
	if def.Suspends && !ctx.inLoop {
		c.writeLine("// %s cannot suspend inside a synchronous hook", inst.ID)
		return
	}

	text := c.expandTemplate(inst, def, ctx, vis)
	if def.DrawCommand != "" && ctx.inLoop {
		// Loop bodies run outside the host's drawing callback; route the
		// call through the draw buffer instead.
		text = strings.Replace(text, "sim.Draw(", "sim.AppendDrawCommand(", 1)
	}
	for _, line := range strings.Split(text, "\n") {
		c.writeLine("%s", line)
	}
}

// writeLine writes one line at the current indentation. The final gofmt
// pass normalizes indentation inside substituted templates.
func (c *Compiler) writeLine(format string, args ...interface{}) {
	for i := 0; i < c.indent; i++ {
		c.buf.WriteByte('\t')
	}
	fmt.Fprintf(c.buf, format, args...)
	c.buf.WriteByte('\n')
}

// ident derives a Go identifier fragment from an instance id.
func ident(id string) string {
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := b.String()
	if out == "" {
		return "x"
	}
	return out
}
