package gen

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/stagescript/stagescript/catalog"
	"github.com/stagescript/stagescript/graph"
)

// visited tracks the blocks currently on the expansion path, guarding data
// cycles. Each recursion level clones it, so parallel branches do not see
// each other's path.
type visited map[string]bool

func newVisited() visited { return make(visited) }

func (v visited) clone() visited {
	out := make(visited, len(v)+1)
	for k := range v {
		out[k] = true
	}
	return out
}

// expandTemplate substitutes every ${name} placeholder of a block's template.
// Resolution order per placeholder: the implicit actor (${self}), a
// traditional input, a labeled input port, a labeled output port. A block
// already on the expansion path expands in degraded form: traditional inputs
// only, ports as safe defaults, so cyclic data wiring still terminates.
func (c *Compiler) expandTemplate(inst *graph.BlockInstance, def *catalog.BlockDefinition, ctx scopeCtx, vis visited) string {
	vis = vis.clone()
	degraded := vis[inst.ID]
	vis[inst.ID] = true

	var b strings.Builder
	tmpl := def.Template
	for {
		start := strings.Index(tmpl, "${")
		if start < 0 {
			b.WriteString(tmpl)
			break
		}
		end := strings.Index(tmpl[start:], "}")
		if end < 0 {
			b.WriteString(tmpl[:start])
			b.WriteString("/* malformed placeholder */")
			break
		}
		b.WriteString(tmpl[:start])
		name := tmpl[start+2 : start+end]
		b.WriteString(c.resolvePlaceholder(name, inst, def, ctx, vis, degraded))
		tmpl = tmpl[start+end+1:]
	}
	return b.String()
}

func (c *Compiler) resolvePlaceholder(name string, inst *graph.BlockInstance, def *catalog.BlockDefinition, ctx scopeCtx, vis visited, degraded bool) string {
	if name == "self" {
		return strconv.Quote(ctx.actorID())
	}

	if spec := def.Input(name); spec != nil {
		if !degraded {
			for _, conn := range c.ws.Incoming(inst.ID, name) {
				if conn.Kind == graph.DataKind && conn.Field == name {
					return c.coerceSupplier(conn, spec.Type, c.expandBlockExpr(conn.Source, ctx, vis))
				}
			}
		}
		return formatInputValue(spec, inst.Values[name])
	}

	for i := range def.PortsIn {
		if def.PortsIn[i].Label != name {
			continue
		}
		if !degraded {
			handle := fmt.Sprintf("input-%d", i)
			for _, conn := range c.ws.Incoming(inst.ID, handle) {
				if conn.Kind == graph.DataKind {
					return c.coerceSupplier(conn, def.PortsIn[i].Type, c.expandBlockExpr(conn.Source, ctx, vis))
				}
			}
		}
		return portDefault(def.PortsIn[i].Type)
	}

	for i := range def.PortsOut {
		if def.PortsOut[i].Label != name {
			continue
		}
		if def.PortsOut[i].Type != catalog.Flow {
			return portDefault(def.PortsOut[i].Type)
		}
		if degraded {
			return fmt.Sprintf("// branch %s omitted (cyclic wiring)", name)
		}
		handle := fmt.Sprintf("output-%d", i)
		for _, conn := range c.ws.Outgoing(inst.ID) {
			if conn.Kind == graph.FlowKind && conn.SourceHandle == handle {
				return c.chainText(conn.Target, conn.WaitFrames, ctx, vis)
			}
		}
		return "// no blocks connected"
	}

	return fmt.Sprintf("/* unknown placeholder %q */", name)
}

// expandBlockExpr compiles a data-supplying block into an expression.
// Missing or broken suppliers degrade to a zero so the expression still
// compiles.
func (c *Compiler) expandBlockExpr(blockID string, ctx scopeCtx, vis visited) string {
	inst := c.ws.Instance(blockID)
	if inst == nil {
		return "0"
	}
	def, err := catalog.Get(inst.Def)
	if err != nil {
		return fmt.Sprintf("0 /* unknown block kind %q */", inst.Def)
	}
	if ctx.scope == graph.StageScope && def.Actor == catalog.ActorRequired {
		return fmt.Sprintf("0 /* %s needs an actor */", inst.ID)
	}
	return c.expandTemplate(inst, def, ctx, vis)
}

// coerceSupplier wraps a supplier expression in a runtime coercion when its
// static type does not already match what the consumer wants. Generic
// outputs are untyped at generation time, so they always coerce; typed ports
// only ever mismatch through "any", which the validator lets bridge.
func (c *Compiler) coerceSupplier(conn *graph.Connection, want catalog.ValueType, expr string) string {
	if c.supplierType(conn) == want {
		return expr
	}
	switch want {
	case catalog.Number:
		return fmt.Sprintf("stagescript.AsNum(%s)", expr)
	case catalog.Text:
		return fmt.Sprintf("stagescript.AsText(%s)", expr)
	case catalog.Boolean:
		return fmt.Sprintf("stagescript.AsBool(%s)", expr)
	default:
		return expr
	}
}

// supplierType resolves the static type of a connection's source handle:
// the labeled port's declared type, or any for the generic output handle.
func (c *Compiler) supplierType(conn *graph.Connection) catalog.ValueType {
	kind, idx, ok := catalog.PortIndex(conn.SourceHandle)
	if !ok || kind != "output" {
		return catalog.Any
	}
	inst := c.ws.Instance(conn.Source)
	if inst == nil {
		return catalog.Any
	}
	def, err := catalog.Get(inst.Def)
	if err != nil || idx >= len(def.PortsOut) {
		return catalog.Any
	}
	return def.PortsOut[idx].Type
}

// chainText compiles a branch chain into a detached buffer and returns its
// text, for substitution inside a control block's template.
func (c *Compiler) chainText(startID string, wait int, ctx scopeCtx, vis visited) string {
	saved, savedIndent := c.buf, c.indent
	c.buf, c.indent = &bytes.Buffer{}, 0

	run := true
	if wait > 0 {
		if ctx.inLoop {
			c.writeLine("if !sim.WaitFrames(_epoch, %d) {", wait)
			c.indent++
			c.writeLine("return nil")
			c.indent--
			c.writeLine("}")
		} else {
			c.writeLine("// timed edge (%d frames) cannot fire inside a synchronous hook; chain truncated", wait)
			run = false
		}
	}
	if run {
		c.emitChain(startID, ctx, vis)
	}

	out := strings.TrimRight(c.buf.String(), "\n")
	c.buf, c.indent = saved, savedIndent
	return out
}

// formatInputValue renders a stored traditional input value as a Go
// expression: a typed variable read for a VarRef, a typed literal otherwise.
func formatInputValue(spec *catalog.InputSpec, v any) string {
	if ref, ok := v.(graph.VarRef); ok {
		return varAccess(spec.Type, ref.Name)
	}
	if v == nil {
		return zeroValue(spec.Type)
	}
	switch spec.Type {
	case catalog.Number:
		switch n := v.(type) {
		case float64:
			return strconv.FormatFloat(n, 'g', -1, 64)
		case int:
			return strconv.Itoa(n)
		case int64:
			return strconv.FormatInt(n, 10)
		default:
			return "0"
		}
	case catalog.Text:
		return strconv.Quote(fmt.Sprintf("%v", v))
	case catalog.Boolean:
		if b, ok := v.(bool); ok {
			return strconv.FormatBool(b)
		}
		return "false"
	case catalog.Variable:
		return fmt.Sprintf("sim.Var(%q)", fmt.Sprintf("%v", v))
	default:
		return zeroValue(spec.Type)
	}
}

// varAccess picks the typed variable accessor matching the input's type.
func varAccess(t catalog.ValueType, name string) string {
	switch t {
	case catalog.Number:
		return fmt.Sprintf("sim.NumVar(%q)", name)
	case catalog.Text:
		return fmt.Sprintf("sim.TextVar(%q)", name)
	case catalog.Boolean:
		return fmt.Sprintf("sim.BoolVar(%q)", name)
	default:
		return fmt.Sprintf("sim.Var(%q)", name)
	}
}

// portDefault is the safe expression for an unconnected port: zero for
// numbers, true for booleans so guarded branches still run, an inert comment
// for flow.
func portDefault(t catalog.ValueType) string {
	switch t {
	case catalog.Boolean:
		return "true"
	case catalog.Number:
		return "0"
	case catalog.Text:
		return `""`
	case catalog.Flow:
		return "// port not connected"
	default:
		return "nil"
	}
}

func zeroValue(t catalog.ValueType) string {
	switch t {
	case catalog.Number:
		return "0"
	case catalog.Text:
		return `""`
	case catalog.Boolean:
		return "false"
	case catalog.Variable:
		return `sim.Var("")`
	default:
		return "nil"
	}
}
