package graph

import (
	"fmt"

	"github.com/stagescript/stagescript/catalog"
)

// Endpoint is one side of a candidate connection: the block's definition
// plus the handle the gesture grabbed. Source handles are "bottom" (generic
// flow), "output" (generic data) or "output-<i>" (labeled port). Target
// handles are "top", "input", "input-<j>" or the name of a traditional
// input field for a direct data-to-field binding.
type Endpoint struct {
	Def    *catalog.BlockDefinition
	Handle string
}

// Decision is the validator's accept result.
type Decision struct {
	Kind  Kind
	Field string // input field name for data-to-field bindings
}

// ErrIncompatible is returned for every rejected pairing.
var ErrIncompatible = fmt.Errorf("incompatible connection")

// Classify runs the connection decision table over a candidate pairing.
// Rules are evaluated in order, first match wins:
//
//  1. generic bottom -> generic top: flow
//  2. generic output -> generic input: data (untyped, no check)
//  3. labeled -> labeled: flow/flow, or non-flow with equal-or-any types
//  4. labeled flow output -> generic top, generic bottom -> labeled flow
//     input: flow (bridges the two port styles)
//  5. non-flow output -> traditional input field: data, field recorded
//  6. anything else: rejected
//
// Classify is pure: it never creates state, so a rejection leaves nothing
// behind.
func Classify(src, dst Endpoint) (Decision, error) {
	srcPort, srcErr := labeledPort(src, "output")
	dstPort, dstErr := labeledPort(dst, "input")

	// Rule 1: vertical flow.
	if src.Handle == "bottom" && dst.Handle == "top" {
		return Decision{Kind: FlowKind}, nil
	}

	// Rule 2: horizontal generic data; generic ports are untyped.
	if src.Handle == "output" && dst.Handle == "input" {
		return Decision{Kind: DataKind}, nil
	}

	// Rule 3: labeled to labeled.
	if srcErr == nil && dstErr == nil {
		if srcPort.Type == catalog.Flow && dstPort.Type == catalog.Flow {
			return Decision{Kind: FlowKind}, nil
		}
		if srcPort.Type != catalog.Flow && dstPort.Type != catalog.Flow &&
			typesCompatible(srcPort.Type, dstPort.Type) {
			return Decision{Kind: DataKind}, nil
		}
		return Decision{}, fmt.Errorf("%w: %s output cannot feed %s input",
			ErrIncompatible, srcPort.Type, dstPort.Type)
	}

	// Rule 4: mixed flow, bridging labeled and generic handles.
	if srcErr == nil && srcPort.Type == catalog.Flow && dst.Handle == "top" {
		return Decision{Kind: FlowKind}, nil
	}
	if src.Handle == "bottom" && dstErr == nil && dstPort.Type == catalog.Flow {
		return Decision{Kind: FlowKind}, nil
	}

	// Rule 5: data to field. Source must be a non-flow output; target must
	// name a declared number/text/boolean input field.
	srcType, isDataSrc := dataSourceType(src, srcPort, srcErr)
	if isDataSrc {
		if field := dst.Def.Input(dst.Handle); field != nil {
			switch field.Type {
			case catalog.Number, catalog.Text, catalog.Boolean:
				if typesCompatible(srcType, fieldPortType(field.Type)) {
					return Decision{Kind: DataKind, Field: field.Name}, nil
				}
				return Decision{}, fmt.Errorf("%w: %s output cannot feed %s field %q",
					ErrIncompatible, srcType, field.Type, field.Name)
			}
		}
	}

	// Rule 6: reject.
	return Decision{}, fmt.Errorf("%w: %q -> %q", ErrIncompatible, src.Handle, dst.Handle)
}

// labeledPort resolves "output-<i>"/"input-<j>" handles against the
// definition's port lists.
func labeledPort(e Endpoint, want string) (*catalog.Port, error) {
	kind, idx, ok := catalog.PortIndex(e.Handle)
	if !ok || kind != want {
		return nil, fmt.Errorf("not a labeled %s handle: %q", want, e.Handle)
	}
	ports := e.Def.PortsOut
	if want == "input" {
		ports = e.Def.PortsIn
	}
	if idx >= len(ports) {
		return nil, fmt.Errorf("%s index %d out of range for block %s", want, idx, e.Def.ID)
	}
	return &ports[idx], nil
}

// dataSourceType reports whether the source handle is a non-flow output and,
// if so, its effective type. The generic output handle is untyped "any".
func dataSourceType(src Endpoint, port *catalog.Port, portErr error) (catalog.ValueType, bool) {
	if src.Handle == "output" {
		return catalog.Any, true
	}
	if portErr == nil && port.Type != catalog.Flow {
		return port.Type, true
	}
	return "", false
}

// fieldPortType maps a traditional input's value type onto the port type
// lattice used for compatibility checks. Text has no port equivalent, so
// only an "any" source can feed it.
func fieldPortType(t catalog.ValueType) catalog.ValueType {
	switch t {
	case catalog.Number:
		return catalog.Number
	case catalog.Boolean:
		return catalog.Boolean
	default:
		return catalog.ValueType("field:" + string(t))
	}
}

// typesCompatible: exact match, or either side declared any.
func typesCompatible(a, b catalog.ValueType) bool {
	return a == b || a == catalog.Any || b == catalog.Any
}
