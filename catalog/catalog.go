// Package catalog holds the static registry of block definitions: the block
// kinds a workspace can instantiate, their code templates, traditional
// inputs and labeled connection ports. Definitions are immutable once
// registered; the graph and gen packages only read them.
package catalog

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// ValueType classifies inputs and ports.
type ValueType string

const (
	Number   ValueType = "number"
	Text     ValueType = "text"
	Boolean  ValueType = "boolean"
	Variable ValueType = "variable"
	Flow     ValueType = "flow"
	Any      ValueType = "any"
)

// Side is the edge of the block a port is rendered on. The generator ignores
// it; it is carried for the editor.
type Side string

const (
	Left   Side = "left"
	Right  Side = "right"
	Top    Side = "top"
	Bottom Side = "bottom"
)

// Port is a labeled, typed, sided connection point, distinct from the
// generic bottom/top flow handles every statement block has.
type Port struct {
	Label string    `yaml:"label"`
	Side  Side      `yaml:"side"`
	Type  ValueType `yaml:"type"`
}

// InputSpec is a traditional name/type/default input field.
type InputSpec struct {
	Name            string    `yaml:"name"`
	Type            ValueType `yaml:"type"` // number, text, boolean or variable
	Default         any       `yaml:"default"`
	AcceptsVariable bool      `yaml:"accepts_variable"`
}

// EntryKind marks a block as a compilation entry point.
type EntryKind string

const (
	EntryNone  EntryKind = ""      // ordinary block
	EntrySetup EntryKind = "setup" // compiled inline into the setup hook
	EntryTick  EntryKind = "tick"  // inline into the per-tick hook (stage) or a loop (actor)
	EntryClick EntryKind = "click" // inline into the click hook
	EntryLoop  EntryKind = "loop"  // compiled into a perpetual loop
)

// ActorScope describes a block's relationship to the implicit current actor.
type ActorScope string

const (
	ActorNone     ActorScope = ""         // never references an actor
	ActorOptional ActorScope = "optional" // actor reference stripped on the stage
	ActorRequired ActorScope = "required" // dropped with a comment on the stage
)

// Shape distinguishes statement blocks (sequenced via flow edges) from
// reporter blocks (pure expressions consumed through data connections).
type Shape string

const (
	Statement Shape = "statement"
	Reporter  Shape = "reporter"
)

// BlockDefinition is one entry of the static block catalog.
//
// Template is the code fragment the generator expands. ${name} placeholders
// resolve, in order of precedence, to the implicit actor (${self}), a
// traditional input value, a labeled input port's supplying expression, or a
// labeled output port's compiled branch chain.
type BlockDefinition struct {
	ID          string      `yaml:"id"`
	Category    string      `yaml:"category"`
	Template    string      `yaml:"template"`
	Inputs      []InputSpec `yaml:"inputs"`
	PortsIn     []Port      `yaml:"-"`
	PortsOut    []Port      `yaml:"-"`
	Entry       EntryKind   `yaml:"entry"`
	Actor       ActorScope  `yaml:"actor"`
	Shape       Shape       `yaml:"shape"`
	DrawCommand string      `yaml:"draw_command"` // non-empty when the template issues a draw call
	Suspends    bool        `yaml:"suspends"`     // template contains a frame suspension
	HeightClass string      `yaml:"height_class"`
}

// Input returns the traditional input spec with the given name, or nil.
func (d *BlockDefinition) Input(name string) *InputSpec {
	for i := range d.Inputs {
		if d.Inputs[i].Name == name {
			return &d.Inputs[i]
		}
	}
	return nil
}

// InputPortByLabel returns the labeled input port with the given label, or nil.
func (d *BlockDefinition) InputPortByLabel(label string) *Port {
	for i := range d.PortsIn {
		if d.PortsIn[i].Label == label {
			return &d.PortsIn[i]
		}
	}
	return nil
}

// OutputPortByLabel returns the labeled output port with the given label, or nil.
func (d *BlockDefinition) OutputPortByLabel(label string) *Port {
	for i := range d.PortsOut {
		if d.PortsOut[i].Label == label {
			return &d.PortsOut[i]
		}
	}
	return nil
}

// PortIndex parses a labeled handle ("output-2", "input-0") and returns the
// port list name and index. ok is false for generic handles and field names.
func PortIndex(handle string) (kind string, idx int, ok bool) {
	for _, prefix := range []string{"output-", "input-"} {
		if strings.HasPrefix(handle, prefix) {
			n, err := strconv.Atoi(handle[len(prefix):])
			if err != nil || n < 0 {
				return "", 0, false
			}
			return strings.TrimSuffix(prefix, "-"), n, true
		}
	}
	return "", 0, false
}

// ErrUnknownBlock is wrapped by Get for unregistered ids.
var ErrUnknownBlock = fmt.Errorf("unknown block kind")

var (
	registryMu sync.RWMutex
	builtins   = make(map[string]*BlockDefinition)
	custom     = make(map[string]*BlockDefinition)
)

// Register adds a block definition loaded from a catalog file or registered
// by an embedding program. Registering an id that already exists is an error.
func Register(def BlockDefinition) error {
	if def.ID == "" {
		return fmt.Errorf("block id cannot be empty")
	}
	if def.Shape == "" {
		def.Shape = Statement
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := builtins[def.ID]; exists {
		return fmt.Errorf("block %s is already registered as built-in", def.ID)
	}
	if _, exists := custom[def.ID]; exists {
		return fmt.Errorf("block %s is already registered", def.ID)
	}
	custom[def.ID] = &def
	return nil
}

// MustRegister is Register that panics on error, for init() use.
func MustRegister(def BlockDefinition) {
	if err := Register(def); err != nil {
		panic(fmt.Sprintf("catalog: %v", err))
	}
}

// registerBuiltin is used by the blocks_*.go init functions. Built-ins are
// never cleared by ClearCustom.
func registerBuiltin(def BlockDefinition) {
	if def.Shape == "" {
		def.Shape = Statement
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := builtins[def.ID]; exists {
		panic(fmt.Sprintf("catalog: duplicate built-in block %s", def.ID))
	}
	builtins[def.ID] = &def
}

// Get returns the definition for a block id.
func Get(id string) (*BlockDefinition, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if def, ok := builtins[id]; ok {
		return def, nil
	}
	if def, ok := custom[id]; ok {
		return def, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownBlock, id)
}

// All returns every registered definition, built-in and custom.
func All() map[string]*BlockDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make(map[string]*BlockDefinition, len(builtins)+len(custom))
	for k, v := range builtins {
		out[k] = v
	}
	for k, v := range custom {
		out[k] = v
	}
	return out
}

// ByCategory groups all registered block ids by category.
func ByCategory() map[string][]string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make(map[string][]string)
	for _, def := range builtins {
		out[def.Category] = append(out[def.Category], def.ID)
	}
	for _, def := range custom {
		out[def.Category] = append(out[def.Category], def.ID)
	}
	return out
}

// ClearCustom removes every non-built-in registration. Primarily for tests.
func ClearCustom() {
	registryMu.Lock()
	defer registryMu.Unlock()
	custom = make(map[string]*BlockDefinition)
}
