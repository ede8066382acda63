// Package graph holds the live block graph for one project: block instances,
// the connections between them and the actor roster. It also hosts the
// connection validator; Connect is its only in-module caller, the editor
// calls Classify directly for drag feedback.
package graph

import (
	"fmt"
	"sort"
	"sync"

	"github.com/stagescript/stagescript/catalog"
)

// Scope identifies who owns a block instance: the stage or one actor.
type Scope string

// StageScope is the shared stage scope; every other scope value is an
// actor id.
const StageScope Scope = "stage"

// VarRef marks an input value as a reference to a program variable instead
// of a literal.
type VarRef struct {
	Name string
}

// BlockInstance is one placed block.
type BlockInstance struct {
	ID     string
	Def    string // catalog id
	Scope  Scope
	X, Y   float64
	Values map[string]any // input name -> literal or VarRef
}

// Kind classifies a connection.
type Kind string

const (
	FlowKind Kind = "flow" // sequencing
	DataKind Kind = "data" // value supply
)

// Connection is one validated edge between two block instances.
type Connection struct {
	ID           string
	Source       string
	SourceHandle string
	Target       string
	TargetHandle string
	Kind         Kind
	Field        string // set for data-to-field bindings
	WaitFrames   int    // frame delay before this edge fires; 0 = immediate
}

// ActorSpec is one entry of the ordered actor roster.
type ActorSpec struct {
	ID      string  `json:"id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Size    float64 `json:"size"`
	Color   string  `json:"color"`
	Visible bool    `json:"visible"`
}

var (
	ErrScopeMismatch = fmt.Errorf("connection endpoints are in different scopes")
	ErrPortOccupied  = fmt.Errorf("target port already has a connection")
	ErrNoInstance    = fmt.Errorf("no such block instance")
	ErrNoConnection  = fmt.Errorf("no such connection")
)

// Workspace is the mutable store behind one editing session. Queries are
// pure reads over the current snapshot; mutations hold the lock for their
// whole effect, so a concurrent reader never observes a connection whose
// endpoint is gone.
type Workspace struct {
	mu          sync.RWMutex
	instances   map[string]*BlockInstance
	connections map[string]*Connection
	actors      []ActorSpec
	nextID      int
}

// NewWorkspace returns an empty workspace with a stage and no actors.
func NewWorkspace() *Workspace {
	return &Workspace{
		instances:   make(map[string]*BlockInstance),
		connections: make(map[string]*Connection),
	}
}

// AddActor appends an actor to the roster. Duplicate ids are an error.
func (w *Workspace) AddActor(a ActorSpec) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, existing := range w.actors {
		if existing.ID == a.ID {
			return fmt.Errorf("actor %s already exists", a.ID)
		}
	}
	w.actors = append(w.actors, a)
	return nil
}

// RemoveActor deletes an actor, every instance in its scope and, by cascade,
// every connection touching those instances — all under one lock.
func (w *Workspace) RemoveActor(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, a := range w.actors {
		if a.ID == id {
			w.actors = append(w.actors[:i], w.actors[i+1:]...)
			break
		}
	}
	for instID, inst := range w.instances {
		if inst.Scope == Scope(id) {
			delete(w.instances, instID)
			w.dropConnectionsOf(instID)
		}
	}
}

// Actors returns the roster in order.
func (w *Workspace) Actors() []ActorSpec {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]ActorSpec, len(w.actors))
	copy(out, w.actors)
	return out
}

// AddInstance places a new block of the given kind into a scope, with input
// values initialized from the definition's defaults.
func (w *Workspace) AddInstance(defID string, scope Scope) (*BlockInstance, error) {
	def, err := catalog.Get(defID)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.nextID++
	inst := &BlockInstance{
		ID:     fmt.Sprintf("blk%d", w.nextID),
		Def:    def.ID,
		Scope:  scope,
		Values: make(map[string]any, len(def.Inputs)),
	}
	for _, in := range def.Inputs {
		inst.Values[in.Name] = in.Default
	}
	w.instances[inst.ID] = inst
	return inst, nil
}

// RemoveInstance deletes a block and cascades to every connection with the
// block as source or target, atomically.
func (w *Workspace) RemoveInstance(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.instances[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNoInstance, id)
	}
	delete(w.instances, id)
	w.dropConnectionsOf(id)
	return nil
}

// dropConnectionsOf removes every connection touching an instance.
// Caller holds the write lock.
func (w *Workspace) dropConnectionsOf(id string) {
	for connID, c := range w.connections {
		if c.Source == id || c.Target == id {
			delete(w.connections, connID)
		}
	}
}

// SetValue updates one input value on an instance. The name must be a
// declared traditional input of the block's definition.
func (w *Workspace) SetValue(id, input string, value any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	inst, ok := w.instances[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoInstance, id)
	}
	def, err := catalog.Get(inst.Def)
	if err != nil {
		return err
	}
	if def.Input(input) == nil {
		return fmt.Errorf("block %s has no input %q", inst.Def, input)
	}
	inst.Values[input] = value
	return nil
}

// MoveInstance updates an instance's editor position.
func (w *Workspace) MoveInstance(id string, x, y float64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	inst, ok := w.instances[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoInstance, id)
	}
	inst.X, inst.Y = x, y
	return nil
}

// Connect validates a candidate edge and, when accepted, stores it. Checks,
// in order: both endpoints exist, same scope, the connection decision table,
// then the single-predecessor (flow) and single-supplier (data) invariants.
func (w *Workspace) Connect(src, srcHandle, dst, dstHandle string, waitFrames int) (*Connection, error) {
	if waitFrames < 0 {
		return nil, fmt.Errorf("waitFrames must be non-negative, got %d", waitFrames)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	srcInst, ok := w.instances[src]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoInstance, src)
	}
	dstInst, ok := w.instances[dst]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoInstance, dst)
	}
	if srcInst.Scope != dstInst.Scope {
		return nil, ErrScopeMismatch
	}

	srcDef, err := catalog.Get(srcInst.Def)
	if err != nil {
		return nil, err
	}
	dstDef, err := catalog.Get(dstInst.Def)
	if err != nil {
		return nil, err
	}

	dec, err := Classify(Endpoint{Def: srcDef, Handle: srcHandle}, Endpoint{Def: dstDef, Handle: dstHandle})
	if err != nil {
		return nil, err
	}

	for _, c := range w.connections {
		if c.Target != dst {
			continue
		}
		if dec.Kind == FlowKind && c.Kind == FlowKind {
			return nil, fmt.Errorf("%w: %s already has a flow predecessor", ErrPortOccupied, dst)
		}
		if dec.Kind == DataKind && c.Kind == DataKind && c.TargetHandle == dstHandle {
			return nil, fmt.Errorf("%w: %s.%s already has a data supplier", ErrPortOccupied, dst, dstHandle)
		}
	}

	w.nextID++
	conn := &Connection{
		ID:           fmt.Sprintf("conn%d", w.nextID),
		Source:       src,
		SourceHandle: srcHandle,
		Target:       dst,
		TargetHandle: dstHandle,
		Kind:         dec.Kind,
		Field:        dec.Field,
		WaitFrames:   waitFrames,
	}
	w.connections[conn.ID] = conn
	return conn, nil
}

// Disconnect removes one connection.
func (w *Workspace) Disconnect(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.connections[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNoConnection, id)
	}
	delete(w.connections, id)
	return nil
}

// Connection returns the connection with the given id, or nil.
func (w *Workspace) Connection(id string) *Connection {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.connections[id]
}

// Instance returns the instance with the given id, or nil.
func (w *Workspace) Instance(id string) *BlockInstance {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.instances[id]
}

// InstancesIn returns the instances owned by a scope, sorted by id.
func (w *Workspace) InstancesIn(scope Scope) []*BlockInstance {
	w.mu.RLock()
	defer w.mu.RUnlock()
	var out []*BlockInstance
	for _, inst := range w.instances {
		if inst.Scope == scope {
			out = append(out, inst)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AllInstances returns every instance, sorted by id.
func (w *Workspace) AllInstances() []*BlockInstance {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]*BlockInstance, 0, len(w.instances))
	for _, inst := range w.instances {
		out = append(out, inst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ConnectionsIn returns the connections whose endpoints live in a scope,
// sorted by id.
func (w *Workspace) ConnectionsIn(scope Scope) []*Connection {
	w.mu.RLock()
	defer w.mu.RUnlock()
	var out []*Connection
	for _, c := range w.connections {
		if src, ok := w.instances[c.Source]; ok && src.Scope == scope {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Outgoing returns the connections with the given block as source, sorted
// by id.
func (w *Workspace) Outgoing(blockID string) []*Connection {
	w.mu.RLock()
	defer w.mu.RUnlock()
	var out []*Connection
	for _, c := range w.connections {
		if c.Source == blockID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Incoming returns the connections with the given block as target, optionally
// restricted to one target handle (empty handle matches all), sorted by id.
func (w *Workspace) Incoming(blockID, handle string) []*Connection {
	w.mu.RLock()
	defer w.mu.RUnlock()
	var out []*Connection
	for _, c := range w.connections {
		if c.Target == blockID && (handle == "" || c.TargetHandle == handle) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
