package graph

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/stagescript/stagescript/catalog"
)

// snapshot is the versioned on-disk form of a workspace, the format the
// editor writes and stagegen reads.
type snapshot struct {
	Version     int                `json:"version"`
	Actors      []ActorSpec        `json:"actors"`
	Blocks      []blockRecord      `json:"blocks"`
	Connections []connectionRecord `json:"connections"`
}

type blockRecord struct {
	ID     string         `json:"id"`
	Def    string         `json:"def"`
	Scope  string         `json:"scope"`
	X      float64        `json:"x"`
	Y      float64        `json:"y"`
	Values map[string]any `json:"values,omitempty"`
}

type connectionRecord struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	SourceHandle string `json:"sourceHandle"`
	Target       string `json:"target"`
	TargetHandle string `json:"targetHandle"`
	Kind         string `json:"kind"`
	Field        string `json:"field,omitempty"`
	WaitFrames   int    `json:"waitFrames,omitempty"`
}

// Load reads a workspace snapshot from a JSON file. Connections in a
// snapshot were validated when they were created, so they are restored
// as-is; Verify re-checks them when the caller asks.
func Load(path string) (*Workspace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workspace: %w", err)
	}
	return Parse(data)
}

// Parse builds a workspace from snapshot JSON bytes.
func Parse(data []byte) (*Workspace, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse workspace: %w", err)
	}
	if snap.Version != 1 {
		return nil, fmt.Errorf("unsupported workspace version: %d", snap.Version)
	}

	w := NewWorkspace()
	w.actors = append(w.actors, snap.Actors...)
	for _, b := range snap.Blocks {
		inst := &BlockInstance{
			ID:     b.ID,
			Def:    b.Def,
			Scope:  Scope(b.Scope),
			X:      b.X,
			Y:      b.Y,
			Values: decodeValues(b.Values),
		}
		w.instances[inst.ID] = inst
	}
	for _, c := range snap.Connections {
		w.connections[c.ID] = &Connection{
			ID:           c.ID,
			Source:       c.Source,
			SourceHandle: c.SourceHandle,
			Target:       c.Target,
			TargetHandle: c.TargetHandle,
			Kind:         Kind(c.Kind),
			Field:        c.Field,
			WaitFrames:   c.WaitFrames,
		}
	}
	return w, nil
}

// Save writes the workspace snapshot to a JSON file.
func (w *Workspace) Save(path string) error {
	data, err := w.MarshalSnapshot()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// MarshalSnapshot serializes the workspace in snapshot form.
func (w *Workspace) MarshalSnapshot() ([]byte, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	snap := snapshot{Version: 1, Actors: w.actors}
	for _, inst := range w.sortedInstancesLocked() {
		snap.Blocks = append(snap.Blocks, blockRecord{
			ID:     inst.ID,
			Def:    inst.Def,
			Scope:  string(inst.Scope),
			X:      inst.X,
			Y:      inst.Y,
			Values: encodeValues(inst.Values),
		})
	}
	for _, c := range w.sortedConnectionsLocked() {
		snap.Connections = append(snap.Connections, connectionRecord{
			ID:           c.ID,
			Source:       c.Source,
			SourceHandle: c.SourceHandle,
			Target:       c.Target,
			TargetHandle: c.TargetHandle,
			Kind:         string(c.Kind),
			Field:        c.Field,
			WaitFrames:   c.WaitFrames,
		})
	}
	return json.MarshalIndent(&snap, "", "  ")
}

// Verify re-runs the decision table over every stored connection and checks
// the scope invariant, reporting each violation. A loaded snapshot from a
// well-behaved editor produces no errors; a hand-edited one may.
func (w *Workspace) Verify() []error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var errs []error
	for _, c := range w.sortedConnectionsLocked() {
		src, ok := w.instances[c.Source]
		if !ok {
			errs = append(errs, fmt.Errorf("connection %s: dangling source %s", c.ID, c.Source))
			continue
		}
		dst, ok := w.instances[c.Target]
		if !ok {
			errs = append(errs, fmt.Errorf("connection %s: dangling target %s", c.ID, c.Target))
			continue
		}
		if src.Scope != dst.Scope {
			errs = append(errs, fmt.Errorf("connection %s: %w", c.ID, ErrScopeMismatch))
			continue
		}
		srcDef, err := catalog.Get(src.Def)
		if err != nil {
			errs = append(errs, fmt.Errorf("connection %s: %w", c.ID, err))
			continue
		}
		dstDef, err := catalog.Get(dst.Def)
		if err != nil {
			errs = append(errs, fmt.Errorf("connection %s: %w", c.ID, err))
			continue
		}
		if _, err := Classify(Endpoint{Def: srcDef, Handle: c.SourceHandle}, Endpoint{Def: dstDef, Handle: c.TargetHandle}); err != nil {
			errs = append(errs, fmt.Errorf("connection %s: %w", c.ID, err))
		}
	}
	return errs
}

func (w *Workspace) sortedInstancesLocked() []*BlockInstance {
	out := make([]*BlockInstance, 0, len(w.instances))
	for _, inst := range w.instances {
		out = append(out, inst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (w *Workspace) sortedConnectionsLocked() []*Connection {
	out := make([]*Connection, 0, len(w.connections))
	for _, c := range w.connections {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// decodeValues turns {"variable": "name"} objects into VarRef values.
func decodeValues(raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		if m, ok := v.(map[string]any); ok && len(m) == 1 {
			if name, ok := m["variable"].(string); ok {
				out[k] = VarRef{Name: name}
				continue
			}
		}
		out[k] = v
	}
	return out
}

// encodeValues is the inverse of decodeValues.
func encodeValues(values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		if ref, ok := v.(VarRef); ok {
			out[k] = map[string]any{"variable": ref.Name}
			continue
		}
		out[k] = v
	}
	return out
}
