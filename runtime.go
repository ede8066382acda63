package stagescript

import (
	"math/rand"
	"strconv"
	"sync"
)

// CooldownFrames is the suspension inserted after a recovered fault in a
// generated loop, before the loop continues.
const CooldownFrames = 30

// Actor is one entry in the shared actor registry. Generated programs read
// actors through SimulationContext and mutate them only via merge patches.
type Actor struct {
	ID      string  `json:"id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Size    float64 `json:"size"`
	Color   string  `json:"color"`
	Visible bool    `json:"visible"`
}

// ActorPatch is a merge patch: nil fields are left untouched.
type ActorPatch struct {
	X       *float64
	Y       *float64
	Size    *float64
	Color   *string
	Visible *bool
}

// F returns a pointer to v, for building patches inline.
func F(v float64) *float64 { return &v }

// S returns a pointer to s, for building patches inline.
func S(s string) *string { return &s }

// B returns a pointer to b, for building patches inline.
func B(b bool) *bool { return &b }

// DrawCommand is one buffered drawing call. The host flushes the buffer once
// per frame, in append order, inside its synchronous drawing callback.
type DrawCommand struct {
	Name string
	Args []any
}

// SimulationContext is the execution environment shared by everything a
// generated program does: the frame counter, the actor registry, program
// variables and the draw-command buffer. The host owns exactly one and passes
// it into every generated function; there are no package-level singletons.
//
// Tick must be called once per host frame. Reset starts a new generation:
// the epoch is bumped and every generated loop still waiting on the old
// epoch returns instead of resuming, so a reset never leaves orphaned loops
// mutating actors from a previous run.
type SimulationContext struct {
	mu   sync.Mutex
	cond *sync.Cond

	frame int64
	epoch int64

	actors map[string]*Actor
	order  []string

	vars       map[string]any
	drawBuf    []DrawCommand
	background string

	// drawFn, when set by the host, receives immediate-mode draw calls made
	// from synchronous hooks. Calls made outside the host's drawing callback
	// go through the buffer instead.
	drawFn func(DrawCommand)
}

// NewSimulationContext returns an empty context at frame 0, epoch 0.
func NewSimulationContext() *SimulationContext {
	s := &SimulationContext{
		actors: make(map[string]*Actor),
		vars:   make(map[string]any),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Tick advances the frame counter by one and wakes every WaitFrames caller
// so it can re-check its target frame.
func (s *SimulationContext) Tick() {
	s.mu.Lock()
	s.frame++
	s.mu.Unlock()
	s.cond.Broadcast()
}

// Frame returns the current frame count.
func (s *SimulationContext) Frame() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}

// Epoch returns the current generation. Generated loops capture it once at
// start and pass it back into WaitFrames.
func (s *SimulationContext) Epoch() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// WaitFrames blocks until the frame counter has advanced by at least n from
// the time of the call. It returns false, without waiting out the remaining
// frames, as soon as the context's epoch no longer matches the given one;
// generated loops treat that as the signal to terminate.
func (s *SimulationContext) WaitFrames(epoch int64, n int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return false
	}
	target := s.frame + int64(n)
	for s.frame < target && s.epoch == epoch {
		s.cond.Wait()
	}
	return s.epoch == epoch
}

// Reset clears the frame counter, program variables and the draw buffer, and
// bumps the epoch so loops from the previous run self-terminate. Registered
// actors are kept; the host re-registers them when it reloads a program.
func (s *SimulationContext) Reset() {
	s.mu.Lock()
	s.frame = 0
	s.epoch++
	s.vars = make(map[string]any)
	s.drawBuf = nil
	s.mu.Unlock()
	s.cond.Broadcast()
}

// RegisterActor adds or replaces an actor. Roster order is preserved for
// Actors(); re-registering an id keeps its original position.
func (s *SimulationContext) RegisterActor(a Actor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.actors[a.ID]; !ok {
		s.order = append(s.order, a.ID)
	}
	copied := a
	s.actors[a.ID] = &copied
}

// Actor returns a copy of the actor with the given id, or a zero Actor if
// the id is unknown or empty (the stage has no actor).
func (s *SimulationContext) Actor(id string) Actor {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.actors[id]; ok {
		return *a
	}
	return Actor{}
}

// Actors returns copies of all actors in roster order.
func (s *SimulationContext) Actors() []Actor {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Actor, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.actors[id])
	}
	return out
}

// UpdateActor applies a merge patch to one actor. The whole patch is applied
// under a single lock, so concurrent readers never observe a half-applied
// patch. Unknown or empty ids are ignored.
func (s *SimulationContext) UpdateActor(id string, p ActorPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.actors[id]
	if !ok {
		return
	}
	if p.X != nil {
		a.X = *p.X
	}
	if p.Y != nil {
		a.Y = *p.Y
	}
	if p.Size != nil {
		a.Size = *p.Size
	}
	if p.Color != nil {
		a.Color = *p.Color
	}
	if p.Visible != nil {
		a.Visible = *p.Visible
	}
}

// MoveActor shifts an actor by a relative offset.
func (s *SimulationContext) MoveActor(id string, dx, dy float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.actors[id]; ok {
		a.X += dx
		a.Y += dy
	}
}

// Var returns the value of a program variable, or nil if unset.
func (s *SimulationContext) Var(name string) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vars[name]
}

// SetVar sets a program variable.
func (s *SimulationContext) SetVar(name string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vars[name] = value
}

// NumVar returns a variable coerced to float64 (0 when unset or non-numeric).
func (s *SimulationContext) NumVar(name string) float64 {
	return AsNum(s.Var(name))
}

// TextVar returns a variable coerced to string ("" when unset).
func (s *SimulationContext) TextVar(name string) string {
	return AsText(s.Var(name))
}

// BoolVar returns a variable coerced to bool (false when unset).
func (s *SimulationContext) BoolVar(name string) bool {
	return AsBool(s.Var(name))
}

// AsNum coerces a generic value to float64 (0 when nil or non-numeric).
// Generated code wraps untyped supplier expressions with these coercions
// where the consuming input wants a specific type.
func AsNum(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

// AsText coerces a generic value to string ("" when nil).
func AsText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'g', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// AsBool coerces a generic value to bool (false when nil or non-boolean).
func AsBool(v any) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return false
}

// SetBackground records the stage background color.
func (s *SimulationContext) SetBackground(color string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.background = color
}

// Background returns the stage background color.
func (s *SimulationContext) Background() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.background
}

// SetDrawFunc installs the host's immediate-mode drawing callback. Draw calls
// made while no callback is installed fall back to the buffer.
func (s *SimulationContext) SetDrawFunc(fn func(DrawCommand)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drawFn = fn
}

// Draw issues an immediate-mode drawing call. Only synchronous hooks running
// inside the host's per-frame drawing callback compile to Draw; loop bodies
// compile to AppendDrawCommand instead.
func (s *SimulationContext) Draw(name string, args ...any) {
	s.mu.Lock()
	fn := s.drawFn
	if fn == nil {
		s.drawBuf = append(s.drawBuf, DrawCommand{Name: name, Args: args})
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	fn(DrawCommand{Name: name, Args: args})
}

// AppendDrawCommand records a drawing call for the next flush.
func (s *SimulationContext) AppendDrawCommand(name string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drawBuf = append(s.drawBuf, DrawCommand{Name: name, Args: args})
}

// FlushDrawBuffer returns the buffered draw commands in append order and
// clears the buffer. The host calls this exactly once per frame.
func (s *SimulationContext) FlushDrawBuffer() []DrawCommand {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.drawBuf
	s.drawBuf = nil
	return out
}

// Div is guarded division for generated code: dividing by zero yields 0
// instead of faulting, and constant operands stay compilable where a literal
// `/` would be rejected as a constant division by zero.
func (s *SimulationContext) Div(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

// RandRange returns a uniform random number in [min, max).
func (s *SimulationContext) RandRange(min, max float64) float64 {
	if max <= min {
		return min
	}
	return min + rand.Float64()*(max-min)
}
