package catalog

// Entry blocks. They carry no template of their own; they anchor the chain
// the generator compiles into the matching hook or loop.

func init() {
	registerBuiltin(BlockDefinition{
		ID:       "when_setup",
		Category: "events",
		Entry:    EntrySetup,
	})
	registerBuiltin(BlockDefinition{
		ID:       "when_stage_tick",
		Category: "events",
		Entry:    EntryTick,
	})
	registerBuiltin(BlockDefinition{
		ID:       "when_clicked",
		Category: "events",
		Entry:    EntryClick,
	})
	// forever compiles into an independently scheduled loop regardless of
	// scope; an actor-scoped when_stage_tick is promoted to a loop too.
	registerBuiltin(BlockDefinition{
		ID:       "forever",
		Category: "events",
		Entry:    EntryLoop,
	})
}
