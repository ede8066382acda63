package catalog

func init() {
	registerBuiltin(BlockDefinition{
		ID:       "move_by",
		Category: "motion",
		Template: "sim.MoveActor(${self}, ${dx}, ${dy})",
		Inputs: []InputSpec{
			{Name: "dx", Type: Number, Default: 10, AcceptsVariable: true},
			{Name: "dy", Type: Number, Default: 0, AcceptsVariable: true},
		},
		Actor: ActorRequired,
	})
	registerBuiltin(BlockDefinition{
		ID:       "goto_xy",
		Category: "motion",
		Template: "sim.UpdateActor(${self}, stagescript.ActorPatch{X: stagescript.F(${x}), Y: stagescript.F(${y})})",
		Inputs: []InputSpec{
			{Name: "x", Type: Number, Default: 0, AcceptsVariable: true},
			{Name: "y", Type: Number, Default: 0, AcceptsVariable: true},
		},
		Actor: ActorRequired,
	})
	registerBuiltin(BlockDefinition{
		ID:       "set_size",
		Category: "motion",
		Template: "sim.UpdateActor(${self}, stagescript.ActorPatch{Size: stagescript.F(${size})})",
		Inputs: []InputSpec{
			{Name: "size", Type: Number, Default: 100, AcceptsVariable: true},
		},
		Actor: ActorRequired,
	})
	registerBuiltin(BlockDefinition{
		ID:       "actor_x",
		Category: "motion",
		Template: "sim.Actor(${self}).X",
		PortsOut: []Port{
			{Label: "x", Side: Right, Type: Number},
		},
		Actor: ActorRequired,
		Shape: Reporter,
	})
	registerBuiltin(BlockDefinition{
		ID:       "actor_y",
		Category: "motion",
		Template: "sim.Actor(${self}).Y",
		PortsOut: []Port{
			{Label: "y", Side: Right, Type: Number},
		},
		Actor: ActorRequired,
		Shape: Reporter,
	})
}
