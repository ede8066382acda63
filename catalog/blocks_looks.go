package catalog

func init() {
	registerBuiltin(BlockDefinition{
		ID:       "show",
		Category: "looks",
		Template: "sim.UpdateActor(${self}, stagescript.ActorPatch{Visible: stagescript.B(true)})",
		Actor:    ActorRequired,
	})
	registerBuiltin(BlockDefinition{
		ID:       "hide",
		Category: "looks",
		Template: "sim.UpdateActor(${self}, stagescript.ActorPatch{Visible: stagescript.B(false)})",
		Actor:    ActorRequired,
	})
	registerBuiltin(BlockDefinition{
		ID:       "set_color",
		Category: "looks",
		Template: "sim.UpdateActor(${self}, stagescript.ActorPatch{Color: stagescript.S(${color})})",
		Inputs: []InputSpec{
			{Name: "color", Type: Text, Default: "orange"},
		},
		Actor: ActorRequired,
	})
	registerBuiltin(BlockDefinition{
		ID:       "set_background",
		Category: "looks",
		Template: "sim.SetBackground(${color})",
		Inputs: []InputSpec{
			{Name: "color", Type: Text, Default: "white"},
		},
	})
	registerBuiltin(BlockDefinition{
		ID:          "draw_circle",
		Category:    "looks",
		Template:    `sim.Draw("circle", ${x}, ${y}, ${radius})`,
		DrawCommand: "circle",
		Inputs: []InputSpec{
			{Name: "x", Type: Number, Default: 0, AcceptsVariable: true},
			{Name: "y", Type: Number, Default: 0, AcceptsVariable: true},
			{Name: "radius", Type: Number, Default: 20, AcceptsVariable: true},
		},
	})
	registerBuiltin(BlockDefinition{
		ID:          "draw_line",
		Category:    "looks",
		Template:    `sim.Draw("line", ${x1}, ${y1}, ${x2}, ${y2})`,
		DrawCommand: "line",
		Inputs: []InputSpec{
			{Name: "x1", Type: Number, Default: 0, AcceptsVariable: true},
			{Name: "y1", Type: Number, Default: 0, AcceptsVariable: true},
			{Name: "x2", Type: Number, Default: 50, AcceptsVariable: true},
			{Name: "y2", Type: Number, Default: 50, AcceptsVariable: true},
		},
	})
	registerBuiltin(BlockDefinition{
		ID:          "draw_text",
		Category:    "looks",
		Template:    `sim.Draw("text", ${x}, ${y}, ${text})`,
		DrawCommand: "text",
		Inputs: []InputSpec{
			{Name: "x", Type: Number, Default: 0, AcceptsVariable: true},
			{Name: "y", Type: Number, Default: 0, AcceptsVariable: true},
			{Name: "text", Type: Text, Default: "hello"},
		},
	})
}
