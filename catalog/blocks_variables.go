package catalog

func init() {
	registerBuiltin(BlockDefinition{
		ID:       "var_set",
		Category: "variables",
		Template: "sim.SetVar(${name}, ${value})",
		Inputs: []InputSpec{
			{Name: "name", Type: Text, Default: "score"},
			{Name: "value", Type: Number, Default: 0, AcceptsVariable: true},
		},
	})
	registerBuiltin(BlockDefinition{
		ID:       "var_get",
		Category: "variables",
		Template: "sim.NumVar(${name})",
		Inputs: []InputSpec{
			{Name: "name", Type: Text, Default: "score"},
		},
		PortsOut: []Port{
			{Label: "value", Side: Right, Type: Number},
		},
		Shape: Reporter,
	})
	registerBuiltin(BlockDefinition{
		ID:       "var_change",
		Category: "variables",
		Template: "sim.SetVar(${name}, sim.NumVar(${name})+${delta})",
		Inputs: []InputSpec{
			{Name: "name", Type: Text, Default: "score"},
			{Name: "delta", Type: Number, Default: 1, AcceptsVariable: true},
		},
	})
}
