package catalog

// Control-flow blocks. Branch output ports (flow-typed) appear as template
// placeholders and are filled with the compiled chain reachable from that
// port; the condition input port is filled with a supplying expression or
// the boolean safe default.

func init() {
	registerBuiltin(BlockDefinition{
		ID:       "if_else",
		Category: "control",
		Template: "if ${condition} {\n${then}\n} else {\n${else}\n}",
		PortsIn: []Port{
			{Label: "condition", Side: Left, Type: Boolean},
		},
		PortsOut: []Port{
			{Label: "then", Side: Right, Type: Flow},
			{Label: "else", Side: Right, Type: Flow},
		},
		HeightClass: "tall",
	})
	registerBuiltin(BlockDefinition{
		ID:       "while",
		Category: "control",
		Template: "for ${condition} {\n${body}\n}",
		PortsIn: []Port{
			{Label: "condition", Side: Left, Type: Boolean},
		},
		PortsOut: []Port{
			{Label: "body", Side: Right, Type: Flow},
		},
		HeightClass: "tall",
	})
	registerBuiltin(BlockDefinition{
		ID:       "repeat",
		Category: "control",
		Template: "for _i := 0; _i < int(${times}); _i++ {\n${body}\n}",
		Inputs: []InputSpec{
			{Name: "times", Type: Number, Default: 10, AcceptsVariable: true},
		},
		PortsOut: []Port{
			{Label: "body", Side: Right, Type: Flow},
		},
		HeightClass: "tall",
	})
	// wait only makes sense where the program may suspend; synchronous hooks
	// compile it to a comment instead.
	registerBuiltin(BlockDefinition{
		ID:       "wait",
		Category: "control",
		Template: "if !sim.WaitFrames(_epoch, int(${frames})) {\n\treturn nil\n}",
		Inputs: []InputSpec{
			{Name: "frames", Type: Number, Default: 1, AcceptsVariable: true},
		},
		Suspends: true,
	})
}
