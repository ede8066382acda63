package catalog

// Operator blocks are reporters: pure expressions consumed through data
// connections, never sequenced by flow edges.

func binaryOp(id, op string, in, out ValueType) BlockDefinition {
	return BlockDefinition{
		ID:       id,
		Category: "operators",
		Template: "(${a} " + op + " ${b})",
		PortsIn: []Port{
			{Label: "a", Side: Left, Type: in},
			{Label: "b", Side: Left, Type: in},
		},
		PortsOut: []Port{
			{Label: "result", Side: Right, Type: out},
		},
		Shape: Reporter,
	}
}

func init() {
	registerBuiltin(binaryOp("op_add", "+", Number, Number))
	registerBuiltin(binaryOp("op_sub", "-", Number, Number))
	registerBuiltin(binaryOp("op_mul", "*", Number, Number))

	// Division goes through the runtime so a zero divisor (including the
	// unconnected-port default, a constant 0) stays compilable and inert.
	registerBuiltin(BlockDefinition{
		ID:       "op_div",
		Category: "operators",
		Template: "sim.Div(${a}, ${b})",
		PortsIn: []Port{
			{Label: "a", Side: Left, Type: Number},
			{Label: "b", Side: Left, Type: Number},
		},
		PortsOut: []Port{
			{Label: "result", Side: Right, Type: Number},
		},
		Shape: Reporter,
	})
	registerBuiltin(binaryOp("op_gt", ">", Number, Boolean))
	registerBuiltin(binaryOp("op_lt", "<", Number, Boolean))
	registerBuiltin(binaryOp("op_eq", "==", Number, Boolean))
	registerBuiltin(binaryOp("op_and", "&&", Boolean, Boolean))
	registerBuiltin(binaryOp("op_or", "||", Boolean, Boolean))

	registerBuiltin(BlockDefinition{
		ID:       "op_not",
		Category: "operators",
		Template: "(!${a})",
		PortsIn: []Port{
			{Label: "a", Side: Left, Type: Boolean},
		},
		PortsOut: []Port{
			{Label: "result", Side: Right, Type: Boolean},
		},
		Shape: Reporter,
	})
	registerBuiltin(BlockDefinition{
		ID:       "random_range",
		Category: "operators",
		Template: "sim.RandRange(${min}, ${max})",
		Inputs: []InputSpec{
			{Name: "min", Type: Number, Default: 1, AcceptsVariable: true},
			{Name: "max", Type: Number, Default: 10, AcceptsVariable: true},
		},
		PortsOut: []Port{
			{Label: "result", Side: Right, Type: Number},
		},
		Shape: Reporter,
	})
}
