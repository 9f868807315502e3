package scalar

import (
	"fmt"

	"eqsat/internal/egraph"
)

// Instruction is one ARM-like three-address instruction: op dst, src...
type Instruction struct {
	Op   string
	Dst  string
	Args []string
}

func (ins Instruction) String() string {
	s := ins.Op + " " + ins.Dst
	for _, a := range ins.Args {
		s += ", " + a
	}
	return s
}

var lowerMnemonic = map[string]string{
	"+": "ADD", "-": "SUB", "*": "MUL", "/": "SDIV", "%": "SMOD",
	"neg": "NEG", "!": "MVN",
	"==": "CSET.EQ", "!=": "CSET.NE", "<": "CSET.LT", "<=": "CSET.LE",
	">": "CSET.GT", ">=": "CSET.GE", "&&": "AND", "||": "ORR",
}

// Lower flattens a RecExpr into a register-machine instruction sequence.
// This is a derived artifact for inspection/codegen purposes only — it is
// never fed back into the e-graph or used by the cost model.
func Lower(expr egraph.RecExpr) []Instruction {
	var out []Instruction
	regs := make([]string, len(expr.Nodes))
	next := 0
	for i, n := range expr.Nodes {
		if len(n.Children) == 0 {
			regs[i] = n.Op
			continue
		}
		dst := fmt.Sprintf("r%d", next)
		next++
		regs[i] = dst

		mnemonic, ok := lowerMnemonic[n.Op]
		if !ok {
			mnemonic = "CALL." + n.Op
		}
		args := make([]string, len(n.Children))
		for j, c := range n.Children {
			args[j] = regs[c]
		}
		out = append(out, Instruction{Op: mnemonic, Dst: dst, Args: args})
	}
	return out
}
